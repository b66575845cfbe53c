package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/divakargaba/Dehydration/internal/domain"
)

// DefaultSampleCapacity 滑动缓冲区容量
const DefaultSampleCapacity = 60

const sampleKeyPrefix = "hydration:samples:"

// Sample 缓冲区中的一个样本
type Sample struct {
	Metrics     domain.Metrics `json:"metrics"`
	Probability float64        `json:"probability"`
	At          time.Time      `json:"at"`
}

// SampleBuffer 每个用户一个定长滑动缓冲区，满后淘汰最旧样本
type SampleBuffer struct {
	kv       ListKV
	capacity int
}

func NewSampleBuffer(kv ListKV, capacity int) *SampleBuffer {
	if capacity <= 0 {
		capacity = DefaultSampleCapacity
	}
	return &SampleBuffer{kv: kv, capacity: capacity}
}

func (b *SampleBuffer) Capacity() int { return b.capacity }

func (b *SampleBuffer) Push(ctx context.Context, userID string, s Sample) error {
	if userID == "" {
		return fmt.Errorf("user_id is required")
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal sample: %w", err)
	}
	return b.kv.PushCapped(ctx, sampleKeyPrefix+userID, string(raw), b.capacity)
}

// Samples 最旧在前
func (b *SampleBuffer) Samples(ctx context.Context, userID string) ([]Sample, error) {
	vals, err := b.kv.Range(ctx, sampleKeyPrefix+userID)
	if err != nil {
		return nil, err
	}
	out := make([]Sample, 0, len(vals))
	for _, v := range vals {
		var s Sample
		if err := json.Unmarshal([]byte(v), &s); err != nil {
			return nil, fmt.Errorf("failed to decode sample: %w", err)
		}
		out = append(out, s)
	}
	return out, nil
}
