package service

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// HeartRateSource 实时心率来源（例如胸带设备）
type HeartRateSource interface {
	CurrentHeartRate(ctx context.Context) (float64, error)
}

// SimulatedHeartRate 在 [Min, Max] 内随机产生心率，用于没有真实设备时
type SimulatedHeartRate struct {
	Min, Max int

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSimulatedHeartRate(seed int64) *SimulatedHeartRate {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SimulatedHeartRate{Min: 60, Max: 100, rng: rand.New(rand.NewSource(seed))}
}

func (s *SimulatedHeartRate) CurrentHeartRate(_ context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return float64(s.Min + s.rng.Intn(s.Max-s.Min+1)), nil
}
