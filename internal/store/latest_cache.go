package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/divakargaba/Dehydration/internal/domain"
)

const latestKeyPrefix = "hydration:latest:"

// LatestSnapshot 用户最近一次上报的指标及预测
type LatestSnapshot struct {
	UserID     string          `json:"user_id"`
	Metrics    domain.Metrics  `json:"metrics"`
	Prediction float64         `json:"prediction"`
	RiskLabel  string          `json:"risk_label"`
	Source     string          `json:"source"`
	UpdatedAt  time.Time       `json:"updated_at"`
	Weather    *domain.Weather `json:"weather,omitempty"`
}

// LatestMetricsCache 按 user_id 保存最新指标（替代进程级全局变量）
type LatestMetricsCache struct {
	kv  KV
	ttl time.Duration
}

// NewLatestMetricsCache ttl<=0 表示不过期
func NewLatestMetricsCache(kv KV, ttl time.Duration) *LatestMetricsCache {
	return &LatestMetricsCache{kv: kv, ttl: ttl}
}

func latestKey(userID string) string {
	return latestKeyPrefix + userID
}

// Put 写入最新快照
func (c *LatestMetricsCache) Put(ctx context.Context, snap LatestSnapshot) error {
	if snap.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal latest snapshot: %w", err)
	}
	return c.kv.Set(ctx, latestKey(snap.UserID), string(b), c.ttl)
}

// Get 读取最新快照；不存在时返回 (nil, nil)
func (c *LatestMetricsCache) Get(ctx context.Context, userID string) (*LatestSnapshot, error) {
	raw, err := c.kv.Get(ctx, latestKey(userID))
	if err != nil {
		if errors.Is(err, ErrMiss) {
			return nil, nil
		}
		return nil, err
	}
	var snap LatestSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("failed to decode latest snapshot: %w", err)
	}
	return &snap, nil
}

// Users 返回缓存中所有用户（排序后）
func (c *LatestMetricsCache) Users(ctx context.Context) ([]string, error) {
	keys, err := c.kv.ScanKeys(ctx, latestKeyPrefix+"*")
	if err != nil {
		return nil, err
	}
	users := make([]string, 0, len(keys))
	for _, k := range keys {
		users = append(users, strings.TrimPrefix(k, latestKeyPrefix))
	}
	sort.Strings(users)
	return users, nil
}
