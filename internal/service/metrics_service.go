package service

import (
	"context"
	"time"

	"github.com/divakargaba/Dehydration/internal/domain"
	"github.com/divakargaba/Dehydration/internal/repository"

	"go.uber.org/zap"
)

// MetricsService 指标写入与查询
type MetricsService struct {
	repo   repository.MetricsRepository
	clock  Clock
	logger *zap.Logger
}

func NewMetricsService(repo repository.MetricsRepository, clock Clock, logger *zap.Logger) *MetricsService {
	return &MetricsService{repo: repo, clock: clock, logger: logger}
}

// Record 写入一条记录；存储失败只记录日志并返回 false
func (s *MetricsService) Record(ctx context.Context, userID string, m domain.Metrics, p domain.Prediction) bool {
	rec := &domain.MetricRecord{
		UserID:          userID,
		Timestamp:       s.clock.now(),
		Metrics:         m,
		DehydrationRisk: domain.RiskLabel(p.Probability),
		MLPrediction:    p.Probability,
	}
	if err := s.repo.InsertMetric(ctx, rec); err != nil {
		s.logger.Error("Failed to record metrics",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return false
	}
	return true
}

// Query since 之后的记录（最新在前）
func (s *MetricsService) Query(ctx context.Context, userID string, since time.Time) ([]*domain.MetricRecord, error) {
	return s.repo.ListMetricsSince(ctx, userID, since)
}

// Recent 最近 days 天的记录（最新在前）
func (s *MetricsService) Recent(ctx context.Context, userID string, days int) ([]*domain.MetricRecord, error) {
	return s.repo.ListMetricsSince(ctx, userID, daysAgo(s.clock.now(), days))
}

// Count 最近 days 天的记录数
func (s *MetricsService) Count(ctx context.Context, userID string, days int) (int, error) {
	return s.repo.CountMetricsSince(ctx, userID, daysAgo(s.clock.now(), days))
}
