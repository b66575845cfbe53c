package service

import (
	"context"

	"github.com/divakargaba/Dehydration/internal/domain"

	"go.uber.org/zap"
)

// DefaultBaselineDays 基线窗口
const DefaultBaselineDays = 30

// BaselineService 用户基线（每次调用都重新计算，不缓存）
type BaselineService struct {
	metrics *MetricsService
	logger  *zap.Logger
}

func NewBaselineService(metrics *MetricsService, logger *zap.Logger) *BaselineService {
	return &BaselineService{metrics: metrics, logger: logger}
}

// Baseline 窗口内没有记录（或查询失败）时返回 nil
func (s *BaselineService) Baseline(ctx context.Context, userID string, windowDays int) *domain.UserBaseline {
	if windowDays <= 0 {
		windowDays = DefaultBaselineDays
	}
	records, err := s.metrics.Recent(ctx, userID, windowDays)
	if err != nil {
		s.logger.Warn("Failed to load records for baseline",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil
	}
	b := ComputeBaseline(records)
	if b != nil {
		b.WindowDays = windowDays
	}
	return b
}

// ComputeBaseline 算术平均；缺省为 0 的字段同样参与平均
func ComputeBaseline(records []*domain.MetricRecord) *domain.UserBaseline {
	if len(records) == 0 {
		return nil
	}
	var hr, temp, steps, water float64
	for _, r := range records {
		hr += r.HeartRate
		temp += r.BodyTemp
		steps += r.Steps
		water += r.WaterIntake
	}
	n := float64(len(records))
	return &domain.UserBaseline{
		AvgHeartRate:   hr / n,
		AvgBodyTemp:    temp / n,
		AvgSteps:       steps / n,
		AvgWaterIntake: water / n,
		SampleCount:    len(records),
	}
}
