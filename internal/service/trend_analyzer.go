package service

import (
	"context"

	"github.com/divakargaba/Dehydration/internal/domain"
	"github.com/divakargaba/Dehydration/internal/store"

	"go.uber.org/zap"
)

// TrendAnalyzer 滑动缓冲区启发式分析，与 Projector 相互独立
type TrendAnalyzer struct {
	buffer *store.SampleBuffer
	clock  Clock
	logger *zap.Logger
}

func NewTrendAnalyzer(buffer *store.SampleBuffer, clock Clock, logger *zap.Logger) *TrendAnalyzer {
	return &TrendAnalyzer{buffer: buffer, clock: clock, logger: logger}
}

// Observe 写入一个样本（满 60 个后淘汰最旧）
func (a *TrendAnalyzer) Observe(ctx context.Context, userID string, m domain.Metrics, probability float64) {
	err := a.buffer.Push(ctx, userID, store.Sample{Metrics: m, Probability: probability, At: a.clock.now()})
	if err != nil {
		a.logger.Warn("Failed to buffer sample", zap.String("user_id", userID), zap.Error(err))
	}
}

// Analyze 读取缓冲区并给出 High / Moderate / Low
func (a *TrendAnalyzer) Analyze(ctx context.Context, userID string) domain.BufferTrend {
	samples, err := a.buffer.Samples(ctx, userID)
	if err != nil {
		a.logger.Warn("Failed to read sample buffer", zap.String("user_id", userID), zap.Error(err))
		return domain.BufferTrend{Risk: domain.TrendLow}
	}
	return AnalyzeSamples(samples)
}

// AnalyzeSamples samples 最旧在前
func AnalyzeSamples(samples []store.Sample) domain.BufferTrend {
	res := domain.BufferTrend{Risk: domain.TrendLow, Samples: len(samples)}
	if len(samples) == 0 {
		return res
	}
	first, last := samples[0], samples[len(samples)-1]
	res.Probability = last.Probability
	res.HRDelta = last.Metrics.HeartRate - first.Metrics.HeartRate
	res.BodyTempDelta = last.Metrics.BodyTemp - first.Metrics.BodyTemp
	res.HRRising = res.HRDelta > 10
	res.TempRising = res.BodyTempDelta > 0.5
	res.LowWater = last.Metrics.WaterIntake < 1.0

	switch {
	case res.HRRising && res.TempRising && res.LowWater:
		res.Risk = domain.TrendHigh
	case res.HRRising || res.TempRising:
		res.Risk = domain.TrendModerate
	case res.Probability > 0.4 && res.Probability < 0.5:
		res.Risk = domain.TrendModerate
	}
	return res
}
