package service

import (
	"context"
	"fmt"
	"math"

	"github.com/divakargaba/Dehydration/internal/domain"

	"go.uber.org/zap"
)

// 预测窗口
const (
	DefaultHorizonMinutes = 30
	minHorizonMinutes     = 10
	maxHorizonMinutes     = 60
	minProjectionRecords  = 5
)

// Projector 基于近期变化率的短时风险预测
type Projector struct {
	metrics   *MetricsService
	predictor *Predictor
	env       *EnvironmentService
	logger    *zap.Logger
}

func NewProjector(metrics *MetricsService, predictor *Predictor, env *EnvironmentService, logger *zap.Logger) *Projector {
	return &Projector{metrics: metrics, predictor: predictor, env: env, logger: logger}
}

// Project 自行计算当前风险并获取天气
func (p *Projector) Project(ctx context.Context, userID string, current domain.Metrics, horizonMinutes int) *domain.FutureRisk {
	pred := p.predictor.Predict(userID, current)
	return p.ProjectWith(ctx, userID, current, pred.Probability, p.env.Weather(ctx), horizonMinutes)
}

// ProjectWith 使用调用方已有的当前风险与天气；最近一天记录少于 5 条时返回 nil
func (p *Projector) ProjectWith(ctx context.Context, userID string, current domain.Metrics, currentRisk float64, weather *domain.Weather, horizonMinutes int) *domain.FutureRisk {
	records, err := p.metrics.Recent(ctx, userID, 1)
	if err != nil {
		p.logger.Warn("Failed to load recent records for projection",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil
	}
	return ProjectFutureRisk(records, current, currentRisk, weather, horizonMinutes)
}

// ProjectFutureRisk records 按时间倒序
func ProjectFutureRisk(records []*domain.MetricRecord, current domain.Metrics, currentRisk float64, weather *domain.Weather, horizonMinutes int) *domain.FutureRisk {
	if len(records) < minProjectionRecords {
		return nil
	}
	if horizonMinutes <= 0 {
		horizonMinutes = DefaultHorizonMinutes
	}
	horizonMinutes = max(minHorizonMinutes, min(maxHorizonMinutes, horizonMinutes))

	window := records
	if len(window) > 6 {
		window = window[:6]
	}
	recent := window[:3]
	var earlier []*domain.MetricRecord
	if len(window) >= 6 {
		earlier = window[3:6]
	} else {
		earlier = window[len(window)-2:]
	}

	trends := domain.Trends{
		HeartRate:   meanOf(recent, hrOf) - meanOf(earlier, hrOf),
		BodyTemp:    meanOf(recent, tempOf) - meanOf(earlier, tempOf),
		WaterIntake: meanOf(recent, waterOf) - meanOf(earlier, waterOf),
	}

	risk := currentRisk
	var factors []string
	if trends.HeartRate > 5 {
		risk += 0.10
		factors = append(factors, fmt.Sprintf("heart rate rising (+%.1f bpm)", trends.HeartRate))
	}
	if trends.BodyTemp > 0.5 {
		risk += 0.15
		factors = append(factors, fmt.Sprintf("body temperature rising (+%.1f°C)", trends.BodyTemp))
	}
	if trends.WaterIntake < -0.5 {
		risk += 0.20
		factors = append(factors, "water intake dropping")
	}
	if weather != nil {
		switch {
		case weather.Temperature > 30:
			risk += 0.10
			factors = append(factors, "hot weather")
		case weather.Temperature > 25:
			risk += 0.05
			factors = append(factors, "warm weather")
		}
	}
	switch {
	case current.Steps > 10000:
		risk += 0.10
		factors = append(factors, "very high activity")
	case current.Steps > 5000:
		risk += 0.05
		factors = append(factors, "elevated activity")
	}
	risk = math.Min(risk, 1.0)

	urgency, eta := urgencyFor(risk)
	return &domain.FutureRisk{
		CurrentRisk:    currentRisk,
		FutureRisk:     risk,
		HorizonMinutes: horizonMinutes,
		Urgency:        urgency,
		TimeToEvent:    eta,
		Trends:         trends,
		Factors:        factors,
	}
}

func urgencyFor(risk float64) (string, string) {
	switch {
	case risk > 0.8:
		return domain.UrgencyEmergency, "10-15 minutes"
	case risk > 0.6:
		return domain.UrgencyHigh, "20-30 minutes"
	case risk > 0.4:
		return domain.UrgencyMedium, "30-60 minutes"
	default:
		return domain.UrgencyLow, "No immediate risk"
	}
}

func hrOf(r *domain.MetricRecord) float64    { return r.HeartRate }
func tempOf(r *domain.MetricRecord) float64  { return r.BodyTemp }
func waterOf(r *domain.MetricRecord) float64 { return r.WaterIntake }

func meanOf(records []*domain.MetricRecord, f func(*domain.MetricRecord) float64) float64 {
	if len(records) == 0 {
		return 0
	}
	s := 0.0
	for _, r := range records {
		s += f(r)
	}
	return s / float64(len(records))
}
