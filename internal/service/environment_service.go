package service

import (
	"context"
	"fmt"
	"math"

	"github.com/divakargaba/Dehydration/internal/domain"

	"go.uber.org/zap"
)

// 默认位置：New York
const (
	DefaultLatitude  = 40.7128
	DefaultLongitude = -74.0060
)

// 推荐饮水量
const (
	BaseDailyWaterLiters = 2.0
	WakingHours          = 16
)

// EnvironmentService 天气与时段上下文
type EnvironmentService struct {
	provider WeatherProvider // 可为 nil
	lat, lon float64
	clock    Clock
	logger   *zap.Logger
}

func NewEnvironmentService(provider WeatherProvider, lat, lon float64, clock Clock, logger *zap.Logger) *EnvironmentService {
	if lat == 0 && lon == 0 {
		lat, lon = DefaultLatitude, DefaultLongitude
	}
	return &EnvironmentService{provider: provider, lat: lat, lon: lon, clock: clock, logger: logger}
}

// Weather 当前天气；不可用时返回 nil
func (e *EnvironmentService) Weather(ctx context.Context) *domain.Weather {
	if e.provider == nil {
		return nil
	}
	return e.provider.CurrentWeather(ctx, e.lat, e.lon)
}

// Analyze 天气风险评分与上下文标签；weather 为 nil 时视为正常环境
func (e *EnvironmentService) Analyze(w *domain.Weather) domain.EnvironmentalAnalysis {
	return AnalyzeEnvironment(w)
}

func AnalyzeEnvironment(w *domain.Weather) domain.EnvironmentalAnalysis {
	a := domain.EnvironmentalAnalysis{
		EnvironmentalContext:    domain.ContextNormal,
		EnvironmentalMultiplier: EnvironmentalMultiplier(w),
		Factors:                 []string{},
	}
	if w == nil {
		return a
	}
	a.WeatherAvailable = true

	score := 0.0
	switch {
	case w.Temperature > 35:
		score += 0.4
		a.Factors = append(a.Factors, fmt.Sprintf("extreme heat (%.1f°C)", w.Temperature))
	case w.Temperature > 30:
		score += 0.3
		a.Factors = append(a.Factors, fmt.Sprintf("high temperature (%.1f°C)", w.Temperature))
	case w.Temperature > 25:
		score += 0.15
		a.Factors = append(a.Factors, fmt.Sprintf("warm temperature (%.1f°C)", w.Temperature))
	}
	switch {
	case w.Humidity > 80:
		score += 0.3
		a.Factors = append(a.Factors, fmt.Sprintf("very high humidity (%.0f%%)", w.Humidity))
	case w.Humidity > 70:
		score += 0.2
		a.Factors = append(a.Factors, fmt.Sprintf("high humidity (%.0f%%)", w.Humidity))
	case w.Humidity > 60:
		score += 0.1
	}
	if w.WindSpeed > 10 {
		score += 0.1
		a.Factors = append(a.Factors, "strong wind")
	}
	a.RiskScore = math.Min(score, 1.0)

	switch {
	case a.RiskScore >= 0.6:
		a.EnvironmentalContext = domain.ContextHarsh
	case a.RiskScore >= 0.3:
		a.EnvironmentalContext = domain.ContextModerate
	}
	return a
}

// EnvironmentalMultiplier 无天气数据时为 1.0
func EnvironmentalMultiplier(w *domain.Weather) float64 {
	if w == nil {
		return 1.0
	}
	m := 1.0
	switch {
	case w.Temperature > 30:
		m = 1.3
	case w.Temperature > 25:
		m = 1.15
	}
	if w.Humidity > 70 {
		m += 0.1
	}
	return m
}

// ActivityMultiplier 按步数
func ActivityMultiplier(steps float64) float64 {
	switch {
	case steps > 10000:
		return 1.4
	case steps > 5000:
		return 1.2
	default:
		return 1.0
	}
}

// TimeMultiplier 按小时（0-23）
func TimeMultiplier(hour int) float64 {
	switch {
	case hour >= 6 && hour < 12:
		return 1.1
	case hour >= 12 && hour < 18:
		return 1.2
	case hour >= 18 && hour < 22:
		return 0.9
	default:
		return 0.7
	}
}

// HydrationTarget 2.0L × 活动 × 时段 × 环境，按 16 个清醒小时平均
func (e *EnvironmentService) HydrationTarget(m domain.Metrics, w *domain.Weather) domain.HydrationTarget {
	t := domain.HydrationTarget{
		BaseTarget:              BaseDailyWaterLiters,
		ActivityMultiplier:      ActivityMultiplier(m.Steps),
		TimeMultiplier:          TimeMultiplier(e.clock.now().Hour()),
		EnvironmentalMultiplier: EnvironmentalMultiplier(w),
	}
	t.DailyTarget = round2(t.BaseTarget * t.ActivityMultiplier * t.TimeMultiplier * t.EnvironmentalMultiplier)
	t.HourlyTarget = round2(t.DailyTarget / WakingHours)
	return t
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
