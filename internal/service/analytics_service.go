package service

import (
	"context"
	"math"
	"sort"

	"github.com/divakargaba/Dehydration/internal/domain"
)

const (
	DefaultAnalyticsDays   = 7
	DefaultCorrelationDays = 30
	minCorrelationSamples  = 3
)

// AnalyticsService 历史数据聚合
type AnalyticsService struct {
	metrics *MetricsService
}

func NewAnalyticsService(metrics *MetricsService) *AnalyticsService {
	return &AnalyticsService{metrics: metrics}
}

// Analytics 按天（UTC）聚合最近 days 天
func (s *AnalyticsService) Analytics(ctx context.Context, userID string, days int) (*domain.Analytics, error) {
	if days <= 0 {
		days = DefaultAnalyticsDays
	}
	records, err := s.metrics.Recent(ctx, userID, days)
	if err != nil {
		return nil, err
	}
	return ComputeAnalytics(records, days), nil
}

func ComputeAnalytics(records []*domain.MetricRecord, days int) *domain.Analytics {
	out := &domain.Analytics{
		Days:         days,
		TotalRecords: len(records),
		Daily:        []domain.DailyStat{},
		RiskDistribution: map[string]int{
			domain.RiskDehydrated:   0,
			domain.RiskWellHydrated: 0,
		},
	}

	type acc struct {
		stat             domain.DailyStat
		hr, temp, mlPred float64
	}
	byDay := map[string]*acc{}
	for _, r := range records {
		out.RiskDistribution[r.DehydrationRisk]++

		key := r.Timestamp.UTC().Format("2006-01-02")
		a, ok := byDay[key]
		if !ok {
			a = &acc{stat: domain.DailyStat{Date: key}}
			byDay[key] = a
		}
		a.stat.Count++
		a.hr += r.HeartRate
		a.temp += r.BodyTemp
		a.mlPred += r.MLPrediction
		a.stat.MaxSteps = math.Max(a.stat.MaxSteps, r.Steps)
		a.stat.MaxWaterIntake = math.Max(a.stat.MaxWaterIntake, r.WaterIntake)
		if r.DehydrationRisk == domain.RiskDehydrated {
			a.stat.DehydratedCount++
		}
	}

	for _, a := range byDay {
		n := float64(a.stat.Count)
		a.stat.AvgHeartRate = round2(a.hr / n)
		a.stat.AvgBodyTemp = round2(a.temp / n)
		a.stat.AvgMLPrediction = round2(a.mlPred / n)
		out.Daily = append(out.Daily, a.stat)
	}
	sort.Slice(out.Daily, func(i, j int) bool { return out.Daily[i].Date > out.Daily[j].Date })
	return out
}

// ActivityCorrelation 皮尔逊相关系数
func (s *AnalyticsService) ActivityCorrelation(ctx context.Context, userID string, days int) (*domain.ActivityCorrelation, error) {
	if days <= 0 {
		days = DefaultCorrelationDays
	}
	records, err := s.metrics.Recent(ctx, userID, days)
	if err != nil {
		return nil, err
	}
	return ComputeCorrelation(records, days), nil
}

func ComputeCorrelation(records []*domain.MetricRecord, days int) *domain.ActivityCorrelation {
	out := &domain.ActivityCorrelation{Days: days, SampleCount: len(records)}
	if len(records) < minCorrelationSamples {
		return out
	}
	col := func(f func(*domain.MetricRecord) float64) []float64 {
		v := make([]float64, len(records))
		for i, r := range records {
			v[i] = f(r)
		}
		return v
	}
	steps := col(func(r *domain.MetricRecord) float64 { return r.Steps })
	water := col(waterOf)
	hr := col(hrOf)
	temp := col(tempOf)
	energy := col(func(r *domain.MetricRecord) float64 { return r.ActiveEnergy })
	pred := col(func(r *domain.MetricRecord) float64 { return r.MLPrediction })

	out.StepsWater = pearson(steps, water)
	out.HeartRatePrediction = pearson(hr, pred)
	out.ActiveEnergyWater = pearson(energy, water)
	out.BodyTempPrediction = pearson(temp, pred)
	return out
}

// pearson 方差为 0 时返回 nil
func pearson(x, y []float64) *float64 {
	n := float64(len(x))
	var sx, sy float64
	for i := range x {
		sx += x[i]
		sy += y[i]
	}
	mx, my := sx/n, sy/n
	var cov, vx, vy float64
	for i := range x {
		dx, dy := x[i]-mx, y[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return nil
	}
	r := round2(cov / math.Sqrt(vx*vy))
	return &r
}
