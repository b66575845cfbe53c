package service

import (
	"context"
	"testing"
	"time"

	"github.com/divakargaba/Dehydration/internal/domain"
	"github.com/divakargaba/Dehydration/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// desc 按给定顺序（最新在前）构造记录
func desc(ms ...domain.Metrics) []*domain.MetricRecord {
	out := make([]*domain.MetricRecord, len(ms))
	for i, m := range ms {
		out[i] = &domain.MetricRecord{Metrics: m}
	}
	return out
}

func TestProjectFutureRisk_NeedsFiveRecords(t *testing.T) {
	records := desc(domain.Metrics{}, domain.Metrics{}, domain.Metrics{}, domain.Metrics{})
	assert.Nil(t, ProjectFutureRisk(records, domain.Metrics{}, 0.9, nil, 30))
}

func TestProjectFutureRisk_ClampedSum(t *testing.T) {
	recent := domain.Metrics{HeartRate: 98, BodyTemp: 37.6, WaterIntake: 0.4}
	earlier := domain.Metrics{HeartRate: 90, BodyTemp: 37.0, WaterIntake: 1.0}
	records := desc(recent, recent, recent, earlier, earlier, earlier)

	fr := ProjectFutureRisk(records, domain.Metrics{}, 0.75, &domain.Weather{Temperature: 32}, 30)

	require.NotNil(t, fr)
	assert.InDelta(t, 8.0, fr.Trends.HeartRate, 1e-9)
	assert.InDelta(t, 0.6, fr.Trends.BodyTemp, 1e-9)
	assert.InDelta(t, -0.6, fr.Trends.WaterIntake, 1e-9)
	assert.Equal(t, 1.0, fr.FutureRisk)
	assert.Equal(t, domain.UrgencyEmergency, fr.Urgency)
	assert.Equal(t, "10-15 minutes", fr.TimeToEvent)
	assert.Len(t, fr.Factors, 4)
}

func TestProjectFutureRisk_FiveRecordsUsesLastTwo(t *testing.T) {
	// 最近 3 条 HR=80；较早窗口取最后 2 条 HR=70
	records := desc(
		domain.Metrics{HeartRate: 80},
		domain.Metrics{HeartRate: 80},
		domain.Metrics{HeartRate: 80},
		domain.Metrics{HeartRate: 70},
		domain.Metrics{HeartRate: 70},
	)

	fr := ProjectFutureRisk(records, domain.Metrics{Steps: 6000}, 0.3, nil, 0)

	require.NotNil(t, fr)
	assert.InDelta(t, 10.0, fr.Trends.HeartRate, 1e-9)
	// 0.3 + 0.10 (HR) + 0.05 (steps > 5000)
	assert.InDelta(t, 0.45, fr.FutureRisk, 1e-9)
	assert.Equal(t, domain.UrgencyMedium, fr.Urgency)
	assert.Equal(t, DefaultHorizonMinutes, fr.HorizonMinutes)
}

func TestProjectFutureRisk_OnlyFirstSixCount(t *testing.T) {
	flat := domain.Metrics{HeartRate: 70}
	records := desc(flat, flat, flat, flat, flat, flat, domain.Metrics{HeartRate: 10})

	fr := ProjectFutureRisk(records, domain.Metrics{}, 0.2, &domain.Weather{Temperature: 26}, 90)

	require.NotNil(t, fr)
	assert.Equal(t, 0.0, fr.Trends.HeartRate)
	assert.InDelta(t, 0.25, fr.FutureRisk, 1e-9)
	assert.Equal(t, domain.UrgencyLow, fr.Urgency)
	assert.Equal(t, "No immediate risk", fr.TimeToEvent)
	assert.Equal(t, 60, fr.HorizonMinutes)
}

func TestUrgencyBoundaries(t *testing.T) {
	cases := []struct {
		risk    float64
		urgency string
	}{
		{0.81, domain.UrgencyEmergency},
		{0.8, domain.UrgencyHigh},
		{0.61, domain.UrgencyHigh},
		{0.6, domain.UrgencyMedium},
		{0.41, domain.UrgencyMedium},
		{0.4, domain.UrgencyLow},
	}
	for _, c := range cases {
		u, _ := urgencyFor(c.risk)
		assert.Equal(t, c.urgency, u, "risk=%v", c.risk)
	}
}

func TestProjector_UsesOnlyLastDay(t *testing.T) {
	e := newTestEnv(t, nil)
	for i := 0; i < 4; i++ {
		e.insert(t, "u1", -time.Duration(i)*time.Minute, domain.Metrics{HeartRate: 80}, 0.2)
	}
	for i := 0; i < 10; i++ {
		e.insert(t, "u1", -48*time.Hour, domain.Metrics{HeartRate: 80}, 0.2)
	}
	assert.Nil(t, e.proj.Project(context.Background(), "u1", domain.Metrics{}, 30))

	e.insert(t, "u1", -5*time.Minute, domain.Metrics{HeartRate: 80}, 0.2)
	fr := e.proj.Project(context.Background(), "u1", domain.Metrics{}, 30)
	require.NotNil(t, fr)
	// 没有全局模型：从 0.5 开始
	assert.Equal(t, 0.5, fr.CurrentRisk)
}

func TestAnalyzeSamples_Rules(t *testing.T) {
	s := func(hr, temp, water, p float64) store.Sample {
		return store.Sample{Metrics: domain.Metrics{HeartRate: hr, BodyTemp: temp, WaterIntake: water}, Probability: p}
	}

	assert.Equal(t, domain.TrendLow, AnalyzeSamples(nil).Risk)
	assert.Equal(t, domain.TrendHigh, AnalyzeSamples([]store.Sample{s(70, 36.5, 2, 0.1), s(85, 37.1, 0.5, 0.1)}).Risk)
	assert.Equal(t, domain.TrendModerate, AnalyzeSamples([]store.Sample{s(70, 36.5, 2, 0.1), s(85, 36.5, 2, 0.1)}).Risk)
	assert.Equal(t, domain.TrendModerate, AnalyzeSamples([]store.Sample{s(70, 36.5, 2, 0.1), s(70, 37.2, 2, 0.1)}).Risk)
	assert.Equal(t, domain.TrendModerate, AnalyzeSamples([]store.Sample{s(70, 36.5, 2, 0.1), s(70, 36.5, 0.2, 0.45)}).Risk)
	assert.Equal(t, domain.TrendLow, AnalyzeSamples([]store.Sample{s(70, 36.5, 2, 0.1), s(70, 36.5, 0.2, 0.5)}).Risk)
}

// 两条趋势路径是独立的，可以得出相反的结论
func TestTrendPathsDiverge(t *testing.T) {
	ctx := context.Background()

	t.Run("buffer high, projection low", func(t *testing.T) {
		e := newTestEnv(t, nil)
		for i := 0; i < 12; i++ {
			m := domain.Metrics{HeartRate: 70 + 1.5*float64(i), BodyTemp: 36.5 + 0.07*float64(i), WaterIntake: 0.5}
			e.insert(t, "u1", -time.Duration(12-i)*time.Minute, m, 0.1)
			e.trends.Observe(ctx, "u1", m, 0.1)
		}

		buf := e.trends.Analyze(ctx, "u1")
		fr := e.proj.ProjectWith(ctx, "u1", domain.Metrics{}, 0.1, nil, 30)

		assert.Equal(t, domain.TrendHigh, buf.Risk)
		require.NotNil(t, fr)
		assert.Equal(t, domain.UrgencyLow, fr.Urgency)
	})

	t.Run("buffer low, projection emergency", func(t *testing.T) {
		e := newTestEnv(t, nil)
		recent := domain.Metrics{HeartRate: 98, BodyTemp: 37.6, WaterIntake: 0.4}
		earlier := domain.Metrics{HeartRate: 90, BodyTemp: 37.0, WaterIntake: 1.0}
		for i := 0; i < 6; i++ {
			m := earlier
			if i >= 3 {
				m = recent
			}
			e.insert(t, "u1", -time.Duration(6-i)*time.Minute, m, 0.7)
		}
		// 缓冲区只看到平稳的数据
		for i := 0; i < 5; i++ {
			e.trends.Observe(ctx, "u1", domain.Metrics{HeartRate: 72, BodyTemp: 36.6, WaterIntake: 1.5}, 0.2)
		}

		buf := e.trends.Analyze(ctx, "u1")
		fr := e.proj.ProjectWith(ctx, "u1", domain.Metrics{}, 0.7, &domain.Weather{Temperature: 31}, 30)

		assert.Equal(t, domain.TrendLow, buf.Risk)
		require.NotNil(t, fr)
		assert.Equal(t, domain.UrgencyEmergency, fr.Urgency)
	})
}
