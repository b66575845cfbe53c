package service

import (
	"context"
	"testing"
	"time"

	"github.com/divakargaba/Dehydration/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseline_NilWithoutRecords(t *testing.T) {
	e := newTestEnv(t, nil)
	e.insert(t, "u1", -40*24*time.Hour, domain.Metrics{HeartRate: 80}, 0.1)

	assert.Nil(t, e.baseline.Baseline(context.Background(), "u1", 30))
	assert.Nil(t, e.baseline.Baseline(context.Background(), "nobody", 30))
}

func TestBaseline_MeansIncludeZeroDefaults(t *testing.T) {
	e := newTestEnv(t, nil)
	e.insert(t, "u1", -time.Hour, domain.Metrics{HeartRate: 90, BodyTemp: 37, Steps: 4000, WaterIntake: 1}, 0.1)
	e.insert(t, "u1", -2*time.Hour, domain.Metrics{HeartRate: 70}, 0.1)

	b := e.baseline.Baseline(context.Background(), "u1", 0)

	require.NotNil(t, b)
	assert.Equal(t, 2, b.SampleCount)
	assert.Equal(t, DefaultBaselineDays, b.WindowDays)
	assert.Equal(t, 80.0, b.AvgHeartRate)
	assert.Equal(t, 18.5, b.AvgBodyTemp)
	assert.Equal(t, 2000.0, b.AvgSteps)
	assert.Equal(t, 0.5, b.AvgWaterIntake)
}

func TestBaseline_Idempotent(t *testing.T) {
	e := newTestEnv(t, nil)
	for i := 0; i < 10; i++ {
		e.insert(t, "u1", -time.Duration(i)*time.Hour, domain.Metrics{HeartRate: 60 + float64(i)*3, WaterIntake: 0.1 * float64(i)}, 0.1)
	}
	ctx := context.Background()

	first := e.baseline.Baseline(ctx, "u1", 30)
	second := e.baseline.Baseline(ctx, "u1", 30)

	require.NotNil(t, first)
	assert.Equal(t, *first, *second)
}
