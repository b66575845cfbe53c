package service

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/divakargaba/Dehydration/internal/domain"
	"github.com/divakargaba/Dehydration/internal/ml"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedHistory n 条历史记录，心率 > 90 的记录当时被判为脱水
func seedHistory(t *testing.T, e *testEnv, userID string, n int) {
	t.Helper()
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < n; i++ {
		hr := 65 + rng.Float64()*50
		m := domain.Metrics{
			HeartRate:    hr,
			BodyTemp:     36.5 + rng.Float64(),
			Steps:        rng.Float64() * 12000,
			WaterIntake:  rng.Float64() * 2,
			ActiveEnergy: rng.Float64() * 400,
			AccZ:         9.8,
		}
		pred := 0.2
		if hr > 90 {
			pred = 0.8
		}
		e.insert(t, userID, -time.Duration(i)*time.Hour, m, pred)
	}
}

func TestPredict_FallbackWithoutGlobalModel(t *testing.T) {
	e := newTestEnv(t, nil)

	p := e.pred.Predict("u1", domain.Metrics{HeartRate: 90})

	assert.Equal(t, domain.SourceFallback, p.Source)
	assert.Equal(t, domain.ConfidenceLow, p.Confidence)
	assert.Equal(t, 0.5, p.Probability)
}

func TestPredict_GlobalModel(t *testing.T) {
	e := newTestEnv(t, testGlobalModel())

	low := e.pred.Predict("u1", domain.Metrics{HeartRate: 70, BodyTemp: 36.6, WaterIntake: 1.5})
	high := e.pred.Predict("u1", domain.Metrics{HeartRate: 115, BodyTemp: 37.8, WaterIntake: 0.1})

	assert.Equal(t, domain.SourceGlobal, low.Source)
	assert.Equal(t, domain.ConfidenceMedium, low.Confidence)
	assert.Less(t, low.Probability, 0.5)
	assert.Greater(t, high.Probability, 0.5)
	assert.Equal(t, domain.RiskDehydrated, high.RiskLabel)
}

func TestPredict_GlobalTransformFailureFallsBack(t *testing.T) {
	g := testGlobalModel()
	g.ANN.FeatureNames = []string{"heart_rate", "eda", "water_intake"}
	e := newTestEnv(t, g)

	p := e.pred.Predict("u1", domain.Metrics{HeartRate: 90})

	assert.Equal(t, domain.SourceFallback, p.Source)
	assert.Equal(t, 0.5, p.Probability)
}

func TestPredict_AlwaysInUnitInterval(t *testing.T) {
	e := newTestEnv(t, testGlobalModel())
	inputs := []domain.Metrics{
		{},
		{HeartRate: 1e9, BodyTemp: -1e9, WaterIntake: 1e9},
		{HeartRate: math.Inf(1)},
		{BodyTemp: math.NaN()},
		{Steps: -5, AccX: math.MaxFloat64},
	}
	for _, m := range inputs {
		p := e.pred.Predict("u1", m)
		assert.GreaterOrEqual(t, p.Probability, 0.0)
		assert.LessOrEqual(t, p.Probability, 1.0)
		assert.NotEmpty(t, p.Source)
	}
}

func TestTrainPersonal_NotEnoughRecords(t *testing.T) {
	e := newTestEnv(t, testGlobalModel())
	seedHistory(t, e, "u1", 49)
	ctx := context.Background()

	assert.False(t, e.pred.TrainPersonal(ctx, "u1", DefaultMinTrainingRecords))
	assert.False(t, e.pred.TrainEnsemble(ctx, "u1", DefaultMinTrainingRecords))
	assert.False(t, e.models.Exists("u1", ml.KindPersonal))
	assert.False(t, e.models.Exists("u1", ml.KindEnsemble))

	p := e.pred.Predict("u1", domain.Metrics{HeartRate: 80})
	assert.Equal(t, domain.SourceGlobal, p.Source)
}

func TestTrainPersonal_ThenEnsembleTakesPriority(t *testing.T) {
	e := newTestEnv(t, testGlobalModel())
	seedHistory(t, e, "u1", 120)
	ctx := context.Background()

	require.True(t, e.pred.TrainPersonal(ctx, "u1", 0))
	assert.True(t, e.pred.HasPersonalModel("u1"))

	p := e.pred.Predict("u1", domain.Metrics{HeartRate: 110, BodyTemp: 37, Steps: 3000, WaterIntake: 1, AccZ: 9.8})
	assert.Equal(t, domain.SourcePersonal, p.Source)
	assert.Equal(t, domain.ConfidenceHigh, p.Confidence)
	assert.Greater(t, p.Probability, 0.5)

	require.True(t, e.pred.TrainEnsemble(ctx, "u1", 0))
	p = e.pred.Predict("u1", domain.Metrics{HeartRate: 70, BodyTemp: 37, Steps: 3000, WaterIntake: 1, AccZ: 9.8})
	assert.Equal(t, domain.SourceEnsemble, p.Source)
	assert.Less(t, p.Probability, 0.5)

	// 其他用户不受影响
	assert.Equal(t, domain.SourceGlobal, e.pred.Predict("u2", domain.Metrics{}).Source)
}

func TestTrainPersonal_SimilarUserIDsKeepSeparateModels(t *testing.T) {
	e := newTestEnv(t, testGlobalModel())
	seedHistory(t, e, "alice@example.com", 120)
	ctx := context.Background()

	require.True(t, e.pred.TrainPersonal(ctx, "alice@example.com", 0))
	require.True(t, e.pred.TrainEnsemble(ctx, "alice@example.com", 0))

	for _, other := range []string{"alice_example.com", "alice.example.com", "alice-example.com"} {
		assert.False(t, e.pred.HasPersonalModel(other), other)
		assert.False(t, e.pred.HasEnsembleModel(other), other)
		assert.Equal(t, domain.SourceGlobal, e.pred.Predict(other, domain.Metrics{HeartRate: 80}).Source, other)
	}
	assert.Equal(t, domain.SourceEnsemble, e.pred.Predict("alice@example.com", domain.Metrics{HeartRate: 80}).Source)
}

func TestTrainEnsemble_SingleClassHistoryFails(t *testing.T) {
	e := newTestEnv(t, nil)
	for i := 0; i < 60; i++ {
		e.insert(t, "u1", -time.Duration(i)*time.Minute, domain.Metrics{HeartRate: float64(60 + i)}, 0.1)
	}

	assert.False(t, e.pred.TrainEnsemble(context.Background(), "u1", 50))
	assert.False(t, e.models.Exists("u1", ml.KindEnsemble))
	// 随机森林可以在单一类别上训练
	assert.True(t, e.pred.TrainPersonal(context.Background(), "u1", 50))
}

func TestTrainPersonal_IgnoresRecordsOutsideWindow(t *testing.T) {
	e := newTestEnv(t, nil)
	for i := 0; i < 60; i++ {
		e.insert(t, "u1", -31*24*time.Hour-time.Duration(i)*time.Minute, domain.Metrics{HeartRate: 80}, 0.9)
	}
	assert.False(t, e.pred.TrainPersonal(context.Background(), "u1", 50))
}
