package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/divakargaba/Dehydration/internal/domain"
	"github.com/divakargaba/Dehydration/internal/ml"
	"github.com/divakargaba/Dehydration/internal/repository"
	"github.com/divakargaba/Dehydration/internal/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fixedNow 下午三点，避免触发早晨提醒
var fixedNow = time.Date(2024, 6, 15, 15, 0, 0, 0, time.UTC)

type fakeWeather struct {
	mu    sync.Mutex
	w     *domain.Weather
	calls int
}

func (f *fakeWeather) CurrentWeather(_ context.Context, _, _ float64) *domain.Weather {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.w
}

type fakeScheduler struct {
	mu    sync.Mutex
	users []string
}

func (f *fakeScheduler) Schedule(_ context.Context, userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, userID)
	return true
}

type testEnv struct {
	now      time.Time
	repos    *repository.Repositories
	kv       *store.MemoryKV
	models   *ml.ModelStore
	weather  *fakeWeather
	metrics  *MetricsService
	baseline *BaselineService
	pred     *Predictor
	env      *EnvironmentService
	proj     *Projector
	trends   *TrendAnalyzer
	policy   *NotificationPolicy
	achieve  *AchievementService
	ingest   *IngestionService
	retrain  *fakeScheduler
}

// newTestEnv 内存仓库 + 临时模型目录；global 可为 nil
func newTestEnv(t *testing.T, global *ml.GlobalModel) *testEnv {
	t.Helper()
	e := &testEnv{
		now:     fixedNow,
		repos:   repository.NewMemoryRepositories(),
		kv:      store.NewMemoryKV(),
		models:  ml.NewModelStore(t.TempDir()),
		weather: &fakeWeather{},
		retrain: &fakeScheduler{},
	}
	clock := Clock(func() time.Time { return e.now })
	logger := zap.NewNop()

	e.metrics = NewMetricsService(e.repos.Metrics, clock, logger)
	e.baseline = NewBaselineService(e.metrics, logger)
	e.pred = NewPredictor(global, e.models, e.metrics, logger)
	opts := ml.DefaultTrainOptions()
	opts.Forest.NumTrees = 15
	opts.SVM.Epochs = 5
	e.pred.SetTrainOptions(opts)
	e.env = NewEnvironmentService(e.weather, 0, 0, clock, logger)
	e.proj = NewProjector(e.metrics, e.pred, e.env, logger)
	e.trends = NewTrendAnalyzer(store.NewSampleBuffer(e.kv, store.DefaultSampleCapacity), clock, logger)
	e.policy = NewNotificationPolicy(e.repos.Alerts, e.repos.Notifications, e.baseline, clock, logger)
	e.achieve = NewAchievementService(e.repos.Achievements, clock, logger)
	e.ingest = NewIngestionService(IngestionDeps{
		Metrics:      e.metrics,
		Predictor:    e.pred,
		Projector:    e.proj,
		Trends:       e.trends,
		Env:          e.env,
		Policy:       e.policy,
		Achievements: e.achieve,
		Latest:       store.NewLatestMetricsCache(e.kv, 0),
		Retrain:      e.retrain,
		Clock:        clock,
		Logger:       logger,
	})
	return e
}

// insert 直接写入一条历史记录（at 为相对 now 的偏移）
func (e *testEnv) insert(t *testing.T, userID string, at time.Duration, m domain.Metrics, mlPred float64) {
	t.Helper()
	require.NoError(t, e.repos.Metrics.InsertMetric(context.Background(), &domain.MetricRecord{
		UserID:          userID,
		Timestamp:       e.now.Add(at),
		Metrics:         m,
		DehydrationRisk: domain.RiskLabel(mlPred),
		MLPrediction:    mlPred,
	}))
}

// testGlobalModel 简单的单层网络：心率越高、饮水越少，概率越高
func testGlobalModel() *ml.GlobalModel {
	return &ml.GlobalModel{
		ANN: &ml.ANN{
			FeatureNames: []string{"heart_rate", "body_temp", "water_intake"},
			Layers: []ml.DenseLayer{
				{Weights: [][]float64{{1.5, 1.0, -1.0}}, Bias: []float64{0}, Activation: "sigmoid"},
			},
		},
		Scaler: &ml.StandardScaler{Mean: []float64{80, 36.8, 1.0}, Scale: []float64{10, 0.5, 0.5}},
	}
}
