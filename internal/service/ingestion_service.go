package service

import (
	"context"

	"github.com/divakargaba/Dehydration/internal/domain"
	"github.com/divakargaba/Dehydration/internal/store"

	"go.uber.org/zap"
)

// retrainEvery 30 天记录数为其正整数倍时触发重训练
const retrainEvery = 100

// RetrainScheduler 重训练任务调度（同一用户的重复请求会被合并）
type RetrainScheduler interface {
	Schedule(ctx context.Context, userID string) bool
}

// IngestResult 一次上报的完整响应
type IngestResult struct {
	UserID                string                       `json:"user_id"`
	Recorded              bool                         `json:"recorded"`
	Prediction            domain.Prediction            `json:"prediction"`
	FuturePrediction      *domain.FutureRisk           `json:"future_prediction"`
	EnvironmentalAnalysis domain.EnvironmentalAnalysis `json:"environmental_analysis"`
	HydrationTarget       domain.HydrationTarget       `json:"hydration_target"`
	Recommendations       []string                     `json:"recommendations"`
	Weather               *domain.Weather              `json:"weather"`
	NotificationsCreated  int                          `json:"notifications_created"`
	Notifications         []*domain.Notification       `json:"notifications"`
	AlertCreated          bool                         `json:"alert_created"`
	Achievements          []*domain.Achievement        `json:"achievements"`
	RetrainScheduled      bool                         `json:"retrain_scheduled"`
}

// IngestionService 上报处理主流程（HTTP 与 MQTT 共用）
type IngestionService struct {
	metrics      *MetricsService
	predictor    *Predictor
	projector    *Projector
	trends       *TrendAnalyzer
	env          *EnvironmentService
	policy       *NotificationPolicy
	achievements *AchievementService
	latest       *store.LatestMetricsCache
	retrain      RetrainScheduler // 可为 nil
	clock        Clock
	logger       *zap.Logger
}

// IngestionDeps 构造依赖
type IngestionDeps struct {
	Metrics      *MetricsService
	Predictor    *Predictor
	Projector    *Projector
	Trends       *TrendAnalyzer
	Env          *EnvironmentService
	Policy       *NotificationPolicy
	Achievements *AchievementService
	Latest       *store.LatestMetricsCache
	Retrain      RetrainScheduler
	Clock        Clock
	Logger       *zap.Logger
}

func NewIngestionService(d IngestionDeps) *IngestionService {
	return &IngestionService{
		metrics:      d.Metrics,
		predictor:    d.Predictor,
		projector:    d.Projector,
		trends:       d.Trends,
		env:          d.Env,
		policy:       d.Policy,
		achievements: d.Achievements,
		latest:       d.Latest,
		retrain:      d.Retrain,
		clock:        d.Clock,
		logger:       d.Logger,
	}
}

// SetRetrainScheduler main 中在创建 worker 之后注入
func (s *IngestionService) SetRetrainScheduler(r RetrainScheduler) {
	s.retrain = r
}

// Ingest 处理一次指标上报；任何子步骤失败都不会中断流程
func (s *IngestionService) Ingest(ctx context.Context, userID string, m domain.Metrics) *IngestResult {
	pred := s.predictor.Predict(userID, m)
	res := &IngestResult{
		UserID:     userID,
		Prediction: pred,
		Recorded:   s.metrics.Record(ctx, userID, m, pred),
	}

	weather := s.env.Weather(ctx)
	res.Weather = weather

	if s.latest != nil {
		err := s.latest.Put(ctx, store.LatestSnapshot{
			UserID:     userID,
			Metrics:    m,
			Prediction: pred.Probability,
			RiskLabel:  pred.RiskLabel,
			Source:     pred.Source,
			UpdatedAt:  s.clock.now(),
			Weather:    weather,
		})
		if err != nil {
			s.logger.Warn("Failed to update latest metrics cache", zap.String("user_id", userID), zap.Error(err))
		}
	}

	// 缓冲区启发式使用共享模型的概率
	s.trends.Observe(ctx, userID, m, s.predictor.PredictGlobal(m).Probability)

	res.EnvironmentalAnalysis = s.env.Analyze(weather)
	res.HydrationTarget = s.env.HydrationTarget(m, weather)
	res.FuturePrediction = s.projector.ProjectWith(ctx, userID, m, pred.Probability, weather, DefaultHorizonMinutes)

	policy := s.policy.Evaluate(ctx, PolicyInput{
		UserID:      userID,
		Metrics:     m,
		Probability: pred.Probability,
		Weather:     weather,
		Future:      res.FuturePrediction,
	})
	res.AlertCreated = policy.Alert != nil
	res.Notifications = policy.Notifications
	res.NotificationsCreated = len(policy.Notifications)

	count := 0
	if res.Recorded {
		n, err := s.metrics.Count(ctx, userID, TrainingWindowDays)
		if err != nil {
			s.logger.Warn("Failed to count records", zap.String("user_id", userID), zap.Error(err))
		} else {
			count = n
		}
	}
	if count > 0 && count%retrainEvery == 0 && s.retrain != nil {
		res.RetrainScheduled = s.retrain.Schedule(ctx, userID)
		s.logger.Info("Retrain triggered",
			zap.String("user_id", userID),
			zap.Int("record_count", count),
			zap.Bool("scheduled", res.RetrainScheduled),
		)
	}

	res.Achievements = s.achievements.Evaluate(ctx, userID, m, res.HydrationTarget, count)
	res.Recommendations = Recommendations(pred, res.FuturePrediction, res.EnvironmentalAnalysis, res.HydrationTarget, m)
	return res
}
