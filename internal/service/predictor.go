package service

import (
	"context"
	"math"

	"github.com/divakargaba/Dehydration/internal/domain"
	"github.com/divakargaba/Dehydration/internal/ml"

	"go.uber.org/zap"
)

// 训练参数默认值
const (
	DefaultMinTrainingRecords = 50
	TrainingWindowDays        = 30
)

// Predictor 风险预测：ensemble → personal → global → fallback
// Predict 不返回错误，任何失败都降级到下一级
type Predictor struct {
	global  *ml.GlobalModel // 可为 nil
	models  *ml.ModelStore
	metrics *MetricsService
	opts    ml.TrainOptions
	logger  *zap.Logger
}

func NewPredictor(global *ml.GlobalModel, models *ml.ModelStore, metrics *MetricsService, logger *zap.Logger) *Predictor {
	return &Predictor{
		global:  global,
		models:  models,
		metrics: metrics,
		opts:    ml.DefaultTrainOptions(),
		logger:  logger,
	}
}

// SetTrainOptions 覆盖训练参数（测试中用较小的森林）
func (p *Predictor) SetTrainOptions(o ml.TrainOptions) {
	p.opts = o
}

// Predict 个性化预测
func (p *Predictor) Predict(userID string, m domain.Metrics) domain.Prediction {
	features := m.Features()

	if ens, err := p.models.LoadEnsemble(userID); err != nil {
		p.logger.Warn("Failed to load ensemble model", zap.String("user_id", userID), zap.Error(err))
	} else if ens != nil {
		prob, err := ens.PredictProba(features)
		if err == nil {
			return newPrediction(prob, domain.SourceEnsemble, domain.ConfidenceHigh)
		}
		p.logger.Warn("Ensemble prediction failed", zap.String("user_id", userID), zap.Error(err))
	}

	if pm, err := p.models.LoadPersonal(userID); err != nil {
		p.logger.Warn("Failed to load personal model", zap.String("user_id", userID), zap.Error(err))
	} else if pm != nil {
		prob, err := pm.PredictProba(features)
		if err == nil {
			return newPrediction(prob, domain.SourcePersonal, domain.ConfidenceHigh)
		}
		p.logger.Warn("Personal prediction failed", zap.String("user_id", userID), zap.Error(err))
	}

	return p.PredictGlobal(m)
}

// PredictGlobal 仅使用共享预训练模型
func (p *Predictor) PredictGlobal(m domain.Metrics) domain.Prediction {
	if p.global == nil {
		return fallbackPrediction()
	}
	prob, err := p.global.Predict(m)
	if err != nil || math.IsNaN(prob) {
		p.logger.Debug("Global prediction failed, using fallback", zap.Error(err))
		return fallbackPrediction()
	}
	return newPrediction(prob, domain.SourceGlobal, domain.ConfidenceMedium)
}

// HasGlobalModel 是否加载了共享模型
func (p *Predictor) HasGlobalModel() bool {
	return p.global != nil
}

// HasPersonalModel / HasEnsembleModel 模型文件是否存在
func (p *Predictor) HasPersonalModel(userID string) bool {
	return p.models.Exists(userID, ml.KindPersonal)
}

func (p *Predictor) HasEnsembleModel(userID string) bool {
	return p.models.Exists(userID, ml.KindEnsemble)
}

func newPrediction(prob float64, source, confidence string) domain.Prediction {
	prob = math.Max(0, math.Min(1, prob))
	return domain.Prediction{
		Probability: prob,
		RiskLabel:   domain.RiskLabel(prob),
		Source:      source,
		Confidence:  confidence,
	}
}

func fallbackPrediction() domain.Prediction {
	return domain.Prediction{
		Probability: domain.FallbackProbability,
		RiskLabel:   domain.RiskLabel(domain.FallbackProbability),
		Source:      domain.SourceFallback,
		Confidence:  domain.ConfidenceLow,
	}
}

// ============================================
// 训练
// ============================================

// TrainPersonal 训练单用户随机森林；数据不足或失败返回 false
func (p *Predictor) TrainPersonal(ctx context.Context, userID string, minRecords int) bool {
	X, y, ok := p.trainingData(ctx, userID, minRecords, ml.KindPersonal)
	if !ok {
		return false
	}
	model, err := ml.TrainPersonal(X, y, p.opts)
	if err != nil {
		p.logger.Warn("Personal model training failed", zap.String("user_id", userID), zap.Error(err))
		return false
	}
	if err := p.models.Save(userID, ml.KindPersonal, model); err != nil {
		p.logger.Error("Failed to save personal model", zap.String("user_id", userID), zap.Error(err))
		return false
	}
	p.logger.Info("Personal model trained",
		zap.String("user_id", userID),
		zap.Int("train_size", model.Evaluation.TrainSize),
		zap.Float64("val_accuracy", model.Evaluation.Accuracy),
	)
	return true
}

// TrainEnsemble 训练随机森林 + SVM 软投票模型
func (p *Predictor) TrainEnsemble(ctx context.Context, userID string, minRecords int) bool {
	X, y, ok := p.trainingData(ctx, userID, minRecords, ml.KindEnsemble)
	if !ok {
		return false
	}
	model, err := ml.TrainEnsemble(X, y, p.opts)
	if err != nil {
		p.logger.Warn("Ensemble model training failed", zap.String("user_id", userID), zap.Error(err))
		return false
	}
	if err := p.models.Save(userID, ml.KindEnsemble, model); err != nil {
		p.logger.Error("Failed to save ensemble model", zap.String("user_id", userID), zap.Error(err))
		return false
	}
	p.logger.Info("Ensemble model trained",
		zap.String("user_id", userID),
		zap.Int("train_size", model.Evaluation.TrainSize),
		zap.Float64("val_accuracy", model.Evaluation.Accuracy),
	)
	return true
}

// trainingData 最近 30 天记录；标签取该记录当时的 ml_prediction > 0.5
func (p *Predictor) trainingData(ctx context.Context, userID string, minRecords int, kind string) ([][]float64, []int, bool) {
	if minRecords <= 0 {
		minRecords = DefaultMinTrainingRecords
	}
	records, err := p.metrics.Recent(ctx, userID, TrainingWindowDays)
	if err != nil {
		p.logger.Warn("Failed to load training data",
			zap.String("user_id", userID),
			zap.String("kind", kind),
			zap.Error(err),
		)
		return nil, nil, false
	}
	if len(records) < minRecords {
		p.logger.Info("Not enough records to train",
			zap.String("user_id", userID),
			zap.String("kind", kind),
			zap.Int("records", len(records)),
			zap.Int("min_records", minRecords),
		)
		return nil, nil, false
	}

	X := make([][]float64, 0, len(records))
	y := make([]int, 0, len(records))
	for _, r := range records {
		if !r.Metrics.Valid() {
			continue
		}
		X = append(X, r.Metrics.Features())
		label := 0
		if r.MLPrediction > 0.5 {
			label = 1
		}
		y = append(y, label)
	}
	if len(X) < minRecords {
		return nil, nil, false
	}
	return X, y, true
}
