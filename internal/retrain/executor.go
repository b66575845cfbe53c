package retrain

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Trainer 个人模型训练器（service.Predictor 实现）
type Trainer interface {
	TrainPersonal(ctx context.Context, userID string, minRecords int) bool
	TrainEnsemble(ctx context.Context, userID string, minRecords int) bool
}

// Job 重训练任务
type Job struct {
	UserID      string    `json:"user_id"`
	RequestedAt time.Time `json:"requested_at"`
}

// Outcome 一次重训练的结果
type Outcome struct {
	Personal bool
	Ensemble bool
}

// Executor 执行重训练；同一用户并发触发时合并为一次训练
type Executor struct {
	trainer    Trainer
	minRecords int
	group      singleflight.Group
	logger     *zap.Logger
	metrics    *Metrics
}

// NewExecutor 创建执行器
func NewExecutor(trainer Trainer, minRecords int, logger *zap.Logger) *Executor {
	return &Executor{
		trainer:    trainer,
		minRecords: minRecords,
		logger:     logger,
		metrics:    &Metrics{StartTime: time.Now()},
	}
}

// Metrics 返回执行统计
func (e *Executor) Metrics() *Metrics {
	return e.metrics
}

// Run 训练个人模型与集成模型
func (e *Executor) Run(ctx context.Context, userID string) Outcome {
	v, _, shared := e.group.Do(userID, func() (interface{}, error) {
		start := time.Now()
		out := Outcome{
			Personal: e.trainer.TrainPersonal(ctx, userID, e.minRecords),
			Ensemble: e.trainer.TrainEnsemble(ctx, userID, e.minRecords),
		}
		e.metrics.record(out, time.Since(start))
		e.logger.Info("Retrain finished",
			zap.String("user_id", userID),
			zap.Bool("personal", out.Personal),
			zap.Bool("ensemble", out.Ensemble),
			zap.Duration("duration", time.Since(start)),
		)
		return out, nil
	})
	if shared {
		e.metrics.coalesced()
	}
	return v.(Outcome)
}

// Metrics 重训练统计
type Metrics struct {
	mu sync.RWMutex

	JobsRun        int64
	PersonalFailed int64
	EnsembleFailed int64
	Coalesced      int64
	TotalDuration  time.Duration
	LastRun        time.Time
	StartTime      time.Time
}

// GetSnapshot 获取指标快照（线程安全）
func (m *Metrics) GetSnapshot() Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Metrics{
		JobsRun:        m.JobsRun,
		PersonalFailed: m.PersonalFailed,
		EnsembleFailed: m.EnsembleFailed,
		Coalesced:      m.Coalesced,
		TotalDuration:  m.TotalDuration,
		LastRun:        m.LastRun,
		StartTime:      m.StartTime,
	}
}

func (m *Metrics) record(out Outcome, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.JobsRun++
	if !out.Personal {
		m.PersonalFailed++
	}
	if !out.Ensemble {
		m.EnsembleFailed++
	}
	m.TotalDuration += d
	m.LastRun = time.Now()
}

func (m *Metrics) coalesced() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Coalesced++
}
