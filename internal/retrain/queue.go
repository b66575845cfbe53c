package retrain

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Queue 进程内重训练队列
// 尚未开始的任务按用户去重；同一用户正在训练时新任务会与之合并
type Queue struct {
	exec    *Executor
	workers int
	logger  *zap.Logger

	mu      sync.Mutex
	jobs    chan string
	pending map[string]struct{}
	closed  bool
	wg      sync.WaitGroup
}

// NewQueue 创建队列；workers/size 非正时取 1/16
func NewQueue(exec *Executor, workers, size int, logger *zap.Logger) *Queue {
	if workers <= 0 {
		workers = 1
	}
	if size <= 0 {
		size = 16
	}
	return &Queue{
		exec:    exec,
		workers: workers,
		logger:  logger,
		jobs:    make(chan string, size),
		pending: make(map[string]struct{}),
	}
}

// Start 启动 worker；ctx 取消后 worker 在当前任务结束时退出
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work(ctx)
	}
	q.logger.Info("Retrain queue started", zap.Int("workers", q.workers))
}

// Schedule 提交任务；队列已满或已关闭时返回 false
func (q *Queue) Schedule(_ context.Context, userID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	if _, ok := q.pending[userID]; ok {
		return true
	}
	select {
	case q.jobs <- userID:
		q.pending[userID] = struct{}{}
		return true
	default:
		q.logger.Warn("Retrain queue full, dropping job", zap.String("user_id", userID))
		return false
	}
}

// Pending 排队中（未开始）的任务数
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Stop 关闭队列并等待 worker 处理完剩余任务
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Info("Retrain queue stopped")
}

func (q *Queue) work(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case userID, ok := <-q.jobs:
			if !ok {
				return
			}
			q.mu.Lock()
			delete(q.pending, userID)
			q.mu.Unlock()
			q.exec.Run(ctx, userID)
		}
	}
}
