package retrain

import (
	"context"
	"fmt"
	"time"

	rediscommon "github.com/divakargaba/Dehydration/common/redis"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// StreamPublisher 把重训练任务写入 Redis Stream，由 hydration-retrainer 消费
type StreamPublisher struct {
	client *redis.Client
	stream string
	now    func() time.Time
	logger *zap.Logger
}

func NewStreamPublisher(client *redis.Client, stream string, logger *zap.Logger) *StreamPublisher {
	return &StreamPublisher{client: client, stream: stream, now: time.Now, logger: logger}
}

// Schedule 发布任务
func (p *StreamPublisher) Schedule(ctx context.Context, userID string) bool {
	id, err := rediscommon.PublishJSONToStream(ctx, p.client, p.stream, Job{UserID: userID, RequestedAt: p.now()})
	if err != nil {
		p.logger.Error("Failed to publish retrain job",
			zap.String("stream", p.stream),
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return false
	}
	p.logger.Debug("Published retrain job",
		zap.String("stream", p.stream),
		zap.String("stream_id", id),
		zap.String("user_id", userID),
	)
	return true
}

// StreamConfig 消费者配置
type StreamConfig struct {
	Stream        string
	ConsumerGroup string
	ConsumerName  string
	BatchSize     int64
	Block         time.Duration
}

// StreamConsumer Redis Streams 重训练消费者
type StreamConsumer struct {
	cfg    StreamConfig
	client *redis.Client
	exec   *Executor
	logger *zap.Logger
}

// NewStreamConsumer 创建 Streams 消费者
func NewStreamConsumer(cfg StreamConfig, client *redis.Client, exec *Executor, logger *zap.Logger) *StreamConsumer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	return &StreamConsumer{cfg: cfg, client: client, exec: exec, logger: logger}
}

// Start 创建消费者组并循环消费，直到 ctx 取消
func (c *StreamConsumer) Start(ctx context.Context) error {
	if err := rediscommon.CreateConsumerGroup(ctx, c.client, c.cfg.Stream, c.cfg.ConsumerGroup); err != nil {
		return fmt.Errorf("failed to create consumer group for %s: %w", c.cfg.Stream, err)
	}
	c.logger.Info("Retrain stream consumer started",
		zap.String("stream", c.cfg.Stream),
		zap.String("consumer_group", c.cfg.ConsumerGroup),
		zap.String("consumer_name", c.cfg.ConsumerName),
	)

	backoff := time.Second
	const maxBackoff = 30 * time.Second
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if _, err := c.ConsumeOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("Failed to consume retrain stream",
				zap.Error(err),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
				backoff = min(backoff*2, maxBackoff)
			}
			continue
		}
		backoff = time.Second
	}
}

// ConsumeOnce 读取一批消息并逐条训练，返回已确认的消息数
func (c *StreamConsumer) ConsumeOnce(ctx context.Context) (int, error) {
	messages, err := rediscommon.ReadFromStream(ctx, c.client, c.cfg.Stream, c.cfg.ConsumerGroup, c.cfg.ConsumerName, c.cfg.BatchSize, c.cfg.Block)
	if err != nil {
		return 0, fmt.Errorf("failed to read from stream: %w", err)
	}

	acked := 0
	for _, msg := range messages {
		c.process(ctx, msg)
		// 解析失败的消息同样确认，避免反复投递
		if err := rediscommon.AckMessage(ctx, c.client, c.cfg.Stream, c.cfg.ConsumerGroup, msg.ID); err != nil {
			c.logger.Error("Failed to ack retrain message", zap.String("stream_id", msg.ID), zap.Error(err))
			continue
		}
		acked++
	}
	return acked, nil
}

func (c *StreamConsumer) process(ctx context.Context, msg rediscommon.StreamMessage) {
	var job Job
	if err := rediscommon.DecodeJSONMessage(msg, &job); err != nil {
		c.logger.Error("Failed to parse retrain message", zap.String("stream_id", msg.ID), zap.Error(err))
		return
	}
	if job.UserID == "" {
		c.logger.Warn("Retrain message without user_id", zap.String("stream_id", msg.ID))
		return
	}
	c.exec.Run(ctx, job.UserID)
}

// ReportMetrics 定期输出执行统计
func ReportMetrics(ctx context.Context, exec *Executor, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := exec.Metrics().GetSnapshot()
			var avg time.Duration
			if s.JobsRun > 0 {
				avg = s.TotalDuration / time.Duration(s.JobsRun)
			}
			logger.Info("Retrain metrics report",
				zap.Int64("jobs_run", s.JobsRun),
				zap.Int64("personal_failed", s.PersonalFailed),
				zap.Int64("ensemble_failed", s.EnsembleFailed),
				zap.Int64("coalesced", s.Coalesced),
				zap.Duration("avg_duration", avg),
				zap.Duration("uptime", time.Since(s.StartTime)),
			)
		}
	}
}
