package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mqttcommon "github.com/divakargaba/Dehydration/common/mqtt"
	"github.com/divakargaba/Dehydration/internal/domain"
	"github.com/divakargaba/Dehydration/internal/service"

	"go.uber.org/zap"
)

// DefaultTopic 可穿戴网关上报主题，格式: hydration/{user_id}/metrics
const DefaultTopic = "hydration/+/metrics"

// Subscriber MQTT 订阅与发布能力（common/mqtt.Client 实现）
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqttcommon.MessageHandler) error
	Unsubscribe(topics ...string) error
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// Feedback 回传给网关的预测摘要，主题 hydration/{user_id}/feedback
type Feedback struct {
	UserID               string   `json:"user_id"`
	Probability          float64  `json:"probability"`
	RiskLabel            string   `json:"risk_label"`
	Source               string   `json:"source"`
	Urgency              string   `json:"urgency,omitempty"`
	AlertCreated         bool     `json:"alert_created"`
	NotificationsCreated int      `json:"notifications_created"`
	Recommendations      []string `json:"recommendations,omitempty"`
}

// Ingestor 指标处理入口（service.IngestionService 实现）
type Ingestor interface {
	Ingest(ctx context.Context, userID string, m domain.Metrics) *service.IngestResult
}

// WearableConsumer 订阅可穿戴设备指标并送入摄取流程
type WearableConsumer struct {
	client   Subscriber
	ingestor Ingestor
	topic    string
	qos      byte
	logger   *zap.Logger
}

// NewWearableConsumer 创建消费者；topic 为空时使用 DefaultTopic
func NewWearableConsumer(client Subscriber, ingestor Ingestor, topic string, qos byte, logger *zap.Logger) *WearableConsumer {
	if topic == "" {
		topic = DefaultTopic
	}
	return &WearableConsumer{
		client:   client,
		ingestor: ingestor,
		topic:    topic,
		qos:      qos,
		logger:   logger,
	}
}

// Start 订阅主题并阻塞到 ctx 取消
func (c *WearableConsumer) Start(ctx context.Context) error {
	if err := c.client.Subscribe(c.topic, c.qos, c.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to metrics topic: %w", err)
	}
	c.logger.Info("Wearable MQTT consumer started", zap.String("topic", c.topic))

	<-ctx.Done()
	return nil
}

// Stop 取消订阅
func (c *WearableConsumer) Stop() {
	if err := c.client.Unsubscribe(c.topic); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
	}
	c.logger.Info("Wearable MQTT consumer stopped")
}

func (c *WearableConsumer) handleMessage(topic string, payload []byte) error {
	userID, err := UserIDFromTopic(topic)
	if err != nil {
		return err
	}

	// 字段级错误按 0 处理，只有整体不是 JSON 对象时才丢弃
	raw := map[string]any{}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return fmt.Errorf("failed to unmarshal metrics from %s: %w", topic, err)
	}
	m := domain.MetricsFromMap(raw)

	res := c.ingestor.Ingest(context.Background(), userID, m)
	c.logger.Debug("Ingested wearable metrics",
		zap.String("user_id", userID),
		zap.Float64("probability", res.Prediction.Probability),
		zap.Bool("recorded", res.Recorded),
		zap.Int("notifications_created", res.NotificationsCreated),
	)

	fb := Feedback{
		UserID:               userID,
		Probability:          res.Prediction.Probability,
		RiskLabel:            res.Prediction.RiskLabel,
		Source:               res.Prediction.Source,
		AlertCreated:         res.AlertCreated,
		NotificationsCreated: res.NotificationsCreated,
		Recommendations:      res.Recommendations,
	}
	if res.FuturePrediction != nil {
		fb.Urgency = res.FuturePrediction.Urgency
	}
	b, err := json.Marshal(fb)
	if err != nil {
		return fmt.Errorf("failed to marshal feedback: %w", err)
	}
	// 回传失败不影响已完成的摄取
	if err := c.client.Publish(FeedbackTopic(userID), c.qos, false, b); err != nil {
		c.logger.Warn("Failed to publish feedback", zap.String("user_id", userID), zap.Error(err))
	}
	return nil
}

// FeedbackTopic 预测回传主题
func FeedbackTopic(userID string) string {
	return "hydration/" + userID + "/feedback"
}

// UserIDFromTopic 从 hydration/{user_id}/metrics 中取出 user_id
func UserIDFromTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "hydration" || parts[2] != "metrics" || parts[1] == "" {
		return "", fmt.Errorf("invalid topic format: %s", topic)
	}
	return parts[1], nil
}
