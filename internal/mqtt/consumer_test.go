package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	mqttcommon "github.com/divakargaba/Dehydration/common/mqtt"
	"github.com/divakargaba/Dehydration/internal/domain"
	"github.com/divakargaba/Dehydration/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type published struct {
	topic   string
	payload []byte
}

type fakeSubscriber struct {
	topic        string
	handler      mqttcommon.MessageHandler
	unsubscribed []string
	published    []published
	err          error
	publishErr   error
}

func (f *fakeSubscriber) Publish(topic string, _ byte, _ bool, payload []byte) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, published{topic: topic, payload: payload})
	return nil
}

func (f *fakeSubscriber) Subscribe(topic string, _ byte, handler mqttcommon.MessageHandler) error {
	if f.err != nil {
		return f.err
	}
	f.topic = topic
	f.handler = handler
	return nil
}

func (f *fakeSubscriber) Unsubscribe(topics ...string) error {
	f.unsubscribed = append(f.unsubscribed, topics...)
	return nil
}

type ingestCall struct {
	userID string
	m      domain.Metrics
}

type fakeIngestor struct {
	calls []ingestCall
}

func (f *fakeIngestor) Ingest(_ context.Context, userID string, m domain.Metrics) *service.IngestResult {
	f.calls = append(f.calls, ingestCall{userID: userID, m: m})
	return &service.IngestResult{
		UserID:   userID,
		Recorded: true,
		Prediction: domain.Prediction{
			Probability: 0.82,
			RiskLabel:   domain.RiskDehydrated,
			Source:      domain.SourceGlobal,
		},
		FuturePrediction: &domain.FutureRisk{Urgency: domain.UrgencyEmergency},
		AlertCreated:     true,
	}
}

func startConsumer(t *testing.T, sub *fakeSubscriber, ing *fakeIngestor) *WearableConsumer {
	t.Helper()
	c := NewWearableConsumer(sub, ing, "", 1, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, c.Start(ctx))
	return c
}

func TestWearableConsumer_IngestsMessage(t *testing.T) {
	sub := &fakeSubscriber{}
	ing := &fakeIngestor{}
	c := startConsumer(t, sub, ing)
	assert.Equal(t, DefaultTopic, sub.topic)

	err := sub.handler("hydration/alice/metrics", []byte(`{"heart_rate": 92, "water_intake": 0.4, "steps": 1200}`))
	require.NoError(t, err)
	require.Len(t, ing.calls, 1)
	assert.Equal(t, "alice", ing.calls[0].userID)
	assert.Equal(t, domain.Metrics{HeartRate: 92, WaterIntake: 0.4, Steps: 1200}, ing.calls[0].m)

	require.Len(t, sub.published, 1)
	assert.Equal(t, "hydration/alice/feedback", sub.published[0].topic)
	var fb Feedback
	require.NoError(t, json.Unmarshal(sub.published[0].payload, &fb))
	assert.Equal(t, 0.82, fb.Probability)
	assert.Equal(t, domain.RiskDehydrated, fb.RiskLabel)
	assert.Equal(t, domain.UrgencyEmergency, fb.Urgency)
	assert.True(t, fb.AlertCreated)

	c.Stop()
	assert.Equal(t, []string{DefaultTopic}, sub.unsubscribed)
}

func TestWearableConsumer_RejectsBadMessages(t *testing.T) {
	sub := &fakeSubscriber{}
	ing := &fakeIngestor{}
	startConsumer(t, sub, ing)

	assert.Error(t, sub.handler("hydration/alice/metrics", []byte(`{not json`)))
	assert.Error(t, sub.handler("radar/alice/data", []byte(`{}`)))
	assert.Empty(t, ing.calls)
}

func TestWearableConsumer_MalformedFieldsDefaultToZero(t *testing.T) {
	sub := &fakeSubscriber{}
	ing := &fakeIngestor{}
	startConsumer(t, sub, ing)

	payload := `{"heart_rate":"95","body_temp":"warm","steps":9000,"water_intake":1.2,"acc_x":null}`
	require.NoError(t, sub.handler("hydration/u1/metrics", []byte(payload)))

	require.Len(t, ing.calls, 1)
	assert.Equal(t, "u1", ing.calls[0].userID)
	assert.Equal(t, domain.Metrics{HeartRate: 95, Steps: 9000, WaterIntake: 1.2}, ing.calls[0].m)
	assert.Len(t, sub.published, 1)
}

func TestWearableConsumer_PublishFailureIsNotAnError(t *testing.T) {
	sub := &fakeSubscriber{publishErr: errors.New("broker gone")}
	ing := &fakeIngestor{}
	startConsumer(t, sub, ing)

	require.NoError(t, sub.handler("hydration/bob/metrics", []byte(`{"heart_rate": 70}`)))
	assert.Len(t, ing.calls, 1)
}

func TestWearableConsumer_SubscribeError(t *testing.T) {
	sub := &fakeSubscriber{err: errors.New("not connected")}
	c := NewWearableConsumer(sub, &fakeIngestor{}, "custom/topic", 0, zap.NewNop())
	assert.Error(t, c.Start(context.Background()))
}

func TestUserIDFromTopic(t *testing.T) {
	id, err := UserIDFromTopic("hydration/u-42/metrics")
	require.NoError(t, err)
	assert.Equal(t, "u-42", id)

	for _, topic := range []string{"hydration//metrics", "hydration/u1", "hydration/u1/metrics/extra", "other/u1/metrics"} {
		_, err := UserIDFromTopic(topic)
		assert.Error(t, err, topic)
	}
}
