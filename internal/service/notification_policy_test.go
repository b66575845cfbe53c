package service

import (
	"context"
	"testing"
	"time"

	"github.com/divakargaba/Dehydration/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func notificationTypes(ns []*domain.Notification) []string {
	out := make([]string, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.NotificationType)
	}
	return out
}

func TestPolicy_ActivityDedup(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()
	require.NoError(t, e.repos.Notifications.CreateNotification(ctx, &domain.Notification{
		UserID: "u1", NotificationType: domain.NotificationActivity, Urgency: domain.UrgencyMedium, CreatedAt: e.now,
	}))

	res := e.policy.Evaluate(ctx, PolicyInput{UserID: "u1", Metrics: domain.Metrics{Steps: 9000}, Probability: 0.1})

	assert.NotContains(t, notificationTypes(res.Notifications), domain.NotificationActivity)
	all, err := e.repos.Notifications.ListNotifications(ctx, "u1", false, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestPolicy_ActivityOutsideDedupWindow(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()
	for _, typ := range []string{domain.NotificationActivity, domain.NotificationRiskHigh, domain.NotificationRiskHigh, domain.NotificationRiskHigh} {
		require.NoError(t, e.repos.Notifications.CreateNotification(ctx, &domain.Notification{UserID: "u1", NotificationType: typ}))
	}

	res := e.policy.Evaluate(ctx, PolicyInput{UserID: "u1", Metrics: domain.Metrics{Steps: 9000}, Probability: 0.1})

	assert.Equal(t, []string{domain.NotificationActivity}, notificationTypes(res.Notifications))
}

func TestPolicy_RiskTierHighestWinsAndAlert(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()

	res := e.policy.Evaluate(ctx, PolicyInput{UserID: "u1", Probability: 0.85})

	assert.Equal(t, []string{domain.NotificationRiskEmergency}, notificationTypes(res.Notifications))
	assert.Equal(t, domain.UrgencyEmergency, res.Notifications[0].Urgency)
	require.NotNil(t, res.Alert)
	assert.Equal(t, domain.AlertTypeDehydration, res.Alert.Type)
	assert.Equal(t, 0.85, res.Alert.RiskLevel)
	assert.False(t, res.Alert.Read)
}

func TestPolicy_AlertThresholdIsStrict(t *testing.T) {
	e := newTestEnv(t, nil)

	res := e.policy.Evaluate(context.Background(), PolicyInput{UserID: "u1", Probability: 0.7})

	assert.Nil(t, res.Alert)
	assert.Equal(t, []string{domain.NotificationRiskHigh}, notificationTypes(res.Notifications))
}

func TestPolicy_AlertsAreNotDeduplicated(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()

	e.policy.Evaluate(ctx, PolicyInput{UserID: "u1", Probability: 0.9})
	e.policy.Evaluate(ctx, PolicyInput{UserID: "u1", Probability: 0.75})

	alerts, err := e.repos.Alerts.ListAlerts(ctx, "u1", false, 0)
	require.NoError(t, err)
	assert.Len(t, alerts, 2)
}

func TestPolicy_MorningReminderOncePerWindow(t *testing.T) {
	e := newTestEnv(t, nil)
	e.now = time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC)
	ctx := context.Background()

	first := e.policy.Evaluate(ctx, PolicyInput{UserID: "u1", Probability: 0.1})
	second := e.policy.Evaluate(ctx, PolicyInput{UserID: "u1", Probability: 0.1})

	assert.Equal(t, []string{domain.NotificationMorning}, notificationTypes(first.Notifications))
	assert.Empty(t, second.Notifications)
}

func TestPolicy_NoMorningReminderAfterNoon(t *testing.T) {
	e := newTestEnv(t, nil)
	e.now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	res := e.policy.Evaluate(context.Background(), PolicyInput{UserID: "u1", Probability: 0.1})

	assert.Empty(t, res.Notifications)
}

func TestPolicy_WeatherHotAndHumidAreExclusive(t *testing.T) {
	ctx := context.Background()

	e := newTestEnv(t, nil)
	res := e.policy.Evaluate(ctx, PolicyInput{UserID: "u1", Probability: 0.1, Weather: &domain.Weather{Temperature: 32, Humidity: 85}})
	assert.Equal(t, []string{domain.NotificationWeatherHot}, notificationTypes(res.Notifications))

	e = newTestEnv(t, nil)
	res = e.policy.Evaluate(ctx, PolicyInput{UserID: "u1", Probability: 0.1, Weather: &domain.Weather{Temperature: 25, Humidity: 85}})
	assert.Equal(t, []string{domain.NotificationHumidity}, notificationTypes(res.Notifications))

	// 最近已有高湿提醒：去重
	res = e.policy.Evaluate(ctx, PolicyInput{UserID: "u1", Probability: 0.1, Weather: &domain.Weather{Temperature: 25, Humidity: 85}})
	assert.Empty(t, res.Notifications)
}

func TestPolicy_PatternLowWater(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()
	// 30 天基线：前几天饮水 2.0L
	for i := 0; i < 20; i++ {
		e.insert(t, "u1", -time.Duration(48+i)*time.Hour, domain.Metrics{WaterIntake: 2.0}, 0.1)
	}
	// 今天只有 0.3L
	for i := 0; i < 3; i++ {
		e.insert(t, "u1", -time.Duration(i)*time.Hour, domain.Metrics{WaterIntake: 0.3}, 0.1)
	}

	res := e.policy.Evaluate(ctx, PolicyInput{UserID: "u1", Probability: 0.1})

	require.Equal(t, []string{domain.NotificationPatternWater}, notificationTypes(res.Notifications))
	assert.Contains(t, string(res.Notifications[0].Payload), "baseline_avg_water")
}

func TestPolicy_NoPatternWithoutBaseline(t *testing.T) {
	e := newTestEnv(t, nil)

	res := e.policy.Evaluate(context.Background(), PolicyInput{UserID: "u1", Probability: 0.1})

	assert.Empty(t, res.Notifications)
}
