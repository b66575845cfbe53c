package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/divakargaba/Dehydration/internal/domain"
	"github.com/divakargaba/Dehydration/internal/repository"

	"go.uber.org/zap"
)

// 阈值
const (
	alertThreshold        = 0.7
	activityStepThreshold = 8000
	hotTemperature        = 30
	highHumidity          = 70
	lowWaterRatio         = 0.7
	morningCutoffHour     = 12
	morningDedupWindow    = 5
	contextDedupWindow    = 3
)

// PolicyInput 一次上报的上下文
type PolicyInput struct {
	UserID      string
	Metrics     domain.Metrics
	Probability float64
	Weather     *domain.Weather
	Future      *domain.FutureRisk
}

// PolicyResult 本次创建的报警与通知
type PolicyResult struct {
	Alert         *domain.Alert          `json:"alert,omitempty"`
	Notifications []*domain.Notification `json:"notifications"`
}

// NotificationPolicy 报警 / 通知策略
// 每条通知独立写入，不在一个事务中
type NotificationPolicy struct {
	alerts        repository.AlertsRepository
	notifications repository.NotificationsRepository
	baselines     *BaselineService
	clock         Clock
	logger        *zap.Logger
}

func NewNotificationPolicy(
	alerts repository.AlertsRepository,
	notifications repository.NotificationsRepository,
	baselines *BaselineService,
	clock Clock,
	logger *zap.Logger,
) *NotificationPolicy {
	return &NotificationPolicy{
		alerts:        alerts,
		notifications: notifications,
		baselines:     baselines,
		clock:         clock,
		logger:        logger,
	}
}

// Evaluate 依次评估报警和各类通知
func (p *NotificationPolicy) Evaluate(ctx context.Context, in PolicyInput) PolicyResult {
	res := PolicyResult{Notifications: []*domain.Notification{}}

	// 报警：不去重，每次超过阈值都写入
	if in.Probability > alertThreshold {
		alert := &domain.Alert{
			UserID:    in.UserID,
			Type:      domain.AlertTypeDehydration,
			Message:   fmt.Sprintf("High dehydration risk detected (%.0f%%). Drink water now.", in.Probability*100),
			RiskLevel: in.Probability,
			CreatedAt: p.clock.now(),
		}
		if err := p.alerts.CreateAlert(ctx, alert); err != nil {
			p.logger.Error("Failed to create alert", zap.String("user_id", in.UserID), zap.Error(err))
		} else {
			res.Alert = alert
		}
	}

	// 风险等级：最多一条，取最高
	if typ, urgency, msg, ok := riskTier(in.Probability); ok {
		payload := map[string]any{"probability": in.Probability}
		if in.Future != nil {
			payload["future_risk"] = in.Future.FutureRisk
			payload["time_to_dehydration"] = in.Future.TimeToEvent
		}
		p.create(ctx, &res, in.UserID, typ, urgency, msg, payload)
	}

	// 早晨提醒
	if p.clock.now().Hour() < morningCutoffHour && !p.recentHasTag(ctx, in.UserID, morningDedupWindow, "morning") {
		p.create(ctx, &res, in.UserID, domain.NotificationMorning, domain.UrgencyLow,
			"Good morning! Start your day with a glass of water.", nil)
	}

	// 活动提醒
	if in.Metrics.Steps > activityStepThreshold && !p.recentHasTag(ctx, in.UserID, contextDedupWindow, "activity") {
		p.create(ctx, &res, in.UserID, domain.NotificationActivity, domain.UrgencyMedium,
			fmt.Sprintf("Great activity! You've taken %.0f steps. Remember to rehydrate.", in.Metrics.Steps),
			map[string]any{"steps": in.Metrics.Steps})
	}

	// 天气：高温优先，与高湿互斥
	if w := in.Weather; w != nil {
		if w.Temperature > hotTemperature {
			if !p.recentHasTag(ctx, in.UserID, contextDedupWindow, "weather") {
				p.create(ctx, &res, in.UserID, domain.NotificationWeatherHot, domain.UrgencyHigh,
					fmt.Sprintf("It's %.1f°C outside. Increase your water intake.", w.Temperature),
					map[string]any{"temperature": w.Temperature})
			}
		} else if w.Humidity > highHumidity {
			if !p.recentHasTag(ctx, in.UserID, contextDedupWindow, "humidity") {
				p.create(ctx, &res, in.UserID, domain.NotificationHumidity, domain.UrgencyMedium,
					fmt.Sprintf("Humidity is %.0f%%. You may lose more fluid than you notice.", w.Humidity),
					map[string]any{"humidity": w.Humidity})
			}
		}
	}

	// 饮水模式：最近一天平均饮水低于 30 天基线的 70%
	if base := p.baselines.Baseline(ctx, in.UserID, DefaultBaselineDays); base != nil {
		if day := p.baselines.Baseline(ctx, in.UserID, 1); day != nil && day.AvgWaterIntake < lowWaterRatio*base.AvgWaterIntake {
			p.create(ctx, &res, in.UserID, domain.NotificationPatternWater, domain.UrgencyMedium,
				"Your water intake today is below your usual pattern.",
				map[string]any{
					"today_avg_water":    day.AvgWaterIntake,
					"baseline_avg_water": base.AvgWaterIntake,
				})
		}
	}

	return res
}

func riskTier(prob float64) (typ, urgency, msg string, ok bool) {
	switch {
	case prob > 0.8:
		return domain.NotificationRiskEmergency, domain.UrgencyEmergency,
			"URGENT: Severe dehydration risk. Drink water immediately and rest.", true
	case prob > 0.6:
		return domain.NotificationRiskHigh, domain.UrgencyHigh,
			"High dehydration risk. Drink water soon.", true
	case prob > 0.4:
		return domain.NotificationRiskModerate, domain.UrgencyMedium,
			"Moderate dehydration risk. Consider drinking some water.", true
	}
	return "", "", "", false
}

// recentHasTag 最近 n 条通知（含已读）中是否有类型包含 tag 的；查询失败时按"没有"处理
func (p *NotificationPolicy) recentHasTag(ctx context.Context, userID string, n int, tag string) bool {
	recent, err := p.notifications.ListNotifications(ctx, userID, false, n)
	if err != nil {
		p.logger.Warn("Failed to load recent notifications", zap.String("user_id", userID), zap.Error(err))
		return false
	}
	for _, notif := range recent {
		if notif.HasTypeTag(tag) {
			return true
		}
	}
	return false
}

func (p *NotificationPolicy) create(ctx context.Context, res *PolicyResult, userID, typ, urgency, msg string, payload map[string]any) {
	raw := json.RawMessage("{}")
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			raw = b
		}
	}
	n := &domain.Notification{
		UserID:           userID,
		NotificationType: typ,
		Urgency:          urgency,
		Message:          msg,
		Payload:          raw,
		CreatedAt:        p.clock.now(),
	}
	if err := p.notifications.CreateNotification(ctx, n); err != nil {
		p.logger.Error("Failed to create notification",
			zap.String("user_id", userID),
			zap.String("notification_type", typ),
			zap.Error(err),
		)
		return
	}
	res.Notifications = append(res.Notifications, n)
}
