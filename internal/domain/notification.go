package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// 通知紧急程度
const (
	UrgencyLow       = "low"
	UrgencyMedium    = "medium"
	UrgencyHigh      = "high"
	UrgencyEmergency = "emergency"
)

// 通知类型
const (
	NotificationRiskEmergency = "risk_emergency"
	NotificationRiskHigh      = "risk_high"
	NotificationRiskModerate  = "risk_moderate"
	NotificationMorning       = "morning_reminder"
	NotificationActivity      = "activity_reminder"
	NotificationWeatherHot    = "weather_hot"
	NotificationHumidity      = "humidity_high"
	NotificationPatternWater  = "pattern_low_water"
)

// Notification 通知领域模型（对应 notifications 表）
type Notification struct {
	NotificationID   string          `db:"notification_id" json:"notification_id"`     // UUID, PRIMARY KEY
	UserID           string          `db:"user_id" json:"user_id"`                     // VARCHAR(100), NOT NULL
	NotificationType string          `db:"notification_type" json:"notification_type"` // VARCHAR(50)
	Urgency          string          `db:"urgency" json:"urgency"`                     // low/medium/high/emergency
	Message          string          `db:"message" json:"message"`                     // TEXT
	Payload          json.RawMessage `db:"payload" json:"payload"`                     // JSONB, DEFAULT '{}'
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`               // TIMESTAMPTZ
	Read             bool            `db:"is_read" json:"read"`                        // BOOLEAN, DEFAULT false
}

// HasTypeTag 通知类型是否包含 tag（用于去重判断）
func (n Notification) HasTypeTag(tag string) bool {
	return strings.Contains(n.NotificationType, tag)
}
