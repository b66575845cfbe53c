package domain

import "time"

// AlertTypeDehydration 当前唯一的报警类型
const AlertTypeDehydration = "dehydration"

// Alert 报警领域模型（对应 alerts 表）
// 只允许标记已读，不会自动删除
type Alert struct {
	AlertID   string    `db:"alert_id" json:"alert_id"`     // UUID, PRIMARY KEY
	UserID    string    `db:"user_id" json:"user_id"`       // VARCHAR(100), NOT NULL
	Type      string    `db:"alert_type" json:"type"`       // VARCHAR(50)
	Message   string    `db:"message" json:"message"`       // TEXT
	RiskLevel float64   `db:"risk_level" json:"risk_level"` // DOUBLE PRECISION
	CreatedAt time.Time `db:"created_at" json:"created_at"` // TIMESTAMPTZ
	Read      bool      `db:"is_read" json:"read"`          // BOOLEAN, DEFAULT false
}
