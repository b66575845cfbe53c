package domain

import "time"

// 成就类型
const (
	AchievementHydrationGoal     = "hydration_goal"
	AchievementStepMaster        = "step_master"
	AchievementConsistentTracker = "consistent_tracker"
)

// Achievement 成就领域模型（对应 achievements 表，只追加）
type Achievement struct {
	AchievementID string    `db:"achievement_id" json:"achievement_id"` // UUID, PRIMARY KEY
	UserID        string    `db:"user_id" json:"user_id"`               // VARCHAR(100), NOT NULL
	Type          string    `db:"achievement_type" json:"type"`         // VARCHAR(50)
	Message       string    `db:"message" json:"message"`               // TEXT
	EarnedAt      time.Time `db:"earned_at" json:"earned_at"`           // TIMESTAMPTZ
}
