package repository

import (
	"context"
	"database/sql"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS metric_records (
		id               BIGSERIAL PRIMARY KEY,
		user_id          VARCHAR(100) NOT NULL,
		timestamp        TIMESTAMPTZ NOT NULL DEFAULT now(),
		heart_rate       DOUBLE PRECISION NOT NULL DEFAULT 0,
		body_temp        DOUBLE PRECISION NOT NULL DEFAULT 0,
		steps            DOUBLE PRECISION NOT NULL DEFAULT 0,
		water_intake     DOUBLE PRECISION NOT NULL DEFAULT 0,
		active_energy    DOUBLE PRECISION NOT NULL DEFAULT 0,
		acc_x            DOUBLE PRECISION NOT NULL DEFAULT 0,
		acc_y            DOUBLE PRECISION NOT NULL DEFAULT 0,
		acc_z            DOUBLE PRECISION NOT NULL DEFAULT 0,
		dehydration_risk VARCHAR(20) NOT NULL,
		ml_prediction    DOUBLE PRECISION NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_metric_records_user_ts ON metric_records (user_id, timestamp DESC)`,
	`CREATE TABLE IF NOT EXISTS alerts (
		alert_id   UUID PRIMARY KEY,
		user_id    VARCHAR(100) NOT NULL,
		alert_type VARCHAR(50) NOT NULL,
		message    TEXT NOT NULL,
		risk_level DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		is_read    BOOLEAN NOT NULL DEFAULT false,
		seq        BIGSERIAL
	)`,
	`ALTER TABLE alerts ADD COLUMN IF NOT EXISTS seq BIGSERIAL`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_user_created ON alerts (user_id, created_at DESC, seq DESC)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		notification_id   UUID PRIMARY KEY,
		user_id           VARCHAR(100) NOT NULL,
		notification_type VARCHAR(50) NOT NULL,
		urgency           VARCHAR(20) NOT NULL,
		message           TEXT NOT NULL,
		payload           JSONB NOT NULL DEFAULT '{}',
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		is_read           BOOLEAN NOT NULL DEFAULT false,
		seq               BIGSERIAL
	)`,
	`ALTER TABLE notifications ADD COLUMN IF NOT EXISTS seq BIGSERIAL`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications (user_id, created_at DESC, seq DESC)`,
	`CREATE TABLE IF NOT EXISTS achievements (
		achievement_id   UUID PRIMARY KEY,
		user_id          VARCHAR(100) NOT NULL,
		achievement_type VARCHAR(50) NOT NULL,
		message          TEXT NOT NULL,
		earned_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		seq              BIGSERIAL
	)`,
	`ALTER TABLE achievements ADD COLUMN IF NOT EXISTS seq BIGSERIAL`,
	`CREATE INDEX IF NOT EXISTS idx_achievements_user_earned ON achievements (user_id, earned_at DESC, seq DESC)`,
}

// EnsureSchema 创建表和索引（幂等）
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
