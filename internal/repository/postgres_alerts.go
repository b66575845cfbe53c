package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/divakargaba/Dehydration/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PostgresAlertsRepository 报警仓库（alerts 表）
type PostgresAlertsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresAlertsRepository 创建报警仓库
func NewPostgresAlertsRepository(db *sql.DB, logger *zap.Logger) *PostgresAlertsRepository {
	return &PostgresAlertsRepository{db: db, logger: logger}
}

// CreateAlert 创建报警（未设置 AlertID 时自动生成）
func (r *PostgresAlertsRepository) CreateAlert(ctx context.Context, alert *domain.Alert) error {
	if alert == nil {
		return fmt.Errorf("alert is required")
	}
	if alert.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if alert.AlertID == "" {
		alert.AlertID = uuid.New().String()
	}

	query := `
		INSERT INTO alerts (alert_id, user_id, alert_type, message, risk_level, created_at, is_read)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		alert.AlertID, alert.UserID, alert.Type, alert.Message,
		alert.RiskLevel, alert.CreatedAt, alert.Read,
	)
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

// ListAlerts 查询报警（created_at 倒序，limit<=0 表示不限制）
func (r *PostgresAlertsRepository) ListAlerts(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*domain.Alert, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	query := `
		SELECT alert_id, user_id, alert_type, message, risk_level, created_at, is_read
		FROM alerts
		WHERE user_id = $1
	`
	args := []any{userID}
	if unreadOnly {
		query += ` AND is_read = false`
	}
	query += ` ORDER BY created_at DESC, seq DESC`
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*domain.Alert
	for rows.Next() {
		var a domain.Alert
		if err := rows.Scan(&a.AlertID, &a.UserID, &a.Type, &a.Message, &a.RiskLevel, &a.CreatedAt, &a.Read); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}
	return alerts, nil
}

// MarkAlertRead 标记报警已读
func (r *PostgresAlertsRepository) MarkAlertRead(ctx context.Context, userID, alertID string) error {
	if userID == "" {
		return fmt.Errorf("user_id is required")
	}
	if alertID == "" {
		return fmt.Errorf("alert_id is required")
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE alerts SET is_read = true WHERE alert_id = $1 AND user_id = $2`,
		alertID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark alert read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("alert %s: %w", alertID, ErrNotFound)
	}
	return nil
}
