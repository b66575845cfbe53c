package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/divakargaba/Dehydration/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PostgresNotificationsRepository 通知仓库（notifications 表）
type PostgresNotificationsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresNotificationsRepository 创建通知仓库
func NewPostgresNotificationsRepository(db *sql.DB, logger *zap.Logger) *PostgresNotificationsRepository {
	return &PostgresNotificationsRepository{db: db, logger: logger}
}

// CreateNotification 创建通知
func (r *PostgresNotificationsRepository) CreateNotification(ctx context.Context, n *domain.Notification) error {
	if n == nil {
		return fmt.Errorf("notification is required")
	}
	if n.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if n.NotificationID == "" {
		n.NotificationID = uuid.New().String()
	}
	payload := []byte(n.Payload)
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	query := `
		INSERT INTO notifications (
			notification_id, user_id, notification_type, urgency, message, payload, created_at, is_read
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		n.NotificationID, n.UserID, n.NotificationType, n.Urgency,
		n.Message, payload, n.CreatedAt, n.Read,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// ListNotifications 查询通知（created_at 倒序）
func (r *PostgresNotificationsRepository) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	query := `
		SELECT notification_id, user_id, notification_type, urgency, message, payload, created_at, is_read
		FROM notifications
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
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var out []*domain.Notification
	for rows.Next() {
		var n domain.Notification
		var payload []byte
		if err := rows.Scan(
			&n.NotificationID, &n.UserID, &n.NotificationType, &n.Urgency,
			&n.Message, &payload, &n.CreatedAt, &n.Read,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Payload = jsonRawOrEmpty(payload)
		out = append(out, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}
	return out, nil
}

// MarkNotificationRead 标记通知已读
func (r *PostgresNotificationsRepository) MarkNotificationRead(ctx context.Context, userID, notificationID string) error {
	if userID == "" {
		return fmt.Errorf("user_id is required")
	}
	if notificationID == "" {
		return fmt.Errorf("notification_id is required")
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = true WHERE notification_id = $1 AND user_id = $2`,
		notificationID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("notification %s: %w", notificationID, ErrNotFound)
	}
	return nil
}
