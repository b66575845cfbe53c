package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/divakargaba/Dehydration/internal/domain"

	"go.uber.org/zap"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("not found")

// MetricsRepository 指标记录Repository接口
type MetricsRepository interface {
	// 写入一条指标记录（ID 由存储分配并回填）
	InsertMetric(ctx context.Context, rec *domain.MetricRecord) error

	// 查询 since 之后的记录，按 timestamp 倒序
	ListMetricsSince(ctx context.Context, userID string, since time.Time) ([]*domain.MetricRecord, error)

	// 统计 since 之后的记录数
	CountMetricsSince(ctx context.Context, userID string, since time.Time) (int, error)
}

// AlertsRepository 报警Repository接口
type AlertsRepository interface {
	CreateAlert(ctx context.Context, alert *domain.Alert) error
	ListAlerts(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*domain.Alert, error)
	MarkAlertRead(ctx context.Context, userID, alertID string) error
}

// NotificationsRepository 通知Repository接口
type NotificationsRepository interface {
	CreateNotification(ctx context.Context, n *domain.Notification) error

	// 按 created_at 倒序返回，unreadOnly=false 时包含已读（去重检查使用）
	ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*domain.Notification, error)

	MarkNotificationRead(ctx context.Context, userID, notificationID string) error
}

// AchievementsRepository 成就Repository接口（只追加）
type AchievementsRepository interface {
	CreateAchievement(ctx context.Context, a *domain.Achievement) error
	ListAchievements(ctx context.Context, userID string) ([]*domain.Achievement, error)
	HasAchievementSince(ctx context.Context, userID, achievementType string, since time.Time) (bool, error)
}

// Repositories 聚合所有仓库，便于在 main 中统一注入
type Repositories struct {
	Metrics       MetricsRepository
	Alerts        AlertsRepository
	Notifications NotificationsRepository
	Achievements  AchievementsRepository
}

// NewPostgresRepositories 基于 PostgreSQL 创建全部仓库
func NewPostgresRepositories(db *sql.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		Metrics:       NewPostgresMetricsRepository(db, logger),
		Alerts:        NewPostgresAlertsRepository(db, logger),
		Notifications: NewPostgresNotificationsRepository(db, logger),
		Achievements:  NewPostgresAchievementsRepository(db, logger),
	}
}

// NewMemoryRepositories 内存实现（DB 未配置时使用，以及测试）
func NewMemoryRepositories() *Repositories {
	return &Repositories{
		Metrics:       NewMemoryMetricsRepo(),
		Alerts:        NewMemoryAlertsRepo(),
		Notifications: NewMemoryNotificationsRepo(),
		Achievements:  NewMemoryAchievementsRepo(),
	}
}
