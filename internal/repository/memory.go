package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/divakargaba/Dehydration/internal/domain"

	"github.com/google/uuid"
)

// MemoryMetricsRepo: DB 未配置时的内存实现
// - 按 user_id 隔离
// - 不做任何保留策略（与 PostgreSQL 一致）
type MemoryMetricsRepo struct {
	mu     sync.RWMutex
	nextID int64
	byUser map[string][]domain.MetricRecord
}

func NewMemoryMetricsRepo() *MemoryMetricsRepo {
	return &MemoryMetricsRepo{byUser: map[string][]domain.MetricRecord{}}
}

func (r *MemoryMetricsRepo) InsertMetric(_ context.Context, rec *domain.MetricRecord) error {
	if rec == nil {
		return fmt.Errorf("metric record is required")
	}
	if rec.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	rec.ID = r.nextID
	r.byUser[rec.UserID] = append(r.byUser[rec.UserID], *rec)
	return nil
}

func (r *MemoryMetricsRepo) ListMetricsSince(_ context.Context, userID string, since time.Time) ([]*domain.MetricRecord, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.MetricRecord
	for i := range r.byUser[userID] {
		rec := r.byUser[userID][i]
		if rec.Timestamp.Before(since) {
			continue
		}
		out = append(out, &rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID > out[j].ID
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

func (r *MemoryMetricsRepo) CountMetricsSince(_ context.Context, userID string, since time.Time) (int, error) {
	if userID == "" {
		return 0, fmt.Errorf("user_id is required")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, rec := range r.byUser[userID] {
		if !rec.Timestamp.Before(since) {
			n++
		}
	}
	return n, nil
}

// MemoryAlertsRepo 报警内存实现（按插入顺序保存）
type MemoryAlertsRepo struct {
	mu     sync.RWMutex
	byUser map[string][]*domain.Alert
}

func NewMemoryAlertsRepo() *MemoryAlertsRepo {
	return &MemoryAlertsRepo{byUser: map[string][]*domain.Alert{}}
}

func (r *MemoryAlertsRepo) CreateAlert(_ context.Context, alert *domain.Alert) error {
	if alert == nil {
		return fmt.Errorf("alert is required")
	}
	if alert.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if alert.AlertID == "" {
		alert.AlertID = uuid.New().String()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *alert
	r.byUser[alert.UserID] = append(r.byUser[alert.UserID], &cp)
	return nil
}

func (r *MemoryAlertsRepo) ListAlerts(_ context.Context, userID string, unreadOnly bool, limit int) ([]*domain.Alert, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := r.byUser[userID]
	var out []*domain.Alert
	// 倒序遍历即 created_at 倒序
	for i := len(items) - 1; i >= 0; i-- {
		if unreadOnly && items[i].Read {
			continue
		}
		cp := *items[i]
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *MemoryAlertsRepo) MarkAlertRead(_ context.Context, userID, alertID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byUser[userID] {
		if a.AlertID == alertID {
			a.Read = true
			return nil
		}
	}
	return fmt.Errorf("alert %s: %w", alertID, ErrNotFound)
}

// MemoryNotificationsRepo 通知内存实现
type MemoryNotificationsRepo struct {
	mu     sync.RWMutex
	byUser map[string][]*domain.Notification
}

func NewMemoryNotificationsRepo() *MemoryNotificationsRepo {
	return &MemoryNotificationsRepo{byUser: map[string][]*domain.Notification{}}
}

func (r *MemoryNotificationsRepo) CreateNotification(_ context.Context, n *domain.Notification) error {
	if n == nil {
		return fmt.Errorf("notification is required")
	}
	if n.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if n.NotificationID == "" {
		n.NotificationID = uuid.New().String()
	}
	if len(n.Payload) == 0 {
		n.Payload = jsonRawOrEmpty(nil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *n
	r.byUser[n.UserID] = append(r.byUser[n.UserID], &cp)
	return nil
}

func (r *MemoryNotificationsRepo) ListNotifications(_ context.Context, userID string, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := r.byUser[userID]
	var out []*domain.Notification
	for i := len(items) - 1; i >= 0; i-- {
		if unreadOnly && items[i].Read {
			continue
		}
		cp := *items[i]
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *MemoryNotificationsRepo) MarkNotificationRead(_ context.Context, userID, notificationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.byUser[userID] {
		if n.NotificationID == notificationID {
			n.Read = true
			return nil
		}
	}
	return fmt.Errorf("notification %s: %w", notificationID, ErrNotFound)
}

// MemoryAchievementsRepo 成就内存实现
type MemoryAchievementsRepo struct {
	mu     sync.RWMutex
	byUser map[string][]domain.Achievement
}

func NewMemoryAchievementsRepo() *MemoryAchievementsRepo {
	return &MemoryAchievementsRepo{byUser: map[string][]domain.Achievement{}}
}

func (r *MemoryAchievementsRepo) CreateAchievement(_ context.Context, a *domain.Achievement) error {
	if a == nil {
		return fmt.Errorf("achievement is required")
	}
	if a.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if a.AchievementID == "" {
		a.AchievementID = uuid.New().String()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[a.UserID] = append(r.byUser[a.UserID], *a)
	return nil
}

func (r *MemoryAchievementsRepo) ListAchievements(_ context.Context, userID string) ([]*domain.Achievement, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := r.byUser[userID]
	out := make([]*domain.Achievement, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		a := items[i]
		out = append(out, &a)
	}
	return out, nil
}

func (r *MemoryAchievementsRepo) HasAchievementSince(_ context.Context, userID, achievementType string, since time.Time) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.byUser[userID] {
		if a.Type == achievementType && !a.EarnedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}
