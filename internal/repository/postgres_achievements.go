package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/divakargaba/Dehydration/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PostgresAchievementsRepository 成就仓库（achievements 表）
type PostgresAchievementsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresAchievementsRepository 创建成就仓库
func NewPostgresAchievementsRepository(db *sql.DB, logger *zap.Logger) *PostgresAchievementsRepository {
	return &PostgresAchievementsRepository{db: db, logger: logger}
}

func (r *PostgresAchievementsRepository) CreateAchievement(ctx context.Context, a *domain.Achievement) error {
	if a == nil {
		return fmt.Errorf("achievement is required")
	}
	if a.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if a.AchievementID == "" {
		a.AchievementID = uuid.New().String()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO achievements (achievement_id, user_id, achievement_type, message, earned_at)
		VALUES ($1, $2, $3, $4, $5)
	`, a.AchievementID, a.UserID, a.Type, a.Message, a.EarnedAt)
	if err != nil {
		return fmt.Errorf("failed to create achievement: %w", err)
	}
	return nil
}

func (r *PostgresAchievementsRepository) ListAchievements(ctx context.Context, userID string) ([]*domain.Achievement, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT achievement_id, user_id, achievement_type, message, earned_at
		FROM achievements
		WHERE user_id = $1
		ORDER BY earned_at DESC, seq DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query achievements: %w", err)
	}
	defer rows.Close()

	var out []*domain.Achievement
	for rows.Next() {
		var a domain.Achievement
		if err := rows.Scan(&a.AchievementID, &a.UserID, &a.Type, &a.Message, &a.EarnedAt); err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate achievements: %w", err)
	}
	return out, nil
}

// HasAchievementSince 是否已在 since 之后获得过该类型成就
func (r *PostgresAchievementsRepository) HasAchievementSince(ctx context.Context, userID, achievementType string, since time.Time) (bool, error) {
	if userID == "" {
		return false, fmt.Errorf("user_id is required")
	}

	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM achievements
			WHERE user_id = $1 AND achievement_type = $2 AND earned_at >= $3
		)
	`, userID, achievementType, since).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check achievement: %w", err)
	}
	return exists, nil
}
