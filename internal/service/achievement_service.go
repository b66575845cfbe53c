package service

import (
	"context"
	"fmt"
	"time"

	"github.com/divakargaba/Dehydration/internal/domain"
	"github.com/divakargaba/Dehydration/internal/repository"

	"go.uber.org/zap"
)

const stepMasterThreshold = 10000

// AchievementService 成就评估（同一类型每天最多一次）
type AchievementService struct {
	repo   repository.AchievementsRepository
	clock  Clock
	logger *zap.Logger
}

func NewAchievementService(repo repository.AchievementsRepository, clock Clock, logger *zap.Logger) *AchievementService {
	return &AchievementService{repo: repo, clock: clock, logger: logger}
}

// Evaluate 根据本次上报评估成就，返回新获得的成就
func (s *AchievementService) Evaluate(ctx context.Context, userID string, m domain.Metrics, target domain.HydrationTarget, recordCount int) []*domain.Achievement {
	var earned []*domain.Achievement

	if target.DailyTarget > 0 && m.WaterIntake >= target.DailyTarget {
		earned = s.award(ctx, earned, userID, domain.AchievementHydrationGoal,
			fmt.Sprintf("Hydration goal reached: %.2fL of %.2fL", m.WaterIntake, target.DailyTarget))
	}
	if m.Steps >= stepMasterThreshold {
		earned = s.award(ctx, earned, userID, domain.AchievementStepMaster,
			fmt.Sprintf("Step master: %.0f steps today", m.Steps))
	}
	if recordCount > 0 && recordCount%retrainEvery == 0 {
		earned = s.award(ctx, earned, userID, domain.AchievementConsistentTracker,
			fmt.Sprintf("Consistent tracker: %d readings in the last 30 days", recordCount))
	}
	return earned
}

// List 用户所有成就（最新在前）
func (s *AchievementService) List(ctx context.Context, userID string) ([]*domain.Achievement, error) {
	return s.repo.ListAchievements(ctx, userID)
}

func (s *AchievementService) award(ctx context.Context, earned []*domain.Achievement, userID, typ, msg string) []*domain.Achievement {
	now := s.clock.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	exists, err := s.repo.HasAchievementSince(ctx, userID, typ, dayStart)
	if err != nil {
		s.logger.Warn("Failed to check achievement", zap.String("user_id", userID), zap.String("type", typ), zap.Error(err))
		return earned
	}
	if exists {
		return earned
	}

	a := &domain.Achievement{UserID: userID, Type: typ, Message: msg, EarnedAt: now}
	if err := s.repo.CreateAchievement(ctx, a); err != nil {
		s.logger.Error("Failed to create achievement", zap.String("user_id", userID), zap.String("type", typ), zap.Error(err))
		return earned
	}
	s.logger.Info("Achievement earned", zap.String("user_id", userID), zap.String("type", typ))
	return append(earned, a)
}
