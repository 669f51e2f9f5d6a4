package service

import (
	"context"
	"fmt"

	"github.com/explainer/internal/db"
	"github.com/explainer/internal/engagement"
)

// ShareResult 是一次分享后的统计与新解锁成就
type ShareResult struct {
	Shares          int                      `json:"shares"`
	NewAchievements []engagement.Achievement `json:"new_achievements"`
}

// ShareService 记录分享行为，驱动社交类成就
type ShareService struct {
	stats        db.StatsStore
	achievements *AchievementService
}

// NewShareService 构造 ShareService
func NewShareService(stats db.StatsStore, achievements *AchievementService) *ShareService {
	return &ShareService{stats: stats, achievements: achievements}
}

// Record 累加分享次数并检查成就
func (s *ShareService) Record(ctx context.Context, userID uint) (ShareResult, error) {
	shares, err := s.stats.IncrementShares(ctx, userID)
	if err != nil {
		return ShareResult{}, fmt.Errorf("record share: %w", err)
	}

	unlocked, err := s.achievements.CheckAll(ctx, userID)
	if unlocked == nil {
		unlocked = []engagement.Achievement{}
	}
	if err != nil {
		return ShareResult{Shares: shares, NewAchievements: unlocked}, fmt.Errorf("check achievements: %w", err)
	}
	return ShareResult{Shares: shares, NewAchievements: unlocked}, nil
}
