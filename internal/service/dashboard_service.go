package service

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Dashboard 汇总用量、连续天数与成就
type Dashboard struct {
	Usage        UsageSummary       `json:"usage"`
	Streak       StreakSummary      `json:"streak"`
	Achievements AchievementSummary `json:"achievements"`
}

// DashboardService 并发读取三类汇总
type DashboardService struct {
	usage        *UsageService
	streaks      *StreakService
	achievements *AchievementService
}

// NewDashboardService 构造 DashboardService
func NewDashboardService(usage *UsageService, streaks *StreakService, achievements *AchievementService) *DashboardService {
	return &DashboardService{usage: usage, streaks: streaks, achievements: achievements}
}

// Load 并发读取汇总，任一失败即返回错误
func (s *DashboardService) Load(ctx context.Context, userID uint) (Dashboard, error) {
	var dashboard Dashboard
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		summary, err := s.usage.Summary(groupCtx, userID)
		dashboard.Usage = summary
		return err
	})
	group.Go(func() error {
		summary, err := s.streaks.Summary(groupCtx, userID)
		dashboard.Streak = summary
		return err
	})
	group.Go(func() error {
		summary, err := s.achievements.Summary(groupCtx, userID)
		dashboard.Achievements = summary
		return err
	})

	if err := group.Wait(); err != nil {
		return Dashboard{}, err
	}
	return dashboard, nil
}
