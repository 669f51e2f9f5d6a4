package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/explainer/internal/db"
	"github.com/explainer/internal/engagement"
	"github.com/explainer/internal/logger"
	"github.com/explainer/internal/metrics"
)

// recentUnlockLimit 是汇总中"最近解锁"的条数
const recentUnlockLimit = 5

// AchievementStore 是成就判定所需的存储能力
type AchievementStore interface {
	db.AchievementStore
	GetStats(ctx context.Context, userID uint) (engagement.Stats, error)
	GetStreak(ctx context.Context, userID uint) (*engagement.StreakRecord, error)
}

// AchievementService 按分类检查成就并写入解锁记录。
// 是否已解锁只由存储层唯一约束判定，不做预查询。
type AchievementService struct {
	store   AchievementStore
	catalog *lru.Cache[engagement.Category, []engagement.Achievement]
	log     *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// AchievementSummary 是面向界面的成就汇总
type AchievementSummary struct {
	Total            int                              `json:"total"`
	Unlocked         int                              `json:"unlocked"`
	RecentlyUnlocked []engagement.UnlockedAchievement `json:"recently_unlocked"`
	Achievements     []AchievementStatus              `json:"achievements"`
}

// AchievementStatus 描述单个成就对用户的解锁状态
type AchievementStatus struct {
	engagement.Achievement
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

// NewAchievementService 构造 AchievementService，成就目录按分类缓存
func NewAchievementService(store AchievementStore, log *logger.Logger, m *metrics.Metrics) *AchievementService {
	if log == nil {
		log = logger.NewNop()
	}
	cache, _ := lru.New[engagement.Category, []engagement.Achievement](len(engagement.Categories))
	return &AchievementService{store: store, catalog: cache, log: log, metrics: m, now: time.Now}
}

// SetClock 替换时间来源，主要用于测试
func (s *AchievementService) SetClock(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	s.now = now
}

// PurgeCatalog 清空成就目录缓存，成就定义变更后调用
func (s *AchievementService) PurgeCatalog() {
	s.catalog.Purge()
}

// Stats 汇总终身统计与当前连续天数
func (s *AchievementService) Stats(ctx context.Context, userID uint) (engagement.Stats, error) {
	stats, err := s.store.GetStats(ctx, userID)
	if err != nil {
		return engagement.Stats{}, fmt.Errorf("load stats: %w", err)
	}
	streak, err := s.store.GetStreak(ctx, userID)
	if err != nil {
		return engagement.Stats{}, fmt.Errorf("load streak: %w", err)
	}
	if streak != nil {
		stats.CurrentStreak = streak.CurrentStreak
		stats.LongestStreak = max(streak.LongestStreak, streak.CurrentStreak)
	}
	return stats, nil
}

// CheckAll 读取当前统计并依次检查每个分类，返回本次新解锁的成就
func (s *AchievementService) CheckAll(ctx context.Context, userID uint) ([]engagement.Achievement, error) {
	stats, err := s.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.CheckAllWithStats(ctx, userID, stats)
}

// CheckAllWithStats 使用调用方提供的统计检查全部分类
func (s *AchievementService) CheckAllWithStats(ctx context.Context, userID uint, stats engagement.Stats) ([]engagement.Achievement, error) {
	unlocked := []engagement.Achievement{}
	var errs []error
	for _, category := range engagement.Categories {
		found, err := s.checkCategory(ctx, userID, category, stats)
		unlocked = append(unlocked, found...)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return unlocked, errors.Join(errs...)
}

func (s *AchievementService) checkCategory(ctx context.Context, userID uint, category engagement.Category, stats engagement.Stats) ([]engagement.Achievement, error) {
	definitions, err := s.definitions(ctx, category)
	if err != nil {
		return nil, err
	}

	var unlocked []engagement.Achievement
	for _, achievement := range definitions {
		requirement, err := achievement.Requirement()
		if err != nil {
			s.log.Warn("skip achievement with unknown requirement", "code", achievement.Code, "error", err)
			continue
		}
		ok, err := requirement.SatisfiedBy(stats)
		if err != nil {
			s.log.Warn("skip achievement", "code", achievement.Code, "error", err)
			continue
		}
		if !ok {
			continue
		}

		inserted, err := s.store.InsertUnlockIfAbsent(ctx, userID, achievement.ID, s.now())
		if err != nil {
			return unlocked, fmt.Errorf("unlock %s: %w", achievement.Code, err)
		}
		if inserted {
			s.metrics.ObserveUnlock(string(category))
			unlocked = append(unlocked, achievement)
		}
	}
	return unlocked, nil
}

func (s *AchievementService) definitions(ctx context.Context, category engagement.Category) ([]engagement.Achievement, error) {
	if cached, ok := s.catalog.Get(category); ok {
		return cached, nil
	}
	definitions, err := s.store.ListAchievementsByCategory(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("list %s achievements: %w", category, err)
	}
	s.catalog.Add(category, definitions)
	return definitions, nil
}

// Unlocked 返回用户已解锁的成就
func (s *AchievementService) Unlocked(ctx context.Context, userID uint) ([]engagement.UnlockedAchievement, error) {
	unlocks, err := s.store.ListUnlocks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list unlocks: %w", err)
	}
	return unlocks, nil
}

// Summary 返回成就总数、已解锁数与最近解锁的成就
func (s *AchievementService) Summary(ctx context.Context, userID uint) (AchievementSummary, error) {
	catalog, err := s.store.ListAchievements(ctx)
	if err != nil {
		return AchievementSummary{}, fmt.Errorf("list achievements: %w", err)
	}
	unlocks, err := s.Unlocked(ctx, userID)
	if err != nil {
		return AchievementSummary{}, err
	}

	unlockedAt := make(map[uint]time.Time, len(unlocks))
	for _, unlock := range unlocks {
		unlockedAt[unlock.ID] = unlock.UnlockedAt
	}

	summary := AchievementSummary{
		Total:            len(catalog),
		Unlocked:         len(unlocks),
		RecentlyUnlocked: unlocks[:min(len(unlocks), recentUnlockLimit)],
		Achievements:     make([]AchievementStatus, 0, len(catalog)),
	}
	for _, achievement := range catalog {
		status := AchievementStatus{Achievement: achievement}
		if at, ok := unlockedAt[achievement.ID]; ok {
			status.Unlocked = true
			status.UnlockedAt = &at
		}
		summary.Achievements = append(summary.Achievements, status)
	}
	return summary, nil
}

// FindUnlocked 按 code 查找用户已解锁的成就，未解锁时返回 ErrAchievementLocked
func (s *AchievementService) FindUnlocked(ctx context.Context, userID uint, code string) (engagement.UnlockedAchievement, error) {
	unlocks, err := s.Unlocked(ctx, userID)
	if err != nil {
		return engagement.UnlockedAchievement{}, err
	}
	for _, unlock := range unlocks {
		if unlock.Code == code {
			return unlock, nil
		}
	}
	return engagement.UnlockedAchievement{}, ErrAchievementLocked
}

// ErrAchievementLocked 表示成就不存在或尚未解锁
var ErrAchievementLocked = errors.New("achievement not unlocked")
