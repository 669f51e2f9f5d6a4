package db

import (
	"context"
	"errors"
	"time"

	"github.com/explainer/internal/engagement"
)

// ErrUserNotFound 在用户不存在时返回
var ErrUserNotFound = errors.New("user not found")

// StoreError 包装存储层的基础设施错误，errors.Is 可匹配 engagement.ErrStoreUnavailable。
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap 同时暴露 ErrStoreUnavailable 与底层错误
func (e *StoreError) Unwrap() []error {
	return []error{engagement.ErrStoreUnavailable, e.Err}
}

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// CounterStore 是按周期计数的存储，IncrementCounter 必须是原子的
type CounterStore interface {
	GetCounter(ctx context.Context, userID uint, kind engagement.PeriodKind) (*engagement.UsageCounter, error)
	IncrementCounter(ctx context.Context, userID uint, kind engagement.PeriodKind, periodKey string) (int, error)
}

// TierSource 读取用户当前的订阅等级
type TierSource interface {
	GetTier(ctx context.Context, userID uint) (engagement.Tier, error)
}

// StreakStore 读写连续天数与活跃日历
type StreakStore interface {
	GetStreak(ctx context.Context, userID uint) (*engagement.StreakRecord, error)
	UpsertStreak(ctx context.Context, record engagement.StreakRecord) error
	// CompareAndSwapStreak 仅当库中 last_activity_date 等于 expectedLastActivity 时写入；
	// expectedLastActivity 为零值表示期望记录尚不存在。
	CompareAndSwapStreak(ctx context.Context, expectedLastActivity time.Time, record engagement.StreakRecord) (bool, error)
	// RepairStreak 以库中无法解析的日期原文为条件覆盖记录
	RepairStreak(ctx context.Context, unparsedDate string, record engagement.StreakRecord) (bool, error)
	RecordActivityDay(ctx context.Context, userID uint, day time.Time) error
	ListActivityDays(ctx context.Context, userID uint, from, to time.Time) ([]time.Time, error)
}

// AchievementStore 读取成就目录并写入解锁记录
type AchievementStore interface {
	ListAchievements(ctx context.Context) ([]engagement.Achievement, error)
	ListAchievementsByCategory(ctx context.Context, category engagement.Category) ([]engagement.Achievement, error)
	InsertUnlockIfAbsent(ctx context.Context, userID, achievementID uint, unlockedAt time.Time) (bool, error)
	ListUnlocks(ctx context.Context, userID uint) ([]engagement.UnlockedAchievement, error)
}

// QuestionActivity 描述一次成功问答对终身统计的增量
type QuestionActivity struct {
	Level    engagement.Level
	Confused bool
	Voice    bool
}

// StatsStore 维护终身统计
type StatsStore interface {
	GetStats(ctx context.Context, userID uint) (engagement.Stats, error)
	RecordQuestionStats(ctx context.Context, userID uint, activity QuestionActivity) error
	IncrementShares(ctx context.Context, userID uint) (int, error)
}

// HistoryStore 保存问答历史
type HistoryStore interface {
	AppendQuestionLog(ctx context.Context, entry QuestionLog) error
	RecentQuestions(ctx context.Context, userID uint, limit int) ([]QuestionLog, error)
}

// Store 汇总核心逻辑依赖的全部存储能力
type Store interface {
	CounterStore
	TierSource
	StreakStore
	AchievementStore
	StatsStore
	HistoryStore
}

type routedStore struct {
	Store
	counters CounterStore
}

// WithCounterStore 返回一个将计数读写转发到 counters 的 Store，其余能力仍由 base 提供
func WithCounterStore(base Store, counters CounterStore) Store {
	if counters == nil {
		return base
	}
	return &routedStore{Store: base, counters: counters}
}

func (s *routedStore) GetCounter(ctx context.Context, userID uint, kind engagement.PeriodKind) (*engagement.UsageCounter, error) {
	return s.counters.GetCounter(ctx, userID, kind)
}

func (s *routedStore) IncrementCounter(ctx context.Context, userID uint, kind engagement.PeriodKind, periodKey string) (int, error) {
	return s.counters.IncrementCounter(ctx, userID, kind, periodKey)
}
