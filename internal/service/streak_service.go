package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/explainer/internal/db"
	"github.com/explainer/internal/engagement"
	"github.com/explainer/internal/logger"
)

const (
	// maxStreakSwapAttempts 限制比较交换失败后的重读次数
	maxStreakSwapAttempts = 5
	// calendarDays 是连续天数日历展示的天数
	calendarDays = 30
)

// ErrStreakContention 表示并发写入导致多次比较交换都未成功
var ErrStreakContention = errors.New("streak update contention")

// StreakService 维护连续活跃天数，写入以 last_activity_date 为条件，同日只推进一次
type StreakService struct {
	store db.StreakStore
	log   *logger.Logger
	now   func() time.Time
}

// CalendarDay 是日历中的一天
type CalendarDay struct {
	Date   string `json:"date"`
	Active bool   `json:"active"`
}

// StreakSummary 是面向界面的连续天数汇总
type StreakSummary struct {
	Current          int           `json:"current"`
	Longest          int           `json:"longest"`
	LastActivityDate string        `json:"last_activity_date,omitempty"`
	Calendar         []CalendarDay `json:"calendar"`
}

// NewStreakService 构造 StreakService
func NewStreakService(store db.StreakStore, log *logger.Logger) *StreakService {
	if log == nil {
		log = logger.NewNop()
	}
	return &StreakService{store: store, log: log, now: time.Now}
}

// SetClock 替换时间来源，主要用于测试
func (s *StreakService) SetClock(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	s.now = now
}

// Update 按 today 推进用户的连续天数并返回计算结果。
// 读取到违反不变量的记录时修正后写回；比较交换失败说明有并发写入，重读后重算。
func (s *StreakService) Update(ctx context.Context, userID uint, today time.Time) (engagement.StreakUpdate, error) {
	today = engagement.NormalizeDate(today)

	for attempt := 0; attempt < maxStreakSwapAttempts; attempt++ {
		record, err := s.store.GetStreak(ctx, userID)
		if err != nil {
			return engagement.StreakUpdate{}, fmt.Errorf("load streak: %w", err)
		}

		if record != nil && record.UnparsedDate != "" {
			update, done, err := s.repair(ctx, *record, today)
			if err != nil || done {
				return update, err
			}
			continue
		}

		var (
			expected         time.Time
			current, longest int
		)
		if record != nil {
			if err := record.Validate(); err != nil {
				s.log.Warn("streak record violates invariant, clamping on write",
					"user_id", userID, "current", record.CurrentStreak, "longest", record.LongestStreak, "error", err)
			}
			expected = record.LastActivityDate
			current = max(record.CurrentStreak, 0)
			longest = max(record.LongestStreak, 0)
		}

		update := engagement.CalculateNewStreak(expected, today, current, longest)
		if !update.Changed {
			if record != nil && record.LongestStreak < record.CurrentStreak {
				if err := s.store.UpsertStreak(ctx, engagement.StreakRecord{
					UserID:           userID,
					CurrentStreak:    update.CurrentStreak,
					LongestStreak:    update.LongestStreak,
					LastActivityDate: record.LastActivityDate,
				}); err != nil {
					return update, fmt.Errorf("heal streak: %w", err)
				}
			}
			return update, nil
		}

		swapped, err := s.store.CompareAndSwapStreak(ctx, expected, engagement.StreakRecord{
			UserID:           userID,
			CurrentStreak:    update.CurrentStreak,
			LongestStreak:    update.LongestStreak,
			LastActivityDate: today,
		})
		if err != nil {
			return engagement.StreakUpdate{}, fmt.Errorf("write streak: %w", err)
		}
		if swapped {
			return update, nil
		}
	}

	return engagement.StreakUpdate{}, ErrStreakContention
}

// repair 把日期损坏的记录按断签处理并写回，done 为 false 表示已被并发写入覆盖，需要重读
func (s *StreakService) repair(ctx context.Context, record engagement.StreakRecord, today time.Time) (engagement.StreakUpdate, bool, error) {
	s.log.Warn("streak record has unparsable last activity date, resetting current streak",
		"user_id", record.UserID, "last_activity_date", record.UnparsedDate)

	update := engagement.BrokenStreak(max(record.LongestStreak, record.CurrentStreak))
	swapped, err := s.store.RepairStreak(ctx, record.UnparsedDate, engagement.StreakRecord{
		UserID:           record.UserID,
		CurrentStreak:    update.CurrentStreak,
		LongestStreak:    update.LongestStreak,
		LastActivityDate: today,
	})
	if err != nil {
		return engagement.StreakUpdate{}, false, fmt.Errorf("repair streak: %w", err)
	}
	return update, swapped, nil
}

// RecordActivity 记录活跃日期，用于日历展示
func (s *StreakService) RecordActivity(ctx context.Context, userID uint, day time.Time) error {
	if err := s.store.RecordActivityDay(ctx, userID, engagement.NormalizeDate(day)); err != nil {
		return fmt.Errorf("record activity day: %w", err)
	}
	return nil
}

// Summary 返回当前与最长连续天数以及最近 30 天的活跃日历。
// 上次活跃早于昨天时，当前连续天数按 0 展示，记录本身等到下次活跃再重置。
func (s *StreakService) Summary(ctx context.Context, userID uint) (StreakSummary, error) {
	today := engagement.NormalizeDate(s.now())

	record, err := s.store.GetStreak(ctx, userID)
	if err != nil {
		return StreakSummary{}, fmt.Errorf("load streak: %w", err)
	}

	summary := StreakSummary{}
	if record != nil {
		summary.Current = record.CurrentStreak
		summary.Longest = max(record.LongestStreak, record.CurrentStreak)
		if record.UnparsedDate != "" {
			summary.Current = 0
		}
		if !record.LastActivityDate.IsZero() {
			summary.LastActivityDate = record.LastActivityDate.Format(engagement.DateLayout)
			if engagement.DaysBetween(record.LastActivityDate, today) > 1 {
				summary.Current = 0
			}
		}
	}

	from := today.AddDate(0, 0, -(calendarDays - 1))
	days, err := s.store.ListActivityDays(ctx, userID, from, today)
	if err != nil {
		return StreakSummary{}, fmt.Errorf("load activity days: %w", err)
	}

	active := make(map[string]bool, len(days))
	for _, day := range days {
		active[day.Format(engagement.DateLayout)] = true
	}

	summary.Calendar = make([]CalendarDay, 0, calendarDays)
	for day := from; !day.After(today); day = day.AddDate(0, 0, 1) {
		key := day.Format(engagement.DateLayout)
		summary.Calendar = append(summary.Calendar, CalendarDay{Date: key, Active: active[key]})
	}
	return summary, nil
}
