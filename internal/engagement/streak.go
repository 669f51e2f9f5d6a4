package engagement

import (
	"fmt"
	"slices"
	"time"
)

// DateLayout 是活跃日期的存储格式
const DateLayout = "2006-01-02"

// Milestones 是触发庆祝事件的固定连续天数。
var Milestones = []int{3, 7, 14, 30, 50, 100, 365}

// StreakRecord 记录用户的连续活跃状态，LastActivityDate 为零值表示从未活跃。
type StreakRecord struct {
	UserID           uint
	CurrentStreak    int
	LongestStreak    int
	LastActivityDate time.Time
	// UnparsedDate 保存库中无法解析的日期原文，非空时 LastActivityDate 为零值
	UnparsedDate     string
}

// Validate 检查 longest >= current 等不变量。
func (r StreakRecord) Validate() error {
	if r.CurrentStreak < 0 || r.LongestStreak < 0 {
		return fmt.Errorf("%w: negative streak for user %d", ErrInvalidState, r.UserID)
	}
	if r.LongestStreak < r.CurrentStreak {
		return fmt.Errorf("%w: longest streak %d below current %d for user %d",
			ErrInvalidState, r.LongestStreak, r.CurrentStreak, r.UserID)
	}
	return nil
}

// StreakUpdate 是一次连续天数计算的结果。
type StreakUpdate struct {
	CurrentStreak    int  `json:"current_streak"`
	LongestStreak    int  `json:"longest_streak"`
	IsNewRecord      bool `json:"is_new_record"`
	MilestoneReached bool `json:"milestone_reached"`
	MilestoneValue   int  `json:"milestone_value,omitempty"`
	// Changed 为 false 时表示同日重复活动，无需写入
	Changed bool `json:"-"`
}

// NormalizeDate 截断到 UTC 日历日期。
func NormalizeDate(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween 返回两个日历日期之间相差的整天数。
func DaysBetween(from, to time.Time) int {
	return int(NormalizeDate(to).Sub(NormalizeDate(from)).Hours() / 24)
}

// IsMilestone 判断 streak 是否恰好为里程碑之一。
func IsMilestone(streak int) bool {
	return slices.Contains(Milestones, streak)
}

// CalculateNewStreak 根据上次活跃日期与今天计算新的连续天数。
// lastActivityDate 为零值表示首次活跃；今天早于上次活跃日期时按同日处理。
func CalculateNewStreak(lastActivityDate, today time.Time, currentStreak, longestStreak int) StreakUpdate {
	longestStreak = max(longestStreak, currentStreak)

	if lastActivityDate.IsZero() {
		return withMilestone(StreakUpdate{CurrentStreak: 1, LongestStreak: max(1, longestStreak), IsNewRecord: true, Changed: true})
	}

	daysDiff := DaysBetween(lastActivityDate, today)
	switch {
	case daysDiff <= 0:
		return StreakUpdate{CurrentStreak: currentStreak, LongestStreak: longestStreak}
	case daysDiff == 1:
		next := currentStreak + 1
		return withMilestone(StreakUpdate{
			CurrentStreak: next,
			LongestStreak: max(next, longestStreak),
			IsNewRecord:   next > longestStreak,
			Changed:       true,
		})
	default:
		return BrokenStreak(longestStreak)
	}
}

// BrokenStreak 返回断签后重新计数的结果，保留历史最长记录
func BrokenStreak(longestStreak int) StreakUpdate {
	longestStreak = max(longestStreak, 0)
	return withMilestone(StreakUpdate{
		CurrentStreak: 1,
		LongestStreak: max(1, longestStreak),
		IsNewRecord:   longestStreak < 1,
		Changed:       true,
	})
}

func withMilestone(update StreakUpdate) StreakUpdate {
	if IsMilestone(update.CurrentStreak) {
		update.MilestoneReached = true
		update.MilestoneValue = update.CurrentStreak
	}
	return update
}
