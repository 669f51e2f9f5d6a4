package engagement

import "time"

const (
	// DefaultFreeDailyLimit free 用户每日可提问次数
	DefaultFreeDailyLimit = 5
	// DefaultStarterMonthlyLimit starter 用户每月可提问次数
	DefaultStarterMonthlyLimit = 100
	// UnlimitedQuestions premium 用户剩余次数的哨兵值
	UnlimitedQuestions = 999999
)

const (
	ReasonDailyLimit   = "daily_limit_reached"
	ReasonMonthlyLimit = "monthly_limit_reached"
)

// PeriodKind 区分按日与按月计数。
type PeriodKind string

const (
	PeriodDay   PeriodKind = "day"
	PeriodMonth PeriodKind = "month"
)

// PeriodKey 返回 UTC 下 now 所在周期的键，例如 "2025-01-11" 或 "2025-01"。
func PeriodKey(kind PeriodKind, now time.Time) string {
	utc := now.UTC()
	if kind == PeriodMonth {
		return utc.Format("2006-01")
	}
	return utc.Format("2006-01-02")
}

// PeriodResetAt 返回当前周期结束（下一周期开始）的 UTC 时刻。
func PeriodResetAt(kind PeriodKind, now time.Time) time.Time {
	utc := now.UTC()
	if kind == PeriodMonth {
		return time.Date(utc.Year(), utc.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(utc.Year(), utc.Month(), utc.Day()+1, 0, 0, 0, 0, time.UTC)
}

// UsageCounter 是 (user, periodKind) 维度的计数快照。
type UsageCounter struct {
	UserID     uint
	PeriodKind PeriodKind
	PeriodKey  string
	Count      int
}

// CountFor 在周期键过期时按 0 处理，实现惰性重置。
func (c *UsageCounter) CountFor(periodKey string) int {
	if c == nil || c.PeriodKey != periodKey || c.Count < 0 {
		return 0
	}
	return c.Count
}

// QuotaDecision 是 QuotaGate.Check 的结果
type QuotaDecision struct {
	CanAsk          bool
	Reason          string
	QuestionsLeft   int
	UpgradeRequired Tier
}

// QuotaGate 根据订阅等级和当前计数决定是否放行新的提问，本身不产生副作用。
type QuotaGate struct {
	FreeDailyLimit      int
	StarterMonthlyLimit int
}

// NewQuotaGate 构造 QuotaGate，非正数限额回退为默认值。
func NewQuotaGate(freeDailyLimit, starterMonthlyLimit int) QuotaGate {
	if freeDailyLimit <= 0 {
		freeDailyLimit = DefaultFreeDailyLimit
	}
	if starterMonthlyLimit <= 0 {
		starterMonthlyLimit = DefaultStarterMonthlyLimit
	}
	return QuotaGate{FreeDailyLimit: freeDailyLimit, StarterMonthlyLimit: starterMonthlyLimit}
}

// Limit 返回等级在对应周期下的限额，premium 返回 UnlimitedQuestions。
func (g QuotaGate) Limit(tier Tier) (PeriodKind, int) {
	switch tier {
	case TierPremium:
		return PeriodMonth, UnlimitedQuestions
	case TierStarter:
		return PeriodMonth, g.StarterMonthlyLimit
	default:
		return PeriodDay, g.FreeDailyLimit
	}
}

// Check 执行配额判断。
func (g QuotaGate) Check(tier Tier, dailyCount, monthlyCount int) QuotaDecision {
	switch tier {
	case TierPremium:
		return QuotaDecision{CanAsk: true, QuestionsLeft: UnlimitedQuestions}
	case TierStarter:
		if monthlyCount < g.StarterMonthlyLimit {
			return QuotaDecision{CanAsk: true, QuestionsLeft: g.StarterMonthlyLimit - monthlyCount}
		}
		return QuotaDecision{Reason: ReasonMonthlyLimit, UpgradeRequired: TierPremium}
	default:
		if dailyCount < g.FreeDailyLimit {
			return QuotaDecision{CanAsk: true, QuestionsLeft: g.FreeDailyLimit - dailyCount}
		}
		return QuotaDecision{Reason: ReasonDailyLimit, UpgradeRequired: TierStarter}
	}
}
