package db

import "time"

// UsageCounter 按 (user, period_kind) 记录提问次数。
// PeriodKey 与当前周期不一致时视为 0，由原子自增在新周期重置为 1，无需后台清理任务。
type UsageCounter struct {
	ID         uint   `gorm:"primaryKey"`
	UserID     uint   `gorm:"not null;uniqueIndex:idx_usage_user_kind"`
	PeriodKind string `gorm:"size:8;not null;uniqueIndex:idx_usage_user_kind"`
	PeriodKey  string `gorm:"size:10;not null"`
	Count      int    `gorm:"column:question_count;not null;default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName 指定自定义表名，避免自动复数化导致的歧义。
func (UsageCounter) TableName() string {
	return "usage_counters"
}

// UserStats 汇总成就判定所需的终身统计，只通过原子表达式更新。
type UserStats struct {
	ID               uint `gorm:"primaryKey"`
	UserID           uint `gorm:"uniqueIndex;not null"`
	TotalQuestions   int  `gorm:"not null;default:0"`
	ConfusionRetries int  `gorm:"not null;default:0"`
	Shares           int  `gorm:"not null;default:0"`
	LevelsMask       int  `gorm:"not null;default:0"`
	VoiceUsed        bool `gorm:"not null;default:false"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TableName 指定自定义表名。
func (UserStats) TableName() string {
	return "user_stats"
}
