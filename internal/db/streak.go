package db

import "time"

// Streak 记录用户的连续活跃天数
// UserID 唯一，每个用户一行；LastActivityDate 使用 YYYY-MM-DD，空串表示尚未活跃
// 更新时以 LastActivityDate 作为比较交换条件，保证同一天只推进一次
type Streak struct {
	ID               uint   `gorm:"primaryKey"`
	UserID           uint   `gorm:"uniqueIndex;not null"`
	CurrentStreak    int    `gorm:"not null;default:0"`
	LongestStreak    int    `gorm:"not null;default:0"`
	LastActivityDate string `gorm:"size:10;not null;default:''"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TableName 指定自定义表名
func (Streak) TableName() string {
	return "streaks"
}

// ActivityDay 记录用户有成功问答的日期，User + Day 唯一索引保证幂等
type ActivityDay struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"not null;uniqueIndex:idx_activity_user_day"`
	Day       string `gorm:"size:10;not null;uniqueIndex:idx_activity_user_day"`
	CreatedAt time.Time
}

// TableName 指定自定义表名
func (ActivityDay) TableName() string {
	return "activity_days"
}
