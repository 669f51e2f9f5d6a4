package db

import "time"

// Achievement 是成就定义（参考数据），Code 唯一，启动时通过 EnsureAchievements 同步
type Achievement struct {
	ID               uint   `gorm:"primaryKey"`
	Code             string `gorm:"size:64;uniqueIndex;not null"`
	Title            string `gorm:"size:120;not null"`
	Description      string `gorm:"type:text"`
	Icon             string `gorm:"size:32"`
	Category         string `gorm:"size:16;index;not null"`
	RequirementType  string `gorm:"size:32;not null"`
	RequirementValue float64
	SortOrder        int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TableName 指定自定义表名
func (Achievement) TableName() string {
	return "achievements"
}

// AchievementUnlock 记录用户解锁的成就。
// (user_id, achievement_id) 唯一索引是幂等的唯一依据，并发插入时只有一条成功
type AchievementUnlock struct {
	ID            uint      `gorm:"primaryKey"`
	UserID        uint      `gorm:"not null;uniqueIndex:idx_unlock_user_achievement"`
	AchievementID uint      `gorm:"not null;uniqueIndex:idx_unlock_user_achievement"`
	UnlockedAt    time.Time `gorm:"not null;index"`
}

// TableName 指定自定义表名
func (AchievementUnlock) TableName() string {
	return "achievement_unlocks"
}
