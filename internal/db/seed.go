package db

import (
	"fmt"

	"github.com/explainer/internal/engagement"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultAchievements 是内置的成就目录，按 Code 幂等同步到数据库
var DefaultAchievements = []Achievement{
	{Code: "streak_3", Title: "Warming Up", Description: "Learn something three days in a row.", Icon: "flame", Category: string(engagement.CategoryStreak), RequirementType: "streak", RequirementValue: 3, SortOrder: 10},
	{Code: "streak_7", Title: "Week of Wonder", Description: "Keep a seven day learning streak.", Icon: "flame", Category: string(engagement.CategoryStreak), RequirementType: "streak", RequirementValue: 7, SortOrder: 11},
	{Code: "streak_30", Title: "Curiosity Habit", Description: "Keep a thirty day learning streak.", Icon: "trophy", Category: string(engagement.CategoryStreak), RequirementType: "streak", RequirementValue: 30, SortOrder: 12},
	{Code: "first_question", Title: "First Question", Description: "Ask your very first question.", Icon: "spark", Category: string(engagement.CategoryLearning), RequirementType: "questions_total", RequirementValue: 1, SortOrder: 20},
	{Code: "questions_10", Title: "Curious Mind", Description: "Ask ten questions.", Icon: "bulb", Category: string(engagement.CategoryLearning), RequirementType: "questions_total", RequirementValue: 10, SortOrder: 21},
	{Code: "questions_100", Title: "Knowledge Seeker", Description: "Ask one hundred questions.", Icon: "book", Category: string(engagement.CategoryLearning), RequirementType: "questions_total", RequirementValue: 100, SortOrder: 22},
	{Code: "honest_learner", Title: "Honest Learner", Description: "Tell us when an explanation did not land.", Icon: "hand", Category: string(engagement.CategoryLearning), RequirementType: "confusion_retries", RequirementValue: 1, SortOrder: 23},
	{Code: "first_share", Title: "Show and Tell", Description: "Share an explanation with someone.", Icon: "share", Category: string(engagement.CategorySocial), RequirementType: "shares_total", RequirementValue: 1, SortOrder: 30},
	{Code: "shares_10", Title: "Explainer in Chief", Description: "Share ten explanations.", Icon: "megaphone", Category: string(engagement.CategorySocial), RequirementType: "shares_total", RequirementValue: 10, SortOrder: 31},
	{Code: "level_hopper", Title: "Level Hopper", Description: "Try every explanation level.", Icon: "ladder", Category: string(engagement.CategoryExploration), RequirementType: "levels_tried", RequirementValue: 3, SortOrder: 40},
	{Code: "voice_explorer", Title: "Say It Out Loud", Description: "Ask a question with your voice.", Icon: "mic", Category: string(engagement.CategoryExploration), RequirementType: "voice_used", RequirementValue: 1, SortOrder: 41},
}

// EnsureAchievements 按 Code upsert 内置成就，已存在的定义会被覆盖为最新文案与条件
func EnsureAchievements(gdb *gorm.DB) error {
	if gdb == nil {
		return fmt.Errorf("ensure achievements: database not initialized")
	}

	rows := make([]Achievement, len(DefaultAchievements))
	copy(rows, DefaultAchievements)

	if err := gdb.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "description", "icon", "category", "requirement_type", "requirement_value", "sort_order", "updated_at",
		}),
	}).Create(&rows).Error; err != nil {
		return fmt.Errorf("ensure achievements: %w", err)
	}
	return nil
}
