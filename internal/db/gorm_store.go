package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/explainer/internal/engagement"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore 基于 gorm 实现 Store，所有计数都通过单条 upsert 原子完成
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore 构造 GormStore
func NewGormStore(gdb *gorm.DB) *GormStore {
	return &GormStore{db: gdb, now: time.Now}
}

// GetTier 读取用户订阅等级
func (s *GormStore) GetTier(ctx context.Context, userID uint) (engagement.Tier, error) {
	var user User
	if err := s.db.WithContext(ctx).Select("id", "tier").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return engagement.TierFree, ErrUserNotFound
		}
		return engagement.TierFree, storeErr("get tier", err)
	}
	return engagement.ParseTier(user.Tier), nil
}

// GetCounter 读取计数行，不存在时返回 nil
func (s *GormStore) GetCounter(ctx context.Context, userID uint, kind engagement.PeriodKind) (*engagement.UsageCounter, error) {
	var row UsageCounter
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND period_kind = ?", userID, string(kind)).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get counter", err)
	}
	return &engagement.UsageCounter{
		UserID:     row.UserID,
		PeriodKind: engagement.PeriodKind(row.PeriodKind),
		PeriodKey:  row.PeriodKey,
		Count:      row.Count,
	}, nil
}

// IncrementCounter 原子自增并返回新值；periodKey 变化时计数从 1 重新开始
func (s *GormStore) IncrementCounter(ctx context.Context, userID uint, kind engagement.PeriodKind, periodKey string) (int, error) {
	var count int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := UsageCounter{UserID: userID, PeriodKind: string(kind), PeriodKey: periodKey, Count: 1}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "period_kind"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"question_count": gorm.Expr("CASE WHEN usage_counters.period_key = excluded.period_key THEN usage_counters.question_count + 1 ELSE 1 END"),
				"period_key":     gorm.Expr("excluded.period_key"),
				"updated_at":     s.now(),
			}),
		}).Create(&row).Error; err != nil {
			return err
		}

		return tx.Model(&UsageCounter{}).
			Select("question_count").
			Where("user_id = ? AND period_kind = ?", userID, string(kind)).
			Scan(&count).Error
	})
	if err != nil {
		return 0, storeErr("increment counter", err)
	}
	return count, nil
}

// GetStreak 读取连续天数记录，不存在时返回 nil
func (s *GormStore) GetStreak(ctx context.Context, userID uint) (*engagement.StreakRecord, error) {
	var row Streak
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get streak", err)
	}

	record := &engagement.StreakRecord{
		UserID:        row.UserID,
		CurrentStreak: row.CurrentStreak,
		LongestStreak: row.LongestStreak,
	}
	if row.LastActivityDate != "" {
		last, err := time.Parse(engagement.DateLayout, row.LastActivityDate)
		if err != nil {
			// 日期损坏时仍返回记录，由下次写入修复
			record.UnparsedDate = row.LastActivityDate
		} else {
			record.LastActivityDate = last
		}
	}
	return record, nil
}

// UpsertStreak 无条件写入连续天数记录，写入前修正 longest < current
func (s *GormStore) UpsertStreak(ctx context.Context, record engagement.StreakRecord) error {
	row := streakRow(record)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"current_streak", "longest_streak", "last_activity_date", "updated_at"}),
	}).Create(&row).Error
	return storeErr("upsert streak", err)
}

// CompareAndSwapStreak 以 last_activity_date 为条件写入，返回是否写入成功
func (s *GormStore) CompareAndSwapStreak(ctx context.Context, expectedLastActivity time.Time, record engagement.StreakRecord) (bool, error) {
	row := streakRow(record)

	expectedKey := ""
	if expectedLastActivity.IsZero() {
		result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).Create(&row)
		if result.Error != nil {
			return false, storeErr("insert streak", result.Error)
		}
		if result.RowsAffected == 1 {
			return true, nil
		}
		// 行已存在但从未活跃，继续按空日期比较
	} else {
		expectedKey = expectedLastActivity.UTC().Format(engagement.DateLayout)
	}

	return s.swapStreak(ctx, expectedKey, row)
}

// RepairStreak 覆盖日期无法解析的记录，仅当库中日期仍为 unparsedDate 时写入
func (s *GormStore) RepairStreak(ctx context.Context, unparsedDate string, record engagement.StreakRecord) (bool, error) {
	if unparsedDate == "" {
		return false, fmt.Errorf("%w: empty unparsed date for user %d", engagement.ErrInvalidState, record.UserID)
	}
	return s.swapStreak(ctx, unparsedDate, streakRow(record))
}

func (s *GormStore) swapStreak(ctx context.Context, expectedKey string, row Streak) (bool, error) {
	result := s.db.WithContext(ctx).Model(&Streak{}).
		Where("user_id = ? AND last_activity_date = ?", row.UserID, expectedKey).
		Updates(map[string]interface{}{
			"current_streak":     row.CurrentStreak,
			"longest_streak":     row.LongestStreak,
			"last_activity_date": row.LastActivityDate,
			"updated_at":         s.now(),
		})
	if result.Error != nil {
		return false, storeErr("swap streak", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func streakRow(record engagement.StreakRecord) Streak {
	row := Streak{
		UserID:        record.UserID,
		CurrentStreak: record.CurrentStreak,
		LongestStreak: max(record.LongestStreak, record.CurrentStreak),
	}
	if !record.LastActivityDate.IsZero() {
		row.LastActivityDate = record.LastActivityDate.UTC().Format(engagement.DateLayout)
	}
	return row
}

// RecordActivityDay 幂等记录活跃日期
func (s *GormStore) RecordActivityDay(ctx context.Context, userID uint, day time.Time) error {
	row := ActivityDay{UserID: userID, Day: day.UTC().Format(engagement.DateLayout)}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "day"}},
		DoNothing: true,
	}).Create(&row).Error
	return storeErr("record activity day", err)
}

// ListActivityDays 返回区间内（含首尾）的活跃日期，按日期升序
func (s *GormStore) ListActivityDays(ctx context.Context, userID uint, from, to time.Time) ([]time.Time, error) {
	var days []string
	if err := s.db.WithContext(ctx).Model(&ActivityDay{}).
		Where("user_id = ?", userID).
		Where("day BETWEEN ? AND ?", from.UTC().Format(engagement.DateLayout), to.UTC().Format(engagement.DateLayout)).
		Order("day ASC").
		Pluck("day", &days).Error; err != nil {
		return nil, storeErr("list activity days", err)
	}

	result := make([]time.Time, 0, len(days))
	for _, raw := range days {
		parsed, err := time.Parse(engagement.DateLayout, raw)
		if err != nil {
			continue
		}
		result = append(result, parsed)
	}
	return result, nil
}

// ListAchievements 返回完整成就目录
func (s *GormStore) ListAchievements(ctx context.Context) ([]engagement.Achievement, error) {
	var rows []Achievement
	if err := s.db.WithContext(ctx).Order("sort_order ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, storeErr("list achievements", err)
	}
	return toAchievements(rows), nil
}

// ListAchievementsByCategory 返回指定分类的成就定义
func (s *GormStore) ListAchievementsByCategory(ctx context.Context, category engagement.Category) ([]engagement.Achievement, error) {
	var rows []Achievement
	if err := s.db.WithContext(ctx).
		Where("category = ?", string(category)).
		Order("sort_order ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, storeErr("list achievements by category", err)
	}
	return toAchievements(rows), nil
}

// InsertUnlockIfAbsent 依赖唯一索引插入解锁记录，已存在时返回 false 且不报错
func (s *GormStore) InsertUnlockIfAbsent(ctx context.Context, userID, achievementID uint, unlockedAt time.Time) (bool, error) {
	row := AchievementUnlock{UserID: userID, AchievementID: achievementID, UnlockedAt: unlockedAt.UTC()}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "achievement_id"}},
		DoNothing: true,
	}).Create(&row)
	if result.Error != nil {
		return false, storeErr("insert unlock", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// ListUnlocks 返回用户已解锁的成就，最近解锁的排在前面
func (s *GormStore) ListUnlocks(ctx context.Context, userID uint) ([]engagement.UnlockedAchievement, error) {
	type unlockRow struct {
		Achievement
		UnlockedAt time.Time
	}

	var rows []unlockRow
	if err := s.db.WithContext(ctx).Table("achievement_unlocks").
		Select("achievements.*, achievement_unlocks.unlocked_at AS unlocked_at").
		Joins("JOIN achievements ON achievements.id = achievement_unlocks.achievement_id").
		Where("achievement_unlocks.user_id = ?", userID).
		Order("achievement_unlocks.unlocked_at DESC, achievements.sort_order ASC").
		Scan(&rows).Error; err != nil {
		return nil, storeErr("list unlocks", err)
	}

	result := make([]engagement.UnlockedAchievement, 0, len(rows))
	for _, row := range rows {
		result = append(result, engagement.UnlockedAchievement{
			Achievement: toAchievement(row.Achievement),
			UnlockedAt:  row.UnlockedAt,
		})
	}
	return result, nil
}

func toAchievements(rows []Achievement) []engagement.Achievement {
	result := make([]engagement.Achievement, 0, len(rows))
	for _, row := range rows {
		result = append(result, toAchievement(row))
	}
	return result
}

func toAchievement(row Achievement) engagement.Achievement {
	return engagement.Achievement{
		ID:               row.ID,
		Code:             row.Code,
		Title:            row.Title,
		Description:      row.Description,
		Icon:             row.Icon,
		Category:         engagement.Category(row.Category),
		RequirementType:  row.RequirementType,
		RequirementValue: row.RequirementValue,
	}
}

// GetStats 读取终身统计，不存在时返回零值
func (s *GormStore) GetStats(ctx context.Context, userID uint) (engagement.Stats, error) {
	var row UserStats
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return engagement.Stats{}, nil
	}
	if err != nil {
		return engagement.Stats{}, storeErr("get stats", err)
	}
	return engagement.Stats{
		TotalQuestions:   row.TotalQuestions,
		Shares:           row.Shares,
		ConfusionRetries: row.ConfusionRetries,
		LevelsMask:       row.LevelsMask,
		VoiceUsed:        row.VoiceUsed,
	}, nil
}

// RecordQuestionStats 原子累加一次成功问答带来的统计变化
func (s *GormStore) RecordQuestionStats(ctx context.Context, userID uint, activity QuestionActivity) error {
	row := UserStats{
		UserID:         userID,
		TotalQuestions: 1,
		LevelsMask:     activity.Level.Bit(),
		VoiceUsed:      activity.Voice,
	}
	if activity.Confused {
		row.ConfusionRetries = 1
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total_questions":   gorm.Expr("user_stats.total_questions + 1"),
			"confusion_retries": gorm.Expr("user_stats.confusion_retries + excluded.confusion_retries"),
			"levels_mask":       gorm.Expr("user_stats.levels_mask | excluded.levels_mask"),
			"voice_used":        gorm.Expr("user_stats.voice_used OR excluded.voice_used"),
			"updated_at":        s.now(),
		}),
	}).Create(&row).Error
	return storeErr("record question stats", err)
}

// IncrementShares 原子累加分享次数并返回新值
func (s *GormStore) IncrementShares(ctx context.Context, userID uint) (int, error) {
	var shares int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := UserStats{UserID: userID, Shares: 1}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"shares":     gorm.Expr("user_stats.shares + 1"),
				"updated_at": s.now(),
			}),
		}).Create(&row).Error; err != nil {
			return err
		}
		return tx.Model(&UserStats{}).Select("shares").Where("user_id = ?", userID).Scan(&shares).Error
	})
	if err != nil {
		return 0, storeErr("increment shares", err)
	}
	return shares, nil
}

// AppendQuestionLog 追加问答历史
func (s *GormStore) AppendQuestionLog(ctx context.Context, entry QuestionLog) error {
	return storeErr("append question log", s.db.WithContext(ctx).Create(&entry).Error)
}

// RecentQuestions 返回最近的问答历史，最新的在前
func (s *GormStore) RecentQuestions(ctx context.Context, userID uint, limit int) ([]QuestionLog, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []QuestionLog
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, storeErr("recent questions", err)
	}
	return rows, nil
}
