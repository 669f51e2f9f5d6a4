package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/explainer/internal/engagement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreakServiceUpdateSequence(t *testing.T) {
	env := newTestEnv(t, engagement.TierFree)
	svc := NewStreakService(env.store, newTestLogger())
	ctx := context.Background()
	day := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)

	first, err := svc.Update(ctx, env.user.ID, day)
	require.NoError(t, err)
	assert.Equal(t, 1, first.CurrentStreak)
	assert.True(t, first.IsNewRecord)

	again, err := svc.Update(ctx, env.user.ID, day.Add(5*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, again.CurrentStreak)
	assert.False(t, again.Changed)
	assert.False(t, again.IsNewRecord)

	next, err := svc.Update(ctx, env.user.ID, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, next.CurrentStreak)
	assert.Equal(t, 2, next.LongestStreak)

	third, err := svc.Update(ctx, env.user.ID, day.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.True(t, third.MilestoneReached)
	assert.Equal(t, 3, third.MilestoneValue)

	broken, err := svc.Update(ctx, env.user.ID, day.AddDate(0, 0, 5))
	require.NoError(t, err)
	assert.Equal(t, 1, broken.CurrentStreak)
	assert.Equal(t, 3, broken.LongestStreak)
	assert.False(t, broken.IsNewRecord)

	record, err := env.store.GetStreak(ctx, env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-15", record.LastActivityDate.Format(engagement.DateLayout))
}

func TestStreakServiceConcurrentSameDayIncrementsOnce(t *testing.T) {
	env := newTestEnv(t, engagement.TierFree)
	svc := NewStreakService(env.store, newTestLogger())
	ctx := context.Background()
	yesterday := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, env.store.UpsertStreak(ctx, engagement.StreakRecord{
		UserID: env.user.ID, CurrentStreak: 6, LongestStreak: 10, LastActivityDate: yesterday,
	}))

	const workers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	changed := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			update, err := svc.Update(ctx, env.user.ID, yesterday.AddDate(0, 0, 1))
			if err != nil {
				t.Errorf("update failed: %v", err)
				return
			}
			assert.Equal(t, 7, update.CurrentStreak)
			if update.Changed {
				mu.Lock()
				changed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, changed)
	record, err := env.store.GetStreak(ctx, env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, record.CurrentStreak)
	assert.Equal(t, 10, record.LongestStreak)
}

func TestStreakServiceHealsInvalidState(t *testing.T) {
	env := newTestEnv(t, engagement.TierFree)
	svc := NewStreakService(env.store, newTestLogger())
	ctx := context.Background()
	today := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, env.gdb.Exec(
		"INSERT INTO streaks (user_id, current_streak, longest_streak, last_activity_date, created_at, updated_at) VALUES (?, 5, 2, ?, ?, ?)",
		env.user.ID, today.Format(engagement.DateLayout), today, today,
	).Error)

	update, err := svc.Update(ctx, env.user.ID, today)
	require.NoError(t, err)
	assert.Equal(t, 5, update.LongestStreak)

	record, err := env.store.GetStreak(ctx, env.user.ID)
	require.NoError(t, err)
	assert.NoError(t, record.Validate())
}

func TestStreakServiceRepairsUnparsableDate(t *testing.T) {
	env := newTestEnv(t, engagement.TierFree)
	svc := NewStreakService(env.store, newTestLogger())
	ctx := context.Background()
	today := time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return today })

	require.NoError(t, env.gdb.Exec(
		"INSERT INTO streaks (user_id, current_streak, longest_streak, last_activity_date, created_at, updated_at) VALUES (?, 4, 9, ?, ?, ?)",
		env.user.ID, "2025/01/10", today, today,
	).Error)

	summary, err := svc.Summary(ctx, env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Current)
	assert.Equal(t, 9, summary.Longest)

	stats, err := NewAchievementService(env.store, newTestLogger(), nil).Stats(ctx, env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, stats.LongestStreak)

	repaired, err := svc.Update(ctx, env.user.ID, today)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired.CurrentStreak)
	assert.Equal(t, 9, repaired.LongestStreak)
	assert.True(t, repaired.Changed)
	assert.False(t, repaired.IsNewRecord)

	record, err := env.store.GetStreak(ctx, env.user.ID)
	require.NoError(t, err)
	assert.Empty(t, record.UnparsedDate)
	assert.Equal(t, "2025-01-12", record.LastActivityDate.Format(engagement.DateLayout))

	next, err := svc.Update(ctx, env.user.ID, today.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, next.CurrentStreak)
	assert.Equal(t, 9, next.LongestStreak)
}

func TestStreakServiceSummaryCalendar(t *testing.T) {
	env := newTestEnv(t, engagement.TierFree)
	svc := NewStreakService(env.store, newTestLogger())
	today := time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return today })
	ctx := context.Background()

	for _, offset := range []int{-40, -29, -1, 0} {
		day := today.AddDate(0, 0, offset)
		require.NoError(t, svc.RecordActivity(ctx, env.user.ID, day))
	}
	_, err := svc.Update(ctx, env.user.ID, today.AddDate(0, 0, -1))
	require.NoError(t, err)
	_, err = svc.Update(ctx, env.user.ID, today)
	require.NoError(t, err)

	summary, err := svc.Summary(ctx, env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Current)
	assert.Equal(t, 2, summary.Longest)
	require.Len(t, summary.Calendar, 30)
	assert.Equal(t, "2025-01-02", summary.Calendar[0].Date)
	assert.True(t, summary.Calendar[0].Active)
	assert.False(t, summary.Calendar[1].Active)
	assert.True(t, summary.Calendar[28].Active)
	assert.True(t, summary.Calendar[29].Active)
	assert.Equal(t, "2025-01-31", summary.Calendar[29].Date)
}

func TestStreakServiceSummaryShowsBrokenStreakAsZero(t *testing.T) {
	env := newTestEnv(t, engagement.TierFree)
	svc := NewStreakService(env.store, newTestLogger())
	ctx := context.Background()
	svc.SetClock(func() time.Time { return time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC) })

	require.NoError(t, env.store.UpsertStreak(ctx, engagement.StreakRecord{
		UserID: env.user.ID, CurrentStreak: 4, LongestStreak: 9, LastActivityDate: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
	}))

	summary, err := svc.Summary(ctx, env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Current)
	assert.Equal(t, 9, summary.Longest)
	assert.Equal(t, "2025-01-15", summary.LastActivityDate)
}
