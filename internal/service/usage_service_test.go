package service

import (
	"context"
	"testing"
	"time"

	"github.com/explainer/internal/engagement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsageServiceCheckFreeTier(t *testing.T) {
	env := newTestEnv(t, engagement.TierFree)
	svc := NewUsageService(env.store, engagement.NewQuotaGate(2, 100))
	clock := &fixedClock{now: time.Date(2025, 1, 11, 9, 0, 0, 0, time.UTC)}
	svc.SetClock(clock.Now)
	ctx := context.Background()

	check, err := svc.Check(ctx, env.user.ID)
	require.NoError(t, err)
	assert.True(t, check.Decision.CanAsk)
	assert.Equal(t, 2, check.Decision.QuestionsLeft)

	require.NoError(t, svc.Record(ctx, env.user.ID, clock.Now()))
	require.NoError(t, svc.Record(ctx, env.user.ID, clock.Now()))

	check, err = svc.Check(ctx, env.user.ID)
	require.NoError(t, err)
	assert.False(t, check.Decision.CanAsk)
	assert.Equal(t, engagement.TierStarter, check.Decision.UpgradeRequired)
	assert.Equal(t, engagement.ReasonDailyLimit, check.Decision.Reason)

	// 第二天计数惰性重置
	clock.Set(clock.Now().Add(24 * time.Hour))
	check, err = svc.Check(ctx, env.user.ID)
	require.NoError(t, err)
	assert.True(t, check.Decision.CanAsk)
}

func TestUsageServiceCheckStarterUsesMonthlyCounter(t *testing.T) {
	env := newTestEnv(t, engagement.TierStarter)
	svc := NewUsageService(env.store, engagement.NewQuotaGate(1, 3))
	clock := &fixedClock{now: time.Date(2025, 1, 11, 9, 0, 0, 0, time.UTC)}
	svc.SetClock(clock.Now)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Record(ctx, env.user.ID, clock.Now().AddDate(0, 0, i)))
	}
	clock.Set(clock.Now().AddDate(0, 0, 5))

	check, err := svc.Check(ctx, env.user.ID)
	require.NoError(t, err)
	assert.False(t, check.Decision.CanAsk)
	assert.Equal(t, engagement.TierPremium, check.Decision.UpgradeRequired)
	assert.Equal(t, engagement.ReasonMonthlyLimit, check.Decision.Reason)

	clock.Set(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))
	check, err = svc.Check(ctx, env.user.ID)
	require.NoError(t, err)
	assert.True(t, check.Decision.CanAsk)
}

func TestUsageServiceCheckFailsClosed(t *testing.T) {
	env := newTestEnv(t, engagement.TierFree)
	store := newFlakyStore(env.store)
	svc := NewUsageService(store, engagement.NewQuotaGate(5, 100))

	store.FailNext("get counter", 1)
	check, err := svc.Check(context.Background(), env.user.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, engagement.ErrStoreUnavailable)
	assert.False(t, check.Decision.CanAsk)

	store.FailNext("get tier", 1)
	check, err = svc.Check(context.Background(), env.user.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, engagement.ErrStoreUnavailable)
	assert.False(t, check.Decision.CanAsk)
}

func TestUsageServiceCheckPremium(t *testing.T) {
	env := newTestEnv(t, engagement.TierPremium)
	svc := NewUsageService(env.store, engagement.NewQuotaGate(1, 1))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.Record(ctx, env.user.ID, time.Now()))
	}

	check, err := svc.Check(ctx, env.user.ID)
	require.NoError(t, err)
	assert.True(t, check.Decision.CanAsk)
	assert.Equal(t, engagement.UnlimitedQuestions, check.Decision.QuestionsLeft)
}

func TestUsageServiceSummary(t *testing.T) {
	env := newTestEnv(t, engagement.TierFree)
	svc := NewUsageService(env.store, engagement.NewQuotaGate(5, 100))
	now := time.Date(2025, 1, 11, 9, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, env.user.ID, now))
	require.NoError(t, svc.Record(ctx, env.user.ID, now))

	summary, err := svc.Summary(ctx, env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, engagement.TierFree, summary.Tier)
	assert.Equal(t, engagement.PeriodDay, summary.Active.Kind)
	assert.Equal(t, 2, summary.Active.Used)
	assert.Equal(t, 5, summary.Active.Limit)
	assert.Equal(t, time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC), summary.Active.ResetAt)
	assert.Equal(t, 2, summary.Monthly.Used)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), summary.Monthly.ResetAt)
	assert.Equal(t, 3, summary.QuestionsLeft)
}
