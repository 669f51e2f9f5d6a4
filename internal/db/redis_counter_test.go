package db

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/explainer/internal/engagement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCounterKeyFormat(t *testing.T) {
	store := NewRedisCounterStoreWithClient(nil)
	assert.Equal(t, "explainer:usage:12:day:2025-01-11", store.CounterKey(12, engagement.PeriodDay, "2025-01-11"))
	assert.Equal(t, "explainer:usage:12:month:2025-01", store.CounterKey(12, engagement.PeriodMonth, "2025-01"))
}

func TestCounterExpiry(t *testing.T) {
	now := time.Date(2025, 1, 11, 23, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC), CounterExpiry(engagement.PeriodDay, "2025-01-11", now))
	assert.Equal(t, time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC), CounterExpiry(engagement.PeriodMonth, "2025-01", now))
	assert.Equal(t, time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC), CounterExpiry(engagement.PeriodDay, "garbage", now))
}

func TestNewRedisCounterStoreRequiresAddr(t *testing.T) {
	_, err := NewRedisCounterStore(context.Background(), "  ")
	assert.Error(t, err)
}

func newMiniRedisStore(t *testing.T, now time.Time) (*RedisCounterStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	mr.SetTime(now)

	store, err := NewRedisCounterStore(context.Background(), mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	store.now = func() time.Time { return now }
	return store, mr
}

func TestRedisCounterStoreIncrement(t *testing.T) {
	now := time.Date(2025, 1, 11, 9, 0, 0, 0, time.UTC)
	store, mr := newMiniRedisStore(t, now)
	ctx := context.Background()

	counter, err := store.GetCounter(ctx, 1, engagement.PeriodDay)
	require.NoError(t, err)
	assert.Nil(t, counter)

	first, err := store.IncrementCounter(ctx, 1, engagement.PeriodDay, "2025-01-11")
	require.NoError(t, err)
	second, err := store.IncrementCounter(ctx, 1, engagement.PeriodDay, "2025-01-11")
	require.NoError(t, err)
	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)

	counter, err = store.GetCounter(ctx, 1, engagement.PeriodDay)
	require.NoError(t, err)
	require.NotNil(t, counter)
	assert.Equal(t, 2, counter.Count)
	assert.Equal(t, "2025-01-11", counter.PeriodKey)

	// 过期时间为周期结束后再保留一天
	key := store.CounterKey(1, engagement.PeriodDay, "2025-01-11")
	assert.Equal(t, time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC).Sub(now), mr.TTL(key))

	// 其他用户与月度计数互不影响
	other, err := store.IncrementCounter(ctx, 2, engagement.PeriodDay, "2025-01-11")
	require.NoError(t, err)
	assert.Equal(t, 1, other)
	monthly, err := store.IncrementCounter(ctx, 1, engagement.PeriodMonth, "2025-01")
	require.NoError(t, err)
	assert.Equal(t, 1, monthly)
}

func TestRedisCounterStorePeriodRollover(t *testing.T) {
	now := time.Date(2025, 1, 31, 23, 30, 0, 0, time.UTC)
	store, _ := newMiniRedisStore(t, now)
	ctx := context.Background()

	_, err := store.IncrementCounter(ctx, 1, engagement.PeriodDay, engagement.PeriodKey(engagement.PeriodDay, now))
	require.NoError(t, err)
	_, err = store.IncrementCounter(ctx, 1, engagement.PeriodMonth, engagement.PeriodKey(engagement.PeriodMonth, now))
	require.NoError(t, err)

	next := now.Add(time.Hour)
	store.now = func() time.Time { return next }

	day, err := store.GetCounter(ctx, 1, engagement.PeriodDay)
	require.NoError(t, err)
	assert.Nil(t, day)
	month, err := store.GetCounter(ctx, 1, engagement.PeriodMonth)
	require.NoError(t, err)
	assert.Nil(t, month)

	count, err := store.IncrementCounter(ctx, 1, engagement.PeriodDay, engagement.PeriodKey(engagement.PeriodDay, next))
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	current, err := store.GetCounter(ctx, 1, engagement.PeriodDay)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, "2025-02-01", current.PeriodKey)
}

func TestRedisCounterStoreErrorsAreStoreUnavailable(t *testing.T) {
	store, mr := newMiniRedisStore(t, time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	mr.Set(store.CounterKey(1, engagement.PeriodDay, "2025-01-11"), "not-a-number")
	_, err := store.GetCounter(ctx, 1, engagement.PeriodDay)
	assert.ErrorIs(t, err, engagement.ErrStoreUnavailable)

	mr.Close()
	_, err = store.IncrementCounter(ctx, 1, engagement.PeriodDay, "2025-01-11")
	assert.ErrorIs(t, err, engagement.ErrStoreUnavailable)
}
