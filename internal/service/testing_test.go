package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/explainer/internal/db"
	"github.com/explainer/internal/engagement"
	"github.com/explainer/internal/logger"
	"github.com/explainer/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	gdb     *gorm.DB
	store   *db.GormStore
	user    *db.User
	metrics *metrics.Metrics
	reg     *prometheus.Registry
}

func newTestEnv(t *testing.T, tier engagement.Tier) *testEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := db.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name), true)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	require.NoError(t, db.EnsureAchievements(gdb))

	user, err := db.EnsureUser(gdb, db.UserInput{Username: "learner", Password: "secret", Tier: tier})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	return &testEnv{
		gdb:     gdb,
		store:   db.NewGormStore(gdb),
		user:    user,
		metrics: metrics.MustNew(reg),
		reg:     reg,
	}
}

// counterValue 汇总指标族中标签匹配的计数器取值
func (e *testEnv) counterValue(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := e.reg.Gather()
	require.NoError(t, err)

	total := 0.0
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	metricLoop:
		for _, metric := range family.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if want, ok := labels[pair.GetName()]; ok && want != pair.GetValue() {
					continue metricLoop
				}
			}
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

// fixedClock 返回固定时刻，可在测试中推进
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// stubExplainer 记录每次调用并返回固定结果
type stubExplainer struct {
	mu     sync.Mutex
	calls  []ExplainInput
	answer string
	err    error
}

func (s *stubExplainer) Explain(_ context.Context, input ExplainInput) (ExplainResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, input)
	if s.err != nil {
		return ExplainResult{}, s.err
	}
	answer := s.answer
	if answer == "" {
		answer = "Gravity pulls things toward each other."
	}
	return ExplainResult{Answer: answer}, nil
}

func (s *stubExplainer) Calls() []ExplainInput {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ExplainInput(nil), s.calls...)
}

// flakyStore 让指定操作返回存储不可用错误
type flakyStore struct {
	*db.GormStore
	mu       sync.Mutex
	failures map[string]int
}

func newFlakyStore(base *db.GormStore) *flakyStore {
	return &flakyStore{GormStore: base, failures: make(map[string]int)}
}

// FailNext 让 op 接下来的 n 次调用失败，n < 0 表示一直失败
func (f *flakyStore) FailNext(op string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = n
}

func (f *flakyStore) fail(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.failures[op]
	if n == 0 {
		return nil
	}
	if n > 0 {
		f.failures[op] = n - 1
	}
	return &db.StoreError{Op: op, Err: errors.New("connection refused")}
}

func (f *flakyStore) GetTier(ctx context.Context, userID uint) (engagement.Tier, error) {
	if err := f.fail("get tier"); err != nil {
		return engagement.TierFree, err
	}
	return f.GormStore.GetTier(ctx, userID)
}

func (f *flakyStore) GetCounter(ctx context.Context, userID uint, kind engagement.PeriodKind) (*engagement.UsageCounter, error) {
	if err := f.fail("get counter"); err != nil {
		return nil, err
	}
	return f.GormStore.GetCounter(ctx, userID, kind)
}

func (f *flakyStore) IncrementCounter(ctx context.Context, userID uint, kind engagement.PeriodKind, periodKey string) (int, error) {
	if err := f.fail("increment counter"); err != nil {
		return 0, err
	}
	return f.GormStore.IncrementCounter(ctx, userID, kind, periodKey)
}

func (f *flakyStore) CompareAndSwapStreak(ctx context.Context, expected time.Time, record engagement.StreakRecord) (bool, error) {
	if err := f.fail("swap streak"); err != nil {
		return false, err
	}
	return f.GormStore.CompareAndSwapStreak(ctx, expected, record)
}

func (f *flakyStore) InsertUnlockIfAbsent(ctx context.Context, userID, achievementID uint, unlockedAt time.Time) (bool, error) {
	if err := f.fail("insert unlock"); err != nil {
		return false, err
	}
	return f.GormStore.InsertUnlockIfAbsent(ctx, userID, achievementID, unlockedAt)
}

func newTestLogger() *logger.Logger {
	return logger.NewNop()
}
