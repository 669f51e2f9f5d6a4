package db

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/explainer/internal/engagement"
)

// counterGrace 是周期结束后 key 的保留时长，便于排查跨周期的计数
const counterGrace = 24 * time.Hour

// RedisCounterStore 使用 Redis INCR 实现按周期计数。
// 每个周期一个 key，周期切换即换 key，过期由 EXPIREAT 处理。
type RedisCounterStore struct {
	rdb    goredis.Cmdable
	prefix string
	now    func() time.Time
}

// NewRedisCounterStore 连接 Redis 并校验可用性
func NewRedisCounterStore(ctx context.Context, addr string) (*RedisCounterStore, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("missing redis addr")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return NewRedisCounterStoreWithClient(rdb), nil
}

// NewRedisCounterStoreWithClient 复用已有客户端
func NewRedisCounterStoreWithClient(rdb goredis.Cmdable) *RedisCounterStore {
	return &RedisCounterStore{rdb: rdb, prefix: "explainer:usage", now: time.Now}
}

// CounterKey 返回计数 key，格式为 explainer:usage:<user>:<kind>:<periodKey>
func (s *RedisCounterStore) CounterKey(userID uint, kind engagement.PeriodKind, periodKey string) string {
	return fmt.Sprintf("%s:%d:%s:%s", s.prefix, userID, kind, periodKey)
}

// GetCounter 读取当前周期的计数，key 不存在时返回 nil
func (s *RedisCounterStore) GetCounter(ctx context.Context, userID uint, kind engagement.PeriodKind) (*engagement.UsageCounter, error) {
	periodKey := engagement.PeriodKey(kind, s.now())
	raw, err := s.rdb.Get(ctx, s.CounterKey(userID, kind, periodKey)).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("redis get counter", err)
	}

	count, err := strconv.Atoi(raw)
	if err != nil {
		return nil, storeErr("redis parse counter", err)
	}
	return &engagement.UsageCounter{
		UserID:     userID,
		PeriodKind: kind,
		PeriodKey:  periodKey,
		Count:      count,
	}, nil
}

// IncrementCounter 在事务流水线中执行 INCR 与 EXPIREAT
func (s *RedisCounterStore) IncrementCounter(ctx context.Context, userID uint, kind engagement.PeriodKind, periodKey string) (int, error) {
	key := s.CounterKey(userID, kind, periodKey)
	expireAt := CounterExpiry(kind, periodKey, s.now())

	var incr *goredis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireAt(ctx, key, expireAt)
		return nil
	})
	if err != nil {
		return 0, storeErr("redis increment counter", err)
	}
	return int(incr.Val()), nil
}

// CounterExpiry 计算周期 key 的过期时间：周期结束再加保留时长。
// periodKey 无法解析时以 now 所在周期为准。
func CounterExpiry(kind engagement.PeriodKind, periodKey string, now time.Time) time.Time {
	layout := engagement.DateLayout
	if kind == engagement.PeriodMonth {
		layout = "2006-01"
	}
	start, err := time.Parse(layout, periodKey)
	if err != nil {
		start = now
	}
	return engagement.PeriodResetAt(kind, start).Add(counterGrace)
}

// Close 关闭底层连接，复用外部客户端时由调用方负责
func (s *RedisCounterStore) Close() error {
	if closer, ok := s.rdb.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
