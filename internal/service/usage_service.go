package service

import (
	"context"
	"fmt"
	"time"

	"github.com/explainer/internal/db"
	"github.com/explainer/internal/engagement"
)

// UsageStore 是配额读写所需的存储能力
type UsageStore interface {
	db.CounterStore
	db.TierSource
}

// UsageService 负责配额判断与计数，判断与计数分两步，计数只在生成成功后调用
type UsageService struct {
	store UsageStore
	gate  engagement.QuotaGate
	now   func() time.Time
}

// UsageCheck 是一次配额判断的完整上下文
type UsageCheck struct {
	Tier     engagement.Tier
	Decision engagement.QuotaDecision
}

// PeriodUsage 描述某一周期的用量
type PeriodUsage struct {
	Kind    engagement.PeriodKind `json:"kind"`
	Used    int                   `json:"used"`
	Limit   int                   `json:"limit"`
	ResetAt time.Time             `json:"reset_at"`
}

// UsageSummary 是面向界面的用量汇总
type UsageSummary struct {
	Tier          engagement.Tier `json:"tier"`
	Active        PeriodUsage     `json:"active"`
	Daily         PeriodUsage     `json:"daily"`
	Monthly       PeriodUsage     `json:"monthly"`
	QuestionsLeft int             `json:"questions_left"`
}

// NewUsageService 构造 UsageService
func NewUsageService(store UsageStore, gate engagement.QuotaGate) *UsageService {
	return &UsageService{store: store, gate: gate, now: time.Now}
}

// SetClock 替换时间来源，主要用于测试
func (s *UsageService) SetClock(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	s.now = now
}

// Gate 返回当前使用的配额规则
func (s *UsageService) Gate() engagement.QuotaGate {
	return s.gate
}

// Check 读取等级与当前周期计数并做出判断。
// 任何读取失败都按拒绝处理，同时返回错误，调用方据此区分"稍后重试"与"额度用尽"。
func (s *UsageService) Check(ctx context.Context, userID uint) (UsageCheck, error) {
	tier, err := s.store.GetTier(ctx, userID)
	if err != nil {
		return UsageCheck{Tier: tier}, fmt.Errorf("load tier: %w", err)
	}

	now := s.now()
	daily, monthly, err := s.counts(ctx, userID, now)
	if err != nil {
		return UsageCheck{Tier: tier}, err
	}

	return UsageCheck{Tier: tier, Decision: s.gate.Check(tier, daily, monthly)}, nil
}

func (s *UsageService) counts(ctx context.Context, userID uint, now time.Time) (int, int, error) {
	dayCounter, err := s.store.GetCounter(ctx, userID, engagement.PeriodDay)
	if err != nil {
		return 0, 0, fmt.Errorf("load daily counter: %w", err)
	}
	monthCounter, err := s.store.GetCounter(ctx, userID, engagement.PeriodMonth)
	if err != nil {
		return 0, 0, fmt.Errorf("load monthly counter: %w", err)
	}
	return dayCounter.CountFor(engagement.PeriodKey(engagement.PeriodDay, now)),
		monthCounter.CountFor(engagement.PeriodKey(engagement.PeriodMonth, now)), nil
}

// Record 在一次成功生成后累加日计数与月计数
func (s *UsageService) Record(ctx context.Context, userID uint, at time.Time) error {
	for _, kind := range []engagement.PeriodKind{engagement.PeriodDay, engagement.PeriodMonth} {
		if err := s.RecordPeriod(ctx, userID, kind, at); err != nil {
			return err
		}
	}
	return nil
}

// RecordPeriod 累加单个周期的计数
func (s *UsageService) RecordPeriod(ctx context.Context, userID uint, kind engagement.PeriodKind, at time.Time) error {
	if _, err := s.store.IncrementCounter(ctx, userID, kind, engagement.PeriodKey(kind, at)); err != nil {
		return fmt.Errorf("increment %s counter: %w", kind, err)
	}
	return nil
}

// Summary 返回用户当前周期的用量
func (s *UsageService) Summary(ctx context.Context, userID uint) (UsageSummary, error) {
	tier, err := s.store.GetTier(ctx, userID)
	if err != nil {
		return UsageSummary{}, fmt.Errorf("load tier: %w", err)
	}

	now := s.now()
	daily, monthly, err := s.counts(ctx, userID, now)
	if err != nil {
		return UsageSummary{}, err
	}

	summary := UsageSummary{
		Tier: tier,
		Daily: PeriodUsage{
			Kind:    engagement.PeriodDay,
			Used:    daily,
			ResetAt: engagement.PeriodResetAt(engagement.PeriodDay, now),
		},
		Monthly: PeriodUsage{
			Kind:    engagement.PeriodMonth,
			Used:    monthly,
			ResetAt: engagement.PeriodResetAt(engagement.PeriodMonth, now),
		},
	}

	kind, limit := s.gate.Limit(tier)
	if tier == engagement.TierFree {
		summary.Daily.Limit = limit
		summary.Active = summary.Daily
	} else {
		summary.Monthly.Limit = limit
		summary.Active = summary.Monthly
	}
	summary.Active.Kind = kind
	summary.QuestionsLeft = s.gate.Check(tier, daily, monthly).QuestionsLeft
	return summary, nil
}
