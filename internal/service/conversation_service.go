package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/avast/retry-go"

	"github.com/explainer/internal/db"
	"github.com/explainer/internal/engagement"
	"github.com/explainer/internal/logger"
	"github.com/explainer/internal/metrics"
)

const (
	// SourceText 表示文字输入
	SourceText = "text"
	// SourceVoice 表示语音转写后的输入
	SourceVoice = "voice"
)

const (
	outcomeAnswered         = "answered"
	outcomeDenied           = "denied"
	outcomeCheckFailed      = "check_failed"
	outcomeGenerationFailed = "generation_failed"
)

var (
	// ErrEmptyMessage 在提问内容为空时返回
	ErrEmptyMessage = errors.New("message is empty")
	// ErrQuotaExceeded 表示额度用尽，具体信息见 QuotaDeniedError
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrQuotaCheckFailed 表示额度检查阶段读取失败，按拒绝处理
	ErrQuotaCheckFailed = errors.New("quota check failed")
	// ErrGenerationFailed 表示生成失败或超时，本次提问不计入额度
	ErrGenerationFailed = errors.New("generation failed")
)

// QuotaDeniedError 携带拒绝时的等级与升级建议
type QuotaDeniedError struct {
	Tier     engagement.Tier
	Decision engagement.QuotaDecision
}

func (e *QuotaDeniedError) Error() string {
	return fmt.Sprintf("quota exceeded for tier %s: %s", e.Tier, e.Decision.Reason)
}

// Is 让 errors.Is(err, ErrQuotaExceeded) 成立
func (e *QuotaDeniedError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

// AskInput 是一次提问的输入
type AskInput struct {
	UserID  uint
	Message string
	// PreviousQuestion 为空时使用历史中最近一次的问题
	PreviousQuestion string
	Level            engagement.Level
	Source           string
}

// AskResult 是一次成功提问的结果
type AskResult struct {
	Answer            string                     `json:"answer"`
	AnswerHTML        string                     `json:"answer_html"`
	Level             engagement.Level           `json:"level"`
	PreviousLevel     engagement.Level           `json:"previous_level"`
	Adjusted          bool                       `json:"adjusted"`
	RetryInstructions string                     `json:"retry_instructions,omitempty"`
	Confusion         engagement.ConfusionSignal `json:"confusion"`
	QuestionsLeft     int                        `json:"questions_left"`
	Streak            *engagement.StreakUpdate   `json:"streak,omitempty"`
	NewAchievements   []engagement.Achievement   `json:"new_achievements"`
}

// ConversationDeps 汇总 ConversationService 的依赖
type ConversationDeps struct {
	Usage        *UsageService
	Streaks      *StreakService
	Achievements *AchievementService
	Stats        db.StatsStore
	History      db.HistoryStore
	Explainer    Explainer
	Classifier   *engagement.ConfusionClassifier
	Logger       *logger.Logger
	Metrics      *metrics.Metrics

	GenerationTimeout time.Duration
	RetryAttempts     uint
	RetryDelay        time.Duration
}

// ConversationService 串起一次提问的完整流程：
// 额度检查 → 困惑识别 → 复杂度调整 → 生成 → 成功后的记账。
type ConversationService struct {
	usage        *UsageService
	streaks      *StreakService
	achievements *AchievementService
	stats        db.StatsStore
	history      db.HistoryStore
	explainer    Explainer
	classifier   *engagement.ConfusionClassifier
	log          *logger.Logger
	metrics      *metrics.Metrics

	generationTimeout time.Duration
	retryAttempts     uint
	retryDelay        time.Duration
	now               func() time.Time
}

// NewConversationService 构造 ConversationService
func NewConversationService(deps ConversationDeps) *ConversationService {
	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}
	classifier := deps.Classifier
	if classifier == nil {
		classifier = engagement.NewConfusionClassifier(nil)
	}
	timeout := deps.GenerationTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	attempts := deps.RetryAttempts
	if attempts == 0 {
		attempts = 3
	}
	return &ConversationService{
		usage:             deps.Usage,
		streaks:           deps.Streaks,
		achievements:      deps.Achievements,
		stats:             deps.Stats,
		history:           deps.History,
		explainer:         deps.Explainer,
		classifier:        classifier,
		log:               log,
		metrics:           deps.Metrics,
		generationTimeout: timeout,
		retryAttempts:     attempts,
		retryDelay:        max(deps.RetryDelay, 0),
		now:               time.Now,
	}
}

// SetClock 替换时间来源，主要用于测试
func (s *ConversationService) SetClock(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	s.now = now
}

// Ask 处理一次提问。额度在生成前检查，计数只在生成成功后累加，
// 因此失败的生成不消耗额度；记账失败只记录日志，不影响已生成的回答。
func (s *ConversationService) Ask(ctx context.Context, input AskInput) (AskResult, error) {
	message := SanitizeMessage(input.Message)
	if message == "" {
		return AskResult{}, ErrEmptyMessage
	}
	log := s.log.With("user_id", input.UserID)

	check, err := s.usage.Check(ctx, input.UserID)
	if err != nil {
		s.metrics.ObserveQuestion(string(check.Tier), outcomeCheckFailed)
		if errors.Is(err, db.ErrUserNotFound) {
			return AskResult{}, ErrUserNotFound
		}
		log.Error("quota check failed", "error", err)
		return AskResult{}, fmt.Errorf("%w: %w", ErrQuotaCheckFailed, err)
	}
	if !check.Decision.CanAsk {
		s.metrics.ObserveQuestion(string(check.Tier), outcomeDenied)
		return AskResult{}, &QuotaDeniedError{Tier: check.Tier, Decision: check.Decision}
	}

	previous := SanitizeMessage(input.PreviousQuestion)
	if previous == "" {
		previous = s.lastQuestion(ctx, log, input.UserID)
	}

	signal := s.classifier.Analyze(message, previous)
	level := input.Level
	if !slices.Contains(engagement.Levels, level) {
		level = engagement.LevelNormal
	}
	result := AskResult{PreviousLevel: level, Level: level, Confusion: signal}
	if signal.IsConfused {
		s.metrics.ObserveConfusion(string(signal.SuggestedAction))
	}
	if engagement.ShouldAdjust(signal) {
		adjustment := engagement.NextLevel(level, signal)
		result.Level = adjustment.Level
		result.RetryInstructions = adjustment.RetryInstructions
		result.Adjusted = true
		s.metrics.ObserveLevelAdjustment(string(level), string(adjustment.Level))
	}

	generated, err := s.generate(ctx, ExplainInput{
		Question:          message,
		Level:             result.Level,
		RetryInstructions: result.RetryInstructions,
	})
	if err != nil {
		s.metrics.ObserveQuestion(string(check.Tier), outcomeGenerationFailed)
		log.Warn("generation failed", "level", result.Level, "error", err)
		return AskResult{}, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	s.metrics.ObserveQuestion(string(check.Tier), outcomeAnswered)

	result.Answer = generated.Answer
	if rendered, err := RenderAnswerHTML(generated.Answer); err == nil {
		result.AnswerHTML = rendered
	} else {
		log.Warn("render answer failed", "error", err)
	}

	result.QuestionsLeft = max(check.Decision.QuestionsLeft-1, 0)
	if check.Tier == engagement.TierPremium {
		result.QuestionsLeft = engagement.UnlimitedQuestions
	}

	s.bookkeep(context.WithoutCancel(ctx), log, input, message, &result)
	return result, nil
}

func (s *ConversationService) generate(ctx context.Context, input ExplainInput) (ExplainResult, error) {
	genCtx, cancel := context.WithTimeout(ctx, s.generationTimeout)
	defer cancel()

	started := time.Now()
	result, err := s.explainer.Explain(genCtx, input)
	s.metrics.ObserveGeneration(time.Since(started))
	if err != nil {
		return ExplainResult{}, err
	}
	if genCtx.Err() != nil {
		return ExplainResult{}, genCtx.Err()
	}
	return result, nil
}

func (s *ConversationService) lastQuestion(ctx context.Context, log *logger.Logger, userID uint) string {
	if s.history == nil {
		return ""
	}
	recent, err := s.history.RecentQuestions(ctx, userID, 1)
	if err != nil {
		log.Warn("load previous question failed", "error", err)
		return ""
	}
	if len(recent) == 0 {
		return ""
	}
	return recent[0].Question
}

// bookkeep 依次执行成功后的记账步骤，每步独立重试，失败不会中断后续步骤
func (s *ConversationService) bookkeep(ctx context.Context, log *logger.Logger, input AskInput, message string, result *AskResult) {
	now := s.now()
	source := input.Source
	if source != SourceVoice {
		source = SourceText
	}

	for _, kind := range []engagement.PeriodKind{engagement.PeriodDay, engagement.PeriodMonth} {
		s.retryStep(ctx, log, "usage_"+string(kind), func() error {
			return s.usage.RecordPeriod(ctx, input.UserID, kind, now)
		})
	}

	s.retryStep(ctx, log, "stats", func() error {
		return s.stats.RecordQuestionStats(ctx, input.UserID, db.QuestionActivity{
			Level:    result.Level,
			Confused: result.Confusion.IsConfused,
			Voice:    source == SourceVoice,
		})
	})

	s.retryStep(ctx, log, "streak", func() error {
		update, err := s.streaks.Update(ctx, input.UserID, now)
		if err != nil {
			return err
		}
		result.Streak = &update
		return nil
	})

	s.retryStep(ctx, log, "activity", func() error {
		return s.streaks.RecordActivity(ctx, input.UserID, now)
	})

	if s.history != nil {
		s.retryStep(ctx, log, "history", func() error {
			return s.history.AppendQuestionLog(ctx, db.QuestionLog{
				UserID:    input.UserID,
				Question:  message,
				Level:     string(result.Level),
				Confused:  result.Confusion.IsConfused,
				Source:    source,
				CreatedAt: now,
			})
		})
	}

	result.NewAchievements = []engagement.Achievement{}
	s.retryStep(ctx, log, "achievements", func() error {
		unlocked, err := s.achievements.CheckAll(ctx, input.UserID)
		result.NewAchievements = append(result.NewAchievements, unlocked...)
		return err
	})
}

// retryStep 只重试存储不可用类错误，其余错误直接放弃
func (s *ConversationService) retryStep(ctx context.Context, log *logger.Logger, step string, fn func() error) {
	err := retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(s.retryAttempts),
		retry.Delay(s.retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, engagement.ErrStoreUnavailable) || errors.Is(err, ErrStreakContention)
		}),
	)
	if err == nil {
		return
	}
	s.metrics.ObserveBookkeepingFailure(step)
	log.Error("bookkeeping step failed", "step", step, "attempts", s.retryAttempts, "error", err)
}

// History 返回用户最近的提问记录
func (s *ConversationService) History(ctx context.Context, userID uint, limit int) ([]db.QuestionLog, error) {
	if s.history == nil {
		return []db.QuestionLog{}, nil
	}
	entries, err := s.history.RecentQuestions(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return entries, nil
}
