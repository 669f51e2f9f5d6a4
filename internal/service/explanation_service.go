package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/explainer/internal/engagement"
	"github.com/explainer/internal/logger"
)

// ExplainInput 是交给生成方的全部输入
type ExplainInput struct {
	Question string
	Level    engagement.Level
	// RetryInstructions 仅在检测到困惑并调整复杂度时非空
	RetryInstructions string
}

// ExplainResult 返回生成的讲解及少量元数据
type ExplainResult struct {
	Answer           string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// Explainer 定义讲解生成能力，便于在业务层注入不同实现。
type Explainer interface {
	Explain(ctx context.Context, input ExplainInput) (ExplainResult, error)
}

// ErrEmptyAnswer 表示模型返回了空内容
var ErrEmptyAnswer = errors.New("empty explanation")

const (
	defaultExplainMaxTokens   = 800
	defaultExplainTemperature = 0.7
	maxQuestionRuneCount      = 2000
)

var levelPrompts = map[engagement.Level]string{
	engagement.Level5yo: "You explain things to a curious five-year-old. Use short sentences, " +
		"one everyday analogy and no jargon.",
	engagement.LevelNormal: "You explain things to a curious adult with no special background. " +
		"Use plain language and one concrete analogy.",
	engagement.LevelAdvanced: "You explain things to a knowledgeable reader. Be precise, use correct " +
		"terminology and cover the important nuances.",
}

// AIExplanationService 基于大模型接口生成分级讲解
type AIExplanationService struct {
	settings *SystemSettingService
	client   *aiChatClient
	log      *logger.Logger
}

// NewAIExplanationService 构造 AIExplanationService
func NewAIExplanationService(settings *SystemSettingService, log *logger.Logger) *AIExplanationService {
	if log == nil {
		log = logger.NewNop()
	}
	return &AIExplanationService{settings: settings, client: newAIChatClient(), log: log}
}

// SetHTTPClient 覆盖默认 HTTP 客户端，主要用于测试。
func (s *AIExplanationService) SetHTTPClient(client httpDoer) {
	s.client.SetHTTPClient(client)
}

// SetOpenAIBaseURL 覆盖默认的 OpenAI API 地址。
func (s *AIExplanationService) SetOpenAIBaseURL(base string) {
	s.client.SetOpenAIBaseURL(base)
}

// SetDeepSeekBaseURL 覆盖默认的 DeepSeek API 地址。
func (s *AIExplanationService) SetDeepSeekBaseURL(base string) {
	s.client.SetDeepSeekBaseURL(base)
}

// Explain 按复杂度生成讲解，未配置 API Key 时返回 ErrAIAPIKeyMissing。
func (s *AIExplanationService) Explain(ctx context.Context, input ExplainInput) (ExplainResult, error) {
	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return ExplainResult{}, fmt.Errorf("读取系统设置失败: %w", err)
	}

	systemPrompt := buildExplainSystemPrompt(input.Level, input.RetryInstructions)
	userPrompt := truncateQuestion(strings.TrimSpace(input.Question), maxQuestionRuneCount)
	logAIExchange(s.log, "EXPLAIN", "prompt", userPrompt)

	result, err := s.client.call(ctx, settings, aiChatRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		MaxTokens:    defaultExplainMaxTokens,
		Temperature:  defaultExplainTemperature,
	})
	if err != nil {
		return ExplainResult{}, err
	}

	logAIExchange(s.log, "EXPLAIN", "response", result.Content)
	if result.Content == "" {
		return ExplainResult{}, ErrEmptyAnswer
	}

	return ExplainResult{
		Answer:           result.Content,
		Model:            result.Model,
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
	}, nil
}

func buildExplainSystemPrompt(level engagement.Level, retryInstructions string) string {
	prompt, ok := levelPrompts[level]
	if !ok {
		prompt = levelPrompts[engagement.LevelNormal]
	}
	retryInstructions = strings.TrimSpace(retryInstructions)
	if retryInstructions == "" {
		return prompt
	}
	var builder strings.Builder
	builder.WriteString(prompt)
	builder.WriteString("\n\nThe user did not understand the previous explanation. ")
	builder.WriteString(retryInstructions)
	return builder.String()
}

func truncateQuestion(input string, limit int) string {
	runes := []rune(input)
	if len(runes) <= limit {
		return input
	}
	return string(runes[:limit])
}
