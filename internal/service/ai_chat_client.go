package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOpenAIBaseURL   = "https://api.openai.com/v1"
	defaultDeepSeekBaseURL = "https://api.deepseek.com/v1"
	defaultOpenAIModel     = "gpt-4o-mini"
	defaultDeepSeekModel   = "deepseek-chat"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type aiChatRequest struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

type aiChatResponse struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

type aiEndpoint struct {
	provider string
	base     string
	label    string
}

func resolveAIEndpoint(provider, openAIBase, deepSeekBase string) aiEndpoint {
	if normalizeAIProvider(provider) == AIProviderDeepSeek {
		base := strings.TrimRight(strings.TrimSpace(deepSeekBase), "/")
		if base == "" {
			base = defaultDeepSeekBaseURL
		}
		return aiEndpoint{provider: AIProviderDeepSeek, base: base, label: "DeepSeek"}
	}
	base := strings.TrimRight(strings.TrimSpace(openAIBase), "/")
	if base == "" {
		base = defaultOpenAIBaseURL
	}
	return aiEndpoint{provider: AIProviderOpenAI, base: base, label: "OpenAI"}
}

// aiChatClient 调用 OpenAI 兼容的 chat completions 接口，平台与 Key 在每次调用时读取
type aiChatClient struct {
	http            httpDoer
	openAIBaseURL   string
	deepSeekBaseURL string
}

func newAIChatClient() *aiChatClient {
	return &aiChatClient{
		http:            &http.Client{Timeout: 180 * time.Second},
		openAIBaseURL:   defaultOpenAIBaseURL,
		deepSeekBaseURL: defaultDeepSeekBaseURL,
	}
}

func (c *aiChatClient) SetHTTPClient(client httpDoer) {
	if client == nil {
		c.http = &http.Client{Timeout: 180 * time.Second}
		return
	}
	c.http = client
}

func (c *aiChatClient) SetOpenAIBaseURL(base string) {
	c.openAIBaseURL = strings.TrimRight(strings.TrimSpace(base), "/")
}

func (c *aiChatClient) SetDeepSeekBaseURL(base string) {
	c.deepSeekBaseURL = strings.TrimRight(strings.TrimSpace(base), "/")
}

func (c *aiChatClient) call(ctx context.Context, settings SystemSettings, req aiChatRequest) (aiChatResponse, error) {
	endpoint := resolveAIEndpoint(settings.AIProvider, c.openAIBaseURL, c.deepSeekBaseURL)

	apiKey := strings.TrimSpace(settings.OpenAIAPIKey)
	model := strings.TrimSpace(settings.OpenAIModel)
	if model == "" {
		model = defaultOpenAIModel
	}
	if endpoint.provider == AIProviderDeepSeek {
		apiKey = strings.TrimSpace(settings.DeepSeekAPIKey)
		model = strings.TrimSpace(settings.DeepSeekModel)
		if model == "" {
			model = defaultDeepSeekModel
		}
	}
	if apiKey == "" {
		return aiChatResponse{}, ErrAIAPIKeyMissing
	}

	client := c.http
	if client == nil {
		client = http.DefaultClient
	}

	payload := chatCompletionRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: strings.TrimSpace(req.SystemPrompt)},
			{Role: "user", Content: req.UserPrompt},
		},
		MaxTokens:   max(req.MaxTokens, 0),
		Temperature: req.Temperature,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return aiChatResponse{}, fmt.Errorf("构造请求失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.base+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return aiChatResponse{}, fmt.Errorf("创建 %s 请求失败: %w", endpoint.label, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", "explainer-ai/1.0")

	resp, err := client.Do(httpReq)
	if err != nil {
		return aiChatResponse{}, fmt.Errorf("请求 %s 接口失败: %w", endpoint.label, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return aiChatResponse{}, fmt.Errorf("读取 %s 响应失败: %w", endpoint.label, err)
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return aiChatResponse{}, fmt.Errorf("解析 %s 响应失败: %w", endpoint.label, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		errMsg := strings.TrimSpace(completion.Error.Message)
		if errMsg == "" {
			errMsg = resp.Status
		}
		return aiChatResponse{}, fmt.Errorf("%s 接口返回错误：%s", endpoint.label, errMsg)
	}

	if len(completion.Choices) == 0 {
		return aiChatResponse{}, fmt.Errorf("%s 接口未返回结果", endpoint.label)
	}

	return aiChatResponse{
		Content:          strings.TrimSpace(completion.Choices[0].Message.Content),
		Model:            model,
		PromptTokens:     completion.Usage.PromptTokens,
		CompletionTokens: completion.Usage.CompletionTokens,
	}, nil
}
