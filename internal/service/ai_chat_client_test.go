package service

import (
	"net/http"
	"testing"
	"time"
)

func TestAIChatClientUsesExtendedTimeout(t *testing.T) {
	t.Parallel()

	client := newAIChatClient()

	httpClient, ok := client.http.(*http.Client)
	if !ok {
		t.Fatalf("expected *http.Client, got %T", client.http)
	}

	expectTimeout := 3 * time.Minute
	if httpClient.Timeout < expectTimeout {
		t.Fatalf("default timeout should be at least %v, got %v", expectTimeout, httpClient.Timeout)
	}

	client.SetHTTPClient(nil)
	httpClient, ok = client.http.(*http.Client)
	if !ok {
		t.Fatalf("expected *http.Client after reset, got %T", client.http)
	}
	if httpClient.Timeout < expectTimeout {
		t.Fatalf("reset timeout should be at least %v, got %v", expectTimeout, httpClient.Timeout)
	}
}

func TestResolveAIEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		provider string
		want     aiEndpoint
	}{
		{name: "default openai", provider: "", want: aiEndpoint{provider: AIProviderOpenAI, base: defaultOpenAIBaseURL, label: "OpenAI"}},
		{name: "deepseek", provider: " DeepSeek ", want: aiEndpoint{provider: AIProviderDeepSeek, base: defaultDeepSeekBaseURL, label: "DeepSeek"}},
		{name: "unknown", provider: "claude", want: aiEndpoint{provider: AIProviderOpenAI, base: defaultOpenAIBaseURL, label: "OpenAI"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveAIEndpoint(tt.provider, "", "")
			if got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}
