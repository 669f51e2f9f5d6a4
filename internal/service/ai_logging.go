package service

import (
	"strings"
	"unicode/utf8"

	"github.com/explainer/internal/logger"
)

const maxAILogSnippetRunes = 1024

// logAIExchange 输出 AI 请求与响应的关键信息，方便排查模型行为。
func logAIExchange(log *logger.Logger, kind, phase, content string) {
	if log == nil {
		return
	}
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		log.Debug("[AI "+kind+"] "+phase, "content", "<empty>")
		return
	}

	runeCount := utf8.RuneCountInString(trimmed)
	snippet := trimmed
	if runeCount > maxAILogSnippetRunes {
		snippet = string([]rune(trimmed)[:maxAILogSnippetRunes]) + "…(truncated)"
	}
	log.Debug("[AI "+kind+"] "+phase, "runes", runeCount, "content", snippet)
}
