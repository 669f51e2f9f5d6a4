package service

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

var (
	inputPolicy    = bluemonday.StrictPolicy()
	answerPolicy   = bluemonday.UGCPolicy()
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify),
		goldmark.WithRendererOptions(gmhtml.WithHardWraps(), gmhtml.WithXHTML()),
	)
)

// SanitizeMessage 去掉用户输入中的全部标签，保留纯文本
func SanitizeMessage(raw string) string {
	stripped := inputPolicy.Sanitize(raw)
	return strings.TrimSpace(html.UnescapeString(stripped))
}

// RenderAnswerHTML 将 Markdown 讲解渲染为经过清洗的 HTML
func RenderAnswerHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return string(answerPolicy.SanitizeBytes(buf.Bytes())), nil
}
