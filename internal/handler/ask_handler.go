package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/explainer/internal/engagement"
	"github.com/explainer/internal/locale"
	"github.com/explainer/internal/service"
	"github.com/gin-gonic/gin"
)

type askRequest struct {
	Message          string `json:"message"`
	PreviousQuestion string `json:"previous_question"`
	Level            string `json:"level"`
	Source           string `json:"source"`
}

// Ask 处理一次提问：额度检查、困惑识别、调整复杂度、生成讲解与记账
func (a *API) Ask(c *gin.Context) {
	var payload askRequest
	if !a.bindJSON(c, &payload) {
		return
	}

	source := service.SourceText
	if strings.EqualFold(strings.TrimSpace(payload.Source), service.SourceVoice) {
		source = service.SourceVoice
	}

	result, err := a.conversations.Ask(c.Request.Context(), service.AskInput{
		UserID:           currentUserID(c),
		Message:          payload.Message,
		PreviousQuestion: payload.PreviousQuestion,
		Level:            engagement.ParseLevel(payload.Level),
		Source:           source,
	})
	if err != nil {
		a.respondAskError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (a *API) respondAskError(c *gin.Context, err error) {
	var denied *service.QuotaDeniedError
	switch {
	case errors.As(err, &denied):
		key := locale.MsgDailyLimit
		if denied.Decision.Reason == engagement.ReasonMonthlyLimit {
			key = locale.MsgMonthlyLimit
		}
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error":            a.message(c, key),
			"reason":           denied.Decision.Reason,
			"tier":             denied.Tier,
			"questions_left":   denied.Decision.QuestionsLeft,
			"upgrade_required": denied.Decision.UpgradeRequired,
		})
	case errors.Is(err, service.ErrEmptyMessage):
		a.respondLocalized(c, http.StatusBadRequest, locale.MsgEmptyMessage)
	case errors.Is(err, service.ErrUserNotFound):
		a.respondLocalized(c, http.StatusUnauthorized, locale.MsgUnauthorized)
	case errors.Is(err, service.ErrQuotaCheckFailed):
		requestLogger(c, a.log).Warn("quota check failed", "error", err)
		a.respondLocalized(c, http.StatusServiceUnavailable, locale.MsgQuotaUnavailable)
	case errors.Is(err, service.ErrGenerationFailed):
		requestLogger(c, a.log).Warn("generation failed", "error", err)
		a.respondLocalized(c, http.StatusBadGateway, locale.MsgGenerationFailed)
	default:
		requestLogger(c, a.log).Error("ask failed", "error", err)
		a.respondLocalized(c, http.StatusInternalServerError, locale.MsgInternal)
	}
}

// History 返回最近的提问记录
func (a *API) History(c *gin.Context) {
	limit := parseLimitQuery(c, "limit", defaultHistoryLimit, maxHistoryLimit)
	logs, err := a.conversations.History(c.Request.Context(), currentUserID(c), limit)
	if err != nil {
		requestLogger(c, a.log).Error("load history failed", "error", err)
		a.respondLocalized(c, http.StatusInternalServerError, locale.MsgInternal)
		return
	}

	items := make([]gin.H, 0, len(logs))
	for _, entry := range logs {
		items = append(items, gin.H{
			"id":         entry.ID,
			"question":   entry.Question,
			"level":      entry.Level,
			"confused":   entry.Confused,
			"source":     entry.Source,
			"created_at": entry.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
