package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/explainer/internal/locale"
	"github.com/gin-gonic/gin"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// respondLocalized 按请求语言返回错误提示
func (a *API) respondLocalized(c *gin.Context, status int, key string) {
	respondError(c, status, a.message(c, key))
}

func (a *API) bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		a.respondLocalized(c, http.StatusBadRequest, locale.MsgInvalidRequest)
		return false
	}
	return true
}

func parseLimitQuery(c *gin.Context, key string, fallback, upper int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	if limit > upper {
		return upper
	}
	return limit
}
