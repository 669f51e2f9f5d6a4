package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/explainer/internal/db"
	"github.com/explainer/internal/locale"
	"github.com/explainer/internal/service"
	"github.com/explainer/internal/view"
	"github.com/gin-gonic/gin"
)

// Usage 返回当前周期的用量与剩余次数
func (a *API) Usage(c *gin.Context) {
	summary, err := a.usage.Summary(c.Request.Context(), currentUserID(c))
	if err != nil {
		a.respondReadError(c, "load usage failed", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Streak 返回连续天数与近 30 天打卡日历
func (a *API) Streak(c *gin.Context) {
	summary, err := a.streaks.Summary(c.Request.Context(), currentUserID(c))
	if err != nil {
		a.respondReadError(c, "load streak failed", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Achievements 返回成就目录与解锁状态
func (a *API) Achievements(c *gin.Context) {
	summary, err := a.achievements.Summary(c.Request.Context(), currentUserID(c))
	if err != nil {
		a.respondReadError(c, "load achievements failed", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// AchievementBadge 渲染已解锁成就的徽章图片
func (a *API) AchievementBadge(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	unlocked, err := a.achievements.FindUnlocked(c.Request.Context(), currentUserID(c), code)
	if err != nil {
		if errors.Is(err, service.ErrAchievementLocked) {
			a.respondLocalized(c, http.StatusNotFound, locale.MsgAchievementLocked)
			return
		}
		a.respondReadError(c, "load badge failed", err)
		return
	}

	png, err := view.RenderBadge(unlocked.Title, string(unlocked.Category))
	if err != nil {
		a.respondReadError(c, "render badge failed", err)
		return
	}
	c.Header("Cache-Control", "private, max-age=3600")
	c.Data(http.StatusOK, "image/png", png)
}

// Share 记录一次分享
func (a *API) Share(c *gin.Context) {
	result, err := a.shares.Record(c.Request.Context(), currentUserID(c))
	if err != nil {
		a.respondReadError(c, "record share failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Dashboard 一次返回用量、连续天数与成就
func (a *API) Dashboard(c *gin.Context) {
	dashboard, err := a.dashboards.Load(c.Request.Context(), currentUserID(c))
	if err != nil {
		a.respondReadError(c, "load dashboard failed", err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

func (a *API) respondReadError(c *gin.Context, msg string, err error) {
	if errors.Is(err, service.ErrUserNotFound) || errors.Is(err, db.ErrUserNotFound) {
		a.respondLocalized(c, http.StatusUnauthorized, locale.MsgUnauthorized)
		return
	}
	requestLogger(c, a.log).Error(msg, "error", err)
	a.respondLocalized(c, http.StatusInternalServerError, locale.MsgInternal)
}
