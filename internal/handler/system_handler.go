package handler

import (
	"errors"
	"net/http"

	"github.com/explainer/internal/db"
	"github.com/explainer/internal/locale"
	"github.com/explainer/internal/service"
	"github.com/gin-gonic/gin"
)

// Ping 是最简单的存活探针
func Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

// HealthCheck 提供监控系统使用的健康检查端点。
func (a *API) HealthCheck(c *gin.Context) {
	if a.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "error",
			"message": "database not initialized",
		})
		return
	}

	sqlDB, err := a.db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "database handle unavailable",
		})
		return
	}

	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "error",
			"message": "database unreachable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"database": "up",
	})
}

type systemSettingsRequest struct {
	AIProvider     string `json:"aiProvider"`
	OpenAIAPIKey   string `json:"openaiApiKey"`
	DeepSeekAPIKey string `json:"deepseekApiKey"`
	OpenAIModel    string `json:"openaiModel"`
	DeepSeekModel  string `json:"deepseekModel"`
}

type aiTestRequest struct {
	Provider string `json:"provider"`
	APIKey   string `json:"apiKey"`
}

// GetSystemSettings 返回当前模型设置，API Key 脱敏。
func (a *API) GetSystemSettings(c *gin.Context) {
	settings, err := a.system.GetSettings(c.Request.Context())
	if err != nil {
		requestLogger(c, a.log).Error("load settings failed", "error", err)
		a.respondLocalized(c, http.StatusInternalServerError, locale.MsgSettingsLoadFailed)
		return
	}

	c.JSON(http.StatusOK, gin.H{"settings": systemSettingsPayload(settings.Masked())})
}

// UpdateSystemSettings 保存模型设置，空 Key 表示保持原值。
func (a *API) UpdateSystemSettings(c *gin.Context) {
	var payload systemSettingsRequest
	if !a.bindJSON(c, &payload) {
		return
	}

	settings, err := a.system.UpdateSettings(c.Request.Context(), payload.toInput())
	if err != nil {
		requestLogger(c, a.log).Error("save settings failed", "error", err)
		a.respondLocalized(c, http.StatusInternalServerError, locale.MsgSettingsSaveFailed)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  a.message(c, locale.MsgSettingsSaved),
		"settings": systemSettingsPayload(settings.Masked()),
	})
}

func (r systemSettingsRequest) toInput() service.SystemSettingsInput {
	return service.SystemSettingsInput{
		AIProvider:     r.AIProvider,
		OpenAIAPIKey:   r.OpenAIAPIKey,
		DeepSeekAPIKey: r.DeepSeekAPIKey,
		OpenAIModel:    r.OpenAIModel,
		DeepSeekModel:  r.DeepSeekModel,
	}
}

func systemSettingsPayload(settings service.SystemSettings) gin.H {
	return gin.H{
		"aiProvider":     settings.AIProvider,
		"openaiApiKey":   settings.OpenAIAPIKey,
		"deepseekApiKey": settings.DeepSeekAPIKey,
		"openaiModel":    settings.OpenAIModel,
		"deepseekModel":  settings.DeepSeekModel,
	}
}

// TestAIConnection 测试不同 AI 平台 API Key 的连通性。
func (a *API) TestAIConnection(c *gin.Context) {
	var payload aiTestRequest
	if !a.bindJSON(c, &payload) {
		return
	}

	if err := a.system.TestAIConnection(c.Request.Context(), payload.Provider, payload.APIKey); err != nil {
		switch {
		case errors.Is(err, service.ErrAIAPIKeyMissing):
			a.respondLocalized(c, http.StatusBadRequest, locale.MsgAIKeyMissing)
		default:
			respondError(c, http.StatusBadGateway, err.Error())
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": a.message(c, locale.MsgAIConnectionOK)})
}

// ReseedAchievements 重新同步内置成就目录并清空目录缓存
func (a *API) ReseedAchievements(c *gin.Context) {
	if err := db.EnsureAchievements(a.db.WithContext(c.Request.Context())); err != nil {
		requestLogger(c, a.log).Error("reseed achievements failed", "error", err)
		a.respondLocalized(c, http.StatusInternalServerError, locale.MsgInternal)
		return
	}
	a.achievements.PurgeCatalog()
	c.JSON(http.StatusOK, gin.H{"achievements": len(db.DefaultAchievements)})
}
