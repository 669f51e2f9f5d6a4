package router

import (
	"slices"
	"strings"
	"time"

	"github.com/explainer/internal/handler"
	"github.com/explainer/internal/logger"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const sessionName = "explainer_session"

// Options 控制路由的外围配置
type Options struct {
	SessionSecret  string
	AllowedOrigins []string
	// Gatherer 为空时使用 prometheus 默认注册表
	Gatherer prometheus.Gatherer
	Logger   *logger.Logger
}

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(handler.RequestID(), handler.RequestLogger(opts.Logger))

	if corsMiddleware := buildCORS(opts.AllowedOrigins); corsMiddleware != nil {
		r.Use(corsMiddleware)
	}

	// 配置会话中间件
	secret := strings.TrimSpace(opts.SessionSecret)
	if secret == "" {
		secret = "explainer-dev-secret"
	}
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   30 * 24 * 60 * 60,
		HttpOnly: true,
	})
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(api.LocaleMiddleware())

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r.GET("/ping", handler.Ping)
	r.GET("/healthz", api.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/login", api.Login)
		apiGroup.POST("/logout", api.Logout)

		// 需要登录的接口
		auth := apiGroup.Group("")
		auth.Use(api.AuthRequired())
		{
			auth.POST("/ask", api.Ask)
			auth.GET("/usage", api.Usage)
			auth.GET("/streak", api.Streak)
			auth.GET("/achievements", api.Achievements)
			auth.GET("/achievements/:code/badge.png", api.AchievementBadge)
			auth.POST("/share", api.Share)
			auth.GET("/history", api.History)
			auth.GET("/dashboard", api.Dashboard)

			admin := auth.Group("/admin")
			admin.Use(api.AdminRequired())
			{
				admin.GET("/settings", api.GetSystemSettings)
				admin.PUT("/settings", api.UpdateSystemSettings)
				admin.POST("/settings/test", api.TestAIConnection)
				admin.POST("/achievements/reseed", api.ReseedAchievements)
			}
		}
	}

	return r
}

func buildCORS(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		return nil
	}
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept-Language", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Language"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	// 通配时浏览器不允许携带凭证
	if slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
