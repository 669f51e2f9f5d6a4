package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/explainer/internal/db"
	"github.com/explainer/internal/engagement"
	"github.com/explainer/internal/metrics"
	"github.com/explainer/internal/service"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	learnerName     = "learner"
	learnerPassword = "secret"
	adminName       = "admin"
	adminPassword   = "admin-pass"
)

type stubExplainer struct {
	mu  sync.Mutex
	err error
}

func (s *stubExplainer) Explain(_ context.Context, input service.ExplainInput) (service.ExplainResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return service.ExplainResult{}, s.err
	}
	return service.ExplainResult{Answer: "**Short** answer at level " + string(input.Level)}, nil
}

func (s *stubExplainer) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

type handlerEnv struct {
	gdb       *gorm.DB
	engine    *gin.Engine
	explainer *stubExplainer
	learner   *db.User
}

func newHandlerEnv(t *testing.T, tier engagement.Tier) *handlerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := db.Open(fmt.Sprintf("file:handler_%s?mode=memory&cache=shared", name), true)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	require.NoError(t, db.EnsureAchievements(gdb))

	learner, err := db.EnsureUser(gdb, db.UserInput{Username: learnerName, Password: learnerPassword, Tier: tier})
	require.NoError(t, err)
	_, err = db.EnsureUser(gdb, db.UserInput{Username: adminName, Password: adminPassword, Tier: engagement.TierPremium, IsAdmin: true})
	require.NoError(t, err)

	store := db.NewGormStore(gdb)
	m := metrics.MustNew(prometheus.NewRegistry())
	usage := service.NewUsageService(store, engagement.NewQuotaGate(2, 100))
	streaks := service.NewStreakService(store, nil)
	achievements := service.NewAchievementService(store, nil, m)
	explainer := &stubExplainer{}

	api := NewAPI(Deps{
		DB:           gdb,
		Users:        service.NewUserService(gdb),
		Usage:        usage,
		Streaks:      streaks,
		Achievements: achievements,
		Conversations: service.NewConversationService(service.ConversationDeps{
			Usage:         usage,
			Streaks:       streaks,
			Achievements:  achievements,
			Stats:         store,
			History:       store,
			Explainer:     explainer,
			Metrics:       m,
			RetryAttempts: 1,
		}),
		Shares:     service.NewShareService(store, achievements),
		Dashboards: service.NewDashboardService(usage, streaks, achievements),
		System:     service.NewSystemSettingService(gdb, service.SystemSettings{}),
	})

	engine := gin.New()
	engine.Use(sessions.Sessions("explainer_session", cookie.NewStore([]byte("test-secret"))))
	engine.Use(RequestID(), RequestLogger(nil), api.LocaleMiddleware())
	mountTestRoutes(engine, api)

	return &handlerEnv{gdb: gdb, engine: engine, explainer: explainer, learner: learner}
}

func mountTestRoutes(engine *gin.Engine, api *API) {
	engine.GET("/healthz", api.HealthCheck)
	engine.POST("/api/login", api.Login)
	engine.POST("/api/logout", api.Logout)

	authed := engine.Group("/api", api.AuthRequired())
	authed.POST("/ask", api.Ask)
	authed.GET("/usage", api.Usage)
	authed.GET("/streak", api.Streak)
	authed.GET("/achievements", api.Achievements)
	authed.GET("/achievements/:code/badge.png", api.AchievementBadge)
	authed.POST("/share", api.Share)
	authed.GET("/history", api.History)
	authed.GET("/dashboard", api.Dashboard)

	admin := authed.Group("/admin", api.AdminRequired())
	admin.GET("/settings", api.GetSystemSettings)
	admin.PUT("/settings", api.UpdateSystemSettings)
	admin.POST("/settings/test", api.TestAIConnection)
	admin.POST("/achievements/reseed", api.ReseedAchievements)
}

type requestOption func(*http.Request)

func withCookies(cookies []*http.Cookie) requestOption {
	return func(r *http.Request) {
		for _, c := range cookies {
			r.AddCookie(c)
		}
	}
}

func withHeader(key, value string) requestOption {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

func (e *handlerEnv) do(t *testing.T, method, path string, body interface{}, opts ...requestOption) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}
	rr := httptest.NewRecorder()
	e.engine.ServeHTTP(rr, req)
	return rr
}

func (e *handlerEnv) login(t *testing.T, username, password string) []*http.Cookie {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/api/login", gin.H{"username": username, "password": password})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	cookies := rr.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), dst), rr.Body.String())
}
