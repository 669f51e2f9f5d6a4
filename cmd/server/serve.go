package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/explainer/internal/config"
	"github.com/explainer/internal/db"
	"github.com/explainer/internal/engagement"
	"github.com/explainer/internal/handler"
	"github.com/explainer/internal/logger"
	"github.com/explainer/internal/metrics"
	"github.com/explainer/internal/router"
	"github.com/explainer/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const shutdownTimeout = 10 * time.Second

func runServe(ctx context.Context, configFile string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.LogMode, cfg.LogHashSalt)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	if _, err := db.EnsureUser(db.DB, db.UserInput{
		Username: cfg.SuperRootUserName,
		Password: cfg.SuperRootPassword,
		Tier:     engagement.TierPremium,
		IsAdmin:  true,
	}); err != nil {
		return fmt.Errorf("ensure super root user: %w", err)
	}

	var store db.Store = db.NewGormStore(db.DB)
	if cfg.RedisAddr != "" {
		counters, err := db.NewRedisCounterStore(ctx, cfg.RedisAddr)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer counters.Close()
		store = db.WithCounterStore(store, counters)
		log.Info("usage counters backed by redis", "addr", cfg.RedisAddr)
	}

	api := buildAPI(cfg, store, log)
	engine := router.SetupRouter(api, router.Options{
		SessionSecret:  cfg.SessionSecret,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Gatherer:       prometheus.DefaultGatherer,
		Logger:         log,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("run server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return nil
}

func buildAPI(cfg config.AppConfig, store db.Store, log *logger.Logger) *handler.API {
	m := metrics.Default()

	usage := service.NewUsageService(store, engagement.NewQuotaGate(cfg.FreeDailyLimit, cfg.StarterMonthlyLimit))
	streaks := service.NewStreakService(store, log)
	achievements := service.NewAchievementService(store, log, m)
	settings := service.NewSystemSettingService(db.DB, service.SystemSettings{
		AIProvider:     cfg.AIProvider,
		OpenAIAPIKey:   cfg.OpenAIAPIKey,
		DeepSeekAPIKey: cfg.DeepSeekAPIKey,
	})

	conversations := service.NewConversationService(service.ConversationDeps{
		Usage:             usage,
		Streaks:           streaks,
		Achievements:      achievements,
		Stats:             store,
		History:           store,
		Explainer:         service.NewAIExplanationService(settings, log),
		Classifier:        engagement.NewConfusionClassifier(nil),
		Logger:            log,
		Metrics:           m,
		GenerationTimeout: cfg.GenerationTimeout,
		RetryAttempts:     cfg.BookkeepingRetryAttempts,
		RetryDelay:        cfg.BookkeepingRetryDelay,
	})

	return handler.NewAPI(handler.Deps{
		DB:            db.DB,
		Users:         service.NewUserService(db.DB),
		Usage:         usage,
		Streaks:       streaks,
		Achievements:  achievements,
		Conversations: conversations,
		Shares:        service.NewShareService(store, achievements),
		Dashboards:    service.NewDashboardService(usage, streaks, achievements),
		System:        settings,
		Logger:        log,
	})
}
