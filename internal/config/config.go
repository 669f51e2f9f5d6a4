package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/explainer/internal/engagement"
	"github.com/spf13/viper"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr         string
	Port               string
	DatabasePath       string
	SessionSecret      string
	GinMode            string
	LogMode            string
	LogHashSalt        string
	SuperRootUserName  string
	SuperRootPassword  string
	RedisAddr          string
	CORSAllowedOrigins []string

	FreeDailyLimit      int
	StarterMonthlyLimit int

	BookkeepingRetryAttempts uint
	BookkeepingRetryDelay    time.Duration
	GenerationTimeout        time.Duration

	AIProvider     string
	OpenAIAPIKey   string
	DeepSeekAPIKey string
}

var envKeys = map[string]string{
	"port":                       "PORT",
	"listen_addr":                "LISTEN_ADDR",
	"database_path":              "DATABASE_PATH",
	"session_secret":             "SESSION_SECRET",
	"gin_mode":                   "GIN_MODE",
	"log_mode":                   "LOG_MODE",
	"log_hash_salt":              "LOG_HASH_SALT",
	"super_root_user_name":       "SUPER_ROOT_USER_NAME",
	"super_root_password":        "SUPER_ROOT_PASSWORD",
	"redis_addr":                 "REDIS_ADDR",
	"cors_allowed_origins":       "CORS_ALLOWED_ORIGINS",
	"free_daily_limit":           "FREE_DAILY_LIMIT",
	"starter_monthly_limit":      "STARTER_MONTHLY_LIMIT",
	"bookkeeping_retry_attempts": "BOOKKEEPING_RETRY_ATTEMPTS",
	"bookkeeping_retry_delay":    "BOOKKEEPING_RETRY_DELAY",
	"generation_timeout":         "GENERATION_TIMEOUT",
	"ai_provider":                "AI_PROVIDER",
	"openai_api_key":             "OPENAI_API_KEY",
	"deepseek_api_key":           "DEEPSEEK_API_KEY",
}

// Load 读取配置：默认值 < 配置文件 < 环境变量。configFile 为空时只读环境变量。
func Load(configFile string) (AppConfig, error) {
	v := viper.New()

	v.SetDefault("port", "8080")
	v.SetDefault("database_path", "explainer.db")
	v.SetDefault("session_secret", "explainer-dev-secret")
	v.SetDefault("gin_mode", "release")
	v.SetDefault("log_mode", "production")
	v.SetDefault("cors_allowed_origins", "")
	v.SetDefault("free_daily_limit", engagement.DefaultFreeDailyLimit)
	v.SetDefault("starter_monthly_limit", engagement.DefaultStarterMonthlyLimit)
	v.SetDefault("bookkeeping_retry_attempts", 3)
	v.SetDefault("bookkeeping_retry_delay", "100ms")
	v.SetDefault("generation_timeout", "60s")
	v.SetDefault("ai_provider", "openai")

	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return AppConfig{}, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if strings.TrimSpace(configFile) != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return AppConfig{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	port := strings.TrimSpace(v.GetString("port"))
	if port == "" {
		port = "8080"
	}

	listenAddr := strings.TrimSpace(v.GetString("listen_addr"))
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	databasePath := strings.TrimSpace(v.GetString("database_path"))
	if databasePath == "" {
		databasePath = "explainer.db"
	}

	sessionSecret := strings.TrimSpace(v.GetString("session_secret"))
	if sessionSecret == "" {
		sessionSecret = "explainer-dev-secret"
	}

	ginMode := strings.TrimSpace(v.GetString("gin_mode"))
	if ginMode == "" {
		ginMode = "release"
	}

	freeDaily := v.GetInt("free_daily_limit")
	if freeDaily <= 0 {
		freeDaily = engagement.DefaultFreeDailyLimit
	}

	starterMonthly := v.GetInt("starter_monthly_limit")
	if starterMonthly <= 0 {
		starterMonthly = engagement.DefaultStarterMonthlyLimit
	}

	attempts := v.GetInt("bookkeeping_retry_attempts")
	if attempts <= 0 {
		attempts = 1
	}

	retryDelay := v.GetDuration("bookkeeping_retry_delay")
	if retryDelay < 0 {
		retryDelay = 0
	}

	generationTimeout := v.GetDuration("generation_timeout")
	if generationTimeout <= 0 {
		generationTimeout = 60 * time.Second
	}

	return AppConfig{
		ListenAddr:               listenAddr,
		Port:                     port,
		DatabasePath:             databasePath,
		SessionSecret:            sessionSecret,
		GinMode:                  ginMode,
		LogMode:                  strings.TrimSpace(v.GetString("log_mode")),
		LogHashSalt:              v.GetString("log_hash_salt"),
		SuperRootUserName:        strings.TrimSpace(v.GetString("super_root_user_name")),
		SuperRootPassword:        strings.TrimSpace(v.GetString("super_root_password")),
		RedisAddr:                strings.TrimSpace(v.GetString("redis_addr")),
		CORSAllowedOrigins:       splitList(v.GetString("cors_allowed_origins")),
		FreeDailyLimit:           freeDaily,
		StarterMonthlyLimit:      starterMonthly,
		BookkeepingRetryAttempts: uint(attempts),
		BookkeepingRetryDelay:    retryDelay,
		GenerationTimeout:        generationTimeout,
		AIProvider:               strings.ToLower(strings.TrimSpace(v.GetString("ai_provider"))),
		OpenAIAPIKey:             strings.TrimSpace(v.GetString("openai_api_key")),
		DeepSeekAPIKey:           strings.TrimSpace(v.GetString("deepseek_api_key")),
	}, nil
}

func splitList(raw string) []string {
	var result []string
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
