package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, env := range envKeys {
		t.Setenv(env, "")
	}

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "explainer.db", cfg.DatabasePath)
	assert.Equal(t, "release", cfg.GinMode)
	assert.Equal(t, 5, cfg.FreeDailyLimit)
	assert.Equal(t, 100, cfg.StarterMonthlyLimit)
	assert.Equal(t, uint(3), cfg.BookkeepingRetryAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.BookkeepingRetryDelay)
	assert.Equal(t, 60*time.Second, cfg.GenerationTimeout)
	assert.Empty(t, cfg.CORSAllowedOrigins)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoadEnvOverrides(t *testing.T) {
	for _, env := range envKeys {
		t.Setenv(env, "")
	}
	t.Setenv("PORT", "9090")
	t.Setenv("FREE_DAILY_LIMIT", "7")
	t.Setenv("STARTER_MONTHLY_LIMIT", "-1")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test ,")
	t.Setenv("GENERATION_TIMEOUT", "5s")
	t.Setenv("AI_PROVIDER", " DeepSeek ")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, 7, cfg.FreeDailyLimit)
	assert.Equal(t, 100, cfg.StarterMonthlyLimit, "invalid limits fall back to defaults")
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 5*time.Second, cfg.GenerationTimeout)
	assert.Equal(t, "deepseek", cfg.AIProvider)
}

func TestLoadConfigFile(t *testing.T) {
	for _, env := range envKeys {
		t.Setenv(env, "")
	}
	path := filepath.Join(t.TempDir(), "explainer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("free_daily_limit: 3\nredis_addr: localhost:6379\n"), 0o600))
	t.Setenv("FREE_DAILY_LIMIT", "")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.FreeDailyLimit)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
