package logger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitizeRedactsSecrets(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := &Logger{SugaredLogger: zap.New(core).Sugar(), hashSalt: "salt"}

	log.Info("login", "username", "ada", "password", "hunter2", "openai_api_key", "sk-123", "session_id", "abc")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "ada", fields["username"])
		assert.Equal(t, "[REDACTED]", fields["password"])
		assert.Equal(t, "[REDACTED]", fields["openai_api_key"])
		assert.True(t, strings.HasPrefix(fields["session_id"].(string), "hash:"))
	}
}

func TestWithKeepsSalt(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	base := &Logger{SugaredLogger: zap.New(core).Sugar(), hashSalt: "salt"}

	base.With("component", "test").Warn("odd")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "test", entries[0].ContextMap()["component"])
	}
}
