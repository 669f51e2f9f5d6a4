package handler

import (
	"strings"
	"time"

	"github.com/explainer/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader     = "X-Request-ID"
	requestIDContextKey = "__request_id"
	loggerContextKey    = "__request_logger"
	maxRequestIDLength  = 128
)

// RequestID 复用客户端传入的请求 ID，缺失时生成一个新的 UUID
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}
		c.Set(requestIDContextKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// RequestLogger 为每个请求挂载带 request_id 的 logger，并在结束时记录访问日志
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		reqLog := log.With("request_id", c.GetString(requestIDContextKey))
		c.Set(loggerContextKey, reqLog)

		c.Next()

		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		}
		if userID := currentUserID(c); userID > 0 {
			fields = append(fields, "user_id", userID)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}
		if c.Writer.Status() >= 500 {
			reqLog.Error("http request", fields...)
			return
		}
		reqLog.Info("http request", fields...)
	}
}

func requestLogger(c *gin.Context, fallback *logger.Logger) *logger.Logger {
	if value, ok := c.Get(loggerContextKey); ok {
		if log, ok := value.(*logger.Logger); ok {
			return log
		}
	}
	if fallback == nil {
		return logger.NewNop()
	}
	return fallback
}
