package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/asthma-api/logger"
)

// RequestLogger returns a Gin middleware that logs every request with
// method, path, status code and duration. Health and info probes are
// skipped. Query strings are never logged.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isHealthEndpoint(c.Request.URL.Path) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		fields := map[string]interface{}{
			logger.FieldMethod:   c.Request.Method,
			logger.FieldPath:     c.Request.URL.Path,
			logger.FieldStatus:   status,
			logger.FieldDuration: latency.Milliseconds(),
			logger.FieldClientIP: c.ClientIP(),
		}
		if uid := c.GetString("user_id"); uid != "" {
			fields[logger.FieldUserID] = uid
		}
		if status >= 500 {
			fields["size"] = c.Writer.Size()
		}
		if latency > 500*time.Millisecond {
			fields["slow"] = true
		}
		logByStatus(log.WithContext(c.Request.Context()), fields, status)
	}
}

func isHealthEndpoint(path string) bool {
	switch path {
	case "/health", "/info", "/api/health":
		return true
	}
	return false
}

// logByStatus logs request fields at the level matching the status code.
func logByStatus(log *logger.Logger, fields map[string]interface{}, status int) {
	switch {
	case status >= 500:
		log.Error("Request completed", fields)
	case status >= 400:
		log.Warn("Request completed", fields)
	default:
		log.Info("Request completed", fields)
	}
}
