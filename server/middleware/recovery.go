package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/asthma-api/errors"
	"github.com/kbukum/asthma-api/logger"
)

// Recovery returns a Gin middleware that recovers from panics, logs the
// stack and answers with a generic INTERNAL_ERROR.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.WithContext(c.Request.Context()).Error("Panic recovered", map[string]interface{}{
					"error":     fmt.Sprintf("%v", err),
					"stack":     string(debug.Stack()),
					"path":      c.Request.URL.Path,
					"method":    c.Request.Method,
					"client_ip": c.ClientIP(),
				})
				if c.Writer.Written() {
					c.Abort()
					return
				}
				appErr := apperrors.Internal(nil)
				c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
			}
		}()
		c.Next()
	}
}
