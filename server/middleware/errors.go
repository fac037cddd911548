package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/kbukum/asthma-api/audit"
	apperrors "github.com/kbukum/asthma-api/errors"
	"github.com/kbukum/asthma-api/logger"
	"github.com/kbukum/asthma-api/observability"
)

// AbortWithError writes err as the JSON error envelope and stops the chain.
// Errors that are not an *AppError become a generic 500; server errors are
// logged with their cause, which never reaches the client.
func AbortWithError(c *gin.Context, err error) {
	appErr := apperrors.From(err)
	if appErr.HTTPStatus >= 500 {
		fields := logger.Fields(
			"code", string(appErr.Code),
			logger.FieldMethod, c.Request.Method,
			logger.FieldPath, c.Request.URL.Path,
		)
		if appErr.Cause != nil {
			fields[logger.FieldError] = appErr.Cause.Error()
			observability.SetSpanError(c.Request.Context(), appErr.Cause)
		}
		logger.GetGlobalLogger().WithContext(c.Request.Context()).Error("Request failed", fields)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
}

// AuditRequest describes the current request for audit events. The
// endpoint is the raw path so events show which resource was touched.
func AuditRequest(c *gin.Context) audit.Request {
	return audit.Request{
		ClientIP: c.ClientIP(),
		Method:   c.Request.Method,
		Endpoint: c.Request.URL.Path,
	}
}
