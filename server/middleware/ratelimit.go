package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/asthma-api/audit"
	apperrors "github.com/kbukum/asthma-api/errors"
	"github.com/kbukum/asthma-api/logger"
	"github.com/kbukum/asthma-api/ratelimit"
)

// Limiter records one attempt for key. *ratelimit.Limiter implements it.
type Limiter interface {
	Check(ctx context.Context, key string) (ratelimit.Decision, error)
}

// RateLimitConfig configures the rate limiting middleware.
type RateLimitConfig struct {
	Limiter Limiter
	Audit   audit.Sink
	Log     *logger.Logger
	// KeyFunc extracts the rate limit key from a request. Defaults to client IP.
	KeyFunc func(*gin.Context) string
	// Now stamps audit events. Defaults to time.Now.
	Now func() time.Time
}

// RateLimit returns a Gin middleware that counts every request against
// its key and rejects blocked keys with 429 and a Retry-After header.
// When the limiter itself fails the request is let through.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = IPBasedKey
	}
	if cfg.Audit == nil {
		cfg.Audit = audit.Nop
	}
	if cfg.Log == nil {
		cfg.Log = logger.GetGlobalLogger()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	log := cfg.Log.WithComponent("ratelimit")

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := cfg.KeyFunc(c)

		d, err := cfg.Limiter.Check(ctx, key)
		if err != nil {
			log.WithContext(ctx).Warn("Rate limiter unavailable, allowing request", logger.Fields(
				logger.FieldError, err.Error(),
				logger.FieldPath, c.Request.URL.Path,
			))
			c.Next()
			return
		}
		if d.Allowed {
			c.Next()
			return
		}

		e := AuditRequest(c).Event(audit.RateLimitExceeded, "", cfg.Now())
		e.Metadata = map[string]string{"attempts": strconv.Itoa(d.Count)}
		cfg.Audit.Record(ctx, e)

		c.Header("Retry-After", strconv.Itoa(apperrors.RetryAfterSeconds(d.RetryAfter)))
		AbortWithError(c, apperrors.RateLimitExceeded(d.RetryAfter))
	}
}

// IPBasedKey extracts the client IP for use as a rate limit key.
func IPBasedKey(c *gin.Context) string {
	return c.ClientIP()
}
