package endpoint

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/asthma-api/component"
)

// HealthChecker reports the health of every registered component.
type HealthChecker func(ctx context.Context) []component.Health

// HealthReport is the /health body.
type HealthReport struct {
	Status     component.HealthStatus `json:"status"`
	Service    string                 `json:"service"`
	Timestamp  time.Time              `json:"timestamp"`
	Components []component.Health     `json:"components"`
}

// Health serves a HealthReport. It answers 503 when any component is
// unhealthy so load balancers take the instance out of rotation; a
// degraded component still answers 200.
func Health(serviceName string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := HealthReport{Service: serviceName, Timestamp: time.Now().UTC(), Components: []component.Health{}}
		if checker != nil {
			report.Components = append(report.Components, checker(c.Request.Context())...)
		}
		report.Status = component.Overall(report.Components)

		code := http.StatusOK
		if report.Status == component.StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, report)
	}
}
