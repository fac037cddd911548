package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/asthma-api/logger"
	"github.com/kbukum/asthma-api/observability"
)

// Telemetry returns a Gin middleware that opens a server span for each
// request, continuing any incoming W3C trace context, and records request
// metrics. Spans and metrics name the matched route, never the raw path.
// A nil metrics records spans only.
func Telemetry(metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := observability.StartSpan(ctx, observability.SpanHTTPRequest,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String(observability.AttrRoute, route),
			),
		)
		defer span.End()

		if id := logger.RequestIDFromContext(ctx); id != "" {
			span.SetAttributes(attribute.String(observability.AttrRequestID, id))
		}
		if tid := observability.TraceID(ctx); tid != "" {
			ctx = logger.ContextWithTraceID(ctx, tid)
		}
		c.Request = c.Request.WithContext(ctx)

		if metrics != nil {
			metrics.RecordRequestStart(ctx)
		}
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int(observability.AttrStatus, status))
		if uid := c.GetString("user_id"); uid != "" {
			span.SetAttributes(attribute.String(observability.AttrUserID, uid))
		}
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		if metrics != nil {
			metrics.RecordRequestEnd(ctx, c.Request.Method, route, status, time.Since(start))
		}
	}
}
