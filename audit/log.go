package audit

import (
	"context"
	"time"

	"github.com/kbukum/asthma-api/logger"
)

// LogSink writes events as structured log lines on the "audit" component.
type LogSink struct {
	log *logger.Logger
	now func() time.Time
}

var _ Sink = (*LogSink)(nil)

// NewLogSink creates a sink over log. A nil logger uses the global one.
func NewLogSink(log *logger.Logger) *LogSink {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &LogSink{log: log.WithComponent("audit"), now: time.Now}
}

// Record implements Sink.
func (s *LogSink) Record(ctx context.Context, e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now()
	}

	fields := logger.Fields(
		"event", string(e.Type),
		"timestamp", e.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if e.UserID != "" {
		fields[logger.FieldUserID] = e.UserID
	}
	if e.ClientIP != "" {
		fields[logger.FieldClientIP] = e.ClientIP
	}
	if e.Method != "" {
		fields[logger.FieldMethod] = e.Method
	}
	if e.Endpoint != "" {
		fields[logger.FieldPath] = e.Endpoint
	}
	if e.Reason != "" {
		fields["reason"] = e.Reason
	}
	for k, v := range e.Metadata {
		fields[k] = v
	}
	if id := logger.RequestIDFromContext(ctx); id != "" {
		fields[logger.FieldRequestID] = id
	}

	switch e.Type {
	case LoginFailed, AuthFailed, AuthorizationFailed, RateLimitExceeded:
		s.log.Warn("Security audit event", fields)
	default:
		s.log.Info("Security audit event", fields)
	}
}
