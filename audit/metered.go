package audit

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeteredSink counts events per type on the "audit.events" counter before
// passing them on.
type MeteredSink struct {
	next    Sink
	counter metric.Int64Counter
}

var _ Sink = (*MeteredSink)(nil)

// NewMeteredSink creates the counter on meter and wraps next.
func NewMeteredSink(next Sink, meter metric.Meter) (*MeteredSink, error) {
	counter, err := meter.Int64Counter("audit.events",
		metric.WithDescription("Security audit events by type"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating audit.events counter: %w", err)
	}
	return &MeteredSink{next: next, counter: counter}, nil
}

// Record implements Sink.
func (s *MeteredSink) Record(ctx context.Context, e Event) {
	attrs := []attribute.KeyValue{attribute.String("event", string(e.Type))}
	if e.Reason != "" {
		attrs = append(attrs, attribute.String("reason", e.Reason))
	}
	s.counter.Add(ctx, 1, metric.WithAttributes(attrs...))
	s.next.Record(ctx, e)
}
