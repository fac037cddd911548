package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/kbukum/asthma-api/logger"
)

func TestLogSinkWritesStructuredEvent(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "asthma-api", &buf)
	sink := NewLogSink(log)

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := logger.ContextWithRequestID(context.Background(), "req-1")
	sink.Record(ctx, Event{
		Type:      LoginFailed,
		ClientIP:  "10.0.0.1",
		Method:    "POST",
		Endpoint:  "/api/auth/login",
		Reason:    ReasonInvalidPassword,
		UserID:    "u-1",
		Timestamp: ts,
	})

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}

	want := map[string]string{
		"event":      "LOGIN_FAILED",
		"client_ip":  "10.0.0.1",
		"path":       "/api/auth/login",
		"reason":     "INVALID_PASSWORD",
		"user_id":    "u-1",
		"request_id": "req-1",
		"component":  "audit",
		"level":      "warn",
		"timestamp":  "2024-03-01T12:00:00Z",
	}
	for k, v := range want {
		if got, _ := line[k].(string); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
}

func TestLogSinkRedactsMetadata(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "info", Format: "json"}, "", &buf)
	NewLogSink(log).Record(context.Background(), Event{
		Type:     UserCreated,
		Metadata: map[string]string{"email": "jane@example.com", "role": "PATIENT"},
	})

	out := buf.String()
	if strings.Contains(out, "jane@example.com") {
		t.Fatalf("email leaked into audit log: %s", out)
	}
	if !strings.Contains(out, `"role":"PATIENT"`) {
		t.Errorf("expected role in output: %s", out)
	}
}

func TestAsyncSinkDeliversAndFlushesOnStop(t *testing.T) {
	mem := NewMemorySink()
	sink := NewAsyncSink(mem, 16, logger.Nop())
	ctx := context.Background()

	if err := sink.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 10; i++ {
		sink.Record(ctx, Event{Type: AuthSuccess})
	}
	if err := sink.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if got := len(mem.ByType(AuthSuccess)); got != 10 {
		t.Errorf("delivered %d events, want 10", got)
	}
	if sink.Dropped() != 0 {
		t.Errorf("dropped = %d, want 0", sink.Dropped())
	}

	sink.Record(ctx, Event{Type: Logout})
	if sink.Dropped() != 1 {
		t.Errorf("record after stop: dropped = %d, want 1", sink.Dropped())
	}
}

type blockingSink struct {
	release chan struct{}
	mem     *MemorySink
}

func (b *blockingSink) Record(ctx context.Context, e Event) {
	<-b.release
	b.mem.Record(ctx, e)
}

func TestAsyncSinkDropsWhenFull(t *testing.T) {
	inner := &blockingSink{release: make(chan struct{}), mem: NewMemorySink()}
	sink := NewAsyncSink(inner, 2, logger.Nop())
	ctx := context.Background()

	// Not started: the queue fills without a consumer.
	for i := 0; i < 5; i++ {
		sink.Record(ctx, Event{Type: AuthSuccess})
	}
	if sink.Pending() != 2 {
		t.Errorf("pending = %d, want 2", sink.Pending())
	}
	if sink.Dropped() != 3 {
		t.Errorf("dropped = %d, want 3", sink.Dropped())
	}

	close(inner.release)
	if err := sink.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := len(inner.mem.Events()); got != 2 {
		t.Errorf("delivered %d, want 2", got)
	}
}

func TestAsyncSinkHealth(t *testing.T) {
	sink := NewAsyncSink(Nop, 1, logger.Nop())
	ctx := context.Background()

	if h := sink.Health(ctx); h.Status != "unhealthy" {
		t.Errorf("before start = %s, want unhealthy", h.Status)
	}
	if err := sink.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if h := sink.Health(ctx); h.Status != "healthy" && h.Status != "degraded" {
		t.Errorf("running = %s", h.Status)
	}
	if err := sink.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := sink.Start(ctx); err == nil {
		t.Error("expected error restarting a stopped sink")
	}
}

func TestAsyncSinkConcurrentRecord(t *testing.T) {
	mem := NewMemorySink()
	sink := NewAsyncSink(mem, 1000, logger.Nop())
	ctx := context.Background()
	if err := sink.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				sink.Record(ctx, Event{Type: TokenRefreshed})
			}
		}()
	}
	wg.Wait()

	if err := sink.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := uint64(len(mem.Events())) + sink.Dropped(); got != 500 {
		t.Errorf("delivered+dropped = %d, want 500", got)
	}
}

func TestMeteredSinkCountsByType(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	mem := NewMemorySink()

	sink, err := NewMeteredSink(mem, mp.Meter("audit-test"))
	if err != nil {
		t.Fatalf("NewMeteredSink: %v", err)
	}
	ctx := context.Background()
	sink.Record(ctx, Event{Type: LoginSuccess})
	sink.Record(ctx, Event{Type: LoginFailed, Reason: ReasonUserNotFound})
	sink.Record(ctx, Event{Type: LoginSuccess})

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "audit.events" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("unexpected data type %T", m.Data)
			}
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	if total != 3 {
		t.Errorf("audit.events total = %d, want 3", total)
	}
	if len(mem.Events()) != 3 {
		t.Errorf("forwarded %d events, want 3", len(mem.Events()))
	}
}

func TestMulti(t *testing.T) {
	a, b := NewMemorySink(), NewMemorySink()
	Multi(a, b).Record(context.Background(), Event{Type: Logout})

	if len(a.Events()) != 1 || len(b.Events()) != 1 {
		t.Error("expected event in both sinks")
	}
	if e, ok := a.Last(); !ok || e.Type != Logout {
		t.Errorf("Last = %+v, %v", e, ok)
	}
	a.Reset()
	if _, ok := a.Last(); ok {
		t.Error("expected empty sink after Reset")
	}
}
