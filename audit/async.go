package audit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kbukum/asthma-api/component"
	"github.com/kbukum/asthma-api/logger"
)

// DefaultBufferSize is the AsyncSink queue length when none is given.
const DefaultBufferSize = 1024

type queued struct {
	ctx   context.Context
	event Event
}

// AsyncSink hands events to a background worker so request handlers never
// wait on the underlying sink. When the buffer is full the event is dropped
// and counted.
type AsyncSink struct {
	next   Sink
	events chan queued
	log    *logger.Logger

	mu      sync.RWMutex
	closed  bool
	started bool
	done    chan struct{}

	dropped atomic.Uint64
}

var (
	_ Sink                = (*AsyncSink)(nil)
	_ component.Component = (*AsyncSink)(nil)
)

// NewAsyncSink wraps next with a queue of bufferSize events.
func NewAsyncSink(next Sink, bufferSize int, log *logger.Logger) *AsyncSink {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &AsyncSink{
		next:   next,
		events: make(chan queued, bufferSize),
		log:    log.WithComponent("audit"),
		done:   make(chan struct{}),
	}
}

// Record implements Sink.
func (s *AsyncSink) Record(ctx context.Context, e Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.drop(e)
		return
	}
	select {
	case s.events <- queued{ctx: context.WithoutCancel(ctx), event: e}:
	default:
		s.drop(e)
	}
}

func (s *AsyncSink) drop(e Event) {
	n := s.dropped.Add(1)
	// Log the first drop and then every hundredth to avoid flooding.
	if n == 1 || n%100 == 0 {
		s.log.Warn("Audit event dropped", logger.Fields("event", string(e.Type), "dropped_total", n))
	}
}

// Dropped returns how many events were discarded.
func (s *AsyncSink) Dropped() uint64 { return s.dropped.Load() }

// Pending returns the number of queued events.
func (s *AsyncSink) Pending() int { return len(s.events) }

func (s *AsyncSink) Name() string { return "audit" }

// Start launches the worker.
func (s *AsyncSink) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("audit sink already stopped")
	}
	if s.started {
		return nil
	}
	s.started = true
	go s.run()
	return nil
}

func (s *AsyncSink) run() {
	defer close(s.done)
	for q := range s.events {
		s.next.Record(q.ctx, q.event)
	}
}

// Stop closes the queue and waits for the worker to flush it.
func (s *AsyncSink) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.events)
	started := s.started
	s.mu.Unlock()

	if !started {
		s.run()
		return nil
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("audit flush: %w (%d events pending)", ctx.Err(), len(s.events))
	}
}

func (s *AsyncSink) Health(_ context.Context) component.Health {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := component.Health{Name: s.Name(), Status: component.StatusHealthy}
	switch {
	case !s.started || s.closed:
		h.Status = component.StatusUnhealthy
		h.Message = "not running"
	case len(s.events) == cap(s.events):
		h.Status = component.StatusDegraded
		h.Message = fmt.Sprintf("buffer full, %d dropped", s.dropped.Load())
	case s.dropped.Load() > 0:
		h.Message = fmt.Sprintf("%d dropped", s.dropped.Load())
	}
	return h
}

// Describe implements component.Describable.
func (s *AsyncSink) Describe() component.Description {
	return component.Description{
		Name:    "Audit",
		Type:    "audit",
		Details: fmt.Sprintf("async buffer=%d", cap(s.events)),
	}
}
