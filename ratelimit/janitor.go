package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/asthma-api/component"
	"github.com/kbukum/asthma-api/logger"
)

// Janitor periodically sweeps a MemoryStore so keys that are never seen
// again do not stay in memory forever.
type Janitor struct {
	store    *MemoryStore
	interval time.Duration
	window   time.Duration
	now      func() time.Time
	log      *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	swept  int
}

var _ component.Component = (*Janitor)(nil)

// NewJanitor creates a janitor for store.
func NewJanitor(store *MemoryStore, interval, window time.Duration, log *logger.Logger) *Janitor {
	return &Janitor{
		store:    store,
		interval: interval,
		window:   window,
		now:      time.Now,
		log:      log.WithComponent("ratelimit-janitor"),
	}
}

func (j *Janitor) Name() string { return "ratelimit-janitor" }

// Start launches the sweep loop.
func (j *Janitor) Start(_ context.Context) error {
	if j.interval <= 0 {
		return fmt.Errorf("ratelimit janitor: interval must be positive")
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	j.cancel = cancel
	j.done = make(chan struct{})
	go j.run(ctx)
	return nil
}

func (j *Janitor) run(ctx context.Context) {
	defer close(j.done)
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.SweepOnce()
		}
	}
}

// SweepOnce removes expired entries immediately.
func (j *Janitor) SweepOnce() int {
	n := j.store.Sweep(j.now(), j.window)
	if n > 0 {
		j.mu.Lock()
		j.swept += n
		j.mu.Unlock()
		j.log.Debug("Swept idle rate-limit entries", logger.Fields("removed", n, "remaining", j.store.Len()))
	}
	return n
}

// Stop ends the sweep loop and waits for it to exit.
func (j *Janitor) Stop(ctx context.Context) error {
	j.mu.Lock()
	cancel, done := j.cancel, j.done
	j.cancel = nil
	j.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *Janitor) Health(_ context.Context) component.Health {
	j.mu.Lock()
	defer j.mu.Unlock()
	h := component.Health{Name: j.Name(), Status: component.StatusHealthy}
	if j.cancel == nil {
		h.Status = component.StatusDegraded
		h.Message = "not running"
		return h
	}
	h.Message = fmt.Sprintf("tracking %d keys, swept %d", j.store.Len(), j.swept)
	return h
}
