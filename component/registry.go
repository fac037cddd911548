package component

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/asthma-api/logger"
)

// DefaultStopTimeout bounds how long a single component may take to stop.
const DefaultStopTimeout = 10 * time.Second

type entry struct {
	component Component
	started   bool
}

// Registry starts components in registration order and stops them in
// reverse, so dependencies (database) outlive their dependents (server).
type Registry struct {
	mu          sync.RWMutex
	entries     []*entry
	byName      map[string]*entry
	log         *logger.Logger
	stopTimeout time.Duration
}

// NewRegistry creates an empty registry. A nil logger uses the global one.
func NewRegistry(log *logger.Logger) *Registry {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Registry{
		byName:      make(map[string]*entry),
		log:         log.WithComponent("components"),
		stopTimeout: DefaultStopTimeout,
	}
}

// Register adds c. Register dependencies first.
func (r *Registry) Register(c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("component %s already registered", name)
	}
	e := &entry{component: c}
	r.entries = append(r.entries, e)
	r.byName[name] = e
	return nil
}

// StartAll starts every component not yet started, in registration order,
// and stops at the first failure. Components started before the failure stay started; call
// StopAll to release them.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.started {
			continue
		}
		name := e.component.Name()
		if err := e.component.Start(ctx); err != nil {
			r.log.Error("Component start failed", logger.Fields("component", name, "error", err.Error()))
			return fmt.Errorf("failed to start %s: %w", name, err)
		}
		e.started = true

		fields := logger.Fields("component", name)
		if d, ok := e.component.(Describable); ok {
			desc := d.Describe()
			fields["type"] = desc.Type
			if desc.Details != "" {
				fields["details"] = desc.Details
			}
		}
		r.log.Info("Component started", fields)
	}
	return nil
}

// StopAll stops started components in reverse order. Every component gets
// a stop attempt; errors are joined.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if !e.started {
			continue
		}
		name := e.component.Name()

		stopCtx, cancel := context.WithTimeout(ctx, r.stopTimeout)
		err := e.component.Stop(stopCtx)
		cancel()
		e.started = false

		if err != nil {
			errs = append(errs, fmt.Errorf("failed to stop %s: %w", name, err))
			r.log.Error("Component stop failed", logger.Fields("component", name, "error", err.Error()))
			continue
		}
		r.log.Info("Component stopped", logger.Fields("component", name))
	}
	return errors.Join(errs...)
}

// HealthAll returns health status for all registered components.
func (r *Registry) HealthAll(ctx context.Context) []Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]Health, 0, len(r.entries))
	for _, e := range r.entries {
		results = append(results, e.component.Health(ctx))
	}
	return results
}

// Get returns a registered component by name, or nil if not found.
func (r *Registry) Get(name string) Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.byName[name]; ok {
		return e.component
	}
	return nil
}
