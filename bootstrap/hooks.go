package bootstrap

import (
	"context"
	"errors"
	"fmt"
)

// Hook runs at a fixed point of the lifecycle.
type Hook func(ctx context.Context) error

// OnStart adds hooks that run once the registered components are up,
// before the configure phase.
func (a *App[C]) OnStart(hooks ...Hook) { a.onStart = append(a.onStart, hooks...) }

// OnReady adds hooks that run after configure, when the HTTP server is
// accepting requests.
func (a *App[C]) OnReady(hooks ...Hook) { a.onReady = append(a.onReady, hooks...) }

// OnStop adds hooks that run before components are stopped.
func (a *App[C]) OnStop(hooks ...Hook) { a.onStop = append(a.onStop, hooks...) }

// runHooks stops at the first failing hook.
func runHooks(ctx context.Context, hooks []Hook) error {
	for i, h := range hooks {
		if err := h(ctx); err != nil {
			return fmt.Errorf("hook #%d: %w", i+1, err)
		}
	}
	return nil
}

// drainHooks runs every hook and joins their errors, so one failing stop
// hook does not skip the others.
func drainHooks(ctx context.Context, hooks []Hook) error {
	var errs []error
	for i, h := range hooks {
		if err := h(ctx); err != nil {
			errs = append(errs, fmt.Errorf("hook #%d: %w", i+1, err))
		}
	}
	return errors.Join(errs...)
}
