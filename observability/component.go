package observability

import (
	"context"
	"errors"
	"fmt"
	"sync"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/asthma-api/component"
	"github.com/kbukum/asthma-api/logger"
)

// Component owns the tracer and meter providers. Register it first so
// it stops last and flushes telemetry recorded by the other components.
type Component struct {
	cfg  Config
	info ServiceInfo
	log  *logger.Logger

	mu sync.Mutex
	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates the telemetry component.
func NewComponent(cfg Config, info ServiceInfo, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, info: info, log: log.WithComponent("observability")}
}

// Name returns the component name.
func (c *Component) Name() string { return "observability" }

// Start installs the providers when enabled.
func (c *Component) Start(ctx context.Context) error {
	if err := c.cfg.Validate(); err != nil {
		return err
	}
	if !c.cfg.Enabled {
		c.log.Debug("Telemetry export disabled")
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tp != nil {
		return nil
	}

	tp, err := InitTracer(ctx, c.info, c.cfg)
	if err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	mp, err := InitMeter(ctx, c.info, c.cfg)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return fmt.Errorf("observability: %w", err)
	}
	c.tp, c.mp = tp, mp
	return nil
}

// Stop flushes and shuts down the providers.
func (c *Component) Stop(ctx context.Context) error {
	c.mu.Lock()
	tp, mp := c.tp, c.mp
	c.tp, c.mp = nil, nil
	c.mu.Unlock()

	var errs []error
	if mp != nil {
		if err := mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter shutdown: %w", err))
		}
	}
	if tp != nil {
		if err := tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Health reports whether export is active.
func (c *Component) Health(_ context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	if !c.cfg.Enabled {
		h.Message = "disabled"
		return h
	}
	c.mu.Lock()
	running := c.tp != nil
	c.mu.Unlock()
	if !running {
		h.Status = component.StatusUnhealthy
		h.Message = "providers not initialized"
		return h
	}
	h.Message = "exporting to " + c.cfg.Endpoint
	return h
}

// Describe returns a startup summary line.
func (c *Component) Describe() component.Description {
	details := "disabled"
	if c.cfg.Enabled {
		details = fmt.Sprintf("otlp %s sample=%.2f", c.cfg.Endpoint, c.cfg.SampleRate)
	}
	return component.Description{Name: "Telemetry", Type: "observability", Details: details}
}
