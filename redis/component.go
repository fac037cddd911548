package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/asthma-api/component"
	"github.com/kbukum/asthma-api/logger"
	"github.com/kbukum/asthma-api/resilience"
)

// Component owns a Client for the lifetime of the service.
type Component struct {
	client *Client
	cfg    Config
	log    *logger.Logger
}

var _ component.Component = (*Component)(nil)

// NewComponent creates a Redis component for use with the component registry.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log.WithComponent("redis")}
}

// Client returns the underlying *Client, or nil if not started.
func (c *Component) Client() *Client { return c.client }

// Name returns the component name.
func (c *Component) Name() string { return "redis" }

// Start creates the client and waits for Redis to answer a ping, retrying
// up to ConnectAttempts times.
func (c *Component) Start(ctx context.Context) error {
	client, err := New(c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("redis start: %w", err)
	}
	backoff := resilience.Backoff{
		MaxAttempts: c.cfg.ConnectAttempts,
		Initial:     200 * time.Millisecond,
		Max:         5 * time.Second,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			c.log.Warn("Redis not reachable, retrying", logger.Fields(
				"attempt", attempt,
				logger.FieldError, err.Error(),
				"backoff", delay.String(),
			))
		},
	}
	rtt, err := resilience.Retry(ctx, backoff, func(int) (time.Duration, error) {
		return client.Ping(ctx)
	})
	if err != nil {
		_ = client.Close()
		return fmt.Errorf("redis start: %w", err)
	}
	c.client = client
	c.log.Info("Redis connection established", logger.Fields("addr", c.cfg.Addr, "ping", rtt.String()))
	return nil
}

// Stop closes the connection pool.
func (c *Component) Stop(_ context.Context) error {
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

// Health pings Redis and reports the round-trip time.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	if c.client == nil {
		h.Status = component.StatusUnhealthy
		h.Message = "redis not initialized"
		return h
	}
	rtt, err := c.client.Ping(ctx)
	if err != nil {
		h.Status = component.StatusUnhealthy
		h.Message = err.Error()
		return h
	}
	h.Message = "ping " + rtt.Round(time.Microsecond).String()
	return h
}

// Describe returns a one-line summary for the startup log.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Redis",
		Type:    "redis",
		Details: fmt.Sprintf("%s db=%d pool=%d", c.cfg.Addr, c.cfg.DB, c.cfg.PoolSize),
	}
}
