package database

import (
	"context"
	"fmt"

	"github.com/kbukum/asthma-api/component"
	"github.com/kbukum/asthma-api/logger"
)

// Component owns the DB for the lifetime of the service.
type Component struct {
	db     *DB
	cfg    Config
	log    *logger.Logger
	models []interface{}
}

var _ component.Component = (*Component)(nil)

// NewComponent creates a database component for the registry.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{
		cfg: cfg,
		log: log.WithComponent("database"),
	}
}

// WithAutoMigrate registers models migrated on Start when auto_migrate is on.
func (c *Component) WithAutoMigrate(models ...interface{}) *Component {
	c.models = append(c.models, models...)
	return c
}

// DB returns the underlying *DB, or nil if not started.
func (c *Component) DB() *DB {
	return c.db
}

func (c *Component) Name() string { return "database" }

// Start connects and optionally runs auto-migration.
func (c *Component) Start(ctx context.Context) error {
	db, err := Open(ctx, c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("database start: %w", err)
	}
	c.db = db

	if c.cfg.AutoMigrate && len(c.models) > 0 {
		if err := c.db.AutoMigrate(c.models...); err != nil {
			_ = c.db.Close()
			c.db = nil
			return fmt.Errorf("database auto-migrate: %w", err)
		}
	}
	return nil
}

// Stop closes the connection pool.
func (c *Component) Stop(_ context.Context) error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *Component) Health(ctx context.Context) component.Health {
	if c.db == nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: "database not initialized",
		}
	}

	stats, err := c.db.CheckHealth(ctx)
	if err != nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: fmt.Sprintf("ping failed: %v", err),
		}
	}
	return component.Health{
		Name:    c.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("open=%d in_use=%d idle=%d", stats.OpenConns, stats.InUseConns, stats.IdleConns),
	}
}

// Describe returns a one-line summary for the startup log.
func (c *Component) Describe() component.Description {
	details := fmt.Sprintf("%s pool=%d/%d", c.cfg.Driver, c.cfg.MaxOpenConns, c.cfg.MaxIdleConns)
	if c.cfg.AutoMigrate {
		details += " auto-migrate=on"
	}
	return component.Description{
		Name:    "Database",
		Type:    "database",
		Details: details,
	}
}
