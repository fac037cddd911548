package ratelimit

import (
	"fmt"
	"time"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config configures the authentication rate limiter.
type Config struct {
	// Disabled turns the limiter off entirely. The zero value throttles.
	Disabled bool `mapstructure:"disabled"`

	// MaxAttempts is the number of attempts allowed per window (default: 50).
	MaxAttempts int `mapstructure:"max_attempts"`

	// Window is the window length (default: 5m).
	Window time.Duration `mapstructure:"window"`

	// Store selects the backend: "memory" (default) or "redis".
	Store string `mapstructure:"store"`

	// KeyPrefix namespaces keys in a shared store (default: "ratelimit:auth:").
	KeyPrefix string `mapstructure:"key_prefix"`

	// CleanupInterval runs the memory-store janitor when positive. Zero
	// keeps idle entries until their key is seen again.
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 50
	}
	if c.Window == 0 {
		c.Window = 5 * time.Minute
	}
	if c.Store == "" {
		c.Store = StoreMemory
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "ratelimit:auth:"
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("ratelimit.max_attempts must be >= 1 (got: %d)", c.MaxAttempts)
	}
	if c.Window <= 0 {
		return fmt.Errorf("ratelimit.window must be positive (got: %s)", c.Window)
	}
	switch c.Store {
	case StoreMemory, StoreRedis:
	default:
		return fmt.Errorf("ratelimit.store must be one of [memory, redis] (got: %s)", c.Store)
	}
	if c.CleanupInterval < 0 {
		return fmt.Errorf("ratelimit.cleanup_interval must not be negative")
	}
	return nil
}
