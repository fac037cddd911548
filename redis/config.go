package redis

import (
	"fmt"
	"time"

	"github.com/kbukum/asthma-api/security"
)

// Config holds Redis connection configuration.
type Config struct {
	// Enabled controls whether the Redis component is active.
	Enabled bool `mapstructure:"enabled"`

	// Addr is the Redis server address (host:port).
	Addr string `mapstructure:"addr"`

	// Password is the Redis server password.
	Password string `mapstructure:"password"`

	// DB is the Redis database number.
	DB int `mapstructure:"db"`

	// PoolSize is the maximum number of socket connections.
	PoolSize int `mapstructure:"pool_size"`

	// MinIdleConns is the minimum number of idle connections.
	MinIdleConns int `mapstructure:"min_idle_conns"`

	// MaxRetries is the number of times go-redis retries a failed command.
	MaxRetries int `mapstructure:"max_retries"`

	// ConnectAttempts is the number of pings tried at startup (default: 3).
	ConnectAttempts int `mapstructure:"connect_attempts"`

	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// TLS enables encrypted connections, e.g. to a managed Redis.
	TLS security.TLSConfig `mapstructure:"tls"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = "localhost:6379"
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.MinIdleConns <= 0 {
		c.MinIdleConns = 2
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.ConnectAttempts <= 0 {
		c.ConnectAttempts = 3
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 3 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 3 * time.Second
	}
}

// Validate checks that required fields are present.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Addr == "" {
		return fmt.Errorf("redis addr is required")
	}
	if c.PoolSize <= 0 {
		return fmt.Errorf("pool_size must be > 0")
	}
	if c.DialTimeout < 0 || c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		return fmt.Errorf("redis timeouts must not be negative")
	}
	if err := c.TLS.Validate(); err != nil {
		return fmt.Errorf("redis %w", err)
	}
	return nil
}
