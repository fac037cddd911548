package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/asthma-api/logger"
)

// Client is a go-redis client built from Config.
type Client struct {
	rdb       *goredis.Client
	log       *logger.Logger
	closeOnce sync.Once
	closeErr  error
}

// New builds a client without dialing; go-redis connects lazily.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	cfg.ApplyDefaults()
	if !cfg.Enabled {
		return nil, fmt.Errorf("redis is disabled")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("redis config: %w", err)
	}
	tlsCfg, err := cfg.TLS.ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("redis config: %w", err)
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		TLSConfig:    tlsCfg,
	})
	log.Debug("Redis client created", logger.Fields("addr", cfg.Addr, "db", cfg.DB, "tls", tlsCfg != nil))
	return &Client{rdb: rdb, log: log}, nil
}

// Ping round-trips a PING and returns its latency.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("redis ping: %w", err)
	}
	return time.Since(start), nil
}

// Close releases the pool. Later calls return the first result.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.closeOnce.Do(func() {
		c.log.Info("Closing Redis connection")
		c.closeErr = c.rdb.Close()
	})
	return c.closeErr
}

// Unwrap exposes the go-redis client for scripts.
func (c *Client) Unwrap() *goredis.Client { return c.rdb }
