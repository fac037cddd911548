package app

import (
	"fmt"

	"github.com/kbukum/asthma-api/auth/jwt"
	"github.com/kbukum/asthma-api/auth/password"
	"github.com/kbukum/asthma-api/config"
	"github.com/kbukum/asthma-api/database"
	apperrors "github.com/kbukum/asthma-api/errors"
	"github.com/kbukum/asthma-api/observability"
	"github.com/kbukum/asthma-api/ratelimit"
	"github.com/kbukum/asthma-api/redis"
	"github.com/kbukum/asthma-api/server"
)

// ServiceName names the binary, its config directory and its log tag.
const ServiceName = "asthma-api"

// Config is the complete service configuration.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Database      database.Config      `yaml:"database" mapstructure:"database"`
	Redis         redis.Config         `yaml:"redis" mapstructure:"redis"`
	RateLimit     ratelimit.Config     `yaml:"ratelimit" mapstructure:"ratelimit"`
	Auth          AuthConfig           `yaml:"auth" mapstructure:"auth"`
	Audit         AuditConfig          `yaml:"audit" mapstructure:"audit"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// AuthConfig groups token and password settings.
type AuthConfig struct {
	JWT      jwt.Config      `yaml:"jwt" mapstructure:"jwt"`
	Password password.Config `yaml:"password" mapstructure:"password"`
}

// AuditConfig configures the audit pipeline.
type AuditConfig struct {
	// BufferSize is the number of events queued before new ones are dropped.
	BufferSize int `yaml:"buffer_size" mapstructure:"buffer_size"`
}

// ApplyDefaults fills in every section.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = ServiceName
	}
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Database.ApplyDefaults()
	c.Redis.ApplyDefaults()
	c.RateLimit.ApplyDefaults()
	c.Auth.JWT.ApplyDefaults()
	c.Auth.Password.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

// Validate checks every section. A missing or unusable token secret is a
// CONFIG_ERROR and the service must not start.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Auth.JWT.Validate(); err != nil {
		return apperrors.Config("auth.jwt: " + err.Error()).WithCause(err)
	}
	checks := []struct {
		section string
		check   func() error
	}{
		{"server", c.Server.Validate},
		{"database", c.Database.Validate},
		{"redis", c.Redis.Validate},
		{"ratelimit", c.RateLimit.Validate},
		{"auth.password", c.Auth.Password.Validate},
		{"observability", c.Observability.Validate},
	}
	for _, ch := range checks {
		if err := ch.check(); err != nil {
			return fmt.Errorf("%s: %w", ch.section, err)
		}
	}
	if c.RateLimit.Store == ratelimit.StoreRedis && !c.Redis.Enabled {
		return fmt.Errorf("ratelimit.store is redis but redis.enabled is false")
	}
	if c.Audit.BufferSize < 0 {
		return fmt.Errorf("audit.buffer_size must not be negative")
	}
	return nil
}
