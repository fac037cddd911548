package config

import (
	"fmt"
	"slices"

	"github.com/kbukum/asthma-api/logger"
)

// Deployment environments.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

var environments = []string{EnvDevelopment, EnvStaging, EnvProduction}

// ServiceConfig is the section every service config embeds with
// `mapstructure:",squash"`, so name, environment and logging sit at the
// top level of config.yml.
type ServiceConfig struct {
	Name        string        `yaml:"name" mapstructure:"name"`
	Environment string        `yaml:"environment" mapstructure:"environment"`
	Version     string        `yaml:"version" mapstructure:"version"`
	Debug       bool          `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config `yaml:"logging" mapstructure:"logging"`
}

// GetServiceConfig is promoted to embedding structs.
func (c *ServiceConfig) GetServiceConfig() *ServiceConfig { return c }

// IsProduction reports whether the service runs in production.
func (c *ServiceConfig) IsProduction() bool { return c.Environment == EnvProduction }

// ApplyDefaults defaults the environment to development, which also turns
// on Debug, and tags log lines with the service name.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = EnvDevelopment
	}
	if c.Environment == EnvDevelopment {
		c.Debug = true
	}
	if c.Logging.ServiceName == "" {
		c.Logging.ServiceName = c.Name
	}
	c.Logging.ApplyDefaults()
}

// Validate checks the name, the environment and the logging section.
func (c *ServiceConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("config.name is required")
	}
	if !slices.Contains(environments, c.Environment) {
		return fmt.Errorf("config.environment must be one of %v (got: %s)", environments, c.Environment)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	return nil
}
