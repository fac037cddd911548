package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Config configures password hashing behavior.
type Config struct {
	// BcryptCost is the bcrypt cost parameter (default: 12, range: 4-31).
	BcryptCost int `mapstructure:"bcrypt_cost"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.BcryptCost == 0 {
		c.BcryptCost = DefaultCost
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt_cost must be between %d and %d (got: %d)", bcrypt.MinCost, bcrypt.MaxCost, c.BcryptCost)
	}
	return nil
}

// NewHasher creates a Hasher from configuration.
func NewHasher(cfg Config) Hasher {
	cfg.ApplyDefaults()
	return NewBcryptHasher(WithCost(cfg.BcryptCost))
}
