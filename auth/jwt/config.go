package jwt

import (
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// SigningMethod defines the supported HMAC signing algorithms.
type SigningMethod string

const (
	HS256 SigningMethod = "HS256"
	HS384 SigningMethod = "HS384"
	HS512 SigningMethod = "HS512"
)

const (
	DefaultIssuer          = "asthma-api"
	DefaultAudience        = "asthma-app"
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Config configures the token service.
type Config struct {
	// Secret is the HMAC key shared by access and refresh tokens. Required.
	Secret string `mapstructure:"secret"`

	// Method is the signing algorithm (default: HS256).
	Method SigningMethod `mapstructure:"method"`

	// Issuer is the "iss" claim written and required on verify.
	Issuer string `mapstructure:"issuer"`

	// Audience is the "aud" claim written and required on verify.
	Audience string `mapstructure:"audience"`

	// AccessTokenTTL is the lifetime of access tokens (default: 15m).
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`

	// RefreshTokenTTL is the lifetime of refresh tokens (default: 7d).
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Method == "" {
		c.Method = HS256
	}
	if c.Issuer == "" {
		c.Issuer = DefaultIssuer
	}
	if c.Audience == "" {
		c.Audience = DefaultAudience
	}
	if c.AccessTokenTTL == 0 {
		c.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if c.RefreshTokenTTL == 0 {
		c.RefreshTokenTTL = DefaultRefreshTokenTTL
	}
}

// Validate checks required fields. Every failure wraps ErrConfig.
func (c *Config) Validate() error {
	if c.Secret == "" {
		return fmt.Errorf("%w: secret is required", ErrConfig)
	}
	switch c.Method {
	case HS256, HS384, HS512:
	default:
		return fmt.Errorf("%w: unsupported signing method %q", ErrConfig, c.Method)
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("%w: token lifetimes must be positive", ErrConfig)
	}
	if c.RefreshTokenTTL < c.AccessTokenTTL {
		return fmt.Errorf("%w: refresh_token_ttl must not be shorter than access_token_ttl", ErrConfig)
	}
	return nil
}

// signingMethod returns the golang-jwt SigningMethod instance.
func (c *Config) signingMethod() gojwt.SigningMethod {
	switch c.Method {
	case HS384:
		return gojwt.SigningMethodHS384
	case HS512:
		return gojwt.SigningMethodHS512
	default:
		return gojwt.SigningMethodHS256
	}
}
