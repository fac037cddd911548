package security

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// TLSConfig holds certificate settings. The same block configures the
// HTTPS listener (server side) and outbound connections such as Redis
// (client side).
type TLSConfig struct {
	// CertFile and KeyFile are the PEM certificate and key: the serving
	// certificate for a listener, the client certificate for mTLS.
	CertFile string `yaml:"cert_file" mapstructure:"cert_file"`
	KeyFile  string `yaml:"key_file" mapstructure:"key_file"`

	// CAFile verifies the peer: server certificates on the client side,
	// client certificates on the server side (which turns on mTLS).
	CAFile string `yaml:"ca_file" mapstructure:"ca_file"`

	// ServerName overrides the name checked against the server certificate.
	ServerName string `yaml:"server_name" mapstructure:"server_name"`

	// SkipVerify disables server certificate verification. Development only.
	SkipVerify bool `yaml:"skip_verify" mapstructure:"skip_verify"`

	// MinVersion is the minimum TLS version. Defaults to TLS 1.2.
	MinVersion uint16 `yaml:"min_version" mapstructure:"min_version"`
}

// Validate checks that the TLS configuration is consistent.
func (c *TLSConfig) Validate() error {
	if c == nil {
		return nil
	}
	if (c.CertFile != "") != (c.KeyFile != "") {
		return fmt.Errorf("tls: both cert_file and key_file must be provided together")
	}
	return nil
}

// IsEnabled reports whether any TLS setting is configured.
func (c *TLSConfig) IsEnabled() bool {
	if c == nil {
		return false
	}
	return c.SkipVerify || c.CAFile != "" || c.CertFile != "" || c.ServerName != ""
}

// ServesTLS reports whether a listener should terminate TLS.
func (c *TLSConfig) ServesTLS() bool {
	return c != nil && c.CertFile != "" && c.KeyFile != ""
}

// ClientConfig builds a *tls.Config for outbound connections, or nil when
// nothing is configured.
func (c *TLSConfig) ClientConfig() (*tls.Config, error) {
	if !c.IsEnabled() {
		return nil, nil
	}
	cfg := c.base()
	cfg.InsecureSkipVerify = c.SkipVerify
	cfg.ServerName = c.ServerName

	if c.CAFile != "" {
		pool, err := loadPool(c.CAFile)
		if err != nil {
			return nil, err
		}
		cfg.RootCAs = pool
	}
	if err := c.loadKeyPair(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ServerConfig builds a *tls.Config for a listener. It returns nil when no
// serving certificate is configured. A CAFile requires and verifies
// client certificates.
func (c *TLSConfig) ServerConfig() (*tls.Config, error) {
	if !c.ServesTLS() {
		return nil, nil
	}
	cfg := c.base()
	if err := c.loadKeyPair(cfg); err != nil {
		return nil, err
	}
	if c.CAFile != "" {
		pool, err := loadPool(c.CAFile)
		if err != nil {
			return nil, err
		}
		cfg.ClientCAs = pool
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return cfg, nil
}

func (c *TLSConfig) base() *tls.Config {
	minVersion := c.MinVersion
	if minVersion == 0 {
		minVersion = tls.VersionTLS12
	}
	return &tls.Config{MinVersion: minVersion}
}

func (c *TLSConfig) loadKeyPair(cfg *tls.Config) error {
	if c.CertFile == "" || c.KeyFile == "" {
		return nil
	}
	cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
	if err != nil {
		return fmt.Errorf("tls: failed to load certificate: %w", err)
	}
	cfg.Certificates = []tls.Certificate{cert}
	return nil
}

func loadPool(path string) (*x509.CertPool, error) {
	ca, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tls: failed to read CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(ca) {
		return nil, fmt.Errorf("tls: failed to parse CA certificate")
	}
	return pool, nil
}
