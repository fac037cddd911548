// Package security holds the TLS settings shared by the HTTPS listener and
// the outbound Redis connection.
//
//	cfg := security.TLSConfig{CertFile: "cert.pem", KeyFile: "key.pem"}
//	serverTLS, err := cfg.ServerConfig()
package security
