// Package logger provides structured logging using zerolog.
//
// It supports JSON and console output, log level configuration and
// component-scoped loggers. Field values whose keys name credentials or
// patient identifiers (email, password, tokens, names, date of birth, zip
// code) are replaced with "[REDACTED]" before they are written.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//	  redact_keys: ["phone"]
//
// # Usage
//
//	log := logger.WithComponent("auth")
//	log.Info("login succeeded", logger.Fields("user_id", id))
package logger
