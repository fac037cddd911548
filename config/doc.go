// Package config loads service configuration with Viper.
//
// A YAML file (cmd/<service>/config.yml by default) provides the base
// values; a .env file and the process environment override them. An
// environment variable maps onto nested keys by splitting on underscores,
// so AUTH_JWT_SECRET sets auth.jwt.secret.
//
// # Usage
//
//	var cfg app.Config
//	if err := config.LoadConfig("asthma-api", &cfg); err != nil { ... }
package config
