package bootstrap

import (
	"time"

	"github.com/kbukum/asthma-api/logger"
)

const defaultGracefulTimeout = 15 * time.Second

// Option tunes NewApp.
type Option func(*settings)

type settings struct {
	logger          *logger.Logger
	gracefulTimeout time.Duration
}

func newSettings(opts []Option) settings {
	s := settings{gracefulTimeout: defaultGracefulTimeout}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithLogger uses l instead of initializing the global logger from the
// Logging section of the config.
func WithLogger(l *logger.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithGracefulTimeout bounds shutdown. Non-positive values are ignored.
func WithGracefulTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.gracefulTimeout = d
		}
	}
}
