// Package app wires the service: configuration, infrastructure
// components, the audit pipeline, the account and profile services and the
// HTTP server.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/asthma-api/account"
	"github.com/kbukum/asthma-api/api"
	"github.com/kbukum/asthma-api/audit"
	"github.com/kbukum/asthma-api/auth/jwt"
	"github.com/kbukum/asthma-api/auth/password"
	"github.com/kbukum/asthma-api/bootstrap"
	"github.com/kbukum/asthma-api/database"
	"github.com/kbukum/asthma-api/logger"
	"github.com/kbukum/asthma-api/observability"
	"github.com/kbukum/asthma-api/profile"
	"github.com/kbukum/asthma-api/ratelimit"
	"github.com/kbukum/asthma-api/redis"
	"github.com/kbukum/asthma-api/server"
	"github.com/kbukum/asthma-api/server/middleware"
	"github.com/kbukum/asthma-api/user"
)

// Service is a wired application. Accounts, Profiles and Server are set
// during the configure phase, once infrastructure has started.
type Service struct {
	App *bootstrap.App[*Config]

	Accounts *account.Service
	Profiles *profile.Service
	Server   *server.Server

	db    *database.Component
	redis *redis.Component
	audit *audit.AsyncSink
	now   func() time.Time
	serve bool
}

// Option configures a Service.
type Option func(*options)

type options struct {
	app   []bootstrap.Option
	now   func() time.Time
	serve bool
}

// WithAppOptions passes options to bootstrap.NewApp.
func WithAppOptions(opts ...bootstrap.Option) Option {
	return func(o *options) { o.app = append(o.app, opts...) }
}

// WithClock replaces time.Now for tokens, rate limiting and audit stamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithoutServer wires everything except the HTTP server, for one-shot
// tasks such as seeding.
func WithoutServer() Option {
	return func(o *options) { o.serve = false }
}

// New validates cfg and registers the infrastructure components. Nothing
// is started until Run or RunTask.
func New(cfg *Config, opts ...Option) (*Service, error) {
	o := options{now: time.Now, serve: true}
	for _, opt := range opts {
		opt(&o)
	}

	a, err := bootstrap.NewApp(cfg, o.app...)
	if err != nil {
		return nil, err
	}

	s := &Service{App: a, now: o.now, serve: o.serve}

	info := observability.ServiceInfo{Name: cfg.Name, Version: cfg.Version, Environment: cfg.Environment}
	if err := a.RegisterComponent(observability.NewComponent(cfg.Observability, info, a.Logger)); err != nil {
		return nil, err
	}

	s.db = database.NewComponent(cfg.Database, a.Logger).WithAutoMigrate(user.Models()...)
	if err := a.RegisterComponent(s.db); err != nil {
		return nil, err
	}

	if cfg.Redis.Enabled {
		s.redis = redis.NewComponent(cfg.Redis, a.Logger)
		if err := a.RegisterComponent(s.redis); err != nil {
			return nil, err
		}
	}

	s.audit = audit.NewAsyncSink(audit.NewLogSink(a.Logger), cfg.Audit.BufferSize, a.Logger)
	if err := a.RegisterComponent(s.audit); err != nil {
		return nil, err
	}

	a.OnConfigure(s.configure)
	return s, nil
}

// configure builds the services over the started infrastructure.
func (s *Service) configure(ctx context.Context, a *bootstrap.App[*Config]) error {
	cfg := a.Cfg

	sink, err := audit.NewMeteredSink(s.audit, observability.Meter(observability.InstrumentationName))
	if err != nil {
		return err
	}

	tokens, err := jwt.NewService(cfg.Auth.JWT, jwt.WithClock(s.now))
	if err != nil {
		return err
	}
	users := user.NewGormStore(s.db.DB())
	hasher := password.NewHasher(cfg.Auth.Password)

	s.Accounts = account.NewService(users, hasher, tokens, sink, a.Logger, account.WithClock(s.now))
	s.Profiles = profile.NewService(users, sink, a.Logger)

	if !s.serve {
		return nil
	}

	limiter, err := s.limiter(ctx, cfg)
	if err != nil {
		return err
	}

	metrics, err := observability.NewMetrics(observability.Meter(observability.InstrumentationName))
	if err != nil {
		return err
	}

	s.Server = server.New(cfg.Server, a.Logger)
	s.Server.ApplyDefaults(cfg.Name, a.Components.HealthAll, middleware.Telemetry(metrics))
	api.Register(s.Server.GinEngine(), api.Deps{
		Accounts: s.Accounts,
		Profiles: s.Profiles,
		Tokens:   tokens,
		Users:    users,
		Limiter:  limiter,
		Audit:    sink,
		Log:      a.Logger,
		Now:      s.now,
	})
	return a.RegisterComponent(server.NewComponent(s.Server))
}

// limiter builds the /api/auth rate limiter on the configured store. It
// returns nil when throttling is disabled.
func (s *Service) limiter(_ context.Context, cfg *Config) (middleware.Limiter, error) {
	rl := cfg.RateLimit
	if rl.Disabled {
		s.App.Logger.Warn("Authentication rate limiting is disabled")
		return nil, nil
	}

	var store ratelimit.Store
	switch rl.Store {
	case ratelimit.StoreRedis:
		if s.redis == nil || s.redis.Client() == nil {
			return nil, fmt.Errorf("ratelimit: redis store selected but redis is not running")
		}
		store = ratelimit.NewRedisStore(s.redis.Client().Unwrap())
	default:
		mem := ratelimit.NewMemoryStore()
		if rl.CleanupInterval > 0 {
			janitor := ratelimit.NewJanitor(mem, rl.CleanupInterval, rl.Window, s.App.Logger)
			if err := s.App.RegisterComponent(janitor); err != nil {
				return nil, err
			}
		}
		store = mem
	}

	l, err := ratelimit.New(rl, store, ratelimit.WithClock(s.now))
	if err != nil {
		return nil, err
	}
	s.App.Logger.Info("Authentication rate limiting enabled", logger.Fields(
		"store", rl.Store,
		"max_attempts", l.Limit(),
		"window", l.Window().String(),
	))
	return l, nil
}

// Run serves until SIGINT, SIGTERM or ctx cancellation.
func (s *Service) Run(ctx context.Context) error {
	return s.App.Run(ctx)
}

// RunTask starts the infrastructure, runs task and shuts down.
func (s *Service) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	return s.App.RunTask(ctx, task)
}
