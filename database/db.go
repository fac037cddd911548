package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kbukum/asthma-api/logger"
	"github.com/kbukum/asthma-api/resilience"
)

// DB wraps a GORM database with service logging.
type DB struct {
	GormDB *gorm.DB
	log    *logger.Logger
	cfg    Config
	closed bool
	mu     sync.Mutex
}

// Dialector returns the GORM dialector for cfg.Driver.
func Dialector(cfg Config) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverSQLite:
		return sqlite.Open(cfg.DSN), nil
	case DriverPostgres:
		return postgres.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Open connects with retry and configures the pool. Driver errors are
// translated to gorm.ErrDuplicatedKey and friends so callers can test
// them with errors.Is.
func Open(ctx context.Context, cfg Config, log *logger.Logger) (*DB, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	gormCfg := &gorm.Config{
		Logger:         newGormLogger(log, cfg.SlowQueryThreshold, parseLogLevel(cfg.LogLevel)),
		TranslateError: true,
	}

	backoff := resilience.Backoff{
		MaxAttempts: cfg.MaxRetries,
		Initial:     time.Second,
		Max:         10 * time.Second,
		Factor:      2,
		Jitter:      0.1,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			log.Warn("Database connection attempt failed, retrying", logger.Fields(
				"attempt", attempt,
				logger.FieldError, err.Error(),
				"backoff", delay.String(),
			))
		},
	}

	db, err := resilience.Retry(ctx, backoff, func(attempt int) (*gorm.DB, error) {
		db, err := gorm.Open(dialector, gormCfg)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

		log.Info("Database connection established", logger.Fields(
			"driver", cfg.Driver,
			"attempt", attempt,
		))
		return db, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("database connection canceled: %w", err)
		}
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", cfg.MaxRetries, err)
	}
	return &DB{GormDB: db, log: log, cfg: cfg}, nil
}
