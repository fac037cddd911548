package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/kbukum/asthma-api/logger"
)

// PoolStats describes the connection pool after a successful ping.
type PoolStats struct {
	Latency    time.Duration `json:"latency"`
	OpenConns  int           `json:"open_connections"`
	InUseConns int           `json:"in_use_connections"`
	IdleConns  int           `json:"idle_connections"`
}

// Driver returns the configured driver name.
func (d *DB) Driver() string { return d.cfg.Driver }

// Close closes the connection pool. Safe to call more than once.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	sqlDB, err := d.GormDB.DB()
	if err != nil {
		return err
	}
	d.log.Info("Closing database connection", logger.Fields("driver", d.cfg.Driver))
	d.closed = true
	return sqlDB.Close()
}

// CheckHealth pings the database and reports pool usage.
func (d *DB) CheckHealth(ctx context.Context) (PoolStats, error) {
	start := time.Now()

	sqlDB, err := d.GormDB.DB()
	if err != nil {
		return PoolStats{}, err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return PoolStats{Latency: time.Since(start)}, err
	}

	stats := sqlDB.Stats()
	return PoolStats{
		Latency:    time.Since(start),
		OpenConns:  stats.OpenConnections,
		InUseConns: stats.InUse,
		IdleConns:  stats.Idle,
	}, nil
}

// WithContext returns a GORM session scoped to ctx.
func (d *DB) WithContext(ctx context.Context) *gorm.DB {
	return d.GormDB.WithContext(ctx)
}

// AutoMigrate creates or updates the tables for models.
func (d *DB) AutoMigrate(models ...interface{}) error {
	d.log.Info("Running auto-migration", logger.Fields("models", len(models)))
	for _, model := range models {
		if err := d.GormDB.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}
	d.log.Info("Auto-migration completed")
	return nil
}

// TransactionFunc runs inside a transaction.
type TransactionFunc func(tx *gorm.DB) error

// WithTransaction runs fn in a transaction. The transaction is rolled back
// when fn returns an error or panics; a panic is re-raised after rollback.
func (d *DB) WithTransaction(ctx context.Context, fn TransactionFunc) (err error) {
	tx := d.GormDB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			d.log.Error("Transaction rolled back after panic", logger.Fields("panic", fmt.Sprint(r)))
			panic(r)
		}
	}()

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil {
			d.log.Warn("Transaction rollback failed", logger.Fields(logger.FieldError, rbErr.Error()))
		}
		return err
	}
	if err = tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
