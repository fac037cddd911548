// Package testutil opens throwaway databases for tests.
package testutil

import (
	"context"
	"testing"

	"github.com/kbukum/asthma-api/database"
	"github.com/kbukum/asthma-api/logger"
)

// Config returns a sqlite in-memory configuration. The pool is limited to
// one connection because every new sqlite :memory: connection is a new,
// empty database.
func Config() database.Config {
	return database.Config{
		Driver:       database.DriverSQLite,
		DSN:          ":memory:",
		MaxOpenConns: 1,
		MaxRetries:   1,
		AutoMigrate:  true,
		LogLevel:     "silent",
	}
}

// NewDB opens an in-memory database with models migrated and closes it
// when the test ends.
func NewDB(t testing.TB, models ...interface{}) *database.DB {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, Config(), logger.Nop())
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			t.Fatalf("migrate test database: %v", err)
		}
	}
	return db
}
