package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kbukum/asthma-api/logger"
)

func parseLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

// gormLogger routes GORM output through the service logger. SQL text is
// logged with bound values elided, so credentials and patient data in
// query parameters never reach the log.
type gormLogger struct {
	log           *logger.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

func newGormLogger(log *logger.Logger, slowThreshold time.Duration, level gormlogger.LogLevel) gormlogger.Interface {
	return &gormLogger{
		log:           log.WithComponent("gorm"),
		level:         level,
		slowThreshold: slowThreshold,
	}
}

func (l *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	return &gormLogger{log: l.log, level: level, slowThreshold: l.slowThreshold}
}

func (l *gormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Info {
		l.log.WithContext(ctx).Info(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.log.WithContext(ctx).Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Error {
		l.log.WithContext(ctx).Error(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	log := l.log.WithContext(ctx)

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormlogger.Error:
		sql, rows := fc()
		log.Error("Query error", logger.Fields(
			"sql", elideValues(sql), "duration", elapsed.String(), "rows", rows, logger.FieldError, err.Error(),
		))
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		log.Warn("Slow query", logger.Fields(
			"sql", elideValues(sql), "duration", elapsed.String(), "rows", rows,
		))
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		log.Debug("Query", logger.Fields(
			"sql", elideValues(sql), "duration", elapsed.String(), "rows", rows,
		))
	}
}

// elideValues replaces quoted literals in GORM's rendered SQL with '?'.
func elideValues(sql string) string {
	var b strings.Builder
	b.Grow(len(sql))
	inQuote := false
	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		if ch != '\'' && ch != '"' {
			if !inQuote {
				b.WriteByte(ch)
			}
			continue
		}
		if ch == '"' {
			// Identifiers are double quoted.
			if !inQuote {
				b.WriteByte(ch)
			}
			continue
		}
		if inQuote && i+1 < len(sql) && sql[i+1] == '\'' {
			i++
			continue
		}
		if !inQuote {
			b.WriteString("'?'")
		}
		inQuote = !inQuote
	}
	return b.String()
}
