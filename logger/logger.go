package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const FormatPretty = "pretty"

// Logger wraps zerolog.Logger. Every field passed to it goes through the
// redactor before it is written.
type Logger struct {
	logger   zerolog.Logger
	service  string
	redactor *Redactor
}

// Init initializes the global logger from config.
func Init(cfg Config) {
	cfg.ApplyDefaults()
	globalLogger = New(&cfg, cfg.ServiceName)

	level, _ := zerolog.ParseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	if isConsole(cfg.Format) {
		log.Logger = newConsoleLogger(&cfg, outputWriter(cfg.Output))
	}
}

// New creates a new logger writing to the configured output.
func New(cfg *Config, serviceName string) *Logger {
	return NewWithWriter(cfg, serviceName, outputWriter(cfg.Output))
}

// NewWithWriter creates a logger writing to w. Tests use it to capture output.
func NewWithWriter(cfg *Config, serviceName string, w io.Writer) *Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var zl zerolog.Logger
	if isConsole(cfg.Format) {
		zl = newConsoleLogger(cfg, w)
	} else {
		zl = zerolog.New(w)
	}
	zl = zl.Level(level)

	if cfg.Timestamp {
		zl = zl.With().Timestamp().Logger()
	}
	if cfg.Caller {
		zl = zl.With().Caller().Logger()
	}
	if serviceName != "" && serviceName != "default" {
		zl = zl.With().Str(FieldService, serviceName).Logger()
	}

	return &Logger{
		logger:   zl,
		service:  serviceName,
		redactor: NewRedactor(cfg.RedactKeys...),
	}
}

// NewDefault creates a logger with default configuration.
func NewDefault(serviceName string) *Logger {
	cfg := &Config{
		Level:     "info",
		Format:    "console",
		Output:    "stdout",
		Timestamp: true,
	}
	return New(cfg, serviceName)
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{logger: zerolog.Nop(), redactor: NewRedactor()}
}

// WithContext returns a logger enriched with the request and user IDs
// stored in ctx by ContextWithRequestID / ContextWithUserID.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	zc := l.logger.With()

	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		zc = zc.Str(FieldRequestID, v)
	}
	if v, ok := ctx.Value(userIDKey).(string); ok && v != "" {
		zc = zc.Str(FieldUserID, v)
	}
	if v, ok := ctx.Value(traceIDKey).(string); ok && v != "" {
		zc = zc.Str(FieldTraceID, v)
	}

	return l.derive(zc.Logger())
}

// WithComponent returns a logger tagged with a component name.
func (l *Logger) WithComponent(name string) *Logger {
	return l.derive(l.logger.With().Str(FieldComponent, name).Logger())
}

// WithFields returns a logger with additional (redacted) fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	zc := l.logger.With()
	for k, v := range l.redactor.Redact(fields) {
		zc = zc.Interface(k, v)
	}
	return l.derive(zc.Logger())
}

// WithError returns a logger with an error field.
func (l *Logger) WithError(err error) *Logger {
	return l.derive(l.logger.With().Err(err).Logger())
}

// GetLogger returns the underlying zerolog.Logger.
func (l *Logger) GetLogger() zerolog.Logger {
	return l.logger
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.write(l.logger.Debug(), msg, fields)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.write(l.logger.Info(), msg, fields)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.write(l.logger.Warn(), msg, fields)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.write(l.logger.Error(), msg, fields)
}

// Fatal logs a fatal message and exits.
func (l *Logger) Fatal(msg string, fields ...map[string]interface{}) {
	l.write(l.logger.Fatal(), msg, fields)
}

func (l *Logger) write(event *zerolog.Event, msg string, fields []map[string]interface{}) {
	if event == nil {
		return
	}
	for _, fm := range fields {
		for k, v := range l.redactor.Redact(fm) {
			event.Interface(k, v)
		}
	}
	event.Msg(msg)
}

func (l *Logger) derive(zl zerolog.Logger) *Logger {
	return &Logger{logger: zl, service: l.service, redactor: l.redactor}
}

// --- Global logger ---

var globalLogger *Logger

// SetGlobalLogger sets the global logger instance.
func SetGlobalLogger(l *Logger) { globalLogger = l }

// GetGlobalLogger returns the global logger, creating a default one if needed.
func GetGlobalLogger() *Logger {
	if globalLogger == nil {
		globalLogger = NewDefault("default")
	}
	return globalLogger
}

// Package-level convenience functions delegate to the global logger.

func Debug(msg string, fields ...map[string]interface{}) {
	GetGlobalLogger().Debug(msg, fields...)
}

func Info(msg string, fields ...map[string]interface{}) {
	GetGlobalLogger().Info(msg, fields...)
}

func Warn(msg string, fields ...map[string]interface{}) {
	GetGlobalLogger().Warn(msg, fields...)
}

func Error(msg string, fields ...map[string]interface{}) {
	GetGlobalLogger().Error(msg, fields...)
}

func Fatal(msg string, fields ...map[string]interface{}) {
	GetGlobalLogger().Fatal(msg, fields...)
}

// WithComponent returns a component-tagged logger from the global logger.
func WithComponent(name string) *Logger {
	return GetGlobalLogger().WithComponent(name)
}

// --- internal helpers ---

func isConsole(format string) bool {
	f := strings.ToLower(format)
	return f == "console" || f == FormatPretty
}

func outputWriter(output string) io.Writer {
	switch strings.ToLower(output) {
	case "stderr":
		return os.Stderr
	default:
		return os.Stdout
	}
}

func newConsoleLogger(cfg *Config, out io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "15:04:05",
		NoColor:    cfg.NoColor,
		FormatLevel: func(i interface{}) string {
			lvl := strings.ToUpper(fmt.Sprintf("%s", i))
			tag, color := levelTag(lvl)
			if cfg.NoColor {
				return "[" + tag + "]"
			}
			return fmt.Sprintf("\033[%dm[%s]\033[0m", color, tag)
		},
		FormatFieldName: func(i interface{}) string {
			return fmt.Sprintf("%s:", i)
		},
	})
}

func levelTag(lvl string) (string, int) {
	switch lvl {
	case "DEBUG":
		return "DBG", 36
	case "INFO":
		return "INF", 32
	case "WARN":
		return "WRN", 33
	case "ERROR":
		return "ERR", 31
	case "FATAL":
		return "FTL", 35
	default:
		return lvl, 37
	}
}
