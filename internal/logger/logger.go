// Package logger provides structured logging for edaloom.
package logger

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu           sync.RWMutex
	globalLogger *zap.Logger
)

type contextKey string

const (
	// RequestIDKey is the context key for the HTTP request ID.
	RequestIDKey contextKey = "request_id"
	// DatasetKey is the context key for the dataset name being processed.
	DatasetKey contextKey = "dataset"
)

// Config represents logger configuration.
type Config struct {
	Level       string
	Development bool
	Encoding    string // json or console
	OutputPaths []string
}

// Init builds the global logger. It may be called again to reconfigure
// (the CLI re-initializes after flags are parsed).
func Init(cfg Config) error {
	l, err := New(cfg)
	if err != nil {
		return err
	}
	mu.Lock()
	old := globalLogger
	globalLogger = l
	mu.Unlock()
	if old != nil {
		_ = old.Sync()
	}
	return nil
}

// New creates a zap logger from cfg. Logs go to stderr unless OutputPaths
// says otherwise so command output on stdout stays clean.
func New(cfg Config) (*zap.Logger, error) {
	lvl := cfg.Level
	if lvl == "" {
		lvl = "warn"
	}
	level, err := zapcore.ParseLevel(lvl)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	encoding := cfg.Encoding
	if encoding == "" {
		encoding = "console"
	}
	if encoding != "console" && encoding != "json" {
		return nil, fmt.Errorf("invalid log encoding %q (want console or json)", encoding)
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if cfg.Development {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	outputPaths := cfg.OutputPaths
	if len(outputPaths) == 0 {
		outputPaths = []string{"stderr"}
	}

	zapCfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Development,
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}
	l, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	if cfg.Development {
		l = l.WithOptions(zap.AddStacktrace(zapcore.ErrorLevel))
	}
	return l, nil
}

// Get returns the global logger, falling back to a no-op logger before Init.
func Get() *zap.Logger {
	mu.RLock()
	l := globalLogger
	mu.RUnlock()
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// WithContext returns a logger carrying request-scoped fields from ctx.
func WithContext(ctx context.Context) *zap.Logger {
	l := Get()
	if id, ok := ctx.Value(RequestIDKey).(string); ok && id != "" {
		l = l.With(zap.String("request_id", id))
	}
	if name, ok := ctx.Value(DatasetKey).(string); ok && name != "" {
		l = l.With(zap.String("dataset", name))
	}
	return l
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) { Get().Debug(msg, fields...) }

// Info logs an info message
func Info(msg string, fields ...zap.Field) { Get().Info(msg, fields...) }

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) { Get().Warn(msg, fields...) }

// Error logs an error message
func Error(msg string, fields ...zap.Field) { Get().Error(msg, fields...) }

// Sync flushes any buffered log entries
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	if globalLogger != nil {
		return globalLogger.Sync()
	}
	return nil
}
