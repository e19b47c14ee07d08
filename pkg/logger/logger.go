package logger

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap logger with the helpers used across the services.
type Logger struct {
	*zap.Logger
}

// New creates a logger for the given level ("debug", "info", ...) and encoding ("json" or "console").
func New(level, encoding string) (*Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level %q: %w", level, err)
	}
	if encoding == "" {
		encoding = "json"
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = encoding
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if encoding == "console" {
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zl, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return &Logger{Logger: zl}, nil
}

// NewNop returns a logger that discards everything. Used by tests.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

func (l *Logger) Debug(msg string, fields ...zap.Field) { l.Logger.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...zap.Field)  { l.Logger.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...zap.Field)  { l.Logger.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...zap.Field) { l.Logger.Error(msg, fields...) }
func (l *Logger) Fatal(msg string, fields ...zap.Field) { l.Logger.Fatal(msg, fields...) }

// DebugContext logs at debug level, attaching the run id carried by ctx if any.
func (l *Logger) DebugContext(ctx context.Context, msg string, fields ...zap.Field) {
	l.Logger.Debug(msg, withContext(ctx, fields)...)
}

// InfoContext logs at info level, attaching the run id carried by ctx if any.
func (l *Logger) InfoContext(ctx context.Context, msg string, fields ...zap.Field) {
	l.Logger.Info(msg, withContext(ctx, fields)...)
}

// WarnContext logs at warn level, attaching the run id carried by ctx if any.
func (l *Logger) WarnContext(ctx context.Context, msg string, fields ...zap.Field) {
	l.Logger.Warn(msg, withContext(ctx, fields)...)
}

// ErrorContext logs at error level, attaching the run id carried by ctx if any.
func (l *Logger) ErrorContext(ctx context.Context, msg string, fields ...zap.Field) {
	l.Logger.Error(msg, withContext(ctx, fields)...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.Logger.Sync()
}

type runIDKey struct{}

// WithRunID returns a context that tags every *Context log call with the run id.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunID extracts the run id stored by WithRunID.
func RunID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

func withContext(ctx context.Context, fields []zap.Field) []zap.Field {
	if id := RunID(ctx); id != "" {
		return append(fields, zap.String("run_id", id))
	}
	return fields
}

func Field(key string, value interface{}) zap.Field { return zap.Any(key, value) }

func StringField(key, value string) zap.Field { return zap.String(key, value) }

func IntField(key string, value int) zap.Field { return zap.Int(key, value) }

func FloatField(key string, value float64) zap.Field { return zap.Float64(key, value) }

func BoolField(key string, value bool) zap.Field { return zap.Bool(key, value) }

func DurationField(key string, value time.Duration) zap.Field { return zap.Duration(key, value) }

func ErrorField(err error) zap.Field { return zap.Error(err) }
