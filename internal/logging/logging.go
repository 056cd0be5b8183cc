package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the logging interface shared by use cases and adapters.
type Logger interface {
	Debug(ctx context.Context, msg string, kv ...any)
	Debugf(ctx context.Context, format string, args ...any)
	Info(ctx context.Context, msg string, kv ...any)
	Infof(ctx context.Context, format string, args ...any)
	Warn(ctx context.Context, msg string, kv ...any)
	Warnf(ctx context.Context, format string, args ...any)
	Error(ctx context.Context, msg string, kv ...any)
	Errorf(ctx context.Context, format string, args ...any)
	With(kv ...any) Logger
}

type contextKey struct{}

var loggerKey contextKey

// WithLogger stores a logger in context.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext retrieves a logger from context, returns the default logger if absent.
func FromContext(ctx context.Context) Logger {
	if v, ok := ctx.Value(loggerKey).(Logger); ok && v != nil {
		return v
	}
	return defaultLogger
}

var defaultLogger Logger = &slogLogger{logger: slog.Default()}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() Logger {
	return &slogLogger{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// New constructs a Logger of the given format (human|text|json) writing to stderr.
func New(format string, level slog.Leveler) (Logger, error) {
	return NewWithWriter(format, level, os.Stderr)
}

// NewWithWriter constructs a Logger of the given format, level and writer.
// The human format is slog's text handler without timestamps.
func NewWithWriter(format string, level slog.Leveler, w io.Writer) (Logger, error) {
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	switch format {
	case "", "human":
		h = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: level,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if len(groups) == 0 && a.Key == slog.TimeKey {
					return slog.Attr{}
				}
				return a
			},
		})
	case "text":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("unsupported log format: %s", format)
	}
	return &slogLogger{logger: slog.New(h)}, nil
}

// ParseLevel converts DEBUG|INFO|WARN|ERROR (any case) to a slog level.
// Empty means INFO.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "INFO":
		return slog.LevelInfo, nil
	case "DEBUG":
		return slog.LevelDebug, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unsupported log level: %s", s)
	}
}

// slogLogger adapts slog.Logger to Logger.
type slogLogger struct{ logger *slog.Logger }

func (l *slogLogger) Debug(ctx context.Context, msg string, kv ...any) {
	l.logger.DebugContext(ctx, msg, kv...)
}
func (l *slogLogger) Debugf(ctx context.Context, format string, args ...any) {
	l.logger.DebugContext(ctx, fmt.Sprintf(format, args...))
}
func (l *slogLogger) Info(ctx context.Context, msg string, kv ...any) {
	l.logger.InfoContext(ctx, msg, kv...)
}
func (l *slogLogger) Infof(ctx context.Context, format string, args ...any) {
	l.logger.InfoContext(ctx, fmt.Sprintf(format, args...))
}
func (l *slogLogger) Warn(ctx context.Context, msg string, kv ...any) {
	l.logger.WarnContext(ctx, msg, kv...)
}
func (l *slogLogger) Warnf(ctx context.Context, format string, args ...any) {
	l.logger.WarnContext(ctx, fmt.Sprintf(format, args...))
}
func (l *slogLogger) Error(ctx context.Context, msg string, kv ...any) {
	l.logger.ErrorContext(ctx, msg, kv...)
}
func (l *slogLogger) Errorf(ctx context.Context, format string, args ...any) {
	l.logger.ErrorContext(ctx, fmt.Sprintf(format, args...))
}

func (l *slogLogger) With(kv ...any) Logger { return &slogLogger{logger: l.logger.With(kv...)} }
