// Package log wraps log/slog with a component attribute and the field names
// shared across the service.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is a slog.Logger that tags every entry with its component.
type Logger struct {
	*slog.Logger
	component string
}

// Config picks the level and destination. Handler, when set, overrides
// Level and Output.
type Config struct {
	Level     slog.Level
	Component string
	Output    io.Writer
	Handler   slog.Handler
}

// DefaultConfig is the text handler on stdout at info level.
func DefaultConfig() Config {
	return Config{Level: slog.LevelInfo, Component: ComponentApp, Output: os.Stdout}
}

var levelNames = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// ParseLevel reads a LOG_LEVEL value. Unknown names mean info.
func ParseLevel(s string) slog.Level {
	if lvl, ok := levelNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return lvl
	}
	return slog.LevelInfo
}

func New(cfg Config) *Logger {
	h := cfg.Handler
	if h == nil {
		out := cfg.Output
		if out == nil {
			out = os.Stdout
		}
		h = slog.NewTextHandler(out, &slog.HandlerOptions{Level: cfg.Level})
	}
	if cfg.Component == "" {
		cfg.Component = ComponentApp
	}
	return &Logger{Logger: slog.New(h), component: cfg.Component}
}

// SetDefault makes logger the process-wide slog default.
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}

func (l *Logger) Component() string { return l.component }

func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), component: l.component}
}

func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger, component: component}
}

// LogContext is the single entry point the level methods go through.
func (l *Logger) LogContext(ctx context.Context, level slog.Level, msg string, args ...any) {
	if !l.Enabled(ctx, level) {
		return
	}
	l.Logger.Log(ctx, level, msg, append([]any{FieldComponent, l.component}, args...)...)
}

func (l *Logger) Debug(msg string, args ...any) { l.LogContext(context.Background(), slog.LevelDebug, msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.LogContext(context.Background(), slog.LevelInfo, msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.LogContext(context.Background(), slog.LevelWarn, msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.LogContext(context.Background(), slog.LevelError, msg, args...) }

func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.LogContext(ctx, slog.LevelDebug, msg, args...)
}

func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.LogContext(ctx, slog.LevelInfo, msg, args...)
}

func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.LogContext(ctx, slog.LevelWarn, msg, args...)
}

func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.LogContext(ctx, slog.LevelError, msg, args...)
}
