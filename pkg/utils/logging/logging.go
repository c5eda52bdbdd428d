package logging

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/m-mizutani/clog"
	"github.com/m-mizutani/masq"
)

var (
	mu            sync.RWMutex
	defaultLogger = newConsoleLogger(nil, slog.LevelInfo)
)

// Default returns the process-wide logger
func Default() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// SetDefault replaces the process-wide logger. It is called once from the
// CLI after flags are parsed.
func SetDefault(logger *slog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = logger
}

type ctxKey struct{}

// With binds a logger to the context
func With(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// From returns the logger bound to the context, falling back to Default.
func From(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return logger
	}
	return Default()
}

// Redactor masks credential-looking attributes in log output.
func Redactor() func(groups []string, a slog.Attr) slog.Attr {
	return masq.New(
		masq.WithContain("api_key"),
		masq.WithContain("apikey"),
		masq.WithContain("token"),
		masq.WithContain("secret"),
	)
}

// NewConsoleLogger creates a human-readable logger for terminal output.
func NewConsoleLogger(w io.Writer, level slog.Level) *slog.Logger {
	return newConsoleLogger(w, level)
}

func newConsoleLogger(w io.Writer, level slog.Level) *slog.Logger {
	opts := []clog.Option{
		clog.WithLevel(level),
		clog.WithSource(true),
		clog.WithReplaceAttr(Redactor()),
	}
	if w != nil {
		opts = append(opts, clog.WithWriter(w))
	}
	return slog.New(clog.New(opts...))
}

// NewJSONLogger creates a structured JSON logger for machine consumption.
func NewJSONLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: Redactor(),
	}))
}
