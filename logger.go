package pinegrid

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with grid-specific helpers.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithGrid tags the logger with the shape of a grid.
func (l *Logger) WithGrid(orders, bins, channels int) *Logger {
	return &Logger{
		Logger: l.Logger.With("orders", orders, "bins", bins, "channels", channels),
	}
}

// LogFill logs a rejected fill. Accepted fills are counted by the metrics
// collector only.
func (l *Logger) LogFill(ctx context.Context, order, channel int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "fill failed",
			"order", order,
			"channel", channel,
			"error", err,
		)
	}
}

// LogMerge logs a grid merge.
func (l *Logger) LogMerge(ctx context.Context, mode string, bins int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "merge failed",
			"mode", mode,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "merge completed",
			"mode", mode,
			"bins", bins,
		)
	}
}

// LogOptimize logs an optimization pass.
func (l *Logger) LogOptimize(ctx context.Context, before, after int, duration time.Duration) {
	l.InfoContext(ctx, "optimize completed",
		"allocated_before", before,
		"allocated_after", after,
		"duration", duration,
	)
}

// LogConvolve logs a convolution.
func (l *Logger) LogConvolve(ctx context.Context, bins, scales int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "convolution failed",
			"bins", bins,
			"scales", scales,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "convolution completed",
			"bins", bins,
			"scales", scales,
			"duration", duration,
		)
	}
}

// LogRead logs the decoding of a grid.
func (l *Logger) LogRead(ctx context.Context, source string, size int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "read failed",
			"source", source,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "grid read",
			"source", source,
			"bytes", size,
		)
	}
}

// LogWrite logs the encoding of a grid.
func (l *Logger) LogWrite(ctx context.Context, target string, size int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "write failed",
			"target", target,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "grid written",
			"target", target,
			"bytes", size,
		)
	}
}
