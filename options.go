package pinegrid

import (
	"log/slog"

	"github.com/hupe1980/pinegrid/internal/fs"
)

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	metadata         map[string]string
	fs               fs.FileSystem
}

// Option configures grid construction and decoding.
type Option func(*options)

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &pinegrid.BasicMetricsCollector{}
//	g, _ := pinegrid.New(orders, channels, limits, params, pinegrid.WithMetricsCollector(metrics))
//	// ... fill g ...
//	stats := metrics.GetStats()
//	fmt.Printf("accepted: %d, dropped: %d\n", stats.FillsAccepted, stats.FillsDropped)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := pinegrid.NewJSONLogger(slog.LevelInfo)
//	g, _ := pinegrid.New(orders, channels, limits, params, pinegrid.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetadata sets a metadata key on the new grid. Ignored by Read, which
// restores the stored metadata.
func WithMetadata(key, value string) Option {
	return func(o *options) {
		if o.metadata == nil {
			o.metadata = make(map[string]string)
		}
		o.metadata[key] = value
	}
}

// withFileSystem replaces the file system used by WriteFile.
func withFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		o.fs = fsys
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		fs:               fs.Default,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
