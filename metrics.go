package pinegrid

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    fills       *prometheus.CounterVec
//	    convolution prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordConvolve(bins int, duration time.Duration, err error) {
//	    p.convolution.Observe(duration.Seconds())
//	}
type MetricsCollector interface {
	// RecordFill is called after each fill. accepted is false when the
	// event fell outside all bins or outside the scale mesh.
	RecordFill(accepted bool)

	// RecordMerge is called after each grid merge.
	RecordMerge(duration time.Duration, err error)

	// RecordOptimize is called after each optimization pass with the
	// number of stored entries before and after.
	RecordOptimize(before, after int, duration time.Duration)

	// RecordConvolve is called after each convolution.
	RecordConvolve(bins int, duration time.Duration, err error)

	// RecordRead is called after decoding a grid of size bytes.
	RecordRead(size int, err error)

	// RecordWrite is called after encoding a grid of size bytes.
	RecordWrite(size int, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordFill(bool)                          {}
func (NoopMetricsCollector) RecordMerge(time.Duration, error)         {}
func (NoopMetricsCollector) RecordOptimize(int, int, time.Duration)   {}
func (NoopMetricsCollector) RecordConvolve(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordRead(int, error)                    {}
func (NoopMetricsCollector) RecordWrite(int, error)                   {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	FillsAccepted      atomic.Int64
	FillsDropped       atomic.Int64
	MergeCount         atomic.Int64
	MergeErrors        atomic.Int64
	OptimizeCount      atomic.Int64
	EntriesRemoved     atomic.Int64
	ConvolveCount      atomic.Int64
	ConvolveErrors     atomic.Int64
	ConvolveBins       atomic.Int64
	ConvolveTotalNanos atomic.Int64
	BytesRead          atomic.Int64
	BytesWritten       atomic.Int64
	CodecErrors        atomic.Int64
}

// RecordFill implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFill(accepted bool) {
	if accepted {
		b.FillsAccepted.Add(1)
	} else {
		b.FillsDropped.Add(1)
	}
}

// RecordMerge implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMerge(duration time.Duration, err error) {
	b.MergeCount.Add(1)
	if err != nil {
		b.MergeErrors.Add(1)
	}
}

// RecordOptimize implements MetricsCollector.
func (b *BasicMetricsCollector) RecordOptimize(before, after int, duration time.Duration) {
	b.OptimizeCount.Add(1)
	b.EntriesRemoved.Add(int64(before - after))
}

// RecordConvolve implements MetricsCollector.
func (b *BasicMetricsCollector) RecordConvolve(bins int, duration time.Duration, err error) {
	b.ConvolveCount.Add(1)
	b.ConvolveTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ConvolveErrors.Add(1)
		return
	}
	b.ConvolveBins.Add(int64(bins))
}

// RecordRead implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRead(size int, err error) {
	if err != nil {
		b.CodecErrors.Add(1)
		return
	}
	b.BytesRead.Add(int64(size))
}

// RecordWrite implements MetricsCollector.
func (b *BasicMetricsCollector) RecordWrite(size int, err error) {
	if err != nil {
		b.CodecErrors.Add(1)
		return
	}
	b.BytesWritten.Add(int64(size))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		FillsAccepted:    b.FillsAccepted.Load(),
		FillsDropped:     b.FillsDropped.Load(),
		MergeCount:       b.MergeCount.Load(),
		MergeErrors:      b.MergeErrors.Load(),
		OptimizeCount:    b.OptimizeCount.Load(),
		EntriesRemoved:   b.EntriesRemoved.Load(),
		ConvolveCount:    b.ConvolveCount.Load(),
		ConvolveErrors:   b.ConvolveErrors.Load(),
		ConvolveBins:     b.ConvolveBins.Load(),
		ConvolveAvgNanos: b.getAvgConvolveNanos(),
		BytesRead:        b.BytesRead.Load(),
		BytesWritten:     b.BytesWritten.Load(),
		CodecErrors:      b.CodecErrors.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgConvolveNanos() int64 {
	count := b.ConvolveCount.Load()
	if count == 0 {
		return 0
	}
	return b.ConvolveTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	FillsAccepted    int64
	FillsDropped     int64
	MergeCount       int64
	MergeErrors      int64
	OptimizeCount    int64
	EntriesRemoved   int64
	ConvolveCount    int64
	ConvolveErrors   int64
	ConvolveBins     int64
	ConvolveAvgNanos int64
	BytesRead        int64
	BytesWritten     int64
	CodecErrors      int64
}
