package pinegrid

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/pinegrid/bins"
	"github.com/hupe1980/pinegrid/subgrid"
)

func bufferLogger(buf *bytes.Buffer) *Logger {
	return NewLogger(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func logRecords(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	g := newTestGrid(t, WithLogger(bufferLogger(&buf)))

	require.Error(t, g.Fill(9, 0.5, 0, subgrid.Kinematics{Q2: 1e3, X1: 0.1, X2: 0.1}, 1))

	other, err := New(testOrders(), testChannels(), bins.MustLimits([]float64{5, 6}), testParams())
	require.NoError(t, err)
	require.Error(t, g.Merge(other))

	g.Optimize()
	_, err = g.Convolve(t.Context(), toyLuminosity())
	require.NoError(t, err)

	records := logRecords(t, &buf)
	var msgs []string
	for _, r := range records {
		msgs = append(msgs, r["msg"].(string))
	}
	assert.Equal(t, []string{"fill failed", "merge failed", "optimize completed", "convolution completed"}, msgs)

	assert.Equal(t, "ERROR", records[0]["level"])
	assert.Equal(t, float64(9), records[0]["order"])
	assert.Equal(t, "bins", records[1]["mode"])
	assert.Equal(t, float64(8), records[3]["bins"])
}

func TestLogger_Constructors(t *testing.T) {
	assert.NotNil(t, NewLogger(nil))
	assert.NotNil(t, NewJSONLogger(slog.LevelWarn))
	assert.NotNil(t, NewTextLogger(slog.LevelWarn))

	var buf bytes.Buffer
	l := bufferLogger(&buf).WithGrid(4, 8, 4)
	l.LogWrite(t.Context(), "dy.pgrd", 128, nil)

	records := logRecords(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, "grid written", records[0]["msg"])
	assert.Equal(t, float64(8), records[0]["bins"])
	assert.Equal(t, float64(128), records[0]["bytes"])

	NoopLogger().LogRead(t.Context(), "ignored", 0, assert.AnError)
	g := newTestGrid(t, WithLogger(nil), WithLogLevel(slog.LevelError))
	assert.NotNil(t, g.logger)
}

func TestBasicMetricsCollector(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	g := newTestGrid(t, WithMetricsCollector(metrics))
	fillRandom(t, g, 31, 50)

	other := newTestGrid(t)
	fillRandom(t, other, 32, 50)
	require.NoError(t, g.Merge(other))
	g.Optimize()

	_, err := g.Convolve(t.Context(), toyLuminosity())
	require.NoError(t, err)
	_, err = g.Convolve(t.Context(), toyLuminosity(), WithBins(99))
	require.Error(t, err)

	stats := metrics.GetStats()
	// Accepted events count once per channel, dropped events once.
	assert.Equal(t, int64(50), stats.FillsAccepted/4+stats.FillsDropped)
	assert.Equal(t, int64(1), stats.MergeCount)
	assert.Zero(t, stats.MergeErrors)
	assert.Equal(t, int64(1), stats.OptimizeCount)
	assert.Positive(t, stats.EntriesRemoved)
	assert.Equal(t, int64(2), stats.ConvolveCount)
	assert.Equal(t, int64(1), stats.ConvolveErrors)
	assert.Equal(t, int64(8), stats.ConvolveBins)

	var noop NoopMetricsCollector
	noop.RecordFill(true)
	noop.RecordConvolve(1, 0, nil)
}
