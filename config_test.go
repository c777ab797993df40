package pinegrid

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/pinegrid/bins"
	"github.com/hupe1980/pinegrid/interp"
	"github.com/hupe1980/pinegrid/registry"
)

const dyCard = `
params:
  scale: {min: 100, max: 1.0e+6, nodes: 30, degree: 3, map: applgrid-h0}
  x1: {min: 1.0e-5, max: 1, nodes: 40, degree: 3, reweight: applgrid-x, map: applgrid-f2}
  x2: {min: 1.0e-5, max: 1, nodes: 40, degree: 3, reweight: applgrid-x, map: applgrid-f2}
  convolutions: [{type: unpol_pdf, pid: 2212}, {type: unpol_pdf, pid: -2212}]
orders: [as0a2, as1a2, as1a2lr1, as1a2lf1]
channels:
  - "1 * (2, -2) + 1 * (4, -4)"
  - "1 * (21, 2) + 1 * (21, 4)"
bins:
  edges: [0, 0.1, 0.2, 0.4]
metadata:
  x1_label: yll
  y_label: dsig/dyll
`

func TestParseDefinition(t *testing.T) {
	def, err := ParseDefinition([]byte(dyCard))
	require.NoError(t, err)

	assert.Equal(t, 30, def.Params.Scale.Nodes)
	assert.Equal(t, interp.MapApplGridF2, def.Params.X1.Map)
	assert.Equal(t, Convolution{Type: UnpolarizedPDF, PID: -2212}, def.Params.Convolutions[1])

	g, err := def.Build()
	require.NoError(t, err)

	assert.Equal(t, []registry.Order{
		registry.NewOrder(0, 2, 0, 0),
		registry.NewOrder(1, 2, 0, 0),
		registry.NewOrder(1, 2, 1, 0),
		registry.NewOrder(1, 2, 0, 1),
	}, g.Orders())
	require.Len(t, g.Channels(), 2)
	assert.Len(t, g.Channels()[1].Entries(), 2)
	assert.Equal(t, 3, g.BinCount())
	assert.Equal(t, 40, g.Meshes().X2.Len())

	v, ok := g.Key("x1_label")
	assert.True(t, ok)
	assert.Equal(t, "yll", v)
}

func TestParseDefinition_Defaults(t *testing.T) {
	def, err := ParseDefinition([]byte(`
orders: [as0a2]
channels: ["1 * (22, 22)"]
bins: {left: 0, right: 2.4, count: 24}
`))
	require.NoError(t, err)
	assert.Equal(t, DefaultParams(), def.Params)

	g, err := def.Build()
	require.NoError(t, err)
	assert.Equal(t, 24, g.BinCount())
	assert.True(t, g.BinLimits().IsEqual())
}

func TestParseDefinition_Errors(t *testing.T) {
	for name, card := range map[string]string{
		"UnknownField": "orders: [as0a2]\nchanels: []\n",
		"Syntax":       "orders: [as0a2\n",
		"BadMap":       "params:\n  scale: {map: cubic}\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDefinition([]byte(card))
			assert.ErrorIs(t, err, ErrConfig)
		})
	}

	for name, card := range map[string]string{
		"Order":         "orders: [as0b2]\nchannels: [\"1 * (22, 22)\"]\nbins: {edges: [0, 1]}\n",
		"Channel":       "orders: [as0a2]\nchannels: [\"1 * (22 22)\"]\nbins: {edges: [0, 1]}\n",
		"EdgesAndCount": "orders: [as0a2]\nchannels: [\"1 * (22, 22)\"]\nbins: {edges: [0, 1], count: 3}\n",
		"NoBins":        "orders: [as0a2]\nchannels: [\"1 * (22, 22)\"]\n",
		"Arity":         "orders: [as0a2]\nchannels: [\"1 * (22)\"]\nbins: {edges: [0, 1]}\n",
		"Remapper":      "orders: [as0a2]\nchannels: [\"1 * (22, 22)\"]\nbins: {edges: [0, 1]}\nremapper: {dimensions: 1, normalizations: [1, 1], limits: [{left: 0, right: 1}, {left: 1, right: 2}]}\n",
	} {
		t.Run(name, func(t *testing.T) {
			def, err := ParseDefinition([]byte(card))
			require.NoError(t, err)
			_, err = def.Build()
			assert.ErrorIs(t, err, ErrConfig)
		})
	}
}

func TestGrid_Definition(t *testing.T) {
	def, err := ParseDefinition([]byte(dyCard))
	require.NoError(t, err)
	def.Remapper = &RemapperDefinition{
		Dimensions:     1,
		Normalizations: []float64{0.1, 0.1, 0.2},
		Limits:         []bins.Range{{Left: 0, Right: 0.1}, {Left: 0.1, Right: 0.2}, {Left: 0.2, Right: 0.4}},
	}

	g, err := def.Build()
	require.NoError(t, err)

	data, err := g.Definition().Marshal()
	require.NoError(t, err)

	reparsed, err := ParseDefinition(data)
	require.NoError(t, err)
	rebuilt, err := reparsed.Build()
	require.NoError(t, err)

	assert.True(t, g.Equal(rebuilt))
	assert.Equal(t, g.Definition(), rebuilt.Definition())
}

func TestLoadDefinition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(dyCard), 0o600))

	def, err := LoadDefinition(path)
	require.NoError(t, err)
	assert.Len(t, def.Orders, 4)

	_, err = LoadDefinition(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrConfig)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
