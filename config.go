package pinegrid

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/pinegrid/bins"
	"github.com/hupe1980/pinegrid/registry"
)

// Definition is a YAML grid card: everything needed to create an empty
// grid before filling it.
//
//	params:
//	  scale: {min: 100, max: 1.0e+8, nodes: 40, degree: 3, map: applgrid-h0}
//	  convolutions: [{type: unpol_pdf, pid: 2212}, {type: unpol_pdf, pid: 2212}]
//	orders: [as0a2, as1a2, as1a2lf1]
//	channels:
//	  - "1 * (2, -2) + 1 * (4, -4)"
//	  - "1 * (21, 2) + 1 * (21, 4)"
//	bins:
//	  edges: [0, 0.1, 0.2, 0.4]
//	metadata:
//	  x1_label: yll
//
// Omitted mesh fields keep the values of DefaultParams.
type Definition struct {
	Params   Params              `yaml:"params"`
	Orders   []string            `yaml:"orders"`
	Channels []string            `yaml:"channels"`
	Bins     BinsDefinition      `yaml:"bins"`
	Remapper *RemapperDefinition `yaml:"remapper,omitempty"`
	Metadata map[string]string   `yaml:"metadata,omitempty"`
}

// BinsDefinition declares 1-D bin limits either by explicit edges or as
// Count equally sized bins over [Left, Right].
type BinsDefinition struct {
	Edges []float64 `yaml:"edges,omitempty"`
	Left  float64   `yaml:"left,omitempty"`
	Right float64   `yaml:"right,omitempty"`
	Count int       `yaml:"count,omitempty"`
}

// RemapperDefinition declares multi-dimensional bins. Limits holds
// Dimensions ranges per bin, bin-major.
type RemapperDefinition struct {
	Dimensions     int          `yaml:"dimensions"`
	Normalizations []float64    `yaml:"normalizations"`
	Limits         []bins.Range `yaml:"limits"`
}

// LoadDefinition reads and parses a grid card.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Field: "definition", Reason: "reading grid card", cause: err}
	}
	return ParseDefinition(data)
}

// ParseDefinition parses a grid card. Unknown fields are rejected.
func ParseDefinition(data []byte) (*Definition, error) {
	def := Definition{Params: DefaultParams()}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&def); err != nil {
		return nil, &ConfigError{Field: "definition", Reason: err.Error(), cause: err}
	}
	return &def, nil
}

// Limits builds the declared bin limits.
func (b BinsDefinition) Limits() (*bins.Limits, error) {
	var (
		limits *bins.Limits
		err    error
	)
	switch {
	case len(b.Edges) > 0 && b.Count > 0:
		return nil, &ConfigError{Field: "bins", Reason: "edges and count are mutually exclusive"}
	case len(b.Edges) > 0:
		limits, err = bins.NewLimits(b.Edges)
	default:
		limits, err = bins.NewEqualLimits(b.Left, b.Right, b.Count)
	}
	if err != nil {
		return nil, translateError(err)
	}
	return limits, nil
}

// Build creates the empty grid described by the card.
func (d *Definition) Build(opts ...Option) (*Grid, error) {
	orders := make([]registry.Order, len(d.Orders))
	for i, s := range d.Orders {
		o, err := registry.ParseOrder(s)
		if err != nil {
			return nil, &ConfigError{Field: fmt.Sprintf("orders[%d]", i), Reason: err.Error(), cause: err}
		}
		orders[i] = o
	}

	channels := make([]registry.Channel, len(d.Channels))
	for i, s := range d.Channels {
		c, err := registry.ParseChannel(s)
		if err != nil {
			return nil, &ConfigError{Field: fmt.Sprintf("channels[%d]", i), Reason: err.Error(), cause: err}
		}
		channels[i] = c
	}

	limits, err := d.Bins.Limits()
	if err != nil {
		return nil, err
	}

	for _, k := range sortedKeys(d.Metadata) {
		opts = append(opts, WithMetadata(k, d.Metadata[k]))
	}

	g, err := New(orders, channels, limits, d.Params, opts...)
	if err != nil {
		return nil, err
	}

	if r := d.Remapper; r != nil {
		remapper, err := bins.NewRemapper(r.Dimensions, r.Normalizations, r.Limits)
		if err != nil {
			return nil, translateError(err)
		}
		if err := g.SetRemapper(remapper); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Definition returns the card that rebuilds g without its subgrids.
func (g *Grid) Definition() *Definition {
	def := &Definition{
		Params:   g.Params(),
		Metadata: g.Metadata(),
	}
	for _, o := range g.registry.Orders() {
		def.Orders = append(def.Orders, o.String())
	}
	for _, c := range g.registry.Channels() {
		def.Channels = append(def.Channels, c.String())
	}
	if g.limits.IsEqual() {
		def.Bins = BinsDefinition{Left: g.limits.Left(), Right: g.limits.Right(), Count: g.limits.Count()}
	} else {
		def.Bins = BinsDefinition{Edges: g.limits.Edges()}
	}
	if g.remapper != nil {
		def.Remapper = &RemapperDefinition{
			Dimensions:     g.remapper.Dimensions(),
			Normalizations: g.remapper.Normalizations(),
			Limits:         g.remapper.Limits(),
		}
	}
	return def
}

// Marshal renders the card as YAML.
func (d *Definition) Marshal() ([]byte, error) {
	return yaml.Marshal(d)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
