package interp

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrConfig is returned for invalid mesh parameters.
	ErrConfig = errors.New("interp: invalid mesh configuration")
	// ErrDomain is returned when a value lies outside the mesh range.
	ErrDomain = errors.New("interp: value outside mesh range")
)

const (
	// MaxDegree is the highest supported interpolation degree.
	MaxDegree = 7
	// MaxNodes bounds the node count so that flat subgrid indices fit into 32 bits.
	MaxNodes = 1024
)

// Params configures a Mesh.
type Params struct {
	Min      float64  `yaml:"min"`
	Max      float64  `yaml:"max"`
	Nodes    int      `yaml:"nodes"`
	Degree   int      `yaml:"degree"`
	Reweight Reweight `yaml:"reweight"`
	Map      Map      `yaml:"map"`
}

// Validate reports whether the parameters describe a buildable mesh.
func (p Params) Validate() error {
	switch {
	case !p.Map.valid():
		return fmt.Errorf("%w: unknown map %d", ErrConfig, uint8(p.Map))
	case !p.Reweight.valid():
		return fmt.Errorf("%w: unknown reweight %d", ErrConfig, uint8(p.Reweight))
	case p.Degree < 0 || p.Degree > MaxDegree:
		return fmt.Errorf("%w: degree %d not in [0, %d]", ErrConfig, p.Degree, MaxDegree)
	case p.Nodes < p.Degree+1:
		return fmt.Errorf("%w: %d nodes cannot support degree %d", ErrConfig, p.Nodes, p.Degree)
	case p.Nodes > MaxNodes:
		return fmt.Errorf("%w: %d nodes exceed limit %d", ErrConfig, p.Nodes, MaxNodes)
	case math.IsNaN(p.Min) || math.IsNaN(p.Max) || math.IsInf(p.Min, 0) || math.IsInf(p.Max, 0):
		return fmt.Errorf("%w: non-finite range [%g, %g]", ErrConfig, p.Min, p.Max)
	case p.Min >= p.Max:
		return fmt.Errorf("%w: min %g must be below max %g", ErrConfig, p.Min, p.Max)
	}

	if lb, ok := p.Map.lowerBound(); ok && p.Min <= lb {
		return fmt.Errorf("%w: map %s requires min > %g, got %g", ErrConfig, p.Map, lb, p.Min)
	}

	return nil
}

// NodeWeight is the Lagrange basis weight of a single node.
type NodeWeight struct {
	Index  int
	Weight float64
}

// Mesh is an immutable interpolation node mesh for one kinematic axis.
type Mesh struct {
	params Params
	ymin   float64
	ymax   float64
	deltay float64
	nodes  []float64
	// lo and hi widen [Min, Max] to cover the nodes, which rounding in
	// the inverse map may place a few ulps outside.
	lo float64
	hi float64
}

// New builds a mesh from p.
func New(p Params) (*Mesh, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	ymin := p.Map.forward(p.Min)
	ymax := p.Map.forward(p.Max)
	// Decreasing maps (F2) put the largest physical value at node 0.
	if ymin > ymax {
		ymin, ymax = ymax, ymin
	}

	m := &Mesh{
		params: p,
		ymin:   ymin,
		ymax:   ymax,
		nodes:  make([]float64, p.Nodes),
	}

	if p.Nodes > 1 {
		m.deltay = (ymax - ymin) / float64(p.Nodes-1)
	}

	m.lo, m.hi = p.Min, p.Max
	for i := range m.nodes {
		m.nodes[i] = p.Map.inverse(m.y(i))
		m.lo = math.Min(m.lo, m.nodes[i])
		m.hi = math.Max(m.hi, m.nodes[i])
	}

	return m, nil
}

// MustNew is like New but panics on error. It is intended for tests and
// package-level defaults.
func MustNew(p Params) *Mesh {
	m, err := New(p)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Mesh) y(i int) float64 {
	return m.ymin + float64(i)*m.deltay
}

// Params returns the configuration the mesh was built from.
func (m *Mesh) Params() Params { return m.params }

// Len returns the number of nodes.
func (m *Mesh) Len() int { return len(m.nodes) }

// Degree returns the interpolation degree.
func (m *Mesh) Degree() int { return m.params.Degree }

// Min returns the lower end of the physical range.
func (m *Mesh) Min() float64 { return m.params.Min }

// Max returns the upper end of the physical range.
func (m *Mesh) Max() float64 { return m.params.Max }

// Node returns the physical value of node i.
func (m *Mesh) Node(i int) float64 { return m.nodes[i] }

// NodeValues returns a copy of the physical node values.
func (m *Mesh) NodeValues() []float64 {
	out := make([]float64, len(m.nodes))
	copy(out, m.nodes)
	return out
}

// Reweight returns the reweighting factor at v.
func (m *Mesh) Reweight(v float64) float64 {
	return m.params.Reweight.Factor(v)
}

// Contains reports whether v lies inside the physical range.
func (m *Mesh) Contains(v float64) bool {
	return v >= m.lo && v <= m.hi
}

// Clip clamps v into the physical range.
func (m *Mesh) Clip(v float64) float64 {
	return math.Min(math.Max(v, m.lo), m.hi)
}

// Position returns the continuous node coordinate of v.
func (m *Mesh) Position(v float64) (float64, error) {
	if !m.Contains(v) {
		return 0, fmt.Errorf("%w: %g not in [%g, %g]", ErrDomain, v, m.params.Min, m.params.Max)
	}
	if len(m.nodes) == 1 {
		return 0, nil
	}

	coord := (m.params.Map.forward(v) - m.ymin) / m.deltay

	// Rounding in the map may push the end points marginally outside.
	last := float64(len(m.nodes) - 1)
	return math.Min(math.Max(coord, 0), last), nil
}

// BasisWeights returns the Lagrange weights of the Degree+1 nodes
// surrounding coord. The weights sum to one.
func (m *Mesh) BasisWeights(coord float64) []NodeWeight {
	d := m.params.Degree
	out := make([]NodeWeight, d+1)
	m.basis(coord, out)
	return out
}

// basis writes the weights into out, which must have length Degree+1.
func (m *Mesh) basis(coord float64, out []NodeWeight) {
	d := m.params.Degree
	start := int(math.Floor(coord)) - d/2
	start = max(0, min(start, len(m.nodes)-d-1))
	u := coord - float64(start)

	for i := 0; i <= d; i++ {
		out[i] = NodeWeight{Index: start + i, Weight: lagrange(i, d, u)}
	}
}

// Weights is an allocation-free variant of BasisWeights for hot loops. It
// returns false when v lies outside the mesh.
func (m *Mesh) Weights(v float64, out []NodeWeight) bool {
	coord, err := m.Position(v)
	if err != nil {
		return false
	}
	m.basis(coord, out)
	return true
}

// Equal reports whether both meshes were built from identical parameters.
func (m *Mesh) Equal(other *Mesh) bool {
	if m == nil || other == nil {
		return m == other
	}
	return m.params == other.params
}

// lagrange evaluates the i-th Lagrange basis polynomial on the integer
// nodes 0..n at u.
func lagrange(i, n int, u float64) float64 {
	product := 1.0
	factorial := 1.0

	for z := 0; z < i; z++ {
		product *= u - float64(z)
		factorial *= float64(z + 1)
	}
	for z := i + 1; z <= n; z++ {
		product *= float64(z) - u
		factorial *= float64(z - i)
	}

	return product / factorial
}
