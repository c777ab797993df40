package subgrid

import (
	"errors"
	"fmt"
	"slices"

	"github.com/hupe1980/pinegrid/interp"
)

var (
	// ErrIncompatible is returned when merging subgrids on different nodes.
	ErrIncompatible = errors.New("subgrid: incompatible node meshes")
	// ErrShape is returned when imported values do not match the node counts.
	ErrShape = errors.New("subgrid: shape mismatch")
	// ErrUnsupported is returned by operations a variant does not provide.
	ErrUnsupported = errors.New("subgrid: operation not supported")
)

// Kind tags the storage variant of a subgrid.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindLagrange
	KindPacked
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindLagrange:
		return "lagrange"
	case KindPacked:
		return "packed"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Kinematics is a single Monte-Carlo phase-space point.
type Kinematics struct {
	Q2 float64
	X1 float64
	// X2 is ignored by single-convolution grids.
	X2 float64
}

// Axes holds the physical node values of a subgrid. X2 is nil for
// single-convolution grids.
type Axes struct {
	Scale []float64
	X1    []float64
	X2    []float64
}

// Shape returns the node counts per axis. A missing X2 axis counts as one
// node.
func (a Axes) Shape() (nq, n1, n2 int) {
	n2 = len(a.X2)
	if a.X2 == nil {
		n2 = 1
	}
	return len(a.Scale), len(a.X1), n2
}

// Equal reports whether both node sets are bit-identical.
func (a Axes) Equal(other Axes) bool {
	return slices.Equal(a.Scale, other.Scale) &&
		slices.Equal(a.X1, other.X1) &&
		(a.X2 == nil) == (other.X2 == nil) &&
		slices.Equal(a.X2, other.X2)
}

// Clone returns a deep copy.
func (a Axes) Clone() Axes {
	return Axes{Scale: slices.Clone(a.Scale), X1: slices.Clone(a.X1), X2: slices.Clone(a.X2)}
}

// Meshes binds a Lagrange subgrid to its node meshes. X2 is nil for
// single-convolution grids.
type Meshes struct {
	Scale *interp.Mesh
	X1    *interp.Mesh
	X2    *interp.Mesh
}

// Axes returns the node values of all meshes.
func (m Meshes) Axes() Axes {
	a := Axes{Scale: m.Scale.NodeValues(), X1: m.X1.NodeValues()}
	if m.X2 != nil {
		a.X2 = m.X2.NodeValues()
	}
	return a
}

// Equal reports whether both mesh sets were built from identical parameters.
func (m Meshes) Equal(other Meshes) bool {
	return m.Scale.Equal(other.Scale) && m.X1.Equal(other.X1) && m.X2.Equal(other.X2)
}

// Symmetric reports whether both momentum-fraction axes share one mesh.
func (m Meshes) Symmetric() bool {
	return m.X2 != nil && m.X1.Equal(m.X2)
}

// Stats describes the storage footprint of a subgrid.
type Stats struct {
	// Total is the number of logical entries.
	Total int
	// Allocated is the number of stored entries.
	Allocated int
	// Zeros is the number of stored entries that are zero.
	Zeros int
	// Overhead is the number of bytes spent on indexing.
	Overhead int
	// BytesPerValue is the size of one stored value.
	BytesPerValue int
}

// Subgrid is a sparse accumulator of interpolation weights. The set of
// implementations is closed: *Empty, *Lagrange and *Packed.
type Subgrid interface {
	// Kind returns the storage variant.
	Kind() Kind
	// IsEmpty reports whether every entry is exactly zero.
	IsEmpty() bool
	// Axes returns the physical node values.
	Axes() Axes
	// Scale multiplies every entry by factor.
	Scale(factor float64)
	// Merge adds other entry-wise, swapping x1 and x2 when transpose is set.
	Merge(other Subgrid, transpose bool) error
	// DenseSlice returns the physically normalized weights of scale node iq
	// as an x1 × x2 matrix. A node without weights, including any iq outside
	// the scale axis, yields zeros. Empty has no axes and returns nil.
	DenseSlice(iq int) [][]float64
	// ImportSlice replaces the weights of scale node iq.
	ImportSlice(iq int, values [][]float64) error
	// Each calls fn for every non-zero entry, ordered by (iq, ix1, ix2).
	Each(fn func(iq, ix1, ix2 int, w float64))
	// Symmetrize folds the (x2, x1) entries onto (x1, x2) with x1 <= x2.
	Symmetrize()
	// Stats returns storage statistics.
	Stats() Stats
	// Clone returns a deep copy.
	Clone() Subgrid

	sealed()
}

// Merge returns dst with src added. An empty dst is replaced by a copy of
// src.
func Merge(dst, src Subgrid, transpose bool) (Subgrid, error) {
	if src == nil || src.IsEmpty() {
		return dst, nil
	}
	if dst == nil || dst.Kind() == KindEmpty {
		out := src.Clone()
		if transpose {
			return Transpose(out)
		}
		return out, nil
	}
	if err := dst.Merge(src, transpose); err != nil {
		return nil, err
	}
	return dst, nil
}

// Transpose returns sg with x1 and x2 swapped.
func Transpose(sg Subgrid) (Subgrid, error) {
	a := sg.Axes()
	if a.X2 == nil {
		return nil, fmt.Errorf("%w: can not transpose a single-convolution subgrid", ErrIncompatible)
	}

	out := NewPackedUnchecked(Axes{Scale: a.Scale, X1: a.X2, X2: a.X1})
	entries := make(map[uint32]float64)
	_, n1, _ := out.axes.Shape()
	n2 := len(a.X1)
	sg.Each(func(iq, ix1, ix2 int, w float64) {
		entries[flatIndex(iq, ix2, ix1, n1, n2)] += w
	})
	out.set(entries)
	return out, nil
}

// Optimize converts sg into its most compact variant: empty subgrids become
// *Empty, all others *Packed with unused scale nodes removed. Applying it
// twice yields the same result as applying it once.
func Optimize(sg Subgrid) Subgrid {
	if sg == nil || sg.IsEmpty() {
		return Empty{}
	}

	a := sg.Axes()
	used := make([]bool, len(a.Scale))
	sg.Each(func(iq, _, _ int, _ float64) { used[iq] = true })

	remap := make([]int, len(a.Scale))
	var scale []float64
	for iq, ok := range used {
		if ok {
			remap[iq] = len(scale)
			scale = append(scale, a.Scale[iq])
		}
	}

	out := NewPackedUnchecked(Axes{Scale: scale, X1: a.X1, X2: a.X2})
	if p, ok := sg.(*Packed); ok {
		out.symmetric = p.symmetric
	}

	_, n1, n2 := out.axes.Shape()
	entries := make(map[uint32]float64)
	sg.Each(func(iq, ix1, ix2 int, w float64) {
		entries[flatIndex(remap[iq], ix1, ix2, n1, n2)] = w
	})
	out.set(entries)

	return out
}

func flatIndex(iq, ix1, ix2, n1, n2 int) uint32 {
	return uint32((iq*n1+ix1)*n2 + ix2)
}

func splitIndex(idx uint32, n1, n2 int) (iq, ix1, ix2 int) {
	i := int(idx)
	ix2 = i % n2
	i /= n2
	ix1 = i % n1
	iq = i / n1
	return iq, ix1, ix2
}

func checkSlice(values [][]float64, n1, n2 int) error {
	if len(values) != n1 {
		return fmt.Errorf("%w: %d rows, want %d", ErrShape, len(values), n1)
	}
	for i, row := range values {
		if len(row) != n2 {
			return fmt.Errorf("%w: row %d has %d columns, want %d", ErrShape, i, len(row), n2)
		}
	}
	return nil
}

func newSlice(n1, n2 int) [][]float64 {
	out := make([][]float64, n1)
	flat := make([]float64, n1*n2)
	for i := range out {
		out[i] = flat[i*n2 : (i+1)*n2 : (i+1)*n2]
	}
	return out
}

// indexOf maps every value of from onto its position in to. ok is false if
// a value is missing.
func indexOf(from, to []float64) ([]int, bool) {
	pos := make(map[float64]int, len(to))
	for i, v := range to {
		pos[v] = i
	}
	out := make([]int, len(from))
	for i, v := range from {
		j, ok := pos[v]
		if !ok {
			return nil, false
		}
		out[i] = j
	}
	return out, true
}
