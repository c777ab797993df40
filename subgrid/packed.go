package subgrid

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/pinegrid/interp"
)

// Packed is the compact, read-mostly subgrid produced by Optimize and by
// importers. Non-zero entries are addressed by a roaring bitmap of flat
// indices (iq, ix1, ix2); values are physically normalized and stored in
// bitmap order.
type Packed struct {
	axes      Axes
	symmetric bool
	index     *roaring.Bitmap
	values    []float64
}

// NewPacked returns an empty packed subgrid on explicit node values.
func NewPacked(axes Axes) (*Packed, error) {
	if len(axes.Scale) == 0 || len(axes.X1) == 0 || (axes.X2 != nil && len(axes.X2) == 0) {
		return nil, fmt.Errorf("%w: every axis needs at least one node", ErrShape)
	}
	for _, a := range [][]float64{axes.Scale, axes.X1, axes.X2} {
		if len(a) > interp.MaxNodes {
			return nil, fmt.Errorf("%w: %d nodes exceed limit %d", ErrShape, len(a), interp.MaxNodes)
		}
	}
	return NewPackedUnchecked(axes.Clone()), nil
}

// NewPackedUnchecked is NewPacked without validation; axes is retained.
func NewPackedUnchecked(axes Axes) *Packed {
	return &Packed{axes: axes, index: roaring.New()}
}

func (p *Packed) Kind() Kind { return KindPacked }

// IsSymmetric reports whether the lower x triangle has been folded away.
func (p *Packed) IsSymmetric() bool { return p.symmetric }

func (p *Packed) IsEmpty() bool { return len(p.values) == 0 }

func (p *Packed) Axes() Axes { return p.axes }

func (p *Packed) Scale(factor float64) {
	if factor == 0 {
		p.index = roaring.New()
		p.values = nil
		return
	}
	for i := range p.values {
		p.values[i] *= factor
	}
}

// entries returns the stored values keyed by flat index.
func (p *Packed) entries() map[uint32]float64 {
	out := make(map[uint32]float64, len(p.values))
	it := p.index.Iterator()
	for i := 0; it.HasNext(); i++ {
		out[it.Next()] = p.values[i]
	}
	return out
}

// set rebuilds the index and values from entries, dropping exact zeros.
func (p *Packed) set(entries map[uint32]float64) {
	keys := make([]uint32, 0, len(entries))
	for k, v := range entries {
		if v != 0 {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	p.index = roaring.New()
	p.index.AddMany(keys)
	p.index.RunOptimize()

	p.values = make([]float64, len(keys))
	for i, k := range keys {
		p.values[i] = entries[k]
	}
}

// Merge adds other entry-wise. Node values of other that this subgrid lacks
// are added to the corresponding axis.
func (p *Packed) Merge(other Subgrid, transpose bool) error {
	if other.IsEmpty() {
		return nil
	}

	theirs := other.Axes()
	if transpose {
		if theirs.X2 == nil {
			return fmt.Errorf("%w: can not transpose a single-convolution subgrid", ErrIncompatible)
		}
		theirs.X1, theirs.X2 = theirs.X2, theirs.X1
	}
	if (theirs.X2 == nil) != (p.axes.X2 == nil) {
		return fmt.Errorf("%w: different number of convolutions", ErrIncompatible)
	}

	merged := Axes{
		Scale: union(p.axes.Scale, theirs.Scale),
		X1:    union(p.axes.X1, theirs.X1),
		X2:    union(p.axes.X2, theirs.X2),
	}
	if len(merged.Scale) > interp.MaxNodes || len(merged.X1) > interp.MaxNodes || len(merged.X2) > interp.MaxNodes {
		return fmt.Errorf("%w: merged axes exceed %d nodes", ErrIncompatible, interp.MaxNodes)
	}

	entries := p.realign(merged)
	_, n1, n2 := merged.Shape()

	mq, _ := indexOf(theirs.Scale, merged.Scale)
	m1, _ := indexOf(theirs.X1, merged.X1)
	m2, _ := indexOf(theirs.X2, merged.X2)

	fold := p.symmetric && slices.Equal(merged.X1, merged.X2)
	other.Each(func(iq, ix1, ix2 int, w float64) {
		if transpose {
			ix1, ix2 = ix2, ix1
		}
		j1, j2 := m1[ix1], 0
		if len(m2) > 0 {
			j2 = m2[ix2]
		}
		if fold && j1 > j2 {
			j1, j2 = j2, j1
		}
		entries[flatIndex(mq[iq], j1, j2, n1, n2)] += w
	})

	p.set(entries)
	p.symmetric = fold
	return nil
}

// realign switches to axes, which must contain every current node value,
// and returns the entries keyed by their new flat indices.
func (p *Packed) realign(axes Axes) map[uint32]float64 {
	if axes.Equal(p.axes) {
		return p.entries()
	}

	mq, _ := indexOf(p.axes.Scale, axes.Scale)
	m1, _ := indexOf(p.axes.X1, axes.X1)
	m2, _ := indexOf(p.axes.X2, axes.X2)
	_, n1, n2 := axes.Shape()

	out := make(map[uint32]float64, len(p.values))
	p.Each(func(iq, ix1, ix2 int, w float64) {
		j2 := 0
		if len(m2) > 0 {
			j2 = m2[ix2]
		}
		out[flatIndex(mq[iq], m1[ix1], j2, n1, n2)] = w
	})

	p.axes = axes
	return out
}

// union returns a followed by the values of b it lacks, sorted in the
// direction of a. It returns a itself when nothing is missing.
func union(a, b []float64) []float64 {
	if a == nil {
		return nil
	}

	have := make(map[float64]struct{}, len(a))
	for _, v := range a {
		have[v] = struct{}{}
	}

	out := a
	for _, v := range b {
		if _, ok := have[v]; !ok {
			if len(out) == len(a) {
				out = slices.Clone(a)
			}
			out = append(out, v)
			have[v] = struct{}{}
		}
	}
	if len(out) == len(a) {
		return a
	}

	descending := len(a) > 1 && a[0] > a[len(a)-1]
	slices.SortFunc(out, func(x, y float64) int {
		if descending {
			return cmp.Compare(y, x)
		}
		return cmp.Compare(x, y)
	})
	return out
}

func (p *Packed) DenseSlice(iq int) [][]float64 {
	_, n1, n2 := p.axes.Shape()
	out := newSlice(n1, n2)
	p.Each(func(q, i, j int, w float64) {
		if q == iq {
			out[i][j] = w
		}
	})
	return out
}

func (p *Packed) ImportSlice(iq int, values [][]float64) error {
	nq, n1, n2 := p.axes.Shape()
	if iq < 0 || iq >= nq {
		return fmt.Errorf("%w: scale node %d not in [0, %d)", ErrShape, iq, nq)
	}
	if err := checkSlice(values, n1, n2); err != nil {
		return err
	}

	entries := p.entries()
	for i, row := range values {
		for j, v := range row {
			entries[flatIndex(iq, i, j, n1, n2)] = v
		}
	}
	p.set(entries)
	return nil
}

func (p *Packed) Each(fn func(iq, ix1, ix2 int, w float64)) {
	_, n1, n2 := p.axes.Shape()
	it := p.index.Iterator()
	for i := 0; it.HasNext(); i++ {
		iq, ix1, ix2 := splitIndex(it.Next(), n1, n2)
		fn(iq, ix1, ix2, p.values[i])
	}
}

// Symmetrize folds the lower x triangle onto the upper one and marks the
// subgrid symmetric. It is a no-op unless both x axes carry the same nodes.
func (p *Packed) Symmetrize() {
	if p.axes.X2 == nil || !slices.Equal(p.axes.X1, p.axes.X2) {
		return
	}

	_, n1, n2 := p.axes.Shape()
	entries := make(map[uint32]float64, len(p.values))
	p.Each(func(iq, ix1, ix2 int, w float64) {
		if ix1 > ix2 {
			ix1, ix2 = ix2, ix1
		}
		entries[flatIndex(iq, ix1, ix2, n1, n2)] += w
	})
	p.set(entries)
	p.symmetric = true
}

func (p *Packed) Stats() Stats {
	nq, n1, n2 := p.axes.Shape()
	return Stats{
		Total:         nq * n1 * n2,
		Allocated:     len(p.values),
		Overhead:      int(p.index.GetSerializedSizeInBytes()),
		BytesPerValue: 8,
	}
}

func (p *Packed) Clone() Subgrid {
	return &Packed{
		axes:      p.axes.Clone(),
		symmetric: p.symmetric,
		index:     p.index.Clone(),
		values:    slices.Clone(p.values),
	}
}

func (p *Packed) sealed() {}
