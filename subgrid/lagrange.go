package subgrid

import (
	"fmt"
	"math"

	"github.com/hupe1980/pinegrid/interp"
)

// Lagrange is the fill-time subgrid. It stores one dense slice per touched
// scale node; untouched scale nodes cost nothing. Values are kept divided by
// the x reweighting factors and multiplied back on every read.
type Lagrange struct {
	meshes Meshes
	n1, n2 int
	slices [][]float64
	// rw1 and rw2 cache the reweighting factors at the x nodes.
	rw1, rw2 []float64
}

// NewLagrange returns an empty fill-time subgrid on meshes.
func NewLagrange(meshes Meshes) *Lagrange {
	l := &Lagrange{
		meshes: meshes,
		n1:     meshes.X1.Len(),
		n2:     1,
		slices: make([][]float64, meshes.Scale.Len()),
		rw1:    reweights(meshes.X1),
		rw2:    []float64{1},
	}
	if meshes.X2 != nil {
		l.n2 = meshes.X2.Len()
		l.rw2 = reweights(meshes.X2)
	}
	return l
}

func reweights(m *interp.Mesh) []float64 {
	out := make([]float64, m.Len())
	for i := range out {
		out[i] = m.Reweight(m.Node(i))
	}
	return out
}

// Meshes returns the meshes the subgrid is bound to.
func (l *Lagrange) Meshes() Meshes { return l.meshes }

func (l *Lagrange) Kind() Kind { return KindLagrange }

// Fill spreads weight over the nodes surrounding kin. The x values are
// clipped into [0, 1] and the mesh range; points whose scale lies outside
// the scale mesh are dropped and Fill returns false.
func (l *Lagrange) Fill(kin Kinematics, weight float64) bool {
	if weight == 0 || math.IsNaN(kin.Q2) || math.IsNaN(kin.X1) {
		return false
	}

	var (
		wq, w1 [interp.MaxDegree + 1]interp.NodeWeight
		w2     = [interp.MaxDegree + 1]interp.NodeWeight{{Index: 0, Weight: 1}}
	)

	dq := l.meshes.Scale.Degree() + 1
	if !l.meshes.Scale.Weights(kin.Q2, wq[:dq]) {
		return false
	}

	x1 := clipX(l.meshes.X1, kin.X1)
	d1 := l.meshes.X1.Degree() + 1
	l.meshes.X1.Weights(x1, w1[:d1])
	factor := weight / l.meshes.X1.Reweight(x1)

	d2 := 1
	if l.meshes.X2 != nil {
		if math.IsNaN(kin.X2) {
			return false
		}
		x2 := clipX(l.meshes.X2, kin.X2)
		d2 = l.meshes.X2.Degree() + 1
		l.meshes.X2.Weights(x2, w2[:d2])
		factor /= l.meshes.X2.Reweight(x2)
	}

	for _, a := range wq[:dq] {
		s := l.slice(a.Index)
		fa := factor * a.Weight
		for _, b := range w1[:d1] {
			row := s[b.Index*l.n2 : (b.Index+1)*l.n2]
			fab := fa * b.Weight
			for _, c := range w2[:d2] {
				row[c.Index] += fab * c.Weight
			}
		}
	}

	return true
}

func clipX(m *interp.Mesh, x float64) float64 {
	return m.Clip(math.Min(math.Max(x, 0), 1))
}

func (l *Lagrange) slice(iq int) []float64 {
	if l.slices[iq] == nil {
		l.slices[iq] = make([]float64, l.n1*l.n2)
	}
	return l.slices[iq]
}

// IsEmpty reports whether every stored entry is exactly zero.
func (l *Lagrange) IsEmpty() bool {
	for _, s := range l.slices {
		for _, v := range s {
			if v != 0 {
				return false
			}
		}
	}
	return true
}

func (l *Lagrange) Axes() Axes { return l.meshes.Axes() }

// Scale multiplies every entry by factor. A zero factor releases the
// storage.
func (l *Lagrange) Scale(factor float64) {
	if factor == 0 {
		clear(l.slices)
		return
	}
	for _, s := range l.slices {
		for i := range s {
			s[i] *= factor
		}
	}
}

// Merge adds other. Subgrids bound to the same meshes are added in the
// stored representation; any other variant is aligned by node value and
// must not carry nodes this subgrid lacks.
func (l *Lagrange) Merge(other Subgrid, transpose bool) error {
	if transpose && !l.meshes.Symmetric() {
		return fmt.Errorf("%w: transpose needs identical x meshes", ErrIncompatible)
	}

	if o, ok := other.(*Lagrange); ok && o.meshes.Equal(l.meshes) {
		for iq, src := range o.slices {
			if src == nil {
				continue
			}
			dst := l.slice(iq)
			if !transpose {
				for i, v := range src {
					dst[i] += v
				}
				continue
			}
			for i := 0; i < l.n1; i++ {
				for j := 0; j < l.n2; j++ {
					dst[j*l.n2+i] += src[i*l.n2+j]
				}
			}
		}
		return nil
	}

	if other.IsEmpty() {
		return nil
	}

	mine, theirs := l.Axes(), other.Axes()
	if transpose {
		theirs.X1, theirs.X2 = theirs.X2, theirs.X1
	}
	mq, ok1 := indexOf(theirs.Scale, mine.Scale)
	m1, ok2 := indexOf(theirs.X1, mine.X1)
	m2, ok3 := indexOf(theirs.X2, mine.X2)
	if !ok1 || !ok2 || !ok3 || (mine.X2 == nil) != (theirs.X2 == nil) {
		return fmt.Errorf("%w: node values differ", ErrIncompatible)
	}

	other.Each(func(iq, ix1, ix2 int, w float64) {
		if transpose {
			ix1, ix2 = ix2, ix1
		}
		j1 := m1[ix1]
		j2 := 0
		if len(m2) > 0 {
			j2 = m2[ix2]
		}
		l.slice(mq[iq])[j1*l.n2+j2] += w / (l.rw1[j1] * l.rw2[j2])
	})

	return nil
}

// DenseSlice returns the physically normalized weights of scale node iq.
func (l *Lagrange) DenseSlice(iq int) [][]float64 {
	out := newSlice(l.n1, l.n2)
	if iq < 0 || iq >= len(l.slices) || l.slices[iq] == nil {
		return out
	}
	s := l.slices[iq]
	for i := range l.n1 {
		for j := range l.n2 {
			out[i][j] = s[i*l.n2+j] * l.rw1[i] * l.rw2[j]
		}
	}
	return out
}

// ImportSlice replaces scale node iq with physically normalized values.
func (l *Lagrange) ImportSlice(iq int, values [][]float64) error {
	if iq < 0 || iq >= len(l.slices) {
		return fmt.Errorf("%w: scale node %d not in [0, %d)", ErrShape, iq, len(l.slices))
	}
	if err := checkSlice(values, l.n1, l.n2); err != nil {
		return err
	}

	s := make([]float64, l.n1*l.n2)
	nonZero := false
	for i, row := range values {
		for j, v := range row {
			if v != 0 {
				s[i*l.n2+j] = v / (l.rw1[i] * l.rw2[j])
				nonZero = true
			}
		}
	}

	if nonZero {
		l.slices[iq] = s
	} else {
		l.slices[iq] = nil
	}
	return nil
}

// Each visits the non-zero entries with reweighting undone.
func (l *Lagrange) Each(fn func(iq, ix1, ix2 int, w float64)) {
	for iq, s := range l.slices {
		for k, v := range s {
			if v == 0 {
				continue
			}
			i, j := k/l.n2, k%l.n2
			fn(iq, i, j, v*l.rw1[i]*l.rw2[j])
		}
	}
}

// Symmetrize folds every (i, j) entry with i > j onto (j, i). It is a
// no-op unless both x axes share one mesh.
func (l *Lagrange) Symmetrize() {
	if !l.meshes.Symmetric() {
		return
	}
	for _, s := range l.slices {
		if s == nil {
			continue
		}
		for i := 0; i < l.n1; i++ {
			for j := 0; j < i; j++ {
				s[j*l.n2+i] += s[i*l.n2+j]
				s[i*l.n2+j] = 0
			}
		}
	}
}

func (l *Lagrange) Stats() Stats {
	st := Stats{
		Total:         len(l.slices) * l.n1 * l.n2,
		BytesPerValue: 8,
		Overhead:      len(l.slices) * 24,
	}
	for _, s := range l.slices {
		st.Allocated += len(s)
		for _, v := range s {
			if v == 0 {
				st.Zeros++
			}
		}
	}
	return st
}

func (l *Lagrange) Clone() Subgrid {
	out := *l
	out.slices = make([][]float64, len(l.slices))
	for i, s := range l.slices {
		if s != nil {
			out.slices[i] = append([]float64(nil), s...)
		}
	}
	return &out
}

func (l *Lagrange) sealed() {}

// stored visits the non-zero entries in their reweighted representation,
// as flat indices. Used by the codec.
func (l *Lagrange) stored(fn func(idx uint32, v float64)) {
	for iq, s := range l.slices {
		for k, v := range s {
			if v != 0 {
				fn(uint32(iq*l.n1*l.n2+k), v)
			}
		}
	}
}

// setStored writes v at a flat index in the reweighted representation.
func (l *Lagrange) setStored(idx uint32, v float64) {
	iq, ix1, ix2 := splitIndex(idx, l.n1, l.n2)
	l.slice(iq)[ix1*l.n2+ix2] = v
}
