package bins

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
)

var (
	// ErrConfig is returned for invalid bin limits or remapper shapes.
	ErrConfig = errors.New("bins: invalid configuration")
	// ErrNonConsecutive is returned when merging bins that do not touch.
	ErrNonConsecutive = errors.New("bins: non-consecutive bins")
)

// Limits describes one-dimensional bins as a sorted list of edges. Evenly
// spaced edges are stored compactly as (left, right, count).
type Limits struct {
	equal bool
	left  float64
	right float64
	count int
	edges []float64
}

// NewLimits builds limits from at least two strictly increasing edges.
func NewLimits(edges []float64) (*Limits, error) {
	if len(edges) < 2 {
		return nil, fmt.Errorf("%w: need at least two bin limits, got %d", ErrConfig, len(edges))
	}
	for i, e := range edges {
		if math.IsNaN(e) || math.IsInf(e, 0) {
			return nil, fmt.Errorf("%w: non-finite bin limit %g", ErrConfig, e)
		}
		if i > 0 && e <= edges[i-1] {
			return nil, fmt.Errorf("%w: bin limits not strictly increasing at %d", ErrConfig, i)
		}
	}

	n := len(edges) - 1
	equal := true
	for i := 1; i < n; i++ {
		if !floatEqWithin(edges[i]-edges[i-1], edges[i+1]-edges[i], 8) {
			equal = false
			break
		}
	}

	if equal {
		return NewEqualLimits(edges[0], edges[n], n)
	}

	return &Limits{count: n, left: edges[0], right: edges[n], edges: slices.Clone(edges)}, nil
}

// NewEqualLimits builds count bins of equal width over [left, right).
func NewEqualLimits(left, right float64, count int) (*Limits, error) {
	if count < 1 || !(left < right) {
		return nil, fmt.Errorf("%w: invalid equal bins [%g, %g) x %d", ErrConfig, left, right, count)
	}
	return &Limits{equal: true, left: left, right: right, count: count}, nil
}

// MustLimits is like NewLimits but panics on error.
func MustLimits(edges []float64) *Limits {
	l, err := NewLimits(edges)
	if err != nil {
		panic(err)
	}
	return l
}

// IsEqual reports whether the bins are evenly spaced.
func (l *Limits) IsEqual() bool { return l.equal }

// Count returns the number of bins.
func (l *Limits) Count() int { return l.count }

// Left returns the lower edge of the first bin.
func (l *Limits) Left() float64 { return l.left }

// Right returns the upper edge of the last bin.
func (l *Limits) Right() float64 { return l.right }

// Index returns the bin containing v. Bins are half-open, [left, right).
func (l *Limits) Index(v float64) (int, bool) {
	if !(v >= l.left && v < l.right) {
		return 0, false
	}

	if l.equal {
		i := int((v - l.left) / (l.right - l.left) * float64(l.count))
		return min(i, l.count-1), true
	}

	// Number of edges <= v, minus one.
	i := sort.Search(len(l.edges), func(i int) bool { return l.edges[i] > v }) - 1
	return i, true
}

// Edges returns all count+1 bin edges.
func (l *Limits) Edges() []float64 {
	if !l.equal {
		return slices.Clone(l.edges)
	}

	out := make([]float64, l.count+1)
	for b := range out {
		out[b] = math.FMA(l.right-l.left, float64(b)/float64(l.count), l.left)
	}
	return out
}

// Sizes returns the width of every bin.
func (l *Limits) Sizes() []float64 {
	out := make([]float64, l.count)
	if l.equal {
		w := (l.right - l.left) / float64(l.count)
		for i := range out {
			out[i] = w
		}
		return out
	}
	for i := range out {
		out[i] = l.edges[i+1] - l.edges[i]
	}
	return out
}

// Merge returns the limits extended by other, which must start where l
// ends (within 8 ulps). The shared edge is averaged.
func (l *Limits) Merge(other *Limits) (*Limits, error) {
	if !floatEqWithin(l.right, other.left, 8) {
		return nil, fmt.Errorf("%w: can not merge bins which end at %g with bins that start at %g",
			ErrNonConsecutive, l.right, other.left)
	}

	edges := l.Edges()
	add := other.Edges()
	edges[len(edges)-1] = 0.5 * (edges[len(edges)-1] + add[0])
	edges = append(edges, add[1:]...)

	return NewLimits(edges)
}

// Equals reports whether both limits describe identical bins.
func (l *Limits) Equals(other *Limits) bool {
	if l.equal != other.equal || l.count != other.count {
		return false
	}
	if l.equal {
		return l.left == other.left && l.right == other.right
	}
	return slices.Equal(l.edges, other.edges)
}

// floatEqWithin compares two numbers with a relative tolerance of ulps
// machine epsilons. Exact comparison is used if either is zero.
func floatEqWithin(lhs, rhs float64, ulps int) bool {
	if lhs != 0 && rhs != 0 {
		return math.Max(math.Abs(lhs/rhs), math.Abs(rhs/lhs)) < math.FMA(epsilon, float64(ulps), 1)
	}
	return lhs == rhs
}

const epsilon = 2.220446049250313e-16
