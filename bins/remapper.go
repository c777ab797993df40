package bins

import (
	"fmt"
	"math"
	"slices"
)

// Range is a half-open interval [Left, Right) along one dimension.
type Range struct {
	Left  float64 `yaml:"left"`
	Right float64 `yaml:"right"`
}

// Remapper replaces flat bin indexing with multi-dimensional cells, each
// with an explicit normalization.
type Remapper struct {
	dimensions     int
	normalizations []float64
	limits         []Range
}

// NewRemapper validates and builds a remapper. limits holds dimensions
// ranges per bin, bin-major.
func NewRemapper(dimensions int, normalizations []float64, limits []Range) (*Remapper, error) {
	switch {
	case dimensions < 1:
		return nil, fmt.Errorf("%w: remapper needs at least one dimension, got %d", ErrConfig, dimensions)
	case len(normalizations) == 0:
		return nil, fmt.Errorf("%w: remapper without bins", ErrConfig)
	case len(limits) != dimensions*len(normalizations):
		return nil, fmt.Errorf("%w: %d limits do not match %d dimensions x %d bins",
			ErrConfig, len(limits), dimensions, len(normalizations))
	}

	for i, r := range limits {
		if math.IsNaN(r.Left) || math.IsNaN(r.Right) || r.Left > r.Right {
			return nil, fmt.Errorf("%w: invalid range [%g, %g) at %d", ErrConfig, r.Left, r.Right, i)
		}
	}

	return &Remapper{
		dimensions:     dimensions,
		normalizations: slices.Clone(normalizations),
		limits:         slices.Clone(limits),
	}, nil
}

// Dimensions returns the number of dimensions per bin.
func (r *Remapper) Dimensions() int { return r.dimensions }

// Count returns the number of bins.
func (r *Remapper) Count() int { return len(r.normalizations) }

// Normalizations returns a copy of the per-bin normalizations.
func (r *Remapper) Normalizations() []float64 { return slices.Clone(r.normalizations) }

// Limits returns a copy of all ranges, bin-major.
func (r *Remapper) Limits() []Range { return slices.Clone(r.limits) }

// Bin returns the ranges of bin b.
func (r *Remapper) Bin(b int) []Range {
	return slices.Clone(r.limits[b*r.dimensions : (b+1)*r.dimensions])
}

// Index returns the first bin whose cell contains point.
func (r *Remapper) Index(point []float64) (int, bool) {
	if len(point) != r.dimensions {
		return 0, false
	}

	for b := range r.normalizations {
		cell := r.limits[b*r.dimensions : (b+1)*r.dimensions]
		inside := true
		for d, rg := range cell {
			v := point[d]
			// Degenerate ranges select exactly one value.
			if rg.Left == rg.Right {
				inside = v == rg.Left
			} else {
				inside = v >= rg.Left && v < rg.Right
			}
			if !inside {
				break
			}
		}
		if inside {
			return b, true
		}
	}

	return 0, false
}

// Merge returns a remapper with the bins of other appended.
func (r *Remapper) Merge(other *Remapper) (*Remapper, error) {
	if r.dimensions != other.dimensions {
		return nil, fmt.Errorf("%w: can not merge %d-dimensional bins with %d-dimensional bins",
			ErrConfig, r.dimensions, other.dimensions)
	}
	return NewRemapper(r.dimensions,
		append(slices.Clone(r.normalizations), other.normalizations...),
		append(slices.Clone(r.limits), other.limits...))
}

// Equals reports whether both remappers are identical.
func (r *Remapper) Equals(other *Remapper) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.dimensions == other.dimensions &&
		slices.Equal(r.normalizations, other.normalizations) &&
		slices.Equal(r.limits, other.limits)
}
