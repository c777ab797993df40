package registry

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
)

// Mask selects a subset of orders or channels. The zero value selects
// everything.
type Mask struct {
	bits *roaring.Bitmap
}

// NewMask builds a mask over count elements. An empty or all-false slice
// selects every element; otherwise exactly the true positions are selected.
func NewMask(selected []bool, count int) (Mask, error) {
	if len(selected) == 0 {
		return Mask{}, nil
	}
	if len(selected) != count {
		return Mask{}, fmt.Errorf("%w: mask has length %d, want %d", ErrIndex, len(selected), count)
	}

	bits := roaring.New()
	for i, ok := range selected {
		if ok {
			bits.Add(uint32(i))
		}
	}
	if bits.IsEmpty() {
		return Mask{}, nil
	}

	return Mask{bits: bits}, nil
}

// MaskOf selects exactly the given indices out of count elements.
func MaskOf(count int, indices ...int) (Mask, error) {
	bits := roaring.New()
	for _, i := range indices {
		if i < 0 || i >= count {
			return Mask{}, fmt.Errorf("%w: index %d not in [0, %d)", ErrIndex, i, count)
		}
		bits.Add(uint32(i))
	}
	if bits.IsEmpty() {
		return Mask{}, nil
	}
	return Mask{bits: bits}, nil
}

// All reports whether the mask selects everything.
func (m Mask) All() bool { return m.bits == nil }

// Selected reports whether index i is selected.
func (m Mask) Selected(i int) bool {
	return m.bits == nil || m.bits.Contains(uint32(i))
}

// Count returns how many of n elements the mask selects.
func (m Mask) Count(n int) int {
	if m.bits == nil {
		return n
	}
	return int(m.bits.GetCardinality())
}
