package subgrid

import "fmt"

// Empty is a subgrid without entries. It is the placeholder for every slot
// that was never filled.
type Empty struct{}

func (Empty) Kind() Kind                 { return KindEmpty }
func (Empty) IsEmpty() bool              { return true }
func (Empty) Axes() Axes                 { return Axes{} }
func (Empty) Scale(float64)              {}
func (Empty) Symmetrize()                {}
func (Empty) Stats() Stats               { return Stats{} }
func (Empty) Clone() Subgrid             { return Empty{} }
func (Empty) DenseSlice(int) [][]float64 { return nil }

func (Empty) Each(func(iq, ix1, ix2 int, w float64)) {}

// Merge fails unless other is empty as well; use the package-level Merge to
// replace an empty slot.
func (Empty) Merge(other Subgrid, _ bool) error {
	if other.IsEmpty() {
		return nil
	}
	return fmt.Errorf("%w: merge into empty subgrid", ErrUnsupported)
}

func (Empty) ImportSlice(int, [][]float64) error {
	return fmt.Errorf("%w: import into empty subgrid", ErrUnsupported)
}

func (Empty) sealed() {}
