package subgrid

import (
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/pinegrid/internal/wire"
)

// ErrCorrupt is returned when decoding malformed subgrid data.
var ErrCorrupt = errors.New("subgrid: corrupt data")

// Encode appends sg to b. Only non-zero entries are written; Lagrange
// subgrids are written in their reweighted representation so that a decoded
// subgrid re-encodes to identical bytes.
func Encode(b *wire.Buffer, sg Subgrid) {
	b.PutUint8(uint8(sg.Kind()))

	switch s := sg.(type) {
	case Empty:
	case *Lagrange:
		bm := roaring.New()
		var values []float64
		s.stored(func(idx uint32, v float64) {
			bm.Add(idx)
			values = append(values, v)
		})
		bm.RunOptimize()
		putBitmap(b, bm)
		b.PutFloat64s(values)
	case *Packed:
		b.PutFloat64s(s.axes.Scale)
		b.PutFloat64s(s.axes.X1)
		b.PutBool(s.axes.X2 != nil)
		if s.axes.X2 != nil {
			b.PutFloat64s(s.axes.X2)
		}
		b.PutBool(s.symmetric)
		putBitmap(b, s.index)
		b.PutFloat64s(s.values)
	default:
		b.Fail(fmt.Errorf("subgrid: unknown variant %T", sg))
	}
}

func putBitmap(b *wire.Buffer, bm *roaring.Bitmap) {
	data, err := bm.ToBytes()
	if err != nil {
		b.Fail(err)
		return
	}
	b.PutBytes(data)
}

// Decode reads a subgrid written by Encode. Lagrange subgrids are bound to
// meshes.
func Decode(b *wire.Buffer, meshes Meshes) (Subgrid, error) {
	kind := Kind(b.Uint8())
	if err := b.Err(); err != nil {
		return nil, err
	}

	switch kind {
	case KindEmpty:
		return Empty{}, nil
	case KindLagrange:
		return decodeLagrange(b, meshes)
	case KindPacked:
		return decodePacked(b)
	default:
		return nil, fmt.Errorf("%w: unknown subgrid kind %d", ErrCorrupt, kind)
	}
}

func decodeLagrange(b *wire.Buffer, meshes Meshes) (Subgrid, error) {
	if meshes.Scale == nil || meshes.X1 == nil {
		return nil, fmt.Errorf("%w: interpolating subgrid without meshes", ErrCorrupt)
	}

	l := NewLagrange(meshes)
	bm, values, err := readEntries(b, len(l.slices)*l.n1*l.n2)
	if err != nil {
		return nil, err
	}

	it := bm.Iterator()
	for i := 0; it.HasNext(); i++ {
		l.setStored(it.Next(), values[i])
	}
	return l, nil
}

func decodePacked(b *wire.Buffer) (Subgrid, error) {
	var axes Axes
	axes.Scale = b.Float64s()
	axes.X1 = b.Float64s()
	if b.Bool() {
		axes.X2 = b.Float64s()
	}
	symmetric := b.Bool()
	if err := b.Err(); err != nil {
		return nil, err
	}

	p, err := NewPacked(axes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	nq, n1, n2 := axes.Shape()
	bm, values, err := readEntries(b, nq*n1*n2)
	if err != nil {
		return nil, err
	}

	p.symmetric = symmetric
	p.index = bm
	p.values = values
	return p, nil
}

func readEntries(b *wire.Buffer, size int) (*roaring.Bitmap, []float64, error) {
	data := b.Block()
	values := b.Float64s()
	if err := b.Err(); err != nil {
		return nil, nil, err
	}

	bm := roaring.New()
	if err := bm.UnmarshalBinary(data); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if bm.GetCardinality() != uint64(len(values)) {
		return nil, nil, fmt.Errorf("%w: %d indices for %d values", ErrCorrupt, bm.GetCardinality(), len(values))
	}
	if !bm.IsEmpty() && int(bm.Maximum()) >= size {
		return nil, nil, fmt.Errorf("%w: index %d out of range %d", ErrCorrupt, bm.Maximum(), size)
	}
	for _, v := range values {
		if v == 0 {
			return nil, nil, fmt.Errorf("%w: stored zero", ErrCorrupt)
		}
	}
	return bm, values, nil
}
