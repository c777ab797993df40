package pinegrid

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/hupe1980/pinegrid/bins"
	"github.com/hupe1980/pinegrid/interp"
	"github.com/hupe1980/pinegrid/internal/wire"
	"github.com/hupe1980/pinegrid/registry"
	"github.com/hupe1980/pinegrid/subgrid"
)

// Payload layout, all integers little-endian, floats as raw IEEE-754 bits:
//
//	Meshes        3 × (present, min, max, nodes, degree, reweight, map)
//	Convolutions  count, then (type, pid) each
//	Folded        flag set by Optimize
//	Orders        count, then (as, a, lr, lf, la) each
//	Channels      count, then per channel: entry count, (pids..., factor) each
//	Limits        equal flag, then (left, right, count) or edges
//	Remapper      present, dimensions, normalizations, (left, right) pairs
//	Metadata      count, then (key, value) sorted by key
//	Subgrids      count, then subgrid.Encode each, order-major

func (g *Grid) encodePayload() ([]byte, error) {
	b := wire.NewWriter(4096)

	putMesh(b, g.params.Scale, true)
	putMesh(b, g.params.X1, true)
	putMesh(b, g.params.X2, g.meshes.X2 != nil)

	b.PutLen(len(g.params.Convolutions))
	for _, c := range g.params.Convolutions {
		b.PutUint8(uint8(c.Type))
		b.PutInt32(c.PID)
	}
	b.PutBool(g.folded)

	orders := g.registry.Orders()
	b.PutLen(len(orders))
	for _, o := range orders {
		b.PutUint8(o.Alphas)
		b.PutUint8(o.Alpha)
		b.PutUint8(o.LogXiR)
		b.PutUint8(o.LogXiF)
		b.PutUint8(o.LogXiA)
	}

	channels := g.registry.Channels()
	b.PutLen(len(channels))
	for _, c := range channels {
		b.PutLen(c.Len())
		for _, e := range c.Entries() {
			for _, pid := range e.PIDs {
				b.PutInt32(pid)
			}
			b.PutFloat64(e.Factor)
		}
	}

	b.PutBool(g.limits.IsEqual())
	if g.limits.IsEqual() {
		b.PutFloat64(g.limits.Left())
		b.PutFloat64(g.limits.Right())
		b.PutLen(g.limits.Count())
	} else {
		b.PutFloat64s(g.limits.Edges())
	}

	b.PutBool(g.remapper != nil)
	if g.remapper != nil {
		b.PutLen(g.remapper.Dimensions())
		b.PutFloat64s(g.remapper.Normalizations())
		limits := g.remapper.Limits()
		b.PutLen(len(limits))
		for _, r := range limits {
			b.PutFloat64(r.Left)
			b.PutFloat64(r.Right)
		}
	}

	keys := sortedKeys(g.metadata)
	b.PutLen(len(keys))
	for _, k := range keys {
		b.PutString(k)
		b.PutString(g.metadata[k])
	}

	b.PutLen(len(g.subgrids))
	for _, sg := range g.subgrids {
		subgrid.Encode(b, sg)
	}

	if err := b.Err(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func putMesh(b *wire.Buffer, p interp.Params, present bool) {
	b.PutBool(present)
	if !present {
		return
	}
	b.PutFloat64(p.Min)
	b.PutFloat64(p.Max)
	b.PutLen(p.Nodes)
	b.PutLen(p.Degree)
	b.PutUint8(uint8(p.Reweight))
	b.PutUint8(uint8(p.Map))
}

func readMesh(b *wire.Buffer) (interp.Params, bool) {
	if !b.Bool() {
		return interp.Params{}, false
	}
	return interp.Params{
		Min:      b.Float64(),
		Max:      b.Float64(),
		Nodes:    b.Len(),
		Degree:   b.Len(),
		Reweight: interp.Reweight(b.Uint8()),
		Map:      interp.Map(b.Uint8()),
	}, true
}

func decodePayload(payload []byte, o options) (*Grid, error) {
	b := wire.NewReader(payload)

	var params Params
	var hasScale, hasX1, hasX2 bool
	params.Scale, hasScale = readMesh(b)
	params.X1, hasX1 = readMesh(b)
	params.X2, hasX2 = readMesh(b)

	nconv := b.Count(5)
	for range nconv {
		params.Convolutions = append(params.Convolutions, Convolution{
			Type: ConvolutionType(b.Uint8()),
			PID:  b.Int32(),
		})
	}
	folded := b.Bool()
	if err := b.Err(); err != nil {
		return nil, err
	}
	if !hasScale || !hasX1 || hasX2 != (nconv == 2) {
		return nil, fmt.Errorf("mesh flags do not match %d convolutions", nconv)
	}
	for _, c := range params.Convolutions {
		if _, err := c.Type.MarshalText(); err != nil {
			return nil, err
		}
	}

	orders := make([]registry.Order, b.Count(5))
	for i := range orders {
		orders[i] = registry.Order{
			Alphas: b.Uint8(),
			Alpha:  b.Uint8(),
			LogXiR: b.Uint8(),
			LogXiF: b.Uint8(),
			LogXiA: b.Uint8(),
		}
	}

	channels := make([]registry.Channel, b.Count(4))
	for i := range channels {
		entries := make([]registry.Entry, b.Count(4*nconv+8))
		for k := range entries {
			pids := make([]int32, nconv)
			for j := range pids {
				pids[j] = b.Int32()
			}
			entries[k] = registry.Entry{PIDs: pids, Factor: b.Float64()}
		}
		if err := b.Err(); err != nil {
			return nil, err
		}
		c, err := registry.NewChannel(entries...)
		if err != nil {
			return nil, err
		}
		channels[i] = c
	}

	limits, err := readLimits(b)
	if err != nil {
		return nil, err
	}

	var remapper *bins.Remapper
	if b.Bool() {
		if remapper, err = readRemapper(b); err != nil {
			return nil, err
		}
	}

	metadata := make(map[string]string)
	for range b.Count(8) {
		k := b.Text()
		metadata[k] = b.Text()
	}

	// Every subgrid takes at least its kind byte, so the count bounds the
	// slots New allocates.
	count := b.Count(1)
	if err := b.Err(); err != nil {
		return nil, err
	}
	if limits.Count() > len(payload) {
		return nil, fmt.Errorf("%d bins exceed payload of %d bytes", limits.Count(), len(payload))
	}
	if slots, ok := slotCount(len(orders), limits.Count(), len(channels)); !ok || slots != count {
		return nil, fmt.Errorf("%d subgrids for %d orders, %d bins and %d channels", count, len(orders), limits.Count(), len(channels))
	}

	o.metadata = nil
	g, err := New(orders, channels, limits, params, withOptions(o))
	if err != nil {
		return nil, err
	}
	g.metadata = metadata
	g.folded = folded
	if err := g.SetRemapper(remapper); err != nil {
		return nil, err
	}
	for i := range g.subgrids {
		sg, err := subgrid.Decode(b, g.meshes)
		if err != nil {
			return nil, translateError(err)
		}
		g.subgrids[i] = sg
	}

	if err := b.Err(); err != nil {
		return nil, err
	}
	if b.Remaining() != 0 {
		return nil, fmt.Errorf("%d trailing bytes", b.Remaining())
	}
	return g, nil
}

// slotCount returns orders·bins·channels, or false on overflow.
func slotCount(factors ...int) (int, bool) {
	n := uint64(1)
	for _, f := range factors {
		hi, lo := bits.Mul64(n, uint64(f))
		if hi != 0 || lo > math.MaxInt {
			return 0, false
		}
		n = lo
	}
	return int(n), true
}

func readLimits(b *wire.Buffer) (*bins.Limits, error) {
	if b.Bool() {
		left, right, count := b.Float64(), b.Float64(), b.Len()
		if err := b.Err(); err != nil {
			return nil, err
		}
		return bins.NewEqualLimits(left, right, count)
	}
	edges := b.Float64s()
	if err := b.Err(); err != nil {
		return nil, err
	}
	return bins.NewLimits(edges)
}

func readRemapper(b *wire.Buffer) (*bins.Remapper, error) {
	dimensions := b.Len()
	normalizations := b.Float64s()
	limits := make([]bins.Range, b.Count(16))
	for i := range limits {
		limits[i] = bins.Range{Left: b.Float64(), Right: b.Float64()}
	}
	if err := b.Err(); err != nil {
		return nil, err
	}
	return bins.NewRemapper(dimensions, normalizations, limits)
}

// withOptions carries resolved options into New.
func withOptions(o options) Option {
	return func(dst *options) { *dst = o }
}
