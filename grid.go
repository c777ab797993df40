package pinegrid

import (
	"context"
	"fmt"
	"maps"
	"math"
	"runtime"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/pinegrid/bins"
	"github.com/hupe1980/pinegrid/internal/fs"
	"github.com/hupe1980/pinegrid/interp"
	"github.com/hupe1980/pinegrid/registry"
	"github.com/hupe1980/pinegrid/subgrid"
)

// Params configures the node meshes and the convolution slots of a grid.
// X2 is ignored for grids with a single convolution.
type Params struct {
	Scale        interp.Params `yaml:"scale"`
	X1           interp.Params `yaml:"x1"`
	X2           interp.Params `yaml:"x2"`
	Convolutions []Convolution `yaml:"convolutions"`
}

// DefaultParams returns meshes suited for hadron-collider processes: 40
// scale nodes over [1e2, 1e8] GeV², 50 momentum-fraction nodes over
// [2e-7, 1], cubic interpolation and two proton convolutions.
func DefaultParams() Params {
	x := interp.Params{
		Min:      2e-7,
		Max:      1,
		Nodes:    50,
		Degree:   3,
		Reweight: interp.ReweightApplGridX,
		Map:      interp.MapApplGridF2,
	}
	return Params{
		Scale: interp.Params{
			Min:    1e2,
			Max:    1e8,
			Nodes:  40,
			Degree: 3,
			Map:    interp.MapApplGridH0,
		},
		X1:           x,
		X2:           x,
		Convolutions: []Convolution{Proton, Proton},
	}
}

// Grid stores one subgrid per (order, bin, channel) together with the bin
// description and free-form metadata. A Grid is not safe for concurrent
// mutation; Convolve may run concurrently with other reads.
type Grid struct {
	params   Params
	meshes   subgrid.Meshes
	registry *registry.Registry
	limits   *bins.Limits
	remapper *bins.Remapper
	metadata map[string]string
	// subgrids is laid out order-major, then bin, then channel.
	subgrids []subgrid.Subgrid
	// folded is set once Optimize has combined transposed or symmetric
	// channel weights. Only luminosities that treat both convolutions
	// alike reproduce the unfolded result.
	folded bool

	logger  *Logger
	metrics MetricsCollector
	fs      fs.FileSystem
}

// New creates an empty grid.
func New(orders []registry.Order, channels []registry.Channel, limits *bins.Limits, params Params, opts ...Option) (*Grid, error) {
	o := applyOptions(opts)

	g, err := newGrid(params, limits, o)
	if err != nil {
		return nil, err
	}

	for _, ord := range orders {
		if _, err := g.registry.AddOrder(ord); err != nil {
			return nil, translateError(err)
		}
	}
	for _, c := range channels {
		if _, err := g.registry.AddChannel(c); err != nil {
			return nil, translateError(err)
		}
	}

	g.metadata = maps.Clone(o.metadata)
	if g.metadata == nil {
		g.metadata = make(map[string]string)
	}
	g.subgrids = emptySlots(len(orders) * limits.Count() * len(channels))

	return g, nil
}

func newGrid(params Params, limits *bins.Limits, o options) (*Grid, error) {
	convolutions := len(params.Convolutions)
	if convolutions < 1 || convolutions > 2 {
		return nil, &ConfigError{Field: "convolutions", Reason: fmt.Sprintf("got %d, want 1 or 2", convolutions)}
	}
	if limits == nil {
		return nil, &ConfigError{Field: "bin limits", Reason: "missing"}
	}

	scale, err := interp.New(params.Scale)
	if err != nil {
		return nil, &ConfigError{Field: "scale mesh", Reason: err.Error(), cause: err}
	}
	x1, err := interp.New(params.X1)
	if err != nil {
		return nil, &ConfigError{Field: "x1 mesh", Reason: err.Error(), cause: err}
	}
	meshes := subgrid.Meshes{Scale: scale, X1: x1}

	if convolutions == 2 {
		if meshes.X2, err = interp.New(params.X2); err != nil {
			return nil, &ConfigError{Field: "x2 mesh", Reason: err.Error(), cause: err}
		}
	} else {
		params.X2 = interp.Params{}
	}

	reg, err := registry.New(convolutions)
	if err != nil {
		return nil, translateError(err)
	}

	params.Convolutions = slices.Clone(params.Convolutions)
	return &Grid{
		params:   params,
		meshes:   meshes,
		registry: reg,
		limits:   limits,
		logger:   o.logger,
		metrics:  o.metricsCollector,
		fs:       o.fs,
	}, nil
}

func emptySlots(n int) []subgrid.Subgrid {
	out := make([]subgrid.Subgrid, n)
	for i := range out {
		out[i] = subgrid.Empty{}
	}
	return out
}

func (g *Grid) index(order, bin, channel int) int {
	return (order*g.limits.Count()+bin)*len(g.registry.Channels()) + channel
}

func (g *Grid) checkIndex(order, bin, channel int) error {
	if order < 0 || order >= len(g.registry.Orders()) {
		return &IndexError{Kind: "order", Index: order, Len: len(g.registry.Orders())}
	}
	if bin < 0 || bin >= g.limits.Count() {
		return &IndexError{Kind: "bin", Index: bin, Len: g.limits.Count()}
	}
	if channel < 0 || channel >= len(g.registry.Channels()) {
		return &IndexError{Kind: "channel", Index: channel, Len: len(g.registry.Channels())}
	}
	return nil
}

// Fill adds an event with the given weight to the slot of order and
// channel, in the bin that contains observable. Events outside all bins or
// with a scale outside the scale mesh are dropped without error; momentum
// fractions are clipped into the mesh range.
func (g *Grid) Fill(order int, observable float64, channel int, kin subgrid.Kinematics, weight float64) error {
	if err := g.checkIndex(order, 0, channel); err != nil {
		g.logger.LogFill(context.Background(), order, channel, err)
		return err
	}
	if weight == 0 {
		return nil
	}

	bin, ok := g.limits.Index(observable)
	if !ok {
		g.metrics.RecordFill(false)
		return nil
	}

	return g.fillSlot(order, bin, channel, kin, weight)
}

// FillAll fills every channel at once; weights holds one weight per
// channel.
func (g *Grid) FillAll(order int, observable float64, kin subgrid.Kinematics, weights []float64) error {
	if len(weights) != len(g.registry.Channels()) {
		err := fmt.Errorf("%w: %d weights for %d channels", ErrIndex, len(weights), len(g.registry.Channels()))
		g.logger.LogFill(context.Background(), order, -1, err)
		return err
	}
	if order < 0 || order >= len(g.registry.Orders()) {
		err := &IndexError{Kind: "order", Index: order, Len: len(g.registry.Orders())}
		g.logger.LogFill(context.Background(), order, -1, err)
		return err
	}

	bin, ok := g.limits.Index(observable)
	if !ok {
		g.metrics.RecordFill(false)
		return nil
	}

	for c, w := range weights {
		if w == 0 {
			continue
		}
		if err := g.fillSlot(order, bin, c, kin, w); err != nil {
			return err
		}
	}
	return nil
}

func (g *Grid) fillSlot(order, bin, channel int, kin subgrid.Kinematics, weight float64) error {
	i := g.index(order, bin, channel)

	l, ok := g.subgrids[i].(*subgrid.Lagrange)
	if !ok {
		if g.subgrids[i].Kind() != subgrid.KindEmpty {
			err := fmt.Errorf("%w: slot (%d, %d, %d) holds a %s subgrid and can not be filled",
				ErrIncompatible, order, bin, channel, g.subgrids[i].Kind())
			g.logger.LogFill(context.Background(), order, channel, err)
			return err
		}
		l = subgrid.NewLagrange(g.meshes)
		g.subgrids[i] = l
	}

	g.metrics.RecordFill(l.Fill(kin, weight))
	return nil
}

// Merge adds other to g. Grids with identical bins are merged slot by slot;
// orders and channels that only other uses are appended. Grids whose bins
// continue each other are concatenated along the bin axis, which requires
// the same orders and channels in any index order. other is consumed and
// must not be used afterwards.
func (g *Grid) Merge(other *Grid) error {
	start := time.Now()
	mode, err := g.merge(other)
	g.metrics.RecordMerge(time.Since(start), err)
	g.logger.LogMerge(context.Background(), mode, g.BinCount(), err)
	return err
}

func (g *Grid) merge(other *Grid) (string, error) {
	if !slices.Equal(g.params.Convolutions, other.params.Convolutions) {
		return "", fmt.Errorf("%w: convolutions differ", ErrIncompatible)
	}
	if !g.meshes.Equal(other.meshes) {
		return "", fmt.Errorf("%w: node meshes differ", ErrIncompatible)
	}

	mode, merge := "bins", g.appendBins
	if g.limits.Equals(other.limits) && g.remapper.Equals(other.remapper) {
		mode, merge = "slots", g.mergeSlots
	}
	if err := merge(other); err != nil {
		return mode, err
	}
	g.folded = g.folded || other.folded
	return mode, nil
}

func (g *Grid) mergeSlots(other *Grid) error {
	reg := g.registry.Clone()
	nb := g.limits.Count()
	no, nc := len(other.registry.Orders()), len(other.registry.Channels())

	usedOrders := make([]bool, no)
	usedChannels := make([]bool, nc)
	for o := range no {
		for b := range nb {
			for c := range nc {
				if !other.subgrids[other.index(o, b, c)].IsEmpty() {
					usedOrders[o] = true
					usedChannels[c] = true
				}
			}
		}
	}

	var err error
	orderMap := make([]int, no)
	for o, ord := range other.registry.Orders() {
		if orderMap[o] = reg.OrderIndex(ord); orderMap[o] < 0 && usedOrders[o] {
			if orderMap[o], err = reg.AddOrder(ord); err != nil {
				return translateError(err)
			}
		}
	}
	channelMap := make([]int, nc)
	for c, ch := range other.registry.Channels() {
		if channelMap[c] = reg.ChannelIndex(ch); channelMap[c] < 0 && usedChannels[c] {
			if channelMap[c], err = reg.AddChannel(ch); err != nil {
				return translateError(err)
			}
		}
	}

	newOrders, newChannels := len(reg.Orders()), len(reg.Channels())
	slots := emptySlots(newOrders * nb * newChannels)
	at := func(o, b, c int) int { return (o*nb+b)*newChannels + c }

	for o := range g.registry.Orders() {
		for b := range nb {
			for c := range g.registry.Channels() {
				slots[at(o, b, c)] = g.subgrids[g.index(o, b, c)]
			}
		}
	}

	for o := range no {
		for b := range nb {
			for c := range nc {
				src := other.subgrids[other.index(o, b, c)]
				if src.IsEmpty() {
					continue
				}
				i := at(orderMap[o], b, channelMap[c])
				if slots[i].Kind() == subgrid.KindEmpty {
					slots[i] = src
					continue
				}
				if err := slots[i].Merge(src, false); err != nil {
					return translateError(err)
				}
			}
		}
	}

	g.registry = reg
	g.subgrids = slots
	return nil
}

func (g *Grid) appendBins(other *Grid) error {
	if !g.registry.SameAfterSort(other.registry) {
		return fmt.Errorf("%w: bins differ and orders or channels differ", ErrIncompatible)
	}

	limits, err := g.limits.Merge(other.limits)
	if err != nil {
		return translateError(err)
	}

	remapper := g.remapper
	switch {
	case g.remapper == nil && other.remapper == nil:
	case g.remapper != nil && other.remapper != nil:
		if remapper, err = g.remapper.Merge(other.remapper); err != nil {
			return fmt.Errorf("%w: %w", ErrIncompatible, err)
		}
	default:
		return fmt.Errorf("%w: only one grid has a remapper", ErrIncompatible)
	}

	nbA, nbB := g.limits.Count(), other.limits.Count()
	nb := nbA + nbB
	no, nc := len(g.registry.Orders()), len(g.registry.Channels())
	slots := emptySlots(no * nb * nc)
	at := func(o, b, c int) int { return (o*nb+b)*nc + c }

	for o := range no {
		for b := range nbA {
			for c := range nc {
				slots[at(o, b, c)] = g.subgrids[g.index(o, b, c)]
			}
		}
	}

	orderMap := make([]int, len(other.registry.Orders()))
	for o, ord := range other.registry.Orders() {
		orderMap[o] = g.registry.OrderIndex(ord)
	}
	channelMap := make([]int, len(other.registry.Channels()))
	for c, ch := range other.registry.Channels() {
		channelMap[c] = g.registry.ChannelIndex(ch)
	}

	for o := range orderMap {
		for b := range nbB {
			for c := range channelMap {
				slots[at(orderMap[o], nbA+b, channelMap[c])] = other.subgrids[other.index(o, b, c)]
			}
		}
	}

	g.limits = limits
	g.remapper = remapper
	g.subgrids = slots
	return nil
}

// Scale multiplies every subgrid by factor.
func (g *Grid) Scale(factor float64) {
	for _, sg := range g.subgrids {
		sg.Scale(factor)
	}
}

// ScaleByOrder multiplies the subgrids of every order by
// global · alphas^as · alpha^a · logxir^lr · logxif^lf.
func (g *Grid) ScaleByOrder(alphas, alpha, logxir, logxif, global float64) {
	g.ScaleByOrderFull(alphas, alpha, logxir, logxif, 1, global)
}

// ScaleByOrderFull is ScaleByOrder with an additional factor for the
// fragmentation-scale logarithm.
func (g *Grid) ScaleByOrderFull(alphas, alpha, logxir, logxif, logxia, global float64) {
	nb, nc := g.limits.Count(), len(g.registry.Channels())
	for o, ord := range g.registry.Orders() {
		factor := global *
			math.Pow(alphas, float64(ord.Alphas)) *
			math.Pow(alpha, float64(ord.Alpha)) *
			math.Pow(logxir, float64(ord.LogXiR)) *
			math.Pow(logxif, float64(ord.LogXiF)) *
			math.Pow(logxia, float64(ord.LogXiA))

		for b := range nb {
			for c := range nc {
				g.subgrids[g.index(o, b, c)].Scale(factor)
			}
		}
	}
}

// Optimize converts every subgrid into its most compact representation and
// drops subgrids without weight. Grids whose two convolutions and x meshes
// are identical additionally fold transposed channels onto each other and
// store symmetric channels as a triangle. Convolution results are
// unchanged up to rounding for luminosities that treat both convolutions
// alike; afterwards Convolve rejects any other luminosity (see Folded).
// Optimizing twice equals optimizing once. A channel folded onto its
// transpose is left empty, so channel masks that select it alone evaluate
// to zero afterwards.
func (g *Grid) Optimize() {
	start := time.Now()
	before := g.Stats().Allocated

	symmetric := g.symmetricConvolutions()
	if symmetric {
		g.mergeTransposedChannels()
		g.folded = true
	}

	var eg errgroup.Group
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, sg := range g.subgrids {
		if sg.Kind() == subgrid.KindEmpty {
			continue
		}
		eg.Go(func() error {
			g.subgrids[i] = subgrid.Optimize(sg)
			return nil
		})
	}
	_ = eg.Wait()

	if symmetric {
		nb := g.limits.Count()
		for c, ch := range g.registry.Channels() {
			if !ch.Transpose(0, 1).Equal(ch) {
				continue
			}
			for o := range g.registry.Orders() {
				for b := range nb {
					g.subgrids[g.index(o, b, c)].Symmetrize()
				}
			}
		}
	}

	after := g.Stats().Allocated
	g.metrics.RecordOptimize(before, after, time.Since(start))
	g.logger.LogOptimize(context.Background(), before, after, time.Since(start))
}

// Folded reports whether Optimize combined the weights of transposed or
// symmetric channels. A folded grid only convolves with a single shared PDF
// and identical charge conjugation for both convolutions.
func (g *Grid) Folded() bool { return g.folded }

func (g *Grid) symmetricConvolutions() bool {
	c := g.params.Convolutions
	return len(c) == 2 && c[0] == c[1] && g.meshes.Symmetric()
}

// mergeTransposedChannels moves the weights of every channel whose
// transpose is registered under a lower index onto that channel.
func (g *Grid) mergeTransposedChannels() {
	channels := g.registry.Channels()
	nb := g.limits.Count()

	for j, ch := range channels {
		t := ch.Transpose(0, 1)
		if t.Equal(ch) {
			continue
		}
		i := g.registry.ChannelIndex(t)
		if i < 0 || i >= j {
			continue
		}

		for o := range g.registry.Orders() {
			for b := range nb {
				src := g.subgrids[g.index(o, b, j)]
				if src.IsEmpty() {
					continue
				}
				dst := g.index(o, b, i)
				merged, err := subgrid.Merge(g.subgrids[dst], src, true)
				if err != nil {
					g.logger.Warn("keeping transposed channel", "channel", j, "error", err)
					continue
				}
				g.subgrids[dst] = merged
				g.subgrids[g.index(o, b, j)] = subgrid.Empty{}
			}
		}
	}
}

// SetRemapper attaches a multi-dimensional bin description. Its bin count
// must equal the grid's. A nil remapper removes the current one.
func (g *Grid) SetRemapper(r *bins.Remapper) error {
	if r != nil && r.Count() != g.BinCount() {
		return &ConfigError{
			Field:  "remapper",
			Reason: fmt.Sprintf("%d bins, grid has %d", r.Count(), g.BinCount()),
		}
	}
	g.remapper = r
	return nil
}

// Key returns the metadata value stored under key.
func (g *Grid) Key(key string) (string, bool) {
	v, ok := g.metadata[key]
	return v, ok
}

// SetKey stores a metadata value.
func (g *Grid) SetKey(key, value string) {
	g.metadata[key] = value
}

// Metadata returns a copy of all metadata.
func (g *Grid) Metadata() map[string]string {
	return maps.Clone(g.metadata)
}

// Subgrid returns the subgrid of slot (order, bin, channel).
func (g *Grid) Subgrid(order, bin, channel int) (subgrid.Subgrid, error) {
	if err := g.checkIndex(order, bin, channel); err != nil {
		return nil, err
	}
	return g.subgrids[g.index(order, bin, channel)], nil
}

// SetSubgrid replaces the subgrid of slot (order, bin, channel). Lagrange
// subgrids must be bound to the grid's meshes; other variants must match
// the grid's number of convolutions. A nil subgrid empties the slot.
func (g *Grid) SetSubgrid(order, bin, channel int, sg subgrid.Subgrid) error {
	if err := g.checkIndex(order, bin, channel); err != nil {
		return err
	}
	if sg == nil {
		sg = subgrid.Empty{}
	}

	switch s := sg.(type) {
	case subgrid.Empty:
	case *subgrid.Lagrange:
		if !s.Meshes().Equal(g.meshes) {
			return &ConfigError{Field: "subgrid", Reason: "interpolation meshes differ from the grid's"}
		}
	default:
		axes := sg.Axes()
		if (axes.X2 != nil) != (g.meshes.X2 != nil) {
			return &ConfigError{Field: "subgrid", Reason: "number of momentum-fraction axes differs from the grid's"}
		}
		for _, xs := range [][]float64{axes.X1, axes.X2} {
			for _, x := range xs {
				if !(x > 0 && x <= 1) {
					return &ConfigError{Field: "subgrid", Reason: fmt.Sprintf("momentum fraction %g not in (0, 1]", x)}
				}
			}
		}
	}

	g.subgrids[g.index(order, bin, channel)] = sg
	return nil
}

// Orders returns the orders in index order.
func (g *Grid) Orders() []registry.Order { return slices.Clone(g.registry.Orders()) }

// Channels returns the channels in index order.
func (g *Grid) Channels() []registry.Channel { return slices.Clone(g.registry.Channels()) }

// BinCount returns the number of bins.
func (g *Grid) BinCount() int { return g.limits.Count() }

// BinLimits returns the one-dimensional bin limits.
func (g *Grid) BinLimits() *bins.Limits { return g.limits }

// Remapper returns the multi-dimensional bin description, or nil.
func (g *Grid) Remapper() *bins.Remapper { return g.remapper }

// Normalizations returns the per-bin normalizations the convolution divides
// by: the remapper's if set, the bin widths otherwise.
func (g *Grid) Normalizations() []float64 {
	if g.remapper != nil {
		return g.remapper.Normalizations()
	}
	return g.limits.Sizes()
}

// Convolutions returns the convolution slots.
func (g *Grid) Convolutions() []Convolution { return slices.Clone(g.params.Convolutions) }

// Meshes returns the interpolation meshes shared by all fill-time subgrids.
func (g *Grid) Meshes() subgrid.Meshes { return g.meshes }

// Params returns the parameters the grid was built from.
func (g *Grid) Params() Params {
	p := g.params
	p.Convolutions = slices.Clone(p.Convolutions)
	return p
}

// Stats sums the storage statistics of all subgrids.
func (g *Grid) Stats() subgrid.Stats {
	st := subgrid.Stats{BytesPerValue: 8}
	for _, sg := range g.subgrids {
		s := sg.Stats()
		st.Total += s.Total
		st.Allocated += s.Allocated
		st.Zeros += s.Zeros
		st.Overhead += s.Overhead
	}
	return st
}
