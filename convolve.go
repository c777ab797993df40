package pinegrid

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/pinegrid/registry"
	"github.com/hupe1980/pinegrid/subgrid"
)

// PDF evaluates a parton distribution function. XFX returns x·f(x, Q²) for
// the parton pid.
type PDF interface {
	XFX(pid int32, x, q2 float64) (float64, error)
}

// PDFFunc adapts a function to PDF.
type PDFFunc func(pid int32, x, q2 float64) (float64, error)

func (f PDFFunc) XFX(pid int32, x, q2 float64) (float64, error) { return f(pid, x, q2) }

// Alphas evaluates the strong coupling at a squared scale.
type Alphas interface {
	AlphasQ2(q2 float64) (float64, error)
}

// AlphasFunc adapts a function to Alphas.
type AlphasFunc func(q2 float64) (float64, error)

func (f AlphasFunc) AlphasQ2(q2 float64) (float64, error) { return f(q2) }

// Luminosity bundles the callbacks of one convolution call. The callbacks
// are only used for the duration of that call.
type Luminosity struct {
	// PDFs holds either one PDF shared by all convolutions or one per
	// convolution. Folded grids (see Grid.Folded) require exactly one.
	PDFs []PDF
	// Hadrons optionally names the hadron each PDF describes, one per
	// convolution. A PDF of the antiparticle of the grid's hadron is used
	// with charge-conjugated channels. Folded grids require the same
	// conjugation for both convolutions.
	Hadrons []int32
	Alphas  Alphas
	// Concurrent declares the callbacks safe for concurrent use. Only then
	// are bins evaluated in parallel; otherwise the convolution runs on the
	// calling goroutine.
	Concurrent bool
}

// ScaleFactors are the renormalization, factorization and fragmentation
// scale factors ξ applied to every node scale.
type ScaleFactors struct {
	Ren  float64
	Fac  float64
	Frag float64
}

// CentralScale leaves all scales unchanged.
var CentralScale = ScaleFactors{Ren: 1, Fac: 1, Frag: 1}

type convolveOptions struct {
	orderMask   []bool
	channelMask []bool
	bins        []int
	scales      []ScaleFactors
	workers     int
}

// ConvolveOption configures Convolve.
type ConvolveOption func(*convolveOptions)

// WithOrderMask restricts the convolution to the selected orders. An empty
// or all-false mask selects every order.
func WithOrderMask(mask []bool) ConvolveOption {
	return func(o *convolveOptions) { o.orderMask = mask }
}

// WithChannelMask restricts the convolution to the selected channels. An
// empty or all-false mask selects every channel.
func WithChannelMask(mask []bool) ConvolveOption {
	return func(o *convolveOptions) { o.channelMask = mask }
}

// WithBins computes only the given bins, in the given order.
func WithBins(bins ...int) ConvolveOption {
	return func(o *convolveOptions) { o.bins = bins }
}

// WithScales evaluates every bin at each of the given scale factors.
func WithScales(scales ...ScaleFactors) ConvolveOption {
	return func(o *convolveOptions) { o.scales = scales }
}

// WithWorkers bounds the number of bins evaluated in parallel. It has no
// effect unless the luminosity is declared concurrent.
func WithWorkers(n int) ConvolveOption {
	return func(o *convolveOptions) { o.workers = n }
}

// convolution is the validated state of one Convolve call.
type convolution struct {
	g        *Grid
	lumi     Luminosity
	orders   registry.Mask
	channels registry.Mask
	bins     []int
	scales   []ScaleFactors
	norms    []float64
	// conjugate marks convolution slots whose PDF describes the
	// antiparticle of the grid's hadron.
	conjugate []bool
}

// Convolve convolves the grid with the luminosity and returns one value per
// (bin, scale) pair, laid out bin-major: result[b*len(scales)+s]. Every
// value is divided by its bin normalization.
func (g *Grid) Convolve(ctx context.Context, lumi Luminosity, opts ...ConvolveOption) ([]float64, error) {
	start := time.Now()

	o := convolveOptions{scales: []ScaleFactors{CentralScale}}
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}

	result, err := g.convolve(ctx, lumi, o)

	g.metrics.RecordConvolve(len(result)/max(1, len(o.scales)), time.Since(start), err)
	g.logger.LogConvolve(ctx, len(result)/max(1, len(o.scales)), len(o.scales), time.Since(start), err)

	return result, err
}

func (g *Grid) convolve(ctx context.Context, lumi Luminosity, o convolveOptions) ([]float64, error) {
	cv, err := g.newConvolution(lumi, o)
	if err != nil {
		return nil, err
	}

	ns := len(cv.scales)
	result := make([]float64, len(cv.bins)*ns)

	workers := 1
	if lumi.Concurrent {
		workers = o.workers
		if workers <= 0 {
			workers = runtime.GOMAXPROCS(0)
		}
		workers = min(workers, len(cv.bins))
	}

	if workers <= 1 {
		cache := newCallbackCache()
		for i, b := range cv.bins {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := cv.bin(b, cache, result[i*ns:(i+1)*ns]); err != nil {
				return nil, err
			}
		}
		return result, nil
	}

	var next atomic.Int64
	eg, ctx := errgroup.WithContext(ctx)
	for range workers {
		eg.Go(func() error {
			cache := newCallbackCache()
			for {
				i := int(next.Add(1) - 1)
				if i >= len(cv.bins) {
					return nil
				}
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := cv.bin(cv.bins[i], cache, result[i*ns:(i+1)*ns]); err != nil {
					return err
				}
			}
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return result, nil
}

func (g *Grid) newConvolution(lumi Luminosity, o convolveOptions) (*convolution, error) {
	convs := len(g.params.Convolutions)

	if len(lumi.PDFs) != 1 && len(lumi.PDFs) != convs {
		return nil, &ConfigError{Field: "luminosity", Reason: fmt.Sprintf("%d PDFs for %d convolutions", len(lumi.PDFs), convs)}
	}
	for _, pdf := range lumi.PDFs {
		if pdf == nil {
			return nil, &ConfigError{Field: "luminosity", Reason: "nil PDF"}
		}
	}
	if lumi.Alphas == nil {
		return nil, &ConfigError{Field: "luminosity", Reason: "missing alphas"}
	}

	conjugate := make([]bool, convs)
	if len(lumi.Hadrons) > 0 {
		if len(lumi.Hadrons) != convs {
			return nil, &ConfigError{Field: "luminosity", Reason: fmt.Sprintf("%d hadrons for %d convolutions", len(lumi.Hadrons), convs)}
		}
		for i, h := range lumi.Hadrons {
			pid := g.params.Convolutions[i].PID
			switch {
			case h == pid:
			case h == registry.ChargeConjugate(pid):
				conjugate[i] = true
			default:
				return nil, &ConfigError{Field: "luminosity", Reason: fmt.Sprintf("hadron %d can not serve convolution of %d", h, pid)}
			}
		}
	}

	if g.folded && convs == 2 {
		if len(lumi.PDFs) != 1 {
			return nil, &ConfigError{Field: "luminosity", Reason: "folded grid needs one PDF shared by both convolutions"}
		}
		if conjugate[0] != conjugate[1] {
			return nil, &ConfigError{Field: "luminosity", Reason: "folded grid needs the same hadron for both convolutions"}
		}
	}

	orders, err := registry.NewMask(o.orderMask, len(g.registry.Orders()))
	if err != nil {
		return nil, translateError(err)
	}
	channels, err := registry.NewMask(o.channelMask, len(g.registry.Channels()))
	if err != nil {
		return nil, translateError(err)
	}

	selected := o.bins
	if len(selected) == 0 {
		selected = make([]int, g.BinCount())
		for i := range selected {
			selected[i] = i
		}
	}
	for _, b := range selected {
		if b < 0 || b >= g.BinCount() {
			return nil, &IndexError{Kind: "bin", Index: b, Len: g.BinCount()}
		}
	}

	if len(o.scales) == 0 {
		return nil, &ConfigError{Field: "scales", Reason: "no scale factors"}
	}
	for _, s := range o.scales {
		if !(s.Ren > 0 && s.Fac > 0 && s.Frag > 0) {
			return nil, &ConfigError{Field: "scales", Reason: fmt.Sprintf("non-positive scale factor %+v", s)}
		}
	}

	return &convolution{
		g:         g,
		lumi:      lumi,
		orders:    orders,
		channels:  channels,
		bins:      selected,
		scales:    o.scales,
		norms:     g.Normalizations(),
		conjugate: conjugate,
	}, nil
}

// bin accumulates the normalized prediction of bin b for every scale into
// out.
func (cv *convolution) bin(b int, cache *callbackCache, out []float64) error {
	g := cv.g
	logs := make([]float64, len(cv.scales))

	for o, ord := range g.registry.Orders() {
		if !cv.orders.Selected(o) {
			continue
		}

		active := false
		for s, sf := range cv.scales {
			logs[s] = logFactor(ord, sf)
			active = active || logs[s] != 0
		}
		if !active {
			continue
		}

		for c, ch := range g.registry.Channels() {
			if !cv.channels.Selected(c) {
				continue
			}
			sg := g.subgrids[g.index(o, b, c)]
			if sg.IsEmpty() {
				continue
			}

			err := cv.slot(sg, ord, ch, cache, func(s int, _ [3]int, v float64) {
				out[s] += v * logs[s]
			})
			if err != nil {
				return err
			}
		}
	}

	for s := range out {
		out[s] /= cv.norms[b]
	}
	return nil
}

// slot evaluates the luminosity-weighted contributions of one subgrid and
// reports them per scale and node through emit.
func (cv *convolution) slot(
	sg subgrid.Subgrid,
	ord registry.Order,
	ch registry.Channel,
	cache *callbackCache,
	emit func(s int, node [3]int, v float64),
) error {
	axes := sg.Axes()
	mesh := cv.g.meshes.Scale
	for _, q2 := range axes.Scale {
		if !mesh.Contains(q2) {
			return fmt.Errorf("%w: scale node %g outside [%g, %g]", ErrDomain, q2, mesh.Min(), mesh.Max())
		}
	}

	entries := ch.Entries()
	pids := make([]int32, len(entries)*len(cv.conjugate))
	for k, e := range entries {
		for i, pid := range e.PIDs {
			if cv.conjugate[i] {
				pid = registry.ChargeConjugate(pid)
			}
			pids[k*len(cv.conjugate)+i] = pid
		}
	}

	var err error
	sg.Each(func(iq, ix1, ix2 int, w float64) {
		if err != nil {
			return
		}
		kin := subgrid.Kinematics{Q2: axes.Scale[iq], X1: axes.X1[ix1]}
		if axes.X2 != nil {
			kin.X2 = axes.X2[ix2]
		}

		for s, sf := range cv.scales {
			var v float64
			if v, err = cv.luminosity(kin, sf, ord, entries, pids, cache); err != nil {
				return
			}
			emit(s, [3]int{iq, ix1, ix2}, w*v)
		}
	})
	return err
}

// luminosity returns alphas^as · Σ factor · Π f(x)/x at one node.
func (cv *convolution) luminosity(
	kin subgrid.Kinematics,
	sf ScaleFactors,
	ord registry.Order,
	entries []registry.Entry,
	pids []int32,
	cache *callbackCache,
) (float64, error) {
	convs := cv.g.params.Convolutions
	xs := [2]float64{kin.X1, kin.X2}

	sum := 0.0
	for k, e := range entries {
		term := e.Factor
		for i := range convs {
			xi := sf.Fac
			if convs[i].Type.IsFragmentation() {
				xi = sf.Frag
			}
			pdf := 0
			if len(cv.lumi.PDFs) > 1 {
				pdf = i
			}
			xfx, err := cache.xfx(cv.lumi.PDFs[pdf], pdf, pids[k*len(convs)+i], xs[i], xi*xi*kin.Q2)
			if err != nil {
				return 0, err
			}
			term *= xfx / xs[i]
		}
		sum += term
	}
	if sum == 0 || ord.Alphas == 0 {
		return sum, nil
	}

	as, err := cache.alphasQ2(cv.lumi.Alphas, sf.Ren*sf.Ren*kin.Q2)
	if err != nil {
		return 0, err
	}
	return sum * math.Pow(as, float64(ord.Alphas)), nil
}

// logFactor returns ln(ξR²)^lr · ln(ξF²)^lf · ln(ξA²)^la. It is zero for
// orders with a log power whose scale factor is one.
func logFactor(ord registry.Order, sf ScaleFactors) float64 {
	f := 1.0
	for _, p := range [...]struct {
		power uint8
		xi    float64
	}{
		{ord.LogXiR, sf.Ren},
		{ord.LogXiF, sf.Fac},
		{ord.LogXiA, sf.Frag},
	} {
		if p.power == 0 {
			continue
		}
		if p.xi == 1 {
			return 0
		}
		f *= math.Pow(math.Log(p.xi*p.xi), float64(p.power))
	}
	return f
}

type pdfKey struct {
	slot int
	pid  int32
	x    float64
	q2   float64
}

// callbackCache memoizes callback values for one worker of one
// convolution call.
type callbackCache struct {
	pdfs   map[pdfKey]float64
	alphas map[float64]float64
}

func newCallbackCache() *callbackCache {
	return &callbackCache{
		pdfs:   make(map[pdfKey]float64),
		alphas: make(map[float64]float64),
	}
}

func (c *callbackCache) xfx(pdf PDF, slot int, pid int32, x, q2 float64) (float64, error) {
	key := pdfKey{slot: slot, pid: pid, x: x, q2: q2}
	if v, ok := c.pdfs[key]; ok {
		return v, nil
	}
	v, err := pdf.XFX(pid, x, q2)
	if err != nil {
		return 0, &CallbackError{Err: err}
	}
	c.pdfs[key] = v
	return v, nil
}

func (c *callbackCache) alphasQ2(as Alphas, q2 float64) (float64, error) {
	if v, ok := c.alphas[q2]; ok {
		return v, nil
	}
	v, err := as.AlphasQ2(q2)
	if err != nil {
		return 0, &CallbackError{Err: err}
	}
	c.alphas[q2] = v
	return v, nil
}

// ConvolveSubgrid returns the luminosity-weighted contribution of every node
// of slot (order, bin, channel) at the given scale, without scale
// logarithms or bin normalization.
func (g *Grid) ConvolveSubgrid(ctx context.Context, lumi Luminosity, order, bin, channel int, scale ScaleFactors) (*subgrid.Packed, error) {
	if err := g.checkIndex(order, bin, channel); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cv, err := g.newConvolution(lumi, convolveOptions{scales: []ScaleFactors{scale}})
	if err != nil {
		return nil, err
	}

	sg := g.subgrids[g.index(order, bin, channel)]
	axes := sg.Axes()
	if sg.IsEmpty() {
		axes = g.meshes.Axes()
	}
	out, err := subgrid.NewPacked(axes)
	if err != nil {
		return nil, translateError(err)
	}
	if sg.IsEmpty() {
		return out, nil
	}

	nq, n1, n2 := axes.Shape()
	dense := make([][][]float64, nq)
	err = cv.slot(sg, g.registry.Order(order), g.registry.Channel(channel), newCallbackCache(),
		func(_ int, node [3]int, v float64) {
			if dense[node[0]] == nil {
				dense[node[0]] = newDense(n1, n2)
			}
			dense[node[0]][node[1]][node[2]] += v
		})
	if err != nil {
		return nil, err
	}

	for iq, s := range dense {
		if s == nil {
			continue
		}
		if err := out.ImportSlice(iq, s); err != nil {
			return nil, translateError(err)
		}
	}
	return out, nil
}

func newDense(n1, n2 int) [][]float64 {
	out := make([][]float64, n1)
	for i := range out {
		out[i] = make([]float64, n2)
	}
	return out
}
