package interp

import (
	"fmt"
	"math"
)

// Map selects the transform between physical values and node space.
type Map uint8

const (
	// MapLinear uses the physical value as node coordinate.
	MapLinear Map = iota
	// MapLog uses ln(v).
	MapLog
	// MapApplGridF2 uses 5(1-x) - ln(x), the APPLgrid momentum-fraction map.
	MapApplGridF2
	// MapApplGridH0 uses ln(ln(Q²/0.0625)), the APPLgrid scale map.
	MapApplGridH0
)

// lambda2 is the Λ² constant of the H0 scale map.
const lambda2 = 0.0625

func (m Map) String() string {
	switch m {
	case MapLinear:
		return "linear"
	case MapLog:
		return "log"
	case MapApplGridF2:
		return "applgrid-f2"
	case MapApplGridH0:
		return "applgrid-h0"
	default:
		return fmt.Sprintf("Map(%d)", uint8(m))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Map) MarshalText() ([]byte, error) {
	if !m.valid() {
		return nil, fmt.Errorf("%w: unknown map %d", ErrConfig, uint8(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Map) UnmarshalText(text []byte) error {
	for _, c := range []Map{MapLinear, MapLog, MapApplGridF2, MapApplGridH0} {
		if c.String() == string(text) {
			*m = c
			return nil
		}
	}
	return fmt.Errorf("%w: unknown map %q", ErrConfig, text)
}

func (m Map) valid() bool {
	return m <= MapApplGridH0
}

// lowerBound is the exclusive lower bound of the map's domain.
func (m Map) lowerBound() (float64, bool) {
	switch m {
	case MapLog, MapApplGridF2:
		return 0, true
	case MapApplGridH0:
		return lambda2, true
	default:
		return 0, false
	}
}

func (m Map) forward(v float64) float64 {
	switch m {
	case MapLog:
		return math.Log(v)
	case MapApplGridF2:
		return 5*(1-v) - math.Log(v)
	case MapApplGridH0:
		return math.Log(math.Log(v / lambda2))
	default:
		return v
	}
}

func (m Map) inverse(y float64) float64 {
	switch m {
	case MapLog:
		return math.Exp(y)
	case MapApplGridF2:
		return inverseF2(y)
	case MapApplGridH0:
		return lambda2 * math.Exp(math.Exp(y))
	default:
		return y
	}
}

// inverseF2 solves y = 5(1-x) - ln(x) for x with Newton's method.
func inverseF2(y float64) float64 {
	yp := y

	for range 100 {
		x := math.Exp(-yp)
		delta := y - yp - 5*(1-x)
		if math.Abs(delta) < 1e-12 {
			return x
		}
		deriv := -1 - 5*x
		yp -= delta / deriv
	}

	// Newton converges in a handful of steps for every y the mesh produces.
	return math.Exp(-yp)
}

// Reweight selects the multiplicative correction applied to fills.
type Reweight uint8

const (
	// ReweightNone applies no correction.
	ReweightNone Reweight = iota
	// ReweightApplGridX divides fills by (sqrt(x)/(1-0.99x))³.
	ReweightApplGridX
)

func (r Reweight) String() string {
	switch r {
	case ReweightNone:
		return "none"
	case ReweightApplGridX:
		return "applgrid-x"
	default:
		return fmt.Sprintf("Reweight(%d)", uint8(r))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Reweight) MarshalText() ([]byte, error) {
	if !r.valid() {
		return nil, fmt.Errorf("%w: unknown reweight %d", ErrConfig, uint8(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Reweight) UnmarshalText(text []byte) error {
	for _, c := range []Reweight{ReweightNone, ReweightApplGridX} {
		if c.String() == string(text) {
			*r = c
			return nil
		}
	}
	return fmt.Errorf("%w: unknown reweight %q", ErrConfig, text)
}

func (r Reweight) valid() bool {
	return r <= ReweightApplGridX
}

// Factor returns the reweighting factor at v.
func (r Reweight) Factor(v float64) float64 {
	if r != ReweightApplGridX {
		return 1
	}
	w := math.Sqrt(v) / (1 - 0.99*v)
	return w * w * w
}
