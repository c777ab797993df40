package registry

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

// Order identifies one term of the perturbative expansion by its coupling
// and scale-logarithm powers.
type Order struct {
	// Alphas is the power of the strong coupling.
	Alphas uint8
	// Alpha is the power of the electromagnetic coupling.
	Alpha uint8
	// LogXiR is the power of ln(ξ_R²).
	LogXiR uint8
	// LogXiF is the power of ln(ξ_F²).
	LogXiF uint8
	// LogXiA is the power of ln(ξ_A²), the fragmentation scale log.
	LogXiA uint8
}

// NewOrder returns an order without fragmentation logarithm.
func NewOrder(alphas, alpha, logxir, logxif uint8) Order {
	return Order{Alphas: alphas, Alpha: alpha, LogXiR: logxir, LogXiF: logxif}
}

// HasLogs reports whether any scale-logarithm power is non-zero.
func (o Order) HasLogs() bool {
	return o.LogXiR > 0 || o.LogXiF > 0 || o.LogXiA > 0
}

// String renders the order in the compact form accepted by ParseOrder,
// e.g. "as1a2lr1". Zero log powers are omitted.
func (o Order) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "as%da%d", o.Alphas, o.Alpha)
	if o.LogXiR > 0 {
		fmt.Fprintf(&sb, "lr%d", o.LogXiR)
	}
	if o.LogXiF > 0 {
		fmt.Fprintf(&sb, "lf%d", o.LogXiF)
	}
	if o.LogXiA > 0 {
		fmt.Fprintf(&sb, "la%d", o.LogXiA)
	}
	return sb.String()
}

// Compare orders leading orders before next-to-leading ones, then by the
// lowest power of alpha, then lexicographically by the log powers.
func (o Order) Compare(other Order) int {
	return cmp.Or(
		cmp.Compare(int(o.Alphas)+int(o.Alpha), int(other.Alphas)+int(other.Alpha)),
		cmp.Compare(o.Alpha, other.Alpha),
		cmp.Compare(o.LogXiR, other.LogXiR),
		cmp.Compare(o.LogXiF, other.LogXiF),
		cmp.Compare(o.LogXiA, other.LogXiA),
	)
}

// SortOrders sorts orders in place using Order.Compare.
func SortOrders(orders []Order) {
	slices.SortFunc(orders, Order.Compare)
}

// ParseOrder parses strings like "as1a2lr1lf1la1". Missing couplings
// default to zero.
func ParseOrder(s string) (Order, error) {
	var o Order

	labels := strings.FieldsFunc(s, unicode.IsDigit)
	exponents := strings.FieldsFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })

	for i := 0; i < min(len(labels), len(exponents)); i++ {
		label := labels[i]

		n, err := strconv.ParseUint(exponents[i], 10, 8)
		if err != nil {
			return Order{}, fmt.Errorf("%w: error while parsing exponent of '%s': %v", ErrParse, label, err)
		}

		switch label {
		case "as":
			o.Alphas = uint8(n)
		case "a":
			o.Alpha = uint8(n)
		case "lr":
			o.LogXiR = uint8(n)
		case "lf":
			o.LogXiF = uint8(n)
		case "la":
			o.LogXiA = uint8(n)
		default:
			return Order{}, fmt.Errorf("%w: unknown coupling: '%s'", ErrParse, label)
		}
	}

	return o, nil
}

// CreateMask selects the orders of a perturbative truncation. maxAs and maxAl
// count the orders in the strong and electroweak coupling beyond the leading
// order: maxAs=1, maxAl=0 selects LO QCD, maxAs=2, maxAl=0 NLO QCD, and
// maxAs=3, maxAl=2 all NLOs plus NNLO QCD. When logs is false every order
// with a scale logarithm is excluded.
func CreateMask(orders []Order, maxAs, maxAl uint8, logs bool) []bool {
	mask := make([]bool, len(orders))
	if len(orders) == 0 {
		return mask
	}

	lo := int(orders[0].Alphas) + int(orders[0].Alpha)
	for _, o := range orders[1:] {
		lo = min(lo, int(o.Alphas)+int(o.Alpha))
	}

	var loAs, loAl int
	for _, o := range orders {
		if int(o.Alphas)+int(o.Alpha) == lo {
			loAs = max(loAs, int(o.Alphas))
			loAl = max(loAl, int(o.Alpha))
		}
	}

	hi := int(max(maxAs, maxAl))
	lw := int(min(maxAs, maxAl))

	for i, o := range orders {
		if !logs && o.HasLogs() {
			continue
		}

		sum := int(o.Alphas) + int(o.Alpha)
		pto := sum - lo

		var leading bool
		switch {
		case maxAs > maxAl:
			leading = loAs+pto == int(o.Alphas)
		case maxAs < maxAl:
			leading = loAl+pto == int(o.Alpha)
		}

		mask[i] = sum < lw+lo || (sum < hi+lo && leading)
	}

	return mask
}
