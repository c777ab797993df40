package registry

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// zeroFactor is the magnitude below which a merged entry factor is
// considered to have cancelled.
const zeroFactor = 1e-14

// Entry is one partonic combination of a channel: one PDG particle ID per
// convolution and a relative factor.
type Entry struct {
	PIDs   []int32
	Factor float64
}

// Channel is a canonical, immutable list of entries. Entries are sorted by
// their PIDs, duplicates are merged and cancelled entries dropped.
type Channel struct {
	entries []Entry
}

// NewChannel builds a canonical channel. It fails for an empty entry list
// and for entries with different numbers of PIDs.
func NewChannel(entries ...Entry) (Channel, error) {
	if len(entries) == 0 {
		return Channel{}, fmt.Errorf("%w: can not create empty channel", ErrConfig)
	}

	arity := len(entries[0].PIDs)
	if arity == 0 {
		return Channel{}, fmt.Errorf("%w: channel entry without PIDs", ErrConfig)
	}

	sorted := make([]Entry, len(entries))
	for i, e := range entries {
		if len(e.PIDs) != arity {
			return Channel{}, fmt.Errorf("%w: can not create channel with a different number of PIDs", ErrConfig)
		}
		sorted[i] = Entry{PIDs: slices.Clone(e.PIDs), Factor: e.Factor}
	}

	slices.SortStableFunc(sorted, func(a, b Entry) int { return slices.Compare(a.PIDs, b.PIDs) })

	merged := sorted[:0]
	for _, e := range sorted {
		if n := len(merged); n > 0 && slices.Equal(merged[n-1].PIDs, e.PIDs) {
			merged[n-1].Factor += e.Factor
			continue
		}
		merged = append(merged, e)
	}

	out := make([]Entry, 0, len(merged))
	for _, e := range merged {
		if math.Abs(e.Factor) >= zeroFactor {
			out = append(out, e)
		}
	}

	return Channel{entries: out}, nil
}

// MustChannel is like NewChannel but panics on error.
func MustChannel(entries ...Entry) Channel {
	c, err := NewChannel(entries...)
	if err != nil {
		panic(err)
	}
	return c
}

// Entries returns the canonical entries. The result must not be modified.
func (c Channel) Entries() []Entry { return c.entries }

// Len returns the number of entries.
func (c Channel) Len() int { return len(c.entries) }

// Arity returns the number of PIDs per entry, i.e. the number of
// convolutions the channel is meant for.
func (c Channel) Arity() int {
	if len(c.entries) == 0 {
		return 0
	}
	return len(c.entries[0].PIDs)
}

// Equal reports whether both channels have identical entries.
func (c Channel) Equal(other Channel) bool {
	return slices.EqualFunc(c.entries, other.entries, func(a, b Entry) bool {
		return a.Factor == b.Factor && slices.Equal(a.PIDs, b.PIDs)
	})
}

// Compare orders channels lexicographically by entries.
func (c Channel) Compare(other Channel) int {
	return slices.CompareFunc(c.entries, other.entries, func(a, b Entry) int {
		return cmp.Or(slices.Compare(a.PIDs, b.PIDs), cmp.Compare(a.Factor, b.Factor))
	})
}

// Transpose swaps the PIDs of convolutions i and j in every entry.
func (c Channel) Transpose(i, j int) Channel {
	entries := make([]Entry, len(c.entries))
	for k, e := range c.entries {
		pids := slices.Clone(e.PIDs)
		pids[i], pids[j] = pids[j], pids[i]
		entries[k] = Entry{PIDs: pids, Factor: e.Factor}
	}
	return MustChannel(entries...)
}

// ChargeConjugate conjugates the PIDs of convolution slot.
func (c Channel) ChargeConjugate(slot int) Channel {
	entries := make([]Entry, len(c.entries))
	for k, e := range c.entries {
		pids := slices.Clone(e.PIDs)
		pids[slot] = ChargeConjugate(pids[slot])
		entries[k] = Entry{PIDs: pids, Factor: e.Factor}
	}
	return MustChannel(entries...)
}

// CommonFactor returns f such that c == f*other entry by entry, if such a
// factor exists up to 4 ulps.
func (c Channel) CommonFactor(other Channel) (float64, bool) {
	if len(c.entries) != len(other.entries) || len(c.entries) == 0 {
		return 0, false
	}

	factor := c.entries[0].Factor / other.entries[0].Factor
	for i := range c.entries {
		if !slices.Equal(c.entries[i].PIDs, other.entries[i].PIDs) {
			return 0, false
		}
		if !ulpsEqual(c.entries[i].Factor/other.entries[i].Factor, factor, 4) {
			return 0, false
		}
	}

	return factor, true
}

// String renders the channel as "1 * (2, 2) + 1 * (4, 4)".
func (c Channel) String() string {
	parts := make([]string, len(c.entries))
	for i, e := range c.entries {
		pids := make([]string, len(e.PIDs))
		for j, pid := range e.PIDs {
			pids[j] = strconv.FormatInt(int64(pid), 10)
		}
		parts[i] = fmt.Sprintf("%s * (%s)", strconv.FormatFloat(e.Factor, 'g', -1, 64), strings.Join(pids, ", "))
	}
	return strings.Join(parts, " + ")
}

// ParseChannel parses the format produced by Channel.String.
func ParseChannel(s string) (Channel, error) {
	var entries []Entry

	for _, sub := range strings.Split(s, "+") {
		factorText, pidsText, ok := strings.Cut(sub, "*")
		if !ok {
			return Channel{}, fmt.Errorf("%w: missing '*' in '%s'", ErrParse, sub)
		}

		factor, err := strconv.ParseFloat(strings.TrimSpace(factorText), 64)
		if err != nil {
			return Channel{}, fmt.Errorf("%w: can not parse factor in '%s': %v", ErrParse, sub, err)
		}

		pidsText = strings.TrimSpace(pidsText)
		if !strings.HasPrefix(pidsText, "(") || !strings.HasSuffix(pidsText, ")") {
			return Channel{}, fmt.Errorf("%w: missing parentheses in '%s'", ErrParse, sub)
		}

		var pids []int32
		for _, field := range strings.Split(pidsText[1:len(pidsText)-1], ",") {
			pid, err := strconv.ParseInt(strings.TrimSpace(field), 10, 32)
			if err != nil {
				return Channel{}, fmt.Errorf("%w: can not parse PID in '%s': %v", ErrParse, sub, err)
			}
			pids = append(pids, int32(pid))
		}

		entries = append(entries, Entry{PIDs: pids, Factor: factor})
	}

	return NewChannel(entries...)
}

// ChargeConjugate returns the PDG ID of the antiparticle of pid. Gluons and
// photons are their own antiparticles.
func ChargeConjugate(pid int32) int32 {
	switch pid {
	case 21, 22:
		return pid
	default:
		return -pid
	}
}

func ulpsEqual(a, b float64, ulps int64) bool {
	if a == b {
		return true
	}
	if math.Signbit(a) != math.Signbit(b) {
		return false
	}
	ia := int64(math.Float64bits(math.Abs(a)))
	ib := int64(math.Float64bits(math.Abs(b)))
	d := ia - ib
	if d < 0 {
		d = -d
	}
	return d <= ulps
}
