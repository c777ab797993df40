package pinegrid

import (
	"fmt"
	"strings"
)

// ConvolutionType tells which kind of non-perturbative function a
// convolution slot expects.
type ConvolutionType uint8

const (
	// UnpolarizedPDF is an unpolarized parton distribution function.
	UnpolarizedPDF ConvolutionType = iota
	// PolarizedPDF is a polarized parton distribution function.
	PolarizedPDF
	// UnpolarizedFF is an unpolarized fragmentation function.
	UnpolarizedFF
	// PolarizedFF is a polarized fragmentation function.
	PolarizedFF
)

var convolutionTypeNames = [...]string{"unpol_pdf", "pol_pdf", "unpol_ff", "pol_ff"}

func (t ConvolutionType) String() string {
	if int(t) < len(convolutionTypeNames) {
		return convolutionTypeNames[t]
	}
	return fmt.Sprintf("ConvolutionType(%d)", uint8(t))
}

// IsFragmentation reports whether the slot is evaluated at the
// fragmentation scale.
func (t ConvolutionType) IsFragmentation() bool {
	return t == UnpolarizedFF || t == PolarizedFF
}

func (t ConvolutionType) MarshalText() ([]byte, error) {
	if int(t) >= len(convolutionTypeNames) {
		return nil, fmt.Errorf("%w: unknown convolution type %d", ErrConfig, uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *ConvolutionType) UnmarshalText(text []byte) error {
	for i, name := range convolutionTypeNames {
		if strings.EqualFold(string(text), name) {
			*t = ConvolutionType(i)
			return nil
		}
	}
	return fmt.Errorf("%w: unknown convolution type %q", ErrConfig, text)
}

// Convolution describes one convolution slot of a grid: the function type
// and the hadron whose distribution is convolved.
type Convolution struct {
	Type ConvolutionType `yaml:"type"`
	PID  int32           `yaml:"pid"`
}

// Proton is the unpolarized proton PDF convolution.
var Proton = Convolution{Type: UnpolarizedPDF, PID: 2212}
