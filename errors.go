package pinegrid

import (
	"errors"
	"fmt"

	"github.com/hupe1980/pinegrid/bins"
	"github.com/hupe1980/pinegrid/interp"
	"github.com/hupe1980/pinegrid/registry"
	"github.com/hupe1980/pinegrid/subgrid"
)

var (
	// ErrConfig is returned for invalid construction parameters.
	ErrConfig = errors.New("invalid configuration")
	// ErrDomain is returned when a kinematic value lies outside a node mesh.
	ErrDomain = errors.New("value outside node mesh")
	// ErrIndex is returned for out-of-range indices and mismatched masks.
	ErrIndex = errors.New("index out of range")
	// ErrCodec is returned for malformed, truncated or unsupported grid data.
	ErrCodec = errors.New("malformed grid data")
	// ErrCallback is returned when a PDF or alphas callback fails.
	ErrCallback = errors.New("callback failed")
	// ErrIncompatible is returned when merging grids of different structure.
	ErrIncompatible = errors.New("incompatible grids")
)

// ConfigError describes a rejected construction parameter.
//
// It matches ErrConfig; the original underlying error (if any) can be
// accessed via errors.Unwrap.
type ConfigError struct {
	Field  string
	Reason string
	cause  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

func (e *ConfigError) Unwrap() error { return e.cause }

// IndexError describes an out-of-range order, bin or channel index, or a
// mask of the wrong length.
type IndexError struct {
	Kind  string
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%s index %d out of range [0, %d)", e.Kind, e.Index, e.Len)
}

func (e *IndexError) Is(target error) bool { return target == ErrIndex }

// CodecError is returned when a grid can not be read or written. It matches
// ErrCodec and unwraps to the underlying cause.
type CodecError struct {
	Op  string
	Err error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("%s grid: %v", e.Op, e.Err)
}

func (e *CodecError) Is(target error) bool { return target == ErrCodec }

func (e *CodecError) Unwrap() error { return e.Err }

// CallbackError wraps the failure of a caller-supplied PDF or alphas
// function. errors.Is still matches the original error.
type CallbackError struct {
	Err error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("callback failed: %v", e.Err)
}

func (e *CallbackError) Is(target error) bool { return target == ErrCallback }

func (e *CallbackError) Unwrap() error { return e.Err }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, interp.ErrConfig),
		errors.Is(err, registry.ErrConfig),
		errors.Is(err, registry.ErrParse),
		errors.Is(err, bins.ErrConfig),
		errors.Is(err, subgrid.ErrShape),
		errors.Is(err, subgrid.ErrUnsupported):
		return fmt.Errorf("%w: %w", ErrConfig, err)
	case errors.Is(err, interp.ErrDomain):
		return fmt.Errorf("%w: %w", ErrDomain, err)
	case errors.Is(err, registry.ErrIndex):
		return fmt.Errorf("%w: %w", ErrIndex, err)
	case errors.Is(err, subgrid.ErrIncompatible),
		errors.Is(err, bins.ErrNonConsecutive):
		return fmt.Errorf("%w: %w", ErrIncompatible, err)
	case errors.Is(err, subgrid.ErrCorrupt):
		return fmt.Errorf("%w: %w", ErrCodec, err)
	}

	return err
}
