package registry

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrConfig is returned for invalid orders or channels.
	ErrConfig = errors.New("registry: invalid configuration")
	// ErrParse is returned when an order or channel string can not be parsed.
	ErrParse = errors.New("registry: parse error")
	// ErrIndex is returned for masks or indices that do not match the registry.
	ErrIndex = errors.New("registry: index out of range")
)

// Registry holds the orders and channels of a grid. Both are append-only:
// an index, once handed out, refers to the same entry for the lifetime of
// the registry.
type Registry struct {
	convolutions int
	orders       []Order
	channels     []Channel
}

// New creates an empty registry for channels with the given number of
// convolutions (one or two PIDs per entry).
func New(convolutions int) (*Registry, error) {
	if convolutions < 1 || convolutions > 2 {
		return nil, fmt.Errorf("%w: %d convolutions, want 1 or 2", ErrConfig, convolutions)
	}
	return &Registry{convolutions: convolutions}, nil
}

// Convolutions returns the number of PIDs every channel entry carries.
func (r *Registry) Convolutions() int { return r.convolutions }

// AddOrder appends o and returns its index.
func (r *Registry) AddOrder(o Order) (int, error) {
	if i := r.OrderIndex(o); i >= 0 {
		return 0, fmt.Errorf("%w: duplicate order %s at index %d", ErrConfig, o, i)
	}
	r.orders = append(r.orders, o)
	return len(r.orders) - 1, nil
}

// AddChannel appends c and returns its index.
func (r *Registry) AddChannel(c Channel) (int, error) {
	if c.Len() == 0 {
		return 0, fmt.Errorf("%w: channel without entries", ErrConfig)
	}
	if c.Arity() != r.convolutions {
		return 0, fmt.Errorf("%w: channel %s has %d PIDs per entry, want %d", ErrConfig, c, c.Arity(), r.convolutions)
	}
	if i := r.ChannelIndex(c); i >= 0 {
		return 0, fmt.Errorf("%w: duplicate channel %s at index %d", ErrConfig, c, i)
	}
	r.channels = append(r.channels, c)
	return len(r.channels) - 1, nil
}

// Orders returns the orders in index order. The result must not be modified.
func (r *Registry) Orders() []Order { return r.orders }

// Channels returns the channels in index order. The result must not be modified.
func (r *Registry) Channels() []Channel { return r.channels }

// Order returns the order at index i.
func (r *Registry) Order(i int) Order { return r.orders[i] }

// Channel returns the channel at index i.
func (r *Registry) Channel(i int) Channel { return r.channels[i] }

// OrderIndex returns the index of o, or -1.
func (r *Registry) OrderIndex(o Order) int {
	return slices.Index(r.orders, o)
}

// ChannelIndex returns the index of c, or -1.
func (r *Registry) ChannelIndex(c Channel) int {
	return slices.IndexFunc(r.channels, c.Equal)
}

// Clone returns a deep copy.
func (r *Registry) Clone() *Registry {
	return &Registry{
		convolutions: r.convolutions,
		orders:       slices.Clone(r.orders),
		channels:     slices.Clone(r.channels),
	}
}

// SameAfterSort reports whether both registries contain the same orders and
// channels, irrespective of their index assignment.
func (r *Registry) SameAfterSort(other *Registry) bool {
	if r.convolutions != other.convolutions {
		return false
	}

	a, b := slices.Clone(r.orders), slices.Clone(other.orders)
	SortOrders(a)
	SortOrders(b)
	if !slices.Equal(a, b) {
		return false
	}

	ca, cb := slices.Clone(r.channels), slices.Clone(other.channels)
	slices.SortFunc(ca, Channel.Compare)
	slices.SortFunc(cb, Channel.Compare)
	return slices.EqualFunc(ca, cb, Channel.Equal)
}
