package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrder(t *testing.T) {
	tests := []struct {
		in   string
		want Order
	}{
		{"as1", NewOrder(1, 0, 0, 0)},
		{"a1", NewOrder(0, 1, 0, 0)},
		{"as1lr1", NewOrder(1, 0, 1, 0)},
		{"as1lf1", NewOrder(1, 0, 0, 1)},
		{"as1a2lr1lf1", NewOrder(1, 2, 1, 1)},
		{"as1la1", Order{Alphas: 1, LogXiA: 1}},
		{"", Order{}},
	}

	for _, tt := range tests {
		got, err := ParseOrder(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseOrder_Errors(t *testing.T) {
	_, err := ParseOrder("ab12")
	require.ErrorIs(t, err, ErrParse)
	assert.Contains(t, err.Error(), "unknown coupling: 'ab'")

	_, err = ParseOrder("ab123456789000000")
	require.ErrorIs(t, err, ErrParse)
	assert.Contains(t, err.Error(), "error while parsing exponent of 'ab'")
}

func TestOrder_StringRoundTrip(t *testing.T) {
	for _, o := range []Order{NewOrder(0, 2, 0, 0), NewOrder(1, 2, 1, 0), {Alphas: 2, Alpha: 1, LogXiF: 2, LogXiA: 1}} {
		back, err := ParseOrder(o.String())
		require.NoError(t, err)
		assert.Equal(t, o, back)
	}
}

func TestSortOrders(t *testing.T) {
	orders := []Order{
		NewOrder(1, 2, 1, 0),
		NewOrder(0, 3, 0, 0),
		NewOrder(1, 2, 0, 0),
		NewOrder(0, 2, 0, 0),
		NewOrder(2, 2, 0, 0),
	}
	SortOrders(orders)

	assert.Equal(t, []Order{
		NewOrder(0, 2, 0, 0),
		NewOrder(1, 2, 0, 0),
		NewOrder(1, 2, 1, 0),
		NewOrder(0, 3, 0, 0),
		NewOrder(2, 2, 0, 0),
	}, orders)
}

func TestCreateMask_DrellYan(t *testing.T) {
	orders := []Order{
		NewOrder(0, 2, 0, 0), //   LO
		NewOrder(1, 2, 0, 0), //  NLO QCD
		NewOrder(0, 3, 0, 0), //  NLO EW
		NewOrder(2, 2, 0, 0), // NNLO QCD
		NewOrder(1, 3, 0, 0), // NNLO QCD-EW
		NewOrder(0, 4, 0, 0), // NNLO EW
	}

	tests := []struct {
		maxAs, maxAl uint8
		want         []bool
	}{
		{0, 1, []bool{true, false, false, false, false, false}},
		{1, 0, []bool{true, false, false, false, false, false}},
		{2, 0, []bool{true, true, false, false, false, false}},
		{0, 2, []bool{true, false, true, false, false, false}},
		{2, 1, []bool{true, true, false, false, false, false}},
		{2, 2, []bool{true, true, true, false, false, false}},
		{3, 0, []bool{true, true, false, true, false, false}},
		{0, 3, []bool{true, false, true, false, false, true}},
		{3, 3, []bool{true, true, true, true, true, true}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CreateMask(orders, tt.maxAs, tt.maxAl, false), "max_as=%d max_al=%d", tt.maxAs, tt.maxAl)
	}
}

func TestCreateMask_Logs(t *testing.T) {
	orders := []Order{
		NewOrder(0, 2, 0, 0),
		NewOrder(1, 2, 0, 0),
		NewOrder(1, 2, 1, 0),
		NewOrder(0, 3, 0, 0),
		NewOrder(0, 3, 1, 0),
	}

	assert.Equal(t, []bool{true, false, false, true, false}, CreateMask(orders, 0, 2, false))
	assert.Equal(t, []bool{true, false, false, true, true}, CreateMask(orders, 0, 2, true))
}

func TestCreateMask_TopPair(t *testing.T) {
	orders := []Order{
		NewOrder(2, 0, 0, 0),
		NewOrder(1, 1, 0, 0),
		NewOrder(0, 2, 0, 0),
		NewOrder(3, 0, 0, 0),
		NewOrder(2, 1, 0, 0),
		NewOrder(1, 2, 0, 0),
		NewOrder(0, 3, 0, 0),
	}

	assert.Equal(t, []bool{false, false, true, false, false, false, false}, CreateMask(orders, 0, 1, false))
	assert.Equal(t, []bool{true, false, false, false, false, false, false}, CreateMask(orders, 1, 0, false))
	assert.Equal(t, []bool{true, true, true, false, false, false, false}, CreateMask(orders, 1, 1, false))
	assert.Empty(t, CreateMask(nil, 1, 1, false))
}
