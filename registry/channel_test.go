package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChannel_Canonical(t *testing.T) {
	c, err := NewChannel(
		Entry{PIDs: []int32{4, 4}, Factor: 1},
		Entry{PIDs: []int32{2, 2}, Factor: 1},
		Entry{PIDs: []int32{4, 4}, Factor: 0.5},
		Entry{PIDs: []int32{1, -1}, Factor: 1},
		Entry{PIDs: []int32{1, -1}, Factor: -1},
	)
	require.NoError(t, err)

	assert.Equal(t, []Entry{
		{PIDs: []int32{2, 2}, Factor: 1},
		{PIDs: []int32{4, 4}, Factor: 1.5},
	}, c.Entries())
	assert.Equal(t, 2, c.Arity())
}

func TestNewChannel_Errors(t *testing.T) {
	_, err := NewChannel()
	require.ErrorIs(t, err, ErrConfig)

	_, err = NewChannel(Entry{PIDs: []int32{1, 2}, Factor: 1}, Entry{PIDs: []int32{1}, Factor: 1})
	require.ErrorIs(t, err, ErrConfig)
}

func TestNewChannel_OrderIndependent(t *testing.T) {
	a := MustChannel(Entry{PIDs: []int32{2, 2}, Factor: 1}, Entry{PIDs: []int32{4, 4}, Factor: 1})
	b := MustChannel(Entry{PIDs: []int32{4, 4}, Factor: 1}, Entry{PIDs: []int32{2, 2}, Factor: 1})

	assert.True(t, a.Equal(b))
	assert.Equal(t, 0, a.Compare(b))
}

func TestParseChannel(t *testing.T) {
	c, err := ParseChannel("1 * (2, 2) + 0.5 * (4, -4)")
	require.NoError(t, err)

	want := MustChannel(Entry{PIDs: []int32{2, 2}, Factor: 1}, Entry{PIDs: []int32{4, -4}, Factor: 0.5})
	assert.True(t, want.Equal(c))

	back, err := ParseChannel(c.String())
	require.NoError(t, err)
	assert.True(t, c.Equal(back))

	single, err := ParseChannel("2 * (21)")
	require.NoError(t, err)
	assert.Equal(t, 1, single.Arity())
}

func TestParseChannel_Errors(t *testing.T) {
	for _, in := range []string{"1 (2, 2)", "x * (2, 2)", "1 * 2, 2", "1 * (2, a)"} {
		_, err := ParseChannel(in)
		require.ErrorIs(t, err, ErrParse, in)
	}

	_, err := ParseChannel("1 * (2, 2) + 1 * (1)")
	require.ErrorIs(t, err, ErrConfig)
}

func TestChannel_Transpose(t *testing.T) {
	c := MustChannel(Entry{PIDs: []int32{1, 2}, Factor: 1}, Entry{PIDs: []int32{3, 4}, Factor: 2})
	tr := c.Transpose(0, 1)

	assert.Equal(t, []Entry{
		{PIDs: []int32{2, 1}, Factor: 1},
		{PIDs: []int32{4, 3}, Factor: 2},
	}, tr.Entries())
	assert.True(t, c.Equal(tr.Transpose(0, 1)))

	sym := MustChannel(Entry{PIDs: []int32{1, 2}, Factor: 1}, Entry{PIDs: []int32{2, 1}, Factor: 1})
	assert.True(t, sym.Equal(sym.Transpose(0, 1)))
}

func TestChannel_CommonFactor(t *testing.T) {
	a := MustChannel(Entry{PIDs: []int32{1, 1}, Factor: 2}, Entry{PIDs: []int32{2, 2}, Factor: 4})
	b := MustChannel(Entry{PIDs: []int32{1, 1}, Factor: 1}, Entry{PIDs: []int32{2, 2}, Factor: 2})
	c := MustChannel(Entry{PIDs: []int32{1, 1}, Factor: 1}, Entry{PIDs: []int32{2, 2}, Factor: 3})
	d := MustChannel(Entry{PIDs: []int32{1, 1}, Factor: 1})

	f, ok := a.CommonFactor(b)
	require.True(t, ok)
	assert.Equal(t, 2.0, f)

	_, ok = a.CommonFactor(c)
	assert.False(t, ok)

	_, ok = a.CommonFactor(d)
	assert.False(t, ok)
}

func TestChargeConjugate(t *testing.T) {
	assert.Equal(t, int32(21), ChargeConjugate(21))
	assert.Equal(t, int32(22), ChargeConjugate(22))
	assert.Equal(t, int32(-2), ChargeConjugate(2))
	assert.Equal(t, int32(11), ChargeConjugate(-11))

	c := MustChannel(Entry{PIDs: []int32{2, -1}, Factor: 1}, Entry{PIDs: []int32{21, 1}, Factor: 1})
	cc := c.ChargeConjugate(1)

	assert.Equal(t, []Entry{
		{PIDs: []int32{2, 1}, Factor: 1},
		{PIDs: []int32{21, -1}, Factor: 1},
	}, cc.Entries())
}
