package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_AppendOnly(t *testing.T) {
	r, err := New(2)
	require.NoError(t, err)

	i, err := r.AddOrder(NewOrder(0, 2, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 0, i)

	i, err = r.AddOrder(NewOrder(1, 2, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, i)

	_, err = r.AddOrder(NewOrder(0, 2, 0, 0))
	require.ErrorIs(t, err, ErrConfig)

	photon := MustChannel(Entry{PIDs: []int32{22, 22}, Factor: 1})
	i, err = r.AddChannel(photon)
	require.NoError(t, err)
	assert.Equal(t, 0, i)

	_, err = r.AddChannel(photon)
	require.ErrorIs(t, err, ErrConfig)

	_, err = r.AddChannel(MustChannel(Entry{PIDs: []int32{21}, Factor: 1}))
	require.ErrorIs(t, err, ErrConfig)

	assert.Equal(t, 1, r.OrderIndex(NewOrder(1, 2, 0, 0)))
	assert.Equal(t, -1, r.OrderIndex(NewOrder(3, 2, 0, 0)))
	assert.Equal(t, 0, r.ChannelIndex(photon))
}

func TestNew_InvalidConvolutions(t *testing.T) {
	_, err := New(0)
	require.ErrorIs(t, err, ErrConfig)

	_, err = New(3)
	require.ErrorIs(t, err, ErrConfig)
}

func TestRegistry_SameAfterSort(t *testing.T) {
	a, _ := New(2)
	b, _ := New(2)

	c1 := MustChannel(Entry{PIDs: []int32{2, 2}, Factor: 1})
	c2 := MustChannel(Entry{PIDs: []int32{1, 1}, Factor: 1})

	_, _ = a.AddOrder(NewOrder(0, 2, 0, 0))
	_, _ = a.AddOrder(NewOrder(1, 2, 0, 0))
	_, _ = a.AddChannel(c1)
	_, _ = a.AddChannel(c2)

	_, _ = b.AddOrder(NewOrder(1, 2, 0, 0))
	_, _ = b.AddOrder(NewOrder(0, 2, 0, 0))
	_, _ = b.AddChannel(c2)
	_, _ = b.AddChannel(c1)

	assert.True(t, a.SameAfterSort(b))

	_, _ = b.AddOrder(NewOrder(2, 2, 0, 0))
	assert.False(t, a.SameAfterSort(b))

	clone := a.Clone()
	_, _ = clone.AddOrder(NewOrder(2, 2, 0, 0))
	assert.Len(t, a.Orders(), 2)
}

func TestMask(t *testing.T) {
	m, err := NewMask(nil, 3)
	require.NoError(t, err)
	assert.True(t, m.All())
	assert.Equal(t, 3, m.Count(3))

	m, err = NewMask([]bool{false, false, false}, 3)
	require.NoError(t, err)
	assert.True(t, m.All())

	m, err = NewMask([]bool{false, true, false}, 3)
	require.NoError(t, err)
	assert.False(t, m.All())
	assert.False(t, m.Selected(0))
	assert.True(t, m.Selected(1))
	assert.Equal(t, 1, m.Count(3))

	_, err = NewMask([]bool{true}, 3)
	require.ErrorIs(t, err, ErrIndex)

	m, err = MaskOf(4, 0, 3)
	require.NoError(t, err)
	assert.True(t, m.Selected(3))
	assert.False(t, m.Selected(2))

	_, err = MaskOf(4, 4)
	require.ErrorIs(t, err, ErrIndex)
}
