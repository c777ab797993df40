package bins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRemapper(t *testing.T) {
	r, err := NewRemapper(2, []float64{1, 2}, []Range{{0, 1}, {0, 2}, {1, 2}, {0, 2}})
	require.NoError(t, err)

	assert.Equal(t, 2, r.Dimensions())
	assert.Equal(t, 2, r.Count())
	assert.Equal(t, []Range{{1, 2}, {0, 2}}, r.Bin(1))

	b, ok := r.Index([]float64{1.5, 0.5})
	require.True(t, ok)
	assert.Equal(t, 1, b)

	_, ok = r.Index([]float64{2.5, 0.5})
	assert.False(t, ok)

	_, ok = r.Index([]float64{0.5})
	assert.False(t, ok)
}

func TestNewRemapper_ShapeMismatch(t *testing.T) {
	_, err := NewRemapper(2, []float64{1, 2}, []Range{{0, 1}, {0, 2}, {1, 2}})
	require.ErrorIs(t, err, ErrConfig)

	_, err = NewRemapper(0, []float64{1}, nil)
	require.ErrorIs(t, err, ErrConfig)

	_, err = NewRemapper(1, []float64{1}, []Range{{2, 1}})
	require.ErrorIs(t, err, ErrConfig)
}

func TestRemapper_DegenerateRange(t *testing.T) {
	r, err := NewRemapper(2, []float64{1}, []Range{{3, 3}, {0, 1}})
	require.NoError(t, err)

	_, ok := r.Index([]float64{3, 0.5})
	assert.True(t, ok)
	_, ok = r.Index([]float64{3.1, 0.5})
	assert.False(t, ok)
}

func TestRemapper_Merge(t *testing.T) {
	a, _ := NewRemapper(1, []float64{1}, []Range{{0, 1}})
	b, _ := NewRemapper(1, []float64{2}, []Range{{1, 3}})
	c, _ := NewRemapper(2, []float64{2}, []Range{{1, 3}, {0, 1}})

	m, err := a.Merge(b)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, m.Normalizations())
	assert.True(t, m.Equals(m))
	assert.False(t, m.Equals(a))

	_, err = a.Merge(c)
	require.ErrorIs(t, err, ErrConfig)
}
