package interp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func q2Params() Params {
	return Params{Min: 1e2, Max: 1e8, Nodes: 40, Degree: 3, Map: MapApplGridH0}
}

func xParams() Params {
	return Params{Min: 2e-7, Max: 1, Nodes: 50, Degree: 3, Map: MapApplGridF2, Reweight: ReweightApplGridX}
}

func TestNew_ScaleNodes(t *testing.T) {
	m, err := New(q2Params())
	require.NoError(t, err)

	require.Equal(t, 40, m.Len())
	assert.InEpsilon(t, 9.9999999999999986e1, m.Node(0), 1e-14)
	assert.InEpsilon(t, 1.2242682307575689e2, m.Node(1), 1e-14)
	assert.InEpsilon(t, 1.5071735829758390e2, m.Node(2), 1e-14)
	assert.InEpsilon(t, 9.9999999999999493e7, m.Node(39), 1e-14)
}

func TestNew_MomentumFractionNodes(t *testing.T) {
	m, err := New(xParams())
	require.NoError(t, err)

	assert.InEpsilon(t, 1.0, m.Node(0), 1e-14)
	assert.InEpsilon(t, 9.3094408087175440e-1, m.Node(1), 1e-12)
	assert.InEpsilon(t, 8.6278393239061080e-1, m.Node(2), 1e-12)
	assert.InEpsilon(t, 2e-7, m.Node(49), 1e-10)

	// F2 is decreasing, so the nodes are too.
	for i := 1; i < m.Len(); i++ {
		assert.Less(t, m.Node(i), m.Node(i-1))
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name string
		p    Params
	}{
		{"too few nodes", Params{Min: 1, Max: 2, Nodes: 3, Degree: 3, Map: MapLog}},
		{"min equals max", Params{Min: 2, Max: 2, Nodes: 10, Degree: 3, Map: MapLog}},
		{"min above max", Params{Min: 3, Max: 2, Nodes: 10, Degree: 3, Map: MapLinear}},
		{"log of zero", Params{Min: 0, Max: 1, Nodes: 10, Degree: 3, Map: MapLog}},
		{"f2 of negative", Params{Min: -1, Max: 1, Nodes: 10, Degree: 3, Map: MapApplGridF2}},
		{"h0 below lambda", Params{Min: 0.05, Max: 10, Nodes: 10, Degree: 3, Map: MapApplGridH0}},
		{"degree too high", Params{Min: 1, Max: 2, Nodes: 20, Degree: 8, Map: MapLog}},
		{"too many nodes", Params{Min: 1, Max: 2, Nodes: MaxNodes + 1, Degree: 3, Map: MapLog}},
		{"unknown map", Params{Min: 1, Max: 2, Nodes: 10, Degree: 3, Map: Map(42)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.p)
			require.ErrorIs(t, err, ErrConfig)
		})
	}
}

func TestPosition_OutOfRange(t *testing.T) {
	m := MustNew(q2Params())

	_, err := m.Position(50)
	require.ErrorIs(t, err, ErrDomain)

	_, err = m.Position(2e8)
	require.ErrorIs(t, err, ErrDomain)

	coord, err := m.Position(m.Node(7))
	require.NoError(t, err)
	assert.InDelta(t, 7.0, coord, 1e-9)
}

func TestBasisWeights_AtNode(t *testing.T) {
	for _, p := range []Params{q2Params(), xParams()} {
		m := MustNew(p)
		for _, i := range []int{0, 1, 10, m.Len() - 2, m.Len() - 1} {
			coord, err := m.Position(m.Node(i))
			require.NoError(t, err)

			weights := m.BasisWeights(coord)
			require.Len(t, weights, p.Degree+1)

			for _, nw := range weights {
				if nw.Index == i {
					assert.InDelta(t, 1.0, nw.Weight, 1e-9)
				} else {
					assert.InDelta(t, 0.0, nw.Weight, 1e-9)
				}
			}
		}
	}
}

func TestBasisWeights_PartitionOfUnity(t *testing.T) {
	m := MustNew(xParams())

	for _, x := range []float64{1e-6, 3.3e-4, 0.01, 0.2, 0.7, 0.999} {
		coord, err := m.Position(x)
		require.NoError(t, err)

		sum := 0.0
		for _, nw := range m.BasisWeights(coord) {
			assert.GreaterOrEqual(t, nw.Index, 0)
			assert.Less(t, nw.Index, m.Len())
			sum += nw.Weight
		}
		assert.InDelta(t, 1.0, sum, 1e-12)
	}
}

func TestBasisWeights_ReproducesCubic(t *testing.T) {
	m := MustNew(Params{Min: 1, Max: 10, Nodes: 12, Degree: 3, Map: MapLinear})
	f := func(v float64) float64 { return 2*v*v*v - v + 4 }

	for _, v := range []float64{1, 1.3, 4.75, 9.99} {
		coord, err := m.Position(v)
		require.NoError(t, err)

		got := 0.0
		for _, nw := range m.BasisWeights(coord) {
			got += nw.Weight * f(m.Node(nw.Index))
		}
		assert.InEpsilon(t, f(v), got, 1e-10)
	}
}

func TestSingleNode(t *testing.T) {
	m, err := New(Params{Min: 1, Max: 2, Nodes: 1, Degree: 0, Map: MapLinear})
	require.NoError(t, err)

	coord, err := m.Position(1.5)
	require.NoError(t, err)

	weights := m.BasisWeights(coord)
	require.Len(t, weights, 1)
	assert.Equal(t, NodeWeight{Index: 0, Weight: 1}, weights[0])
}

func TestReweight(t *testing.T) {
	assert.Equal(t, 1.0, ReweightNone.Factor(0.3))
	assert.InEpsilon(t, 1e6, ReweightApplGridX.Factor(1), 1e-9)
	assert.InEpsilon(t, math.Pow(0.1/0.9901, 3), ReweightApplGridX.Factor(0.01), 1e-12)
}

func TestMapText(t *testing.T) {
	for _, m := range []Map{MapLinear, MapLog, MapApplGridF2, MapApplGridH0} {
		text, err := m.MarshalText()
		require.NoError(t, err)

		var back Map
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, m, back)
	}

	var r Reweight
	require.NoError(t, r.UnmarshalText([]byte("applgrid-x")))
	assert.Equal(t, ReweightApplGridX, r)
	require.ErrorIs(t, r.UnmarshalText([]byte("bogus")), ErrConfig)
}

func TestEqual(t *testing.T) {
	a := MustNew(xParams())
	b := MustNew(xParams())
	c := MustNew(q2Params())

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}
