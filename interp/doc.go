// Package interp implements the interpolation node meshes that subgrids are
// stored on.
//
// A Mesh discretizes one kinematic axis (a momentum fraction x or a
// factorization scale Q²). Physical values are first sent through a mapping
// into a node space where nodes are equidistant, and events are then spread
// over the Degree+1 nearest nodes with Lagrange basis polynomials:
//
//	m, err := interp.New(interp.Params{
//	    Min: 2e-7, Max: 1, Nodes: 50, Degree: 3,
//	    Map: interp.MapApplGridF2, Reweight: interp.ReweightApplGridX,
//	})
//	coord, err := m.Position(0.01)
//	for _, nw := range m.BasisWeights(coord) {
//	    // nw.Index, nw.Weight
//	}
//
// # Mappings
//
//   - MapLinear: y = v
//   - MapLog: y = ln v
//   - MapApplGridF2: y = 5(1-x) - ln x, dense at small x
//   - MapApplGridH0: y = ln ln(Q²/0.0625)
//
// # Reweighting
//
// ReweightApplGridX divides each fill by w(x) = (sqrt(x)/(1-0.99x))³ so the
// interpolated function stays smooth near x → 0 and x → 1. Readers multiply
// the factor back at the nodes.
//
// Meshes are immutable after construction and safe for concurrent use.
package interp
