// Package subgrid stores the interpolation weights of one (order, bin,
// channel) slot of a grid.
//
// The storage strategies form a closed set:
//
//   - Empty: a slot that was never filled.
//   - Lagrange: the fill-time variant, bound to interpolation meshes, with a
//     dense slice per touched scale node.
//   - Packed: the compact variant produced by Optimize and used by importers.
//     A roaring bitmap indexes the non-zero entries on explicit node values;
//     the lower x triangle can be folded away for symmetric initial states.
//
// All variants expose physically normalized weights through Each and
// DenseSlice, so readers never need to know which one they hold.
package subgrid
