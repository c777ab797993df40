// Package registry enumerates the perturbative orders and partonic channels
// of a grid.
//
// Orders and channels are kept in append-only arenas: the index returned by
// AddOrder or AddChannel addresses the same entry for the lifetime of the
// grid and across serialization. Masks built with NewMask restrict which of
// them a convolution includes.
//
// Both types have a compact text form:
//
//	o, _ := registry.ParseOrder("as1a2lr1")          // alphas^1 alpha^2 ln(xiR^2)
//	c, _ := registry.ParseChannel("1 * (2, -2) + 1 * (4, -4)")
package registry
