// Package bins describes the observable bins of a grid.
//
// Limits covers the common one-dimensional case; evenly spaced edges are
// detected and stored compactly. A Remapper attaches multi-dimensional cells
// and explicit normalizations to the same dense bin indices.
package bins
