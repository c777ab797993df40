// Package pinegrid stores and evaluates interpolated cross-section grids.
//
// A Grid holds one sparse interpolation grid (a subgrid) per perturbative
// order, observable bin and partonic channel. Each subgrid spans the
// factorization scale and one or two momentum fractions. Filling a grid
// with Monte-Carlo events once lets any set of parton distribution
// functions be convolved with it afterwards, reproducing the full
// calculation without rerunning it.
//
// # Quick Start
//
// Create and fill:
//
//	orders := []registry.Order{registry.NewOrder(0, 2, 0, 0)}
//	channels := []registry.Channel{registry.MustChannel(registry.Entry{PIDs: []int32{2, -2}, Factor: 1})}
//	limits, _ := bins.NewEqualLimits(0, 2.4, 24)
//
//	g, _ := pinegrid.New(orders, channels, limits, pinegrid.DefaultParams())
//	for _, ev := range events {
//	    _ = g.Fill(0, ev.Y, 0, subgrid.Kinematics{Q2: ev.Q2, X1: ev.X1, X2: ev.X2}, ev.Weight)
//	}
//	g.Optimize()
//	_ = g.WriteFile("dy.pgrd.lz4")
//
// Convolve:
//
//	g, _ := pinegrid.ReadFile("dy.pgrd.lz4")
//	xsec, _ := g.Convolve(ctx, pinegrid.Luminosity{
//	    PDFs:   []pinegrid.PDF{pdf},
//	    Alphas: alphas,
//	})
//
// Grid cards declare empty grids in YAML:
//
//	def, _ := pinegrid.LoadDefinition("dy.yaml")
//	g, _ := def.Build(pinegrid.WithLogger(pinegrid.NewTextLogger(slog.LevelInfo)))
//
// # Combining Grids
//
// Merge adds grids with the same bins or appends bins of grids with the
// same orders and channels. Scale and ScaleByOrder multiply weights.
// Optimize drops empty subgrids, folds channels that differ only by
// exchanging identical hadrons and repacks subgrids into a sparse
// representation.
//
// # Storage
//
// Grids serialize to a versioned, checksummed container, optionally inside
// an LZ4 or zstd frame. Save and Load move grids through any
// blobstore.BlobStore (local files, memory, MinIO, S3).
//
// # Concurrency
//
// A Grid is not safe for concurrent mutation. Convolve only reads the grid
// and evaluates bins in parallel when the luminosity is marked Concurrent.
package pinegrid
