// Package testutil provides helpers for grid tests and benchmarks.
//
// A seeded RNG produces reproducible phase-space samples:
//
//	rng := testutil.NewRNG(4711)
//	x := rng.LogUniform(1e-5, 1)
//	q2 := rng.LogUniform(1e2, 1e4)
//
// Analytic stand-ins for parton distributions and the strong coupling let
// tests compare convolutions against closed-form integrals:
//
//	pdf := pinegrid.PDFFunc(testutil.ToyXFX)
//	alphas := pinegrid.AlphasFunc(testutil.ConstantAlphas(0.118))
package testutil
