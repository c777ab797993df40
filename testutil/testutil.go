package testutil

import (
	"math"
	"math/rand"
	"sync"
)

// RNG wraps a seeded math/rand source. It is safe for concurrent use, so
// tests stay reproducible when fills run from several goroutines.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset rewinds the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0,1).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Uniform returns a number drawn uniformly from [lo, hi).
func (r *RNG) Uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*r.Float64()
}

// LogUniform returns a number whose logarithm is uniform in
// [ln lo, ln hi). Both bounds must be positive.
func (r *RNG) LogUniform(lo, hi float64) float64 {
	return math.Exp(r.Uniform(math.Log(lo), math.Log(hi)))
}

// FillUniform fills dst with numbers drawn uniformly from [lo, hi). It
// locks once per call.
func (r *RNG) FillUniform(dst []float64, lo, hi float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = lo + (hi-lo)*r.rand.Float64()
	}
}

// XFX is the signature of an x·f(x, Q²) callback.
type XFX func(pid int32, x, q2 float64) (float64, error)

// Alphas is the signature of an αs(Q²) callback.
type Alphas func(q2 float64) (float64, error)

// ConstantXFX returns x·f = value for every parton.
func ConstantXFX(value float64) XFX {
	return func(int32, float64, float64) (float64, error) { return value, nil }
}

// LinearXFX returns x·f = x for the parton pid and zero otherwise, so that
// f itself is one.
func LinearXFX(pid int32) XFX {
	return func(p int32, x, _ float64) (float64, error) {
		if p != pid {
			return 0, nil
		}
		return x, nil
	}
}

// ToyXFX is a smooth analytic distribution with mild scale dependence:
// x·f = N·x^0.5·(1−x)³·(1 + 0.1·ln(Q²/100)). N depends on |pid| so that
// channels are distinguishable.
func ToyXFX(pid int32, x, q2 float64) (float64, error) {
	if x <= 0 || x > 1 {
		return 0, nil
	}
	a := float64(pid)
	if a < 0 {
		a = -a
	}
	n := 1 + 0.05*math.Mod(a, 10)
	return n * math.Sqrt(x) * math.Pow(1-x, 3) * (1 + 0.1*math.Log(q2/100)), nil
}

// ConstantAlphas returns the same coupling at every scale.
func ConstantAlphas(value float64) Alphas {
	return func(float64) (float64, error) { return value, nil }
}

// RunningAlphas is the one-loop coupling with αs(MZ²) = 0.118 and five
// active flavours.
func RunningAlphas(q2 float64) (float64, error) {
	const (
		mz2   = 91.1876 * 91.1876
		asMZ  = 0.118
		beta0 = (33 - 2*5) / (12 * math.Pi)
	)
	return asMZ / (1 + asMZ*beta0*math.Log(q2/mz2)), nil
}
