package sim

import (
	"math"

	"github.com/MichaelTJones/pcg"
	"golang.org/x/exp/constraints"
)

// Rand is a small seedable PCG generator. Identical seeds produce identical streams.
type Rand struct {
	r *pcg.PCG32
}

// NewRand returns a generator seeded with seed.
func NewRand(seed int64) *Rand {
	r := &Rand{r: pcg.NewPCG32()}
	r.Seed(seed)
	return r
}

// Seed resets the stream to the one produced by NewRand(s).
func (r *Rand) Seed(s int64) {
	r.r.Seed(uint64(s), 0xda3e39cb94b95bdb)
}

// Intn returns a value in [0, n). n must be positive.
func (r *Rand) Intn(n int) int {
	return int(r.r.Bounded(uint32(n)))
}

// Float64 returns a value in [0, 1].
func (r *Rand) Float64() float64 {
	return float64(r.r.Random()) / (1<<32 - 1)
}

// Between returns a value in [lo, hi].
func (r *Rand) Between(lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

// IntBetween returns a value in [lo, hi].
func (r *Rand) IntBetween(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.Intn(hi-lo+1)
}

// Chance returns true with probability p.
func (r *Rand) Chance(p float64) bool {
	return r.Float64() < p
}

// Jitter returns v moved by at most ±amount.
func (r *Rand) Jitter(v, amount float64) float64 {
	return v + r.Between(-amount, amount)
}

func pick[T any](r *Rand, s []T) T {
	return s[r.Intn(len(s))]
}

func clamp[T constraints.Ordered](x, low, high T) T {
	if x < low {
		return low
	}
	if x > high {
		return high
	}
	return x
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
