package policy

import (
	"math/rand"
	"sync"

	"github.com/hupe1980/negotiate/core"
)

// ConcessionCurve yields the fraction of the remaining gap the counterparty
// side gives up in a round. Returned values must lie within the strategy's
// [MinConcession, MaxConcession] range.
type ConcessionCurve interface {
	Fraction(round int, s core.Strategy) float64
}

// ConcessionCurveFunc adapts a function to ConcessionCurve.
type ConcessionCurveFunc func(round int, s core.Strategy) float64

// Fraction calls f(round, s).
func (f ConcessionCurveFunc) Fraction(round int, s core.Strategy) float64 { return f(round, s) }

// LinearCurve concedes MinConcession in round one and grows linearly to
// MaxConcession at the last round.
type LinearCurve struct{}

// Fraction implements ConcessionCurve.
func (LinearCurve) Fraction(round int, s core.Strategy) float64 {
	if s.MaxRounds <= 1 {
		return s.MaxConcession
	}
	progress := float64(round-1) / float64(s.MaxRounds-1)
	return s.MinConcession + (s.MaxConcession-s.MinConcession)*clamp(progress, 0, 1)
}

// RandomCurve draws uniformly from the configured range using a seeded source.
// Only use it where reproducibility comes from the seed, e.g. fuzzing.
type RandomCurve struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomCurve creates a RandomCurve seeded with seed.
func NewRandomCurve(seed int64) *RandomCurve {
	return &RandomCurve{rng: rand.New(rand.NewSource(seed))}
}

// Fraction implements ConcessionCurve.
func (c *RandomCurve) Fraction(_ int, s core.Strategy) float64 {
	c.mu.Lock()
	r := c.rng.Float64()
	c.mu.Unlock()
	return s.MinConcession + (s.MaxConcession-s.MinConcession)*r
}
