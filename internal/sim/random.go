/*
Package sim
File: random.go
Description:
    The randomness seam. Demand noise is drawn from a RandomSource so
    tests and replays can pin it to fixed or seeded values.
*/

package sim

import (
	"math/rand"
	"time"
)

// RandomSource supplies uniform draws in [0, 1). *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

// NewSeededSource returns a reproducible source. A zero seed uses the current time.
func NewSeededSource(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// FixedSource always returns the same draw. 0.5 yields a noise factor of exactly 1.
type FixedSource float64

func (f FixedSource) Float64() float64 {
	return float64(f)
}
