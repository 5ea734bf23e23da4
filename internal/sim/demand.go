/*
Package sim
File: demand.go
Description:
    Customer demand. Each turn's demand grows from the initial value by
    the growth rate and is scaled by bounded noise before rounding.
*/

package sim

import "math"

// DemandGenerator produces customer demand from exponential growth with bounded multiplicative noise.
type DemandGenerator struct {
	cfg DemandConfig
	rng RandomSource
}

func NewDemandGenerator(cfg DemandConfig, rng RandomSource) *DemandGenerator {
	return &DemandGenerator{cfg: cfg, rng: rng}
}

// Next draws the demand for a 1-indexed turn. One random draw per call.
func (g *DemandGenerator) Next(turn int) int {
	base := float64(g.cfg.Initial) * math.Pow(g.cfg.GrowthRate, float64(turn-1))

	// noise is uniform in [1-f, 1+f]
	noise := 1 - g.cfg.RandomFactor + g.rng.Float64()*2*g.cfg.RandomFactor
	demand := base * noise

	switch g.cfg.Rounding {
	case RoundNearest:
		demand = math.Round(demand)
	default:
		demand = math.Floor(demand)
	}

	if demand < 0 {
		return 0
	}
	return int(demand)
}

// Sequence draws demand for turns 1..n.
func (g *DemandGenerator) Sequence(n int) []int {
	out := make([]int, 0, n)
	for turn := 1; turn <= n; turn++ {
		out = append(out, g.Next(turn))
	}
	return out
}
