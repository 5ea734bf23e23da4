/*
Package sim
File: production.go
Description:
    The production line. Started units flow through every stage in
    order. Capped stages clip at normal or overtime capacity and may
    keep their leftovers as WIP.

    Finished output can be held for a number of turns before it reaches
    inventory.
*/

package sim

import "math"

// StageResult is what one stage did during a turn.
type StageResult struct {
	Name        string `json:"name"`
	Input       int    `json:"input"`       // units arriving from upstream (or started) this turn
	CarriedIn   int    `json:"carried_in"`  // WIP waiting from the previous turn
	Capacity    int    `json:"capacity"`    // 0 when uncapped
	Overtime    bool   `json:"overtime"`
	Processed   int    `json:"processed"`
	Output      int    `json:"output"`      // after yield
	Leftover    int    `json:"leftover"`    // units beyond capacity
	CarriedOut  int    `json:"carried_out"` // leftover kept as WIP
	Utilization int    `json:"utilization"` // percent of capacity used, 0 when uncapped
}

// CalculateYield converts started units into usable units, rounding down.
// Splitting units into hundreds keeps the product from overflowing.
func CalculateYield(units, yieldPercent int) int {
	return units/100*yieldPercent + units%100*yieldPercent/100
}

// capacityFor returns the ceiling for a stage this turn; ok is false for uncapped stages.
func capacityFor(st StageConfig, overtime bool) (int, bool) {
	if st.Capacity == nil {
		return 0, false
	}
	if overtime && st.Capacity.Overtime > 0 {
		return st.Capacity.Overtime, true
	}
	return st.Capacity.Normal, true
}

// productionLine runs units through the configured stages and holds finished
// output for OutputDelay turns before releasing it to inventory.
type productionLine struct {
	stages   []StageConfig
	carried  []int
	delay    int
	pipeline []int
}

func newProductionLine(stages []StageConfig, delay int) *productionLine {
	return &productionLine{
		stages:   stages,
		carried:  make([]int, len(stages)),
		delay:    delay,
		pipeline: make([]int, 0, delay+1),
	}
}

// run processes one turn of production and returns the per-stage results and
// the units released to finished inventory.
func (l *productionLine) run(units int, overtime map[string]bool) ([]StageResult, int) {
	results := make([]StageResult, 0, len(l.stages))
	input := units

	for i, st := range l.stages {
		ot := overtime[st.Name]
		res := StageResult{
			Name:      st.Name,
			Input:     input,
			CarriedIn: l.carried[i],
			Overtime:  ot,
		}

		available := l.carried[i] + input
		processed := available
		if capacity, capped := capacityFor(st, ot); capped {
			res.Capacity = capacity
			if processed > capacity {
				processed = capacity
			}
			res.Utilization = int(math.Round(float64(processed) / float64(capacity) * 100))
		}

		res.Processed = processed
		res.Leftover = available - processed
		if st.Carry {
			res.CarriedOut = res.Leftover
		}
		l.carried[i] = res.CarriedOut

		res.Output = CalculateYield(processed, st.YieldPercent)
		input = res.Output
		results = append(results, res)
	}

	l.pipeline = append(l.pipeline, input)
	released := 0
	if len(l.pipeline) > l.delay {
		released = l.pipeline[0]
		l.pipeline = l.pipeline[1:]
	}
	return results, released
}

// workInProcess counts units carried between stages plus units waiting for release.
func (l *productionLine) workInProcess() int {
	total := 0
	for _, c := range l.carried {
		total += c
	}
	for _, p := range l.pipeline {
		total += p
	}
	return total
}
