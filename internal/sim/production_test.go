package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateYield(t *testing.T) {
	assert.Equal(t, 100, CalculateYield(112, 90))
	assert.Equal(t, 900, CalculateYield(1000, 90))
	assert.Equal(t, 0, CalculateYield(1, 90))
	assert.Equal(t, 0, CalculateYield(0, 90))
	assert.Equal(t, 99, CalculateYield(199, 50))
	assert.Equal(t, math.MaxInt64/100*90+7*90/100, CalculateYield(math.MaxInt64, 90))
}

func TestProductionLine_UncappedSingleStage(t *testing.T) {
	line := newProductionLine([]StageConfig{{Name: "fab", YieldPercent: 90}}, 0)

	results, released := line.run(5000, nil)

	require.Len(t, results, 1)
	assert.Equal(t, 0, results[0].Capacity)
	assert.Equal(t, 0, results[0].Utilization)
	assert.Equal(t, 5000, results[0].Processed)
	assert.Equal(t, 4500, released)
	assert.Equal(t, 0, line.workInProcess())
}

func TestProductionLine_CapacityWithoutCarryDropsExcess(t *testing.T) {
	line := newProductionLine([]StageConfig{
		{Name: "fab", YieldPercent: 90, Capacity: &Capacity{Normal: 1500, Overtime: 2000}},
	}, 0)

	results, released := line.run(1800, nil)
	assert.Equal(t, 1500, results[0].Processed)
	assert.Equal(t, 300, results[0].Leftover)
	assert.Equal(t, 0, results[0].CarriedOut)
	assert.Equal(t, 1350, released)

	results, _ = line.run(0, nil)
	assert.Equal(t, 0, results[0].CarriedIn)
}

func TestProductionLine_OvertimeFlagOnStageWithoutOvertimeUsesNormal(t *testing.T) {
	capacity, capped := capacityFor(StageConfig{Capacity: &Capacity{Normal: 10}}, true)
	assert.True(t, capped)
	assert.Equal(t, 10, capacity)
}

func TestProductionLine_UtilizationRounds(t *testing.T) {
	line := newProductionLine([]StageConfig{
		{Name: "atp", YieldPercent: 100, Capacity: &Capacity{Normal: 1200}, Carry: true},
	}, 0)

	results, _ := line.run(1000, nil)
	// 1000/1200 = 83.33%
	assert.Equal(t, 83, results[0].Utilization)
}

func TestProductionLine_DelayPipeline(t *testing.T) {
	line := newProductionLine([]StageConfig{{Name: "fab", YieldPercent: 100}}, 2)

	_, r1 := line.run(10, nil)
	_, r2 := line.run(20, nil)
	assert.Equal(t, 30, line.workInProcess())
	_, r3 := line.run(30, nil)
	_, r4 := line.run(0, nil)

	assert.Equal(t, []int{0, 0, 10, 20}, []int{r1, r2, r3, r4})
	assert.Equal(t, 30, line.workInProcess())
}
