/*
Package sim
File: accounting.go
Description:
    Money for one turn, kept in decimals.
*/

package sim

import "github.com/shopspring/decimal"

// Costs itemises one turn's spending.
type Costs struct {
	Wafer     decimal.Decimal `json:"wafer"`
	Fixed     decimal.Decimal `json:"fixed"`
	Inventory decimal.Decimal `json:"inventory"`
	Overtime  decimal.Decimal `json:"overtime"`
	Total     decimal.Decimal `json:"total"`
}

// CalculateCosts charges started units, the fixed cost, holding cost on
// remaining inventory and the overtime surcharge of every stage whose
// overtime flag is set, used or not.
func CalculateCosts(cfg LevelConfig, unitsStarted, remainingInventory int, overtime map[string]bool) Costs {
	c := Costs{
		Wafer:     cfg.WaferCost.Mul(decimal.NewFromInt(int64(unitsStarted))),
		Fixed:     cfg.FixedCost,
		Inventory: cfg.InventoryCost.Mul(decimal.NewFromInt(int64(remainingInventory))),
		Overtime:  decimal.Zero,
	}
	for _, st := range cfg.Stages {
		if overtime[st.Name] {
			c.Overtime = c.Overtime.Add(st.OvertimeCost)
		}
	}
	c.Total = c.Wafer.Add(c.Fixed).Add(c.Inventory).Add(c.Overtime)
	return c
}

// Revenue is sold units times price.
func Revenue(sold int, price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(sold)))
}

// CalculateProfit is revenue minus wafer, fixed and holding costs for a single turn without overtime.
func CalculateProfit(sold int, price decimal.Decimal, unitsStarted int, waferCost, fixedCost decimal.Decimal, inventory int, inventoryCost decimal.Decimal) decimal.Decimal {
	costs := waferCost.Mul(decimal.NewFromInt(int64(unitsStarted))).
		Add(fixedCost).
		Add(inventoryCost.Mul(decimal.NewFromInt(int64(inventory))))
	return Revenue(sold, price).Sub(costs)
}
