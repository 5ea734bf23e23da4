/*
Package sim
File: config.go
Description:
    Level configuration for the production simulation. A level is a
    production line of one or more stages plus the economics (prices, costs,
    win thresholds) and the customer demand model.

    Values map directly to the YAML level catalog and are validated with
    go-playground/validator before a simulation is created.
*/

package sim

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Rounding selects how fractional demand is turned into whole units.
type Rounding string

const (
	RoundFloor   Rounding = "floor"
	RoundNearest Rounding = "round"
)

// Capacity is the per-turn ceiling of a stage. Overtime of 0 means the stage has no overtime mode.
type Capacity struct {
	Normal   int `yaml:"normal" json:"normal" validate:"gt=0"`
	Overtime int `yaml:"overtime" json:"overtime" validate:"omitempty,gtefield=Normal"`
}

// StageConfig describes one step of the production line (e.g. "fab", "atp").
type StageConfig struct {
	Name         string          `yaml:"name" json:"name" validate:"required"`
	YieldPercent int             `yaml:"yield_percent" json:"yield_percent" validate:"gt=0,lte=100"` // 0 in YAML: base yield for the first stage, 100 otherwise
	Capacity     *Capacity       `yaml:"capacity,omitempty" json:"capacity,omitempty"`               // nil = uncapped
	OvertimeCost decimal.Decimal `yaml:"overtime_cost" json:"overtime_cost" validate:"gte=0"`        // flat surcharge per turn with overtime on
	Carry        bool            `yaml:"carry" json:"carry"`                                         // leftover units wait for the next turn (WIP)
}

// DemandConfig drives the customer demand curve.
type DemandConfig struct {
	Initial      int      `yaml:"initial" json:"initial" validate:"gt=0"`
	GrowthRate   float64  `yaml:"growth_rate" json:"growth_rate" validate:"gt=0"`
	RandomFactor float64  `yaml:"random_factor" json:"random_factor" validate:"gte=0,lt=1"`
	Rounding     Rounding `yaml:"rounding" json:"rounding" validate:"oneof=floor round"`
	Pregenerate  bool     `yaml:"pregenerate" json:"pregenerate"` // draw the whole sequence up front (visible forecast)
}

// LevelConfig is the immutable description of one playable level.
type LevelConfig struct {
	ID                 int             `yaml:"id" json:"id" validate:"gt=0"`
	Name               string          `yaml:"name" json:"name"`
	TotalTurns         int             `yaml:"total_turns" json:"total_turns" validate:"gt=0"`
	BaseYield          int             `yaml:"base_yield" json:"base_yield" validate:"gt=0,lte=100"`
	PricePerUnit       decimal.Decimal `yaml:"price_per_unit" json:"price_per_unit" validate:"gt=0"`
	WaferCost          decimal.Decimal `yaml:"wafer_cost" json:"wafer_cost" validate:"gt=0"`
	FixedCost          decimal.Decimal `yaml:"fixed_cost" json:"fixed_cost" validate:"gt=0"`
	InventoryCost      decimal.Decimal `yaml:"inventory_cost" json:"inventory_cost" validate:"gt=0"`
	WinProfitThreshold decimal.Decimal `yaml:"win_profit_threshold" json:"win_profit_threshold"`
	MinOTD             int             `yaml:"min_otd" json:"min_otd" validate:"gte=0,lte=100"`
	StartingCash       decimal.Decimal `yaml:"starting_cash" json:"starting_cash"`
	InitialInventory   int             `yaml:"initial_inventory" json:"initial_inventory" validate:"gte=0"`
	OutputDelay        int             `yaml:"output_delay_turns" json:"output_delay_turns" validate:"gte=0"`
	Demand             DemandConfig    `yaml:"demand" json:"demand"`
	Stages             []StageConfig   `yaml:"stages" json:"stages" validate:"required,min=1,dive"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Money fields are compared as plain numbers.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

// WithDefaults returns a copy with optional fields filled in.
func (c LevelConfig) WithDefaults() LevelConfig {
	out := c
	if out.Demand.Rounding == "" {
		out.Demand.Rounding = RoundFloor
	}

	out.Stages = make([]StageConfig, len(c.Stages))
	for i, st := range c.Stages {
		if st.Capacity != nil {
			capCopy := *st.Capacity
			st.Capacity = &capCopy
		}
		if st.YieldPercent == 0 {
			if i == 0 {
				st.YieldPercent = c.BaseYield
			} else {
				st.YieldPercent = 100
			}
		}
		out.Stages[i] = st
	}
	return out
}

// Validate reports the first set of problems that make the level unplayable.
func (c LevelConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			messages := make([]string, 0, len(verrs))
			for _, e := range verrs {
				messages = append(messages, fmt.Sprintf(
					"field '%s' failed validation: %s (value: '%v')",
					e.Namespace(),
					e.Tag(),
					e.Value(),
				))
			}
			return NewConfigError(c.ID, strings.Join(messages, "; "))
		}
		return NewConfigError(c.ID, err.Error())
	}

	seen := make(map[string]bool, len(c.Stages))
	for _, st := range c.Stages {
		if seen[st.Name] {
			return NewConfigError(c.ID, fmt.Sprintf("duplicate stage %q", st.Name))
		}
		seen[st.Name] = true

		if st.Capacity != nil && st.Capacity.Overtime > 0 && !st.OvertimeCost.IsPositive() {
			return NewConfigError(c.ID, fmt.Sprintf("stage %q has overtime capacity but no overtime cost", st.Name))
		}
	}
	return nil
}

// Stage returns the named stage config.
func (c LevelConfig) Stage(name string) (StageConfig, bool) {
	for _, st := range c.Stages {
		if st.Name == name {
			return st, true
		}
	}
	return StageConfig{}, false
}

// Level1 is the single-stage forecasting level: uncapped fab, 90% yield.
func Level1() LevelConfig {
	return LevelConfig{
		ID:                 1,
		Name:               "Basic Forecasting & Production",
		TotalTurns:         5,
		BaseYield:          90,
		PricePerUnit:       decimal.NewFromInt(12),
		WaferCost:          decimal.NewFromInt(8),
		FixedCost:          decimal.NewFromInt(1000),
		InventoryCost:      decimal.NewFromInt(1),
		WinProfitThreshold: decimal.NewFromInt(5000),
		MinOTD:             80,
		Demand: DemandConfig{
			Initial:      800,
			GrowthRate:   1.1,
			RandomFactor: 0.05,
			Rounding:     RoundFloor,
			Pregenerate:  true,
		},
		Stages: []StageConfig{
			{Name: "fab"},
		},
	}
}

// Level2 adds capacity ceilings, overtime and an assembly stage that carries WIP.
func Level2() LevelConfig {
	return LevelConfig{
		ID:                 2,
		Name:               "Capacity & Lead Times",
		TotalTurns:         5,
		BaseYield:          90,
		PricePerUnit:       decimal.NewFromInt(15),
		WaferCost:          decimal.NewFromInt(10),
		FixedCost:          decimal.NewFromInt(1000),
		InventoryCost:      decimal.RequireFromString("1.5"),
		WinProfitThreshold: decimal.NewFromInt(7500),
		MinOTD:             80,
		StartingCash:       decimal.NewFromInt(5000),
		InitialInventory:   200,
		Demand: DemandConfig{
			Initial:      1000,
			GrowthRate:   1.15,
			RandomFactor: 0.05,
			Rounding:     RoundNearest,
		},
		Stages: []StageConfig{
			{
				Name:         "fab",
				Capacity:     &Capacity{Normal: 1500, Overtime: 2000},
				OvertimeCost: decimal.NewFromInt(2000),
			},
			{
				Name:         "atp",
				YieldPercent: 100,
				Capacity:     &Capacity{Normal: 1200, Overtime: 1600},
				OvertimeCost: decimal.NewFromInt(1500),
				Carry:        true,
			},
		},
	}
}
