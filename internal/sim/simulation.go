/*
Package sim
File: simulation.go
Description:
    The turn sequencer. A Simulation owns all mutable state of one
    playthrough: it draws demand, runs the production line, settles
    inventory against demand, books costs and profit, appends the turn
    record and finally evaluates the win condition.

    A Simulation is not safe for concurrent use. Callers serialise access.
*/

package sim

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle of a playthrough.
type Status string

const (
	StatusPlaying Status = "playing"
	StatusWon     Status = "won"
	StatusLost    Status = "lost"
)

// MaxUnitsPerTurn caps a single decision so unit counts and cumulative
// totals stay well inside int range.
const MaxUnitsPerTurn = 1_000_000_000

// Decision is the player's input for one turn.
type Decision struct {
	Units    int             `json:"units"`              // wafers to start
	Overtime map[string]bool `json:"overtime,omitempty"` // stage name -> overtime on
}

// ParseUnits reads a unit count typed by a player.
func ParseUnits(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, NewInputError("units", "not a whole number: "+strconv.Quote(s))
	}
	if n < 0 {
		return 0, NewInputError("units", "must not be negative")
	}
	if n > MaxUnitsPerTurn {
		return 0, NewInputError("units", "must not exceed "+strconv.Itoa(MaxUnitsPerTurn))
	}
	return n, nil
}

// TurnRecord is the immutable outcome of one confirmed turn.
type TurnRecord struct {
	Turn             int             `json:"turn"`
	Demand           int             `json:"demand"`
	Decision         Decision        `json:"decision"`
	Stages           []StageResult   `json:"stages"`
	Released         int             `json:"released"` // finished units credited to inventory this turn
	Available        int             `json:"available"`
	Sold             int             `json:"sold"`
	Inventory        int             `json:"inventory"` // remaining after sales
	WorkInProcess    int             `json:"work_in_process"`
	Revenue          decimal.Decimal `json:"revenue"`
	Costs            Costs           `json:"costs"`
	Profit           decimal.Decimal `json:"profit"`
	CumulativeProfit decimal.Decimal `json:"cumulative_profit"`
	Cash             decimal.Decimal `json:"cash"`
	OTD              int             `json:"otd"` // running on-time delivery percent
}

func (r TurnRecord) clone() TurnRecord {
	out := r
	out.Decision.Overtime = copyFlags(r.Decision.Overtime)
	out.Stages = append([]StageResult(nil), r.Stages...)
	return out
}

// State is a snapshot of the engine-owned state.
type State struct {
	Level            int             `json:"level"`
	CurrentTurn      int             `json:"current_turn"`
	TotalTurns       int             `json:"total_turns"`
	CumulativeProfit decimal.Decimal `json:"cumulative_profit"`
	Cash             decimal.Decimal `json:"cash"`
	Inventory        int             `json:"inventory"`
	WorkInProcess    int             `json:"work_in_process"`
	CumulativeSold   int             `json:"cumulative_sold"`
	CumulativeDemand int             `json:"cumulative_demand"`
	OTD              int             `json:"otd"`
	Status           Status          `json:"status"`
}

// Outcome is the terminal evaluation handed to progress tracking.
type Outcome struct {
	Level                int             `json:"level"`
	Status               Status          `json:"status"`
	CumulativeProfit     decimal.Decimal `json:"cumulative_profit"`
	Cash                 decimal.Decimal `json:"cash"`
	FinalOTD             int             `json:"final_otd"`
	ProfitMet            bool            `json:"profit_met"`
	OTDMet               bool            `json:"otd_met"`
	FinalUtilization     map[string]int  `json:"final_utilization"` // capped stages only
	AverageInventoryCost decimal.Decimal `json:"average_inventory_cost"`
}

// Simulation is one playthrough of a level.
type Simulation struct {
	cfg    LevelConfig
	rng    RandomSource
	demand *DemandGenerator

	turn     int
	status   Status
	forecast []int
	line     *productionLine
	ledger   ledger
	profit   decimal.Decimal
	cash     decimal.Decimal
	history  []TurnRecord
	outcome  *Outcome
}

// New validates the level and starts a fresh playthrough.
func New(cfg LevelConfig, rng RandomSource) (*Simulation, error) {
	if rng == nil {
		return nil, NewConfigError(cfg.ID, "random source is required")
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Simulation{
		cfg:    cfg,
		rng:    rng,
		demand: NewDemandGenerator(cfg.Demand, rng),
	}
	s.Reset()
	return s, nil
}

// Reset discards the playthrough and draws a fresh demand sequence.
func (s *Simulation) Reset() {
	s.turn = 1
	s.status = StatusPlaying
	s.line = newProductionLine(s.cfg.Stages, s.cfg.OutputDelay)
	s.ledger = ledger{inventory: s.cfg.InitialInventory}
	s.profit = decimal.Zero
	s.cash = s.cfg.StartingCash
	s.history = nil
	s.outcome = nil

	if s.cfg.Demand.Pregenerate {
		s.forecast = s.demand.Sequence(s.cfg.TotalTurns)
	} else {
		s.forecast = []int{s.demand.Next(1)}
	}
}

// ConfirmTurn applies a decision to the current turn. On error nothing changes.
func (s *Simulation) ConfirmTurn(d Decision) (TurnRecord, error) {
	if s.status != StatusPlaying {
		return TurnRecord{}, ErrGameOver
	}
	if err := s.checkDecision(d); err != nil {
		return TurnRecord{}, err
	}

	overtime := copyFlags(d.Overtime)
	demand := s.forecast[s.turn-1]

	stages, released := s.line.run(d.Units, overtime)
	settled := s.ledger.apply(released, demand)

	costs := CalculateCosts(s.cfg, d.Units, settled.Remaining, overtime)
	revenue := Revenue(settled.Sold, s.cfg.PricePerUnit)
	turnProfit := revenue.Sub(costs.Total)
	s.profit = s.profit.Add(turnProfit)
	s.cash = s.cash.Add(turnProfit)

	rec := TurnRecord{
		Turn:             s.turn,
		Demand:           demand,
		Decision:         Decision{Units: d.Units, Overtime: overtime},
		Stages:           stages,
		Released:         released,
		Available:        settled.Available,
		Sold:             settled.Sold,
		Inventory:        settled.Remaining,
		WorkInProcess:    s.line.workInProcess(),
		Revenue:          revenue,
		Costs:            costs,
		Profit:           turnProfit,
		CumulativeProfit: s.profit,
		Cash:             s.cash,
		OTD:              s.ledger.otd(),
	}
	s.history = append(s.history, rec)

	s.advance()
	return rec.clone(), nil
}

func (s *Simulation) checkDecision(d Decision) error {
	if d.Units < 0 {
		return NewInputError("units", "must not be negative")
	}
	if d.Units > MaxUnitsPerTurn {
		return NewInputError("units", "must not exceed "+strconv.Itoa(MaxUnitsPerTurn))
	}
	for name, on := range d.Overtime {
		st, ok := s.cfg.Stage(name)
		if !ok {
			return NewInputError("overtime", "unknown stage "+strconv.Quote(name))
		}
		if on && (st.Capacity == nil || st.Capacity.Overtime == 0) {
			return NewInputError("overtime", "stage "+strconv.Quote(name)+" has no overtime mode")
		}
	}
	return nil
}

func (s *Simulation) advance() {
	s.turn++
	if s.turn <= s.cfg.TotalTurns {
		if len(s.forecast) < s.turn {
			s.forecast = append(s.forecast, s.demand.Next(s.turn))
		}
		return
	}
	s.finish()
}

func (s *Simulation) finish() {
	otd := s.ledger.otd()
	o := &Outcome{
		Level:            s.cfg.ID,
		CumulativeProfit: s.profit,
		Cash:             s.cash,
		FinalOTD:         otd,
		ProfitMet:        s.profit.GreaterThanOrEqual(s.cfg.WinProfitThreshold),
		OTDMet:           otd >= s.cfg.MinOTD,
		FinalUtilization: make(map[string]int),
	}

	if n := len(s.history); n > 0 {
		last := s.history[n-1]
		for _, st := range last.Stages {
			if st.Capacity > 0 {
				o.FinalUtilization[st.Name] = st.Utilization
			}
		}
		total := decimal.Zero
		for _, rec := range s.history {
			total = total.Add(rec.Costs.Inventory)
		}
		o.AverageInventoryCost = total.Div(decimal.NewFromInt(int64(n)))
	}

	if o.ProfitMet && o.OTDMet {
		o.Status = StatusWon
	} else {
		o.Status = StatusLost
	}
	s.status = o.Status
	s.outcome = o
}

// Status reports whether the playthrough is still running.
func (s *Simulation) Status() Status {
	return s.status
}

// Outcome is available once the last turn has been confirmed.
func (s *Simulation) Outcome() (Outcome, bool) {
	if s.outcome == nil {
		return Outcome{}, false
	}
	o := *s.outcome
	o.FinalUtilization = make(map[string]int, len(s.outcome.FinalUtilization))
	for k, v := range s.outcome.FinalUtilization {
		o.FinalUtilization[k] = v
	}
	return o, true
}

// CurrentDemand is the demand the next confirmed turn will be settled against, 0 once finished.
func (s *Simulation) CurrentDemand() int {
	if s.status != StatusPlaying {
		return 0
	}
	return s.forecast[s.turn-1]
}

// Forecast returns the demand drawn so far (all turns for pregenerated levels).
func (s *Simulation) Forecast() []int {
	return append([]int(nil), s.forecast...)
}

// History returns copies of all turn records, oldest first.
func (s *Simulation) History() []TurnRecord {
	out := make([]TurnRecord, len(s.history))
	for i, rec := range s.history {
		out[i] = rec.clone()
	}
	return out
}

// Snapshot copies the current state.
func (s *Simulation) Snapshot() State {
	return State{
		Level:            s.cfg.ID,
		CurrentTurn:      s.turn,
		TotalTurns:       s.cfg.TotalTurns,
		CumulativeProfit: s.profit,
		Cash:             s.cash,
		Inventory:        s.ledger.inventory,
		WorkInProcess:    s.line.workInProcess(),
		CumulativeSold:   s.ledger.cumulativeSold,
		CumulativeDemand: s.ledger.cumulativeDemand,
		OTD:              s.ledger.otd(),
		Status:           s.status,
	}
}

// Config returns the normalised level configuration.
func (s *Simulation) Config() LevelConfig {
	return s.cfg.WithDefaults()
}

func copyFlags(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		if v {
			out[k] = true
		}
	}
	return out
}
