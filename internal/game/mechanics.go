/*
Package game
File: mechanics.go
Description:
    Contains the rule helpers around a session: building snapshots,
    reading overtime toggles, and running headless playthroughs for the
    command line.
*/

package game

import (
	"github.com/everforgeworks/fabline/internal/sim"
)

// view builds the JSON snapshot. Caller must hold the Manager lock.
func (s *session) view() SessionView {
	cfg := s.sim.Config()
	v := SessionView{
		ID:            s.id,
		Level:         s.entry.ID,
		Title:         s.entry.Title,
		State:         s.sim.Snapshot(),
		CurrentDemand: s.sim.CurrentDemand(),
		Forecast:      s.sim.Forecast(),
		Stages:        cfg.Stages,
		History:       s.sim.History(),
		Achievements:  append([]string(nil), s.achievements...),
	}
	if o, ok := s.sim.Outcome(); ok {
		v.Outcome = &o
	}
	return v
}

// OvertimeStages lists the stages of a level that offer an overtime mode.
func OvertimeStages(cfg sim.LevelConfig) []string {
	var names []string
	for _, st := range cfg.Stages {
		if st.Capacity != nil && st.Capacity.Overtime > 0 {
			names = append(names, st.Name)
		}
	}
	return names
}

// Playthrough is the result of a headless run.
type Playthrough struct {
	History []sim.TurnRecord
	Outcome sim.Outcome
}

// Autoplay runs a whole level applying the same decision every turn.
func Autoplay(cfg sim.LevelConfig, rng sim.RandomSource, d sim.Decision) (Playthrough, error) {
	s, err := sim.New(cfg, rng)
	if err != nil {
		return Playthrough{}, err
	}

	for s.Status() == sim.StatusPlaying {
		if _, err := s.ConfirmTurn(d); err != nil {
			return Playthrough{}, err
		}
	}

	o, _ := s.Outcome()
	return Playthrough{History: s.History(), Outcome: o}, nil
}
