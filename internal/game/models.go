/*
Package game
File: models.go
Description:
    Defines the data structures shared by the game service and the API.
    The catalog types map directly to 'levels.yaml'; the view types are the
    JSON shapes handed to the frontend.

    No logic is performed here beyond trivial accessors.
*/

package game

import (
	"github.com/everforgeworks/fabline/internal/sim"
)

// LevelEntry is one row of the campaign catalog.
// Levels without a simulation block are listed but cannot be started yet.
type LevelEntry struct {
	ID          int              `yaml:"id" json:"id"`
	Title       string           `yaml:"title" json:"title"`
	Description string           `yaml:"description" json:"description"`
	Icon        string           `yaml:"icon" json:"icon,omitempty"`
	Simulation  *sim.LevelConfig `yaml:"simulation,omitempty" json:"-"`
}

// Playable reports whether the level has a simulation attached.
func (e LevelEntry) Playable() bool {
	return e.Simulation != nil
}

// Catalog is the root configuration struct, mapping to the entire 'levels.yaml' file.
type Catalog struct {
	Levels []LevelEntry `yaml:"levels"`
}

// LevelView is a catalog row merged with the player's progress.
type LevelView struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon,omitempty"`
	Playable    bool   `json:"playable"`
	Unlocked    bool   `json:"unlocked"`
	Completed   bool   `json:"completed"`
}

// SessionView is the full snapshot of one playthrough.
type SessionView struct {
	ID            string            `json:"id"`
	Level         int               `json:"level"`
	Title         string            `json:"title"`
	State         sim.State         `json:"state"`
	CurrentDemand int               `json:"current_demand"`         // 0 once the game is over
	Forecast      []int             `json:"forecast"`               // whole horizon for pregenerated levels
	Stages        []sim.StageConfig `json:"stages"`                 // lets the UI render overtime toggles
	History       []sim.TurnRecord  `json:"history"`
	Outcome       *sim.Outcome      `json:"outcome,omitempty"`
	Achievements  []string          `json:"achievements,omitempty"` // unlocked by the final turn
}

// TurnResult is the response to a confirmed turn.
type TurnResult struct {
	SessionID     string         `json:"session_id"`
	Record        sim.TurnRecord `json:"record"`
	State         sim.State      `json:"state"`
	CurrentDemand int            `json:"current_demand"`
	Outcome       *sim.Outcome   `json:"outcome,omitempty"`
	Achievements  []string       `json:"achievements,omitempty"`
}

// Event is published to listeners (the websocket hub) after state changes.
type Event struct {
	Type      string      `json:"type"` // "turn_confirmed", "game_over", "session_expired"
	SessionID string      `json:"session_id"`
	Payload   interface{} `json:"payload,omitempty"`
}

const (
	EventTurnConfirmed  = "turn_confirmed"
	EventGameOver       = "game_over"
	EventSessionExpired = "session_expired"
)
