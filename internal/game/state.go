/*
Package game
File: state.go
Description:
    Manages the runtime state of the game service.
    It holds the level catalog and the registry of live sessions, each of
    which owns one sim.Simulation.

    It also handles catalog loading (LoadCatalog) from 'levels.yaml'.
*/

package game

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/everforgeworks/fabline/internal/clock"
	"github.com/everforgeworks/fabline/internal/metrics"
	"github.com/everforgeworks/fabline/internal/progress"
	"github.com/everforgeworks/fabline/internal/sim"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrLevelNotFound    = errors.New("level not found")
	ErrLevelLocked      = errors.New("level is locked")
	ErrLevelNotPlayable = errors.New("level is not playable yet")
)

// ProgressStore is the slice of the progress tracker the service needs.
type ProgressStore interface {
	IsUnlocked(ctx context.Context, level int) (bool, error)
	Levels(ctx context.Context) ([]progress.Level, error)
	RecordOutcome(ctx context.Context, o sim.Outcome) ([]string, error)
}

// LoadCatalog reads a level catalog from a YAML file and validates every
// playable level.
func LoadCatalog(path string) (*Catalog, error) {
	// 1. Read the YAML file
	f, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// 2. Unmarshal into the Catalog struct
	var c Catalog
	if err := yaml.Unmarshal(f, &c); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	// 3. Normalise and validate
	if err := c.prepare(); err != nil {
		return nil, err
	}
	return &c, nil
}

// DefaultCatalog is the built-in campaign used when no catalog file exists.
func DefaultCatalog() *Catalog {
	l1, l2 := sim.Level1(), sim.Level2()
	c := &Catalog{Levels: []LevelEntry{
		{ID: 1, Title: l1.Name, Description: "Learn forecasting, fab capacity, and basic yields with a single customer.", Icon: "analytics-outline", Simulation: &l1},
		{ID: 2, Title: l2.Name, Description: "Manage capacity expansions, cycle time, and inventory management.", Icon: "time-outline", Simulation: &l2},
		{ID: 3, Title: "Multiple Customers", Description: "Handle different types of customers with varying demand patterns.", Icon: "people-outline"},
		{ID: 4, Title: "Supply Variability", Description: "Deal with duplicate suppliers, random deliveries, and fab yield variability.", Icon: "git-network-outline"},
		{ID: 5, Title: "End-to-End Strategy", Description: "Build a coherent end-to-end strategy with all previous elements.", Icon: "globe-outline"},
	}}
	if err := c.prepare(); err != nil {
		panic(err)
	}
	return c
}

// prepare fills simulation ids/names from the catalog row and validates.
func (c *Catalog) prepare() error {
	if len(c.Levels) == 0 {
		return errors.New("catalog has no levels")
	}

	seen := make(map[int]bool, len(c.Levels))
	for i := range c.Levels {
		e := &c.Levels[i]
		if e.ID < 1 || e.ID > progress.MaxLevel {
			return fmt.Errorf("%w: catalog id %d", progress.ErrInvalidLevel, e.ID)
		}
		if seen[e.ID] {
			return fmt.Errorf("duplicate catalog id %d", e.ID)
		}
		seen[e.ID] = true

		if e.Simulation == nil {
			continue
		}
		if e.Simulation.ID == 0 {
			e.Simulation.ID = e.ID
		}
		if e.Simulation.Name == "" {
			e.Simulation.Name = e.Title
		}
		cfg := e.Simulation.WithDefaults()
		if err := cfg.Validate(); err != nil {
			return err
		}
		e.Simulation = &cfg
	}
	return nil
}

// Level looks up a catalog entry by id.
func (c *Catalog) Level(id int) (LevelEntry, bool) {
	for _, e := range c.Levels {
		if e.ID == id {
			return e, true
		}
	}
	return LevelEntry{}, false
}

// session is one live playthrough.
type session struct {
	id           string
	entry        LevelEntry
	sim          *sim.Simulation
	lastSeen     time.Time
	achievements []string
}

// Manager owns the catalog and all live sessions.
// Every exported method is safe for concurrent use.
type Manager struct {
	// mu protects every field below. Simulations are not thread safe, so
	// any call into a session's sim MUST hold the write lock.
	mu       sync.RWMutex
	catalog  *Catalog
	sessions map[string]*session

	store     ProgressStore
	clk       clock.Clock
	ttl       time.Duration
	recorder  metrics.Recorder
	newSource func(level int) sim.RandomSource
	notify    func(Event)
}

// NewManager creates a Manager. A ttl of 0 disables idle expiry.
func NewManager(catalog *Catalog, store ProgressStore, clk clock.Clock, ttl time.Duration) *Manager {
	return &Manager{
		catalog:  catalog,
		sessions: make(map[string]*session),
		store:    store,
		clk:      clk,
		ttl:      ttl,
		newSource: func(int) sim.RandomSource {
			return sim.NewSeededSource(0)
		},
	}
}

// SetRecorder wires a metrics recorder.
func (m *Manager) SetRecorder(r metrics.Recorder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recorder = r
}

// SetRandomSource overrides how demand randomness is created per session.
func (m *Manager) SetRandomSource(f func(level int) sim.RandomSource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.newSource = f
}

// SetNotifier registers a listener for session events. It is called without the lock held.
func (m *Manager) SetNotifier(f func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notify = f
}

// ReloadCatalog swaps in a new catalog. Running sessions keep the level they were started with.
func (m *Manager) ReloadCatalog(c *Catalog) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catalog = c
}

// Catalog returns the current catalog.
func (m *Manager) Catalog() *Catalog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.catalog
}

// ActiveSessions counts live sessions.
func (m *Manager) ActiveSessions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
