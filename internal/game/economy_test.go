package game_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/everforgeworks/fabline/internal/clock"
	"github.com/everforgeworks/fabline/internal/database"
	"github.com/everforgeworks/fabline/internal/game"
	"github.com/everforgeworks/fabline/internal/progress"
	"github.com/everforgeworks/fabline/internal/sim"
)

// easyLevel sells everything it starts: demand is pinned to 100 and yield is 100%.
func easyLevel(id int) *sim.LevelConfig {
	return &sim.LevelConfig{
		ID:                 id,
		TotalTurns:         2,
		BaseYield:          100,
		PricePerUnit:       decimal.NewFromInt(10),
		WaferCost:          decimal.NewFromInt(1),
		FixedCost:          decimal.NewFromInt(1),
		InventoryCost:      decimal.NewFromInt(1),
		WinProfitThreshold: decimal.NewFromInt(100),
		MinOTD:             80,
		Demand:             sim.DemandConfig{Initial: 100, GrowthRate: 1, Pregenerate: true},
		Stages:             []sim.StageConfig{{Name: "fab"}},
	}
}

type fakeRecorder struct {
	mu       sync.Mutex
	turns    map[int]int
	finished map[string]int
	active   int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{turns: map[int]int{}, finished: map[string]int{}}
}

func (r *fakeRecorder) RecordTurn(level int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.turns[level]++
}

func (r *fakeRecorder) RecordGameFinished(level int, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished[status]++
}

func (r *fakeRecorder) SetActiveSessions(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = n
}

type fixture struct {
	manager  *game.Manager
	store    *progress.GormStore
	clock    *clock.MockClock
	recorder *fakeRecorder
	events   []game.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.NewTestConnection()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	clk := clock.NewMockClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	store := progress.NewGormStore(db, clk)
	require.NoError(t, store.Seed(context.Background()))

	catalog := &game.Catalog{Levels: []game.LevelEntry{
		{ID: 1, Title: "Easy", Simulation: easyLevel(1)},
		{ID: 2, Title: "Level 2", Simulation: func() *sim.LevelConfig { c := sim.Level2(); return &c }()},
		{ID: 3, Title: "Locked", Simulation: easyLevel(3)},
		{ID: 4, Title: "Coming soon"},
	}}

	f := &fixture{store: store, clock: clk, recorder: newFakeRecorder()}
	f.manager = game.NewManager(catalog, store, clk, 30*time.Minute)
	f.manager.SetRecorder(f.recorder)
	f.manager.SetRandomSource(func(int) sim.RandomSource { return sim.FixedSource(0.5) })
	f.manager.SetNotifier(func(e game.Event) { f.events = append(f.events, e) })
	return f
}

func (f *fixture) eventTypes() []string {
	var out []string
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

func TestManager_StartSession(t *testing.T) {
	f := newFixture(t)

	view, err := f.manager.StartSession(context.Background(), 1)

	require.NoError(t, err)
	assert.NotEmpty(t, view.ID)
	assert.Equal(t, 1, view.Level)
	assert.Equal(t, 1, view.State.CurrentTurn)
	assert.Equal(t, sim.StatusPlaying, view.State.Status)
	assert.Equal(t, 100, view.CurrentDemand)
	assert.Equal(t, []int{100, 100}, view.Forecast)
	assert.Empty(t, view.History)
	assert.Equal(t, 1, f.manager.ActiveSessions())
	assert.Equal(t, 1, f.recorder.active)
}

func TestManager_StartSessionRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.manager.StartSession(ctx, 3)
	assert.ErrorIs(t, err, game.ErrLevelLocked)

	_, err = f.manager.StartSession(ctx, 4)
	assert.ErrorIs(t, err, game.ErrLevelNotPlayable)

	_, err = f.manager.StartSession(ctx, 5)
	assert.ErrorIs(t, err, game.ErrLevelNotFound)

	assert.Equal(t, 0, f.manager.ActiveSessions())
}

func TestManager_PlayToWin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	view, err := f.manager.StartSession(ctx, 1)
	require.NoError(t, err)

	first, err := f.manager.ConfirmTurn(ctx, view.ID, sim.Decision{Units: 100})
	require.NoError(t, err)
	assert.Nil(t, first.Outcome)
	assert.Equal(t, 100, first.Record.Sold)
	assert.Equal(t, 2, first.State.CurrentTurn)

	last, err := f.manager.ConfirmTurn(ctx, view.ID, sim.Decision{Units: 100})
	require.NoError(t, err)

	require.NotNil(t, last.Outcome)
	assert.Equal(t, sim.StatusWon, last.Outcome.Status)
	assert.True(t, decimal.NewFromInt(1798).Equal(last.Outcome.CumulativeProfit), last.Outcome.CumulativeProfit.String())
	assert.Equal(t, 0, last.CurrentDemand)
	assert.Equal(t, []string{progress.AchievementFirstWin}, last.Achievements)

	completed, err := f.store.IsCompleted(ctx, 1)
	require.NoError(t, err)
	assert.True(t, completed)

	assert.Equal(t, []string{game.EventTurnConfirmed, game.EventTurnConfirmed, game.EventGameOver}, f.eventTypes())
	assert.Equal(t, 2, f.recorder.turns[1])
	assert.Equal(t, 1, f.recorder.finished["won"])

	_, err = f.manager.ConfirmTurn(ctx, view.ID, sim.Decision{Units: 100})
	assert.ErrorIs(t, err, sim.ErrGameOver)

	snapshot, err := f.manager.Session(view.ID)
	require.NoError(t, err)
	assert.Len(t, snapshot.History, 2)
	require.NotNil(t, snapshot.Outcome)
	assert.Equal(t, last.Achievements, snapshot.Achievements)
}

// slowStore holds RecordOutcome until release is closed.
type slowStore struct {
	*progress.GormStore
	entered chan struct{}
	release chan struct{}
}

func (s *slowStore) RecordOutcome(ctx context.Context, o sim.Outcome) ([]string, error) {
	close(s.entered)
	<-s.release
	return s.GormStore.RecordOutcome(ctx, o)
}

func TestManager_RecordOutcomeDoesNotBlockOtherSessions(t *testing.T) {
	// Arrange
	f := newFixture(t)
	store := &slowStore{GormStore: f.store, entered: make(chan struct{}), release: make(chan struct{})}
	m := game.NewManager(f.manager.Catalog(), store, f.clock, 30*time.Minute)
	m.SetRandomSource(func(int) sim.RandomSource { return sim.FixedSource(0.5) })
	ctx := context.Background()

	finishing, err := m.StartSession(ctx, 1)
	require.NoError(t, err)
	other, err := m.StartSession(ctx, 1)
	require.NoError(t, err)
	_, err = m.ConfirmTurn(ctx, finishing.ID, sim.Decision{Units: 100})
	require.NoError(t, err)

	// Act
	finished := make(chan game.TurnResult, 1)
	go func() {
		res, err := m.ConfirmTurn(ctx, finishing.ID, sim.Decision{Units: 100})
		assert.NoError(t, err)
		finished <- res
	}()
	<-store.entered

	progressed := make(chan error, 1)
	go func() {
		_, err := m.ConfirmTurn(ctx, other.ID, sim.Decision{Units: 100})
		progressed <- err
	}()

	// Assert
	select {
	case err := <-progressed:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("ConfirmTurn on another session waited for the progress store")
	}

	close(store.release)
	res := <-finished
	require.NotNil(t, res.Outcome)
	assert.Equal(t, sim.StatusWon, res.Outcome.Status)
	assert.Contains(t, res.Achievements, progress.AchievementFirstWin)

	view, err := m.Session(finishing.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Achievements, view.Achievements)
}

func TestManager_LossLeavesProgressAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	view, err := f.manager.StartSession(ctx, 1)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = f.manager.ConfirmTurn(ctx, view.ID, sim.Decision{Units: 0})
		require.NoError(t, err)
	}

	completed, err := f.store.IsCompleted(ctx, 1)
	require.NoError(t, err)
	assert.False(t, completed)
	assert.Equal(t, 1, f.recorder.finished["lost"])
}

func TestManager_ConfirmTurnRejectsBadDecision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	view, err := f.manager.StartSession(ctx, 2)
	require.NoError(t, err)

	_, err = f.manager.ConfirmTurn(ctx, view.ID, sim.Decision{Units: -1})
	assert.ErrorIs(t, err, sim.ErrInvalidInput)

	_, err = f.manager.ConfirmTurn(ctx, view.ID, sim.Decision{Units: 10, Overtime: map[string]bool{"polish": true}})
	assert.ErrorIs(t, err, sim.ErrInvalidInput)

	_, err = f.manager.ConfirmTurn(ctx, "missing", sim.Decision{})
	assert.ErrorIs(t, err, game.ErrSessionNotFound)

	snapshot, err := f.manager.Session(view.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, snapshot.State.CurrentTurn)
	assert.Empty(t, f.events)
}

func TestManager_ResetSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	view, err := f.manager.StartSession(ctx, 2)
	require.NoError(t, err)
	_, err = f.manager.ConfirmTurn(ctx, view.ID, sim.Decision{Units: 1200, Overtime: map[string]bool{"fab": true}})
	require.NoError(t, err)

	reset, err := f.manager.ResetSession(view.ID)

	require.NoError(t, err)
	assert.Equal(t, view.ID, reset.ID)
	assert.Equal(t, 1, reset.State.CurrentTurn)
	assert.Empty(t, reset.History)
	assert.Equal(t, 200, reset.State.Inventory)
	assert.True(t, decimal.NewFromInt(5000).Equal(reset.State.Cash))
}

func TestManager_EndSession(t *testing.T) {
	f := newFixture(t)
	view, err := f.manager.StartSession(context.Background(), 1)
	require.NoError(t, err)

	require.NoError(t, f.manager.EndSession(view.ID))

	assert.ErrorIs(t, f.manager.EndSession(view.ID), game.ErrSessionNotFound)
	_, err = f.manager.Session(view.ID)
	assert.ErrorIs(t, err, game.ErrSessionNotFound)
	assert.Equal(t, 0, f.recorder.active)
}

func TestManager_SweepIdle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	idle, err := f.manager.StartSession(ctx, 1)
	require.NoError(t, err)
	f.clock.Advance(20 * time.Minute)
	busy, err := f.manager.StartSession(ctx, 1)
	require.NoError(t, err)

	f.clock.Advance(10 * time.Minute)
	expired := f.manager.SweepIdle()

	assert.Equal(t, []string{idle.ID}, expired)
	assert.Equal(t, 1, f.manager.ActiveSessions())
	_, err = f.manager.Session(busy.ID)
	assert.NoError(t, err)
	require.Len(t, f.events, 1)
	assert.Equal(t, game.Event{Type: game.EventSessionExpired, SessionID: idle.ID}, f.events[0])
}

func TestManager_Levels(t *testing.T) {
	f := newFixture(t)

	levels, err := f.manager.Levels(context.Background())

	require.NoError(t, err)
	require.Len(t, levels, 4)
	assert.Equal(t, game.LevelView{ID: 1, Title: "Easy", Playable: true, Unlocked: true}, levels[0])
	assert.False(t, levels[2].Unlocked)
	assert.False(t, levels[3].Playable)
}

func TestManager_ReloadCatalogKeepsRunningSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	view, err := f.manager.StartSession(ctx, 1)
	require.NoError(t, err)

	f.manager.ReloadCatalog(&game.Catalog{Levels: []game.LevelEntry{{ID: 2, Title: "Only"}}})

	_, err = f.manager.ConfirmTurn(ctx, view.ID, sim.Decision{Units: 100})
	assert.NoError(t, err)
	_, err = f.manager.StartSession(ctx, 1)
	assert.ErrorIs(t, err, game.ErrLevelNotFound)
}

func TestAutoplay(t *testing.T) {
	p, err := game.Autoplay(*easyLevel(1), sim.FixedSource(0.5), sim.Decision{Units: 100})

	require.NoError(t, err)
	assert.Len(t, p.History, 2)
	assert.Equal(t, sim.StatusWon, p.Outcome.Status)

	_, err = game.Autoplay(*easyLevel(1), sim.FixedSource(0.5), sim.Decision{Units: -5})
	assert.ErrorIs(t, err, sim.ErrInvalidInput)
}
