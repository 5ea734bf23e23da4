/*
Package game
File: economy.go
Description:
    Handles the lifecycle of playthroughs.
    This includes:
    1. Starting sessions for unlocked levels.
    2. Confirming turns and reporting finished games to progress tracking.
    3. Expiring idle sessions (called from the server heartbeat).
*/

package game

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/google/uuid"

	"github.com/everforgeworks/fabline/internal/sim"
)

// Levels lists the catalog merged with the player's progress.
func (m *Manager) Levels(ctx context.Context) ([]LevelView, error) {
	rows, err := m.store.Levels(ctx)
	if err != nil {
		return nil, err
	}
	byLevel := make(map[int]int, len(rows))
	for i, r := range rows {
		byLevel[r.Level] = i
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]LevelView, 0, len(m.catalog.Levels))
	for _, e := range m.catalog.Levels {
		v := LevelView{
			ID:          e.ID,
			Title:       e.Title,
			Description: e.Description,
			Icon:        e.Icon,
			Playable:    e.Playable(),
		}
		if i, ok := byLevel[e.ID]; ok {
			v.Unlocked = rows[i].Unlocked
			v.Completed = rows[i].Completed
		}
		out = append(out, v)
	}
	return out, nil
}

// StartSession begins a playthrough of an unlocked, playable level.
func (m *Manager) StartSession(ctx context.Context, levelID int) (SessionView, error) {
	m.mu.RLock()
	entry, ok := m.catalog.Level(levelID)
	m.mu.RUnlock()
	if !ok {
		return SessionView{}, fmt.Errorf("%w: %d", ErrLevelNotFound, levelID)
	}
	if !entry.Playable() {
		return SessionView{}, fmt.Errorf("%w: %d", ErrLevelNotPlayable, levelID)
	}

	unlocked, err := m.store.IsUnlocked(ctx, levelID)
	if err != nil {
		return SessionView{}, err
	}
	if !unlocked {
		return SessionView{}, fmt.Errorf("%w: %d", ErrLevelLocked, levelID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := sim.New(*entry.Simulation, m.newSource(levelID))
	if err != nil {
		return SessionView{}, err
	}

	sess := &session{
		id:       uuid.NewString(),
		entry:    entry,
		sim:      s,
		lastSeen: m.clk.Now(),
	}
	m.sessions[sess.id] = sess
	m.setActive()

	log.Printf("[SESSION] %s started level %d", sess.id, levelID)
	return sess.view(), nil
}

// Session returns a snapshot of a live session.
func (m *Manager) Session(id string) (SessionView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return SessionView{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.lastSeen = m.clk.Now()
	return sess.view(), nil
}

// ConfirmTurn applies a decision to a session. When the turn ends the game the
// outcome is recorded with the progress store before returning. The store is
// called without holding the Manager lock.
func (m *Manager) ConfirmTurn(ctx context.Context, id string, d sim.Decision) (TurnResult, error) {
	m.mu.Lock()

	sess, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return TurnResult{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.lastSeen = m.clk.Now()

	rec, err := sess.sim.ConfirmTurn(d)
	if err != nil {
		m.mu.Unlock()
		return TurnResult{}, err
	}

	level := sess.entry.ID
	res := TurnResult{
		SessionID:     id,
		Record:        rec,
		State:         sess.sim.Snapshot(),
		CurrentDemand: sess.sim.CurrentDemand(),
	}
	outcome, done := sess.sim.Outcome()
	notify := m.notify
	store := m.store
	recorder := m.recorder
	m.mu.Unlock()

	if recorder != nil {
		recorder.RecordTurn(level)
	}
	log.Printf("[TURN] %s level %d turn %d: started %d, sold %d/%d, profit %s",
		id, level, rec.Turn, rec.Decision.Units, rec.Sold, rec.Demand, rec.Profit.StringFixed(2))

	events := []Event{{Type: EventTurnConfirmed, SessionID: id, Payload: res}}

	if done {
		unlocked, err := store.RecordOutcome(ctx, outcome)
		if err != nil {
			// the turn stands; progress can be replayed by winning again
			log.Printf("[PROGRESS] failed to record outcome for %s: %v", id, err)
		}

		m.mu.Lock()
		// skip when the session was reset or ended while the store was busy
		if m.sessions[id] == sess && sess.sim.Status() != sim.StatusPlaying {
			sess.achievements = unlocked
		}
		m.mu.Unlock()

		if recorder != nil {
			recorder.RecordGameFinished(level, string(outcome.Status))
		}
		log.Printf("[SESSION] %s finished level %d: %s (profit %s, OTD %d%%)",
			id, level, outcome.Status, outcome.CumulativeProfit.StringFixed(2), outcome.FinalOTD)

		res.Outcome = &outcome
		res.Achievements = unlocked
		events[0].Payload = res
		events = append(events, Event{Type: EventGameOver, SessionID: id, Payload: res})
	}

	publish(notify, events...)
	return res, nil
}

// ResetSession restarts a session from turn 1 with fresh demand.
func (m *Manager) ResetSession(id string) (SessionView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return SessionView{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.sim.Reset()
	sess.achievements = nil
	sess.lastSeen = m.clk.Now()

	log.Printf("[SESSION] %s reset level %d", id, sess.entry.ID)
	return sess.view(), nil
}

// EndSession discards a session.
func (m *Manager) EndSession(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(m.sessions, id)
	m.setActive()
	return nil
}

// SweepIdle drops sessions not touched within the TTL.
// Returns the expired ids, sorted.
func (m *Manager) SweepIdle() []string {
	m.mu.Lock()

	if m.ttl <= 0 {
		m.mu.Unlock()
		return nil
	}

	now := m.clk.Now()
	expired := []string{}
	for id, sess := range m.sessions {
		if now.Sub(sess.lastSeen) >= m.ttl {
			delete(m.sessions, id)
			expired = append(expired, id)
		}
	}
	sort.Strings(expired)
	m.setActive()

	notify := m.notify
	m.mu.Unlock()

	events := make([]Event, 0, len(expired))
	for _, id := range expired {
		events = append(events, Event{Type: EventSessionExpired, SessionID: id})
	}
	publish(notify, events...)
	return expired
}

// caller must hold mu
func (m *Manager) setActive() {
	if m.recorder != nil {
		m.recorder.SetActiveSessions(len(m.sessions))
	}
}

func publish(notify func(Event), events ...Event) {
	if notify == nil {
		return
	}
	for _, e := range events {
		notify(e)
	}
}
