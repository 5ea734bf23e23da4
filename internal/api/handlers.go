/*
Package api
File: handlers.go
Description:
    Contains the HTTP handlers for the REST API.
    These functions decode JSON requests, call the game service
    (internal/game) and return JSON responses.

    Key Responsibilities:
    - Input Validation (Is the JSON valid? Is the unit count a whole number?)
    - Error Mapping (service and engine errors to HTTP status codes)
    - Routing (Go 1.22 method + path patterns)
*/

package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/everforgeworks/fabline/internal/game"
	"github.com/everforgeworks/fabline/internal/progress"
	"github.com/everforgeworks/fabline/internal/sim"
)

// ProgressStore is what the progress endpoints read and reset.
type ProgressStore interface {
	Levels(ctx context.Context) ([]progress.Level, error)
	Achievements(ctx context.Context) ([]progress.Achievement, error)
	ResetAll(ctx context.Context) error
}

// Request DTOs (Data Transfer Objects)
// These structs define exactly what we expect the client to send us.

type StartSessionRequest struct {
	LevelID int `json:"level_id"`
}

// TurnRequest carries the player's decision. Units may be a JSON number or the
// raw text typed into the input box.
type TurnRequest struct {
	Units    json.RawMessage `json:"units"`
	Overtime map[string]bool `json:"overtime"`
}

type ProgressResponse struct {
	Levels       []progress.Level       `json:"levels"`
	Achievements []progress.Achievement `json:"achievements"`
}

// Server bundles the dependencies of the handlers.
type Server struct {
	manager  *game.Manager
	progress ProgressStore
	hub      *Hub
}

func NewServer(manager *game.Manager, store ProgressStore, hub *Hub) *Server {
	return &Server{manager: manager, progress: store, hub: hub}
}

// Routes registers every endpoint on a new mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Catalog & Progress Endpoints
	mux.HandleFunc("GET /api/levels", s.handleGetLevels)
	mux.HandleFunc("GET /api/progress", s.handleGetProgress)
	mux.HandleFunc("POST /api/progress/reset", s.handleResetProgress)

	// Session Endpoints
	mux.HandleFunc("POST /api/sessions", s.handleStartSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("POST /api/sessions/{id}/turn", s.handleConfirmTurn)
	mux.HandleFunc("POST /api/sessions/{id}/reset", s.handleResetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleEndSession)

	// Real-Time WebSocket Endpoint
	if s.hub != nil {
		mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
			ServeWs(s.hub, w, r)
		})
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":   "ok",
			"sessions": s.manager.ActiveSessions(),
		})
	})

	return mux
}

// handleGetLevels returns the catalog merged with progress.
func (s *Server) handleGetLevels(w http.ResponseWriter, r *http.Request) {
	levels, err := s.manager.Levels(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, levels)
}

// handleStartSession begins a playthrough.
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	view, err := s.manager.StartSession(r.Context(), req.LevelID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// handleGetSession returns the full snapshot of a session.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.manager.Session(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleConfirmTurn applies the player's decision for the current turn.
func (s *Server) handleConfirmTurn(w http.ResponseWriter, r *http.Request) {
	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	units, err := parseUnits(req.Units)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := s.manager.ConfirmTurn(r.Context(), r.PathValue("id"), sim.Decision{Units: units, Overtime: req.Overtime})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleResetSession restarts a session from turn 1.
func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.manager.ResetSession(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleEndSession discards a session.
func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.EndSession(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetProgress returns level progress and earned achievements.
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	levels, err := s.progress.Levels(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	achievements, err := s.progress.Achievements(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ProgressResponse{Levels: levels, Achievements: achievements})
}

// handleResetProgress wipes progress back to a fresh install.
func (s *Server) handleResetProgress(w http.ResponseWriter, r *http.Request) {
	if err := s.progress.ResetAll(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	log.Println("[PROGRESS] reset to defaults")
	s.handleGetProgress(w, r)
}

// parseUnits accepts 900 as well as "900".
func parseUnits(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, sim.NewInputError("units", "is required")
	}
	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, sim.NewInputError("units", "malformed string")
		}
	}
	return sim.ParseUnits(text)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps service errors onto status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, sim.ErrInvalidInput), errors.Is(err, progress.ErrInvalidLevel):
		status = http.StatusBadRequest
	case errors.Is(err, game.ErrSessionNotFound), errors.Is(err, game.ErrLevelNotFound):
		status = http.StatusNotFound
	case errors.Is(err, game.ErrLevelLocked), errors.Is(err, game.ErrLevelNotPlayable):
		status = http.StatusForbidden
	case errors.Is(err, sim.ErrGameOver):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		log.Printf("API: internal error: %v", err)
		http.Error(w, "Internal Server Error", status)
		return
	}
	http.Error(w, err.Error(), status)
}
