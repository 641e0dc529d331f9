// internal/handlers/game.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kmehta/teenpatti/internal/cache"
	"github.com/kmehta/teenpatti/internal/models"
)

type startGameRequest struct {
	LobbyID uuid.UUID `json:"lobbyId"`

	// PlayerOrder optionally reseats the lobby before dealing first turn;
	// it must be a permutation of the active players.
	PlayerOrder []uuid.UUID `json:"playerOrder"`
}

// StartGameHandler opens a new game for the lobby.
func (s *Server) StartGameHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := requireUser(r); err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req startGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.LobbyID == uuid.Nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	game, err := s.Engine.StartGame(r.Context(), req.LobbyID, req.PlayerOrder)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Game started",
		"game":    game,
	})
	s.publishEvent(r.Context(), cache.GameEvent{
		LobbyID: req.LobbyID,
		GameID:  game.ID,
		Kind:    "started",
		Pot:     game.Pot,
	})
}

type actionRequest struct {
	LobbyID    uuid.UUID         `json:"lobbyId"`
	PlayerID   uuid.UUID         `json:"playerId"`
	ActionType models.ActionType `json:"actionType"`

	// RaiseAmount is the new total stake for a RAISE; ignored otherwise.
	RaiseAmount int64 `json:"raiseAmount"`
}

// ActionHandler applies one betting action.
func (s *Server) ActionHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := requireUser(r); err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if req.LobbyID == uuid.Nil || req.PlayerID == uuid.Nil || !req.ActionType.Valid() {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Missing or invalid fields"})
		return
	}

	res, err := s.Engine.ApplyAction(r.Context(), req.LobbyID, req.PlayerID, req.ActionType, req.RaiseAmount)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Action successful",
		"result":  res,
	})
	ev := cache.GameEvent{
		LobbyID:  req.LobbyID,
		GameID:   res.GameID,
		Kind:     "action",
		PlayerID: req.PlayerID,
		Action:   string(req.ActionType),
		Amount:   res.AppliedDeduction,
		Pot:      res.Pot,
	}
	if res.GameEnded {
		ev.Kind = "ended"
		ev.WinnerID = res.WinnerID
	}
	s.publishEvent(r.Context(), ev)
}

type endGameRequest struct {
	GameID   uuid.UUID `json:"gameId"`
	WinnerID uuid.UUID `json:"winnerId"`
}

// EndGameHandler applies the lobby admin's showdown decision.
func (s *Server) EndGameHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req endGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.GameID == uuid.Nil || req.WinnerID == uuid.Nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	lobbyID, err := s.Engine.EndGame(r.Context(), req.GameID, userID, req.WinnerID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Game ended successfully"})
	winner := req.WinnerID
	s.publishEvent(r.Context(), cache.GameEvent{
		LobbyID:  lobbyID,
		GameID:   req.GameID,
		Kind:     "ended",
		WinnerID: &winner,
	})
}

// publishEvent pushes to the Redis queue on a best-effort basis; the HTTP
// response has already been written when this runs.
func (s *Server) publishEvent(ctx context.Context, ev cache.GameEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.Events.Publish(ctx, ev); err != nil {
		s.Log.WithError(err).Warn("failed to publish game event")
	}
}
