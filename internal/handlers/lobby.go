// internal/handlers/lobby.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/kmehta/teenpatti/internal/database"
	"github.com/kmehta/teenpatti/internal/models"
)

type createLobbyRequest struct {
	Name          string `json:"name"`
	BootAmount    int64  `json:"bootAmount"`
	InitialWallet int64  `json:"initialWallet"`
}

// CreateLobbyHandler creates a lobby with the caller as its admin, seated as
// player 1.
func (s *Server) CreateLobbyHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req createLobbyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.BootAmount <= 0 || req.InitialWallet <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Missing or invalid fields"})
		return
	}

	lobby := &models.Lobby{
		Name:          req.Name,
		AdminUserID:   userID,
		BootAmount:    req.BootAmount,
		InitialWallet: req.InitialWallet,
	}
	seat, err := s.Store.CreateLobby(r.Context(), lobby)
	if err != nil {
		if errors.Is(err, database.ErrNameTaken) {
			writeJSON(w, http.StatusConflict, errorResponse{Error: "Lobby name taken"})
			return
		}
		s.Log.WithError(err).Error("create lobby failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"lobby":  lobby,
		"player": seat,
	})
}

type joinLobbyRequest struct {
	LobbyIdentifier string `json:"lobbyIdentifier"` // id or name
	PlayerName      string `json:"playerName"`
}

// JoinLobbyHandler seats the caller in a lobby found by id or name. The
// reply distinguishes a fresh seat from an existing one.
func (s *Server) JoinLobbyHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req joinLobbyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.LobbyIdentifier == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	seat, lobby, err := s.Store.JoinLobby(r.Context(), req.LobbyIdentifier, userID, req.PlayerName)
	if err != nil {
		if errors.Is(err, database.ErrNameTaken) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Player name already taken in this lobby"})
			return
		}
		s.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Joined successfully",
		"player":  seat,
		"lobby":   lobby,
	})
	s.BroadcastState(r.Context(), lobby.ID)
}

// LobbyStateHandler is the observer view: lobby, players in turn order with
// their hand statuses, and the open game or null.
func (s *Server) LobbyStateHandler(w http.ResponseWriter, r *http.Request) {
	lobbyID, err := uuid.Parse(r.URL.Query().Get("lobbyId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Missing lobbyId"})
		return
	}

	view, err := s.Engine.View(r.Context(), lobbyID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// MyLobbiesHandler lists the lobbies the caller administers.
func (s *Server) MyLobbiesHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	lobbies, err := s.Store.LobbiesByAdmin(r.Context(), userID)
	if err != nil {
		s.Log.WithError(err).Error("list lobbies failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, lobbies)
}

type deleteLobbyRequest struct {
	LobbyID uuid.UUID `json:"lobbyId"`
}

// DeleteLobbyHandler removes a lobby and its games, seats and action log.
// Admin only.
func (s *Server) DeleteLobbyHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req deleteLobbyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.LobbyID == uuid.Nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	if err := s.Store.DeleteLobby(r.Context(), req.LobbyID, userID); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Lobby deleted successfully"})
}
