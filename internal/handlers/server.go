// internal/handlers/server.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kmehta/teenpatti/internal/auth"
	"github.com/kmehta/teenpatti/internal/cache"
	"github.com/kmehta/teenpatti/internal/database"
	"github.com/kmehta/teenpatti/internal/engine"
	"github.com/kmehta/teenpatti/internal/lobby"
)

// Server bundles what every handler needs: the store for CRUD, the engine
// for game mutations, the hub and event queue for post-commit fan-out.
type Server struct {
	Store  *database.Store
	Engine *engine.Engine
	Hub    *lobby.Hub
	Events *cache.Publisher
	Log    *logrus.Logger
}

func NewServer(store *database.Store, eng *engine.Engine, hub *lobby.Hub, events *cache.Publisher, log *logrus.Logger) *Server {
	return &Server{Store: store, Engine: eng, Hub: hub, Events: events, Log: log}
}

// PingHandler answers health checks.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error    string `json:"error"`
	Code     string `json:"code,omitempty"`
	PlayerID string `json:"player_id,omitempty"`
}

// writeEngineError maps engine errors onto HTTP. Rule violations carry their
// code and the offending player so clients can render a precise message;
// invariant failures and storage errors are opaque 500s.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	if re, ok := engine.AsRuleError(err); ok {
		resp := errorResponse{Error: re.Error(), Code: string(re.Code)}
		if re.PlayerID != uuid.Nil {
			resp.PlayerID = re.PlayerID.String()
		}
		writeJSON(w, ruleStatus(re.Code), resp)
		return
	}

	var inv *engine.InvariantError
	if errors.As(err, &inv) {
		s.Log.WithError(err).Error("engine invariant violation")
	} else {
		s.Log.WithError(err).Error("internal error")
	}
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal Server Error"})
}

func ruleStatus(code engine.Code) int {
	switch code {
	case engine.CodeLobbyNotFound, engine.CodeNoActiveGame,
		engine.CodeActiveGameNotFound, engine.CodePlayerNotFound:
		return http.StatusNotFound
	case engine.CodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

// requireUser authenticates the request via the auth_token cookie or a
// bearer token and returns the user id.
func requireUser(r *http.Request) (uuid.UUID, error) {
	token := extractTokenFromCookie(r.Header.Get("Cookie"))
	if token == "" {
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			token = strings.TrimPrefix(h, "Bearer ")
		}
	}
	if token == "" {
		return uuid.Nil, errors.New("missing auth token")
	}

	userIDStr, err := auth.AuthenticateJWT(token)
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(userIDStr)
}

func extractTokenFromCookie(cookie string) string {
	parts := strings.Split(cookie, "auth_token=")
	if len(parts) < 2 {
		return ""
	}
	token := parts[1]
	if idx := strings.Index(token, ";"); idx != -1 {
		token = token[:idx]
	}
	return token
}

// BroadcastState is wired to engine.OnStateChanged in cmd/server: after each
// committed mutation it loads the view and pushes it to the lobby's
// websocket subscribers.
func (s *Server) BroadcastState(ctx context.Context, lobbyID uuid.UUID) {
	view, err := s.Engine.View(ctx, lobbyID)
	if err != nil {
		s.Log.WithError(err).WithField("lobby_id", lobbyID).Warn("failed to load view for broadcast")
		return
	}
	s.Hub.Broadcast(lobbyID, map[string]interface{}{
		"type":    "game_update",
		"lobby":   view.Lobby,
		"players": view.Players,
		"game":    view.Game,
	})
}
