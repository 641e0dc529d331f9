// internal/handlers/lobby_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kmehta/teenpatti/internal/lobby"
)

// LobbyWSHandler subscribes a client to a lobby's live state. The server
// pushes the full session view after every committed mutation; the client
// never sends anything but pings.
func LobbyWSHandler(logger *logrus.Logger, s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lobbyIDStr := strings.TrimPrefix(r.URL.Path, "/lobby/ws/")
		lobbyID, err := uuid.Parse(strings.SplitN(lobbyIDStr, "/", 2)[0])
		if err != nil {
			http.Error(w, "invalid lobby_id", http.StatusBadRequest)
			return
		}

		userID, err := requireUser(r)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		// The lobby must exist before we upgrade.
		view, err := s.Engine.View(r.Context(), lobbyID)
		if err != nil {
			s.writeEngineError(w, err)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		conn := lobby.NewConnection(userID)
		s.Hub.Subscribe(lobbyID, conn)
		defer s.Hub.Unsubscribe(lobbyID, conn)

		logger.WithFields(logrus.Fields{
			"lobby_id": lobbyID,
			"user_id":  userID,
			"remote":   r.RemoteAddr,
		}).Info("lobby websocket connected")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Reader goroutine only notices the peer going away.
		go func() {
			defer cancel()
			for {
				if _, _, err := c.Read(ctx); err != nil {
					return
				}
			}
		}()

		// Initial snapshot so the client renders without waiting for the
		// next mutation.
		if err := writeWS(ctx, c, map[string]interface{}{
			"type":    "game_update",
			"lobby":   view.Lobby,
			"players": view.Players,
			"game":    view.Game,
		}); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				c.Close(websocket.StatusNormalClosure, "bye")
				return
			case <-conn.Done():
				c.Close(websocket.StatusNormalClosure, "bye")
				return
			case msg := <-conn.Out:
				if err := writeWS(ctx, c, msg); err != nil {
					logger.Debugf("lobby ws write failed for %s: %v", userID, err)
					return
				}
			}
		}
	}
}

func writeWS(ctx context.Context, c *websocket.Conn, msg interface{}) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return c.Write(wctx, websocket.MessageText, data)
}
