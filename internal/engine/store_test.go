// internal/engine/store_test.go
package engine

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/kmehta/teenpatti/internal/models"
)

// memStore is an in-memory Store for engine tests: one mutex per store
// stands in for the per-lobby row lock, and rollback is modeled by mutating
// a deep copy that only replaces the canonical state when fn succeeds.
type memStore struct {
	mu      sync.Mutex
	lobbies map[uuid.UUID]*TableState
	actions map[uuid.UUID][]*models.Action
}

func newMemStore() *memStore {
	return &memStore{
		lobbies: make(map[uuid.UUID]*TableState),
		actions: make(map[uuid.UUID][]*models.Action),
	}
}

func (m *memStore) add(state *TableState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lobbies[state.Lobby.ID] = state
}

func (m *memStore) Update(ctx context.Context, lobbyID uuid.UUID, fn func(*TableState) (*Changes, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.lobbies[lobbyID]
	if !ok {
		return &RuleError{Code: CodeLobbyNotFound}
	}

	next := cloneState(state)
	ch, err := fn(next)
	if err != nil {
		return err
	}

	for _, id := range ch.PlayedBy {
		next.Seat(id).GamesPlayed++
	}
	for _, a := range ch.AppendActions {
		m.actions[a.GameID] = append(m.actions[a.GameID], a)
	}
	// Mirror the SQL store, which only ever loads the open game: a
	// completed game disappears from the snapshot.
	if next.Game != nil && !next.Game.Open() {
		next.Game = nil
		next.Hands = map[uuid.UUID]models.HandStatus{}
	}
	m.lobbies[lobbyID] = next
	return nil
}

func (m *memStore) Load(ctx context.Context, lobbyID uuid.UUID) (*TableState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.lobbies[lobbyID]
	if !ok {
		return nil, &RuleError{Code: CodeLobbyNotFound}
	}
	return cloneState(state), nil
}

func (m *memStore) GameLobby(ctx context.Context, gameID uuid.UUID) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for lobbyID, st := range m.lobbies {
		if st.Game != nil && st.Game.ID == gameID {
			return lobbyID, nil
		}
	}
	return uuid.Nil, &RuleError{Code: CodeActiveGameNotFound}
}

// state returns the canonical snapshot for assertions.
func (m *memStore) state(lobbyID uuid.UUID) *TableState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneState(m.lobbies[lobbyID])
}

// gameActions returns the audit log for a game.
func (m *memStore) gameActions(gameID uuid.UUID) []*models.Action {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.Action(nil), m.actions[gameID]...)
}

func cloneState(s *TableState) *TableState {
	if s == nil {
		return nil
	}
	cp := &TableState{
		Hands: make(map[uuid.UUID]models.HandStatus, len(s.Hands)),
	}
	lob := *s.Lobby
	cp.Lobby = &lob
	if s.Game != nil {
		g := *s.Game
		if s.Game.CurrentTurnPlayerID != nil {
			id := *s.Game.CurrentTurnPlayerID
			g.CurrentTurnPlayerID = &id
		}
		if s.Game.WinnerID != nil {
			id := *s.Game.WinnerID
			g.WinnerID = &id
		}
		cp.Game = &g
	}
	for _, p := range s.Seats {
		pc := *p
		cp.Seats = append(cp.Seats, &pc)
	}
	for k, v := range s.Hands {
		cp.Hands[k] = v
	}
	return cp
}
