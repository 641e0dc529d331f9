// internal/engine/state.go
package engine

import (
	"context"

	"github.com/google/uuid"
	"github.com/kmehta/teenpatti/internal/models"
)

// TableState is everything one mutating operation on a lobby reads and
// writes: the lobby row, the open game (nil if none), every seat ordered by
// turn order, and the per-game hand statuses of the open game.
//
// A Store loads it under the lobby's exclusive lock; the pure rule functions
// below mutate the snapshot in place and report the writes in a Changes so
// the store can persist them before commit.
type TableState struct {
	Lobby *models.Lobby
	Game  *models.Game

	// Seats holds every player of the lobby, active or not, ascending by
	// TurnOrder.
	Seats []*models.Player

	// Hands maps playerID to hand status for the open game. Empty when
	// Game is nil or completed. A seat without an entry joined the lobby
	// after the game started and is not part of it.
	Hands map[uuid.UUID]models.HandStatus
}

// Seat returns the seat with the given player id, or nil.
func (s *TableState) Seat(playerID uuid.UUID) *models.Player {
	for _, p := range s.Seats {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

// Participants returns the active seats that are part of the open game, in
// turn order.
func (s *TableState) Participants() []*models.Player {
	var out []*models.Player
	for _, p := range s.Seats {
		if !p.IsActive {
			continue
		}
		if _, ok := s.Hands[p.ID]; !ok {
			continue
		}
		out = append(out, p)
	}
	return out
}

// live returns the participants still contending for the pot, i.e. not
// PACKED.
func (s *TableState) live() []*models.Player {
	var out []*models.Player
	for _, p := range s.Participants() {
		if s.Hands[p.ID] != models.HandPacked {
			out = append(out, p)
		}
	}
	return out
}

// Changes lists the writes a rule function produced. Stores persist all of
// them in the same transaction that loaded the state, or none.
type Changes struct {
	// InsertGame is a newly created game row; UpdateGame rewrites the pot,
	// stake, status, current turn and winner of the existing open game.
	InsertGame *models.Game
	UpdateGame *models.Game

	// WalletDeltas are signed adjustments per player id.
	WalletDeltas map[uuid.UUID]int64

	// SetTurnOrder rewrites seating positions (game start with an explicit
	// seating order).
	SetTurnOrder map[uuid.UUID]int

	// SetHands upserts per-game hand statuses for the open game.
	SetHands map[uuid.UUID]models.HandStatus

	// AppendActions are audit rows, append-only.
	AppendActions []*models.Action

	// WonBy increments that player's games_won counter; PlayedBy
	// increments games_played for each listed player.
	WonBy    *uuid.UUID
	PlayedBy []uuid.UUID
}

func newChanges() *Changes {
	return &Changes{
		WalletDeltas: make(map[uuid.UUID]int64),
		SetHands:     make(map[uuid.UUID]models.HandStatus),
	}
}

// debit moves amount out of the seat's wallet and records the delta. The
// caller has already checked sufficiency.
func (c *Changes) debit(p *models.Player, amount int64) {
	p.WalletBalance -= amount
	c.WalletDeltas[p.ID] += -amount
}

// credit moves amount into the seat's wallet and records the delta.
func (c *Changes) credit(p *models.Player, amount int64) {
	p.WalletBalance += amount
	c.WalletDeltas[p.ID] += amount
}

// setHand updates the snapshot and records the upsert.
func (c *Changes) setHand(s *TableState, playerID uuid.UUID, h models.HandStatus) {
	s.Hands[playerID] = h
	c.SetHands[playerID] = h
}

// Store is the durable backing the engine mutates through.
//
// Update runs fn inside a single atomic transaction holding the lobby's
// exclusive lock: no other mutating operation on the same lobby may overlap,
// and either every write fn returns is committed or none is. fn returning an
// error (including a *RuleError) rolls the transaction back and the error is
// returned unchanged. Lobbies never contend with each other.
//
// Load returns a point-in-time consistent snapshot without taking the lock.
//
// GameLobby resolves the lobby owning a game id, for operations addressed by
// game rather than lobby; it returns a CodeActiveGameNotFound RuleError when
// no such game exists.
type Store interface {
	Update(ctx context.Context, lobbyID uuid.UUID, fn func(*TableState) (*Changes, error)) error
	Load(ctx context.Context, lobbyID uuid.UUID) (*TableState, error)
	GameLobby(ctx context.Context, gameID uuid.UUID) (uuid.UUID, error)
}
