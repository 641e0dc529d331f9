// internal/models/game.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// GameStatus is the game state-machine tag.
type GameStatus string

const (
	// GameActive accepts player actions in turn order.
	GameActive GameStatus = "ACTIVE"
	// GameShowPending awaits an admin-adjudicated showdown winner; no
	// further actions are accepted.
	GameShowPending GameStatus = "SHOW_PENDING"
	// GameCompleted is terminal for this game instance.
	GameCompleted GameStatus = "COMPLETED"
)

// HandStatus is a player's per-game standing, valid only while the owning
// game is ACTIVE or SHOW_PENDING.
type HandStatus string

const (
	HandBlind  HandStatus = "BLIND"
	HandSeen   HandStatus = "SEEN"
	HandPacked HandStatus = "PACKED"
)

// Game is one betting round inside a lobby. A lobby has at most one game in
// a non-terminal status at any time.
type Game struct {
	ID      uuid.UUID  `json:"id"`
	LobbyID uuid.UUID  `json:"lobby_id"`
	Status  GameStatus `json:"status"`

	// Pot is non-decreasing while the game is open; it equals the sum of
	// all deductions recorded in the action log for this game.
	Pot int64 `json:"pot"`

	// CurrentStake is the minimum a SEEN player must match to stay in.
	CurrentStake int64 `json:"current_stake"`

	// CurrentTurnPlayerID is nil once the game is SHOW_PENDING or COMPLETED.
	CurrentTurnPlayerID *uuid.UUID `json:"current_turn_player_id"`

	// WinnerID is set exactly once, at completion.
	WinnerID *uuid.UUID `json:"winner_id"`

	CreatedAt time.Time `json:"created_at"`
}

// Open reports whether the game still accepts mutations (actions or an admin
// showdown resolution).
func (g *Game) Open() bool {
	return g.Status != GameCompleted
}

// GamePlayer records a player's participation in one game. Rows exist only
// for games the player was seated in when they started; they carry the
// ephemeral BLIND/SEEN/PACKED status so the durable Player row does not.
type GamePlayer struct {
	GameID   uuid.UUID  `json:"game_id"`
	PlayerID uuid.UUID  `json:"player_id"`
	Status   HandStatus `json:"status"`
}
