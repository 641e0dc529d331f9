// internal/models/player.go
package models

import "github.com/google/uuid"

// Player is a persistent seat in a lobby. It survives across games; the
// per-game hand status lives on GamePlayer instead.
type Player struct {
	ID      uuid.UUID `json:"id"`
	LobbyID uuid.UUID `json:"lobby_id"`
	UserID  uuid.UUID `json:"user_id"`
	Name    string    `json:"name"`

	// TurnOrder is unique within a lobby and defines the rotation; the
	// engine overwrites it when a game start supplies a new seating order.
	TurnOrder int `json:"turn_order"`

	// WalletBalance never goes negative; every deduction is preceded by a
	// sufficiency check inside the owning game's transaction.
	WalletBalance int64 `json:"wallet_balance"`

	// IsActive means seated in the lobby, not removed. This is distinct
	// from folding out of the current hand.
	IsActive bool `json:"is_active"`

	GamesWon    int `json:"games_won"`
	GamesPlayed int `json:"games_played"`
}
