// internal/models/lobby.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Lobby is a persistent table of players sharing a wallet ledger. Many games
// are played inside one lobby over time, but at most one game is open at any
// instant.
type Lobby struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	AdminUserID uuid.UUID `json:"admin_user_id"`

	// BootAmount is the fixed ante every seated player pays when a game
	// starts; it also seeds the game's current stake.
	BootAmount int64 `json:"boot_amount"`

	// InitialWallet is the balance a player is seated with on join.
	InitialWallet int64 `json:"initial_wallet_amount"`

	CreatedAt time.Time `json:"created_at"`
}
