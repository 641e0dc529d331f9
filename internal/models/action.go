// internal/models/action.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// ActionType enumerates the betting moves a player can submit.
type ActionType string

const (
	// ActionFold packs the player out of the hand at no cost.
	ActionFold ActionType = "FOLD"
	// ActionBlind bets the lobby's fixed boot without looking at the hand.
	ActionBlind ActionType = "BLIND"
	// ActionSeenBet matches the current stake after looking at the hand.
	ActionSeenBet ActionType = "SEEN_BET"
	// ActionRaise bets a new, higher total stake.
	ActionRaise ActionType = "RAISE"
	// ActionShow matches the stake and requests an admin-adjudicated
	// showdown among the remaining players.
	ActionShow ActionType = "SHOW"
)

// Valid reports whether t is one of the known action types.
func (t ActionType) Valid() bool {
	switch t {
	case ActionFold, ActionBlind, ActionSeenBet, ActionRaise, ActionShow:
		return true
	}
	return false
}

// Action is one row of the append-only audit trail. Amount is the deduction
// actually applied, so the game's pot always equals the sum of its actions'
// amounts.
type Action struct {
	ID       int64      `json:"id"`
	GameID   uuid.UUID  `json:"game_id"`
	PlayerID uuid.UUID  `json:"player_id"`
	Type     ActionType `json:"type"`
	Amount   int64      `json:"amount"`

	CreatedAt time.Time `json:"created_at"`
}
