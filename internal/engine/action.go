// internal/engine/action.go
package engine

import (
	"github.com/google/uuid"
	"github.com/kmehta/teenpatti/internal/models"
)

// ActionResult reports what one applied action did.
type ActionResult struct {
	GameID uuid.UUID `json:"game_id"`

	// AppliedDeduction is the amount actually taken from the actor's
	// wallet (zero for a fold).
	AppliedDeduction int64 `json:"applied_deduction"`

	// NextActorID is nil when the game left the ACTIVE state.
	NextActorID *uuid.UUID `json:"next_actor_id"`

	// GameEnded is true on an auto-win by elimination; WinnerID and Pot
	// then carry the outcome.
	GameEnded bool       `json:"game_ended"`
	WinnerID  *uuid.UUID `json:"winner_id,omitempty"`
	Pot       int64      `json:"pot"`
}

// applyAction validates and applies one player action against the loaded
// table state. Preconditions are checked in order, first failure wins, and a
// failure leaves the snapshot untouched: every mutation happens after the
// last check.
func applyAction(s *TableState, playerID uuid.UUID, action models.ActionType, raiseTo int64) (*ActionResult, *Changes, error) {
	g := s.Game
	if g == nil || g.Status != models.GameActive {
		return nil, nil, ruleErr(CodeNoActiveGame)
	}
	if g.CurrentTurnPlayerID == nil || *g.CurrentTurnPlayerID != playerID {
		return nil, nil, ruleErr(CodeNotYourTurn)
	}

	actor := s.Seat(playerID)
	if actor == nil {
		return nil, nil, invariantf("current turn player %s has no seat in lobby %s", playerID, s.Lobby.ID)
	}

	var (
		amount     int64
		nextStake  = g.CurrentStake
		nextStatus = models.GameActive
		newHand    models.HandStatus
	)
	switch action {
	case models.ActionFold:
		newHand = models.HandPacked
	case models.ActionBlind:
		amount = s.Lobby.BootAmount
	case models.ActionSeenBet:
		amount = g.CurrentStake
		newHand = models.HandSeen
	case models.ActionRaise:
		if raiseTo <= g.CurrentStake {
			return nil, nil, ruleErr(CodeInvalidRaise)
		}
		amount = raiseTo
		nextStake = raiseTo
		newHand = models.HandSeen
	case models.ActionShow:
		amount = g.CurrentStake
		nextStatus = models.GameShowPending
	default:
		return nil, nil, ruleErr(CodeInvalidAction)
	}

	if actor.WalletBalance < amount {
		return nil, nil, playerErr(CodeInsufficientFunds, playerID)
	}

	ch := newChanges()
	ch.debit(actor, amount)
	g.Pot += amount
	g.CurrentStake = nextStake
	g.Status = nextStatus
	if newHand != "" {
		ch.setHand(s, playerID, newHand)
	}
	ch.AppendActions = append(ch.AppendActions, &models.Action{
		GameID:   g.ID,
		PlayerID: playerID,
		Type:     action,
		Amount:   amount,
	})

	res := &ActionResult{
		GameID:           g.ID,
		AppliedDeduction: amount,
		Pot:              g.Pot,
	}

	if nextStatus == models.GameShowPending {
		// Betting stops; an admin showdown resolution closes the game.
		g.CurrentTurnPlayerID = nil
		ch.UpdateGame = g
		return res, ch, nil
	}

	live := s.live()
	if len(live) == 1 {
		// Everyone else packed: last player standing takes the pot,
		// including this action's deduction, as committed on the game
		// row.
		settle(s, ch, live[0])
		res.GameEnded = true
		res.WinnerID = g.WinnerID
		res.Pot = g.Pot
		return res, ch, nil
	}
	if len(live) == 0 {
		return nil, nil, invariantf("game %s has no live players after %s", g.ID, action)
	}

	next := NextActor(s.Participants(), s.Hands, playerID)
	if next == nil {
		return nil, nil, invariantf("game %s: no next actor with %d live players", g.ID, len(live))
	}
	nextID := next.ID
	g.CurrentTurnPlayerID = &nextID
	ch.UpdateGame = g
	res.NextActorID = &nextID
	return res, ch, nil
}
