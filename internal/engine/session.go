// internal/engine/session.go
package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/kmehta/teenpatti/internal/models"
)

// startGame collects the boot from every active seat, seeds the pot and the
// stake, deals first turn to the lowest turn order and marks everyone BLIND.
//
// seating, when non-empty, must be a permutation of the active seat ids and
// rewrites the lobby's turn order before the roster is fixed.
func startGame(s *TableState, seating []uuid.UUID) (*models.Game, *Changes, error) {
	if s.Game != nil && s.Game.Open() {
		return nil, nil, ruleErr(CodeGameAlreadyActive)
	}

	ch := newChanges()

	if len(seating) > 0 {
		if err := applySeating(s, ch, seating); err != nil {
			return nil, nil, err
		}
	}

	var active []*models.Player
	for _, p := range s.Seats {
		if p.IsActive {
			active = append(active, p)
		}
	}
	if len(active) < 2 {
		return nil, nil, ruleErr(CodeNotEnoughPlayers)
	}

	boot := s.Lobby.BootAmount
	for _, p := range active {
		if p.WalletBalance < boot {
			return nil, nil, playerErr(CodeInsufficientFunds, p.ID)
		}
	}

	first := active[0].ID
	game := &models.Game{
		ID:                  uuid.New(),
		LobbyID:             s.Lobby.ID,
		Status:              models.GameActive,
		CurrentStake:        boot,
		CurrentTurnPlayerID: &first,
		CreatedAt:           time.Now().UTC(),
	}
	s.Game = game
	s.Hands = make(map[uuid.UUID]models.HandStatus, len(active))

	for _, p := range active {
		ch.debit(p, boot)
		game.Pot += boot
		ch.setHand(s, p.ID, models.HandBlind)
		// The boot is logged like any other deduction so the pot always
		// equals the sum of the game's action amounts.
		ch.AppendActions = append(ch.AppendActions, &models.Action{
			GameID:   game.ID,
			PlayerID: p.ID,
			Type:     models.ActionBlind,
			Amount:   boot,
		})
		ch.PlayedBy = append(ch.PlayedBy, p.ID)
	}

	ch.InsertGame = game
	return game, ch, nil
}

// applySeating validates that seating is a permutation of the active seat set
// and renumbers turn orders 1..n in the given sequence, reordering s.Seats to
// match.
func applySeating(s *TableState, ch *Changes, seating []uuid.UUID) error {
	active := make(map[uuid.UUID]*models.Player)
	for _, p := range s.Seats {
		if p.IsActive {
			active[p.ID] = p
		}
	}
	if len(seating) != len(active) {
		return ruleErr(CodeInvalidSeating)
	}

	orders := make(map[uuid.UUID]int, len(seating))
	for i, id := range seating {
		if _, dup := orders[id]; dup {
			return ruleErr(CodeInvalidSeating)
		}
		if _, ok := active[id]; !ok {
			return playerErr(CodeInvalidSeating, id)
		}
		orders[id] = i + 1
	}

	ch.SetTurnOrder = orders
	for _, p := range s.Seats {
		if ord, ok := orders[p.ID]; ok {
			p.TurnOrder = ord
		}
	}
	sortSeats(s.Seats)
	return nil
}

// sortSeats restores ascending turn-order after a renumbering. Rosters are
// tiny, insertion sort is enough.
func sortSeats(seats []*models.Player) {
	for i := 1; i < len(seats); i++ {
		for j := i; j > 0 && seats[j-1].TurnOrder > seats[j].TurnOrder; j-- {
			seats[j-1], seats[j] = seats[j], seats[j-1]
		}
	}
}

// endGame resolves an admin-declared showdown: the pot goes to winnerID and
// the game completes. Also the terminal step of the auto-win path, which
// reuses settle below.
func endGame(s *TableState, gameID, adminUserID, winnerID uuid.UUID) (*Changes, error) {
	if s.Game == nil || s.Game.ID != gameID || !s.Game.Open() {
		return nil, ruleErr(CodeActiveGameNotFound)
	}
	if s.Lobby.AdminUserID != adminUserID {
		return nil, ruleErr(CodeForbidden)
	}

	winner := s.Seat(winnerID)
	if winner == nil {
		return nil, playerErr(CodePlayerNotFound, winnerID)
	}
	// A packed player is out of showdown candidacy.
	if st, ok := s.Hands[winnerID]; ok && st == models.HandPacked {
		return nil, playerErr(CodeInvalidWinner, winnerID)
	}

	ch := newChanges()
	settle(s, ch, winner)
	return ch, nil
}

// settle credits the committed pot to the winner and closes the game. Called
// with the game row already carrying every deduction of the hand, so the
// credited amount is read from it rather than recomputed.
func settle(s *TableState, ch *Changes, winner *models.Player) {
	g := s.Game
	ch.credit(winner, g.Pot)
	g.Status = models.GameCompleted
	g.CurrentTurnPlayerID = nil
	w := winner.ID
	g.WinnerID = &w
	ch.UpdateGame = g
	ch.WonBy = &w
	winner.GamesWon++
}
