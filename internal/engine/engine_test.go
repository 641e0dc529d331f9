// internal/engine/engine_test.go
package engine

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmehta/teenpatti/internal/models"
)

type testTable struct {
	eng     *Engine
	store   *memStore
	lobby   *models.Lobby
	admin   uuid.UUID
	players []*models.Player
}

// newTestTable seats n players with the given wallet in a fresh lobby.
func newTestTable(t *testing.T, n int, boot, wallet int64) *testTable {
	t.Helper()

	admin := uuid.New()
	lob := &models.Lobby{
		ID:            uuid.New(),
		Name:          "test-table",
		AdminUserID:   admin,
		BootAmount:    boot,
		InitialWallet: wallet,
	}

	var players []*models.Player
	for i := 0; i < n; i++ {
		players = append(players, &models.Player{
			ID:            uuid.New(),
			LobbyID:       lob.ID,
			UserID:        uuid.New(),
			TurnOrder:     i + 1,
			WalletBalance: wallet,
			IsActive:      true,
		})
	}

	store := newMemStore()
	store.add(&TableState{
		Lobby: lob,
		Seats: players,
		Hands: map[uuid.UUID]models.HandStatus{},
	})

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return &testTable{
		eng:     New(store, logger),
		store:   store,
		lobby:   lob,
		admin:   admin,
		players: players,
	}
}

func (tt *testTable) start(t *testing.T) *models.Game {
	t.Helper()
	game, err := tt.eng.StartGame(context.Background(), tt.lobby.ID, nil)
	require.NoError(t, err)
	return game
}

func (tt *testTable) act(t *testing.T, playerID uuid.UUID, action models.ActionType, raiseTo int64) *ActionResult {
	t.Helper()
	res, err := tt.eng.ApplyAction(context.Background(), tt.lobby.ID, playerID, action, raiseTo)
	require.NoError(t, err)
	return res
}

// totalMoney sums every wallet plus the open pot; it must never change
// across a single engine call.
func (tt *testTable) totalMoney() int64 {
	st := tt.store.state(tt.lobby.ID)
	var sum int64
	for _, p := range st.Seats {
		sum += p.WalletBalance
	}
	if st.Game != nil && st.Game.Open() {
		sum += st.Game.Pot
	}
	return sum
}

func requireRule(t *testing.T, err error, code Code) *RuleError {
	t.Helper()
	require.Error(t, err)
	re, ok := AsRuleError(err)
	require.True(t, ok, "expected *RuleError, got %v", err)
	require.Equal(t, code, re.Code)
	return re
}

func TestStartGameCollectsBoots(t *testing.T) {
	tt := newTestTable(t, 3, 100, 1000)
	game := tt.start(t)

	assert.EqualValues(t, 300, game.Pot)
	assert.EqualValues(t, 100, game.CurrentStake)
	assert.Equal(t, models.GameActive, game.Status)
	require.NotNil(t, game.CurrentTurnPlayerID)
	assert.Equal(t, tt.players[0].ID, *game.CurrentTurnPlayerID)

	st := tt.store.state(tt.lobby.ID)
	for _, p := range st.Seats {
		assert.EqualValues(t, 900, p.WalletBalance)
		assert.Equal(t, models.HandBlind, st.Hands[p.ID])
		assert.Equal(t, 1, p.GamesPlayed)
	}

	// The boots show up in the audit log so pot == sum of actions.
	actions := tt.store.gameActions(game.ID)
	require.Len(t, actions, 3)
	var sum int64
	for _, a := range actions {
		assert.Equal(t, models.ActionBlind, a.Type)
		sum += a.Amount
	}
	assert.Equal(t, game.Pot, sum)
}

func TestStartGameNotEnoughPlayers(t *testing.T) {
	tt := newTestTable(t, 1, 100, 1000)
	_, err := tt.eng.StartGame(context.Background(), tt.lobby.ID, nil)
	requireRule(t, err, CodeNotEnoughPlayers)
}

func TestStartGameUnknownLobby(t *testing.T) {
	tt := newTestTable(t, 2, 100, 1000)
	_, err := tt.eng.StartGame(context.Background(), uuid.New(), nil)
	requireRule(t, err, CodeLobbyNotFound)
}

func TestStartGameInsufficientFundsTouchesNothing(t *testing.T) {
	tt := newTestTable(t, 2, 500, 1000)
	poor := tt.players[1]
	// Drain one wallet below the boot.
	require.NoError(t, tt.store.Update(context.Background(), tt.lobby.ID, func(s *TableState) (*Changes, error) {
		ch := newChanges()
		ch.debit(s.Seat(poor.ID), 700)
		return ch, nil
	}))

	_, err := tt.eng.StartGame(context.Background(), tt.lobby.ID, nil)
	re := requireRule(t, err, CodeInsufficientFunds)
	assert.Equal(t, poor.ID, re.PlayerID)

	st := tt.store.state(tt.lobby.ID)
	assert.Nil(t, st.Game)
	assert.EqualValues(t, 1000, st.Seat(tt.players[0].ID).WalletBalance)
	assert.EqualValues(t, 300, st.Seat(poor.ID).WalletBalance)
}

func TestStartGameRejectsSecondGame(t *testing.T) {
	tt := newTestTable(t, 2, 100, 1000)
	tt.start(t)
	_, err := tt.eng.StartGame(context.Background(), tt.lobby.ID, nil)
	requireRule(t, err, CodeGameAlreadyActive)
}

func TestStartGameWithSeatingOrder(t *testing.T) {
	tt := newTestTable(t, 3, 100, 1000)
	seating := []uuid.UUID{tt.players[2].ID, tt.players[0].ID, tt.players[1].ID}

	game, err := tt.eng.StartGame(context.Background(), tt.lobby.ID, seating)
	require.NoError(t, err)
	require.NotNil(t, game.CurrentTurnPlayerID)
	assert.Equal(t, tt.players[2].ID, *game.CurrentTurnPlayerID)

	st := tt.store.state(tt.lobby.ID)
	assert.Equal(t, 1, st.Seat(tt.players[2].ID).TurnOrder)
	assert.Equal(t, 2, st.Seat(tt.players[0].ID).TurnOrder)
	assert.Equal(t, 3, st.Seat(tt.players[1].ID).TurnOrder)
}

func TestStartGameRejectsBadSeating(t *testing.T) {
	tt := newTestTable(t, 3, 100, 1000)

	// Too short.
	_, err := tt.eng.StartGame(context.Background(), tt.lobby.ID,
		[]uuid.UUID{tt.players[0].ID, tt.players[1].ID})
	requireRule(t, err, CodeInvalidSeating)

	// Duplicate entry.
	_, err = tt.eng.StartGame(context.Background(), tt.lobby.ID,
		[]uuid.UUID{tt.players[0].ID, tt.players[0].ID, tt.players[1].ID})
	requireRule(t, err, CodeInvalidSeating)

	// Stranger.
	_, err = tt.eng.StartGame(context.Background(), tt.lobby.ID,
		[]uuid.UUID{tt.players[0].ID, tt.players[1].ID, uuid.New()})
	requireRule(t, err, CodeInvalidSeating)
}

func TestActionRequiresActiveGame(t *testing.T) {
	tt := newTestTable(t, 2, 100, 1000)
	_, err := tt.eng.ApplyAction(context.Background(), tt.lobby.ID, tt.players[0].ID, models.ActionBlind, 0)
	requireRule(t, err, CodeNoActiveGame)
}

func TestActionRejectsOutOfTurn(t *testing.T) {
	tt := newTestTable(t, 3, 100, 1000)
	tt.start(t)
	before := tt.store.state(tt.lobby.ID)

	_, err := tt.eng.ApplyAction(context.Background(), tt.lobby.ID, tt.players[1].ID, models.ActionBlind, 0)
	requireRule(t, err, CodeNotYourTurn)

	after := tt.store.state(tt.lobby.ID)
	assert.Equal(t, before.Game.Pot, after.Game.Pot)
	assert.Equal(t, before.Seat(tt.players[1].ID).WalletBalance, after.Seat(tt.players[1].ID).WalletBalance)
	assert.Equal(t, *before.Game.CurrentTurnPlayerID, *after.Game.CurrentTurnPlayerID)
}

func TestBlindActionDeductsBoot(t *testing.T) {
	tt := newTestTable(t, 3, 100, 1000)
	tt.start(t)

	res := tt.act(t, tt.players[0].ID, models.ActionBlind, 0)
	assert.EqualValues(t, 100, res.AppliedDeduction)
	require.NotNil(t, res.NextActorID)
	assert.Equal(t, tt.players[1].ID, *res.NextActorID)

	st := tt.store.state(tt.lobby.ID)
	assert.EqualValues(t, 400, st.Game.Pot)
	assert.EqualValues(t, 100, st.Game.CurrentStake)
	assert.Equal(t, models.HandBlind, st.Hands[tt.players[0].ID])
	assert.EqualValues(t, 800, st.Seat(tt.players[0].ID).WalletBalance)
}

func TestSeenBetMarksPlayerSeen(t *testing.T) {
	tt := newTestTable(t, 3, 100, 1000)
	tt.start(t)

	res := tt.act(t, tt.players[0].ID, models.ActionSeenBet, 0)
	assert.EqualValues(t, 100, res.AppliedDeduction)

	st := tt.store.state(tt.lobby.ID)
	assert.Equal(t, models.HandSeen, st.Hands[tt.players[0].ID])
	assert.EqualValues(t, 100, st.Game.CurrentStake, "a seen bet does not move the stake")
}

func TestRaiseValidation(t *testing.T) {
	tt := newTestTable(t, 3, 100, 1000)
	tt.start(t)

	_, err := tt.eng.ApplyAction(context.Background(), tt.lobby.ID, tt.players[0].ID, models.ActionRaise, 100)
	requireRule(t, err, CodeInvalidRaise)
	_, err = tt.eng.ApplyAction(context.Background(), tt.lobby.ID, tt.players[0].ID, models.ActionRaise, 50)
	requireRule(t, err, CodeInvalidRaise)

	res := tt.act(t, tt.players[0].ID, models.ActionRaise, 150)
	assert.EqualValues(t, 150, res.AppliedDeduction)

	st := tt.store.state(tt.lobby.ID)
	assert.EqualValues(t, 150, st.Game.CurrentStake)
	assert.Equal(t, models.HandSeen, st.Hands[tt.players[0].ID])
	// 1000 - 100 boot - 150 raise.
	assert.EqualValues(t, 750, st.Seat(tt.players[0].ID).WalletBalance)
}

func TestActionInsufficientFunds(t *testing.T) {
	tt := newTestTable(t, 2, 100, 1000)
	tt.start(t)

	_, err := tt.eng.ApplyAction(context.Background(), tt.lobby.ID, tt.players[0].ID, models.ActionRaise, 5000)
	re := requireRule(t, err, CodeInsufficientFunds)
	assert.Equal(t, tt.players[0].ID, re.PlayerID)

	st := tt.store.state(tt.lobby.ID)
	assert.EqualValues(t, 900, st.Seat(tt.players[0].ID).WalletBalance)
	assert.EqualValues(t, 200, st.Game.Pot)
}

func TestFoldRotatesPastPackedPlayers(t *testing.T) {
	tt := newTestTable(t, 4, 100, 1000)
	tt.start(t)

	res := tt.act(t, tt.players[0].ID, models.ActionFold, 0)
	assert.EqualValues(t, 0, res.AppliedDeduction)
	require.NotNil(t, res.NextActorID)
	assert.Equal(t, tt.players[1].ID, *res.NextActorID)

	tt.act(t, tt.players[1].ID, models.ActionBlind, 0)
	res = tt.act(t, tt.players[2].ID, models.ActionBlind, 0)

	// Rotation wraps past the packed player 1 back to player 4... then 2.
	require.NotNil(t, res.NextActorID)
	assert.Equal(t, tt.players[3].ID, *res.NextActorID)
	res = tt.act(t, tt.players[3].ID, models.ActionBlind, 0)
	require.NotNil(t, res.NextActorID)
	assert.Equal(t, tt.players[1].ID, *res.NextActorID)
}

// TestAutoWinByElimination plays the canonical 3-player script: two folds
// leave one survivor who takes the pot without a showdown.
func TestAutoWinByElimination(t *testing.T) {
	tt := newTestTable(t, 3, 100, 1000)
	tt.start(t)

	res := tt.act(t, tt.players[0].ID, models.ActionFold, 0)
	assert.EqualValues(t, 0, res.AppliedDeduction)
	assert.False(t, res.GameEnded)
	assert.Equal(t, tt.players[1].ID, *res.NextActorID)

	res = tt.act(t, tt.players[1].ID, models.ActionFold, 0)
	assert.True(t, res.GameEnded)
	require.NotNil(t, res.WinnerID)
	assert.Equal(t, tt.players[2].ID, *res.WinnerID)
	assert.EqualValues(t, 300, res.Pot)
	assert.Nil(t, res.NextActorID)

	st := tt.store.state(tt.lobby.ID)
	assert.Nil(t, st.Game, "no open game after completion")
	winner := st.Seat(tt.players[2].ID)
	assert.EqualValues(t, 1200, winner.WalletBalance, "1000 - 100 boot + 300 pot")
	assert.Equal(t, 1, winner.GamesWon)

	// Completed game no longer accepts actions.
	_, err := tt.eng.ApplyAction(context.Background(), tt.lobby.ID, tt.players[2].ID, models.ActionBlind, 0)
	requireRule(t, err, CodeNoActiveGame)
}

func TestShowFreezesGameForAdjudication(t *testing.T) {
	tt := newTestTable(t, 3, 100, 1000)
	game := tt.start(t)

	res := tt.act(t, tt.players[0].ID, models.ActionShow, 0)
	assert.EqualValues(t, 100, res.AppliedDeduction)
	assert.False(t, res.GameEnded)
	assert.Nil(t, res.NextActorID)

	st := tt.store.state(tt.lobby.ID)
	assert.Equal(t, models.GameShowPending, st.Game.Status)
	assert.Nil(t, st.Game.CurrentTurnPlayerID)

	// Betting is over.
	_, err := tt.eng.ApplyAction(context.Background(), tt.lobby.ID, tt.players[1].ID, models.ActionBlind, 0)
	requireRule(t, err, CodeNoActiveGame)

	// Admin resolves the showdown; winner gets the committed pot.
	lobbyID, err := tt.eng.EndGame(context.Background(), game.ID, tt.admin, tt.players[1].ID)
	require.NoError(t, err)
	assert.Equal(t, tt.lobby.ID, lobbyID)

	st = tt.store.state(tt.lobby.ID)
	assert.Nil(t, st.Game)
	assert.EqualValues(t, 1300, st.Seat(tt.players[1].ID).WalletBalance, "1000 - 100 boot + 400 pot")
	assert.Equal(t, 1, st.Seat(tt.players[1].ID).GamesWon)
}

func TestEndGameRequiresAdmin(t *testing.T) {
	tt := newTestTable(t, 2, 100, 1000)
	game := tt.start(t)

	_, err := tt.eng.EndGame(context.Background(), game.ID, uuid.New(), tt.players[0].ID)
	requireRule(t, err, CodeForbidden)
}

func TestEndGameUnknownGame(t *testing.T) {
	tt := newTestTable(t, 2, 100, 1000)
	tt.start(t)

	_, err := tt.eng.EndGame(context.Background(), uuid.New(), tt.admin, tt.players[0].ID)
	requireRule(t, err, CodeActiveGameNotFound)
}

func TestEndGameRejectsPackedWinner(t *testing.T) {
	tt := newTestTable(t, 3, 100, 1000)
	game := tt.start(t)
	tt.act(t, tt.players[0].ID, models.ActionFold, 0)

	_, err := tt.eng.EndGame(context.Background(), game.ID, tt.admin, tt.players[0].ID)
	requireRule(t, err, CodeInvalidWinner)
}

func TestEndGameRejectsStrangerWinner(t *testing.T) {
	tt := newTestTable(t, 2, 100, 1000)
	game := tt.start(t)

	_, err := tt.eng.EndGame(context.Background(), game.ID, tt.admin, uuid.New())
	requireRule(t, err, CodePlayerNotFound)
}

// TestWalletConservation runs a full hand and checks, after every step, that
// money is neither created nor destroyed and that the pot always equals the
// sum of the audit log amounts.
func TestWalletConservation(t *testing.T) {
	tt := newTestTable(t, 4, 100, 1000)
	initial := tt.totalMoney()

	game := tt.start(t)
	checkConserved := func() {
		t.Helper()
		assert.Equal(t, initial, tt.totalMoney())

		st := tt.store.state(tt.lobby.ID)
		if st.Game == nil || !st.Game.Open() {
			return
		}
		var sum int64
		for _, a := range tt.store.gameActions(game.ID) {
			sum += a.Amount
		}
		assert.Equal(t, st.Game.Pot, sum, "pot must equal the action log total")
	}
	checkConserved()

	steps := []struct {
		player  int
		action  models.ActionType
		raiseTo int64
	}{
		{0, models.ActionBlind, 0},
		{1, models.ActionSeenBet, 0},
		{2, models.ActionRaise, 250},
		{3, models.ActionFold, 0},
		{0, models.ActionFold, 0},
		{1, models.ActionShow, 0},
	}
	for _, step := range steps {
		tt.act(t, tt.players[step.player].ID, step.action, step.raiseTo)
		checkConserved()
	}

	_, err := tt.eng.EndGame(context.Background(), game.ID, tt.admin, tt.players[2].ID)
	require.NoError(t, err)
	checkConserved()

	// No wallet ever went negative along the way.
	st := tt.store.state(tt.lobby.ID)
	for _, p := range st.Seats {
		assert.GreaterOrEqual(t, p.WalletBalance, int64(0))
	}
}

func TestViewIsIdempotent(t *testing.T) {
	tt := newTestTable(t, 3, 100, 1000)
	tt.start(t)
	tt.act(t, tt.players[0].ID, models.ActionFold, 0)

	v1, err := tt.eng.View(context.Background(), tt.lobby.ID)
	require.NoError(t, err)
	v2, err := tt.eng.View(context.Background(), tt.lobby.ID)
	require.NoError(t, err)
	assert.Equal(t, v1, v2)

	assert.Equal(t, models.HandPacked, v1.Players[0].Status)
	require.NotNil(t, v1.Game)
}

func TestViewDefaultsToBlindBetweenGames(t *testing.T) {
	tt := newTestTable(t, 2, 100, 1000)

	v, err := tt.eng.View(context.Background(), tt.lobby.ID)
	require.NoError(t, err)
	assert.Nil(t, v.Game)
	for _, p := range v.Players {
		assert.Equal(t, models.HandBlind, p.Status)
	}
}

func TestOnStateChangedFiresAfterCommitOnly(t *testing.T) {
	tt := newTestTable(t, 2, 100, 1000)

	var fired int
	tt.eng.OnStateChanged = func(ctx context.Context, lobbyID uuid.UUID) {
		assert.Equal(t, tt.lobby.ID, lobbyID)
		fired++
	}

	tt.start(t)
	assert.Equal(t, 1, fired)

	// A rejected action must not notify anyone.
	_, err := tt.eng.ApplyAction(context.Background(), tt.lobby.ID, tt.players[1].ID, models.ActionBlind, 0)
	requireRule(t, err, CodeNotYourTurn)
	assert.Equal(t, 1, fired)

	tt.act(t, tt.players[0].ID, models.ActionBlind, 0)
	assert.Equal(t, 2, fired)
}
