// internal/engine/engine.go
//
// Package engine is the game session state machine: it enforces turn order
// and betting legality for the lobby's open game, moves money between the
// wallets and the pot atomically, detects termination by elimination, and
// accepts the admin's showdown resolution.
//
// All rules are pure functions over a TableState snapshot; the Engine wires
// them to a Store that provides per-lobby exclusive transactions, so exactly
// one mutation is in flight per lobby at a time and each either fully commits
// or fully rolls back.
package engine

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kmehta/teenpatti/internal/models"
)

type Engine struct {
	store Store
	log   logrus.FieldLogger

	// OnStateChanged, when set, runs after every successfully committed
	// mutation. Transports hang their broadcast fan-out here; the engine
	// itself performs no network I/O.
	OnStateChanged func(ctx context.Context, lobbyID uuid.UUID)
}

func New(store Store, log logrus.FieldLogger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{store: store, log: log}
}

// StartGame opens a new game for the lobby: boots collected, pot seeded,
// first turn assigned. seating optionally rewrites the rotation first.
func (e *Engine) StartGame(ctx context.Context, lobbyID uuid.UUID, seating []uuid.UUID) (*models.Game, error) {
	var game *models.Game
	err := e.store.Update(ctx, lobbyID, func(s *TableState) (*Changes, error) {
		g, ch, err := startGame(s, seating)
		if err != nil {
			return nil, err
		}
		game = g
		return ch, nil
	})
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"lobby_id": lobbyID,
		"game_id":  game.ID,
		"pot":      game.Pot,
	}).Info("game started")
	e.stateChanged(ctx, lobbyID)
	return game, nil
}

// ApplyAction validates and applies one betting action for the lobby's
// active game.
func (e *Engine) ApplyAction(ctx context.Context, lobbyID, playerID uuid.UUID, action models.ActionType, raiseTo int64) (*ActionResult, error) {
	var res *ActionResult
	err := e.store.Update(ctx, lobbyID, func(s *TableState) (*Changes, error) {
		r, ch, err := applyAction(s, playerID, action, raiseTo)
		if err != nil {
			return nil, err
		}
		res = r
		return ch, nil
	})
	if err != nil {
		return nil, err
	}

	fields := logrus.Fields{
		"lobby_id":  lobbyID,
		"game_id":   res.GameID,
		"player_id": playerID,
		"action":    action,
		"amount":    res.AppliedDeduction,
	}
	if res.GameEnded {
		fields["winner_id"] = res.WinnerID
		fields["pot"] = res.Pot
		e.log.WithFields(fields).Info("game ended by elimination")
	} else {
		e.log.WithFields(fields).Debug("action applied")
	}
	e.stateChanged(ctx, lobbyID)
	return res, nil
}

// EndGame applies the lobby admin's showdown decision: the named winner is
// credited the pot and the game completes. Returns the game's lobby so
// callers addressing by game ID can report it.
func (e *Engine) EndGame(ctx context.Context, gameID, adminUserID, winnerID uuid.UUID) (uuid.UUID, error) {
	lobbyID, err := e.store.GameLobby(ctx, gameID)
	if err != nil {
		return uuid.Nil, err
	}

	err = e.store.Update(ctx, lobbyID, func(s *TableState) (*Changes, error) {
		return endGame(s, gameID, adminUserID, winnerID)
	})
	if err != nil {
		return uuid.Nil, err
	}

	e.log.WithFields(logrus.Fields{
		"lobby_id":  lobbyID,
		"game_id":   gameID,
		"winner_id": winnerID,
	}).Info("game ended by showdown")
	e.stateChanged(ctx, lobbyID)
	return lobbyID, nil
}

// View returns the canonical lobby state handed to observers. Pure read; no
// lock beyond the store's point-in-time snapshot.
func (e *Engine) View(ctx context.Context, lobbyID uuid.UUID) (*TableView, error) {
	s, err := e.store.Load(ctx, lobbyID)
	if err != nil {
		return nil, err
	}
	return buildView(s), nil
}

func (e *Engine) stateChanged(ctx context.Context, lobbyID uuid.UUID) {
	if e.OnStateChanged != nil {
		e.OnStateChanged(ctx, lobbyID)
	}
}
