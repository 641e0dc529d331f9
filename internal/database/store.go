// internal/database/store.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kmehta/teenpatti/internal/engine"
	"github.com/kmehta/teenpatti/internal/models"
)

// Store backs the engine with Postgres. Mutations take a row lock on the
// lobby, which serializes every start/action/end for that lobby against each
// other (one open game per lobby makes the lobby row the session lock) while
// leaving other lobbies uncontended.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Update implements engine.Store. fn runs with the lobby locked FOR UPDATE;
// an error from fn (rule violations included) rolls everything back and is
// returned unchanged.
func (s *Store) Update(ctx context.Context, lobbyID uuid.UUID, fn func(*engine.TableState) (*engine.Changes, error)) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		state, err := loadState(ctx, tx, lobbyID, true)
		if err != nil {
			return err
		}
		changes, err := fn(state)
		if err != nil {
			return err
		}
		return persist(ctx, tx, state, changes)
	})
}

// Load implements engine.Store: a point-in-time consistent snapshot, no
// lock. A single read transaction gives the idempotent-view guarantee.
func (s *Store) Load(ctx context.Context, lobbyID uuid.UUID) (*engine.TableState, error) {
	var state *engine.TableState
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		var e error
		state, e = loadState(ctx, tx, lobbyID, false)
		return e
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// GameLobby implements engine.Store.
func (s *Store) GameLobby(ctx context.Context, gameID uuid.UUID) (uuid.UUID, error) {
	var lobbyID uuid.UUID
	err := s.pool.QueryRow(ctx,
		`SELECT lobby_id FROM games WHERE id = $1`, gameID,
	).Scan(&lobbyID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, &engine.RuleError{Code: engine.CodeActiveGameNotFound}
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to resolve game %s: %w", gameID, err)
	}
	return lobbyID, nil
}

func loadState(ctx context.Context, tx pgx.Tx, lobbyID uuid.UUID, forUpdate bool) (*engine.TableState, error) {
	lobbyQ := `
	SELECT id, name, admin_user_id, boot_amount, initial_wallet_amount, created_at
	FROM lobbies
	WHERE id = $1`
	if forUpdate {
		lobbyQ += ` FOR UPDATE`
	}

	var l models.Lobby
	err := tx.QueryRow(ctx, lobbyQ, lobbyID).Scan(
		&l.ID, &l.Name, &l.AdminUserID, &l.BootAmount, &l.InitialWallet, &l.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &engine.RuleError{Code: engine.CodeLobbyNotFound}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load lobby %s: %w", lobbyID, err)
	}

	seats, err := lobbyPlayers(ctx, tx, lobbyID)
	if err != nil {
		return nil, err
	}

	state := &engine.TableState{
		Lobby: &l,
		Seats: seats,
		Hands: map[uuid.UUID]models.HandStatus{},
	}

	var g models.Game
	err = tx.QueryRow(ctx, `
	SELECT id, lobby_id, status, pot, current_stake, current_turn_player_id, winner_id, created_at
	FROM games
	WHERE lobby_id = $1 AND status != 'COMPLETED'`, lobbyID,
	).Scan(&g.ID, &g.LobbyID, &g.Status, &g.Pot, &g.CurrentStake, &g.CurrentTurnPlayerID, &g.WinnerID, &g.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load open game for lobby %s: %w", lobbyID, err)
	}
	state.Game = &g

	rows, err := tx.Query(ctx,
		`SELECT player_id, status FROM game_players WHERE game_id = $1`, g.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load game players for game %s: %w", g.ID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var pid uuid.UUID
		var st models.HandStatus
		if err := rows.Scan(&pid, &st); err != nil {
			return nil, err
		}
		state.Hands[pid] = st
	}
	return state, rows.Err()
}

func lobbyPlayers(ctx context.Context, tx pgx.Tx, lobbyID uuid.UUID) ([]*models.Player, error) {
	rows, err := tx.Query(ctx, `
	SELECT id, lobby_id, user_id, name, turn_order, wallet_balance, is_active, games_won, games_played
	FROM players
	WHERE lobby_id = $1
	ORDER BY turn_order ASC`, lobbyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load players for lobby %s: %w", lobbyID, err)
	}
	defer rows.Close()

	var players []*models.Player
	for rows.Next() {
		var p models.Player
		if err := rows.Scan(
			&p.ID, &p.LobbyID, &p.UserID, &p.Name, &p.TurnOrder,
			&p.WalletBalance, &p.IsActive, &p.GamesWon, &p.GamesPlayed,
		); err != nil {
			return nil, err
		}
		players = append(players, &p)
	}
	return players, rows.Err()
}

// persist writes every recorded change inside the caller's transaction.
// Seating first, then the game row (actions and hand statuses reference it),
// then money and counters.
func persist(ctx context.Context, tx pgx.Tx, state *engine.TableState, ch *engine.Changes) error {
	for playerID, ord := range ch.SetTurnOrder {
		if _, err := tx.Exec(ctx,
			`UPDATE players SET turn_order = $1 WHERE id = $2 AND lobby_id = $3`,
			ord, playerID, state.Lobby.ID,
		); err != nil {
			return fmt.Errorf("failed to update turn order: %w", err)
		}
	}

	if g := ch.InsertGame; g != nil {
		if _, err := tx.Exec(ctx, `
		INSERT INTO games (id, lobby_id, status, pot, current_stake, current_turn_player_id, winner_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			g.ID, g.LobbyID, g.Status, g.Pot, g.CurrentStake, g.CurrentTurnPlayerID, g.WinnerID, g.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert game: %w", err)
		}
	}
	if g := ch.UpdateGame; g != nil {
		if _, err := tx.Exec(ctx, `
		UPDATE games
		SET pot = $1, current_stake = $2, status = $3, current_turn_player_id = $4, winner_id = $5
		WHERE id = $6`,
			g.Pot, g.CurrentStake, g.Status, g.CurrentTurnPlayerID, g.WinnerID, g.ID,
		); err != nil {
			return fmt.Errorf("failed to update game: %w", err)
		}
	}

	gameID := uuid.Nil
	if state.Game != nil {
		gameID = state.Game.ID
	}
	for playerID, st := range ch.SetHands {
		if _, err := tx.Exec(ctx, `
		INSERT INTO game_players (game_id, player_id, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (game_id, player_id) DO UPDATE SET status = EXCLUDED.status`,
			gameID, playerID, st,
		); err != nil {
			return fmt.Errorf("failed to upsert game player: %w", err)
		}
	}

	for playerID, delta := range ch.WalletDeltas {
		if _, err := tx.Exec(ctx,
			`UPDATE players SET wallet_balance = wallet_balance + $1 WHERE id = $2`,
			delta, playerID,
		); err != nil {
			return fmt.Errorf("failed to adjust wallet: %w", err)
		}
	}

	for _, a := range ch.AppendActions {
		if _, err := tx.Exec(ctx,
			`INSERT INTO actions (game_id, player_id, type, amount) VALUES ($1, $2, $3, $4)`,
			a.GameID, a.PlayerID, a.Type, a.Amount,
		); err != nil {
			return fmt.Errorf("failed to append action: %w", err)
		}
	}

	if ch.WonBy != nil {
		if _, err := tx.Exec(ctx,
			`UPDATE players SET games_won = games_won + 1 WHERE id = $1`, *ch.WonBy,
		); err != nil {
			return fmt.Errorf("failed to bump games_won: %w", err)
		}
	}
	for _, playerID := range ch.PlayedBy {
		if _, err := tx.Exec(ctx,
			`UPDATE players SET games_played = games_played + 1 WHERE id = $1`, playerID,
		); err != nil {
			return fmt.Errorf("failed to bump games_played: %w", err)
		}
	}
	return nil
}
