// internal/database/lobby.go
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kmehta/teenpatti/internal/engine"
	"github.com/kmehta/teenpatti/internal/models"
)

// ErrNameTaken is returned when a lobby name or an in-lobby player name is
// already in use.
var ErrNameTaken = errors.New("name already taken")

// CreateLobby inserts the lobby and seats its admin as player 1 with the
// initial wallet, in one transaction.
func (s *Store) CreateLobby(ctx context.Context, lobby *models.Lobby) (*models.Player, error) {
	if lobby.ID == uuid.Nil {
		lobby.ID = uuid.New()
	}
	lobby.CreatedAt = time.Now().UTC()

	admin, err := s.GetUserByID(ctx, lobby.AdminUserID)
	if err != nil {
		return nil, fmt.Errorf("admin user lookup failed: %w", err)
	}

	seat := &models.Player{
		ID:            uuid.New(),
		LobbyID:       lobby.ID,
		UserID:        admin.ID,
		Name:          admin.Name,
		TurnOrder:     1,
		WalletBalance: lobby.InitialWallet,
		IsActive:      true,
	}

	err = pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
		INSERT INTO lobbies (id, name, admin_user_id, boot_amount, initial_wallet_amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
			lobby.ID, lobby.Name, lobby.AdminUserID, lobby.BootAmount, lobby.InitialWallet, lobby.CreatedAt,
		); err != nil {
			return err
		}
		return insertPlayer(ctx, tx, seat)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrNameTaken
		}
		return nil, fmt.Errorf("failed to create lobby: %w", err)
	}
	return seat, nil
}

// JoinLobby seats a user in the lobby identified by id or name. Joining a
// lobby you already sit in returns your existing seat. Player names are
// unique per lobby; an empty playerName falls back to the user's name.
func (s *Store) JoinLobby(ctx context.Context, identifier string, userID uuid.UUID, playerName string) (*models.Player, *models.Lobby, error) {
	var (
		seat  *models.Player
		lobby *models.Lobby
	)
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		l, err := findLobby(ctx, tx, identifier)
		if err != nil {
			return err
		}
		lobby = l

		// Already seated?
		existing, err := playerByUser(ctx, tx, l.ID, userID)
		if err == nil {
			seat = existing
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		if playerName == "" {
			if err := tx.QueryRow(ctx,
				`SELECT name FROM users WHERE id = $1`, userID,
			).Scan(&playerName); err != nil {
				return fmt.Errorf("user lookup failed: %w", err)
			}
		}

		var nextOrder int
		if err := tx.QueryRow(ctx,
			`SELECT COALESCE(MAX(turn_order), 0) + 1 FROM players WHERE lobby_id = $1`, l.ID,
		).Scan(&nextOrder); err != nil {
			return err
		}

		seat = &models.Player{
			ID:            uuid.New(),
			LobbyID:       l.ID,
			UserID:        userID,
			Name:          playerName,
			TurnOrder:     nextOrder,
			WalletBalance: l.InitialWallet,
			IsActive:      true,
		}
		return insertPlayer(ctx, tx, seat)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, nil, ErrNameTaken
		}
		return nil, nil, err
	}
	return seat, lobby, nil
}

// LobbiesByAdmin lists the lobbies administered by the user, newest first.
func (s *Store) LobbiesByAdmin(ctx context.Context, userID uuid.UUID) ([]models.Lobby, error) {
	rows, err := s.pool.Query(ctx, `
	SELECT id, name, admin_user_id, boot_amount, initial_wallet_amount, created_at
	FROM lobbies
	WHERE admin_user_id = $1
	ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lobbies []models.Lobby
	for rows.Next() {
		var l models.Lobby
		if err := rows.Scan(&l.ID, &l.Name, &l.AdminUserID, &l.BootAmount, &l.InitialWallet, &l.CreatedAt); err != nil {
			return nil, err
		}
		lobbies = append(lobbies, l)
	}
	return lobbies, rows.Err()
}

// DeleteLobby removes the lobby and everything under it. Admin only.
func (s *Store) DeleteLobby(ctx context.Context, lobbyID, userID uuid.UUID) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var adminID uuid.UUID
		err := tx.QueryRow(ctx,
			`SELECT admin_user_id FROM lobbies WHERE id = $1 FOR UPDATE`, lobbyID,
		).Scan(&adminID)
		if errors.Is(err, pgx.ErrNoRows) {
			return &engine.RuleError{Code: engine.CodeLobbyNotFound}
		}
		if err != nil {
			return err
		}
		if adminID != userID {
			return &engine.RuleError{Code: engine.CodeForbidden}
		}

		// Children first: actions -> game_players -> games -> players.
		if _, err := tx.Exec(ctx,
			`DELETE FROM actions WHERE game_id IN (SELECT id FROM games WHERE lobby_id = $1)`, lobbyID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM game_players WHERE game_id IN (SELECT id FROM games WHERE lobby_id = $1)`, lobbyID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM games WHERE lobby_id = $1`, lobbyID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM players WHERE lobby_id = $1`, lobbyID); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `DELETE FROM lobbies WHERE id = $1`, lobbyID)
		return err
	})
}

func findLobby(ctx context.Context, tx pgx.Tx, identifier string) (*models.Lobby, error) {
	q := `
	SELECT id, name, admin_user_id, boot_amount, initial_wallet_amount, created_at
	FROM lobbies
	WHERE `
	var row pgx.Row
	if id, err := uuid.Parse(identifier); err == nil {
		row = tx.QueryRow(ctx, q+`id = $1`, id)
	} else {
		row = tx.QueryRow(ctx, q+`name = $1`, identifier)
	}

	var l models.Lobby
	err := row.Scan(&l.ID, &l.Name, &l.AdminUserID, &l.BootAmount, &l.InitialWallet, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &engine.RuleError{Code: engine.CodeLobbyNotFound}
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func playerByUser(ctx context.Context, tx pgx.Tx, lobbyID, userID uuid.UUID) (*models.Player, error) {
	var p models.Player
	err := tx.QueryRow(ctx, `
	SELECT id, lobby_id, user_id, name, turn_order, wallet_balance, is_active, games_won, games_played
	FROM players
	WHERE lobby_id = $1 AND user_id = $2`, lobbyID, userID,
	).Scan(&p.ID, &p.LobbyID, &p.UserID, &p.Name, &p.TurnOrder,
		&p.WalletBalance, &p.IsActive, &p.GamesWon, &p.GamesPlayed)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func insertPlayer(ctx context.Context, tx pgx.Tx, p *models.Player) error {
	_, err := tx.Exec(ctx, `
	INSERT INTO players (id, lobby_id, user_id, name, turn_order, wallet_balance, is_active, games_won, games_played)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.LobbyID, p.UserID, p.Name, p.TurnOrder, p.WalletBalance, p.IsActive, p.GamesWon, p.GamesPlayed)
	return err
}
