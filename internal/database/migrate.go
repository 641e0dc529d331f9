// internal/database/migrate.go
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied on startup; every statement is idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	password TEXT NOT NULL,
	is_admin BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS lobbies (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	admin_user_id UUID NOT NULL REFERENCES users(id),
	boot_amount BIGINT NOT NULL,
	initial_wallet_amount BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS players (
	id UUID PRIMARY KEY,
	lobby_id UUID NOT NULL REFERENCES lobbies(id),
	user_id UUID NOT NULL REFERENCES users(id),
	name TEXT NOT NULL,
	turn_order INTEGER NOT NULL,
	wallet_balance BIGINT NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	games_won INTEGER NOT NULL DEFAULT 0,
	games_played INTEGER NOT NULL DEFAULT 0,
	UNIQUE (lobby_id, user_id),
	UNIQUE (lobby_id, name)
);

CREATE TABLE IF NOT EXISTS games (
	id UUID PRIMARY KEY,
	lobby_id UUID NOT NULL REFERENCES lobbies(id),
	status TEXT NOT NULL,
	pot BIGINT NOT NULL DEFAULT 0,
	current_stake BIGINT NOT NULL DEFAULT 0,
	current_turn_player_id UUID REFERENCES players(id),
	winner_id UUID REFERENCES players(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

-- At most one open game per lobby; startGame relies on this under the
-- lobby row lock and the schema backstops it.
CREATE UNIQUE INDEX IF NOT EXISTS games_open_lobby_idx
	ON games (lobby_id) WHERE status != 'COMPLETED';

CREATE TABLE IF NOT EXISTS game_players (
	game_id UUID NOT NULL REFERENCES games(id),
	player_id UUID NOT NULL REFERENCES players(id),
	status TEXT NOT NULL,
	PRIMARY KEY (game_id, player_id)
);

CREATE TABLE IF NOT EXISTS actions (
	id BIGSERIAL PRIMARY KEY,
	game_id UUID NOT NULL REFERENCES games(id),
	player_id UUID NOT NULL REFERENCES players(id),
	type TEXT NOT NULL,
	amount BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Migrate applies the schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
