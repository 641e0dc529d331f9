// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list external consumers (dashboards, audit
// archivers) drain game events from.
var DefaultQueueName = "teenpatti_events"

// GameEvent is the record pushed after every committed mutation. Pot and
// winner repeat what the broadcast view carries so queue consumers need no
// database access.
type GameEvent struct {
	LobbyID   uuid.UUID  `json:"lobby_id"`
	GameID    uuid.UUID  `json:"game_id,omitempty"`
	Kind      string     `json:"kind"` // "started", "action", "ended"
	PlayerID  uuid.UUID  `json:"player_id,omitempty"`
	Action    string     `json:"action,omitempty"`
	Amount    int64      `json:"amount,omitempty"`
	Pot       int64      `json:"pot,omitempty"`
	WinnerID  *uuid.UUID `json:"winner_id,omitempty"`
	Timestamp int64      `json:"timestamp"`
}

// Publisher pushes game events onto a Redis queue. A nil Publisher is a
// no-op so the service runs without Redis configured.
type Publisher struct {
	rdb   *redis.Client
	queue string
}

// Connect initializes the Redis client from REDIS_ADDR / REDIS_DB and pings
// it.
func Connect() (*Publisher, error) {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	return &Publisher{
		rdb:   rdb,
		queue: getEnv("EVENT_QUEUE_NAME", DefaultQueueName),
	}, nil
}

// Publish serializes the event and RPUSHes it. Events are best-effort side
// effects: callers log failures but never roll a game mutation back over
// them.
func (p *Publisher) Publish(ctx context.Context, ev GameEvent) error {
	if p == nil {
		return nil
	}
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().Unix()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal GameEvent: %w", err)
	}
	if err := p.rdb.RPush(ctx, p.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", p.queue, err)
	}
	return nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
