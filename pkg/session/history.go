package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// History is the append-only conversation memory for one session
// identifier. Entries are opaque JSON blobs; the store never inspects them.
type History interface {
	Append(ctx context.Context, entries ...[]byte) error
	Load(ctx context.Context) ([][]byte, error)
	Close() error
}

// MemoryHistory keeps the conversation in process memory. Used when no
// Redis address is configured; the conversation then lasts as long as the
// process does.
type MemoryHistory struct {
	mu      sync.RWMutex
	entries [][]byte
}

// NewMemoryHistory creates an empty in-memory history.
func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{}
}

func (h *MemoryHistory) Append(ctx context.Context, entries ...[]byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, e := range entries {
		cp := make([]byte, len(e))
		copy(cp, e)
		h.entries = append(h.entries, cp)
	}
	return nil
}

func (h *MemoryHistory) Load(ctx context.Context) ([][]byte, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([][]byte, len(h.entries))
	copy(out, h.entries)
	return out, nil
}

func (h *MemoryHistory) Close() error { return nil }

// RedisHistory persists the conversation in a Redis list so the session
// survives restarts under the same session identifier.
type RedisHistory struct {
	client *redis.Client
	key    string
}

// RedisConfig configures the Redis-backed history.
type RedisConfig struct {
	Address   string
	Password  string
	DB        int
	SessionID string
}

const keyPrefix = "adforge:session:"

// NewRedisHistory connects to Redis and verifies the connection.
func NewRedisHistory(ctx context.Context, cfg *RedisConfig) (*RedisHistory, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisHistory{
		client: client,
		key:    keyPrefix + cfg.SessionID,
	}, nil
}

func (h *RedisHistory) Append(ctx context.Context, entries ...[]byte) error {
	if len(entries) == 0 {
		return nil
	}
	vals := make([]interface{}, len(entries))
	for i, e := range entries {
		vals[i] = e
	}
	if err := h.client.RPush(ctx, h.key, vals...).Err(); err != nil {
		return fmt.Errorf("failed to append session history: %w", err)
	}
	return nil
}

func (h *RedisHistory) Load(ctx context.Context) ([][]byte, error) {
	raw, err := h.client.LRange(ctx, h.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load session history: %w", err)
	}
	out := make([][]byte, len(raw))
	for i, s := range raw {
		out[i] = []byte(s)
	}
	return out, nil
}

func (h *RedisHistory) Close() error {
	return h.client.Close()
}
