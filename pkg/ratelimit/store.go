package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists budget state per API host.
type Store interface {
	// Load returns the state for scope, or nil when nothing was recorded.
	Load(ctx context.Context, scope string) (*BudgetState, error)

	// Save records the state for scope.
	Save(ctx context.Context, scope string, state *BudgetState) error
}

// RedisStore shares budget state between processes through Redis.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a Redis backed store.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{redis: redisClient}
}

func keyRemaining(scope string) string  { return KeyPrefix + scope + ":remaining" }
func keyReset(scope string) string      { return KeyPrefix + scope + ":reset_timestamp" }
func keyLastUpdate(scope string) string { return KeyPrefix + scope + ":last_update" }

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context, scope string) (*BudgetState, error) {
	remaining, err := s.redis.Get(ctx, keyRemaining(scope)).Int()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get remaining: %w", err)
	}

	resetTimestamp, err := s.redis.Get(ctx, keyReset(scope)).Int64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get reset timestamp: %w", err)
	}

	lastUpdateStr, err := s.redis.Get(ctx, keyLastUpdate(scope)).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get last update: %w", err)
	}

	var lastUpdate time.Time
	if lastUpdateStr != "" {
		if err := json.Unmarshal([]byte(lastUpdateStr), &lastUpdate); err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
	}

	state := &BudgetState{
		Remaining:  remaining,
		ResetAt:    time.Unix(resetTimestamp, 0),
		LastUpdate: lastUpdate,
	}
	state.UpdateHealth()
	return state, nil
}

// Save implements Store. Keys expire with the window so a stale budget never
// outlives the reset.
func (s *RedisStore) Save(ctx context.Context, scope string, state *BudgetState) error {
	lastUpdateJSON, err := json.Marshal(state.LastUpdate)
	if err != nil {
		return fmt.Errorf("marshal last update: %w", err)
	}

	ttl := state.TimeUntilReset()
	if ttl <= 0 {
		ttl = time.Second
	}

	pipe := s.redis.Pipeline()
	pipe.Set(ctx, keyRemaining(scope), state.Remaining, ttl)
	pipe.Set(ctx, keyReset(scope), state.ResetAt.Unix(), ttl)
	pipe.Set(ctx, keyLastUpdate(scope), lastUpdateJSON, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}
	return nil
}

// MemoryStore keeps budget state in process.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]BudgetState
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]BudgetState)}
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, scope string) (*BudgetState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[scope]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, scope string, state *BudgetState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[scope] = *state
	return nil
}
