package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis connects to a local Redis and skips when none is running.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

var storeKinds = []string{"memory", "redis"}

func TestStore_LoadMissing(t *testing.T) {
	for _, name := range storeKinds {
		t.Run(name, func(t *testing.T) {
			store := storeFor(t, name)
			state, err := store.Load(context.Background(), "nothing-here")
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if state != nil {
				t.Errorf("Load() = %+v, want nil", state)
			}
		})
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	for _, name := range storeKinds {
		t.Run(name, func(t *testing.T) {
			store := storeFor(t, name)
			ctx := context.Background()
			now := time.Now()

			in := &BudgetState{Remaining: 60, ResetAt: now.Add(time.Minute), LastUpdate: now}
			if err := store.Save(ctx, "api.example.com", in); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			out, err := store.Load(ctx, "api.example.com")
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if out.Remaining != 60 {
				t.Errorf("Remaining = %d, want 60", out.Remaining)
			}
			if !out.IsHealthy {
				t.Error("expected healthy state for 60 remaining")
			}
			if out.ResetAt.Unix() != in.ResetAt.Unix() {
				t.Errorf("ResetAt = %v, want %v", out.ResetAt, in.ResetAt)
			}
		})
	}
}

func storeFor(t *testing.T, name string) Store {
	t.Helper()
	if name == "redis" {
		return NewRedisStore(setupTestRedis(t))
	}
	return NewMemoryStore()
}

func TestNewRedisStore_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewRedisStore should panic with nil redis client")
		}
	}()
	NewRedisStore(nil)
}
