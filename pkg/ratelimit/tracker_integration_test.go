//go:build integration

package ratelimit

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: endpoint,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestRedisStore_Integration_RoundTrip(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	store := NewRedisStore(redisClient)
	ctx := context.Background()

	state, err := store.Load(ctx, "api.example.com")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if state != nil {
		t.Fatalf("Load() on empty redis = %+v, want nil", state)
	}

	now := time.Now()
	saved := &BudgetState{Remaining: 42, ResetAt: now.Add(2 * time.Minute), LastUpdate: now}
	if err := store.Save(ctx, "api.example.com", saved); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	state, err = store.Load(ctx, "api.example.com")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if state.Remaining != 42 {
		t.Errorf("Remaining = %d, want 42", state.Remaining)
	}
	if state.ResetAt.Unix() != saved.ResetAt.Unix() {
		t.Errorf("ResetAt = %v, want %v", state.ResetAt, saved.ResetAt)
	}

	ttl, err := redisClient.TTL(ctx, keyRemaining("api.example.com")).Result()
	if err != nil {
		t.Fatalf("TTL() error = %v", err)
	}
	if ttl <= 0 || ttl > 2*time.Minute {
		t.Errorf("TTL = %v, want within the reset window", ttl)
	}
}

func TestTracker_Integration_SharedBudget(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.Nop()
	first := NewTracker(NewRedisStore(redisClient), logger, Options{})
	second := NewTracker(NewRedisStore(redisClient), logger, Options{})
	ctx := context.Background()

	headers := http.Header{}
	headers.Set(DefaultRemainingHeader, "3")
	headers.Set(DefaultResetHeader, "60")
	if err := first.UpdateFromHeaders(ctx, "api.example.com", headers); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}

	allowed, err := second.ShouldAllowRequest(ctx, "api.example.com")
	if err != nil {
		t.Fatalf("ShouldAllowRequest() error = %v", err)
	}
	if allowed {
		t.Error("second tracker should see the exhausted budget recorded by the first")
	}
}
