package redisstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"solana-sales-bot/internal/domain"
	"solana-sales-bot/internal/storage"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start redis container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRarityStore_PutGet(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	store := NewRarityStore(client, "")

	table := &domain.RarityTable{Collection: "okay_bears", Ranks: map[string]int{"A": 1, "B": 2, "C": 3}}
	require.NoError(t, store.Put(ctx, table, time.Minute))

	got, err := store.Get(ctx, "okay_bears")
	require.NoError(t, err)
	assert.Equal(t, table.Ranks, got.Ranks)

	ttl, err := client.TTL(ctx, defaultPrefix+"okay_bears").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestRarityStore_Missing(t *testing.T) {
	client := setupRedis(t)
	_, err := NewRarityStore(client, "test:").Get(context.Background(), "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRarityStore_InvalidInput(t *testing.T) {
	store := NewRarityStore(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), "")
	assert.ErrorIs(t, store.Put(context.Background(), nil, 0), storage.ErrInvalidInput)
}
