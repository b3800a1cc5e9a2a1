package cache

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"bolao-bot/internal/config"
)

func checkDockerAvailable() bool {
	return exec.Command("docker", "info").Run() == nil
}

// setupTestRedis starts a redis container. Skips the test if Docker is not available
func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
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
	require.NoError(t, err)

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client, err := Connect(ctx, &config.RedisConfig{Addr: endpoint})
	require.NoError(t, err)

	cleanup := func() {
		_ = client.Close()
		_ = container.Terminate(ctx)
	}
	return client, cleanup
}

type board struct {
	Names []string `json:"names"`
}

func TestLeaderboardCache_Generations(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	c := NewLeaderboardCache(client, time.Minute)
	ctx := context.Background()

	gen, err := c.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)

	var got board
	found, err := c.Get(ctx, gen, &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, gen, board{Names: []string{"Ana", "Bruno"}}))
	found, err = c.Get(ctx, gen, &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"Ana", "Bruno"}, got.Names)

	next, err := c.Invalidate(ctx)
	require.NoError(t, err)
	assert.Equal(t, gen+1, next)

	// A late write for the old generation is never served.
	require.NoError(t, c.Set(ctx, gen, board{Names: []string{"stale"}}))
	current, err := c.Generation(ctx)
	require.NoError(t, err)
	found, err = c.Get(ctx, current, &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNotifier_PublishSubscribe(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	n := NewNotifier(client, "bolao:test")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan ChangeEvent, 1)
	err := n.Subscribe(ctx, func(_ context.Context, ev ChangeEvent) {
		received <- ev
	})
	require.NoError(t, err)

	require.NoError(t, n.Publish(ctx, ChangeEvent{Kind: ChangeGuess, UserID: 7, MatchID: 3}))

	select {
	case ev := <-received:
		assert.Equal(t, ChangeGuess, ev.Kind)
		assert.Equal(t, int64(7), ev.UserID)
		assert.Equal(t, int64(3), ev.MatchID)
		assert.NotEmpty(t, ev.ID)
		assert.False(t, ev.At.IsZero())
	case <-time.After(5 * time.Second):
		t.Fatal("change event not received")
	}
}
