package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	generationKey  = "bolao:leaderboard:generation"
	leaderboardKey = "bolao:leaderboard:"
)

// LeaderboardCache stores leaderboard payloads keyed by a generation
// counter. Invalidate bumps the generation, so a computation that started
// before a write can only store under a generation nobody reads anymore.
type LeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLeaderboardCache creates a cache whose entries expire after ttl.
func NewLeaderboardCache(client *redis.Client, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{client: client, ttl: ttl}
}

func keyGeneration(gen int64) string {
	return leaderboardKey + strconv.FormatInt(gen, 10)
}

// Generation returns the current generation. It is 0 before the first write.
func (c *LeaderboardCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read leaderboard generation: %w", err)
	}
	return gen, nil
}

// Get decodes the payload stored for gen into dst. found is false on a miss.
func (c *LeaderboardCache) Get(ctx context.Context, gen int64, dst any) (found bool, err error) {
	b, err := c.client.Get(ctx, keyGeneration(gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read leaderboard: %w", err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return false, fmt.Errorf("failed to decode leaderboard: %w", err)
	}
	return true, nil
}

// Set stores v for gen.
func (c *LeaderboardCache) Set(ctx context.Context, gen int64, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode leaderboard: %w", err)
	}
	if err := c.client.Set(ctx, keyGeneration(gen), b, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store leaderboard: %w", err)
	}
	return nil
}

// Invalidate starts a new generation and drops the previous payload.
func (c *LeaderboardCache) Invalidate(ctx context.Context) (int64, error) {
	gen, err := c.client.Incr(ctx, generationKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to invalidate leaderboard: %w", err)
	}
	if err := c.client.Del(ctx, keyGeneration(gen-1)).Err(); err != nil {
		return gen, fmt.Errorf("failed to drop stale leaderboard: %w", err)
	}
	return gen, nil
}
