// Package cache stores resolved access levels in Redis.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dukex/newsroom/pkg/models"
	redis "github.com/redis/go-redis/v9"
)

const (
	defaultPrefix = "newsroom:access"
	defaultTTL    = 5 * time.Minute
)

// AccessCache keeps access levels under a generation counter. Invalidate bumps the
// generation, so every previously cached level becomes unreachable and expires on its own.
type AccessCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// NewAccessCache connects to the Redis server at url (redis://[:password@]host:port/db).
func NewAccessCache(ctx context.Context, url string, logger *slog.Logger) (*AccessCache, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = client.Ping(pingCtx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.InfoContext(ctx, "Connected to Redis", "addr", options.Addr, "db", options.DB)

	return NewAccessCacheWithClient(client, logger), nil
}

// NewAccessCacheWithClient wraps an existing client.
func NewAccessCacheWithClient(client redis.UniversalClient, logger *slog.Logger) *AccessCache {
	return &AccessCache{
		client: client,
		prefix: defaultPrefix,
		ttl:    defaultTTL,
		logger: logger.With("module", "access_cache"),
	}
}

// Get looks the level up in the current generation and returns that generation, or -1
// when it cannot be read.
func (c *AccessCache) Get(ctx context.Context, userID string, target models.Target) (models.AccessLevel, int64, bool) {
	generation, err := c.generation(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to read cache generation", "error", err)

		return models.AccessRead, -1, false
	}

	value, err := c.client.Get(ctx, c.key(generation, userID, target)).Int()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "failed to read cached access", "user_id", userID, "error", err)
		}

		return models.AccessRead, generation, false
	}

	level := models.AccessLevel(value)
	if !level.Valid() {
		return models.AccessRead, generation, false
	}

	return level, generation, true
}

// Set stores level under generation, which must come from the Get that missed. The
// generation is never re-read here: a level resolved before an Invalidate must not reach
// the generation that Invalidate started.
func (c *AccessCache) Set(ctx context.Context, generation int64, userID string, target models.Target, level models.AccessLevel) {
	if generation < 0 {
		return
	}

	err := c.client.Set(ctx, c.key(generation, userID, target), int(level), c.ttl).Err()
	if err != nil {
		c.logger.WarnContext(ctx, "failed to cache access", "user_id", userID, "error", err)
	}
}

func (c *AccessCache) Invalidate(ctx context.Context) {
	err := c.client.Incr(ctx, c.generationKey()).Err()
	if err != nil {
		c.logger.WarnContext(ctx, "failed to invalidate access cache", "error", err)
	}
}

func (c *AccessCache) Close() error {
	return c.client.Close()
}

func (c *AccessCache) generation(ctx context.Context) (int64, error) {
	generation, err := c.client.Get(ctx, c.generationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}

	return generation, err
}

func (c *AccessCache) generationKey() string {
	return c.prefix + ":generation"
}

func (c *AccessCache) key(generation int64, userID string, target models.Target) string {
	return c.prefix + ":" + strconv.FormatInt(generation, 10) + ":" + userID + ":" + string(target.Type) + ":" + target.ID
}
