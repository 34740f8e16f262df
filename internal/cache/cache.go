// Package cache keeps recent model forecasts in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/crimson-sun/ucrf/internal/model"
)

// KeyPrefix namespaces forecast keys.
const KeyPrefix = "ucrf:forecast:"

// Redis is a forecast cache backed by a Redis client. Cache errors are
// logged and treated as misses.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// New wraps an existing client. A zero ttl keeps entries forever.
func New(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{client: client, ttl: ttl, logger: logger}
}

// Dial parses a redis:// URL and verifies the server responds.
func Dial(ctx context.Context, url string, ttl time.Duration, logger *slog.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("cache: parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("cache: connecting to redis: %w", err)
	}
	return New(client, ttl, logger), nil
}

// Key returns the cache key of a request. Make and model are folded to
// lower case.
func Key(req model.ForecastRequest) string {
	return fmt.Sprintf("%s%s:%s:%d:%d", KeyPrefix,
		strings.ToLower(strings.TrimSpace(req.Make)),
		strings.ToLower(strings.TrimSpace(req.Model)),
		req.Year, req.Mileage)
}

// Get returns a cached forecast.
func (c *Redis) Get(ctx context.Context, req model.ForecastRequest) (model.ForecastResult, bool) {
	raw, err := c.client.Get(ctx, Key(req)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.ForecastResult{}, false
	}
	if err != nil {
		c.logger.Warn("forecast cache read failed", "error", err)
		return model.ForecastResult{}, false
	}
	var res model.ForecastResult
	if err := json.Unmarshal(raw, &res); err != nil {
		c.logger.Warn("forecast cache entry corrupt", "key", Key(req), "error", err)
		return model.ForecastResult{}, false
	}
	return res, true
}

// Set stores a forecast.
func (c *Redis) Set(ctx context.Context, req model.ForecastRequest, res model.ForecastResult) {
	raw, err := json.Marshal(res)
	if err != nil {
		c.logger.Warn("forecast cache encode failed", "error", err)
		return
	}
	if err := c.client.Set(ctx, Key(req), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("forecast cache write failed", "error", err)
	}
}

// Close closes the underlying client.
func (c *Redis) Close() error {
	return c.client.Close()
}
