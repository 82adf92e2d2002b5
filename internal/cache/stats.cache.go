package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nimasrn/lead-crm/internal/model"
	"github.com/nimasrn/lead-crm/pkg/logger"
	"github.com/nimasrn/lead-crm/pkg/redis"
)

type StatsCacheConfig struct {
	TTL time.Duration

	KeyPrefix string
}

func DefaultStatsCacheConfig() StatsCacheConfig {
	return StatsCacheConfig{
		TTL:       60 * time.Second,
		KeyPrefix: "crm:stats:",
	}
}

// StatsCache is a read-through cache of statistics summaries keyed by date
// range. Every key written is tracked in an index set so Invalidate can drop
// all of them at once.
type StatsCache struct {
	redis  redis.RedisAdapter
	config StatsCacheConfig
}

func NewStatsCache(redisAdapter redis.RedisAdapter, config StatsCacheConfig) *StatsCache {
	return &StatsCache{
		redis:  redisAdapter,
		config: config,
	}
}

// Get returns (nil, nil) on a miss.
func (c *StatsCache) Get(ctx context.Context, rng model.DateRange) (*model.Summary, error) {
	b, err := c.redis.Get(ctx, c.key(rng))
	if errors.Is(err, redis.NilError) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read summary: %w", err)
	}

	var s model.Summary
	if err := json.Unmarshal(b, &s); err != nil {
		logger.Warn("[stats-cache] dropping unreadable summary", "key", c.key(rng), "error", err)
		return nil, nil
	}
	return &s, nil
}

func (c *StatsCache) Set(ctx context.Context, rng model.DateRange, summary *model.Summary) error {
	b, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	key := c.key(rng)
	if err := c.redis.Set(ctx, key, b, c.config.TTL); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	if err := c.redis.SAdd(ctx, c.indexKey(), c.config.TTL, key); err != nil {
		return fmt.Errorf("index summary: %w", err)
	}
	return nil
}

// Invalidate removes every cached summary.
func (c *StatsCache) Invalidate(ctx context.Context) error {
	keys, err := c.redis.SMembers(ctx, c.indexKey())
	if err != nil {
		return fmt.Errorf("list cached summaries: %w", err)
	}
	if err := c.redis.Del(ctx, append(keys, c.indexKey())...); err != nil {
		return fmt.Errorf("drop cached summaries: %w", err)
	}
	logger.Debug("[stats-cache] invalidated", "keys", len(keys))
	return nil
}

func (c *StatsCache) indexKey() string {
	return c.config.KeyPrefix + "keys"
}

func (c *StatsCache) key(rng model.DateRange) string {
	return c.config.KeyPrefix + "summary:" + bound(rng.From) + ":" + bound(rng.To)
}

func bound(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format("20060102T150405.000000000Z")
}
