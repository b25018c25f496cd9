package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/crm-support/internal/domain"
)

const statsCacheKey = "crm:tickets:stats"

// StatsCache keeps the last computed ticket overview in Redis for a short TTL.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStatsCache builds a cache; a zero ttl or missing client disables caching.
func NewStatsCache(r *Redis, ttl time.Duration) *StatsCache {
	var client *redis.Client
	if r != nil {
		client = r.Client
	}
	return &StatsCache{client: client, ttl: ttl}
}

func (c *StatsCache) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// Get returns the cached stats, or (nil, nil) on a miss.
func (c *StatsCache) Get(ctx context.Context) (*domain.TicketStats, error) {
	if !c.enabled() {
		return nil, nil
	}
	raw, err := c.client.Get(ctx, statsCacheKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var stats domain.TicketStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Set stores stats until the TTL expires.
func (c *StatsCache) Set(ctx context.Context, stats *domain.TicketStats) error {
	if !c.enabled() || stats == nil {
		return nil
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, statsCacheKey, raw, c.ttl).Err()
}
