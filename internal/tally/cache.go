package tally

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache keeps reports in redis as JSON
type RedisCache struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisCache creates a cache. A zero ttl keeps entries until evicted.
func NewRedisCache(rdb redis.UniversalClient, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, prefix: "election:result:", ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, electionID string) (*Report, bool, error) {
	data, err := c.rdb.Get(ctx, c.prefix+electionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, false, fmt.Errorf("decode cached report: %w", err)
	}
	return &r, true, nil
}

func (c *RedisCache) Set(ctx context.Context, electionID string, r *Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return c.rdb.Set(ctx, c.prefix+electionID, data, c.ttl).Err()
}
