package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// SolutionCache keeps the per-level pool of other students' solutions in
// redis for the diversity screen. A miss or a redis failure just falls back
// to the repository; stale entries within the TTL are fine.
type SolutionCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSolutionCache(rdb *redis.Client, ttl time.Duration) *SolutionCache {
	if rdb == nil {
		return nil
	}
	return &SolutionCache{rdb: rdb, ttl: ttl}
}

func (c *SolutionCache) key(levelID, excludeUserID string) string {
	return fmt.Sprintf("diversity:%s:%s", levelID, excludeUserID)
}

func (c *SolutionCache) Get(ctx context.Context, levelID, excludeUserID string) ([]json.RawMessage, bool) {
	data, err := c.rdb.Get(ctx, c.key(levelID, excludeUserID)).Bytes()
	if err != nil {
		return nil, false
	}
	var solutions []json.RawMessage
	if err := json.Unmarshal(data, &solutions); err != nil {
		return nil, false
	}
	return solutions, true
}

func (c *SolutionCache) Set(ctx context.Context, levelID, excludeUserID string, solutions []json.RawMessage) error {
	data, err := json.Marshal(solutions)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(levelID, excludeUserID), data, c.ttl).Err()
}
