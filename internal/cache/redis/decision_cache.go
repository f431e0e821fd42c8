package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"evergreen/internal/store"
)

const (
	recentKey       = "decisions:recent"
	recentKeep      = 100
	defaultCacheTTL = 24 * time.Hour
)

func decisionKey(id string) string {
	return "decision:" + id
}

// DecisionCache keeps serialized decision records for fast lookups by id.
type DecisionCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewDecisionCache wraps c. A non-positive ttl falls back to 24h.
func NewDecisionCache(c *Client, ttl time.Duration) *DecisionCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &DecisionCache{rdb: c.Underlying(), ttl: ttl}
}

// Put stores rec under decision:{id} and pushes the id onto the recent list.
func (c *DecisionCache) Put(ctx context.Context, rec store.DecisionRecord) error {
	if rec.DecisionID == "" {
		return fmt.Errorf("redis: put decision: empty id")
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("redis: marshal decision %s: %w", rec.DecisionID, err)
	}
	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, decisionKey(rec.DecisionID), raw, c.ttl)
	pipe.LPush(ctx, recentKey, rec.DecisionID)
	pipe.LTrim(ctx, recentKey, 0, recentKeep-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: put decision %s: %w", rec.DecisionID, err)
	}
	return nil
}

// Get returns store.ErrNotFound when the key is missing or expired.
func (c *DecisionCache) Get(ctx context.Context, id string) (store.DecisionRecord, error) {
	raw, err := c.rdb.Get(ctx, decisionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return store.DecisionRecord{}, store.ErrNotFound
		}
		return store.DecisionRecord{}, fmt.Errorf("redis: get decision %s: %w", id, err)
	}
	var rec store.DecisionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return store.DecisionRecord{}, fmt.Errorf("redis: decode decision %s: %w", id, err)
	}
	return rec, nil
}

// RecentIDs returns up to limit ids, newest first.
func (c *DecisionCache) RecentIDs(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 || limit > recentKeep {
		limit = recentKeep
	}
	ids, err := c.rdb.LRange(ctx, recentKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: recent decisions: %w", err)
	}
	return ids, nil
}
