// Package cache holds the redis-backed read cache for completed
// verification records and the external-search quota counter.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tradesafe/tradeverify/src/types"
)

const recordKeyPrefix = "tradeverify:record:"

// Records caches terminal-state verification records by ID. Records are
// immutable once terminal, so staleness is not a concern within the TTL.
type Records struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRecords(rdb *redis.Client, ttl time.Duration) *Records {
	return &Records{rdb: rdb, ttl: ttl}
}

func (c *Records) Get(ctx context.Context, id string) (*types.Verification, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	data, err := c.rdb.Get(ctx, recordKeyPrefix+id).Bytes()
	if err != nil {
		return nil, false
	}
	var rec types.Verification
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false
	}
	return &rec, true
}

func (c *Records) Set(ctx context.Context, rec *types.Verification) {
	if c == nil || c.rdb == nil || rec == nil {
		return
	}
	if rec.State != types.StateCompleted && rec.State != types.StateAnalysisFailed {
		return
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, recordKeyPrefix+rec.ID, data, c.ttl).Err(); err != nil {
		log.Printf("cache: set %s: %v", rec.ID, err)
	}
}

// SearchQuota limits external-search calls per UTC day. Implements the
// website resolver's quota contract.
type SearchQuota struct {
	rdb   *redis.Client
	limit int64
}

func NewSearchQuota(rdb *redis.Client, limit int64) *SearchQuota {
	return &SearchQuota{rdb: rdb, limit: limit}
}

// Consume takes one unit of quota, or returns an error when the daily
// budget is exhausted. A nil quota or absent redis consumes nothing.
func (q *SearchQuota) Consume(ctx context.Context) error {
	if q == nil || q.rdb == nil || q.limit <= 0 {
		return nil
	}
	key := "tradeverify:search:" + time.Now().UTC().Format("2006-01-02")
	n, err := q.rdb.Incr(ctx, key).Result()
	if err != nil {
		// Redis trouble should not block discovery.
		log.Printf("cache: search quota: %v", err)
		return nil
	}
	if n == 1 {
		q.rdb.Expire(ctx, key, 25*time.Hour)
	}
	if n > q.limit {
		return fmt.Errorf("cache: daily search quota of %d exhausted", q.limit)
	}
	return nil
}
