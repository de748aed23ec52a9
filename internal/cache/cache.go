// Package cache keeps generated explanations in Redis so identical texts are
// not sent to the model twice.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
)

const keyFmt = "explanation:%s:%016x"

type ExplanationCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New returns a cache backed by rdb. A nil client disables caching.
func New(rdb *redis.Client, ttl time.Duration) *ExplanationCache {
	return &ExplanationCache{rdb: rdb, ttl: ttl}
}

// Key identifies an explanation by model and exact input text.
func Key(model, text string) string {
	return fmt.Sprintf(keyFmt, model, xxhash.Sum64String(text))
}

// Get reports a hit only for a stored, non-empty explanation. Redis errors
// count as a miss.
func (c *ExplanationCache) Get(ctx context.Context, model, text string) (string, bool) {
	if c == nil || c.rdb == nil {
		return "", false
	}
	val, err := c.rdb.Get(ctx, Key(model, text)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("[Cache] Get failed: %v", err)
		}
		return "", false
	}
	return val, val != ""
}

func (c *ExplanationCache) Set(ctx context.Context, model, text, explanation string) {
	if c == nil || c.rdb == nil || explanation == "" {
		return
	}
	if err := c.rdb.Set(ctx, Key(model, text), explanation, c.ttl).Err(); err != nil {
		log.Printf("[Cache] Set failed: %v", err)
	}
}
