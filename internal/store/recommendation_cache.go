package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"trade-advisor/internal/engine"
	"trade-advisor/internal/logging"
	"trade-advisor/internal/profile"
)

// recKeyPrefix is the prefix for cached recommendations.
// Format: advisor:rec:{symbol}:{style}
const recKeyPrefix = "advisor:rec"

// RecommendationCache caches the latest recommendation per (symbol, style)
// in Redis with a TTL. When Redis is unavailable it falls back to an
// in-memory map so serving continues without interruption; a stale or
// absent entry means "no new information", not an error.
type RecommendationCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logging.Logger

	memory         map[string]*memoryEntry
	memoryMu       sync.RWMutex
	redisAvailable atomic.Bool
}

type memoryEntry struct {
	rec       *engine.Recommendation
	expiresAt time.Time
}

// NewRecommendationCache creates a cache. client may be nil, in which case
// only the in-memory fallback is used.
func NewRecommendationCache(client *redis.Client, ttl time.Duration, log *logging.Logger) *RecommendationCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if log == nil {
		log = logging.Nop()
	}
	c := &RecommendationCache{
		client: client,
		ttl:    ttl,
		log:    log.WithComponent("rec_cache"),
		memory: make(map[string]*memoryEntry),
	}
	c.redisAvailable.Store(client != nil)
	return c
}

func cacheKey(symbol string, style profile.Style) string {
	return fmt.Sprintf("%s:%s:%s", recKeyPrefix, symbol, style)
}

// Put stores the latest recommendation for a (symbol, style) pair.
func (c *RecommendationCache) Put(ctx context.Context, rec *engine.Recommendation) {
	key := cacheKey(rec.Symbol, rec.Style)

	c.memoryMu.Lock()
	c.memory[key] = &memoryEntry{rec: rec, expiresAt: time.Now().Add(c.ttl)}
	c.memoryMu.Unlock()

	if c.client == nil {
		return
	}

	data, err := json.Marshal(rec)
	if err != nil {
		c.log.Error("failed to marshal recommendation", "key", key, "error", err)
		return
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		if c.redisAvailable.CompareAndSwap(true, false) {
			c.log.Warn("redis unavailable, serving from in-memory cache", "error", err)
		}
		return
	}
	c.redisAvailable.Store(true)
}

// Get returns the cached recommendation, or nil when absent or expired.
func (c *RecommendationCache) Get(ctx context.Context, symbol string, style profile.Style) *engine.Recommendation {
	key := cacheKey(symbol, style)

	if c.client != nil {
		data, err := c.client.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			c.redisAvailable.Store(true)
			var rec engine.Recommendation
			if jsonErr := json.Unmarshal(data, &rec); jsonErr == nil {
				return &rec
			}
			c.log.Error("corrupt cached recommendation", "key", key)
		case err == redis.Nil:
			c.redisAvailable.Store(true)
			return nil
		default:
			if c.redisAvailable.CompareAndSwap(true, false) {
				c.log.Warn("redis unavailable, serving from in-memory cache", "error", err)
			}
		}
	}

	c.memoryMu.RLock()
	defer c.memoryMu.RUnlock()
	entry, ok := c.memory[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil
	}
	return entry.rec
}
