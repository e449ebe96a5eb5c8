package core

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/stebou/marketintel/internal/intel/telemetry"
)

// CacheKey canonicalizes (industry, ordered query list) into the batch cache
// key. Query order matters; the planner is deterministic so identical runs
// produce identical keys.
func CacheKey(industry string, queries []string) string {
	return industry + "_" + strings.Join(queries, "|")
}

type cacheEntry struct {
	insights []MarketInsight
	created  time.Time
}

// BatchCache memoizes batched extraction results per key with a fixed TTL.
// Callers with the same key are serialized so an expensive extraction runs
// once per expiry window, not once per caller.
type BatchCache struct {
	ttl   time.Duration
	clock Clock
	tele  *telemetry.Telemetry

	mu      sync.Mutex
	entries map[string]*cacheEntry
	keyLock map[string]*sync.Mutex
}

// NewBatchCache creates a cache. A nil clock falls back to time.Now.
func NewBatchCache(ttl time.Duration, clock Clock, tele *telemetry.Telemetry) *BatchCache {
	if clock == nil {
		clock = time.Now
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &BatchCache{
		ttl:     ttl,
		clock:   clock,
		tele:    tele,
		entries: make(map[string]*cacheEntry),
		keyLock: make(map[string]*sync.Mutex),
	}
}

// GetOrCompute returns the cached insight list for key when the entry is
// younger than the TTL; otherwise it invokes compute, stores the result, and
// returns it. Concurrent callers with the same key wait on the first caller's
// computation instead of issuing duplicate external calls.
func (c *BatchCache) GetOrCompute(ctx context.Context, key string, compute func(context.Context) ([]MarketInsight, error)) ([]MarketInsight, error) {
	lock := c.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	if insights, ok := c.lookup(key); ok {
		if c.tele != nil {
			c.tele.RecordCacheHit()
		}
		return insights, nil
	}
	if c.tele != nil {
		c.tele.RecordCacheMiss()
	}

	insights, err := compute(ctx)
	if err != nil {
		return nil, err
	}
	c.store(key, insights)
	return insights, nil
}

func (c *BatchCache) lockFor(key string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.keyLock[key]
	if !ok {
		lock = &sync.Mutex{}
		c.keyLock[key] = lock
	}
	return lock
}

func (c *BatchCache) lookup(key string) ([]MarketInsight, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.clock().Sub(entry.created) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return entry.insights, true
}

func (c *BatchCache) store(key string, insights []MarketInsight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &cacheEntry{insights: insights, created: c.clock()}
}

// Len reports the number of live entries, counting expired ones that have not
// been touched since expiry.
func (c *BatchCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
