package core

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestBatchCacheHitAvoidsRecompute(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	cache := NewBatchCache(15*time.Minute, fixedClock(now), nil)

	calls := 0
	compute := func(context.Context) ([]MarketInsight, error) {
		calls++
		return []MarketInsight{{ID: "a", ImpactScore: 0.8, ConfidenceScore: 0.9}}, nil
	}

	key := CacheKey("retail", []string{"q1", "q2"})
	first, err := cache.GetOrCompute(context.Background(), key, compute)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := cache.GetOrCompute(context.Background(), key, compute)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if calls != 1 {
		t.Fatalf("expected 1 compute call for sequential identical requests, got %d", calls)
	}
	if len(first) != 1 || len(second) != 1 || second[0].ID != "a" {
		t.Fatalf("cached value mismatch: %v vs %v", first, second)
	}
}

func TestBatchCacheExpiry(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	current := now
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	}
	cache := NewBatchCache(15*time.Minute, clock, nil)

	calls := 0
	compute := func(context.Context) ([]MarketInsight, error) {
		calls++
		return nil, nil
	}

	key := CacheKey("food", []string{"q"})
	if _, err := cache.GetOrCompute(context.Background(), key, compute); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	current = now.Add(16 * time.Minute)
	mu.Unlock()

	if _, err := cache.GetOrCompute(context.Background(), key, compute); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("expected recompute after TTL expiry, got %d calls", calls)
	}
	if cache.Len() != 1 {
		t.Fatalf("expired entry must be overwritten, not duplicated: %d entries", cache.Len())
	}
}

func TestBatchCacheSerializesSameKey(t *testing.T) {
	cache := NewBatchCache(15*time.Minute, nil, nil)

	var calls int32
	compute := func(context.Context) ([]MarketInsight, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(10 * time.Millisecond)
		return []MarketInsight{{ID: "x"}}, nil
	}

	key := CacheKey("retail", []string{"q"})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.GetOrCompute(context.Background(), key, compute); err != nil {
				t.Errorf("GetOrCompute: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected a single compute for concurrent identical requests, got %d", got)
	}
}

func TestBatchCacheErrorNotCached(t *testing.T) {
	cache := NewBatchCache(15*time.Minute, nil, nil)

	calls := 0
	key := CacheKey("retail", []string{"q"})
	_, err := cache.GetOrCompute(context.Background(), key, func(context.Context) ([]MarketInsight, error) {
		calls++
		return nil, context.DeadlineExceeded
	})
	if err == nil {
		t.Fatal("expected error from compute")
	}

	if _, err := cache.GetOrCompute(context.Background(), key, func(context.Context) ([]MarketInsight, error) {
		calls++
		return nil, nil
	}); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("failed compute should not populate the cache, got %d calls", calls)
	}
}
