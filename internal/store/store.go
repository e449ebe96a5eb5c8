// Package store persists analysis run history in Redis.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stebou/marketintel/config"
	"github.com/stebou/marketintel/internal/intel/core"
)

// ErrNotFound is returned when a run id has no stored result.
var ErrNotFound = errors.New("analysis run not found")

const runIndexKey = "runs:index"

// Store keeps completed run results keyed by run id, expiring after the
// configured history TTL.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg config.RedisConfig) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.Timeout,
	})

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if pong != "PONG" {
		return nil, fmt.Errorf("expected PONG, got %s", pong)
	}

	ttl := cfg.HistoryTTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Store{client: client, ttl: ttl}, nil
}

func runKey(id string) string { return "run:" + id }

// SaveRun stores a run result and indexes it by creation time.
func (s *Store) SaveRun(ctx context.Context, result core.RunResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal run %s: %w", result.RunID, err)
	}
	if err := s.client.Set(ctx, runKey(result.RunID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("store run %s: %w", result.RunID, err)
	}
	if err := s.client.ZAdd(ctx, runIndexKey, redis.Z{
		Score:  float64(result.CreatedAt.UnixMilli()),
		Member: result.RunID,
	}).Err(); err != nil {
		return fmt.Errorf("index run %s: %w", result.RunID, err)
	}
	return nil
}

// GetRun fetches one run result by id.
func (s *Store) GetRun(ctx context.Context, id string) (core.RunResult, error) {
	payload, err := s.client.Get(ctx, runKey(id)).Bytes()
	if err == redis.Nil {
		return core.RunResult{}, ErrNotFound
	}
	if err != nil {
		return core.RunResult{}, fmt.Errorf("fetch run %s: %w", id, err)
	}
	var result core.RunResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return core.RunResult{}, fmt.Errorf("decode run %s: %w", id, err)
	}
	return result, nil
}

// ListRuns returns the most recent run results, newest first. Index entries
// whose payload already expired are skipped and pruned.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]core.RunResult, error) {
	if limit <= 0 {
		limit = 20
	}
	ids, err := s.client.ZRevRange(ctx, runIndexKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	results := make([]core.RunResult, 0, len(ids))
	for _, id := range ids {
		result, err := s.GetRun(ctx, id)
		if errors.Is(err, ErrNotFound) {
			_ = s.client.ZRem(ctx, runIndexKey, id).Err()
			continue
		}
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// Close releases the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}
