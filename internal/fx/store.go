package fx

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Kaglioster-hub/vrabo/internal/cache"
)

// RateStore caches exchange rates between requests.
type RateStore interface {
	Get(ctx context.Context, from, to string) (rate float64, ok bool, err error)
	Set(ctx context.Context, from, to string, rate float64, ttl time.Duration) error
}

func pairKey(from, to string) string {
	return from + "->" + to
}

// MemoryStore keeps rates in a process-local TTL cache.
type MemoryStore struct {
	cache *cache.Cache[float64]
}

// NewMemoryStore holds up to size currency pairs.
func NewMemoryStore(size int) *MemoryStore {
	return &MemoryStore{cache: cache.New[float64](size)}
}

func (s *MemoryStore) Get(_ context.Context, from, to string) (float64, bool, error) {
	rate, ok := s.cache.Get(pairKey(from, to))
	return rate, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, from, to string, rate float64, ttl time.Duration) error {
	s.cache.Set(pairKey(from, to), rate, ttl)
	return nil
}

// RedisStore shares rates between replicas.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore stores rates under prefix + "EUR->USD".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Get(ctx context.Context, from, to string) (float64, bool, error) {
	val, err := s.client.Get(ctx, s.prefix+pairKey(from, to)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get fx rate: %w", err)
	}

	rate, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse fx rate %q: %w", val, err)
	}
	return rate, true, nil
}

func (s *RedisStore) Set(ctx context.Context, from, to string, rate float64, ttl time.Duration) error {
	val := strconv.FormatFloat(rate, 'f', -1, 64)
	if err := s.client.Set(ctx, s.prefix+pairKey(from, to), val, ttl).Err(); err != nil {
		return fmt.Errorf("set fx rate: %w", err)
	}
	return nil
}
