package sentiment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"trading-risk-engine/internal/types"
)

// Store holds the latest fused score per symbol. Freshness is judged by the
// caller from ComputedAt; ttl is only a hint for eviction.
type Store interface {
	Get(ctx context.Context, symbol string) (types.SentimentScore, bool, error)
	Put(ctx context.Context, score types.SentimentScore, ttl time.Duration) error
}

type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]types.SentimentScore
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]types.SentimentScore)}
}

func (m *MemoryStore) Get(_ context.Context, symbol string) (types.SentimentScore, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.entries[symbol]
	return s, ok, nil
}

func (m *MemoryStore) Put(_ context.Context, score types.SentimentScore, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	score.CacheHit = false
	m.entries[score.Symbol] = score
	return nil
}

// Len reports the number of cached symbols. Only tests read it, to check
// that Fusion stores one entry per symbol.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

const redisKeyPrefix = "sentiment:"

// RedisStore shares cached scores between processes.
type RedisStore struct {
	rdb goredis.Cmdable
}

func NewRedisStore(rdb goredis.Cmdable) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// NewRedisStoreFromURL parses a redis:// URL and pings the server.
func NewRedisStoreFromURL(ctx context.Context, url string) (*RedisStore, *goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStore(client), client, nil
}

func (r *RedisStore) Get(ctx context.Context, symbol string) (types.SentimentScore, bool, error) {
	data, err := r.rdb.Get(ctx, redisKeyPrefix+symbol).Bytes()
	if errors.Is(err, goredis.Nil) {
		return types.SentimentScore{}, false, nil
	}
	if err != nil {
		return types.SentimentScore{}, false, fmt.Errorf("redis get %s: %w", symbol, err)
	}
	var s types.SentimentScore
	if err := json.Unmarshal(data, &s); err != nil {
		return types.SentimentScore{}, false, fmt.Errorf("decode cached sentiment %s: %w", symbol, err)
	}
	return s, true, nil
}

func (r *RedisStore) Put(ctx context.Context, score types.SentimentScore, ttl time.Duration) error {
	score.CacheHit = false
	data, err := json.Marshal(score)
	if err != nil {
		return fmt.Errorf("encode sentiment %s: %w", score.Symbol, err)
	}
	// Freshness is decided by ComputedAt; the key expiry only evicts.
	return r.rdb.Set(ctx, redisKeyPrefix+score.Symbol, data, 2*ttl).Err()
}
