package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aman-zulfiqar/solswap/internal/clock"
	"github.com/redis/go-redis/v9"
)

// Entry is a cached payload and when it was stored. Freshness is decided by
// the reader, so an expired entry can still be served as a fallback.
type Entry struct {
	Data     json.RawMessage `json:"data"`
	StoredAt time.Time       `json:"storedAt"`
}

// Cache stores encoded market-data payloads by key.
type Cache interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, data []byte) error
}

// MemoryCache is a process-local Cache. Entries are never evicted; the key
// space is bounded by the set of pairs and timeframes requested.
type MemoryCache struct {
	clock clock.Clock

	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryCache(c clock.Clock) *MemoryCache {
	if c == nil {
		c = clock.Real()
	}
	return &MemoryCache{clock: c, entries: make(map[string]Entry)}
}

func (m *MemoryCache) Get(_ context.Context, key string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	return e, ok, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = Entry{Data: append(json.RawMessage(nil), data...), StoredAt: m.clock.Now()}
	return nil
}

// RedisCache shares entries between server replicas. Keys outlive their TTL
// by Retention so a stale copy stays available when an upstream fails.
type RedisCache struct {
	client    *redis.Client
	clock     clock.Clock
	prefix    string
	retention time.Duration
}

const defaultRetention = time.Hour

func NewRedisCache(client *redis.Client, c clock.Clock) *RedisCache {
	if c == nil {
		c = clock.Real()
	}
	return &RedisCache{
		client:    client,
		clock:     c,
		prefix:    "marketdata:",
		retention: defaultRetention,
	}
}

func (r *RedisCache) Get(ctx context.Context, key string) (Entry, bool, error) {
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, fmt.Errorf("failed to decode cache key %s: %w", key, err)
	}
	return e, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, data []byte) error {
	raw, err := json.Marshal(Entry{Data: data, StoredAt: r.clock.Now()})
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.prefix+key, raw, r.retention).Err(); err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	return nil
}
