// Package cache stores raw SPARQL response bodies so repeated runs against
// slow public endpoints can skip identical queries.
package cache

import (
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
)

const (
	defaultNumCounters = 1e6 // 1M counters for admission policy
	defaultMaxCost     = 1 << 28
	defaultBufferItems = 64
	defaultTTL         = 24 * time.Hour
)

// ResponseCache is the contract the endpoint client caches through.
type ResponseCache interface {
	Get(key string) ([]byte, bool)
	Set(key string, body []byte) bool
	Close() error
}

// StatsReporter is implemented by caches that count their lookups.
type StatsReporter interface {
	Stats() StatsSnapshot
}

// MemoryCache is an in-process ResponseCache backed by ristretto. Costs are
// body sizes in bytes.
type MemoryCache struct {
	cache  *ristretto.Cache
	ttl    time.Duration
	stats  *CacheStats
	mu     sync.RWMutex
	closed bool
}

// MemoryConfig configures the memory cache. Zero fields take defaults.
type MemoryConfig struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	TTL         time.Duration
}

// NewMemoryCache creates a MemoryCache.
func NewMemoryCache(config *MemoryConfig) (*MemoryCache, error) {
	cfg := applyDefaults(config)

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
	})
	if err != nil {
		return nil, err
	}

	return &MemoryCache{
		cache: cache,
		ttl:   cfg.TTL,
		stats: NewCacheStats(),
	}, nil
}

func applyDefaults(config *MemoryConfig) *MemoryConfig {
	cfg := &MemoryConfig{
		NumCounters: defaultNumCounters,
		MaxCost:     defaultMaxCost,
		BufferItems: defaultBufferItems,
		TTL:         defaultTTL,
	}

	if config == nil {
		return cfg
	}

	if config.NumCounters > 0 {
		cfg.NumCounters = config.NumCounters
	}
	if config.MaxCost > 0 {
		cfg.MaxCost = config.MaxCost
	}
	if config.BufferItems > 0 {
		cfg.BufferItems = config.BufferItems
	}
	if config.TTL > 0 {
		cfg.TTL = config.TTL
	}

	return cfg
}

func (mc *MemoryCache) isClosed() bool {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.closed
}

// Get returns a copy of the cached body for key.
func (mc *MemoryCache) Get(key string) ([]byte, bool) {
	if mc.isClosed() {
		return nil, false
	}

	value, found := mc.cache.Get(key)
	if !found {
		mc.stats.RecordMiss()
		return nil, false
	}

	body, ok := value.([]byte)
	if !ok {
		mc.stats.RecordMiss()
		return nil, false
	}

	mc.stats.RecordHit()
	return append([]byte(nil), body...), true
}

// Set stores body with the default TTL. Ristretto admits writes
// asynchronously and may drop them; Wait flushes pending writes.
func (mc *MemoryCache) Set(key string, body []byte) bool {
	if mc.isClosed() || body == nil {
		return false
	}

	stored := mc.cache.SetWithTTL(key, append([]byte(nil), body...), int64(len(body))+1, mc.ttl)
	if stored {
		mc.stats.RecordSet()
	}
	return stored
}

// Wait blocks until buffered writes are applied.
func (mc *MemoryCache) Wait() {
	if mc.isClosed() {
		return
	}
	mc.cache.Wait()
}

// Stats returns the cache counters.
func (mc *MemoryCache) Stats() StatsSnapshot {
	return mc.stats.Snapshot()
}

// Close releases the cache. Further calls are no-ops.
func (mc *MemoryCache) Close() error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if mc.closed {
		return nil
	}
	mc.closed = true
	mc.cache.Close()
	return nil
}
