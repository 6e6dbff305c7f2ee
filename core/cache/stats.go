package cache

import (
	"sync/atomic"
	"time"
)

// CacheStats tracks cache performance counters.
type CacheStats struct {
	hits      atomic.Int64
	misses    atomic.Int64
	sets      atomic.Int64
	evictions atomic.Int64
	startTime time.Time
}

// NewCacheStats creates a new CacheStats instance.
func NewCacheStats() *CacheStats {
	return &CacheStats{
		startTime: time.Now(),
	}
}

func (s *CacheStats) RecordHit()      { s.hits.Add(1) }
func (s *CacheStats) RecordMiss()     { s.misses.Add(1) }
func (s *CacheStats) RecordSet()      { s.sets.Add(1) }
func (s *CacheStats) RecordEviction() { s.evictions.Add(1) }

func (s *CacheStats) Hits() int64      { return s.hits.Load() }
func (s *CacheStats) Misses() int64    { return s.misses.Load() }
func (s *CacheStats) Sets() int64      { return s.sets.Load() }
func (s *CacheStats) Evictions() int64 { return s.evictions.Load() }

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s *CacheStats) HitRate() float64 {
	total := s.Hits() + s.Misses()
	if total == 0 {
		return 0
	}
	return float64(s.Hits()) / float64(total)
}

// StatsSnapshot is a non-atomic copy of the counters for logging and JSON.
type StatsSnapshot struct {
	Hits      int64         `json:"hits"`
	Misses    int64         `json:"misses"`
	Sets      int64         `json:"sets"`
	Evictions int64         `json:"evictions"`
	HitRate   float64       `json:"hit_rate"`
	Uptime    time.Duration `json:"uptime"`
}

// Snapshot copies the current counters.
func (s *CacheStats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Hits:      s.Hits(),
		Misses:    s.Misses(),
		Sets:      s.Sets(),
		Evictions: s.Evictions(),
		HitRate:   s.HitRate(),
		Uptime:    time.Since(s.startTime),
	}
}
