package cache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DiskConfig configures the SQLite response cache.
type DiskConfig struct {
	Path        string
	TTL         time.Duration
	BusyTimeout time.Duration
}

const schema = `
CREATE TABLE IF NOT EXISTS responses (
	key        TEXT PRIMARY KEY,
	body       BLOB NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS responses_created_at ON responses(created_at);
`

// DiskCache persists response bodies in a SQLite database so they survive
// across runs. Entries older than the TTL are ignored and pruned on open.
type DiskCache struct {
	db     *sql.DB
	ttl    time.Duration
	stats  *CacheStats
	now    func() time.Time
	mu     sync.RWMutex
	closed bool
}

// OpenDiskCache opens or creates the cache database at cfg.Path.
func OpenDiskCache(ctx context.Context, cfg DiskConfig) (*DiskCache, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 30 * time.Second
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("create dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL",
		cfg.Path, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	dc := &DiskCache{
		db:    db,
		ttl:   cfg.TTL,
		stats: NewCacheStats(),
		now:   time.Now,
	}
	if _, err := dc.Prune(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return dc, nil
}

func (dc *DiskCache) cutoff() int64 {
	return dc.now().Add(-dc.ttl).UnixNano()
}

// Get returns the stored body for key if it has not expired.
func (dc *DiskCache) Get(key string) ([]byte, bool) {
	dc.mu.RLock()
	defer dc.mu.RUnlock()
	if dc.closed {
		return nil, false
	}

	var body []byte
	err := dc.db.QueryRow(
		`SELECT body FROM responses WHERE key = ? AND created_at >= ?`,
		key, dc.cutoff(),
	).Scan(&body)
	if err != nil {
		dc.stats.RecordMiss()
		return nil, false
	}

	dc.stats.RecordHit()
	return body, true
}

// Set stores or replaces the body for key.
func (dc *DiskCache) Set(key string, body []byte) bool {
	dc.mu.RLock()
	defer dc.mu.RUnlock()
	if dc.closed || body == nil {
		return false
	}

	_, err := dc.db.Exec(
		`INSERT INTO responses (key, body, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET body = excluded.body, created_at = excluded.created_at`,
		key, body, dc.now().UnixNano(),
	)
	if err != nil {
		return false
	}
	dc.stats.RecordSet()
	return true
}

// Prune deletes expired entries and returns how many were removed.
func (dc *DiskCache) Prune(ctx context.Context) (int64, error) {
	res, err := dc.db.ExecContext(ctx, `DELETE FROM responses WHERE created_at < ?`, dc.cutoff())
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	n, _ := res.RowsAffected()
	for i := int64(0); i < n; i++ {
		dc.stats.RecordEviction()
	}
	return n, nil
}

// Stats returns the cache counters.
func (dc *DiskCache) Stats() StatsSnapshot {
	return dc.stats.Snapshot()
}

// Close closes the database.
func (dc *DiskCache) Close() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	if dc.closed {
		return nil
	}
	dc.closed = true
	return dc.db.Close()
}
