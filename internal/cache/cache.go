// Package cache is an optional SQLite-backed response cache for detail
// requests, so repeated runs do not re-download unchanged entities.
package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	// DefaultCacheTTL is the default time-to-live for cached entries (30 days)
	DefaultCacheTTL = 720 * time.Hour
	// NegativeCacheTTL is the TTL for "not found" responses (7 days)
	NegativeCacheTTL = 168 * time.Hour
)

// CacheDB manages the SQLite database connection for caching
type CacheDB struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string

	ttl         time.Duration
	negativeTTL time.Duration
	now         func() time.Time
}

// Option configures a CacheDB.
type Option func(*CacheDB)

// WithTTL sets the lifetime of successful responses.
func WithTTL(ttl time.Duration) Option {
	return func(c *CacheDB) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithNegativeTTL sets the lifetime of cached NotFound responses.
func WithNegativeTTL(ttl time.Duration) Option {
	return func(c *CacheDB) {
		if ttl > 0 {
			c.negativeTTL = ttl
		}
	}
}

// WithNow replaces the time source used for expiry.
func WithNow(now func() time.Time) Option {
	return func(c *CacheDB) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCacheDB opens the database at dbPath and creates the cache table.
func NewCacheDB(dbPath string, opts ...Option) (*CacheDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if err := db.Ping(); err != nil {
		closeErr := db.Close()
		return nil, errors.Join(fmt.Errorf("failed to connect to cache database: %w", err), closeErr)
	}

	c := &CacheDB{
		db:          db,
		path:        dbPath,
		ttl:         DefaultCacheTTL,
		negativeTTL: NegativeCacheTTL,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if _, err := db.Exec(ResponseCacheSchema); err != nil {
		closeErr := db.Close()
		return nil, errors.Join(fmt.Errorf("failed to create cache table: %w", err), closeErr)
	}

	return c, nil
}

// Path returns the database file path.
func (c *CacheDB) Path() string {
	return c.path
}

// Close closes the database connection
func (c *CacheDB) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Get returns the cached payload for key. ok is false on a miss, an expired
// entry or a read error; errors are logged and treated as misses.
func (c *CacheDB) Get(key string) (payload []byte, notFound bool, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var cachedAt int64
	var nf int
	err := c.db.QueryRow(`
		SELECT data, not_found, cached_at
		FROM tmdb_responses
		WHERE cache_key = ?
	`, key).Scan(&payload, &nf, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, false
	}
	if err != nil {
		slog.Warn("Failed to query cache", "key", key, "error", err)
		return nil, false, false
	}

	notFound = nf != 0
	ttl := c.ttl
	if notFound {
		ttl = c.negativeTTL
	}

	// Check if cache has expired
	age := c.now().Sub(time.Unix(cachedAt, 0))
	if age > ttl {
		slog.Debug("Cache expired", "key", key, "age", age)
		return nil, false, false
	}

	return payload, notFound, true
}

// Put stores a payload, or a NotFound marker, for key.
func (c *CacheDB) Put(key string, payload []byte, notFound bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	nf := 0
	if notFound {
		nf = 1
		payload = nil
	}

	_, err := c.db.Exec(`
		INSERT OR REPLACE INTO tmdb_responses (cache_key, data, not_found, cached_at)
		VALUES (?, ?, ?, ?)
	`, key, payload, nf, c.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}

	return nil
}

// ClearExpired removes entries past their TTL and returns how many were deleted.
func (c *CacheDB) ClearExpired() (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	result, err := c.db.Exec(`
		DELETE FROM tmdb_responses
		WHERE (not_found = 0 AND cached_at < ?)
		   OR (not_found = 1 AND cached_at < ?)
	`, now.Add(-c.ttl).Unix(), now.Add(-c.negativeTTL).Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired cache: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows > 0 {
		slog.Info("Cleared expired cache entries", "count", rows)
	}

	return rows, nil
}

// ClearAll removes every cache entry and returns how many were deleted.
func (c *CacheDB) ClearAll() (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result, err := c.db.Exec("DELETE FROM tmdb_responses")
	if err != nil {
		return 0, fmt.Errorf("failed to clear cache: %w", err)
	}

	rows, _ := result.RowsAffected()
	slog.Debug("Cache cleared", "rows_deleted", rows)
	return rows, nil
}

// Count returns the number of stored entries.
func (c *CacheDB) Count() (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var n int64
	if err := c.db.QueryRow("SELECT COUNT(*) FROM tmdb_responses").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return n, nil
}
