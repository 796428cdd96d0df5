package cache

// ResponseCacheSchema stores raw TMDB payloads keyed by request URL.
// cached_at is a unix timestamp in seconds.
const ResponseCacheSchema = `
CREATE TABLE IF NOT EXISTS tmdb_responses (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data BLOB,
	not_found INTEGER NOT NULL DEFAULT 0,
	cached_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tmdb_responses_cached_at ON tmdb_responses(cached_at);
`
