package geocode

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Cache stores resolved place names in SQLite, keyed by coordinates
// rounded to 5 decimals. Only names are cached, never predictions.
type Cache struct {
	db  *sql.DB
	ttl time.Duration
}

// OpenCache opens (or creates) the cache database at path. Entries older
// than ttl are treated as misses; ttl <= 0 keeps entries forever.
func OpenCache(path string, ttl time.Duration) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: open cache")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "geocode: exec %s", pragma)
		}
	}
	return &Cache{db: db, ttl: ttl}, nil
}

const cacheMigration = `
CREATE TABLE IF NOT EXISTS place_names (
	coord_key  TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	cached_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_place_names_cached_at ON place_names(cached_at);
`

// Migrate creates the cache schema.
func (c *Cache) Migrate(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, cacheMigration)
	return eris.Wrap(err, "geocode: migrate cache")
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// cacheKey rounds lat/lng to the precision shown to users.
func cacheKey(lat, lng float64) string {
	return fmt.Sprintf("%.5f,%.5f", lat, lng)
}

// Get returns the cached name for lat/lng. ok is false on a miss or an
// expired entry.
func (c *Cache) Get(ctx context.Context, lat, lng float64) (name string, ok bool, err error) {
	key := cacheKey(lat, lng)

	var cachedAt int64
	err = c.db.QueryRowContext(ctx,
		`SELECT name, cached_at FROM place_names WHERE coord_key = ?`, key,
	).Scan(&name, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, eris.Wrap(err, "geocode: cache get")
	}

	if c.ttl > 0 && time.Since(time.Unix(0, cachedAt)) > c.ttl {
		return "", false, nil
	}

	zap.L().Debug("geocode cache hit", zap.String("key", key))
	return name, true, nil
}

// Set stores name for lat/lng, replacing any previous entry.
func (c *Cache) Set(ctx context.Context, lat, lng float64, name string) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO place_names (coord_key, name, cached_at) VALUES (?, ?, ?)
		ON CONFLICT (coord_key) DO UPDATE SET
			name = excluded.name,
			cached_at = excluded.cached_at`,
		cacheKey(lat, lng), name, time.Now().UnixNano(),
	)
	return eris.Wrap(err, "geocode: cache set")
}

// Purge deletes expired entries and returns how many were removed.
func (c *Cache) Purge(ctx context.Context) (int, error) {
	if c.ttl <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-c.ttl).UnixNano()
	res, err := c.db.ExecContext(ctx, `DELETE FROM place_names WHERE cached_at < ?`, cutoff)
	if err != nil {
		return 0, eris.Wrap(err, "geocode: cache purge")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "geocode: rows affected")
}

// cachingReverser consults a Cache before the wrapped Reverser.
type cachingReverser struct {
	inner Reverser
	cache *Cache
}

// NewCachingReverser wraps inner so successful lookups are stored in cache
// and served from it afterwards. Cache errors degrade to a network lookup.
func NewCachingReverser(inner Reverser, cache *Cache) Reverser {
	return &cachingReverser{inner: inner, cache: cache}
}

func (r *cachingReverser) Reverse(ctx context.Context, lat, lng float64) (string, error) {
	name, ok, err := r.cache.Get(ctx, lat, lng)
	if err != nil {
		zap.L().Warn("geocode: cache read failed", zap.Error(err))
	}
	if ok {
		return name, nil
	}

	name, err = r.inner.Reverse(ctx, lat, lng)
	if err != nil {
		return "", err
	}

	if err := r.cache.Set(ctx, lat, lng, name); err != nil {
		zap.L().Warn("geocode: cache write failed", zap.Error(err))
	}
	return name, nil
}
