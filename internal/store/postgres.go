package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/gridfinder/internal/db"
	"github.com/sells-group/gridfinder/pkg/geocode"
)

// PostgresStore is a Cache backed by a pgx pool.
type PostgresStore struct {
	pool    db.Pool
	table   string
	closeFn func()
}

// NewPostgres wraps an existing pool. The caller owns the pool.
func NewPostgres(pool db.Pool, table string) *PostgresStore {
	if table == "" {
		table = DefaultTable
	}
	return &PostgresStore{pool: pool, table: db.QuoteTable(table), closeFn: func() {}}
}

// OpenPostgres connects to dsn and returns a store that owns the pool.
func OpenPostgres(ctx context.Context, dsn, table string, cfg db.PoolConfig) (*PostgresStore, error) {
	pool, err := db.Connect(ctx, dsn, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: open cache")
	}
	s := NewPostgres(pool, table)
	s.closeFn = pool.Close
	return s, nil
}

// Migrate implements Cache.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	query_hash   TEXT PRIMARY KEY,
	lat          DOUBLE PRECISION NOT NULL,
	lng          DOUBLE PRECISION NOT NULL,
	display_name TEXT NOT NULL DEFAULT '',
	source       TEXT NOT NULL,
	matched      BOOLEAN NOT NULL,
	cached_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at   TIMESTAMPTZ
)`, s.table))
	return eris.Wrap(err, "postgres: migrate")
}

// Get implements geocode.Cache.
func (s *PostgresStore) Get(ctx context.Context, key string) (*geocode.Result, bool, error) {
	var rec record
	err := s.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT lat, lng, display_name, source, matched FROM %s WHERE query_hash = $1 AND (expires_at IS NULL OR expires_at > now())`,
		s.table), key,
	).Scan(&rec.Lat, &rec.Lng, &rec.DisplayName, &rec.Source, &rec.Matched)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "postgres: get cached lookup")
	}
	return rec.result(), true, nil
}

// Set implements geocode.Cache.
func (s *PostgresStore) Set(ctx context.Context, key string, r *geocode.Result, ttl time.Duration) error {
	rec := toRecord(r)
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
INSERT INTO %s (query_hash, lat, lng, display_name, source, matched, cached_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, now(), $7)
ON CONFLICT (query_hash) DO UPDATE SET
	lat = EXCLUDED.lat,
	lng = EXCLUDED.lng,
	display_name = EXCLUDED.display_name,
	source = EXCLUDED.source,
	matched = EXCLUDED.matched,
	cached_at = now(),
	expires_at = EXCLUDED.expires_at`, s.table),
		key, rec.Lat, rec.Lng, rec.DisplayName, rec.Source, rec.Matched, expiry(time.Now(), ttl),
	)
	return eris.Wrap(err, "postgres: set cached lookup")
}

// Purge implements Cache.
func (s *PostgresStore) Purge(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(
		`DELETE FROM %s WHERE expires_at IS NOT NULL AND expires_at <= now()`, s.table))
	if err != nil {
		return 0, eris.Wrap(err, "postgres: purge expired lookups")
	}
	return tag.RowsAffected(), nil
}

// Close implements Cache.
func (s *PostgresStore) Close() error {
	s.closeFn()
	return nil
}
