package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/gridfinder/pkg/geocode"
)

// SQLiteStore is a Cache backed by modernc.org/sqlite.
type SQLiteStore struct {
	db    *sql.DB
	table string
	now   func() time.Time
}

// NewSQLite opens the database at dsn in WAL mode.
func NewSQLite(dsn, table string) (*SQLiteStore, error) {
	if dsn == "" {
		return nil, eris.New("sqlite: empty dsn")
	}
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	if table == "" {
		table = DefaultTable
	}
	return &SQLiteStore{db: conn, table: table, now: time.Now}, nil
}

// Migrate implements Cache.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	query_hash   TEXT PRIMARY KEY,
	lat          REAL NOT NULL,
	lng          REAL NOT NULL,
	display_name TEXT NOT NULL DEFAULT '',
	source       TEXT NOT NULL,
	matched      INTEGER NOT NULL,
	cached_at    INTEGER NOT NULL,
	expires_at   INTEGER
);
CREATE INDEX IF NOT EXISTS idx_%[1]s_expires_at ON %[1]s(expires_at);`, s.table))
	return eris.Wrap(err, "sqlite: migrate")
}

// Get implements geocode.Cache.
func (s *SQLiteStore) Get(ctx context.Context, key string) (*geocode.Result, bool, error) {
	var rec record
	var matched int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT lat, lng, display_name, source, matched FROM %s
		 WHERE query_hash = ? AND (expires_at IS NULL OR expires_at > ?)`, s.table),
		key, s.now().Unix(),
	).Scan(&rec.Lat, &rec.Lng, &rec.DisplayName, &rec.Source, &matched)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "sqlite: get cached lookup")
	}
	rec.Matched = matched == 1
	return rec.result(), true, nil
}

// Set implements geocode.Cache.
func (s *SQLiteStore) Set(ctx context.Context, key string, r *geocode.Result, ttl time.Duration) error {
	now := s.now()
	var expiresAt any
	if exp := expiry(now, ttl); exp != nil {
		expiresAt = exp.Unix()
	}
	rec := toRecord(r)
	matched := 0
	if rec.Matched {
		matched = 1
	}

	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
INSERT INTO %s (query_hash, lat, lng, display_name, source, matched, cached_at, expires_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (query_hash) DO UPDATE SET
	lat = excluded.lat,
	lng = excluded.lng,
	display_name = excluded.display_name,
	source = excluded.source,
	matched = excluded.matched,
	cached_at = excluded.cached_at,
	expires_at = excluded.expires_at`, s.table),
		key, rec.Lat, rec.Lng, rec.DisplayName, rec.Source, matched, now.Unix(), expiresAt,
	)
	return eris.Wrap(err, "sqlite: set cached lookup")
}

// Purge implements Cache.
func (s *SQLiteStore) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(
		`DELETE FROM %s WHERE expires_at IS NOT NULL AND expires_at <= ?`, s.table), s.now().Unix())
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: purge expired lookups")
	}
	n, err := res.RowsAffected()
	return n, eris.Wrap(err, "sqlite: purge rows affected")
}

// Close implements Cache.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
