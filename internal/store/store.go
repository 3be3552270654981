// Package store persists geocoder lookups in SQLite, PostgreSQL or Redis.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/gridfinder/internal/db"
	"github.com/sells-group/gridfinder/internal/geo"
	"github.com/sells-group/gridfinder/pkg/geocode"
)

// Backend names accepted by Open.
const (
	BackendNone     = "none"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// DefaultTable is the cache table used by the SQL backends.
const DefaultTable = "geocode_cache"

// Cache is a geocode.Cache with a lifecycle.
type Cache interface {
	geocode.Cache

	// Migrate creates the backing table when the backend has one.
	Migrate(ctx context.Context) error
	// Purge deletes expired entries and returns how many were removed.
	Purge(ctx context.Context) (int64, error)
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend string
	// DSN is a file path for sqlite, a postgres:// URL or a redis:// URL.
	DSN   string
	Table string
	Pool  db.PoolConfig
}

// Open returns the configured cache. SQL backends are migrated before use.
func Open(ctx context.Context, opts Options) (Cache, error) {
	table := opts.Table
	if table == "" {
		table = DefaultTable
	}

	var (
		c   Cache
		err error
	)
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendNone:
		return Noop{}, nil
	case BackendSQLite:
		c, err = NewSQLite(opts.DSN, table)
	case BackendPostgres:
		c, err = OpenPostgres(ctx, opts.DSN, table, opts.Pool)
	case BackendRedis:
		return OpenRedis(ctx, opts.DSN)
	default:
		return nil, eris.Errorf("store: unknown cache backend %q", opts.Backend)
	}
	if err != nil {
		return nil, err
	}
	if err := c.Migrate(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// Noop is the Cache used when caching is disabled.
type Noop struct{ geocode.NoopCache }

// Migrate implements Cache.
func (Noop) Migrate(context.Context) error { return nil }

// Purge implements Cache.
func (Noop) Purge(context.Context) (int64, error) { return 0, nil }

// Close implements Cache.
func (Noop) Close() error { return nil }

// record is the stored form of a geocode.Result.
type record struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	DisplayName string  `json:"display_name,omitempty"`
	Source      string  `json:"source"`
	Matched     bool    `json:"matched"`
}

func toRecord(r *geocode.Result) record {
	return record{
		Lat:         r.Position.Lat,
		Lng:         r.Position.Lng,
		DisplayName: r.DisplayName,
		Source:      r.Source,
		Matched:     r.Matched,
	}
}

func (rec record) result() *geocode.Result {
	return &geocode.Result{
		Position:    geo.Point{Lat: rec.Lat, Lng: rec.Lng},
		DisplayName: rec.DisplayName,
		Source:      rec.Source,
		Matched:     rec.Matched,
	}
}

// expiry returns the absolute expiry for ttl, or nil for no expiry.
func expiry(now time.Time, ttl time.Duration) *time.Time {
	if ttl <= 0 {
		return nil
	}
	t := now.Add(ttl).UTC()
	return &t
}
