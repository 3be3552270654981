package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/sells-group/gridfinder/pkg/geocode"
)

const redisKeyPrefix = "gridfinder:geocode:"

// RedisClient is the subset of *redis.Client used by RedisStore.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// RedisStore is a Cache backed by Redis. Expiry is left to Redis key TTLs.
type RedisStore struct {
	rc RedisClient
}

// NewRedis wraps a client.
func NewRedis(rc RedisClient) *RedisStore {
	return &RedisStore{rc: rc}
}

// OpenRedis connects to a redis:// URL and pings it.
func OpenRedis(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, eris.Wrap(err, "redis: parse url")
	}
	rc := redis.NewClient(opts)
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, eris.Wrap(err, "redis: ping")
	}
	return NewRedis(rc), nil
}

// Migrate implements Cache.
func (s *RedisStore) Migrate(context.Context) error { return nil }

// Get implements geocode.Cache.
func (s *RedisStore) Get(ctx context.Context, key string) (*geocode.Result, bool, error) {
	raw, err := s.rc.Get(ctx, redisKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "redis: get cached lookup")
	}

	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, false, eris.Wrap(err, "redis: decode cached lookup")
	}
	return rec.result(), true, nil
}

// Set implements geocode.Cache.
func (s *RedisStore) Set(ctx context.Context, key string, r *geocode.Result, ttl time.Duration) error {
	b, err := json.Marshal(toRecord(r))
	if err != nil {
		return eris.Wrap(err, "redis: encode lookup")
	}
	if ttl < 0 {
		ttl = 0
	}
	return eris.Wrap(s.rc.Set(ctx, redisKeyPrefix+key, string(b), ttl).Err(), "redis: set cached lookup")
}

// Purge implements Cache. Redis expires keys on its own.
func (s *RedisStore) Purge(context.Context) (int64, error) { return 0, nil }

// Close implements Cache.
func (s *RedisStore) Close() error {
	return s.rc.Close()
}
