package geocode

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Cache stores lookup outcomes, including non-matches (Matched false).
type Cache interface {
	// Get returns the cached result and whether the key was present and unexpired.
	Get(ctx context.Context, key string) (*Result, bool, error)
	// Set stores r under key for ttl. A zero ttl means no expiry.
	Set(ctx context.Context, key string, r *Result, ttl time.Duration) error
}

// NoopCache never stores anything.
type NoopCache struct{}

// Get implements Cache.
func (NoopCache) Get(context.Context, string) (*Result, bool, error) { return nil, false, nil }

// Set implements Cache.
func (NoopCache) Set(context.Context, string, *Result, time.Duration) error { return nil }

// NormalizeQuery applies NFKC normalization and case folding, and collapses
// runs of whitespace to one space.
func NormalizeQuery(q string) string {
	s := cases.Fold().String(norm.NFKC.String(q))
	return strings.Join(strings.Fields(s), " ")
}

// CacheKey returns the SHA-256 hex digest of the normalized query and region.
func CacheKey(query, region string) string {
	h := sha256.Sum256([]byte(NormalizeQuery(query) + "|" + NormalizeQuery(region)))
	return hex.EncodeToString(h[:])
}
