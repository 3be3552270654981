package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_None(t *testing.T) {
	for _, backend := range []string{"", "none", " NONE "} {
		c, err := Open(context.Background(), Options{Backend: backend})
		require.NoError(t, err)
		assert.IsType(t, Noop{}, c)
		assert.NoError(t, c.Migrate(context.Background()))
		assert.NoError(t, c.Close())
	}
}

func TestOpen_SQLiteMigrates(t *testing.T) {
	c, err := Open(context.Background(), Options{
		Backend: BackendSQLite,
		DSN:     filepath.Join(t.TempDir(), "cache.db"),
	})
	require.NoError(t, err)
	defer c.Close() //nolint:errcheck

	require.NoError(t, c.Set(context.Background(), "k", newark(), 0))
	_, ok, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOpen_Unknown(t *testing.T) {
	_, err := Open(context.Background(), Options{Backend: "memcached"})
	assert.Error(t, err)
}
