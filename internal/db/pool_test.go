package db

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteTable(t *testing.T) {
	assert.Equal(t, `"geocode_cache"`, QuoteTable("geocode_cache"))
	assert.Equal(t, `"public"."geocode_cache"`, QuoteTable("public.geocode_cache"))
	assert.Equal(t, `"odd""name"`, QuoteTable(`odd"name`))
}

func TestConnect_BadDSN(t *testing.T) {
	_, err := Connect(context.Background(), "postgres://%zz", PoolConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db: parse config")
}

func TestPool_SatisfiedByMock(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	var p Pool = mock
	mock.ExpectPing()
	assert.NoError(t, p.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
