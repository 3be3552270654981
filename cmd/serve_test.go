package main

import (
	"context"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunServer_ShutsDownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler(), ReadHeaderTimeout: time.Second}

	var loaded atomic.Bool
	done := make(chan error, 1)
	go func() {
		done <- runServer(ctx, srv, func(context.Context) error {
			loaded.Store(true)
			return nil
		})
	}()

	assert.Eventually(t, loaded.Load, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runServer did not return after cancel")
	}
}

func TestRunServer_ListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close() //nolint:errcheck

	srv := &http.Server{Addr: ln.Addr().String(), Handler: http.NotFoundHandler(), ReadHeaderTimeout: time.Second}
	err = runServer(context.Background(), srv, func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server listen")
}
