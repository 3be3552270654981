package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/gridfinder/internal/api"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long:  "Serves the dataset over HTTP. The listener starts immediately; queries answer 503 until the dataset has loaded.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "serve", envOptions{geocoder: true, metrics: true})
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		handler := api.NewServer(env.Store,
			api.WithEngine(env.Engine),
			api.WithGeocoder(env.Geocoder),
			api.WithMetrics(env.Metrics),
			api.WithBounds(env.Bounds),
			api.WithCORSOrigins(cfg.Server.CORSOrigins),
			api.WithRequestTimeout(time.Duration(cfg.Server.WriteTimeoutSecs)*time.Second),
		).Handler()

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
			ReadTimeout:       time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		}

		return runServer(ctx, srv, func(ctx context.Context) error {
			start := time.Now()
			res, err := loadDataset(ctx, env)
			if err != nil {
				// Keep serving: /ready reports failed and queries answer 503.
				return nil
			}
			zap.L().Info("dataset ready",
				zap.Int("points", env.Store.Len()),
				zap.Int("read", res.Read),
				zap.Duration("elapsed", time.Since(start)),
			)
			return nil
		})
	},
}

// runServer runs srv and load side by side until ctx ends or the listener
// fails, then shuts the server down.
func runServer(ctx context.Context, srv *http.Server, load func(context.Context) error) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zap.L().Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	})

	g.Go(func() error {
		return load(gCtx)
	})

	g.Go(func() error {
		<-gCtx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return eris.Wrap(srv.Shutdown(shutdownCtx), "server shutdown")
	})

	return g.Wait()
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
