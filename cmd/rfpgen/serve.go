package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	rfphttp "github.com/Lllllllleong/rfpsynth/internal/http"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		api := rfphttp.NewAPI(a.registry, a.store, a.pipeline, a.provider.Name())
		server := rfphttp.NewServer(a.cfg, api)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			slog.Info("Starting server", "port", a.cfg.Port)
			return server.ListenAndServe()
		})
		g.Go(func() error {
			<-gctx.Done()
			slog.Info("Shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})

		err = g.Wait()
		slog.Info("Waiting for running batches to finish")
		a.pipeline.Wait()
		return err
	},
}
