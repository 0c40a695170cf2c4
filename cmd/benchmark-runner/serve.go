package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"crud-benchmark/internal/database"
	"crud-benchmark/internal/runner"
	"crud-benchmark/internal/server"
	"crud-benchmark/internal/vocab"
)

func serveCmd(global *globalFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve one benchmark endpoint per operation kind over HTTP.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := global.logger()
			if err != nil {
				return err
			}
			cfg, err := global.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			db, err := database.Open(ctx, cfg.Backend, database.Options{ChunkSize: cfg.Benchmark.ChunkSize})
			if err != nil {
				return fmt.Errorf("failed to connect to %s: %w", cfg.Backend.Driver, err)
			}
			defer db.Close()

			set := vocab.Default()
			if err := db.Setup(ctx, set); err != nil {
				return fmt.Errorf("failed to setup database: %w", err)
			}

			entry := logger.WithField("driver", cfg.Backend.Driver)
			r := runner.New(db, newGenerator(cfg.Benchmark, set), runner.WithLogger(entry))
			srv := &http.Server{
				Addr:         cfg.Server.Addr,
				Handler:      server.New(r, cfg.Benchmark.Spans, runner.Queries(db, set), entry).Handler(),
				WriteTimeout: cfg.Server.WriteTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				entry.WithField("addr", srv.Addr).Info("listening")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			entry.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
