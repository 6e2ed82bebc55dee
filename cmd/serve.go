package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/angeloszaimis/clientid-rotator/internal/healthcheck"
	"github.com/angeloszaimis/clientid-rotator/internal/httpserver"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the resolve, status and metrics server",
		Long:  "Start the identity pool behind the resolve endpoint, with status, health and metrics endpoints and the periodic health report.",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}

	a.collector.Start(ctx)

	log.Info("Client ID pool ready",
		slog.Int("total", a.pool.Len()),
		slog.String("strategy", string(a.pool.Strategy())),
		slog.Duration("cooldown", a.pool.Cooldown()))

	srv, err := httpserver.New(cfg.Server.Address, a.router(), httpserver.WithLogger(log))
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		healthcheck.Reporter(gctx, a.pool, cfg.HealthCheckInterval(), log)
		return nil
	})

	g.Go(srv.Start)

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
			return err
		}
		return nil
	})

	return g.Wait()
}
