package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <url>",
		Short: "Resolve a SoundCloud track URL",
		Long:  "Resolve a SoundCloud track URL through the client ID pool and print the track and its stream URL.",
		Args:  cobra.ExactArgs(1),
		RunE:  runResolve,
	}

	cmd.Flags().Bool("stream", true, "also fetch the stream URL")

	return cmd
}

func runResolve(cmd *cobra.Command, args []string) error {
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

	collectorCtx, stopCollector := context.WithCancel(ctx)
	a.collector.Start(collectorCtx)

	defer func() {
		stopCollector()
		<-a.collector.Done()

		snap := a.pool.Status()
		usage := a.collector.Snapshot(string(snap.Strategy))
		log.Info("Client ID pool status",
			slog.Int("active", snap.Active),
			slog.Int("cooling_down", snap.CoolingDown),
			slog.Int("total", snap.Total),
			slog.Int64("requests", usage.TotalRequests),
			slog.Int64("exhaustions", usage.Exhaustions))
	}()

	track, err := a.client.Resolve(ctx, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Artist:   %s\n", track.Artist())
	_, _ = fmt.Fprintf(out, "Title:    %s\n", track.Title)
	_, _ = fmt.Fprintf(out, "Duration: %s\n", track.Duration())

	if withStream, _ := cmd.Flags().GetBool("stream"); !withStream {
		return nil
	}

	streamURL, err := a.client.StreamURL(ctx, track)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "Stream:   %s\n", streamURL)
	return nil
}
