package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/angeloszaimis/clientid-rotator/config"
	"github.com/angeloszaimis/clientid-rotator/internal/identity"
	"github.com/angeloszaimis/clientid-rotator/internal/metrics"
	"github.com/angeloszaimis/clientid-rotator/internal/upstream"
)

type app struct {
	cfg       *config.Config
	log       *slog.Logger
	pool      *identity.Pool
	collector *metrics.Collector
	client    *upstream.Client
}

func newApp(cfg *config.Config, log *slog.Logger) (*app, error) {
	pool, err := identity.New(cfg.ClientIDs(), cfg.Strategy(), cfg.Cooldown(), identity.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("creating identity pool: %w", err)
	}

	collector := metrics.NewCollector(cfg.Metrics.BufferSize, log)

	client, err := upstream.New(pool,
		upstream.WithBaseURL(cfg.Upstream.BaseURL),
		upstream.WithHTTPClient(&http.Client{Timeout: cfg.UpstreamTimeout()}),
		upstream.WithRateLimit(cfg.Upstream.RateLimit),
		upstream.WithMaxAttempts(cfg.Upstream.MaxAttempts),
		upstream.WithRetryBackoff(cfg.RetryBackoff()),
		upstream.WithLogger(log),
		upstream.WithEvents(collector.EventChannel()),
	)
	if err != nil {
		return nil, fmt.Errorf("creating upstream client: %w", err)
	}

	return &app{
		cfg:       cfg,
		log:       log,
		pool:      pool,
		collector: collector,
		client:    client,
	}, nil
}
