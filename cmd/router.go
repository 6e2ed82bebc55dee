package main

import (
	"net/http"

	"github.com/angeloszaimis/clientid-rotator/internal/handler"
	"github.com/angeloszaimis/clientid-rotator/internal/metrics"
)

func setupRouter(statusHandler *handler.StatusHandler, resolveHandler *handler.ResolveHandler, metricsCollector *metrics.Collector, strategy string) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /status", statusHandler.Status)
	mux.HandleFunc("GET /healthz", statusHandler.Healthz)
	mux.HandleFunc("GET /resolve", resolveHandler.Resolve)
	mux.HandleFunc("GET /metrics", metricsCollector.Handler(strategy))
	mux.Handle("GET /metrics/prometheus", metricsCollector.PrometheusHandler())

	return mux
}

func (a *app) router() *http.ServeMux {
	return setupRouter(
		handler.NewStatusHandler(a.log, a.pool),
		handler.NewResolveHandler(a.log, a.client),
		a.collector,
		string(a.pool.Strategy()),
	)
}
