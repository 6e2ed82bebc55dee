package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rotator"

const (
	outcomeSuccess     = "success"
	outcomeFailure     = "failure"
	outcomeAuthFailure = "auth_failure"
)

// latencyBuckets covers fast API hits up to the 30s client timeout.
var latencyBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

type promMetrics struct {
	registry    *prometheus.Registry
	selections  *prometheus.CounterVec
	requests    *prometheus.CounterVec
	quarantines *prometheus.CounterVec
	exhaustions prometheus.Counter
	duration    *prometheus.HistogramVec
}

// newPromMetrics registers on a private registry so several collectors can
// coexist in one process, which tests rely on.
func newPromMetrics() *promMetrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &promMetrics{
		registry: registry,
		selections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identity_selections_total",
			Help:      "Number of times each client ID was selected for a request",
		}, []string{"identity"}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identity_requests_total",
			Help:      "Upstream attempts per client ID by outcome",
		}, []string{"identity", "outcome"}),
		quarantines: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identity_quarantines_total",
			Help:      "Number of times each client ID entered cooldown",
		}, []string{"identity"}),
		exhaustions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_exhaustions_total",
			Help:      "Number of selections that found every client ID cooling down",
		}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream attempt latency in seconds",
			Buckets:   latencyBuckets,
		}, []string{"outcome"}),
	}
}

func (p *promMetrics) observeRequest(identity, outcome string, d time.Duration) {
	p.requests.WithLabelValues(identity, outcome).Inc()
	p.duration.WithLabelValues(outcome).Observe(d.Seconds())
}

// Registry exposes the collector's Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.prometheus.registry
}
