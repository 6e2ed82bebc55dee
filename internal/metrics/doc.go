// Package metrics collects client ID usage metrics for the rotator.
//
// It uses a channel-based event pipeline to asynchronously collect:
//   - Selections per client ID
//   - Successful and failed upstream attempts, with auth failures counted apart
//   - Cooldown entries and pool exhaustion
//   - Response times with percentile calculations (P50, P95, P99)
//   - HTTP status code distribution
//
// The request executor emits events with Emit, which never blocks: when the
// buffer is full the event is dropped. The collector goroutine applies events
// to an in-memory store served as JSON by Handler and to a private Prometheus
// registry served by PrometheusHandler.
//
// Example usage:
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//
//	metrics.Emit(collector.EventChannel(), metrics.MetricEvent{
//		Type:       metrics.EventRequestSucceeded,
//		Identity:   identity.Redact(clientID),
//		Duration:   150 * time.Millisecond,
//		StatusCode: 200,
//	})
//
//	snapshot := collector.Snapshot("failover")
//
// Identity labels are always redacted values; the collector never sees a raw
// client ID.
package metrics
