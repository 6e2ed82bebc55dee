package metrics

import (
	"context"
	"log/slog"
	"time"
)

type EventType string

const (
	EventIdentitySelected    EventType = "identity_selected"
	EventRequestSucceeded    EventType = "request_succeeded"
	EventRequestFailed       EventType = "request_failed"
	EventIdentityQuarantined EventType = "identity_quarantined"
	EventPoolExhausted       EventType = "pool_exhausted"
)

// MetricEvent describes one step of an upstream attempt. Identity must
// already be redacted by the sender.
type MetricEvent struct {
	Type        EventType
	Timestamp   time.Time
	Identity    string
	Duration    time.Duration
	StatusCode  int
	AuthFailure bool
}

type Collector struct {
	eventCh    chan MetricEvent
	metrics    *Metrics
	prometheus *promMetrics
	logger     *slog.Logger
	done       chan struct{}
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh:    make(chan MetricEvent, bufferSize),
		metrics:    NewMetrics(),
		prometheus: newPromMetrics(),
		logger:     logger,
		done:       make(chan struct{}),
	}
}

func (c *Collector) EventChannel() chan<- MetricEvent {
	return c.eventCh
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

// Done is closed once a started collector has drained its buffer after ctx
// was cancelled.
func (c *Collector) Done() <-chan struct{} {
	return c.done
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer close(c.done)
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	switch event.Type {
	case EventIdentitySelected:
		c.metrics.RecordSelection(event.Identity)
		c.prometheus.selections.WithLabelValues(event.Identity).Inc()

	case EventRequestSucceeded:
		c.metrics.RecordResponse(event.Identity, event.Duration, event.StatusCode, true, false)
		c.prometheus.observeRequest(event.Identity, outcomeSuccess, event.Duration)

	case EventRequestFailed:
		c.metrics.RecordResponse(event.Identity, event.Duration, event.StatusCode, false, event.AuthFailure)
		outcome := outcomeFailure
		if event.AuthFailure {
			outcome = outcomeAuthFailure
		}
		c.prometheus.observeRequest(event.Identity, outcome, event.Duration)

	case EventIdentityQuarantined:
		c.metrics.RecordQuarantine(event.Identity)
		c.prometheus.quarantines.WithLabelValues(event.Identity).Inc()

	case EventPoolExhausted:
		c.metrics.RecordExhaustion()
		c.prometheus.exhaustions.Inc()

	default:
		c.logger.Debug("Ignoring unknown metric event", slog.String("type", string(event.Type)))
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot(strategy string) Snapshot {
	return c.metrics.Snapshot(strategy)
}

// Emit sends event without blocking. It reports false when the buffer is full
// or ch is nil and the event was dropped.
func Emit(ch chan<- MetricEvent, event MetricEvent) bool {
	if ch == nil {
		return false
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case ch <- event:
		return true
	default:
		return false
	}
}
