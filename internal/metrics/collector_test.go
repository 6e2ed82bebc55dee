package metrics_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/goccy/go-json"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/angeloszaimis/clientid-rotator/internal/metrics"
)

const id = "a1b2c3d4***"

var _ = Describe("Collector", func() {
	var (
		collector *metrics.Collector
		log       *slog.Logger
		ctx       context.Context
		cancel    context.CancelFunc
	)

	BeforeEach(func() {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
		ctx, cancel = context.WithCancel(context.Background())
		collector = metrics.NewCollector(100, log)
	})

	AfterEach(func() {
		cancel()
	})

	snapshot := func() metrics.IdentityMetrics {
		return collector.Snapshot("failover").Identities[id]
	}

	Describe("Start and event processing", func() {
		BeforeEach(func() {
			collector.Start(ctx)
		})

		It("should process EventIdentitySelected", func() {
			collector.EventChannel() <- metrics.MetricEvent{Type: metrics.EventIdentitySelected, Identity: id}

			Eventually(func() int64 { return snapshot().Selections }).Should(Equal(int64(1)))
			Expect(testutil.ToFloat64(metrics.SelectionsCounter(collector, id))).To(Equal(1.0))
		})

		It("should process EventRequestSucceeded", func() {
			collector.EventChannel() <- metrics.MetricEvent{
				Type:       metrics.EventRequestSucceeded,
				Identity:   id,
				Duration:   100 * time.Millisecond,
				StatusCode: 200,
			}

			Eventually(func() int64 { return snapshot().Successes }).Should(Equal(int64(1)))
			Expect(snapshot().AvgResponse).To(Equal(100 * time.Millisecond))
			Expect(snapshot().StatusCodes[200]).To(Equal(int64(1)))
		})

		It("should count auth failures separately", func() {
			collector.EventChannel() <- metrics.MetricEvent{
				Type: metrics.EventRequestFailed, Identity: id, StatusCode: 401, AuthFailure: true,
			}
			collector.EventChannel() <- metrics.MetricEvent{
				Type: metrics.EventRequestFailed, Identity: id, StatusCode: 500,
			}
			collector.EventChannel() <- metrics.MetricEvent{Type: metrics.EventIdentityQuarantined, Identity: id}

			Eventually(func() int64 { return snapshot().Quarantines }).Should(Equal(int64(1)))
			Expect(snapshot().Failures).To(Equal(int64(2)))
			Expect(snapshot().AuthFailures).To(Equal(int64(1)))
			Expect(collector.Snapshot("failover").TotalRequests).To(Equal(int64(2)))

			count, err := testutil.GatherAndCount(collector.Registry(), "rotator_identity_requests_total")
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(2))
		})

		It("should count pool exhaustion", func() {
			collector.EventChannel() <- metrics.MetricEvent{Type: metrics.EventPoolExhausted}

			Eventually(func() int64 { return collector.Snapshot("failover").Exhaustions }).Should(Equal(int64(1)))
		})

		It("should drain events on context cancellation", func() {
			for range 5 {
				collector.EventChannel() <- metrics.MetricEvent{Type: metrics.EventIdentitySelected, Identity: id}
			}
			cancel()

			Eventually(func() int64 { return snapshot().Selections }).Should(Equal(int64(5)))
		})

		It("should close Done once the buffer is drained", func() {
			for range 3 {
				collector.EventChannel() <- metrics.MetricEvent{Type: metrics.EventIdentitySelected, Identity: id}
			}
			cancel()

			Eventually(collector.Done()).Should(BeClosed())
			Expect(snapshot().Selections).To(Equal(int64(3)))
		})
	})

	Describe("Emit", func() {
		It("should drop events when the buffer is full", func() {
			c := metrics.NewCollector(1, log)
			ev := metrics.MetricEvent{Type: metrics.EventIdentitySelected, Identity: id}

			Expect(metrics.Emit(c.EventChannel(), ev)).To(BeTrue())
			Expect(metrics.Emit(c.EventChannel(), ev)).To(BeFalse())
		})

		It("should ignore a nil channel", func() {
			Expect(metrics.Emit(nil, metrics.MetricEvent{})).To(BeFalse())
		})
	})

	Describe("Handlers", func() {
		It("should serve the JSON snapshot", func() {
			collector.Start(ctx)
			collector.EventChannel() <- metrics.MetricEvent{Type: metrics.EventIdentitySelected, Identity: id}
			Eventually(func() int64 { return snapshot().Selections }).Should(Equal(int64(1)))

			rec := httptest.NewRecorder()
			collector.Handler("round-robin").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Content-Type")).To(Equal("application/json"))

			var body metrics.Snapshot
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body.Strategy).To(Equal("round-robin"))
			Expect(body.Identities[id].Selections).To(Equal(int64(1)))
		})

		It("should serve Prometheus exposition", func() {
			collector.Start(ctx)
			collector.EventChannel() <- metrics.MetricEvent{Type: metrics.EventPoolExhausted}
			Eventually(func() int64 { return collector.Snapshot("failover").Exhaustions }).Should(Equal(int64(1)))

			rec := httptest.NewRecorder()
			collector.PrometheusHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics/prometheus", nil))

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring("rotator_pool_exhaustions_total 1"))

			err := testutil.GatherAndCompare(collector.Registry(), strings.NewReader(`
# HELP rotator_pool_exhaustions_total Number of selections that found every client ID cooling down
# TYPE rotator_pool_exhaustions_total counter
rotator_pool_exhaustions_total 1
`), "rotator_pool_exhaustions_total")
			Expect(err).NotTo(HaveOccurred())
		})
	})
})
