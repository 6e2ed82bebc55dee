package healthcheck_test

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/clientid-rotator/internal/healthcheck"
	"github.com/angeloszaimis/clientid-rotator/internal/identity"
)

// syncBuffer lets the reporter goroutine and the test share a log sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type countingSource struct {
	mu    sync.Mutex
	calls int
	pool  *identity.Pool
}

func (s *countingSource) Status() identity.Snapshot {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.pool.Status()
}

func (s *countingSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

var _ = Describe("Reporter", func() {
	var (
		pool   *identity.Pool
		logs   *syncBuffer
		log    *slog.Logger
		ctx    context.Context
		cancel context.CancelFunc
	)

	BeforeEach(func() {
		logs = &syncBuffer{}
		log = slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

		var err error
		pool, err = identity.New([]string{"first-client-id"}, identity.StrategyFailover, time.Hour,
			identity.WithLogger(slog.New(slog.DiscardHandler)))
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel = context.WithCancel(context.Background())
	})

	AfterEach(func() {
		cancel()
	})

	It("should log a summary on every tick", func() {
		source := &countingSource{pool: pool}
		go healthcheck.Reporter(ctx, source, 10*time.Millisecond, log)

		Eventually(source.Calls).Should(BeNumerically(">=", 2))
		Expect(logs.String()).To(ContainSubstring("Client ID health check"))
		Expect(logs.String()).To(ContainSubstring("active=1"))
	})

	It("should warn when every client ID is cooling down", func() {
		id, err := pool.Select()
		Expect(err).NotTo(HaveOccurred())
		Expect(pool.ReportFailure(id, true)).To(Succeed())

		go healthcheck.Reporter(ctx, pool, 10*time.Millisecond, log)

		Eventually(logs.String).Should(ContainSubstring("All client IDs are cooling down"))
		Expect(logs.String()).To(ContainSubstring("identity=first-c***"))
		Expect(logs.String()).NotTo(ContainSubstring("first-client-id"))
	})

	It("should stop when the context is cancelled", func() {
		done := make(chan struct{})
		go func() {
			healthcheck.Reporter(ctx, pool, time.Hour, log)
			close(done)
		}()

		cancel()
		Eventually(done).Should(BeClosed())
		Expect(logs.String()).To(ContainSubstring("Identity health reporter stopped"))
	})

	It("should never reactivate a client ID itself", func() {
		id, err := pool.Select()
		Expect(err).NotTo(HaveOccurred())
		Expect(pool.ReportFailure(id, true)).To(Succeed())

		source := &countingSource{pool: pool}
		go healthcheck.Reporter(ctx, source, 5*time.Millisecond, log)
		Eventually(source.Calls).Should(BeNumerically(">=", 3))

		Expect(pool.Status().Identities[0].State).To(Equal(identity.StateCoolingDown))
	})
})
