package metrics_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/clientid-rotator/internal/metrics"
)

var _ = Describe("Metrics", func() {
	var m *metrics.Metrics

	BeforeEach(func() {
		m = metrics.NewMetrics()
	})

	Describe("RecordSelection", func() {
		It("should track identities separately", func() {
			m.RecordSelection("aaaa***")
			m.RecordSelection("aaaa***")
			m.RecordSelection("bbbb***")

			snap := m.Snapshot("round-robin")
			Expect(snap.Identities["aaaa***"].Selections).To(Equal(int64(2)))
			Expect(snap.Identities["bbbb***"].Selections).To(Equal(int64(1)))
			Expect(snap.TotalRequests).To(BeZero())
		})
	})

	Describe("RecordResponse", func() {
		It("should record response time and status code", func() {
			m.RecordResponse("aaaa***", 100*time.Millisecond, 200, true, false)
			m.RecordResponse("aaaa***", 200*time.Millisecond, 200, true, false)

			im := m.Snapshot("failover").Identities["aaaa***"]
			Expect(im.AvgResponse).To(Equal(150 * time.Millisecond))
			Expect(im.StatusCodes[200]).To(Equal(int64(2)))
			Expect(im.Successes).To(Equal(int64(2)))
		})

		It("should not count a missing status code", func() {
			m.RecordResponse("aaaa***", time.Second, 0, false, false)

			im := m.Snapshot("failover").Identities["aaaa***"]
			Expect(im.Failures).To(Equal(int64(1)))
			Expect(im.StatusCodes).To(BeEmpty())
		})

		It("should calculate percentiles correctly", func() {
			for i := 1; i <= 100; i++ {
				m.RecordResponse("aaaa***", time.Duration(i)*time.Millisecond, 200, true, false)
			}

			im := m.Snapshot("failover").Identities["aaaa***"]
			Expect(im.P50Response).To(BeNumerically("~", 50*time.Millisecond, 1*time.Millisecond))
			Expect(im.P95Response).To(BeNumerically("~", 95*time.Millisecond, 1*time.Millisecond))
			Expect(im.P99Response).To(BeNumerically("~", 99*time.Millisecond, 1*time.Millisecond))
		})

		It("should limit stored response times to 1000", func() {
			for i := 1; i <= 1500; i++ {
				m.RecordResponse("aaaa***", time.Duration(i)*time.Millisecond, 200, true, false)
			}

			im := m.Snapshot("failover").Identities["aaaa***"]
			Expect(im.AvgResponse).To(BeNumerically(">", 500*time.Millisecond))
			Expect(im.Successes).To(Equal(int64(1500)))
		})
	})

	Describe("RecordQuarantine and RecordExhaustion", func() {
		It("should count both", func() {
			m.RecordQuarantine("aaaa***")
			m.RecordExhaustion()
			m.RecordExhaustion()

			snap := m.Snapshot("failover")
			Expect(snap.Identities["aaaa***"].Quarantines).To(Equal(int64(1)))
			Expect(snap.Exhaustions).To(Equal(int64(2)))
		})
	})

	Describe("Snapshot", func() {
		It("should not share status code maps with the store", func() {
			m.RecordResponse("aaaa***", time.Millisecond, 200, true, false)
			snap := m.Snapshot("failover")
			snap.Identities["aaaa***"].StatusCodes[200] = 99

			Expect(m.Snapshot("failover").Identities["aaaa***"].StatusCodes[200]).To(Equal(int64(1)))
		})
	})
})
