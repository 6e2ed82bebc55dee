package metrics

import (
	"sort"
	"sync"
	"time"
)

// responseWindow bounds the per-identity latency samples kept for percentiles.
const responseWindow = 1000

type Metrics struct {
	mutex         sync.RWMutex
	selections    map[string]int64
	successes     map[string]int64
	failures      map[string]int64
	authFailures  map[string]int64
	quarantines   map[string]int64
	responseTimes map[string][]time.Duration
	statusCodes   map[string]map[int]int64
	exhaustions   int64
	startTime     time.Time
}

type Snapshot struct {
	TotalRequests int64                      `json:"total_requests"`
	Exhaustions   int64                      `json:"pool_exhaustions"`
	Uptime        time.Duration              `json:"uptime"`
	Identities    map[string]IdentityMetrics `json:"identities"`
	Strategy      string                     `json:"strategy"`
}

type IdentityMetrics struct {
	Selections   int64         `json:"selections"`
	Successes    int64         `json:"successes"`
	Failures     int64         `json:"failures"`
	AuthFailures int64         `json:"auth_failures"`
	Quarantines  int64         `json:"quarantines"`
	AvgResponse  time.Duration `json:"avg_response"`
	P50Response  time.Duration `json:"p50_response"`
	P95Response  time.Duration `json:"p95_response"`
	P99Response  time.Duration `json:"p99_response"`
	StatusCodes  map[int]int64 `json:"status_codes"`
}

func (m *Metrics) RecordSelection(identity string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.selections[identity]++
}

// RecordResponse records the outcome of one upstream attempt. A zero status
// code means no response was received and is not counted per status.
func (m *Metrics) RecordResponse(identity string, duration time.Duration, statusCode int, success, authFailure bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if success {
		m.successes[identity]++
	} else {
		m.failures[identity]++
		if authFailure {
			m.authFailures[identity]++
		}
	}

	m.responseTimes[identity] = append(m.responseTimes[identity], duration)
	if len(m.responseTimes[identity]) > responseWindow {
		m.responseTimes[identity] = m.responseTimes[identity][1:]
	}

	if statusCode == 0 {
		return
	}

	if m.statusCodes[identity] == nil {
		m.statusCodes[identity] = make(map[int]int64)
	}
	m.statusCodes[identity][statusCode]++
}

func (m *Metrics) RecordQuarantine(identity string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.quarantines[identity]++
}

func (m *Metrics) RecordExhaustion() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.exhaustions++
}

func (m *Metrics) Snapshot(strategy string) Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Exhaustions: m.exhaustions,
		Uptime:      time.Since(m.startTime),
		Identities:  make(map[string]IdentityMetrics),
		Strategy:    strategy,
	}

	// Collect every identity seen by any counter
	all := make(map[string]bool)
	for _, counts := range []map[string]int64{m.selections, m.successes, m.failures, m.quarantines} {
		for identity := range counts {
			all[identity] = true
		}
	}

	for identity := range all {
		im := IdentityMetrics{
			Selections:   m.selections[identity],
			Successes:    m.successes[identity],
			Failures:     m.failures[identity],
			AuthFailures: m.authFailures[identity],
			Quarantines:  m.quarantines[identity],
			StatusCodes:  copyCodes(m.statusCodes[identity]),
		}
		snap.TotalRequests += im.Successes + im.Failures

		durations := m.responseTimes[identity]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			im.AvgResponse = average(sorted)
			im.P50Response = percentile(sorted, 0.50)
			im.P95Response = percentile(sorted, 0.95)
			im.P99Response = percentile(sorted, 0.99)
		}

		snap.Identities[identity] = im
	}

	return snap
}

func NewMetrics() *Metrics {
	return &Metrics{
		selections:    make(map[string]int64),
		successes:     make(map[string]int64),
		failures:      make(map[string]int64),
		authFailures:  make(map[string]int64),
		quarantines:   make(map[string]int64),
		responseTimes: make(map[string][]time.Duration),
		statusCodes:   make(map[string]map[int]int64),
		startTime:     time.Now(),
	}
}

func copyCodes(codes map[int]int64) map[int]int64 {
	if codes == nil {
		return nil
	}

	out := make(map[int]int64, len(codes))
	for code, n := range codes {
		out[code] = n
	}
	return out
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
