package identity

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

type entry struct {
	value         string
	state         State
	successCount  uint64
	failureCount  uint64
	cooldownUntil time.Time
}

func (e *entry) eligibleAt(now time.Time) bool {
	return e.state == StateActive || !now.Before(e.cooldownUntil)
}

// Pool is a fixed, ordered set of identities with per-identity health state.
// All methods are safe for concurrent use; one mutex guards the cursor and
// every identity because a selection scan reads across all of them.
type Pool struct {
	mutex    sync.Mutex
	entries  []*entry
	strategy Strategy
	cooldown time.Duration
	cursor   int
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Pool.
type Option func(*Pool)

// WithClock overrides the time source used for cooldown bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(p *Pool) {
		if now != nil {
			p.now = now
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New builds a pool from the configured client IDs. Every identity starts
// active with zero counters and the cursor on the first one.
func New(values []string, strategy Strategy, cooldown time.Duration, opts ...Option) (*Pool, error) {
	if len(values) == 0 {
		return nil, &ConfigurationError{Field: "identities", Reason: "at least one client ID is required"}
	}

	if !strategy.valid() {
		return nil, &ConfigurationError{
			Field:  "strategy",
			Reason: fmt.Sprintf("must be one of failover, round-robin (got %q)", strategy),
		}
	}

	if cooldown <= 0 {
		return nil, &ConfigurationError{
			Field:  "cooldown",
			Reason: fmt.Sprintf("must be positive (got %s)", cooldown),
		}
	}

	seen := make(map[string]int, len(values))
	entries := make([]*entry, 0, len(values))

	for i, raw := range values {
		value := strings.TrimSpace(raw)
		if value == "" {
			return nil, &ConfigurationError{
				Field:  "identities",
				Reason: fmt.Sprintf("client ID #%d is blank", i+1),
			}
		}

		if first, dup := seen[value]; dup {
			return nil, &ConfigurationError{
				Field:  "identities",
				Reason: fmt.Sprintf("client ID #%d duplicates #%d", i+1, first+1),
			}
		}

		seen[value] = i
		entries = append(entries, &entry{value: value, state: StateActive})
	}

	p := &Pool{
		entries:  entries,
		strategy: strategy,
		cooldown: cooldown,
		now:      time.Now,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	p.logger.Info("Identity pool initialized",
		slog.Int("client_ids", len(entries)),
		slog.String("strategy", string(strategy)),
		slog.Duration("cooldown", cooldown))

	return p, nil
}

// Select returns the identity to use for the next outbound request.
//
// Failover examines the current identity first; round-robin starts one past it.
// Either way the scan wraps over the whole pool once, reactivating identities
// whose cooldown has elapsed as it goes. If nothing is eligible Select returns
// an *ExhaustedError.
func (p *Pool) Select() (Identity, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	now := p.now()
	n := len(p.entries)

	start := p.cursor
	if p.strategy == StrategyRoundRobin {
		start = (p.cursor + 1) % n
	}

	for i := 0; i < n; i++ {
		idx := (start + i) % n
		e := p.entries[idx]

		if !e.eligibleAt(now) {
			continue
		}

		if e.state == StateCoolingDown {
			e.state = StateActive
			e.cooldownUntil = time.Time{}
			p.logger.Info("Client ID recovered after cooldown",
				slog.Int("position", idx+1),
				slog.String("identity", Redact(e.value)))
		}

		if p.strategy == StrategyFailover && idx != p.cursor {
			p.logger.Info("Switched client ID",
				slog.Int("from", p.cursor+1),
				slog.Int("to", idx+1),
				slog.String("identity", Redact(e.value)))
		}

		p.cursor = idx
		return Identity{position: idx, value: e.value}, nil
	}

	err := p.exhausted(now)
	p.logger.Error("All client IDs are exhausted",
		slog.Int("client_ids", n),
		slog.Duration("retry_after", err.RetryAfter))

	return Identity{}, err
}

func (p *Pool) exhausted(now time.Time) *ExhaustedError {
	earliest := p.entries[0].cooldownUntil
	for _, e := range p.entries[1:] {
		if e.cooldownUntil.Before(earliest) {
			earliest = e.cooldownUntil
		}
	}

	return &ExhaustedError{
		Total:      len(p.entries),
		RetryAt:    earliest,
		RetryAfter: max(earliest.Sub(now), 0),
	}
}

// ReportSuccess records a successful use of id. A cooling identity reported
// healthy (a stale handle) is put back to active. The cursor never moves.
func (p *Pool) ReportSuccess(id Identity) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	e, err := p.lookup(id)
	if err != nil {
		return err
	}

	e.successCount++

	if e.state == StateCoolingDown {
		e.state = StateActive
		e.cooldownUntil = time.Time{}
		p.logger.Info("Client ID reported healthy while cooling down, reactivated",
			slog.Any("identity", id))
	}

	p.logger.Debug("Client ID marked as successful",
		slog.Any("identity", id),
		slog.Uint64("success_count", e.successCount))

	return nil
}

// ReportFailure records a failed use of id. Only an authentication failure
// puts the identity in cooldown; other failures are counted and nothing else.
func (p *Pool) ReportFailure(id Identity, authFailure bool) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	e, err := p.lookup(id)
	if err != nil {
		return err
	}

	e.failureCount++

	if !authFailure {
		p.logger.Debug("Client ID request failed",
			slog.Any("identity", id),
			slog.Uint64("failure_count", e.failureCount))
		return nil
	}

	e.state = StateCoolingDown
	e.cooldownUntil = p.now().Add(p.cooldown)

	p.logger.Warn("Client ID rejected, cooling down",
		slog.Any("identity", id),
		slog.Uint64("failure_count", e.failureCount),
		slog.Time("cooldown_until", e.cooldownUntil))

	return nil
}

func (p *Pool) lookup(id Identity) (*entry, error) {
	if id.IsZero() || id.position < 0 || id.position >= len(p.entries) {
		return nil, ErrUnknownIdentity
	}

	e := p.entries[id.position]
	if e.value != id.value {
		return nil, ErrUnknownIdentity
	}

	return e, nil
}

// Len returns the number of identities in the pool.
func (p *Pool) Len() int {
	return len(p.entries)
}

// Strategy returns the rotation strategy the pool was built with.
func (p *Pool) Strategy() Strategy {
	return p.strategy
}

// Cooldown returns how long an identity stays quarantined after an auth failure.
func (p *Pool) Cooldown() time.Duration {
	return p.cooldown
}
