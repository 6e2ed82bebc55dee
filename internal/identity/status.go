package identity

import "time"

// Snapshot is a read-only view of the pool for logging and health endpoints.
type Snapshot struct {
	Strategy    Strategy         `json:"strategy"`
	Cursor      int              `json:"cursor"`
	Total       int              `json:"total"`
	Active      int              `json:"active"`
	CoolingDown int              `json:"cooling_down"`
	Eligible    int              `json:"eligible"`
	Identities  []IdentityStatus `json:"identities"`
}

type IdentityStatus struct {
	Position          int           `json:"position"`
	ID                string        `json:"id"`
	State             State         `json:"state"`
	Eligible          bool          `json:"eligible"`
	SuccessCount      uint64        `json:"success_count"`
	FailureCount      uint64        `json:"failure_count"`
	CooldownUntil     *time.Time    `json:"cooldown_until,omitempty"`
	CooldownRemaining time.Duration `json:"cooldown_remaining"`
}

// Exhausted reports whether no identity is currently selectable.
func (s Snapshot) Exhausted() bool {
	return s.Eligible == 0
}

// Status returns a snapshot of every identity. It never changes pool state:
// an identity whose cooldown has elapsed is reported as eligible but stays
// cooling down until the next Select observes it.
func (p *Pool) Status() Snapshot {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	now := p.now()

	snap := Snapshot{
		Strategy:   p.strategy,
		Cursor:     p.cursor,
		Total:      len(p.entries),
		Identities: make([]IdentityStatus, 0, len(p.entries)),
	}

	for i, e := range p.entries {
		st := IdentityStatus{
			Position:     i,
			ID:           Redact(e.value),
			State:        e.state,
			Eligible:     e.eligibleAt(now),
			SuccessCount: e.successCount,
			FailureCount: e.failureCount,
		}

		switch e.state {
		case StateActive:
			snap.Active++
		case StateCoolingDown:
			snap.CoolingDown++
			until := e.cooldownUntil
			st.CooldownUntil = &until
			st.CooldownRemaining = max(until.Sub(now), 0)
		}

		if st.Eligible {
			snap.Eligible++
		}

		snap.Identities = append(snap.Identities, st)
	}

	return snap
}
