package identity

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// RedactPrefixLen is the maximum number of leading characters kept by Redact.
const RedactPrefixLen = 8

const redactMask = "***"

// State is the rotation state of one pooled identity.
type State int

const (
	StateActive      State = iota // Selectable
	StateCoolingDown              // Quarantined until cooldownUntil
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateCoolingDown:
		return "cooling_down"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "active":
		*s = StateActive
	case "cooling_down":
		*s = StateCoolingDown
	default:
		return fmt.Errorf("unknown identity state %q", text)
	}
	return nil
}

// Strategy selects how the pool moves its cursor between identities.
type Strategy string

const (
	StrategyFailover   Strategy = "failover"
	StrategyRoundRobin Strategy = "round-robin"
)

// ParseStrategy maps a configuration value to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(strings.ToLower(strings.TrimSpace(name)))
	if !s.valid() {
		return "", &ConfigurationError{
			Field:  "strategy",
			Reason: fmt.Sprintf("must be one of failover, round-robin (got %q)", name),
		}
	}
	return s, nil
}

func (s Strategy) valid() bool {
	return s == StrategyFailover || s == StrategyRoundRobin
}

// Identity is a handle to one pooled client ID as returned by Select.
// It is safe to copy and to pass between goroutines.
type Identity struct {
	position int
	value    string
}

// Position returns the identity's index in configuration order.
func (i Identity) Position() int {
	return i.position
}

// Value returns the raw credential. Only the request executor should need it.
func (i Identity) Value() string {
	return i.value
}

// IsZero reports whether i is the empty handle returned alongside an error.
func (i Identity) IsZero() bool {
	return i.value == ""
}

// String returns the redacted credential.
func (i Identity) String() string {
	return Redact(i.value)
}

// LogValue implements slog.LogValuer so identities are always logged redacted.
func (i Identity) LogValue() slog.Value {
	return slog.StringValue(Redact(i.value))
}

// Redact keeps a short prefix of value and masks the rest. At most half of the
// value is ever revealed, so short credentials stay mostly hidden.
func Redact(value string) string {
	n := utf8.RuneCountInString(value)
	keep := min(RedactPrefixLen, n/2)
	if keep == 0 {
		return redactMask
	}

	runes := []rune(value)
	return string(runes[:keep]) + redactMask
}
