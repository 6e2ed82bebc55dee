package identity

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrAllIdentitiesExhausted is matched by every *ExhaustedError.
	ErrAllIdentitiesExhausted = errors.New("no active client IDs available")

	// ErrUnknownIdentity is returned when a report names an identity the pool does not own.
	ErrUnknownIdentity = errors.New("identity does not belong to this pool")
)

// ConfigurationError reports an invalid pool configuration. It is fatal at startup.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid identity configuration: %s: %s", e.Field, e.Reason)
}

// ExhaustedError is returned by Select when every identity is cooling down.
type ExhaustedError struct {
	Total      int
	RetryAt    time.Time
	RetryAfter time.Duration
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: all %d client IDs are cooling down, earliest recovery in %s",
		ErrAllIdentitiesExhausted, e.Total, e.RetryAfter.Round(time.Second))
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrAllIdentitiesExhausted
}
