package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAttemptsExhausted wraps the last attempt error once the retry budget is spent.
	ErrAttemptsExhausted = errors.New("upstream attempts exhausted")

	ErrNotATrack  = errors.New("URL does not point to a track")
	ErrNoStream   = errors.New("no stream URL available for this track")
	ErrInvalidURL = errors.New("invalid SoundCloud URL")
)

// APIError is a non-2xx response from the upstream API.
type APIError struct {
	StatusCode int
	Status     string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream %s returned %s", e.Endpoint, e.Status)
}

// IsAuthFailure reports whether status means the client ID itself was rejected.
func IsAuthFailure(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

// IsTransient reports whether a request that got status is worth retrying.
func IsTransient(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}
