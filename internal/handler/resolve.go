package handler

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/angeloszaimis/clientid-rotator/internal/identity"
	"github.com/angeloszaimis/clientid-rotator/internal/upstream"
)

// Resolver is satisfied by *upstream.Client.
type Resolver interface {
	Resolve(ctx context.Context, trackURL string) (*upstream.Track, error)
	StreamURL(ctx context.Context, track *upstream.Track) (string, error)
}

// ResolveHandler looks up SoundCloud tracks through the client ID pool.
type ResolveHandler struct {
	logger   *slog.Logger
	resolver Resolver
	status   *StatusHandler
}

type resolveResponse struct {
	ID           int64  `json:"id"`
	Artist       string `json:"artist"`
	Title        string `json:"title"`
	DurationMS   int64  `json:"duration_ms"`
	PermalinkURL string `json:"permalink_url,omitempty"`
	ArtworkURL   string `json:"artwork_url,omitempty"`
	StreamURL    string `json:"stream_url,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewResolveHandler(logger *slog.Logger, resolver Resolver) *ResolveHandler {
	return &ResolveHandler{
		logger:   logger,
		resolver: resolver,
		status:   &StatusHandler{logger: logger},
	}
}

// Resolve answers GET /resolve?url=<track>[&stream=false]. The stream URL is
// fetched unless stream is false.
func (h *ResolveHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	trackURL := r.URL.Query().Get("url")
	withStream := true
	if raw := r.URL.Query().Get("stream"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			h.status.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "stream must be a boolean"})
			return
		}
		withStream = parsed
	}

	track, err := h.resolver.Resolve(r.Context(), trackURL)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := resolveResponse{
		ID:           track.ID,
		Artist:       track.Artist(),
		Title:        track.Title,
		DurationMS:   track.DurationMS,
		PermalinkURL: track.PermalinkURL,
		ArtworkURL:   track.ArtworkURL,
	}

	if withStream {
		streamURL, err := h.resolver.StreamURL(r.Context(), track)
		if err != nil {
			h.writeError(w, err)
			return
		}
		resp.StreamURL = streamURL
	}

	h.status.writeJSON(w, http.StatusOK, resp)
}

func (h *ResolveHandler) writeError(w http.ResponseWriter, err error) {
	var (
		exhausted *identity.ExhaustedError
		apiErr    *upstream.APIError
	)

	code := http.StatusBadGateway
	switch {
	case errors.Is(err, upstream.ErrInvalidURL):
		code = http.StatusBadRequest
	case errors.Is(err, upstream.ErrNotATrack), errors.Is(err, upstream.ErrNoStream):
		code = http.StatusUnprocessableEntity
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound:
		code = http.StatusNotFound
	case errors.As(err, &exhausted):
		code = http.StatusServiceUnavailable
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(exhausted.RetryAfter.Seconds()))))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code = http.StatusGatewayTimeout
	}

	if code >= http.StatusInternalServerError {
		h.logger.Warn("Resolve failed", slog.Int("status", code), slog.String("error", err.Error()))
	}

	h.status.writeJSON(w, code, errorResponse{Error: err.Error()})
}
