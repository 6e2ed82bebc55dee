package handler

import (
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/angeloszaimis/clientid-rotator/internal/identity"
)

// StatusSource is satisfied by *identity.Pool.
type StatusSource interface {
	Status() identity.Snapshot
}

// StatusHandler serves read-only views of the identity pool. It never
// selects or reports, so serving it does not change pool state.
type StatusHandler struct {
	logger *slog.Logger
	pool   StatusSource
}

type healthResponse struct {
	Status      string `json:"status"`
	Total       int    `json:"total"`
	Eligible    int    `json:"eligible"`
	CoolingDown int    `json:"cooling_down"`
}

func NewStatusHandler(logger *slog.Logger, pool StatusSource) *StatusHandler {
	return &StatusHandler{
		logger: logger,
		pool:   pool,
	}
}

// Status writes the full pool snapshot with redacted client IDs.
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("Status requested",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("user_agent", r.UserAgent()))

	h.writeJSON(w, http.StatusOK, h.pool.Status())
}

// Healthz answers 200 while at least one client ID can be selected and 503
// once every client ID is cooling down.
func (h *StatusHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	snap := h.pool.Status()

	resp := healthResponse{
		Status:      "ok",
		Total:       snap.Total,
		Eligible:    snap.Eligible,
		CoolingDown: snap.CoolingDown,
	}
	code := http.StatusOK

	if snap.Exhausted() {
		resp.Status = "exhausted"
		code = http.StatusServiceUnavailable
		h.logger.Warn("Health check failed, no client ID available",
			slog.Int("cooling_down", snap.CoolingDown),
			slog.Int("total", snap.Total))
	}

	h.writeJSON(w, code, resp)
}

func (h *StatusHandler) writeJSON(w http.ResponseWriter, code int, body any) {
	payload, err := json.Marshal(body)
	if err != nil {
		h.logger.Error("Failed to encode response", slog.String("error", err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(payload)
}
