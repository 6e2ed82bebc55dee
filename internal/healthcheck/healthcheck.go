package healthcheck

import (
	"context"
	"log/slog"
	"time"

	"github.com/angeloszaimis/clientid-rotator/internal/identity"
)

// StatusSource is satisfied by *identity.Pool.
type StatusSource interface {
	Status() identity.Snapshot
}

// Reporter periodically logs a summary of the identity pool until ctx is
// cancelled. It only reads Status, so cooldown recovery still happens at the
// next selection and never from here.
func Reporter(
	ctx context.Context,
	source StatusSource,
	interval time.Duration,
	logger *slog.Logger,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	exhausted := false

	for {
		select {
		case <-ctx.Done():
			logger.Info("Identity health reporter stopped")
			return

		case <-ticker.C:
			exhausted = report(source.Status(), exhausted, logger)
		}
	}
}

// report logs one summary and returns whether the pool is exhausted.
func report(snap identity.Snapshot, wasExhausted bool, logger *slog.Logger) bool {
	logger.Info("Client ID health check",
		slog.String("strategy", string(snap.Strategy)),
		slog.Int("active", snap.Active),
		slog.Int("cooling_down", snap.CoolingDown),
		slog.Int("total", snap.Total))

	for _, st := range snap.Identities {
		if st.State != identity.StateCoolingDown {
			continue
		}
		logger.Debug("Client ID cooling down",
			slog.Int("position", st.Position+1),
			slog.String("identity", st.ID),
			slog.Duration("remaining", st.CooldownRemaining))
	}

	exhausted := snap.Exhausted()
	switch {
	case exhausted:
		logger.Warn("All client IDs are cooling down",
			slog.Int("total", snap.Total))
	case wasExhausted:
		logger.Info("Client IDs available again",
			slog.Int("eligible", snap.Eligible))
	}

	return exhausted
}
