package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/whiskerauth/whisker-auth/internal/ports"
)

// Sweeper periodically flips overdue session and license rows. It is a
// housekeeping collaborator only: every read path applies lazy expiry, so a
// stalled sweeper never changes an authorization decision.
type Sweeper struct {
	logger   *slog.Logger
	sessions ports.SessionRepository
	licenses ports.LicenseRepository
	interval time.Duration
}

// NewSweeper constructs the expiry sweep loop with a sane default interval.
func NewSweeper(logger *slog.Logger, sessions ports.SessionRepository, licenses ports.LicenseRepository, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		logger:   logger,
		sessions: sessions,
		licenses: licenses,
		interval: interval,
	}
}

// Run executes the periodic sweep until context cancellation.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.sweepOnce(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	now := time.Now().UTC()

	sessionsSwept, err := s.sessions.DeactivateExpired(ctx, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "session sweep failed",
			"module", "worker.sweeper",
			"operation", "sweep_sessions",
			"outcome", "failure",
			"error", err,
		)
	}

	licensesSwept, err := s.licenses.MarkExpired(ctx, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "license sweep failed",
			"module", "worker.sweeper",
			"operation", "sweep_licenses",
			"outcome", "failure",
			"error", err,
		)
	}

	if sessionsSwept > 0 || licensesSwept > 0 {
		s.logger.InfoContext(ctx, "sweep completed",
			"module", "worker.sweeper",
			"operation", "sweep_once",
			"outcome", "success",
			"sessions_deactivated", sessionsSwept,
			"licenses_expired", licensesSwept,
		)
	}
}
