package graphauth

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pilr/team-summary-sub000/security"
)

// SweepResult summarizes one maintenance sweep.
type SweepResult struct {
	// Candidates is how many records were nearing expiry.
	Candidates int

	// Refreshed is how many were successfully refreshed.
	Refreshed int

	// Failed is how many refreshes failed. The records keep their
	// last-known state; failures are not retried within the sweep.
	Failed int

	// Skipped is how many records had no refresh token and were left for
	// human re-authorization.
	Skipped int
}

// Sweep refreshes every token record expiring within the configured window.
// It shares the exact refresh path used by interactive status evaluation, so
// both honor the same idempotent-upsert contract; concurrent sweeps and
// interactive refreshes racing on the same principal are safe.
func (m *Manager) Sweep(ctx context.Context) (SweepResult, error) {
	start := time.Now()
	now := m.now().UTC()

	records, err := m.tokens.ListExpiring(ctx, now.Add(m.config.SweepWindow))
	m.inst.RecordStorageOperation(ctx, "list_expiring", err)
	if err != nil {
		return SweepResult{}, &Error{
			Kind:        KindPersistenceFailed,
			Description: "failed to list expiring tokens",
			Err:         err,
		}
	}

	result := SweepResult{Candidates: len(records)}
	var refreshed, failed atomic.Int64

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(m.config.SweepConcurrency)

	for _, record := range records {
		if record.RefreshToken == "" {
			result.Skipped++
			continue
		}
		// A record with no recorded expiry is never near expiry; there is
		// nothing to refresh ahead of.
		if !security.IsTokenExpiringSoon(record.ExpiresAt, now, m.config.SweepWindow) {
			result.Skipped++
			continue
		}

		group.Go(func() error {
			if _, err := m.Refresh(groupCtx, record.PrincipalID, record.RefreshToken); err != nil {
				failed.Add(1)
				m.logger.Warn("Sweep refresh failed",
					"provider", record.Provider, "error", err)
				// A failed refresh leaves the record for re-authorization;
				// it must not abort the rest of the sweep.
				return nil
			}
			refreshed.Add(1)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return result, err
	}

	result.Refreshed = int(refreshed.Load())
	result.Failed = int(failed.Load())
	m.inst.RecordSweepDuration(ctx, time.Since(start))
	m.logger.Info("Maintenance sweep completed",
		"candidates", result.Candidates,
		"refreshed", result.Refreshed,
		"failed", result.Failed,
		"skipped", result.Skipped)

	return result, nil
}
