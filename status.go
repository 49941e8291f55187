package graphauth

import (
	"context"
	"errors"

	"github.com/pilr/team-summary-sub000/security"
	"github.com/pilr/team-summary-sub000/storage"
)

// Status evaluates a principal's connection to the provider, attempting
// exactly one silent refresh before declaring the connection expired.
//
// A store read failure maps to StateError, never to StateDisconnected: a
// transient outage must not be confused with "user never connected".
func (m *Manager) Status(ctx context.Context, principalID string) Status {
	record, err := m.tokens.GetToken(ctx, principalID, m.provider.Name())
	if errors.Is(err, storage.ErrTokenNotFound) {
		// Absence is a state, not a store failure.
		m.inst.RecordStorageOperation(ctx, "get", nil)
		return Status{State: StateDisconnected}
	}
	m.inst.RecordStorageOperation(ctx, "get", err)
	if err != nil {
		m.logger.Error("Failed to read token record", "error", err)
		return Status{State: StateError, Err: err}
	}

	if !security.IsTokenExpiredWithGracePeriod(record.ExpiresAt, m.now(), m.config.ClockSkewGracePeriod) {
		return Status{State: StateConnected, ExpiresAt: record.ExpiresAt}
	}

	if record.RefreshToken == "" {
		return Status{State: StateExpired, ExpiresAt: record.ExpiresAt}
	}

	refreshed, err := m.Refresh(ctx, principalID, record.RefreshToken)
	if err != nil {
		return Status{State: StateExpired, ExpiresAt: record.ExpiresAt, Err: err}
	}
	return Status{State: StateConnected, ExpiresAt: refreshed.ExpiresAt}
}
