package graphauth

import (
	"context"
	"errors"

	"github.com/pilr/team-summary-sub000/provider"
	"github.com/pilr/team-summary-sub000/storage"
)

// refreshRejectedCodes are OAuth error codes that mean the provider
// explicitly refused the refresh token or the presented credentials. These
// require human re-authorization; retrying is pointless.
var refreshRejectedCodes = map[string]bool{
	"invalid_grant":  true,
	"invalid_client": true,
}

// Refresh exchanges a refresh token for a new access token and upserts the
// result. On failure the stored record is left untouched: the prior
// (expired) token remains the last-known-good state so a human-driven
// re-authorization can see exactly what failed.
//
// Refresh is safe to race for the same principal: the store upsert is
// last-write-wins, and a refresher that loses the race still returns its own
// provider-issued token as success.
func (m *Manager) Refresh(ctx context.Context, principalID, refreshToken string) (*storage.Record, error) {
	if refreshToken == "" {
		return nil, NewError(KindRefreshFailed, "no refresh token available")
	}

	creds, err := m.resolver.Resolve(ctx, principalID)
	if err != nil {
		return nil, err
	}

	// Carry fields forward that the provider may omit from the refresh
	// response. Best-effort: a missing record just means nothing to carry.
	previous, _ := m.tokens.GetToken(ctx, principalID, m.provider.Name())

	resp, err := m.provider.Refresh(ctx, creds, refreshToken)
	if err != nil {
		m.auditor.LogTokenRefreshed(principalID, m.provider.Name(), false)
		m.inst.RecordTokenRefreshed(ctx, "failure")
		return nil, m.wrapRefreshError(err)
	}

	record := &storage.Record{
		PrincipalID:  principalID,
		Provider:     m.provider.Name(),
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
		ExpiresAt:    resp.ExpiresAt.UTC(),
		Scope:        resp.Scope,
	}

	// Providers may omit the refresh token when they did not rotate it.
	// That must not be read as "refresh token revoked".
	if record.RefreshToken == "" {
		record.RefreshToken = refreshToken
	}
	if previous != nil {
		if record.TokenType == "" {
			record.TokenType = previous.TokenType
		}
		if record.Scope == "" {
			record.Scope = previous.Scope
		}
	}

	err = m.tokens.UpsertToken(ctx, record)
	m.inst.RecordStorageOperation(ctx, "upsert", err)
	if err != nil {
		m.inst.RecordTokenRefreshed(ctx, "persistence_failed")
		return nil, &Error{
			Kind:        KindPersistenceFailed,
			Description: "failed to persist refreshed token",
			Err:         err,
		}
	}

	m.auditor.LogTokenRefreshed(principalID, m.provider.Name(), true)
	m.inst.RecordTokenRefreshed(ctx, "success")
	m.logger.Debug("Token refreshed",
		"provider", m.provider.Name(),
		"expires_at", record.ExpiresAt)

	return record, nil
}

// wrapRefreshError distinguishes an explicit provider rejection (human must
// re-authorize) from a transient failure (worth retrying later). The raw
// provider body is preserved either way.
func (m *Manager) wrapRefreshError(err error) error {
	var endpointErr *provider.EndpointError
	if errors.As(err, &endpointErr) {
		kind := KindRefreshFailed
		if refreshRejectedCodes[endpointErr.Code] {
			kind = KindRefreshRejected
		}
		return &Error{
			Kind:        kind,
			Description: "token refresh failed",
			StatusCode:  endpointErr.StatusCode,
			Body:        endpointErr.Body,
			Err:         err,
		}
	}
	return &Error{
		Kind:        KindRefreshFailed,
		Description: "token refresh failed",
		Err:         err,
	}
}
