package graphauth

import (
	"context"
	"errors"
	"net/url"

	"github.com/pilr/team-summary-sub000/provider"
	"github.com/pilr/team-summary-sub000/storage"
)

// Exchange consumes an authorization code plus anti-replay state and turns it
// into a persisted token record for the principal.
//
// guard is the caller's login-session replay set: the same code presented
// twice within one session is rejected without any network call. A nil guard
// disables replay protection (batch/testing use only).
//
// On success the record has been upserted; a failed best-effort validation
// call does not roll it back and is reported through ExchangeResult.Limited.
func (m *Manager) Exchange(ctx context.Context, principalID, code, state string, guard *ProcessedCodes) (*ExchangeResult, error) {
	if state == "" {
		m.auditor.LogAuthFailure(principalID, m.provider.Name(), "missing_state_parameter")
		return nil, NewError(KindMissingState, "state parameter is required for CSRF protection")
	}

	if guard != nil {
		if guard.Seen(code) {
			m.auditor.LogReplayRejected(principalID, m.provider.Name())
			m.inst.RecordCodeExchanged(ctx, "replay_rejected")
			return nil, NewError(KindCodeAlreadyUsed, "authorization code was already exchanged in this session")
		}
		guard.Add(code)
	}

	creds, err := m.resolver.Resolve(ctx, principalID)
	if err != nil {
		return nil, err
	}

	resp, err := m.provider.Exchange(ctx, creds, code)
	if err != nil {
		m.auditor.LogAuthFailure(principalID, m.provider.Name(), "token_exchange_failed")
		m.inst.RecordCodeExchanged(ctx, "failure")
		return nil, m.wrapEndpointError(KindTokenExchangeFailed, "authorization code exchange failed", err)
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

	err = m.tokens.UpsertToken(ctx, record)
	m.inst.RecordStorageOperation(ctx, "upsert", err)
	if err != nil {
		m.inst.RecordCodeExchanged(ctx, "persistence_failed")
		return nil, &Error{
			Kind:        KindPersistenceFailed,
			Description: "failed to persist token record",
			Err:         err,
		}
	}

	m.auditor.LogTokenIssued(principalID, m.provider.Name(), record.Scope)
	m.inst.RecordCodeExchanged(ctx, "success")
	m.logger.Info("Authorization code exchanged",
		"provider", m.provider.Name(),
		"expires_at", record.ExpiresAt)

	result := &ExchangeResult{Record: record}

	// Best-effort validation. The token is already persisted; a failure here
	// downgrades the result to "connected (limited)" rather than erroring.
	if m.config.ValidateOnConnect && m.validator != nil {
		if validateErr := m.validator.ValidateToken(ctx, record.AccessToken); validateErr != nil {
			m.logger.Warn("Post-exchange token validation failed",
				"provider", m.provider.Name(), "error", validateErr)
			result.Limited = true
			result.Warning = validateErr
		}
	}

	return result, nil
}

// wrapEndpointError maps a provider call failure to a typed core error. When
// the provider answered at all, the requested kind is kept and the HTTP
// status and raw body are preserved. NetworkError is reserved for failures
// where no usable response arrived, so a malformed success response (say, a
// 200 whose JSON carries no access token) classifies as an exchange failure,
// not a transient network problem.
func (m *Manager) wrapEndpointError(kind, description string, err error) error {
	var endpointErr *provider.EndpointError
	if errors.As(err, &endpointErr) {
		return &Error{
			Kind:        kind,
			Description: description,
			StatusCode:  endpointErr.StatusCode,
			Body:        endpointErr.Body,
			Err:         err,
		}
	}
	if isTransportError(err) {
		return &Error{
			Kind:        KindNetworkError,
			Description: description,
			Err:         err,
		}
	}
	return &Error{
		Kind:        kind,
		Description: description,
		Err:         err,
	}
}

// isTransportError reports whether a call failed before the provider could
// answer: dial or TLS failures, cancelled or timed-out contexts.
func isTransportError(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
