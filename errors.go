package graphauth

import (
	"errors"
	"fmt"
)

// Error kinds for the delegated-access core. Callers branch on kind to decide
// between "try again", "ask the human to re-authorize", and "system
// misconfigured" - never on string matching.
const (
	// KindConfigurationMissing indicates neither a principal-specific nor a
	// system-default application registration is configured.
	KindConfigurationMissing = "configuration_missing"

	// KindMissingState indicates the callback carried no state parameter
	// (CSRF defense).
	KindMissingState = "missing_state"

	// KindCodeAlreadyUsed indicates the authorization code was already
	// exchanged within this login session (replay defense).
	KindCodeAlreadyUsed = "code_already_used"

	// KindTokenExchangeFailed indicates the provider rejected the
	// authorization-code exchange.
	KindTokenExchangeFailed = "token_exchange_failed"

	// KindRefreshFailed indicates a refresh failed for a transient reason
	// (network, provider outage, malformed response).
	KindRefreshFailed = "refresh_failed"

	// KindRefreshRejected indicates the provider explicitly rejected the
	// refresh token or credentials; re-authorization is required.
	KindRefreshRejected = "refresh_rejected"

	// KindPersistenceFailed indicates the token store rejected a write even
	// after the one-shot schema self-heal.
	KindPersistenceFailed = "persistence_failed"

	// KindTokenRejected indicates the resource API returned 401 for a token
	// that was locally unexpired: server-side revocation, not clock skew.
	KindTokenRejected = "token_rejected_by_provider"

	// KindProviderForbidden indicates a 403 from the resource API. The raw
	// body is preserved so callers can distinguish missing admin consent
	// from external-principal restrictions.
	KindProviderForbidden = "provider_forbidden"

	// KindNetworkError indicates a transport-level failure or timeout.
	KindNetworkError = "network_error"
)

// Error is a typed error from the delegated-access core.
type Error struct {
	// Kind is one of the Kind* constants.
	Kind string

	// Description is a human-readable description. Provider-supplied
	// error_description values are passed through unmodified.
	Description string

	// StatusCode is the HTTP status from the provider or resource API,
	// when one was received.
	StatusCode int

	// Body is the raw provider response body, preserved for diagnostics.
	Body []byte

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Description, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Description)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new typed error.
func NewError(kind, description string) *Error {
	return &Error{
		Kind:        kind,
		Description: description,
	}
}

// KindOf returns the kind of a core error, or "" for other errors.
func KindOf(err error) string {
	var coreErr *Error
	if errors.As(err, &coreErr) {
		return coreErr.Kind
	}
	return ""
}

// IsKind reports whether err is a core error of the given kind.
func IsKind(err error, kind string) bool {
	return KindOf(err) == kind
}
