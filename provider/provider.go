// Package provider defines the interface for OAuth identity providers and the
// types exchanged with their token endpoints. Implementations encapsulate the
// provider-specific grant mechanics (Microsoft identity platform today, other
// single-tenant providers behind the same interface).
package provider

import (
	"context"
	"fmt"
	"time"
)

// Credentials identifies one OAuth application registration at the identity
// provider. A principal-specific registration is only usable when all three
// fields are populated; otherwise the system-wide default applies.
type Credentials struct {
	// ClientID is the OAuth application (client) ID.
	ClientID string

	// ClientSecret is the OAuth application client secret.
	ClientSecret string

	// Tenant is the issuer tenant (directory) the registration lives in,
	// e.g. an Azure AD tenant ID or "common".
	Tenant string
}

// Complete reports whether the credential set can be used for token endpoint
// calls. Partial sets are never sent to the provider.
func (c Credentials) Complete() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.Tenant != ""
}

// TokenResponse is the normalized result of a token endpoint call.
type TokenResponse struct {
	// AccessToken is the bearer token for resource API calls.
	AccessToken string

	// RefreshToken is the long-lived token for silent refresh. Providers may
	// omit it on refresh responses; an empty value does not mean revoked.
	RefreshToken string

	// TokenType is the token type, typically "Bearer".
	TokenType string

	// Scope is the space-delimited set of granted scopes.
	Scope string

	// ExpiresAt is the absolute UTC expiry of the access token.
	ExpiresAt time.Time
}

// EndpointError is a non-200 response from the provider's token endpoint.
// The raw body is preserved so callers can render the provider's diagnostics
// unmodified.
type EndpointError struct {
	// StatusCode is the HTTP status returned by the token endpoint.
	StatusCode int

	// Code is the OAuth error code from the response body (e.g.
	// "invalid_grant"), when the body was parseable.
	Code string

	// Body is the raw response body.
	Body []byte
}

// Error implements the error interface.
func (e *EndpointError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("token endpoint returned %d (%s)", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("token endpoint returned %d", e.StatusCode)
}

// Provider defines the interface for OAuth identity providers.
// Credentials are passed per call because each principal may carry its own
// application registration.
type Provider interface {
	// Name returns the provider tag stored alongside tokens (e.g. "microsoft").
	Name() string

	// AuthorizationURL generates the URL to redirect a human to for consent.
	// state is the caller's anti-CSRF state parameter.
	AuthorizationURL(creds Credentials, state string) string

	// Exchange performs a grant_type=authorization_code request.
	Exchange(ctx context.Context, creds Credentials, code string) (*TokenResponse, error)

	// Refresh performs a grant_type=refresh_token request.
	Refresh(ctx context.Context, creds Credentials, refreshToken string) (*TokenResponse, error)
}
