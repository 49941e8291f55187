// Package microsoft implements the provider.Provider interface for the
// Microsoft identity platform (Azure AD v2.0 endpoints).
package microsoft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"

	"github.com/pilr/team-summary-sub000/provider"
)

// DefaultScopes are requested when none are configured. offline_access is
// required or Microsoft will not issue a refresh token.
var DefaultScopes = []string{
	"openid",
	"offline_access",
	"User.Read",
	"Team.ReadBasic.All",
	"ChannelMessage.Read.All",
}

// Provider implements provider.Provider for the Microsoft identity platform.
type Provider struct {
	redirectURL string
	scopes      []string
	httpClient  *http.Client

	// endpoint overrides the per-tenant Azure AD endpoint when set.
	// Used by tests to point at a local token endpoint.
	endpoint *oauth2.Endpoint
}

// Config holds Microsoft provider configuration.
type Config struct {
	// RedirectURL is where Microsoft redirects after consent.
	// Must match the redirect URI registered on the application.
	RedirectURL string

	// Scopes are the delegated scopes to request. Defaults to DefaultScopes.
	Scopes []string

	// HTTPClient is an optional custom HTTP client for token endpoint calls.
	HTTPClient *http.Client

	// Endpoint overrides the Azure AD endpoint (tests only).
	Endpoint *oauth2.Endpoint
}

// NewProvider creates a new Microsoft identity platform provider.
func NewProvider(cfg *Config) (*Provider, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.RedirectURL == "" {
		return nil, fmt.Errorf("redirect URL is required")
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 30 * time.Second,
		}
	}

	return &Provider{
		redirectURL: cfg.RedirectURL,
		scopes:      scopes,
		httpClient:  httpClient,
		endpoint:    cfg.Endpoint,
	}, nil
}

// Name returns the provider tag.
func (p *Provider) Name() string {
	return "microsoft"
}

// config builds an oauth2.Config for one application registration.
// The endpoint is tenant-specific: tokens minted in one tenant cannot be
// refreshed through another tenant's endpoint.
func (p *Provider) config(creds provider.Credentials) *oauth2.Config {
	tenant := creds.Tenant
	if tenant == "" {
		tenant = "common"
	}

	endpoint := microsoft.AzureADEndpoint(tenant)
	if p.endpoint != nil {
		endpoint = *p.endpoint
	}

	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  p.redirectURL,
		Scopes:       p.scopes,
		Endpoint:     endpoint,
	}
}

// AuthorizationURL generates the Microsoft consent URL.
func (p *Provider) AuthorizationURL(creds provider.Credentials, state string) string {
	// response_mode=query for easier code extraction from the callback.
	return p.config(creds).AuthCodeURL(state,
		oauth2.SetAuthURLParam("response_mode", "query"),
	)
}

// Exchange performs a grant_type=authorization_code request.
func (p *Provider) Exchange(ctx context.Context, creds provider.Credentials, code string) (*provider.TokenResponse, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	token, err := p.config(creds).Exchange(ctx, code)
	if err != nil {
		return nil, wrapRetrieveError("exchange code", err)
	}

	return tokenResponse(token), nil
}

// Refresh performs a grant_type=refresh_token request.
func (p *Provider) Refresh(ctx context.Context, creds provider.Credentials, refreshToken string) (*provider.TokenResponse, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	source := p.config(creds).TokenSource(ctx, &oauth2.Token{
		RefreshToken: refreshToken,
	})
	token, err := source.Token()
	if err != nil {
		return nil, wrapRetrieveError("refresh token", err)
	}

	return tokenResponse(token), nil
}

// tokenResponse normalizes an oauth2.Token. Expiry is converted to UTC so the
// stored value never depends on the host's zone.
func tokenResponse(token *oauth2.Token) *provider.TokenResponse {
	resp := &provider.TokenResponse{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		ExpiresAt:    token.Expiry.UTC(),
	}
	if scope, ok := token.Extra("scope").(string); ok {
		resp.Scope = scope
	}
	return resp
}

// wrapRetrieveError converts the oauth2 package's retrieve error into a
// provider.EndpointError carrying the HTTP status and raw body. Transport
// errors (no response at all) are wrapped as-is.
func wrapRetrieveError(op string, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		endpointErr := &provider.EndpointError{
			Body: retrieveErr.Body,
		}
		if retrieveErr.Response != nil {
			endpointErr.StatusCode = retrieveErr.Response.StatusCode
		}

		var body struct {
			Error string `json:"error"`
		}
		if jsonErr := json.Unmarshal(retrieveErr.Body, &body); jsonErr == nil {
			endpointErr.Code = body.Error
		}

		return fmt.Errorf("failed to %s: %w", op, endpointErr)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
