// Package mock provides a mock implementation of the Provider interface for testing.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pilr/team-summary-sub000/provider"
)

// Provider is a mock implementation of provider.Provider for testing.
type Provider struct {
	// NameFunc is called when Name() is invoked
	NameFunc func() string

	// AuthorizationURLFunc is called when AuthorizationURL() is invoked
	AuthorizationURLFunc func(creds provider.Credentials, state string) string

	// ExchangeFunc is called when Exchange() is invoked
	ExchangeFunc func(ctx context.Context, creds provider.Credentials, code string) (*provider.TokenResponse, error)

	// RefreshFunc is called when Refresh() is invoked
	RefreshFunc func(ctx context.Context, creds provider.Credentials, refreshToken string) (*provider.TokenResponse, error)

	// CallCounts tracks how many times each method was called
	CallCounts map[string]int

	// mu protects CallCounts from concurrent access
	mu sync.RWMutex
}

// NewProvider creates a new mock provider with default implementations.
func NewProvider() *Provider {
	return &Provider{
		CallCounts: make(map[string]int),
		NameFunc: func() string {
			return "mock"
		},
		AuthorizationURLFunc: func(creds provider.Credentials, state string) string {
			return fmt.Sprintf("https://mock.example.com/authorize?client_id=%s&state=%s", creds.ClientID, state)
		},
		ExchangeFunc: func(ctx context.Context, creds provider.Credentials, code string) (*provider.TokenResponse, error) {
			return &provider.TokenResponse{
				AccessToken:  "mock-access-token",
				RefreshToken: "mock-refresh-token",
				TokenType:    "Bearer",
				ExpiresAt:    time.Now().UTC().Add(time.Hour),
			}, nil
		},
		RefreshFunc: func(ctx context.Context, creds provider.Credentials, refreshToken string) (*provider.TokenResponse, error) {
			return &provider.TokenResponse{
				AccessToken:  "mock-refreshed-token",
				RefreshToken: "mock-refresh-token",
				TokenType:    "Bearer",
				ExpiresAt:    time.Now().UTC().Add(time.Hour),
			}, nil
		},
	}
}

// Name implements provider.Provider.
func (p *Provider) Name() string {
	p.recordCall("Name")
	return p.NameFunc()
}

// AuthorizationURL implements provider.Provider.
func (p *Provider) AuthorizationURL(creds provider.Credentials, state string) string {
	p.recordCall("AuthorizationURL")
	return p.AuthorizationURLFunc(creds, state)
}

// Exchange implements provider.Provider.
func (p *Provider) Exchange(ctx context.Context, creds provider.Credentials, code string) (*provider.TokenResponse, error) {
	p.recordCall("Exchange")
	return p.ExchangeFunc(ctx, creds, code)
}

// Refresh implements provider.Provider.
func (p *Provider) Refresh(ctx context.Context, creds provider.Credentials, refreshToken string) (*provider.TokenResponse, error) {
	p.recordCall("Refresh")
	return p.RefreshFunc(ctx, creds, refreshToken)
}

// Calls returns how many times the named method was called.
func (p *Provider) Calls(method string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.CallCounts[method]
}

func (p *Provider) recordCall(method string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CallCounts[method]++
}
