// Package testutil provides testing utilities and helpers for the
// delegated-access core.
package testutil

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/pilr/team-summary-sub000/storage"
)

// MockTime provides a controllable time source for deterministic testing.
type MockTime struct {
	now time.Time
}

// NewMockTime creates a new mock time provider.
func NewMockTime(t time.Time) *MockTime {
	return &MockTime{now: t}
}

// Now returns the current mock time.
func (m *MockTime) Now() time.Time {
	return m.now
}

// Advance moves the mock time forward by the given duration.
func (m *MockTime) Advance(d time.Duration) {
	m.now = m.now.Add(d)
}

// Set sets the mock time to a specific value.
func (m *MockTime) Set(t time.Time) {
	m.now = t
}

// NewMockHTTPServer creates a test HTTP server with the given handler.
func NewMockHTTPServer(handler http.HandlerFunc) *httptest.Server {
	return httptest.NewServer(handler)
}

// GenerateRandomString generates a random base64 string of n source bytes.
func GenerateRandomString(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// GenerateTestRecord creates a token record with the given expiry.
func GenerateTestRecord(principalID string, expiresAt time.Time) *storage.Record {
	return &storage.Record{
		PrincipalID:  principalID,
		Provider:     "microsoft",
		AccessToken:  GenerateRandomString(32),
		RefreshToken: GenerateRandomString(32),
		TokenType:    "Bearer",
		ExpiresAt:    expiresAt.UTC(),
		Scope:        "openid offline_access User.Read",
	}
}
