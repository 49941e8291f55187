// Package storage defines interfaces for persisting delegated OAuth tokens
// and per-principal application registrations. It supports SQLite and
// in-memory backends.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrTokenNotFound is returned when no token record exists for a
// (principal, provider) pair. Callers must distinguish this from transport
// or database failures: "never connected" is not an error condition.
var ErrTokenNotFound = errors.New("storage: token not found")

// ErrCredentialsNotFound is returned when a principal has no application
// registration of their own.
var ErrCredentialsNotFound = errors.New("storage: credentials not found")

// Record is one persisted delegated token. At most one record exists per
// (PrincipalID, Provider); writes are upserts keyed on that pair.
type Record struct {
	// ID is the surrogate key (UUID).
	ID string `gorm:"primaryKey;size:36"`

	// PrincipalID identifies the authorized subject. This is not a web
	// session ID: the token outlives any particular login session.
	PrincipalID string `gorm:"not null;uniqueIndex:idx_principal_provider,priority:1"`

	// Provider is the identity provider tag, e.g. "microsoft".
	Provider string `gorm:"not null;uniqueIndex:idx_principal_provider,priority:2"`

	// AccessToken is the opaque bearer token.
	AccessToken string `gorm:"type:text"`

	// RefreshToken is the opaque refresh token. Empty when the provider
	// issued none.
	RefreshToken string `gorm:"type:text"`

	// TokenType is typically "Bearer".
	TokenType string

	// ExpiresAt is the absolute expiry, always stored in UTC. Indexed to
	// support batch refresh sweeps.
	ExpiresAt time.Time `gorm:"index"`

	// Scope is the space-delimited granted scopes, free text.
	Scope string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the table name used by GORM.
func (Record) TableName() string {
	return "delegated_tokens"
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := *r
	return &clone
}

// CredentialRecord is an optional per-principal application registration.
// It is only honored when ClientID, ClientSecret, and Tenant are all set.
type CredentialRecord struct {
	ID           string `gorm:"primaryKey;size:36"`
	PrincipalID  string `gorm:"not null;uniqueIndex"`
	ClientID     string
	ClientSecret string `gorm:"type:text"`
	Tenant       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName overrides the table name used by GORM.
func (CredentialRecord) TableName() string {
	return "principal_credentials"
}

// TokenStore defines the interface for persisting delegated tokens.
// All methods accept context.Context for tracing and cancellation.
type TokenStore interface {
	// UpsertToken inserts or updates the record for its
	// (PrincipalID, Provider) pair. The write must be atomic: no reader may
	// observe a half-written record. Last write wins.
	UpsertToken(ctx context.Context, record *Record) error

	// GetToken retrieves the record for a (principal, provider) pair.
	// Returns ErrTokenNotFound when none exists.
	GetToken(ctx context.Context, principalID, providerName string) (*Record, error)

	// DeleteToken removes the record for a (principal, provider) pair.
	// Deleting a missing record is not an error.
	DeleteToken(ctx context.Context, principalID, providerName string) error

	// ListExpiring returns all records whose ExpiresAt falls before the
	// given instant, for batch refresh sweeps.
	ListExpiring(ctx context.Context, before time.Time) ([]*Record, error)
}

// CredentialStore defines the interface for per-principal application
// registrations.
type CredentialStore interface {
	// GetCredentials retrieves a principal's registration.
	// Returns ErrCredentialsNotFound when the principal has none.
	GetCredentials(ctx context.Context, principalID string) (*CredentialRecord, error)

	// SaveCredentials inserts or updates a principal's registration.
	SaveCredentials(ctx context.Context, record *CredentialRecord) error

	// DeleteCredentials removes a principal's registration.
	DeleteCredentials(ctx context.Context, principalID string) error
}
