// Package mock provides a mock implementation of the storage interfaces for
// testing failure paths (store outages, missing tables).
package mock

import (
	"context"
	"time"

	"github.com/pilr/team-summary-sub000/storage"
)

// TokenStore is a mock implementation of storage.TokenStore. Each method
// delegates to the corresponding function field when set, otherwise to the
// wrapped fallback store (if any).
type TokenStore struct {
	UpsertTokenFunc  func(ctx context.Context, record *storage.Record) error
	GetTokenFunc     func(ctx context.Context, principalID, providerName string) (*storage.Record, error)
	DeleteTokenFunc  func(ctx context.Context, principalID, providerName string) error
	ListExpiringFunc func(ctx context.Context, before time.Time) ([]*storage.Record, error)

	// Fallback handles calls with no function field set.
	Fallback storage.TokenStore
}

// UpsertToken implements storage.TokenStore.
func (m *TokenStore) UpsertToken(ctx context.Context, record *storage.Record) error {
	if m.UpsertTokenFunc != nil {
		return m.UpsertTokenFunc(ctx, record)
	}
	return m.Fallback.UpsertToken(ctx, record)
}

// GetToken implements storage.TokenStore.
func (m *TokenStore) GetToken(ctx context.Context, principalID, providerName string) (*storage.Record, error) {
	if m.GetTokenFunc != nil {
		return m.GetTokenFunc(ctx, principalID, providerName)
	}
	return m.Fallback.GetToken(ctx, principalID, providerName)
}

// DeleteToken implements storage.TokenStore.
func (m *TokenStore) DeleteToken(ctx context.Context, principalID, providerName string) error {
	if m.DeleteTokenFunc != nil {
		return m.DeleteTokenFunc(ctx, principalID, providerName)
	}
	return m.Fallback.DeleteToken(ctx, principalID, providerName)
}

// ListExpiring implements storage.TokenStore.
func (m *TokenStore) ListExpiring(ctx context.Context, before time.Time) ([]*storage.Record, error) {
	if m.ListExpiringFunc != nil {
		return m.ListExpiringFunc(ctx, before)
	}
	return m.Fallback.ListExpiring(ctx, before)
}

// CredentialStore is a mock implementation of storage.CredentialStore.
type CredentialStore struct {
	GetCredentialsFunc    func(ctx context.Context, principalID string) (*storage.CredentialRecord, error)
	SaveCredentialsFunc   func(ctx context.Context, record *storage.CredentialRecord) error
	DeleteCredentialsFunc func(ctx context.Context, principalID string) error
}

// GetCredentials implements storage.CredentialStore.
func (m *CredentialStore) GetCredentials(ctx context.Context, principalID string) (*storage.CredentialRecord, error) {
	if m.GetCredentialsFunc != nil {
		return m.GetCredentialsFunc(ctx, principalID)
	}
	return nil, storage.ErrCredentialsNotFound
}

// SaveCredentials implements storage.CredentialStore.
func (m *CredentialStore) SaveCredentials(ctx context.Context, record *storage.CredentialRecord) error {
	if m.SaveCredentialsFunc != nil {
		return m.SaveCredentialsFunc(ctx, record)
	}
	return nil
}

// DeleteCredentials implements storage.CredentialStore.
func (m *CredentialStore) DeleteCredentials(ctx context.Context, principalID string) error {
	if m.DeleteCredentialsFunc != nil {
		return m.DeleteCredentialsFunc(ctx, principalID)
	}
	return nil
}
