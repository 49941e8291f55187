// Package memory provides an in-memory implementation of the storage
// interfaces, suitable for tests and ephemeral deployments. All data is lost
// on restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pilr/team-summary-sub000/storage"
)

// Store is a thread-safe in-memory implementation of storage.TokenStore and
// storage.CredentialStore.
type Store struct {
	mu          sync.RWMutex
	tokens      map[string]*storage.Record           // keyed by principalID + "\x00" + provider
	credentials map[string]*storage.CredentialRecord // keyed by principalID
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		tokens:      make(map[string]*storage.Record),
		credentials: make(map[string]*storage.CredentialRecord),
	}
}

func tokenKey(principalID, providerName string) string {
	return principalID + "\x00" + providerName
}

// UpsertToken inserts or updates the record for its (principal, provider)
// pair. Last write wins; the map swap is atomic under the lock.
func (s *Store) UpsertToken(ctx context.Context, record *storage.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := record.Clone()
	if clone.ID == "" {
		clone.ID = uuid.NewString()
	}
	clone.ExpiresAt = clone.ExpiresAt.UTC()

	now := time.Now().UTC()
	key := tokenKey(clone.PrincipalID, clone.Provider)
	if existing, ok := s.tokens[key]; ok {
		clone.ID = existing.ID
		clone.CreatedAt = existing.CreatedAt
	} else {
		clone.CreatedAt = now
	}
	clone.UpdatedAt = now

	s.tokens[key] = clone
	record.ID = clone.ID
	return nil
}

// GetToken retrieves the record for a (principal, provider) pair.
func (s *Store) GetToken(ctx context.Context, principalID, providerName string) (*storage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.tokens[tokenKey(principalID, providerName)]
	if !ok {
		return nil, storage.ErrTokenNotFound
	}
	return record.Clone(), nil
}

// DeleteToken removes the record for a (principal, provider) pair.
func (s *Store) DeleteToken(ctx context.Context, principalID, providerName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tokens, tokenKey(principalID, providerName))
	return nil
}

// ListExpiring returns all records expiring before the given instant.
func (s *Store) ListExpiring(ctx context.Context, before time.Time) ([]*storage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []*storage.Record
	for _, record := range s.tokens {
		if record.ExpiresAt.Before(before) {
			records = append(records, record.Clone())
		}
	}
	return records, nil
}

// GetCredentials retrieves a principal's application registration.
func (s *Store) GetCredentials(ctx context.Context, principalID string) (*storage.CredentialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.credentials[principalID]
	if !ok {
		return nil, storage.ErrCredentialsNotFound
	}
	clone := *record
	return &clone, nil
}

// SaveCredentials inserts or updates a principal's application registration.
func (s *Store) SaveCredentials(ctx context.Context, record *storage.CredentialRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *record
	if clone.ID == "" {
		clone.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if existing, ok := s.credentials[clone.PrincipalID]; ok {
		clone.ID = existing.ID
		clone.CreatedAt = existing.CreatedAt
	} else {
		clone.CreatedAt = now
	}
	clone.UpdatedAt = now

	s.credentials[clone.PrincipalID] = &clone
	return nil
}

// DeleteCredentials removes a principal's application registration.
func (s *Store) DeleteCredentials(ctx context.Context, principalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.credentials, principalID)
	return nil
}

// TokenCount returns the number of stored token records (for metrics).
func (s *Store) TokenCount() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.tokens))
}
