// Package sqlite implements the storage interfaces on SQLite via GORM.
// It is the durable backend: token records survive process restarts and web
// session churn, which is what decouples delegated access from login state.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/pilr/team-summary-sub000/storage"
)

// Store implements storage.TokenStore and storage.CredentialStore on a GORM
// SQLite database.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// New opens (or creates) the database at path and migrates the schema.
func New(path string, logger *slog.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := NewWithDB(db, logger)
	if err := store.EnsureSchema(context.Background()); err != nil {
		return nil, err
	}
	return store, nil
}

// NewWithDB wraps an existing GORM handle. The schema is not migrated; call
// EnsureSchema or rely on the self-healing upsert path.
func NewWithDB(db *gorm.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// EnsureSchema creates the token and credential tables if they don't exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&storage.Record{}, &storage.CredentialRecord{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// UpsertToken inserts or updates the record for its (principal, provider)
// pair in a single statement, so no reader ever observes a half-written row.
//
// If the write fails because the table does not exist, the store performs one
// self-healing migration and retries exactly once.
func (s *Store) UpsertToken(ctx context.Context, record *storage.Record) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.ExpiresAt = record.ExpiresAt.UTC()

	err := s.upsertToken(ctx, record)
	if err != nil && isMissingTable(err) {
		s.logger.Warn("Token table missing, attempting schema self-heal", "error", err)
		if migrateErr := s.EnsureSchema(ctx); migrateErr != nil {
			return fmt.Errorf("schema self-heal failed: %w", migrateErr)
		}
		err = s.upsertToken(ctx, record)
	}
	if err != nil {
		return fmt.Errorf("failed to upsert token: %w", err)
	}
	return nil
}

func (s *Store) upsertToken(ctx context.Context, record *storage.Record) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "principal_id"}, {Name: "provider"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"access_token",
			"refresh_token",
			"token_type",
			"expires_at",
			"scope",
			"updated_at",
		}),
	}).Create(record).Error
}

// GetToken retrieves the record for a (principal, provider) pair.
func (s *Store) GetToken(ctx context.Context, principalID, providerName string) (*storage.Record, error) {
	var record storage.Record
	err := s.db.WithContext(ctx).
		Where("principal_id = ? AND provider = ?", principalID, providerName).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to read token: %w", err)
	}
	record.ExpiresAt = record.ExpiresAt.UTC()
	return &record, nil
}

// DeleteToken removes the record for a (principal, provider) pair.
func (s *Store) DeleteToken(ctx context.Context, principalID, providerName string) error {
	err := s.db.WithContext(ctx).
		Where("principal_id = ? AND provider = ?", principalID, providerName).
		Delete(&storage.Record{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// ListExpiring returns all records expiring before the given instant, for
// batch refresh sweeps. Served by the index on expires_at.
func (s *Store) ListExpiring(ctx context.Context, before time.Time) ([]*storage.Record, error) {
	var records []*storage.Record
	err := s.db.WithContext(ctx).
		Where("expires_at < ?", before.UTC()).
		Order("expires_at").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring tokens: %w", err)
	}
	for _, record := range records {
		record.ExpiresAt = record.ExpiresAt.UTC()
	}
	return records, nil
}

// GetCredentials retrieves a principal's application registration.
func (s *Store) GetCredentials(ctx context.Context, principalID string) (*storage.CredentialRecord, error) {
	var record storage.CredentialRecord
	err := s.db.WithContext(ctx).
		Where("principal_id = ?", principalID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrCredentialsNotFound
		}
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}
	return &record, nil
}

// SaveCredentials inserts or updates a principal's application registration.
func (s *Store) SaveCredentials(ctx context.Context, record *storage.CredentialRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "principal_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"client_id",
			"client_secret",
			"tenant",
			"updated_at",
		}),
	}).Create(record).Error
	if err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

// DeleteCredentials removes a principal's application registration.
func (s *Store) DeleteCredentials(ctx context.Context, principalID string) error {
	err := s.db.WithContext(ctx).
		Where("principal_id = ?", principalID).
		Delete(&storage.CredentialRecord{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}

// isMissingTable reports whether the error is SQLite's missing-table error.
func isMissingTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}
