package graphauth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pilr/team-summary-sub000/instrumentation"
	"github.com/pilr/team-summary-sub000/provider"
	"github.com/pilr/team-summary-sub000/security"
	"github.com/pilr/team-summary-sub000/storage"
)

// ProfileValidator performs a best-effort "who am I" call against the
// resource API to validate a freshly minted token. Implemented by the graph
// package's client; defined here so the core does not depend on it.
type ProfileValidator interface {
	ValidateToken(ctx context.Context, accessToken string) error
}

// Manager coordinates the delegated-token lifecycle for one identity
// provider: exchange, persistence, silent refresh, and status evaluation.
// All components share the token store as the single source of truth; tokens
// are never cached across calls without re-checking expiry at the point of
// use.
type Manager struct {
	provider  provider.Provider
	tokens    storage.TokenStore
	resolver  *Resolver
	validator ProfileValidator
	config    *Config
	logger    *slog.Logger
	auditor   *security.Auditor
	inst      *instrumentation.Instrumentation

	// now is the clock; replaced in tests.
	now func() time.Time
}

// NewManager creates a new delegated-access manager. credentials may be nil
// when per-principal app registrations are not supported.
func NewManager(
	p provider.Provider,
	tokens storage.TokenStore,
	credentials storage.CredentialStore,
	config *Config,
) (*Manager, error) {
	if p == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token store is required")
	}
	if config == nil {
		config = &Config{}
	}
	config.applyDefaults()

	return &Manager{
		provider: p,
		tokens:   tokens,
		resolver: NewResolver(credentials, config.DefaultCredentials, config.Logger),
		config:   config,
		logger:   config.Logger,
		auditor:  security.NewAuditor(config.Logger, config.EnableAuditLogging),
		now:      time.Now,
	}, nil
}

// SetProfileValidator wires the resource-API client used for best-effort
// token validation after an exchange. Optional.
func (m *Manager) SetProfileValidator(v ProfileValidator) {
	m.validator = v
}

// SetInstrumentation wires OpenTelemetry instrumentation. Optional; all
// recording paths are nil-safe.
func (m *Manager) SetInstrumentation(inst *instrumentation.Instrumentation) {
	m.inst = inst
}

// Resolver returns the credential resolver.
func (m *Manager) Resolver() *Resolver {
	return m.resolver
}

// AuthorizationURL builds the provider consent URL for a principal using
// their resolved credentials.
func (m *Manager) AuthorizationURL(ctx context.Context, principalID, state string) (string, error) {
	if state == "" {
		return "", NewError(KindMissingState, "state parameter is required for CSRF protection")
	}

	creds, err := m.resolver.Resolve(ctx, principalID)
	if err != nil {
		return "", err
	}
	return m.provider.AuthorizationURL(creds, state), nil
}

// Token re-reads the principal's current token record from the store.
func (m *Manager) Token(ctx context.Context, principalID string) (*storage.Record, error) {
	return m.tokens.GetToken(ctx, principalID, m.provider.Name())
}

// Disconnect deletes the principal's token record. This is the only path
// that removes a record; expiry and refresh failures leave the last-known
// state in place for diagnostics.
func (m *Manager) Disconnect(ctx context.Context, principalID string) error {
	err := m.tokens.DeleteToken(ctx, principalID, m.provider.Name())
	m.inst.RecordStorageOperation(ctx, "delete", err)
	if err != nil {
		return &Error{
			Kind:        KindPersistenceFailed,
			Description: "failed to delete token record",
			Err:         err,
		}
	}

	m.auditor.LogTokenDeleted(principalID, m.provider.Name())
	m.inst.RecordTokenDeleted(ctx)
	m.logger.Info("Principal disconnected", "provider", m.provider.Name())
	return nil
}
