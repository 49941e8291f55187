package graphauth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pilr/team-summary-sub000/provider"
	"github.com/pilr/team-summary-sub000/storage"
)

// Resolver determines which application credentials apply to a principal:
// the principal's own registration when fully populated, otherwise the
// system-wide default. Resolution is a pure read with no side effects.
type Resolver struct {
	store      storage.CredentialStore
	defaultSet provider.Credentials
	logger     *slog.Logger
}

// NewResolver creates a credential resolver. store may be nil when
// per-principal registrations are not supported by the deployment.
func NewResolver(store storage.CredentialStore, defaultSet provider.Credentials, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		store:      store,
		defaultSet: defaultSet,
		logger:     logger,
	}
}

// Resolve returns the credentials to use for a principal. A
// principal-specific set is only used when all three fields are populated;
// an incomplete set falls back to the system default rather than erroring.
// When neither is usable, a ConfigurationMissing error is returned so
// callers never substitute empty strings into network calls.
func (r *Resolver) Resolve(ctx context.Context, principalID string) (provider.Credentials, error) {
	if r.store != nil {
		record, err := r.store.GetCredentials(ctx, principalID)
		switch {
		case err == nil:
			creds := provider.Credentials{
				ClientID:     record.ClientID,
				ClientSecret: record.ClientSecret,
				Tenant:       record.Tenant,
			}
			if creds.Complete() {
				return creds, nil
			}
			r.logger.Debug("Principal credentials incomplete, using system default",
				"principal_id", principalID)
		case errors.Is(err, storage.ErrCredentialsNotFound):
			// No registration of their own; fall through to the default.
		default:
			// Resolution always succeeds when a default exists; a store
			// outage must not block principals on the default registration.
			r.logger.Warn("Failed to read principal credentials, using system default",
				"principal_id", principalID, "error", err)
		}
	}

	if r.defaultSet.Complete() {
		return r.defaultSet, nil
	}

	return provider.Credentials{}, NewError(KindConfigurationMissing,
		"no application credentials configured for principal or system default")
}
