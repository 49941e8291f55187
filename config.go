package graphauth

import (
	"log/slog"
	"time"

	"github.com/pilr/team-summary-sub000/provider"
	"github.com/pilr/team-summary-sub000/security"
)

// Config holds the delegated-access manager configuration.
type Config struct {
	// DefaultCredentials is the system-wide application registration used
	// for principals without one of their own.
	DefaultCredentials provider.Credentials

	// ClockSkewGracePeriod is the grace period for token expiration checks.
	// Default: 5 seconds.
	ClockSkewGracePeriod time.Duration

	// SweepWindow is how far ahead of expiry the maintenance sweep
	// refreshes tokens. Default: 15 minutes.
	SweepWindow time.Duration

	// SweepConcurrency bounds concurrent refreshes during a sweep.
	// Default: 4.
	SweepConcurrency int

	// ValidateOnConnect enables a best-effort profile call against the
	// resource API after a successful exchange. A failure does not roll
	// back the persisted token; it is reported as a soft warning.
	// Requires a ProfileValidator to be set on the Manager.
	ValidateOnConnect bool

	// EnableAuditLogging enables security audit logging (principal IDs
	// hashed).
	EnableAuditLogging bool

	// Logger for structured logging (optional, uses slog.Default if not
	// provided).
	Logger *slog.Logger
}

// applyDefaults fills in unset configuration values.
func (c *Config) applyDefaults() {
	if c.ClockSkewGracePeriod == 0 {
		c.ClockSkewGracePeriod = security.DefaultClockSkewGracePeriod
	}
	if c.SweepWindow == 0 {
		c.SweepWindow = 15 * time.Minute
	}
	if c.SweepConcurrency == 0 {
		c.SweepConcurrency = 4
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
