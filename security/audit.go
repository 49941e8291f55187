package security

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"
)

// Auditor handles security event logging with PII protection.
// Principal identifiers are hashed before they reach the log stream.
type Auditor struct {
	logger  *slog.Logger
	enabled bool
}

// NewAuditor creates a new security auditor.
func NewAuditor(logger *slog.Logger, enabled bool) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{
		logger:  logger,
		enabled: enabled,
	}
}

// Event represents a security audit event.
type Event struct {
	Type        string
	PrincipalID string
	Provider    string
	Details     map[string]any
	Timestamp   time.Time
}

// LogEvent logs a security event with hashed PII.
func (a *Auditor) LogEvent(event Event) {
	if a == nil || !a.enabled {
		return
	}

	event.Timestamp = time.Now()

	a.logger.Info("security_audit",
		"event_type", event.Type,
		"principal_hash", hashForLogging(event.PrincipalID),
		"provider", event.Provider,
		"details", event.Details,
		"timestamp", event.Timestamp,
	)
}

// LogTokenIssued logs a successful authorization-code exchange.
func (a *Auditor) LogTokenIssued(principalID, providerName, scope string) {
	a.LogEvent(Event{
		Type:        "token_issued",
		PrincipalID: principalID,
		Provider:    providerName,
		Details: map[string]any{
			"scope": scope,
		},
	})
}

// LogTokenRefreshed logs a silent refresh, successful or not.
func (a *Auditor) LogTokenRefreshed(principalID, providerName string, success bool) {
	a.LogEvent(Event{
		Type:        "token_refreshed",
		PrincipalID: principalID,
		Provider:    providerName,
		Details: map[string]any{
			"success": success,
		},
	})
}

// LogTokenDeleted logs an explicit disconnect.
func (a *Auditor) LogTokenDeleted(principalID, providerName string) {
	a.LogEvent(Event{
		Type:        "token_deleted",
		PrincipalID: principalID,
		Provider:    providerName,
	})
}

// LogReplayRejected logs a rejected authorization-code replay attempt.
func (a *Auditor) LogReplayRejected(principalID, providerName string) {
	a.LogEvent(Event{
		Type:        "code_replay_rejected",
		PrincipalID: principalID,
		Provider:    providerName,
	})
}

// LogAuthFailure logs an authorization failure.
func (a *Auditor) LogAuthFailure(principalID, providerName, reason string) {
	a.LogEvent(Event{
		Type:        "auth_failure",
		PrincipalID: principalID,
		Provider:    providerName,
		Details: map[string]any{
			"reason": reason,
		},
	})
}

// hashForLogging creates a SHA256 hash of sensitive data for logging.
func hashForLogging(sensitive string) string {
	if sensitive == "" {
		return "<empty>"
	}
	hash := sha256.Sum256([]byte(sensitive))
	return hex.EncodeToString(hash[:])[:16]
}
