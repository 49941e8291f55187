// Package security provides security helpers for the delegated-access core:
// clock-skew-tolerant expiry checks and audit logging with PII protection.
package security

import "time"

const (
	// DefaultClockSkewGracePeriod is the default grace period for token
	// expiration checks. It prevents false expiration errors due to time
	// synchronization drift between this host and the identity provider.
	// 5 seconds handles typical NTP drift; tokens may be used up to that
	// long beyond their true expiration.
	DefaultClockSkewGracePeriod = 5 * time.Second
)

// IsTokenExpiredWithGracePeriod checks if a token is expired at the given
// instant with a custom clock skew grace period.
func IsTokenExpiredWithGracePeriod(expiresAt, now time.Time, gracePeriod time.Duration) bool {
	if expiresAt.IsZero() {
		return false // No expiration
	}

	// The token is only expired once it has been expired longer than the grace period.
	return now.After(expiresAt.Add(gracePeriod))
}

// IsTokenExpiringSoon checks if a token will expire within the given threshold.
func IsTokenExpiringSoon(expiresAt, now time.Time, threshold time.Duration) bool {
	if expiresAt.IsZero() {
		return false
	}

	return now.Add(threshold).After(expiresAt)
}
