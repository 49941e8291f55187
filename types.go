// Package graphauth manages the lifecycle of OAuth tokens a backend holds on
// behalf of its users against a Microsoft Graph-style resource API:
// authorization-code exchange, persistence, silent refresh, per-principal
// credential resolution, and connection-status evaluation.
//
// The validity of delegated access is deliberately decoupled from the web
// login session: the Manager operates on opaque principal IDs and never sees
// session state, except for the small replay-guard set the login layer owns.
package graphauth

import (
	"time"

	"github.com/pilr/team-summary-sub000/storage"
)

// State describes a principal's connection to the identity provider.
type State string

const (
	// StateDisconnected means no token record exists for the principal.
	StateDisconnected State = "disconnected"

	// StateConnected means an unexpired access token is on hand (possibly
	// just silently refreshed).
	StateConnected State = "connected"

	// StateExpired means the token is expired and could not be refreshed;
	// human re-authorization is required.
	StateExpired State = "expired"

	// StateError means the store could not be read. A transient outage must
	// not be confused with "user never connected".
	StateError State = "error"
)

// Status is the result of a connection-status evaluation.
type Status struct {
	// State is the connection state.
	State State

	// ExpiresAt is the access token's expiry, when a record exists.
	ExpiresAt time.Time

	// Err carries the underlying failure for StateError, and the refresh
	// failure for StateExpired when a refresh was attempted.
	Err error
}

// ExchangeResult is the outcome of a successful authorization-code exchange.
type ExchangeResult struct {
	// Record is the persisted token record.
	Record *storage.Record

	// Limited is set when the token was persisted but the best-effort
	// validation call against the resource API failed. The connection is
	// usable for non-interactive flows but should be surfaced to the user
	// as "connected (limited)".
	Limited bool

	// Warning carries the validation failure when Limited is set.
	Warning error
}
