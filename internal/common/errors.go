// Package common defines shared constants and sentinel errors used across
// the sync engine layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// ErrStorage marks a local store I/O failure (quota, corruption, locked
	// database). Fatal for the current operation; surfaced to the caller and
	// never retried automatically.
	ErrStorage = errors.New("storage failure")

	// ErrTransport marks a network or timeout failure talking to the server.
	// Retried with exponential backoff.
	ErrTransport = errors.New("transport failure")

	// ErrRejected marks a definitive server-side rejection (4xx other than
	// 409). Routed to dead-letter, not retried.
	ErrRejected = errors.New("rejected by server")

	// ErrConflict marks a 409 where both sides changed the same fields.
	// The queue item is held in conflict state pending user resolution.
	ErrConflict = errors.New("version conflict")

	// ErrFatalVersion marks a local base version ahead of the server's,
	// which can only come from a corrupted or replayed version token.
	// Dead-lettered immediately and logged as a data-integrity signal.
	ErrFatalVersion = errors.New("local version ahead of server")
)
