// Package transport is the boundary to the authoritative quote server. The
// sync orchestrator only sees the Client interface; the REST implementation
// lives in http.go. Server responses always carry the authoritative record
// including its new version, and a 409 carries the server's current record
// so the conflict detector can merge without a second round trip.
package transport

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/quotesync/internal/client/models"
	"github.com/dmitrijs2005/quotesync/internal/common"
)

// QuotePayload is the full wire body for a quote: the aggregate root plus
// its nested jobs and financial breakdown.
type QuotePayload struct {
	models.Quote
	Jobs       []*models.Job     `json:"jobs"`
	Financials *models.Financial `json:"financials,omitempty"`
}

// Client is implemented by the REST transport. Every mutating call carries
// the caller's idempotency token so a replay after a client-side timeout is
// de-duplicated server-side.
type Client interface {
	// CreateQuote registers a client-created quote. The server assigns the
	// quote number and returns its authoritative record.
	CreateQuote(ctx context.Context, payload *QuotePayload, attemptKey string) (*QuotePayload, error)

	// UpdateQuote sends a full-body update. The payload's Version field
	// carries the base version the edit was made against; on acceptance the
	// server returns the record at base+1.
	UpdateQuote(ctx context.Context, payload *QuotePayload, attemptKey string) (*QuotePayload, error)

	// DeleteQuote deletes a quote at the given base version.
	DeleteQuote(ctx context.Context, quoteID string, baseVersion int64, attemptKey string) error

	// Ping checks server liveness; used by the reachability probe.
	Ping(ctx context.Context) error
}

// VersionMismatchError is returned on HTTP 409: the server holds a version
// the device has not seen. ServerQuote is the server's current record (may
// be nil if the server omitted the body); ServerVersion is always set.
type VersionMismatchError struct {
	ServerVersion int64
	ServerQuote   *QuotePayload
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("server holds version %d", e.ServerVersion)
}

// Is places version mismatches under common.ErrConflict in the error
// taxonomy.
func (e *VersionMismatchError) Is(target error) bool {
	return target == common.ErrConflict
}
