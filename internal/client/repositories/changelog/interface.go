package changelog

import (
	"context"
	"time"

	"github.com/dmitrijs2005/quotesync/internal/client/models"
)

// Repository describes persistence operations for the append-only,
// field-level change log.
type Repository interface {
	// Append writes one field-level change record.
	Append(ctx context.Context, item *models.ChangeLogItem) error

	// GetSince returns a quote's change records with a timestamp strictly
	// after the given time, oldest first.
	GetSince(ctx context.Context, quoteID string, since time.Time) ([]*models.ChangeLogItem, error)

	// PruneBefore deletes a quote's change records with a timestamp strictly
	// before the given time. The boundary is exclusive so entries written in
	// the same instant as the oldest pending queue item survive for its merge.
	PruneBefore(ctx context.Context, quoteID string, before time.Time) error

	// DeleteByQuoteID removes the full log for a quote.
	DeleteByQuoteID(ctx context.Context, quoteID string) error
}
