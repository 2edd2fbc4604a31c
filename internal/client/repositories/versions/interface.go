package versions

import (
	"context"

	"github.com/dmitrijs2005/quotesync/internal/client/models"
)

// Repository describes persistence operations for the QuoteVersion history.
type Repository interface {
	// Append writes a snapshot row. Writing the same (quote_id, version)
	// again replaces the earlier row, so a server acknowledgement can
	// overwrite the provisional snapshot the local write recorded.
	Append(ctx context.Context, v *models.QuoteVersion) error

	// Get returns the snapshot of a quote at an exact version, or
	// common.ErrorNotFound.
	Get(ctx context.Context, quoteID string, version int64) (*models.QuoteVersion, error)

	// GetLatest returns the most recent snapshot for a quote, or
	// common.ErrorNotFound when no history exists.
	GetLatest(ctx context.Context, quoteID string) (*models.QuoteVersion, error)

	// DeleteByQuoteID removes the full history for a quote (used after a
	// server-acknowledged delete).
	DeleteByQuoteID(ctx context.Context, quoteID string) error
}
