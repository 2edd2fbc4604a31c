package financials

import (
	"context"

	"github.com/dmitrijs2005/quotesync/internal/client/models"
)

// Repository describes persistence operations for Financial records.
type Repository interface {
	// Upsert inserts or replaces the financial breakdown for a quote.
	Upsert(ctx context.Context, f *models.Financial) error

	// GetByQuoteID returns the breakdown for a quote, or common.ErrorNotFound.
	GetByQuoteID(ctx context.Context, quoteID string) (*models.Financial, error)

	// DeleteByQuoteID removes the breakdown for a quote.
	DeleteByQuoteID(ctx context.Context, quoteID string) error
}
