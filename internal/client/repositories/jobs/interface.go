package jobs

import (
	"context"

	"github.com/dmitrijs2005/quotesync/internal/client/models"
)

// Repository describes persistence operations for Job records.
type Repository interface {
	// Upsert inserts a job or replaces an existing one by id.
	Upsert(ctx context.Context, job *models.Job) error

	// GetByID returns a job by its identifier, or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.Job, error)

	// GetByQuoteID returns all jobs for a quote ordered by order_index.
	GetByQuoteID(ctx context.Context, quoteID string) ([]*models.Job, error)

	// SetSyncStatus updates only the sync status column.
	SetSyncStatus(ctx context.Context, id string, status models.SyncStatus) error

	// DeleteByQuoteID removes every job belonging to a quote.
	DeleteByQuoteID(ctx context.Context, quoteID string) error
}
