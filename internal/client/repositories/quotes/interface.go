package quotes

import (
	"context"

	"github.com/dmitrijs2005/quotesync/internal/client/models"
)

// Repository describes persistence operations for Quote aggregates.
// Implementations are backed by the local SQLite store.
type Repository interface {
	// Upsert inserts a new quote or replaces an existing one by id.
	Upsert(ctx context.Context, quote *models.Quote) error

	// GetByID returns a quote by its identifier, or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.Quote, error)

	// GetAll returns all locally stored quotes.
	GetAll(ctx context.Context) ([]*models.Quote, error)

	// GetAllPending returns quotes whose local changes have not yet been
	// acknowledged by the server.
	GetAllPending(ctx context.Context) ([]*models.Quote, error)

	// SetSyncStatus updates only the sync status column.
	SetSyncStatus(ctx context.Context, id string, status models.SyncStatus) error

	// Delete removes a quote row. Called only after the server acknowledged
	// a queued delete operation; local deletes before that point go through
	// the queue.
	Delete(ctx context.Context, id string) error
}
