package syncqueue

import (
	"context"
	"time"

	"github.com/dmitrijs2005/quotesync/internal/client/models"
)

// Repository describes persistence operations for the durable sync queue.
// Scheduling policy (backoff, retry thresholds) lives in the queue manager;
// this layer only stores and selects rows.
type Repository interface {
	// Insert stores a new queue item.
	Insert(ctx context.Context, item *models.SyncQueueItem) error

	// GetByID returns an item by id, or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.SyncQueueItem, error)

	// GetReady returns the dispatchable items at the given instant: not
	// dead-lettered, not held in conflict, past their retry time, and at the
	// head of their quote's line. Ordered by priority, then enqueue time.
	//
	// An older sibling that is backing off or held in conflict keeps the
	// whole quote's line parked, preserving causal order of a single
	// device's edits.
	GetReady(ctx context.Context, now time.Time) ([]*models.SyncQueueItem, error)

	// Update rewrites an item's mutable columns: scheduling state
	// (retry_count, next_retry_at, dead_letter, status, attempt_key) plus
	// payload and base_version, which change when a merge rebases the item.
	Update(ctx context.Context, item *models.SyncQueueItem) error

	// Delete removes an item. Deleting an absent id is a no-op.
	Delete(ctx context.Context, id string) error

	// CountPending returns the number of items still subject to automatic
	// processing (not dead-lettered, not conflicted).
	CountPending(ctx context.Context) (int, error)

	// GetDeadLetter returns all dead-lettered items, oldest first.
	GetDeadLetter(ctx context.Context) ([]*models.SyncQueueItem, error)

	// GetConflicted returns all items held in conflict state, oldest first.
	GetConflicted(ctx context.Context) ([]*models.SyncQueueItem, error)

	// OldestPendingByQuote returns the enqueue time of the oldest live item
	// for a quote, or common.ErrorNotFound when the quote has none. Used to
	// decide how far the change log can be pruned.
	OldestPendingByQuote(ctx context.Context, quoteID string) (time.Time, error)
}
