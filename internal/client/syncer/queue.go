package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/quotesync/internal/client/models"
	"github.com/dmitrijs2005/quotesync/internal/client/repositories/syncqueue"
	"github.com/dmitrijs2005/quotesync/internal/logging"
	"github.com/google/uuid"
)

// NewQueueItem builds a queue item with the invariants a fresh enqueue
// carries: zero retries, not dead-lettered, ready now, fresh attempt key.
// Callers insert it through whatever repository binding (transaction or
// not) their write path uses.
func NewQueueItem(quoteID string, op models.Operation, payload []byte, baseVersion int64, priority int, deviceID string, now time.Time) *models.SyncQueueItem {
	if priority == 0 {
		priority = models.PriorityNormal
	}
	if payload == nil {
		// Deletes carry no body; the column is NOT NULL, so bind an empty
		// blob rather than a NULL.
		payload = []byte{}
	}
	return &models.SyncQueueItem{
		ID:          uuid.NewString(),
		QuoteID:     quoteID,
		Operation:   op,
		Payload:     payload,
		BaseVersion: baseVersion,
		Priority:    priority,
		RetryCount:  0,
		NextRetryAt: nil,
		DeadLetter:  false,
		Status:      models.QueueStatusPending,
		AttemptKey:  uuid.NewString(),
		DeviceID:    deviceID,
		Timestamp:   now,
	}
}

// QueueManager owns the scheduling policy of the durable sync queue:
// what is ready, how failures back off, when an item crosses into
// dead-letter, and how an operator brings it back.
type QueueManager struct {
	repo   syncqueue.Repository
	policy BackoffPolicy
	log    logging.Logger
}

// NewQueueManager builds a manager over the given repository.
func NewQueueManager(repo syncqueue.Repository, policy BackoffPolicy, log logging.Logger) *QueueManager {
	return &QueueManager{repo: repo, policy: policy, log: log}
}

// Enqueue stores a new outbound operation.
func (m *QueueManager) Enqueue(ctx context.Context, item *models.SyncQueueItem) error {
	if err := m.repo.Insert(ctx, item); err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	m.log.Debug(ctx, "enqueued", "item", item.ID, "quote", item.QuoteID, "op", item.Operation)
	return nil
}

// GetReady returns the dispatchable items at now, in drain order.
func (m *QueueManager) GetReady(ctx context.Context, now time.Time) ([]*models.SyncQueueItem, error) {
	return m.repo.GetReady(ctx, now)
}

// MarkFailed records one more failed attempt: the item either gets a
// backed-off next_retry_at or, past the retry threshold, flips to
// dead-letter. The passed item is updated in place.
func (m *QueueManager) MarkFailed(ctx context.Context, item *models.SyncQueueItem, now time.Time) error {
	item.RetryCount++

	if m.policy.Exhausted(item.RetryCount) {
		item.DeadLetter = true
		item.NextRetryAt = nil
		m.log.Warn(ctx, "queue item dead-lettered after retries",
			"item", item.ID, "quote", item.QuoteID, "retries", item.RetryCount)
	} else {
		next := now.Add(m.policy.Delay(item.RetryCount))
		item.NextRetryAt = &next
		m.log.Info(ctx, "queue item rescheduled",
			"item", item.ID, "quote", item.QuoteID, "retries", item.RetryCount, "next_retry_at", next)
	}

	if err := m.repo.Update(ctx, item); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// MarkSucceeded removes an acknowledged item. Removing an item that is
// already gone is a no-op.
func (m *QueueManager) MarkSucceeded(ctx context.Context, item *models.SyncQueueItem) error {
	if err := m.repo.Delete(ctx, item.ID); err != nil {
		return fmt.Errorf("mark succeeded: %w", err)
	}
	return nil
}

// MarkConflict holds an item for user resolution, outside the automatic
// retry loop.
func (m *QueueManager) MarkConflict(ctx context.Context, item *models.SyncQueueItem) error {
	item.Status = models.QueueStatusConflict
	item.NextRetryAt = nil
	if err := m.repo.Update(ctx, item); err != nil {
		return fmt.Errorf("mark conflict: %w", err)
	}
	m.log.Warn(ctx, "queue item held in conflict", "item", item.ID, "quote", item.QuoteID)
	return nil
}

// DeadLetter parks an item permanently (definitive rejection or a fatal
// version token). Only an explicit Requeue brings it back.
func (m *QueueManager) DeadLetter(ctx context.Context, item *models.SyncQueueItem, reason string) error {
	item.DeadLetter = true
	item.NextRetryAt = nil
	if err := m.repo.Update(ctx, item); err != nil {
		return fmt.Errorf("dead-letter: %w", err)
	}
	m.log.Error(ctx, "queue item dead-lettered", "item", item.ID, "quote", item.QuoteID, "reason", reason)
	return nil
}

// Requeue resets a dead-lettered or conflicted item for another round of
// automatic processing.
func (m *QueueManager) Requeue(ctx context.Context, id string) error {
	item, err := m.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("requeue: %w", err)
	}
	item.RetryCount = 0
	item.DeadLetter = false
	item.Status = models.QueueStatusPending
	item.NextRetryAt = nil
	if err := m.repo.Update(ctx, item); err != nil {
		return fmt.Errorf("requeue: %w", err)
	}
	m.log.Info(ctx, "queue item requeued", "item", id)
	return nil
}

// RotateAttemptKey issues a fresh idempotency token. The token stays stable
// across retries of the same request so the server can de-duplicate a replay
// after a client-side timeout; it is rotated only when the request itself
// changes, i.e. after an automatic merge rewrote the payload.
func (m *QueueManager) RotateAttemptKey(ctx context.Context, item *models.SyncQueueItem) error {
	item.AttemptKey = uuid.NewString()
	if err := m.repo.Update(ctx, item); err != nil {
		return fmt.Errorf("rotate attempt key: %w", err)
	}
	return nil
}
