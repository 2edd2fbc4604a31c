package syncqueue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/quotesync/internal/client/models"
	"github.com/dmitrijs2005/quotesync/internal/common"
	"github.com/dmitrijs2005/quotesync/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const itemColumns = `id, quote_id, operation, payload, base_version, priority,
	retry_count, next_retry_at, dead_letter, status, attempt_key, device_id, timestamp`

func (r *SQLiteRepository) Insert(ctx context.Context, item *models.SyncQueueItem) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO sync_queue (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.QuoteID, item.Operation, item.Payload, item.BaseVersion,
		item.Priority, item.RetryCount, item.NextRetryAt, item.DeadLetter,
		item.Status, item.AttemptKey, item.DeviceID, item.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert queue item: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.SyncQueueItem, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM sync_queue WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get queue item: %w", err)
	}
	return item, nil
}

// The head-of-line subquery keeps newer items for a quote out of the ready
// set while any older live sibling exists, whatever state that sibling is
// in. Dead-lettered rows stop blocking the line (they only come back via an
// explicit requeue, which resets their enqueue position's scheduling, not
// their timestamp).
const readyQuery = `SELECT ` + itemColumns + ` FROM sync_queue s
	WHERE s.dead_letter = 0
	  AND s.status = ?
	  AND (s.next_retry_at IS NULL OR s.next_retry_at <= ?)
	  AND s.id = (SELECT s2.id FROM sync_queue s2
			WHERE s2.quote_id = s.quote_id AND s2.dead_letter = 0
			ORDER BY s2.timestamp, s2.id LIMIT 1)
	ORDER BY s.priority, s.timestamp, s.id`

func (r *SQLiteRepository) GetReady(ctx context.Context, now time.Time) ([]*models.SyncQueueItem, error) {
	return r.list(ctx, readyQuery, models.QueueStatusPending, now)
}

func (r *SQLiteRepository) Update(ctx context.Context, item *models.SyncQueueItem) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sync_queue SET retry_count = ?, next_retry_at = ?,
		dead_letter = ?, status = ?, attempt_key = ?, payload = ?, base_version = ? WHERE id = ?`,
		item.RetryCount, item.NextRetryAt, item.DeadLetter, item.Status,
		item.AttemptKey, item.Payload, item.BaseVersion, item.ID)
	if err != nil {
		return fmt.Errorf("failed to update queue item: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete queue item: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CountPending(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_queue
		WHERE dead_letter = 0 AND status = ?`, models.QueueStatusPending).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count queue items: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) GetDeadLetter(ctx context.Context) ([]*models.SyncQueueItem, error) {
	return r.list(ctx, `SELECT `+itemColumns+` FROM sync_queue
		WHERE dead_letter = 1 ORDER BY timestamp, id`)
}

func (r *SQLiteRepository) GetConflicted(ctx context.Context) ([]*models.SyncQueueItem, error) {
	return r.list(ctx, `SELECT `+itemColumns+` FROM sync_queue
		WHERE dead_letter = 0 AND status = ? ORDER BY timestamp, id`, models.QueueStatusConflict)
}

func (r *SQLiteRepository) OldestPendingByQuote(ctx context.Context, quoteID string) (time.Time, error) {
	var ts time.Time
	err := r.db.QueryRowContext(ctx, `SELECT timestamp FROM sync_queue
		WHERE quote_id = ? AND dead_letter = 0 ORDER BY timestamp, id LIMIT 1`, quoteID).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, common.ErrorNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get oldest queue item: %w", err)
	}
	return ts, nil
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]*models.SyncQueueItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select queue items: %w", err)
	}
	defer rows.Close()

	var result []*models.SyncQueueItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*models.SyncQueueItem, error) {
	item := &models.SyncQueueItem{}
	var nextRetry sql.NullTime
	err := row.Scan(&item.ID, &item.QuoteID, &item.Operation, &item.Payload,
		&item.BaseVersion, &item.Priority, &item.RetryCount, &nextRetry,
		&item.DeadLetter, &item.Status, &item.AttemptKey, &item.DeviceID, &item.Timestamp)
	if err != nil {
		return nil, err
	}
	if nextRetry.Valid {
		t := nextRetry.Time
		item.NextRetryAt = &t
	}
	return item, nil
}
