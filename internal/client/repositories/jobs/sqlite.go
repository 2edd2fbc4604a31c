package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/quotesync/internal/client/models"
	"github.com/dmitrijs2005/quotesync/internal/common"
	"github.com/dmitrijs2005/quotesync/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
// Job params are persisted as their JSON envelope in a single column.
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Upsert(ctx context.Context, j *models.Job) error {
	params, err := json.Marshal(j.Params)
	if err != nil {
		return fmt.Errorf("failed to encode job params: %w", err)
	}

	query := ` INSERT INTO jobs (id, quote_id, order_index, description, params,
			device_id, sync_status, created_at, updated_at)
			values (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET order_index = excluded.order_index,
				description = excluded.description,
				params = excluded.params,
				sync_status = excluded.sync_status,
				updated_at = excluded.updated_at
	`
	_, err = r.db.ExecContext(ctx, query,
		j.ID, j.QuoteID, j.OrderIndex, j.Description, string(params),
		j.DeviceID, j.SyncStatus, j.CreatedAt, j.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert job: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Job, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, quote_id, order_index, description, params,
		device_id, sync_status, created_at, updated_at FROM jobs WHERE id = ?`, id)

	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return j, nil
}

func (r *SQLiteRepository) GetByQuoteID(ctx context.Context, quoteID string) ([]*models.Job, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, quote_id, order_index, description, params,
		device_id, sync_status, created_at, updated_at FROM jobs
		WHERE quote_id = ? ORDER BY order_index`, quoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to select jobs: %w", err)
	}
	defer rows.Close()

	var result []*models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, j)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) SetSyncStatus(ctx context.Context, id string, status models.SyncStatus) error {
	_, err := r.db.ExecContext(ctx, `UPDATE jobs SET sync_status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to set job sync status: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteByQuoteID(ctx context.Context, quoteID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM jobs WHERE quote_id = ?`, quoteID)
	if err != nil {
		return fmt.Errorf("failed to delete jobs: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*models.Job, error) {
	j := &models.Job{}
	var params string
	err := row.Scan(&j.ID, &j.QuoteID, &j.OrderIndex, &j.Description, &params,
		&j.DeviceID, &j.SyncStatus, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(params), &j.Params); err != nil {
		return nil, fmt.Errorf("failed to decode job params: %w", err)
	}
	return j, nil
}
