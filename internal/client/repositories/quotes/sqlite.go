package quotes

import (
	"database/sql"
	"errors"
	"fmt"

	"context"

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

const quoteColumns = `id, quote_number, version, status, customer_name, customer_email,
	customer_phone, customer_address, notes, device_id, sync_status, created_at, updated_at`

func (r *SQLiteRepository) Upsert(ctx context.Context, q *models.Quote) error {
	query := ` INSERT INTO quotes (` + quoteColumns + `)
			values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET quote_number = excluded.quote_number,
				version = excluded.version,
				status = excluded.status,
				customer_name = excluded.customer_name,
				customer_email = excluded.customer_email,
				customer_phone = excluded.customer_phone,
				customer_address = excluded.customer_address,
				notes = excluded.notes,
				sync_status = excluded.sync_status,
				updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		q.ID, q.QuoteNumber, q.Version, q.Status, q.CustomerName, q.CustomerEmail,
		q.CustomerPhone, q.CustomerAddress, q.Notes, q.DeviceID, q.SyncStatus,
		q.CreatedAt, q.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert quote: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Quote, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = ?`, id)
	q, err := scanQuote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	return q, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]*models.Quote, error) {
	return r.list(ctx, `SELECT `+quoteColumns+` FROM quotes ORDER BY updated_at DESC`)
}

func (r *SQLiteRepository) GetAllPending(ctx context.Context) ([]*models.Quote, error) {
	return r.list(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE sync_status = ? ORDER BY updated_at`,
		models.SyncStatusPending)
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]*models.Quote, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select quotes: %w", err)
	}
	defer rows.Close()

	var result []*models.Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) SetSyncStatus(ctx context.Context, id string, status models.SyncStatus) error {
	_, err := r.db.ExecContext(ctx, `UPDATE quotes SET sync_status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to set quote sync status: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM quotes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete quote: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuote(row rowScanner) (*models.Quote, error) {
	q := &models.Quote{}
	err := row.Scan(&q.ID, &q.QuoteNumber, &q.Version, &q.Status, &q.CustomerName,
		&q.CustomerEmail, &q.CustomerPhone, &q.CustomerAddress, &q.Notes,
		&q.DeviceID, &q.SyncStatus, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return q, nil
}
