package versions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

// Append writes a snapshot. A snapshot at the same (quote_id, version) is
// replaced: the optimistic local write records a provisional snapshot and the
// server acknowledgement later overwrites it with the authoritative record.
func (r *SQLiteRepository) Append(ctx context.Context, v *models.QuoteVersion) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO quote_versions
		(quote_id, version, data, user_id, device_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(quote_id, version) DO UPDATE SET
			data = excluded.data,
			user_id = excluded.user_id,
			device_id = excluded.device_id,
			created_at = excluded.created_at`,
		v.QuoteID, v.Version, v.Data, v.UserID, v.DeviceID, v.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append quote version: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, quoteID string, version int64) (*models.QuoteVersion, error) {
	row := r.db.QueryRowContext(ctx, `SELECT quote_id, version, data, user_id, device_id, created_at
		FROM quote_versions WHERE quote_id = ? AND version = ?`, quoteID, version)
	return scanVersion(row)
}

func (r *SQLiteRepository) GetLatest(ctx context.Context, quoteID string) (*models.QuoteVersion, error) {
	row := r.db.QueryRowContext(ctx, `SELECT quote_id, version, data, user_id, device_id, created_at
		FROM quote_versions WHERE quote_id = ? ORDER BY version DESC LIMIT 1`, quoteID)
	return scanVersion(row)
}

func (r *SQLiteRepository) DeleteByQuoteID(ctx context.Context, quoteID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM quote_versions WHERE quote_id = ?`, quoteID)
	if err != nil {
		return fmt.Errorf("failed to delete quote versions: %w", err)
	}
	return nil
}

func scanVersion(row *sql.Row) (*models.QuoteVersion, error) {
	v := &models.QuoteVersion{}
	err := row.Scan(&v.QuoteID, &v.Version, &v.Data, &v.UserID, &v.DeviceID, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quote version: %w", err)
	}
	return v, nil
}
