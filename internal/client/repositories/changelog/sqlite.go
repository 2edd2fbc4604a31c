package changelog

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/quotesync/internal/client/models"
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

func (r *SQLiteRepository) Append(ctx context.Context, item *models.ChangeLogItem) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO change_log
		(quote_id, field_name, old_value, new_value, device_id, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		item.QuoteID, item.FieldName, item.OldValue, item.NewValue, item.DeviceID, item.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to append change log item: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetSince(ctx context.Context, quoteID string, since time.Time) ([]*models.ChangeLogItem, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, quote_id, field_name, old_value, new_value, device_id, timestamp
		FROM change_log WHERE quote_id = ? AND timestamp > ? ORDER BY timestamp, id`, quoteID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to select change log: %w", err)
	}
	defer rows.Close()

	var result []*models.ChangeLogItem
	for rows.Next() {
		item := &models.ChangeLogItem{}
		if err := rows.Scan(&item.ID, &item.QuoteID, &item.FieldName, &item.OldValue,
			&item.NewValue, &item.DeviceID, &item.Timestamp); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) PruneBefore(ctx context.Context, quoteID string, before time.Time) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM change_log WHERE quote_id = ? AND timestamp < ?`,
		quoteID, before)
	if err != nil {
		return fmt.Errorf("failed to prune change log: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteByQuoteID(ctx context.Context, quoteID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM change_log WHERE quote_id = ?`, quoteID)
	if err != nil {
		return fmt.Errorf("failed to delete change log: %w", err)
	}
	return nil
}
