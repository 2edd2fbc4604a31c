package financials

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

func (r *SQLiteRepository) Upsert(ctx context.Context, f *models.Financial) error {
	query := ` INSERT INTO financials (quote_id, subtotal, tax_amount, total,
			margin_percent, currency, created_at, updated_at)
			values (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(quote_id) DO UPDATE SET subtotal = excluded.subtotal,
				tax_amount = excluded.tax_amount,
				total = excluded.total,
				margin_percent = excluded.margin_percent,
				currency = excluded.currency,
				updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		f.QuoteID, f.Subtotal, f.TaxAmount, f.Total, f.MarginPercent, f.Currency,
		f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert financial: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByQuoteID(ctx context.Context, quoteID string) (*models.Financial, error) {
	row := r.db.QueryRowContext(ctx, `SELECT quote_id, subtotal, tax_amount, total,
		margin_percent, currency, created_at, updated_at FROM financials WHERE quote_id = ?`, quoteID)

	f := &models.Financial{}
	err := row.Scan(&f.QuoteID, &f.Subtotal, &f.TaxAmount, &f.Total,
		&f.MarginPercent, &f.Currency, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get financial: %w", err)
	}
	return f, nil
}

func (r *SQLiteRepository) DeleteByQuoteID(ctx context.Context, quoteID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM financials WHERE quote_id = ?`, quoteID)
	if err != nil {
		return fmt.Errorf("failed to delete financial: %w", err)
	}
	return nil
}
