// Package store opens the durable local store, runs schema migrations and
// hands out the per-table repositories. Repositories returned by WithTx are
// bound to one transaction so multi-table invariants (version advance plus
// snapshot append) hold even when the process dies mid-write.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/quotesync/internal/client/migrations"
	"github.com/dmitrijs2005/quotesync/internal/client/repositories/changelog"
	"github.com/dmitrijs2005/quotesync/internal/client/repositories/financials"
	"github.com/dmitrijs2005/quotesync/internal/client/repositories/jobs"
	"github.com/dmitrijs2005/quotesync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/quotesync/internal/client/repositories/quotes"
	"github.com/dmitrijs2005/quotesync/internal/client/repositories/syncqueue"
	"github.com/dmitrijs2005/quotesync/internal/client/repositories/versions"
	"github.com/dmitrijs2005/quotesync/internal/dbx"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// Repositories bundles every table's repository over one DBTX.
type Repositories struct {
	Quotes     quotes.Repository
	Jobs       jobs.Repository
	Financials financials.Repository
	Versions   versions.Repository
	ChangeLog  changelog.Repository
	Queue      syncqueue.Repository
	Metadata   metadata.Repository
}

func newRepositories(db dbx.DBTX) *Repositories {
	return &Repositories{
		Quotes:     quotes.NewSQLiteRepository(db),
		Jobs:       jobs.NewSQLiteRepository(db),
		Financials: financials.NewSQLiteRepository(db),
		Versions:   versions.NewSQLiteRepository(db),
		ChangeLog:  changelog.NewSQLiteRepository(db),
		Queue:      syncqueue.NewSQLiteRepository(db),
		Metadata:   metadata.NewSQLiteRepository(db),
	}
}

// Store is the opened local database plus repositories bound to it.
type Store struct {
	*Repositories
	db *sql.DB
}

// RunMigrations applies any pending goose migrations. An older on-disk
// schema is migrated forward in place; queued and conflicted rows survive.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// Open opens (creating if needed) the SQLite database at dsn, migrates the
// schema and returns the ready Store.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// modernc sqlite serializes writers; a single connection avoids
	// SQLITE_BUSY between the orchestrator and local write paths.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{Repositories: newRepositories(db), db: db}, nil
}

// WithTx runs fn with repositories bound to a single transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, r *Repositories) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, newRepositories(tx))
	})
}

// DB exposes the raw handle for tests and migrations tooling.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
