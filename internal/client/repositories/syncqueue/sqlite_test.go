package syncqueue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/quotesync/internal/client/models"
	"github.com/dmitrijs2005/quotesync/internal/common"
)

// Error-path behavior is verified against a mocked driver; the happy paths
// run against real SQLite from the queue manager and store tests.

func setupMock(t *testing.T) (*SQLiteRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLiteRepository(db), mock
}

func TestInsert_DriverErrorIsWrapped(t *testing.T) {
	repo, mock := setupMock(t)
	mock.ExpectExec("INSERT INTO sync_queue").WillReturnError(errors.New("disk I/O error"))

	err := repo.Insert(context.Background(), &models.SyncQueueItem{ID: "i1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert queue item")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_NoRowsIsNotFound(t *testing.T) {
	repo, mock := setupMock(t)
	mock.ExpectQuery("SELECT (.+) FROM sync_queue WHERE id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetReady_QueryErrorIsWrapped(t *testing.T) {
	repo, mock := setupMock(t)
	mock.ExpectQuery("SELECT (.+) FROM sync_queue s").WillReturnError(errors.New("database is locked"))

	_, err := repo.GetReady(context.Background(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to select queue items")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOldestPendingByQuote_NoRowsIsNotFound(t *testing.T) {
	repo, mock := setupMock(t)
	mock.ExpectQuery("SELECT timestamp FROM sync_queue").
		WithArgs("q1").
		WillReturnRows(sqlmock.NewRows([]string{"timestamp"}))

	_, err := repo.OldestPendingByQuote(context.Background(), "q1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
