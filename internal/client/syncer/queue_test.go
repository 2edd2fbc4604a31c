package syncer

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/quotesync/internal/client/models"
	"github.com/dmitrijs2005/quotesync/internal/client/store"
	"github.com/dmitrijs2005/quotesync/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "quotes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testPolicy() BackoffPolicy {
	return BackoffPolicy{
		Base:       time.Second,
		MaxDelay:   time.Minute,
		MaxRetries: 8,
		jitterFn:   func(time.Duration) time.Duration { return 0 },
	}
}

func TestNewQueueItem_Defaults(t *testing.T) {
	now := time.Now().UTC()
	item := NewQueueItem("q1", models.OperationUpdate, []byte(`{}`), 3, 0, "dev-1", now)

	assert.NotEmpty(t, item.ID)
	assert.NotEmpty(t, item.AttemptKey)
	assert.Equal(t, models.PriorityNormal, item.Priority)
	assert.Equal(t, models.QueueStatusPending, item.Status)
	assert.Equal(t, int64(3), item.BaseVersion)
	assert.Zero(t, item.RetryCount)
	assert.Nil(t, item.NextRetryAt)
	assert.False(t, item.DeadLetter)
}

func TestQueueManager_EnqueueDeleteWithoutPayload(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	m := NewQueueManager(s.Queue, testPolicy(), testLogger())

	// Deletes are enqueued with no payload; the item must still satisfy the
	// NOT NULL payload column.
	item := NewQueueItem("q1", models.OperationDelete, nil, 2, 0, "dev-1", time.Now().UTC())
	require.NoError(t, m.Enqueue(ctx, item))

	stored, err := s.Queue.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OperationDelete, stored.Operation)
	assert.NotNil(t, stored.Payload)
	assert.Empty(t, stored.Payload)
}

func TestQueueManager_MarkFailedSchedulesRetry(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	m := NewQueueManager(s.Queue, testPolicy(), testLogger())

	now := time.Now().UTC()
	item := NewQueueItem("q1", models.OperationUpdate, []byte(`{}`), 1, 0, "dev-1", now)
	require.NoError(t, m.Enqueue(ctx, item))

	require.NoError(t, m.MarkFailed(ctx, item, now))

	stored, err := s.Queue.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.RetryCount)
	assert.False(t, stored.DeadLetter)
	require.NotNil(t, stored.NextRetryAt)
	assert.WithinDuration(t, now.Add(2*time.Second), *stored.NextRetryAt, time.Second)

	// Not ready until the backoff elapses.
	ready, err := m.GetReady(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, ready)

	ready, err = m.GetReady(ctx, now.Add(3*time.Second))
	require.NoError(t, err)
	assert.Len(t, ready, 1)
}

func TestQueueManager_DeadLetterAfterExhaustedRetries(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	m := NewQueueManager(s.Queue, testPolicy(), testLogger())

	now := time.Now().UTC()
	item := NewQueueItem("q1", models.OperationUpdate, []byte(`{}`), 1, 0, "dev-1", now)
	require.NoError(t, m.Enqueue(ctx, item))

	for i := 0; i < 9; i++ {
		require.NoError(t, m.MarkFailed(ctx, item, now))
	}

	stored, err := s.Queue.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, stored.DeadLetter)
	assert.Equal(t, 9, stored.RetryCount)
	assert.Nil(t, stored.NextRetryAt)

	// Dead-lettered items never come back on their own.
	ready, err := m.GetReady(ctx, now.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, ready)
}

func TestQueueManager_RequeueResetsItem(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	m := NewQueueManager(s.Queue, testPolicy(), testLogger())

	now := time.Now().UTC()
	item := NewQueueItem("q1", models.OperationUpdate, []byte(`{}`), 1, 0, "dev-1", now)
	require.NoError(t, m.Enqueue(ctx, item))
	require.NoError(t, m.DeadLetter(ctx, item, "rejected"))

	require.NoError(t, m.Requeue(ctx, item.ID))

	stored, err := s.Queue.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.False(t, stored.DeadLetter)
	assert.Equal(t, models.QueueStatusPending, stored.Status)
	assert.Zero(t, stored.RetryCount)

	ready, err := m.GetReady(ctx, now)
	require.NoError(t, err)
	assert.Len(t, ready, 1)
}

func TestQueueManager_MarkSucceededIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	m := NewQueueManager(s.Queue, testPolicy(), testLogger())

	item := NewQueueItem("q1", models.OperationCreate, []byte(`{}`), 0, 0, "dev-1", time.Now().UTC())
	require.NoError(t, m.Enqueue(ctx, item))

	require.NoError(t, m.MarkSucceeded(ctx, item))
	require.NoError(t, m.MarkSucceeded(ctx, item))
}

func TestQueueManager_ConflictParksWholeQuote(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	m := NewQueueManager(s.Queue, testPolicy(), testLogger())

	now := time.Now().UTC()
	first := NewQueueItem("q1", models.OperationUpdate, []byte(`{}`), 1, 0, "dev-1", now)
	second := NewQueueItem("q1", models.OperationUpdate, []byte(`{}`), 2, 0, "dev-1", now.Add(time.Second))
	other := NewQueueItem("q2", models.OperationCreate, []byte(`{}`), 0, 0, "dev-1", now.Add(2*time.Second))
	require.NoError(t, m.Enqueue(ctx, first))
	require.NoError(t, m.Enqueue(ctx, second))
	require.NoError(t, m.Enqueue(ctx, other))

	require.NoError(t, m.MarkConflict(ctx, first))

	// The conflicted head keeps its quote's line parked; other quotes drain.
	ready, err := m.GetReady(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, ready, 1)
	assert.Equal(t, other.ID, ready[0].ID)
}

func TestQueueManager_ReadyOrderedByPriorityThenAge(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	m := NewQueueManager(s.Queue, testPolicy(), testLogger())

	now := time.Now().UTC()
	low := NewQueueItem("q1", models.OperationUpdate, []byte(`{}`), 1, models.PriorityLow, "dev-1", now)
	high := NewQueueItem("q2", models.OperationUpdate, []byte(`{}`), 1, models.PriorityHigh, "dev-1", now.Add(time.Second))
	normal := NewQueueItem("q3", models.OperationUpdate, []byte(`{}`), 1, models.PriorityNormal, "dev-1", now.Add(2*time.Second))
	require.NoError(t, m.Enqueue(ctx, low))
	require.NoError(t, m.Enqueue(ctx, high))
	require.NoError(t, m.Enqueue(ctx, normal))

	ready, err := m.GetReady(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, ready, 3)
	assert.Equal(t, high.ID, ready[0].ID)
	assert.Equal(t, normal.ID, ready[1].ID)
	assert.Equal(t, low.ID, ready[2].ID)
}

func TestQueueManager_OnlyHeadOfQuoteLineIsReady(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	m := NewQueueManager(s.Queue, testPolicy(), testLogger())

	now := time.Now().UTC()
	first := NewQueueItem("q1", models.OperationUpdate, []byte(`{}`), 1, models.PriorityLow, "dev-1", now)
	// Newer but higher priority; still must wait behind its older sibling.
	second := NewQueueItem("q1", models.OperationUpdate, []byte(`{}`), 2, models.PriorityHigh, "dev-1", now.Add(time.Second))
	require.NoError(t, m.Enqueue(ctx, first))
	require.NoError(t, m.Enqueue(ctx, second))

	ready, err := m.GetReady(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, ready, 1)
	assert.Equal(t, first.ID, ready[0].ID)
}

func TestQueueManager_RotateAttemptKeyPersists(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	m := NewQueueManager(s.Queue, testPolicy(), testLogger())

	item := NewQueueItem("q1", models.OperationUpdate, []byte(`{}`), 1, 0, "dev-1", time.Now().UTC())
	require.NoError(t, m.Enqueue(ctx, item))

	before := item.AttemptKey
	require.NoError(t, m.RotateAttemptKey(ctx, item))
	assert.NotEqual(t, before, item.AttemptKey)

	stored, err := s.Queue.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.AttemptKey, stored.AttemptKey)
}
