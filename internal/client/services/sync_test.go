package services

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/quotesync/internal/client/connectivity"
	"github.com/dmitrijs2005/quotesync/internal/client/models"
	"github.com/dmitrijs2005/quotesync/internal/client/store"
	"github.com/dmitrijs2005/quotesync/internal/client/syncer"
	"github.com/dmitrijs2005/quotesync/internal/client/transport"
	"github.com/dmitrijs2005/quotesync/internal/common"
)

// echoClient acknowledges every write with the payload at the next version,
// assigning a quote number on first sync, the way a healthy server does.
type echoClient struct{}

func echoServer(p *transport.QuotePayload) (*transport.QuotePayload, error) {
	out := *p
	out.Version = p.Version + 1
	if out.QuoteNumber == "" {
		out.QuoteNumber = "Q-2001"
	}
	return &out, nil
}

func (echoClient) CreateQuote(_ context.Context, p *transport.QuotePayload, _ string) (*transport.QuotePayload, error) {
	return echoServer(p)
}

func (echoClient) UpdateQuote(_ context.Context, p *transport.QuotePayload, _ string) (*transport.QuotePayload, error) {
	return echoServer(p)
}

func (echoClient) DeleteQuote(context.Context, string, int64, string) error { return nil }

func (echoClient) Ping(context.Context) error { return nil }

// setupSyncFixture wires the real write surface to a drain loop over one
// store, with the orchestrator itself serving as the service's sync trigger.
func setupSyncFixture(t *testing.T) (*store.Store, QuoteService, *syncer.Orchestrator) {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "quotes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	log := testLogger()
	policy := syncer.BackoffPolicy{Base: time.Second, MaxDelay: time.Minute, MaxRetries: 8}
	queue := syncer.NewQueueManager(s.Queue, policy, log)
	detector := syncer.NewDetector(s.Versions, s.ChangeLog, log)
	monitor := connectivity.NewMonitor(connectivity.Online)
	orc := syncer.NewOrchestrator(s, queue, echoClient{}, detector, monitor,
		syncer.Options{Fanout: 4, Interval: time.Hour}, log)
	svc := NewQuoteService(s, "dev-1", orc, log)
	return s, svc, orc
}

func TestQuoteService_CreateThenUpdateDrainsToSynced(t *testing.T) {
	ctx := context.Background()
	s, svc, orc := setupSyncFixture(t)

	q, err := svc.Create(ctx, &models.Quote{CustomerName: "Dana Reyes", Notes: "first pass"}, 0)
	require.NoError(t, err)

	edit := *q
	edit.Notes = "revised after site visit"
	_, err = svc.Update(ctx, &edit, 0)
	require.NoError(t, err)

	require.NoError(t, orc.Drain(ctx))

	stored, err := s.Quotes.GetByID(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusSynced, stored.SyncStatus)
	assert.Equal(t, int64(2), stored.Version)
	assert.Equal(t, "Q-2001", stored.QuoteNumber)
	assert.Equal(t, "revised after site visit", stored.Notes)

	// The version history converges with the quote row.
	latest, err := s.Versions.GetLatest(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.Version, latest.Version)

	var snap transport.QuotePayload
	require.NoError(t, json.Unmarshal(latest.Data, &snap))
	assert.Equal(t, "revised after site visit", snap.Notes)

	// The create's provisional v1 snapshot was replaced by the server's
	// acknowledged record, which already carries the assigned number.
	first, err := s.Versions.Get(ctx, q.ID, 1)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(first.Data, &snap))
	assert.Equal(t, "Q-2001", snap.QuoteNumber)

	n, err := s.Queue.CountPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQuoteService_DeleteDrainsAndRemovesQuote(t *testing.T) {
	ctx := context.Background()
	s, svc, orc := setupSyncFixture(t)

	q, err := svc.Create(ctx, &models.Quote{CustomerName: "Dana Reyes"}, 0)
	require.NoError(t, err)
	require.NoError(t, orc.Drain(ctx))

	require.NoError(t, svc.Delete(ctx, q.ID, 0))
	require.NoError(t, orc.Drain(ctx))

	_, err = s.Quotes.GetByID(ctx, q.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = s.Versions.GetLatest(ctx, q.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	n, err := s.Queue.CountPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
