package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/quotesync/internal/client/connectivity"
	"github.com/dmitrijs2005/quotesync/internal/client/models"
	"github.com/dmitrijs2005/quotesync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/quotesync/internal/client/store"
	"github.com/dmitrijs2005/quotesync/internal/client/transport"
	"github.com/dmitrijs2005/quotesync/internal/common"
	"github.com/dmitrijs2005/quotesync/internal/logging"
)

const (
	defaultFanout   = 4
	defaultInterval = 30 * time.Second
)

// Options tune the orchestrator's drain behavior. Zero values fall back to
// defaults.
type Options struct {
	// Fanout caps how many queue items are in flight at once. Items for the
	// same quote are never dispatched concurrently regardless of fanout.
	Fanout int

	// Interval is the periodic drain cadence while online.
	Interval time.Duration
}

// Orchestrator drains the sync queue against the server. It is the only
// component that transmits: local write paths enqueue and nudge it, the
// reachability monitor wakes it on reconnect, and a ticker covers items
// whose backoff has elapsed.
//
// At most one drain cycle runs at a time; triggers arriving mid-drain
// collapse into a single follow-up cycle.
type Orchestrator struct {
	store    *store.Store
	queue    *QueueManager
	client   transport.Client
	detector *Detector
	monitor  *connectivity.Monitor
	log      logging.Logger

	fanout   int
	interval time.Duration
	now      func() time.Time

	syncing atomic.Bool
	wake    chan struct{}
}

// NewOrchestrator wires the drain loop over the local store, the queue
// manager and the server transport.
func NewOrchestrator(st *store.Store, queue *QueueManager, client transport.Client,
	detector *Detector, monitor *connectivity.Monitor, opts Options, log logging.Logger) *Orchestrator {

	if opts.Fanout <= 0 {
		opts.Fanout = defaultFanout
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}

	return &Orchestrator{
		store:    st,
		queue:    queue,
		client:   client,
		detector: detector,
		monitor:  monitor,
		log:      log,
		fanout:   opts.Fanout,
		interval: opts.Interval,
		now:      time.Now,
		wake:     make(chan struct{}, 1),
	}
}

// SyncNow requests a drain cycle. It never blocks; a request arriving while
// a cycle is already pending is absorbed.
func (o *Orchestrator) SyncNow() {
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

// Syncing reports whether a drain cycle is currently running.
func (o *Orchestrator) Syncing() bool {
	return o.syncing.Load()
}

// Run processes drain triggers until ctx is canceled. Triggers are the
// wake channel (SyncNow), the periodic ticker, and reachability transitions
// to online.
func (o *Orchestrator) Run(ctx context.Context) error {
	unsubscribe := o.monitor.Subscribe(func(s connectivity.State) {
		if s == connectivity.Online {
			o.SyncNow()
		}
	})
	defer unsubscribe()

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-o.wake:
		case <-ticker.C:
		}

		if o.monitor.State() != connectivity.Online {
			continue
		}

		if err := o.Drain(ctx); err != nil && !errors.Is(err, context.Canceled) {
			o.log.Error(ctx, "drain cycle failed", "error", err)
		}
	}
}

// Drain runs one full drain cycle: waves of ready items dispatched with
// bounded concurrency until nothing is ready or a wave makes no progress.
// A second caller while a cycle is running returns immediately.
func (o *Orchestrator) Drain(ctx context.Context) error {
	if !o.syncing.CompareAndSwap(false, true) {
		return nil
	}
	defer o.syncing.Store(false)

	for {
		items, err := o.queue.GetReady(ctx, o.now())
		if err != nil {
			return fmt.Errorf("%w: fetching ready items: %w", common.ErrStorage, err)
		}
		if len(items) == 0 {
			break
		}

		var acked atomic.Int64

		// GetReady returns at most one item per quote, so fanning out over
		// the wave cannot reorder a single quote's operations.
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(o.fanout)
		for _, item := range items {
			item := item
			g.Go(func() error {
				ok, err := o.processOne(gctx, item)
				if ok {
					acked.Add(1)
				}
				return err
			})
		}
		if err := g.Wait(); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			return fmt.Errorf("%w: %w", common.ErrStorage, err)
		}

		// A wave where nothing was acknowledged means every remaining item
		// is backing off or held; stop and wait for the next trigger.
		if acked.Load() == 0 {
			break
		}
	}

	if err := o.store.Metadata.Set(ctx, metadata.KeyLastDrainAt,
		[]byte(o.now().UTC().Format(time.RFC3339Nano))); err != nil {
		o.log.Warn(ctx, "failed to record drain time", "error", err)
	}
	return nil
}

// processOne pushes a single queue item to the server and settles its fate.
// It reports whether the item was acknowledged (and removed). Only storage
// failures propagate as errors; transport outcomes are absorbed into the
// item's queue state.
func (o *Orchestrator) processOne(ctx context.Context, item *models.SyncQueueItem) (bool, error) {
	payload, err := decodePayload(item)
	if err != nil {
		// A payload we wrote but cannot read back is not retryable.
		if dlErr := o.queue.DeadLetter(ctx, item, fmt.Sprintf("undecodable payload: %v", err)); dlErr != nil {
			return false, dlErr
		}
		return false, nil
	}

	// One extra transmit is allowed after an automatic merge rebases the
	// item; a second mismatch in the same pass backs off normally.
	for attempt := 0; attempt < 2; attempt++ {
		serverRecord, err := o.transmit(ctx, item, payload)
		if err == nil {
			if err := o.applyAck(ctx, item, serverRecord); err != nil {
				return false, fmt.Errorf("failed to apply server ack: %w", err)
			}
			return true, nil
		}

		var mismatch *transport.VersionMismatchError
		switch {
		case errors.As(err, &mismatch):
			retry, handleErr := o.handleMismatch(ctx, item, payload, mismatch)
			if handleErr != nil {
				return false, handleErr
			}
			if !retry {
				return false, nil
			}
			// Item was rebased in place; send the merged payload.
			if payload, err = decodePayload(item); err != nil {
				return false, fmt.Errorf("failed to decode merged payload: %w", err)
			}
			continue

		case errors.Is(err, common.ErrRejected):
			o.log.Warn(ctx, "server rejected operation",
				"item", item.ID, "quote", item.QuoteID, "error", err)
			if dlErr := o.queue.DeadLetter(ctx, item, err.Error()); dlErr != nil {
				return false, dlErr
			}
			if err := o.store.Quotes.SetSyncStatus(ctx, item.QuoteID, models.SyncStatusError); err != nil {
				return false, err
			}
			return false, nil

		default:
			// Transport failure or timeout; the attempt key stays stable so
			// a replay of a request that actually landed is de-duplicated.
			o.log.Info(ctx, "transmit failed, backing off",
				"item", item.ID, "quote", item.QuoteID, "error", err)
			if err := o.queue.MarkFailed(ctx, item, o.now()); err != nil {
				return false, err
			}
			return false, nil
		}
	}

	if err := o.queue.MarkFailed(ctx, item, o.now()); err != nil {
		return false, err
	}
	return false, nil
}

func (o *Orchestrator) transmit(ctx context.Context, item *models.SyncQueueItem, payload *transport.QuotePayload) (*transport.QuotePayload, error) {
	switch item.Operation {
	case models.OperationCreate:
		return o.client.CreateQuote(ctx, payload, item.AttemptKey)
	case models.OperationUpdate:
		return o.client.UpdateQuote(ctx, payload, item.AttemptKey)
	case models.OperationDelete:
		return nil, o.client.DeleteQuote(ctx, item.QuoteID, item.BaseVersion, item.AttemptKey)
	default:
		return nil, fmt.Errorf("%w: unknown operation %q", common.ErrRejected, item.Operation)
	}
}

// handleMismatch runs the conflict detector and applies its verdict.
// retry is true when the item was rebased onto the server version and
// should be transmitted again in the same pass.
func (o *Orchestrator) handleMismatch(ctx context.Context, item *models.SyncQueueItem, local *transport.QuotePayload, mismatch *transport.VersionMismatchError) (retry bool, err error) {
	resolution, err := o.detector.Resolve(ctx, item, local, mismatch)
	if err != nil {
		if errors.Is(err, common.ErrFatalVersion) {
			if dlErr := o.queue.DeadLetter(ctx, item, err.Error()); dlErr != nil {
				return false, dlErr
			}
			if err := o.store.Quotes.SetSyncStatus(ctx, item.QuoteID, models.SyncStatusError); err != nil {
				return false, err
			}
			return false, nil
		}
		return false, err
	}

	switch resolution.Kind {
	case ResolutionMerged:
		data, err := json.Marshal(resolution.Merged)
		if err != nil {
			return false, fmt.Errorf("failed to encode merged payload: %w", err)
		}
		item.Payload = data
		item.BaseVersion = resolution.Merged.Version
		// The merged request differs from the one the server may have
		// partially seen, so it gets a fresh idempotency token.
		if err := o.queue.RotateAttemptKey(ctx, item); err != nil {
			return false, err
		}
		return true, nil

	case ResolutionConflict:
		if err := o.queue.MarkConflict(ctx, item); err != nil {
			return false, err
		}
		return false, nil

	default:
		return false, fmt.Errorf("unknown resolution kind %q", resolution.Kind)
	}
}

// applyAck applies the server's authoritative record in one transaction:
// local rows flip to synced at the server's version, a snapshot is
// appended, the queue item is removed and the change log pruned up to the
// oldest edit a still-pending item may need.
func (o *Orchestrator) applyAck(ctx context.Context, item *models.SyncQueueItem, serverRecord *transport.QuotePayload) error {
	return o.store.WithTx(ctx, func(ctx context.Context, r *store.Repositories) error {
		if item.Operation == models.OperationDelete {
			if err := r.Jobs.DeleteByQuoteID(ctx, item.QuoteID); err != nil {
				return err
			}
			if err := r.Financials.DeleteByQuoteID(ctx, item.QuoteID); err != nil {
				return err
			}
			if err := r.ChangeLog.DeleteByQuoteID(ctx, item.QuoteID); err != nil {
				return err
			}
			if err := r.Versions.DeleteByQuoteID(ctx, item.QuoteID); err != nil {
				return err
			}
			if err := r.Quotes.Delete(ctx, item.QuoteID); err != nil {
				return err
			}
			return r.Queue.Delete(ctx, item.ID)
		}

		if serverRecord == nil {
			return fmt.Errorf("server acknowledged %s without a record", item.Operation)
		}

		quote := serverRecord.Quote
		quote.SyncStatus = models.SyncStatusSynced
		if err := r.Quotes.Upsert(ctx, &quote); err != nil {
			return err
		}

		if err := r.Jobs.DeleteByQuoteID(ctx, quote.ID); err != nil {
			return err
		}
		for _, job := range serverRecord.Jobs {
			job.SyncStatus = models.SyncStatusSynced
			if err := r.Jobs.Upsert(ctx, job); err != nil {
				return err
			}
		}

		if serverRecord.Financials != nil {
			if err := r.Financials.Upsert(ctx, serverRecord.Financials); err != nil {
				return err
			}
		} else if err := r.Financials.DeleteByQuoteID(ctx, quote.ID); err != nil {
			return err
		}

		data, err := json.Marshal(serverRecord)
		if err != nil {
			return fmt.Errorf("failed to encode snapshot: %w", err)
		}
		if err := r.Versions.Append(ctx, &models.QuoteVersion{
			QuoteID:   quote.ID,
			Version:   quote.Version,
			Data:      data,
			DeviceID:  item.DeviceID,
			CreatedAt: o.now(),
		}); err != nil {
			return err
		}

		if err := r.Queue.Delete(ctx, item.ID); err != nil {
			return err
		}

		// Change-log entries are only needed for items still waiting to be
		// merged; everything older than the oldest such item can go.
		pruneBefore, err := r.Queue.OldestPendingByQuote(ctx, quote.ID)
		if err != nil {
			if !errors.Is(err, common.ErrorNotFound) {
				return err
			}
			pruneBefore = o.now()
		}
		return r.ChangeLog.PruneBefore(ctx, quote.ID, pruneBefore)
	})
}

func decodePayload(item *models.SyncQueueItem) (*transport.QuotePayload, error) {
	if item.Operation == models.OperationDelete {
		return nil, nil
	}
	var payload transport.QuotePayload
	if err := json.Unmarshal(item.Payload, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}
