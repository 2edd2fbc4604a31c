// Package services is the local write surface of the engine. Every mutation
// is optimistic: it lands in the local store immediately (version advanced,
// snapshot appended, change log written, sync status pending) and a queue
// item is enqueued in the same transaction, so the UI never waits on the
// network and a crash cannot separate a write from its outbound operation.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/quotesync/internal/client/models"
	"github.com/dmitrijs2005/quotesync/internal/client/store"
	"github.com/dmitrijs2005/quotesync/internal/client/syncer"
	"github.com/dmitrijs2005/quotesync/internal/client/transport"
	"github.com/dmitrijs2005/quotesync/internal/common"
	"github.com/dmitrijs2005/quotesync/internal/logging"
)

// SyncTrigger nudges the orchestrator after a committed local write. The
// orchestrator satisfies it.
type SyncTrigger interface {
	SyncNow()
}

// QuoteService is the host application's entry point for quote mutations.
// priority is a queue priority (models.PriorityHigh/Normal/Low); zero means
// the default.
type QuoteService interface {
	Create(ctx context.Context, quote *models.Quote, priority int) (*models.Quote, error)
	Update(ctx context.Context, quote *models.Quote, priority int) (*models.Quote, error)
	Delete(ctx context.Context, id string, priority int) error
	Get(ctx context.Context, id string) (*transport.QuotePayload, error)
	List(ctx context.Context) ([]*models.Quote, error)

	AddJob(ctx context.Context, job *models.Job, priority int) (*models.Job, error)
	UpdateJob(ctx context.Context, job *models.Job, priority int) (*models.Job, error)
	SetFinancial(ctx context.Context, fin *models.Financial, priority int) error
}

type quoteService struct {
	store    *store.Store
	deviceID string
	trigger  SyncTrigger
	log      logging.Logger
	now      func() time.Time
}

// NewQuoteService builds the write surface. deviceID comes from
// device.Load; trigger may be nil when no orchestrator is running (tests,
// read-only tooling).
func NewQuoteService(st *store.Store, deviceID string, trigger SyncTrigger, log logging.Logger) QuoteService {
	return &quoteService{store: st, deviceID: deviceID, trigger: trigger, log: log, now: time.Now}
}

func (s *quoteService) Create(ctx context.Context, quote *models.Quote, priority int) (*models.Quote, error) {
	now := s.now().UTC()
	q := *quote
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.Status == "" {
		q.Status = models.QuoteStatusDraft
	}
	q.QuoteNumber = "" // assigned by the server on first sync
	q.Version = 1
	q.DeviceID = s.deviceID
	q.SyncStatus = models.SyncStatusPending
	q.CreatedAt = now
	q.UpdatedAt = now

	err := s.store.WithTx(ctx, func(ctx context.Context, r *store.Repositories) error {
		if err := r.Quotes.Upsert(ctx, &q); err != nil {
			return err
		}
		payload := &transport.QuotePayload{Quote: q}
		if err := s.appendSnapshot(ctx, r, payload, now); err != nil {
			return err
		}
		return s.enqueue(ctx, r, q.ID, models.OperationCreate, payload, 0, priority, now)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create quote: %w", err)
	}

	s.nudge()
	return &q, nil
}

func (s *quoteService) Update(ctx context.Context, quote *models.Quote, priority int) (*models.Quote, error) {
	now := s.now().UTC()
	var updated models.Quote

	err := s.store.WithTx(ctx, func(ctx context.Context, r *store.Repositories) error {
		current, err := r.Quotes.GetByID(ctx, quote.ID)
		if err != nil {
			return err
		}

		next := *current
		for name, value := range quote.Fields() {
			if name == "quote_number" {
				continue // server-owned
			}
			next.ApplyField(name, value)
		}

		changed := models.DiffFields(current, &next)
		if len(changed) == 0 {
			updated = *current
			return nil
		}

		base := current.Version
		next.Version = base + 1
		next.SyncStatus = models.SyncStatusPending
		next.UpdatedAt = now
		if err := r.Quotes.Upsert(ctx, &next); err != nil {
			return err
		}

		oldFields, newFields := current.Fields(), next.Fields()
		for _, name := range changed {
			if err := r.ChangeLog.Append(ctx, &models.ChangeLogItem{
				QuoteID:   next.ID,
				FieldName: name,
				OldValue:  oldFields[name],
				NewValue:  newFields[name],
				DeviceID:  s.deviceID,
				Timestamp: now,
			}); err != nil {
				return err
			}
		}

		payload, err := s.loadPayload(ctx, r, &next)
		if err != nil {
			return err
		}
		if err := s.appendSnapshot(ctx, r, payload, now); err != nil {
			return err
		}
		if err := s.enqueue(ctx, r, next.ID, models.OperationUpdate, payload, base, priority, now); err != nil {
			return err
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update quote: %w", err)
	}

	s.nudge()
	return &updated, nil
}

// Delete enqueues a server-side delete. The local row stays, flagged
// pending, until the server acknowledges; only then does the engine remove
// the quote and its satellite rows.
func (s *quoteService) Delete(ctx context.Context, id string, priority int) error {
	now := s.now().UTC()

	err := s.store.WithTx(ctx, func(ctx context.Context, r *store.Repositories) error {
		current, err := r.Quotes.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := r.Quotes.SetSyncStatus(ctx, id, models.SyncStatusPending); err != nil {
			return err
		}
		return s.enqueue(ctx, r, id, models.OperationDelete, nil, current.Version, priority, now)
	})
	if err != nil {
		return fmt.Errorf("failed to delete quote: %w", err)
	}

	s.nudge()
	return nil
}

func (s *quoteService) Get(ctx context.Context, id string) (*transport.QuotePayload, error) {
	quote, err := s.store.Quotes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.loadPayload(ctx, s.store.Repositories, quote)
}

func (s *quoteService) List(ctx context.Context) ([]*models.Quote, error) {
	return s.store.Quotes.GetAll(ctx)
}

func (s *quoteService) AddJob(ctx context.Context, job *models.Job, priority int) (*models.Job, error) {
	now := s.now().UTC()
	j := *job
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	j.DeviceID = s.deviceID
	j.SyncStatus = models.SyncStatusPending
	j.CreatedAt = now
	j.UpdatedAt = now

	err := s.mutateCollection(ctx, j.QuoteID, priority, now, "jobs", func(ctx context.Context, r *store.Repositories) error {
		if j.OrderIndex == 0 {
			existing, err := r.Jobs.GetByQuoteID(ctx, j.QuoteID)
			if err != nil {
				return err
			}
			j.OrderIndex = len(existing)
		}
		return r.Jobs.Upsert(ctx, &j)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add job: %w", err)
	}
	return &j, nil
}

func (s *quoteService) UpdateJob(ctx context.Context, job *models.Job, priority int) (*models.Job, error) {
	now := s.now().UTC()
	j := *job
	j.SyncStatus = models.SyncStatusPending
	j.UpdatedAt = now

	err := s.mutateCollection(ctx, j.QuoteID, priority, now, "jobs", func(ctx context.Context, r *store.Repositories) error {
		if _, err := r.Jobs.GetByID(ctx, j.ID); err != nil {
			return err
		}
		return r.Jobs.Upsert(ctx, &j)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update job: %w", err)
	}
	return &j, nil
}

func (s *quoteService) SetFinancial(ctx context.Context, fin *models.Financial, priority int) error {
	now := s.now().UTC()
	f := *fin
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	f.UpdatedAt = now

	err := s.mutateCollection(ctx, f.QuoteID, priority, now, "financials", func(ctx context.Context, r *store.Repositories) error {
		return r.Financials.Upsert(ctx, &f)
	})
	if err != nil {
		return fmt.Errorf("failed to set financials: %w", err)
	}
	return nil
}

// mutateCollection advances the parent quote's version around a jobs or
// financials mutation so the server sees the change as one more quote
// revision and the conflict detector can treat the collection as a single
// field.
func (s *quoteService) mutateCollection(ctx context.Context, quoteID string, priority int, now time.Time, field string, mutate func(ctx context.Context, r *store.Repositories) error) error {
	err := s.store.WithTx(ctx, func(ctx context.Context, r *store.Repositories) error {
		quote, err := r.Quotes.GetByID(ctx, quoteID)
		if err != nil {
			return err
		}

		oldValue, err := s.collectionJSON(ctx, r, quoteID, field)
		if err != nil {
			return err
		}

		if err := mutate(ctx, r); err != nil {
			return err
		}

		newValue, err := s.collectionJSON(ctx, r, quoteID, field)
		if err != nil {
			return err
		}

		base := quote.Version
		quote.Version = base + 1
		quote.SyncStatus = models.SyncStatusPending
		quote.UpdatedAt = now
		if err := r.Quotes.Upsert(ctx, quote); err != nil {
			return err
		}

		if err := r.ChangeLog.Append(ctx, &models.ChangeLogItem{
			QuoteID:   quoteID,
			FieldName: field,
			OldValue:  oldValue,
			NewValue:  newValue,
			DeviceID:  s.deviceID,
			Timestamp: now,
		}); err != nil {
			return err
		}

		payload, err := s.loadPayload(ctx, r, quote)
		if err != nil {
			return err
		}
		if err := s.appendSnapshot(ctx, r, payload, now); err != nil {
			return err
		}
		return s.enqueue(ctx, r, quoteID, models.OperationUpdate, payload, base, priority, now)
	})
	if err != nil {
		return err
	}

	s.nudge()
	return nil
}

func (s *quoteService) collectionJSON(ctx context.Context, r *store.Repositories, quoteID, field string) (string, error) {
	var v any
	var err error
	switch field {
	case "jobs":
		v, err = r.Jobs.GetByQuoteID(ctx, quoteID)
	case "financials":
		v, err = r.Financials.GetByQuoteID(ctx, quoteID)
		if errors.Is(err, common.ErrorNotFound) {
			v, err = nil, nil
		}
	default:
		return "", fmt.Errorf("unknown collection %q", field)
	}
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s *quoteService) loadPayload(ctx context.Context, r *store.Repositories, quote *models.Quote) (*transport.QuotePayload, error) {
	jobs, err := r.Jobs.GetByQuoteID(ctx, quote.ID)
	if err != nil {
		return nil, err
	}
	fin, err := r.Financials.GetByQuoteID(ctx, quote.ID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}
	return &transport.QuotePayload{Quote: *quote, Jobs: jobs, Financials: fin}, nil
}

func (s *quoteService) appendSnapshot(ctx context.Context, r *store.Repositories, payload *transport.QuotePayload, now time.Time) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return r.Versions.Append(ctx, &models.QuoteVersion{
		QuoteID:   payload.ID,
		Version:   payload.Version,
		Data:      data,
		DeviceID:  s.deviceID,
		CreatedAt: now,
	})
}

// enqueue inserts the outbound item. The wire payload carries the base
// version the edit was made against; the server answers with base+1.
func (s *quoteService) enqueue(ctx context.Context, r *store.Repositories, quoteID string, op models.Operation, payload *transport.QuotePayload, baseVersion int64, priority int, now time.Time) error {
	var data []byte
	if payload != nil {
		wire := *payload
		wire.Version = baseVersion
		b, err := json.Marshal(&wire)
		if err != nil {
			return err
		}
		data = b
	}
	item := syncer.NewQueueItem(quoteID, op, data, baseVersion, priority, s.deviceID, now)
	if err := r.Queue.Insert(ctx, item); err != nil {
		return err
	}
	s.log.Debug(ctx, "operation queued", "quote", quoteID, "op", op, "base", baseVersion)
	return nil
}

func (s *quoteService) nudge() {
	if s.trigger != nil {
		s.trigger.SyncNow()
	}
}
