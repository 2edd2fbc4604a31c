package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/quotesync/internal/client/connectivity"
	"github.com/dmitrijs2005/quotesync/internal/client/models"
	"github.com/dmitrijs2005/quotesync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/quotesync/internal/client/store"
	"github.com/dmitrijs2005/quotesync/internal/client/syncer"
)

// Status is a point-in-time view of the engine for the host UI.
type Status struct {
	Connectivity connectivity.State `json:"connectivity"`
	Syncing      bool               `json:"syncing"`
	QueueSize    int                `json:"queue_size"`
	DeadLetter   int                `json:"dead_letter"`
	Conflicts    int                `json:"conflicts"`
	LastDrainAt  *time.Time         `json:"last_drain_at,omitempty"`
}

// Syncer is the orchestrator surface the status service needs.
type Syncer interface {
	SyncNow()
	Syncing() bool
}

// StatusService answers observability queries and carries operator actions
// (requeue, manual sync) into the engine.
type StatusService interface {
	Snapshot(ctx context.Context) (*Status, error)
	DeadLetterItems(ctx context.Context) ([]*models.SyncQueueItem, error)
	ConflictedItems(ctx context.Context) ([]*models.SyncQueueItem, error)
	Requeue(ctx context.Context, id string) error
	TriggerSync()
}

type statusService struct {
	store   *store.Store
	queue   *syncer.QueueManager
	monitor *connectivity.Monitor
	syncer  Syncer
}

// NewStatusService builds the read/operator surface over the running engine.
func NewStatusService(st *store.Store, queue *syncer.QueueManager, monitor *connectivity.Monitor, sync Syncer) StatusService {
	return &statusService{store: st, queue: queue, monitor: monitor, syncer: sync}
}

func (s *statusService) Snapshot(ctx context.Context) (*Status, error) {
	pending, err := s.store.Queue.CountPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending: %w", err)
	}
	dead, err := s.store.Queue.GetDeadLetter(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list dead-letter: %w", err)
	}
	conflicted, err := s.store.Queue.GetConflicted(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list conflicts: %w", err)
	}

	st := &Status{
		Connectivity: s.monitor.State(),
		Syncing:      s.syncer.Syncing(),
		QueueSize:    pending,
		DeadLetter:   len(dead),
		Conflicts:    len(conflicted),
	}

	raw, err := s.store.Metadata.Get(ctx, metadata.KeyLastDrainAt)
	if err != nil {
		return nil, fmt.Errorf("failed to read last drain time: %w", err)
	}
	if raw != nil {
		if t, err := time.Parse(time.RFC3339Nano, string(raw)); err == nil {
			st.LastDrainAt = &t
		}
	}
	return st, nil
}

func (s *statusService) DeadLetterItems(ctx context.Context) ([]*models.SyncQueueItem, error) {
	return s.store.Queue.GetDeadLetter(ctx)
}

func (s *statusService) ConflictedItems(ctx context.Context) ([]*models.SyncQueueItem, error) {
	return s.store.Queue.GetConflicted(ctx)
}

// Requeue resets a dead-lettered or conflicted item and wakes the
// orchestrator so it is retried right away.
func (s *statusService) Requeue(ctx context.Context, id string) error {
	if err := s.queue.Requeue(ctx, id); err != nil {
		return err
	}
	s.syncer.SyncNow()
	return nil
}

func (s *statusService) TriggerSync() {
	s.syncer.SyncNow()
}
