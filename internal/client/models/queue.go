package models

import "time"

// Operation is the kind of outbound mutation a queue item carries.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// Queue priorities. Lower drains first; ties break by enqueue time so older
// urgent work is never starved by newer urgent work.
const (
	PriorityHigh   = 1
	PriorityNormal = 5
	PriorityLow    = 9
)

// QueueStatus separates items eligible for automatic drains from items held
// for user resolution.
type QueueStatus string

const (
	QueueStatusPending  QueueStatus = "pending"
	QueueStatusConflict QueueStatus = "conflict"
)

// SyncQueueItem is one pending outbound operation. Items for the same quote
// are processed strictly in enqueue order; NextRetryAt nil means "ready
// now". An item is never silently dropped: it is deleted on server
// acknowledgment or flipped to DeadLetter after exhausting retries.
//
// AttemptKey is a client-generated idempotency token. It stays stable
// across retries of the same request so a request that succeeded
// server-side before the client timed out is de-duplicated on replay, and
// is reissued only when the request itself changes (e.g. after a merge).
type SyncQueueItem struct {
	ID          string      `json:"id"`
	QuoteID     string      `json:"quote_id"`
	Operation   Operation   `json:"operation"`
	Payload     []byte      `json:"payload"`
	BaseVersion int64       `json:"base_version"`
	Priority    int         `json:"priority"`
	RetryCount  int         `json:"retry_count"`
	NextRetryAt *time.Time  `json:"next_retry_at,omitempty"`
	DeadLetter  bool        `json:"dead_letter"`
	Status      QueueStatus `json:"status"`
	AttemptKey  string      `json:"attempt_key"`
	DeviceID    string      `json:"device_id"`
	Timestamp   time.Time   `json:"timestamp"`
}
