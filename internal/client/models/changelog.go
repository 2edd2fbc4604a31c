package models

import "time"

// ChangeLogItem records a single field-level edit on a quote. The log is
// append-only and consulted only when a conflict is detected; entries are
// pruned once no pending queue item can still need them for a merge.
type ChangeLogItem struct {
	ID        int64     `json:"id"`
	QuoteID   string    `json:"quote_id"`
	FieldName string    `json:"field_name"`
	OldValue  string    `json:"old_value"`
	NewValue  string    `json:"new_value"`
	DeviceID  string    `json:"device_id"`
	Timestamp time.Time `json:"timestamp"`
}
