package models

import "time"

// QuoteVersion is an immutable snapshot of a quote at a given version,
// written in the same transaction as every version advance (local or
// server-originated). The history doubles as an audit trail and as the
// substrate for conflict merges: diffing two snapshots reveals what changed
// between versions.
type QuoteVersion struct {
	QuoteID   string    `json:"quote_id"`
	Version   int64     `json:"version"`
	Data      []byte    `json:"data"`
	UserID    string    `json:"user_id"`
	DeviceID  string    `json:"device_id"`
	CreatedAt time.Time `json:"created_at"`
}
