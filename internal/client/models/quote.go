// Package models defines the client-side records persisted by the quoting
// engine: quotes with their jobs and financial breakdowns, immutable version
// snapshots, the outbound sync queue and the field-level change log.
package models

import (
	"encoding/json"
	"time"
)

// SyncStatus reflects where a locally stored record stands relative to the
// server's authoritative copy.
type SyncStatus string

const (
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusError   SyncStatus = "error"
)

// QuoteStatus is the business lifecycle state of a quote.
type QuoteStatus string

const (
	QuoteStatusDraft    QuoteStatus = "draft"
	QuoteStatusSent     QuoteStatus = "sent"
	QuoteStatusAccepted QuoteStatus = "accepted"
	QuoteStatusDeclined QuoteStatus = "declined"
)

// Quote is the root aggregate. The id is generated on the client so quotes
// can be created offline; QuoteNumber stays empty until the server assigns
// one on the first successful sync.
//
// Version is the optimistic-concurrency token: it advances by exactly 1 on
// every accepted mutation, whether the change originated on this device or
// on the server.
type Quote struct {
	ID              string      `json:"id"`
	QuoteNumber     string      `json:"quote_number,omitempty"`
	Version         int64       `json:"version"`
	Status          QuoteStatus `json:"status"`
	CustomerName    string      `json:"customer_name"`
	CustomerEmail   string      `json:"customer_email"`
	CustomerPhone   string      `json:"customer_phone"`
	CustomerAddress string      `json:"customer_address"`
	Notes           string      `json:"notes"`
	DeviceID        string      `json:"device_id"`
	SyncStatus      SyncStatus  `json:"sync_status"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// Fields returns the quote's conflict-relevant fields as a flat name→value
// map. The conflict detector diffs two of these maps to decide which fields
// a party touched; field names line up with the change-log's field_name
// column and with the server's JSON schema.
func (q *Quote) Fields() map[string]string {
	return map[string]string{
		"quote_number":     q.QuoteNumber,
		"status":           string(q.Status),
		"customer_name":    q.CustomerName,
		"customer_email":   q.CustomerEmail,
		"customer_phone":   q.CustomerPhone,
		"customer_address": q.CustomerAddress,
		"notes":            q.Notes,
	}
}

// ApplyField sets a single named field on the quote. It is the inverse of
// Fields and is what the conflict detector uses to replay server-side edits
// onto a local copy during an automatic merge.
func (q *Quote) ApplyField(name, value string) {
	switch name {
	case "quote_number":
		q.QuoteNumber = value
	case "status":
		q.Status = QuoteStatus(value)
	case "customer_name":
		q.CustomerName = value
	case "customer_email":
		q.CustomerEmail = value
	case "customer_phone":
		q.CustomerPhone = value
	case "customer_address":
		q.CustomerAddress = value
	case "notes":
		q.Notes = value
	}
}

// DiffFields reports the field names whose values differ between the two
// quotes, using the canonical Fields mapping.
func DiffFields(a, b *Quote) []string {
	fa, fb := a.Fields(), b.Fields()
	var changed []string
	for name, va := range fa {
		if vb, ok := fb[name]; ok && va != vb {
			changed = append(changed, name)
		}
	}
	return changed
}

// Snapshot serializes the quote for storage in a QuoteVersion row.
func (q *Quote) Snapshot() ([]byte, error) {
	return json.Marshal(q)
}

// QuoteFromSnapshot deserializes a QuoteVersion snapshot back into a Quote.
func QuoteFromSnapshot(data []byte) (*Quote, error) {
	var q Quote
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, err
	}
	return &q, nil
}
