package models

import "time"

// Financial holds the computed monetary breakdown for a quote, one row per
// quote. Monetary values are integer cents. The pricing engine that fills
// these numbers in lives outside the sync engine; for conflict purposes the
// record is treated as a leaf mutation target of its quote.
type Financial struct {
	QuoteID       string    `json:"quote_id"`
	Subtotal      int64     `json:"subtotal"`
	TaxAmount     int64     `json:"tax_amount"`
	Total         int64     `json:"total"`
	MarginPercent float64   `json:"margin_percent"`
	Currency      string    `json:"currency"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
