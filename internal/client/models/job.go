package models

import (
	"encoding/json"
	"time"
)

// JobType classifies a job line on a quote.
type JobType string

const (
	JobTypeRetainingWall JobType = "retaining_wall"
	JobTypeDriveway      JobType = "driveway"
	JobTypeFencing       JobType = "fencing"
)

// Job is a single line of work on a quote, owned by exactly one quote and
// ordered by OrderIndex. Jobs carry their own sync status and device id
// because a job can be added offline independently of quote-level edits.
type Job struct {
	ID          string      `json:"id"`
	QuoteID     string      `json:"quote_id"`
	OrderIndex  int         `json:"order_index"`
	Description string      `json:"description"`
	Params      JobParams   `json:"params"`
	DeviceID    string      `json:"device_id"`
	SyncStatus  SyncStatus  `json:"sync_status"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// JobParams is a tagged union over the per-type parameter structs. Keeping
// the type tag next to the raw payload lets the store persist one column
// while the rest of the engine works with concrete types.
type JobParams struct {
	Type   JobType         `json:"type"`
	Params json.RawMessage `json:"params"`
}

// WrapParams builds a JobParams envelope from a concrete parameter struct.
func WrapParams[T TypedParams](v T) (JobParams, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return JobParams{}, err
	}
	return JobParams{Type: v.GetType(), Params: b}, nil
}

// Unwrap decodes the envelope back into its concrete parameter struct.
// Unknown types decode into a generic map so older clients can still round-
// trip params written by newer schema versions.
func (p JobParams) Unwrap() (any, error) {
	switch p.Type {
	case JobTypeRetainingWall:
		var v RetainingWallParams
		return v, json.Unmarshal(p.Params, &v)
	case JobTypeDriveway:
		var v DrivewayParams
		return v, json.Unmarshal(p.Params, &v)
	case JobTypeFencing:
		var v FencingParams
		return v, json.Unmarshal(p.Params, &v)
	default:
		var m map[string]any
		if err := json.Unmarshal(p.Params, &m); err != nil {
			return nil, err
		}
		return m, nil
	}
}

// TypedParams is implemented by every concrete job parameter struct.
type TypedParams interface {
	GetType() JobType
}

// RetainingWallParams sizes a retaining wall job.
type RetainingWallParams struct {
	LengthM   float64 `json:"length_m"`
	HeightM   float64 `json:"height_m"`
	Material  string  `json:"material"`
	Drainage  bool    `json:"drainage"`
}

func (p RetainingWallParams) GetType() JobType { return JobTypeRetainingWall }

// DrivewayParams sizes a driveway job.
type DrivewayParams struct {
	AreaM2  float64 `json:"area_m2"`
	Surface string  `json:"surface"`
	Sealed  bool    `json:"sealed"`
}

func (p DrivewayParams) GetType() JobType { return JobTypeDriveway }

// FencingParams sizes a fencing job.
type FencingParams struct {
	LengthM float64 `json:"length_m"`
	HeightM float64 `json:"height_m"`
	Style   string  `json:"style"`
	Gates   int     `json:"gates"`
}

func (p FencingParams) GetType() JobType { return JobTypeFencing }
