package metadata

import (
	"context"
)

// Repository is a small key-value store for engine bookkeeping that lives
// next to the domain tables: last successful drain time and similar values
// that must survive restarts but do not deserve their own table.
type Repository interface {
	// Get returns the value for key, or nil when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
}

// Well-known metadata keys.
const (
	KeyLastDrainAt = "last_drain_at"
	KeyUserID      = "user_id"
)
