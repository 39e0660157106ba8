package repository

import (
	"context"

	"Conflux/internal/domain/models"
)

// StateStore backs the frequency governor. Update must be atomic per key:
// fn receives the current state (nil when the key is absent) and returns
// the state to persist, or nil to leave the key untouched. Concurrent
// Update calls for the same key must not interleave their read-modify-write.
type StateStore interface {
	// Get returns the state for key, or nil when absent.
	Get(ctx context.Context, key string) (*models.FrequencyState, error)

	// Update runs fn under the key's lock and persists a non-nil result.
	Update(ctx context.Context, key string, fn func(prev *models.FrequencyState) (*models.FrequencyState, error)) error

	// Keys lists known state keys for a symbol (inspection only).
	Keys(ctx context.Context, symbol string) ([]string, error)

	Close() error
}
