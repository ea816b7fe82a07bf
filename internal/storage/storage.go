// Package storage persists parsed places so history and exports outlive the
// in-memory task registry.
package storage

import (
	"context"

	"github.com/IshaanNene/MapGoat/internal/types"
)

// Store is the interface for all result backends.
type Store interface {
	// Save persists one place under the given task.
	Save(ctx context.Context, taskID string, place *types.Place) error

	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]types.Record, error)

	// ByTask returns the records of one task in insertion order.
	ByTask(ctx context.Context, taskID string) ([]types.Record, error)

	// Name returns the backend identifier.
	Name() string

	// Close releases the backend's resources.
	Close() error
}
