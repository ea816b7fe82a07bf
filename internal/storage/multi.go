package storage

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/IshaanNene/MapGoat/internal/types"
)

// --- Multi-Store Fan-Out ---

// MultiStore writes places to several backends and reads from the first.
type MultiStore struct {
	backends []Store
	logger   *slog.Logger
}

// NewMultiStore creates a store that fans out to multiple backends.
func NewMultiStore(backends []Store, logger *slog.Logger) *MultiStore {
	return &MultiStore{
		backends: backends,
		logger:   logger.With("component", "multi_storage"),
	}
}

// Name joins the backend names, primary first.
func (s *MultiStore) Name() string {
	names := make([]string, len(s.backends))
	for i, b := range s.backends {
		names[i] = b.Name()
	}
	return "multi(" + strings.Join(names, ",") + ")"
}

func (s *MultiStore) Save(ctx context.Context, taskID string, p *types.Place) error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Save(ctx, taskID, p); err != nil {
			s.logger.Error("backend save failed", "backend", backend.Name(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *MultiStore) Recent(ctx context.Context, limit int) ([]types.Record, error) {
	if len(s.backends) == 0 {
		return nil, types.ErrNoDatabase
	}
	return s.backends[0].Recent(ctx, limit)
}

func (s *MultiStore) ByTask(ctx context.Context, taskID string) ([]types.Record, error) {
	if len(s.backends) == 0 {
		return nil, types.ErrNoDatabase
	}
	return s.backends[0].ByTask(ctx, taskID)
}

func (s *MultiStore) Close() error {
	var errs []error
	for _, backend := range s.backends {
		if err := backend.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// --- Disabled storage ---

// NopStore drops every place. Queries report ErrNoDatabase.
type NopStore struct{}

func (NopStore) Name() string { return "none" }

func (NopStore) Save(context.Context, string, *types.Place) error { return nil }

func (NopStore) Recent(context.Context, int) ([]types.Record, error) {
	return nil, types.ErrNoDatabase
}

func (NopStore) ByTask(context.Context, string) ([]types.Record, error) {
	return nil, types.ErrNoDatabase
}

func (NopStore) Close() error { return nil }
