package stats

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/pdfbot/core/logger"
)

// Repository loads and saves the whole record through a Backend.
//
// Load and Save do not lock. Every read-modify-write must go through Update,
// which holds a process-wide mutex for the entire cycle so that two writers
// never start from the same snapshot.
type Repository struct {
	backend Backend
	mu      sync.Mutex
}

// NewRepository builds a repository on top of backend.
func NewRepository(backend Backend) *Repository {
	return &Repository{backend: backend}
}

// Backend returns the underlying backend.
func (r *Repository) Backend() Backend { return r.backend }

// Load reads the canonical record. When only a legacy record exists it is
// copied to the canonical location in canonical shape and then deleted.
// With no record at all an empty store is returned.
func (r *Repository) Load(ctx context.Context) (*Store, error) {
	data, found, err := r.backend.Read(ctx, LocationCanonical)
	if err != nil {
		return nil, &StorageError{Op: opRead, Location: LocationCanonical, Err: err}
	}
	if found {
		s, _, err := Decode(data)
		if err != nil {
			return nil, &StorageError{Op: opDecode, Location: LocationCanonical, Err: err}
		}
		return s, nil
	}

	data, found, err = r.backend.Read(ctx, LocationLegacy)
	if err != nil {
		return nil, &StorageError{Op: opRead, Location: LocationLegacy, Err: err}
	}
	if !found {
		return NewStore(), nil
	}
	return r.migrate(ctx, data)
}

func (r *Repository) migrate(ctx context.Context, data []byte) (*Store, error) {
	start := time.Now()
	s, legacyShape, err := Decode(data)
	if err != nil {
		return nil, &StorageError{Op: opDecode, Location: LocationLegacy, Err: err}
	}
	if err := r.Save(ctx, s); err != nil {
		return nil, err
	}
	if err := r.backend.Delete(ctx, LocationLegacy); err != nil {
		return nil, &StorageError{Op: opDelete, Location: LocationLegacy, Err: err}
	}
	logger.Info(ctx, "stats", "stats.migrate",
		slog.String("status", "ok"),
		slog.String("backend", r.backend.Name()),
		slog.Bool("migrated", legacyShape),
		slog.Int("count", s.UserCount()),
		slog.Duration("duration", logger.Took(start)),
	)
	return s, nil
}

// Save replaces the canonical record with s.
func (r *Repository) Save(ctx context.Context, s *Store) error {
	data, err := Encode(s)
	if err != nil {
		return &StorageError{Op: opEncode, Location: LocationCanonical, Err: err}
	}
	if err := r.backend.Write(ctx, LocationCanonical, data); err != nil {
		return &StorageError{Op: opWrite, Location: LocationCanonical, Err: err}
	}
	return nil
}

// Update runs fn against a freshly loaded store and saves the result, all
// inside the repository lock. Nothing is saved when fn fails.
func (r *Repository) Update(ctx context.Context, fn func(*Store) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.Load(ctx)
	if err != nil {
		return err
	}
	if err := fn(s); err != nil {
		return fmt.Errorf("stats update: %w", err)
	}
	return r.Save(ctx, s)
}

// Snapshot loads the record under the repository lock for read-only use.
func (r *Repository) Snapshot(ctx context.Context) (*Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Load(ctx)
}
