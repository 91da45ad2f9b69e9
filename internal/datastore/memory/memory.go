// Package memory is a non-durable datastore for development and tests.
package memory

import (
	"context"
	"time"

	"github.com/maypok86/otter/v2"

	"github.com/UltraSive/payload-store/internal/datastore"
)

// Store is unbounded: entries leave only through DeleteCreatedBefore.
type Store struct {
	entries *otter.Cache[string, datastore.Entry]
	locks   datastore.KeyLocks
}

func New() *Store {
	return &Store{
		entries: otter.Must(&otter.Options[string, datastore.Entry]{}),
	}
}

func (s *Store) Init(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Insert(ctx context.Context, e datastore.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	mu := s.locks.For(e.ID)
	mu.Lock()
	defer mu.Unlock()

	if _, ok := s.entries.GetIfPresent(e.ID); ok {
		return datastore.ErrDuplicateID
	}
	s.entries.Set(e.ID, e)
	return nil
}

func (s *Store) Lookup(ctx context.Context, id string) (datastore.Entry, error) {
	if err := ctx.Err(); err != nil {
		return datastore.Entry{}, err
	}
	e, ok := s.entries.GetIfPresent(id)
	if !ok {
		return datastore.Entry{}, datastore.ErrNotFound
	}
	return e, nil
}

func (s *Store) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	var stale []string
	for id, e := range s.entries.All() {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if !e.CreatedAt.After(cutoff) {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		s.entries.Invalidate(id)
	}
	return len(stale), nil
}

// Len reports the number of physically stored entries, expired or not.
func (s *Store) Len() int {
	return s.entries.EstimatedSize()
}

func (s *Store) Close() error {
	s.entries.InvalidateAll()
	return nil
}
