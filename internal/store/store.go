// Package store implements the expiring payload store: put with a generated
// id, get with a liveness check, and batch reclamation of expired entries.
//
// Liveness is never stored. An entry is live while now - CreatedAt < TTL,
// recomputed on every Get and on every sweep from the same clock, so a row
// that has outlived its TTL but not yet been swept is as absent as one that
// never existed.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/UltraSive/payload-store/internal/datastore"
	"github.com/UltraSive/payload-store/internal/ident"
	"github.com/UltraSive/payload-store/internal/metrics"
	"github.com/UltraSive/payload-store/pkg/logger"
)

// TTL is how long an entry stays retrievable after it was stored.
const TTL = 4 * time.Hour

var (
	ErrNotFound = errors.New("store: not found")
	ErrStorage  = errors.New("store: storage failure")
)

type Store struct {
	ds  datastore.Datastore
	gen ident.Generator
	now func() time.Time
	log logger.Logger
}

type Option func(*Store)

// WithClock replaces time.Now. Tests use it to move past the TTL.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithGenerator replaces the UUID generator. g also decides which ids Get
// accepts, so whatever it generates stays retrievable.
func WithGenerator(g ident.Generator) Option {
	return func(s *Store) { s.gen = g }
}

func WithLogger(l logger.Logger) Option {
	return func(s *Store) { s.log = l }
}

func New(ds datastore.Datastore, opts ...Option) *Store {
	s := &Store{
		ds:  ds,
		gen: ident.UUID{},
		now: time.Now,
		log: logger.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Prepare creates the schema if needed and runs one reclamation sweep.
// It is meant to be called once at startup, before serving requests.
func (s *Store) Prepare(ctx context.Context) error {
	if err := s.ds.Init(ctx); err != nil {
		return fmt.Errorf("%w: init schema: %w", ErrStorage, err)
	}
	removed, err := s.Reclaim(ctx)
	if err != nil {
		return err
	}
	s.log.Info("startup sweep finished", "removed", removed)
	return nil
}

// Put stores payload under a freshly generated id and returns the id.
// On error no id is returned and nothing usable was stored.
func (s *Store) Put(ctx context.Context, payload string) (string, error) {
	e := datastore.Entry{
		ID:        s.gen.Generate(),
		Payload:   payload,
		CreatedAt: s.clock(),
	}
	if err := s.ds.Insert(ctx, e); err != nil {
		metrics.Puts.WithLabelValues(metrics.ResultError).Inc()
		return "", fmt.Errorf("%w: insert: %w", ErrStorage, err)
	}
	metrics.Puts.WithLabelValues(metrics.ResultOK).Inc()
	return e.ID, nil
}

// Get returns the payload stored under id if the entry is still live.
// Any spelling the generator recognises resolves to the same entry.
// Malformed, unknown and expired ids all yield ErrNotFound.
func (s *Store) Get(ctx context.Context, raw string) (string, error) {
	id, ok := s.gen.Canonical(raw)
	if !ok {
		metrics.Gets.WithLabelValues(metrics.ResultMiss).Inc()
		return "", ErrNotFound
	}

	e, err := s.ds.Lookup(ctx, id)
	switch {
	case errors.Is(err, datastore.ErrNotFound):
		metrics.Gets.WithLabelValues(metrics.ResultMiss).Inc()
		return "", ErrNotFound
	case err != nil:
		metrics.Gets.WithLabelValues(metrics.ResultError).Inc()
		return "", fmt.Errorf("%w: lookup: %w", ErrStorage, err)
	}

	if !live(e, s.clock()) {
		metrics.Gets.WithLabelValues(metrics.ResultMiss).Inc()
		return "", ErrNotFound
	}
	metrics.Gets.WithLabelValues(metrics.ResultHit).Inc()
	return e.Payload, nil
}

// Reclaim deletes every entry that is no longer live and reports how many
// were removed.
func (s *Store) Reclaim(ctx context.Context) (int, error) {
	removed, err := s.ds.DeleteCreatedBefore(ctx, cutoff(s.clock()))
	if err != nil {
		metrics.Sweeps.WithLabelValues(metrics.ResultError).Inc()
		return 0, fmt.Errorf("%w: sweep: %w", ErrStorage, err)
	}
	metrics.Sweeps.WithLabelValues(metrics.ResultOK).Inc()
	metrics.Reclaimed.Add(float64(removed))
	return removed, nil
}

// clock truncates to microseconds so every backend round-trips CreatedAt exactly.
func (s *Store) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// live and cutoff are two views of the same predicate:
// live(e, now) == e.CreatedAt.After(cutoff(now)).
func live(e datastore.Entry, now time.Time) bool {
	return e.CreatedAt.After(cutoff(now))
}

func cutoff(now time.Time) time.Time {
	return now.Add(-TTL)
}
