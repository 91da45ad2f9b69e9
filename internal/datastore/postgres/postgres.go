package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/UltraSive/payload-store/internal/datastore"
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS payloads (
	id VARCHAR(36) PRIMARY KEY,
	payload TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS payloads_created_at_idx ON payloads (created_at);
`

// Store is backed by a pgx connection pool shared by all callers.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to the database named by connString (a postgres:// URL) and
// verifies the connection.
func Open(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Init(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

func (s *Store) Insert(ctx context.Context, e datastore.Entry) error {
	_, err := s.pool.Exec(ctx,
		"INSERT INTO payloads (id, payload, created_at) VALUES ($1, $2, $3)",
		e.ID, e.Payload, e.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return datastore.ErrDuplicateID
	}
	return err
}

func (s *Store) Lookup(ctx context.Context, id string) (datastore.Entry, error) {
	e := datastore.Entry{ID: id}
	err := s.pool.QueryRow(ctx,
		"SELECT payload, created_at FROM payloads WHERE id = $1", id,
	).Scan(&e.Payload, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return datastore.Entry{}, datastore.ErrNotFound
	}
	if err != nil {
		return datastore.Entry{}, err
	}
	e.CreatedAt = e.CreatedAt.UTC()
	return e, nil
}

func (s *Store) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM payloads WHERE created_at <= $1", cutoff)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
