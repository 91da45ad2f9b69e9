package bolt

import (
	"context"
	"errors"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/UltraSive/payload-store/internal/datastore"
)

const defaultBucket = "payloads"

var errNoBucket = errors.New("bolt: bucket missing, Init not called")

// Store keeps entries in a single bbolt bucket keyed by id.
// bbolt serialises writers itself and lets readers run concurrently.
type Store struct {
	db     *bolt.DB
	bucket []byte
}

// Open opens (creating if needed) the database file at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	return &Store{db: db, bucket: []byte(defaultBucket)}, nil
}

func (s *Store) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(s.bucket)
		return err
	})
}

func (s *Store) Insert(ctx context.Context, e datastore.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return errNoBucket
		}
		if b.Get([]byte(e.ID)) != nil {
			return datastore.ErrDuplicateID
		}
		return b.Put([]byte(e.ID), datastore.EncodeValue(e))
	})
}

func (s *Store) Lookup(ctx context.Context, id string) (datastore.Entry, error) {
	if err := ctx.Err(); err != nil {
		return datastore.Entry{}, err
	}
	var (
		out datastore.Entry
		err error
	)
	if vErr := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			err = datastore.ErrNotFound
			return nil
		}
		v := b.Get([]byte(id))
		if v == nil {
			err = datastore.ErrNotFound
			return nil
		}
		// v is only valid inside the transaction; DecodeValue copies the payload.
		out, err = datastore.DecodeValue(id, v)
		return nil
	}); vErr != nil {
		return datastore.Entry{}, vErr
	}
	return out, err
}

func (s *Store) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return nil
		}

		var stale [][]byte
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if len(v) >= 8 && !datastore.DecodeCreatedAt(v).After(cutoff) {
				stale = append(stale, append([]byte(nil), k...))
			}
		}

		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
