package rocksdb

import (
	"context"
	"time"

	"github.com/linxGnu/grocksdb"

	"github.com/UltraSive/payload-store/internal/datastore"
)

type RocksDB struct {
	db        *grocksdb.DB
	opts      *grocksdb.Options
	readOpts  *grocksdb.ReadOptions
	writeOpts *grocksdb.WriteOptions

	// RocksDB has no conditional put. Inserts lock the stripe owning their
	// key around the get-then-put pair; reads never lock.
	locks datastore.KeyLocks
}

func NewRocksDB(path string) (*RocksDB, error) {
	opts := grocksdb.NewDefaultOptions()
	opts.SetCreateIfMissing(true)
	db, err := grocksdb.OpenDb(opts, path)
	if err != nil {
		opts.Destroy()
		return nil, err
	}
	return &RocksDB{
		db:        db,
		opts:      opts,
		readOpts:  grocksdb.NewDefaultReadOptions(),
		writeOpts: grocksdb.NewDefaultWriteOptions(),
	}, nil
}

// Init is a no-op: the keyspace exists as soon as the database is open.
func (r *RocksDB) Init(ctx context.Context) error {
	return ctx.Err()
}

func (r *RocksDB) Insert(ctx context.Context, e datastore.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := []byte(e.ID)

	mu := r.locks.For(e.ID)
	mu.Lock()
	defer mu.Unlock()

	v, err := r.db.Get(r.readOpts, key)
	if err != nil {
		return err
	}
	exists := v.Exists()
	v.Free()
	if exists {
		return datastore.ErrDuplicateID
	}
	return r.db.Put(r.writeOpts, key, datastore.EncodeValue(e))
}

func (r *RocksDB) Lookup(ctx context.Context, id string) (datastore.Entry, error) {
	if err := ctx.Err(); err != nil {
		return datastore.Entry{}, err
	}
	v, err := r.db.Get(r.readOpts, []byte(id))
	if err != nil {
		return datastore.Entry{}, err
	}
	defer v.Free()
	if !v.Exists() {
		return datastore.Entry{}, datastore.ErrNotFound
	}
	// v.Data() points into C memory released by Free; DecodeValue copies it.
	return datastore.DecodeValue(id, v.Data())
}

// DeleteCreatedBefore scans the whole keyspace once and removes stale keys in
// a single write batch.
func (r *RocksDB) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	batch := grocksdb.NewWriteBatch()
	defer batch.Destroy()

	removed := 0
	it := r.db.NewIterator(r.readOpts)
	for it.SeekToFirst(); it.Valid(); it.Next() {
		if err := ctx.Err(); err != nil {
			it.Close()
			return 0, err
		}
		k, v := it.Key(), it.Value()
		data := v.Data()
		if len(data) >= 8 && !datastore.DecodeCreatedAt(data).After(cutoff) {
			batch.Delete(k.Data())
			removed++
		}
		k.Free()
		v.Free()
	}
	err := it.Err()
	it.Close()
	if err != nil {
		return 0, err
	}

	if removed == 0 {
		return 0, nil
	}
	if err := r.db.Write(r.writeOpts, batch); err != nil {
		return 0, err
	}
	return removed, nil
}

func (r *RocksDB) Close() error {
	r.readOpts.Destroy()
	r.writeOpts.Destroy()
	r.db.Close()
	r.opts.Destroy()
	return nil
}
