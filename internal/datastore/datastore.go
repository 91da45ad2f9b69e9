package datastore

import (
	"context"
	"encoding/binary"
	"errors"
	"hash/fnv"
	"sync"
	"time"
)

var (
	ErrNotFound    = errors.New("datastore: not found")
	ErrDuplicateID = errors.New("datastore: duplicate id")
)

// Entry is one stored payload. CreatedAt is set by the caller of Insert
// (the expiring store), never by the client that submitted the payload.
type Entry struct {
	ID        string
	Payload   string
	CreatedAt time.Time
}

// Datastore defines the minimal operations the expiring store needs.
// Implementations must be safe for concurrent use.
type Datastore interface {
	// Init prepares the schema (table, bucket) if it does not exist yet.
	Init(ctx context.Context) error
	// Insert stores e, failing with ErrDuplicateID if e.ID is taken.
	Insert(ctx context.Context, e Entry) error
	// Lookup returns the entry stored under id or ErrNotFound.
	Lookup(ctx context.Context, id string) (Entry, error)
	// DeleteCreatedBefore removes every entry whose CreatedAt is not after cutoff.
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error)
	Close() error
}

// Embedded engines share one value layout:
// 8 bytes big-endian unix nanos of CreatedAt || raw payload.

func EncodeValue(e Entry) []byte {
	buf := make([]byte, 8+len(e.Payload))
	binary.BigEndian.PutUint64(buf[:8], uint64(e.CreatedAt.UnixNano()))
	copy(buf[8:], e.Payload)
	return buf
}

var ErrCorruptValue = errors.New("datastore: corrupt value")

func DecodeValue(id string, v []byte) (Entry, error) {
	if len(v) < 8 {
		return Entry{}, ErrCorruptValue
	}
	return Entry{
		ID:        id,
		Payload:   string(v[8:]),
		CreatedAt: DecodeCreatedAt(v),
	}, nil
}

// DecodeCreatedAt reads only the timestamp prefix; callers must check len(v) >= 8.
func DecodeCreatedAt(v []byte) time.Time {
	return time.Unix(0, int64(binary.BigEndian.Uint64(v[:8]))).UTC()
}

// KeyLocks stripes a fixed set of mutexes over ids, for engines without a
// conditional put. Inserts of different ids rarely contend.
type KeyLocks struct {
	stripes [64]sync.Mutex
}

func (l *KeyLocks) For(id string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return &l.stripes[h.Sum32()%uint32(len(l.stripes))]
}
