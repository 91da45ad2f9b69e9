// Package datastoretest holds behaviour checks every datastore backend must pass.
package datastoretest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UltraSive/payload-store/internal/datastore"
)

var base = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

// Run exercises open against the datastore contract. open must return a fresh,
// empty datastore each time it is called.
func Run(t *testing.T, open func(t *testing.T) datastore.Datastore) {
	t.Helper()

	fresh := func(t *testing.T) datastore.Datastore {
		ds := open(t)
		t.Cleanup(func() { _ = ds.Close() })
		require.NoError(t, ds.Init(context.Background()))
		return ds
	}

	t.Run("InsertLookup", func(t *testing.T) {
		ds := fresh(t)
		ctx := context.Background()
		e := datastore.Entry{ID: "id-1", Payload: "hello\nwörld", CreatedAt: base}

		require.NoError(t, ds.Insert(ctx, e))

		got, err := ds.Lookup(ctx, "id-1")
		require.NoError(t, err)
		assert.Equal(t, e.ID, got.ID)
		assert.Equal(t, e.Payload, got.Payload)
		assert.True(t, base.Equal(got.CreatedAt), "created_at %v != %v", got.CreatedAt, base)
	})

	t.Run("EmptyPayload", func(t *testing.T) {
		ds := fresh(t)
		ctx := context.Background()

		require.NoError(t, ds.Insert(ctx, datastore.Entry{ID: "empty", CreatedAt: base}))

		got, err := ds.Lookup(ctx, "empty")
		require.NoError(t, err)
		assert.Equal(t, "", got.Payload)
	})

	t.Run("LookupMissing", func(t *testing.T) {
		ds := fresh(t)

		_, err := ds.Lookup(context.Background(), "missing")
		assert.ErrorIs(t, err, datastore.ErrNotFound)
	})

	t.Run("DuplicateID", func(t *testing.T) {
		ds := fresh(t)
		ctx := context.Background()

		require.NoError(t, ds.Insert(ctx, datastore.Entry{ID: "dup", Payload: "first", CreatedAt: base}))
		err := ds.Insert(ctx, datastore.Entry{ID: "dup", Payload: "second", CreatedAt: base})
		assert.ErrorIs(t, err, datastore.ErrDuplicateID)

		got, err := ds.Lookup(ctx, "dup")
		require.NoError(t, err)
		assert.Equal(t, "first", got.Payload, "a rejected insert must not overwrite")
	})

	t.Run("InitIsIdempotent", func(t *testing.T) {
		ds := fresh(t)
		ctx := context.Background()

		require.NoError(t, ds.Insert(ctx, datastore.Entry{ID: "keep", Payload: "v", CreatedAt: base}))
		require.NoError(t, ds.Init(ctx))

		_, err := ds.Lookup(ctx, "keep")
		assert.NoError(t, err)
	})

	t.Run("DeleteCreatedBefore", func(t *testing.T) {
		ds := fresh(t)
		ctx := context.Background()

		cutoff := base.Add(time.Hour)
		require.NoError(t, ds.Insert(ctx, datastore.Entry{ID: "old", Payload: "o", CreatedAt: base}))
		require.NoError(t, ds.Insert(ctx, datastore.Entry{ID: "edge", Payload: "e", CreatedAt: cutoff}))
		require.NoError(t, ds.Insert(ctx, datastore.Entry{ID: "new", Payload: "n", CreatedAt: cutoff.Add(time.Microsecond)}))

		removed, err := ds.DeleteCreatedBefore(ctx, cutoff)
		require.NoError(t, err)
		assert.Equal(t, 2, removed)

		_, err = ds.Lookup(ctx, "old")
		assert.ErrorIs(t, err, datastore.ErrNotFound)
		_, err = ds.Lookup(ctx, "edge")
		assert.ErrorIs(t, err, datastore.ErrNotFound)
		_, err = ds.Lookup(ctx, "new")
		assert.NoError(t, err)

		removed, err = ds.DeleteCreatedBefore(ctx, cutoff)
		require.NoError(t, err)
		assert.Equal(t, 0, removed)
	})

	t.Run("ConcurrentInserts", func(t *testing.T) {
		ds := fresh(t)
		ctx := context.Background()

		var wg sync.WaitGroup
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id := fmt.Sprintf("c-%d", i)
				assert.NoError(t, ds.Insert(ctx, datastore.Entry{ID: id, Payload: id, CreatedAt: base}))
			}(i)
		}
		wg.Wait()

		for i := 0; i < 32; i++ {
			id := fmt.Sprintf("c-%d", i)
			got, err := ds.Lookup(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, id, got.Payload)
		}
	})
}
