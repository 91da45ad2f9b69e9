package bolt

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UltraSive/payload-store/internal/datastore"
	"github.com/UltraSive/payload-store/internal/datastore/datastoretest"
)

func TestStore_Contract(t *testing.T) {
	datastoretest.Run(t, func(t *testing.T) datastore.Datastore {
		s, err := Open(filepath.Join(t.TempDir(), "payloads.db"))
		require.NoError(t, err)
		return s
	})
}

func TestStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payloads.db")
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Init(ctx))
	require.NoError(t, s.Insert(ctx, datastore.Entry{ID: "persist", Payload: "still here", CreatedAt: created}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Init(ctx))

	got, err := s.Lookup(ctx, "persist")
	require.NoError(t, err)
	assert.Equal(t, "still here", got.Payload)
}

func TestStore_CancelledContext(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "payloads.db"))
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Init(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = s.Insert(ctx, datastore.Entry{ID: "never", Payload: "x", CreatedAt: time.Now()})
	require.ErrorIs(t, err, context.Canceled)

	_, err = s.Lookup(context.Background(), "never")
	assert.ErrorIs(t, err, datastore.ErrNotFound, "a cancelled insert must leave nothing behind")
}
