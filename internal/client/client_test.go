package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UltraSive/payload-store/internal/datastore/memory"
	"github.com/UltraSive/payload-store/internal/handler"
	"github.com/UltraSive/payload-store/internal/store"
	"github.com/UltraSive/payload-store/internal/transport"
	"github.com/UltraSive/payload-store/pkg/logger"
)

func newHandler(t *testing.T) *handler.Handler {
	t.Helper()
	st := store.New(memory.New())
	require.NoError(t, st.Prepare(context.Background()))
	return handler.New(st, logger.Nop())
}

func TestClient_StoreFetch(t *testing.T) {
	srv := httptest.NewServer(transport.NewHTTPRouter(newHandler(t), transport.HTTPOptions{}))
	defer srv.Close()

	c := New(srv.URL+"/", 2*time.Second)
	ctx := context.Background()

	id, err := c.Store(ctx, "line one\nline two")
	require.NoError(t, err)
	assert.Len(t, id, 36)

	got, err := c.Fetch(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", got)

	empty, err := c.Store(ctx, "")
	require.NoError(t, err)
	got, err = c.Fetch(ctx, empty)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestClient_FetchMissing(t *testing.T) {
	srv := httptest.NewServer(transport.NewHTTPRouter(newHandler(t), transport.HTTPOptions{}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	for _, id := range []string{"nonexistent-id", "3f2b8c1e-9a4d-4c6b-8e2f-7a1d5c9b0e34"} {
		_, err := c.Fetch(context.Background(), id)
		assert.ErrorIs(t, err, ErrNotFound, id)
	}
}

func TestClient_ServerFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).Store(context.Background(), "x")
	assert.ErrorIs(t, err, ErrServer)
}

func TestClient_BadRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).Store(context.Background(), "x")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrServer))
	assert.Contains(t, err.Error(), "Bad request")
}

func TestSocketClient(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ps.sock")
	l, err := net.Listen("unix", path)
	require.NoError(t, err)

	srv := transport.NewSocketServer(newHandler(t), logger.Nop())
	go func() { _ = srv.Serve(l) }()
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := DialSocket(ctx, path)
	require.NoError(t, err)
	defer c.Close()

	for i := 0; i < 3; i++ {
		payload := fmt.Sprintf("frame %d", i)
		id, err := c.Store(ctx, payload)
		require.NoError(t, err)

		got, err := c.Fetch(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	}

	_, err = c.Fetch(ctx, "nonexistent-id")
	assert.ErrorIs(t, err, ErrNotFound)
}
