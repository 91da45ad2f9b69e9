package ident

import (
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUID_Generate(t *testing.T) {
	id := UUID{}.Generate()

	assert.Len(t, id, 36)
	canonical, ok := UUID{}.Canonical(id)
	assert.True(t, ok)
	assert.Equal(t, id, canonical)
	assert.Equal(t, id, url.PathEscape(id), "id must be usable as a path segment")
}

func TestUUID_Uniqueness(t *testing.T) {
	const n = 10000

	var mu sync.Mutex
	seen := make(map[string]struct{}, n)
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < n/8; j++ {
				id := UUID{}.Generate()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, n)
}

func TestUUID_Canonical(t *testing.T) {
	const want = "3f1b4a2e-9c7d-4e8f-a1b2-c3d4e5f60718"

	accepted := []string{
		want,
		"3F1B4A2E-9C7D-4E8F-A1B2-C3D4E5F60718",
		"3f1b4a2e9c7d4e8fa1b2c3d4e5f60718",
		"urn:uuid:3f1b4a2e-9c7d-4e8f-a1b2-c3d4e5f60718",
		"{3f1b4a2e-9c7d-4e8f-a1b2-c3d4e5f60718}",
	}
	for _, in := range accepted {
		got, ok := UUID{}.Canonical(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	rejected := []string{
		"nonexistent-id",
		"",
		"zzzzzzzz-9c7d-4e8f-a1b2-c3d4e5f60718",
		"3f1b4a2e-9c7d-4e8f-a1b2-c3d4e5f6071",
	}
	for _, in := range rejected {
		_, ok := UUID{}.Canonical(in)
		assert.False(t, ok, in)
	}
}
