package idx

import (
	"sync"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"
)

func TestNewString(t *testing.T) {
	id := NewString()
	require.Len(t, id, 26)

	parsed, err := ulid.ParseStrict(id)
	require.NoError(t, err)
	require.Equal(t, id, parsed.String())
}

func TestNew_Monotonic(t *testing.T) {
	prev := New()
	for range 1000 {
		next := New()
		require.Equal(t, -1, prev.Compare(next), "ids must be strictly increasing")
		prev = next
	}
}

func TestNew_ConcurrentUnique(t *testing.T) {
	const goroutines = 8
	const perGoroutine = 500

	var wg sync.WaitGroup
	results := make(chan string, goroutines*perGoroutine)

	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perGoroutine {
				results <- NewString()
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool, goroutines*perGoroutine)
	for id := range results {
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
