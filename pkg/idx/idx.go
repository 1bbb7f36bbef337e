// Package idx generates ULIDs for user records and request IDs.
package idx

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// New returns a fresh ULID. Safe for concurrent use; IDs generated within the
// same millisecond remain strictly increasing thanks to the monotonic source.
func New() ulid.ULID {
	mu.Lock()
	defer mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), entropy)
}

// NewString is a convenience wrapper returning the canonical string form.
func NewString() string {
	return New().String()
}
