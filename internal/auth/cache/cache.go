// Package cache holds the Redis-backed principal cache that fronts the user
// store. It is best-effort: callers treat ErrUnavailable as a miss and fall
// through to the durable store, so a Redis outage never breaks authentication.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AndriiLiubov/homework-web-14/internal/auth/domain"
)

// DefaultTTL bounds how stale a cached principal snapshot can get. Profile
// changes made elsewhere are not propagated here; they become visible once
// the entry expires.
const DefaultTTL = 900 * time.Second

var (
	// ErrMiss reports that no usable entry exists for the subject.
	ErrMiss = errors.New("cache: miss")

	// ErrUnavailable reports a cache backend failure. Never surfaced to end
	// callers; the service degrades to a directory lookup.
	ErrUnavailable = errors.New("cache: unavailable")
)

// Client is the subset of the go-redis API the principal cache needs.
// *redis.Client satisfies it; tests substitute a fake.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// PrincipalCache stores JSON snapshots of users keyed by subject email.
type PrincipalCache struct {
	client Client
	ttl    time.Duration
}

func New(client Client, ttl time.Duration) *PrincipalCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PrincipalCache{client: client, ttl: ttl}
}

// Get returns the cached principal for email. A missing key or a snapshot
// that no longer unmarshals is ErrMiss; backend failures are ErrUnavailable.
func (c *PrincipalCache) Get(ctx context.Context, email string) (domain.User, error) {
	payload, err := c.client.Get(ctx, key(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.User{}, ErrMiss
		}
		return domain.User{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var u domain.User
	if err := json.Unmarshal(payload, &u); err != nil {
		// Corrupt entry; let the caller repopulate from the store.
		return domain.User{}, ErrMiss
	}
	return u, nil
}

// Put stores a snapshot of u with the configured TTL.
func (c *PrincipalCache) Put(ctx context.Context, u domain.User) error {
	payload, err := json.Marshal(u)
	if err != nil {
		return err
	}

	if err := c.client.Set(ctx, key(u.Email), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func key(email string) string {
	return "user:" + email
}
