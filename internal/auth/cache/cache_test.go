package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/AndriiLiubov/homework-web-14/internal/auth/domain"
)

// fakeClient is an in-memory stand-in for *redis.Client.
type fakeClient struct {
	entries map[string]string
	ttls    map[string]time.Duration
	err     error // when set, every call fails with it
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		entries: make(map[string]string),
		ttls:    make(map[string]time.Duration),
	}
}

func (f *fakeClient) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	val, ok := f.entries[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(val, nil)
}

func (f *fakeClient) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.entries[key] = string(value.([]byte))
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func TestPrincipalCache_PutGet(t *testing.T) {
	client := newFakeClient()
	c := New(client, DefaultTTL)
	ctx := context.Background()

	u := domain.User{
		ID:        "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		Username:  "alice",
		Email:     "alice@example.com",
		Avatar:    "https://www.gravatar.com/avatar/abc",
		Confirmed: true,
	}

	require.NoError(t, c.Put(ctx, u))
	require.Equal(t, DefaultTTL, client.ttls["user:alice@example.com"])

	got, err := c.Get(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, u.Username, got.Username)
	require.Equal(t, u.Email, got.Email)
	require.True(t, got.Confirmed)
}

func TestPrincipalCache_SnapshotOmitsSecrets(t *testing.T) {
	client := newFakeClient()
	c := New(client, DefaultTTL)
	ctx := context.Background()

	binding := "refresh-token"
	u := domain.User{
		Email:        "alice@example.com",
		PasswordHash: "$argon2id$...",
		RefreshToken: &binding,
	}
	require.NoError(t, c.Put(ctx, u))

	// Password hash and refresh binding never reach Redis.
	raw := client.entries["user:alice@example.com"]
	require.NotContains(t, raw, "argon2id")
	require.NotContains(t, raw, "refresh-token")

	got, err := c.Get(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Empty(t, got.PasswordHash)
	require.Nil(t, got.RefreshToken)
}

func TestPrincipalCache_Miss(t *testing.T) {
	c := New(newFakeClient(), DefaultTTL)

	_, err := c.Get(context.Background(), "nobody@example.com")
	require.ErrorIs(t, err, ErrMiss)
}

func TestPrincipalCache_CorruptEntryIsMiss(t *testing.T) {
	client := newFakeClient()
	client.entries["user:alice@example.com"] = "{not json"

	c := New(client, DefaultTTL)
	_, err := c.Get(context.Background(), "alice@example.com")
	require.ErrorIs(t, err, ErrMiss)
}

func TestPrincipalCache_BackendDown(t *testing.T) {
	client := newFakeClient()
	client.err = errors.New("connection refused")
	c := New(client, DefaultTTL)
	ctx := context.Background()

	_, err := c.Get(ctx, "alice@example.com")
	require.ErrorIs(t, err, ErrUnavailable)
	require.NotErrorIs(t, err, ErrMiss)

	err = c.Put(ctx, domain.User{Email: "alice@example.com"})
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestNew_DefaultTTL(t *testing.T) {
	client := newFakeClient()
	c := New(client, 0)
	require.NoError(t, c.Put(context.Background(), domain.User{Email: "a@b.c"}))
	require.Equal(t, DefaultTTL, client.ttls["user:a@b.c"])
}
