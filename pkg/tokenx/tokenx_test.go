package tokenx

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret-at-least-32-bytes-long")

func TestNew(t *testing.T) {
	t.Run("defaults to HS256", func(t *testing.T) {
		c, err := New(testSecret, "")
		require.NoError(t, err)
		require.Equal(t, jwt.SigningMethodHS256, c.method)
	})

	t.Run("accepts HS384 and HS512", func(t *testing.T) {
		for _, alg := range []string{"HS384", "HS512"} {
			_, err := New(testSecret, alg)
			require.NoError(t, err)
		}
	})

	t.Run("rejects non-HMAC algorithms", func(t *testing.T) {
		for _, alg := range []string{"RS256", "ES256", "none", "hs256"} {
			_, err := New(testSecret, alg)
			require.Error(t, err)
		}
	})

	t.Run("rejects empty secret", func(t *testing.T) {
		_, err := New(nil, "HS256")
		require.Error(t, err)
	})
}

func TestIssueDecode_RoundTrip(t *testing.T) {
	c, err := New(testSecret, "HS256")
	require.NoError(t, err)

	scopes := []Scope{ScopeAccess, ScopeRefresh, ScopeEmailVerification}
	for _, scope := range scopes {
		t.Run(string(scope), func(t *testing.T) {
			token, err := c.Issue("alice@example.com", scope, time.Hour)
			require.NoError(t, err)
			require.NotEmpty(t, token)

			subject, err := c.Decode(token, scope)
			require.NoError(t, err)
			require.Equal(t, "alice@example.com", subject)
		})
	}
}

func TestDecode_WrongScope(t *testing.T) {
	c, err := New(testSecret, "HS256")
	require.NoError(t, err)

	access, err := c.Issue("alice@example.com", ScopeAccess, time.Hour)
	require.NoError(t, err)

	// An access token must never pass as a refresh or verification token.
	_, err = c.Decode(access, ScopeRefresh)
	require.ErrorIs(t, err, ErrWrongScope)

	_, err = c.Decode(access, ScopeEmailVerification)
	require.ErrorIs(t, err, ErrWrongScope)

	refresh, err := c.Issue("alice@example.com", ScopeRefresh, time.Hour)
	require.NoError(t, err)

	_, err = c.Decode(refresh, ScopeAccess)
	require.ErrorIs(t, err, ErrWrongScope)
}

func TestDecode_Expired(t *testing.T) {
	now := time.Now()
	clock := now
	c, err := New(testSecret, "HS256", WithClock(func() time.Time { return clock }))
	require.NoError(t, err)

	token, err := c.Issue("alice@example.com", ScopeAccess, 15*time.Minute)
	require.NoError(t, err)

	// Still valid just before expiry.
	clock = now.Add(14 * time.Minute)
	_, err = c.Decode(token, ScopeAccess)
	require.NoError(t, err)

	// Expired once the clock passes exp.
	clock = now.Add(16 * time.Minute)
	_, err = c.Decode(token, ScopeAccess)
	require.ErrorIs(t, err, ErrExpired)
}

func TestDecode_Malformed(t *testing.T) {
	c, err := New(testSecret, "HS256")
	require.NoError(t, err)

	t.Run("garbage input", func(t *testing.T) {
		for _, in := range []string{"", "not-a-jwt", "a.b", "a.b.c.d"} {
			_, err := c.Decode(in, ScopeAccess)
			require.ErrorIs(t, err, ErrMalformed)
		}
	})

	t.Run("tampered payload", func(t *testing.T) {
		token, err := c.Issue("alice@example.com", ScopeAccess, time.Hour)
		require.NoError(t, err)

		parts := strings.Split(token, ".")
		require.Len(t, parts, 3)
		tampered := parts[0] + ".eyJzdWIiOiJtYWxsb3J5In0." + parts[2]

		_, err = c.Decode(tampered, ScopeAccess)
		require.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := New([]byte("a-different-secret-value-entirely"), "HS256")
		require.NoError(t, err)

		token, err := other.Issue("alice@example.com", ScopeAccess, time.Hour)
		require.NoError(t, err)

		_, err = c.Decode(token, ScopeAccess)
		require.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("missing subject", func(t *testing.T) {
		raw := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
			Scope: ScopeAccess,
		})
		signed, err := raw.SignedString(testSecret)
		require.NoError(t, err)

		_, err = c.Decode(signed, ScopeAccess)
		require.ErrorIs(t, err, ErrMalformed)
	})
}

func TestDecode_AlgorithmConfusion(t *testing.T) {
	// A token signed with HS512 must not validate on an HS256 codec even with
	// the same secret.
	c256, err := New(testSecret, "HS256")
	require.NoError(t, err)
	c512, err := New(testSecret, "HS512")
	require.NoError(t, err)

	token, err := c512.Issue("alice@example.com", ScopeAccess, time.Hour)
	require.NoError(t, err)

	_, err = c256.Decode(token, ScopeAccess)
	require.ErrorIs(t, err, ErrMalformed)
}
