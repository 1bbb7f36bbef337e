// Package tokenx issues and validates the signed, expiring tokens used by the
// authentication core. Tokens are HMAC-signed JWTs carrying a subject and a
// scope tag; the scope is an explicit claim so a refresh token can never be
// replayed as an access token even though both verify under the same secret.
package tokenx

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Scope tags the purpose a token was issued for. Decode rejects any token
// whose scope differs from the one the operation expects.
type Scope string

const (
	ScopeAccess            Scope = "access_token"
	ScopeRefresh           Scope = "refresh_token"
	ScopeEmailVerification Scope = "email_verification"
)

// Default token TTLs. These can be overridden per Issue call.
const (
	DefaultAccessTTL            = 15 * time.Minute
	DefaultRefreshTTL           = 7 * 24 * time.Hour
	DefaultEmailVerificationTTL = 7 * 24 * time.Hour
)

var (
	// ErrMalformed covers signature failures and structural problems. Callers
	// that don't need finer granularity can match ErrInvalid variants on the
	// service layer instead.
	ErrMalformed  = errors.New("tokenx: malformed token")
	ErrExpired    = errors.New("tokenx: token expired")
	ErrWrongScope = errors.New("tokenx: wrong scope for token")
)

// Claims are the JWT claims we embed: sub, iat, exp plus the scope tag.
type Claims struct {
	jwt.RegisteredClaims

	Scope Scope `json:"scope"`
}

// Codec signs and verifies tokens with a single process-wide secret and
// algorithm, both fixed at construction. Safe for concurrent use.
type Codec struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	now    func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock overrides the wall-clock source. Used by tests to control expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// New builds a Codec from the shared secret and an HMAC algorithm name
// (HS256, HS384 or HS512). An empty algorithm defaults to HS256.
func New(secret []byte, alg string, opts ...Option) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("tokenx: empty signing secret")
	}

	var method *jwt.SigningMethodHMAC
	switch alg {
	case "", "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("tokenx: unsupported algorithm %q", alg)
	}

	c := &Codec{
		secret: secret,
		method: method,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue signs a token for subject with the given scope, valid for ttl from now.
func (c *Codec) Issue(subject string, scope Scope, ttl time.Duration) (string, error) {
	now := c.now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        newJTI(),
		},
		Scope: scope,
	}

	token := jwt.NewWithClaims(c.method, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("tokenx: sign: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and expiry, checks the scope claim against
// want, and returns the subject. The scope check runs on every decode; a
// cryptographically valid token with the wrong scope is rejected.
func (c *Codec) Decode(tokenStr string, want Scope) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpired
		}
		return "", ErrMalformed
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", ErrMalformed
	}
	if claims.Scope != want {
		return "", ErrWrongScope
	}
	if claims.Subject == "" {
		return "", ErrMalformed
	}

	return claims.Subject, nil
}

// newJTI returns a URL-safe random identifier for the "jti" claim. It keeps
// tokens issued within the same second from colliding byte-for-byte.
func newJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
