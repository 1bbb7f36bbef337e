package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/AndriiLiubov/homework-web-14/internal/auth/cache"
	"github.com/AndriiLiubov/homework-web-14/internal/auth/service"
	"github.com/AndriiLiubov/homework-web-14/internal/auth/store/drivers/sqlite"
	"github.com/AndriiLiubov/homework-web-14/pkg/cryptox"
	"github.com/AndriiLiubov/homework-web-14/pkg/slogx"
	"github.com/AndriiLiubov/homework-web-14/pkg/tokenx"
)

// fakeRedis backs the principal cache in handler tests.
type fakeRedis struct {
	entries map[string]string
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	val, ok := f.entries[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(val, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.entries[key] = string(value.([]byte))
	return redis.NewStatusResult("OK", nil)
}

// captureMailer records verification tokens instead of sending them.
type captureMailer struct {
	tokens map[string]string
}

func (m *captureMailer) SendVerification(ctx context.Context, to, username, token string) error {
	m.tokens[to] = token
	return nil
}

func newTestRouter(t *testing.T) (*Router, *captureMailer) {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	codec, err := tokenx.New([]byte("handler-test-secret-32-bytes-abc"), "HS256")
	require.NoError(t, err)

	authSvc := &service.AuthService{
		Store:  st,
		Cache:  cache.New(&fakeRedis{entries: make(map[string]string)}, cache.DefaultTTL),
		Codec:  codec,
		Hasher: cryptox.NewHasher(cryptox.Params{Memory: 8 * 1024, Iterations: 1, Parallelism: 1}),
	}

	mailer := &captureMailer{tokens: make(map[string]string)}

	r := NewRouter("test", st, nil, slogx.New(slogx.Config{Service: "auth-test"}))
	r.AuthService = authSvc
	r.UserService = &service.UserService{Store: st}
	r.Mailer = mailer
	r.ApplyRoutes()

	return r, mailer
}

func doJSON(t *testing.T, r *Router, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func doLogin(t *testing.T, r *Router, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{"username": {email}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

// signupAndConfirm walks the signup flow end to end through the HTTP surface
// and returns a valid token pair.
func signupAndConfirm(t *testing.T, r *Router, mailer *captureMailer, email string) TokenResponse {
	t.Helper()

	rec := doJSON(t, r, http.MethodPost, "/api/auth/signup",
		`{"username":"alice","email":"`+email+`","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	token, ok := mailer.tokens[email]
	require.True(t, ok, "signup must send a verification mail")

	rec = doJSON(t, r, http.MethodGet, "/api/auth/confirmed_email/"+token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doLogin(t, r, email, "secret1")
	require.Equal(t, http.StatusOK, rec.Code)

	var pair TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pair))
	return pair
}

func TestSignupFlow(t *testing.T) {
	r, mailer := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/auth/signup",
		`{"username":"alice","email":"alice@x.com","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp SignupResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "alice@x.com", resp.User.Email)
	require.False(t, resp.User.Confirmed)

	// Secrets never leak into the response body.
	require.NotContains(t, rec.Body.String(), "password_hash")

	require.Contains(t, mailer.tokens, "alice@x.com")

	t.Run("duplicate email", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/api/auth/signup",
			`{"username":"alice","email":"alice@x.com","password":"secret1"}`)
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/api/auth/signup", `{"username":"x"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLoginEndpoint(t *testing.T) {
	r, mailer := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/auth/signup",
		`{"username":"alice","email":"alice@x.com","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("unconfirmed", func(t *testing.T) {
		rec := doLogin(t, r, "alice@x.com", "secret1")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), "Email not confirmed")
	})

	token := mailer.tokens["alice@x.com"]
	rec = doJSON(t, r, http.MethodGet, "/api/auth/confirmed_email/"+token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	t.Run("wrong password", func(t *testing.T) {
		rec := doLogin(t, r, "alice@x.com", "nope")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), "Invalid password")
	})

	t.Run("unknown email", func(t *testing.T) {
		rec := doLogin(t, r, "ghost@x.com", "secret1")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), "Invalid email")
	})

	t.Run("success", func(t *testing.T) {
		rec := doLogin(t, r, "alice@x.com", "secret1")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

		var pair TokenResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pair))
		require.NotEmpty(t, pair.AccessToken)
		require.NotEmpty(t, pair.RefreshToken)
		require.Equal(t, "bearer", pair.TokenType)
		require.Positive(t, pair.ExpiresIn)

		// expires_in is whole seconds on the wire, not a Go duration.
		var raw map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
		require.EqualValues(t, 15*60, raw["expires_in"])
	})
}

func TestRefreshEndpoint(t *testing.T) {
	r, mailer := newTestRouter(t)
	pair := signupAndConfirm(t, r, mailer, "alice@x.com")

	refresh := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/refresh_token", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := refresh(pair.RefreshToken)
	require.Equal(t, http.StatusOK, rec.Code)

	var next TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &next))
	require.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	t.Run("replayed token", func(t *testing.T) {
		rec := refresh(pair.RefreshToken)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), "Invalid refresh token")
	})

	t.Run("missing bearer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/refresh_token", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("access token rejected", func(t *testing.T) {
		rec := refresh(next.AccessToken)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestConfirmEmailEndpoint(t *testing.T) {
	r, mailer := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/auth/signup",
		`{"username":"alice","email":"alice@x.com","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	token := mailer.tokens["alice@x.com"]

	rec = doJSON(t, r, http.MethodGet, "/api/auth/confirmed_email/"+token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Email confirmed")

	t.Run("already confirmed", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/api/auth/confirmed_email/"+token, "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "already confirmed")
	})

	t.Run("invalid token", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/api/auth/confirmed_email/garbage", "")
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestRequestEmailEndpoint(t *testing.T) {
	r, mailer := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/auth/signup",
		`{"username":"alice","email":"alice@x.com","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	first := mailer.tokens["alice@x.com"]

	rec = doJSON(t, r, http.MethodPost, "/api/auth/request_email", `{"email":"alice@x.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Check your email")
	require.NotEqual(t, first, mailer.tokens["alice@x.com"], "a new token is issued")

	t.Run("unknown address is indistinguishable", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/api/auth/request_email", `{"email":"ghost@x.com"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "Check your email")
	})

	t.Run("store failure is indistinguishable", func(t *testing.T) {
		broken, _ := newTestRouter(t)
		require.NoError(t, broken.store.Close())

		rec := doJSON(t, broken, http.MethodPost, "/api/auth/request_email", `{"email":"alice@x.com"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "Check your email")
	})
}

func TestMeEndpoint(t *testing.T) {
	r, mailer := newTestRouter(t)
	pair := signupAndConfirm(t, r, mailer, "alice@x.com")

	t.Run("authenticated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "alice@x.com")
		require.NotContains(t, rec.Body.String(), "password_hash")
	})

	t.Run("missing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
	})

	t.Run("refresh token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
		req.Header.Set("Authorization", "Bearer "+pair.RefreshToken)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestUpdateAvatarEndpoint(t *testing.T) {
	r, mailer := newTestRouter(t)
	pair := signupAndConfirm(t, r, mailer, "alice@x.com")

	req := httptest.NewRequest(http.MethodPatch, "/api/users/avatar",
		strings.NewReader(`{"avatar_url":"https://img.example.com/alice.png"}`))
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "img.example.com/alice.png")
}

func TestHealthEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/livez", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	require.Equal(t, "ok", health.Status)

	// Readiness with no cache client configured still reports the database.
	rec = doJSON(t, r, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	require.Equal(t, "ok", health.Checks.Database)
	require.Equal(t, "not configured", health.Checks.Cache)
}
