package http

import (
	"net/http"
	"strings"

	"github.com/AndriiLiubov/homework-web-14/internal/auth/service"
	"github.com/AndriiLiubov/homework-web-14/pkg/httpx"
	"github.com/AndriiLiubov/homework-web-14/pkg/slogx"
)

// AuthnMiddleware authenticates the request from its bearer access token and
// injects the resolved principal into the request context. Resolution goes
// through AuthService.CurrentUser, so authenticated requests are served from
// the principal cache when it is warm.
func AuthnMiddleware(auth *service.AuthService) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := bearerToken(r)
			if !ok {
				writeBearerError(w, "missing bearer token")
				return
			}

			u, err := auth.CurrentUser(ctx, raw)
			if err != nil {
				log.Warn("bearer authentication failed", "err", err)
				writeBearerError(w, "could not validate credentials")
				return
			}

			next.ServeHTTP(w, r.WithContext(contextWithUser(ctx, u)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))
	return token, token != ""
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	httpx.WriteError(w, http.StatusUnauthorized, "Could not validate credentials")
}
