package http

import (
	"context"

	"github.com/AndriiLiubov/homework-web-14/internal/auth/domain"
)

type ctxKey string

const ctxKeyUser ctxKey = "user"

func contextWithUser(ctx context.Context, u domain.User) context.Context {
	return context.WithValue(ctx, ctxKeyUser, u)
}

// UserFromContext returns the authenticated principal injected by
// AuthnMiddleware.
func UserFromContext(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(ctxKeyUser).(domain.User)
	return u, ok
}
