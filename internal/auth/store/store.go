package store

import (
	"context"
	"errors"

	"github.com/AndriiLiubov/homework-web-14/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrTokenMismatch reports a conditional refresh-token replace that found
	// a different binding than expected.
	ErrTokenMismatch = errors.New("store: refresh token mismatch")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable.
type Store interface {
	Users() Users

	ApplyMigrations() error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

type Users interface {
	// GetUserByEmail returns a user by email, the stable subject identifier.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	// A duplicate email yields ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateRefreshToken overwrites the stored refresh binding. Pass nil to
	// clear it (revoking the session).
	UpdateRefreshToken(ctx context.Context, email string, token *string) error

	// ReplaceRefreshToken swaps the binding only if the stored value equals
	// current. Returns ErrTokenMismatch otherwise. This is the conditional
	// replace that keeps concurrent refresh calls from both succeeding.
	ReplaceRefreshToken(ctx context.Context, email, current, next string) error

	// ConfirmEmail flips the confirmation flag. Idempotent: confirming an
	// already-confirmed user succeeds.
	ConfirmEmail(ctx context.Context, email string) error

	// UpdateAvatar sets the avatar URL and returns the updated user.
	UpdateAvatar(ctx context.Context, email, url string) (domain.User, error)
}
