package service

import (
	"context"
	"crypto/md5" // #nosec G501 - Gravatar addresses are keyed by MD5, not a security use
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/AndriiLiubov/homework-web-14/internal/auth/domain"
	"github.com/AndriiLiubov/homework-web-14/internal/auth/store"
)

type UserService struct {
	Store store.Store
}

// GetUserByEmail fetches a user by email.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return u, nil
}

// UpdateAvatar sets a new avatar URL. The principal cache is not invalidated;
// the stale snapshot ages out within the cache TTL.
func (s *UserService) UpdateAvatar(ctx context.Context, email, url string) (domain.User, error) {
	u, err := s.Store.Users().UpdateAvatar(ctx, email, url)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return u, nil
}

// gravatarURL derives the default avatar for a new account from its email,
// following the Gravatar addressing scheme.
func gravatarURL(email string) string {
	normalized := strings.ToLower(strings.TrimSpace(email))
	sum := md5.Sum([]byte(normalized)) // #nosec G401
	return fmt.Sprintf("https://www.gravatar.com/avatar/%s?d=identicon", hex.EncodeToString(sum[:]))
}
