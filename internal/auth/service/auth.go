package service

import (
	"context"
	"errors"
	"time"

	"github.com/AndriiLiubov/homework-web-14/internal/auth/cache"
	"github.com/AndriiLiubov/homework-web-14/internal/auth/domain"
	"github.com/AndriiLiubov/homework-web-14/internal/auth/store"
	"github.com/AndriiLiubov/homework-web-14/pkg/cryptox"
	"github.com/AndriiLiubov/homework-web-14/pkg/idx"
	"github.com/AndriiLiubov/homework-web-14/pkg/slogx"
	"github.com/AndriiLiubov/homework-web-14/pkg/tokenx"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidEmail       = errors.New("invalid_email")
	ErrEmailNotConfirmed  = errors.New("email_not_confirmed")
	ErrInvalidToken       = errors.New("invalid_token")
	ErrTokenReuse         = errors.New("refresh_token_reuse_detected")
	ErrUserNotFound       = errors.New("user_not_found")
	ErrAccountExists      = errors.New("account_already_exists")
)

// AuthService orchestrates password verification, token issuance and
// rotation, and principal resolution. It holds no mutable state of its own;
// a single instance is shared across concurrent request handlers.
type AuthService struct {
	Store  store.Store
	Cache  *cache.PrincipalCache
	Codec  *tokenx.Codec
	Hasher cryptox.Hasher

	// Zero values fall back to the tokenx defaults.
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	VerifyTTL  time.Duration
}

// Register creates a new account with a hashed password and a Gravatar-derived
// avatar URL. The account starts unconfirmed; Login refuses it until the
// verification token from the signup mail is redeemed.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (domain.User, error) {
	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return domain.User{}, err
	}

	u := domain.User{
		ID:           idx.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Avatar:       gravatarURL(email),
	}

	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrAccountExists
		}
		return domain.User{}, err
	}

	return u, nil
}

// Login authenticates a user by email and password and issues a fresh token
// pair. Checks run in a fixed order: existence, confirmation, password. The
// error taxonomy is deliberately the only signal about which check failed.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.TokenPair, error) {
	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrInvalidEmail
		}
		return domain.TokenPair{}, err
	}

	if !u.Confirmed {
		return domain.TokenPair{}, ErrEmailNotConfirmed
	}

	if err := s.Hasher.Verify(password, u.PasswordHash); err != nil {
		return domain.TokenPair{}, ErrInvalidCredentials
	}

	return s.IssueTokenPair(ctx, email)
}

// IssueTokenPair issues an access/refresh pair for email and persists the
// refresh token as the subject's single valid binding, replacing any prior
// one.
func (s *AuthService) IssueTokenPair(ctx context.Context, email string) (domain.TokenPair, error) {
	access, err := s.Codec.Issue(email, tokenx.ScopeAccess, s.accessTTL())
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := s.Codec.Issue(email, tokenx.ScopeRefresh, s.refreshTTL())
	if err != nil {
		return domain.TokenPair{}, err
	}

	if err := s.Store.Users().UpdateRefreshToken(ctx, email, &refresh); err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    s.accessTTL(),
	}, nil
}

// RefreshTokenPair rotates the presented refresh token for a new pair.
//
// The rotation is a conditional replace at the store: the new binding only
// lands if the stored one still equals the presented token. A mismatch means
// the token was already rotated (stolen-then-superseded replay, or a lost
// race); the binding is cleared so the whole chain dies and the user must log
// in again.
func (s *AuthService) RefreshTokenPair(ctx context.Context, presented string) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	email, err := s.Codec.Decode(presented, tokenx.ScopeRefresh)
	if err != nil {
		return domain.TokenPair{}, ErrInvalidToken
	}

	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrInvalidToken
		}
		return domain.TokenPair{}, err
	}

	// Fast-path check before minting anything. The authoritative check is the
	// conditional replace below.
	if u.RefreshToken == nil || *u.RefreshToken != presented {
		return domain.TokenPair{}, s.revokeBinding(ctx, email)
	}

	access, err := s.Codec.Issue(email, tokenx.ScopeAccess, s.accessTTL())
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := s.Codec.Issue(email, tokenx.ScopeRefresh, s.refreshTTL())
	if err != nil {
		return domain.TokenPair{}, err
	}

	if err := s.Store.Users().ReplaceRefreshToken(ctx, email, presented, refresh); err != nil {
		if errors.Is(err, store.ErrTokenMismatch) {
			// A concurrent refresh won the race with the same token; treat it
			// as reuse and revoke the chain.
			l.Warn("refresh token rotation race detected", "email", email)
			return domain.TokenPair{}, s.revokeBinding(ctx, email)
		}
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    s.accessTTL(),
	}, nil
}

// revokeBinding clears the stored refresh token and reports reuse.
func (s *AuthService) revokeBinding(ctx context.Context, email string) error {
	if err := s.Store.Users().UpdateRefreshToken(ctx, email, nil); err != nil &&
		!errors.Is(err, store.ErrNotFound) {
		return err
	}
	return ErrTokenReuse
}

// CurrentUser resolves the authenticated principal from a bearer access
// token: decode, then cache, then the durable store on a miss. Cache failures
// are absorbed here; they degrade to a store lookup and are never surfaced.
func (s *AuthService) CurrentUser(ctx context.Context, accessToken string) (domain.User, error) {
	l := slogx.FromContext(ctx)

	email, err := s.Codec.Decode(accessToken, tokenx.ScopeAccess)
	if err != nil {
		return domain.User{}, ErrInvalidToken
	}

	cached, err := s.Cache.Get(ctx, email)
	if err == nil {
		return cached, nil
	}
	if errors.Is(err, cache.ErrUnavailable) {
		l.Warn("principal cache unavailable, falling back to store", "err", err)
	}

	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}

	if err := s.Cache.Put(ctx, u); err != nil {
		l.Warn("failed to populate principal cache", "email", email, "err", err)
	}

	return u, nil
}

// IssueEmailVerificationToken issues the token embedded in the confirmation
// link of the signup mail.
func (s *AuthService) IssueEmailVerificationToken(email string) (string, error) {
	return s.Codec.Issue(email, tokenx.ScopeEmailVerification, s.verifyTTL())
}

// EmailFromVerificationToken validates a confirmation-link token and returns
// the subject email it was issued for.
func (s *AuthService) EmailFromVerificationToken(token string) (string, error) {
	email, err := s.Codec.Decode(token, tokenx.ScopeEmailVerification)
	if err != nil {
		return "", ErrInvalidToken
	}
	return email, nil
}

// ConfirmEmail marks the address as verified. Confirming an already-confirmed
// account is a no-op success.
func (s *AuthService) ConfirmEmail(ctx context.Context, email string) error {
	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if u.Confirmed {
		return nil
	}
	return s.Store.Users().ConfirmEmail(ctx, email)
}

func (s *AuthService) accessTTL() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return tokenx.DefaultAccessTTL
}

func (s *AuthService) refreshTTL() time.Duration {
	if s.RefreshTTL > 0 {
		return s.RefreshTTL
	}
	return tokenx.DefaultRefreshTTL
}

func (s *AuthService) verifyTTL() time.Duration {
	if s.VerifyTTL > 0 {
		return s.VerifyTTL
	}
	return tokenx.DefaultEmailVerificationTTL
}
