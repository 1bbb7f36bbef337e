package domain

import "time"

// TokenPair is what login and refresh return: a short-lived access token and
// the refresh token that replaces the previous binding. The HTTP layer maps
// it to a wire shape; it is never encoded directly.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string        // always "bearer"
	ExpiresIn    time.Duration // access token lifetime
}
