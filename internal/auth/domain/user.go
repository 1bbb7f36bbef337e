package domain

import "time"

// User is the authenticated principal. The email is the stable subject
// identifier tokens are issued for; RefreshToken holds the single currently
// valid refresh binding (nil when no session is active).
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Avatar       string    `json:"avatar,omitempty"`
	RefreshToken *string   `json:"-"`
	Confirmed    bool      `json:"confirmed"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
