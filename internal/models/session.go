package models

import "time"

// Session is a server-side login session. Only the SHA-256 of the cookie token is stored.
type Session struct {
	TokenHash string    `db:"token_hash"`
	UserID    int64     `db:"user_id"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// IsExpired checks if the session is past its expiry at the given instant
func (s *Session) IsExpired(now time.Time) bool {
	return s.ExpiresAt.Before(now)
}

// SessionWithUser is a session joined with its owning user
type SessionWithUser struct {
	Session
	User User `db:"user"`
}
