package models

import "time"

// Session is an opaque server-side session token. It replaces the
// access/refresh JWT pair with a single random token, revoked on logout
// or account deletion.
type Session struct {
	Token     string    `json:"-"`
	UserID    int64     `json:"-"`
	ExpiresAt time.Time `json:"-"`
	CreatedAt time.Time `json:"-"`
}
