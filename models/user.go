// Package models defines the domain types persisted by the store and
// exchanged over the HTTP/WebSocket edge. JSON tags control API shape;
// db tags are not used here — the store package maps columns explicitly.
package models

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
	"time"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// GhostUsernamePrefix marks a deleted user's username after ghosting.
const GhostUsernamePrefix = "ghost_"

// GhostDisplayName is the display name every ghosted user is renamed to.
const GhostDisplayName = "Deleted User"

// User represents one account. PasswordHash is never marshaled to JSON.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	DisplayName  string    `json:"display_name"`
	Status       string    `json:"status"`
	AvatarURL    *string   `json:"avatar_url"`
	PasswordHash string    `json:"-"`
	Active       bool      `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Public strips the fields that must never be shown to other users
// (email is visible only on the caller's own profile).
func (u User) Public() User {
	u.Email = ""
	u.PasswordHash = ""
	return u
}

// IsGhost reports whether this row represents a deleted account.
func (u User) IsGhost() bool {
	return !u.Active
}

// RegisterRequest is the register(...) payload.
type RegisterRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// Normalize trims and case-folds the identity fields before validation
// and before any uniqueness check — per the normalize-before-lookup rule.
func (r *RegisterRequest) Normalize() {
	r.Username = strings.ToLower(strings.TrimSpace(r.Username))
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.DisplayName = strings.TrimSpace(r.DisplayName)
}

// Validate checks field shape after Normalize has run.
func (r *RegisterRequest) Validate() error {
	usernameLen := utf8.RuneCountInString(r.Username)
	if usernameLen < 3 || usernameLen > 32 {
		return fmt.Errorf("username must be between 3 and 32 characters")
	}
	for _, ch := range r.Username {
		if !isValidUsernameChar(ch) {
			return fmt.Errorf("username can only contain letters, numbers, and underscores")
		}
	}
	if strings.HasPrefix(r.Username, GhostUsernamePrefix) {
		return fmt.Errorf("username is reserved")
	}
	if utf8.RuneCountInString(r.Password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	if r.Email == "" || !emailRegex.MatchString(r.Email) {
		return fmt.Errorf("invalid email format")
	}
	if r.DisplayName == "" {
		r.DisplayName = r.Username
	}
	if utf8.RuneCountInString(r.DisplayName) > 100 {
		return fmt.Errorf("display name must be at most 100 characters")
	}
	return nil
}

// LoginRequest is the login(...) payload. Identity is resolved first as
// username, then as email, both case-folded.
type LoginRequest struct {
	Identity string `json:"identity"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	r.Identity = strings.ToLower(strings.TrimSpace(r.Identity))
	if r.Identity == "" {
		return fmt.Errorf("identity is required")
	}
	if r.Password == "" {
		return fmt.Errorf("password is required")
	}
	return nil
}

// UpdateUserRequest is a partial PATCH /users/@me payload. Nil fields are
// left unchanged.
type UpdateUserRequest struct {
	Username    *string `json:"username"`
	Email       *string `json:"email"`
	DisplayName *string `json:"display_name"`
	Status      *string `json:"status"`
	AvatarURL   *string `json:"avatar_url"`
}

// Validate normalizes and checks whichever fields were provided.
func (r *UpdateUserRequest) Validate() error {
	if r.Username != nil {
		v := strings.ToLower(strings.TrimSpace(*r.Username))
		n := utf8.RuneCountInString(v)
		if n < 3 || n > 32 {
			return fmt.Errorf("username must be between 3 and 32 characters")
		}
		for _, ch := range v {
			if !isValidUsernameChar(ch) {
				return fmt.Errorf("username can only contain letters, numbers, and underscores")
			}
		}
		r.Username = &v
	}
	if r.Email != nil {
		v := strings.ToLower(strings.TrimSpace(*r.Email))
		if v == "" || !emailRegex.MatchString(v) {
			return fmt.Errorf("invalid email format")
		}
		r.Email = &v
	}
	if r.DisplayName != nil {
		v := strings.TrimSpace(*r.DisplayName)
		if v == "" || utf8.RuneCountInString(v) > 100 {
			return fmt.Errorf("display name must be between 1 and 100 characters")
		}
		r.DisplayName = &v
	}
	return nil
}

func isValidUsernameChar(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9') ||
		ch == '_'
}
