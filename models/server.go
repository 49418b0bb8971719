package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Server is a tenant community: a container of channels, memberships and
// messages, owned by exactly one user for its lifetime.
type Server struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	IconURL   *string   `json:"icon_url"`
	OwnerID   int64     `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateServerRequest is the POST /servers payload.
type CreateServerRequest struct {
	Name    string  `json:"name"`
	IconURL *string `json:"icon_url"`
}

func (r *CreateServerRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	n := utf8.RuneCountInString(r.Name)
	if n < 2 || n > 100 {
		return fmt.Errorf("server name must be between 2 and 100 characters")
	}
	return nil
}

// UpdateServerRequest is a partial PATCH /servers/{id} payload.
type UpdateServerRequest struct {
	Name    *string `json:"name"`
	IconURL *string `json:"icon_url"`
}

func (r *UpdateServerRequest) Validate() error {
	if r.Name != nil {
		v := strings.TrimSpace(*r.Name)
		n := utf8.RuneCountInString(v)
		if n < 2 || n > 100 {
			return fmt.Errorf("server name must be between 2 and 100 characters")
		}
		r.Name = &v
	}
	return nil
}

// Membership ties a user to a server. Active iff LeftAt is nil; rejoin
// clears LeftAt rather than inserting a new row.
type Membership struct {
	UserID   int64      `json:"user_id"`
	ServerID int64      `json:"server_id"`
	JoinedAt time.Time  `json:"joined_at"`
	LeftAt   *time.Time `json:"left_at,omitempty"`
}

func (m Membership) Active() bool {
	return m.LeftAt == nil
}
