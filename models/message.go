package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Message is a single chat message. Author is filled in by a join at read
// time; it stays populated even after the author is ghosted.
type Message struct {
	ID        int64      `json:"id"`
	ChannelID int64      `json:"channel_id"`
	AuthorID  int64      `json:"-"`
	Content   string     `json:"content"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	Author    *User      `json:"author,omitempty"`
}

// CreateMessageRequest is the POST .../messages payload.
type CreateMessageRequest struct {
	Content string `json:"content"`
}

func (r *CreateMessageRequest) Validate() error {
	r.Content = strings.TrimSpace(r.Content)
	n := utf8.RuneCountInString(r.Content)
	if n < 1 {
		return fmt.Errorf("message content is required")
	}
	if n > 2000 {
		return fmt.Errorf("message content must be at most 2000 characters")
	}
	return nil
}

// UpdateMessageRequest is the PATCH .../messages/{id} payload.
type UpdateMessageRequest struct {
	Content string `json:"content"`
}

func (r *UpdateMessageRequest) Validate() error {
	r.Content = strings.TrimSpace(r.Content)
	n := utf8.RuneCountInString(r.Content)
	if n < 1 {
		return fmt.Errorf("message content is required")
	}
	if n > 2000 {
		return fmt.Errorf("message content must be at most 2000 characters")
	}
	return nil
}

// MessageDeleteEvent is the MESSAGE_DELETE broker payload — the id is
// string-serialized per the realtime-envelope numeric id rule.
type MessageDeleteEvent struct {
	ID string `json:"id"`
}
