package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"hermes/models"
	"hermes/pkg"
)

// CreateSession persists a new opaque session token.
func (db *DB) CreateSession(ctx context.Context, s *models.Session) error {
	_, err := db.Conn.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)`,
		s.Token, s.UserID, s.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession resolves a token to its session row if it exists and has not
// expired.
func (db *DB) GetSession(ctx context.Context, token string) (*models.Session, error) {
	var s models.Session
	err := db.Conn.QueryRowContext(ctx,
		`SELECT token, user_id, expires_at, created_at FROM sessions WHERE token = ?`, token).
		Scan(&s.Token, &s.UserID, &s.ExpiresAt, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.Unauthenticated("invalid session")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if time.Now().After(s.ExpiresAt) {
		_ = db.DeleteSession(ctx, token)
		return nil, pkg.Unauthenticated("session expired")
	}
	return &s, nil
}

// DeleteSession removes a session token; idempotent.
func (db *DB) DeleteSession(ctx context.Context, token string) error {
	_, err := db.Conn.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteSessionsForUser revokes every session belonging to a user —
// called on account deletion.
func (db *DB) DeleteSessionsForUser(ctx context.Context, userID int64) error {
	_, err := db.Conn.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete sessions for user: %w", err)
	}
	return nil
}
