package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"hermes/models"
	"hermes/pkg"
)

// isUniqueViolation detects a SQLite UNIQUE constraint failure. The pure-Go
// driver does not expose a typed error code for partial/expression indexes
// in a version-stable way, so we match the well-known message text — the
// same pragmatic approach the teacher's repositories take for
// sql.ErrNoRows translation via errors.Is.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreateUser inserts a new active user row. Caller must have already
// normalized and validated the request.
func (db *DB) CreateUser(ctx context.Context, u *models.User) error {
	const q = `
		INSERT INTO users (username, email, password_hash, display_name, status, active)
		VALUES (?, ?, ?, ?, 'offline', 1)
		RETURNING id, created_at`
	err := db.Conn.QueryRowContext(ctx, q, u.Username, u.Email, u.PasswordHash, u.DisplayName).
		Scan(&u.ID, &u.CreatedAt)
	if isUniqueViolation(err) {
		if db.usernameTaken(ctx, u.Username) {
			return pkg.Conflict("Username is already taken")
		}
		return pkg.Conflict("Email is already in use")
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	u.Active = true
	return nil
}

func (db *DB) usernameTaken(ctx context.Context, username string) bool {
	var n int
	_ = db.Conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE username = ? AND active = 1`, username).Scan(&n)
	return n > 0
}

const userColumns = `id, username, email, password_hash, display_name, status, avatar_url, active, created_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	var avatar sql.NullString
	var active int
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.DisplayName,
		&u.Status, &avatar, &active, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	if avatar.Valid {
		u.AvatarURL = &avatar.String
	}
	u.Active = active != 0
	return &u, nil
}

// GetUserByID returns a user by id regardless of active status — ghosted
// users still resolve for message-author rendering.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	row := db.Conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.NotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return u, nil
}

// GetActiveUserByIdentity resolves a login identity first as username, then
// as email, among active users only.
func (db *DB) GetActiveUserByIdentity(ctx context.Context, identity string) (*models.User, error) {
	row := db.Conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE active = 1 AND (username = ? OR email = ?)`,
		identity, identity)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.NotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by identity: %w", err)
	}
	return u, nil
}

// UpdateUser applies a partial update and returns the refreshed row.
func (db *DB) UpdateUser(ctx context.Context, id int64, req *models.UpdateUserRequest) (*models.User, error) {
	sets := []string{}
	args := []any{}
	if req.Username != nil {
		sets = append(sets, "username = ?")
		args = append(args, *req.Username)
	}
	if req.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *req.Email)
	}
	if req.DisplayName != nil {
		sets = append(sets, "display_name = ?")
		args = append(args, *req.DisplayName)
	}
	if req.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *req.Status)
	}
	if req.AvatarURL != nil {
		sets = append(sets, "avatar_url = ?")
		args = append(args, *req.AvatarURL)
	}
	if len(sets) == 0 {
		return db.GetUserByID(ctx, id)
	}
	args = append(args, id)
	q := fmt.Sprintf("UPDATE users SET %s WHERE id = ? AND active = 1", strings.Join(sets, ", "))
	res, err := db.Conn.ExecContext(ctx, q, args...)
	if isUniqueViolation(err) {
		if req.Username != nil && db.usernameTaken(ctx, *req.Username) {
			return nil, pkg.Conflict("Username is already taken")
		}
		return nil, pkg.Conflict("Email is already in use")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, pkg.NotFound("user not found")
	}
	return db.GetUserByID(ctx, id)
}

// GhostUser renames the user to its ghost form, nulls credentials and
// flips the active flag, preserving the row so authored messages keep a
// displayable author.
func (db *DB) GhostUser(ctx context.Context, id int64) error {
	ghostUsername := fmt.Sprintf("%s%d", models.GhostUsernamePrefix, id)
	_, err := db.Conn.ExecContext(ctx, `
		UPDATE users
		SET username = ?, email = '', display_name = ?, password_hash = '', avatar_url = NULL, active = 0
		WHERE id = ?`, ghostUsername, models.GhostDisplayName, id)
	if err != nil {
		return fmt.Errorf("failed to ghost user: %w", err)
	}
	return nil
}
