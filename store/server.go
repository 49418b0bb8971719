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

// CreateServerWithDefaults inserts the server row, the owner's active
// membership, and the two default channels (general/TEXT, voice/VOICE) in
// a single transaction.
func (db *DB) CreateServerWithDefaults(ctx context.Context, s *models.Server) error {
	return WithTx(ctx, db.Conn, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO servers (name, icon_url, owner_id) VALUES (?, ?, ?)
			RETURNING id, created_at`, s.Name, s.IconURL, s.OwnerID).
			Scan(&s.ID, &s.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO memberships (user_id, server_id) VALUES (?, ?)`,
			s.OwnerID, s.ID); err != nil {
			return fmt.Errorf("failed to create owner membership: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO channels (server_id, name, type, position) VALUES (?, ?, ?, 0)`,
			s.ID, models.DefaultTextChannelName, models.ChannelTypeText); err != nil {
			return fmt.Errorf("failed to create default text channel: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO channels (server_id, name, type, position) VALUES (?, ?, ?, 1)`,
			s.ID, models.DefaultVoiceChannelName, models.ChannelTypeVoice); err != nil {
			return fmt.Errorf("failed to create default voice channel: %w", err)
		}
		return nil
	})
}

func scanServer(row interface{ Scan(...any) error }) (*models.Server, error) {
	var s models.Server
	var icon sql.NullString
	if err := row.Scan(&s.ID, &s.Name, &icon, &s.OwnerID, &s.CreatedAt); err != nil {
		return nil, err
	}
	if icon.Valid {
		s.IconURL = &icon.String
	}
	return &s, nil
}

// GetServerByID returns a server only if it still exists (servers are
// hard-deleted, never ghosted).
func (db *DB) GetServerByID(ctx context.Context, id int64) (*models.Server, error) {
	row := db.Conn.QueryRowContext(ctx,
		`SELECT id, name, icon_url, owner_id, created_at FROM servers WHERE id = ?`, id)
	s, err := scanServer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.NotFound("server not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get server: %w", err)
	}
	return s, nil
}

// ListServersForUser returns the servers the given user is actively a
// member of, ordered by membership creation order (joined_at, server id).
func (db *DB) ListServersForUser(ctx context.Context, userID int64) ([]models.Server, error) {
	rows, err := db.Conn.QueryContext(ctx, `
		SELECT s.id, s.name, s.icon_url, s.owner_id, s.created_at
		FROM servers s
		JOIN memberships m ON m.server_id = s.id
		WHERE m.user_id = ? AND m.left_at IS NULL
		ORDER BY m.joined_at ASC, s.id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}
	defer rows.Close()

	servers := []models.Server{}
	for rows.Next() {
		s, err := scanServer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan server row: %w", err)
		}
		servers = append(servers, *s)
	}
	return servers, rows.Err()
}

// UpdateServer applies a partial update; ErrNotFound if the row is gone.
func (db *DB) UpdateServer(ctx context.Context, id int64, req *models.UpdateServerRequest) (*models.Server, error) {
	if req.Name == nil && req.IconURL == nil {
		return db.GetServerByID(ctx, id)
	}
	sets := []string{}
	args := []any{}
	if req.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *req.Name)
	}
	if req.IconURL != nil {
		sets = append(sets, "icon_url = ?")
		args = append(args, *req.IconURL)
	}
	args = append(args, id)
	q := "UPDATE servers SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	res, err := db.Conn.ExecContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update server: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, pkg.NotFound("server not found")
	}
	return db.GetServerByID(ctx, id)
}

// DeleteServer cascade-deletes channels, memberships and messages via
// foreign key ON DELETE CASCADE.
func (db *DB) DeleteServer(ctx context.Context, id int64) error {
	res, err := db.Conn.ExecContext(ctx, `DELETE FROM servers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete server: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return pkg.NotFound("server not found")
	}
	return nil
}

// GetMembership returns the membership row, or nil if the user never
// joined this server at all.
func (db *DB) GetMembership(ctx context.Context, serverID, userID int64) (*models.Membership, error) {
	var m models.Membership
	err := db.Conn.QueryRowContext(ctx, `
		SELECT user_id, server_id, joined_at, left_at
		FROM memberships WHERE server_id = ? AND user_id = ?`, serverID, userID).
		Scan(&m.UserID, &m.ServerID, &m.JoinedAt, &m.LeftAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return &m, nil
}

// IsActiveMember reports whether userID has a currently-active membership.
func (db *DB) IsActiveMember(ctx context.Context, serverID, userID int64) (bool, error) {
	var n int
	err := db.Conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM memberships
		WHERE server_id = ? AND user_id = ? AND left_at IS NULL`, serverID, userID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return n > 0, nil
}

// JoinServer inserts a new active membership or, if the user previously
// left, clears left_at (rejoin). Returns rejoined=true in the latter case.
func (db *DB) JoinServer(ctx context.Context, serverID, userID int64) (rejoined bool, err error) {
	existing, err := db.GetMembership(ctx, serverID, userID)
	if err != nil {
		return false, err
	}
	if existing != nil && existing.Active() {
		return false, pkg.Conflict("you are already a member of this server")
	}
	if existing != nil {
		_, err := db.Conn.ExecContext(ctx,
			`UPDATE memberships SET left_at = NULL WHERE server_id = ? AND user_id = ?`,
			serverID, userID)
		if err != nil {
			return false, fmt.Errorf("failed to rejoin server: %w", err)
		}
		return true, nil
	}
	_, err = db.Conn.ExecContext(ctx,
		`INSERT INTO memberships (user_id, server_id) VALUES (?, ?)`, userID, serverID)
	if err != nil {
		return false, fmt.Errorf("failed to join server: %w", err)
	}
	return false, nil
}

// LeaveServer marks the membership inactive. Caller must have already
// verified the user is not the owner.
func (db *DB) LeaveServer(ctx context.Context, serverID, userID int64) error {
	_, err := db.Conn.ExecContext(ctx,
		`UPDATE memberships SET left_at = CURRENT_TIMESTAMP
		 WHERE server_id = ? AND user_id = ? AND left_at IS NULL`, serverID, userID)
	if err != nil {
		return fmt.Errorf("failed to leave server: %w", err)
	}
	return nil
}
