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

func scanChannel(row interface{ Scan(...any) error }) (*models.Channel, error) {
	var c models.Channel
	if err := row.Scan(&c.ID, &c.ServerID, &c.Name, &c.Type, &c.Position, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

const channelColumns = `id, server_id, name, type, position, created_at`

// ListChannels returns a server's channels ordered (position ASC, id ASC).
func (db *DB) ListChannels(ctx context.Context, serverID int64) ([]models.Channel, error) {
	rows, err := db.Conn.QueryContext(ctx,
		`SELECT `+channelColumns+` FROM channels WHERE server_id = ? ORDER BY position ASC, id ASC`,
		serverID)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	defer rows.Close()

	channels := []models.Channel{}
	for rows.Next() {
		c, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan channel row: %w", err)
		}
		channels = append(channels, *c)
	}
	return channels, rows.Err()
}

// GetChannelByID returns a channel scoped to a server (404 if either the
// channel doesn't exist or belongs to a different server).
func (db *DB) GetChannelByID(ctx context.Context, serverID, channelID int64) (*models.Channel, error) {
	row := db.Conn.QueryRowContext(ctx,
		`SELECT `+channelColumns+` FROM channels WHERE id = ? AND server_id = ?`, channelID, serverID)
	c, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.NotFound("channel not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}
	return c, nil
}

// CreateChannel inserts a channel at position = count(channels in server).
func (db *DB) CreateChannel(ctx context.Context, c *models.Channel) error {
	return WithTx(ctx, db.Conn, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM channels WHERE server_id = ?`, c.ServerID).Scan(&count); err != nil {
			return fmt.Errorf("failed to count channels: %w", err)
		}
		c.Position = count

		err := tx.QueryRowContext(ctx, `
			INSERT INTO channels (server_id, name, type, position) VALUES (?, ?, ?, ?)
			RETURNING id, created_at`, c.ServerID, c.Name, c.Type, c.Position).
			Scan(&c.ID, &c.CreatedAt)
		if isUniqueViolation(err) {
			return pkg.Conflict(fmt.Sprintf("a channel named %q already exists", c.Name))
		}
		if err != nil {
			return fmt.Errorf("failed to create channel: %w", err)
		}
		return nil
	})
}

// UpdateChannel applies a partial update.
func (db *DB) UpdateChannel(ctx context.Context, serverID, channelID int64, req *models.UpdateChannelRequest) (*models.Channel, error) {
	if req.Name == nil && req.Position == nil {
		return db.GetChannelByID(ctx, serverID, channelID)
	}
	sets := []string{}
	args := []any{}
	if req.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *req.Name)
	}
	if req.Position != nil {
		sets = append(sets, "position = ?")
		args = append(args, *req.Position)
	}
	args = append(args, channelID, serverID)
	q := "UPDATE channels SET " + strings.Join(sets, ", ") + " WHERE id = ? AND server_id = ?"
	res, err := db.Conn.ExecContext(ctx, q, args...)
	if isUniqueViolation(err) {
		return nil, pkg.Conflict("a channel with that name already exists")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update channel: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, pkg.NotFound("channel not found")
	}
	return db.GetChannelByID(ctx, serverID, channelID)
}

// DeleteChannel removes a channel (and cascades its messages).
func (db *DB) DeleteChannel(ctx context.Context, serverID, channelID int64) error {
	res, err := db.Conn.ExecContext(ctx,
		`DELETE FROM channels WHERE id = ? AND server_id = ?`, channelID, serverID)
	if err != nil {
		return fmt.Errorf("failed to delete channel: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return pkg.NotFound("channel not found")
	}
	return nil
}
