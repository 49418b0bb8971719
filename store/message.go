package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"hermes/models"
	"hermes/pkg"
)

// CreateMessage inserts a message and returns it with Author populated.
func (db *DB) CreateMessage(ctx context.Context, m *models.Message) error {
	err := db.Conn.QueryRowContext(ctx, `
		INSERT INTO messages (channel_id, author_user_id, content) VALUES (?, ?, ?)
		RETURNING id, created_at`, m.ChannelID, m.AuthorID, m.Content).
		Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	author, err := db.GetUserByID(ctx, m.AuthorID)
	if err != nil {
		return fmt.Errorf("failed to load message author: %w", err)
	}
	pub := author.Public()
	m.Author = &pub
	return nil
}

// ListMessages returns a channel's messages ordered (created_at ASC, id
// ASC), each with Author populated (ghosted authors still resolve).
func (db *DB) ListMessages(ctx context.Context, channelID int64) ([]models.Message, error) {
	rows, err := db.Conn.QueryContext(ctx, `
		SELECT m.id, m.channel_id, m.author_user_id, m.content, m.edited_at, m.created_at,
		       u.id, u.username, u.email, u.password_hash, u.display_name, u.status, u.avatar_url, u.active, u.created_at
		FROM messages m
		JOIN users u ON u.id = m.author_user_id
		WHERE m.channel_id = ?
		ORDER BY m.created_at ASC, m.id ASC`, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var m models.Message
		var u models.User
		var avatar sql.NullString
		var active int
		if err := rows.Scan(&m.ID, &m.ChannelID, &m.AuthorID, &m.Content, &m.EditedAt, &m.CreatedAt,
			&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.DisplayName, &u.Status, &avatar, &active, &u.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		if avatar.Valid {
			u.AvatarURL = &avatar.String
		}
		u.Active = active != 0
		pub := u.Public()
		m.Author = &pub
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// GetMessageByIDInServer resolves a message by its own ID, then confirms
// the channel it lives in belongs to the given server — used by routes
// that key messages directly off /servers/{s}/messages/{m} without a
// channel segment in the path.
func (db *DB) GetMessageByIDInServer(ctx context.Context, serverID, messageID int64) (*models.Message, error) {
	var m models.Message
	err := db.Conn.QueryRowContext(ctx, `
		SELECT m.id, m.channel_id, m.author_user_id, m.content, m.edited_at, m.created_at
		FROM messages m
		JOIN channels c ON c.id = m.channel_id
		WHERE m.id = ? AND c.server_id = ?`, messageID, serverID).
		Scan(&m.ID, &m.ChannelID, &m.AuthorID, &m.Content, &m.EditedAt, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.NotFound("message not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return &m, nil
}

// GetMessageByID scopes a message to its channel.
func (db *DB) GetMessageByID(ctx context.Context, channelID, messageID int64) (*models.Message, error) {
	var m models.Message
	err := db.Conn.QueryRowContext(ctx, `
		SELECT id, channel_id, author_user_id, content, edited_at, created_at
		FROM messages WHERE id = ? AND channel_id = ?`, messageID, channelID).
		Scan(&m.ID, &m.ChannelID, &m.AuthorID, &m.Content, &m.EditedAt, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.NotFound("message not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return &m, nil
}

// UpdateMessage edits content and stamps edited_at.
func (db *DB) UpdateMessage(ctx context.Context, channelID, messageID int64, content string) (*models.Message, error) {
	res, err := db.Conn.ExecContext(ctx, `
		UPDATE messages SET content = ?, edited_at = CURRENT_TIMESTAMP
		WHERE id = ? AND channel_id = ?`, content, messageID, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to update message: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, pkg.NotFound("message not found")
	}
	m, err := db.GetMessageByID(ctx, channelID, messageID)
	if err != nil {
		return nil, err
	}
	author, err := db.GetUserByID(ctx, m.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load message author: %w", err)
	}
	pub := author.Public()
	m.Author = &pub
	return m, nil
}

// DeleteMessage removes a message.
func (db *DB) DeleteMessage(ctx context.Context, channelID, messageID int64) error {
	res, err := db.Conn.ExecContext(ctx,
		`DELETE FROM messages WHERE id = ? AND channel_id = ?`, messageID, channelID)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return pkg.NotFound("message not found")
	}
	return nil
}
