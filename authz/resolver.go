// Package authz computes whether a caller may act on a given resource,
// distinguishing FORBIDDEN (authorized-but-denied) from NOT_FOUND
// (resource invisible to the caller) per the authorization table.
package authz

import (
	"context"

	"hermes/models"
	"hermes/pkg"
	"hermes/store"
)

// Resolver checks membership, ownership and authorship against the store.
type Resolver struct {
	db *store.DB
}

func NewResolver(db *store.DB) *Resolver {
	return &Resolver{db: db}
}

// RequireServerVisible loads a server and confirms the caller is an active
// member; a non-member (or nonexistent server) gets NOT_FOUND, because the
// server is simply invisible to them — never FORBIDDEN.
func (r *Resolver) RequireServerVisible(ctx context.Context, serverID, userID int64) (*models.Server, error) {
	server, err := r.db.GetServerByID(ctx, serverID)
	if err != nil {
		return nil, err
	}
	isMember, err := r.db.IsActiveMember(ctx, serverID, userID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, pkg.NotFound("server not found")
	}
	return server, nil
}

// RequireOwner confirms the caller owns the server — used for channel
// create/update/delete and server update/delete.
func (r *Resolver) RequireOwner(server *models.Server, userID int64) error {
	if server.OwnerID != userID {
		return pkg.Forbidden("only the server owner may perform this action")
	}
	return nil
}

// RequireMessageAuthorOrOwner implements "author of the message OR server
// owner" for message deletion.
func (r *Resolver) RequireMessageAuthorOrOwner(server *models.Server, message *models.Message, userID int64) error {
	if message.AuthorID == userID || server.OwnerID == userID {
		return nil
	}
	return pkg.Forbidden("you may only delete your own messages")
}

// RequireMessageAuthor implements "author of the message" for message
// editing.
func (r *Resolver) RequireMessageAuthor(message *models.Message, userID int64) error {
	if message.AuthorID != userID {
		return pkg.Forbidden("you can only edit your own messages")
	}
	return nil
}

// RequireNotOwner implements the owner lock-in rule for leaving a server.
func (r *Resolver) RequireNotOwner(server *models.Server, userID int64) error {
	if server.OwnerID == userID {
		return pkg.Validation("owner cannot leave without transferring ownership")
	}
	return nil
}
