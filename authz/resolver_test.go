package authz

import (
	"context"
	"testing"

	"hermes/models"
	"hermes/pkg"
	"hermes/store"
)

func newTestResolver(t *testing.T) (*Resolver, *store.DB) {
	t.Helper()
	db, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewResolver(db), db
}

func mustCreateUser(t *testing.T, db *store.DB, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", DisplayName: username, PasswordHash: "hash"}
	if err := db.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser(%q) failed: %v", username, err)
	}
	return u
}

func mustCreateServer(t *testing.T, db *store.DB, owner *models.User) *models.Server {
	t.Helper()
	s := &models.Server{Name: "Test Server", OwnerID: owner.ID}
	if err := db.CreateServerWithDefaults(context.Background(), s); err != nil {
		t.Fatalf("CreateServerWithDefaults failed: %v", err)
	}
	return s
}

func TestRequireServerVisibleMemberSucceeds(t *testing.T) {
	r, db := newTestResolver(t)
	owner := mustCreateUser(t, db, "alice")
	server := mustCreateServer(t, db, owner)

	got, err := r.RequireServerVisible(context.Background(), server.ID, owner.ID)
	if err != nil {
		t.Fatalf("RequireServerVisible for a member failed: %v", err)
	}
	if got.ID != server.ID {
		t.Errorf("got server %d, want %d", got.ID, server.ID)
	}
}

func TestRequireServerVisibleNonMemberIsNotFound(t *testing.T) {
	r, db := newTestResolver(t)
	owner := mustCreateUser(t, db, "alice")
	server := mustCreateServer(t, db, owner)
	stranger := mustCreateUser(t, db, "bob")

	_, err := r.RequireServerVisible(context.Background(), server.ID, stranger.ID)
	if kind, ok := pkg.KindOf(err); !ok || kind != pkg.KindNotFound {
		t.Fatalf("non-member visibility: got %v, want KindNotFound (never Forbidden)", err)
	}
}

func TestRequireServerVisibleNonexistentServerIsNotFound(t *testing.T) {
	r, db := newTestResolver(t)
	user := mustCreateUser(t, db, "alice")

	_, err := r.RequireServerVisible(context.Background(), 999, user.ID)
	if kind, ok := pkg.KindOf(err); !ok || kind != pkg.KindNotFound {
		t.Fatalf("nonexistent server: got %v, want KindNotFound", err)
	}
}

func TestRequireOwner(t *testing.T) {
	r, db := newTestResolver(t)
	owner := mustCreateUser(t, db, "alice")
	server := mustCreateServer(t, db, owner)
	other := mustCreateUser(t, db, "bob")

	if err := r.RequireOwner(server, owner.ID); err != nil {
		t.Errorf("owner should pass RequireOwner, got %v", err)
	}
	if kind, ok := pkg.KindOf(r.RequireOwner(server, other.ID)); !ok || kind != pkg.KindForbidden {
		t.Error("non-owner should be Forbidden")
	}
}

func TestRequireNotOwnerBlocksOwnerLeaving(t *testing.T) {
	r, db := newTestResolver(t)
	owner := mustCreateUser(t, db, "alice")
	server := mustCreateServer(t, db, owner)
	other := mustCreateUser(t, db, "bob")

	if kind, ok := pkg.KindOf(r.RequireNotOwner(server, owner.ID)); !ok || kind != pkg.KindValidation {
		t.Error("owner attempting to leave should fail as KindValidation (owner lock-in)")
	}
	if err := r.RequireNotOwner(server, other.ID); err != nil {
		t.Errorf("non-owner should pass RequireNotOwner, got %v", err)
	}
}

func TestRequireMessageAuthor(t *testing.T) {
	r, db := newTestResolver(t)
	author := mustCreateUser(t, db, "alice")
	other := mustCreateUser(t, db, "bob")
	msg := &models.Message{AuthorID: author.ID}

	if err := r.RequireMessageAuthor(msg, author.ID); err != nil {
		t.Errorf("author should pass, got %v", err)
	}
	if kind, ok := pkg.KindOf(r.RequireMessageAuthor(msg, other.ID)); !ok || kind != pkg.KindForbidden {
		t.Error("non-author should be Forbidden")
	}
}

func TestRequireMessageAuthorOrOwner(t *testing.T) {
	r, db := newTestResolver(t)
	owner := mustCreateUser(t, db, "alice")
	server := mustCreateServer(t, db, owner)
	author := mustCreateUser(t, db, "bob")
	stranger := mustCreateUser(t, db, "carol")
	msg := &models.Message{AuthorID: author.ID}

	if err := r.RequireMessageAuthorOrOwner(server, msg, author.ID); err != nil {
		t.Errorf("author should pass, got %v", err)
	}
	if err := r.RequireMessageAuthorOrOwner(server, msg, owner.ID); err != nil {
		t.Errorf("server owner should pass even as non-author, got %v", err)
	}
	if kind, ok := pkg.KindOf(r.RequireMessageAuthorOrOwner(server, msg, stranger.ID)); !ok || kind != pkg.KindForbidden {
		t.Error("neither author nor owner should be Forbidden")
	}
}
