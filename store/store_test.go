package store

import (
	"context"
	"testing"

	"hermes/models"
)

// newTestDB opens a fresh in-memory database with migrations applied.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mustCreateUser(t *testing.T, db *DB, username, email string) *models.User {
	t.Helper()
	u := &models.User{
		Username:     username,
		Email:        email,
		DisplayName:  username,
		PasswordHash: "hash",
	}
	if err := db.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser(%q) failed: %v", username, err)
	}
	return u
}

func mustCreateServer(t *testing.T, db *DB, owner *models.User) *models.Server {
	t.Helper()
	s := &models.Server{Name: "Test Server", OwnerID: owner.ID}
	if err := db.CreateServerWithDefaults(context.Background(), s); err != nil {
		t.Fatalf("CreateServerWithDefaults failed: %v", err)
	}
	return s
}
