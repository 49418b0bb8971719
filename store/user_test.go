package store

import (
	"context"
	"testing"

	"hermes/models"
	"hermes/pkg"
)

func TestCreateUserAndGetByID(t *testing.T) {
	db := newTestDB(t)
	u := mustCreateUser(t, db, "alice", "alice@example.com")

	if u.ID == 0 {
		t.Fatal("CreateUser did not assign an ID")
	}
	if !u.Active {
		t.Error("new user should be Active")
	}

	got, err := db.GetUserByID(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if got.Username != "alice" {
		t.Errorf("Username = %q, want %q", got.Username, "alice")
	}
}

func TestCreateUserDuplicateUsernameConflict(t *testing.T) {
	db := newTestDB(t)
	mustCreateUser(t, db, "alice", "alice@example.com")

	dup := &models.User{Username: "alice", Email: "other@example.com", PasswordHash: "hash"}
	err := db.CreateUser(context.Background(), dup)
	if kind, ok := pkg.KindOf(err); !ok || kind != pkg.KindConflict {
		t.Fatalf("CreateUser duplicate username: got %v, want KindConflict", err)
	}
}

func TestCreateUserDuplicateEmailConflict(t *testing.T) {
	db := newTestDB(t)
	mustCreateUser(t, db, "alice", "alice@example.com")

	dup := &models.User{Username: "bob", Email: "alice@example.com", PasswordHash: "hash"}
	err := db.CreateUser(context.Background(), dup)
	if kind, ok := pkg.KindOf(err); !ok || kind != pkg.KindConflict {
		t.Fatalf("CreateUser duplicate email: got %v, want KindConflict", err)
	}
}

func TestGetActiveUserByIdentityMatchesUsernameOrEmail(t *testing.T) {
	db := newTestDB(t)
	u := mustCreateUser(t, db, "alice", "alice@example.com")

	byUsername, err := db.GetActiveUserByIdentity(context.Background(), "alice")
	if err != nil || byUsername.ID != u.ID {
		t.Fatalf("lookup by username failed: %v", err)
	}

	byEmail, err := db.GetActiveUserByIdentity(context.Background(), "alice@example.com")
	if err != nil || byEmail.ID != u.ID {
		t.Fatalf("lookup by email failed: %v", err)
	}
}

func TestGhostUserClearsCredentialsButKeepsRow(t *testing.T) {
	db := newTestDB(t)
	u := mustCreateUser(t, db, "alice", "alice@example.com")

	if err := db.GhostUser(context.Background(), u.ID); err != nil {
		t.Fatalf("GhostUser failed: %v", err)
	}

	got, err := db.GetUserByID(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("GetUserByID after ghosting failed: %v", err)
	}
	if got.Active {
		t.Error("ghosted user should be inactive")
	}
	if got.DisplayName != models.GhostDisplayName {
		t.Errorf("DisplayName = %q, want %q", got.DisplayName, models.GhostDisplayName)
	}

	if _, err := db.GetActiveUserByIdentity(context.Background(), "alice"); err == nil {
		t.Error("ghosted user should no longer resolve by its old identity")
	}
}

func TestUpdateUser(t *testing.T) {
	db := newTestDB(t)
	u := mustCreateUser(t, db, "alice", "alice@example.com")

	newName := "Alice In Wonderland"
	updated, err := db.UpdateUser(context.Background(), u.ID, &models.UpdateUserRequest{DisplayName: &newName})
	if err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	if updated.DisplayName != newName {
		t.Errorf("DisplayName = %q, want %q", updated.DisplayName, newName)
	}
}
