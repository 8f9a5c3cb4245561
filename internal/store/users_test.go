package store

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/ecopickup/internal/db"
	"github.com/erazemk/ecopickup/internal/model"
)

func TestCreateAndGetUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, err := CreateUser(ctx, database, model.User{
		Username:     "testuser",
		Name:         "Test User",
		Phone:        "555-0100",
		PasswordHash: "hash123",
		Role:         model.RoleUser,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.Username != "testuser" {
		t.Errorf("expected username 'testuser', got %q", user.Username)
	}
	if user.Role != model.RoleUser {
		t.Errorf("expected role 'user', got %q", user.Role)
	}

	got, err := GetUser(ctx, database, user.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Phone != "555-0100" {
		t.Errorf("expected phone '555-0100', got %q", got.Phone)
	}

	profile, _ := GetAgentByUserID(ctx, database, user.ID)
	if profile != nil {
		t.Error("regular user should not have an agent profile")
	}
}

func TestCreateUserInvalidRole(t *testing.T) {
	database := db.NewTestDB(t)

	_, err := CreateUser(context.Background(), database, model.User{Username: "x", PasswordHash: "h", Role: "manager"})
	if err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestCreateAgentCreatesPendingProfile(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	u := mustUser(t, database, "agent1", model.RoleAgent)

	profile, err := GetAgentByUserID(ctx, database, u.ID)
	if err != nil {
		t.Fatalf("GetAgentByUserID: %v", err)
	}
	if profile == nil {
		t.Fatal("expected agent profile")
	}
	if profile.VerificationStatus != model.VerificationPending {
		t.Errorf("expected pending verification, got %q", profile.VerificationStatus)
	}
	if profile.CompletedPickups != 0 {
		t.Errorf("expected 0 completed pickups, got %d", profile.CompletedPickups)
	}
}

func TestGetUserByUsername(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	mustUser(t, database, "alice", model.RoleAdmin)

	user, err := GetUserByUsername(ctx, database, "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if user == nil || user.Username != "alice" {
		t.Fatalf("expected alice, got %+v", user)
	}

	missing, err := GetUserByUsername(ctx, database, "bob")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing user")
	}
}

func TestDuplicateUsernameRejected(t *testing.T) {
	database := db.NewTestDB(t)

	mustUser(t, database, "alice", model.RoleUser)
	_, err := CreateUser(context.Background(), database, model.User{Username: "alice", PasswordHash: "h", Role: model.RoleUser})
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestListUsersByRole(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	mustUser(t, database, "a", model.RoleUser)
	mustUser(t, database, "b", model.RoleAgent)
	mustUser(t, database, "c", model.RoleUser)

	all, err := ListUsers(ctx, database, "")
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 users, got %d", len(all))
	}

	users, _ := ListUsers(ctx, database, model.RoleUser)
	if len(users) != 2 {
		t.Errorf("expected 2 requesters, got %d", len(users))
	}
}

func TestUpdateUserPassword(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user := mustUser(t, database, "pwuser", model.RoleUser)
	UpdateUserPassword(ctx, database, user.ID, "newhash")

	got, _ := GetUser(ctx, database, user.ID)
	if got.PasswordHash != "newhash" {
		t.Errorf("expected password hash 'newhash', got %q", got.PasswordHash)
	}
}

func TestSetAgentVerification(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	a := mustVerifiedAgent(t, database, "agent1")

	got, _ := GetAgent(ctx, database, a.ID)
	if got.VerificationStatus != model.VerificationVerified {
		t.Errorf("expected verified, got %q", got.VerificationStatus)
	}

	ok, err := SetAgentVerification(ctx, database, 9999, model.VerificationVerified)
	if err != nil {
		t.Fatalf("SetAgentVerification: %v", err)
	}
	if ok {
		t.Error("expected false for unknown agent")
	}

	if _, err := SetAgentVerification(ctx, database, a.ID, "maybe"); err == nil {
		t.Error("expected error for invalid status")
	}

	agents, _ := ListAgents(ctx, database)
	if len(agents) != 1 || agents[0].Username != "agent1" {
		t.Errorf("unexpected agents list: %+v", agents)
	}
}
