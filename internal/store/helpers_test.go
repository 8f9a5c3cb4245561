package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/erazemk/ecopickup/internal/model"
)

func mustUser(t *testing.T, database *sql.DB, username, role string) *model.User {
	t.Helper()
	u, err := CreateUser(context.Background(), database, model.User{
		Username:     username,
		Name:         username,
		PasswordHash: "hash",
		Role:         role,
	})
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", username, err)
	}
	return u
}

func mustVerifiedAgent(t *testing.T, database *sql.DB, username string) *model.AgentProfile {
	t.Helper()
	ctx := context.Background()
	u := mustUser(t, database, username, model.RoleAgent)
	a, err := GetAgentByUserID(ctx, database, u.ID)
	if err != nil || a == nil {
		t.Fatalf("GetAgentByUserID(%s): %v", username, err)
	}
	if _, err := SetAgentVerification(ctx, database, a.ID, model.VerificationVerified); err != nil {
		t.Fatalf("SetAgentVerification: %v", err)
	}
	return a
}

func mustPickup(t *testing.T, database *sql.DB, owner *model.User, title string) *model.Pickup {
	t.Helper()
	ctx := context.Background()
	cats, _ := ListCategories(ctx, database)
	var catID int64
	if len(cats) == 0 {
		c, err := CreateCategory(ctx, database, "Electronics", "", "")
		if err != nil {
			t.Fatalf("CreateCategory: %v", err)
		}
		catID = c.ID
	} else {
		catID = cats[0].ID
	}

	_, p, err := CreateItem(ctx, database, model.Item{
		UserID:     owner.ID,
		CategoryID: catID,
		Title:      title,
		Action:     model.ActionDonate,
	}, nil)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	return p
}
