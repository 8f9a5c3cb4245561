package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/erazemk/ecopickup/internal/db"
)

func countRevocations(t *testing.T, database *sql.DB) int {
	t.Helper()
	var n int
	if err := database.QueryRow(`SELECT COUNT(*) FROM revoked_tokens`).Scan(&n); err != nil {
		t.Fatalf("counting revocations: %v", err)
	}
	return n
}

func TestLoggedOutSessionIsRevoked(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	if err := RevokeToken(ctx, database, "session-a", time.Now().Add(24*time.Hour)); err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}

	for jti, want := range map[string]bool{"session-a": true, "session-b": false} {
		revoked, err := IsTokenRevoked(ctx, database, jti)
		if err != nil {
			t.Fatalf("IsTokenRevoked(%s): %v", jti, err)
		}
		if revoked != want {
			t.Errorf("IsTokenRevoked(%s) = %v, want %v", jti, revoked, want)
		}
	}

	// A second logout with the same token keeps a single row.
	if err := RevokeToken(ctx, database, "session-a", time.Now().Add(24*time.Hour)); err != nil {
		t.Fatalf("repeated RevokeToken: %v", err)
	}
	if n := countRevocations(t, database); n != 1 {
		t.Errorf("expected 1 revocation, got %d", n)
	}
}

func TestRevokeTokenPurgesExpiredRevocations(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	if _, err := database.Exec(`INSERT INTO revoked_tokens (jti, expires_at) VALUES (?, ?), (?, ?)`,
		"stale-1", time.Now().Add(-2*time.Hour).UTC(),
		"stale-2", time.Now().Add(-time.Minute).UTC(),
	); err != nil {
		t.Fatalf("seeding revocations: %v", err)
	}

	if err := RevokeToken(ctx, database, "fresh", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}

	if n := countRevocations(t, database); n != 1 {
		t.Errorf("expected only the fresh revocation to remain, got %d rows", n)
	}
	if revoked, _ := IsTokenRevoked(ctx, database, "stale-1"); revoked {
		t.Error("expired revocation was not purged")
	}
}

func TestRevokeExpiredTokenStoresNothing(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	if err := RevokeToken(ctx, database, "gone", time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}
	if n := countRevocations(t, database); n != 0 {
		t.Errorf("expected no rows for an expired token, got %d", n)
	}
}
