package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RevokeToken records that the session token jti was logged out. Tokens
// already past expiresAt are rejected by signature validation, so nothing
// is stored for them, and revocations whose tokens have since expired are
// purged in the same transaction.
func RevokeToken(ctx context.Context, db *sql.DB, jti string, expiresAt time.Time) error {
	now := time.Now().UTC()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if expiresAt.After(now) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO revoked_tokens (jti, expires_at) VALUES (?, ?)
			 ON CONFLICT (jti) DO NOTHING`,
			jti, expiresAt.UTC(),
		); err != nil {
			return fmt.Errorf("revoking token: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at <= ?`, now); err != nil {
		return fmt.Errorf("purging expired revocations: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing revocation: %w", err)
	}
	return nil
}

// IsTokenRevoked reports whether the session token jti was logged out.
func IsTokenRevoked(ctx context.Context, db *sql.DB, jti string) (bool, error) {
	var revoked bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = ?)`, jti,
	).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("checking token revocation: %w", err)
	}
	return revoked, nil
}
