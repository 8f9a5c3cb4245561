package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/ecopickup/internal/model"
)

// GetAnalytics computes the admin aggregates over the whole store in one
// read, so the counts are mutually consistent.
func GetAnalytics(ctx context.Context, db *sql.DB) (*model.Analytics, error) {
	a := &model.Analytics{}
	err := db.QueryRowContext(ctx,
		`SELECT
		    (SELECT COUNT(*) FROM users WHERE deleted_at IS NULL AND role = ?),
		    (SELECT COUNT(*) FROM users WHERE deleted_at IS NULL AND role = ?),
		    (SELECT COUNT(*) FROM items),
		    (SELECT COUNT(*) FROM pickups),
		    (SELECT COUNT(*) FROM pickups WHERE status = ?),
		    (SELECT COUNT(*) FROM pickups WHERE status = ?)`,
		model.RoleUser, model.RoleAgent, model.StatusCompleted, model.StatusPending,
	).Scan(&a.TotalUsers, &a.TotalAgents, &a.TotalItems, &a.TotalPickups, &a.CompletedPickups, &a.PendingPickups)
	if err != nil {
		return nil, fmt.Errorf("computing analytics: %w", err)
	}
	return a, nil
}
