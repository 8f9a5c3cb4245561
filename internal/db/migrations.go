package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: indexes backing the role-scoped bulk reads.
	`CREATE INDEX IF NOT EXISTS idx_pickups_status ON pickups(status)`,
	`CREATE INDEX IF NOT EXISTS idx_pickups_user ON pickups(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_pickups_agent ON pickups(agent_id)`,

	// Migration 2: history lookups by pickup.
	`CREATE INDEX IF NOT EXISTS idx_pickup_history_pickup ON pickup_history(pickup_id, id)`,
}

// Migrate ensures the schema and runs the migrations.
func Migrate(db *sql.DB) error {
	if err := EnsureSchema(db); err != nil {
		return err
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
