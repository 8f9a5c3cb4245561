package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/ecopickup/internal/model"
)

const agentSelect = `SELECT a.id, a.user_id, a.verification_status, a.completed_pickups, a.created_at,
	        u.username, u.name, u.phone, u.email
	 FROM agents a
	 JOIN users u ON u.id = a.user_id`

func scanAgent(row interface{ Scan(...any) error }, a *model.AgentProfile) error {
	return row.Scan(&a.ID, &a.UserID, &a.VerificationStatus, &a.CompletedPickups, &a.CreatedAt,
		&a.Username, &a.Name, &a.Phone, &a.Email)
}

// GetAgent returns an agent profile by its ID.
func GetAgent(ctx context.Context, db *sql.DB, id int64) (*model.AgentProfile, error) {
	a := &model.AgentProfile{}
	err := scanAgent(db.QueryRowContext(ctx, agentSelect+` WHERE a.id = ?`, id), a)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting agent: %w", err)
	}
	return a, nil
}

// GetAgentByUserID returns the agent profile of a user, or nil if the user
// is not an agent.
func GetAgentByUserID(ctx context.Context, db *sql.DB, userID int64) (*model.AgentProfile, error) {
	a := &model.AgentProfile{}
	err := scanAgent(db.QueryRowContext(ctx, agentSelect+` WHERE a.user_id = ?`, userID), a)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting agent by user: %w", err)
	}
	return a, nil
}

// ListAgents returns all agent profiles of non-deleted users.
func ListAgents(ctx context.Context, db *sql.DB) ([]model.AgentProfile, error) {
	rows, err := db.QueryContext(ctx, agentSelect+` WHERE u.deleted_at IS NULL ORDER BY a.id`)
	if err != nil {
		return nil, fmt.Errorf("listing agents: %w", err)
	}
	defer rows.Close()

	var agents []model.AgentProfile
	for rows.Next() {
		var a model.AgentProfile
		if err := scanAgent(rows, &a); err != nil {
			return nil, fmt.Errorf("scanning agent: %w", err)
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// SetAgentVerification changes an agent's verification status. It returns
// false if no such agent exists.
func SetAgentVerification(ctx context.Context, db *sql.DB, id int64, status string) (bool, error) {
	if !model.ValidVerification(status) {
		return false, fmt.Errorf("invalid verification status %q", status)
	}
	result, err := db.ExecContext(ctx,
		`UPDATE agents SET verification_status = ? WHERE id = ?`, status, id,
	)
	if err != nil {
		return false, fmt.Errorf("updating agent verification: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("updating agent verification: %w", err)
	}
	return n == 1, nil
}
