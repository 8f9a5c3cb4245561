package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/ecopickup/internal/model"
)

// statusColumns maps each post-pending status to the column stamping its entry.
var statusColumns = map[string]string{
	model.StatusAccepted:  "accepted_at",
	model.StatusOnTheWay:  "on_the_way_at",
	model.StatusPicked:    "picked_at",
	model.StatusCompleted: "completed_at",
}

const pickupSelect = `SELECT p.id, p.item_id, p.user_id, p.agent_id, a.user_id, p.status,
	        p.created_at, p.updated_at, p.accepted_at, p.on_the_way_at, p.picked_at, p.completed_at,
	        i.title, i.description, i.action, c.name,
	        (SELECT COUNT(*) FROM item_images im WHERE im.item_id = i.id),
	        u.name, u.phone, u.email, u.address,
	        au.name, au.phone, au.email
	 FROM pickups p
	 JOIN items i ON i.id = p.item_id
	 JOIN categories c ON c.id = i.category_id
	 JOIN users u ON u.id = p.user_id
	 LEFT JOIN agents a ON a.id = p.agent_id
	 LEFT JOIN users au ON au.id = a.user_id`

func scanPickup(row interface{ Scan(...any) error }) (*model.Pickup, error) {
	p := &model.Pickup{Item: &model.ItemSummary{}, User: &model.UserSummary{}}
	var agentName, agentPhone, agentEmail sql.NullString
	err := row.Scan(&p.ID, &p.ItemID, &p.UserID, &p.AgentID, &p.AgentUserID, &p.Status,
		&p.CreatedAt, &p.UpdatedAt, &p.AcceptedAt, &p.OnTheWayAt, &p.PickedAt, &p.CompletedAt,
		&p.Item.Title, &p.Item.Description, &p.Item.Action, &p.Item.CategoryName, &p.Item.ImageCount,
		&p.User.Name, &p.User.Phone, &p.User.Email, &p.User.Address,
		&agentName, &agentPhone, &agentEmail)
	if err != nil {
		return nil, err
	}
	if p.AgentID != nil {
		p.Agent = &model.UserSummary{Name: agentName.String, Phone: agentPhone.String, Email: agentEmail.String}
	}
	return p, nil
}

// GetPickup returns a pickup with its summaries by ID.
func GetPickup(ctx context.Context, db *sql.DB, id int64) (*model.Pickup, error) {
	p, err := scanPickup(db.QueryRowContext(ctx, pickupSelect+` WHERE p.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting pickup: %w", err)
	}
	return p, nil
}

// PickupFilter narrows ListPickups. Zero values do not filter.
type PickupFilter struct {
	UserID  int64
	AgentID int64
	// Pending includes unassigned pickups; combined with AgentID it is
	// the agent's view (pending pool plus own pickups).
	Pending bool
	Status  string
}

// ListPickups returns pickups matching the filter, newest first.
func ListPickups(ctx context.Context, db *sql.DB, f PickupFilter) ([]model.Pickup, error) {
	query := pickupSelect + ` WHERE 1=1`
	var args []any

	if f.UserID > 0 {
		query += ` AND p.user_id = ?`
		args = append(args, f.UserID)
	}
	switch {
	case f.AgentID > 0 && f.Pending:
		query += ` AND (p.agent_id = ? OR p.status = ?)`
		args = append(args, f.AgentID, model.StatusPending)
	case f.AgentID > 0:
		query += ` AND p.agent_id = ?`
		args = append(args, f.AgentID)
	case f.Pending:
		query += ` AND p.status = ?`
		args = append(args, model.StatusPending)
	}
	if f.Status != "" {
		query += ` AND p.status = ?`
		args = append(args, f.Status)
	}

	query += ` ORDER BY p.created_at DESC, p.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing pickups: %w", err)
	}
	defer rows.Close()

	var pickups []model.Pickup
	for rows.Next() {
		p, err := scanPickup(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning pickup: %w", err)
		}
		pickups = append(pickups, *p)
	}
	return pickups, rows.Err()
}

// AcceptPickup binds agentID to a pending, unassigned pickup. The check and
// the bind are one conditional UPDATE, so of several concurrent callers at
// most one gets true.
func AcceptPickup(ctx context.Context, db *sql.DB, pickupID, agentID, actorID int64) (bool, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		`UPDATE pickups SET agent_id = ?, status = ?, accepted_at = ?, updated_at = ?
		 WHERE id = ? AND status = ? AND agent_id IS NULL`,
		agentID, model.StatusAccepted, now, now, pickupID, model.StatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("accepting pickup: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("accepting pickup: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	if err := insertHistory(ctx, tx, pickupID, model.StatusAccepted, actorID, now); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing accept: %w", err)
	}
	return true, nil
}

// AdvancePickup moves a pickup assigned to agentID from one status to the
// next. It returns false when the pickup is not in from or not assigned to
// agentID. Completing a pickup increments the agent's completed count.
func AdvancePickup(ctx context.Context, db *sql.DB, pickupID, agentID int64, from, to string, actorID int64) (bool, error) {
	column, ok := statusColumns[to]
	if !ok || to == model.StatusAccepted {
		return false, fmt.Errorf("cannot advance to %q", to)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		`UPDATE pickups SET status = ?, `+column+` = ?, updated_at = ?
		 WHERE id = ? AND status = ? AND agent_id = ?`,
		to, now, now, pickupID, from, agentID,
	)
	if err != nil {
		return false, fmt.Errorf("advancing pickup: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("advancing pickup: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	if to == model.StatusCompleted {
		if _, err := tx.ExecContext(ctx,
			`UPDATE agents SET completed_pickups = completed_pickups + 1 WHERE id = ?`, agentID,
		); err != nil {
			return false, fmt.Errorf("counting completed pickup: %w", err)
		}
	}

	if err := insertHistory(ctx, tx, pickupID, to, actorID, now); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing status change: %w", err)
	}
	return true, nil
}

func insertHistory(ctx context.Context, tx *sql.Tx, pickupID int64, status string, actorID int64, at time.Time) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO pickup_history (pickup_id, status, actor_id, entered_at) VALUES (?, ?, ?, ?)`,
		pickupID, status, actorID, at,
	)
	if err != nil {
		return fmt.Errorf("recording pickup history: %w", err)
	}
	return nil
}

// ListPickupHistory returns the statuses a pickup entered, oldest first.
func ListPickupHistory(ctx context.Context, db *sql.DB, pickupID int64) ([]model.PickupHistory, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT pickup_id, status, actor_id, entered_at FROM pickup_history
		 WHERE pickup_id = ? ORDER BY id`, pickupID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing pickup history: %w", err)
	}
	defer rows.Close()

	var history []model.PickupHistory
	for rows.Next() {
		var h model.PickupHistory
		if err := rows.Scan(&h.PickupID, &h.Status, &h.ActorID, &h.EnteredAt); err != nil {
			return nil, fmt.Errorf("scanning pickup history: %w", err)
		}
		history = append(history, h)
	}
	return history, rows.Err()
}
