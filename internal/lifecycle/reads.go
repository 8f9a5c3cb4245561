package lifecycle

import (
	"context"

	"github.com/erazemk/ecopickup/internal/model"
	"github.com/erazemk/ecopickup/internal/store"
)

// Visible reports whether actor may read p. Requesters see their own
// pickups, agents see the pending pool and pickups bound to them, and
// administrators see everything.
func Visible(actor model.Actor, agentID int64, p *model.Pickup) bool {
	switch actor.Role {
	case model.RoleAdmin:
		return true
	case model.RoleAgent:
		if p.Status == model.StatusPending {
			return true
		}
		return agentID != 0 && p.AgentID != nil && *p.AgentID == agentID
	default:
		return p.UserID == actor.UserID
	}
}

func (a *Authority) agentID(ctx context.Context, actor model.Actor) (int64, error) {
	if actor.Role != model.RoleAgent {
		return 0, nil
	}
	agent, err := store.GetAgentByUserID(ctx, a.DB, actor.UserID)
	if err != nil || agent == nil {
		return 0, err
	}
	return agent.ID, nil
}

// Get returns one pickup, or ErrNotFound when it does not exist or actor
// may not see it.
func (a *Authority) Get(ctx context.Context, actor model.Actor, pickupID int64) (*model.Pickup, error) {
	p, err := store.GetPickup(ctx, a.DB, pickupID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, model.ErrNotFound
	}
	agentID, err := a.agentID(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !Visible(actor, agentID, p) {
		return nil, model.ErrNotFound
	}
	return p, nil
}

// List returns every pickup actor may see, optionally limited to one status.
func (a *Authority) List(ctx context.Context, actor model.Actor, status string) ([]model.Pickup, error) {
	f := store.PickupFilter{Status: status}
	switch actor.Role {
	case model.RoleAdmin:
	case model.RoleAgent:
		agentID, err := a.agentID(ctx, actor)
		if err != nil {
			return nil, err
		}
		f.AgentID = agentID
		f.Pending = true
	default:
		f.UserID = actor.UserID
	}
	return store.ListPickups(ctx, a.DB, f)
}

// History returns the statuses a visible pickup entered, oldest first.
func (a *Authority) History(ctx context.Context, actor model.Actor, pickupID int64) ([]model.PickupHistory, error) {
	if _, err := a.Get(ctx, actor, pickupID); err != nil {
		return nil, err
	}
	return store.ListPickupHistory(ctx, a.DB, pickupID)
}
