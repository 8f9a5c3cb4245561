// Package lifecycle decides every pickup status change and announces the
// ones that succeed.
package lifecycle

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/erazemk/ecopickup/internal/broadcast"
	"github.com/erazemk/ecopickup/internal/model"
	"github.com/erazemk/ecopickup/internal/store"
)

// Publisher receives one notice per committed change.
type Publisher interface {
	Publish(n broadcast.Notice) model.PickupEvent
}

// Authority is the only writer of pickup status.
type Authority struct {
	DB        *sql.DB
	Publisher Publisher
}

// Accept binds the acting agent to a pending pickup.
func (a *Authority) Accept(ctx context.Context, actor model.Actor, pickupID int64) (*model.Pickup, error) {
	return a.Transition(ctx, actor, pickupID, model.StatusAccepted)
}

// Transition moves a pickup to target on behalf of actor.
//
// Checks run in this order: the pickup must exist; the actor must be an
// agent; a pickup bound to another agent is off limits; target must be
// the immediate successor of the current status; accepting requires a
// verified agent and an unassigned pickup at the moment of the write.
func (a *Authority) Transition(ctx context.Context, actor model.Actor, pickupID int64, target string) (*model.Pickup, error) {
	p, err := store.GetPickup(ctx, a.DB, pickupID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, model.ErrNotFound
	}

	if actor.Role != model.RoleAgent {
		return nil, model.ErrForbidden
	}
	agent, err := store.GetAgentByUserID(ctx, a.DB, actor.UserID)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, model.ErrForbidden
	}

	if p.AgentID != nil && *p.AgentID != agent.ID {
		if target == model.StatusAccepted {
			return nil, model.ErrAlreadyAccepted
		}
		return nil, model.ErrNotAssigned
	}

	if target == "" || target != model.NextStatus(p.Status) {
		return nil, fmt.Errorf("%w: %s to %s", model.ErrInvalidTransition, p.Status, target)
	}

	if target == model.StatusAccepted {
		if agent.VerificationStatus != model.VerificationVerified {
			return nil, model.ErrNotVerified
		}
		ok, err := store.AcceptPickup(ctx, a.DB, pickupID, agent.ID, actor.UserID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, model.ErrAlreadyAccepted
		}
	} else {
		ok, err := store.AdvancePickup(ctx, a.DB, pickupID, agent.ID, p.Status, target, actor.UserID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, a.classify(ctx, pickupID, agent.ID, target)
		}
	}

	updated, err := store.GetPickup(ctx, a.DB, pickupID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, model.ErrNotFound
	}

	slog.Info("pickup status updated",
		"pickup", pickupID, "from", p.Status, "to", target,
		"agent", agent.ID, "user", actor.Username,
	)
	a.publish(updated, model.EventStatus)
	return updated, nil
}

// classify explains a conditional write that matched no row: someone else
// moved the pickup between the read and the write.
func (a *Authority) classify(ctx context.Context, pickupID, agentID int64, target string) error {
	current, err := store.GetPickup(ctx, a.DB, pickupID)
	if err != nil {
		return err
	}
	if current == nil {
		return model.ErrNotFound
	}
	if current.AgentID == nil || *current.AgentID != agentID {
		return model.ErrNotAssigned
	}
	return fmt.Errorf("%w: %s to %s", model.ErrInvalidTransition, current.Status, target)
}

// Created announces a new pending pickup.
func (a *Authority) Created(p *model.Pickup) {
	slog.Info("pickup created", "pickup", p.ID, "item", p.ItemID, "user", p.UserID)
	a.publish(p, model.EventCreated)
}

func (a *Authority) publish(p *model.Pickup, kind string) {
	if a.Publisher == nil {
		return
	}
	n := broadcast.Notice{
		PickupID: p.ID,
		Kind:     kind,
		Status:   p.Status,
		UserID:   p.UserID,
	}
	if p.AgentUserID != nil {
		n.AgentUserID = *p.AgentUserID
	}
	a.Publisher.Publish(n)
}
