// Package dashboard derives each role's view from a synchronized pickup
// cache. Every function is pure; none of them changes its input.
package dashboard

import (
	"time"

	"github.com/erazemk/ecopickup/internal/model"
)

func filter(pickups []model.Pickup, keep func(*model.Pickup) bool) []model.Pickup {
	out := []model.Pickup{}
	for i := range pickups {
		if keep(&pickups[i]) {
			out = append(out, pickups[i])
		}
	}
	return out
}

// Requester returns the pickups userID asked for.
func Requester(pickups []model.Pickup, userID int64) []model.Pickup {
	return filter(pickups, func(p *model.Pickup) bool { return p.UserID == userID })
}

// AgentPending returns the pending pool.
func AgentPending(pickups []model.Pickup) []model.Pickup {
	return filter(pickups, func(p *model.Pickup) bool { return p.Status == model.StatusPending })
}

// AgentMine returns the pickups bound to agentID.
func AgentMine(pickups []model.Pickup, agentID int64) []model.Pickup {
	return filter(pickups, func(p *model.Pickup) bool { return p.AgentID != nil && *p.AgentID == agentID })
}

// Group is the pickups in one status.
type Group struct {
	Status  string
	Pickups []model.Pickup
}

// GroupByStatus splits pickups by status in lifecycle order. Every status
// has a group, possibly empty.
func GroupByStatus(pickups []model.Pickup) []Group {
	groups := make([]Group, len(model.Statuses))
	for i, s := range model.Statuses {
		groups[i] = Group{Status: s, Pickups: []model.Pickup{}}
	}
	for _, p := range pickups {
		if i := model.StatusRank(p.Status); i >= 0 {
			groups[i].Pickups = append(groups[i].Pickups, p)
		}
	}
	return groups
}

// AdminView is the administrator dashboard.
type AdminView struct {
	Analytics model.Analytics
	// CompletionRate is completed over total pickups in the store, 0 when
	// there are none.
	CompletionRate float64
	Groups         []Group
	Pickups        []model.Pickup
}

// Admin builds the administrator view. Counts come from the store-wide
// analytics, not from the cached pickups.
func Admin(pickups []model.Pickup, analytics *model.Analytics) AdminView {
	v := AdminView{
		Groups:  GroupByStatus(pickups),
		Pickups: filter(pickups, func(*model.Pickup) bool { return true }),
	}
	if analytics != nil {
		v.Analytics = *analytics
		if analytics.TotalPickups > 0 {
			v.CompletionRate = float64(analytics.CompletedPickups) / float64(analytics.TotalPickups)
		}
	}
	return v
}

// Step is one stage of a pickup's progress.
type Step struct {
	Status  string
	Reached bool
	Current bool
	At      *time.Time
}

// Timeline returns the five lifecycle stages of p with the ones it has
// reached marked.
func Timeline(p model.Pickup) []Step {
	rank := model.StatusRank(p.Status)
	steps := make([]Step, len(model.Statuses))
	for i, s := range model.Statuses {
		steps[i] = Step{
			Status:  s,
			Reached: rank >= 0 && i <= rank,
			Current: i == rank,
		}
		if steps[i].Reached {
			steps[i].At = p.EnteredAt(s)
		}
	}
	return steps
}
