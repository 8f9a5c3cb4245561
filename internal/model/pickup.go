package model

import "time"

// Pickup statuses, in lifecycle order.
const (
	StatusPending   = "pending"
	StatusAccepted  = "accepted"
	StatusOnTheWay  = "on_the_way"
	StatusPicked    = "picked"
	StatusCompleted = "completed"
)

// Statuses lists every pickup status in lifecycle order.
var Statuses = []string{StatusPending, StatusAccepted, StatusOnTheWay, StatusPicked, StatusCompleted}

// StatusRank returns the position of status in the lifecycle, or -1 if unknown.
func StatusRank(status string) int {
	for i, s := range Statuses {
		if s == status {
			return i
		}
	}
	return -1
}

// ValidStatus reports whether status is a known pickup status.
func ValidStatus(status string) bool {
	return StatusRank(status) >= 0
}

// NextStatus returns the only status a pickup may move to from current.
// It returns "" for completed and unknown statuses.
func NextStatus(current string) string {
	i := StatusRank(current)
	if i < 0 || i == len(Statuses)-1 {
		return ""
	}
	return Statuses[i+1]
}

// Pickup is the tracked request for an agent to collect a user's item.
type Pickup struct {
	ID          int64      `json:"id"`
	ItemID      int64      `json:"item_id"`
	UserID      int64      `json:"user_id"`
	AgentID     *int64     `json:"agent_id,omitempty"`
	AgentUserID *int64     `json:"agent_user_id,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	OnTheWayAt  *time.Time `json:"on_the_way_at,omitempty"`
	PickedAt    *time.Time `json:"picked_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Joined summaries (populated by reads).
	Item  *ItemSummary `json:"item,omitempty"`
	User  *UserSummary `json:"user,omitempty"`
	Agent *UserSummary `json:"agent,omitempty"`
}

// ItemSummary is the item part of a pickup read.
type ItemSummary struct {
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	Action       string `json:"action"`
	CategoryName string `json:"category_name,omitempty"`
	ImageCount   int    `json:"image_count"`
}

// UserSummary is the contact part of a pickup read.
type UserSummary struct {
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}

// EnteredAt returns when the pickup entered status, or nil if it has not.
func (p *Pickup) EnteredAt(status string) *time.Time {
	switch status {
	case StatusPending:
		return &p.CreatedAt
	case StatusAccepted:
		return p.AcceptedAt
	case StatusOnTheWay:
		return p.OnTheWayAt
	case StatusPicked:
		return p.PickedAt
	case StatusCompleted:
		return p.CompletedAt
	}
	return nil
}

// PickupHistory records one status a pickup entered.
type PickupHistory struct {
	PickupID  int64     `json:"pickup_id"`
	Status    string    `json:"status"`
	ActorID   *int64    `json:"actor_id,omitempty"`
	EnteredAt time.Time `json:"entered_at"`
}

// Analytics holds the admin dashboard aggregates.
type Analytics struct {
	TotalUsers       int `json:"total_users"`
	TotalAgents      int `json:"total_agents"`
	TotalItems       int `json:"total_items"`
	TotalPickups     int `json:"total_pickups"`
	CompletedPickups int `json:"completed_pickups"`
	PendingPickups   int `json:"pending_pickups"`
}
