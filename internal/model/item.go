package model

import "time"

// Item is something a user hands over for pickup.
type Item struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	CategoryID   int64     `json:"category_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Action       string    `json:"action"`
	ImageCount   int       `json:"image_count"`
	CreatedAt    time.Time `json:"created_at"`
	CategoryName string    `json:"category_name,omitempty"`
}

// Item actions.
const (
	ActionSell   = "sell"
	ActionDonate = "donate"
	ActionScrap  = "scrap"
)

// MaxItemImages is the most images an item may carry.
const MaxItemImages = 5

// ValidAction reports whether a is a known item action.
func ValidAction(a string) bool {
	switch a {
	case ActionSell, ActionDonate, ActionScrap:
		return true
	}
	return false
}

// Category groups items in the catalog.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Icon        string    `json:"icon,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
