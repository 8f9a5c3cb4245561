package model

import "time"

// AgentProfile extends a user with the agent role.
type AgentProfile struct {
	ID                 int64     `json:"id"`
	UserID             int64     `json:"user_id"`
	VerificationStatus string    `json:"verification_status"`
	CompletedPickups   int       `json:"completed_pickups"`
	CreatedAt          time.Time `json:"created_at"`

	// Joined fields (not always populated).
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Agent verification statuses.
const (
	VerificationPending  = "pending"
	VerificationVerified = "verified"
	VerificationRejected = "rejected"
)

// ValidVerification reports whether s is a known verification status.
func ValidVerification(s string) bool {
	switch s {
	case VerificationPending, VerificationVerified, VerificationRejected:
		return true
	}
	return false
}
