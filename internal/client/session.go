package client

import (
	"errors"
	"sync"
	"time"

	"github.com/erazemk/ecopickup/internal/model"
)

// ErrSessionExpired is returned once a session is logged out, expired, or
// rejected by the server.
var ErrSessionExpired = errors.New("session expired")

// Session is the identity a dashboard acts under. It is created by
// Client.Login and ends with Client.Logout, at ExpiresAt, or when the
// server rejects its token.
type Session struct {
	Token     string
	UserID    int64
	Username  string
	Role      string
	AgentID   int64
	ExpiresAt time.Time

	mu          sync.Mutex
	invalidated bool
	now         func() time.Time
}

// Valid reports whether the session can still be used.
func (s *Session) Valid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.invalidated {
		return false
	}
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	return s.ExpiresAt.IsZero() || now().Before(s.ExpiresAt)
}

// Invalidate ends the session locally.
func (s *Session) Invalidate() {
	s.mu.Lock()
	s.invalidated = true
	s.mu.Unlock()
}

// Actor returns the identity of the session.
func (s *Session) Actor() model.Actor {
	return model.Actor{UserID: s.UserID, Username: s.Username, Role: s.Role}
}
