// Package broadcast fans pickup change hints out to connected sessions.
package broadcast

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/erazemk/ecopickup/internal/model"
)

// ErrClosed is returned by Next after the subscription is closed.
var ErrClosed = errors.New("subscription closed")

// DefaultBuffer is the per-session queue length before a session is
// considered lagged.
const DefaultBuffer = 64

// Hub channel names. User channels are keyed by user id.
const (
	PoolChannel  = "pool"
	AdminChannel = "admin"
)

// UserChannel returns the channel of one user.
func UserChannel(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}

// Notice describes a pickup change to route. Only PickupID, Kind and
// Status reach subscribers; the ids pick the channels.
type Notice struct {
	PickupID    int64
	Kind        string
	Status      string
	UserID      int64
	AgentUserID int64
}

// Channels returns the channels interested in n: the requester, the
// assigned agent, administrators, and the pending pool when the pickup
// enters or leaves it.
func (n Notice) Channels() []string {
	channels := []string{AdminChannel, UserChannel(n.UserID)}
	if n.AgentUserID != 0 {
		channels = append(channels, UserChannel(n.AgentUserID))
	}
	if n.Status == model.StatusPending || n.Status == model.StatusAccepted {
		channels = append(channels, PoolChannel)
	}
	return channels
}

// Hub keeps channel membership and delivers events to subscriptions.
type Hub struct {
	mu       sync.Mutex
	seq      uint64
	buffer   int
	channels map[string]map[*Subscription]struct{}
}

// NewHub creates a hub whose subscriptions queue up to buffer events.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		buffer:   buffer,
		channels: make(map[string]map[*Subscription]struct{}),
	}
}

// Subscribe creates a subscription joined to the given channels.
// The caller must Close it.
func (h *Hub) Subscribe(channels ...string) *Subscription {
	s := &Subscription{
		ID:     uuid.NewString(),
		hub:    h,
		events: make(chan model.PickupEvent, h.buffer),
		done:   make(chan struct{}),
		joined: make(map[string]struct{}),
	}
	for _, ch := range channels {
		s.Join(ch)
	}
	return s
}

// Publish delivers n to every subscription on any of its channels, once
// per subscription. A subscription whose queue is full is marked lagged
// and will be told to resync.
func (h *Hub) Publish(n Notice) model.PickupEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	ev := model.PickupEvent{Seq: h.seq, PickupID: n.PickupID, Kind: n.Kind, Status: n.Status}

	targets := make(map[*Subscription]struct{})
	for _, ch := range n.Channels() {
		for s := range h.channels[ch] {
			targets[s] = struct{}{}
		}
	}
	for s := range targets {
		select {
		case s.events <- ev:
		default:
			s.lagged.Store(true)
		}
	}
	return ev
}

// Subscribers returns how many subscriptions are on channel.
func (h *Hub) Subscribers(channel string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.channels[channel])
}

func (h *Hub) add(channel string, s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.channels[channel]
	if !ok {
		members = make(map[*Subscription]struct{})
		h.channels[channel] = members
	}
	members[s] = struct{}{}
}

func (h *Hub) remove(channel string, s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members := h.channels[channel]
	delete(members, s)
	if len(members) == 0 {
		delete(h.channels, channel)
	}
}

// Subscription is one session's membership in the hub.
type Subscription struct {
	ID string

	hub       *Hub
	events    chan model.PickupEvent
	done      chan struct{}
	lagged    atomic.Bool
	closeOnce sync.Once

	mu     sync.Mutex
	closed bool
	joined map[string]struct{}
}

// Join adds the subscription to channel. Joining twice is a no-op.
func (s *Subscription) Join(channel string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if _, ok := s.joined[channel]; ok {
		return
	}
	s.joined[channel] = struct{}{}
	s.hub.add(channel, s)
}

// Leave removes the subscription from channel.
func (s *Subscription) Leave(channel string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.joined[channel]; !ok {
		return
	}
	delete(s.joined, channel)
	s.hub.remove(channel, s)
}

// Joined reports whether the subscription is on channel.
func (s *Subscription) Joined(channel string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.joined[channel]
	return ok
}

// Next blocks until an event is available, the subscription is closed, or
// ctx is done. After an overflow it returns a single resync event and
// discards the queued hints it replaces.
func (s *Subscription) Next(ctx context.Context) (model.PickupEvent, error) {
	if s.lagged.CompareAndSwap(true, false) {
		s.drain()
		return model.PickupEvent{Kind: model.EventResync}, nil
	}

	select {
	case ev := <-s.events:
		return ev, nil
	case <-s.done:
		return model.PickupEvent{}, ErrClosed
	case <-ctx.Done():
		return model.PickupEvent{}, ctx.Err()
	}
}

func (s *Subscription) drain() {
	for {
		select {
		case <-s.events:
		default:
			return
		}
	}
}

// Close leaves every channel and wakes pending Next calls. It is safe to
// call more than once.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		for ch := range s.joined {
			s.hub.remove(ch, s)
		}
		s.joined = map[string]struct{}{}
		s.mu.Unlock()
		close(s.done)
	})
}
