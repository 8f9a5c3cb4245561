package broadcast

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erazemk/ecopickup/internal/model"
)

func next(t *testing.T, s *Subscription) model.PickupEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ev, err := s.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	return ev
}

func expectNothing(t *testing.T, s *Subscription) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if ev, err := s.Next(ctx); err == nil {
		t.Fatalf("expected no event, got %+v", ev)
	}
}

func TestNoticeChannels(t *testing.T) {
	cases := []struct {
		name string
		n    Notice
		want []string
	}{
		{"created", Notice{Kind: model.EventCreated, Status: model.StatusPending, UserID: 1},
			[]string{AdminChannel, "user:1", PoolChannel}},
		{"accepted", Notice{Kind: model.EventStatus, Status: model.StatusAccepted, UserID: 1, AgentUserID: 2},
			[]string{AdminChannel, "user:1", "user:2", PoolChannel}},
		{"on the way", Notice{Kind: model.EventStatus, Status: model.StatusOnTheWay, UserID: 1, AgentUserID: 2},
			[]string{AdminChannel, "user:1", "user:2"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.n.Channels()
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("got %v, want %v", got, tc.want)
				}
			}
		})
	}
}

func TestPublishRoutesToInterestedSessions(t *testing.T) {
	hub := NewHub(8)
	requester := hub.Subscribe(UserChannel(1))
	defer requester.Close()
	agent := hub.Subscribe(UserChannel(2), PoolChannel)
	defer agent.Close()
	otherAgent := hub.Subscribe(UserChannel(3), PoolChannel)
	defer otherAgent.Close()
	admin := hub.Subscribe(UserChannel(4), AdminChannel)
	defer admin.Close()
	stranger := hub.Subscribe(UserChannel(5))
	defer stranger.Close()

	hub.Publish(Notice{PickupID: 10, Kind: model.EventStatus, Status: model.StatusAccepted, UserID: 1, AgentUserID: 2})

	for name, s := range map[string]*Subscription{"requester": requester, "agent": agent, "other agent": otherAgent, "admin": admin} {
		ev := next(t, s)
		if ev.PickupID != 10 || ev.Status != model.StatusAccepted {
			t.Errorf("%s: unexpected event %+v", name, ev)
		}
	}
	// The agent is on both its user channel and the pool: one delivery.
	expectNothing(t, agent)
	expectNothing(t, stranger)

	hub.Publish(Notice{PickupID: 10, Kind: model.EventStatus, Status: model.StatusOnTheWay, UserID: 1, AgentUserID: 2})
	next(t, agent)
	expectNothing(t, otherAgent)
}

func TestSequenceIncreases(t *testing.T) {
	hub := NewHub(8)
	s := hub.Subscribe(AdminChannel)
	defer s.Close()

	first := hub.Publish(Notice{PickupID: 1, Kind: model.EventCreated, Status: model.StatusPending, UserID: 1})
	second := hub.Publish(Notice{PickupID: 2, Kind: model.EventCreated, Status: model.StatusPending, UserID: 1})
	if second.Seq <= first.Seq {
		t.Fatalf("expected increasing seq, got %d then %d", first.Seq, second.Seq)
	}
	if ev := next(t, s); ev.Seq != first.Seq {
		t.Errorf("expected seq %d first, got %d", first.Seq, ev.Seq)
	}
}

func TestJoinLeave(t *testing.T) {
	hub := NewHub(8)
	s := hub.Subscribe(UserChannel(2))
	defer s.Close()

	s.Join(PoolChannel)
	s.Join(PoolChannel)
	if n := hub.Subscribers(PoolChannel); n != 1 {
		t.Fatalf("expected 1 pool subscriber, got %d", n)
	}
	if !s.Joined(PoolChannel) {
		t.Fatal("expected subscription to be on the pool")
	}

	s.Leave(PoolChannel)
	if n := hub.Subscribers(PoolChannel); n != 0 {
		t.Fatalf("expected 0 pool subscribers, got %d", n)
	}
	hub.Publish(Notice{PickupID: 1, Kind: model.EventCreated, Status: model.StatusPending, UserID: 9})
	expectNothing(t, s)
}

func TestCloseIsIdempotentAndWakesReaders(t *testing.T) {
	hub := NewHub(8)
	s := hub.Subscribe(UserChannel(1), PoolChannel)

	done := make(chan error, 1)
	go func() {
		_, err := s.Next(context.Background())
		done <- err
	}()

	s.Close()
	s.Close()

	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Next did not return after Close")
	}

	if hub.Subscribers(PoolChannel) != 0 || hub.Subscribers(UserChannel(1)) != 0 {
		t.Error("closed subscription still registered")
	}
	s.Join(AdminChannel)
	if hub.Subscribers(AdminChannel) != 0 {
		t.Error("closed subscription joined a channel")
	}
}

func TestOverflowYieldsResync(t *testing.T) {
	hub := NewHub(2)
	s := hub.Subscribe(AdminChannel)
	defer s.Close()

	for i := range 5 {
		hub.Publish(Notice{PickupID: int64(i + 1), Kind: model.EventCreated, Status: model.StatusPending, UserID: 1})
	}

	if ev := next(t, s); ev.Kind != model.EventResync {
		t.Fatalf("expected resync, got %+v", ev)
	}
	expectNothing(t, s)

	hub.Publish(Notice{PickupID: 9, Kind: model.EventCreated, Status: model.StatusPending, UserID: 1})
	if ev := next(t, s); ev.PickupID != 9 {
		t.Errorf("expected pickup 9 after resync, got %+v", ev)
	}
}
