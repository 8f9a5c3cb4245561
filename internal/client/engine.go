package client

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/erazemk/ecopickup/internal/model"
)

// Snapshot is a consistent view of an engine's cache.
type Snapshot struct {
	Pickups   []model.Pickup
	Analytics *model.Analytics
	// Connected reports whether the notification channel is up. While it
	// is down the view only changes on polls and own actions.
	Connected bool
	// Err is the last fetch or channel error, cleared by the next
	// successful read.
	Err     error
	Version uint64
}

// DefaultChannels returns the notification channels a role's dashboard
// listens on besides its own user channel.
func DefaultChannels(role string) []string {
	switch role {
	case model.RoleAgent:
		return []string{model.ChannelPool}
	case model.RoleAdmin:
		return []string{model.ChannelAdmin}
	}
	return nil
}

// Engine keeps one session's pickup cache in step with the server.
//
// A single goroutine owns the cache. Mounting, notifications, reconnects,
// polls and own actions all end in the same re-read path; notification
// payloads are never applied directly.
type Engine struct {
	Client  *Client
	Session *Session
	// Stream is optional; without it the engine fetches on mount, on
	// polls and after own actions.
	Stream       *Stream
	PollInterval time.Duration

	kick    chan struct{}
	changes chan struct{}

	reqMu    sync.Mutex
	wantFull bool
	wantIDs  map[int64]bool

	mu   sync.RWMutex
	snap Snapshot
}

// NewEngine returns an engine for session s.
func NewEngine(c *Client, s *Session) *Engine {
	return &Engine{
		Client:  c,
		Session: s,
		kick:    make(chan struct{}, 1),
		changes: make(chan struct{}, 1),
		wantIDs: make(map[int64]bool),
	}
}

// Snapshot returns the current view.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap
}

// Changes receives a value whenever the snapshot may have changed.
func (e *Engine) Changes() <-chan struct{} {
	return e.changes
}

// Refresh asks the engine to re-read one pickup, or everything when id
// is zero.
func (e *Engine) Refresh(id int64) {
	e.reqMu.Lock()
	if id == 0 {
		e.wantFull = true
	} else {
		e.wantIDs[id] = true
	}
	e.reqMu.Unlock()

	select {
	case e.kick <- struct{}{}:
	default:
	}
}

// Accept claims a pending pickup. The cache is only updated by the
// re-read that follows, whether or not the claim succeeded.
func (e *Engine) Accept(ctx context.Context, id int64) error {
	_, err := e.Client.Accept(ctx, e.Session, id)
	e.Refresh(id)
	return err
}

// Advance moves an assigned pickup to status, then re-reads it.
func (e *Engine) Advance(ctx context.Context, id int64, status string) error {
	_, err := e.Client.UpdateStatus(ctx, e.Session, id, status)
	e.Refresh(id)
	return err
}

// Run mounts the engine and keeps the cache in sync until ctx is done,
// which unmounts it. It returns nil on unmount and ErrSessionExpired when
// the session ends.
func (e *Engine) Run(ctx context.Context) error {
	if !e.Session.Valid() {
		return ErrSessionExpired
	}

	g, ctx := errgroup.WithContext(ctx)
	signals := make(chan Signal)
	if e.Stream != nil {
		g.Go(func() error { return e.Stream.Run(ctx, signals) })
	}
	g.Go(func() error { return e.loop(ctx, signals) })

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

type fetchResult struct {
	seq       uint64
	full      bool
	id        int64
	pickups   []model.Pickup
	pickup    *model.Pickup
	analytics *model.Analytics
	err       error
}

type loopState struct {
	cache        *cache
	seq          uint64
	fullInFlight bool
	fullAgain    bool
	connected    bool
	err          error
	results      chan fetchResult
}

func (e *Engine) loop(ctx context.Context, signals <-chan Signal) error {
	st := &loopState{cache: newCache(), results: make(chan fetchResult)}

	var tick <-chan time.Time
	if e.PollInterval > 0 {
		t := time.NewTicker(e.PollInterval)
		defer t.Stop()
		tick = t.C
	}

	e.requestFull(ctx, st)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case sig := <-signals:
			e.handleSignal(ctx, st, sig)

		case <-e.kick:
			e.reqMu.Lock()
			full, ids := e.wantFull, e.wantIDs
			e.wantFull, e.wantIDs = false, make(map[int64]bool)
			e.reqMu.Unlock()
			if full {
				e.requestFull(ctx, st)
			}
			for id := range ids {
				e.requestOne(ctx, st, id)
			}

		case <-tick:
			e.requestFull(ctx, st)

		case r := <-st.results:
			if err := e.apply(ctx, st, r); err != nil {
				return err
			}
		}
	}
}

func (e *Engine) handleSignal(ctx context.Context, st *loopState, sig Signal) {
	switch sig.Kind {
	case SignalConnected:
		st.connected = true
		e.requestFull(ctx, st)
		e.publish(st)
	case SignalDisconnected:
		st.connected = false
		st.err = sig.Err
		e.publish(st)
	case SignalJoined:
		if sig.Channel != model.ChannelUser {
			e.requestFull(ctx, st)
		}
	case SignalEvent:
		ev := sig.Event
		switch {
		case ev.Kind == model.EventResync, e.Session.Role == model.RoleAdmin:
			e.requestFull(ctx, st)
		case st.cache.has(ev.PickupID):
			e.requestOne(ctx, st, ev.PickupID)
		default:
			e.requestFull(ctx, st)
		}
	}
}

// requestFull starts a read of the whole visible set. A request made
// while one is in flight is folded into a single follow-up read.
func (e *Engine) requestFull(ctx context.Context, st *loopState) {
	if st.fullInFlight {
		st.fullAgain = true
		return
	}
	st.fullInFlight = true
	st.seq++
	seq := st.seq
	admin := e.Session.Role == model.RoleAdmin

	go func() {
		r := fetchResult{seq: seq, full: true}
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			r.pickups, err = e.Client.Pickups(gctx, e.Session, "")
			return err
		})
		if admin {
			g.Go(func() error {
				var err error
				r.analytics, err = e.Client.Analytics(gctx, e.Session)
				return err
			})
		}
		r.err = g.Wait()
		e.deliver(ctx, st, r)
	}()
}

func (e *Engine) requestOne(ctx context.Context, st *loopState, id int64) {
	st.seq++
	seq := st.seq

	go func() {
		r := fetchResult{seq: seq, id: id}
		p, err := e.Client.Pickup(ctx, e.Session, id)
		switch {
		case errors.Is(err, model.ErrNotFound):
			// No longer visible to this session.
		case err != nil:
			r.err = err
		default:
			r.pickup = p
		}
		e.deliver(ctx, st, r)
	}()
}

func (e *Engine) deliver(ctx context.Context, st *loopState, r fetchResult) {
	select {
	case st.results <- r:
	case <-ctx.Done():
	}
}

func (e *Engine) apply(ctx context.Context, st *loopState, r fetchResult) error {
	if r.full {
		st.fullInFlight = false
		if st.fullAgain {
			st.fullAgain = false
			e.requestFull(ctx, st)
		}
	}

	if r.err != nil {
		if errors.Is(r.err, ErrSessionExpired) {
			return r.err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("pickup fetch failed", "user", e.Session.Username, "error", r.err)
		st.err = r.err
		e.publish(st)
		return nil
	}

	if r.full {
		st.cache.putList(r.seq, r.pickups)
		st.cache.putAnalytics(r.seq, r.analytics)
	} else if r.pickup != nil {
		st.cache.put(r.seq, *r.pickup)
	} else {
		st.cache.drop(r.seq, r.id)
	}
	// A channel outage stays reported until the stream reconnects.
	if st.connected || !errors.Is(st.err, ErrUnavailable) {
		st.err = nil
	}
	e.publish(st)
	return nil
}

func (e *Engine) publish(st *loopState) {
	e.mu.Lock()
	e.snap = Snapshot{
		Pickups:   st.cache.list(),
		Analytics: st.cache.analytics,
		Connected: st.connected,
		Err:       st.err,
		Version:   e.snap.Version + 1,
	}
	e.mu.Unlock()

	select {
	case e.changes <- struct{}{}:
	default:
	}
}
