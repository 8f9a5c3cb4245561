package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/net/websocket"

	"github.com/erazemk/ecopickup/internal/model"
)

// ErrUnavailable reports that the notification channel is down. It is
// never fatal: the dashboard keeps serving what it last fetched.
var ErrUnavailable = errors.New("notification channel unavailable")

// SignalKind tells what a Signal carries.
type SignalKind int

const (
	// SignalConnected follows every (re)connect, after the requested
	// channels are joined. Hints may have been missed before it.
	SignalConnected SignalKind = iota
	// SignalDisconnected carries an error wrapping ErrUnavailable.
	SignalDisconnected
	// SignalJoined reports a channel joined on a live connection.
	SignalJoined
	// SignalEvent carries a pickup hint.
	SignalEvent
)

// Signal is one notification-channel occurrence delivered to the engine.
type Signal struct {
	Kind    SignalKind
	Channel string
	Event   model.PickupEvent
	Err     error
}

// Stream keeps a websocket to the server open for one session and
// reconnects with exponential backoff when it drops.
type Stream struct {
	URL     string
	Origin  string
	Session *Session
	// NewBackOff builds the reconnect schedule; exponential by default.
	NewBackOff func() backoff.BackOff

	mu       sync.Mutex
	client   *Client
	channels []string
	conn     *websocket.Conn
}

// NewStream returns a stream for s against the server c talks to. The
// session's user channel is always joined; channels adds to it.
func (c *Client) NewStream(s *Session, channels ...string) *Stream {
	return &Stream{
		URL:      c.streamURL(),
		Origin:   c.BaseURL,
		Session:  s,
		client:   c,
		channels: channels,
	}
}

// Join asks for channel on the current connection and on every later one.
func (st *Stream) Join(channel string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, ch := range st.channels {
		if ch == channel {
			return nil
		}
	}
	st.channels = append(st.channels, channel)
	if st.conn == nil {
		return nil
	}
	return websocket.JSON.Send(st.conn, model.Frame{Type: model.FrameJoin, Channel: channel})
}

// Leave drops channel.
func (st *Stream) Leave(channel string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	for i, ch := range st.channels {
		if ch == channel {
			st.channels = append(st.channels[:i], st.channels[i+1:]...)
			if st.conn == nil {
				return nil
			}
			return websocket.JSON.Send(st.conn, model.Frame{Type: model.FrameLeave, Channel: channel})
		}
	}
	return nil
}

func (st *Stream) newBackOff() backoff.BackOff {
	if st.NewBackOff != nil {
		return st.NewBackOff()
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	return b
}

// Run connects and delivers signals to out until ctx is done or the
// session ends.
func (st *Stream) Run(ctx context.Context, out chan<- Signal) error {
	emit := func(sig Signal) bool {
		select {
		case out <- sig:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		conn, err := backoff.Retry(ctx, func() (*websocket.Conn, error) {
			if !st.Session.Valid() {
				return nil, backoff.Permanent(ErrSessionExpired)
			}
			return st.dial(ctx)
		},
			backoff.WithBackOff(st.newBackOff()),
			backoff.WithNotify(func(err error, next time.Duration) {
				slog.Warn("notification channel reconnecting", "error", err, "retry_in", next)
			}),
		)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, ErrSessionExpired) {
			return err
		}
		if err != nil {
			// The retry window ran out; report and start a fresh one.
			if !emit(Signal{Kind: SignalDisconnected, Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}) {
				return ctx.Err()
			}
			continue
		}

		err = st.serve(ctx, conn, emit)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("notification channel lost", "error", err)
		if !emit(Signal{Kind: SignalDisconnected, Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}) {
			return ctx.Err()
		}
	}
}

func (st *Stream) dial(ctx context.Context) (*websocket.Conn, error) {
	config, err := websocket.NewConfig(st.URL, st.Origin)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("stream config: %w", err))
	}
	config.Header.Set("Authorization", "Bearer "+st.Session.Token)

	conn, err := config.DialContext(ctx)
	if err != nil && badStatus(err) && st.client != nil {
		// The handshake does not say why it was refused; a revoked or
		// expired token ends the session, anything else is retried.
		if _, meErr := st.client.Me(ctx, st.Session); errors.Is(meErr, ErrSessionExpired) {
			return nil, backoff.Permanent(ErrSessionExpired)
		}
	}
	return conn, err
}

func badStatus(err error) bool {
	var dialErr *websocket.DialError
	if errors.As(err, &dialErr) {
		err = dialErr.Err
	}
	return errors.Is(err, websocket.ErrBadStatus)
}

// serve joins the requested channels, signals Connected once they are
// acknowledged, and forwards frames until the connection drops.
func (st *Stream) serve(ctx context.Context, conn *websocket.Conn, emit func(Signal) bool) error {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer func() {
		st.mu.Lock()
		st.conn = nil
		st.mu.Unlock()
		conn.Close()
	}()

	// The server joins the user channel on its own; wait for that ack too.
	waiting := map[string]bool{model.ChannelUser: true}
	st.mu.Lock()
	st.conn = conn
	for _, ch := range st.channels {
		if err := websocket.JSON.Send(conn, model.Frame{Type: model.FrameJoin, Channel: ch}); err != nil {
			st.mu.Unlock()
			return err
		}
		waiting[ch] = true
	}
	st.mu.Unlock()

	connected := false
	for {
		var f model.Frame
		if err := websocket.JSON.Receive(conn, &f); err != nil {
			return err
		}

		switch f.Type {
		case model.FrameJoined:
			if !connected {
				delete(waiting, f.Channel)
				if len(waiting) == 0 {
					connected = true
					if !emit(Signal{Kind: SignalConnected}) {
						return ctx.Err()
					}
				}
				continue
			}
			if !emit(Signal{Kind: SignalJoined, Channel: f.Channel}) {
				return ctx.Err()
			}
		case model.FrameEvent:
			if f.Event == nil {
				continue
			}
			if !emit(Signal{Kind: SignalEvent, Event: *f.Event}) {
				return ctx.Err()
			}
		case model.FrameError:
			slog.Warn("notification channel refused request", "channel", f.Channel, "error", f.Error)
			if !connected && waiting[f.Channel] {
				delete(waiting, f.Channel)
				if len(waiting) == 0 {
					connected = true
					if !emit(Signal{Kind: SignalConnected}) {
						return ctx.Err()
					}
				}
			}
		}
	}
}
