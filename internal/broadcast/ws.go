package broadcast

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/net/websocket"

	"github.com/erazemk/ecopickup/internal/model"
)

// Server exposes the hub over a websocket. Identify returns the caller of
// an upgrade request; requests it rejects get 401 before the upgrade.
type Server struct {
	Hub      *Hub
	Identify func(r *http.Request) (model.Actor, bool)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.Identify(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	// Tokens travel in headers or the query, never cookies, so the
	// upgrade does not need an Origin check.
	ws := websocket.Server{Handler: func(conn *websocket.Conn) {
		s.serve(conn, actor)
	}}
	ws.ServeHTTP(w, r)
}

// resolve maps a requested channel name to a hub channel actor may join.
func resolve(actor model.Actor, name string) (string, bool) {
	switch name {
	case model.ChannelUser:
		return UserChannel(actor.UserID), true
	case model.ChannelPool:
		return PoolChannel, actor.Role == model.RoleAgent
	case model.ChannelAdmin:
		return AdminChannel, actor.Role == model.RoleAdmin
	}
	return "", false
}

type peer struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (p *peer) send(f model.Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return websocket.JSON.Send(p.conn, f)
}

func (s *Server) serve(conn *websocket.Conn, actor model.Actor) {
	defer conn.Close()

	sub := s.Hub.Subscribe(UserChannel(actor.UserID))
	defer sub.Close()

	p := &peer{conn: conn}
	log := slog.With("session", sub.ID, "user", actor.Username, "role", actor.Role)
	log.Info("notification session opened")
	defer log.Info("notification session closed")

	if err := p.send(model.Frame{Type: model.FrameJoined, Channel: model.ChannelUser}); err != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		defer conn.Close()
		for {
			ev, err := sub.Next(ctx)
			if err != nil {
				return
			}
			if err := p.send(model.Frame{Type: model.FrameEvent, Event: &ev}); err != nil {
				return
			}
		}
	}()

	for {
		var f model.Frame
		if err := websocket.JSON.Receive(conn, &f); err != nil {
			return
		}

		channel, ok := resolve(actor, f.Channel)
		if !ok {
			if err := p.send(model.Frame{Type: model.FrameError, Channel: f.Channel, Error: "channel not allowed"}); err != nil {
				return
			}
			continue
		}

		var reply model.Frame
		switch f.Type {
		case model.FrameJoin:
			sub.Join(channel)
			reply = model.Frame{Type: model.FrameJoined, Channel: f.Channel}
		case model.FrameLeave:
			sub.Leave(channel)
			reply = model.Frame{Type: model.FrameLeft, Channel: f.Channel}
		default:
			reply = model.Frame{Type: model.FrameError, Channel: f.Channel, Error: "unknown frame type"}
		}
		if err := p.send(reply); err != nil {
			return
		}
	}
}
