package broadcast

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/websocket"

	"github.com/erazemk/ecopickup/internal/model"
)

// testServer identifies callers from the "as" query parameter: id:role.
func testServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(&Server{
		Hub: hub,
		Identify: func(r *http.Request) (model.Actor, bool) {
			id, role, ok := strings.Cut(r.URL.Query().Get("as"), ":")
			if !ok {
				return model.Actor{}, false
			}
			uid, err := strconv.ParseInt(id, 10, 64)
			if err != nil {
				return model.Actor{}, false
			}
			return model.Actor{UserID: uid, Username: "u" + id, Role: role}, true
		},
	})
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, as string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?as=" + as
	conn, err := websocket.Dial(url, "", srv.URL)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func recv(t *testing.T, conn *websocket.Conn) model.Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f model.Frame
	if err := websocket.JSON.Receive(conn, &f); err != nil {
		t.Fatalf("receive: %v", err)
	}
	return f
}

func send(t *testing.T, conn *websocket.Conn, f model.Frame) {
	t.Helper()
	if err := websocket.JSON.Send(conn, f); err != nil {
		t.Fatalf("send: %v", err)
	}
}

func TestWebsocketRejectsAnonymous(t *testing.T) {
	srv := testServer(t, NewHub(8))
	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}
}

func TestWebsocketUserChannel(t *testing.T) {
	hub := NewHub(8)
	srv := testServer(t, hub)
	conn := dial(t, srv, "1:user")

	if f := recv(t, conn); f.Type != model.FrameJoined || f.Channel != model.ChannelUser {
		t.Fatalf("expected joined user, got %+v", f)
	}

	hub.Publish(Notice{PickupID: 7, Kind: model.EventCreated, Status: model.StatusPending, UserID: 1})
	f := recv(t, conn)
	if f.Type != model.FrameEvent || f.Event == nil || f.Event.PickupID != 7 {
		t.Fatalf("expected event for pickup 7, got %+v", f)
	}
}

func TestWebsocketPoolJoin(t *testing.T) {
	hub := NewHub(8)
	srv := testServer(t, hub)
	conn := dial(t, srv, "2:agent")
	recv(t, conn)

	send(t, conn, model.Frame{Type: model.FrameJoin, Channel: model.ChannelPool})
	if f := recv(t, conn); f.Type != model.FrameJoined || f.Channel != model.ChannelPool {
		t.Fatalf("expected joined pool, got %+v", f)
	}

	hub.Publish(Notice{PickupID: 3, Kind: model.EventCreated, Status: model.StatusPending, UserID: 1})
	if f := recv(t, conn); f.Event == nil || f.Event.PickupID != 3 {
		t.Fatalf("expected pool event, got %+v", f)
	}

	send(t, conn, model.Frame{Type: model.FrameLeave, Channel: model.ChannelPool})
	if f := recv(t, conn); f.Type != model.FrameLeft {
		t.Fatalf("expected left, got %+v", f)
	}
	if n := hub.Subscribers(PoolChannel); n != 0 {
		t.Errorf("expected empty pool, got %d", n)
	}
}

func TestWebsocketChannelPermissions(t *testing.T) {
	hub := NewHub(8)
	srv := testServer(t, hub)
	conn := dial(t, srv, "1:user")
	recv(t, conn)

	for _, ch := range []string{model.ChannelPool, model.ChannelAdmin, "user:2"} {
		send(t, conn, model.Frame{Type: model.FrameJoin, Channel: ch})
		if f := recv(t, conn); f.Type != model.FrameError {
			t.Errorf("join %s: expected error frame, got %+v", ch, f)
		}
	}
	if hub.Subscribers(PoolChannel) != 0 || hub.Subscribers(AdminChannel) != 0 {
		t.Error("user joined a restricted channel")
	}
}

func TestWebsocketCloseUnsubscribes(t *testing.T) {
	hub := NewHub(8)
	srv := testServer(t, hub)
	conn := dial(t, srv, "5:admin")
	recv(t, conn)
	send(t, conn, model.Frame{Type: model.FrameJoin, Channel: model.ChannelAdmin})
	recv(t, conn)

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers(AdminChannel) != 0 || hub.Subscribers(UserChannel(5)) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription not removed after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
