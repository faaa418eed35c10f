package syncchan

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/nrdvana/slidelink/internal/config"
)

type testServer struct {
	*httptest.Server
	conns    chan *websocket.Conn
	queries  chan string
	received chan Outbound
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		conns:    make(chan *websocket.Conn, 4),
		queries:  make(chan string, 4),
		received: make(chan Outbound, 16),
	}
	upgrader := websocket.Upgrader{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ts.queries <- r.URL.RawQuery
		ts.conns <- conn
		for {
			var msg Outbound
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			ts.received <- msg
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testServer) pageURL() string {
	return ts.URL + "/deck/"
}

func nextEvent(t *testing.T, c *Channel) Event {
	t.Helper()
	select {
	case ev := <-c.Events():
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for channel event")
		return Event{}
	}
}

func newChannel(ts *testServer, mode string, keys KeyProvider) *Channel {
	return New(Options{
		Address:          "/ws",
		PageURL:          ts.pageURL(),
		Mode:             mode,
		Keys:             keys,
		HandshakeTimeout: 2 * time.Second,
	}, zerolog.Nop())
}

func TestChannelConnectReceiveSend(t *testing.T) {
	ts := newTestServer(t)
	c := newChannel(ts, config.ModePresenter, StaticKey("k1"))
	defer c.Close()

	if c.State() != Disconnected {
		t.Fatalf("initial state = %v", c.State())
	}
	gen, err := c.Connect(context.Background())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	ev := nextEvent(t, c)
	if ev.Kind != EventOpen || ev.Gen != gen {
		t.Fatalf("expected open event for gen %d, got %+v", gen, ev)
	}
	if c.State() != Connected {
		t.Fatalf("state = %v", c.State())
	}
	if q := <-ts.queries; q != "mode=presenter&key=k1" {
		t.Fatalf("query = %q", q)
	}
	if !strings.HasPrefix(c.URL(), "ws://") {
		t.Fatalf("url = %q", c.URL())
	}

	server := <-ts.conns
	if err := server.WriteMessage(websocket.TextMessage, []byte(`{"roles":["lead"],"state":{"slide_num":2,"step_num":1}}`)); err != nil {
		t.Fatalf("server write: %v", err)
	}
	ev = nextEvent(t, c)
	if ev.Kind != EventMessage || ev.Message.State == nil || ev.Message.State.SlideNum != 2 {
		t.Fatalf("unexpected message event: %+v", ev)
	}
	if len(ev.Message.Roles) != 1 || ev.Message.Roles[0] != "lead" {
		t.Fatalf("roles = %v", ev.Message.Roles)
	}

	for i := 1; i <= 3; i++ {
		if err := c.Send(Outbound{SlideNum: i, StepNum: i}); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	for i := 1; i <= 3; i++ {
		select {
		case got := <-ts.received:
			if got.SlideNum != i {
				t.Fatalf("update %d arrived out of order: %+v", i, got)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for update")
		}
	}
}

func TestChannelObserverSkipsKey(t *testing.T) {
	ts := newTestServer(t)
	asked := false
	keys := KeyFunc(func(context.Context) (string, error) {
		asked = true
		return "nope", nil
	})
	c := newChannel(ts, config.ModeObserver, keys)
	defer c.Close()

	if _, err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if ev := nextEvent(t, c); ev.Kind != EventOpen {
		t.Fatalf("expected open, got %+v", ev)
	}
	if q := <-ts.queries; q != "mode=obs&key=" {
		t.Fatalf("query = %q", q)
	}
	if asked {
		t.Fatal("observer should not be asked for a key")
	}
}

func TestChannelServerCloseReportsDisconnect(t *testing.T) {
	ts := newTestServer(t)
	c := newChannel(ts, config.ModeObserver, nil)
	defer c.Close()

	gen, _ := c.Connect(context.Background())
	nextEvent(t, c)
	server := <-ts.conns
	server.Close()

	ev := nextEvent(t, c)
	if ev.Kind != EventClose || ev.Gen != gen {
		t.Fatalf("expected close for gen %d, got %+v", gen, ev)
	}
	if c.State() != Disconnected {
		t.Fatalf("state = %v", c.State())
	}
	if err := c.Send(Outbound{SlideNum: 1}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("send after close = %v", err)
	}
}

func TestChannelDisconnectReportsClose(t *testing.T) {
	ts := newTestServer(t)
	c := newChannel(ts, config.ModeObserver, nil)
	defer c.Close()

	c.Connect(context.Background())
	nextEvent(t, c)
	c.Disconnect()
	if ev := nextEvent(t, c); ev.Kind != EventClose {
		t.Fatalf("expected close, got %+v", ev)
	}
}

func TestChannelReconnectReplacesSocket(t *testing.T) {
	ts := newTestServer(t)
	c := newChannel(ts, config.ModeObserver, nil)
	defer c.Close()

	first, _ := c.Connect(context.Background())
	if ev := nextEvent(t, c); ev.Kind != EventOpen || ev.Gen != first {
		t.Fatalf("unexpected first event %+v", ev)
	}
	<-ts.conns

	second, _ := c.Connect(context.Background())
	if second == first {
		t.Fatal("reconnect should start a new generation")
	}
	ev := nextEvent(t, c)
	if ev.Kind != EventOpen || ev.Gen != second {
		t.Fatalf("expected open for gen %d, got %+v", second, ev)
	}

	// the replaced socket is torn down without a close event of its own
	select {
	case ev := <-c.Events():
		t.Fatalf("unexpected event from replaced socket: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestChannelDialFailure(t *testing.T) {
	c := New(Options{
		Address:          "ws://127.0.0.1:1/ws",
		Mode:             config.ModeObserver,
		HandshakeTimeout: time.Second,
	}, zerolog.Nop())
	defer c.Close()

	c.Connect(context.Background())
	ev := nextEvent(t, c)
	if ev.Kind != EventClose || ev.Err == nil {
		t.Fatalf("expected close with error, got %+v", ev)
	}
	if c.State() != Disconnected {
		t.Fatalf("state = %v", c.State())
	}
}

func TestChannelKeyFailure(t *testing.T) {
	ts := newTestServer(t)
	keys := KeyFunc(func(context.Context) (string, error) {
		return "", errors.New("prompt cancelled")
	})
	c := newChannel(ts, config.ModePresenter, keys)
	defer c.Close()

	c.Connect(context.Background())
	ev := nextEvent(t, c)
	if ev.Kind != EventClose || ev.Err == nil || !strings.Contains(ev.Err.Error(), "prompt cancelled") {
		t.Fatalf("expected close with key error, got %+v", ev)
	}
}

func TestChannelConnectAfterClose(t *testing.T) {
	c := New(Options{Mode: config.ModeObserver}, zerolog.Nop())
	c.Close()
	if _, err := c.Connect(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestChannelHeartbeatKeepsAlive(t *testing.T) {
	ts := newTestServer(t)
	c := New(Options{
		Address:          "/ws",
		PageURL:          ts.pageURL(),
		Mode:             config.ModeObserver,
		HandshakeTimeout: 2 * time.Second,
		Heartbeat:        20 * time.Millisecond,
		DeadAfter:        200 * time.Millisecond,
	}, zerolog.Nop())
	defer c.Close()

	c.Connect(context.Background())
	nextEvent(t, c)
	// the test server's read loop answers pings, so the socket must outlive DeadAfter
	select {
	case ev := <-c.Events():
		t.Fatalf("unexpected event while heartbeating: %+v", ev)
	case <-time.After(500 * time.Millisecond):
	}
	if c.State() != Connected {
		t.Fatalf("state = %v", c.State())
	}
}
