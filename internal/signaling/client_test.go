package signaling

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// echoServer accepts one connection, hands it to the test and keeps the
// handler alive until the test finishes.
func echoServer(t *testing.T) (string, <-chan *websocket.Conn) {
	t.Helper()

	conns := make(chan *websocket.Conn, 1)
	done := make(chan struct{})
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- conn
		<-done
	}))
	t.Cleanup(func() {
		close(done)
		srv.Close()
	})

	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/room", conns
}

func accept(t *testing.T, conns <-chan *websocket.Conn) *websocket.Conn {
	t.Helper()

	select {
	case conn := <-conns:
		t.Cleanup(func() { conn.Close() })
		return conn
	case <-time.After(5 * time.Second):
		t.Fatal("no connection")
		return nil
	}
}

func receive(t *testing.T, c *Client) (Message, bool) {
	t.Helper()

	select {
	case msg, ok := <-c.Incoming():
		return msg, ok
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}, false
	}
}

func TestClientSendsJoinOnOpen(t *testing.T) {
	url, conns := echoServer(t)

	c, err := Connect(context.Background(), url, "room", "ana", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	server := accept(t, conns)
	server.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg Message
	if err := server.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != MessageTypeJoin || msg.Room != "room" || msg.Name != "ana" {
		t.Fatalf("first message = %+v", msg)
	}
}

func TestClientDeliversInOrderAndDropsMalformed(t *testing.T) {
	url, conns := echoServer(t)

	c, err := Connect(context.Background(), url, "room", "ana", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	server := accept(t, conns)
	for _, payload := range []string{
		`{"type":"id","id":"me"}`,
		`garbage`,
		`{"type":"offer","from":"x"}`,
		`{"type":"peers","peers":["me","other"]}`,
		`{"type":"leave","id":"other"}`,
	} {
		if err := server.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
			t.Fatal(err)
		}
	}

	var got []string
	for range 3 {
		msg, ok := receive(t, c)
		if !ok {
			t.Fatal("channel closed early")
		}
		got = append(got, msg.Type)
	}
	if strings.Join(got, ",") != "id,peers,leave" {
		t.Fatalf("got %v", got)
	}
}

func TestClientRemoteCloseEndsIncoming(t *testing.T) {
	url, conns := echoServer(t)

	c, err := Connect(context.Background(), url, "room", "ana", nil)
	if err != nil {
		t.Fatal(err)
	}

	server := accept(t, conns)
	server.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	server.Close()

	if _, ok := receive(t, c); ok {
		t.Fatal("expected incoming to close")
	}
	if c.IsOpen() {
		t.Fatal("client still reports open")
	}
	if c.Send(Leave("me", "room")) {
		t.Fatal("send on closed channel should be dropped")
	}
}

func TestClientCloseFlushesQueued(t *testing.T) {
	url, conns := echoServer(t)

	c, err := Connect(context.Background(), url, "room", "ana", nil)
	if err != nil {
		t.Fatal(err)
	}
	server := accept(t, conns)

	c.Send(Leave("me", "room"))
	c.Close()
	c.Close()

	server.SetReadDeadline(time.Now().Add(5 * time.Second))
	var types []string
	for {
		var msg Message
		if err := server.ReadJSON(&msg); err != nil {
			break
		}
		types = append(types, msg.Type)
	}
	if strings.Join(types, ",") != "join,leave" {
		t.Fatalf("server saw %v", types)
	}
}

func TestConnectFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := Connect(ctx, "ws://127.0.0.1:1/ws/room", "room", "ana", nil); err == nil {
		t.Fatal("expected dial error")
	}
}
