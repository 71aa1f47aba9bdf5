package relay_test

import (
	"encoding/json"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/BioHazard786/huddle/internal/relay"
	"github.com/BioHazard786/huddle/internal/signaling"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
)

func startRelay(t *testing.T) string {
	t.Helper()

	hub := relay.NewHub()
	go hub.Run()
	srv := httptest.NewServer(relay.NewMux(hub, "ws"))
	t.Cleanup(func() {
		srv.Close()
		hub.Close()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, base, room string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(base+"/ws/"+room, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) signaling.Message {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg signaling.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func expect(t *testing.T, conn *websocket.Conn, typ string) signaling.Message {
	t.Helper()

	msg := read(t, conn)
	if msg.Type != typ {
		t.Fatalf("got %q message, want %q", msg.Type, typ)
	}
	return msg
}

func TestJoinAnnouncesMembership(t *testing.T) {
	base := startRelay(t)

	a := dial(t, base, "room1")
	idA := expect(t, a, signaling.MessageTypeID).ID
	if peers := expect(t, a, signaling.MessageTypePeers).Peers; len(peers) != 1 || peers[0] != idA {
		t.Fatalf("first joiner peers = %v", peers)
	}

	b := dial(t, base, "room1")
	idB := expect(t, b, signaling.MessageTypeID).ID
	if idA == idB {
		t.Fatal("ids must be unique")
	}

	want := []string{idA, idB}
	sort.Strings(want)
	for _, conn := range []*websocket.Conn{a, b} {
		peers := expect(t, conn, signaling.MessageTypePeers).Peers
		sort.Strings(peers)
		if strings.Join(peers, ",") != strings.Join(want, ",") {
			t.Fatalf("peers = %v, want %v", peers, want)
		}
	}
}

func TestForwardFillsFrom(t *testing.T) {
	base := startRelay(t)

	a := dial(t, base, "room2")
	idA := expect(t, a, signaling.MessageTypeID).ID
	expect(t, a, signaling.MessageTypePeers)

	b := dial(t, base, "room2")
	idB := expect(t, b, signaling.MessageTypeID).ID
	expect(t, b, signaling.MessageTypePeers)
	expect(t, a, signaling.MessageTypePeers)

	offer := signaling.Message{
		Type: signaling.MessageTypeOffer,
		To:   idA,
		SDP:  &webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0\r\n"},
	}
	if err := b.WriteJSON(offer); err != nil {
		t.Fatal(err)
	}

	got := expect(t, a, signaling.MessageTypeOffer)
	if got.From != idB {
		t.Fatalf("from = %q, want %q", got.From, idB)
	}
	if got.SDP == nil || got.SDP.SDP != "v=0\r\n" {
		t.Fatalf("sdp not forwarded: %+v", got.SDP)
	}
}

func TestForwardKeepsUnknownFields(t *testing.T) {
	base := startRelay(t)

	a := dial(t, base, "room5")
	idA := expect(t, a, signaling.MessageTypeID).ID
	expect(t, a, signaling.MessageTypePeers)

	b := dial(t, base, "room5")
	idB := expect(t, b, signaling.MessageTypeID).ID
	expect(t, b, signaling.MessageTypePeers)
	expect(t, a, signaling.MessageTypePeers)

	sent := `{"type":"candidate","to":"` + idA + `","candidate":{"candidate":"c1"},"extra":"keep"}`
	if err := b.WriteMessage(websocket.TextMessage, []byte(sent)); err != nil {
		t.Fatal(err)
	}

	a.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := a.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatal(err)
	}
	if string(fields["extra"]) != `"keep"` {
		t.Fatalf("extra field lost: %s", data)
	}
	if string(fields["from"]) != `"`+idB+`"` {
		t.Fatalf("from not filled: %s", data)
	}

	// A frame that already names its sender is forwarded byte for byte.
	withFrom := `{"type":"candidate","from":"custom","to":"` + idA + `","candidate":{"candidate":"c2"},"extra":1}`
	if err := b.WriteMessage(websocket.TextMessage, []byte(withFrom)); err != nil {
		t.Fatal(err)
	}
	a.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, data, err = a.ReadMessage(); err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != withFrom {
		t.Fatalf("forwarded %s, want %s", data, withFrom)
	}
}

func TestLeaveWithoutIDDropsClient(t *testing.T) {
	base := startRelay(t)

	a := dial(t, base, "room6")
	expect(t, a, signaling.MessageTypeID)
	expect(t, a, signaling.MessageTypePeers)

	b := dial(t, base, "room6")
	idB := expect(t, b, signaling.MessageTypeID).ID
	expect(t, a, signaling.MessageTypePeers)

	if err := b.WriteJSON(signaling.Leave("", "room6")); err != nil {
		t.Fatal(err)
	}

	if got := expect(t, a, signaling.MessageTypeLeave).ID; got != idB {
		t.Fatalf("leave id = %q, want %q", got, idB)
	}
}

func TestRoomsAreIsolated(t *testing.T) {
	base := startRelay(t)

	a := dial(t, base, "north")
	expect(t, a, signaling.MessageTypeID)
	expect(t, a, signaling.MessageTypePeers)

	b := dial(t, base, "south")
	idB := expect(t, b, signaling.MessageTypeID).ID
	if peers := expect(t, b, signaling.MessageTypePeers).Peers; len(peers) != 1 || peers[0] != idB {
		t.Fatalf("peers = %v", peers)
	}
}

func TestDisconnectBroadcastsLeave(t *testing.T) {
	base := startRelay(t)

	a := dial(t, base, "room3")
	expect(t, a, signaling.MessageTypeID)
	expect(t, a, signaling.MessageTypePeers)

	b := dial(t, base, "room3")
	idB := expect(t, b, signaling.MessageTypeID).ID
	expect(t, a, signaling.MessageTypePeers)

	b.Close()

	if got := expect(t, a, signaling.MessageTypeLeave).ID; got != idB {
		t.Fatalf("leave id = %q, want %q", got, idB)
	}
}

func TestLeaveMessageDropsClient(t *testing.T) {
	base := startRelay(t)

	a := dial(t, base, "room4")
	expect(t, a, signaling.MessageTypeID)
	expect(t, a, signaling.MessageTypePeers)

	b := dial(t, base, "room4")
	idB := expect(t, b, signaling.MessageTypeID).ID
	expect(t, a, signaling.MessageTypePeers)

	if err := b.WriteJSON(signaling.Leave(idB, "room4")); err != nil {
		t.Fatal(err)
	}

	if got := expect(t, a, signaling.MessageTypeLeave).ID; got != idB {
		t.Fatalf("leave id = %q, want %q", got, idB)
	}
}

func TestMissingRoomRejected(t *testing.T) {
	base := startRelay(t)

	if _, _, err := websocket.DefaultDialer.Dial(base+"/ws/", nil); err == nil {
		t.Fatal("expected dial without room to fail")
	}
}
