package relay

import (
	"encoding/json"
	"log/slog"

	"github.com/BioHazard786/huddle/internal/signaling"
)

// Hub routes signaling messages between members of the same room.
// All room state is owned by the Run goroutine.
type Hub struct {
	rooms map[string]map[string]*Client

	register   chan *Client
	unregister chan *Client
	inbound    chan *envelope
	stop       chan struct{}
}

// envelope keeps the frame as received so fields the relay does not know
// survive forwarding.
type envelope struct {
	msg    signaling.Message
	raw    []byte
	client *Client
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan *envelope),
		stop:       make(chan struct{}),
	}
}

// Close stops Run. Connected clients are not notified.
func (h *Hub) Close() {
	close(h.stop)
}

// Run is the hub's processing loop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.stop:
			return

		case client := <-h.register:
			h.join(client)

		case client := <-h.unregister:
			h.drop(client)

		case env := <-h.inbound:
			h.route(env)
		}
	}
}

// join assigns an id, tells the newcomer who is present (itself included)
// and refreshes the membership list of everyone else.
func (h *Hub) join(client *Client) {
	room, ok := h.rooms[client.Room]
	if !ok {
		room = make(map[string]*Client)
		h.rooms[client.Room] = room
	}
	room[client.ID] = client

	slog.Info("client joined", "room", client.Room, "id", client.ID, "addr", client.Conn.RemoteAddr())

	client.deliver(signaling.Message{Type: signaling.MessageTypeID, ID: client.ID})

	peers := h.members(client.Room)
	for _, member := range room {
		member.deliver(signaling.Message{Type: signaling.MessageTypePeers, Peers: peers})
	}
}

func (h *Hub) drop(client *Client) {
	room, ok := h.rooms[client.Room]
	if !ok || room[client.ID] != client {
		return
	}

	delete(room, client.ID)
	close(client.Send)
	slog.Info("client left", "room", client.Room, "id", client.ID)

	if len(room) == 0 {
		delete(h.rooms, client.Room)
		slog.Debug("room deleted", "room", client.Room)
		return
	}

	for _, member := range room {
		member.deliver(signaling.Message{Type: signaling.MessageTypeLeave, ID: client.ID})
	}
}

func (h *Hub) route(env *envelope) {
	msg, client := env.msg, env.client

	switch msg.Type {
	case signaling.MessageTypeOffer, signaling.MessageTypeAnswer, signaling.MessageTypeCandidate:
		if msg.To == "" {
			return
		}
		target, ok := h.rooms[client.Room][msg.To]
		if !ok {
			slog.Debug("dropping message for unknown peer", "type", msg.Type, "to", msg.To)
			return
		}
		data := env.raw
		if msg.From == "" {
			patched, err := withFrom(env.raw, client.ID)
			if err != nil {
				slog.Debug("dropping unpatchable message", "type", msg.Type, "error", err)
				return
			}
			data = patched
		}
		target.deliverRaw(data, msg.Type)

	case signaling.MessageTypeJoin:
		// Membership is established by connecting to the room path.

	case signaling.MessageTypeLeave:
		h.drop(client)

	default:
		slog.Debug("unknown message type", "type", msg.Type)
	}
}

// submit hands v to the loop unless the hub has stopped.
func submit[T any](h *Hub, ch chan T, v T) bool {
	select {
	case ch <- v:
		return true
	case <-h.stop:
		return false
	}
}

func (h *Hub) members(room string) []string {
	ids := make([]string, 0, len(h.rooms[room]))
	for id := range h.rooms[room] {
		ids = append(ids, id)
	}
	return ids
}

// withFrom sets the from field of an encoded message, leaving every other
// field as sent.
func withFrom(raw []byte, from string) ([]byte, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	id, err := json.Marshal(from)
	if err != nil {
		return nil, err
	}
	fields["from"] = id
	return json.Marshal(fields)
}
