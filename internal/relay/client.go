package relay

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/BioHazard786/huddle/internal/signaling"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024
)

// Client is one websocket connection attached to a room.
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn
	Room string

	// ID is assigned when the connection is accepted.
	ID string

	// Send carries encoded frames and is closed by the hub when the client
	// leaves.
	Send chan []byte
}

// deliver encodes a message built by the hub.
func (c *Client) deliver(msg signaling.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to encode message", "type", msg.Type, "error", err)
		return
	}
	c.deliverRaw(data, msg.Type)
}

// deliverRaw never blocks the hub; a client that cannot keep up loses
// messages.
func (c *Client) deliverRaw(data []byte, typ string) {
	select {
	case c.Send <- data:
	default:
		slog.Warn("client send buffer full, dropping message", "id", c.ID, "type", typ)
	}
}

// ReadPump pumps messages from the websocket connection to the hub.
func (c *Client) ReadPump() {
	defer func() {
		submit(c.Hub, c.Hub.unregister, c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				slog.Debug("read error", "id", c.ID, "error", err)
			}
			return
		}

		var msg signaling.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		if !submit(c.Hub, c.Hub.inbound, &envelope{msg: msg, raw: data, client: c}) {
			return
		}
		if msg.Type == signaling.MessageTypeLeave {
			return
		}
	}
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Debug("write error", "id", c.ID, "error", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
