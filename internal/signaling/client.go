package signaling

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// DialFunc opens the raw network connection under the websocket.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Client manages the WebSocket connection to the signaling relay. Messages
// are delivered on Incoming in the order they were received; the channel is
// closed once the connection is gone.
type Client struct {
	conn     *websocket.Conn
	incoming chan Message
	outgoing chan []byte
	done     chan struct{}
	open     atomic.Bool
	stopOnce sync.Once
}

// Connect dials the relay at serverURL and, once the socket is open, sends
// the join announcement for room.
func Connect(ctx context.Context, serverURL, room, name string, dial DialFunc) (*Client, error) {
	dialer := *websocket.DefaultDialer
	if dial != nil {
		dialer.NetDialContext = dial
	}

	conn, _, err := dialer.DialContext(ctx, serverURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	c := &Client{
		conn:     conn,
		incoming: make(chan Message, 64),
		outgoing: make(chan []byte, 256),
		done:     make(chan struct{}),
	}
	c.open.Store(true)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go c.readPump()
	go c.writePump()

	c.Send(Join(room, name))
	return c, nil
}

// readPump reads messages from the WebSocket connection.
func (c *Client) readPump() {
	defer func() {
		c.stop()
		close(c.incoming)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Info("signaling channel closed", "error", err)
			}
			return
		}

		msg, err := Parse(data)
		if err != nil {
			slog.Warn("dropping signaling payload", "error", err)
			continue
		}

		select {
		case c.incoming <- msg:
		case <-c.done:
			return
		}
	}
}

// writePump writes messages to the WebSocket connection and sends periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data := <-c.outgoing:
			if err := c.write(websocket.TextMessage, data); err != nil {
				c.stop()
				return
			}

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.stop()
				return
			}

		case <-c.done:
			c.flush()
			c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// flush writes whatever was queued before the close so a trailing leave
// still reaches the relay.
func (c *Client) flush() {
	for {
		select {
		case data := <-c.outgoing:
			if err := c.write(websocket.TextMessage, data); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}

// Send queues msg for transmission. While the channel is not open the
// message is dropped and Send reports false.
func (c *Client) Send(msg Message) bool {
	if !c.open.Load() {
		slog.Debug("signaling channel not open, dropping message", "type", msg.Type)
		return false
	}

	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to encode signaling message", "type", msg.Type, "error", err)
		return false
	}

	select {
	case c.outgoing <- data:
		return true
	case <-c.done:
		return false
	}
}

// IsOpen reports whether the channel still accepts messages.
func (c *Client) IsOpen() bool {
	return c.open.Load()
}

// Incoming returns the channel for receiving messages.
func (c *Client) Incoming() <-chan Message {
	return c.incoming
}

// Close closes the WebSocket connection. Messages already queued are
// written before the close frame. Safe to call more than once.
func (c *Client) Close() {
	c.stop()
}

func (c *Client) stop() {
	c.stopOnce.Do(func() {
		c.open.Store(false)
		close(c.done)
		// Unblock a reader waiting on the socket when the remote never
		// answers the close frame.
		time.AfterFunc(writeWait, func() { c.conn.Close() })
	})
}
