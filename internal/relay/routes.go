package relay

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWs upgrades requests for <prefix>/<room> and attaches the connection
// to hub.
func ServeWs(hub *Hub, prefix string) http.HandlerFunc {
	prefix = "/" + strings.Trim(prefix, "/") + "/"

	return func(w http.ResponseWriter, r *http.Request) {
		room := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
		if room == "" || strings.Contains(room, "/") {
			http.Error(w, "room required", http.StatusNotFound)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("failed to upgrade connection", "error", err)
			return
		}

		client := &Client{
			Hub:  hub,
			Conn: conn,
			Room: room,
			ID:   uuid.NewString(),
			Send: make(chan []byte, 256),
		}

		if !submit(hub, hub.register, client) {
			conn.Close()
			return
		}

		go client.WritePump()
		go client.ReadPump()
	}
}

// NewMux serves the room endpoints under prefix plus a health check.
func NewMux(hub *Hub, prefix string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Signaling relay is healthy."))
	})
	mux.HandleFunc("/"+strings.Trim(prefix, "/")+"/", ServeWs(hub, prefix))
	return mux
}
