package peer

import (
	"fmt"
	"log/slog"
	"sort"

	pion "github.com/pion/webrtc/v4"
)

// Connector builds the transport for a new entry.
type Connector interface {
	Connect(e *Entry) (*pion.PeerConnection, error)
}

// Registry maps remote participant ids to their entries. It is owned by a
// single goroutine and does no locking.
type Registry struct {
	entries   map[string]*Entry
	connector Connector
}

func NewRegistry(connector Connector) *Registry {
	return &Registry{
		entries:   make(map[string]*Entry),
		connector: connector,
	}
}

// GetOrCreate returns the entry for id, creating it and its transport when
// absent. created reports whether a new entry was made.
func (r *Registry) GetOrCreate(id string) (e *Entry, created bool, err error) {
	if e, ok := r.entries[id]; ok {
		return e, false, nil
	}

	e = newEntry(id)
	conn, err := r.connector.Connect(e)
	if err != nil {
		return nil, false, fmt.Errorf("create connection for %s: %w", id, err)
	}
	e.Conn = conn

	r.entries[id] = e
	slog.Debug("peer entry created", "peer", id)
	return e, true, nil
}

func (r *Registry) Get(id string) (*Entry, bool) {
	e, ok := r.entries[id]
	return e, ok
}

// Owns reports whether e is the live entry for its id. Callbacks from a
// connection that was already replaced or removed fail this check.
func (r *Registry) Owns(e *Entry) bool {
	return e != nil && r.entries[e.ID] == e
}

// Remove closes the entry for id and then deletes it. It reports whether an
// entry was present.
func (r *Registry) Remove(id string) bool {
	e, ok := r.entries[id]
	if !ok {
		return false
	}

	if err := e.Close(); err != nil {
		slog.Warn("error closing peer connection", "peer", id, "error", err)
	}
	delete(r.entries, id)
	slog.Debug("peer entry removed", "peer", id)
	return true
}

// CloseAll removes every entry and returns how many were removed.
func (r *Registry) CloseAll() int {
	ids := r.IDs()
	for _, id := range ids {
		r.Remove(id)
	}
	return len(ids)
}

func (r *Registry) Len() int {
	return len(r.entries)
}

// IDs returns the peer ids in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
