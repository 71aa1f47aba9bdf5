package peer

import (
	"fmt"
	"sync"

	pion "github.com/pion/webrtc/v4"
)

// Entry is the connection to one remote participant.
type Entry struct {
	ID   string
	Conn *pion.PeerConnection

	// Chat is the data channel used for text messages, once one exists.
	Chat *pion.DataChannel

	state   State
	pending []pion.ICECandidateInit

	closeOnce sync.Once
	closeErr  error
}

func newEntry(id string) *Entry {
	return &Entry{ID: id, state: StateNew}
}

func (e *Entry) State() State {
	return e.state
}

// Transition moves the entry to next, rejecting edges the state machine
// does not allow. Moving to the current state is a no-op.
func (e *Entry) Transition(next State) error {
	if e.state == next {
		return nil
	}
	if !e.state.CanTransition(next) {
		return fmt.Errorf("peer %s: invalid transition %s -> %s", e.ID, e.state, next)
	}
	e.state = next
	return nil
}

// HasRemoteDescription reports whether remote candidates can be applied.
func (e *Entry) HasRemoteDescription() bool {
	return e.Conn != nil && e.Conn.RemoteDescription() != nil
}

// BufferCandidate holds a remote candidate until the remote description is set.
func (e *Entry) BufferCandidate(c pion.ICECandidateInit) {
	e.pending = append(e.pending, c)
}

// TakePending returns and clears the buffered remote candidates.
func (e *Entry) TakePending() []pion.ICECandidateInit {
	pending := e.pending
	e.pending = nil
	return pending
}

// Close releases the underlying connection. Only the first call has any
// effect; later calls return the first result.
func (e *Entry) Close() error {
	e.closeOnce.Do(func() {
		e.state = StateClosed
		e.pending = nil
		if e.Chat != nil {
			e.Chat.Close()
		}
		if e.Conn != nil {
			e.closeErr = e.Conn.Close()
		}
	})
	return e.closeErr
}
