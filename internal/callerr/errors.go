package callerr

import (
	"errors"
	"fmt"
)

var (
	ErrMediaAcquisition     = errors.New("media acquisition failed")
	ErrMalformedMessage     = errors.New("malformed signaling message")
	ErrUnknownPeer          = errors.New("unknown peer")
	ErrCandidateApplication = errors.New("candidate rejected by transport")
	ErrTransportDegraded    = errors.New("transport degraded")
	ErrNoIdentity           = errors.New("participant identity not assigned")
	ErrChannelClosed        = errors.New("signaling channel closed")
	ErrCallActive           = errors.New("call already active")
	ErrNotConnected         = errors.New("not connected")
)

// Error describes a failed call operation, optionally scoped to one remote peer.
type Error struct {
	Op      string
	Peer    string
	Err     error
	Details string
}

func (e *Error) Error() string {
	if e.Peer != "" {
		return fmt.Sprintf("%s (peer %s): %v", e.Op, e.Peer, e.Err)
	}
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}

func ForPeer(op, peer string, err error) *Error {
	return &Error{Op: op, Peer: peer, Err: err}
}

func Wrap(op string, err error, details string) *Error {
	return &Error{Op: op, Err: err, Details: details}
}
