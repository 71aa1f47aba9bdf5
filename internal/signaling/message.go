package signaling

import (
	"encoding/json"
	"fmt"

	"github.com/BioHazard786/huddle/internal/callerr"
	"github.com/pion/webrtc/v4"
)

// Message is one signaling record. Type selects which of the other fields
// are meaningful.
type Message struct {
	Type      string                     `json:"type"`
	Room      string                     `json:"room,omitempty"`
	Name      string                     `json:"name,omitempty"`
	ID        string                     `json:"id,omitempty"`
	Peers     []string                   `json:"peers,omitempty"`
	From      string                     `json:"from,omitempty"`
	To        string                     `json:"to,omitempty"`
	SDP       *webrtc.SessionDescription `json:"sdp,omitempty"`
	Candidate *webrtc.ICECandidateInit   `json:"candidate,omitempty"`
}

// Message type constants.
const (
	MessageTypeJoin      = "join"
	MessageTypeID        = "id"
	MessageTypePeers     = "peers"
	MessageTypeOffer     = "offer"
	MessageTypeAnswer    = "answer"
	MessageTypeCandidate = "candidate"
	MessageTypeLeave     = "leave"
)

func Join(room, name string) Message {
	return Message{Type: MessageTypeJoin, Room: room, Name: name}
}

func Offer(from, to string, sdp webrtc.SessionDescription) Message {
	return Message{Type: MessageTypeOffer, From: from, To: to, SDP: &sdp}
}

func Answer(from, to string, sdp webrtc.SessionDescription) Message {
	return Message{Type: MessageTypeAnswer, From: from, To: to, SDP: &sdp}
}

func Candidate(from, to string, c webrtc.ICECandidateInit) Message {
	return Message{Type: MessageTypeCandidate, From: from, To: to, Candidate: &c}
}

// Leave announces our own departure. The room lets relays that track several
// rooms per connection find the member.
func Leave(id, room string) Message {
	return Message{Type: MessageTypeLeave, ID: id, Room: room}
}

// Parse decodes an inbound payload. Unknown types parse successfully and are
// left for the dispatcher to ignore; known types missing their required
// fields fail with callerr.ErrMalformedMessage.
func Parse(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, callerr.Wrap("parse message", callerr.ErrMalformedMessage, err.Error())
	}
	if err := msg.Validate(); err != nil {
		return Message{}, callerr.Wrap("parse message", callerr.ErrMalformedMessage, err.Error())
	}
	return msg, nil
}

func (m Message) Validate() error {
	switch m.Type {
	case "":
		return fmt.Errorf("missing type")
	case MessageTypeJoin:
		if m.Room == "" {
			return fmt.Errorf("join message missing room")
		}
	case MessageTypeID:
		if m.ID == "" {
			return fmt.Errorf("id message missing id")
		}
	case MessageTypeOffer, MessageTypeAnswer:
		if m.From == "" {
			return fmt.Errorf("%s message missing from", m.Type)
		}
		if m.SDP == nil || m.SDP.SDP == "" {
			return fmt.Errorf("%s message missing sdp", m.Type)
		}
		if m.SDP.Type.String() != m.Type {
			return fmt.Errorf("%s message has sdp.type=%q", m.Type, m.SDP.Type.String())
		}
	case MessageTypeCandidate:
		if m.From == "" {
			return fmt.Errorf("candidate message missing from")
		}
		if m.Candidate == nil {
			return fmt.Errorf("candidate message missing candidate")
		}
	case MessageTypeLeave:
		if m.ID == "" {
			return fmt.Errorf("leave message missing id")
		}
	}
	return nil
}
