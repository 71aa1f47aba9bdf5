package signaling

import "log/slog"

// Handler reacts to inbound signaling messages, one method per type.
type Handler interface {
	HandleID(id string)
	HandlePeers(peers []string)
	HandleOffer(msg Message)
	HandleAnswer(msg Message)
	HandleCandidate(msg Message)
	HandleLeave(id string)
}

// Dispatch routes msg to the matching Handler method. It is the single entry
// point for inbound traffic; unknown types are logged and dropped.
func Dispatch(msg Message, h Handler) {
	switch msg.Type {
	case MessageTypeID:
		h.HandleID(msg.ID)

	case MessageTypePeers:
		h.HandlePeers(msg.Peers)

	case MessageTypeOffer:
		h.HandleOffer(msg)

	case MessageTypeAnswer:
		h.HandleAnswer(msg)

	case MessageTypeCandidate:
		h.HandleCandidate(msg)

	case MessageTypeLeave:
		h.HandleLeave(msg.ID)

	case MessageTypeJoin:
		slog.Debug("ignoring join echoed by relay", "room", msg.Room)

	default:
		slog.Warn("unknown signaling message", "type", msg.Type)
	}
}
