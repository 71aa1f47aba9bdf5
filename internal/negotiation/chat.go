package negotiation

import (
	"log/slog"

	"github.com/BioHazard786/huddle/internal/callerr"
	"github.com/BioHazard786/huddle/internal/chat"
	"github.com/BioHazard786/huddle/internal/peer"
	pion "github.com/pion/webrtc/v4"
)

// HandleDataChannel adopts a chat channel opened by the remote side.
func (e *Engine) HandleDataChannel(entry *peer.Entry, dc *pion.DataChannel) {
	if !e.registry.Owns(entry) {
		dc.Close()
		return
	}
	if dc.Label() != chat.Label {
		slog.Debug("ignoring data channel", "peer", entry.ID, "label", dc.Label())
		return
	}
	if entry.Chat == nil {
		entry.Chat = dc
	}
	e.opts.WireChat(entry, dc)
}

// HandleChatOpen introduces us to the peer.
func (e *Engine) HandleChatOpen(entry *peer.Entry, dc *pion.DataChannel) {
	if !e.registry.Owns(entry) {
		return
	}

	data, err := chat.Encode(chat.TypeHello, chat.Hello{Name: e.opts.Name})
	if err != nil {
		slog.Error("failed to encode hello", "error", err)
		return
	}
	if err := dc.Send(data); err != nil {
		slog.Debug("failed to send hello", "peer", entry.ID, "error", err)
	}
}

func (e *Engine) HandleChatMessage(entry *peer.Entry, data []byte) {
	if !e.registry.Owns(entry) {
		return
	}

	env, err := chat.Decode(data)
	if err != nil {
		slog.Warn("dropping chat payload", "peer", entry.ID, "error", err)
		return
	}

	switch env.Type {
	case chat.TypeHello:
		var hello chat.Hello
		if err := env.DecodePayload(&hello); err != nil {
			slog.Warn("dropping hello", "peer", entry.ID, "error", err)
			return
		}
		e.names[entry.ID] = hello.Name
		e.opts.Notify(Notice{Kind: NoticePeerName, Peer: entry.ID, Name: hello.Name})

	case chat.TypeText:
		var text chat.Text
		if err := env.DecodePayload(&text); err != nil {
			slog.Warn("dropping chat text", "peer", entry.ID, "error", err)
			return
		}
		e.opts.Notify(Notice{Kind: NoticeChat, Peer: entry.ID, Name: text.Name, Text: text})

	default:
		slog.Debug("unknown chat message", "peer", entry.ID, "type", env.Type)
	}
}

// SendChat sends body to every peer with an open chat channel and returns
// the message as sent. Delivery is best effort.
func (e *Engine) SendChat(body string) (chat.Text, error) {
	text := chat.NewText(e.opts.Name, body)
	data, err := chat.Encode(chat.TypeText, text)
	if err != nil {
		return chat.Text{}, err
	}

	sent := 0
	for _, id := range e.registry.IDs() {
		entry, _ := e.registry.Get(id)
		if entry.Chat == nil || entry.Chat.ReadyState() != pion.DataChannelStateOpen {
			continue
		}
		if err := entry.Chat.Send(data); err != nil {
			slog.Debug("failed to send chat", "peer", id, "error", err)
			continue
		}
		sent++
	}

	if sent == 0 {
		return chat.Text{}, callerr.New("send chat", callerr.ErrNotConnected)
	}
	return text, nil
}
