package chat

import (
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// Label is the data channel label carrying chat traffic.
const Label = "chat"

// Envelope types
const (
	TypeHello = "hello"
	TypeText  = "text"
)

// Envelope wraps every data channel message.
type Envelope struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

// Hello is sent once the channel opens so the peer can show our name.
type Hello struct {
	Name string `msgpack:"name"`
}

// Text is one chat line.
type Text struct {
	ID     string `msgpack:"id"`
	Name   string `msgpack:"name"`
	Body   string `msgpack:"body"`
	SentAt int64  `msgpack:"sentAt"`
}

func NewText(name, body string) Text {
	return Text{
		ID:     uuid.NewString(),
		Name:   name,
		Body:   body,
		SentAt: time.Now().UnixMilli(),
	}
}

func (t Text) Time() time.Time {
	return time.UnixMilli(t.SentAt)
}

// Encode wraps payload in an envelope of type t.
func Encode(t string, payload any) ([]byte, error) {
	b, err := msgpack.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(Envelope{Type: t, Payload: b})
}

func Decode(data []byte) (Envelope, error) {
	var env Envelope
	err := msgpack.Unmarshal(data, &env)
	return env, err
}

// DecodePayload decodes the envelope payload into v.
func (e Envelope) DecodePayload(v any) error {
	return msgpack.Unmarshal(e.Payload, v)
}
