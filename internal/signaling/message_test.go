package signaling

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/BioHazard786/huddle/internal/callerr"
	"github.com/pion/webrtc/v4"
)

func TestParseValid(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want func(Message) bool
	}{
		{"id", `{"type":"id","id":"abc"}`, func(m Message) bool { return m.ID == "abc" }},
		{"peers", `{"type":"peers","peers":["a","b"]}`, func(m Message) bool { return len(m.Peers) == 2 }},
		{"empty peers", `{"type":"peers","peers":[]}`, func(m Message) bool { return len(m.Peers) == 0 }},
		{"offer", `{"type":"offer","from":"a","to":"b","sdp":{"type":"offer","sdp":"v=0"}}`, func(m Message) bool {
			return m.SDP.Type == webrtc.SDPTypeOffer && m.SDP.SDP == "v=0"
		}},
		{"answer", `{"type":"answer","from":"a","sdp":{"type":"answer","sdp":"v=0"}}`, func(m Message) bool {
			return m.SDP.Type == webrtc.SDPTypeAnswer
		}},
		{"candidate", `{"type":"candidate","from":"a","candidate":{"candidate":"candidate:1 1 udp 1 10.0.0.1 5000 typ host","sdpMid":"0","sdpMLineIndex":0}}`, func(m Message) bool {
			return m.Candidate.SDPMid != nil && *m.Candidate.SDPMid == "0"
		}},
		{"leave", `{"type":"leave","id":"a"}`, func(m Message) bool { return m.ID == "a" }},
		{"unknown type", `{"type":"wave"}`, func(m Message) bool { return m.Type == "wave" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Parse([]byte(tt.in))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if !tt.want(msg) {
				t.Fatalf("unexpected message %+v", msg)
			}
		})
	}
}

func TestParseMalformed(t *testing.T) {
	inputs := map[string]string{
		"not json":          `{"type":`,
		"missing type":      `{"id":"a"}`,
		"id without id":     `{"type":"id"}`,
		"offer without sdp": `{"type":"offer","from":"a"}`,
		"offer wrong type":  `{"type":"offer","from":"a","sdp":{"type":"answer","sdp":"v=0"}}`,
		"answer no from":    `{"type":"answer","sdp":{"type":"answer","sdp":"v=0"}}`,
		"bare candidate":    `{"type":"candidate","from":"a"}`,
		"leave without id":  `{"type":"leave"}`,
	}

	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(in))
			if !errors.Is(err, callerr.ErrMalformedMessage) {
				t.Fatalf("Parse(%s) error = %v, want ErrMalformedMessage", in, err)
			}
		})
	}
}

func TestConstructorsWireFormat(t *testing.T) {
	mid := "0"
	msg := Candidate("me", "you", webrtc.ICECandidateInit{Candidate: "candidate:1", SDPMid: &mid})

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if raw["type"] != "candidate" || raw["from"] != "me" || raw["to"] != "you" {
		t.Fatalf("unexpected envelope %v", raw)
	}
	cand, ok := raw["candidate"].(map[string]any)
	if !ok || cand["candidate"] != "candidate:1" || cand["sdpMid"] != "0" {
		t.Fatalf("unexpected candidate %v", raw["candidate"])
	}

	data, _ = json.Marshal(Join("room", "ana"))
	if string(data) != `{"type":"join","room":"room","name":"ana"}` {
		t.Fatalf("join = %s", data)
	}
}
