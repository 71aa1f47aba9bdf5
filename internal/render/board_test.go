package render

import (
	"context"
	"testing"

	"github.com/BioHazard786/huddle/internal/media"
	"github.com/pion/rtp"
)

func TestSlotObserve(t *testing.T) {
	s := &Slot{PeerID: "p"}
	pkt := &rtp.Packet{
		Header:  rtp.Header{Version: 2, SequenceNumber: 7, SSRC: 1},
		Payload: make([]byte, 100),
	}

	s.observe(pkt)
	s.observe(pkt)

	stats := s.Stats()
	if stats.Packets != 2 {
		t.Fatalf("packets = %d", stats.Packets)
	}
	if stats.Bytes != int64(2*pkt.MarshalSize()) {
		t.Fatalf("bytes = %d", stats.Bytes)
	}
	if stats.LastSeen.IsZero() {
		t.Fatal("last seen not recorded")
	}
}

func TestBoardClear(t *testing.T) {
	b := NewBoard()
	b.remote["a"] = &Slot{PeerID: "a"}
	b.remote["b"] = &Slot{PeerID: "b"}
	slotA := b.remote["a"]

	if stats, ok := b.Clear("a"); !ok || stats.PeerID != "a" {
		t.Fatal("Clear reported missing slot")
	}
	if _, ok := b.Clear("a"); ok {
		t.Fatal("second Clear should be a no-op")
	}
	if b.Has("a") || !b.Has("b") {
		t.Fatal("wrong slots remain")
	}
	if !slotA.detached.Load() {
		t.Fatal("cleared slot still attached")
	}

	b.ClearAll()
	if len(b.Snapshot().Remote) != 0 {
		t.Fatal("slots remain after ClearAll")
	}
}

func TestBoardLocal(t *testing.T) {
	b := NewBoard()
	if b.HasLocal() {
		t.Fatal("empty board has local")
	}

	src, err := media.SilenceProvider{}.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer src.Stop()

	b.ShowLocal(src)
	if !b.HasLocal() || len(b.Snapshot().Local) != 1 {
		t.Fatal("local slot not shown")
	}

	b.ClearLocal()
	if b.HasLocal() || b.Snapshot().Local != nil {
		t.Fatal("local slot not cleared")
	}
}

func TestSnapshotSorted(t *testing.T) {
	b := NewBoard()
	for _, id := range []string{"z", "m", "a"} {
		b.remote[id] = &Slot{PeerID: id}
	}

	snap := b.Snapshot()
	if snap.Remote[0].PeerID != "a" || snap.Remote[2].PeerID != "z" {
		t.Fatalf("snapshot not sorted: %+v", snap.Remote)
	}
}
