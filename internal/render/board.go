package render

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BioHazard786/huddle/internal/media"
	"github.com/pion/rtp"
	pion "github.com/pion/webrtc/v4"
)

// Board holds the rendering slots: one local preview and one slot per
// remote peer.
type Board struct {
	mu     sync.Mutex
	local  *media.Source
	remote map[string]*Slot
}

// Slot is the output for one remote peer. Every track the peer sends is
// drained into it.
type Slot struct {
	PeerID string

	mu       sync.Mutex
	tracks   []string
	attached time.Time
	lastSeen time.Time

	packets  atomic.Int64
	bytes    atomic.Int64
	detached atomic.Bool
}

// SlotStats is a point-in-time copy of a remote slot.
type SlotStats struct {
	PeerID   string
	Tracks   []string
	Packets  int64
	Bytes    int64
	Attached time.Time
	LastSeen time.Time
}

// Snapshot is what the board currently shows.
type Snapshot struct {
	Local  []media.TrackStats
	Remote []SlotStats
}

func NewBoard() *Board {
	return &Board{remote: make(map[string]*Slot)}
}

// ShowLocal puts src in the local preview slot.
func (b *Board) ShowLocal(src *media.Source) {
	b.mu.Lock()
	b.local = src
	b.mu.Unlock()
}

func (b *Board) ClearLocal() {
	b.mu.Lock()
	b.local = nil
	b.mu.Unlock()
}

// HasLocal reports whether the local preview slot is occupied.
func (b *Board) HasLocal() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.local != nil
}

// Attach routes track into the slot for peerID, creating the slot on the
// first track. Packets are drained until the track ends or the slot is
// cleared.
func (b *Board) Attach(peerID string, track *pion.TrackRemote) *Slot {
	b.mu.Lock()
	slot, ok := b.remote[peerID]
	if !ok {
		slot = &Slot{PeerID: peerID, attached: time.Now()}
		b.remote[peerID] = slot
	}
	b.mu.Unlock()

	slot.mu.Lock()
	slot.tracks = append(slot.tracks, track.Kind().String()+" "+track.Codec().MimeType)
	slot.mu.Unlock()

	go slot.drain(track)
	return slot
}

// Clear empties the slot for peerID and returns its final stats. Packets
// still in flight for it are discarded.
func (b *Board) Clear(peerID string) (SlotStats, bool) {
	b.mu.Lock()
	slot, ok := b.remote[peerID]
	delete(b.remote, peerID)
	b.mu.Unlock()

	if !ok {
		return SlotStats{}, false
	}
	slot.detached.Store(true)
	return slot.Stats(), true
}

// ClearAll empties every remote slot.
func (b *Board) ClearAll() {
	b.mu.Lock()
	slots := b.remote
	b.remote = make(map[string]*Slot)
	b.mu.Unlock()

	for _, slot := range slots {
		slot.detached.Store(true)
	}
}

// Has reports whether peerID currently has a slot.
func (b *Board) Has(peerID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.remote[peerID]
	return ok
}

func (b *Board) Snapshot() Snapshot {
	b.mu.Lock()
	local := b.local
	slots := make([]*Slot, 0, len(b.remote))
	for _, slot := range b.remote {
		slots = append(slots, slot)
	}
	b.mu.Unlock()

	var snap Snapshot
	if local != nil {
		snap.Local = local.Stats()
	}
	for _, slot := range slots {
		snap.Remote = append(snap.Remote, slot.Stats())
	}
	sort.Slice(snap.Remote, func(i, j int) bool {
		return snap.Remote[i].PeerID < snap.Remote[j].PeerID
	})
	return snap
}

func (s *Slot) drain(track *pion.TrackRemote) {
	for {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			return
		}
		if s.detached.Load() {
			return
		}
		s.observe(pkt)
	}
}

func (s *Slot) observe(pkt *rtp.Packet) {
	s.packets.Add(1)
	s.bytes.Add(int64(pkt.MarshalSize()))

	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Slot) Stats() SlotStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return SlotStats{
		PeerID:   s.PeerID,
		Tracks:   append([]string(nil), s.tracks...),
		Packets:  s.packets.Load(),
		Bytes:    s.bytes.Load(),
		Attached: s.attached,
		LastSeen: s.lastSeen,
	}
}
