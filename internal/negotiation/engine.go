package negotiation

import (
	"log/slog"

	"github.com/BioHazard786/huddle/internal/callerr"
	"github.com/BioHazard786/huddle/internal/chat"
	"github.com/BioHazard786/huddle/internal/peer"
	"github.com/BioHazard786/huddle/internal/render"
	"github.com/BioHazard786/huddle/internal/signaling"
	pion "github.com/pion/webrtc/v4"
)

// NoticeKind classifies what changed in the engine.
type NoticeKind int

const (
	NoticePeerState NoticeKind = iota
	NoticePeerName
	NoticePeerRemoved
	NoticeChat
	NoticeIdentity
)

// Notice reports a change the UI may want to show.
type Notice struct {
	Kind  NoticeKind
	Peer  string
	State peer.State
	Name  string
	Text  chat.Text

	// Received is the final slot stats of a removed peer.
	Received render.SlotStats
}

// PeerInfo describes one registry entry.
type PeerInfo struct {
	ID    string
	Name  string
	State peer.State
}

// Options wire the engine to the rest of the session.
type Options struct {
	Registry *peer.Registry
	Board    *render.Board

	// Send transmits on the signaling channel. It drops messages when the
	// channel is not open.
	Send func(signaling.Message) bool

	// WireChat subscribes to a chat data channel's events.
	WireChat func(e *peer.Entry, dc *pion.DataChannel)

	// Notify receives engine notices. Optional.
	Notify func(Notice)

	// Name is our display name, sent to peers over chat.
	Name string
}

// Engine runs the offer/answer/candidate exchange for every peer. All
// methods must be called from the same goroutine.
type Engine struct {
	opts     Options
	registry *peer.Registry
	board    *render.Board

	localID  string
	snapshot bool
	tracks   []pion.TrackLocal
	names    map[string]string
}

func New(opts Options) *Engine {
	if opts.Notify == nil {
		opts.Notify = func(Notice) {}
	}
	if opts.WireChat == nil {
		opts.WireChat = func(*peer.Entry, *pion.DataChannel) {}
	}
	return &Engine{
		opts:     opts,
		registry: opts.Registry,
		board:    opts.Board,
		names:    make(map[string]string),
	}
}

// SetTracks sets the local tracks attached to connections created from now on.
func (e *Engine) SetTracks(tracks []pion.TrackLocal) {
	e.tracks = tracks
}

func (e *Engine) LocalID() string {
	return e.localID
}

// Peers lists the current entries in id order.
func (e *Engine) Peers() []PeerInfo {
	ids := e.registry.IDs()
	peers := make([]PeerInfo, 0, len(ids))
	for _, id := range ids {
		entry, _ := e.registry.Get(id)
		peers = append(peers, PeerInfo{ID: id, Name: e.names[id], State: entry.State()})
	}
	return peers
}

// Reset tears down every entry and forgets the local identity. Local tracks
// are kept.
func (e *Engine) Reset() {
	for _, id := range e.registry.IDs() {
		e.cleanup(id)
	}
	e.board.ClearAll()
	e.localID = ""
	e.snapshot = false
	e.names = make(map[string]string)
}

func (e *Engine) HandleID(id string) {
	e.localID = id
	e.snapshot = false
	slog.Info("identity assigned", "id", id)
	e.opts.Notify(Notice{Kind: NoticeIdentity, Peer: id})
}

// HandlePeers offers to every listed peer, but only for the first list after
// the identity was assigned. Later lists announce newcomers, who offer to us.
func (e *Engine) HandlePeers(peers []string) {
	if e.localID == "" {
		slog.Warn("ignoring peer list", "error", callerr.New("peers", callerr.ErrNoIdentity))
		return
	}
	if e.snapshot {
		slog.Debug("membership update", "peers", peers)
		return
	}
	e.snapshot = true

	for _, id := range peers {
		if id == e.localID || id == "" {
			continue
		}
		if _, ok := e.registry.Get(id); ok {
			continue
		}
		if err := e.offer(id); err != nil {
			slog.Error("failed to offer", "error", err)
			e.cleanup(id)
		}
	}
}

func (e *Engine) offer(id string) error {
	entry, _, err := e.registry.GetOrCreate(id)
	if err != nil {
		return callerr.ForPeer("create entry", id, err)
	}

	e.attachTracks(entry)

	dc, err := entry.Conn.CreateDataChannel(chat.Label, nil)
	if err != nil {
		return callerr.ForPeer("create chat channel", id, err)
	}
	entry.Chat = dc
	e.opts.WireChat(entry, dc)

	offer, err := entry.Conn.CreateOffer(nil)
	if err != nil {
		return callerr.ForPeer("create offer", id, err)
	}
	if err := entry.Conn.SetLocalDescription(offer); err != nil {
		return callerr.ForPeer("set local description", id, err)
	}

	e.transition(entry, peer.StateHaveLocalOffer)
	e.opts.Send(signaling.Offer(e.localID, id, *entry.Conn.LocalDescription()))
	slog.Debug("offer sent", "peer", id)
	return nil
}

func (e *Engine) HandleOffer(msg signaling.Message) {
	if e.localID == "" {
		slog.Warn("ignoring offer", "error", callerr.ForPeer("offer", msg.From, callerr.ErrNoIdentity))
		return
	}

	entry, created, err := e.registry.GetOrCreate(msg.From)
	if err != nil {
		slog.Error("failed to accept offer", "error", callerr.ForPeer("create entry", msg.From, err))
		return
	}

	if entry.State() == peer.StateHaveLocalOffer {
		if !e.polite(msg.From) {
			slog.Debug("ignoring colliding offer", "peer", msg.From)
			return
		}
		// A local offer cannot be rolled back, so the connection that made
		// it is replaced by a fresh one that answers theirs.
		e.registry.Remove(msg.From)
		entry, created, err = e.registry.GetOrCreate(msg.From)
		if err != nil {
			slog.Error("failed to replace colliding connection", "error", callerr.ForPeer("create entry", msg.From, err))
			e.cleanup(msg.From)
			return
		}
		slog.Debug("replaced connection after offer collision", "peer", msg.From)
	}

	if err := e.answer(entry, *msg.SDP, created); err != nil {
		slog.Error("failed to answer", "error", err)
		e.cleanup(msg.From)
	}
}

// polite reports whether we yield when both sides offered at once. The
// lexicographically smaller id is polite.
func (e *Engine) polite(remote string) bool {
	return e.localID < remote
}

func (e *Engine) answer(entry *peer.Entry, offer pion.SessionDescription, created bool) error {
	if err := entry.Conn.SetRemoteDescription(offer); err != nil {
		return callerr.ForPeer("set remote description", entry.ID, err)
	}
	e.transition(entry, peer.StateHaveRemoteOffer)
	e.flushCandidates(entry)

	// Tracks go on after the remote description so they bind to the
	// transceivers the offer created.
	if created {
		e.attachTracks(entry)
	}

	answer, err := entry.Conn.CreateAnswer(nil)
	if err != nil {
		return callerr.ForPeer("create answer", entry.ID, err)
	}
	if err := entry.Conn.SetLocalDescription(answer); err != nil {
		return callerr.ForPeer("set local description", entry.ID, err)
	}

	e.opts.Send(signaling.Answer(e.localID, entry.ID, *entry.Conn.LocalDescription()))
	slog.Debug("answer sent", "peer", entry.ID)

	e.transition(entry, peer.StateConnecting)
	if entry.Conn.ConnectionState() == pion.PeerConnectionStateConnected {
		e.transition(entry, peer.StateConnected)
	}
	return nil
}

func (e *Engine) HandleAnswer(msg signaling.Message) {
	entry, ok := e.registry.Get(msg.From)
	if !ok {
		slog.Warn("ignoring answer", "error", callerr.ForPeer("answer", msg.From, callerr.ErrUnknownPeer))
		return
	}
	if entry.State() != peer.StateHaveLocalOffer {
		slog.Warn("ignoring stale answer", "peer", msg.From, "state", entry.State().String())
		return
	}

	if err := entry.Conn.SetRemoteDescription(*msg.SDP); err != nil {
		slog.Error("failed to apply answer", "error", callerr.ForPeer("set remote description", msg.From, err))
		e.cleanup(msg.From)
		return
	}
	e.flushCandidates(entry)
	e.transition(entry, peer.StateConnecting)
}

func (e *Engine) HandleCandidate(msg signaling.Message) {
	entry, ok := e.registry.Get(msg.From)
	if !ok {
		slog.Warn("ignoring candidate", "error", callerr.ForPeer("candidate", msg.From, callerr.ErrUnknownPeer))
		return
	}

	if !entry.HasRemoteDescription() {
		entry.BufferCandidate(*msg.Candidate)
		return
	}
	e.applyCandidate(entry, *msg.Candidate)
}

func (e *Engine) applyCandidate(entry *peer.Entry, c pion.ICECandidateInit) {
	if err := entry.Conn.AddICECandidate(c); err != nil {
		slog.Warn("dropping candidate", "error", callerr.Wrap("add candidate", callerr.ErrCandidateApplication, err.Error()), "peer", entry.ID)
	}
}

func (e *Engine) flushCandidates(entry *peer.Entry) {
	for _, c := range entry.TakePending() {
		e.applyCandidate(entry, c)
	}
}

func (e *Engine) HandleLeave(id string) {
	if id == "" || id == e.localID {
		return
	}
	e.cleanup(id)
}

// HandleLocalCandidate forwards a candidate gathered by entry's transport.
func (e *Engine) HandleLocalCandidate(entry *peer.Entry, c pion.ICECandidateInit) {
	if !e.registry.Owns(entry) || e.localID == "" {
		return
	}
	e.opts.Send(signaling.Candidate(e.localID, entry.ID, c))
}

// HandleTrack routes remote media to the peer's slot.
func (e *Engine) HandleTrack(entry *peer.Entry, track *pion.TrackRemote) {
	if !e.registry.Owns(entry) {
		return
	}
	e.board.Attach(entry.ID, track)
	slog.Debug("remote track", "peer", entry.ID, "kind", track.Kind().String(), "codec", track.Codec().MimeType)
}

// HandleConnectionState reacts to transport state changes. Disconnected,
// failed and closed all end the entry.
func (e *Engine) HandleConnectionState(entry *peer.Entry, state pion.PeerConnectionState) {
	if !e.registry.Owns(entry) {
		return
	}

	switch state {
	case pion.PeerConnectionStateConnected:
		e.transition(entry, peer.StateConnected)

	case pion.PeerConnectionStateFailed:
		e.transition(entry, peer.StateFailed)
		e.degraded(entry, state)

	case pion.PeerConnectionStateDisconnected, pion.PeerConnectionStateClosed:
		e.degraded(entry, state)
	}
}

func (e *Engine) degraded(entry *peer.Entry, state pion.PeerConnectionState) {
	slog.Info("peer connection lost", "peer", entry.ID, "error", callerr.Wrap("connection", callerr.ErrTransportDegraded, state.String()))
	e.cleanup(entry.ID)
}

// cleanup is the single removal path for an entry. Repeated calls are no-ops.
func (e *Engine) cleanup(id string) {
	removed := e.registry.Remove(id)
	stats, _ := e.board.Clear(id)
	name := e.names[id]
	delete(e.names, id)
	if removed {
		e.opts.Notify(Notice{Kind: NoticePeerRemoved, Peer: id, Name: name, State: peer.StateClosed, Received: stats})
	}
}

func (e *Engine) transition(entry *peer.Entry, next peer.State) {
	prev := entry.State()
	if err := entry.Transition(next); err != nil {
		slog.Warn("unexpected peer state change", "error", err)
		return
	}
	if prev != next {
		e.opts.Notify(Notice{Kind: NoticePeerState, Peer: entry.ID, State: next})
	}
}

func (e *Engine) attachTracks(entry *peer.Entry) {
	for _, track := range e.tracks {
		sender, err := entry.Conn.AddTrack(track)
		if err != nil {
			slog.Error("failed to add track", "peer", entry.ID, "error", err)
			continue
		}
		go drainRTCP(sender)
	}
}

// drainRTCP reads incoming RTCP so interceptors keep running.
func drainRTCP(sender *pion.RTPSender) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}
