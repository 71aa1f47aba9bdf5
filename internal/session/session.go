package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/BioHazard786/huddle/internal/callerr"
	"github.com/BioHazard786/huddle/internal/chat"
	"github.com/BioHazard786/huddle/internal/media"
	"github.com/BioHazard786/huddle/internal/negotiation"
	"github.com/BioHazard786/huddle/internal/peer"
	"github.com/BioHazard786/huddle/internal/render"
	"github.com/BioHazard786/huddle/internal/signaling"
	pion "github.com/pion/webrtc/v4"
)

// State is the call state of the session.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateActive
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Options configure a Session.
type Options struct {
	Room         string
	Name         string
	SignalingURL string

	Provider media.Provider
	Peers    peer.FactoryOptions

	// Dial overrides how the signaling connection is opened.
	Dial signaling.DialFunc
}

// UpdateKind classifies an Update.
type UpdateKind int

const (
	UpdateState UpdateKind = iota
	UpdatePeer
	UpdateChat
	UpdateError
)

// Update tells observers that something changed. Call Snapshot for the
// full picture.
type Update struct {
	Kind    UpdateKind
	Message string
	Err     error
}

// ChatLine is one chat message shown in the call.
type ChatLine struct {
	From string
	Name string
	Body string
	At   time.Time
	Self bool
}

// PeerRecord summarises a peer seen during the session.
type PeerRecord struct {
	ID        string
	Name      string
	FirstSeen time.Time
	LastState peer.State
	Received  int64
	Packets   int64
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	State   State
	Room    string
	LocalID string
	Started time.Time
	Peers   []negotiation.PeerInfo
	Board   render.Snapshot
	Chat    []ChatLine
	History []PeerRecord
}

// Session coordinates media acquisition, the signaling channel and
// negotiation. Everything it owns is touched only by the Run goroutine; the
// exported methods hand work to that goroutine.
type Session struct {
	opts    Options
	queue   *queue
	updates chan Update
	done    chan struct{}

	registry *peer.Registry
	board    *render.Board
	engine   *negotiation.Engine

	state       State
	gen         uint64
	source      *media.Source
	client      *signaling.Client
	startCtx    context.Context
	startCancel context.CancelFunc
	pending     []chan error
	started     time.Time
	chat        []ChatLine
	history     map[string]*PeerRecord
	order       []string

	closeOnce sync.Once
}

func New(opts Options) (*Session, error) {
	if opts.Provider == nil {
		opts.Provider = media.Unavailable{}
	}

	s := &Session{
		opts:    opts,
		queue:   newQueue(),
		updates: make(chan Update, 64),
		done:    make(chan struct{}),
		board:   render.NewBoard(),
		history: make(map[string]*PeerRecord),
	}

	factory, err := peer.NewFactory(opts.Peers, peer.Hooks{
		OnCandidate: func(e *peer.Entry, c pion.ICECandidateInit) {
			s.queue.push(candidateEvent{entry: e, candidate: c})
		},
		OnTrack: func(e *peer.Entry, track *pion.TrackRemote, _ *pion.RTPReceiver) {
			s.queue.push(trackEvent{entry: e, track: track})
		},
		OnState: func(e *peer.Entry, state pion.PeerConnectionState) {
			s.queue.push(connectionStateEvent{entry: e, state: state})
		},
		OnDataChannel: func(e *peer.Entry, dc *pion.DataChannel) {
			s.queue.push(dataChannelEvent{entry: e, dc: dc})
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create peer factory: %w", err)
	}

	s.registry = peer.NewRegistry(factory)
	s.engine = negotiation.New(negotiation.Options{
		Registry: s.registry,
		Board:    s.board,
		Send:     s.send,
		WireChat: s.wireChat,
		Notify:   s.notice,
		Name:     opts.Name,
	})
	return s, nil
}

// StartCall acquires local media and connects to the relay. It returns once
// the channel is open or the attempt failed. Calling it while a call is
// starting or active does nothing.
func (s *Session) StartCall(ctx context.Context) error {
	reply := make(chan error, 1)
	if !s.submit(startCmd{reply: reply}) {
		return callerr.New("start call", callerr.ErrChannelClosed)
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return callerr.New("start call", callerr.ErrChannelClosed)
	}
}

// HangUp ends the call and releases local media. It waits until teardown
// is complete and is safe to call at any time.
func (s *Session) HangUp() {
	reply := make(chan struct{})
	if !s.submit(hangUpCmd{reply: reply}) {
		return
	}

	select {
	case <-reply:
	case <-s.done:
	}
}

// SendChat sends a chat line to every connected peer.
func (s *Session) SendChat(body string) error {
	reply := make(chan error, 1)
	if !s.submit(chatCmd{body: body, reply: reply}) {
		return callerr.New("send chat", callerr.ErrNotConnected)
	}

	select {
	case err := <-reply:
		return err
	case <-s.done:
		return callerr.New("send chat", callerr.ErrNotConnected)
	}
}

func (s *Session) Snapshot() Snapshot {
	reply := make(chan Snapshot, 1)
	if !s.submit(snapshotCmd{reply: reply}) {
		return Snapshot{Room: s.opts.Room}
	}

	select {
	case snap := <-reply:
		return snap
	case <-s.done:
		return Snapshot{Room: s.opts.Room}
	}
}

// Updates delivers change notifications. It is closed when Run returns.
// Slow readers miss updates rather than stall the session.
func (s *Session) Updates() <-chan Update {
	return s.updates
}

// Done is closed when Run has returned.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) submit(ev any) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	s.queue.push(ev)
	return true
}

func (s *Session) publish(u Update) {
	select {
	case s.updates <- u:
	default:
	}
}

// wireChat turns chat channel callbacks into loop events.
func (s *Session) wireChat(e *peer.Entry, dc *pion.DataChannel) {
	dc.OnOpen(func() {
		s.queue.push(chatOpenEvent{entry: e, dc: dc})
	})
	dc.OnMessage(func(msg pion.DataChannelMessage) {
		s.queue.push(chatMessageEvent{entry: e, data: msg.Data})
	})
}

func (s *Session) send(msg signaling.Message) bool {
	if s.client == nil {
		return false
	}
	return s.client.Send(msg)
}

func (s *Session) notice(n negotiation.Notice) {
	switch n.Kind {
	case negotiation.NoticeIdentity:
		s.publish(Update{Kind: UpdateState, Message: "joined as " + n.Peer})

	case negotiation.NoticePeerState:
		rec := s.record(n.Peer)
		rec.LastState = n.State
		s.publish(Update{Kind: UpdatePeer, Message: fmt.Sprintf("%s is %s", s.label(n.Peer), n.State)})

	case negotiation.NoticePeerName:
		s.record(n.Peer).Name = n.Name
		s.publish(Update{Kind: UpdatePeer, Message: fmt.Sprintf("%s is %s", n.Peer, n.Name)})

	case negotiation.NoticePeerRemoved:
		rec := s.record(n.Peer)
		rec.LastState = n.State
		rec.Received += n.Received.Bytes
		rec.Packets += n.Received.Packets
		s.publish(Update{Kind: UpdatePeer, Message: s.label(n.Peer) + " left"})

	case negotiation.NoticeChat:
		s.chat = append(s.chat, ChatLine{
			From: n.Peer,
			Name: n.Name,
			Body: n.Text.Body,
			At:   n.Text.Time(),
		})
		s.publish(Update{Kind: UpdateChat, Message: n.Text.Body})
	}
}

func (s *Session) record(id string) *PeerRecord {
	rec, ok := s.history[id]
	if !ok {
		rec = &PeerRecord{ID: id, FirstSeen: time.Now()}
		s.history[id] = rec
		s.order = append(s.order, id)
	}
	return rec
}

func (s *Session) label(id string) string {
	if rec, ok := s.history[id]; ok && rec.Name != "" {
		return rec.Name
	}
	return id
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		State:   s.state,
		Room:    s.opts.Room,
		LocalID: s.engine.LocalID(),
		Started: s.started,
		Peers:   s.engine.Peers(),
		Board:   s.board.Snapshot(),
		Chat:    append([]ChatLine(nil), s.chat...),
	}

	live := make(map[string]render.SlotStats)
	for _, slot := range snap.Board.Remote {
		live[slot.PeerID] = slot
	}
	for _, id := range s.order {
		rec := *s.history[id]
		if slot, ok := live[id]; ok {
			rec.Received += slot.Bytes
			rec.Packets += slot.Packets
		}
		snap.History = append(snap.History, rec)
	}
	return snap
}

// chatLine records a line we sent.
func (s *Session) chatLine(text chat.Text) {
	s.chat = append(s.chat, ChatLine{
		From: s.engine.LocalID(),
		Name: text.Name,
		Body: text.Body,
		At:   text.Time(),
		Self: true,
	})
}
