package session

import (
	"sync"

	"github.com/BioHazard786/huddle/internal/media"
	"github.com/BioHazard786/huddle/internal/peer"
	"github.com/BioHazard786/huddle/internal/signaling"
	pion "github.com/pion/webrtc/v4"
)

// Loop events. Commands carry a reply channel; results of off-loop work
// carry the call generation they belong to.
type (
	startCmd struct {
		reply chan error
	}
	hangUpCmd struct {
		reply chan struct{}
	}
	chatCmd struct {
		body  string
		reply chan error
	}
	snapshotCmd struct {
		reply chan Snapshot
	}

	mediaResult struct {
		gen    uint64
		source *media.Source
		err    error
	}
	dialResult struct {
		gen    uint64
		client *signaling.Client
		err    error
	}
	inboundEvent struct {
		gen uint64
		msg signaling.Message
	}
	channelClosed struct {
		gen uint64
	}

	candidateEvent struct {
		entry     *peer.Entry
		candidate pion.ICECandidateInit
	}
	trackEvent struct {
		entry *peer.Entry
		track *pion.TrackRemote
	}
	connectionStateEvent struct {
		entry *peer.Entry
		state pion.PeerConnectionState
	}
	dataChannelEvent struct {
		entry *peer.Entry
		dc    *pion.DataChannel
	}
	chatOpenEvent struct {
		entry *peer.Entry
		dc    *pion.DataChannel
	}
	chatMessageEvent struct {
		entry *peer.Entry
		data  []byte
	}
)

// queue is an unbounded FIFO. push never blocks, so transport callbacks
// cannot stall behind a busy loop.
type queue struct {
	mu     sync.Mutex
	items  []any
	signal chan struct{}
}

func newQueue() *queue {
	return &queue{signal: make(chan struct{}, 1)}
}

func (q *queue) push(ev any) {
	q.mu.Lock()
	q.items = append(q.items, ev)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *queue) drain() []any {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()
	return items
}
