package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/BioHazard786/huddle/internal/callerr"
	"github.com/BioHazard786/huddle/internal/signaling"
)

// Run processes events one at a time until ctx is done, then hangs up.
func (s *Session) Run(ctx context.Context) {
	defer s.closeOnce.Do(func() {
		close(s.done)
		close(s.updates)
	})

	for {
		select {
		case <-ctx.Done():
			s.hangUp()
			s.replyDrained()
			return

		case <-s.queue.signal:
			for _, ev := range s.queue.drain() {
				s.handle(ctx, ev)
			}
		}
	}
}

// replyDrained answers commands still queued at shutdown so no caller is
// left waiting.
func (s *Session) replyDrained() {
	for _, ev := range s.queue.drain() {
		switch ev := ev.(type) {
		case startCmd:
			ev.reply <- context.Canceled
		case hangUpCmd:
			close(ev.reply)
		case chatCmd:
			ev.reply <- callerr.New("send chat", callerr.ErrNotConnected)
		case snapshotCmd:
			ev.reply <- s.snapshot()
		case mediaResult:
			if ev.source != nil {
				ev.source.Stop()
			}
		case dialResult:
			if ev.client != nil {
				ev.client.Close()
			}
		}
	}
}

func (s *Session) handle(ctx context.Context, ev any) {
	switch ev := ev.(type) {
	case startCmd:
		s.start(ctx, ev.reply)

	case hangUpCmd:
		s.hangUp()
		close(ev.reply)

	case chatCmd:
		text, err := s.engine.SendChat(ev.body)
		if err == nil {
			s.chatLine(text)
			s.publish(Update{Kind: UpdateChat, Message: text.Body})
		}
		ev.reply <- err

	case snapshotCmd:
		ev.reply <- s.snapshot()

	case mediaResult:
		s.mediaReady(ev)

	case dialResult:
		s.dialed(ev)

	case inboundEvent:
		if ev.gen == s.gen {
			signaling.Dispatch(ev.msg, s.engine)
		}

	case channelClosed:
		s.channelClosed(ev)

	case candidateEvent:
		s.engine.HandleLocalCandidate(ev.entry, ev.candidate)

	case trackEvent:
		s.engine.HandleTrack(ev.entry, ev.track)

	case connectionStateEvent:
		s.engine.HandleConnectionState(ev.entry, ev.state)

	case dataChannelEvent:
		s.engine.HandleDataChannel(ev.entry, ev.dc)

	case chatOpenEvent:
		s.engine.HandleChatOpen(ev.entry, ev.dc)

	case chatMessageEvent:
		s.engine.HandleChatMessage(ev.entry, ev.data)

	default:
		slog.Warn("unknown session event", "event", ev)
	}
}

func (s *Session) start(ctx context.Context, reply chan error) {
	switch s.state {
	case StateStarting:
		// Joins the start already underway and resolves with it.
		s.pending = append(s.pending, reply)
		return
	case StateActive:
		slog.Debug("start ignored, call in progress")
		reply <- nil
		return
	}

	s.setState(StateStarting)
	s.gen++
	s.pending = append(s.pending, reply)

	startCtx, cancel := context.WithCancel(ctx)
	s.startCtx, s.startCancel = startCtx, cancel

	// A source kept from an earlier call is reused.
	if s.source != nil {
		s.dial(startCtx, s.gen)
		return
	}

	gen, provider := s.gen, s.opts.Provider
	go func() {
		source, err := provider.Acquire(startCtx)
		s.queue.push(mediaResult{gen: gen, source: source, err: err})
	}()
}

func (s *Session) mediaReady(ev mediaResult) {
	if ev.gen != s.gen || s.state != StateStarting {
		if ev.source != nil {
			ev.source.Stop()
		}
		return
	}

	if ev.err != nil {
		slog.Error("media acquisition failed", "error", ev.err)
		s.fail(ev.err)
		return
	}

	s.source = ev.source
	s.board.ShowLocal(ev.source)
	s.engine.SetTracks(ev.source.Tracks())
	s.dial(s.startCtx, ev.gen)
}

func (s *Session) dial(ctx context.Context, gen uint64) {
	url, room, name, dialFn := s.opts.SignalingURL, s.opts.Room, s.opts.Name, s.opts.Dial
	go func() {
		client, err := signaling.Connect(ctx, url, room, name, dialFn)
		s.queue.push(dialResult{gen: gen, client: client, err: err})
	}()
}

func (s *Session) dialed(ev dialResult) {
	if ev.gen != s.gen || s.state != StateStarting {
		if ev.client != nil {
			ev.client.Close()
		}
		return
	}

	if ev.err != nil {
		slog.Error("failed to connect to signaling relay", "url", s.opts.SignalingURL, "error", ev.err)
		s.fail(ev.err)
		return
	}

	s.client = ev.client
	s.started = time.Now()
	s.setState(StateActive)

	gen, client := ev.gen, ev.client
	go func() {
		for msg := range client.Incoming() {
			s.queue.push(inboundEvent{gen: gen, msg: msg})
		}
		s.queue.push(channelClosed{gen: gen})
	}()

	s.resolve(nil)
}

// channelClosed ends the call from our side. Local media stays acquired
// for the next StartCall.
func (s *Session) channelClosed(ev channelClosed) {
	if ev.gen != s.gen || s.client == nil {
		return
	}

	slog.Info("signaling channel closed, call ended")
	s.client.Close()
	s.client = nil
	s.engine.Reset()
	s.setState(StateIdle)
	s.publish(Update{Kind: UpdateError, Message: "signaling channel closed", Err: callerr.ErrChannelClosed})
}

// hangUp is the scoped teardown. Each step is a no-op when there is nothing
// to release.
func (s *Session) hangUp() {
	s.gen++
	if s.startCancel != nil {
		s.startCancel()
		s.startCancel = nil
	}

	if s.client != nil {
		// The relay drops us on leave even before it assigned an id.
		if s.client.IsOpen() {
			s.client.Send(signaling.Leave(s.engine.LocalID(), s.opts.Room))
		}
		s.client.Close()
		s.client = nil
	}

	if s.source != nil {
		s.source.Stop()
		s.source = nil
	}
	s.engine.SetTracks(nil)
	s.board.ClearLocal()

	s.engine.Reset()
	s.resolve(context.Canceled)

	if s.state != StateIdle {
		s.setState(StateIdle)
	}
}

func (s *Session) fail(err error) {
	if s.startCancel != nil {
		s.startCancel()
		s.startCancel = nil
	}
	s.setState(StateIdle)
	s.publish(Update{Kind: UpdateError, Message: err.Error(), Err: err})
	s.resolve(err)
}

// resolve answers every StartCall waiting on the current attempt.
func (s *Session) resolve(err error) {
	for _, reply := range s.pending {
		reply <- err
	}
	s.pending = nil
}

func (s *Session) setState(state State) {
	s.state = state
	slog.Debug("session state", "state", state.String())
	s.publish(Update{Kind: UpdateState, Message: state.String()})
}
