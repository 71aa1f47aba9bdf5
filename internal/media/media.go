package media

import (
	"context"
	"sync"
	"sync/atomic"

	pion "github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
)

// Provider acquires the local media source. Acquire fails with
// callerr.ErrMediaAcquisition when no capture input is available.
type Provider interface {
	Acquire(ctx context.Context) (*Source, error)
}

// TrackStats counts what a local track has produced.
type TrackStats struct {
	Kind    string
	Codec   string
	Samples int64
	Bytes   int64
}

// Source owns the local tracks and the goroutines feeding them.
type Source struct {
	tracks []*track
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

type track struct {
	local   *pion.TrackLocalStaticSample
	kind    string
	samples atomic.Int64
	bytes   atomic.Int64
}

func (t *track) write(s pionmedia.Sample) error {
	t.samples.Add(1)
	t.bytes.Add(int64(len(s.Data)))
	return t.local.WriteSample(s)
}

func newSource() *Source {
	return &Source{}
}

func (s *Source) addTrack(kind, mimeType string) (*track, error) {
	local, err := pion.NewTrackLocalStaticSample(
		pion.RTPCodecCapability{MimeType: mimeType},
		kind,
		"huddle",
	)
	if err != nil {
		return nil, err
	}
	t := &track{local: local, kind: kind}
	s.tracks = append(s.tracks, t)
	return t, nil
}

// start launches the feeders. Each runs until Stop.
func (s *Source) start(feeders ...func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	for _, feed := range feeders {
		s.wg.Add(1)
		go func(feed func(context.Context)) {
			defer s.wg.Done()
			feed(ctx)
		}(feed)
	}
}

// Tracks returns the tracks to publish on every peer connection.
func (s *Source) Tracks() []pion.TrackLocal {
	tracks := make([]pion.TrackLocal, 0, len(s.tracks))
	for _, t := range s.tracks {
		tracks = append(tracks, t.local)
	}
	return tracks
}

func (s *Source) Stats() []TrackStats {
	stats := make([]TrackStats, 0, len(s.tracks))
	for _, t := range s.tracks {
		stats = append(stats, TrackStats{
			Kind:    t.kind,
			Codec:   t.local.Codec().MimeType,
			Samples: t.samples.Load(),
			Bytes:   t.bytes.Load(),
		})
	}
	return stats
}

// Stop ends every feeder and waits for them. Safe to call more than once.
func (s *Source) Stop() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
	})
}
