package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/BioHazard786/huddle/internal/callerr"
	pion "github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/ivfreader"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"
)

const (
	defaultFrameInterval = 33 * time.Millisecond
	opusClockRate        = 48000
)

// FileProvider plays a VP8 IVF file and/or an Opus OGG file in a loop,
// standing in for a camera and microphone.
type FileProvider struct {
	VideoPath string
	AudioPath string
}

func (p FileProvider) Acquire(ctx context.Context) (*Source, error) {
	if p.VideoPath == "" && p.AudioPath == "" {
		return nil, callerr.Wrap("acquire media", callerr.ErrMediaAcquisition, "no input files")
	}
	if err := ValidateFiles(p.VideoPath, p.AudioPath); err != nil {
		return nil, callerr.Wrap("acquire media", callerr.ErrMediaAcquisition, err.Error())
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src := newSource()
	var feeders []func(context.Context)

	if p.VideoPath != "" {
		interval, err := probeIVF(p.VideoPath)
		if err != nil {
			return nil, callerr.Wrap("acquire media", callerr.ErrMediaAcquisition, err.Error())
		}
		t, err := src.addTrack("video", pion.MimeTypeVP8)
		if err != nil {
			return nil, callerr.Wrap("acquire media", callerr.ErrMediaAcquisition, err.Error())
		}
		feeders = append(feeders, func(ctx context.Context) {
			loop(ctx, p.VideoPath, func(ctx context.Context, r io.Reader) error {
				return playIVF(ctx, r, interval, t)
			})
		})
	}

	if p.AudioPath != "" {
		if err := probeOgg(p.AudioPath); err != nil {
			return nil, callerr.Wrap("acquire media", callerr.ErrMediaAcquisition, err.Error())
		}
		t, err := src.addTrack("audio", pion.MimeTypeOpus)
		if err != nil {
			return nil, callerr.Wrap("acquire media", callerr.ErrMediaAcquisition, err.Error())
		}
		feeders = append(feeders, func(ctx context.Context) {
			loop(ctx, p.AudioPath, func(ctx context.Context, r io.Reader) error {
				return playOgg(ctx, r, t)
			})
		})
	}

	src.start(feeders...)
	return src, nil
}

func probeIVF(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	_, header, err := ivfreader.NewWith(f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	if header.FourCC != "VP80" {
		return 0, fmt.Errorf("%s: unsupported codec %q, want VP80", path, header.FourCC)
	}
	if header.TimebaseDenominator == 0 || header.TimebaseNumerator == 0 {
		return defaultFrameInterval, nil
	}
	return time.Duration(float64(time.Second) * float64(header.TimebaseNumerator) / float64(header.TimebaseDenominator)), nil
}

func probeOgg(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, _, err := oggreader.NewWith(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// loop replays path until ctx is done.
func loop(ctx context.Context, path string, play func(context.Context, io.Reader) error) {
	for ctx.Err() == nil {
		f, err := os.Open(path)
		if err != nil {
			slog.Error("failed to reopen media file", "path", path, "error", err)
			return
		}
		err = play(ctx, f)
		f.Close()
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) {
			slog.Error("media playback stopped", "path", path, "error", err)
			return
		}
	}
}

func playIVF(ctx context.Context, r io.Reader, interval time.Duration, t *track) error {
	reader, _, err := ivfreader.NewWith(r)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		frame, _, err := reader.ParseNextFrame()
		if err != nil {
			return err
		}
		if err := t.write(pionmedia.Sample{Data: frame, Duration: interval}); err != nil {
			return err
		}
	}
}

func playOgg(ctx context.Context, r io.Reader, t *track) error {
	reader, _, err := oggreader.NewWith(r)
	if err != nil {
		return err
	}

	var lastGranule uint64
	for {
		page, header, err := reader.ParseNextPage()
		if err != nil {
			return err
		}

		samples := header.GranulePosition - lastGranule
		lastGranule = header.GranulePosition
		duration := time.Duration(float64(samples) / opusClockRate * float64(time.Second))

		if err := t.write(pionmedia.Sample{Data: page, Duration: duration}); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(duration):
		}
	}
}
