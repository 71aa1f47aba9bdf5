package media

import (
	"context"
	"time"

	"github.com/BioHazard786/huddle/internal/callerr"
	pion "github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
)

const silenceInterval = 20 * time.Millisecond

// opusSilence is one 20 ms Opus frame of digital silence.
var opusSilence = []byte{0xf8, 0xff, 0xfe}

// SilenceProvider publishes a single Opus audio track carrying silence.
// Useful on hosts without capture devices and in tests.
type SilenceProvider struct{}

func (SilenceProvider) Acquire(ctx context.Context) (*Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src := newSource()
	t, err := src.addTrack("audio", pion.MimeTypeOpus)
	if err != nil {
		return nil, err
	}

	src.start(func(ctx context.Context) {
		ticker := time.NewTicker(silenceInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.write(pionmedia.Sample{Data: opusSilence, Duration: silenceInterval})
			}
		}
	})
	return src, nil
}

// Unavailable is the provider used when no capture input was configured.
type Unavailable struct{}

func (Unavailable) Acquire(context.Context) (*Source, error) {
	return nil, callerr.Wrap("acquire media", callerr.ErrMediaAcquisition, "no capture input configured")
}

// Select picks the provider for the configured inputs. Files win over
// silence; with neither the environment has no capture devices.
func Select(videoPath, audioPath string, silence bool) Provider {
	switch {
	case videoPath != "" || audioPath != "":
		return FileProvider{VideoPath: videoPath, AudioPath: audioPath}
	case silence:
		return SilenceProvider{}
	default:
		return Unavailable{}
	}
}
