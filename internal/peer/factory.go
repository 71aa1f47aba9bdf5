package peer

import (
	"log/slog"

	"github.com/BioHazard786/huddle/internal/config"
	"github.com/BioHazard786/huddle/internal/logging"
	"github.com/BioHazard786/huddle/internal/utils"
	"github.com/pion/transport/v3"
	pion "github.com/pion/webrtc/v4"
)

// Hooks receive the transport events of every connection built by a
// Factory. They run on pion's goroutines and must not block.
type Hooks struct {
	OnCandidate   func(e *Entry, c pion.ICECandidateInit)
	OnTrack       func(e *Entry, track *pion.TrackRemote, receiver *pion.RTPReceiver)
	OnState       func(e *Entry, state pion.PeerConnectionState)
	OnDataChannel func(e *Entry, dc *pion.DataChannel)
}

// FactoryOptions configure how connections reach each other.
type FactoryOptions struct {
	ICEServers []pion.ICEServer
	ForceRelay bool

	// Net replaces the host network stack, used with a virtual network in tests.
	Net transport.Net

	Logger *slog.Logger
}

// Factory creates peer connections sharing one pion API.
type Factory struct {
	api    *pion.API
	config pion.Configuration
	hooks  Hooks
}

// OptionsFromConfig derives ICE servers and relay policy from the CLI
// configuration.
func OptionsFromConfig(cfg *config.Config) FactoryOptions {
	var iceServers []pion.ICEServer
	if stun := cfg.GetSTUNServers(); stun != nil {
		iceServers = append(iceServers, pion.ICEServer{URLs: stun})
	}

	turnServers := cfg.GetTURNServers()
	if turnServers != nil {
		username, password := cfg.GetTURNCredentials()
		iceServers = append(iceServers, pion.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	return FactoryOptions{
		ICEServers: iceServers,
		ForceRelay: turnServers != nil && (cfg.ForceRelay || utils.ShouldForceRelay()),
	}
}

func NewFactory(opts FactoryOptions, hooks Hooks) (*Factory, error) {
	mediaEngine := &pion.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	se := pion.SettingEngine{}
	se.LoggerFactory = logging.NewPionFactory(logger)
	if opts.Net != nil {
		se.SetNet(opts.Net)
	}

	policy := pion.ICETransportPolicyAll
	if opts.ForceRelay {
		policy = pion.ICETransportPolicyRelay
	}

	return &Factory{
		api: pion.NewAPI(
			pion.WithSettingEngine(se),
			pion.WithMediaEngine(mediaEngine),
		),
		config: pion.Configuration{
			ICEServers:         opts.ICEServers,
			ICETransportPolicy: policy,
		},
		hooks: hooks,
	}, nil
}

// Connect builds a connection for e and routes its events to the hooks.
func (f *Factory) Connect(e *Entry) (*pion.PeerConnection, error) {
	pc, err := f.api.NewPeerConnection(f.config)
	if err != nil {
		return nil, err
	}

	pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil || f.hooks.OnCandidate == nil {
			return
		}
		f.hooks.OnCandidate(e, c.ToJSON())
	})

	pc.OnTrack(func(track *pion.TrackRemote, receiver *pion.RTPReceiver) {
		if f.hooks.OnTrack != nil {
			f.hooks.OnTrack(e, track, receiver)
		}
	})

	pc.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		slog.Debug("peer connection state", "peer", e.ID, "state", state.String())
		if f.hooks.OnState != nil {
			f.hooks.OnState(e, state)
		}
	})

	pc.OnDataChannel(func(dc *pion.DataChannel) {
		if f.hooks.OnDataChannel != nil {
			f.hooks.OnDataChannel(e, dc)
		}
	})

	return pc, nil
}
