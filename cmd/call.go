package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BioHazard786/huddle/internal/config"
	"github.com/BioHazard786/huddle/internal/dns"
	"github.com/BioHazard786/huddle/internal/media"
	"github.com/BioHazard786/huddle/internal/peer"
	"github.com/BioHazard786/huddle/internal/session"
	"github.com/BioHazard786/huddle/internal/ui"
	"github.com/spf13/cobra"
)

var (
	flagName     string
	flagHost     string
	flagPort     int
	flagPath     string
	flagSecure   bool
	flagSTUN     string
	flagTURN     string
	flagTURNUser string
	flagTURNPass string
	flagRelay    bool
	flagVideo    string
	flagAudio    string
	flagSilence  bool
	flagNoUI     bool
)

var callCmd = &cobra.Command{
	Use:     "call [room-id|url]",
	Aliases: []string{"c"},
	Short:   "Join a room and call everyone in it",
	Long: `Join a room on the signaling relay and connect directly to every other
participant. Without a room a new one is named for you; share it with the
people you want to talk to.

Examples:
  huddle call
  huddle call quiet-harbor-kite --name ana
  huddle call https://meet.example.com/rooms/quiet-harbor-kite
  huddle call standup --video cam.ivf --audio mic.ogg
  huddle call standup --silence --no-ui`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var input string
		if len(args) == 1 {
			input = args[0]
		}
		return runCall(cmd.Context(), input)
	},
}

func runCall(ctx context.Context, input string) error {
	room, page, err := resolveRoom(input)
	if err != nil {
		return err
	}

	if flagVideo != "" || flagAudio != "" {
		sp := ui.NewStatusSpinner("Checking media files...").Start()
		if err := media.ValidateFiles(flagVideo, flagAudio); err != nil {
			sp.Stop()
			return err
		}
		sp.Stop()
	}

	cfg, err := config.Load(config.Options{
		Host:       flagHost,
		Port:       flagPort,
		Path:       flagPath,
		Secure:     flagSecure,
		STUNServer: flagSTUN,
		TURNServer: flagTURN,
		TURNUser:   flagTURNUser,
		TURNPass:   flagTURNPass,
		ForceRelay: flagRelay,
		Name:       flagName,
		VideoFile:  flagVideo,
		AudioFile:  flagAudio,
		Silence:    flagSilence,
		Page:       page,
	})
	if err != nil {
		return err
	}

	peers := peer.OptionsFromConfig(cfg)
	peers.Logger = slog.Default().With("component", "peer")

	sess, err := session.New(session.Options{
		Room:         room,
		Name:         cfg.Name,
		SignalingURL: cfg.SignalingURL(room),
		Provider:     media.Select(cfg.VideoFile, cfg.AudioFile, cfg.Silence),
		Peers:        peers,
		Dial:         dns.NewResolver().DialContext,
	})
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sess.Run(runCtx)

	fmt.Println()
	fmt.Println(ui.RoomInfo{Room: room, Name: cfg.Name, Signaling: cfg.SignalingURL(room)}.View())
	fmt.Println()

	if flagNoUI {
		err = runPlain(ctx, sess)
	} else {
		err = ui.RunDashboard(ctx, sess, true)
	}

	sess.HangUp()
	snap := sess.Snapshot()
	cancel()
	<-sess.Done()

	fmt.Println()
	ui.RenderCallSummary(os.Stdout, snap, time.Now())
	return err
}

func resolveRoom(input string) (string, *config.Page, error) {
	if strings.TrimSpace(input) == "" {
		return config.GenerateRoomName(), nil, nil
	}
	return config.ParseRoomInput(input)
}

// runPlain prints call events as lines and sends each line typed on stdin
// as a chat message. It returns when ctx is cancelled or the session stops.
func runPlain(ctx context.Context, sess *session.Session) error {
	sp := ui.NewNetworkSpinner("Joining room...").Start()
	if err := sess.StartCall(ctx); err != nil {
		sp.Error("Could not join: " + err.Error())
		return err
	}
	sp.Success("Joined, waiting for peers. Type a line and press enter to chat.")

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			body := strings.TrimSpace(scanner.Text())
			if body == "" {
				continue
			}
			if err := sess.SendChat(body); err != nil {
				ui.PrintWarning(err.Error())
			}
		}
	}()

	updates := sess.Updates()
	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			printUpdate(u)
		}
	}
}

func printUpdate(u session.Update) {
	switch u.Kind {
	case session.UpdateError:
		if u.Err != nil {
			ui.PrintError(u.Err.Error())
		}
	case session.UpdateChat:
		fmt.Printf("%s %s\n", ui.IconChat, u.Message)
	case session.UpdatePeer:
		fmt.Printf("%s %s\n", ui.IconPeer, u.Message)
	default:
		ui.PrintInfo(u.Message)
	}
}

func init() {
	rootCmd.AddCommand(callCmd)

	f := callCmd.Flags()
	f.StringVarP(&flagName, "name", "n", "", "Display name announced to the room")
	f.StringVar(&flagHost, "host", "", "Signaling relay host")
	f.IntVar(&flagPort, "port", 0, "Signaling relay port")
	f.StringVar(&flagPath, "path", "", "Signaling relay path prefix")
	f.BoolVar(&flagSecure, "secure", false, "Use wss:// for the relay")
	f.StringVarP(&flagSTUN, "stun", "s", "", "Custom STUN server")
	f.StringVarP(&flagTURN, "turn", "t", "", "Custom TURN server")
	f.StringVarP(&flagTURNUser, "turn-user", "u", "", "TURN username")
	f.StringVarP(&flagTURNPass, "turn-pass", "p", "", "TURN password")
	f.BoolVarP(&flagRelay, "relay", "r", false, "Force relay mode")
	f.StringVar(&flagVideo, "video", "", "VP8 IVF file to stream as video")
	f.StringVar(&flagAudio, "audio", "", "Opus Ogg file to stream as audio")
	f.BoolVar(&flagSilence, "silence", false, "Send generated silence when no audio file is given")
	f.BoolVar(&flagNoUI, "no-ui", false, "Print events as lines instead of the dashboard")
}
