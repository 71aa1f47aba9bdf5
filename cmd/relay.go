package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/BioHazard786/huddle/internal/config"
	"github.com/BioHazard786/huddle/internal/relay"
	"github.com/BioHazard786/huddle/internal/ui"
	"github.com/spf13/cobra"
)

var (
	flagRelayPort int
	flagRelayPath string
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run a signaling relay for huddle rooms",
	Long: `Run the signaling relay that huddle clients join. It assigns every
connection an id, announces room membership and forwards offers, answers
and candidates between peers. Media never passes through it.

Examples:
  huddle relay
  huddle relay --port 9000 --path signal`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRelay(cmd.Context(), flagRelayPort, flagRelayPath)
	},
}

func runRelay(ctx context.Context, port int, path string) error {
	hub := relay.NewHub()
	go hub.Run()
	defer hub.Close()

	srv := &http.Server{
		Addr:              net.JoinHostPort("", strconv.Itoa(port)),
		Handler:           relay.NewMux(hub, path),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	ui.PrintSuccessf("Relay listening on ws://localhost:%d/%s/<room>", port, path)
	slog.Info("relay started", "port", port, "path", path)

	select {
	case err := <-errCh:
		return fmt.Errorf("relay stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	ui.PrintInfo("Relay stopped")
	return nil
}

func init() {
	rootCmd.AddCommand(relayCmd)

	relayCmd.Flags().IntVar(&flagRelayPort, "port", config.DefaultPort, "Port to listen on")
	relayCmd.Flags().StringVar(&flagRelayPath, "path", config.DefaultPath, "Path prefix for room endpoints")
}
