package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/BioHazard786/huddle/internal/session"
	"github.com/BioHazard786/huddle/internal/utils"
	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RoomInfo is the banner shown before a call starts.
type RoomInfo struct {
	Room      string
	Name      string
	Signaling string
}

func (r RoomInfo) View() string {
	content := fmt.Sprintf("%s Room %s\n\n%s You:       %s\n%s Relay:     %s\n%s Share:     %s",
		IconRoom, BoldStyle.Foreground(Primary).Render(r.Room),
		IconPeer, r.Name,
		IconRelay, MutedStyle.Render(r.Signaling),
		IconLink, MutedStyle.Render("huddle call "+r.Room),
	)

	return RoomBoxStyle.Render(content)
}

// CallSummary renders what happened during a call: one row per peer seen,
// with totals in the footer.
func CallSummary(snap session.Snapshot, ended time.Time) string {
	t := prettytable.NewWriter()
	t.SetStyle(prettytable.StyleRounded)
	t.SetTitle(fmt.Sprintf("%s Call summary · %s", IconHangUp, snap.Room))
	t.AppendHeader(prettytable.Row{"Peer", "Name", "Last state", "Packets", "Received"})
	t.SetColumnConfigs([]prettytable.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})

	var packets, bytes int64
	for _, rec := range snap.History {
		name := rec.Name
		if name == "" {
			name = "-"
		}
		t.AppendRow(prettytable.Row{
			shortID(rec.ID),
			utils.TruncateString(name, 20),
			rec.LastState.String(),
			rec.Packets,
			utils.FormatSize(rec.Received),
		})
		packets += rec.Packets
		bytes += rec.Received
	}

	duration := "-"
	if !snap.Started.IsZero() && ended.After(snap.Started) {
		duration = utils.FormatTimeDuration(ended.Sub(snap.Started))
	}
	t.AppendFooter(prettytable.Row{
		fmt.Sprintf("%d peers", len(snap.History)),
		fmt.Sprintf("%d messages", len(snap.Chat)),
		duration,
		packets,
		utils.FormatSize(bytes),
	})

	return t.Render()
}

func RenderCallSummary(w io.Writer, snap session.Snapshot, ended time.Time) {
	if len(snap.History) == 0 && len(snap.Chat) == 0 {
		fmt.Fprintln(w, MutedStyle.Render("Nobody joined the call."))
		return
	}
	fmt.Fprintln(w, CallSummary(snap, ended))
}
