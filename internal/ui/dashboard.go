package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BioHazard786/huddle/internal/media"
	"github.com/BioHazard786/huddle/internal/peer"
	"github.com/BioHazard786/huddle/internal/render"
	"github.com/BioHazard786/huddle/internal/session"
	"github.com/BioHazard786/huddle/internal/utils"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

const (
	refreshInterval = 500 * time.Millisecond
	chatLines       = 8
)

// Controller is the part of a call session the dashboard drives.
type Controller interface {
	StartCall(ctx context.Context) error
	HangUp()
	SendChat(body string) error
	Snapshot() session.Snapshot
	Updates() <-chan session.Update
}

type (
	updateMsg         session.Update
	updatesClosedMsg  struct{}
	refreshMsg        time.Time
	startFinishedMsg  struct{ err error }
	hangUpFinishedMsg struct{}
)

type rateSample struct {
	bytes int64
	at    time.Time
	bps   float64
}

type dashboardModel struct {
	ctx  context.Context
	ctrl Controller

	spinner spinner.Model
	input   textinput.Model
	stage   progress.Model

	snap     session.Snapshot
	rates    map[string]rateSample
	status   string
	lastErr  string
	starting bool
	quitting bool
}

// RunDashboard shows the interactive call view until the user quits or ctx
// is cancelled. The call is started right away when autoStart is set.
func RunDashboard(ctx context.Context, ctrl Controller, autoStart bool) error {
	m := newDashboard(ctx, ctrl)
	m.starting = autoStart

	p := tea.NewProgram(m)
	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	_, err := p.Run()
	return err
}

func newDashboard(ctx context.Context, ctrl Controller) *dashboardModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	in := textinput.New()
	in.Placeholder = "Say something to the room"
	in.Prompt = IconChat + " "
	in.CharLimit = 500
	in.Width = 50
	in.Focus()

	return &dashboardModel{
		ctx:     ctx,
		ctrl:    ctrl,
		spinner: s,
		input:   in,
		stage: progress.New(
			progress.WithGradient(StageStart, StageEnd),
			progress.WithWidth(12),
			progress.WithoutPercentage(),
		),
		snap:   ctrl.Snapshot(),
		rates:  make(map[string]rateSample),
		status: "Press ctrl+s to join the call",
	}
}

func (m *dashboardModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, textinput.Blink, m.listen(), refresh()}
	if m.starting {
		cmds = append(cmds, m.start())
	}
	return tea.Batch(cmds...)
}

func (m *dashboardModel) listen() tea.Cmd {
	updates := m.ctrl.Updates()
	return func() tea.Msg {
		u, ok := <-updates
		if !ok {
			return updatesClosedMsg{}
		}
		return updateMsg(u)
	}
}

func refresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

func (m *dashboardModel) start() tea.Cmd {
	m.starting = true
	m.lastErr = ""
	m.status = "Starting call..."
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return startFinishedMsg{err: ctrl.StartCall(ctx)}
	}
}

func (m *dashboardModel) hangUp() tea.Cmd {
	m.status = "Hanging up..."
	ctrl := m.ctrl
	return func() tea.Msg {
		ctrl.HangUp()
		return hangUpFinishedMsg{}
	}
}

func (m *dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "ctrl+s":
			if m.snap.State == session.StateIdle && !m.starting {
				return m, m.start()
			}
			return m, nil
		case "ctrl+x":
			return m, m.hangUp()
		case "enter":
			m.sendChat()
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)

	case tea.WindowSizeMsg:
		m.input.Width = max(20, min(80, msg.Width-8))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case startFinishedMsg:
		m.starting = false
		if msg.err != nil {
			m.lastErr = msg.err.Error()
			m.status = "Call could not start"
		} else {
			m.status = "Connected to room " + m.snap.Room
		}
		m.reload(time.Now())

	case hangUpFinishedMsg:
		m.status = "Call ended"
		m.reload(time.Now())

	case updateMsg:
		if msg.Kind == session.UpdateError && msg.Err != nil {
			m.lastErr = msg.Err.Error()
		} else if msg.Message != "" {
			m.status = msg.Message
		}
		m.reload(time.Now())
		cmds = append(cmds, m.listen())

	case updatesClosedMsg:
		m.quitting = true
		return m, tea.Quit

	case refreshMsg:
		m.reload(time.Time(msg))
		cmds = append(cmds, refresh())

	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *dashboardModel) sendChat() {
	body := strings.TrimSpace(m.input.Value())
	if body == "" {
		return
	}
	if err := m.ctrl.SendChat(body); err != nil {
		m.lastErr = err.Error()
		return
	}
	m.lastErr = ""
	m.input.SetValue("")
	m.reload(time.Now())
}

// reload takes a fresh snapshot and updates per-peer receive rates.
func (m *dashboardModel) reload(now time.Time) {
	m.snap = m.ctrl.Snapshot()

	seen := make(map[string]bool, len(m.snap.Board.Remote))
	for _, slot := range m.snap.Board.Remote {
		seen[slot.PeerID] = true
		prev, ok := m.rates[slot.PeerID]
		sample := rateSample{bytes: slot.Bytes, at: now, bps: prev.bps}
		if ok && now.After(prev.at) {
			sample.bps = utils.Bitrate(slot.Bytes-prev.bytes, now.Sub(prev.at))
		}
		m.rates[slot.PeerID] = sample
	}
	for id := range m.rates {
		if !seen[id] {
			delete(m.rates, id)
		}
	}
}

func (m *dashboardModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(HeaderStyle.Render(fmt.Sprintf("%s huddle · %s %s", IconCall, IconRoom, m.snap.Room)))
	b.WriteString("\n")

	indicator := SuccessStyle.Render("●")
	switch {
	case m.starting || m.snap.State == session.StateStarting:
		indicator = m.spinner.View()
	case m.snap.State == session.StateIdle:
		indicator = MutedStyle.Render("○")
	}
	b.WriteString(fmt.Sprintf("%s %s", indicator, m.status))
	if m.snap.LocalID != "" {
		b.WriteString(MutedStyle.Render("  (you are " + shortID(m.snap.LocalID) + ")"))
	}
	if m.snap.State == session.StateActive && !m.snap.Started.IsZero() {
		b.WriteString(MutedStyle.Render("  " + IconTime + " " + utils.FormatTimeDuration(time.Since(m.snap.Started))))
	}
	b.WriteString("\n\n")

	b.WriteString(localLine(m.snap.Board.Local))
	b.WriteString("\n\n")
	b.WriteString(peersView(m.snap, m.rates, m.stage))
	b.WriteString("\n\n")
	b.WriteString(chatView(m.snap.Chat, chatLines))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")

	if m.lastErr != "" {
		b.WriteString("\n" + ErrorStyle.Render(IconError+" "+m.lastErr) + "\n")
	}

	b.WriteString(FooterStyle.Render("enter send · ctrl+s join · ctrl+x hang up · esc quit"))
	return b.String()
}

// localLine is the local preview: what we are sending.
func localLine(tracks []media.TrackStats) string {
	if len(tracks) == 0 {
		return MutedStyle.Render(IconMuted + " no local media")
	}

	parts := make([]string, 0, len(tracks))
	for _, t := range tracks {
		icon := IconMic
		if t.Kind == "video" {
			icon = IconCamera
		}
		parts = append(parts, fmt.Sprintf("%s %s %s sent", icon, t.Codec, utils.FormatSize(t.Bytes)))
	}
	return strings.Join(parts, "   ")
}

// stageProgress maps a negotiation state onto the stage bar.
func stageProgress(s peer.State) float64 {
	switch s {
	case peer.StateHaveLocalOffer, peer.StateHaveRemoteOffer:
		return 1.0 / 3
	case peer.StateConnecting:
		return 2.0 / 3
	case peer.StateConnected:
		return 1
	default:
		return 0
	}
}

func peersView(snap session.Snapshot, rates map[string]rateSample, bar progress.Model) string {
	if len(snap.Peers) == 0 {
		return MutedStyle.Render(IconWaiting + " Nobody else is here yet")
	}

	slots := make(map[string]render.SlotStats, len(snap.Board.Remote))
	for _, slot := range snap.Board.Remote {
		slots[slot.PeerID] = slot
	}

	rows := make([][]string, 0, len(snap.Peers))
	for _, p := range snap.Peers {
		name := p.Name
		if name == "" {
			name = "-"
		}
		received, bitrate := "-", "-"
		if slot, ok := slots[p.ID]; ok {
			received = utils.FormatSize(slot.Bytes)
			bitrate = utils.FormatBitrate(rates[p.ID].bps)
		}
		rows = append(rows, []string{
			shortID(p.ID),
			utils.TruncateString(name, 20),
			stateLabel(p.State),
			bar.ViewAs(stageProgress(p.State)),
			received,
			bitrate,
		})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers(IconPeer+" Peer", "Name", "State", "Setup", "Received", "Rate").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		}).
		Render()
}

func stateLabel(s peer.State) string {
	switch s {
	case peer.StateConnected:
		return SuccessStyle.Render(s.String())
	case peer.StateFailed:
		return ErrorStyle.Render(s.String())
	case peer.StateClosed:
		return MutedStyle.Render(s.String())
	default:
		return WarningStyle.Render(s.String())
	}
}

func chatView(lines []session.ChatLine, n int) string {
	if len(lines) == 0 {
		return MutedStyle.Render("No messages yet")
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}

	var b strings.Builder
	for _, l := range lines {
		who := l.Name
		if who == "" {
			who = shortID(l.From)
		}
		style := ChatPeerStyle
		if l.Self {
			who, style = "you", ChatSelfStyle
		}
		fmt.Fprintf(&b, "%s %s %s\n",
			ChatTimeStyle.Render(l.At.Format("15:04")),
			style.Render(who+":"),
			l.Body,
		)
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
