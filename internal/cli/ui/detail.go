package ui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"mcwatch/pkg/sdk"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type detailModel struct {
	events   <-chan sdk.ChangeEvent
	viewport viewport.Model
	styles   styles
	address  string
	server   *sdk.Server
	history  []string
	err      error
	message  string
	ready    bool
	back     bool
	client   *sdk.Client
	width    int
	height   int
}

type changeEventMsg sdk.ChangeEvent

type serverDetailsMsg *sdk.Server

type detailErrMsg error

type streamClosedMsg struct{}

// RunDetail shows one server and its live change feed. It reports true
// when the user asked to go back to the dashboard.
func RunDetail(client *sdk.Client, address, theme string) (bool, error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := client.Events(ctx, address)
	if err != nil {
		return false, fmt.Errorf("connect to event stream: %w", err)
	}

	m := detailModel{
		events:  events,
		styles:  newStyles(theme),
		address: address,
		client:  client,
	}

	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithInput(os.Stdin), tea.WithOutput(os.Stdout))
	finalModel, err := program.Run()
	if err != nil {
		return false, err
	}
	if fm, ok := finalModel.(detailModel); ok {
		return fm.back, nil
	}
	return false, nil
}

func (m detailModel) Init() tea.Cmd {
	return tea.Batch(
		waitForEvent(m.events),
		getServerDetails(m.client, m.address),
		tickCmd(),
	)
}

func waitForEvent(events <-chan sdk.ChangeEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return streamClosedMsg{}
		}
		return changeEventMsg(ev)
	}
}

func getServerDetails(client *sdk.Client, address string) tea.Cmd {
	return func() tea.Msg {
		srv, err := client.GetServer(address)
		if err != nil {
			return detailErrMsg(err)
		}
		return serverDetailsMsg(srv)
	}
}

func refreshServerCmd(client *sdk.Client, address string) tea.Cmd {
	return func() tea.Msg {
		if err := client.RefreshServer(address); err != nil {
			return detailErrMsg(err)
		}
		return actionDoneMsg("Refresh started")
	}
}

func (m detailModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "esc", "backspace":
			m.back = true
			return m, tea.Quit
		case "r":
			return m, refreshServerCmd(m.client, m.address)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 16
		contentWidth := msg.Width - 6
		if !m.ready {
			m.viewport = viewport.New(contentWidth, msg.Height-headerHeight)
			m.viewport.YPosition = headerHeight
			m.ready = true
		} else {
			m.viewport.Width = contentWidth
			m.viewport.Height = msg.Height - headerHeight
		}
		m.viewport.SetContent(strings.Join(m.history, "\n"))

	case changeEventMsg:
		ev := sdk.ChangeEvent(msg)
		m.history = append(m.history, formatEvent(ev))
		if m.ready {
			m.viewport.SetContent(strings.Join(m.history, "\n"))
			m.viewport.GotoBottom()
		}
		return m, tea.Batch(waitForEvent(m.events), getServerDetails(m.client, m.address))

	case streamClosedMsg:
		m.message = "Event stream closed"
		return m, nil

	case serverDetailsMsg:
		m.server = msg
		m.err = nil

	case actionDoneMsg:
		m.message = string(msg)
		return m, clearMessageCmd()

	case clearMessageMsg:
		m.message = ""
		return m, nil

	case tickMsg:
		return m, tea.Batch(getServerDetails(m.client, m.address), tickCmd())

	case detailErrMsg:
		m.err = msg
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func formatEvent(ev sdk.ChangeEvent) string {
	return fmt.Sprintf("%s %s → %s %s",
		ev.At.Local().Format("15:04:05"), ev.OldState(), ev.New.State, StatusSummary(ev.New))
}

func (m detailModel) View() string {
	if !m.ready {
		return "Loading..."
	}

	title := m.styles.header.Render(m.address)
	var lines []string
	if m.server != nil {
		title = m.styles.header.Render(m.server.DisplayName)
		lines = m.detailLines(*m.server)
	} else {
		lines = []string{"Loading server details..."}
	}
	if m.err != nil {
		lines = append(lines, m.styles.offline.Render("Error: "+m.err.Error()))
	}

	headerBox := m.styles.box.
		Width(m.width-4).
		Padding(0, 1).
		Render(lipgloss.JoinVertical(lipgloss.Left, append([]string{title, " "}, lines...)...))

	eventsBox := m.styles.box.
		Width(m.width - 4).
		Render(m.viewport.View())

	footer := m.styles.footer.Render("r: refresh • esc: back • q: quit")
	if m.message != "" {
		footer = m.styles.message.Render(m.message) + "\n" + footer
	}

	return lipgloss.JoinVertical(lipgloss.Left, headerBox, eventsBox, footer)
}

func (m detailModel) detailLines(s sdk.Server) []string {
	field := func(label, value string) string {
		return m.styles.label.Render(fmt.Sprintf("%-9s", label)) + " " + value
	}

	state := string(s.State())
	switch {
	case s.LastStatus == nil:
	case s.LastStatus.IsOnline():
		state = m.styles.online.Render(state)
	default:
		state = m.styles.offline.Render(state)
	}

	lines := []string{
		field("Address", s.Address),
		field("State", StatusIcon(s.State())+" "+state),
		field("Polled", polledColumn(s, time.Now())),
	}

	st := s.LastStatus
	if st == nil {
		return lines
	}
	if !st.IsOnline() {
		lines = append(lines, field("Reason", StatusSummary(*st)))
		return lines
	}

	sample := "-"
	if len(st.SamplePlayers) > 0 {
		sample = strings.Join(st.SamplePlayers, ", ")
	}
	lines = append(lines,
		field("Version", fmt.Sprintf("%s (protocol %d)", st.Version, st.Protocol)),
		field("Players", fmt.Sprintf("%d/%d", st.PlayersOnline, st.PlayersMax)),
		field("Sample", sample),
		field("MOTD", st.MOTD),
		field("Latency", st.Latency.Round(time.Millisecond).String()),
	)
	return lines
}
