package ui

import (
	"fmt"
	"os"
	"time"

	"mcwatch/pkg/sdk"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type dashboardMode int

const (
	modeTable dashboardMode = iota
	modeAdd
	modeConfirmRemove
)

type model struct {
	table    table.Model
	input    textinput.Model
	styles   styles
	servers  []sdk.Server
	err      error
	width    int
	height   int
	message  string
	mode     dashboardMode
	selected string
	client   *sdk.Client
}

type serverDataMsg []sdk.Server

type errMsg error

type tickMsg time.Time

type clearMessageMsg struct{}

type actionDoneMsg string

// RunDashboard shows every tracked server and returns the address picked
// with enter, or "" when the user quit.
func RunDashboard(client *sdk.Client, theme string) (string, error) {
	st := newStyles(theme)

	t := newStyledTable(st)

	ti := textinput.New()
	ti.Placeholder = "host or host:port"
	ti.CharLimit = 253
	ti.Width = 40

	m := model{table: t, input: ti, styles: st, client: client}

	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithInput(os.Stdin), tea.WithOutput(os.Stdout))
	finalModel, err := program.Run()
	if err != nil {
		return "", err
	}
	if fm, ok := finalModel.(model); ok {
		return fm.selected, nil
	}
	return "", nil
}

func newStyledTable(st styles) table.Model {
	columns := []table.Column{
		{Title: "Sts", Width: 3},
		{Title: "Name", Width: 20},
		{Title: "Address", Width: 28},
		{Title: "Version", Width: 14},
		{Title: "Players", Width: 9},
		{Title: "Polled", Width: 10},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	t.SetStyles(st.table())
	return t
}

func (m model) Init() tea.Cmd {
	return tea.Batch(fetchDataCmd(m.client), tickCmd())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch m.mode {
		case modeAdd:
			return m.updateAdd(msg)
		case modeConfirmRemove:
			return m.updateConfirm(msg)
		}

		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			if addr := m.currentAddress(); addr != "" {
				m.selected = addr
				return m, tea.Quit
			}
		case "a":
			m.mode = modeAdd
			m.input.SetValue("")
			m.input.Focus()
			return m, textinput.Blink
		case "d":
			if m.currentAddress() != "" {
				m.mode = modeConfirmRemove
			}
			return m, nil
		case "r":
			return m, refreshAllCmd(m.client)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetWidth(msg.Width - 10)
		m.table.SetHeight(msg.Height - 12)

	case serverDataMsg:
		m.servers = msg
		m.err = nil
		m.updateTable(time.Now())
		return m, nil

	case tickMsg:
		return m, tea.Batch(fetchDataCmd(m.client), tickCmd())

	case actionDoneMsg:
		m.message = string(msg)
		return m, tea.Batch(fetchDataCmd(m.client), clearMessageCmd())

	case clearMessageMsg:
		m.message = ""
		return m, nil

	case errMsg:
		m.err = msg
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m model) updateAdd(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.mode = modeTable
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		addr := m.input.Value()
		m.mode = modeTable
		m.input.Blur()
		if addr == "" {
			return m, nil
		}
		return m, addServerCmd(m.client, addr)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	addr := m.currentAddress()
	m.mode = modeTable
	switch msg.String() {
	case "y", "enter":
		return m, removeServerCmd(m.client, addr)
	default:
		m.message = "Removal cancelled."
		return m, clearMessageCmd()
	}
}

func (m model) currentAddress() string {
	row := m.table.SelectedRow()
	if len(row) < 3 {
		return ""
	}
	return row[2]
}

func (m *model) updateTable(now time.Time) {
	rows := make([]table.Row, 0, len(m.servers))
	for _, s := range m.servers {
		rows = append(rows, table.Row{
			StatusIcon(s.State()),
			s.DisplayName,
			s.Address,
			versionColumn(s),
			playersColumn(s),
			polledColumn(s, now),
		})
	}
	m.table.SetRows(rows)
}

func (m model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	online := 0
	for _, s := range m.servers {
		if s.LastStatus != nil && s.LastStatus.IsOnline() {
			online++
		}
	}

	title := m.styles.header.Render("MCWATCH")
	clock := m.styles.sub.Render(time.Now().Format("Mon Jan 2 15:04:05"))
	info := fmt.Sprintf("Daemon: %s  |  Servers: %d  |  Online: %d", m.client.BaseURL(), len(m.servers), online)
	headerBox := m.styles.box.
		Width(m.width-4).
		Align(lipgloss.Center).
		Padding(0, 1).
		Render(lipgloss.JoinVertical(lipgloss.Center, title, clock, " ", info))

	tableBox := m.styles.box.
		Width(m.width - 4).
		Height(m.height - 12).
		Render(m.table.View())

	var footer string
	switch m.mode {
	case modeAdd:
		footer = m.styles.footer.Render("Add server: ") + m.input.View()
	case modeConfirmRemove:
		footer = m.styles.message.Render(fmt.Sprintf("Stop tracking %s? (y/n)", m.currentAddress()))
	default:
		footer = m.styles.footer.Render("↑/↓: navigate • enter: details • a: add • d: remove • r: refresh • q: quit")
	}

	if m.err != nil {
		footer = m.styles.message.Render("Error: "+m.err.Error()) + "\n" + footer
	} else if m.message != "" {
		footer = m.styles.message.Render(m.message) + "\n" + footer
	}

	return lipgloss.JoinVertical(lipgloss.Center, headerBox, tableBox, footer)
}

func tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func clearMessageCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(time.Time) tea.Msg {
		return clearMessageMsg{}
	})
}

func fetchDataCmd(client *sdk.Client) tea.Cmd {
	return func() tea.Msg {
		servers, err := client.ListServers()
		if err != nil {
			return errMsg(err)
		}
		return serverDataMsg(servers)
	}
}

func addServerCmd(client *sdk.Client, address string) tea.Cmd {
	return func() tea.Msg {
		srv, err := client.AddServer(sdk.AddServerRequest{Address: address})
		if err != nil {
			return errMsg(err)
		}
		return actionDoneMsg(fmt.Sprintf("Now tracking %s", srv.Address))
	}
}

func removeServerCmd(client *sdk.Client, address string) tea.Cmd {
	return func() tea.Msg {
		if err := client.RemoveServer(address); err != nil {
			return errMsg(err)
		}
		return actionDoneMsg(fmt.Sprintf("Removed %s", address))
	}
}

func refreshAllCmd(client *sdk.Client) tea.Cmd {
	return func() tea.Msg {
		started, err := client.RefreshAll()
		if err != nil {
			return errMsg(err)
		}
		if !started {
			return actionDoneMsg("A refresh is already running")
		}
		return actionDoneMsg("Refresh started")
	}
}
