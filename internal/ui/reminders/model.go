// Package reminders is the live terminal monitor for the reminder poller.
package reminders

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/todoapp/internal/clock"
	"github.com/nhle/todoapp/internal/keys"
	"github.com/nhle/todoapp/internal/model"
	"github.com/nhle/todoapp/internal/sync"
	"github.com/nhle/todoapp/internal/theme"
)

// maxEntries bounds how many delivered reminders are kept on screen.
const maxEntries = 200

// Source feeds the monitor. *sync.Poller implements it.
type Source interface {
	Listen() tea.Cmd
	RefreshAll()
	Statuses() []sync.SweepStatus
}

// entry is one delivered reminder.
type entry struct {
	userID   int64
	payload  model.NotificationPayload
	received time.Time
}

// Model is the Bubble Tea model of the monitor.
type Model struct {
	source  Source
	anchor  *clock.Anchor
	keys    *keys.KeyMap
	help    help.Model
	spinner spinner.Model

	entries []entry
	cursor  int
	lastErr error
	width   int
	height  int
}

// New creates a monitor reading from source.
func New(source Source, anchor *clock.Anchor, k *keys.KeyMap) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(theme.ColorYellow)

	return Model{
		source:  source,
		anchor:  anchor,
		keys:    k,
		help:    help.New(),
		spinner: s,
		width:   80,
		height:  24,
	}
}

// Init starts listening for sweep results.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.source.Listen(), m.spinner.Tick)
}

// Update handles messages for the monitor.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case sync.ReminderMsg:
		m.handleReminders(msg)
		return m, m.source.Listen()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKeys(msg)
	}
	return m, nil
}

func (m *Model) handleReminders(msg sync.ReminderMsg) {
	if msg.Error != nil {
		m.lastErr = msg.Error
		return
	}
	m.lastErr = nil

	now := m.anchor.Now()
	added := make([]entry, 0, len(msg.Notifications))
	for _, n := range msg.Notifications {
		added = append(added, entry{userID: msg.UserID, payload: n, received: now})
	}
	// Newest first.
	m.entries = append(added, m.entries...)
	if len(m.entries) > maxEntries {
		m.entries = m.entries[:maxEntries]
	}
	if m.cursor >= len(m.entries) {
		m.cursor = max(len(m.entries)-1, 0)
	}
}

func (m Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Refresh):
		m.source.RefreshAll()
	case key.Matches(msg, m.keys.Clear):
		m.entries = nil
		m.cursor = 0
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	}
	return m, nil
}

// View renders the monitor.
func (m Model) View() string {
	header := m.renderHeader()
	footer := theme.StatusBarStyle.Width(m.width).Render(m.help.View(m.keys))

	bodyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footer)
	body := m.renderEntries(bodyHeight)

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m Model) renderHeader() string {
	var parts []string
	for _, st := range m.source.Statuses() {
		label := st.State.String()
		text := fmt.Sprintf("user %d: %s", st.UserID, label)
		if st.State == sync.SweepRunning {
			text = m.spinner.View() + " " + text
		} else if !st.LastSweep.IsZero() {
			text += " " + m.anchor.Format(st.LastSweep, "15:04:05")
		}
		parts = append(parts, theme.SweepStyle(label).Render(text))
	}

	title := theme.HeaderStyle.Render("Reminders")
	status := strings.Join(parts, " ")
	gap := max(m.width-lipgloss.Width(title)-lipgloss.Width(status), 1)

	line := title + strings.Repeat(" ", gap) + status
	if m.lastErr != nil {
		line += "\n" + theme.ErrorStyle.Render("sweep failed: "+m.lastErr.Error())
	}
	return line
}

func (m Model) renderEntries(height int) string {
	if len(m.entries) == 0 {
		return theme.HelpStyle.
			Height(max(height, 1)).
			Render("  No reminders yet. Waiting for the next sweep...")
	}

	rows := max(height, 1)
	start := 0
	if m.cursor >= rows {
		start = m.cursor - rows + 1
	}
	end := min(start+rows, len(m.entries))

	var b strings.Builder
	for i := start; i < end; i++ {
		b.WriteString(m.renderEntry(m.entries[i], i == m.cursor))
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) renderEntry(e entry, selected bool) string {
	priority := theme.PriorityStyle(e.payload.Priority).Render(fmt.Sprintf("%-6s", e.payload.Priority))
	line := fmt.Sprintf("%s %s  %s  %s",
		m.anchor.Format(e.received, "15:04"),
		priority,
		e.payload.Title,
		theme.HelpStyle.Render(e.payload.Message+", "+m.anchor.Format(e.payload.DueDate, "")),
	)
	if selected {
		return lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBlue).Render("> ") + line
	}
	return theme.ListItemStyle.Render(line)
}
