package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/viewport"

	"github.com/aristath/colony/internal/events"
)

// logLimit caps the announcements kept.
const logLimit = 500

// LogPaneModel is a scrollable announcement log.
type LogPaneModel struct {
	lines    []string
	viewport viewport.Model
	width    int
	height   int
	focused  bool
	follow   bool // Stick to the newest line until the user scrolls up
}

// NewLogPaneModel creates an empty log.
func NewLogPaneModel() LogPaneModel {
	return LogPaneModel{viewport: viewport.New(0, 0), follow: true}
}

// Update handles messages for the log pane.
func (m LogPaneModel) Update(msg tea.Msg) (LogPaneModel, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !m.focused {
			break
		}
		m.viewport, cmd = m.viewport.Update(msg)
		m.follow = m.viewport.AtBottom()

	case events.AnnouncementEvent:
		m.append(msg.Timestamp.Format("15:04:05") + " " + msg.Message)
	case events.JobFailedEvent:
		m.append(msg.Timestamp.Format("15:04:05") + " " +
			StyleDanger.Render("job failed: ") + msg.Name + " (" + msg.Reason + ")")
	}
	return m, cmd
}

func (m *LogPaneModel) append(line string) {
	m.lines = append(m.lines, line)
	if len(m.lines) > logLimit {
		m.lines = m.lines[len(m.lines)-logLimit:]
	}
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	if m.follow {
		m.viewport.GotoBottom()
	}
}

// View renders the log pane.
func (m LogPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}
	content := StyleTitle.Render("Announcements") + "\n" + m.viewport.View()
	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(content)
}

// SetSize updates the pane dimensions.
func (m *LogPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.viewport.Width = max(w-4, 10)
	m.viewport.Height = max(h-3, 3)
}

// SetFocused updates the focus state.
func (m *LogPaneModel) SetFocused(focused bool) {
	m.focused = focused
}
