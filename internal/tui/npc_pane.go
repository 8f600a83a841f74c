package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/colony/internal/events"
	"github.com/aristath/colony/internal/npc"
)

// historyLimit caps the lines kept per agent.
const historyLimit = 200

// NPCPaneModel lists the agents and shows the selected one's state and
// job history.
type NPCPaneModel struct {
	agents      []npc.Status
	history     map[int][]string // NPC id -> job log lines
	selectedIdx int
	viewport    viewport.Model
	width       int
	height      int
	focused     bool
	updateTag   int // for debouncing
}

// NewNPCPaneModel creates an empty agent pane.
func NewNPCPaneModel() NPCPaneModel {
	return NPCPaneModel{
		history:  make(map[int][]string),
		viewport: viewport.New(0, 0),
	}
}

// tickMsg is used for debouncing viewport updates.
type tickMsg struct {
	tag int
}

// Update handles messages for the agent pane.
func (m NPCPaneModel) Update(msg tea.Msg) (NPCPaneModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !m.focused {
			break
		}
		switch msg.String() {
		case KeyJ, KeyDown:
			if m.selectedIdx < len(m.agents)-1 {
				m.selectedIdx++
				m.updateViewportContent()
			}
		case KeyK, KeyUp:
			if m.selectedIdx > 0 {
				m.selectedIdx--
				m.updateViewportContent()
			}
		default:
			m.viewport, cmd = m.viewport.Update(msg)
		}

	case snapshotMsg:
		selected := m.selectedID()
		m.agents = msg.NPCs
		m.selectedIdx = 0
		for i, a := range m.agents {
			if a.ID == selected {
				m.selectedIdx = i
				break
			}
		}
		m.updateViewportContent()

	case events.JobAssignedEvent:
		return m.record(msg.NPC, fmt.Sprintf("took %q", msg.Name))
	case events.JobCompletedEvent:
		return m.record(msg.NPC, fmt.Sprintf("finished %q", msg.Name))
	case events.JobCancelledEvent:
		return m.record(msg.NPC, fmt.Sprintf("gave up %q: %s", msg.Name, msg.Reason))
	case events.NPCDiedEvent:
		return m.record(msg.NPC, "died of "+msg.Cause)

	case tickMsg:
		if msg.tag == m.updateTag {
			m.updateViewportContent()
		}
	}

	return m, cmd
}

// record appends a history line and schedules a debounced redraw when the
// agent is selected.
func (m NPCPaneModel) record(id int, line string) (NPCPaneModel, tea.Cmd) {
	lines := append(m.history[id], time.Now().Format("15:04:05")+" "+line)
	if len(lines) > historyLimit {
		lines = lines[len(lines)-historyLimit:]
	}
	m.history[id] = lines

	if id != m.selectedID() {
		return m, nil
	}
	m.updateTag++
	tag := m.updateTag
	return m, tea.Tick(50*time.Millisecond, func(time.Time) tea.Msg {
		return tickMsg{tag: tag}
	})
}

// View renders the agent pane.
func (m NPCPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	listWidth := 25
	viewportWidth := m.width - listWidth - 4

	content := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderList(listWidth),
		lipgloss.NewStyle().
			Width(viewportWidth).
			Height(m.height-2).
			Render(m.viewport.View()),
	)

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}
	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(content)
}

func (m NPCPaneModel) renderList(width int) string {
	var b strings.Builder

	title := StyleTitle.Render("Colony")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", min(width, lipgloss.Width(title))))
	b.WriteString("\n\n")

	if len(m.agents) == 0 {
		b.WriteString(StyleIdle.Render("Waiting..."))
	}
	for i, a := range m.agents {
		name := a.Name
		if len(name) > width-6 {
			name = name[:width-9] + "..."
		}
		line := fmt.Sprintf("%s %s", StatusIcon(a), name)
		if i == m.selectedIdx {
			line = StyleSelected.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	return lipgloss.NewStyle().
		Width(width).
		Height(m.height - 2).
		Render(b.String())
}

// StatusIcon returns a styled indicator for an agent.
func StatusIcon(a npc.Status) string {
	switch {
	case a.Dead:
		return StyleDanger.Render("✗")
	case a.Escaped:
		return StyleIdle.Render("○")
	case a.Job != "":
		return StyleWorking.Render("●")
	default:
		return StyleDone.Render("·")
	}
}

func (m NPCPaneModel) selectedID() int {
	if m.selectedIdx >= 0 && m.selectedIdx < len(m.agents) {
		return m.agents[m.selectedIdx].ID
	}
	return -1
}

func (m *NPCPaneModel) updateViewportContent() {
	if m.selectedIdx < 0 || m.selectedIdx >= len(m.agents) {
		m.viewport.SetContent("No agents yet.")
		return
	}
	a := m.agents[m.selectedIdx]

	var b strings.Builder
	fmt.Fprintf(&b, "%s (#%d) at %v\n", a.Name, a.ID, a.Position)
	job := a.Job
	if job == "" {
		job = "-"
	}
	fmt.Fprintf(&b, "Job:  %s\nTask: %s\nQueued: %d\n", job, a.Task, a.Queued)
	fmt.Fprintf(&b, "Thirst %d  Hunger %d  Weariness %d  Health %d\n",
		a.Thirst, a.Hunger, a.Weariness, a.Health)
	if len(a.Effects) > 0 {
		fmt.Fprintf(&b, "Effects: %s\n", strings.Join(a.Effects, ", "))
	}
	b.WriteString("\n")
	b.WriteString(strings.Join(m.history[a.ID], "\n"))

	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func (m *NPCPaneModel) resizeViewport() {
	m.viewport.Width = max(m.width-25-4, 10)
	m.viewport.Height = max(m.height-4, 5)
}

// SetSize updates the pane dimensions.
func (m *NPCPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.resizeViewport()
}

// SetFocused updates the focus state.
func (m *NPCPaneModel) SetFocused(focused bool) {
	m.focused = focused
}
