// Package tui is the terminal dashboard: agents, the job board and the
// announcement log, plus a settings form.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/colony/internal/config"
	"github.com/aristath/colony/internal/events"
	"github.com/aristath/colony/internal/sim"
)

// PaneID identifies which pane is focused.
type PaneID int

const (
	PaneNPCs PaneID = iota
	PaneBoard
	PaneLog
	paneCount
)

// snapshotInterval is how often the dashboard refreshes agent state.
const snapshotInterval = 500 * time.Millisecond

// Snapshotter provides game views. *sim.Game satisfies it.
type Snapshotter interface {
	Snapshot() sim.Snapshot
}

// snapshotMsg carries a fresh game view to the panes.
type snapshotMsg sim.Snapshot

// refreshMsg asks for the next snapshot.
type refreshMsg struct{}

// Model is the root Bubble Tea model for the TUI.
type Model struct {
	npcPane      NPCPaneModel
	boardPane    BoardPaneModel
	logPane      LogPaneModel
	settingsPane SettingsPaneModel
	focusedPane  PaneID
	eventSub     <-chan events.Event
	game         Snapshotter
	width        int
	height       int
	quitting     bool
	showSettings bool
}

// New creates a new TUI model. It subscribes to all events from the bus.
func New(bus *events.EventBus, game Snapshotter, cfg *config.Config, globalPath, projectPath string) Model {
	return Model{
		npcPane:      NewNPCPaneModel(),
		boardPane:    NewBoardPaneModel(),
		logPane:      NewLogPaneModel(),
		settingsPane: NewSettingsPaneModel(cfg, globalPath, projectPath),
		focusedPane:  PaneNPCs,
		eventSub:     bus.SubscribeAll(256),
		game:         game,
	}
}

// Init starts listening for events and snapshots.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.eventSub), m.takeSnapshot())
}

// waitForEvent returns a command that waits for the next event from the bus.
func waitForEvent(sub <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-sub
		if !ok {
			return nil // bus closed
		}
		return event
	}
}

func (m Model) takeSnapshot() tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(m.game.Snapshot())
	}
}

func scheduleRefresh() tea.Cmd {
	return tea.Tick(snapshotInterval, func(time.Time) tea.Msg { return refreshMsg{} })
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Settings are modal
		if m.showSettings {
			if msg.String() == KeyEsc {
				m.showSettings = false
				m.settingsPane.SetVisible(false)
				return m, nil
			}
			var cmd tea.Cmd
			m.settingsPane, cmd = m.settingsPane.Update(msg)
			if !m.settingsPane.IsVisible() {
				m.showSettings = false
			}
			return m, cmd
		}

		switch msg.String() {
		case KeyQuit, KeyCtrlC:
			m.quitting = true
			return m, tea.Quit
		case KeySettings:
			m.showSettings = true
			m.settingsPane.SetVisible(true)
			cmds = append(cmds, m.settingsPane.Init())
		case KeyTab:
			m.focusedPane = (m.focusedPane + 1) % paneCount
			m.updateFocusStates()
		case KeyShiftTab:
			m.focusedPane = (m.focusedPane + paneCount - 1) % paneCount
			m.updateFocusStates()
		case KeyPane1:
			m.focusedPane = PaneNPCs
			m.updateFocusStates()
		case KeyPane2:
			m.focusedPane = PaneBoard
			m.updateFocusStates()
		case KeyPane3:
			m.focusedPane = PaneLog
			m.updateFocusStates()
		default:
			var cmd tea.Cmd
			switch m.focusedPane {
			case PaneNPCs:
				m.npcPane, cmd = m.npcPane.Update(msg)
			case PaneLog:
				m.logPane, cmd = m.logPane.Update(msg)
			}
			cmds = append(cmds, cmd)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.computeLayout()
		m.settingsPane.SetSize(msg.Width, msg.Height)

	case refreshMsg:
		cmds = append(cmds, m.takeSnapshot())

	case snapshotMsg:
		m.npcPane, _ = m.npcPane.Update(msg)
		m.boardPane, _ = m.boardPane.Update(msg)
		cmds = append(cmds, scheduleRefresh())

	case tickMsg:
		var cmd tea.Cmd
		m.npcPane, cmd = m.npcPane.Update(msg)
		cmds = append(cmds, cmd)

	case events.JobAssignedEvent, events.JobCompletedEvent, events.JobCancelledEvent, events.NPCDiedEvent:
		var cmd tea.Cmd
		m.npcPane, cmd = m.npcPane.Update(msg)
		cmds = append(cmds, cmd, waitForEvent(m.eventSub))
		if died, ok := msg.(events.NPCDiedEvent); ok {
			m.logPane, _ = m.logPane.Update(events.AnnouncementEvent{
				Message:   died.Name + " died of " + died.Cause,
				Timestamp: died.Timestamp,
			})
		}

	case events.BoardProgressEvent:
		m.boardPane, _ = m.boardPane.Update(msg)
		cmds = append(cmds, waitForEvent(m.eventSub))

	case events.AnnouncementEvent, events.JobFailedEvent:
		m.logPane, _ = m.logPane.Update(msg)
		cmds = append(cmds, waitForEvent(m.eventSub))

	case events.Event:
		// Not displayed; keep listening
		cmds = append(cmds, waitForEvent(m.eventSub))
	}

	return m, tea.Batch(cmds...)
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}
	if m.showSettings {
		return m.settingsPane.View()
	}

	right := lipgloss.JoinVertical(lipgloss.Left, m.boardPane.View(), m.logPane.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.npcPane.View(), right)
	return lipgloss.JoinVertical(lipgloss.Left, body, HelpView())
}

// computeLayout calculates pane dimensions and updates all child models.
func (m *Model) computeLayout() {
	leftWidth := (m.width * 55) / 100
	rightWidth := m.width - leftWidth
	availableHeight := m.height - 1 // help bar
	boardHeight := min(16, (availableHeight*60)/100)

	m.npcPane.SetSize(leftWidth, availableHeight)
	m.boardPane.SetSize(rightWidth, boardHeight)
	m.logPane.SetSize(rightWidth, availableHeight-boardHeight)

	m.updateFocusStates()
}

func (m *Model) updateFocusStates() {
	m.npcPane.SetFocused(m.focusedPane == PaneNPCs)
	m.boardPane.SetFocused(m.focusedPane == PaneBoard)
	m.logPane.SetFocused(m.focusedPane == PaneLog)
}
