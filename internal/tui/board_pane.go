package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/colony/internal/events"
	"github.com/aristath/colony/internal/job"
)

// BoardPaneModel shows the job board: pooled jobs per tier, waiting and
// finished counts, and a progress bar.
type BoardPaneModel struct {
	board   events.BoardProgressEvent
	date    string
	width   int
	height  int
	focused bool
}

// NewBoardPaneModel creates an empty board pane.
func NewBoardPaneModel() BoardPaneModel {
	return BoardPaneModel{}
}

// Update handles messages for the board pane.
func (m BoardPaneModel) Update(msg tea.Msg) (BoardPaneModel, tea.Cmd) {
	switch msg := msg.(type) {
	case events.BoardProgressEvent:
		m.board = msg
	case snapshotMsg:
		m.date = fmt.Sprintf("%s, %s", msg.Date, msg.Season)
	}
	return m, nil
}

func (m BoardPaneModel) pooled() int {
	n := 0
	for _, c := range m.board.Tiers {
		n += c
	}
	return n
}

// View renders the board pane.
func (m BoardPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder

	title := StyleTitle.Render("Job Board")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", lipgloss.Width(title)))
	b.WriteString("\n")
	if m.date != "" {
		b.WriteString(StyleIdle.Render(fmt.Sprintf("Tick %d, %s", m.board.Tick, m.date)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	for p := job.VeryHigh; p < job.PriorityCount; p++ {
		fmt.Fprintf(&b, "%-10s %d\n", p.String()+":", m.board.Tiers[p])
	}
	fmt.Fprintf(&b, "Waiting:   %s\n", StyleIdle.Render(fmt.Sprint(m.board.Waiting)))
	fmt.Fprintf(&b, "In flight: %s\n", StyleWorking.Render(fmt.Sprint(m.board.InFlight)))
	fmt.Fprintf(&b, "Completed: %s\n", StyleDone.Render(fmt.Sprint(m.board.Completed)))
	fmt.Fprintf(&b, "Failed:    %s\n", StyleDanger.Render(fmt.Sprint(m.board.Failed)))
	fmt.Fprintf(&b, "Idle:      %d/%d agents\n", m.board.Idle, m.board.Agents)
	b.WriteString("\n")

	open := m.pooled() + m.board.Waiting + m.board.InFlight
	total := m.board.Completed + m.board.Failed + open
	if total > 0 {
		barWidth := min(m.width-4, 40)
		completedWidth := (m.board.Completed * barWidth) / total
		failedWidth := (m.board.Failed * barWidth) / total
		runningWidth := (m.board.InFlight * barWidth) / total
		pendingWidth := barWidth - completedWidth - failedWidth - runningWidth

		bar := StyleDone.Render(strings.Repeat("=", max(0, completedWidth)))
		bar += StyleDanger.Render(strings.Repeat("!", max(0, failedWidth)))
		bar += StyleWorking.Render(strings.Repeat("-", max(0, runningWidth)))
		bar += StyleIdle.Render(strings.Repeat(".", max(0, pendingWidth)))

		fmt.Fprintf(&b, "[%s]  %d/%d\n", bar, m.board.Completed, total)
	}

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}
	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(b.String())
}

// SetSize updates the pane dimensions.
func (m *BoardPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetFocused updates the focus state.
func (m *BoardPaneModel) SetFocused(focused bool) {
	m.focused = focused
}
