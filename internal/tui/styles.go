package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Border styles
var (
	StyleFocusedBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62"))

	StyleUnfocusedBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))
)

// Agent and job states
var (
	StyleWorking = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	StyleDone    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	StyleDanger  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	StyleIdle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

// UI element styles
var (
	StyleTitle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	StyleHelp = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	StyleSelected = lipgloss.NewStyle().
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("0"))
)
