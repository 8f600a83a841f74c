package tui

import (
	"errors"
	"fmt"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/colony/internal/config"
)

// SettingsPaneModel manages the settings form overlay. Changes are saved
// to the chosen config file and apply on the next start.
type SettingsPaneModel struct {
	form        *huh.Form
	config      *config.Config
	globalPath  string
	projectPath string
	width       int
	height      int
	visible     bool
	saved       bool
	err         error

	// Form field bindings live behind a pointer so copies of the model
	// share what the form writes.
	fields *settingsFields
}

// settingsFields holds the values the form edits (strings for Huh).
type settingsFields struct {
	saveTarget      string
	tickRate        string
	mapWidth        string
	mapHeight       string
	pathCap         string
	logLevel        string
	journalEnabled  bool
	journalLevel    string
	observerEnabled bool
	observerAddr    string
}

// NewSettingsPaneModel creates a new settings pane.
func NewSettingsPaneModel(cfg *config.Config, globalPath, projectPath string) SettingsPaneModel {
	m := SettingsPaneModel{
		config:      cfg,
		globalPath:  globalPath,
		projectPath: projectPath,
		fields:      &settingsFields{},
	}
	m.loadFromConfig()
	m.buildForm()
	return m
}

func (m *SettingsPaneModel) loadFromConfig() {
	cfg := m.config
	*m.fields = settingsFields{
		saveTarget:      "project",
		tickRate:        strconv.Itoa(cfg.Simulation.TickRate),
		mapWidth:        strconv.Itoa(cfg.Simulation.Width),
		mapHeight:       strconv.Itoa(cfg.Simulation.Height),
		pathCap:         strconv.Itoa(cfg.Simulation.PathCap),
		logLevel:        cfg.Logging.Level,
		journalEnabled:  cfg.Journal.Enabled,
		journalLevel:    strconv.Itoa(cfg.Journal.Level),
		observerEnabled: cfg.Observer.Enabled,
		observerAddr:    cfg.Observer.Addr,
	}
}

func positiveInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return errors.New("must be a positive whole number")
	}
	return nil
}

// buildForm constructs the Huh form with all settings fields.
func (m *SettingsPaneModel) buildForm() {
	f := m.fields
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("saveTarget").
				Title("Save To").
				Options(
					huh.NewOption("Project (.colony/config.json)", "project"),
					huh.NewOption("Global (~/.colony/config.json)", "global"),
				).
				Value(&f.saveTarget),
		).Title("Save Target"),

		huh.NewGroup(
			huh.NewInput().
				Key("tickRate").
				Title("Ticks per second").
				Value(&f.tickRate).
				Validate(positiveInt),

			huh.NewInput().
				Key("width").
				Title("Map width").
				Value(&f.mapWidth).
				Validate(positiveInt),

			huh.NewInput().
				Key("height").
				Title("Map height").
				Value(&f.mapHeight).
				Validate(positiveInt),

			huh.NewInput().
				Key("pathCap").
				Title("Concurrent path searches").
				Value(&f.pathCap).
				Validate(positiveInt),
		).Title("Simulation"),

		huh.NewGroup(
			huh.NewSelect[string]().
				Key("logLevel").
				Title("Log level").
				Options(huh.NewOptions("debug", "info", "warn", "error")...).
				Value(&f.logLevel),

			huh.NewConfirm().
				Key("journalEnabled").
				Title("Keep an event journal").
				Value(&f.journalEnabled),

			huh.NewSelect[string]().
				Key("journalLevel").
				Title("Journal detail").
				Options(
					huh.NewOption("Announcements and deaths", "1"),
					huh.NewOption("Plus job outcomes", "2"),
					huh.NewOption("Plus every job transition", "3"),
					huh.NewOption("Plus board samples", "4"),
				).
				Value(&f.journalLevel),

			huh.NewConfirm().
				Key("observerEnabled").
				Title("Serve the websocket observer").
				Value(&f.observerEnabled),

			huh.NewInput().
				Key("observerAddr").
				Title("Observer address").
				Value(&f.observerAddr).
				Placeholder("127.0.0.1:7070"),
		).Title("Services"),
	)
}

// Init initializes the settings pane.
func (m SettingsPaneModel) Init() tea.Cmd {
	return m.form.Init()
}

// Update handles messages for the settings pane.
func (m SettingsPaneModel) Update(msg tea.Msg) (SettingsPaneModel, tea.Cmd) {
	if !m.visible {
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.save()
		if m.saved {
			m.visible = false
		}
	}
	return m, cmd
}

// save validates the form values, copies them into the config and writes
// the chosen file.
func (m *SettingsPaneModel) save() {
	next := *m.config
	if err := m.applyForm(&next); err != nil {
		m.err = err
		m.saved = false
		return
	}

	targetPath := m.globalPath
	if m.fields.saveTarget == "project" {
		targetPath = m.projectPath
	}
	if err := config.Save(&next, targetPath); err != nil {
		m.err = err
		m.saved = false
		return
	}
	*m.config = next
	m.saved = true
	m.err = nil
}

// applyForm copies form field values into cfg and validates the result.
func (m *SettingsPaneModel) applyForm(cfg *config.Config) error {
	f := m.fields
	ints := []struct {
		name string
		src  string
		dst  *int
	}{
		{"tick rate", f.tickRate, &cfg.Simulation.TickRate},
		{"width", f.mapWidth, &cfg.Simulation.Width},
		{"height", f.mapHeight, &cfg.Simulation.Height},
		{"path cap", f.pathCap, &cfg.Simulation.PathCap},
		{"journal level", f.journalLevel, &cfg.Journal.Level},
	}
	for _, in := range ints {
		n, err := strconv.Atoi(in.src)
		if err != nil {
			return fmt.Errorf("%s: %w", in.name, err)
		}
		*in.dst = n
	}
	cfg.Logging.Level = f.logLevel
	cfg.Journal.Enabled = f.journalEnabled
	cfg.Observer.Enabled = f.observerEnabled
	cfg.Observer.Addr = f.observerAddr
	return cfg.Validate()
}

// View renders the settings pane.
func (m SettingsPaneModel) View() string {
	if !m.visible {
		return ""
	}

	var content string
	switch {
	case m.saved && m.form.State == huh.StateCompleted:
		content = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true).
			Render("✓ Settings saved, restart to apply")
	case m.err != nil:
		content = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true).
			Render(fmt.Sprintf("✗ Error saving: %v", m.err))
	default:
		content = m.form.View()
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2).
		Width(m.width - 4).
		Height(m.height - 4)

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("62")).
		Render("⚙ Settings")

	return lipgloss.JoinVertical(lipgloss.Left, title, style.Render(content))
}

// SetSize updates the dimensions of the settings pane.
func (m *SettingsPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	if m.form != nil {
		m.form.WithWidth(w - 8).WithHeight(h - 8)
	}
}

// SetVisible shows or hides the settings pane, resetting the form from
// the current config when shown.
func (m *SettingsPaneModel) SetVisible(v bool) {
	m.visible = v
	m.saved = false
	m.err = nil
	if v {
		m.loadFromConfig()
		m.buildForm()
	}
}

// IsVisible returns whether the settings pane is currently visible.
func (m SettingsPaneModel) IsVisible() bool {
	return m.visible
}
