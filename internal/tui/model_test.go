package tui

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aristath/colony/internal/config"
	"github.com/aristath/colony/internal/events"
	"github.com/aristath/colony/internal/npc"
	"github.com/aristath/colony/internal/sim"
)

type fakeGame struct{ snap sim.Snapshot }

func (f fakeGame) Snapshot() sim.Snapshot { return f.snap }

func newTestModel(t *testing.T) Model {
	t.Helper()
	bus := events.NewEventBus()
	t.Cleanup(bus.Close)
	dir := t.TempDir()
	m := New(bus, fakeGame{}, config.DefaultConfig(),
		filepath.Join(dir, "global.json"), filepath.Join(dir, "project.json"))
	return update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return model
}

func key(s string) tea.KeyMsg {
	switch s {
	case KeyTab:
		return tea.KeyMsg{Type: tea.KeyTab}
	case KeyShiftTab:
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestBoardProgressRendered(t *testing.T) {
	m := newTestModel(t)
	m = update(t, m, events.BoardProgressEvent{
		Tick:      250,
		Tiers:     [4]int{1, 2, 3, 4},
		Waiting:   5,
		Completed: 6,
		Failed:    1,
		InFlight:  2,
		Agents:    8,
		Idle:      3,
	})

	view := m.View()
	for _, want := range []string{"Job Board", "Waiting:", "Idle:      3/8 agents", "6/24"} {
		if !strings.Contains(view, want) {
			t.Errorf("view lacks %q", want)
		}
	}
}

func TestNPCSelectionAndHistory(t *testing.T) {
	m := newTestModel(t)
	m = update(t, m, snapshotMsg(sim.Snapshot{
		Tick: 10,
		NPCs: []npc.Status{
			{ID: 1, Name: "Ada", Job: "Fell tree"},
			{ID: 2, Name: "Bo"},
		},
	}))
	if got := m.npcPane.selectedID(); got != 1 {
		t.Fatalf("selected = %d, want the first agent", got)
	}

	m = update(t, m, key(KeyJ))
	if got := m.npcPane.selectedID(); got != 2 {
		t.Fatalf("after j selected = %d, want 2", got)
	}

	m = update(t, m, events.JobAssignedEvent{ID: "job-1", Name: "Haul logs", NPC: 2, Timestamp: time.Now()})
	if lines := m.npcPane.history[2]; len(lines) != 1 || !strings.Contains(lines[0], `took "Haul logs"`) {
		t.Errorf("history = %v", lines)
	}

	// A later snapshot keeps the selection on the same agent
	m = update(t, m, snapshotMsg(sim.Snapshot{NPCs: []npc.Status{
		{ID: 3, Name: "Cy"},
		{ID: 2, Name: "Bo"},
	}}))
	if got := m.npcPane.selectedID(); got != 2 {
		t.Errorf("selected after refresh = %d, want 2", got)
	}
}

func TestDeathsReachTheLog(t *testing.T) {
	m := newTestModel(t)
	m = update(t, m, events.NPCDiedEvent{NPC: 4, Name: "Dee", Cause: "thirst", Timestamp: time.Now()})
	m = update(t, m, events.AnnouncementEvent{Message: "Winter is coming", Timestamp: time.Now()})

	if len(m.logPane.lines) != 2 {
		t.Fatalf("log has %d lines, want 2", len(m.logPane.lines))
	}
	if !strings.Contains(m.logPane.lines[0], "Dee died of thirst") {
		t.Errorf("first line = %q", m.logPane.lines[0])
	}
}

func TestFocusCycling(t *testing.T) {
	m := newTestModel(t)
	steps := []struct {
		key  string
		want PaneID
	}{
		{KeyTab, PaneBoard},
		{KeyTab, PaneLog},
		{KeyTab, PaneNPCs},
		{KeyShiftTab, PaneLog},
		{KeyPane2, PaneBoard},
		{KeyPane1, PaneNPCs},
	}
	for _, s := range steps {
		m = update(t, m, key(s.key))
		if m.focusedPane != s.want {
			t.Fatalf("after %q focus = %d, want %d", s.key, m.focusedPane, s.want)
		}
	}
	if !m.npcPane.focused || m.boardPane.focused || m.logPane.focused {
		t.Error("focus flags out of sync with focused pane")
	}
}

func TestSettingsSave(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	projectPath := filepath.Join(dir, "project.json")
	s := NewSettingsPaneModel(cfg, filepath.Join(dir, "global.json"), projectPath)

	s.fields.tickRate = "30"
	s.fields.observerEnabled = true
	s.fields.observerAddr = "127.0.0.1:9999"
	s.save()
	if s.err != nil || !s.saved {
		t.Fatalf("save failed: %v", s.err)
	}
	if cfg.Simulation.TickRate != 30 {
		t.Errorf("config tick rate = %d, want 30", cfg.Simulation.TickRate)
	}

	loaded, err := config.Load("", projectPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Simulation.TickRate != 30 || loaded.Observer.Addr != "127.0.0.1:9999" {
		t.Errorf("saved config = %+v", loaded)
	}
}

func TestSettingsRejectInvalid(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	s := NewSettingsPaneModel(cfg, filepath.Join(dir, "global.json"), filepath.Join(dir, "project.json"))

	s.fields.pathCap = "0"
	s.save()
	if !errors.Is(s.err, config.ErrInvalid) {
		t.Errorf("save err = %v, want ErrInvalid", s.err)
	}
	if cfg.Simulation.PathCap != 12 {
		t.Errorf("config changed despite the failed save: path cap %d", cfg.Simulation.PathCap)
	}
}
