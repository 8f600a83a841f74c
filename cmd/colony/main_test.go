package main

import (
	"bytes"
	"context"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/aristath/colony/internal/config"
	"github.com/aristath/colony/internal/journal"
	"github.com/aristath/colony/internal/persistence"
	"github.com/aristath/colony/internal/presets"
	"github.com/aristath/colony/internal/sim"
	"github.com/aristath/colony/internal/tuning"
)

func TestSeedScenario(t *testing.T) {
	g := sim.New(sim.Config{Width: 64, Height: 64, Seed: 7, Tuning: tuning.Default()})
	sets, err := presets.LoadAll(map[string]string{
		"firewood": filepath.Join("..", "..", "internal", "presets", "testdata", "firewood.json"),
	})
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}

	sc := config.ScenarioConfig{Colonists: 4, Experts: 2, Wildlife: 2, Predators: 1}
	if err := seedScenario(g, sc, sets, rand.New(rand.NewPCG(7, 7))); err != nil {
		t.Fatalf("seedScenario() error = %v", err)
	}

	if got := len(g.NPCs()); got != 7 {
		t.Errorf("NPCs = %d, want 7", got)
	}
	// Four fell jobs plus the two preset jobs
	if got := g.Jobs().JobAmount(); got != 6 {
		t.Errorf("jobs = %d, want 6", got)
	}
	if _, ok := g.Squad("Watch"); !ok {
		t.Error("Watch squad missing")
	}
	if !g.Map().IsTerritory(g.Camp().Center()) {
		t.Error("camp is outside the colony's territory")
	}
}

func TestSeedScenarioWithoutExperts(t *testing.T) {
	g := sim.New(sim.Config{Width: 32, Height: 32, Seed: 1, Tuning: tuning.Default()})
	sc := config.ScenarioConfig{Colonists: 2}
	if err := seedScenario(g, sc, nil, rand.New(rand.NewPCG(1, 1))); err != nil {
		t.Fatalf("seedScenario() error = %v", err)
	}
	if got := len(g.NPCs()); got != 2 {
		t.Errorf("NPCs = %d, want 2", got)
	}
	if len(g.Squads()) != 0 {
		t.Errorf("squads = %d, want none without experts", len(g.Squads()))
	}
}

func TestLoadTuningAppliesConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Simulation.PathCap = 3
	cfg.Simulation.TickRate = 50

	tun, err := loadTuning(cfg)
	if err != nil {
		t.Fatalf("loadTuning() error = %v", err)
	}
	if tun.PathCap != 3 || tun.UpdatesPerSecond != 50 {
		t.Errorf("tuning = %+v, want path cap 3 at 50 ticks/s", tun)
	}

	cfg.Simulation.TuningFile = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := loadTuning(cfg); err != nil {
		t.Errorf("loadTuning() with missing file error = %v, want defaults", err)
	}
}

// TestHeadlessRun runs a short simulation with every service enabled and
// checks that history and the journal were written.
func TestHeadlessRun(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.DataDir = t.TempDir()
	cfg.Simulation.TickRate = 500
	cfg.Simulation.MaxTicks = 40
	cfg.Simulation.Seed = 3
	cfg.Journal.Level = int(journal.LevelBoard)
	cfg.Observer.Enabled = true
	cfg.Observer.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a, err := newApp(ctx, cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	if len(a.services) != 3 {
		t.Fatalf("services = %d, want history, journal and observer", len(a.services))
	}
	if err := a.seed(); err != nil {
		t.Fatalf("seed() error = %v", err)
	}
	if err := a.runner().Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := a.game.TickCount(); got != 40 {
		t.Errorf("ticks = %d, want 40", got)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	store, err := persistence.NewSQLiteStore(ctx, cfg.HistoryPath())
	if err != nil {
		t.Fatalf("reopening history: %v", err)
	}
	defer store.Close()
	st, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if st.Jobs < 4 {
		t.Errorf("recorded jobs = %d, want at least the four fell jobs", st.Jobs)
	}
	if st.Samples == 0 {
		t.Error("no board samples recorded")
	}

	files, err := journal.Files(cfg.JournalPath(), "events")
	if err != nil {
		t.Fatalf("Files() error = %v", err)
	}
	if len(files) == 0 {
		t.Fatal("journal is empty")
	}
	entries, err := journal.ReadFile(files[0])
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if len(entries) == 0 {
		t.Error("journal file holds no entries")
	}
}

func TestWriteStats(t *testing.T) {
	var buf bytes.Buffer
	writeStats(&buf, persistence.Stats{
		Jobs:     5,
		ByStatus: map[string]int{"completed": 3, "failed": 1, "waiting": 1},
		Attempts: 7,
		Deaths:   2,
	})
	out := buf.String()
	for _, want := range []string{"completed", "failed", "total", "completion: 75%", "deaths: 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

// TestSignalContextCancellation verifies that signal.NotifyContext
// correctly cancels the context when a signal is received.
func TestSignalContextCancellation(t *testing.T) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGUSR1)
	defer stop()

	if err := syscall.Kill(os.Getpid(), syscall.SIGUSR1); err != nil {
		t.Fatalf("Failed to send signal: %v", err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(1 * time.Second):
		t.Fatal("Context was not cancelled after signal")
	}
}
