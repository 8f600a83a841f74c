package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/colony/internal/config"
	"github.com/aristath/colony/internal/events"
	"github.com/aristath/colony/internal/journal"
	"github.com/aristath/colony/internal/logging"
	"github.com/aristath/colony/internal/observer"
	"github.com/aristath/colony/internal/persistence"
	"github.com/aristath/colony/internal/presets"
	"github.com/aristath/colony/internal/resilience"
	"github.com/aristath/colony/internal/sim"
	"github.com/aristath/colony/internal/tui"
	"github.com/aristath/colony/internal/tuning"
)

type options struct {
	headless bool
	ticks    int64
	stats    bool
	seed     uint64
}

func main() {
	var opts options
	flag.BoolVar(&opts.headless, "headless", false, "run without the terminal UI")
	flag.Int64Var(&opts.ticks, "ticks", 0, "stop after this many ticks (0 uses the configured limit)")
	flag.BoolVar(&opts.stats, "stats", false, "print job history statistics and exit")
	flag.Uint64Var(&opts.seed, "seed", 0, "RNG seed (0 uses the configured seed)")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	// Create signal-aware context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadDefault()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("getting home directory: %w", err)
	}
	globalPath := filepath.Join(homeDir, ".colony", "config.json")
	projectPath := filepath.Join(".colony", "config.json")

	if opts.seed != 0 {
		cfg.Simulation.Seed = opts.seed
	}
	if opts.ticks > 0 {
		cfg.Simulation.MaxTicks = opts.ticks
	}

	if opts.stats {
		return printStats(ctx, cfg)
	}

	// The terminal UI owns stdout, so logs go to a file unless one is set.
	var outputs []string
	switch {
	case cfg.Logging.File != "":
		outputs = append(outputs, cfg.Logging.File)
	case !opts.headless:
		if err := os.MkdirAll(cfg.Storage.DataDir, 0755); err != nil {
			return fmt.Errorf("creating data dir: %w", err)
		}
		outputs = append(outputs, filepath.Join(cfg.Storage.DataDir, "colony.log"))
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Development, outputs...)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if opts.headless {
		if err := a.seed(); err != nil {
			return err
		}
		return a.runner().Run(ctx)
	}

	// The model subscribes to the bus, so build it before the scenario
	// publishes its first jobs.
	model := tui.New(a.bus, a.game, cfg, globalPath, projectPath)
	if err := a.seed(); err != nil {
		return err
	}
	return runWithTUI(ctx, a, model)
}

// runWithTUI runs the simulation beside the terminal UI. Quitting the UI
// stops the simulation; a signal stops both.
func runWithTUI(ctx context.Context, a *app, model tea.Model) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.runner().Run(gctx)
	})
	g.Go(func() error {
		defer cancel()
		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(gctx))
		_, err := p.Run()
		if errors.Is(err, tea.ErrProgramKilled) && gctx.Err() != nil {
			return nil
		}
		return err
	})
	return g.Wait()
}

// app holds one configured colony: the game, its event bus and the
// services that follow the bus.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	bus      *events.EventBus
	game     *sim.Game
	store    *persistence.SQLiteStore
	services []sim.Service
	seed     uint64
}

// newApp builds the game and its services. Services subscribe here, before
// anything is published.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	tun, err := loadTuning(cfg)
	if err != nil {
		return nil, err
	}

	seed := cfg.Simulation.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	bus := events.NewEventBus()
	a := &app{
		cfg:    cfg,
		logger: logger,
		bus:    bus,
		seed:   seed,
		game: sim.New(sim.Config{
			Width:  cfg.Simulation.Width,
			Height: cfg.Simulation.Height,
			Seed:   seed,
			Tuning: tun,
			Bus:    bus,
			Logger: logging.Component(logger, "sim"),
		}),
	}
	logger.Info("colony created",
		zap.Uint64("seed", seed),
		zap.Int("width", cfg.Simulation.Width),
		zap.Int("height", cfg.Simulation.Height))

	breakers := resilience.NewBreakerRegistry(resilience.BreakerConfig{}, logging.Component(logger, "breaker"))

	if path := cfg.HistoryPath(); path != "" {
		store, err := persistence.NewSQLiteStore(ctx, path)
		if err != nil {
			bus.Close()
			return nil, fmt.Errorf("opening history: %w", err)
		}
		a.store = store
		a.services = append(a.services, persistence.NewRecorder(store, bus, persistence.RecorderConfig{
			Breakers: breakers,
			Logger:   logging.Component(logger, "history"),
		}))
	}
	if cfg.Journal.Enabled {
		a.services = append(a.services, journal.New(bus, journal.Config{
			Dir:      cfg.JournalPath(),
			Level:    journal.Level(cfg.Journal.Level),
			Breakers: breakers,
			Logger:   logging.Component(logger, "journal"),
		}))
	}
	if cfg.Observer.Enabled {
		a.services = append(a.services, observer.NewServer(a.game, bus, observer.Config{
			Addr:   cfg.Observer.Addr,
			Logger: logging.Component(logger, "observer"),
		}))
	}
	return a, nil
}

// loadTuning reads the tuning file, or the defaults when none is set, and
// applies the config's path cap.
func loadTuning(cfg *config.Config) (tuning.Tuning, error) {
	tun := tuning.Default()
	if cfg.Simulation.TuningFile != "" {
		var err error
		if tun, err = tuning.Load(cfg.Simulation.TuningFile); err != nil {
			return tun, fmt.Errorf("loading tuning: %w", err)
		}
	}
	tun.PathCap = cfg.Simulation.PathCap
	tun.UpdatesPerSecond = cfg.Simulation.TickRate
	return tun, nil
}

// seed populates the map from the scenario config and the configured
// presets.
func (a *app) seed() error {
	sets, err := presets.LoadAll(a.cfg.Presets)
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewPCG(a.seed, 0x636f6c6f6e79))
	if err := seedScenario(a.game, a.cfg.Scenario, sets, rng); err != nil {
		return fmt.Errorf("seeding scenario: %w", err)
	}
	a.logger.Info("scenario seeded",
		zap.Int("npcs", len(a.game.NPCs())),
		zap.Int("presets", len(sets)))
	return nil
}

func (a *app) runner() *sim.Runner {
	return sim.NewRunner(a.game, sim.RunnerConfig{
		TickRate: a.cfg.Simulation.TickRate,
		MaxTicks: a.cfg.Simulation.MaxTicks,
		Services: a.services,
		Logger:   logging.Component(a.logger, "runner"),
	})
}

// Close closes the bus and the history store.
func (a *app) Close() error {
	a.bus.Close()
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

func printStats(ctx context.Context, cfg *config.Config) error {
	path := cfg.HistoryPath()
	if path == "" {
		return errors.New("history is disabled (storage.history_db is empty)")
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("no history at %s: %w", path, err)
	}
	store, err := persistence.NewSQLiteStore(ctx, path)
	if err != nil {
		return err
	}
	defer store.Close()

	st, err := store.Stats(ctx)
	if err != nil {
		return err
	}
	writeStats(os.Stdout, st)
	return nil
}
