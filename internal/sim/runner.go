package sim

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Service is a long-running component started beside the tick loop, such
// as the history recorder or the observer.
type Service interface {
	Run(ctx context.Context) error
}

// ServiceFunc adapts a function to Service.
type ServiceFunc func(ctx context.Context) error

func (f ServiceFunc) Run(ctx context.Context) error { return f(ctx) }

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	TickRate int       // Ticks per second (default the game's update rate)
	MaxTicks int64     // Stop after this many ticks (0 runs until cancelled)
	Services []Service // Started beside the tick loop
	Logger   *zap.Logger
}

// Runner drives a Game in real time and supervises its services. The
// first service to fail stops everything.
type Runner struct {
	config RunnerConfig
	game   *Game
	logger *zap.Logger
}

// ErrTickLimit ends a run that reached RunnerConfig.MaxTicks.
var ErrTickLimit = errors.New("tick limit reached")

// NewRunner creates a runner for game.
func NewRunner(game *Game, cfg RunnerConfig) *Runner {
	if cfg.TickRate <= 0 {
		cfg.TickRate = game.TickRate()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Runner{config: cfg, game: game, logger: cfg.Logger}
}

// Run ticks the game until ctx is cancelled, the tick limit is reached or
// a service fails. Cancellation and the tick limit are a clean stop and
// return nil.
func (r *Runner) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return r.loop(gctx)
	})
	for _, s := range r.config.Services {
		g.Go(func() error {
			return s.Run(gctx)
		})
	}

	err := g.Wait()
	r.game.Paths().Wait()
	r.logger.Info("simulation stopped", zap.Int64("ticks", r.game.TickCount()), zap.Error(err))

	switch {
	case errors.Is(err, ErrTickLimit):
		return nil
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return nil
	}
	return err
}

func (r *Runner) loop(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(r.config.TickRate))
	defer ticker.Stop()

	r.logger.Info("simulation started", zap.Int("tick_rate", r.config.TickRate))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.game.Tick()
			if r.config.MaxTicks > 0 && r.game.TickCount() >= r.config.MaxTicks {
				return ErrTickLimit
			}
		}
	}
}
