// Package pathfinding runs grid A* searches on a bounded set of background
// workers. When every worker slot is taken the search runs on the caller
// instead of queueing.
package pathfinding

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/aristath/colony/internal/coord"
)

// DefaultCapacity is the maximum number of concurrent background searches.
const DefaultCapacity = 12

// HazardScanner flags paths crossing dangerous tiles.
type HazardScanner interface {
	ScanPath(path []coord.Coordinate, faction int) bool
}

// Request describes one search.
type Request struct {
	From    coord.Coordinate
	To      coord.Coordinate
	Faction int
}

// Result is a finished search. Path excludes the start tile.
type Result struct {
	Path      []coord.Coordinate
	Found     bool
	Dangerous bool
}

// PoolConfig configures a Pool.
type PoolConfig struct {
	Capacity int         // Max concurrent background searches (default 12)
	Logger   *zap.Logger // Optional (nil disables logging)
}

// Pool bounds concurrent background searches with a weighted semaphore.
type Pool struct {
	terrain  Terrain
	hazards  HazardScanner
	sem      *semaphore.Weighted
	capacity int64
	logger   *zap.Logger

	wg       sync.WaitGroup
	inFlight atomic.Int64
	peak     atomic.Int64
	inline   atomic.Int64
}

// NewPool creates a pool searching terrain and flagging paths with hazards.
func NewPool(terrain Terrain, hazards HazardScanner, cfg PoolConfig) *Pool {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Pool{
		terrain:  terrain,
		hazards:  hazards,
		sem:      semaphore.NewWeighted(int64(cfg.Capacity)),
		capacity: int64(cfg.Capacity),
		logger:   cfg.Logger,
	}
}

// Capacity returns the worker cap.
func (p *Pool) Capacity() int { return int(p.capacity) }

// InFlight returns the number of background searches currently running.
func (p *Pool) InFlight() int { return int(p.inFlight.Load()) }

// Peak returns the highest InFlight value observed.
func (p *Pool) Peak() int { return int(p.peak.Load()) }

// InlineRuns returns how many searches fell back to the caller.
func (p *Pool) InlineRuns() int { return int(p.inline.Load()) }

// Find runs a search synchronously and scans the result for hazards.
func (p *Pool) Find(req Request) Result {
	path, found := findPath(p.terrain, req.From, req.To)
	res := Result{Path: path, Found: found}
	if found && p.hazards != nil && len(path) > 0 {
		res.Dangerous = p.hazards.ScanPath(path, req.Faction)
	}
	return res
}

// Request starts a search for t. It returns immediately when a worker slot
// is free; otherwise the search runs inline and its result is ready on the
// next Poll. Any result still pending for t is superseded.
func (p *Pool) Request(t *Tracker, req Request) {
	f := t.begin()

	if !p.sem.TryAcquire(1) {
		p.inline.Add(1)
		p.logger.Debug("path pool saturated, searching inline",
			zap.Int64("capacity", p.capacity),
			zap.Stringer("from", req.From),
			zap.Stringer("to", req.To))
		f.finish(p.Find(req))
		return
	}

	n := p.inFlight.Add(1)
	for {
		old := p.peak.Load()
		if n <= old || p.peak.CompareAndSwap(old, n) {
			break
		}
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		defer p.inFlight.Add(-1)
		f.finish(p.Find(req))
	}()
}

// Wait blocks until every background search returned.
func (p *Pool) Wait() { p.wg.Wait() }
