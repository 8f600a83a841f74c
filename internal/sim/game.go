// Package sim ties the engine together: it owns the map, the entity
// registry, the job manager, the path pool and the agents, and advances
// them one tick at a time in a fixed order.
package sim

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aristath/colony/internal/coord"
	"github.com/aristath/colony/internal/entity"
	"github.com/aristath/colony/internal/events"
	"github.com/aristath/colony/internal/faction"
	"github.com/aristath/colony/internal/job"
	"github.com/aristath/colony/internal/jobmanager"
	"github.com/aristath/colony/internal/npc"
	"github.com/aristath/colony/internal/pathfinding"
	"github.com/aristath/colony/internal/tuning"
	"github.com/aristath/colony/internal/world"
)

// Factions known to the simulation.
const (
	PlayerFaction   = npc.PlayerFaction
	WildlifeFaction = 1
	PredatorFaction = 2
)

// Config configures a Game.
type Config struct {
	Width  int    // Map width in tiles (default 64)
	Height int    // Map height in tiles (default 64)
	Seed   uint64 // RNG seed
	Tuning tuning.Tuning
	// CampRadius is the initial size of the gathering area (default 5).
	CampRadius int
	// CommandBuffer is how many external commands may queue between
	// ticks (default 64).
	CommandBuffer int
	Relations     *faction.Relations // Optional (nil uses the default stances)
	Bus           *events.EventBus   // Optional (nil disables events)
	Logger        *zap.Logger        // Optional (nil disables logging)
}

// Game is one running colony.
type Game struct {
	// mu serialises ticks, locked mutators and snapshots.
	mu     sync.Mutex
	cfg    Config
	logger *zap.Logger

	grid      *world.Grid
	reg       *entity.Registry
	jobs      *jobmanager.Manager
	paths     *pathfinding.Pool
	env       *npc.Env
	agents    *arena
	calendar  *Calendar
	camp      *Camp
	relations *faction.Relations
	commands  *commandQueue

	squads  []*faction.Squad
	finders map[*faction.Squad]*faction.SquadFinder

	tick int64
}

// New creates a game on an empty grass map.
func New(cfg Config) *Game {
	if cfg.Width <= 0 {
		cfg.Width = 64
	}
	if cfg.Height <= 0 {
		cfg.Height = 64
	}
	if cfg.Tuning.UpdatesPerSecond <= 0 {
		cfg.Tuning = tuning.Default()
	}
	if cfg.CampRadius <= 0 {
		cfg.CampRadius = 5
	}
	if cfg.CommandBuffer <= 0 {
		cfg.CommandBuffer = 64
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Relations == nil {
		cfg.Relations = DefaultRelations()
	}

	g := &Game{
		cfg:       cfg,
		logger:    cfg.Logger,
		grid:      world.NewGrid(cfg.Width, cfg.Height),
		reg:       entity.NewRegistry(),
		agents:    newArena(),
		calendar:  NewCalendar(tuning.MonthLength),
		relations: cfg.Relations,
		commands:  newCommandQueue(cfg.CommandBuffer),
		finders:   make(map[*faction.Squad]*faction.SquadFinder),
	}
	g.camp = NewCamp(g.grid, coord.Pt(cfg.Width/2, cfg.Height/2), cfg.CampRadius)
	g.jobs = jobmanager.New(jobmanager.Config{
		Roster:    g.agents,
		Stock:     g.reg,
		Positions: g.reg,
		Bus:       cfg.Bus,
		Logger:    cfg.Logger.Named("jobs"),
		Backoff: jobmanager.BackoffConfig{
			InitialTicks:        cfg.Tuning.Backoff.InitialTicks,
			MaxTicks:            cfg.Tuning.Backoff.MaxTicks,
			Multiplier:          cfg.Tuning.Backoff.Multiplier,
			RandomizationFactor: cfg.Tuning.Backoff.Jitter,
		},
	})
	g.paths = pathfinding.NewPool(g.grid, g.grid.Hazards(), pathfinding.PoolConfig{
		Capacity: cfg.Tuning.PathCap,
		Logger:   cfg.Logger.Named("paths"),
	})
	g.env = &npc.Env{
		Map:       g.grid,
		Registry:  g.reg,
		Jobs:      g.jobs,
		Paths:     g.paths,
		NPCs:      g.agents,
		Relations: g.relations,
		Calendar:  g.calendar,
		Camp:      g.camp,
		Bus:       cfg.Bus,
		Rand:      rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		Tuning:    cfg.Tuning,
		Logger:    cfg.Logger.Named("npc"),
	}
	return g
}

// DefaultRelations makes predators enemies of everyone while colonists and
// grazing wildlife leave each other alone.
func DefaultRelations() *faction.Relations {
	r := faction.NewRelations(true)
	r.SetHostile(PlayerFaction, WildlifeFaction, false)
	r.SetHostile(WildlifeFaction, PredatorFaction, false)
	return r
}

// The accessors below hand out engine internals. They are not safe for
// concurrent use and belong on the tick goroutine: inside a command, a
// test, or setup before Run.

func (g *Game) Map() *world.Grid              { return g.grid }
func (g *Game) Registry() *entity.Registry    { return g.reg }
func (g *Game) Jobs() *jobmanager.Manager     { return g.jobs }
func (g *Game) Paths() *pathfinding.Pool      { return g.paths }
func (g *Game) Env() *npc.Env                 { return g.env }
func (g *Game) Calendar() *Calendar           { return g.calendar }
func (g *Game) Camp() *Camp                   { return g.camp }
func (g *Game) Relations() *faction.Relations { return g.relations }
func (g *Game) Logger() *zap.Logger           { return g.logger }
func (g *Game) Bus() *events.EventBus         { return g.cfg.Bus }
func (g *Game) TickRate() int                 { return g.cfg.Tuning.UpdatesPerSecond }
func (g *Game) NPCs() []*npc.NPC              { return g.agents.All() }
func (g *Game) NPC(id int) (*npc.NPC, bool)   { return g.agents.NPC(id) }
func (g *Game) Squads() []*faction.Squad      { return slices.Clone(g.squads) }

// Do queues fn to run on the tick goroutine before the next tick and waits
// for its result.
func (g *Game) Do(ctx context.Context, fn CommandFunc) error {
	return g.commands.submit(ctx, fn)
}

// Tick advances the simulation one update: pending commands are applied,
// the hazard cache is rebuilt on its interval, the job manager updates,
// every agent updates and thinks in arrival order, and finally idle agents
// are matched with jobs, including jobs added during this tick.
func (g *Game) Tick() {
	g.commands.drain(g)

	g.mu.Lock()
	defer g.mu.Unlock()

	g.tick++
	g.calendar.Advance()
	if every := g.cfg.Tuning.HazardRebuildTicks; every > 0 && g.tick%int64(every) == 0 {
		g.grid.Hazards().Rebuild(g.grid)
	}

	g.jobs.Update()
	for _, n := range g.agents.All() {
		if n.Dead() || n.Escaped() {
			continue
		}
		n.Update()
		if n.Dead() || n.Escaped() {
			continue
		}
		n.Think()
	}
	g.jobs.AssignJobs()

	g.pruneAgents()
	g.recruit()

	if ups := g.cfg.Tuning.UpdatesPerSecond; ups > 0 && g.tick%int64(ups) == 0 {
		g.publishProgress()
	}
}

// TickCount returns the number of ticks run.
func (g *Game) TickCount() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tick
}

// AddNPC places an agent built from cfg.
func (g *Game) AddNPC(cfg npc.Config) *npc.NPC {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addNPC(cfg)
}

func (g *Game) addNPC(cfg npc.Config) *npc.NPC {
	n := npc.New(g.env, cfg)
	g.agents.add(n)
	g.logger.Debug("npc added",
		zap.Int("npc", n.ID()),
		zap.String("name", n.Name()),
		zap.Int("faction", n.Faction()))
	return n
}

// AddColonist places a player agent that draws work from the job manager.
// Experts take expert jobs and are drafted into squads.
func (g *Game) AddColonist(name string, pos coord.Coordinate, expert bool) *npc.NPC {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addNPC(npc.Config{
		Name:     name,
		Faction:  PlayerFaction,
		Position: pos,
		Expert:   expert,
		Needs:    true,
		Finder:   faction.JobManagerFinder{Jobs: g.jobs},
		Reactor:  faction.PlayerReactor{},
	})
}

// AddAnimal places a wild animal. Predators hunt colonists; grazers flee
// from danger.
func (g *Game) AddAnimal(name string, pos coord.Coordinate, predator bool) *npc.NPC {
	g.mu.Lock()
	defer g.mu.Unlock()
	cfg := npc.Config{
		Name:     name,
		Faction:  WildlifeFaction,
		Position: pos,
		Coward:   !predator,
		Finder:   faction.PeacefulAnimalFinder{},
		Reactor:  faction.AnimalReactor{},
	}
	if predator {
		cfg.Faction = PredatorFaction
		cfg.Finder = faction.HostileAnimalFinder{}
	}
	n := g.addNPC(cfg)
	n.SetAggressive(predator)
	return n
}

// RemoveNPC takes an agent out of the game. Its jobs return to the job
// manager and it leaves its squad.
func (g *Game) RemoveNPC(id int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.agents.NPC(id)
	if !ok {
		return fmt.Errorf("remove npc %d: %w", id, ErrUnknownNPC)
	}
	n.Remove()
	g.leaveSquads(n)
	g.agents.remove(id)
	return nil
}

// AddJob offers j through the job manager.
func (g *Game) AddJob(j *job.Job) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.jobs.AddJob(j)
}

// AddJobs offers a group of jobs linked by prerequisites. A cyclic group
// is rejected whole.
func (g *Game) AddJobs(jobs ...*job.Job) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.jobs.AddJobs(jobs...)
}

// CreateSquad registers a squad. Experts without a squad are drafted into
// it until it is full.
func (g *Game) CreateSquad(name string, limit int, p job.Priority) (*faction.Squad, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.squad(name) != nil {
		return nil, fmt.Errorf("create squad %q: %w", name, ErrDuplicateSquad)
	}
	s := faction.NewSquad(name, limit, p)
	g.squads = append(g.squads, s)
	g.finders[s] = faction.NewSquadFinder(s)
	return s, nil
}

// Squad returns the squad called name.
func (g *Game) Squad(name string) (*faction.Squad, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := g.squad(name)
	return s, s != nil
}

func (g *Game) squad(name string) *faction.Squad {
	for _, s := range g.squads {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// DisbandSquad dissolves a squad, sending its members back to civilian work.
func (g *Game) DisbandSquad(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := g.squad(name)
	if s == nil {
		return fmt.Errorf("disband squad %q: %w", name, ErrUnknownSquad)
	}
	for _, id := range s.Members() {
		if n, ok := g.agents.NPC(id); ok {
			n.LeaveSquad()
		}
	}
	delete(g.finders, s)
	g.squads = slices.DeleteFunc(g.squads, func(x *faction.Squad) bool { return x == s })
	return nil
}

// OrderSquad replaces a squad's standing orders with c.
func (g *Game) OrderSquad(name string, c faction.Command) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := g.squad(name)
	if s == nil {
		return fmt.Errorf("order squad %q: %w", name, ErrUnknownSquad)
	}
	s.SetOrder(c)
	g.logger.Info("squad ordered",
		zap.String("squad", name),
		zap.Stringer("order", c.Order),
		zap.Stringer("target", c.Target))
	return nil
}

// EquipSquad sets the weapon and armor categories squad members fetch
// before following orders. An empty name leaves that slot unrequired.
func (g *Game) EquipSquad(name, weapon, armor string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := g.squad(name)
	if s == nil {
		return fmt.Errorf("equip squad %q: %w", name, ErrUnknownSquad)
	}
	cats := [2]entity.Category{entity.NoCategory, entity.NoCategory}
	for i, cat := range []string{weapon, armor} {
		if cat == "" {
			continue
		}
		c, ok := g.reg.CategoryByName(cat)
		if !ok {
			return fmt.Errorf("equip squad %q: category %q: %w", name, cat, ErrUnknownCategory)
		}
		cats[i] = c
	}
	s.Weapon, s.Armor = cats[0], cats[1]
	return nil
}

// recruit drafts unassigned expert colonists into squads short of members.
func (g *Game) recruit() {
	for _, s := range g.squads {
		for s.NeedsMembers() {
			n := g.findRecruit()
			if n == nil {
				return
			}
			s.AddMember(n.ID())
			n.JoinSquad(g.finders[s])
			g.logger.Info("npc drafted", zap.Int("npc", n.ID()), zap.String("squad", s.Name))
		}
	}
}

func (g *Game) findRecruit() *npc.NPC {
	for _, n := range g.agents.All() {
		if n.Faction() == PlayerFaction && n.Expert() && !n.InSquad() && !n.Dead() && !n.Escaped() {
			return n
		}
	}
	return nil
}

func (g *Game) leaveSquads(n *npc.NPC) {
	for _, s := range g.squads {
		s.Leave(n.ID())
	}
	n.LeaveSquad()
}

// pruneAgents drops dead and departed agents from the arena.
func (g *Game) pruneAgents() {
	for _, n := range g.agents.All() {
		if n.Dead() || n.Escaped() {
			g.leaveSquads(n)
			g.agents.remove(n.ID())
		}
	}
}

func (g *Game) publishProgress() {
	if g.cfg.Bus == nil {
		return
	}
	b := g.jobs.Snapshot()
	ev := events.BoardProgressEvent{
		Tick:      g.tick,
		Waiting:   b.Waiting,
		Idle:      b.Idle,
		Agents:    g.agents.count(),
		Completed: b.Completed,
		Failed:    b.Failed,
		InFlight:  g.paths.InFlight(),
		Timestamp: time.Now(),
	}
	copy(ev.Tiers[:], b.Tiers[:])
	g.cfg.Bus.Publish(events.TopicBoard, ev)
}
