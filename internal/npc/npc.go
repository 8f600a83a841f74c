// Package npc is the per-agent behaviour engine. Each agent keeps a queue of
// jobs and advances the front job's current task once per think cycle,
// reporting every outcome through job.TaskResult. Everything here runs on
// the simulation tick; only path searches leave it.
package npc

import (
	"math/rand/v2"
	"slices"

	"go.uber.org/zap"

	"github.com/aristath/colony/internal/coord"
	"github.com/aristath/colony/internal/effect"
	"github.com/aristath/colony/internal/entity"
	"github.com/aristath/colony/internal/events"
	"github.com/aristath/colony/internal/job"
	"github.com/aristath/colony/internal/pathfinding"
	"github.com/aristath/colony/internal/tuning"
	"github.com/aristath/colony/internal/world"
)

// PlayerFaction is the colony the player controls.
const PlayerFaction = 0

// inventoryCapacity bounds what one agent can hold, equipment included.
const inventoryCapacity = 1000

// corpseNutrition is how much a corpse feeds.
const corpseNutrition = 2000

// JobBoard is the part of the job manager agents talk to.
type JobBoard interface {
	CancelJob(j *job.Job, msg string, result job.TaskResult)
	RemoveJob(j *job.Job)
	NPCWaiting(id int)
	NPCNotWaiting(id int)
}

// PathFinder starts asynchronous path searches.
type PathFinder interface {
	Request(t *pathfinding.Tracker, req pathfinding.Request)
}

// Roster resolves other agents.
type Roster interface {
	NPC(id int) (*NPC, bool)
	All() []*NPC
}

// Relations decides which factions fight each other.
type Relations interface {
	Hostile(a, b int) bool
}

// Calendar answers season questions.
type Calendar interface {
	Winter() bool
}

// Camp is where idle colonists gather.
type Camp interface {
	Center() coord.Coordinate
	RandomSpot(rng *rand.Rand) coord.Coordinate
}

// JobFinder supplies an idle agent with work. It returns true when it
// started a job on the agent.
type JobFinder interface {
	FindJob(n *NPC) bool
}

// Reactor runs emergency reactions: retaliation, panic, fire avoidance.
type Reactor interface {
	React(n *NPC)
}

// FinderFunc adapts a function to JobFinder.
type FinderFunc func(n *NPC) bool

func (f FinderFunc) FindJob(n *NPC) bool { return f(n) }

// ReactorFunc adapts a function to Reactor.
type ReactorFunc func(n *NPC)

func (f ReactorFunc) React(n *NPC) { f(n) }

// Env is the simulation context every agent works against.
type Env struct {
	Map       world.Map
	Registry  *entity.Registry
	Jobs      JobBoard
	Paths     PathFinder
	NPCs      Roster           // Optional (nil means no other agents are visible)
	Relations Relations        // Optional (nil makes every other faction hostile)
	Calendar  Calendar         // Optional
	Camp      Camp             // Optional
	Bus       *events.EventBus // Optional (nil disables announcements)
	Rand      *rand.Rand
	Tuning    tuning.Tuning
	Logger    *zap.Logger
}

func (e *Env) announce(msg string) {
	if e.Bus != nil {
		e.Bus.Announce(msg)
	}
}

// chance returns true with probability 1/n.
func (e *Env) chance(n int) bool {
	if n <= 1 {
		return true
	}
	return e.Rand.IntN(n) == 0
}

func (e *Env) hostile(a, b int) bool {
	if a == b {
		return false
	}
	if e.Relations == nil {
		return true
	}
	return e.Relations.Hostile(a, b)
}

// Config describes a new agent.
type Config struct {
	Name     string
	Faction  int
	Position coord.Coordinate
	Expert   bool
	Health   int
	Damage   int
	Coward   bool
	// Needs turns hunger, thirst and sleep on.
	Needs   bool
	Finder  JobFinder
	Reactor Reactor
}

// NPC is one agent.
type NPC struct {
	env     *Env
	id      int
	name    string
	faction int
	expert  bool

	pos       coord.Coordinate
	health    int
	maxHealth int
	damage    int
	dead      bool
	escaped   bool
	needs     bool

	jobs      []*job.Job
	taskIndex int
	taskBegun bool
	jobBegun  bool
	timer     int
	foundItem entity.ID

	path        []coord.Coordinate
	pathIndex   int
	pathPending bool
	pathDanger  bool
	tracker     pathfinding.Tracker
	nextMove    int
	run         bool
	lastMove    job.TaskResult
	timeCount   int
	heading     coord.Coordinate
	flight      int

	thirst    int
	hunger    int
	weariness int
	effects   effect.Set

	aggressive bool
	coward     bool
	attacker   int

	inventory entity.ID
	mainHand  entity.ID
	armor     entity.ID
	quiver    entity.ID
	carried   entity.ID

	finder  JobFinder
	squad   JobFinder
	reactor Reactor

	nearNPCs          []int
	adjacentNPCs      []int
	nearConstructions []entity.ID
	threatLocation    coord.Coordinate
	fireLocation      coord.Coordinate
	seenFire          bool
}

// New places an agent on the map with an empty inventory.
func New(env *Env, cfg Config) *NPC {
	if env.Logger == nil {
		env.Logger = zap.NewNop()
	}
	if cfg.Health <= 0 {
		cfg.Health = 100
	}
	if cfg.Damage <= 0 {
		cfg.Damage = 5
	}
	n := &NPC{
		env:            env,
		id:             int(env.Registry.NewID()),
		name:           cfg.Name,
		faction:        cfg.Faction,
		expert:         cfg.Expert,
		pos:            cfg.Position,
		health:         cfg.Health,
		maxHealth:      cfg.Health,
		damage:         cfg.Damage,
		needs:          cfg.Needs,
		coward:         cfg.Coward,
		attacker:       -1,
		foundItem:      entity.None,
		mainHand:       entity.None,
		armor:          entity.None,
		quiver:         entity.None,
		carried:        entity.None,
		run:            true,
		lastMove:       job.TaskContinue,
		finder:         cfg.Finder,
		reactor:        cfg.Reactor,
		threatLocation: coord.Undefined,
		fireLocation:   coord.Undefined,
	}
	n.inventory = env.Registry.AddItem(&entity.Item{
		Name:       cfg.Name + "'s inventory",
		Pos:        cfg.Position,
		Categories: []entity.Category{env.Registry.MustCategory(entity.CatInventory)},
		Capacity:   inventoryCapacity,
		Inventory:  true,
		Faction:    cfg.Faction,
	})
	env.Map.Enter(cfg.Position, n.id)
	return n
}

// ID returns the agent id.
func (n *NPC) ID() int { return n.id }

// Name returns the display name.
func (n *NPC) Name() string { return n.name }

// Faction returns the owning faction.
func (n *NPC) Faction() int { return n.faction }

// Expert reports whether the agent takes expert rather than menial jobs.
func (n *NPC) Expert() bool { return n.expert }

// Position returns the current tile.
func (n *NPC) Position() coord.Coordinate { return n.pos }

// Env returns the simulation context.
func (n *NPC) Env() *Env { return n.env }

// Health returns the remaining hit points.
func (n *NPC) Health() int { return n.health }

// Dead reports whether the agent was killed.
func (n *NPC) Dead() bool { return n.dead }

// Escaped reports whether the agent left the map.
func (n *NPC) Escaped() bool { return n.escaped }

// Thirst returns the thirst counter; it grows every tick while needs are on.
func (n *NPC) Thirst() int { return n.thirst }

// Hunger returns the hunger counter.
func (n *NPC) Hunger() int { return n.hunger }

// Weariness returns how long the agent has gone without sleep.
func (n *NPC) Weariness() int { return n.weariness }

// SetNeeds overrides the need counters.
func (n *NPC) SetNeeds(thirst, hunger, weariness int) {
	n.thirst, n.hunger, n.weariness = thirst, hunger, weariness
}

// Aggressive reports whether the agent strikes adjacent enemies unprompted.
func (n *NPC) Aggressive() bool { return n.aggressive }

// SetAggressive turns unprompted attacks on or off.
func (n *NPC) SetAggressive(a bool) { n.aggressive = a }

// Coward reports whether the agent flees threats instead of fighting.
func (n *NPC) Coward() bool { return n.coward }

// Attacker returns the last agent that hurt this one, -1 for none.
func (n *NPC) Attacker() int { return n.attacker }

// HasTool reports whether the main hand holds an item of category c.
func (n *NPC) HasTool(c entity.Category) bool {
	it, ok := n.env.Registry.Item(n.mainHand)
	return ok && it.IsCategory(c)
}

// MainHand returns the wielded item, or entity.None.
func (n *NPC) MainHand() entity.ID { return n.mainHand }

// Armor returns the worn armor, or entity.None.
func (n *NPC) Armor() entity.ID { return n.armor }

// Quiver returns the worn quiver, or entity.None.
func (n *NPC) Quiver() entity.ID { return n.quiver }

// Carrying returns the item held for the current task, or entity.None.
func (n *NPC) Carrying() entity.ID { return n.carried }

// Inventory returns the container holding everything the agent owns.
func (n *NPC) Inventory() entity.ID { return n.inventory }

// FoundItem returns the item the last FIND located.
func (n *NPC) FoundItem() entity.ID { return n.foundItem }

// AmmoLeft counts the items in the quiver.
func (n *NPC) AmmoLeft() int {
	q, ok := n.env.Registry.Item(n.quiver)
	if !ok {
		return 0
	}
	return len(q.Contents())
}

// JoinSquad makes f the first place the agent looks for work.
func (n *NPC) JoinSquad(f JobFinder) { n.squad = f }

// LeaveSquad drops the squad job source.
func (n *NPC) LeaveSquad() { n.squad = nil }

// InSquad reports whether the agent belongs to a squad.
func (n *NPC) InSquad() bool { return n.squad != nil }

// Jobs returns the queued jobs, current first.
func (n *NPC) Jobs() []*job.Job { return slices.Clone(n.jobs) }

// CurrentJob returns the job being worked on.
func (n *NPC) CurrentJob() (*job.Job, bool) {
	if len(n.jobs) == 0 {
		return nil, false
	}
	return n.jobs[0], true
}

// CurrentTask returns the task being worked on.
func (n *NPC) CurrentTask() (job.Task, bool) {
	j, ok := n.CurrentJob()
	if !ok || n.taskIndex >= len(j.Tasks) {
		return job.Task{}, false
	}
	return j.Tasks[n.taskIndex], true
}

// TaskIndex returns the position of the current task in its job.
func (n *NPC) TaskIndex() int { return n.taskIndex }

// AddedTasks returns how many tool-fetching tasks lead the current job.
func (n *NPC) AddedTasks() int {
	j, ok := n.CurrentJob()
	if !ok {
		return 0
	}
	return j.ToolTasks()
}

// HasJobKind reports whether a job of kind k is queued.
func (n *NPC) HasJobKind(k job.Kind) bool {
	return slices.ContainsFunc(n.jobs, func(j *job.Job) bool { return j.Kind == k })
}

// QueueJob appends an internal job behind the current one.
func (n *NPC) QueueJob(j *job.Job) {
	j.Assign(n.id)
	n.jobs = append(n.jobs, j)
}

// currentTarget is the task's tile, falling back to the found item.
func (n *NPC) currentTarget() coord.Coordinate {
	t, ok := n.CurrentTask()
	if !ok {
		return coord.Undefined
	}
	if t.Target.IsUndefined() && n.foundItem != entity.None {
		if pos, ok := n.env.Registry.Position(n.foundItem); ok {
			return pos
		}
	}
	return t.Target
}

// currentEntity is the task's entity, falling back to the found item.
func (n *NPC) currentEntity() entity.ID {
	t, ok := n.CurrentTask()
	if !ok {
		return entity.None
	}
	if t.Entity != entity.None && n.env.Registry.Exists(t.Entity) {
		return t.Entity
	}
	if t.Entity != entity.None {
		if other, ok := n.agent(int(t.Entity)); ok && !other.dead {
			return t.Entity
		}
	}
	return n.foundItem
}

func (n *NPC) agent(id int) (*NPC, bool) {
	if n.env.NPCs == nil {
		return nil, false
	}
	return n.env.NPCs.NPC(id)
}

// nextTaskIs reports whether the task after the current one is a.
func (n *NPC) nextTaskIs(a job.Action) bool {
	j, ok := n.CurrentJob()
	return ok && n.taskIndex+1 < len(j.Tasks) && j.Tasks[n.taskIndex+1].Action == a
}

// Status is a point-in-time view of an agent for dashboards.
type Status struct {
	ID        int              `json:"id"`
	Name      string           `json:"name"`
	Faction   int              `json:"faction"`
	Position  coord.Coordinate `json:"position"`
	Job       string           `json:"job"`
	Task      string           `json:"task"`
	Queued    int              `json:"queued"`
	Thirst    int              `json:"thirst"`
	Hunger    int              `json:"hunger"`
	Weariness int              `json:"weariness"`
	Health    int              `json:"health"`
	Effects   []string         `json:"effects"`
	Dead      bool             `json:"dead"`
	Escaped   bool             `json:"escaped"`
}

// Status summarises the agent.
func (n *NPC) Status() Status {
	s := Status{
		ID:        n.id,
		Name:      n.name,
		Faction:   n.faction,
		Position:  n.pos,
		Queued:    len(n.jobs),
		Thirst:    n.thirst,
		Hunger:    n.hunger,
		Weariness: n.weariness,
		Health:    n.health,
		Dead:      n.dead,
		Escaped:   n.escaped,
	}
	if j, ok := n.CurrentJob(); ok {
		s.Job = j.Name
	}
	if t, ok := n.CurrentTask(); ok {
		s.Task = t.Action.String()
	}
	for _, e := range n.effects.List() {
		s.Effects = append(s.Effects, e.Type.String())
	}
	return s
}
