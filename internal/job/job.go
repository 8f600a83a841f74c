// Package job defines Tasks and Jobs: ordered task sequences with priority,
// prerequisites, retry accounting and exclusive reservations.
package job

import (
	"slices"

	"github.com/google/uuid"

	"github.com/aristath/colony/internal/coord"
	"github.com/aristath/colony/internal/effect"
	"github.com/aristath/colony/internal/entity"
)

// Priority orders the JobManager tiers, most urgent first.
type Priority int

const (
	VeryHigh Priority = iota
	High
	Med
	Low
	PriorityCount
)

func (p Priority) String() string {
	switch p {
	case VeryHigh:
		return "very high"
	case High:
		return "high"
	case Med:
		return "medium"
	case Low:
		return "low"
	}
	return "unknown"
}

// Completion is the terminal state of a Job.
type Completion int

const (
	Ongoing Completion = iota
	Success
	Failure
)

// Kind tags what a job is for, so need handlers can tell whether one is
// already queued.
type Kind int

const (
	Generic Kind = iota
	DrinkJob
	EatJob
	SleepJob
	IdleJob
	FleeJob
	PanicJob
	SquadOrderJob
	KillJob
	RemoveEffectJob
	EscapeJob
	StockpileJob
	PourWaterJob
	DumpFilthJob
	ArmJob
)

// DefaultAttemptMax is how many times a job may be attempted before it fails.
const DefaultAttemptMax = 5

// Ledger is the reservation surface a Job claims resources through.
type Ledger interface {
	Reserve(id entity.ID) bool
	Release(id entity.ID)
	ReserveSpot(stockpile entity.ID, spot coord.Coordinate, c entity.Category) bool
	ReleaseSpot(stockpile entity.ID, spot coord.Coordinate)
	ReserveSpace(container entity.ID, bulk int) bool
	ReleaseSpace(container entity.ID, bulk int)
}

// GroundMarker designates tiles for ground jobs.
type GroundMarker interface {
	MarkGround(c coord.Coordinate)
	UnmarkGround(c coord.Coordinate)
}

// Territory answers whether a tile is inside the player's territory.
type Territory interface {
	IsInside(c coord.Coordinate) bool
	IsTerritory(c coord.Coordinate) bool
	Fire(c coord.Coordinate) int
}

// Positioner resolves entity positions.
type Positioner interface {
	Position(id entity.ID) (coord.Coordinate, bool)
}

type spotClaim struct {
	stockpile entity.ID
	spot      coord.Coordinate
}

type spaceClaim struct {
	container entity.ID
	bulk      int
}

// Job is an ordered sequence of Tasks. The agent executing it may rewrite
// or prepend tasks; everything else goes through methods.
type Job struct {
	ID    string
	Name  string
	Kind  Kind
	Tasks []Task
	// Internal jobs live only on an agent's queue and are never reported back.
	Internal bool
	// StatusEffects are applied to the agent when it starts the job.
	StatusEffects []effect.Type

	priority          Priority
	zone              int
	completion        Completion
	parent            *Job
	preReqs           []*Job
	npc               int
	menial            bool
	paused            bool
	waitingForRemoval bool
	attempts          int
	attemptMax        int

	ledger   Ledger
	reserved []entity.ID
	spot     *spotClaim
	space    *spaceClaim

	connected entity.ID
	tool      entity.Category
	toolTasks int
	toolItem  entity.ID
	marker    GroundMarker
	marked    coord.Coordinate

	obeyTerritory bool
	fireAllowed   bool
}

// New creates a job with the standard defaults: five attempts, unassigned,
// territory obeyed, menial.
func New(name string, p Priority) *Job {
	return &Job{
		ID:            uuid.NewString(),
		Name:          name,
		priority:      p,
		npc:           -1,
		menial:        true,
		attemptMax:    DefaultAttemptMax,
		connected:     entity.None,
		tool:          entity.NoCategory,
		toolItem:      entity.None,
		marked:        coord.Undefined,
		obeyTerritory: true,
	}
}

// NewInternal creates a job that only ever lives on one agent's queue.
func NewInternal(name string, p Priority, kind Kind) *Job {
	j := New(name, p)
	j.Internal = true
	j.Kind = kind
	return j
}

// Add appends tasks and returns the job for chaining.
func (j *Job) Add(tasks ...Task) *Job {
	j.Tasks = append(j.Tasks, tasks...)
	return j
}

// Priority returns the tier the job is offered in.
func (j *Job) Priority() Priority { return j.priority }

// SetPriority moves the job to another tier.
func (j *Job) SetPriority(p Priority) { j.priority = p }

// Zone returns the zone key.
func (j *Job) Zone() int { return j.zone }

// SetZone sets the zone key.
func (j *Job) SetZone(z int) { j.zone = z }

// Menial reports whether menial agents (rather than experts) take this job.
func (j *Job) Menial() bool { return j.menial }

// SetMenial sets who may take the job.
func (j *Job) SetMenial(m bool) { j.menial = m }

// Completion returns the terminal state.
func (j *Job) Completion() Completion { return j.completion }

// Completed reports whether the job finished successfully.
func (j *Job) Completed() bool { return j.completion == Success }

// Finished reports whether the job reached either terminal state.
func (j *Job) Finished() bool { return j.completion != Ongoing }

// Complete marks success and releases every reservation. A second call is a no-op.
func (j *Job) Complete() {
	if j.completion != Ongoing {
		return
	}
	j.completion = Success
	j.UnreserveAll()
}

// Fail marks failure, fails the parent, drops prerequisites, flags the job
// for removal and releases every reservation. A second call is a no-op.
func (j *Job) Fail() {
	if j.completion != Ongoing {
		return
	}
	j.completion = Failure
	if j.parent != nil {
		j.parent.Fail()
	}
	j.preReqs = nil
	j.Remove()
}

// Remove flags the job for removal and releases its reservations.
func (j *Job) Remove() {
	j.waitingForRemoval = true
	j.UnreserveAll()
}

// Removable reports whether the job is flagged and no prerequisite is still pending.
func (j *Job) Removable() bool {
	return j.waitingForRemoval && j.PreReqsCompleted()
}

// Paused reports whether the job is held back from matching.
func (j *Job) Paused() bool { return j.paused }

// SetPaused holds or releases the job.
func (j *Job) SetPaused(p bool) { j.paused = p }

// AddPreReq makes pre a prerequisite of j and j its parent.
func (j *Job) AddPreReq(pre *Job) {
	j.preReqs = append(j.preReqs, pre)
	pre.parent = j
}

// PreReqs returns the prerequisites.
func (j *Job) PreReqs() []*Job { return slices.Clone(j.preReqs) }

// Parent returns the job this one is a prerequisite of.
func (j *Job) Parent() *Job { return j.parent }

// SetParent links j under p without registering it as a prerequisite.
func (j *Job) SetParent(p *Job) { j.parent = p }

// PreReqsCompleted reports whether every prerequisite reached a terminal state.
func (j *Job) PreReqsCompleted() bool {
	for _, pre := range j.preReqs {
		if !pre.Finished() {
			return false
		}
	}
	return true
}

// ParentCompleted reports whether the parent finished. A job without a
// parent has nothing to wait for.
func (j *Job) ParentCompleted() bool {
	if j.parent == nil {
		return true
	}
	return j.parent.Finished()
}

// Assign records the agent holding the job, -1 for none.
func (j *Job) Assign(npc int) { j.npc = npc }

// Assigned returns the agent holding the job, -1 for none.
func (j *Job) Assigned() int { return j.npc }

// Attempts returns how many attempts were consumed.
func (j *Job) Attempts() int { return j.attempts }

// SetAttemptMax overrides the attempt limit.
func (j *Job) SetAttemptMax(n int) { j.attemptMax = n }

// AttemptMax returns the attempt limit.
func (j *Job) AttemptMax() int { return j.attemptMax }

// Attempt consumes one attempt and reports whether the job may still run.
func (j *Job) Attempt() bool {
	j.attempts++
	return j.attempts <= j.attemptMax
}

// ReserveEntity claims id for this job. It fails when the entity is gone
// or already claimed.
func (j *Job) ReserveEntity(l Ledger, id entity.ID) bool {
	if !l.Reserve(id) {
		return false
	}
	j.ledger = l
	j.reserved = append(j.reserved, id)
	return true
}

// ReservedEntities returns the claimed entity IDs.
func (j *Job) ReservedEntities() []entity.ID { return slices.Clone(j.reserved) }

// ReleaseEntity releases one claimed entity.
func (j *Job) ReleaseEntity(id entity.ID) {
	i := slices.Index(j.reserved, id)
	if i < 0 {
		return
	}
	j.reserved = slices.Delete(j.reserved, i, i+1)
	j.ledger.Release(id)
}

// UnreserveEntities releases every claimed entity.
func (j *Job) UnreserveEntities() {
	for len(j.reserved) > 0 {
		id := j.reserved[0]
		j.reserved = j.reserved[1:]
		j.ledger.Release(id)
	}
	j.reserved = nil
	j.toolItem = entity.None
}

// ReserveSpot claims a stockpile spot for an item of category c, replacing
// any previous spot claim.
func (j *Job) ReserveSpot(l Ledger, stockpile entity.ID, spot coord.Coordinate, c entity.Category) bool {
	if !l.ReserveSpot(stockpile, spot, c) {
		return false
	}
	j.UnreserveSpot()
	j.ledger = l
	j.spot = &spotClaim{stockpile: stockpile, spot: spot}
	return true
}

// ReservedSpot returns the claimed stockpile spot.
func (j *Job) ReservedSpot() (entity.ID, coord.Coordinate, bool) {
	if j.spot == nil {
		return entity.None, coord.Undefined, false
	}
	return j.spot.stockpile, j.spot.spot, true
}

// UnreserveSpot releases the stockpile spot claim.
func (j *Job) UnreserveSpot() {
	if j.spot == nil {
		return
	}
	claim := j.spot
	j.spot = nil
	j.ledger.ReleaseSpot(claim.stockpile, claim.spot)
}

// ReserveSpace promises bulk units of a container to this job.
func (j *Job) ReserveSpace(l Ledger, container entity.ID, bulk int) bool {
	if !l.ReserveSpace(container, bulk) {
		return false
	}
	j.UnreserveSpace()
	j.ledger = l
	j.space = &spaceClaim{container: container, bulk: bulk}
	return true
}

// ReservedSpace returns the claimed container and bulk.
func (j *Job) ReservedSpace() (entity.ID, int, bool) {
	if j.space == nil {
		return entity.None, 0, false
	}
	return j.space.container, j.space.bulk, true
}

// UnreserveSpace releases the container space claim.
func (j *Job) UnreserveSpace() {
	if j.space == nil {
		return
	}
	claim := j.space
	j.space = nil
	j.ledger.ReleaseSpace(claim.container, claim.bulk)
}

// MarkGround designates c for this job until it is released.
func (j *Job) MarkGround(m GroundMarker, c coord.Coordinate) {
	j.unmarkGround()
	m.MarkGround(c)
	j.marker = m
	j.marked = c
}

func (j *Job) unmarkGround() {
	if j.marker == nil {
		return
	}
	m, c := j.marker, j.marked
	j.marker, j.marked = nil, coord.Undefined
	m.UnmarkGround(c)
}

// UnreserveAll releases every claim held by the job exactly once.
func (j *Job) UnreserveAll() {
	if j.ledger != nil {
		j.UnreserveEntities()
		j.UnreserveSpot()
		j.UnreserveSpace()
	}
	j.unmarkGround()
}

// HoldsReservations reports whether any claim is outstanding.
func (j *Job) HoldsReservations() bool {
	return len(j.reserved) > 0 || j.spot != nil || j.space != nil || j.marker != nil
}

// ConnectToEntity records the entity this job serves, e.g. a construction.
func (j *Job) ConnectToEntity(id entity.ID) { j.connected = id }

// ConnectedEntity returns the entity this job serves.
func (j *Job) ConnectedEntity() entity.ID { return j.connected }

// PrependToolTasks puts tasks that fetch the required tool in front of the
// job's own tasks. Tool tasks left by an earlier holder are stripped first.
func (j *Job) PrependToolTasks(tasks ...Task) {
	j.StripToolTasks()
	j.Tasks = append(slices.Clone(tasks), j.Tasks...)
	j.toolTasks = len(tasks)
}

// ToolTasks returns how many tool-fetching tasks lead the job.
func (j *Job) ToolTasks() int { return j.toolTasks }

// ReserveTool claims the tool found for this job. It is released with the
// tool tasks.
func (j *Job) ReserveTool(l Ledger, id entity.ID) bool {
	if j.toolItem != entity.None {
		j.ReleaseEntity(j.toolItem)
	}
	if !j.ReserveEntity(l, id) {
		return false
	}
	j.toolItem = id
	return true
}

// StripToolTasks removes the tool-fetching tasks and releases the tool
// claim, leaving the job as it was offered. It returns how many tasks went.
func (j *Job) StripToolTasks() int {
	n := min(j.toolTasks, len(j.Tasks))
	j.Tasks = j.Tasks[n:]
	j.toolTasks = 0
	if j.toolItem != entity.None {
		j.ReleaseEntity(j.toolItem)
		j.toolItem = entity.None
	}
	return n
}

// RequiresTool reports whether a tool must be wielded.
func (j *Job) RequiresTool() bool { return j.tool != entity.NoCategory }

// SetRequiredTool sets the tool category, NoCategory to clear.
func (j *Job) SetRequiredTool(c entity.Category) { j.tool = c }

// RequiredTool returns the tool category.
func (j *Job) RequiredTool() entity.Category { return j.tool }

// DisregardTerritory lets the job's tasks leave the territory.
func (j *Job) DisregardTerritory() { j.obeyTerritory = false }

// ObeysTerritory reports whether territory checks apply.
func (j *Job) ObeysTerritory() bool { return j.obeyTerritory }

// AllowFire lets the job target burning tiles.
func (j *Job) AllowFire() { j.fireAllowed = true }

// FireAllowed reports whether burning targets are acceptable.
func (j *Job) FireAllowed() bool { return j.fireAllowed }

// taskPosition is a task's target, falling back to its entity's position.
func taskPosition(t Task, m Territory, p Positioner) (coord.Coordinate, bool) {
	c := t.Target
	if !m.IsInside(c) && t.Entity != entity.None && p != nil {
		if pos, ok := p.Position(t.Entity); ok {
			c = pos
		}
	}
	return c, m.IsInside(c)
}

// OutsideTerritory reports whether a territory-bound job targets a tile
// outside the territory.
func (j *Job) OutsideTerritory(m Territory, p Positioner) bool {
	if !j.obeyTerritory {
		return false
	}
	for _, t := range j.Tasks {
		if c, ok := taskPosition(t, m, p); ok && !m.IsTerritory(c) {
			return true
		}
	}
	return false
}

// InvalidFireAllowance reports whether a job that may not touch fire
// targets a burning tile.
func (j *Job) InvalidFireAllowance(m Territory, p Positioner) bool {
	if j.fireAllowed {
		return false
	}
	for _, t := range j.Tasks {
		if c, ok := taskPosition(t, m, p); ok && m.Fire(c) > 0 {
			return true
		}
	}
	return false
}

// FirstTarget is the first defined task target, used for distance estimates.
func (j *Job) FirstTarget(p Positioner) coord.Coordinate {
	for _, t := range j.Tasks {
		if !t.Target.IsUndefined() {
			return t.Target
		}
		if t.Entity != entity.None && p != nil {
			if pos, ok := p.Position(t.Entity); ok {
				return pos
			}
		}
	}
	return coord.Undefined
}
