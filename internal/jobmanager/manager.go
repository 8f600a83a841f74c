// Package jobmanager holds the colony's shared work pool: priority tiers of
// available jobs, a waiting list of jobs held back for prerequisites or
// retry, and the set of agents idle for work. All methods run on the
// simulation tick; the manager is not safe for concurrent use.
package jobmanager

import (
	"fmt"
	"slices"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/aristath/colony/internal/coord"
	"github.com/aristath/colony/internal/entity"
	"github.com/aristath/colony/internal/events"
	"github.com/aristath/colony/internal/job"
)

// Worker is the view of an agent the manager matches jobs against.
type Worker interface {
	ID() int
	Expert() bool
	Position() coord.Coordinate
	// HasTool reports whether the agent already wields an item of c.
	HasTool(c entity.Category) bool
	StartJob(j *job.Job)
}

// Roster resolves agent ids.
type Roster interface {
	Worker(id int) (Worker, bool)
}

// StockChecker answers how many unreserved items of a category are in stock.
type StockChecker interface {
	Available(c entity.Category) int
}

// State is where a job sits in the manager.
type State int

const (
	StateRemoved State = iota
	StateAvailable
	StateAssigned
	StateWaiting
)

func (s State) String() string {
	switch s {
	case StateAvailable:
		return "available"
	case StateAssigned:
		return "assigned"
	case StateWaiting:
		return "waiting"
	}
	return "removed"
}

// BackoffConfig controls how long a cancelled job waits before it is
// offered again. Intervals are in ticks.
type BackoffConfig struct {
	InitialTicks        int     // First delay (default 25)
	MaxTicks            int     // Delay ceiling (default 750)
	Multiplier          float64 // Growth per cancellation (default 2.0)
	RandomizationFactor float64 // Jitter (default 0.3)
}

// DefaultBackoffConfig returns the re-offer delays used when none are configured.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		InitialTicks:        25,
		MaxTicks:            750,
		Multiplier:          2.0,
		RandomizationFactor: 0.3,
	}
}

// Config configures a Manager.
type Config struct {
	Roster    Roster           // Required for GetJob, NPCWaiting and AssignJobs
	Stock     StockChecker     // Optional (nil treats every tool as obtainable)
	Positions job.Positioner   // Optional, resolves entity targets for distance costs
	Bus       *events.EventBus // Optional (nil disables events)
	Logger    *zap.Logger      // Optional (nil disables logging)
	Backoff   BackoffConfig
}

type waitEntry struct {
	job     *job.Job
	retryAt int64
}

// Board is a point-in-time summary of the manager.
type Board struct {
	Tick      int64                  `json:"tick"`
	Tiers     [job.PriorityCount]int `json:"tiers"`
	Waiting   int                    `json:"waiting"`
	Assigned  int                    `json:"assigned"`
	Idle      int                    `json:"idle"`
	Completed int                    `json:"completed"`
	Failed    int                    `json:"failed"`
}

// Manager is the shared job pool.
type Manager struct {
	cfg    Config
	logger *zap.Logger

	available [job.PriorityCount][]*job.Job
	waiting   []waitEntry
	assigned  map[*job.Job]int
	state     map[*job.Job]State
	toolJobs  map[entity.Category][]*job.Job
	retries   map[*job.Job]*backoff.ExponentialBackOff

	menialWaiting []int
	expertWaiting []int

	tick      int64
	completed int
	failed    int
}

// New creates an empty manager.
func New(cfg Config) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	def := DefaultBackoffConfig()
	if cfg.Backoff.InitialTicks <= 0 {
		cfg.Backoff.InitialTicks = def.InitialTicks
	}
	if cfg.Backoff.MaxTicks <= 0 {
		cfg.Backoff.MaxTicks = def.MaxTicks
	}
	if cfg.Backoff.Multiplier <= 1 {
		cfg.Backoff.Multiplier = def.Multiplier
	}
	if cfg.Backoff.RandomizationFactor < 0 {
		cfg.Backoff.RandomizationFactor = 0
	}
	m := &Manager{cfg: cfg, logger: cfg.Logger}
	m.Reset()
	return m
}

// Reset discards every job and waiting agent.
func (m *Manager) Reset() {
	m.available = [job.PriorityCount][]*job.Job{}
	m.waiting = nil
	m.assigned = make(map[*job.Job]int)
	m.state = make(map[*job.Job]State)
	m.toolJobs = make(map[entity.Category][]*job.Job)
	m.retries = make(map[*job.Job]*backoff.ExponentialBackOff)
	m.menialWaiting = nil
	m.expertWaiting = nil
	m.completed = 0
	m.failed = 0
}

// Tick returns the number of Update calls since creation.
func (m *Manager) Tick() int64 { return m.tick }

// State reports where j currently sits.
func (m *Manager) State(j *job.Job) State { return m.state[j] }

// AddJob offers j to agents. A job with unfinished prerequisites is paused
// on the waiting list until they finish. Internal jobs are ignored.
func (m *Manager) AddJob(j *job.Job) {
	if j == nil || j.Internal || m.state[j] != StateRemoved {
		return
	}
	if j.Finished() || j.Removable() {
		return
	}
	waiting := !j.PreReqsCompleted()
	if waiting {
		j.SetPaused(true)
		m.pushWaiting(j, 0)
	} else {
		j.SetPaused(false)
		m.pushAvailable(j)
	}
	m.logger.Debug("job added",
		zap.String("job", j.Name),
		zap.Stringer("priority", j.Priority()),
		zap.Bool("waiting", waiting))
	m.publish(events.TopicJob, events.JobAddedEvent{
		ID:        j.ID,
		Name:      j.Name,
		Priority:  j.Priority().String(),
		Waiting:   waiting,
		Timestamp: time.Now(),
	})
}

// AddJobs adds a batch of linked jobs, prerequisites first. Prerequisites
// reachable from jobs are added too. Returns job.ErrCycle when the links loop.
func (m *Manager) AddJobs(jobs ...*job.Job) error {
	order, err := job.ValidateGraph(jobs)
	if err != nil {
		return fmt.Errorf("adding %d jobs: %w", len(jobs), err)
	}
	for _, j := range order {
		m.AddJob(j)
	}
	return nil
}

// CancelJob takes j back from the agent abandoning it. One attempt is
// consumed: a job with attempts left waits out a back-off on the waiting
// list, an exhausted job fails and is dropped.
func (m *Manager) CancelJob(j *job.Job, msg string, result job.TaskResult) {
	if j == nil || j.Internal {
		return
	}
	npc := j.Assigned()
	m.detach(j)
	j.Assign(-1)

	if j.Finished() || j.Removable() {
		m.drop(j)
		return
	}

	if !j.Attempt() {
		j.Fail()
		m.drop(j)
		m.failed++
		m.logger.Info("job failed",
			zap.String("job", j.Name),
			zap.String("reason", msg),
			zap.Stringer("result", result),
			zap.Int("attempts", j.Attempts()))
		if j.Priority() < job.Low {
			m.announce(fmt.Sprintf("%s canceled: %s", j.Name, msg))
		}
		m.publish(events.TopicJob, events.JobFailedEvent{
			ID:        j.ID,
			Name:      j.Name,
			Reason:    msg,
			Attempts:  j.Attempts(),
			Timestamp: time.Now(),
		})
		return
	}

	delay := m.retryDelay(j)
	j.SetPaused(true)
	m.pushWaiting(j, m.tick+delay)
	m.logger.Debug("job cancelled",
		zap.String("job", j.Name),
		zap.Int("npc", npc),
		zap.String("reason", msg),
		zap.Stringer("result", result),
		zap.Int64("retry_after", delay))
	m.publish(events.TopicJob, events.JobCancelledEvent{
		ID:         j.ID,
		Name:       j.Name,
		NPC:        npc,
		Reason:     msg,
		Attempts:   j.Attempts(),
		RetryAfter: int(delay),
		Timestamp:  time.Now(),
	})
}

// retryDelay returns the next back-off for j in ticks, at least one.
func (m *Manager) retryDelay(j *job.Job) int64 {
	b, ok := m.retries[j]
	if !ok {
		b = backoff.NewExponentialBackOff()
		b.InitialInterval = time.Duration(m.cfg.Backoff.InitialTicks)
		b.MaxInterval = time.Duration(m.cfg.Backoff.MaxTicks)
		b.Multiplier = m.cfg.Backoff.Multiplier
		b.RandomizationFactor = m.cfg.Backoff.RandomizationFactor
		b.MaxElapsedTime = 0
		b.Reset()
		m.retries[j] = b
	}
	next := b.NextBackOff()
	if next == backoff.Stop || next < 1 {
		next = 1
	}
	return int64(next)
}

// RemoveJob drops j wherever it sits and flags it for removal.
func (m *Manager) RemoveJob(j *job.Job) {
	if j == nil {
		return
	}
	j.Remove()
	if m.state[j] == StateRemoved {
		return
	}
	m.detach(j)
	m.drop(j)
}

// RemoveJobAt removes every available or waiting job with a task of
// action a targeting c. It can remove more than the caller meant; use it
// only where that is acceptable. Returns the number removed.
func (m *Manager) RemoveJobAt(a job.Action, c coord.Coordinate) int {
	var victims []*job.Job
	match := func(j *job.Job) {
		for _, t := range j.Tasks {
			if t.Action == a && t.Target == c {
				victims = append(victims, j)
				return
			}
		}
	}
	for _, tier := range m.available {
		for _, j := range tier {
			match(j)
		}
	}
	for _, w := range m.waiting {
		match(w.job)
	}
	for _, j := range victims {
		m.RemoveJob(j)
	}
	return len(victims)
}

// GetJob hands the first eligible job to agent id: tiers most urgent
// first, FIFO within a tier. The job leaves the available pool. With no
// eligible job the agent is registered as waiting and nil is returned.
func (m *Manager) GetJob(id int) *job.Job {
	w, ok := m.worker(id)
	if !ok {
		return nil
	}
	for p := range m.available {
		for _, j := range m.available[p] {
			if m.eligible(j, w) {
				m.take(j, id)
				return j
			}
		}
	}
	m.NPCWaiting(id)
	return nil
}

// eligible reports whether w may take j now.
func (m *Manager) eligible(j *job.Job, w Worker) bool {
	if j.Menial() == w.Expert() {
		return false
	}
	if j.Paused() || j.Removable() || j.Finished() || !j.PreReqsCompleted() {
		return false
	}
	if j.RequiresTool() && !w.HasTool(j.RequiredTool()) && !m.toolInStock(j.RequiredTool()) {
		return false
	}
	return true
}

func (m *Manager) toolInStock(c entity.Category) bool {
	return m.cfg.Stock == nil || m.cfg.Stock.Available(c) > 0
}

// take moves j from the available pool to agent id.
func (m *Manager) take(j *job.Job, id int) {
	m.detach(j)
	j.Assign(id)
	m.assigned[j] = id
	m.state[j] = StateAssigned
	m.NPCNotWaiting(id)
	m.publish(events.TopicJob, events.JobAssignedEvent{
		ID:        j.ID,
		Name:      j.Name,
		NPC:       id,
		Timestamp: time.Now(),
	})
}

// NPCWaiting registers agent id as idle for work.
func (m *Manager) NPCWaiting(id int) {
	w, ok := m.worker(id)
	if !ok {
		return
	}
	if w.Expert() {
		if !slices.Contains(m.expertWaiting, id) {
			m.expertWaiting = append(m.expertWaiting, id)
		}
		return
	}
	if !slices.Contains(m.menialWaiting, id) {
		m.menialWaiting = append(m.menialWaiting, id)
	}
}

// NPCNotWaiting removes agent id from the idle sets.
func (m *Manager) NPCNotWaiting(id int) {
	m.menialWaiting = slices.DeleteFunc(m.menialWaiting, func(x int) bool { return x == id })
	m.expertWaiting = slices.DeleteFunc(m.expertWaiting, func(x int) bool { return x == id })
}

// ClearWaitingNpcs empties the idle sets.
func (m *Manager) ClearWaitingNpcs() {
	m.menialWaiting = nil
	m.expertWaiting = nil
}

// WaitingNPCs returns the idle agents, menial first, in registration order.
func (m *Manager) WaitingNPCs() []int {
	return append(slices.Clone(m.menialWaiting), m.expertWaiting...)
}

// AssignJobs pairs idle agents with available jobs, tier by tier, choosing
// the pairing with the least total walking distance. Matched agents start
// their job immediately.
func (m *Manager) AssignJobs() {
	type pair struct {
		w Worker
		j *job.Job
	}
	var pairs []pair
	taken := make(map[int]bool)

	for p := range m.available {
		for _, expert := range []bool{false, true} {
			ids := m.menialWaiting
			if expert {
				ids = m.expertWaiting
			}
			var workers []Worker
			for _, id := range ids {
				if taken[id] {
					continue
				}
				if w, ok := m.worker(id); ok {
					workers = append(workers, w)
				}
			}
			if len(workers) == 0 {
				continue
			}
			var jobs []*job.Job
			for _, j := range m.available[p] {
				if j.Menial() != expert {
					jobs = append(jobs, j)
				}
			}
			if len(jobs) == 0 {
				continue
			}

			cost := make([][]int, len(workers))
			for i, w := range workers {
				cost[i] = make([]int, len(jobs))
				for k, j := range jobs {
					cost[i][k] = m.cost(w, j)
				}
			}
			for i, k := range minCostMatching(cost) {
				if k < 0 {
					continue
				}
				pairs = append(pairs, pair{workers[i], jobs[k]})
				taken[workers[i].ID()] = true
			}
		}
	}

	for _, pr := range pairs {
		if m.state[pr.j] != StateAvailable {
			continue
		}
		m.take(pr.j, pr.w.ID())
		m.logger.Debug("job assigned",
			zap.String("job", pr.j.Name),
			zap.Int("npc", pr.w.ID()))
		pr.w.StartJob(pr.j)
	}
}

// cost is the walking distance from w to j, or forbidden when w may not take j.
func (m *Manager) cost(w Worker, j *job.Job) int {
	if !m.eligible(j, w) {
		return forbidden
	}
	target := j.FirstTarget(m.cfg.Positions)
	if target.IsUndefined() {
		return 0
	}
	return w.Position().Distance(target)
}

// Update advances the manager one tick: removable jobs are dropped,
// waiting jobs whose prerequisites finished and whose back-off expired
// are offered again, and available jobs whose tool left stock go back to
// waiting.
func (m *Manager) Update() {
	m.tick++

	kept := m.waiting[:0]
	var ready []*job.Job
	for _, w := range m.waiting {
		j := w.job
		switch {
		case j.Removable() || j.Finished():
			delete(m.state, j)
			delete(m.retries, j)
			m.publishRemoved(j)
		case j.PreReqsCompleted() && m.tick >= w.retryAt &&
			(!j.RequiresTool() || m.toolInStock(j.RequiredTool())):
			ready = append(ready, j)
		default:
			kept = append(kept, w)
		}
	}
	clear(m.waiting[len(kept):])
	m.waiting = kept
	for _, j := range ready {
		j.SetPaused(false)
		delete(m.state, j)
		m.pushAvailable(j)
	}

	for p := range m.available {
		for _, j := range slices.Clone(m.available[p]) {
			if j.Removable() || j.Finished() {
				m.detach(j)
				m.drop(j)
			}
		}
	}

	for c, jobs := range m.toolJobs {
		if m.toolInStock(c) {
			continue
		}
		for _, j := range slices.Clone(jobs) {
			m.detach(j)
			j.SetPaused(true)
			m.pushWaiting(j, m.tick+1)
		}
	}

	for j := range m.assigned {
		switch {
		case j.Completed():
			delete(m.assigned, j)
			delete(m.state, j)
			delete(m.retries, j)
			m.completed++
			m.publish(events.TopicJob, events.JobCompletedEvent{
				ID:        j.ID,
				Name:      j.Name,
				NPC:       j.Assigned(),
				Timestamp: time.Now(),
			})
		case j.Finished() || j.Removable():
			delete(m.assigned, j)
			m.drop(j)
		}
	}
}

// JobAmount returns the number of available and waiting jobs.
func (m *Manager) JobAmount() int {
	n := len(m.waiting)
	for _, tier := range m.available {
		n += len(tier)
	}
	return n
}

// GetJobByListIndex indexes the available tiers most urgent first, then
// the waiting list. Returns nil when out of range.
func (m *Manager) GetJobByListIndex(i int) *job.Job {
	if i < 0 {
		return nil
	}
	for _, tier := range m.available {
		if i < len(tier) {
			return tier[i]
		}
		i -= len(tier)
	}
	if i < len(m.waiting) {
		return m.waiting[i].job
	}
	return nil
}

// Snapshot summarises the manager.
func (m *Manager) Snapshot() Board {
	b := Board{
		Tick:      m.tick,
		Waiting:   len(m.waiting),
		Assigned:  len(m.assigned),
		Idle:      len(m.menialWaiting) + len(m.expertWaiting),
		Completed: m.completed,
		Failed:    m.failed,
	}
	for p, tier := range m.available {
		b.Tiers[p] = len(tier)
	}
	return b
}

func (m *Manager) worker(id int) (Worker, bool) {
	if m.cfg.Roster == nil {
		return nil, false
	}
	return m.cfg.Roster.Worker(id)
}

func (m *Manager) pushAvailable(j *job.Job) {
	p := min(max(j.Priority(), job.VeryHigh), job.Low)
	m.available[p] = append(m.available[p], j)
	m.state[j] = StateAvailable
	if j.RequiresTool() {
		c := j.RequiredTool()
		m.toolJobs[c] = append(m.toolJobs[c], j)
	}
}

func (m *Manager) pushWaiting(j *job.Job, retryAt int64) {
	m.waiting = append(m.waiting, waitEntry{job: j, retryAt: retryAt})
	m.state[j] = StateWaiting
}

// detach removes j from whichever collection holds it.
func (m *Manager) detach(j *job.Job) {
	switch m.state[j] {
	case StateAvailable:
		for p := range m.available {
			m.available[p] = slices.DeleteFunc(m.available[p], func(x *job.Job) bool { return x == j })
		}
		if j.RequiresTool() {
			c := j.RequiredTool()
			m.toolJobs[c] = slices.DeleteFunc(m.toolJobs[c], func(x *job.Job) bool { return x == j })
			if len(m.toolJobs[c]) == 0 {
				delete(m.toolJobs, c)
			}
		}
	case StateWaiting:
		m.waiting = slices.DeleteFunc(m.waiting, func(w waitEntry) bool { return w.job == j })
	case StateAssigned:
		delete(m.assigned, j)
	}
	delete(m.state, j)
}

// drop forgets a detached job.
func (m *Manager) drop(j *job.Job) {
	delete(m.state, j)
	delete(m.retries, j)
	m.publishRemoved(j)
}

func (m *Manager) publishRemoved(j *job.Job) {
	m.publish(events.TopicJob, events.JobRemovedEvent{ID: j.ID, Name: j.Name, Timestamp: time.Now()})
}

func (m *Manager) publish(topic string, e events.Event) {
	if m.cfg.Bus != nil {
		m.cfg.Bus.Publish(topic, e)
	}
}

func (m *Manager) announce(msg string) {
	if m.cfg.Bus != nil {
		m.cfg.Bus.Announce(msg)
	}
}
