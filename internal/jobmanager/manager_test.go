package jobmanager

import (
	"errors"
	"testing"
	"time"

	"github.com/aristath/colony/internal/coord"
	"github.com/aristath/colony/internal/entity"
	"github.com/aristath/colony/internal/events"
	"github.com/aristath/colony/internal/job"
)

type fakeWorker struct {
	id      int
	expert  bool
	pos     coord.Coordinate
	tools   map[entity.Category]bool
	started []*job.Job
}

func (w *fakeWorker) ID() int                        { return w.id }
func (w *fakeWorker) Expert() bool                   { return w.expert }
func (w *fakeWorker) Position() coord.Coordinate     { return w.pos }
func (w *fakeWorker) HasTool(c entity.Category) bool { return w.tools[c] }
func (w *fakeWorker) StartJob(j *job.Job)            { w.started = append(w.started, j) }

type fakeRoster map[int]*fakeWorker

func (r fakeRoster) Worker(id int) (Worker, bool) {
	w, ok := r[id]
	if !ok {
		return nil, false
	}
	return w, true
}

func (r fakeRoster) add(w *fakeWorker) *fakeWorker {
	r[w.id] = w
	return w
}

type fakeStock map[entity.Category]int

func (s fakeStock) Available(c entity.Category) int { return s[c] }

func newTestManager(roster fakeRoster, stock StockChecker) *Manager {
	return New(Config{
		Roster:  roster,
		Stock:   stock,
		Backoff: BackoffConfig{InitialTicks: 4, MaxTicks: 64, Multiplier: 2},
	})
}

func moveJob(name string, p job.Priority, target coord.Coordinate) *job.Job {
	return job.New(name, p).Add(job.At(job.Move, target))
}

// TestGetJobHighBeforeLow verifies tiers are served most urgent first and
// an assigned job leaves the pool.
func TestGetJobHighBeforeLow(t *testing.T) {
	roster := fakeRoster{}
	roster.add(&fakeWorker{id: 1})
	roster.add(&fakeWorker{id: 2})
	m := newTestManager(roster, nil)

	low := moveJob("Haul log", job.Low, coord.Pt(1, 1))
	high := moveJob("Build wall", job.High, coord.Pt(2, 2))
	m.AddJob(low)
	m.AddJob(high)

	if got := m.GetJob(1); got != high {
		t.Fatalf("first GetJob = %v, want the high priority job", got)
	}
	if got := m.GetJob(2); got != low {
		t.Fatalf("second GetJob = %v, want the low priority job", got)
	}
	if high.Assigned() != 1 || low.Assigned() != 2 {
		t.Errorf("assignments = %d/%d, want 1/2", high.Assigned(), low.Assigned())
	}
	if m.GetJob(1) != nil {
		t.Error("assigned jobs must not be offered again")
	}
	if got := m.WaitingNPCs(); len(got) != 1 || got[0] != 1 {
		t.Errorf("WaitingNPCs = %v, want [1]", got)
	}
}

// TestGetJobFIFOWithinTier verifies equal priority jobs come out in insertion order.
func TestGetJobFIFOWithinTier(t *testing.T) {
	roster := fakeRoster{}
	roster.add(&fakeWorker{id: 1})
	m := newTestManager(roster, nil)

	first := moveJob("first", job.Med, coord.Pt(1, 1))
	second := moveJob("second", job.Med, coord.Pt(1, 1))
	m.AddJob(first)
	m.AddJob(second)

	if got := m.GetJob(1); got != first {
		t.Errorf("GetJob = %s, want first", got.Name)
	}
}

// TestGetJobEligibility verifies only jobs the agent can take right now are returned.
func TestGetJobEligibility(t *testing.T) {
	axe := entity.NewRegistry().MustCategory(entity.CatAxe)

	tests := []struct {
		name   string
		worker *fakeWorker
		stock  fakeStock
		setup  func() *job.Job
		want   bool
	}{
		{
			name:   "menial job for menial worker",
			worker: &fakeWorker{id: 1},
			setup:  func() *job.Job { return moveJob("dig", job.Med, coord.Pt(1, 1)) },
			want:   true,
		},
		{
			name:   "menial job refused by expert",
			worker: &fakeWorker{id: 1, expert: true},
			setup:  func() *job.Job { return moveJob("dig", job.Med, coord.Pt(1, 1)) },
		},
		{
			name:   "expert job refused by menial worker",
			worker: &fakeWorker{id: 1},
			setup: func() *job.Job {
				j := moveJob("smith", job.Med, coord.Pt(1, 1))
				j.SetMenial(false)
				return j
			},
		},
		{
			name:   "expert job for expert",
			worker: &fakeWorker{id: 1, expert: true},
			setup: func() *job.Job {
				j := moveJob("smith", job.Med, coord.Pt(1, 1))
				j.SetMenial(false)
				return j
			},
			want: true,
		},
		{
			name:   "unfinished prerequisite",
			worker: &fakeWorker{id: 1},
			setup: func() *job.Job {
				j := moveJob("build", job.Med, coord.Pt(1, 1))
				j.AddPreReq(moveJob("haul", job.Med, coord.Pt(2, 2)))
				return j
			},
		},
		{
			name:   "tool out of stock",
			worker: &fakeWorker{id: 1},
			stock:  fakeStock{},
			setup: func() *job.Job {
				j := moveJob("fell", job.Med, coord.Pt(1, 1))
				j.SetRequiredTool(axe)
				return j
			},
		},
		{
			name:   "tool in stock",
			worker: &fakeWorker{id: 1},
			stock:  fakeStock{axe: 1},
			setup: func() *job.Job {
				j := moveJob("fell", job.Med, coord.Pt(1, 1))
				j.SetRequiredTool(axe)
				return j
			},
			want: true,
		},
		{
			name:   "tool already wielded",
			worker: &fakeWorker{id: 1, tools: map[entity.Category]bool{axe: true}},
			stock:  fakeStock{},
			setup: func() *job.Job {
				j := moveJob("fell", job.Med, coord.Pt(1, 1))
				j.SetRequiredTool(axe)
				return j
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roster := fakeRoster{}
			roster.add(tt.worker)
			var stock StockChecker
			if tt.stock != nil {
				stock = tt.stock
			}
			m := newTestManager(roster, stock)
			j := tt.setup()
			m.AddJob(j)

			got := m.GetJob(tt.worker.id)
			if (got == j) != tt.want {
				t.Fatalf("GetJob returned %v, want job offered = %v", got, tt.want)
			}
			if got != nil {
				if got.Menial() == tt.worker.expert {
					t.Error("returned job does not match the worker's skill")
				}
				if !got.PreReqsCompleted() {
					t.Error("returned job has unfinished prerequisites")
				}
			} else if len(m.WaitingNPCs()) != 1 {
				t.Error("an agent without work must be registered as waiting")
			}
		})
	}
}

// TestCancelJobBacksOff verifies a cancelled job waits out a growing delay
// before it is offered again.
func TestCancelJobBacksOff(t *testing.T) {
	roster := fakeRoster{}
	roster.add(&fakeWorker{id: 1})
	m := newTestManager(roster, nil)

	j := moveJob("Haul log", job.Med, coord.Pt(3, 3))
	m.AddJob(j)
	if m.GetJob(1) != j {
		t.Fatal("job should be assigned")
	}

	for round, delay := range []int{4, 8} {
		m.CancelJob(j, "no path", job.TaskFailFatal)
		if m.State(j) != StateWaiting {
			t.Fatalf("round %d: state = %s, want waiting", round, m.State(j))
		}
		if j.Assigned() != -1 {
			t.Errorf("round %d: cancelled job still assigned to %d", round, j.Assigned())
		}
		if j.Attempts() != round+1 {
			t.Errorf("round %d: attempts = %d", round, j.Attempts())
		}
		for i := 1; i < delay; i++ {
			m.Update()
			if m.State(j) != StateWaiting {
				t.Fatalf("round %d: re-offered after %d ticks, want %d", round, i, delay)
			}
		}
		m.Update()
		if m.State(j) != StateAvailable {
			t.Fatalf("round %d: state = %s after back-off, want available", round, m.State(j))
		}
		if j.Paused() {
			t.Errorf("round %d: re-offered job is still paused", round)
		}
		if m.GetJob(1) != j {
			t.Fatalf("round %d: job should be offered again", round)
		}
	}
}

// TestCancelJobExhaustsAttempts verifies the last failed attempt fails the
// job, drops it and announces it.
func TestCancelJobExhaustsAttempts(t *testing.T) {
	bus := events.NewEventBus()
	defer bus.Close()
	announcements := bus.Subscribe(events.TopicAnnounce, 4)
	jobEvents := bus.Subscribe(events.TopicJob, 16)

	roster := fakeRoster{}
	roster.add(&fakeWorker{id: 1})
	m := New(Config{Roster: roster, Bus: bus, Backoff: BackoffConfig{InitialTicks: 1}})

	j := moveJob("Build wall", job.High, coord.Pt(3, 3))
	j.SetAttemptMax(1)
	m.AddJob(j)

	m.GetJob(1)
	m.CancelJob(j, "blocked", job.TaskFailFatal)
	if m.State(j) != StateWaiting {
		t.Fatalf("first cancel: state = %s, want waiting", m.State(j))
	}
	m.Update()
	m.GetJob(1)
	m.CancelJob(j, "blocked", job.TaskFailFatal)

	if m.State(j) != StateRemoved {
		t.Errorf("state = %s, want removed", m.State(j))
	}
	if j.Completion() != job.Failure {
		t.Errorf("completion = %v, want failure", j.Completion())
	}
	if m.JobAmount() != 0 {
		t.Errorf("JobAmount = %d, want 0", m.JobAmount())
	}
	if m.Snapshot().Failed != 1 {
		t.Errorf("Failed = %d, want 1", m.Snapshot().Failed)
	}

	select {
	case e := <-announcements:
		if msg := e.(events.AnnouncementEvent).Message; msg != "Build wall canceled: blocked" {
			t.Errorf("announcement = %q", msg)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected an announcement")
	}

	var sawFailed bool
	for len(jobEvents) > 0 {
		if (<-jobEvents).EventType() == events.EventTypeJobFailed {
			sawFailed = true
		}
	}
	if !sawFailed {
		t.Error("expected a job failed event")
	}
}

// TestCancelLowPriorityIsQuiet verifies low priority failures are not announced.
func TestCancelLowPriorityIsQuiet(t *testing.T) {
	bus := events.NewEventBus()
	defer bus.Close()
	announcements := bus.Subscribe(events.TopicAnnounce, 4)

	m := New(Config{Roster: fakeRoster{}, Bus: bus})
	j := moveJob("Haul log", job.Low, coord.Pt(3, 3))
	j.SetAttemptMax(0)
	m.AddJob(j)
	m.CancelJob(j, "blocked", job.TaskFailNonFatal)

	select {
	case e := <-announcements:
		t.Errorf("unexpected announcement %v", e)
	case <-time.After(20 * time.Millisecond):
	}
}

// TestJobStateIsExclusive verifies a job sits in exactly one place through
// its lifecycle.
func TestJobStateIsExclusive(t *testing.T) {
	roster := fakeRoster{}
	roster.add(&fakeWorker{id: 1})
	m := newTestManager(roster, nil)
	j := moveJob("Dig", job.Med, coord.Pt(1, 1))

	count := func() (avail, waiting, assigned int) {
		b := m.Snapshot()
		for _, n := range b.Tiers {
			avail += n
		}
		return avail, b.Waiting, b.Assigned
	}
	check := func(step string, want State) {
		t.Helper()
		if m.State(j) != want {
			t.Fatalf("%s: state = %s, want %s", step, m.State(j), want)
		}
		a, w, s := count()
		if a+w+s > 1 {
			t.Fatalf("%s: job counted %d times", step, a+w+s)
		}
		var wantA, wantW, wantS int
		switch want {
		case StateAvailable:
			wantA = 1
		case StateWaiting:
			wantW = 1
		case StateAssigned:
			wantS = 1
		}
		if a != wantA || w != wantW || s != wantS {
			t.Fatalf("%s: counts available/waiting/assigned = %d/%d/%d", step, a, w, s)
		}
	}

	check("new", StateRemoved)
	m.AddJob(j)
	check("added", StateAvailable)
	m.AddJob(j)
	check("added twice", StateAvailable)
	m.GetJob(1)
	check("taken", StateAssigned)
	m.CancelJob(j, "interrupted", job.TaskOwnDone)
	check("cancelled", StateWaiting)
	for i := 0; i < 4; i++ {
		m.Update()
	}
	check("re-offered", StateAvailable)
	m.GetJob(1)
	check("taken again", StateAssigned)
	j.Complete()
	m.Update()
	check("completed", StateRemoved)
	if m.Snapshot().Completed != 1 {
		t.Errorf("Completed = %d, want 1", m.Snapshot().Completed)
	}
}

// TestAddJobsOrdersPrerequisites verifies a linked batch waits on its prerequisites.
func TestAddJobsOrdersPrerequisites(t *testing.T) {
	roster := fakeRoster{}
	roster.add(&fakeWorker{id: 1})
	m := newTestManager(roster, nil)

	haul := moveJob("Haul stone", job.Med, coord.Pt(2, 2))
	build := moveJob("Build wall", job.Med, coord.Pt(3, 3))
	build.AddPreReq(haul)

	if err := m.AddJobs(build); err != nil {
		t.Fatalf("AddJobs: %v", err)
	}
	if m.State(haul) != StateAvailable || m.State(build) != StateWaiting {
		t.Fatalf("states = %s/%s, want available/waiting", m.State(haul), m.State(build))
	}
	if m.GetJob(1) != haul {
		t.Fatal("the prerequisite should be offered first")
	}
	haul.Complete()
	m.Update()
	if m.State(build) != StateAvailable {
		t.Errorf("build state = %s after prerequisite finished, want available", m.State(build))
	}

	a := moveJob("a", job.Med, coord.Pt(1, 1))
	b := moveJob("b", job.Med, coord.Pt(1, 1))
	a.AddPreReq(b)
	b.AddPreReq(a)
	if err := m.AddJobs(a); !errors.Is(err, job.ErrCycle) {
		t.Errorf("AddJobs with a loop = %v, want ErrCycle", err)
	}
}

// TestFailedPrerequisiteDropsParent verifies a failing prerequisite takes its parent with it.
func TestFailedPrerequisiteDropsParent(t *testing.T) {
	m := newTestManager(fakeRoster{}, nil)
	haul := moveJob("Haul stone", job.Med, coord.Pt(2, 2))
	build := moveJob("Build wall", job.Med, coord.Pt(3, 3))
	build.AddPreReq(haul)
	if err := m.AddJobs(build); err != nil {
		t.Fatal(err)
	}

	haul.SetAttemptMax(0)
	m.CancelJob(haul, "no stone", job.TaskFailFatal)
	m.Update()

	if m.State(build) != StateRemoved {
		t.Errorf("parent state = %s, want removed", m.State(build))
	}
	if m.JobAmount() != 0 {
		t.Errorf("JobAmount = %d, want 0", m.JobAmount())
	}
}

// TestAssignJobsMinimisesDistance verifies idle agents get the pairing with
// the least total walking, not first come first served.
func TestAssignJobsMinimisesDistance(t *testing.T) {
	roster := fakeRoster{}
	west := roster.add(&fakeWorker{id: 1, pos: coord.Pt(0, 0)})
	east := roster.add(&fakeWorker{id: 2, pos: coord.Pt(10, 0)})
	m := newTestManager(roster, nil)

	far := moveJob("east job", job.Med, coord.Pt(9, 0))
	near := moveJob("west job", job.Med, coord.Pt(1, 0))
	m.AddJob(far)
	m.AddJob(near)
	m.NPCWaiting(1)
	m.NPCWaiting(2)

	m.AssignJobs()

	if len(west.started) != 1 || west.started[0] != near {
		t.Errorf("west worker started %v, want the west job", west.started)
	}
	if len(east.started) != 1 || east.started[0] != far {
		t.Errorf("east worker started %v, want the east job", east.started)
	}
	if len(m.WaitingNPCs()) != 0 {
		t.Errorf("matched agents still waiting: %v", m.WaitingNPCs())
	}
	if m.State(near) != StateAssigned || m.State(far) != StateAssigned {
		t.Error("matched jobs must be assigned")
	}
}

// TestAssignJobsRespectsTiersAndSkill verifies urgent tiers are matched first
// and experts never take menial work.
func TestAssignJobsRespectsTiersAndSkill(t *testing.T) {
	roster := fakeRoster{}
	menial := roster.add(&fakeWorker{id: 1, pos: coord.Pt(0, 0)})
	expert := roster.add(&fakeWorker{id: 2, expert: true, pos: coord.Pt(0, 0)})
	m := newTestManager(roster, nil)

	lowNear := moveJob("low near", job.Low, coord.Pt(1, 0))
	highFar := moveJob("high far", job.High, coord.Pt(20, 0))
	m.AddJob(lowNear)
	m.AddJob(highFar)
	m.NPCWaiting(1)
	m.NPCWaiting(2)

	m.AssignJobs()

	if len(menial.started) != 1 || menial.started[0] != highFar {
		t.Errorf("menial worker started %v, want the high priority job", menial.started)
	}
	if len(expert.started) != 0 {
		t.Errorf("expert took menial work: %v", expert.started)
	}
	if got := m.WaitingNPCs(); len(got) != 1 || got[0] != 2 {
		t.Errorf("WaitingNPCs = %v, want [2]", got)
	}
	if m.State(lowNear) != StateAvailable {
		t.Error("unmatched job must stay available")
	}
}

// TestRemoveJobAt verifies the coordinate sweep removes every matching job.
func TestRemoveJobAt(t *testing.T) {
	m := newTestManager(fakeRoster{}, nil)
	spot := coord.Pt(3, 3)

	digA := job.New("Dig", job.Med).Add(job.At(job.Dig, spot))
	digB := job.New("Dig again", job.Low).Add(job.At(job.MoveAdjacent, spot), job.At(job.Dig, spot))
	other := job.New("Dig elsewhere", job.Med).Add(job.At(job.Dig, coord.Pt(4, 4)))
	waiting := job.New("Dig later", job.Med).Add(job.At(job.Dig, spot))
	waiting.AddPreReq(job.New("prep", job.Med))
	for _, j := range []*job.Job{digA, digB, other, waiting} {
		m.AddJob(j)
	}

	if n := m.RemoveJobAt(job.Dig, spot); n != 3 {
		t.Errorf("RemoveJobAt removed %d, want 3", n)
	}
	if m.JobAmount() != 1 || m.GetJobByListIndex(0) != other {
		t.Errorf("remaining jobs = %d, want only the other dig", m.JobAmount())
	}
	if !digA.Removable() {
		t.Error("removed jobs are flagged for removal")
	}
}

// TestToolLeavingStockPausesJob verifies tool jobs wait while no tool is in stock.
func TestToolLeavingStockPausesJob(t *testing.T) {
	axe := entity.NewRegistry().MustCategory(entity.CatAxe)
	stock := fakeStock{axe: 1}
	m := newTestManager(fakeRoster{}, stock)

	j := moveJob("Fell tree", job.Med, coord.Pt(5, 5))
	j.SetRequiredTool(axe)
	m.AddJob(j)
	if m.State(j) != StateAvailable {
		t.Fatalf("state = %s, want available", m.State(j))
	}

	stock[axe] = 0
	m.Update()
	if m.State(j) != StateWaiting {
		t.Fatalf("state = %s with no axe in stock, want waiting", m.State(j))
	}
	m.Update()
	if m.State(j) != StateWaiting {
		t.Fatal("job must keep waiting while the tool is missing")
	}

	stock[axe] = 2
	m.Update()
	if m.State(j) != StateAvailable {
		t.Errorf("state = %s once an axe is back, want available", m.State(j))
	}
	if j.Attempts() != 0 {
		t.Errorf("waiting for a tool consumed %d attempts", j.Attempts())
	}
}

// TestGetJobByListIndex verifies indexing runs through the tiers then the waiting list.
func TestGetJobByListIndex(t *testing.T) {
	m := newTestManager(fakeRoster{}, nil)
	low := moveJob("low", job.Low, coord.Pt(1, 1))
	high := moveJob("high", job.High, coord.Pt(1, 1))
	blocked := moveJob("blocked", job.VeryHigh, coord.Pt(1, 1))
	blocked.AddPreReq(moveJob("prep", job.Med, coord.Pt(1, 1)))
	m.AddJob(low)
	m.AddJob(blocked)
	m.AddJob(high)

	want := []*job.Job{high, low, blocked, nil}
	for i, w := range want {
		if got := m.GetJobByListIndex(i); got != w {
			t.Errorf("index %d = %v, want %v", i, got, w)
		}
	}
	if m.GetJobByListIndex(-1) != nil {
		t.Error("negative index must be nil")
	}
	if m.JobAmount() != 3 {
		t.Errorf("JobAmount = %d, want 3", m.JobAmount())
	}

	m.Reset()
	if m.JobAmount() != 0 || m.State(low) != StateRemoved {
		t.Error("Reset must discard every job")
	}
}

// TestWaitingNPCSets verifies waiting set membership.
func TestWaitingNPCSets(t *testing.T) {
	roster := fakeRoster{}
	roster.add(&fakeWorker{id: 1})
	roster.add(&fakeWorker{id: 2, expert: true})
	m := newTestManager(roster, nil)

	m.NPCWaiting(2)
	m.NPCWaiting(1)
	m.NPCWaiting(1)
	m.NPCWaiting(99)
	if got := m.WaitingNPCs(); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("WaitingNPCs = %v, want [1 2]", got)
	}
	m.NPCNotWaiting(1)
	if got := m.WaitingNPCs(); len(got) != 1 || got[0] != 2 {
		t.Fatalf("WaitingNPCs = %v, want [2]", got)
	}
	m.ClearWaitingNpcs()
	if len(m.WaitingNPCs()) != 0 {
		t.Error("ClearWaitingNpcs left agents behind")
	}
}
