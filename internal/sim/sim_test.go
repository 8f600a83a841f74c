package sim

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/aristath/colony/internal/coord"
	"github.com/aristath/colony/internal/events"
	"github.com/aristath/colony/internal/faction"
	"github.com/aristath/colony/internal/job"
	"github.com/aristath/colony/internal/jobmanager"
	"github.com/aristath/colony/internal/tuning"
)

func newTestGame(t *testing.T, bus *events.EventBus) *Game {
	t.Helper()
	g := New(Config{Width: 16, Height: 16, Seed: 3, Bus: bus})
	t.Cleanup(g.Paths().Wait)
	return g
}

// step ticks the game and lets outstanding path searches land so the next
// tick sees them.
func step(g *Game, n int) {
	for range n {
		g.Tick()
		g.Paths().Wait()
	}
}

// TestColonistCompletesPooledJob verifies an idle colonist is matched with
// a pooled job, walks it and the job manager records the completion.
func TestColonistCompletesPooledJob(t *testing.T) {
	g := newTestGame(t, nil)
	n := g.AddColonist("Ann", coord.Pt(2, 2), false)
	target := coord.Pt(3, 12)
	j := job.New("Go south", job.Med).Add(job.At(job.Move, target))
	g.AddJob(j)

	for i := 0; i < 200 && g.Snapshot().Board.Completed == 0; i++ {
		step(g, 1)
	}
	if !j.Completed() {
		t.Fatalf("job not completed; npc status %+v", n.Status())
	}
	if n.Position() != target {
		t.Errorf("Position() = %v, want %v", n.Position(), target)
	}
	if got := g.Snapshot().Board.Completed; got != 1 {
		t.Errorf("board completed = %d, want 1", got)
	}
}

// TestRemoveNPCReturnsJob verifies removing a worker hands its job back.
func TestRemoveNPCReturnsJob(t *testing.T) {
	g := newTestGame(t, nil)
	n := g.AddColonist("Ann", coord.Pt(2, 2), false)
	j := job.New("Far walk", job.Med).Add(job.At(job.Move, coord.Pt(14, 14)))
	g.AddJob(j)

	for i := 0; i < 10 && j.Assigned() != n.ID(); i++ {
		step(g, 1)
	}
	if j.Assigned() != n.ID() {
		t.Fatal("job was never assigned")
	}

	if err := g.RemoveNPC(n.ID()); err != nil {
		t.Fatalf("RemoveNPC: %v", err)
	}
	if j.Assigned() != -1 || j.Finished() {
		t.Errorf("job assigned=%d finished=%v, want unassigned and open", j.Assigned(), j.Finished())
	}
	if st := g.Jobs().State(j); st == jobmanager.StateAssigned || st == jobmanager.StateRemoved {
		t.Errorf("job state = %v, want back in the pool", st)
	}
	if _, ok := g.NPC(n.ID()); ok {
		t.Error("removed npc still resolvable")
	}
	if err := g.RemoveNPC(n.ID()); !errors.Is(err, ErrUnknownNPC) {
		t.Errorf("second RemoveNPC error = %v, want ErrUnknownNPC", err)
	}
}

// TestSquadDraftsExperts verifies squads recruit expert colonists only and
// release them when disbanded.
func TestSquadDraftsExperts(t *testing.T) {
	g := newTestGame(t, nil)
	worker := g.AddColonist("Ann", coord.Pt(2, 2), false)
	soldier := g.AddColonist("Bob", coord.Pt(3, 3), true)

	s, err := g.CreateSquad("Guards", 2, job.High)
	if err != nil {
		t.Fatalf("CreateSquad: %v", err)
	}
	if _, err := g.CreateSquad("Guards", 1, job.Med); !errors.Is(err, ErrDuplicateSquad) {
		t.Errorf("duplicate CreateSquad error = %v, want ErrDuplicateSquad", err)
	}
	step(g, 1)

	if !s.IsMember(soldier.ID()) || !soldier.InSquad() {
		t.Error("expert was not drafted")
	}
	if s.IsMember(worker.ID()) || worker.InSquad() {
		t.Error("menial colonist was drafted")
	}

	if err := g.OrderSquad("Guards", faction.Command{Order: faction.Guard, Target: coord.Pt(8, 8), Entity: -1}); err != nil {
		t.Fatalf("OrderSquad: %v", err)
	}
	if snap := g.Snapshot(); len(snap.Squads) != 1 || snap.Squads[0].Order != "guard" {
		t.Errorf("squad snapshot = %+v, want one guarding squad", snap.Squads)
	}

	if err := g.DisbandSquad("Guards"); err != nil {
		t.Fatalf("DisbandSquad: %v", err)
	}
	if soldier.InSquad() {
		t.Error("soldier still in a squad after disband")
	}
	if err := g.OrderSquad("Guards", faction.Command{}); !errors.Is(err, ErrUnknownSquad) {
		t.Errorf("OrderSquad on disbanded squad error = %v, want ErrUnknownSquad", err)
	}
}

// TestEquipSquadRejectsUnknownCategory verifies category names are checked.
func TestEquipSquadRejectsUnknownCategory(t *testing.T) {
	g := newTestGame(t, nil)
	if _, err := g.CreateSquad("Archers", 2, job.Med); err != nil {
		t.Fatalf("CreateSquad: %v", err)
	}
	if err := g.EquipSquad("Archers", "No such thing", ""); !errors.Is(err, ErrUnknownCategory) {
		t.Errorf("EquipSquad error = %v, want ErrUnknownCategory", err)
	}
}

// TestDeadAgentsArePruned verifies the dead leave the arena and their squad.
func TestDeadAgentsArePruned(t *testing.T) {
	g := newTestGame(t, nil)
	n := g.AddColonist("Bob", coord.Pt(3, 3), true)
	s, _ := g.CreateSquad("Guards", 1, job.Med)
	step(g, 1)
	if !s.IsMember(n.ID()) {
		t.Fatal("expert was not drafted")
	}

	n.Kill("fell down a well")
	step(g, 1)

	if _, ok := g.NPC(n.ID()); ok {
		t.Error("dead npc still in the arena")
	}
	if s.MemberCount() != 0 {
		t.Errorf("squad members = %v, want none", s.Members())
	}
}

// TestHazardCacheRebuiltOnInterval verifies fire shows up in the hazard
// cache only once the rebuild interval has passed.
func TestHazardCacheRebuiltOnInterval(t *testing.T) {
	g := newTestGame(t, nil)
	fire := coord.Pt(5, 5)
	g.Map().SetFire(fire, 5)

	every := tuning.Default().HazardRebuildTicks
	step(g, every-1)
	if g.Map().Hazards().Dangerous(fire, PlayerFaction) {
		t.Fatal("hazard cache rebuilt early")
	}
	step(g, 1)
	if !g.Map().Hazards().Dangerous(fire, PlayerFaction) {
		t.Error("fire missing from the rebuilt hazard cache")
	}
}

// TestBoardProgressPublished verifies a board summary is published once
// per simulated second.
func TestBoardProgressPublished(t *testing.T) {
	bus := events.NewEventBus()
	defer bus.Close()
	ch := bus.Subscribe(events.TopicBoard, 4)

	g := newTestGame(t, bus)
	g.AddColonist("Ann", coord.Pt(2, 2), false)
	step(g, g.TickRate())

	select {
	case e := <-ch:
		ev, ok := e.(events.BoardProgressEvent)
		if !ok {
			t.Fatalf("event type %T, want BoardProgressEvent", e)
		}
		if ev.Agents != 1 || ev.Tick != int64(g.TickRate()) {
			t.Errorf("progress agents=%d tick=%d, want 1 and %d", ev.Agents, ev.Tick, g.TickRate())
		}
	case <-time.After(time.Second):
		t.Fatal("no board progress event")
	}
}

// TestDoRunsBetweenTicks verifies commands from other goroutines are
// applied by the next tick.
func TestDoRunsBetweenTicks(t *testing.T) {
	g := newTestGame(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Do(ctx, func(g *Game) error {
			g.AddColonist("Cid", coord.Pt(4, 4), false)
			return errors.New("applied")
		})
	}()

	for {
		select {
		case err := <-done:
			if err == nil || err.Error() != "applied" {
				t.Fatalf("Do error = %v, want the command's error", err)
			}
			if len(g.NPCs()) != 1 {
				t.Errorf("npcs = %d, want 1", len(g.NPCs()))
			}
			return
		case <-ctx.Done():
			t.Fatal("command never applied")
		default:
			g.Tick()
			time.Sleep(time.Millisecond)
		}
	}
}

// TestDoRespectsCancellation verifies a command nobody applies gives up
// with the context.
func TestDoRespectsCancellation(t *testing.T) {
	g := newTestGame(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := g.Do(ctx, func(*Game) error { return nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Do error = %v, want deadline exceeded", err)
	}
}

// TestRunner covers the ways a run ends.
func TestRunner(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name     string
		maxTicks int64
		service  ServiceFunc
		cancel   bool
		wantErr  error
	}{
		{name: "tick limit", maxTicks: 5},
		{
			name:     "service failure",
			maxTicks: 0,
			service:  func(context.Context) error { return boom },
			wantErr:  boom,
		},
		{name: "cancelled", cancel: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGame(t, nil)
			cfg := RunnerConfig{TickRate: 1000, MaxTicks: tt.maxTicks}
			if tt.service != nil {
				cfg.Services = []Service{tt.service}
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if tt.cancel {
				time.AfterFunc(20*time.Millisecond, cancel)
			}

			err := NewRunner(g, cfg).Run(ctx)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Run error = %v, want %v", err, tt.wantErr)
			}
			if tt.maxTicks > 0 && g.TickCount() != tt.maxTicks {
				t.Errorf("TickCount() = %d, want %d", g.TickCount(), tt.maxTicks)
			}
		})
	}
}

// TestCalendar verifies months roll into seasons and years.
func TestCalendar(t *testing.T) {
	tests := []struct {
		ticks  int
		month  int
		year   int
		season Season
	}{
		{0, 0, 1, Spring},
		{10, 1, 1, Spring},
		{35, 3, 1, Summer},
		{95, 9, 1, Winter},
		{125, 0, 2, Spring},
	}
	for _, tt := range tests {
		c := NewCalendar(10)
		for range tt.ticks {
			c.Advance()
		}
		if c.Month() != tt.month || c.Year() != tt.year || c.Season() != tt.season {
			t.Errorf("after %d ticks: month=%d year=%d season=%v, want %d %d %v",
				tt.ticks, c.Month(), c.Year(), c.Season(), tt.month, tt.year, tt.season)
		}
		if c.Winter() != (tt.season == Winter) {
			t.Errorf("after %d ticks: Winter() = %v", tt.ticks, c.Winter())
		}
	}
}

// TestCampSpots verifies the camp grows with its buildings and random
// spots stay walkable.
func TestCampSpots(t *testing.T) {
	g := newTestGame(t, nil)
	camp := NewCamp(g.Map(), coord.Pt(8, 8), 2)
	camp.AddBuilding(coord.Pt(4, 4))
	camp.AddBuilding(coord.Pt(8, 4))
	if camp.Center() != coord.Pt(6, 4) {
		t.Errorf("Center() = %v, want (6,4)", camp.Center())
	}

	for x := 0; x < 16; x++ {
		g.Map().SetWalkable(coord.Pt(x, 5), false)
	}
	rng := rand.New(rand.NewPCG(1, 1))
	for range 50 {
		if p := camp.RandomSpot(rng); !g.Map().IsWalkable(p) {
			t.Fatalf("RandomSpot() = %v is not walkable", p)
		}
	}
}
