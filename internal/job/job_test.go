package job

import (
	"errors"
	"testing"

	"github.com/aristath/colony/internal/coord"
	"github.com/aristath/colony/internal/effect"
	"github.com/aristath/colony/internal/entity"
)

// countingLedger records every reserve and release call.
type countingLedger struct {
	held          map[entity.ID]bool
	released      map[entity.ID]int
	spotsReleased int
	spaceReleased int
}

func newCountingLedger() *countingLedger {
	return &countingLedger{held: map[entity.ID]bool{}, released: map[entity.ID]int{}}
}

func (l *countingLedger) Reserve(id entity.ID) bool {
	if l.held[id] {
		return false
	}
	l.held[id] = true
	return true
}

func (l *countingLedger) Release(id entity.ID) {
	l.held[id] = false
	l.released[id]++
}

func (l *countingLedger) ReserveSpot(entity.ID, coord.Coordinate, entity.Category) bool { return true }
func (l *countingLedger) ReleaseSpot(entity.ID, coord.Coordinate)                       { l.spotsReleased++ }
func (l *countingLedger) ReserveSpace(entity.ID, int) bool                              { return true }
func (l *countingLedger) ReleaseSpace(entity.ID, int)                                   { l.spaceReleased++ }

type fakeTerritory struct {
	size      int
	territory map[coord.Coordinate]bool
	fire      map[coord.Coordinate]bool
}

func (f fakeTerritory) IsInside(c coord.Coordinate) bool {
	return c.InRect(coord.Zero, coord.Pt(f.size, f.size))
}
func (f fakeTerritory) IsTerritory(c coord.Coordinate) bool { return f.territory[c] }
func (f fakeTerritory) Fire(c coord.Coordinate) int {
	if f.fire[c] {
		return 1
	}
	return 0
}

// TestReservationsReleasedExactlyOnce verifies no double release across terminal transitions.
func TestReservationsReleasedExactlyOnce(t *testing.T) {
	tests := []struct {
		name string
		end  func(j *Job)
	}{
		{"complete twice", func(j *Job) { j.Complete(); j.Complete() }},
		{"fail twice", func(j *Job) { j.Fail(); j.Fail() }},
		{"complete then fail", func(j *Job) { j.Complete(); j.Fail() }},
		{"fail then remove", func(j *Job) { j.Fail(); j.Remove() }},
		{"remove then complete", func(j *Job) { j.Remove(); j.Complete(); j.UnreserveAll() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newCountingLedger()
			j := New("Haul", Med)
			j.ReserveEntity(l, 1)
			j.ReserveEntity(l, 2)
			j.ReserveSpot(l, 10, coord.Pt(1, 1), 0)
			j.ReserveSpace(l, 11, 3)

			tt.end(j)

			for _, id := range []entity.ID{1, 2} {
				if l.released[id] != 1 {
					t.Errorf("entity %d released %d times, want 1", id, l.released[id])
				}
			}
			if l.spotsReleased != 1 || l.spaceReleased != 1 {
				t.Errorf("spot released %d, space released %d, want 1 each", l.spotsReleased, l.spaceReleased)
			}
			if j.HoldsReservations() {
				t.Error("job should hold nothing after release")
			}
		})
	}
}

// TestReserveEntityConflict verifies two jobs cannot claim the same entity.
func TestReserveEntityConflict(t *testing.T) {
	l := newCountingLedger()
	a, b := New("A", Med), New("B", Med)
	if !a.ReserveEntity(l, 5) {
		t.Fatal("first claim should succeed")
	}
	if b.ReserveEntity(l, 5) {
		t.Error("second claim should fail")
	}
	a.Complete()
	if !b.ReserveEntity(l, 5) {
		t.Error("claim should succeed after the holder completed")
	}
}

// TestCompletionStates verifies Completed only reports success.
func TestCompletionStates(t *testing.T) {
	ok := New("ok", Med)
	ok.Complete()
	if !ok.Completed() || !ok.Finished() {
		t.Error("completed job should report Completed and Finished")
	}

	bad := New("bad", Med)
	bad.Fail()
	if bad.Completed() {
		t.Error("failed job must not report Completed")
	}
	if !bad.Finished() || !bad.Removable() {
		t.Error("failed job should be finished and removable")
	}
	bad.Complete()
	if bad.Completion() != Failure {
		t.Error("Complete after Fail must not change the outcome")
	}
}

// TestFailPropagatesToParent verifies a failed prerequisite fails its parent.
func TestFailPropagatesToParent(t *testing.T) {
	parent := New("Build wall", Med)
	pre := New("Haul stone", Med)
	parent.AddPreReq(pre)

	if parent.PreReqsCompleted() {
		t.Fatal("prerequisite still pending")
	}
	if pre.ParentCompleted() {
		t.Error("parent still ongoing")
	}

	pre.Fail()

	if parent.Completion() != Failure {
		t.Error("parent should fail with its prerequisite")
	}
	if !pre.ParentCompleted() {
		t.Error("parent reached a terminal state")
	}
	if !New("orphan", Low).ParentCompleted() {
		t.Error("job without parent has nothing to wait for")
	}
}

// TestPreReqsAndRemovable verifies Removable waits for prerequisites.
func TestPreReqsAndRemovable(t *testing.T) {
	parent := New("Parent", Med)
	pre := New("Pre", Med)
	parent.AddPreReq(pre)

	parent.Remove()
	if parent.Removable() {
		t.Error("removal must wait for pending prerequisites")
	}
	pre.Complete()
	if !parent.PreReqsCompleted() || !parent.Removable() {
		t.Error("parent should be removable once prerequisites finish")
	}
}

// TestAttempt verifies the retry budget.
func TestAttempt(t *testing.T) {
	j := New("Retry", Med)
	for i := 1; i <= DefaultAttemptMax; i++ {
		if !j.Attempt() {
			t.Fatalf("attempt %d should be allowed", i)
		}
	}
	if j.Attempt() {
		t.Error("attempt beyond the max should be refused")
	}

	single := New("Once", Med)
	single.SetAttemptMax(1)
	if !single.Attempt() || single.Attempt() {
		t.Error("single-attempt job should allow exactly one attempt")
	}
}

// TestDefaults verifies a fresh job and task.
func TestDefaults(t *testing.T) {
	j := New("Fresh", High)
	if j.ID == "" || j.Assigned() != -1 || !j.Menial() || !j.ObeysTerritory() || j.RequiresTool() {
		t.Errorf("unexpected defaults: %+v", j)
	}
	task := NewTask(Drink)
	if !task.Target.IsUndefined() || task.Entity != entity.None || task.ItemCategory != entity.NoCategory {
		t.Errorf("unexpected task defaults: %+v", task)
	}
}

// TestTerritoryAndFire verifies target scans fall back to entity positions.
func TestTerritoryAndFire(t *testing.T) {
	reg := entity.NewRegistry()
	log := reg.Spawn("Log", coord.Pt(8, 8))
	m := fakeTerritory{
		size:      10,
		territory: map[coord.Coordinate]bool{coord.Pt(1, 1): true},
		fire:      map[coord.Coordinate]bool{coord.Pt(8, 8): true},
	}

	inside := New("inside", Med).Add(At(Move, coord.Pt(1, 1)))
	if inside.OutsideTerritory(m, reg) {
		t.Error("territory tile is not outside")
	}

	outside := New("outside", Med).Add(At(Move, coord.Pt(1, 1)), On(Take, coord.Undefined, log.ID))
	if !outside.OutsideTerritory(m, reg) {
		t.Error("entity outside territory should be detected")
	}
	if !outside.InvalidFireAllowance(m, reg) {
		t.Error("burning entity tile should be invalid")
	}

	outside.DisregardTerritory()
	outside.AllowFire()
	if outside.OutsideTerritory(m, reg) || outside.InvalidFireAllowance(m, reg) {
		t.Error("flags should disable the checks")
	}
}

// TestValidateGraph verifies ordering and cycle detection.
func TestValidateGraph(t *testing.T) {
	a, b, c := New("a", Med), New("b", Med), New("c", Med)
	c.AddPreReq(b)
	b.AddPreReq(a)

	order, err := ValidateGraph([]*Job{c})
	if err != nil {
		t.Fatalf("ValidateGraph: %v", err)
	}
	if len(order) != 3 || order[0] != a || order[2] != c {
		t.Errorf("order = %v", names(order))
	}

	x, y := New("x", Med), New("y", Med)
	x.AddPreReq(y)
	y.AddPreReq(x)
	if _, err := ValidateGraph([]*Job{x}); !errors.Is(err, ErrCycle) {
		t.Errorf("expected ErrCycle, got %v", err)
	}
}

func names(jobs []*Job) []string {
	out := make([]string, len(jobs))
	for i, j := range jobs {
		out[i] = j.Name
	}
	return out
}

// TestActionNames verifies display names and parsing.
func TestActionNames(t *testing.T) {
	if len(Actions()) != 35 {
		t.Errorf("Actions() = %d verbs, want 35", len(Actions()))
	}
	if Take.String() != "Pick up" || Action(99).String() != "???" {
		t.Error("unexpected display names")
	}
	for _, in := range []string{"MOVEADJACENT", "Move adjacent", "move_adjacent"} {
		if a, ok := ActionFromString(in); !ok || a != MoveAdjacent {
			t.Errorf("ActionFromString(%q) = %v, %v", in, a, ok)
		}
	}
	if _, ok := ActionFromString("teleport"); ok {
		t.Error("unknown verb should not parse")
	}
}

type waterAt coord.Coordinate

func (w waterAt) FindWater(coord.Coordinate) coord.Coordinate { return coord.Coordinate(w) }

// TestPourWaterJob verifies both water sources and the no-water case.
func TestPourWaterJob(t *testing.T) {
	fire := coord.Pt(10, 10)

	t.Run("bucket from water tile", func(t *testing.T) {
		reg := entity.NewRegistry()
		j := NewPourWaterJob(reg, waterAt(coord.Pt(12, 10)), fire, High)
		if j == nil {
			t.Fatal("expected a job")
		}
		want := []Action{MoveAdjacent, Fill, MoveAdjacent, Pour}
		assertActions(t, j, want)
		if !j.RequiresTool() || j.RequiredTool() != reg.MustCategory(entity.CatBucket) {
			t.Error("bucket should be required")
		}
		if j.ObeysTerritory() || !j.FireAllowed() || j.AttemptMax() != 1 {
			t.Error("pour job should ignore territory, allow fire and run once")
		}
		if len(j.StatusEffects) != 1 || j.StatusEffects[0] != effect.Brave {
			t.Error("pour job should make the agent brave")
		}
	})

	t.Run("stocked water container", func(t *testing.T) {
		reg := entity.NewRegistry()
		barrel := &entity.Item{
			Name:       "Barrel",
			Pos:        coord.Pt(9, 9),
			Categories: []entity.Category{reg.MustCategory(entity.CatContainer)},
			Capacity:   100,
		}
		reg.AddItem(barrel)
		reg.AddWater(barrel.ID, 40)

		j := NewPourWaterJob(reg, waterAt(coord.Pt(30, 30)), fire, High)
		assertActions(t, j, []Action{Move, Take, MoveAdjacent, Pour, StockpileItem})
		if !reg.Reserved(barrel.ID) {
			t.Error("container should be reserved")
		}
		if j.RequiresTool() {
			t.Error("no bucket needed when carrying a container")
		}
	})

	t.Run("no water", func(t *testing.T) {
		reg := entity.NewRegistry()
		if j := NewPourWaterJob(reg, waterAt(coord.Undefined), fire, High); j != nil {
			t.Errorf("expected nil, got %v", j.Tasks)
		}
	})
}

// TestHaulJob verifies the item and the spot are both claimed.
func TestHaulJob(t *testing.T) {
	reg := entity.NewRegistry()
	wood := reg.MustCategory(entity.CatWood)
	sp := reg.AddStockpile("Wood", []coord.Coordinate{coord.Pt(0, 0)}, wood)
	log := reg.Spawn("Log", coord.Pt(5, 5))

	j := NewHaulJob(reg, log.ID, Low)
	if j == nil {
		t.Fatal("expected a haul job")
	}
	assertActions(t, j, []Action{Move, Take, Move, Drop})
	if !sp.SpotReserved(coord.Pt(0, 0)) || !reg.Reserved(log.ID) {
		t.Error("spot and item should be claimed")
	}

	other := reg.Spawn("Log", coord.Pt(6, 6))
	if NewHaulJob(reg, other.ID, Low) != nil {
		t.Error("no free spot left for a second log")
	}

	j.Fail()
	if sp.SpotReserved(coord.Pt(0, 0)) || reg.Reserved(log.ID) {
		t.Error("failing the job should release its claims")
	}
}

func assertActions(t *testing.T, j *Job, want []Action) {
	t.Helper()
	if j == nil {
		t.Fatal("job is nil")
	}
	if len(j.Tasks) != len(want) {
		t.Fatalf("tasks = %v, want %v", j.Tasks, want)
	}
	for i, a := range want {
		if j.Tasks[i].Action != a {
			t.Errorf("task %d = %v, want %v", i, j.Tasks[i].Action, a)
		}
	}
}

// TestHaulJobPrefersStoredContainer verifies a haul puts the item into a
// stockpiled container with room and promises that room to the job.
func TestHaulJobPrefersStoredContainer(t *testing.T) {
	reg := entity.NewRegistry()
	wood := reg.MustCategory(entity.CatWood)
	sp := reg.AddStockpile("Wood", []coord.Coordinate{coord.Pt(0, 0), coord.Pt(1, 0)}, wood)
	box := &entity.Item{Name: "Crate", Pos: coord.Pt(0, 0), Bulk: 3, Capacity: 4,
		Categories: []entity.Category{reg.MustCategory(entity.CatContainer)}}
	reg.AddItem(box)

	first := NewHaulJob(reg, reg.Spawn("Log", coord.Pt(5, 5)).ID, Low)
	assertActions(t, first, []Action{Move, Take, Move, PutIn})
	if first.Tasks[3].Entity != box.ID {
		t.Errorf("PUTIN target = %d, want crate %d", first.Tasks[3].Entity, box.ID)
	}
	if c, bulk, ok := first.ReservedSpace(); !ok || c != box.ID || bulk != 2 {
		t.Errorf("ReservedSpace() = (%d, %d, %v), want (%d, 2, true)", c, bulk, ok, box.ID)
	}

	second := NewHaulJob(reg, reg.Spawn("Log", coord.Pt(6, 6)).ID, Low)
	assertActions(t, second, []Action{Move, Take, Move, PutIn})
	if !reg.Full(box.ID) {
		t.Error("crate should be full once both logs are promised")
	}

	third := NewHaulJob(reg, reg.Spawn("Log", coord.Pt(7, 7)).ID, Low)
	assertActions(t, third, []Action{Move, Take, Move, Drop})
	if !sp.SpotReserved(coord.Pt(1, 0)) {
		t.Error("third log should fall back to the free spot")
	}

	first.Fail()
	if got := reg.FreeSpace(box.ID); got != 2 {
		t.Errorf("FreeSpace after failure = %d, want 2", got)
	}
}

// TestToolTasksBelongToTheJob verifies fetch tasks and the tool claim are
// stripped together and never stack up.
func TestToolTasksBelongToTheJob(t *testing.T) {
	l := newCountingLedger()
	j := New("Fell", Med).Add(At(MoveAdjacent, coord.Pt(7, 0)), At(Fell, coord.Pt(7, 0)))
	fetch := []Task{NewTask(Find), NewTask(Move), NewTask(Take), NewTask(Wield), NewTask(Forget)}

	j.PrependToolTasks(fetch...)
	j.PrependToolTasks(fetch...)
	if len(j.Tasks) != 7 || j.ToolTasks() != 5 {
		t.Fatalf("tasks = %d, tool tasks = %d, want 7 and 5", len(j.Tasks), j.ToolTasks())
	}

	if !j.ReserveTool(l, 4) {
		t.Fatal("ReserveTool failed")
	}
	if !j.ReserveTool(l, 5) || l.held[4] || !l.held[5] {
		t.Errorf("switching tools should release the old claim, held = %v", l.held)
	}
	j.ReserveEntity(l, 9)

	if got := j.StripToolTasks(); got != 5 {
		t.Errorf("StripToolTasks() = %d, want 5", got)
	}
	if j.Tasks[0].Action != MoveAdjacent || j.ToolTasks() != 0 {
		t.Errorf("first task = %v, tool tasks = %d, want MOVEADJACENT and 0", j.Tasks[0].Action, j.ToolTasks())
	}
	if l.held[5] {
		t.Error("tool claim survived the strip")
	}
	if ids := j.ReservedEntities(); len(ids) != 1 || ids[0] != 9 {
		t.Errorf("ReservedEntities() = %v, want [9]", ids)
	}
	if got := j.StripToolTasks(); got != 0 || len(j.Tasks) != 2 {
		t.Errorf("second strip removed %d, left %d tasks", got, len(j.Tasks))
	}
}
