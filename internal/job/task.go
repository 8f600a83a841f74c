package job

import (
	"fmt"

	"github.com/aristath/colony/internal/coord"
	"github.com/aristath/colony/internal/entity"
)

// TaskResult is the outcome of advancing one Task.
type TaskResult int

const (
	TaskSuccess TaskResult = iota
	TaskFailNonFatal
	TaskFailFatal
	TaskContinue
	TaskOwnDone
	PathEmpty
)

func (r TaskResult) String() string {
	switch r {
	case TaskSuccess:
		return "success"
	case TaskFailNonFatal:
		return "failed"
	case TaskFailFatal:
		return "failed fatally"
	case TaskContinue:
		return "continue"
	case TaskOwnDone:
		return "own done"
	case PathEmpty:
		return "path empty"
	}
	return "unknown"
}

// Failed reports whether r ends the job without finishing it.
func (r TaskResult) Failed() bool {
	return r != TaskSuccess && r != TaskContinue
}

// Task flags.
const (
	// FlagFromStockpile restricts FIND to stockpiled items.
	FlagFromStockpile = 1 << iota
	// FlagNotFull makes FIND look for containers with free space.
	FlagNotFull
	// FlagEmpty makes FIND look for empty containers.
	FlagEmpty
	// FlagMostDecayed makes FIND prefer the most decayed item.
	FlagMostDecayed
	// FlagDumpFilth marks a POUR that empties filth onto any tile.
	FlagDumpFilth
)

// Task is a single verb with its target. Target Undefined and Entity None
// mean "resolve from context", usually the item a previous FIND located.
type Task struct {
	Action       Action
	Target       coord.Coordinate
	Entity       entity.ID
	ItemCategory entity.Category
	Flags        int
}

// NewTask builds a task with no target.
func NewTask(a Action) Task {
	return Task{Action: a, Target: coord.Undefined, Entity: entity.None, ItemCategory: entity.NoCategory}
}

// At builds a task aimed at a tile.
func At(a Action, target coord.Coordinate) Task {
	t := NewTask(a)
	t.Target = target
	return t
}

// On builds a task aimed at an entity standing on target.
func On(a Action, target coord.Coordinate, e entity.ID) Task {
	t := At(a, target)
	t.Entity = e
	return t
}

// ForCategory builds a task that looks for an item of category c near target.
func ForCategory(a Action, target coord.Coordinate, c entity.Category, flags int) Task {
	t := At(a, target)
	t.ItemCategory = c
	t.Flags = flags
	return t
}

func (t Task) String() string {
	switch {
	case t.Entity != entity.None:
		return fmt.Sprintf("%s #%d %v", t.Action, t.Entity, t.Target)
	case !t.Target.IsUndefined():
		return fmt.Sprintf("%s %v", t.Action, t.Target)
	}
	return t.Action.String()
}
