package sim

import (
	"errors"
	"slices"

	"github.com/aristath/colony/internal/jobmanager"
	"github.com/aristath/colony/internal/npc"
)

var (
	ErrUnknownNPC      = errors.New("unknown npc")
	ErrUnknownSquad    = errors.New("unknown squad")
	ErrDuplicateSquad  = errors.New("squad already exists")
	ErrUnknownCategory = errors.New("unknown item category")
)

// arena owns the agents and resolves ids for the engine. Agents are kept
// in arrival order so every tick visits them the same way.
type arena struct {
	byID  map[int]*npc.NPC
	order []int
}

func newArena() *arena {
	return &arena{byID: make(map[int]*npc.NPC)}
}

func (a *arena) add(n *npc.NPC) {
	a.byID[n.ID()] = n
	a.order = append(a.order, n.ID())
}

func (a *arena) remove(id int) {
	if _, ok := a.byID[id]; !ok {
		return
	}
	delete(a.byID, id)
	a.order = slices.DeleteFunc(a.order, func(x int) bool { return x == id })
}

func (a *arena) count() int { return len(a.order) }

// NPC resolves id.
func (a *arena) NPC(id int) (*npc.NPC, bool) {
	n, ok := a.byID[id]
	return n, ok
}

// All lists the agents in arrival order.
func (a *arena) All() []*npc.NPC {
	out := make([]*npc.NPC, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, a.byID[id])
	}
	return out
}

// Worker resolves id for the job manager. Dead and departed agents take
// no work.
func (a *arena) Worker(id int) (jobmanager.Worker, bool) {
	n, ok := a.byID[id]
	if !ok || n.Dead() || n.Escaped() {
		return nil, false
	}
	return n, true
}
