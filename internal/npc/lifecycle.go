package npc

import (
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/aristath/colony/internal/effect"
	"github.com/aristath/colony/internal/entity"
	"github.com/aristath/colony/internal/events"
	"github.com/aristath/colony/internal/job"
)

// StartJob replaces whatever the agent was doing with j. When j needs a tool
// the agent is not wielding, tasks to fetch and wield one are put in front
// of j's own tasks.
func (n *NPC) StartJob(j *job.Job) {
	n.TaskFinished(job.TaskOwnDone, "")

	if j.RequiresTool() && !n.HasTool(j.RequiredTool()) {
		j.PrependToolTasks(
			job.ForCategory(job.Find, n.pos, j.RequiredTool(), 0),
			job.NewTask(job.Move),
			job.NewTask(job.Take),
			job.NewTask(job.Wield),
			job.NewTask(job.Forget),
		)
	} else {
		j.StripToolTasks()
	}
	j.Assign(n.id)
	n.jobs = append(n.jobs, j)
	n.env.Logger.Debug("job started",
		zap.Int("npc", n.id),
		zap.String("job", j.Name),
		zap.Int("added_tasks", j.ToolTasks()))
}

// TaskFinished closes the current task. Success moves on to the next task
// and completes the job after its last one. Any other result abandons the
// whole job: fetched-tool tasks are stripped, the job leaves the queue, and
// a shared job goes back to the job manager.
func (n *NPC) TaskFinished(result job.TaskResult, msg string) {
	n.effects.Remove(effect.Eating)
	n.effects.Remove(effect.Drinking)
	n.effects.Remove(effect.Working)
	n.taskBegun = false
	n.timer = 0
	n.run = true

	if len(n.jobs) == 0 {
		return
	}
	j := n.jobs[0]

	if result == job.TaskSuccess {
		n.taskIndex++
		if n.taskIndex >= len(j.Tasks) {
			j.Complete()
			n.popJob()
			n.env.Logger.Debug("job completed", zap.Int("npc", n.id), zap.String("job", j.Name))
		}
		return
	}

	j.StripToolTasks()
	n.popJob()
	if j.Internal {
		j.Fail()
	} else {
		n.env.Jobs.CancelJob(j, msg, result)
	}
	if n.carried != entity.None {
		n.DropItem(n.carried)
	}
	n.spillMainHand()
	n.clearPath()
	if result != job.TaskOwnDone {
		n.env.Logger.Debug("job abandoned",
			zap.Int("npc", n.id),
			zap.String("job", j.Name),
			zap.Stringer("result", result),
			zap.String("reason", msg))
	}
}

// popJob removes the front job and resets per-job state.
func (n *NPC) popJob() {
	n.jobs = n.jobs[1:]
	n.taskIndex = 0
	n.foundItem = entity.None
	n.jobBegun = false
	n.taskBegun = false
}

func (n *NPC) clearPath() {
	n.tracker.Cancel()
	n.path = nil
	n.pathIndex = 0
	n.pathPending = false
}

// dropRevokedJobs discards front jobs the job manager took back or removed
// while the agent held them.
func (n *NPC) dropRevokedJobs() {
	for len(n.jobs) > 0 {
		j := n.jobs[0]
		if j.Internal || (j.Assigned() == n.id && !j.Finished() && !j.Removable()) {
			return
		}
		// Back in the job manager's hands unless another agent took it.
		if j.Assigned() < 0 {
			j.StripToolTasks()
		}
		n.popJob()
		n.timer = 0
		if n.carried != entity.None {
			n.DropItem(n.carried)
		}
		n.spillMainHand()
		n.clearPath()
		n.env.Logger.Debug("job revoked", zap.Int("npc", n.id), zap.String("job", j.Name))
	}
}

// FailAllJobs abandons every queued job.
func (n *NPC) FailAllJobs(msg string) {
	for len(n.jobs) > 0 {
		n.TaskFinished(job.TaskFailNonFatal, msg)
	}
}

// AbortCurrentJob fails the current job, optionally removing it from the
// job manager for good.
func (n *NPC) AbortCurrentJob(remove bool) {
	j, ok := n.CurrentJob()
	if !ok {
		return
	}
	n.TaskFinished(job.TaskFailFatal, "job aborted")
	if remove && !j.Internal {
		n.env.Jobs.RemoveJob(j)
	}
}

// AbortJob fails j when it is the current job.
func (n *NPC) AbortJob(j *job.Job) {
	if cur, ok := n.CurrentJob(); ok && cur == j {
		n.TaskFinished(job.TaskFailFatal, "job aborted")
	}
}

// ValidateCurrentJob checks that the remaining tasks still make sense: trees
// and plants must still be there and marked, pour targets must exist or be
// designated, containers must exist and nobody digs in winter.
func (n *NPC) ValidateCurrentJob() bool {
	j, ok := n.CurrentJob()
	if !ok {
		return true
	}
	reg := n.env.Registry
	for _, t := range j.Tasks[min(n.taskIndex, len(j.Tasks)):] {
		switch t.Action {
		case job.Fell, job.HarvestWildPlant:
			nat, ok := reg.Nature(t.Entity)
			if !ok || !nat.Marked {
				return false
			}
		case job.Pour:
			if j.Kind == job.DumpFilthJob || j.Kind == job.PourWaterJob {
				continue
			}
			if t.Entity != entity.None {
				if !reg.Exists(t.Entity) {
					return false
				}
			} else if !n.env.Map.GroundMarked(t.Target) {
				return false
			}
		case job.PutIn:
			if !reg.Exists(t.Entity) {
				return false
			}
		case job.Dig:
			if n.env.Calendar != nil && n.env.Calendar.Winter() {
				return false
			}
		}
	}
	return true
}

// PickupItem moves id into the agent's inventory as the carried item. A
// previously carried item is put down first.
func (n *NPC) PickupItem(id entity.ID) bool {
	reg := n.env.Registry
	if _, ok := reg.Item(id); !ok {
		return false
	}
	if n.carried != entity.None && n.carried != id {
		n.DropItem(n.carried)
	}
	if !reg.PutIn(n.inventory, id) {
		return false
	}
	n.carried = id
	return true
}

// DropItem puts id on the agent's tile. A container of filth is emptied
// onto the ground.
func (n *NPC) DropItem(id entity.ID) {
	reg := n.env.Registry
	for _, slot := range []*entity.ID{&n.carried, &n.mainHand, &n.armor, &n.quiver} {
		if *slot == id {
			*slot = entity.None
		}
	}
	it, ok := reg.Item(id)
	if !ok {
		return
	}
	reg.Place(id, n.pos)
	if it.IsContainer() && it.Filth > 0 {
		n.env.Map.AddFilth(n.pos, it.Filth)
		it.Filth = 0
	}
}

// spillMainHand empties a wielded container onto the agent's tile.
func (n *NPC) spillMainHand() {
	it, ok := n.env.Registry.Item(n.mainHand)
	if !ok || !it.IsContainer() {
		return
	}
	water, filth := n.env.Registry.Drain(n.mainHand)
	switch {
	case water > 0:
		n.env.Map.AddWater(n.pos, water)
	case filth > 0:
		n.env.Map.AddFilth(n.pos, filth)
	}
}

// consume applies an eaten or drunk item's effects and destroys it.
// It returns the item's nutrition.
func (n *NPC) consume(id entity.ID) int {
	reg := n.env.Registry
	it, ok := reg.Item(id)
	if !ok {
		return 0
	}
	for _, e := range it.Effects {
		n.AddEffect(e)
	}
	for _, e := range it.Cures {
		n.effects.Remove(e)
	}
	nutrition := it.Nutrition
	if id == n.carried {
		n.carried = entity.None
	}
	reg.Remove(id)
	return nutrition
}

// Kill ends the agent: jobs are abandoned, the inventory drops where it
// stood and a corpse is left behind.
func (n *NPC) Kill(cause string) {
	if n.dead {
		return
	}
	n.dead = true
	n.health = 0
	n.FailAllJobs(cause)
	n.dropInventory()

	reg := n.env.Registry
	reg.AddItem(&entity.Item{
		Name:       n.name + "'s corpse",
		Pos:        n.pos,
		Categories: []entity.Category{reg.MustCategory(entity.CatCorpse)},
		Faction:    n.faction,
		Bulk:       5,
		Nutrition:  corpseNutrition,
	})
	n.env.Map.Leave(n.pos, n.id)
	n.env.Jobs.NPCNotWaiting(n.id)

	if n.faction == PlayerFaction {
		n.env.announce(fmt.Sprintf("%s %s", n.name, cause))
	}
	if n.env.Bus != nil {
		n.env.Bus.Publish(events.TopicNPC, events.NPCDiedEvent{
			NPC:       n.id,
			Name:      n.name,
			Cause:     cause,
			Timestamp: time.Now(),
		})
	}
	n.env.Logger.Info("npc died", zap.Int("npc", n.id), zap.String("name", n.name), zap.String("cause", cause))
}

func (n *NPC) dropInventory() {
	inv, ok := n.env.Registry.Item(n.inventory)
	if !ok {
		return
	}
	for _, id := range inv.Contents() {
		n.DropItem(id)
	}
	n.env.Registry.Remove(n.inventory)
}

// Escape takes the agent off the map for good, along with everything it carries.
func (n *NPC) Escape() {
	if n.escaped || n.dead {
		return
	}
	reg := n.env.Registry
	if n.carried != entity.None {
		n.env.announce(fmt.Sprintf("%s escaped with %s", n.name, reg.Name(n.carried)))
	}
	n.destroyAll(n.inventory)
	n.carried, n.mainHand, n.armor, n.quiver = entity.None, entity.None, entity.None, entity.None
	n.FailAllJobs("escaped")
	n.escaped = true
	n.env.Map.Leave(n.pos, n.id)
	n.env.Jobs.NPCNotWaiting(n.id)
	n.env.Logger.Info("npc escaped", zap.Int("npc", n.id), zap.String("name", n.name))
}

// Remove takes the agent out of the simulation. Shared jobs go back to the
// job manager and everything it holds drops where it stood. A removed
// agent reports Escaped.
func (n *NPC) Remove() {
	if n.escaped || n.dead {
		return
	}
	n.FailAllJobs("removed")
	n.dropInventory()
	n.escaped = true
	n.env.Map.Leave(n.pos, n.id)
	n.env.Jobs.NPCNotWaiting(n.id)
	n.env.Logger.Info("npc removed", zap.Int("npc", n.id), zap.String("name", n.name))
}

func (n *NPC) destroyAll(id entity.ID) {
	reg := n.env.Registry
	it, ok := reg.Item(id)
	if !ok {
		return
	}
	for _, child := range it.Contents() {
		n.destroyAll(child)
	}
	reg.Remove(id)
}

// AddEffect applies t. Bravery and panic exclude each other; a chicken
// heart cannot be brave.
func (n *NPC) AddEffect(t effect.Type) {
	switch t {
	case effect.Panic:
		if n.effects.Has(effect.Brave) {
			return
		}
	case effect.Brave:
		if n.effects.Has(effect.ChickenHeart) {
			return
		}
		n.effects.Remove(effect.Panic)
	}
	n.effects.Add(effect.New(t))
}

// RemoveEffect clears t.
func (n *NPC) RemoveEffect(t effect.Type) { n.effects.Remove(t) }

// HasEffect reports whether t is active.
func (n *NPC) HasEffect(t effect.Type) bool { return n.effects.Has(t) }

// Effects returns the active effects.
func (n *NPC) Effects() []effect.Effect { return n.effects.List() }

func (n *NPC) insertJob(at int, j *job.Job) {
	j.Assign(n.id)
	n.jobs = slices.Insert(n.jobs, min(at, len(n.jobs)), j)
}
