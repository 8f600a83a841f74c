package faction

import (
	"github.com/aristath/colony/internal/coord"
	"github.com/aristath/colony/internal/entity"
	"github.com/aristath/colony/internal/job"
	"github.com/aristath/colony/internal/npc"
)

// guardRadius is how far a guard may stray before walking back to its post.
const guardRadius = 3

// SquadFinder hands squad members their equipment and standing orders.
type SquadFinder struct {
	squad  *Squad
	orders map[int]int
}

// NewSquadFinder creates the job source members of s consult first.
func NewSquadFinder(s *Squad) *SquadFinder {
	return &SquadFinder{squad: s, orders: make(map[int]int)}
}

// Squad returns the squad this finder serves.
func (f *SquadFinder) Squad() *Squad { return f.squad }

// FindJob equips n first, then gives it the next squad order.
func (f *SquadFinder) FindJob(n *npc.NPC) bool {
	if !f.squad.IsMember(n.ID()) {
		return false
	}
	if j := f.equipJob(n); j != nil {
		n.QueueJob(j)
		return true
	}

	idx := f.orders[n.ID()]
	cmd, ok := f.squad.GetOrder(&idx)
	f.orders[n.ID()] = idx
	if !ok {
		return false
	}
	j := f.orderJob(n, cmd)
	if j == nil {
		return false
	}
	j.SetPriority(f.squad.Priority)
	n.QueueJob(j)
	return true
}

// equipJob fetches the squad weapon, then a quiver and ammunition for a
// ranged weapon, then armor. It returns nil when n is fully equipped or
// nothing suitable is in stock.
func (f *SquadFinder) equipJob(n *npc.NPC) *job.Job {
	reg := n.Env().Registry
	if f.squad.Weapon != entity.NoCategory && !n.HasTool(f.squad.Weapon) && reg.Available(f.squad.Weapon) > 0 {
		return fetchJob(n, "Grab weapon", f.squad.Weapon, job.Wield)
	}
	if weapon, ok := reg.Item(n.MainHand()); ok && weapon.Ranged {
		quiverCat := reg.MustCategory(entity.CatQuiver)
		switch {
		case n.Quiver() == entity.None && reg.Available(quiverCat) > 0:
			return fetchJob(n, "Grab quiver", quiverCat, job.Wear)
		case n.Quiver() != entity.None && n.AmmoLeft() == 0 && reg.Available(weapon.Ammo) > 0:
			return fetchJob(n, "Grab ammo", weapon.Ammo, job.Quiver)
		}
	}
	if f.squad.Armor != entity.NoCategory && n.Armor() == entity.None && reg.Available(f.squad.Armor) > 0 {
		return fetchJob(n, "Grab armor", f.squad.Armor, job.Wear)
	}
	return nil
}

func fetchJob(n *npc.NPC, name string, c entity.Category, use job.Action) *job.Job {
	return job.NewInternal(name, job.High, job.ArmJob).Add(
		job.ForCategory(job.Find, n.Position(), c, 0),
		job.NewTask(job.Move),
		job.NewTask(job.Take),
		job.NewTask(use),
		job.NewTask(job.Forget),
	)
}

func (f *SquadFinder) orderJob(n *npc.NPC, cmd Command) *job.Job {
	env := n.Env()
	switch cmd.Order {
	case Guard:
		j := job.NewInternal("Guard", job.Med, job.SquadOrderJob)
		if n.Position().Distance(cmd.Target) > guardRadius {
			j.Add(job.At(job.MoveNear, cmd.Target))
		}
		return j.Add(job.At(job.Wait, coord.Pt(env.Tuning.UpdatesPerSecond/5, 0)))

	case Follow:
		leader, ok := lookup(env, cmd.Entity)
		if !ok || leader == n {
			return nil
		}
		j := job.NewInternal("Follow "+leader.Name(), job.Med, job.SquadOrderJob)
		if n.Position().Distance(leader.Position()) > 1 {
			j.Add(job.At(job.MoveNear, leader.Position()))
		}
		return j.Add(job.At(job.Wait, coord.Pt(2, 0)))

	case Attack:
		target, ok := lookup(env, cmd.Entity)
		if ok {
			return killJob(target)
		}
		if c, ok := env.Registry.ConstructionAt(cmd.Target); ok {
			return job.NewInternal("Attack "+c.Name, job.Med, job.KillJob).Add(
				job.NewTask(job.GetAngry),
				job.On(job.Kill, c.Pos, c.ID),
			)
		}
	}
	return nil
}

func lookup(env *npc.Env, id int) (*npc.NPC, bool) {
	if env.NPCs == nil || id < 0 {
		return nil, false
	}
	n, ok := env.NPCs.NPC(id)
	if !ok || n.Dead() || n.Escaped() {
		return nil, false
	}
	return n, true
}

func killJob(target *npc.NPC) *job.Job {
	return job.NewInternal("Kill "+target.Name(), job.High, job.KillJob).Add(
		job.NewTask(job.GetAngry),
		job.On(job.Kill, target.Position(), entity.ID(target.ID())),
	)
}

// Waiter is the job manager's idle register.
type Waiter interface {
	NPCWaiting(id int)
}

// JobManagerFinder registers idle colonists with the job manager, which
// starts a job on them during its next assignment pass.
type JobManagerFinder struct {
	Jobs Waiter
}

// FindJob always reports false so the agent loiters until it is assigned.
func (f JobManagerFinder) FindJob(n *npc.NPC) bool {
	f.Jobs.NPCWaiting(n.ID())
	return false
}

// PeacefulAnimalFinder leaves grazing animals to wander.
type PeacefulAnimalFinder struct{}

func (PeacefulAnimalFinder) FindJob(*npc.NPC) bool { return false }

// HostileAnimalFinder sends a predator after the closest agent of an
// enemy faction it can see.
type HostileAnimalFinder struct{}

func (HostileAnimalFinder) FindJob(n *npc.NPC) bool {
	n.ScanSurroundings(true)
	var prey *npc.NPC
	for _, id := range n.NearNPCs() {
		other, ok := lookup(n.Env(), id)
		if !ok {
			continue
		}
		if prey == nil || other.Position().Distance(n.Position()) < prey.Position().Distance(n.Position()) {
			prey = other
		}
	}
	if prey == nil || n.HasJobKind(job.KillJob) {
		return false
	}
	n.QueueJob(killJob(prey))
	return true
}
