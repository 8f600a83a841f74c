package faction

import (
	"github.com/aristath/colony/internal/effect"
	"github.com/aristath/colony/internal/entity"
	"github.com/aristath/colony/internal/job"
	"github.com/aristath/colony/internal/npc"
)

// PlayerReactor is how colonists respond to what they see.
type PlayerReactor struct{}

// React handles, in order: dousing a fire with a carried bucket, panic of
// the chicken hearted and of cowards, fighting back when aggressive, and
// panic at fire.
func (PlayerReactor) React(n *npc.NPC) {
	n.ScanSurroundings(false)
	hostile := firstHostile(n)

	if n.SeesFire() && dousable(n) && !n.HasJobKind(job.PourWaterJob) {
		fire := n.FireLocation()
		n.AbortCurrentJob(false)
		n.QueueJob(job.NewInternal("Douse fire", job.VeryHigh, job.PourWaterJob).Add(
			job.At(job.MoveAdjacent, fire),
			job.At(job.Pour, fire),
		))
		return
	}

	if hostile != nil && (n.HasEffect(effect.ChickenHeart) || n.Coward()) {
		startle(n, hostile)
		return
	}

	if hostile != nil && n.Aggressive() && !n.HasJobKind(job.KillJob) {
		n.AbortCurrentJob(false)
		n.QueueJob(killJob(hostile))
		return
	}

	if n.SeesFire() && !n.HasEffect(effect.Panic) && !n.HasJobKind(job.PourWaterJob) {
		n.SetThreat(n.FireLocation())
		n.AddEffect(effect.Panic)
	}
}

// dousable reports whether n holds a container with water in it.
func dousable(n *npc.NPC) bool {
	reg := n.Env().Registry
	for _, id := range []entity.ID{n.MainHand(), n.Carrying()} {
		if it, ok := reg.Item(id); ok && it.IsContainer() && it.Water > 0 {
			return true
		}
	}
	return false
}

// AnimalReactor is the instinct of wild animals.
type AnimalReactor struct{}

// React makes aggressive animals tear down foreign constructions and attack
// enemies, cowards flee from enemies, attacked animals turn aggressive and
// everyone fears fire.
func (AnimalReactor) React(n *npc.NPC) {
	n.ScanSurroundings(false)
	env := n.Env()

	if n.Attacker() >= 0 && !n.Coward() && !n.Aggressive() {
		n.Rage()
	}

	hostile := firstHostile(n)
	if hostile != nil && n.Coward() {
		startle(n, hostile)
		return
	}

	if n.Aggressive() && !n.HasJobKind(job.KillJob) {
		if hostile != nil {
			n.AbortCurrentJob(false)
			n.QueueJob(killJob(hostile))
			return
		}
		for _, id := range n.NearConstructions() {
			c, ok := env.Registry.Construction(id)
			if !ok || c.Faction == n.Faction() || !n.Position().Adjacent(c.Pos) {
				continue
			}
			n.QueueJob(job.NewInternal("Destroy "+c.Name, job.High, job.KillJob).Add(
				job.On(job.Kill, c.Pos, c.ID),
			))
			return
		}
	}

	if n.SeesFire() && !n.HasEffect(effect.Panic) {
		n.SetThreat(n.FireLocation())
		n.AddEffect(effect.Panic)
	}
}

// firstHostile returns the closest enemy agent seen by the last scan.
func firstHostile(n *npc.NPC) *npc.NPC {
	var best *npc.NPC
	for _, id := range n.NearNPCs() {
		other, ok := lookup(n.Env(), id)
		if !ok || !n.IsHostile(other) {
			continue
		}
		if best == nil || other.Position().Distance(n.Position()) < best.Position().Distance(n.Position()) {
			best = other
		}
	}
	return best
}

// startle makes n panic at from, dropping what it was doing.
func startle(n *npc.NPC, from *npc.NPC) {
	n.SetThreat(from.Position())
	if n.HasEffect(effect.Panic) {
		return
	}
	if n.AddEffect(effect.Panic); !n.HasEffect(effect.Panic) {
		return
	}
	if cur, ok := n.CurrentJob(); ok && cur.Kind != job.FleeJob {
		n.AbortCurrentJob(false)
	}
}
