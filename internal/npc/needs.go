package npc

import (
	"github.com/aristath/colony/internal/coord"
	"github.com/aristath/colony/internal/effect"
	"github.com/aristath/colony/internal/entity"
	"github.com/aristath/colony/internal/job"
	"github.com/aristath/colony/internal/world"
)

// Update advances the agent's body by one tick: effects wear off, needs
// grow and get acted on, and environmental effects are applied.
func (n *NPC) Update() {
	if n.dead || n.escaped {
		return
	}
	n.effects.Tick()
	tn := n.env.Tuning.Needs

	if n.needs {
		n.thirst++
		n.hunger++
		n.toggleEffect(effect.Thirst, n.thirst >= tn.ThirstThreshold)
		n.toggleEffect(effect.Hunger, n.hunger >= tn.HungerThreshold)

		if n.thirst > tn.ThirstThreshold && n.env.chance(tn.NeedChance) {
			n.HandleThirst()
		} else if n.thirst > 2*tn.ThirstThreshold {
			n.Kill("died from thirst")
			return
		}
		if n.hunger > tn.HungerThreshold && n.env.chance(tn.NeedChance) {
			n.HandleHunger()
		} else if n.hunger > tn.DeathHunger {
			n.Kill("starved to death")
			return
		}

		n.weariness++
		if n.weariness >= tn.WearinessThreshold {
			n.AddEffect(effect.Drowsy)
			if n.weariness > tn.WearinessThreshold {
				n.HandleWeariness()
			}
		} else {
			n.effects.Remove(effect.Drowsy)
		}
	}

	m := n.env.Map
	if m.IsUnbridgedWater(n.pos) && m.Water(n.pos) > world.DrinkableDepth {
		n.AddEffect(effect.Swim)
		n.effects.Remove(effect.Burning)
	} else {
		n.effects.Remove(effect.Swim)
	}
	n.toggleEffect(effect.Carrying, n.carried != entity.None)

	if n.effects.Has(effect.Burning) {
		if n.env.chance(n.env.Tuning.UpdatesPerSecond) {
			n.effects.Remove(effect.Panic)
			n.FailAllJobs("burning")
			jump := job.NewInternal("Jump into water", job.VeryHigh, job.FleeJob)
			if water := m.FindWater(n.pos); !water.IsUndefined() {
				jump.Add(job.At(job.Move, water))
				n.QueueJob(jump)
			}
		} else if !n.effects.Has(effect.Panic) {
			n.AddEffect(effect.Panic)
		}
	}

	if j, ok := n.CurrentJob(); ok {
		for _, e := range j.StatusEffects {
			n.AddEffect(e)
		}
	}

	if n.needs && n.env.chance(n.env.Tuning.UpdatesPerSecond*10) {
		n.seekCures()
	}
}

func (n *NPC) toggleEffect(t effect.Type, on bool) {
	if on {
		n.AddEffect(t)
	} else {
		n.effects.Remove(t)
	}
}

// HandleThirst queues a drink: a stocked drink when there is one, else the
// nearest water tile.
func (n *NPC) HandleThirst() {
	if n.HasJobKind(job.DrinkJob) {
		return
	}
	reg := n.env.Registry
	wasIdle := len(n.jobs) == 0
	drink := job.NewInternal("Drink", job.Med, job.DrinkJob)

	if item := reg.FindItem(reg.MustCategory(entity.CatDrink), n.pos, 0); item != entity.None && drink.ReserveEntity(reg, item) {
		pos, _ := reg.Position(item)
		drink.Add(job.At(job.Move, pos), job.On(job.Take, pos, item), job.NewTask(job.Drink))
	} else {
		water := n.env.Map.FindWater(n.pos)
		if water.IsUndefined() {
			return
		}
		adj := n.env.Map.FindClosestAdjacent(n.pos, water, n.faction)
		if adj.IsUndefined() {
			return
		}
		drink.Add(job.At(job.Move, adj), job.At(job.Drink, water))
	}
	n.QueueJob(drink)
	if wasIdle {
		n.env.Jobs.NPCNotWaiting(n.id)
	}
}

// HandleHunger queues a meal, preferring prepared food and the most decayed
// item. A starving agent with no food goes after the weakest agent nearby.
func (n *NPC) HandleHunger() {
	starving := n.hunger > n.env.Tuning.Needs.StarvingHunger
	if j, ok := n.CurrentJob(); ok && starving && j.Kind != job.EatJob {
		n.TaskFinished(job.TaskFailNonFatal, "starving")
	}
	if n.HasJobKind(job.EatJob) {
		return
	}
	reg := n.env.Registry
	wasIdle := len(n.jobs) == 0

	food := reg.FindItem(reg.MustCategory(entity.CatPreparedFood), n.pos, entity.MostDecayed)
	if food == entity.None {
		food = reg.FindItem(reg.MustCategory(entity.CatFood), n.pos, entity.MostDecayed)
	}

	if food == entity.None {
		if !starving {
			return
		}
		n.ScanSurroundings(false)
		var weakest *NPC
		for _, id := range n.nearNPCs {
			other, ok := n.agent(id)
			if !ok || other.dead {
				continue
			}
			if weakest == nil || other.health < weakest.health {
				weakest = other
			}
		}
		if weakest == nil {
			return
		}
		eat := job.NewInternal("Eat", job.High, job.EatJob)
		kill := job.On(job.Kill, weakest.pos, entity.ID(weakest.id))
		kill.Flags = 1
		eat.Add(job.NewTask(job.GetAngry), kill, job.NewTask(job.Eat), job.NewTask(job.CalmDown))
		n.QueueJob(eat)
		if wasIdle {
			n.env.Jobs.NPCNotWaiting(n.id)
		}
		return
	}

	eat := job.NewInternal("Eat", job.Med, job.EatJob)
	if !eat.ReserveEntity(reg, food) {
		return
	}
	pos, _ := reg.Position(food)
	eat.Add(job.At(job.Move, pos), job.On(job.Take, pos, food), job.NewTask(job.Eat))
	n.QueueJob(eat)
	if wasIdle {
		n.env.Jobs.NPCNotWaiting(n.id)
	}
}

// HandleWeariness queues sleep, in a free bed when there is one. Colonists
// outside a squad put their tools away first.
func (n *NPC) HandleWeariness() {
	if n.HasJobKind(job.SleepJob) || n.HasJobKind(job.RemoveEffectJob) {
		return
	}
	reg := n.env.Registry
	wasIdle := len(n.jobs) == 0
	sleep := job.NewInternal("Sleep", job.Med, job.SleepJob)

	if !n.InSquad() && n.mainHand != entity.None {
		sleep.Add(job.NewTask(job.Unwield), job.NewTask(job.Take), job.NewTask(job.StockpileItem))
	}

	var bed *entity.Construction
	for _, id := range reg.Constructions() {
		c, _ := reg.Construction(id)
		if !c.Is(entity.TagBed) || !c.Built() || c.Reserved {
			continue
		}
		if bed == nil || c.Pos.Distance(n.pos) < bed.Pos.Distance(n.pos) {
			bed = c
		}
	}
	if bed != nil && sleep.ReserveEntity(reg, bed.ID) {
		sleep.Add(job.On(job.Move, bed.Pos, bed.ID), job.On(job.Sleep, bed.Pos, bed.ID))
	} else {
		sleep.Add(job.At(job.Sleep, n.pos))
	}
	n.QueueJob(sleep)
	if wasIdle {
		n.env.Jobs.NPCNotWaiting(n.id)
	}
}

// seekCures queues a job to consume an item that removes a negative effect.
func (n *NPC) seekCures() {
	if n.HasJobKind(job.RemoveEffectJob) {
		return
	}
	reg := n.env.Registry
	for _, e := range n.effects.List() {
		if !e.Type.Negative() {
			continue
		}
		cure := reg.FindCure(e.Type, n.pos)
		if cure == entity.None {
			continue
		}
		it, _ := reg.Item(cure)
		j := job.NewInternal("Cure "+e.Type.String(), job.Med, job.RemoveEffectJob)
		if !j.ReserveEntity(reg, cure) {
			continue
		}
		pos, _ := reg.Position(cure)
		consume := job.Eat
		if it.IsCategory(reg.MustCategory(entity.CatDrink)) {
			consume = job.Drink
		}
		j.Add(job.At(job.Move, pos), job.On(job.Take, pos, cure), job.NewTask(consume))
		n.QueueJob(j)
		return
	}
}

// fleeTarget picks a walkable tile away from threat, trying long then
// shorter hops.
func (n *NPC) fleeTarget(threat coord.Coordinate) coord.Coordinate {
	dir := coord.Pt(sign(n.pos.X-threat.X), sign(n.pos.Y-threat.Y))
	if dir == coord.Zero {
		dir = coord.Directions()[n.env.Rand.IntN(8)]
	}
	for _, dist := range []int{5, 3, 1} {
		c := n.env.Map.Shrink(coord.Pt(n.pos.X+dir.X*dist, n.pos.Y+dir.Y*dist))
		if c != n.pos && n.env.Map.IsWalkable(c) {
			return c
		}
	}
	return coord.Undefined
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
