package npc

import (
	"github.com/aristath/colony/internal/coord"
	"github.com/aristath/colony/internal/effect"
	"github.com/aristath/colony/internal/job"
	"github.com/aristath/colony/internal/pathfinding"
)

// stepCost is the movement budget one tile costs.
const stepCost = 100

// Think runs the agent's decision making for one update. Movement advances
// every update; the job itself advances once per think cycle.
func (n *NPC) Think() {
	if n.dead || n.escaped {
		return
	}
	n.dropRevokedJobs()
	if n.updateVelocity() {
		return
	}
	n.lastMove = n.Move()

	ups := n.env.Tuning.UpdatesPerSecond
	n.timeCount += n.env.Tuning.ThinkSpeed
	for n.timeCount >= ups && !n.dead && !n.escaped {
		n.timeCount -= ups

		if n.reactor != nil && n.env.Rand.IntN(2) == 0 {
			n.reactor.React(n)
		}
		n.dropRevokedJobs()
		if n.aggressive {
			n.hitAdjacentEnemies()
		}

		if t, ok := n.CurrentTask(); ok && t.Action == job.Kill {
			if tpos, ok := n.targetPosition(n.currentEntity()); ok &&
				!n.env.Map.LineOfSight(n.pos, tpos) && n.env.Rand.IntN(4) == 0 {
				n.TaskFinished(job.TaskFailNonFatal, "(KILL)Target lost")
			}
		}

		if len(n.jobs) > 0 && !n.jobBegun {
			n.jobBegun = true
			if !n.ValidateCurrentJob() {
				n.TaskFinished(job.TaskFailFatal, "job no longer valid")
			}
		}

		t, ok := n.CurrentTask()
		if !ok {
			if len(n.jobs) > 0 {
				n.TaskFinished(job.TaskFailFatal, "job has no tasks")
				continue
			}
			n.idle()
			continue
		}
		h, known := handlers[t.Action]
		if !known {
			n.TaskFinished(job.TaskFailFatal, "unknown action "+t.Action.String())
			continue
		}
		if result, msg := h(n, t); result != job.TaskContinue {
			n.TaskFinished(result, msg)
		}
	}
}

// idle finds the agent something to do: a drunk stumbles, a panicking
// agent runs from the threat, otherwise its squad and then its faction
// are asked for work, and failing all that it loiters.
func (n *NPC) idle() {
	if n.effects.Has(effect.Drunk) {
		huh := job.NewInternal("Huh?", job.Med, job.IdleJob)
		huh.Add(job.At(job.MoveNear, n.pos))
		n.QueueJob(huh)
		return
	}
	if n.effects.Has(effect.Panic) && !n.threatLocation.IsUndefined() {
		if to := n.fleeTarget(n.threatLocation); !to.IsUndefined() {
			flee := job.NewInternal("Flee", job.High, job.FleeJob)
			flee.Add(job.At(job.Move, to))
			n.QueueJob(flee)
			return
		}
	}
	// Work found through the squad or faction takes the agent off the
	// job manager's waiting sets.
	if (n.squad != nil && n.squad.FindJob(n)) || (n.finder != nil && n.finder.FindJob(n)) {
		n.env.Jobs.NPCNotWaiting(n.id)
		return
	}

	loiter := job.NewInternal("Idle", job.Low, job.IdleJob)
	switch {
	case n.faction == PlayerFaction && n.env.Camp != nil:
		spot := n.env.Camp.Center()
		if n.env.Rand.IntN(8) == 7 {
			spot = n.env.Camp.RandomSpot(n.env.Rand)
		}
		loiter.Add(job.At(job.MoveNear, spot))
	default:
		loiter.Add(job.At(job.MoveNear, n.pos))
	}
	loiter.Add(job.At(job.Wait, coord.Pt(n.env.Rand.IntN(n.env.Tuning.IdleWaitMax+1), 0)))
	n.QueueJob(loiter)
}

// findPath starts a background search to target. Until it lands, Move
// reports TaskContinue.
func (n *NPC) findPath(target coord.Coordinate) {
	n.path = nil
	n.pathIndex = 0
	n.pathPending = true
	n.lastMove = job.TaskContinue
	n.env.Paths.Request(&n.tracker, pathfinding.Request{From: n.pos, To: target, Faction: n.faction})
}

// Move spends the movement budget walking the current path. It reports
// PathEmpty once the path is used up and no search is pending.
func (n *NPC) Move() job.TaskResult {
	if n.pathPending {
		res, ok := n.tracker.Poll()
		if !ok {
			return job.TaskContinue
		}
		n.pathPending = false
		if !res.Found {
			n.path = nil
			return job.TaskFailFatal
		}
		n.path, n.pathIndex, n.pathDanger = res.Path, 0, res.Dangerous
	}

	speed := n.env.Tuning.MoveSpeed
	if !n.run {
		speed /= 3
	}
	n.nextMove += speed

	m := n.env.Map
	for n.nextMove >= stepCost {
		n.nextMove -= stepCost
		if n.pathIndex >= len(n.path) {
			n.nextMove = 0
			return job.PathEmpty
		}
		next := n.path[n.pathIndex]
		if n.pathIndex < len(n.path)-1 {
			next = m.FindEquivalentMoveTarget(n.pos, next, n.path[len(n.path)-1], n.id)
		}
		if !n.pathDanger && m.IsDangerous(next, n.faction) {
			return job.TaskFailNonFatal
		}
		if !m.IsWalkable(next) {
			return job.TaskFailNonFatal
		}
		n.stepTo(next)
		n.pathIndex++
	}
	return job.TaskContinue
}

func (n *NPC) stepTo(c coord.Coordinate) {
	n.env.Map.Leave(n.pos, n.id)
	n.pos = c
	n.env.Map.Enter(c, n.id)
	n.env.Registry.SetPosition(n.inventory, c)
}

// Knockback sends the agent flying strength tiles in direction dir.
func (n *NPC) Knockback(dir coord.Coordinate, strength int) {
	if strength <= 0 || dir == coord.Zero {
		return
	}
	n.heading = coord.Pt(sign(dir.X), sign(dir.Y))
	n.flight = strength
	n.AddEffect(effect.Flying)
}

// updateVelocity moves a flying agent one tile and reports whether it was
// airborne. A grounded agent on an unwalkable tile tumbles to a free neighbour.
func (n *NPC) updateVelocity() bool {
	m := n.env.Map
	if n.flight <= 0 {
		if !m.IsWalkable(n.pos) {
			for _, c := range n.pos.Neighbours() {
				if m.IsInside(c) && m.IsWalkable(c) {
					n.stepTo(c)
					break
				}
			}
		}
		return false
	}
	n.flight--
	next := n.pos.Add(n.heading)
	if !m.IsInside(next) || !m.IsWalkable(next) {
		n.flight = 0
		n.effects.Remove(effect.Flying)
		n.AddEffect(effect.Concussion)
		n.Hurt(n.damage, -1)
		return true
	}
	n.stepTo(next)
	if n.flight == 0 {
		n.effects.Remove(effect.Flying)
		n.AddEffect(effect.Tripped)
	}
	return true
}
