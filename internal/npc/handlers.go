package npc

import (
	"fmt"

	"github.com/aristath/colony/internal/coord"
	"github.com/aristath/colony/internal/effect"
	"github.com/aristath/colony/internal/entity"
	"github.com/aristath/colony/internal/job"
	"github.com/aristath/colony/internal/world"
)

// handler advances one task by one think cycle. TaskContinue keeps the
// agent on the task; anything else is passed to TaskFinished with msg.
type handler func(n *NPC, t job.Task) (job.TaskResult, string)

var handlers = map[job.Action]handler{
	job.Move:             (*NPC).doMove,
	job.MoveAdjacent:     (*NPC).doMoveAdjacent,
	job.MoveNear:         (*NPC).doMoveNear,
	job.Wait:             (*NPC).doWait,
	job.Build:            (*NPC).doBuild,
	job.Take:             (*NPC).doTake,
	job.Drop:             (*NPC).doDrop,
	job.PutIn:            (*NPC).doPutIn,
	job.Drink:            (*NPC).doDrink,
	job.Eat:              (*NPC).doEat,
	job.Find:             (*NPC).doFind,
	job.Use:              (*NPC).doUse,
	job.Harvest:          (*NPC).doHarvest,
	job.Fell:             (*NPC).doFell,
	job.HarvestWildPlant: (*NPC).doFell,
	job.Kill:             (*NPC).doKill,
	job.FleeMap:          (*NPC).doFleeMap,
	job.Sleep:            (*NPC).doSleep,
	job.Dismantle:        (*NPC).doDismantle,
	job.Wield:            (*NPC).doWield,
	job.Wear:             (*NPC).doWear,
	job.BogIron:          (*NPC).doBogIron,
	job.StockpileItem:    (*NPC).doStockpileItem,
	job.Quiver:           (*NPC).doQuiver,
	job.Fill:             (*NPC).doFill,
	job.Pour:             (*NPC).doPour,
	job.Dig:              (*NPC).doDig,
	job.Forget:           (*NPC).doForget,
	job.Unwield:          (*NPC).doUnwield,
	job.GetAngry:         (*NPC).doGetAngry,
	job.CalmDown:         (*NPC).doCalmDown,
	job.StartFire:        (*NPC).doStartFire,
	job.Repair:           (*NPC).doRepair,
	job.FillDitch:        (*NPC).doFillDitch,
}

func moveFailed(r job.TaskResult) bool {
	return r == job.TaskFailFatal || r == job.TaskFailNonFatal
}

// doMove walks to the target tile. The path is searched once, on entry.
func (n *NPC) doMove(job.Task) (job.TaskResult, string) {
	target := n.currentTarget()
	if !n.env.Map.IsWalkable(target) {
		return job.TaskFailFatal, "(MOVE)Target unwalkable"
	}
	if n.pos == target {
		return job.TaskSuccess, ""
	}
	if !n.taskBegun {
		n.taskBegun = true
		n.findPath(target)
	}
	switch {
	case moveFailed(n.lastMove):
		return n.lastMove, "(MOVE)Could not find path"
	case n.lastMove == job.PathEmpty:
		return job.TaskFailFatal, "(MOVE)No path to target"
	}
	return job.TaskContinue, ""
}

// doMoveAdjacent walks next to the task's entity or tile.
func (n *NPC) doMoveAdjacent(t job.Task) (job.TaskResult, string) {
	target := n.currentTarget()
	if pos, ok := n.targetPosition(n.currentEntity()); ok {
		target = pos
	}
	if target.IsUndefined() {
		return job.TaskFailFatal, "(MOVEADJACENT)No target"
	}
	if n.pos.Adjacent(target) {
		return job.TaskSuccess, ""
	}
	if !n.taskBegun {
		n.taskBegun = true
		adj := n.env.Map.FindClosestAdjacent(n.pos, target, n.faction)
		if adj.IsUndefined() {
			return job.TaskFailFatal, "(MOVEADJACENT)No walkable adjacent tiles"
		}
		n.findPath(adj)
	}
	switch {
	case moveFailed(n.lastMove):
		return n.lastMove, "(MOVEADJACENT)Could not find path"
	case n.lastMove == job.PathEmpty:
		return job.TaskFailFatal, "(MOVEADJACENT)No path to target"
	}
	return job.TaskContinue, ""
}

// doMoveNear swaps itself for a MOVE to a safe tile near the target,
// preferring tiles with a line of sight to it.
func (n *NPC) doMoveNear(job.Task) (job.TaskResult, string) {
	target := n.currentTarget()
	if target.IsUndefined() {
		return job.TaskFailFatal, "(MOVENEAR)No target"
	}
	m := n.env.Map
	w := n.env.Tuning.Work
	for pass := 0; pass < 2; pass++ {
		for i := 0; i < w.MoveNearSamples; i++ {
			c := m.Shrink(m.RandomInRadius(n.env.Rand, target, w.MoveNearRadius))
			if !n.nearTileOK(c) {
				continue
			}
			if pass == 0 && !m.LineOfSight(target, c) {
				continue
			}
			j, _ := n.CurrentJob()
			j.Tasks[n.taskIndex] = job.At(job.Move, c)
			return job.TaskContinue, ""
		}
	}
	return job.TaskFailFatal, "(MOVENEAR)No walkable target found"
}

func (n *NPC) nearTileOK(c coord.Coordinate) bool {
	m := n.env.Map
	return m.IsWalkable(c) && !m.IsUnbridgedWater(c) && !m.IsDangerous(c, n.faction)
}

// doWait idles for Target.X cycles.
func (n *NPC) doWait(t job.Task) (job.TaskResult, string) {
	n.timer++
	if n.timer > t.Target.X {
		return job.TaskSuccess, ""
	}
	return job.TaskContinue, ""
}

func (n *NPC) doBuild(job.Task) (job.TaskResult, string) {
	c, ok := n.env.Registry.Construction(n.currentEntity())
	if !ok {
		return job.TaskFailFatal, "(BUILD)Construction does not exist"
	}
	if !n.pos.Adjacent(c.Pos) {
		return job.TaskFailFatal, "(BUILD)Not adjacent to target"
	}
	n.AddEffect(effect.Working)
	switch c.Build() {
	case entity.BuildDone:
		n.env.Map.SetConstruction(c.Pos, c.ID, c.Is(entity.TagWall))
		n.env.announce(fmt.Sprintf("%s completed", c.Name))
		return job.TaskSuccess, ""
	case entity.BuildNoMaterial:
		return job.TaskFailFatal, "(BUILD)Missing materials"
	}
	return job.TaskContinue, ""
}

func (n *NPC) doTake(job.Task) (job.TaskResult, string) {
	id := n.currentEntity()
	reg := n.env.Registry
	if _, ok := reg.Item(id); !ok {
		return job.TaskFailFatal, "(TAKE)No target entity"
	}
	if pos, _ := reg.Position(id); pos != n.pos {
		return job.TaskFailFatal, "(TAKE)Item not found"
	}
	reg.TakeOut(id)
	if !n.PickupItem(id) {
		return job.TaskFailFatal, "(TAKE)Cannot carry item"
	}
	return job.TaskSuccess, ""
}

func (n *NPC) doDrop(job.Task) (job.TaskResult, string) {
	if n.carried != entity.None {
		n.DropItem(n.carried)
	}
	return job.TaskSuccess, ""
}

func (n *NPC) doPutIn(job.Task) (job.TaskResult, string) {
	if n.carried == entity.None {
		return job.TaskFailFatal, "(PUTIN)Not carrying an item"
	}
	reg := n.env.Registry
	target := n.currentEntity()
	box, ok := reg.Item(target)
	if !ok {
		return job.TaskFailFatal, "(PUTIN)Target does not exist"
	}
	pos, _ := reg.Position(target)
	if !n.pos.Adjacent(pos) {
		return job.TaskFailFatal, "(PUTIN)Not adjacent to container"
	}
	if !box.IsContainer() {
		return job.TaskFailFatal, "(PUTIN)Target not a container"
	}
	// The space this job was promised is used up by the item itself.
	if j, ok := n.CurrentJob(); ok {
		if c, _, held := j.ReservedSpace(); held && c == target {
			j.UnreserveSpace()
		}
	}
	if !reg.PutIn(target, n.carried) {
		return job.TaskFailFatal, "(PUTIN)Container full"
	}
	n.carried = entity.None
	return job.TaskSuccess, ""
}

// doDrink drinks the carried item over several cycles, or sips from an
// adjacent water tile until thirst is gone.
func (n *NPC) doDrink(job.Task) (job.TaskResult, string) {
	threshold := n.env.Tuning.Needs.ThirstThreshold
	if n.carried != entity.None {
		if n.timer = n.consume(n.carried); n.timer == 0 {
			return job.TaskSuccess, ""
		}
	}
	if n.timer == 0 {
		target := n.currentTarget()
		if n.env.Map.Water(target) > world.DrinkableDepth && n.pos.Adjacent(target) {
			n.AddEffect(effect.Drinking)
			n.thirst -= threshold / 10
			if n.thirst < 0 {
				return job.TaskSuccess, ""
			}
			return job.TaskContinue, ""
		}
		return job.TaskFailFatal, "(DRINK)Nothing to drink"
	}
	n.AddEffect(effect.Drinking)
	n.thirst -= min(threshold/5, n.timer)
	n.timer -= threshold / 5
	if n.timer <= 0 {
		n.timer = 0
		return job.TaskSuccess, ""
	}
	return job.TaskContinue, ""
}

// doEat eats the carried item over several cycles. With nothing in hand
// the agent looks around for food or a corpse and queues fetching it.
func (n *NPC) doEat(job.Task) (job.TaskResult, string) {
	reg := n.env.Registry
	perCycle := n.env.Tuning.Work.EatPerCycle
	if n.carried != entity.None {
		id := n.carried
		it, _ := reg.Item(id)
		yields := it.Yields
		pos := n.pos
		n.timer = n.consume(id)
		if n.timer == 0 {
			n.timer = 100
		}
		for _, y := range yields {
			reg.Spawn(y, pos)
		}
	}
	if n.timer == 0 {
		food, corpse := reg.MustCategory(entity.CatFood), reg.MustCategory(entity.CatCorpse)
		for _, c := range append([]coord.Coordinate{n.pos}, n.pos.Neighbours()...) {
			for _, id := range reg.ItemsAt(c) {
				it, _ := reg.Item(id)
				if it.Reserved || (!it.IsCategory(food) && !it.IsCategory(corpse)) {
					continue
				}
				j, _ := n.CurrentJob()
				j.Add(job.At(job.Move, c), job.On(job.Take, c, id), job.NewTask(job.Eat))
				return job.TaskSuccess, ""
			}
		}
		return job.TaskFailFatal, "(EAT)No food"
	}
	n.AddEffect(effect.Eating)
	n.hunger -= min(perCycle, n.timer)
	n.timer -= perCycle
	if n.timer <= 0 {
		n.timer = 0
		return job.TaskSuccess, ""
	}
	return job.TaskContinue, ""
}

func (n *NPC) doFind(t job.Task) (job.TaskResult, string) {
	reg := n.env.Registry
	var flags entity.FindFlags
	if t.Flags&job.FlagNotFull != 0 {
		flags |= entity.NotFull
	}
	if t.Flags&job.FlagEmpty != 0 {
		flags |= entity.Empty
	}
	if t.Flags&job.FlagMostDecayed != 0 {
		flags |= entity.MostDecayed
	}
	near := t.Target
	if near.IsUndefined() {
		near = n.pos
	}
	id := reg.FindItem(t.ItemCategory, near, flags)
	if id == entity.None {
		return job.TaskFailFatal, fmt.Sprintf("(FIND)Failed to find %s", reg.CategoryName(t.ItemCategory))
	}
	n.foundItem = id
	if n.faction == PlayerFaction {
		j, _ := n.CurrentJob()
		if n.taskIndex < j.ToolTasks() {
			j.ReserveTool(reg, id)
		} else {
			j.ReserveEntity(reg, id)
		}
	}
	return job.TaskSuccess, ""
}

func (n *NPC) doUse(job.Task) (job.TaskResult, string) {
	c, ok := n.env.Registry.Construction(n.currentEntity())
	if !ok {
		return job.TaskFailFatal, "(USE)Construction does not exist"
	}
	n.AddEffect(effect.Working)
	switch pct := c.Use(); {
	case pct >= 100:
		for _, p := range c.Products {
			n.env.Registry.Spawn(p, c.Pos)
		}
		return job.TaskSuccess, ""
	case pct < 0:
		return job.TaskFailFatal, "(USE)Cannot use construction"
	}
	return job.TaskContinue, ""
}

// doHarvest turns a carried plant into its fruit, keeping the first one in
// hand when it is to be stockpiled next.
func (n *NPC) doHarvest(job.Task) (job.TaskResult, string) {
	reg := n.env.Registry
	plant, ok := reg.Item(n.carried)
	if !ok {
		return job.TaskFailFatal, "(HARVEST)Carrying nonexistent item"
	}
	yields := plant.Yields
	reg.Remove(plant.ID)
	n.carried = entity.None
	for i, y := range yields {
		fruit := reg.Spawn(y, n.pos)
		if i == 0 && n.nextTaskIs(job.StockpileItem) {
			n.PickupItem(fruit.ID)
		}
	}
	return job.TaskSuccess, ""
}

// doFell works a tree or wild plant down and spawns what it leaves.
func (n *NPC) doFell(t job.Task) (job.TaskResult, string) {
	reg := n.env.Registry
	nat, ok := reg.Nature(n.currentEntity())
	if !ok {
		return job.TaskFailFatal, fmt.Sprintf("(%s)No nature object to work on", t.Action)
	}
	n.AddEffect(effect.Working)
	var left int
	if t.Action == job.Fell {
		left = nat.Fell()
	} else {
		left = nat.Harvest()
	}
	if left > 0 {
		return job.TaskContinue, ""
	}
	for i, comp := range nat.Components {
		it := reg.Spawn(comp, nat.Pos)
		if i == 0 && n.nextTaskIs(job.StockpileItem) {
			n.PickupItem(it.ID)
		}
	}
	reg.RemoveNature(nat.ID)
	return job.TaskSuccess, ""
}

// doKill attacks the target in melee or at range, chasing it otherwise.
func (n *NPC) doKill(t job.Task) (job.TaskResult, string) {
	reg := n.env.Registry
	id := n.currentEntity()
	victim, isAgent := n.agent(int(id))
	if isAgent && (victim.dead || victim.escaped || victim == n) {
		return job.TaskSuccess, ""
	}
	cons, isCons := reg.Construction(id)
	if !isAgent && !isCons {
		return job.TaskSuccess, ""
	}
	var target coord.Coordinate
	if isAgent {
		target = victim.pos
	} else {
		target = cons.Pos
	}

	if n.pos.Adjacent(target) {
		if isAgent {
			n.Hit(victim)
		} else {
			n.HitConstruction(cons)
		}
		return job.TaskContinue, ""
	}
	if ammo, ok := n.canFire(); ok && target.Distance(n.pos) <= n.env.Tuning.Work.SightRange &&
		n.env.Map.LineOfSight(n.pos, target) {
		var hit *NPC
		if isAgent {
			hit = victim
		}
		n.fireAt(ammo, target, hit)
		return job.TaskContinue, ""
	}

	if !n.taskBegun || n.env.chance(2*n.env.Tuning.UpdatesPerSecond) {
		n.taskBegun = true
		dest := n.env.Map.FindClosestAdjacent(n.pos, target, n.faction)
		if dest.IsUndefined() {
			dest = target
		}
		n.findPath(dest)
		return job.TaskContinue, ""
	}
	if moveFailed(n.lastMove) {
		return n.lastMove, "(KILL)Could not reach target"
	}
	return job.TaskContinue, ""
}

// doFleeMap heads for the nearest map edge and leaves there.
func (n *NPC) doFleeMap(job.Task) (job.TaskResult, string) {
	m := n.env.Map
	if m.OnEdge(n.pos) {
		n.Escape()
		return job.TaskContinue, ""
	}
	edge := m.ClosestEdge(n.pos)
	j, _ := n.CurrentJob()
	if m.IsWalkable(edge) {
		j.Tasks[n.taskIndex] = job.At(job.Move, edge)
	} else {
		j.Tasks[n.taskIndex] = job.At(job.MoveNear, edge)
	}
	j.Add(job.NewTask(job.FleeMap))
	return job.TaskContinue, ""
}

func (n *NPC) doSleep(job.Task) (job.TaskResult, string) {
	n.AddEffect(effect.Sleeping)
	n.AddEffect(effect.BadSleep)
	n.weariness -= n.env.Tuning.Work.SleepRecovery
	if n.weariness > 0 {
		return job.TaskContinue, ""
	}
	n.weariness = 0
	if c, ok := n.env.Registry.Construction(n.currentEntity()); ok && c.Is(entity.TagBed) {
		n.effects.Remove(effect.BadSleep)
	}
	return job.TaskSuccess, ""
}

func (n *NPC) doDismantle(job.Task) (job.TaskResult, string) {
	reg := n.env.Registry
	c, ok := reg.Construction(n.currentEntity())
	if !ok {
		return job.TaskFailFatal, "(DISMANTLE)Construction does not exist"
	}
	n.AddEffect(effect.Working)
	if !c.Damage(n.env.Tuning.Work.DismantleDamage) {
		return job.TaskContinue, ""
	}
	reg.RemoveConstruction(c.ID)
	n.env.Map.SetConstruction(c.Pos, entity.None, false)
	return job.TaskSuccess, ""
}

func (n *NPC) doWield(job.Task) (job.TaskResult, string) {
	if n.carried == entity.None {
		return job.TaskFailFatal, "(WIELD)Not carrying an item"
	}
	item := n.carried
	if n.mainHand != entity.None {
		n.DropItem(n.mainHand)
	}
	n.mainHand = item
	n.carried = entity.None
	return job.TaskSuccess, ""
}

func (n *NPC) doWear(job.Task) (job.TaskResult, string) {
	reg := n.env.Registry
	it, ok := reg.Item(n.carried)
	if !ok {
		return job.TaskFailFatal, "(WEAR)Not carrying an item"
	}
	switch {
	case it.IsCategory(reg.MustCategory(entity.CatArmor)):
		if n.armor != entity.None {
			n.DropItem(n.armor)
		}
		n.armor = it.ID
	case it.IsCategory(reg.MustCategory(entity.CatQuiver)):
		if n.quiver != entity.None {
			n.DropItem(n.quiver)
		}
		n.quiver = it.ID
	default:
		return job.TaskFailFatal, "(WEAR)Item cannot be worn"
	}
	n.carried = entity.None
	return job.TaskSuccess, ""
}

func (n *NPC) doBogIron(job.Task) (job.TaskResult, string) {
	if n.env.Map.TileType(n.pos) != world.Bog {
		return job.TaskFailFatal, "(BOGIRON)Not on a bog"
	}
	n.AddEffect(effect.Working)
	if !n.env.chance(n.env.Tuning.UpdatesPerSecond * 15) {
		return job.TaskContinue, ""
	}
	iron := n.env.Registry.Spawn("Bog iron", n.pos)
	if n.nextTaskIs(job.StockpileItem) {
		n.PickupItem(iron.ID)
	}
	return job.TaskSuccess, ""
}

// doStockpileItem hands the carried item to a new haul job that runs right
// after this one and inherits its remaining tasks.
func (n *NPC) doStockpileItem(job.Task) (job.TaskResult, string) {
	if n.carried == entity.None {
		return job.TaskFailFatal, "(STOCKPILEITEM)Not carrying an item"
	}
	cur, _ := n.CurrentJob()
	item := n.carried
	n.DropItem(item)
	haul := job.NewStockpileJob(n.env.Registry, item, cur.Priority())
	if haul == nil {
		return job.TaskFailFatal, "(STOCKPILEITEM)No stockpile spot"
	}
	haul.Internal = true
	if rest := n.taskIndex + 1; rest < len(cur.Tasks) {
		haul.Add(cur.Tasks[rest:]...)
		cur.Tasks = cur.Tasks[:rest]
	}
	n.insertJob(1, haul)
	return job.TaskSuccess, ""
}

func (n *NPC) doQuiver(job.Task) (job.TaskResult, string) {
	if n.carried == entity.None {
		return job.TaskFailFatal, "(QUIVER)Not carrying an item"
	}
	if n.quiver == entity.None {
		return job.TaskFailFatal, "(QUIVER)No quiver"
	}
	if !n.env.Registry.PutIn(n.quiver, n.carried) {
		return job.TaskFailFatal, "(QUIVER)Quiver full"
	}
	n.carried = entity.None
	return job.TaskSuccess, ""
}

// container returns the carried or wielded container.
func (n *NPC) container() (*entity.Item, bool) {
	reg := n.env.Registry
	for _, id := range []entity.ID{n.carried, n.mainHand} {
		if it, ok := reg.Item(id); ok && it.IsContainer() {
			return it, true
		}
	}
	return nil, false
}

// doFill scoops water, or failing that filth, from the target tile.
func (n *NPC) doFill(job.Task) (job.TaskResult, string) {
	box, ok := n.container()
	if !ok {
		return job.TaskFailFatal, "(FILL)Not carrying a container"
	}
	reg, m := n.env.Registry, n.env.Map
	w := n.env.Tuning.Work
	target := n.currentTarget()
	if depth := m.Water(target); depth > 0 && (box.Filth == 0 || box.Water > 0) {
		taken := reg.AddWater(box.ID, min(w.FillWater, depth))
		if taken == 0 {
			return job.TaskFailFatal, "(FILL)Container full"
		}
		m.AddWater(target, -taken)
		return job.TaskSuccess, ""
	}
	if depth := m.Filth(target); depth > 0 && (box.Water == 0 || box.Filth > 0) {
		taken := reg.AddFilth(box.ID, min(w.FillFilth, depth))
		if taken == 0 {
			return job.TaskFailFatal, "(FILL)Container full"
		}
		m.AddFilth(target, -taken)
		return job.TaskSuccess, ""
	}
	return job.TaskFailFatal, "(FILL)Nothing to fill container with"
}

// doPour empties the carried or wielded container into another container
// or onto the target tile, dousing fire with water.
func (n *NPC) doPour(t job.Task) (job.TaskResult, string) {
	src, ok := n.container()
	if !ok {
		return job.TaskFailFatal, "(POUR)Not carrying a container"
	}
	reg, m := n.env.Registry, n.env.Map
	if dst, ok := reg.Item(t.Entity); ok && dst.IsContainer() {
		src.Water -= reg.AddWater(dst.ID, src.Water)
		src.Filth -= reg.AddFilth(dst.ID, src.Filth)
		return job.TaskSuccess, ""
	}
	target := n.currentTarget()
	if !m.IsInside(target) {
		return job.TaskFailFatal, "(POUR)Nowhere to pour"
	}
	water, filth := reg.Drain(src.ID)
	if water > 0 {
		if fire := m.Fire(target); fire > 0 {
			m.SetFire(target, max(0, fire-water))
		}
		m.AddWater(target, water)
	}
	if filth > 0 {
		m.AddFilth(target, filth)
	}
	return job.TaskSuccess, ""
}

// doDig turns the target tile into a ditch, leaving some earth.
func (n *NPC) doDig(job.Task) (job.TaskResult, string) {
	n.AddEffect(effect.Working)
	n.timer++
	if n.timer < n.env.Tuning.Work.DigCycles {
		return job.TaskContinue, ""
	}
	target := n.currentTarget()
	n.env.Map.SetTileType(target, world.Ditch)
	for range 1 + n.env.Rand.IntN(3) {
		n.env.Registry.Spawn("Earth", n.pos)
	}
	return job.TaskSuccess, ""
}

func (n *NPC) doForget(job.Task) (job.TaskResult, string) {
	n.foundItem = entity.None
	return job.TaskSuccess, ""
}

// doUnwield puts down the wielded item and remembers it for a later TAKE.
func (n *NPC) doUnwield(job.Task) (job.TaskResult, string) {
	if n.mainHand != entity.None {
		n.foundItem = n.mainHand
		n.DropItem(n.mainHand)
	}
	return job.TaskSuccess, ""
}

func (n *NPC) doGetAngry(job.Task) (job.TaskResult, string) {
	n.aggressive = true
	return job.TaskSuccess, ""
}

func (n *NPC) doCalmDown(job.Task) (job.TaskResult, string) {
	n.aggressive = false
	return job.TaskSuccess, ""
}

func (n *NPC) doStartFire(job.Task) (job.TaskResult, string) {
	n.AddEffect(effect.Working)
	n.timer++
	if n.timer < n.env.Tuning.Work.FireCycles {
		return job.TaskContinue, ""
	}
	n.env.Map.SetFire(n.currentTarget(), 10)
	return job.TaskSuccess, ""
}

// doRepair restores a construction, using up the carried material once it
// is whole.
func (n *NPC) doRepair(job.Task) (job.TaskResult, string) {
	c, ok := n.env.Registry.Construction(n.currentEntity())
	if !ok {
		return job.TaskFailFatal, "(REPAIR)Construction does not exist"
	}
	n.AddEffect(effect.Working)
	if !c.Repair() {
		return job.TaskContinue, ""
	}
	if n.carried != entity.None {
		n.env.Registry.Remove(n.carried)
		n.carried = entity.None
	}
	return job.TaskSuccess, ""
}

// doFillDitch turns a ditch into mud with the carried earth.
func (n *NPC) doFillDitch(job.Task) (job.TaskResult, string) {
	reg, m := n.env.Registry, n.env.Map
	earth, ok := reg.Item(n.carried)
	if !ok || !earth.IsCategory(reg.MustCategory(entity.CatEarth)) {
		return job.TaskFailFatal, "(FILLDITCH)Not carrying earth"
	}
	target := n.currentTarget()
	if m.TileType(target) != world.Ditch {
		return job.TaskFailFatal, "(FILLDITCH)Target not a ditch"
	}
	if !n.pos.Adjacent(target) {
		return job.TaskFailFatal, "(FILLDITCH)Not adjacent to target"
	}
	n.AddEffect(effect.Working)
	n.timer++
	if n.timer < n.env.Tuning.Work.FillDitchCycles {
		return job.TaskContinue, ""
	}
	reg.Remove(earth.ID)
	n.carried = entity.None
	m.SetTileType(target, world.Mud)
	return job.TaskSuccess, ""
}
