package job

import (
	"github.com/aristath/colony/internal/coord"
	"github.com/aristath/colony/internal/entity"
)

// NewMoveJob sends an agent to target.
func NewMoveJob(target coord.Coordinate) *Job {
	return New("Move", Med).Add(At(Move, target))
}

// NewBuildJob walks next to a construction and builds it.
func NewBuildJob(c *entity.Construction, p Priority) *Job {
	j := New("Build "+c.Name, p).Add(
		On(MoveAdjacent, c.Pos, c.ID),
		On(Build, c.Pos, c.ID),
	)
	j.ConnectToEntity(c.ID)
	return j
}

// NewHaulJob fetches an item and files it into a reserved stockpile spot.
// Returns nil when the item or the spot cannot be claimed.
func NewHaulJob(reg *entity.Registry, item entity.ID, p Priority) *Job {
	return haulJob(reg, item, p, true)
}

// NewStockpileJob files an item an agent just put down. The item is only
// claimed when nobody holds it already, since the job that produced it may
// still own the claim. Returns nil when no stockpile spot is free.
func NewStockpileJob(reg *entity.Registry, item entity.ID, p Priority) *Job {
	it, ok := reg.Item(item)
	if !ok {
		return nil
	}
	return haulJob(reg, item, p, !it.Reserved)
}

func haulJob(reg *entity.Registry, item entity.ID, p Priority, claim bool) *Job {
	it, ok := reg.Item(item)
	if !ok {
		return nil
	}
	pos, _ := reg.Position(item)
	j := New("Haul "+it.Name, p)
	j.Kind = StockpileJob
	if claim && !j.ReserveEntity(reg, item) {
		return nil
	}

	// A stored container with room takes the item before a bare spot does.
	if !it.IsContainer() && it.Bulk > 0 {
		if box, found := reg.FindStockpileContainer(it.Categories, it.Bulk, pos); found && j.ReserveSpace(reg, box, it.Bulk) {
			boxPos, _ := reg.Position(box)
			return j.Add(
				On(Move, pos, item),
				On(Take, pos, item),
				At(Move, boxPos),
				On(PutIn, boxPos, box),
			)
		}
	}

	sp, spot, cat, found := reg.FindStockpileSpot(it.Categories, pos)
	if !found || !j.ReserveSpot(reg, sp, spot, cat) {
		j.UnreserveAll()
		return nil
	}
	return j.Add(
		On(Move, pos, item),
		On(Take, pos, item),
		At(Move, spot),
		At(Drop, spot),
	)
}

// NewFellJob cuts down a marked tree with an axe.
func NewFellJob(reg *entity.Registry, tree *entity.NatureObject, p Priority) *Job {
	j := New("Fell "+tree.Name, p).Add(
		On(MoveAdjacent, tree.Pos, tree.ID),
		On(Fell, tree.Pos, tree.ID),
	)
	j.SetRequiredTool(reg.MustCategory(entity.CatAxe))
	j.ConnectToEntity(tree.ID)
	return j
}

// NewDigJob digs a ditch at c.
func NewDigJob(m GroundMarker, c coord.Coordinate, p Priority) *Job {
	j := New("Dig", p).Add(At(MoveAdjacent, c), At(Dig, c))
	j.MarkGround(m, c)
	return j
}
