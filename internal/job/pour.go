package job

import (
	"github.com/aristath/colony/internal/coord"
	"github.com/aristath/colony/internal/effect"
	"github.com/aristath/colony/internal/entity"
)

// WaterFinder locates the nearest drinkable water tile.
type WaterFinder interface {
	FindWater(from coord.Coordinate) coord.Coordinate
}

// NewPourWaterJob builds a job that carries water to location and pours it,
// typically to douse a fire. A stocked container of water is used when it is
// closer than open water; otherwise a bucket is required to fill from the
// nearest water tile. Returns nil when there is no water anywhere.
func NewPourWaterJob(reg *entity.Registry, m WaterFinder, location coord.Coordinate, p Priority) *Job {
	j := New("Pour water", p)
	j.Kind = PourWaterJob
	j.SetAttemptMax(1)

	waterTile := m.FindWater(location)
	tileDist := -1
	if !waterTile.IsUndefined() {
		tileDist = location.Distance(waterTile)
	}

	fromContainer := false
	if box := reg.FindWaterContainer(location); box != entity.None {
		pos, _ := reg.Position(box)
		it, _ := reg.Item(box)
		if (tileDist < 0 || location.Distance(pos) < tileDist) && it.IsCategory(reg.MustCategory(entity.CatContainer)) {
			for _, inside := range it.Contents() {
				j.ReserveEntity(reg, inside)
			}
			j.ReserveEntity(reg, box)
			j.Add(At(Move, pos), On(Take, pos, box))
			fromContainer = true
		}
	}

	if !fromContainer {
		if tileDist < 0 {
			return nil
		}
		j.SetRequiredTool(reg.MustCategory(entity.CatBucket))
		j.Add(At(MoveAdjacent, waterTile), At(Fill, waterTile))
	}

	j.Add(At(MoveAdjacent, location), At(Pour, location))
	if fromContainer {
		j.Add(NewTask(StockpileItem))
	}
	j.DisregardTerritory()
	j.AllowFire()
	j.StatusEffects = append(j.StatusEffects, effect.Brave)
	return j
}
