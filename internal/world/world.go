package world

import (
	"math/rand/v2"

	"github.com/aristath/colony/internal/coord"
	"github.com/aristath/colony/internal/entity"
)

// Map is the query and mutation surface the agent engine uses. Grid is the
// concrete implementation; tests may substitute their own.
type Map interface {
	Width() int
	Height() int
	IsInside(c coord.Coordinate) bool
	Shrink(c coord.Coordinate) coord.Coordinate
	IsWalkable(c coord.Coordinate) bool
	MoveCost(c coord.Coordinate) int
	GetConstruction(c coord.Coordinate) entity.ID
	LineOfSight(a, b coord.Coordinate) bool
	IsDangerous(c coord.Coordinate, faction int) bool
	IsDangerousCache(c coord.Coordinate, faction int) bool
	Water(c coord.Coordinate) int
	Filth(c coord.Coordinate) int
	Fire(c coord.Coordinate) int
	IsUnbridgedWater(c coord.Coordinate) bool
	IsTerritory(c coord.Coordinate) bool
	GroundMarked(c coord.Coordinate) bool
	TileType(c coord.Coordinate) TileType
	NPCsAt(c coord.Coordinate) []int
	FindWater(from coord.Coordinate) coord.Coordinate
	FindFilth(from coord.Coordinate) coord.Coordinate
	FindClosestAdjacent(from, target coord.Coordinate, faction int) coord.Coordinate
	FindEquivalentMoveTarget(current, next, goal coord.Coordinate, uid int) coord.Coordinate
	RandomInRadius(rng *rand.Rand, c coord.Coordinate, r int) coord.Coordinate
	ClosestEdge(c coord.Coordinate) coord.Coordinate
	OnEdge(c coord.Coordinate) bool

	Enter(c coord.Coordinate, uid int)
	Leave(c coord.Coordinate, uid int)
	AddWater(c coord.Coordinate, delta int)
	AddFilth(c coord.Coordinate, delta int)
	SetFire(c coord.Coordinate, intensity int)
	SetTileType(c coord.Coordinate, kind TileType)
	MarkGround(c coord.Coordinate)
	UnmarkGround(c coord.Coordinate)
	SetConstruction(c coord.Coordinate, id entity.ID, blocking bool)
}

var _ Map = (*Grid)(nil)
