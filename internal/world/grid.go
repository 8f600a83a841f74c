// Package world is the tile map the engine queries: walkability, occupancy,
// line of sight, fluids, fire, territory and per-faction danger.
package world

import (
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/aristath/colony/internal/coord"
	"github.com/aristath/colony/internal/entity"
)

// TileType is the terrain kind of a tile.
type TileType int

const (
	Grass TileType = iota
	Ditch
	Mud
	Bog
	Rock
	Sand
)

// Depth at which a water tile is deep enough to drink from.
const DrinkableDepth = 2

type tile struct {
	walkable     bool
	moveCost     int
	construction entity.ID
	blocking     bool
	water        int
	filth        int
	fire         int
	bridge       bool
	territory    bool
	marked       bool
	kind         TileType
	danger       uint64
	npcs         []int
}

// Grid is the concrete map. Path workers read it concurrently with the tick
// thread's writes, so every method takes the grid lock briefly.
type Grid struct {
	mu     sync.RWMutex
	width  int
	height int
	tiles  []tile
	hazard *HazardCache
}

// NewGrid creates a walkable grass map of the given size.
func NewGrid(width, height int) *Grid {
	g := &Grid{
		width:  width,
		height: height,
		tiles:  make([]tile, width*height),
	}
	for i := range g.tiles {
		g.tiles[i] = tile{walkable: true, moveCost: 1, construction: entity.None}
	}
	g.hazard = NewHazardCache(width, height)
	return g
}

// Hazards returns the grid's hazard cache.
func (g *Grid) Hazards() *HazardCache { return g.hazard }

// Width returns the map width in tiles.
func (g *Grid) Width() int { return g.width }

// Height returns the map height in tiles.
func (g *Grid) Height() int { return g.height }

// IsInside reports whether c is on the map.
func (g *Grid) IsInside(c coord.Coordinate) bool {
	return c.InRect(coord.Zero, coord.Pt(g.width, g.height))
}

// Shrink clamps c onto the map.
func (g *Grid) Shrink(c coord.Coordinate) coord.Coordinate {
	return c.Clamp(coord.Zero, coord.Pt(g.width, g.height))
}

func (g *Grid) at(c coord.Coordinate) *tile {
	return &g.tiles[c.Y*g.width+c.X]
}

func (g *Grid) read(c coord.Coordinate, fn func(t *tile)) bool {
	if !g.IsInside(c) {
		return false
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	fn(g.at(c))
	return true
}

func (g *Grid) write(c coord.Coordinate, fn func(t *tile)) {
	if !g.IsInside(c) {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(g.at(c))
}

func walkable(t *tile) bool { return t.walkable && !t.blocking }

// IsWalkable reports whether an agent can stand on c.
func (g *Grid) IsWalkable(c coord.Coordinate) bool {
	ok := false
	g.read(c, func(t *tile) { ok = walkable(t) })
	return ok
}

// MoveCost returns the cost of entering c, or 0 when it cannot be entered.
func (g *Grid) MoveCost(c coord.Coordinate) int {
	cost := 0
	g.read(c, func(t *tile) {
		if walkable(t) {
			cost = t.moveCost
			if t.water > DrinkableDepth && !t.bridge {
				cost += 4
			}
		}
	})
	return cost
}

// GetConstruction returns the construction standing on c, or None.
func (g *Grid) GetConstruction(c coord.Coordinate) entity.ID {
	id := entity.None
	g.read(c, func(t *tile) { id = t.construction })
	return id
}

// Water returns the water depth on c.
func (g *Grid) Water(c coord.Coordinate) int {
	v := 0
	g.read(c, func(t *tile) { v = t.water })
	return v
}

// Filth returns the filth depth on c.
func (g *Grid) Filth(c coord.Coordinate) int {
	v := 0
	g.read(c, func(t *tile) { v = t.filth })
	return v
}

// Fire returns the fire intensity on c.
func (g *Grid) Fire(c coord.Coordinate) int {
	v := 0
	g.read(c, func(t *tile) { v = t.fire })
	return v
}

// IsUnbridgedWater reports deep water with no bridge over it.
func (g *Grid) IsUnbridgedWater(c coord.Coordinate) bool {
	ok := false
	g.read(c, func(t *tile) { ok = t.water > DrinkableDepth && !t.bridge })
	return ok
}

// IsTerritory reports whether c belongs to the player's territory.
func (g *Grid) IsTerritory(c coord.Coordinate) bool {
	ok := false
	g.read(c, func(t *tile) { ok = t.territory })
	return ok
}

// GroundMarked reports whether c carries a designation (dig, pour, fill).
func (g *Grid) GroundMarked(c coord.Coordinate) bool {
	ok := false
	g.read(c, func(t *tile) { ok = t.marked })
	return ok
}

// TileType returns the terrain kind of c.
func (g *Grid) TileType(c coord.Coordinate) TileType {
	kind := Rock
	g.read(c, func(t *tile) { kind = t.kind })
	return kind
}

// IsDangerous reads the live danger flags of c for faction.
func (g *Grid) IsDangerous(c coord.Coordinate, faction int) bool {
	ok := false
	g.read(c, func(t *tile) { ok = tileDangerous(t, faction) })
	return ok
}

// IsDangerousCache reads the hazard cache under its shared lock.
func (g *Grid) IsDangerousCache(c coord.Coordinate, faction int) bool {
	return g.hazard.Dangerous(c, faction)
}

func tileDangerous(t *tile, faction int) bool {
	if t.fire > 0 {
		return true
	}
	return faction >= 0 && faction < 64 && t.danger&(1<<uint(faction)) != 0
}

// NPCsAt returns the agents standing on c.
func (g *Grid) NPCsAt(c coord.Coordinate) []int {
	var out []int
	g.read(c, func(t *tile) { out = slices.Clone(t.npcs) })
	return out
}

// Enter records agent uid on c.
func (g *Grid) Enter(c coord.Coordinate, uid int) {
	g.write(c, func(t *tile) {
		if !slices.Contains(t.npcs, uid) {
			t.npcs = append(t.npcs, uid)
		}
	})
}

// Leave removes agent uid from c.
func (g *Grid) Leave(c coord.Coordinate, uid int) {
	g.write(c, func(t *tile) {
		if i := slices.Index(t.npcs, uid); i >= 0 {
			t.npcs = slices.Delete(t.npcs, i, i+1)
		}
	})
}

// SetWalkable toggles whether c can be entered at all.
func (g *Grid) SetWalkable(c coord.Coordinate, ok bool) {
	g.write(c, func(t *tile) { t.walkable = ok })
}

// SetMoveCost sets the base cost of entering c.
func (g *Grid) SetMoveCost(c coord.Coordinate, cost int) {
	g.write(c, func(t *tile) { t.moveCost = max(1, cost) })
}

// SetConstruction places or clears (entity.None) a construction on c.
// Blocking constructions make the tile unwalkable and opaque.
func (g *Grid) SetConstruction(c coord.Coordinate, id entity.ID, blocking bool) {
	g.write(c, func(t *tile) {
		t.construction = id
		t.blocking = blocking && id != entity.None
	})
}

// SetWater sets the water depth on c.
func (g *Grid) SetWater(c coord.Coordinate, depth int) {
	g.write(c, func(t *tile) { t.water = max(0, depth) })
}

// AddWater adjusts water depth on c by delta.
func (g *Grid) AddWater(c coord.Coordinate, delta int) {
	g.write(c, func(t *tile) { t.water = max(0, t.water+delta) })
}

// SetFilth sets the filth depth on c.
func (g *Grid) SetFilth(c coord.Coordinate, depth int) {
	g.write(c, func(t *tile) { t.filth = max(0, depth) })
}

// AddFilth adjusts filth depth on c by delta.
func (g *Grid) AddFilth(c coord.Coordinate, delta int) {
	g.write(c, func(t *tile) { t.filth = max(0, t.filth+delta) })
}

// SetFire sets the fire intensity on c.
func (g *Grid) SetFire(c coord.Coordinate, intensity int) {
	g.write(c, func(t *tile) { t.fire = max(0, intensity) })
}

// SetBridge toggles a bridge over c.
func (g *Grid) SetBridge(c coord.Coordinate, ok bool) {
	g.write(c, func(t *tile) { t.bridge = ok })
}

// SetTerritory toggles territory ownership of c.
func (g *Grid) SetTerritory(c coord.Coordinate, ok bool) {
	g.write(c, func(t *tile) { t.territory = ok })
}

// MarkGround designates c for a ground job.
func (g *Grid) MarkGround(c coord.Coordinate) {
	g.write(c, func(t *tile) { t.marked = true })
}

// UnmarkGround clears the designation on c.
func (g *Grid) UnmarkGround(c coord.Coordinate) {
	g.write(c, func(t *tile) { t.marked = false })
}

// SetTileType changes the terrain kind of c.
func (g *Grid) SetTileType(c coord.Coordinate, kind TileType) {
	g.write(c, func(t *tile) {
		t.kind = kind
		if kind == Rock {
			t.walkable = false
		}
	})
}

// MarkDanger flags c as hazardous for faction until ClearDanger.
func (g *Grid) MarkDanger(c coord.Coordinate, faction int) {
	if faction < 0 || faction >= 64 {
		return
	}
	g.write(c, func(t *tile) { t.danger |= 1 << uint(faction) })
}

// ClearDanger removes the hazard flag of faction on c.
func (g *Grid) ClearDanger(c coord.Coordinate, faction int) {
	if faction < 0 || faction >= 64 {
		return
	}
	g.write(c, func(t *tile) { t.danger &^= 1 << uint(faction) })
}

// LineOfSight reports whether nothing opaque lies strictly between a and b.
func (g *Grid) LineOfSight(a, b coord.Coordinate) bool {
	if !g.IsInside(a) || !g.IsInside(b) {
		return false
	}
	line := coord.Line(a, b)
	if len(line) <= 2 {
		return true
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, p := range line[1 : len(line)-1] {
		if !walkable(g.at(p)) {
			return false
		}
	}
	return true
}

// nearest scans outward in rings from c for a tile satisfying pred.
func (g *Grid) nearest(from coord.Coordinate, pred func(t *tile) bool) coord.Coordinate {
	g.mu.RLock()
	defer g.mu.RUnlock()
	limit := max(g.width, g.height)
	for r := 0; r <= limit; r++ {
		for y := from.Y - r; y <= from.Y+r; y++ {
			for x := from.X - r; x <= from.X+r; x++ {
				if max(abs(x-from.X), abs(y-from.Y)) != r {
					continue
				}
				p := coord.Pt(x, y)
				if g.IsInside(p) && pred(g.at(p)) {
					return p
				}
			}
		}
	}
	return coord.Undefined
}

// FindWater returns the nearest tile holding drinkable water, or Undefined.
func (g *Grid) FindWater(from coord.Coordinate) coord.Coordinate {
	return g.nearest(from, func(t *tile) bool { return t.water > DrinkableDepth })
}

// FindFilth returns the nearest tile holding filth, or Undefined.
func (g *Grid) FindFilth(from coord.Coordinate) coord.Coordinate {
	return g.nearest(from, func(t *tile) bool { return t.filth > 0 })
}

// FindClosestAdjacent returns the walkable, safe neighbour of target closest
// to from, or Undefined.
func (g *Grid) FindClosestAdjacent(from, target coord.Coordinate, faction int) coord.Coordinate {
	best, bestDist := coord.Undefined, 0
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, n := range target.Neighbours() {
		if !g.IsInside(n) {
			continue
		}
		t := g.at(n)
		if !walkable(t) || tileDangerous(t, faction) {
			continue
		}
		if d := n.Distance(from); best.IsUndefined() || d < bestDist {
			best, bestDist = n, d
		}
	}
	return best
}

// FindEquivalentMoveTarget picks a free tile adjacent to both current and
// next when another agent blocks next. It returns next unchanged when none is found.
func (g *Grid) FindEquivalentMoveTarget(current, next, goal coord.Coordinate, uid int) coord.Coordinate {
	if next == goal {
		return next
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.IsInside(next) {
		return next
	}
	blocked := slices.ContainsFunc(g.at(next).npcs, func(o int) bool { return o != uid })
	if !blocked {
		return next
	}
	for _, n := range current.Neighbours() {
		if n == next || !n.Adjacent(next) || !g.IsInside(n) {
			continue
		}
		t := g.at(n)
		if walkable(t) && len(t.npcs) == 0 {
			return n
		}
	}
	return next
}

// RandomInRadius returns a random on-map tile within r of c.
func (g *Grid) RandomInRadius(rng *rand.Rand, c coord.Coordinate, r int) coord.Coordinate {
	if r <= 0 {
		return g.Shrink(c)
	}
	p := coord.Pt(c.X+rng.IntN(2*r+1)-r, c.Y+rng.IntN(2*r+1)-r)
	return g.Shrink(p)
}

// ClosestEdge returns the nearest map border tile to c.
func (g *Grid) ClosestEdge(c coord.Coordinate) coord.Coordinate {
	c = g.Shrink(c)
	left, right := c.X, g.width-1-c.X
	top, bottom := c.Y, g.height-1-c.Y
	switch min(left, right, top, bottom) {
	case left:
		return coord.Pt(0, c.Y)
	case right:
		return coord.Pt(g.width-1, c.Y)
	case top:
		return coord.Pt(c.X, 0)
	default:
		return coord.Pt(c.X, g.height-1)
	}
}

// OnEdge reports whether c lies on the map border.
func (g *Grid) OnEdge(c coord.Coordinate) bool {
	return c.OnEdge(coord.Zero, coord.Pt(g.width, g.height))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
