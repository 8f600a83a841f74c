package pathfinding

import (
	"math"

	astar "github.com/beefsack/go-astar"

	"github.com/aristath/colony/internal/coord"
)

// Terrain is the read-only map surface searches run against. It must be safe
// for concurrent readers.
type Terrain interface {
	IsInside(c coord.Coordinate) bool
	IsWalkable(c coord.Coordinate) bool
	MoveCost(c coord.Coordinate) int
}

// search holds one A* run. Nodes are value types keyed by coordinate so
// go-astar's node map deduplicates them.
type search struct {
	terrain Terrain
}

type node struct {
	c coord.Coordinate
	s *search
}

func (n node) PathNeighbors() []astar.Pather {
	out := make([]astar.Pather, 0, 8)
	for _, d := range coord.Directions() {
		next := n.c.Add(d)
		if !n.s.terrain.IsWalkable(next) {
			continue
		}
		if d.X != 0 && d.Y != 0 && !n.s.canCutDiagonal(n.c, d) {
			continue
		}
		out = append(out, node{c: next, s: n.s})
	}
	return out
}

// canCutDiagonal forbids squeezing between two blocked orthogonal tiles.
func (s *search) canCutDiagonal(from, d coord.Coordinate) bool {
	return s.terrain.IsWalkable(coord.Pt(from.X+d.X, from.Y)) &&
		s.terrain.IsWalkable(coord.Pt(from.X, from.Y+d.Y))
}

func (n node) PathNeighborCost(to astar.Pather) float64 {
	t := to.(node)
	cost := float64(max(1, n.s.terrain.MoveCost(t.c)))
	if t.c.X != n.c.X && t.c.Y != n.c.Y {
		cost *= math.Sqrt2
	}
	return cost
}

// PathEstimatedCost is the octile distance, admissible for a minimum step cost of 1.
func (n node) PathEstimatedCost(to astar.Pather) float64 {
	t := to.(node)
	dx := math.Abs(float64(t.c.X - n.c.X))
	dy := math.Abs(float64(t.c.Y - n.c.Y))
	return (dx + dy) + (math.Sqrt2-2)*math.Min(dx, dy)
}

// findPath returns the steps from "from" to "to", excluding the start tile.
func findPath(t Terrain, from, to coord.Coordinate) ([]coord.Coordinate, bool) {
	if from == to {
		return nil, true
	}
	if !t.IsInside(to) || !t.IsWalkable(to) {
		return nil, false
	}
	s := &search{terrain: t}
	raw, _, found := astar.Path(node{c: from, s: s}, node{c: to, s: s})
	if !found {
		return nil, false
	}
	// go-astar returns goal first
	path := make([]coord.Coordinate, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		c := raw[i].(node).c
		if c == from {
			continue
		}
		path = append(path, c)
	}
	return path, true
}
