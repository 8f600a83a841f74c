package sim

import (
	"math/rand/v2"

	"github.com/aristath/colony/internal/coord"
	"github.com/aristath/colony/internal/world"
)

// campSpotTries bounds the random search for a walkable camp tile.
const campSpotTries = 10

// Camp is the area idle colonists drift back to. It grows to cover the
// buildings placed around it.
type Camp struct {
	m      world.Map
	center coord.Coordinate
	radius int
	sumX   int
	sumY   int
	count  int
}

// NewCamp creates a camp around center.
func NewCamp(m world.Map, center coord.Coordinate, radius int) *Camp {
	return &Camp{m: m, center: center, radius: max(radius, 1)}
}

// Center returns the gathering point.
func (c *Camp) Center() coord.Coordinate { return c.center }

// Radius returns how far from the center the camp extends.
func (c *Camp) Radius() int { return c.radius }

// AddBuilding recentres the camp on the mean of its buildings and widens
// it to reach pos.
func (c *Camp) AddBuilding(pos coord.Coordinate) {
	c.sumX += pos.X
	c.sumY += pos.Y
	c.count++
	c.center = coord.Pt(c.sumX/c.count, c.sumY/c.count)
	if d := c.center.Distance(pos); d > c.radius {
		c.radius = d
	}
}

// RandomSpot picks a walkable tile inside the camp, falling back to the
// center.
func (c *Camp) RandomSpot(rng *rand.Rand) coord.Coordinate {
	for range campSpotTries {
		p := c.m.RandomInRadius(rng, c.center, c.radius)
		if c.m.IsWalkable(p) {
			return p
		}
	}
	return c.center
}
