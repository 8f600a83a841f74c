package entity

import "github.com/aristath/colony/internal/coord"

// NatureObject is a tree, bush or wild plant that can be felled or harvested.
type NatureObject struct {
	ID     ID
	Name   string
	Pos    coord.Coordinate
	Tree   bool
	Marked bool

	// Condition counts down while felling.
	Condition int
	// HarvestTime counts down while harvesting a wild plant.
	HarvestTime int
	// Components are template names spawned when felled or harvested.
	Components []string
}

// Fell removes one point of condition and reports the remainder.
func (n *NatureObject) Fell() int {
	n.Condition--
	return n.Condition
}

// Harvest advances harvesting and reports the cycles left.
func (n *NatureObject) Harvest() int {
	n.HarvestTime--
	return n.HarvestTime
}
