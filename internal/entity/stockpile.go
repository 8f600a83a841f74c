package entity

import (
	"slices"

	"github.com/aristath/colony/internal/coord"
)

// Stockpile is a zone of spots where items of allowed categories are stored.
type Stockpile struct {
	ID      ID
	Name    string
	spots   []coord.Coordinate
	allowed map[Category]bool
	items   map[coord.Coordinate]ID
	// reserved maps a spot to the category it was reserved for.
	reserved map[coord.Coordinate]Category
}

// Spots returns the stockpile area.
func (s *Stockpile) Spots() []coord.Coordinate { return slices.Clone(s.spots) }

// Allows reports whether items of category c may be stored here.
func (s *Stockpile) Allows(c Category) bool { return s.allowed[c] }

// Allow toggles storage permission for c.
func (s *Stockpile) Allow(c Category, on bool) { s.allowed[c] = on }

// Contains reports whether c is one of the stockpile's spots.
func (s *Stockpile) Contains(c coord.Coordinate) bool {
	return slices.Contains(s.spots, c)
}

// ItemAt returns the item stored on spot c.
func (s *Stockpile) ItemAt(c coord.Coordinate) ID {
	if id, ok := s.items[c]; ok {
		return id
	}
	return None
}

// SpotReserved reports whether spot c is promised to a job.
func (s *Stockpile) SpotReserved(c coord.Coordinate) bool {
	_, ok := s.reserved[c]
	return ok
}

// FreeSpot returns the first empty, unreserved spot that accepts category c.
func (s *Stockpile) FreeSpot(c Category) (coord.Coordinate, bool) {
	if !s.Allows(c) {
		return coord.Undefined, false
	}
	for _, spot := range s.spots {
		if _, taken := s.items[spot]; taken {
			continue
		}
		if _, res := s.reserved[spot]; res {
			continue
		}
		return spot, true
	}
	return coord.Undefined, false
}

func (s *Stockpile) store(spot coord.Coordinate, id ID) {
	s.items[spot] = id
	delete(s.reserved, spot)
}

func (s *Stockpile) unstore(id ID) {
	for spot, held := range s.items {
		if held == id {
			delete(s.items, spot)
			return
		}
	}
}
