package entity

import (
	"slices"

	"github.com/aristath/colony/internal/coord"
	"github.com/aristath/colony/internal/effect"
)

// Item is a portable object. An item with a positive Capacity is a container
// and may hold other items, or water and filth.
type Item struct {
	ID         ID
	Name       string
	Pos        coord.Coordinate
	Categories []Category
	Faction    int

	Bulk      int
	Nutrition int
	Condition int
	Decay     int
	Damage    int

	// Ranged weapons fire items of the Ammo category.
	Ranged bool
	Ammo   Category
	// Yields lists template names spawned when the item is eaten.
	Yields []string
	// Effects are applied to whoever consumes the item.
	Effects []effect.Type
	// Cures are removed from whoever consumes the item.
	Cures []effect.Type

	// Holder is the container this item sits in, or None when on the ground.
	Holder   ID
	Reserved bool

	Capacity int
	// Inventory marks a container owned by an agent; its contents are not stock.
	Inventory bool
	contents  []ID
	reserved  int
	Water     int
	Filth     int
}

// IsCategory reports whether the item belongs to c.
func (it *Item) IsCategory(c Category) bool {
	return slices.Contains(it.Categories, c)
}

// IsContainer reports whether the item can hold things.
func (it *Item) IsContainer() bool { return it.Capacity > 0 }

// Contents returns a copy of the contained item IDs.
func (it *Item) Contents() []ID { return slices.Clone(it.contents) }

// ContainsWater reports the water volume held.
func (it *Item) ContainsWater() int { return it.Water }

// ContainsFilth reports the filth volume held.
func (it *Item) ContainsFilth() int { return it.Filth }

// Empty reports whether the container holds nothing at all.
func (it *Item) Empty() bool {
	return len(it.contents) == 0 && it.Water == 0 && it.Filth == 0
}

// ReservedSpace reports the bulk currently promised to pending jobs.
func (it *Item) ReservedSpace() int { return it.reserved }

func (it *Item) fluidBulk() int { return it.Water + it.Filth }
