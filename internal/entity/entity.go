// Package entity is the arena of everything on the map that is not a tile:
// items, containers, constructions, nature objects and stockpiles. Entities are
// referred to by stable integer IDs; a lookup on a destroyed ID reports absence.
package entity

import (
	"strings"
)

// ID is a stable handle into the Registry arena.
type ID int

// None is the null handle.
const None ID = -1

// Valid reports whether id could refer to an entity.
func (id ID) Valid() bool { return id >= 0 }

// Category indexes the item category name table.
type Category int

// NoCategory means "no category requirement".
const NoCategory Category = -1

// Well-known category names, registered by NewRegistry in this order.
const (
	CatDrink         = "Drink"
	CatFood          = "Food"
	CatPreparedFood  = "Prepared food"
	CatBucket        = "Bucket"
	CatContainer     = "Container"
	CatArmor         = "Armor"
	CatQuiver        = "Quiver"
	CatEarth         = "Earth"
	CatAxe           = "Axe"
	CatRangedWeapon  = "Ranged weapon"
	CatWeapon        = "Weapon"
	CatAmmo          = "Ammunition"
	CatCorpse        = "Corpse"
	CatWood          = "Wood"
	CatIron          = "Iron"
	CatSeed          = "Seed"
	CatPlant         = "Plant"
	CatInventory     = "Inventory"
	CatBogIronSource = "Bog iron"
)

var wellKnown = []string{
	CatDrink, CatFood, CatPreparedFood, CatBucket, CatContainer, CatArmor,
	CatQuiver, CatEarth, CatAxe, CatRangedWeapon, CatWeapon, CatAmmo, CatCorpse,
	CatWood, CatIron, CatSeed, CatPlant, CatInventory, CatBogIronSource,
}

// categoryTable maps names to categories case-insensitively.
type categoryTable struct {
	names  []string
	byName map[string]Category
}

func newCategoryTable() *categoryTable {
	ct := &categoryTable{byName: make(map[string]Category)}
	for _, name := range wellKnown {
		ct.register(name)
	}
	return ct
}

func (ct *categoryTable) register(name string) Category {
	key := strings.ToLower(name)
	if c, ok := ct.byName[key]; ok {
		return c
	}
	c := Category(len(ct.names))
	ct.names = append(ct.names, name)
	ct.byName[key] = c
	return c
}

func (ct *categoryTable) lookup(name string) (Category, bool) {
	c, ok := ct.byName[strings.ToLower(name)]
	return c, ok
}

func (ct *categoryTable) name(c Category) string {
	if c < 0 || int(c) >= len(ct.names) {
		return ""
	}
	return ct.names[c]
}
