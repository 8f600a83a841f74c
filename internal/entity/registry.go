package entity

import (
	"maps"
	"slices"

	"github.com/aristath/colony/internal/coord"
	"github.com/aristath/colony/internal/effect"
)

// FindFlags narrow FindItem.
type FindFlags uint8

const (
	// NotFull only matches containers with free space.
	NotFull FindFlags = 1 << iota
	// Empty only matches containers holding nothing.
	Empty
	// MostDecayed prefers the most decayed candidate over the nearest.
	MostDecayed
)

// Registry owns every entity. It is only touched from the simulation tick.
type Registry struct {
	next          ID
	items         map[ID]*Item
	constructions map[ID]*Construction
	nature        map[ID]*NatureObject
	stockpiles    map[ID]*Stockpile
	templates     map[string]Item
	categories    *categoryTable
}

// NewRegistry creates an empty registry with the well-known categories and
// the templates the task handlers spawn.
func NewRegistry() *Registry {
	r := &Registry{
		items:         make(map[ID]*Item),
		constructions: make(map[ID]*Construction),
		nature:        make(map[ID]*NatureObject),
		stockpiles:    make(map[ID]*Stockpile),
		templates:     make(map[string]Item),
		categories:    newCategoryTable(),
	}
	r.RegisterTemplate(Item{Name: "Earth", Categories: []Category{r.MustCategory(CatEarth)}, Bulk: 1})
	r.RegisterTemplate(Item{Name: "Bog iron", Categories: []Category{r.MustCategory(CatIron)}, Bulk: 1})
	r.RegisterTemplate(Item{Name: "Log", Categories: []Category{r.MustCategory(CatWood)}, Bulk: 2})
	return r
}

// RegisterCategory adds a category name, returning the existing one if known.
func (r *Registry) RegisterCategory(name string) Category {
	return r.categories.register(name)
}

// CategoryByName resolves a category name case-insensitively.
func (r *Registry) CategoryByName(name string) (Category, bool) {
	return r.categories.lookup(name)
}

// MustCategory resolves a category, registering it when unknown.
func (r *Registry) MustCategory(name string) Category {
	if c, ok := r.categories.lookup(name); ok {
		return c
	}
	return r.categories.register(name)
}

// CategoryName returns the display name of c.
func (r *Registry) CategoryName(c Category) string {
	return r.categories.name(c)
}

// RegisterTemplate makes t available to Spawn by name.
func (r *Registry) RegisterTemplate(t Item) {
	r.templates[t.Name] = t
}

func (r *Registry) alloc() ID {
	id := r.next
	r.next++
	return id
}

// NewID hands out an ID from the entity space for something the registry
// does not store, such as an agent.
func (r *Registry) NewID() ID { return r.alloc() }

// AddItem stores it loose in the arena and assigns its ID. Use PutIn to
// place it inside a container afterwards.
func (r *Registry) AddItem(it *Item) ID {
	it.ID = r.alloc()
	it.Holder = None
	r.items[it.ID] = it
	r.settle(it)
	return it.ID
}

// Spawn creates an item from a registered template at pos. Unknown names
// produce a plain one-bulk item.
func (r *Registry) Spawn(name string, pos coord.Coordinate) *Item {
	it := Item{Name: name, Bulk: 1}
	if t, ok := r.templates[name]; ok {
		it = t
		it.Categories = slices.Clone(t.Categories)
		it.Yields = slices.Clone(t.Yields)
		it.Effects = slices.Clone(t.Effects)
		it.Cures = slices.Clone(t.Cures)
		it.contents = nil
	}
	it.Pos = pos
	it.Holder = None
	it.Reserved = false
	r.AddItem(&it)
	return &it
}

// AddConstruction stores c and assigns its ID.
func (r *Registry) AddConstruction(c *Construction) ID {
	c.ID = r.alloc()
	r.constructions[c.ID] = c
	return c.ID
}

// AddNature stores n and assigns its ID.
func (r *Registry) AddNature(n *NatureObject) ID {
	n.ID = r.alloc()
	r.nature[n.ID] = n
	return n.ID
}

// AddStockpile creates a stockpile over spots accepting the given categories.
func (r *Registry) AddStockpile(name string, spots []coord.Coordinate, allowed ...Category) *Stockpile {
	sp := &Stockpile{
		ID:       r.alloc(),
		Name:     name,
		spots:    slices.Clone(spots),
		allowed:  make(map[Category]bool),
		items:    make(map[coord.Coordinate]ID),
		reserved: make(map[coord.Coordinate]Category),
	}
	for _, c := range allowed {
		sp.allowed[c] = true
	}
	r.stockpiles[sp.ID] = sp
	for _, id := range r.sortedItems() {
		it := r.items[id]
		if it.Holder == None && sp.Contains(it.Pos) {
			r.settle(it)
		}
	}
	return sp
}

// Item resolves id to a live item.
func (r *Registry) Item(id ID) (*Item, bool) {
	it, ok := r.items[id]
	return it, ok
}

// Construction resolves id to a live construction.
func (r *Registry) Construction(id ID) (*Construction, bool) {
	c, ok := r.constructions[id]
	return c, ok
}

// Nature resolves id to a live nature object.
func (r *Registry) Nature(id ID) (*NatureObject, bool) {
	n, ok := r.nature[id]
	return n, ok
}

// Stockpile resolves id to a live stockpile.
func (r *Registry) Stockpile(id ID) (*Stockpile, bool) {
	s, ok := r.stockpiles[id]
	return s, ok
}

// Exists reports whether id refers to any live entity.
func (r *Registry) Exists(id ID) bool {
	if _, ok := r.items[id]; ok {
		return true
	}
	if _, ok := r.constructions[id]; ok {
		return true
	}
	if _, ok := r.nature[id]; ok {
		return true
	}
	_, ok := r.stockpiles[id]
	return ok
}

// Name returns the display name of any live entity.
func (r *Registry) Name(id ID) string {
	switch {
	case r.items[id] != nil:
		return r.items[id].Name
	case r.constructions[id] != nil:
		return r.constructions[id].Name
	case r.nature[id] != nil:
		return r.nature[id].Name
	case r.stockpiles[id] != nil:
		return r.stockpiles[id].Name
	}
	return ""
}

// Position resolves the map position of any live entity. Items inside a
// container report the container's position.
func (r *Registry) Position(id ID) (coord.Coordinate, bool) {
	if it, ok := r.items[id]; ok {
		for depth := 0; it.Holder.Valid() && depth < 16; depth++ {
			holder, ok := r.items[it.Holder]
			if !ok {
				break
			}
			it = holder
		}
		return it.Pos, true
	}
	if c, ok := r.constructions[id]; ok {
		return c.Pos, true
	}
	if n, ok := r.nature[id]; ok {
		return n.Pos, true
	}
	if s, ok := r.stockpiles[id]; ok && len(s.spots) > 0 {
		return s.spots[0], true
	}
	return coord.Undefined, false
}

// SetPosition moves a free-standing entity, e.g. an agent's inventory.
func (r *Registry) SetPosition(id ID, pos coord.Coordinate) {
	if it, ok := r.items[id]; ok {
		it.Pos = pos
	}
}

// Remove destroys an entity. A removed container drops its contents where it stood.
func (r *Registry) Remove(id ID) {
	if it, ok := r.items[id]; ok {
		pos, _ := r.Position(id)
		r.detach(it)
		for _, child := range it.contents {
			if c, ok := r.items[child]; ok {
				c.Holder = None
				c.Pos = pos
				r.settle(c)
			}
		}
		delete(r.items, id)
		return
	}
	delete(r.constructions, id)
	delete(r.nature, id)
	delete(r.stockpiles, id)
}

// RemoveConstruction destroys a construction.
func (r *Registry) RemoveConstruction(id ID) { delete(r.constructions, id) }

// RemoveNature destroys a nature object.
func (r *Registry) RemoveNature(id ID) { delete(r.nature, id) }

func (r *Registry) sortedItems() []ID {
	return slices.Sorted(maps.Keys(r.items))
}

// Items returns all live item IDs in ascending order.
func (r *Registry) Items() []ID { return r.sortedItems() }

// Constructions returns all live construction IDs in ascending order.
func (r *Registry) Constructions() []ID {
	return slices.Sorted(maps.Keys(r.constructions))
}

// NatureObjects returns all live nature object IDs in ascending order.
func (r *Registry) NatureObjects() []ID {
	return slices.Sorted(maps.Keys(r.nature))
}

// Stockpiles returns all stockpile IDs in ascending order.
func (r *Registry) Stockpiles() []ID {
	return slices.Sorted(maps.Keys(r.stockpiles))
}

// ItemsAt returns the items lying loose on tile c.
func (r *Registry) ItemsAt(c coord.Coordinate) []ID {
	var out []ID
	for _, id := range r.sortedItems() {
		it := r.items[id]
		if it.Holder == None && !it.Inventory && it.Pos == c {
			out = append(out, id)
		}
	}
	return out
}

// ConstructionAt returns the construction standing on c.
func (r *Registry) ConstructionAt(c coord.Coordinate) (*Construction, bool) {
	for _, id := range r.Constructions() {
		if r.constructions[id].Pos == c {
			return r.constructions[id], true
		}
	}
	return nil, false
}

// StockpileAt returns the stockpile covering c.
func (r *Registry) StockpileAt(c coord.Coordinate) (*Stockpile, bool) {
	for _, id := range r.Stockpiles() {
		if r.stockpiles[id].Contains(c) {
			return r.stockpiles[id], true
		}
	}
	return nil, false
}

// inStock reports whether an item is reachable stock, i.e. not carried by an agent.
func (r *Registry) inStock(it *Item) bool {
	if it.Inventory {
		return false
	}
	for depth := 0; it.Holder.Valid() && depth < 16; depth++ {
		holder, ok := r.items[it.Holder]
		if !ok {
			return false
		}
		if holder.Inventory {
			return false
		}
		it = holder
	}
	return true
}

func (r *Registry) usedSpace(it *Item) int {
	used := it.fluidBulk()
	for _, child := range it.contents {
		if c, ok := r.items[child]; ok {
			used += c.Bulk
		}
	}
	return used
}

// FreeSpace reports the unreserved capacity left in a container.
func (r *Registry) FreeSpace(id ID) int {
	it, ok := r.items[id]
	if !ok || !it.IsContainer() {
		return 0
	}
	return it.Capacity - r.usedSpace(it) - it.reserved
}

// Full reports whether a container cannot take any more bulk.
func (r *Registry) Full(id ID) bool { return r.FreeSpace(id) <= 0 }

// FindItem returns the nearest unreserved stock item of category c that
// satisfies flags, or None.
func (r *Registry) FindItem(c Category, near coord.Coordinate, flags FindFlags) ID {
	best := None
	bestDist, bestDecay := 0, 0
	for _, id := range r.sortedItems() {
		it := r.items[id]
		if it.Reserved || !it.IsCategory(c) || !r.inStock(it) {
			continue
		}
		if flags&NotFull != 0 && (!it.IsContainer() || r.FreeSpace(id) <= 0) {
			continue
		}
		if flags&Empty != 0 && (!it.IsContainer() || !it.Empty() || it.reserved > 0) {
			continue
		}
		pos, _ := r.Position(id)
		dist := pos.Distance(near)
		switch {
		case best == None:
		case flags&MostDecayed != 0:
			if it.Decay < bestDecay || (it.Decay == bestDecay && dist >= bestDist) {
				continue
			}
		case dist >= bestDist:
			continue
		}
		best, bestDist, bestDecay = id, dist, it.Decay
	}
	return best
}

// Available counts unreserved stock items of category c.
func (r *Registry) Available(c Category) int {
	n := 0
	for _, it := range r.items {
		if !it.Reserved && it.IsCategory(c) && r.inStock(it) {
			n++
		}
	}
	return n
}

// FindStockpileSpot returns the nearest free stockpile spot that accepts
// any of the given categories.
func (r *Registry) FindStockpileSpot(cats []Category, near coord.Coordinate) (ID, coord.Coordinate, Category, bool) {
	bestSp, bestSpot, bestCat, bestDist := None, coord.Undefined, NoCategory, 0
	for _, sid := range r.Stockpiles() {
		sp := r.stockpiles[sid]
		for _, c := range cats {
			spot, ok := sp.FreeSpot(c)
			if !ok {
				continue
			}
			if d := spot.Distance(near); bestSp == None || d < bestDist {
				bestSp, bestSpot, bestCat, bestDist = sid, spot, c, d
			}
		}
	}
	return bestSp, bestSpot, bestCat, bestSp != None
}

// FindStockpileContainer returns the nearest container stored in a
// stockpile that accepts one of cats and still has bulk units unpromised.
// Containers holding fluids are skipped.
func (r *Registry) FindStockpileContainer(cats []Category, bulk int, near coord.Coordinate) (ID, bool) {
	best, bestDist := None, 0
	for _, sid := range r.Stockpiles() {
		sp := r.stockpiles[sid]
		if !slices.ContainsFunc(cats, sp.Allows) {
			continue
		}
		for _, spot := range sp.spots {
			id := sp.ItemAt(spot)
			box, ok := r.items[id]
			if !ok || !box.IsContainer() || box.Reserved || box.fluidBulk() > 0 || r.FreeSpace(id) < bulk {
				continue
			}
			if d := spot.Distance(near); best == None || d < bestDist {
				best, bestDist = id, d
			}
		}
	}
	return best, best != None
}

// detach removes it from its holder and from any stockpile spot.
func (r *Registry) detach(it *Item) {
	if it.Holder.Valid() {
		if holder, ok := r.items[it.Holder]; ok {
			if i := slices.Index(holder.contents, it.ID); i >= 0 {
				holder.contents = slices.Delete(holder.contents, i, i+1)
			}
		}
		it.Holder = None
	}
	for _, sp := range r.stockpiles {
		sp.unstore(it.ID)
	}
}

// settle records a loose item on a stockpile spot when it landed on one.
func (r *Registry) settle(it *Item) {
	if it.Holder != None || it.Inventory {
		return
	}
	for _, sid := range r.Stockpiles() {
		sp := r.stockpiles[sid]
		if !sp.Contains(it.Pos) {
			continue
		}
		if held := sp.ItemAt(it.Pos); held == None || held == it.ID {
			sp.store(it.Pos, it.ID)
		}
		return
	}
}

// PutIn moves item into container. It fails when either is absent or the
// container lacks room that is not promised to a job.
func (r *Registry) PutIn(container, item ID) bool {
	box, ok := r.items[container]
	if !ok || !box.IsContainer() || container == item {
		return false
	}
	it, ok := r.items[item]
	if !ok {
		return false
	}
	if it.Holder == container {
		return true
	}
	if r.FreeSpace(container) < it.Bulk {
		return false
	}
	r.detach(it)
	it.Holder = container
	box.contents = append(box.contents, item)
	return true
}

// TakeOut removes item from its container and leaves it loose where the
// container is.
func (r *Registry) TakeOut(item ID) bool {
	it, ok := r.items[item]
	if !ok {
		return false
	}
	if it.Holder.Valid() {
		pos, _ := r.Position(item)
		r.detach(it)
		it.Pos = pos
	}
	return true
}

// Place drops a loose item on tile pos, filing it into a stockpile spot
// when the tile is one.
func (r *Registry) Place(item ID, pos coord.Coordinate) bool {
	it, ok := r.items[item]
	if !ok {
		return false
	}
	r.detach(it)
	it.Pos = pos
	r.settle(it)
	return true
}

// AddWater pours up to n water into a container and returns the amount taken.
func (r *Registry) AddWater(container ID, n int) int {
	box, ok := r.items[container]
	if !ok || !box.IsContainer() || n <= 0 {
		return 0
	}
	n = min(n, box.Capacity-r.usedSpace(box))
	if n < 0 {
		n = 0
	}
	box.Water += n
	return n
}

// AddFilth puts up to n filth into a container and returns the amount taken.
func (r *Registry) AddFilth(container ID, n int) int {
	box, ok := r.items[container]
	if !ok || !box.IsContainer() || n <= 0 {
		return 0
	}
	n = min(n, box.Capacity-r.usedSpace(box))
	if n < 0 {
		n = 0
	}
	box.Filth += n
	return n
}

// Drain empties a container's fluids and reports what it held.
func (r *Registry) Drain(container ID) (water, filth int) {
	box, ok := r.items[container]
	if !ok {
		return 0, 0
	}
	water, filth = box.Water, box.Filth
	box.Water, box.Filth = 0, 0
	return water, filth
}

// FindCure returns the nearest unreserved stock item that cures t, or None.
func (r *Registry) FindCure(t effect.Type, near coord.Coordinate) ID {
	best, bestDist := None, 0
	for _, id := range r.sortedItems() {
		it := r.items[id]
		if it.Reserved || !slices.Contains(it.Cures, t) || !r.inStock(it) {
			continue
		}
		pos, _ := r.Position(id)
		if d := pos.Distance(near); best == None || d < bestDist {
			best, bestDist = id, d
		}
	}
	return best
}

// FindWaterContainer returns the nearest unreserved stock container holding
// water, or None.
func (r *Registry) FindWaterContainer(near coord.Coordinate) ID {
	best, bestDist := None, 0
	for _, id := range r.sortedItems() {
		it := r.items[id]
		if it.Reserved || it.Water <= 0 || !r.inStock(it) {
			continue
		}
		pos, _ := r.Position(id)
		if d := pos.Distance(near); best == None || d < bestDist {
			best, bestDist = id, d
		}
	}
	return best
}
