package entity

import "github.com/aristath/colony/internal/coord"

// The reservation ledger gives a job exclusive claim over an entity, a
// stockpile spot or a slice of container capacity. All claims are made and
// released on the simulation tick, so there is no locking here.

// Reserve claims an item or construction. It fails when the entity is gone
// or already claimed.
func (r *Registry) Reserve(id ID) bool {
	if it, ok := r.items[id]; ok {
		if it.Reserved {
			return false
		}
		it.Reserved = true
		return true
	}
	if c, ok := r.constructions[id]; ok {
		if c.Reserved {
			return false
		}
		c.Reserved = true
		return true
	}
	return false
}

// Release drops a claim made by Reserve. Releasing a destroyed entity is a no-op.
func (r *Registry) Release(id ID) {
	if it, ok := r.items[id]; ok {
		it.Reserved = false
		return
	}
	if c, ok := r.constructions[id]; ok {
		c.Reserved = false
	}
}

// Reserved reports whether id is currently claimed.
func (r *Registry) Reserved(id ID) bool {
	if it, ok := r.items[id]; ok {
		return it.Reserved
	}
	if c, ok := r.constructions[id]; ok {
		return c.Reserved
	}
	return false
}

// ReserveSpot claims a stockpile spot for an item of category c.
func (r *Registry) ReserveSpot(stockpile ID, spot coord.Coordinate, c Category) bool {
	sp, ok := r.stockpiles[stockpile]
	if !ok || !sp.Contains(spot) || !sp.Allows(c) {
		return false
	}
	if sp.SpotReserved(spot) || sp.ItemAt(spot) != None {
		return false
	}
	sp.reserved[spot] = c
	return true
}

// ReleaseSpot drops a stockpile spot claim.
func (r *Registry) ReleaseSpot(stockpile ID, spot coord.Coordinate) {
	if sp, ok := r.stockpiles[stockpile]; ok {
		delete(sp.reserved, spot)
	}
}

// ReserveSpace promises bulk units of a container's capacity.
func (r *Registry) ReserveSpace(container ID, bulk int) bool {
	box, ok := r.items[container]
	if !ok || !box.IsContainer() || bulk <= 0 {
		return false
	}
	if r.FreeSpace(container) < bulk {
		return false
	}
	box.reserved += bulk
	return true
}

// ReleaseSpace returns previously promised capacity.
func (r *Registry) ReleaseSpace(container ID, bulk int) {
	if box, ok := r.items[container]; ok {
		box.reserved = max(0, box.reserved-bulk)
	}
}
