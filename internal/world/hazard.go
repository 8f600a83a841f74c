package world

import (
	"sync"

	"github.com/aristath/colony/internal/coord"
)

// HazardCache is a per-faction snapshot of dangerous tiles. The tick thread
// rebuilds it under the exclusive lock; path workers scan it under the
// shared lock.
type HazardCache struct {
	mu     sync.RWMutex
	width  int
	height int
	bits   []uint64
}

// NewHazardCache creates an empty cache for a width x height map.
func NewHazardCache(width, height int) *HazardCache {
	return &HazardCache{
		width:  width,
		height: height,
		bits:   make([]uint64, width*height),
	}
}

// Rebuild recomputes the cache from the live grid.
func (h *HazardCache) Rebuild(g *Grid) {
	next := make([]uint64, len(h.bits))
	g.mu.RLock()
	for i := range g.tiles {
		t := &g.tiles[i]
		v := t.danger
		if t.fire > 0 {
			v = ^uint64(0)
		}
		next[i] = v
	}
	g.mu.RUnlock()

	h.mu.Lock()
	h.bits = next
	h.mu.Unlock()
}

func (h *HazardCache) dangerous(c coord.Coordinate, faction int) bool {
	if !c.InRect(coord.Zero, coord.Pt(h.width, h.height)) {
		return false
	}
	if faction < 0 || faction >= 64 {
		return false
	}
	return h.bits[c.Y*h.width+c.X]&(1<<uint(faction)) != 0
}

// Dangerous reports whether c was hazardous for faction at the last rebuild.
func (h *HazardCache) Dangerous(c coord.Coordinate, faction int) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dangerous(c, faction)
}

// ScanPath reports whether any tile of path is hazardous for faction.
// The whole scan runs under one shared lock.
func (h *HazardCache) ScanPath(path []coord.Coordinate, faction int) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range path {
		if h.dangerous(c, faction) {
			return true
		}
	}
	return false
}
