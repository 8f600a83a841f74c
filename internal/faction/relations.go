package faction

import "sync"

type pair struct{ a, b int }

func key(a, b int) pair {
	if a > b {
		a, b = b, a
	}
	return pair{a, b}
}

// Relations is the symmetric stance table between factions. Pairs without
// an explicit stance fall back to the default.
type Relations struct {
	mu             sync.RWMutex
	defaultHostile bool
	stance         map[pair]bool
}

// NewRelations creates a table where unlisted factions are hostile when
// defaultHostile is set.
func NewRelations(defaultHostile bool) *Relations {
	return &Relations{defaultHostile: defaultHostile, stance: make(map[pair]bool)}
}

// SetHostile records the stance between a and b both ways.
func (r *Relations) SetHostile(a, b int, hostile bool) {
	if a == b {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stance[key(a, b)] = hostile
}

// Hostile reports whether a and b fight. A faction is never hostile to itself.
func (r *Relations) Hostile(a, b int) bool {
	if a == b {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if h, ok := r.stance[key(a, b)]; ok {
		return h
	}
	return r.defaultHostile
}
