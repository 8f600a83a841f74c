package effect

// Type identifies a status effect an agent can carry.
type Type int

const (
	Hunger Type = iota
	Thirst
	Drowsy
	Sleeping
	BadSleep
	Panic
	Brave
	Rage
	Drunk
	Burning
	Swim
	Eating
	Drinking
	Working
	Carrying
	Flying
	Concussion
	Tripped
	Poisoned
	ChickenHeart
	typeCount
)

// Permanent cooldown means the effect stays until removed explicitly.
const Permanent = -1

type info struct {
	name     string
	cooldown int
	negative bool
}

var table = [typeCount]info{
	Hunger:       {"Hungry", Permanent, false},
	Thirst:       {"Thirsty", Permanent, false},
	Drowsy:       {"Drowsy", Permanent, false},
	Sleeping:     {"Sleeping", 5, false},
	BadSleep:     {"Groggy", 25 * 60, true},
	Panic:        {"Panicking", 25 * 10, false},
	Brave:        {"Brave", 25 * 30, false},
	Rage:         {"Enraged", 25 * 20, false},
	Drunk:        {"Drunk", 25 * 60, true},
	Burning:      {"Burning", 25 * 8, true},
	Swim:         {"Swimming", Permanent, false},
	Eating:       {"Eating", Permanent, false},
	Drinking:     {"Drinking", Permanent, false},
	Working:      {"Working", Permanent, false},
	Carrying:     {"Carrying", Permanent, false},
	Flying:       {"Flying", Permanent, false},
	Concussion:   {"Concussed", 25 * 5, true},
	Tripped:      {"Tripped", 25 * 2, true},
	Poisoned:     {"Poisoned", 25 * 30, true},
	ChickenHeart: {"Chicken heart", 25 * 60 * 5, true},
}

func (t Type) String() string {
	if t < 0 || t >= typeCount {
		return "Unknown"
	}
	return table[t].name
}

// Negative reports whether an agent would seek a remedy for this effect.
func (t Type) Negative() bool {
	if t < 0 || t >= typeCount {
		return false
	}
	return table[t].negative
}

// DefaultCooldown is the number of updates the effect lasts.
func (t Type) DefaultCooldown() int {
	if t < 0 || t >= typeCount {
		return Permanent
	}
	return table[t].cooldown
}

// Effect is an applied status effect with its remaining cooldown.
type Effect struct {
	Type     Type
	Cooldown int
}

// New returns an effect with the default cooldown for its type.
func New(t Type) Effect {
	return Effect{Type: t, Cooldown: t.DefaultCooldown()}
}

// Set is an ordered collection of effects, at most one per type.
type Set struct {
	effects []Effect
	changed bool
}

// Has reports whether an effect of type t is present.
func (s *Set) Has(t Type) bool {
	for _, e := range s.effects {
		if e.Type == t {
			return true
		}
	}
	return false
}

// Add inserts e, or refreshes the cooldown when the type is already present.
// Returns true when the effect was newly added.
func (s *Set) Add(e Effect) bool {
	for i := range s.effects {
		if s.effects[i].Type == e.Type {
			s.effects[i].Cooldown = e.Type.DefaultCooldown()
			return false
		}
	}
	s.effects = append(s.effects, e)
	s.changed = true
	return true
}

// Remove deletes the effect of type t if present.
func (s *Set) Remove(t Type) {
	for i, e := range s.effects {
		if e.Type == t {
			s.effects = append(s.effects[:i], s.effects[i+1:]...)
			return
		}
	}
}

// Tick counts down cooldowns and drops expired effects.
func (s *Set) Tick() {
	kept := s.effects[:0]
	for _, e := range s.effects {
		if e.Cooldown > 0 {
			e.Cooldown--
			if e.Cooldown == 0 {
				continue
			}
		}
		kept = append(kept, e)
	}
	s.effects = kept
}

// TakeChanged reports and clears whether a new effect was added since the last call.
func (s *Set) TakeChanged() bool {
	c := s.changed
	s.changed = false
	return c
}

// List returns a copy of the current effects.
func (s *Set) List() []Effect {
	return append([]Effect(nil), s.effects...)
}

// Len returns the number of active effects.
func (s *Set) Len() int { return len(s.effects) }
