// Package faction supplies agents with work and reactions on behalf of the
// group they belong to: military squads, the colony's job manager and the
// instincts of wild animals.
package faction

import (
	"slices"

	"github.com/aristath/colony/internal/coord"
	"github.com/aristath/colony/internal/entity"
	"github.com/aristath/colony/internal/job"
)

// Order is a standing squad command.
type Order int

const (
	NoOrder Order = iota
	Guard
	Follow
	Attack
)

func (o Order) String() string {
	switch o {
	case Guard:
		return "guard"
	case Follow:
		return "follow"
	case Attack:
		return "attack"
	}
	return "none"
}

// Command is one order with its target. Entity is an agent id for FOLLOW
// and ATTACK, -1 when the order is aimed at a tile.
type Command struct {
	Order  Order
	Target coord.Coordinate
	Entity int
}

// Squad is a group of agents sharing orders and equipment requirements.
type Squad struct {
	Name     string
	Priority job.Priority
	// Weapon and Armor are the categories members equip before taking orders.
	Weapon entity.Category
	Armor  entity.Category

	limit    int
	members  []int
	commands []Command
}

// NewSquad creates an empty squad accepting up to limit members.
func NewSquad(name string, limit int, p job.Priority) *Squad {
	return &Squad{
		Name:     name,
		Priority: p,
		Weapon:   entity.NoCategory,
		Armor:    entity.NoCategory,
		limit:    limit,
	}
}

// AddMember enrolls id. It reports false when the squad is full.
func (s *Squad) AddMember(id int) bool {
	if slices.Contains(s.members, id) {
		return true
	}
	if len(s.members) >= s.limit {
		return false
	}
	s.members = append(s.members, id)
	return true
}

// Leave removes id from the squad.
func (s *Squad) Leave(id int) {
	if i := slices.Index(s.members, id); i >= 0 {
		s.members = slices.Delete(s.members, i, i+1)
	}
}

func (s *Squad) Members() []int       { return slices.Clone(s.members) }
func (s *Squad) MemberCount() int     { return len(s.members) }
func (s *Squad) MemberLimit() int     { return s.limit }
func (s *Squad) SetMemberLimit(n int) { s.limit = n }
func (s *Squad) Commands() []Command  { return slices.Clone(s.commands) }
func (s *Squad) IsMember(id int) bool { return slices.Contains(s.members, id) }
func (s *Squad) NeedsMembers() bool   { return len(s.members) < s.limit }
func (s *Squad) ClearOrders()         { s.commands = nil }
func (s *Squad) AddOrder(c Command)   { s.commands = append(s.commands, c) }
func (s *Squad) SetOrder(c Command)   { s.commands = []Command{c} }

// GetOrder returns the command at *index and advances *index, wrapping
// around. Members keep their own index so a squad with several commands
// spreads its members over them.
func (s *Squad) GetOrder(index *int) (Command, bool) {
	if len(s.commands) == 0 {
		return Command{Order: NoOrder, Target: coord.Undefined, Entity: -1}, false
	}
	if *index < 0 || *index >= len(s.commands) {
		*index = 0
	}
	c := s.commands[*index]
	*index = (*index + 1) % len(s.commands)
	return c, true
}
