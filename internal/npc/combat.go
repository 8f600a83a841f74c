package npc

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/aristath/colony/internal/coord"
	"github.com/aristath/colony/internal/effect"
	"github.com/aristath/colony/internal/entity"
)

// targetPosition resolves an agent id or an entity id to a tile.
func (n *NPC) targetPosition(id entity.ID) (coord.Coordinate, bool) {
	if id == entity.None {
		return coord.Undefined, false
	}
	if other, ok := n.agent(int(id)); ok && !other.dead && !other.escaped {
		return other.pos, true
	}
	return n.env.Registry.Position(id)
}

// ScanSurroundings refreshes what the agent can see: agents near and
// adjacent, constructions in view, the closest threat and any fire.
// With onlyHostiles set, friendly agents are ignored.
func (n *NPC) ScanSurroundings(onlyHostiles bool) {
	n.nearNPCs = n.nearNPCs[:0]
	n.adjacentNPCs = n.adjacentNPCs[:0]
	n.nearConstructions = n.nearConstructions[:0]
	n.threatLocation = coord.Undefined
	n.fireLocation = coord.Undefined
	n.seenFire = false

	m := n.env.Map
	sight := n.env.Tuning.Work.SightRange
	threatDist, fireDist := 0, 0

	if n.env.NPCs != nil {
		for _, other := range n.env.NPCs.All() {
			if other == n || other.dead || other.escaped {
				continue
			}
			d := other.pos.Distance(n.pos)
			if d > sight || !m.LineOfSight(n.pos, other.pos) {
				continue
			}
			hostile := n.env.hostile(n.faction, other.faction)
			if onlyHostiles && !hostile {
				continue
			}
			n.nearNPCs = append(n.nearNPCs, other.id)
			if d <= 1 {
				n.adjacentNPCs = append(n.adjacentNPCs, other.id)
			}
			if hostile && other.aggressive && (n.threatLocation.IsUndefined() || d < threatDist) {
				n.threatLocation, threatDist = other.pos, d
			}
		}
	}

	reg := n.env.Registry
	for _, id := range reg.Constructions() {
		c, _ := reg.Construction(id)
		if c.Pos.Distance(n.pos) <= sight && m.LineOfSight(n.pos, c.Pos) {
			n.nearConstructions = append(n.nearConstructions, id)
		}
	}

	for y := n.pos.Y - sight; y <= n.pos.Y+sight; y++ {
		for x := n.pos.X - sight; x <= n.pos.X+sight; x++ {
			c := coord.Pt(x, y)
			if !m.IsInside(c) || m.Fire(c) <= 0 || !m.LineOfSight(n.pos, c) {
				continue
			}
			n.seenFire = true
			d := c.Distance(n.pos)
			if n.fireLocation.IsUndefined() || d < fireDist {
				n.fireLocation, fireDist = c, d
			}
			if n.threatLocation.IsUndefined() || d < threatDist {
				n.threatLocation, threatDist = c, d
			}
		}
	}
}

// NearNPCs returns the agents seen by the last scan.
func (n *NPC) NearNPCs() []int { return slices.Clone(n.nearNPCs) }

// AdjacentNPCs returns the agents next to this one at the last scan.
func (n *NPC) AdjacentNPCs() []int { return slices.Clone(n.adjacentNPCs) }

// NearConstructions returns the constructions seen by the last scan.
func (n *NPC) NearConstructions() []entity.ID { return slices.Clone(n.nearConstructions) }

// SeesFire reports whether the last scan saw fire.
func (n *NPC) SeesFire() bool { return n.seenFire }

// FireLocation returns the closest fire seen by the last scan.
func (n *NPC) FireLocation() coord.Coordinate { return n.fireLocation }

// ThreatLocation returns where the closest threat was seen.
func (n *NPC) ThreatLocation() coord.Coordinate { return n.threatLocation }

// SetThreat records a threat seen at c.
func (n *NPC) SetThreat(c coord.Coordinate) { n.threatLocation = c }

// IsHostile reports whether other belongs to an enemy faction.
func (n *NPC) IsHostile(other *NPC) bool { return n.env.hostile(n.faction, other.faction) }

func (n *NPC) hitAdjacentEnemies() {
	for _, id := range n.adjacentNPCs {
		other, ok := n.agent(id)
		if !ok || other.dead || !other.pos.Adjacent(n.pos) || !n.IsHostile(other) {
			continue
		}
		n.Hit(other)
		return
	}
}

// attackDamage is the damage of one blow with the wielded weapon.
func (n *NPC) attackDamage() int {
	dmg := n.damage
	if it, ok := n.env.Registry.Item(n.mainHand); ok && !it.Ranged {
		dmg += it.Damage
	}
	return dmg
}

// Hit strikes another agent in melee.
func (n *NPC) Hit(target *NPC) {
	target.Hurt(n.attackDamage(), n.id)
}

// Hurt deals amount damage, remembering source as the attacker (-1 for
// none). The agent dies when its health runs out.
func (n *NPC) Hurt(amount, source int) {
	if n.dead || amount <= 0 {
		return
	}
	if armor, ok := n.env.Registry.Item(n.armor); ok {
		amount = max(1, amount-armor.Damage)
	}
	n.health -= amount
	if source >= 0 {
		n.attacker = source
		if attacker, ok := n.agent(source); ok {
			n.threatLocation = attacker.pos
		}
	}
	if n.health <= 0 {
		n.Kill("was killed")
	}
}

// HitConstruction damages a construction, tearing it down when it breaks.
func (n *NPC) HitConstruction(c *entity.Construction) {
	if !c.Damage(n.attackDamage()) {
		return
	}
	n.env.Registry.RemoveConstruction(c.ID)
	n.env.Map.SetConstruction(c.Pos, entity.None, false)
	if c.Faction == PlayerFaction {
		n.env.announce(fmt.Sprintf("%s destroyed %s", n.name, c.Name))
	}
	n.env.Logger.Debug("construction destroyed", zap.Int("npc", n.id), zap.String("construction", c.Name))
}

// canFire reports whether the agent holds a ranged weapon with ammunition
// for it in the quiver.
func (n *NPC) canFire() (entity.ID, bool) {
	reg := n.env.Registry
	weapon, ok := reg.Item(n.mainHand)
	if !ok || !weapon.Ranged {
		return entity.None, false
	}
	q, ok := reg.Item(n.quiver)
	if !ok {
		return entity.None, false
	}
	for _, id := range q.Contents() {
		if ammo, ok := reg.Item(id); ok && ammo.IsCategory(weapon.Ammo) {
			return id, true
		}
	}
	return entity.None, false
}

// fireAt shoots one piece of ammunition at target; it lands on the target's tile.
func (n *NPC) fireAt(ammo entity.ID, target coord.Coordinate, victim *NPC) {
	reg := n.env.Registry
	weapon, _ := reg.Item(n.mainHand)
	shot, _ := reg.Item(ammo)
	dmg := weapon.Damage + shot.Damage
	reg.TakeOut(ammo)
	reg.Place(ammo, target)
	if victim != nil {
		victim.Hurt(dmg, n.id)
	} else if c, ok := reg.ConstructionAt(target); ok {
		if c.Damage(dmg) {
			reg.RemoveConstruction(c.ID)
			n.env.Map.SetConstruction(c.Pos, entity.None, false)
		}
	}
	if shot.IsCategory(reg.MustCategory(entity.CatAmmo)) && n.env.chance(3) {
		reg.Remove(ammo)
	}
}

// Rage makes the agent aggressive.
func (n *NPC) Rage() {
	n.aggressive = true
	n.AddEffect(effect.Rage)
}
