package entity

import "github.com/aristath/colony/internal/coord"

// Tag is a bit set of construction properties.
type Tag uint16

const (
	TagBed Tag = 1 << iota
	TagBridge
	TagWall
	TagWorkshop
	TagPermanent
	TagDoor
	TagFarmPlot
	TagStockpile
)

// Build outcomes returned by Construction.Build.
const (
	BuildNoMaterial = -1
	BuildProgress   = 0
	BuildDone       = 1
)

// Construction is a placed building, wall, bed, bridge or workshop.
type Construction struct {
	ID      ID
	Name    string
	Pos     coord.Coordinate
	Tags    Tag
	Faction int

	BuildTime        int
	MissingMaterials int
	progress         int
	built            bool

	Condition    int
	MaxCondition int
	Reserved     bool

	// UseTime is the number of cycles one Use takes to produce a result.
	UseTime     int
	useProgress int
	// Products are spawned when a Use completes.
	Products []string
}

// Is reports whether every tag in t is set.
func (c *Construction) Is(t Tag) bool { return c.Tags&t == t }

// Built reports whether construction finished.
func (c *Construction) Built() bool { return c.built }

// Progress reports the build progress counter.
func (c *Construction) Progress() int { return c.progress }

// Build advances construction by one cycle.
func (c *Construction) Build() int {
	if c.built {
		return BuildDone
	}
	if c.MissingMaterials > 0 {
		return BuildNoMaterial
	}
	c.progress++
	if c.progress >= c.BuildTime {
		c.built = true
		c.Condition = c.MaxCondition
		return BuildDone
	}
	return BuildProgress
}

// Use advances one work cycle and returns the completion percentage.
// Values of 100 or more mean a product is ready; negative means unusable.
func (c *Construction) Use() int {
	if !c.built {
		return -1
	}
	if c.UseTime <= 0 {
		return 100
	}
	c.useProgress++
	pct := c.useProgress * 100 / c.UseTime
	if pct >= 100 {
		c.useProgress = 0
	}
	return pct
}

// Repair restores one point of condition and reports whether it is whole again.
func (c *Construction) Repair() bool {
	if c.Condition < c.MaxCondition {
		c.Condition++
	}
	return c.Condition >= c.MaxCondition
}

// Damage lowers condition and reports whether the construction collapsed.
func (c *Construction) Damage(amount int) bool {
	c.Condition -= amount
	return c.Condition <= 0
}
