package coord

import "fmt"

// Coordinate is a tile position on the map.
type Coordinate struct{ X, Y int }

// Undefined marks a target that should be resolved from context,
// e.g. the position of a previously found item.
var Undefined = Coordinate{-1, -1}

// Zero is the map origin.
var Zero = Coordinate{}

// Pt is a convenience constructor for Coordinate.
func Pt(x, y int) Coordinate { return Coordinate{x, y} }

// directions lists the 8 neighbour offsets, orthogonal first.
var directions = [8]Coordinate{
	{1, 0}, {-1, 0}, {0, 1}, {0, -1},
	{1, 1}, {1, -1}, {-1, 1}, {-1, -1},
}

// Directions returns the 8 neighbour offsets.
func Directions() [8]Coordinate { return directions }

// IsUndefined reports whether c is the Undefined sentinel.
func (c Coordinate) IsUndefined() bool { return c == Undefined }

// Equal returns true if both components match.
func (c Coordinate) Equal(o Coordinate) bool { return c.X == o.X && c.Y == o.Y }

// Add returns c+o.
func (c Coordinate) Add(o Coordinate) Coordinate {
	c.X += o.X
	c.Y += o.Y
	return c
}

// Sub returns c-o.
func (c Coordinate) Sub(o Coordinate) Coordinate {
	c.X -= o.X
	c.Y -= o.Y
	return c
}

// Offset returns c shifted by n in both axes.
func (c Coordinate) Offset(n int) Coordinate {
	return Coordinate{c.X + n, c.Y + n}
}

// Distance is the Chebyshev distance, the number of 8-directional steps between c and o.
func (c Coordinate) Distance(o Coordinate) int {
	return max(abs(c.X-o.X), abs(c.Y-o.Y))
}

// Adjacent reports whether o is c itself or one of its 8 neighbours.
func (c Coordinate) Adjacent(o Coordinate) bool {
	return abs(c.X-o.X) < 2 && abs(c.Y-o.Y) < 2
}

// Neighbours returns the 8 surrounding coordinates, unclipped.
func (c Coordinate) Neighbours() []Coordinate {
	out := make([]Coordinate, 0, len(directions))
	for _, d := range directions {
		out = append(out, c.Add(d))
	}
	return out
}

// InRect reports whether c lies within [low, high) on both axes.
func (c Coordinate) InRect(low, high Coordinate) bool {
	return c.X >= low.X && c.X < high.X && c.Y >= low.Y && c.Y < high.Y
}

// OnEdge reports whether c lies on the border of the [low, high) rectangle.
func (c Coordinate) OnEdge(low, high Coordinate) bool {
	if !c.InRect(low, high) {
		return false
	}
	return c.X == low.X || c.Y == low.Y || c.X == high.X-1 || c.Y == high.Y-1
}

// Clamp returns c with each component limited to [low, high).
func (c Coordinate) Clamp(low, high Coordinate) Coordinate {
	c.X = min(max(c.X, low.X), high.X-1)
	c.Y = min(max(c.Y, low.Y), high.Y-1)
	return c
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Line returns the Bresenham line from a to b, both endpoints included.
func Line(a, b Coordinate) []Coordinate {
	dx := abs(b.X - a.X)
	dy := -abs(b.Y - a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	err := dx + dy
	out := make([]Coordinate, 0, max(dx, -dy)+1)
	p := a
	for {
		out = append(out, p)
		if p == b {
			return out
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			p.X += sx
		}
		if e2 <= dx {
			err += dx
			p.Y += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
