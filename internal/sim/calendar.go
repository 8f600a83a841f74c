package sim

import "fmt"

// Season is a quarter of the year.
type Season int

const (
	Spring Season = iota
	Summer
	Fall
	Winter
)

func (s Season) String() string {
	switch s {
	case Spring:
		return "spring"
	case Summer:
		return "summer"
	case Fall:
		return "fall"
	}
	return "winter"
}

const monthsPerYear = 12

// Calendar counts simulation updates into months, seasons and years.
type Calendar struct {
	tick        int64
	monthLength int64
}

// NewCalendar creates a calendar where a month lasts monthLength updates.
func NewCalendar(monthLength int) *Calendar {
	return &Calendar{monthLength: int64(max(monthLength, 1))}
}

// Advance moves the calendar one update forward.
func (c *Calendar) Advance() { c.tick++ }

// Tick returns the updates elapsed.
func (c *Calendar) Tick() int64 { return c.tick }

// Month returns the month of the year, 0 based.
func (c *Calendar) Month() int { return int(c.tick/c.monthLength) % monthsPerYear }

// Year returns the year, starting at 1.
func (c *Calendar) Year() int { return int(c.tick/(c.monthLength*monthsPerYear)) + 1 }

// Season returns the current season. Every season spans three months.
func (c *Calendar) Season() Season { return Season(c.Month() / 3) }

// Winter reports whether the ground is frozen.
func (c *Calendar) Winter() bool { return c.Season() == Winter }

func (c *Calendar) String() string {
	return fmt.Sprintf("year %d, month %d (%s)", c.Year(), c.Month()+1, c.Season())
}
