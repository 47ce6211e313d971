// Package world provides the world topology engine: areas, locations, exits,
// grids, paths, named-exit linking, and movement tracks.
package world

import (
	"fmt"
	"strings"
)

// Direction is a compass direction or vertical movement.
//
// Directions are small integers so exit maps can index them directly.
type Direction uint8

// Standard compass directions and vertical movements.
const (
	North Direction = iota
	Northeast
	East
	Southeast
	South
	Southwest
	West
	Northwest
	Up
	Down
)

// NumDirections is the size of the direction domain.
const NumDirections = 10

// StandardDirections contains all directions in index order.
var StandardDirections = []Direction{
	North, Northeast, East, Southeast,
	South, Southwest, West, Northwest,
	Up, Down,
}

// CardinalDirections are the four directions a Grid derives exits for.
var CardinalDirections = []Direction{North, East, South, West}

var directionNames = [NumDirections]string{
	"north", "northeast", "east", "southeast",
	"south", "southwest", "west", "northwest",
	"up", "down",
}

var directionGlyphs = [NumDirections]string{
	"n", "ne", "e", "se", "s", "sw", "w", "nw", "u", "d",
}

// String returns the lower-case name of the direction.
func (d Direction) String() string {
	if !d.Valid() {
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
	return directionNames[d]
}

// Glyph returns the short map glyph of the direction, e.g. "ne".
func (d Direction) Glyph() string {
	if !d.Valid() {
		return "?"
	}
	return directionGlyphs[d]
}

// Valid reports whether d is one of the ten standard directions.
func (d Direction) Valid() bool {
	return d < NumDirections
}

// IsCardinal reports whether d is north, east, south or west.
func (d Direction) IsCardinal() bool {
	return d == North || d == East || d == South || d == West
}

// Opposite returns the geometric opposite of d.
//
// Precondition: d must be valid.
func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	default:
		return (d + 4) % 8
	}
}

// Delta returns the one-step grid offset of d. Y grows southward.
// Vertical directions have a zero delta.
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case North:
		return 0, -1
	case Northeast:
		return 1, -1
	case East:
		return 1, 0
	case Southeast:
		return 1, 1
	case South:
		return 0, 1
	case Southwest:
		return -1, 1
	case West:
		return -1, 0
	case Northwest:
		return -1, -1
	default:
		return 0, 0
	}
}

// ParseDirection resolves a direction name or glyph, case-insensitively.
//
// Postcondition: Returns the direction or an error naming the unknown input.
func ParseDirection(s string) (Direction, error) {
	in := strings.ToLower(strings.TrimSpace(s))
	for i := range directionNames {
		if directionNames[i] == in || directionGlyphs[i] == in {
			return Direction(i), nil
		}
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}
