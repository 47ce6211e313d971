package world

import "fmt"

// GridID identifies a grid within a World. Zero is never assigned.
type GridID uint32

// Coord is a cell position inside a grid. Y grows southward.
type Coord struct {
	X, Y int
}

// Step returns the coordinate one step in direction d.
func (c Coord) Step(d Direction) Coord {
	dx, dy := d.Delta()
	return Coord{X: c.X + dx, Y: c.Y + dy}
}

// String renders the coordinate as "(x,y)".
func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// LocationID is a stable, comparable reference to a location. Exits, tracks
// and linked exits hold LocationIDs rather than pointers, so a grid cell that
// is evicted and regenerated keeps the same identity.
//
// The zero LocationID refers to nothing.
type LocationID struct {
	grid  GridID
	index int // arena index + 1 when grid is zero
	coord Coord
}

func arenaID(i int) LocationID {
	return LocationID{index: i + 1}
}

func cellID(g GridID, c Coord) LocationID {
	return LocationID{grid: g, coord: c}
}

// IsZero reports whether id refers to nothing.
func (id LocationID) IsZero() bool {
	return id == LocationID{}
}

// Cell returns the grid and coordinate of a grid-backed location.
//
// Postcondition: ok is false for free-standing and path locations.
func (id LocationID) Cell() (g GridID, c Coord, ok bool) {
	if id.grid == 0 {
		return 0, Coord{}, false
	}
	return id.grid, id.coord, true
}

func (id LocationID) arenaIndex() (int, bool) {
	if id.grid != 0 || id.index == 0 {
		return 0, false
	}
	return id.index - 1, true
}

// String renders the id for logs.
func (id LocationID) String() string {
	switch {
	case id.grid != 0:
		return fmt.Sprintf("grid%d%s", id.grid, id.coord)
	case id.index != 0:
		return fmt.Sprintf("loc%d", id.index-1)
	default:
		return "nowhere"
	}
}
