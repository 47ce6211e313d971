package world

import "fmt"

// ExitMap is the read-only set of a location's exits, at most one per
// direction. Implementations are size-specialized values chosen by Freeze.
type ExitMap interface {
	// Find returns the exit in direction d.
	Find(d Direction) (Exit, bool)
	// All returns the exits in direction order.
	All() []Exit
	// Len returns the number of exits.
	Len() int
}

// NoExits is the shared empty exit map.
var NoExits ExitMap = emptyExitMap{}

type emptyExitMap struct{}

func (emptyExitMap) Find(Direction) (Exit, bool) { return Exit{}, false }
func (emptyExitMap) All() []Exit                 { return nil }
func (emptyExitMap) Len() int                    { return 0 }

type singleExitMap struct {
	exit Exit
}

func (m singleExitMap) Find(d Direction) (Exit, bool) {
	if m.exit.dir == d {
		return m.exit, true
	}
	return Exit{}, false
}

func (m singleExitMap) All() []Exit { return []Exit{m.exit} }
func (m singleExitMap) Len() int    { return 1 }

// pairExitMap holds the two exits of a path node. a precedes b in
// direction order.
type pairExitMap struct {
	a, b Exit
}

func newPairExitMap(x, y Exit) pairExitMap {
	if y.dir < x.dir {
		x, y = y, x
	}
	return pairExitMap{a: x, b: y}
}

func (m pairExitMap) Find(d Direction) (Exit, bool) {
	switch d {
	case m.a.dir:
		return m.a, true
	case m.b.dir:
		return m.b, true
	}
	return Exit{}, false
}

func (m pairExitMap) All() []Exit { return []Exit{m.a, m.b} }
func (m pairExitMap) Len() int    { return 2 }

// arrayExitMap indexes exits by direction. The direction domain is small and
// bounded, so a fixed array beats a general map.
type arrayExitMap struct {
	exits   [NumDirections]Exit
	present uint16
}

func (m arrayExitMap) Find(d Direction) (Exit, bool) {
	if !d.Valid() || m.present&(1<<d) == 0 {
		return Exit{}, false
	}
	return m.exits[d], true
}

func (m arrayExitMap) All() []Exit {
	out := make([]Exit, 0, m.Len())
	for d := range Direction(NumDirections) {
		if m.present&(1<<d) != 0 {
			out = append(out, m.exits[d])
		}
	}
	return out
}

func (m arrayExitMap) Len() int {
	n := 0
	for p := m.present; p != 0; p &= p - 1 {
		n++
	}
	return n
}

// ExitMapBuilder is the mutable form of an exit map used while a location's
// exits are still being declared.
//
// Invariant: at most one exit per direction and at most one river current.
type ExitMapBuilder struct {
	exits   [NumDirections]Exit
	present uint16
	current bool
}

// Add records e.
//
// Postcondition: Returns ErrDuplicateExit if e's direction is taken, or
// ErrDuplicateCurrent if e is a second current exit; the builder is unchanged
// on error.
func (b *ExitMapBuilder) Add(e Exit) error {
	if err := b.check(e); err != nil {
		return err
	}
	if e.link.Kind() == LinkCurrent {
		b.current = true
	}
	b.exits[e.dir] = e
	b.present |= 1 << e.dir
	return nil
}

func (b *ExitMapBuilder) check(e Exit) error {
	if !e.dir.Valid() {
		return fmt.Errorf("adding exit: invalid direction %d", e.dir)
	}
	if b.present&(1<<e.dir) != 0 {
		return fmt.Errorf("adding %s exit: %w", e.dir, ErrDuplicateExit)
	}
	if e.link.Kind() == LinkCurrent && b.current {
		return fmt.Errorf("adding %s exit: %w", e.dir, ErrDuplicateCurrent)
	}
	return nil
}

// Find returns the exit recorded in direction d.
func (b *ExitMapBuilder) Find(d Direction) (Exit, bool) {
	return arrayExitMap{exits: b.exits, present: b.present}.Find(d)
}

// Len returns the number of recorded exits.
func (b *ExitMapBuilder) Len() int {
	return arrayExitMap{present: b.present}.Len()
}

// Freeze returns the immutable exit map for the recorded exits:
// NoExits for none, a single-exit form for one, and the direction-indexed
// array form otherwise. The builder may be discarded afterwards.
func (b *ExitMapBuilder) Freeze() ExitMap {
	full := arrayExitMap{exits: b.exits, present: b.present}
	switch full.Len() {
	case 0:
		return NoExits
	case 1:
		return singleExitMap{exit: full.All()[0]}
	default:
		return full
	}
}

// FreezeExits builds an exit map from exits in one step.
func FreezeExits(exits ...Exit) (ExitMap, error) {
	var b ExitMapBuilder
	for _, e := range exits {
		if err := b.Add(e); err != nil {
			return nil, err
		}
	}
	return b.Freeze(), nil
}
