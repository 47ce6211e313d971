package world

import "fmt"

// PathBuilder lays a linear chain of locations, linking each new location
// to the previous one along a heading that Turn changes.
type PathBuilder struct {
	w       *World
	area    *Area
	link    Link
	heading Direction
	prev    LocationID
	seq     []LocationID
	owned   map[LocationID]bool
	built   bool
}

// NewPath starts a path in area heading in direction heading. Steps are
// linked with a route link when r is not RouteNone, default links otherwise.
func (w *World) NewPath(area *Area, r Route, heading Direction) *PathBuilder {
	if area == nil {
		area = Root
	}
	link := DefaultLink
	if r != RouteNone {
		link = NewRouteLink(r)
	}
	return &PathBuilder{
		w:       w,
		area:    area,
		link:    link,
		heading: heading,
		owned:   make(map[LocationID]bool),
	}
}

// Turn changes the heading for subsequent steps.
func (p *PathBuilder) Turn(d Direction) {
	p.heading = d
}

// Heading returns the current heading.
func (p *PathBuilder) Heading() Direction { return p.heading }

// Add creates a location from desc and links it to the previous one.
//
// Postcondition: On error no location is created and no exit is added.
func (p *PathBuilder) Add(desc Descriptor) (*Location, error) {
	if p.built {
		return nil, ErrAlreadyBuilt
	}
	if err := p.check(LocationID{}); err != nil {
		return nil, err
	}
	loc, err := p.w.NewLocation(p.area, desc)
	if err != nil {
		return nil, err
	}
	p.owned[loc.ID()] = true
	if err := p.step(loc.ID()); err != nil {
		return nil, err
	}
	return loc, nil
}

// Junction links an existing location, such as a grid connector, into the
// path. Grid cells are anchored so their instance survives eviction.
//
// Postcondition: On error neither the path nor the junction changes.
func (p *PathBuilder) Junction(id LocationID) error {
	if p.built {
		return ErrAlreadyBuilt
	}
	if err := p.check(id); err != nil {
		return err
	}
	if err := p.w.Anchor(id); err != nil {
		return err
	}
	return p.step(id)
}

// check verifies that both exits of the next step can be added. A zero id
// stands for a location not created yet, whose reverse exit always fits.
func (p *PathBuilder) check(id LocationID) error {
	if p.prev.IsZero() {
		return nil
	}
	if err := p.w.checkExit(p.prev, NewExit(p.heading, p.link, id)); err != nil {
		return fmt.Errorf("path step %s: %w", p.heading, err)
	}
	if id.IsZero() {
		return nil
	}
	if err := p.w.checkExit(id, NewExit(p.heading.Opposite(), p.link, p.prev)); err != nil {
		return fmt.Errorf("path step %s: %w", p.heading, err)
	}
	return nil
}

func (p *PathBuilder) step(id LocationID) error {
	if !p.prev.IsZero() {
		if err := p.w.AddExit(p.prev, NewExit(p.heading, p.link, id)); err != nil {
			return fmt.Errorf("path step %s: %w", p.heading, err)
		}
		if err := p.w.AddExit(id, NewExit(p.heading.Opposite(), p.link, p.prev)); err != nil {
			return fmt.Errorf("path step %s: %w", p.heading, err)
		}
	}
	p.seq = append(p.seq, id)
	p.prev = id
	return nil
}

// Len returns the number of locations on the path, junctions included.
func (p *PathBuilder) Len() int { return len(p.seq) }

// Connectors returns the first and last locations of the path.
//
// Postcondition: Returns ErrPathTooShort if fewer than two locations were added.
func (p *PathBuilder) Connectors() (first, last LocationID, err error) {
	if len(p.seq) < 2 {
		return LocationID{}, LocationID{}, ErrPathTooShort
	}
	return p.seq[0], p.seq[len(p.seq)-1], nil
}

// Build freezes the interior locations the path created into their compact
// two-exit form. The endpoints stay open for named exits and are frozen by
// the linker or by World.Seal.
func (p *PathBuilder) Build() error {
	if p.built {
		return ErrAlreadyBuilt
	}
	if len(p.seq) < 2 {
		return ErrPathTooShort
	}
	p.built = true
	for _, id := range p.seq[1 : len(p.seq)-1] {
		if !p.owned[id] {
			continue
		}
		if loc, ok := p.w.Location(id); ok {
			loc.freezePair()
		}
	}
	return nil
}
