package world

// ExitKeyPrefix prefixes every exit description key.
const ExitKeyPrefix = "location.exit."

// Exit is an immutable directed edge: a direction, the link that governs
// traversal, and the destination. Exits compare with ==.
type Exit struct {
	dir  Direction
	link Link
	dest LocationID
}

// NewExit returns an exit leading dir to dest through link.
func NewExit(dir Direction, link Link, dest LocationID) Exit {
	return Exit{dir: dir, link: link, dest: dest}
}

// Direction returns the exit's direction.
func (e Exit) Direction() Direction { return e.dir }

// Link returns the exit's link.
func (e Exit) Link() Link { return e.link }

// Destination returns the id of the location the exit leads to.
func (e Exit) Destination() LocationID { return e.dest }

// Description is the structured text of an exit, rendered by the
// presentation layer from Key.
type Description struct {
	Key         string
	Direction   string
	Destination string
	Message     string
	Reason      string
}

// Resolver maps location ids to locations.
type Resolver interface {
	Location(id LocationID) (*Location, bool)
}

// Describe builds the exit description. The destination name passes through
// the link, which may disguise it.
//
// Precondition: r must be non-nil.
func (e Exit) Describe(r Resolver) Description {
	name := ""
	if loc, ok := r.Location(e.dest); ok {
		name = loc.Name()
	}
	return Description{
		Key:         ExitKeyPrefix + e.link.Key(),
		Direction:   e.link.Wrap(e.dir.String()),
		Destination: e.link.Disguise(name),
		Message:     e.link.Message(),
		Reason:      e.link.Reason(),
	}
}

// IsPerceivedBy reports whether p notices the exit. Exits without a
// controller are always perceived.
func (e Exit) IsPerceivedBy(p Perceiver) bool {
	c, ok := e.link.Controller()
	if !ok {
		return true
	}
	return c.Perceives(p)
}
