package world

import (
	"slices"
	"sync"

	"github.com/google/uuid"
)

type exitState uint8

const (
	exitsUnbuilt exitState = iota // derived lazily on first access
	exitsPending                  // still accepting exits through a builder
	exitsBuilt
)

// Location is a place in the world graph. Free-standing and path locations
// accumulate exits through a builder until frozen; grid cells derive their
// exits from the grid on first access.
type Location struct {
	id       LocationID
	area     *Area
	desc     Descriptor
	contents Contents

	trackMu sync.Mutex
	tracks  []*Tracks

	exitMu  sync.Mutex
	state   exitState
	pending *ExitMapBuilder
	exits   ExitMap
	derive  func() ExitMap
}

func newPendingLocation(id LocationID, area *Area, desc Descriptor) *Location {
	return &Location{
		id:      id,
		area:    area,
		desc:    desc,
		state:   exitsPending,
		pending: &ExitMapBuilder{},
	}
}

func newDerivedLocation(id LocationID, area *Area, desc Descriptor, derive func() ExitMap) *Location {
	return &Location{
		id:     id,
		area:   area,
		desc:   desc,
		state:  exitsUnbuilt,
		derive: derive,
	}
}

// ID returns the location's stable id.
func (l *Location) ID() LocationID { return l.id }

// Area returns the owning area.
func (l *Location) Area() *Area { return l.area }

// Descriptor returns the static description.
func (l *Location) Descriptor() Descriptor { return l.desc }

// Name returns the descriptor name.
func (l *Location) Name() string { return l.desc.Name }

// Terrain returns the descriptor terrain.
func (l *Location) Terrain() Terrain { return l.desc.Terrain }

// Exits returns the location's exits. Grid cells build them on first call.
// While the location is still under construction a snapshot is returned.
func (l *Location) Exits() ExitMap {
	l.exitMu.Lock()
	defer l.exitMu.Unlock()
	switch l.state {
	case exitsBuilt:
		return l.exits
	case exitsUnbuilt:
		l.exits = l.derive()
		l.state = exitsBuilt
		return l.exits
	default:
		return l.pending.Freeze()
	}
}

// Exit returns the exit in direction d.
func (l *Location) Exit(d Direction) (Exit, bool) {
	return l.Exits().Find(d)
}

// IsBuilt reports whether the exit map is frozen.
func (l *Location) IsBuilt() bool {
	l.exitMu.Lock()
	defer l.exitMu.Unlock()
	return l.state == exitsBuilt
}

func (l *Location) checkExit(e Exit) error {
	l.exitMu.Lock()
	defer l.exitMu.Unlock()
	if l.state != exitsPending {
		return ErrFrozen
	}
	return l.pending.check(e)
}

func (l *Location) addExit(e Exit) error {
	l.exitMu.Lock()
	defer l.exitMu.Unlock()
	if l.state != exitsPending {
		return ErrFrozen
	}
	return l.pending.Add(e)
}

func (l *Location) freeze() {
	l.exitMu.Lock()
	defer l.exitMu.Unlock()
	if l.state != exitsPending {
		return
	}
	l.exits = l.pending.Freeze()
	l.pending = nil
	l.state = exitsBuilt
}

// freezePair freezes a path node holding exactly two exits into the 2-slot
// form; anything else freezes normally.
func (l *Location) freezePair() {
	l.exitMu.Lock()
	defer l.exitMu.Unlock()
	if l.state != exitsPending {
		return
	}
	if l.pending.Len() == 2 {
		all := l.pending.Freeze().All()
		l.exits = newPairExitMap(all[0], all[1])
	} else {
		l.exits = l.pending.Freeze()
	}
	l.pending = nil
	l.state = exitsBuilt
}

// invalidate drops derived exits so the next access rebuilds them.
func (l *Location) invalidate() {
	l.exitMu.Lock()
	defer l.exitMu.Unlock()
	if l.derive != nil {
		l.exits = nil
		l.state = exitsUnbuilt
	}
}

// IsProperty reports whether p holds here. For area-overridable properties
// the location bit toggles the area default; other properties come from the
// descriptor alone.
func (l *Location) IsProperty(p Property) bool {
	local := l.desc.Props.Has(p)
	if p.Overridable() {
		return l.area.IsProperty(p) != local
	}
	return local
}

// IsWater reports whether the location is water by terrain or property.
func (l *Location) IsWater() bool {
	return l.desc.IsWater() || l.IsProperty(Water)
}

// IsFrozen reports whether the location is water under frozen weather.
func (l *Location) IsFrozen() bool {
	return l.IsWater() && l.area.Weather().IsFrozen()
}

func (l *Location) swimming() bool {
	return l.IsWater() && !l.IsFrozen()
}

// IsTransition reports whether moving to next changes movement mode
// (entering or leaving open water), which interrupts a trail.
func (l *Location) IsTransition(next *Location) bool {
	return l.swimming() != next.swimming()
}

// Contents returns the entities present.
func (l *Location) Contents() *Contents { return &l.contents }

// Tracks returns the tracks left here, oldest first.
func (l *Location) Tracks() []*Tracks {
	l.trackMu.Lock()
	defer l.trackMu.Unlock()
	return slices.Clone(l.tracks)
}

func (l *Location) attachTracks(t *Tracks) {
	l.trackMu.Lock()
	defer l.trackMu.Unlock()
	l.tracks = append(l.tracks, t)
}

func (l *Location) detachTracks(t *Tracks) {
	l.trackMu.Lock()
	defer l.trackMu.Unlock()
	if i := slices.Index(l.tracks, t); i >= 0 {
		l.tracks = slices.Delete(l.tracks, i, i+1)
	}
}

// Occupied reports whether anything is present or tracks remain. Occupied
// grid cells are never dropped from the grid cache.
func (l *Location) Occupied() bool {
	if l.contents.Len() > 0 {
		return true
	}
	l.trackMu.Lock()
	defer l.trackMu.Unlock()
	return len(l.tracks) > 0
}

// Contents is the set of entities present at a location.
type Contents struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

// Add records id. It reports false if id was already present.
func (c *Contents) Add(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if slices.Contains(c.ids, id) {
		return false
	}
	c.ids = append(c.ids, id)
	return true
}

// Remove drops id. It reports false if id was absent.
func (c *Contents) Remove(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.Index(c.ids, id)
	if i < 0 {
		return false
	}
	c.ids = slices.Delete(c.ids, i, i+1)
	return true
}

// Has reports whether id is present.
func (c *Contents) Has(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Contains(c.ids, id)
}

// Len returns the number of entities present.
func (c *Contents) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ids)
}

// IDs returns the present entities in arrival order.
func (c *Contents) IDs() []uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.ids)
}
