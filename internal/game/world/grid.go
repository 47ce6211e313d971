package world

import (
	"fmt"
	"runtime"
	"sync"
	"weak"

	"github.com/golang/groupcache/lru"
	"go.uber.org/zap"
)

// CacheObserver receives grid cache events, typically to export metrics.
type CacheObserver interface {
	CacheHit(grid string)
	CacheMiss(grid string)
	CacheEvict(grid string)
}

type nopObserver struct{}

func (nopObserver) CacheHit(string)   {}
func (nopObserver) CacheMiss(string)  {}
func (nopObserver) CacheEvict(string) {}

// override is an authored replacement for a derived exit: either an explicit
// block or a literal exit.
type override struct {
	blocked bool
	exit    Exit
}

type attachment struct {
	grid   *Grid
	offset int
}

// Grid is a rectangular region of location descriptors. Locations are
// instantiated on first access and cached; the cache may evict them at any
// time and regenerates equal locations from the static grid data.
//
// Cells that are anchored (connectors, path junctions) or occupied (contents
// or tracks present) are never dropped: eviction parks them in a pinned set
// so every holder keeps seeing the same instance. Other evicted cells are
// remembered weakly; while any caller still holds the instance, Get returns
// it again instead of regenerating a second one.
type Grid struct {
	id     GridID
	name   string
	area   *Area
	width  int
	height int
	cells  []Descriptor
	filled []bool

	mu        sync.Mutex
	overrides map[Coord]map[Direction]override
	neighbors [4]*attachment
	anchors   map[Coord]bool
	pinned    map[Coord]*Location
	evicted   map[Coord]weak.Pointer[Location]
	cache     *lru.Cache
	built     bool
	sealed    bool

	observer CacheObserver
	logger   *zap.Logger
}

func sideIndex(d Direction) int {
	return int(d) / 2
}

func newGrid(id GridID, name string, area *Area, width, height int, opts Options) *Grid {
	g := &Grid{
		id:        id,
		name:      name,
		area:      area,
		width:     width,
		height:    height,
		cells:     make([]Descriptor, width*height),
		filled:    make([]bool, width*height),
		overrides: make(map[Coord]map[Direction]override),
		anchors:   make(map[Coord]bool),
		pinned:    make(map[Coord]*Location),
		evicted:   make(map[Coord]weak.Pointer[Location]),
		cache:     lru.New(opts.CacheSize),
		observer:  opts.Observer,
		logger:    opts.Logger,
	}
	if g.observer == nil {
		g.observer = nopObserver{}
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	g.cache.OnEvicted = g.onEvicted
	return g
}

// ID returns the grid id.
func (g *Grid) ID() GridID { return g.id }

// Name returns the grid name.
func (g *Grid) Name() string { return g.name }

// Area returns the area owning every cell.
func (g *Grid) Area() *Area { return g.area }

// Width returns the number of columns.
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.height }

// InBounds reports whether c lies inside the matrix.
func (g *Grid) InBounds(c Coord) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < g.width && c.Y < g.height
}

func (g *Grid) index(c Coord) int {
	return c.Y*g.width + c.X
}

// Descriptor returns the descriptor at c. ok is false for out-of-bounds and
// empty cells.
func (g *Grid) Descriptor(c Coord) (Descriptor, bool) {
	if !g.InBounds(c) || !g.filled[g.index(c)] {
		return Descriptor{}, false
	}
	return g.cells[g.index(c)], true
}

// LocationID returns the id of the cell at c.
func (g *Grid) LocationID(c Coord) LocationID {
	return cellID(g.id, c)
}

// Get returns the location at c, creating it on first access.
//
// Postcondition: Returns ErrOutOfBounds outside the matrix and ErrEmptyCell
// for sparse cells. Repeated calls, across evictions, return equal locations.
func (g *Grid) Get(c Coord) (*Location, error) {
	if !g.InBounds(c) {
		return nil, fmt.Errorf("grid %q %s: %w", g.name, c, ErrOutOfBounds)
	}
	desc, ok := g.Descriptor(c)
	if !ok {
		return nil, fmt.Errorf("grid %q %s: %w", g.name, c, ErrEmptyCell)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if loc, ok := g.pinned[c]; ok {
		if !g.anchors[c] && !loc.Occupied() {
			delete(g.pinned, c)
			g.cache.Add(c, loc)
		}
		g.observer.CacheHit(g.name)
		return loc, nil
	}
	if v, ok := g.cache.Get(c); ok {
		g.observer.CacheHit(g.name)
		return v.(*Location), nil
	}
	if loc := g.reclaimLocked(c); loc != nil {
		g.observer.CacheHit(g.name)
		g.cache.Add(c, loc)
		return loc, nil
	}

	g.observer.CacheMiss(g.name)
	loc := newDerivedLocation(cellID(g.id, c), g.area, desc, func() ExitMap { return g.build(c) })
	if g.anchors[c] {
		g.pinned[c] = loc
	} else {
		g.cache.Add(c, loc)
	}
	return loc, nil
}

// Lookup is Get without errors.
func (g *Grid) Lookup(c Coord) (*Location, bool) {
	loc, err := g.Get(c)
	return loc, err == nil
}

// Evict drops the cached location at c. Anchored or occupied cells are
// parked instead. It reports whether a cache entry existed.
func (g *Grid) Evict(c Coord) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.cache.Get(c); !ok {
		return false
	}
	g.cache.Remove(c)
	return true
}

// reclaimLocked returns the evicted instance at c if something still holds
// it, and forgets the weak entry either way. Caller holds g.mu.
func (g *Grid) reclaimLocked(c Coord) *Location {
	wp, ok := g.evicted[c]
	if !ok {
		return nil
	}
	delete(g.evicted, c)
	return wp.Value()
}

// forget drops the weak entry at c once its instance has been collected,
// unless the cell was evicted again with a different instance since.
func (g *Grid) forget(c Coord, wp weak.Pointer[Location]) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if cur, ok := g.evicted[c]; ok && cur == wp {
		delete(g.evicted, c)
	}
}

// Cached returns the number of instantiated locations, pinned included.
func (g *Grid) Cached() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cache.Len() + len(g.pinned)
}

// onEvicted runs under g.mu.
func (g *Grid) onEvicted(key lru.Key, value any) {
	c := key.(Coord)
	loc := value.(*Location)
	if g.anchors[c] || loc.Occupied() {
		g.pinned[c] = loc
		return
	}
	wp := weak.Make(loc)
	g.evicted[c] = wp
	runtime.AddCleanup(loc, func(wp weak.Pointer[Location]) { g.forget(c, wp) }, wp)
	g.observer.CacheEvict(g.name)
	g.logger.Debug("grid cell evicted",
		zap.String("grid", g.name),
		zap.Int("x", c.X),
		zap.Int("y", c.Y),
	)
}

// Anchor permanently pins the cell at c so its instance is never replaced.
func (g *Grid) Anchor(c Coord) error {
	if _, ok := g.Descriptor(c); !ok {
		return g.cellError(c)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.anchors[c] = true
	if v, ok := g.cache.Get(c); ok {
		g.pinned[c] = v.(*Location)
		g.cache.Remove(c)
	} else if loc := g.reclaimLocked(c); loc != nil {
		g.pinned[c] = loc
	}
	return nil
}

// Anchored reports whether c is permanently pinned.
func (g *Grid) Anchored(c Coord) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.anchors[c]
}

func (g *Grid) cellError(c Coord) error {
	if !g.InBounds(c) {
		return fmt.Errorf("grid %q %s: %w", g.name, c, ErrOutOfBounds)
	}
	return fmt.Errorf("grid %q %s: %w", g.name, c, ErrEmptyCell)
}

// checkOverrideLocked reports whether o may be recorded at (c, d). Caller
// holds g.mu.
func (g *Grid) checkOverrideLocked(c Coord, d Direction, o override) error {
	byDir := g.overrides[c]
	if _, ok := byDir[d]; ok {
		return fmt.Errorf("grid %q %s %s: %w", g.name, c, d, ErrDuplicateExit)
	}
	if !o.blocked && o.exit.link.Kind() == LinkCurrent {
		for _, other := range byDir {
			if !other.blocked && other.exit.link.Kind() == LinkCurrent {
				return fmt.Errorf("grid %q %s %s: %w", g.name, c, d, ErrDuplicateCurrent)
			}
		}
	}
	return nil
}

// addOverride records an override at (c, d). Caller holds g.mu.
func (g *Grid) addOverride(c Coord, d Direction, o override) error {
	if err := g.checkOverrideLocked(c, d, o); err != nil {
		return err
	}
	byDir := g.overrides[c]
	if byDir == nil {
		byDir = make(map[Direction]override)
		g.overrides[c] = byDir
	}
	byDir[d] = o
	return nil
}

// Link adds a literal exit override to the cell at c after the grid is
// built, used when named exits start in a grid cell. A cached instance
// rebuilds its exits on next access.
func (g *Grid) Link(c Coord, e Exit) error {
	if _, ok := g.Descriptor(c); !ok {
		return g.cellError(c)
	}
	g.mu.Lock()
	if g.sealed {
		g.mu.Unlock()
		return ErrSealed
	}
	if err := g.addOverride(c, e.dir, override{exit: e}); err != nil {
		g.mu.Unlock()
		return err
	}
	loc := g.instanceLocked(c)
	g.mu.Unlock()

	if loc != nil {
		loc.invalidate()
	}
	return nil
}

// checkLink reports whether Link(c, e) would succeed, without changing
// anything.
func (g *Grid) checkLink(c Coord, e Exit) error {
	if _, ok := g.Descriptor(c); !ok {
		return g.cellError(c)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sealed {
		return ErrSealed
	}
	return g.checkOverrideLocked(c, e.dir, override{exit: e})
}

// instanceLocked returns the live instance at c, if any, including an
// evicted one that is still held elsewhere. Caller holds g.mu.
func (g *Grid) instanceLocked(c Coord) *Location {
	if loc, ok := g.pinned[c]; ok {
		return loc
	}
	if v, ok := g.cache.Get(c); ok {
		return v.(*Location)
	}
	if wp, ok := g.evicted[c]; ok {
		return wp.Value()
	}
	return nil
}

// edge returns the coordinates along side.
func (g *Grid) edge(side Direction) []Coord {
	var out []Coord
	switch side {
	case North, South:
		y := 0
		if side == South {
			y = g.height - 1
		}
		for x := 0; x < g.width; x++ {
			out = append(out, Coord{X: x, Y: y})
		}
	default:
		x := 0
		if side == East {
			x = g.width - 1
		}
		for y := 0; y < g.height; y++ {
			out = append(out, Coord{X: x, Y: y})
		}
	}
	return out
}

// edgeInstancesLocked returns the live instances along side. Caller holds g.mu.
func (g *Grid) edgeInstancesLocked(side Direction) []*Location {
	var out []*Location
	for _, c := range g.edge(side) {
		if loc := g.instanceLocked(c); loc != nil {
			out = append(out, loc)
		}
	}
	return out
}

// restore adds o at (c, d) unless an equal override is present. A cached
// instance rebuilds its exits on next access.
func (g *Grid) restore(c Coord, d Direction, o override) (bool, error) {
	if _, ok := g.Descriptor(c); !ok {
		return false, g.cellError(c)
	}
	g.mu.Lock()
	if g.sealed {
		g.mu.Unlock()
		return false, ErrSealed
	}
	if existing, ok := g.overrides[c][d]; ok && existing == o {
		g.mu.Unlock()
		return false, nil
	}
	if err := g.addOverride(c, d, o); err != nil {
		g.mu.Unlock()
		return false, err
	}
	loc := g.instanceLocked(c)
	g.mu.Unlock()

	if loc != nil {
		loc.invalidate()
	}
	return true, nil
}

// Overrides returns the authored overrides at c: exits keyed by direction,
// with blocked directions mapped to ok=false entries.
func (g *Grid) Overrides(c Coord) map[Direction]OverrideSpec {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[Direction]OverrideSpec, len(g.overrides[c]))
	for d, o := range g.overrides[c] {
		out[d] = OverrideSpec{Blocked: o.blocked, Exit: o.exit}
	}
	return out
}

// OverrideSpec is the exported form of an authored override.
type OverrideSpec struct {
	Blocked bool
	Exit    Exit
}

// AllOverrides returns every authored override keyed by coordinate.
func (g *Grid) AllOverrides() map[Coord]map[Direction]OverrideSpec {
	g.mu.Lock()
	coords := make([]Coord, 0, len(g.overrides))
	for c := range g.overrides {
		coords = append(coords, c)
	}
	g.mu.Unlock()
	out := make(map[Coord]map[Direction]OverrideSpec, len(coords))
	for _, c := range coords {
		out[c] = g.Overrides(c)
	}
	return out
}

// Neighbor returns the grid attached on side and its offset.
func (g *Grid) Neighbor(side Direction) (*Grid, int, bool) {
	if !side.IsCardinal() {
		return nil, 0, false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	a := g.neighbors[sideIndex(side)]
	if a == nil {
		return nil, 0, false
	}
	return a.grid, a.offset, true
}

// across translates c over the boundary on side into the attached grid.
// Caller holds g.mu.
func (g *Grid) across(c Coord, side Direction) (*Grid, Coord, bool) {
	a := g.neighbors[sideIndex(side)]
	if a == nil {
		return nil, Coord{}, false
	}
	n := a.grid
	var nc Coord
	switch side {
	case North:
		nc = Coord{X: c.X + a.offset, Y: n.height - 1}
	case South:
		nc = Coord{X: c.X + a.offset, Y: 0}
	case East:
		nc = Coord{X: 0, Y: c.Y + a.offset}
	default:
		nc = Coord{X: n.width - 1, Y: c.Y + a.offset}
	}
	if _, ok := n.Descriptor(nc); !ok {
		return nil, Coord{}, false
	}
	return n, nc, true
}

// build derives the exits of the cell at c. It is a pure function of c and
// the grid's static data.
func (g *Grid) build(c Coord) ExitMap {
	g.mu.Lock()
	defer g.mu.Unlock()

	var b ExitMapBuilder
	add := func(e Exit) {
		if err := b.Add(e); err != nil {
			panic(fmt.Sprintf("world: grid %q %s: inconsistent overrides: %v", g.name, c, err))
		}
	}

	byDir := g.overrides[c]
	for _, d := range CardinalDirections {
		if o, ok := byDir[d]; ok {
			if !o.blocked {
				add(o.exit)
			}
			continue
		}
		n := c.Step(d)
		if g.InBounds(n) {
			if g.filled[g.index(n)] {
				add(NewExit(d, DefaultLink, cellID(g.id, n)))
			}
			continue
		}
		if ng, nc, ok := g.across(c, d); ok {
			add(NewExit(d, DefaultLink, cellID(ng.id, nc)))
		}
	}
	for d, o := range byDir {
		if !d.IsCardinal() && !o.blocked {
			add(o.exit)
		}
	}
	return b.Freeze()
}

// Attach stitches b onto side of a with offset k, and a onto the opposite
// side of b with offset -k. Along the shared edge, a's row or column i meets
// b's i+k.
//
// Postcondition: Returns ErrOffsetRange if |k| reaches either grid's extent
// perpendicular to side, ErrAlreadyAttached if either side is taken; neither
// grid changes on error.
func Attach(a *Grid, side Direction, b *Grid, k int) error {
	stale, err := attach(a, side, b, k)
	if err != nil {
		return err
	}
	for _, loc := range stale {
		loc.invalidate()
	}
	return nil
}

// attach links the grids and returns the live instances along both shared
// edges, whose derived exits predate the attachment.
func attach(a *Grid, side Direction, b *Grid, k int) ([]*Location, error) {
	if !side.IsCardinal() {
		return nil, fmt.Errorf("attaching %q to %q: side %s is not cardinal", b.name, a.name, side)
	}
	extentA, extentB := a.height, b.height
	if side == North || side == South {
		extentA, extentB = a.width, b.width
	}
	if abs(k) >= extentA || abs(k) >= extentB {
		return nil, fmt.Errorf("attaching %q to %q %s with offset %d: %w", b.name, a.name, side, k, ErrOffsetRange)
	}

	rev := side.Opposite()
	if a == b {
		a.mu.Lock()
		defer a.mu.Unlock()
	} else {
		first, second := a, b
		if b.id < a.id {
			first, second = b, a
		}
		first.mu.Lock()
		defer first.mu.Unlock()
		second.mu.Lock()
		defer second.mu.Unlock()
	}
	if a.sealed || b.sealed {
		return nil, ErrSealed
	}
	if a.neighbors[sideIndex(side)] != nil {
		return nil, fmt.Errorf("attaching %q to %q %s: %w", b.name, a.name, side, ErrAlreadyAttached)
	}
	if b.neighbors[sideIndex(rev)] != nil {
		return nil, fmt.Errorf("attaching %q to %q %s: %w", a.name, b.name, rev, ErrAlreadyAttached)
	}
	a.neighbors[sideIndex(side)] = &attachment{grid: b, offset: k}
	b.neighbors[sideIndex(rev)] = &attachment{grid: a, offset: -k}
	return append(a.edgeInstancesLocked(side), b.edgeInstancesLocked(rev)...), nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func (g *Grid) seal() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sealed = true
}
