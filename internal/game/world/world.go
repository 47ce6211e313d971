package world

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Options configures a World.
type Options struct {
	// CacheSize bounds each grid's location cache; zero means unbounded.
	CacheSize int
	// Observer receives grid cache events. Nil disables reporting.
	Observer CacheObserver
	// Logger receives construction and eviction logs. Nil discards them.
	Logger *zap.Logger
}

// World owns every location, grid, area and location name. It is the
// Resolver exits are described against.
//
// The world is assembled single-threaded at load time and then sealed;
// after Seal, structure is read-only and safe for concurrent use.
type World struct {
	opts   Options
	logger *zap.Logger

	mu        sync.RWMutex
	areas     map[string]*Area
	locations []*Location
	grids     []*Grid
	gridNames map[string]*Grid
	names     map[string]LocationID
	sealed    bool
}

// New returns an empty world.
func New(opts Options) *World {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &World{
		opts:      opts,
		logger:    opts.Logger,
		areas:     map[string]*Area{RootName: Root},
		gridNames: make(map[string]*Grid),
		names:     make(map[string]LocationID),
	}
}

// AddArea registers a.
//
// Postcondition: Returns ErrDuplicateName if an area of the same name exists.
func (w *World) AddArea(a *Area) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sealed {
		return ErrSealed
	}
	if _, ok := w.areas[a.Name()]; ok {
		return fmt.Errorf("area %q: %w", a.Name(), ErrDuplicateName)
	}
	w.areas[a.Name()] = a
	return nil
}

// Area returns the area called name. Root is always present.
func (w *World) Area(name string) (*Area, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	a, ok := w.areas[name]
	return a, ok
}

// Areas returns every area, Root included, sorted by name.
func (w *World) Areas() []*Area {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]*Area, 0, len(w.areas))
	for _, a := range w.areas {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// NewLocation creates a free-standing location whose exits are declared
// afterwards through AddExit.
//
// A nil area means Root.
func (w *World) NewLocation(area *Area, desc Descriptor) (*Location, error) {
	if area == nil {
		area = Root
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sealed {
		return nil, ErrSealed
	}
	loc := newPendingLocation(arenaID(len(w.locations)), area, desc)
	w.locations = append(w.locations, loc)
	return loc, nil
}

// NewGrid reserves a grid id and returns its builder.
//
// Postcondition: Returns an error for non-positive dimensions or a
// duplicate grid name.
func (w *World) NewGrid(name string, area *Area, width, height int) (*GridBuilder, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("grid %q: dimensions %dx%d must be positive", name, width, height)
	}
	if area == nil {
		area = Root
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sealed {
		return nil, ErrSealed
	}
	if _, ok := w.gridNames[name]; ok {
		return nil, fmt.Errorf("grid %q: %w", name, ErrDuplicateName)
	}
	g := newGrid(GridID(len(w.grids)+1), name, area, width, height, w.opts)
	w.grids = append(w.grids, g)
	w.gridNames[name] = g
	return &GridBuilder{grid: g}, nil
}

// Grid returns the built grid called name.
func (w *World) Grid(name string) (*Grid, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	g, ok := w.gridNames[name]
	if !ok || !g.isBuilt() {
		return nil, false
	}
	return g, true
}

// Grids returns every built grid in creation order.
func (w *World) Grids() []*Grid {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]*Grid, 0, len(w.grids))
	for _, g := range w.grids {
		if g.isBuilt() {
			out = append(out, g)
		}
	}
	return out
}

func (w *World) gridByID(id GridID) (*Grid, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if id == 0 || int(id) > len(w.grids) {
		return nil, false
	}
	g := w.grids[id-1]
	return g, g.isBuilt()
}

// Location resolves id. Grid cells are instantiated on demand.
func (w *World) Location(id LocationID) (*Location, bool) {
	if g, c, ok := id.Cell(); ok {
		grid, ok := w.gridByID(g)
		if !ok {
			return nil, false
		}
		return grid.Lookup(c)
	}
	i, ok := id.arenaIndex()
	if !ok {
		return nil, false
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	if i >= len(w.locations) {
		return nil, false
	}
	return w.locations[i], true
}

// Register binds name to id for exit resolution.
//
// Postcondition: Returns ErrDuplicateName if name is bound,
// ErrUnknownLocation if id does not resolve.
func (w *World) Register(name string, id LocationID) error {
	if _, ok := w.Location(id); !ok {
		return fmt.Errorf("registering %q as %s: %w", name, id, ErrUnknownLocation)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sealed {
		return ErrSealed
	}
	if _, ok := w.names[name]; ok {
		return fmt.Errorf("location %q: %w", name, ErrDuplicateName)
	}
	w.names[name] = id
	return nil
}

// Lookup returns the id bound to name.
func (w *World) Lookup(name string) (LocationID, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	id, ok := w.names[name]
	return id, ok
}

// LocationByName resolves a registered name to its location.
func (w *World) LocationByName(name string) (*Location, bool) {
	id, ok := w.Lookup(name)
	if !ok {
		return nil, false
	}
	return w.Location(id)
}

// Names returns every registered name, sorted.
func (w *World) Names() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]string, 0, len(w.names))
	for n := range w.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// AddExit adds e to the location from. Free-standing and path locations
// must still be unfrozen; grid cells take e as a literal override.
func (w *World) AddExit(from LocationID, e Exit) error {
	if g, c, ok := from.Cell(); ok {
		grid, ok := w.gridByID(g)
		if !ok {
			return fmt.Errorf("adding exit from %s: %w", from, ErrUnknownLocation)
		}
		if err := grid.Link(c, e); err != nil {
			return fmt.Errorf("adding exit from %s: %w", from, err)
		}
		return nil
	}
	loc, ok := w.Location(from)
	if !ok {
		return fmt.Errorf("adding exit from %s: %w", from, ErrUnknownLocation)
	}
	if err := loc.addExit(e); err != nil {
		return fmt.Errorf("adding exit from %s: %w", from, err)
	}
	return nil
}

// checkExit reports whether AddExit(from, e) would succeed, without changing
// anything.
func (w *World) checkExit(from LocationID, e Exit) error {
	if g, c, ok := from.Cell(); ok {
		grid, ok := w.gridByID(g)
		if !ok {
			return fmt.Errorf("adding exit from %s: %w", from, ErrUnknownLocation)
		}
		if err := grid.checkLink(c, e); err != nil {
			return fmt.Errorf("adding exit from %s: %w", from, err)
		}
		return nil
	}
	loc, ok := w.Location(from)
	if !ok {
		return fmt.Errorf("adding exit from %s: %w", from, ErrUnknownLocation)
	}
	if err := loc.checkExit(e); err != nil {
		return fmt.Errorf("adding exit from %s: %w", from, err)
	}
	return nil
}

// Anchor permanently pins a grid cell. Non-grid ids are always stable and
// are accepted as-is.
func (w *World) Anchor(id LocationID) error {
	g, c, ok := id.Cell()
	if !ok {
		if _, ok := w.Location(id); !ok {
			return fmt.Errorf("anchoring %s: %w", id, ErrUnknownLocation)
		}
		return nil
	}
	grid, ok := w.gridByID(g)
	if !ok {
		return fmt.Errorf("anchoring %s: %w", id, ErrUnknownLocation)
	}
	return grid.Anchor(c)
}

func (w *World) freeze(id LocationID) {
	if _, _, ok := id.Cell(); ok {
		return
	}
	if loc, ok := w.Location(id); ok {
		loc.freeze()
	}
}

// Seal freezes every remaining exit builder and closes the world to
// structural changes.
func (w *World) Seal() {
	w.mu.Lock()
	if w.sealed {
		w.mu.Unlock()
		return
	}
	w.sealed = true
	locations := w.locations
	grids := w.grids
	w.mu.Unlock()

	for _, loc := range locations {
		loc.freeze()
	}
	for _, g := range grids {
		g.seal()
	}
	w.logger.Info("world sealed",
		zap.Int("locations", len(locations)),
		zap.Int("grids", len(grids)),
	)
}

// Sealed reports whether Seal has run.
func (w *World) Sealed() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.sealed
}

// LocationCount returns the number of free-standing and path locations.
func (w *World) LocationCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.locations)
}
