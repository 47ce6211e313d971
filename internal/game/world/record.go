package world

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// LinkRecord is the flat, persistable form of a Link.
type LinkRecord struct {
	Kind       LinkKind
	Size       Size
	Route      Route
	Modifier   float64
	Message    string
	Severity   int
	Name       string
	Visibility int
	Up         bool
}

// Record flattens l.
func (l Link) Record() LinkRecord {
	return LinkRecord{
		Kind:       l.kind,
		Size:       l.size,
		Route:      l.route,
		Modifier:   l.modifier,
		Message:    l.message,
		Severity:   l.severity,
		Name:       l.name,
		Visibility: l.visibility,
		Up:         l.up,
	}
}

// Link rebuilds the link a record was flattened from.
//
// Postcondition: Returns an error for an unknown kind, size or route.
func (r LinkRecord) Link() (Link, error) {
	if int(r.Kind) >= len(linkKindNames) {
		return Link{}, fmt.Errorf("link record: unknown kind %d", r.Kind)
	}
	if r.Size > SizeLarge {
		return Link{}, fmt.Errorf("link record: unknown size %d", r.Size)
	}
	if int(r.Route) >= len(routeNames) {
		return Link{}, fmt.Errorf("link record: unknown route %d", r.Route)
	}
	opts := LinkOptions{Size: r.Size, Route: r.Route, Modifier: r.Modifier, Message: r.Message}
	switch r.Kind {
	case LinkDefault:
		return DefaultLink, nil
	case LinkExtended:
		return NewExtendedLink(opts)
	case LinkRoute:
		return NewRouteLink(r.Route), nil
	case LinkCurrent:
		return NewCurrentLink(r.Severity), nil
	case LinkFake:
		return FakeLink(), nil
	case LinkHidden:
		return NewHiddenLink(r.Name, r.Visibility, opts), nil
	default:
		return NewSlopeLink(r.Up, opts), nil
	}
}

// OverrideRecord is one persistable grid override. Destination is a location
// ref (see World.Ref) and is empty for blocked directions.
type OverrideRecord struct {
	Grid        string
	Coord       Coord
	Direction   Direction
	Blocked     bool
	Link        LinkRecord
	Destination string
}

const gridRefPrefix = "grid:"

// Ref returns a load-stable reference to id: its registered name when it has
// one, otherwise "grid:<name>:<x>,<y>" for grid cells.
//
// Postcondition: ok is false for unnamed free-standing and path locations.
func (w *World) Ref(id LocationID) (string, bool) {
	w.mu.RLock()
	var named []string
	for n, bound := range w.names {
		if bound == id {
			named = append(named, n)
		}
	}
	w.mu.RUnlock()
	if len(named) > 0 {
		sort.Strings(named)
		return named[0], true
	}
	g, c, ok := id.Cell()
	if !ok {
		return "", false
	}
	grid, ok := w.gridByID(g)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("%s%s:%d,%d", gridRefPrefix, grid.Name(), c.X, c.Y), true
}

// ResolveRef is the inverse of Ref.
//
// Postcondition: Returns ErrUnknownLocation for refs that do not resolve.
func (w *World) ResolveRef(ref string) (LocationID, error) {
	if !strings.HasPrefix(ref, gridRefPrefix) {
		id, ok := w.Lookup(ref)
		if !ok {
			return LocationID{}, fmt.Errorf("ref %q: %w", ref, ErrUnknownLocation)
		}
		return id, nil
	}
	rest := strings.TrimPrefix(ref, gridRefPrefix)
	i := strings.LastIndex(rest, ":")
	if i < 0 {
		return LocationID{}, fmt.Errorf("ref %q: malformed grid ref", ref)
	}
	xs, ys, ok := strings.Cut(rest[i+1:], ",")
	if !ok {
		return LocationID{}, fmt.Errorf("ref %q: malformed grid ref", ref)
	}
	x, errX := strconv.Atoi(xs)
	y, errY := strconv.Atoi(ys)
	if errX != nil || errY != nil {
		return LocationID{}, fmt.Errorf("ref %q: malformed grid coordinates", ref)
	}
	w.mu.RLock()
	grid, ok := w.gridNames[rest[:i]]
	w.mu.RUnlock()
	if !ok {
		return LocationID{}, fmt.Errorf("ref %q: %w", ref, ErrUnknownLocation)
	}
	c := Coord{X: x, Y: y}
	if _, ok := grid.Descriptor(c); !ok {
		return LocationID{}, fmt.Errorf("ref %q: %w", ref, grid.cellError(c))
	}
	return grid.LocationID(c), nil
}

// OverrideRecords flattens every override of the grid called name, ordered
// by row, column and direction.
//
// Postcondition: Returns ErrUnknownLocation for an unknown grid or a
// destination that has no ref.
func (w *World) OverrideRecords(name string) ([]OverrideRecord, error) {
	grid, ok := w.Grid(name)
	if !ok {
		return nil, fmt.Errorf("grid %q: %w", name, ErrUnknownLocation)
	}
	var out []OverrideRecord
	for c, byDir := range grid.AllOverrides() {
		for d, spec := range byDir {
			rec := OverrideRecord{Grid: name, Coord: c, Direction: d, Blocked: spec.Blocked}
			if !spec.Blocked {
				ref, ok := w.Ref(spec.Exit.Destination())
				if !ok {
					return nil, fmt.Errorf("grid %q %s %s: destination %s: %w",
						name, c, d, spec.Exit.Destination(), ErrUnknownLocation)
				}
				rec.Link = spec.Exit.Link().Record()
				rec.Destination = ref
			}
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Coord.Y != b.Coord.Y {
			return a.Coord.Y < b.Coord.Y
		}
		if a.Coord.X != b.Coord.X {
			return a.Coord.X < b.Coord.X
		}
		return a.Direction < b.Direction
	})
	return out, nil
}

// RestoreOverrides applies persisted overrides before the world is sealed.
// Records equal to an override already present are skipped.
//
// Postcondition: Returns the number of overrides added, or the first error;
// records before the failing one stay applied.
func (w *World) RestoreOverrides(records []OverrideRecord) (int, error) {
	added := 0
	for _, rec := range records {
		grid, ok := w.Grid(rec.Grid)
		if !ok {
			return added, fmt.Errorf("restoring override: grid %q: %w", rec.Grid, ErrUnknownLocation)
		}
		o := override{blocked: true}
		if !rec.Blocked {
			link, err := rec.Link.Link()
			if err != nil {
				return added, fmt.Errorf("restoring override %s %s: %w", rec.Coord, rec.Direction, err)
			}
			dest, err := w.ResolveRef(rec.Destination)
			if err != nil {
				return added, fmt.Errorf("restoring override %s %s: %w", rec.Coord, rec.Direction, err)
			}
			o = override{exit: NewExit(rec.Direction, link, dest)}
		}
		ok, err := grid.restore(rec.Coord, rec.Direction, o)
		if err != nil {
			return added, fmt.Errorf("restoring override: %w", err)
		}
		if ok {
			added++
		}
	}
	return added, nil
}
