package world

import (
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/cory-johannsen/mudworld/internal/game/loot"
	"github.com/cory-johannsen/mudworld/internal/game/weather"
)

// RootName is the name of the Root area.
const RootName = "root"

// AmbientEvent is a scripted event an area fires on simulation ticks.
type AmbientEvent struct {
	// Hook is the Lua global function invoked in the area's script VM.
	Hook string
	// Chance is the per-tick percentage chance the hook fires.
	Chance int
}

// NameStore holds category-keyed name pools, used to name procedurally
// generated locations.
type NameStore struct {
	pools map[string][]string
}

// NewNameStore returns a store over pools. Pools are copied.
func NewNameStore(pools map[string][]string) *NameStore {
	s := &NameStore{pools: make(map[string][]string, len(pools))}
	for k, v := range pools {
		if len(v) > 0 {
			s.pools[k] = append([]string(nil), v...)
		}
	}
	return s
}

var emptyStore = NewNameStore(nil)

// Has reports whether the store holds a pool for category.
func (s *NameStore) Has(category string) bool {
	_, ok := s.pools[category]
	return ok
}

// Categories returns the pool names in sorted order.
func (s *NameStore) Categories() []string {
	out := make([]string, 0, len(s.pools))
	for k := range s.pools {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Pick deterministically selects a name from category using key.
//
// Postcondition: equal (category, key) pairs yield equal names; ok is false
// when the category is unknown.
func (s *NameStore) Pick(category, key string) (string, bool) {
	pool, ok := s.pools[category]
	if !ok {
		return "", false
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(category))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(key))
	return pool[h.Sum64()%uint64(len(pool))], true
}

// AreaConfig carries the defaults an area supplies to its locations and
// descendants. Zero fields defer to the parent.
type AreaConfig struct {
	Properties []Property
	Resources  []*loot.Table
	Views      map[Direction]string
	Weather    *weather.Weather
	Ambient    *AmbientEvent
	Names      *NameStore
}

// Area is a named scope in the area tree. Lookups that an area cannot answer
// itself walk the parent chain up to Root.
//
// Invariant: every area except Root has exactly one parent.
type Area struct {
	name      string
	parent    *Area
	props     PropertySet
	resources map[string]*loot.Table
	views     map[Direction]string
	weather   *weather.Weather
	ambient   *AmbientEvent
	store     *NameStore
}

// Root is the sentinel at the top of every area chain. It has no defaults,
// no weather (weather.None) and an empty name store.
var Root = &Area{name: RootName, weather: weather.None, store: emptyStore}

// NewArea creates an area under parent; a nil parent means Root.
//
// Postcondition: Returns ErrOverridableProperty if cfg names a property outside
// the area-overridable subset, or an error for an empty name or invalid resource.
func NewArea(name string, parent *Area, cfg AreaConfig) (*Area, error) {
	if name == "" {
		return nil, fmt.Errorf("area name must not be empty")
	}
	if parent == nil {
		parent = Root
	}
	a := &Area{
		name:    name,
		parent:  parent,
		weather: cfg.Weather,
		ambient: cfg.Ambient,
		store:   cfg.Names,
	}
	for _, p := range cfg.Properties {
		if !p.Overridable() {
			return nil, fmt.Errorf("area %q: property %s: %w", name, p, ErrOverridableProperty)
		}
		a.props = a.props.With(p)
	}
	if len(cfg.Resources) > 0 {
		a.resources = make(map[string]*loot.Table, len(cfg.Resources))
		for _, t := range cfg.Resources {
			if err := t.Validate(); err != nil {
				return nil, fmt.Errorf("area %q: %w", name, err)
			}
			a.resources[t.Resource] = t
		}
	}
	if len(cfg.Views) > 0 {
		a.views = make(map[Direction]string, len(cfg.Views))
		for d, v := range cfg.Views {
			a.views[d] = v
		}
	}
	return a, nil
}

// Name returns the area name.
func (a *Area) Name() string { return a.name }

// Parent returns the parent area, or nil for Root.
func (a *Area) Parent() *Area { return a.parent }

// IsRoot reports whether a is the Root sentinel.
func (a *Area) IsRoot() bool { return a == Root }

// Depth returns the number of parent steps from a to Root.
func (a *Area) Depth() int {
	n := 0
	for cur := a; cur.parent != nil; cur = cur.parent {
		n++
	}
	return n
}

// Properties returns the area's own default properties.
func (a *Area) Properties() PropertySet { return a.props }

// IsProperty reports whether a or any ancestor supplies p as a default.
func (a *Area) IsProperty(p Property) bool {
	for cur := a; cur != nil; cur = cur.parent {
		if cur.props.Has(p) {
			return true
		}
	}
	return false
}

// Resource returns the loot factory for resource name.
func (a *Area) Resource(name string) (*loot.Table, bool) {
	for cur := a; cur != nil; cur = cur.parent {
		if t, ok := cur.resources[name]; ok {
			return t, true
		}
	}
	return nil, false
}

// View returns the distant view seen looking in direction d.
func (a *Area) View(d Direction) (string, bool) {
	for cur := a; cur != nil; cur = cur.parent {
		if v, ok := cur.views[d]; ok {
			return v, true
		}
	}
	return "", false
}

// Ambient returns the nearest ambient event.
func (a *Area) Ambient() (AmbientEvent, bool) {
	for cur := a; cur != nil; cur = cur.parent {
		if cur.ambient != nil {
			return *cur.ambient, true
		}
	}
	return AmbientEvent{}, false
}

// Weather returns the nearest weather; Root answers weather.None.
func (a *Area) Weather() *weather.Weather {
	for cur := a; cur != nil; cur = cur.parent {
		if cur.weather != nil {
			return cur.weather
		}
	}
	return weather.None
}

// OwnWeather returns the weather the area itself owns, if any.
func (a *Area) OwnWeather() (*weather.Weather, bool) {
	if a.weather == nil || a.weather.IsNone() {
		return nil, false
	}
	return a.weather, true
}

// Store returns the nearest name store; Root answers an empty store.
func (a *Area) Store() *NameStore {
	for cur := a; cur != nil; cur = cur.parent {
		if cur.store != nil {
			return cur.store
		}
	}
	return emptyStore
}
