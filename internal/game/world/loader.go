package world

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/mudworld/internal/game/dice"
	"github.com/cory-johannsen/mudworld/internal/game/loot"
	"github.com/cory-johannsen/mudworld/internal/game/weather"
)

// yamlContent is the top-level YAML structure of a world content file. A
// content directory may split these sections across any number of files.
type yamlContent struct {
	Areas     []yamlArea     `yaml:"areas"`
	Locations []yamlLocation `yaml:"locations"`
	Grids     []yamlGrid     `yaml:"grids"`
	Paths     []yamlPath     `yaml:"paths"`
	Exits     []yamlExit     `yaml:"exits"`
}

type yamlBounds struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

type yamlWeather struct {
	Temperature   yamlBounds `yaml:"temperature"`
	Precipitation yamlBounds `yaml:"precipitation"`
	Wind          yamlBounds `yaml:"wind"`
	History       int        `yaml:"history"`
}

type yamlAmbient struct {
	Hook   string `yaml:"hook"`
	Chance int    `yaml:"chance"`
}

type yamlArea struct {
	Name       string              `yaml:"name"`
	Parent     string              `yaml:"parent"`
	Properties []string            `yaml:"properties"`
	Weather    *yamlWeather        `yaml:"weather"`
	Ambient    *yamlAmbient        `yaml:"ambient"`
	Views      map[string]string   `yaml:"views"`
	Names      map[string][]string `yaml:"names"`
	Resources  []loot.Table        `yaml:"resources"`
}

type yamlLocation struct {
	Name       string   `yaml:"name"`
	Title      string   `yaml:"title"`
	Area       string   `yaml:"area"`
	Terrain    string   `yaml:"terrain"`
	Properties []string `yaml:"properties"`
}

type yamlCell struct {
	X          int      `yaml:"x"`
	Y          int      `yaml:"y"`
	Title      string   `yaml:"title"`
	Terrain    string   `yaml:"terrain"`
	Properties []string `yaml:"properties"`
	Empty      bool     `yaml:"empty"`
}

type yamlGenerate struct {
	Seed  int64   `yaml:"seed"`
	Scale float64 `yaml:"scale"`
}

type yamlBlock struct {
	X             int    `yaml:"x"`
	Y             int    `yaml:"y"`
	Direction     string `yaml:"direction"`
	Bidirectional bool   `yaml:"bidirectional"`
}

type yamlRoute struct {
	X     int      `yaml:"x"`
	Y     int      `yaml:"y"`
	Route string   `yaml:"route"`
	Path  []string `yaml:"path"`
}

type yamlConnector struct {
	X    int    `yaml:"x"`
	Y    int    `yaml:"y"`
	Name string `yaml:"name"`
}

type yamlAttach struct {
	Side   string `yaml:"side"`
	Grid   string `yaml:"grid"`
	Offset int    `yaml:"offset"`
}

type yamlGrid struct {
	Name       string            `yaml:"name"`
	Area       string            `yaml:"area"`
	Width      int               `yaml:"width"`
	Height     int               `yaml:"height"`
	Rows       []string          `yaml:"rows"`
	Legend     map[string]string `yaml:"legend"`
	Generate   *yamlGenerate     `yaml:"generate"`
	Cells      []yamlCell        `yaml:"cells"`
	Blocks     []yamlBlock       `yaml:"blocks"`
	Routes     []yamlRoute       `yaml:"routes"`
	Connectors []yamlConnector   `yaml:"connectors"`
	Attach     []yamlAttach      `yaml:"attach"`
}

type yamlStep struct {
	Name       string   `yaml:"name"`
	Title      string   `yaml:"title"`
	Terrain    string   `yaml:"terrain"`
	Properties []string `yaml:"properties"`
	Turn       string   `yaml:"turn"`
}

type yamlPath struct {
	Area    string     `yaml:"area"`
	Route   string     `yaml:"route"`
	Heading string     `yaml:"heading"`
	From    string     `yaml:"from"`
	To      string     `yaml:"to"`
	Steps   []yamlStep `yaml:"steps"`
}

type yamlLink struct {
	Kind       string  `yaml:"kind"`
	Size       string  `yaml:"size"`
	Route      string  `yaml:"route"`
	Modifier   float64 `yaml:"modifier"`
	Message    string  `yaml:"message"`
	Severity   int     `yaml:"severity"`
	Name       string  `yaml:"name"`
	Visibility int     `yaml:"visibility"`
	Up         bool    `yaml:"up"`
}

type yamlExit struct {
	From             string    `yaml:"from"`
	Direction        string    `yaml:"direction"`
	To               string    `yaml:"to"`
	Reverse          string    `yaml:"reverse"`
	ReverseDirection string    `yaml:"reverse_direction"`
	Link             *yamlLink `yaml:"link"`
}

// defaultLegend maps grid row glyphs to terrains. '.' and ' ' are empty.
var defaultLegend = map[rune]Terrain{
	'f': TerrainField,
	'F': TerrainForest,
	'h': TerrainHills,
	'M': TerrainMountain,
	'd': TerrainDesert,
	's': TerrainSwamp,
	'~': TerrainShallows,
	'w': TerrainWater,
	'=': TerrainRoad,
	'u': TerrainUnderground,
	'B': TerrainBuilding,
}

// Content is parsed world content, not yet built into a World.
type Content struct {
	data yamlContent
}

// LoadContentFromBytes parses world content from YAML bytes.
//
// Precondition: data must be valid YAML conforming to the content schema.
// Postcondition: Returns parsed Content or a non-nil error.
func LoadContentFromBytes(data []byte) (*Content, error) {
	var c yamlContent
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing world YAML: %w", err)
	}
	return &Content{data: c}, nil
}

// LoadContentFromFile reads and parses a single content file.
func LoadContentFromFile(path string) (*Content, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading world file %s: %w", path, err)
	}
	return LoadContentFromBytes(data)
}

// LoadContentFromDir parses every YAML file in dir and merges them in
// file name order.
//
// Postcondition: Returns an error if dir holds no YAML files.
func LoadContentFromDir(dir string) (*Content, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading world directory %s: %w", dir, err)
	}
	merged := &Content{}
	files := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		c, err := LoadContentFromFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("loading world content from %s: %w", name, err)
		}
		merged.Merge(c)
		files++
	}
	if files == 0 {
		return nil, fmt.Errorf("no world files found in %s", dir)
	}
	return merged, nil
}

// Merge appends o's sections to c.
func (c *Content) Merge(o *Content) {
	c.data.Areas = append(c.data.Areas, o.data.Areas...)
	c.data.Locations = append(c.data.Locations, o.data.Locations...)
	c.data.Grids = append(c.data.Grids, o.data.Grids...)
	c.data.Paths = append(c.data.Paths, o.data.Paths...)
	c.data.Exits = append(c.data.Exits, o.data.Exits...)
}

// BuildOptions configures Content.Build.
type BuildOptions struct {
	// Source drives area weather. Nil uses a crypto-backed source.
	Source dice.Source
	// TerrainSeed seeds generated grids that do not set their own seed.
	TerrainSeed int64
	// Logger receives load progress. Nil discards it.
	Logger *zap.Logger
	// BeforeSeal runs after every content step and before the world is
	// sealed, typically to restore persisted grid overrides.
	BeforeSeal func(w *World) error
}

// Build assembles the content into w in load order: areas, free-standing
// locations, grids, attachments, paths, then named exits. The world is
// sealed on success.
//
// Postcondition: On error, w is left partially built and must be discarded.
func (c *Content) Build(w *World, opts BuildOptions) error {
	if opts.Source == nil {
		opts.Source = dice.NewCryptoSource()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	b := &contentBuilder{w: w, opts: opts, interior: make(map[string]bool)}
	steps := []struct {
		name string
		fn   func() error
	}{
		{"areas", func() error { return b.areas(c.data.Areas) }},
		{"locations", func() error { return b.locations(c.data.Locations) }},
		{"grids", func() error { return b.grids(c.data.Grids) }},
		{"attachments", func() error { return b.attachments(c.data.Grids) }},
		{"paths", func() error { return b.paths(c.data.Paths) }},
		{"exits", func() error { return b.exits(c.data.Exits) }},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			return fmt.Errorf("building %s: %w", s.name, err)
		}
	}
	if opts.BeforeSeal != nil {
		if err := opts.BeforeSeal(w); err != nil {
			return fmt.Errorf("before seal: %w", err)
		}
	}
	w.Seal()
	opts.Logger.Info("world content built",
		zap.Int("areas", len(c.data.Areas)),
		zap.Int("locations", len(c.data.Locations)),
		zap.Int("grids", len(c.data.Grids)),
		zap.Int("paths", len(c.data.Paths)),
		zap.Int("exits", len(c.data.Exits)),
	)
	return nil
}

type contentBuilder struct {
	w    *World
	opts BuildOptions
	// interior holds names of path steps frozen between two neighbors.
	interior map[string]bool
}

func (b *contentBuilder) area(name string) (*Area, error) {
	if name == "" {
		return Root, nil
	}
	a, ok := b.w.Area(name)
	if !ok {
		return nil, fmt.Errorf("unknown area %q", name)
	}
	return a, nil
}

// areas creates areas parents-first regardless of declaration order.
func (b *contentBuilder) areas(in []yamlArea) error {
	remaining := in
	for len(remaining) > 0 {
		var deferred []yamlArea
		for _, ya := range remaining {
			if ya.Parent != "" {
				if _, ok := b.w.Area(ya.Parent); !ok {
					deferred = append(deferred, ya)
					continue
				}
			}
			if err := b.buildArea(ya); err != nil {
				return err
			}
		}
		if len(deferred) == len(remaining) {
			return fmt.Errorf("area %q: unknown parent %q or parent cycle", deferred[0].Name, deferred[0].Parent)
		}
		remaining = deferred
	}
	return nil
}

func (b *contentBuilder) buildArea(ya yamlArea) error {
	parent, err := b.area(ya.Parent)
	if err != nil {
		return err
	}
	cfg := AreaConfig{}
	for _, s := range ya.Properties {
		p, err := ParseProperty(s)
		if err != nil {
			return fmt.Errorf("area %q: %w", ya.Name, err)
		}
		cfg.Properties = append(cfg.Properties, p)
	}
	if ya.Weather != nil {
		wcfg := weather.Config{
			Temperature:   weather.Bounds{Min: weather.Level(ya.Weather.Temperature.Min), Max: weather.Level(ya.Weather.Temperature.Max)},
			Precipitation: weather.Bounds{Min: weather.Level(ya.Weather.Precipitation.Min), Max: weather.Level(ya.Weather.Precipitation.Max)},
			Wind:          weather.Bounds{Min: weather.Level(ya.Weather.Wind.Min), Max: weather.Level(ya.Weather.Wind.Max)},
			History:       ya.Weather.History,
		}
		wx, err := weather.New(wcfg, b.opts.Source)
		if err != nil {
			return fmt.Errorf("area %q: %w", ya.Name, err)
		}
		cfg.Weather = wx
	}
	if ya.Ambient != nil {
		if ya.Ambient.Hook == "" || ya.Ambient.Chance <= 0 || ya.Ambient.Chance > 100 {
			return fmt.Errorf("area %q: ambient event needs a hook and a chance in (0, 100]", ya.Name)
		}
		cfg.Ambient = &AmbientEvent{Hook: ya.Ambient.Hook, Chance: ya.Ambient.Chance}
	}
	if len(ya.Views) > 0 {
		cfg.Views = make(map[Direction]string, len(ya.Views))
		for k, v := range ya.Views {
			d, err := ParseDirection(k)
			if err != nil {
				return fmt.Errorf("area %q view: %w", ya.Name, err)
			}
			cfg.Views[d] = v
		}
	}
	if len(ya.Names) > 0 {
		cfg.Names = NewNameStore(ya.Names)
	}
	for i := range ya.Resources {
		cfg.Resources = append(cfg.Resources, &ya.Resources[i])
	}
	a, err := NewArea(ya.Name, parent, cfg)
	if err != nil {
		return err
	}
	return b.w.AddArea(a)
}

func parseProperties(in []string) (PropertySet, error) {
	var set PropertySet
	for _, s := range in {
		p, err := ParseProperty(s)
		if err != nil {
			return 0, err
		}
		set = set.With(p)
	}
	return set, nil
}

func descriptor(title, terrain string, props []string) (Descriptor, error) {
	t := TerrainField
	if terrain != "" {
		var err error
		if t, err = ParseTerrain(terrain); err != nil {
			return Descriptor{}, err
		}
	}
	set, err := parseProperties(props)
	if err != nil {
		return Descriptor{}, err
	}
	return Descriptor{Name: title, Terrain: t, Props: set}, nil
}

func (b *contentBuilder) locations(in []yamlLocation) error {
	for _, yl := range in {
		if yl.Name == "" {
			return fmt.Errorf("location must have a name")
		}
		area, err := b.area(yl.Area)
		if err != nil {
			return fmt.Errorf("location %q: %w", yl.Name, err)
		}
		title := yl.Title
		if title == "" {
			title = yl.Name
		}
		desc, err := descriptor(title, yl.Terrain, yl.Properties)
		if err != nil {
			return fmt.Errorf("location %q: %w", yl.Name, err)
		}
		loc, err := b.w.NewLocation(area, desc)
		if err != nil {
			return err
		}
		if err := b.w.Register(yl.Name, loc.ID()); err != nil {
			return err
		}
	}
	return nil
}

func (b *contentBuilder) grids(in []yamlGrid) error {
	for _, yg := range in {
		if err := b.buildGrid(yg); err != nil {
			return fmt.Errorf("grid %q: %w", yg.Name, err)
		}
	}
	return nil
}

func (b *contentBuilder) buildGrid(yg yamlGrid) error {
	area, err := b.area(yg.Area)
	if err != nil {
		return err
	}
	width, height := yg.Width, yg.Height
	if len(yg.Rows) > 0 {
		height = len(yg.Rows)
		for _, r := range yg.Rows {
			width = max(width, len([]rune(r)))
		}
	}
	gb, err := b.w.NewGrid(yg.Name, area, width, height)
	if err != nil {
		return err
	}

	if yg.Generate != nil {
		seed := yg.Generate.Seed
		if seed == 0 {
			seed = b.opts.TerrainSeed
		}
		gen := NewTerrainGenerator(seed, yg.Generate.Scale, area.Store())
		if err := gb.Fill(gen.Generate); err != nil {
			return err
		}
	}
	if len(yg.Rows) > 0 {
		legend := make(map[rune]Terrain, len(defaultLegend)+len(yg.Legend))
		for k, v := range defaultLegend {
			legend[k] = v
		}
		for k, v := range yg.Legend {
			r := []rune(k)
			if len(r) != 1 {
				return fmt.Errorf("legend key %q must be a single character", k)
			}
			t, err := ParseTerrain(v)
			if err != nil {
				return err
			}
			legend[r[0]] = t
		}
		store := area.Store()
		for y, row := range yg.Rows {
			for x, r := range []rune(row) {
				if r == '.' || r == ' ' {
					continue
				}
				t, ok := legend[r]
				if !ok {
					return fmt.Errorf("row %d: unknown glyph %q", y, r)
				}
				c := Coord{X: x, Y: y}
				name, ok := store.Pick(t.String(), c.String())
				if !ok {
					name = titleCase(t.String())
				}
				if err := gb.Set(c, Descriptor{Name: name, Terrain: t}); err != nil {
					return err
				}
			}
		}
	}
	for _, yc := range yg.Cells {
		c := Coord{X: yc.X, Y: yc.Y}
		if yc.Empty {
			if err := gb.Clear(c); err != nil {
				return err
			}
			continue
		}
		desc, err := descriptor(yc.Title, yc.Terrain, yc.Properties)
		if err != nil {
			return fmt.Errorf("cell %s: %w", c, err)
		}
		if desc.Name == "" {
			desc.Name = titleCase(desc.Terrain.String())
		}
		if err := gb.Set(c, desc); err != nil {
			return err
		}
	}

	for _, yb := range yg.Blocks {
		d, err := ParseDirection(yb.Direction)
		if err != nil {
			return err
		}
		cur, err := gb.At(Coord{X: yb.X, Y: yb.Y})
		if err != nil {
			return err
		}
		if err := cur.Block(d, yb.Bidirectional); err != nil {
			return err
		}
	}
	for _, yr := range yg.Routes {
		r, err := ParseRoute(yr.Route)
		if err != nil {
			return err
		}
		path := make([]Direction, 0, len(yr.Path))
		for _, s := range yr.Path {
			d, err := ParseDirection(s)
			if err != nil {
				return err
			}
			path = append(path, d)
		}
		cur, err := gb.At(Coord{X: yr.X, Y: yr.Y})
		if err != nil {
			return err
		}
		if err := cur.Route(r, path...); err != nil {
			return err
		}
	}
	var connectors []yamlConnector
	for _, yc := range yg.Connectors {
		cur, err := gb.At(Coord{X: yc.X, Y: yc.Y})
		if err != nil {
			return err
		}
		if _, err := cur.Connector(); err != nil {
			return err
		}
		connectors = append(connectors, yc)
	}

	g, err := gb.Build()
	if err != nil {
		return err
	}
	for _, yc := range connectors {
		if yc.Name == "" {
			continue
		}
		if err := b.w.Register(yc.Name, g.LocationID(Coord{X: yc.X, Y: yc.Y})); err != nil {
			return err
		}
	}
	b.opts.Logger.Debug("grid loaded",
		zap.String("grid", g.Name()),
		zap.Int("width", g.Width()),
		zap.Int("height", g.Height()),
	)
	return nil
}

func (b *contentBuilder) attachments(in []yamlGrid) error {
	for _, yg := range in {
		for _, ya := range yg.Attach {
			side, err := ParseDirection(ya.Side)
			if err != nil {
				return fmt.Errorf("grid %q: %w", yg.Name, err)
			}
			a, ok := b.w.Grid(yg.Name)
			if !ok {
				return fmt.Errorf("unknown grid %q", yg.Name)
			}
			other, ok := b.w.Grid(ya.Grid)
			if !ok {
				return fmt.Errorf("grid %q: unknown grid %q", yg.Name, ya.Grid)
			}
			if err := Attach(a, side, other, ya.Offset); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *contentBuilder) paths(in []yamlPath) error {
	for i, yp := range in {
		if err := b.buildPath(yp); err != nil {
			return fmt.Errorf("path[%d]: %w", i, err)
		}
	}
	return nil
}

func (b *contentBuilder) buildPath(yp yamlPath) error {
	area, err := b.area(yp.Area)
	if err != nil {
		return err
	}
	r := RouteNone
	if yp.Route != "" {
		if r, err = ParseRoute(yp.Route); err != nil {
			return err
		}
	}
	heading, err := ParseDirection(yp.Heading)
	if err != nil {
		return err
	}
	p := b.w.NewPath(area, r, heading)
	junction := func(name string) error {
		id, ok := b.w.Lookup(name)
		if !ok {
			return fmt.Errorf("junction %q: %w", name, ErrUnknownLocation)
		}
		return p.Junction(id)
	}
	if yp.From != "" {
		if err := junction(yp.From); err != nil {
			return err
		}
	}
	for i, ys := range yp.Steps {
		if ys.Turn != "" {
			d, err := ParseDirection(ys.Turn)
			if err != nil {
				return err
			}
			p.Turn(d)
		}
		title := ys.Title
		if title == "" {
			title = ys.Name
		}
		desc, err := descriptor(title, ys.Terrain, ys.Properties)
		if err != nil {
			return err
		}
		loc, err := p.Add(desc)
		if err != nil {
			return err
		}
		if ys.Name != "" {
			if err := b.w.Register(ys.Name, loc.ID()); err != nil {
				return err
			}
			first := i == 0 && yp.From == ""
			last := i == len(yp.Steps)-1 && yp.To == ""
			if !first && !last {
				b.interior[ys.Name] = true
			}
		}
	}
	if yp.To != "" {
		if err := junction(yp.To); err != nil {
			return err
		}
	}
	return p.Build()
}

func (b *contentBuilder) exits(in []yamlExit) error {
	linker := NewLinker(b.w)
	for _, ye := range in {
		if b.interior[ye.From] {
			return fmt.Errorf("exit from %q: interior path node has fixed exits: %w", ye.From, ErrFrozen)
		}
		from, ok := b.w.Lookup(ye.From)
		if !ok {
			return fmt.Errorf("exit from %q: %w", ye.From, ErrUnknownLocation)
		}
		d, err := ParseDirection(ye.Direction)
		if err != nil {
			return fmt.Errorf("exit from %q: %w", ye.From, err)
		}
		link, err := parseLink(ye.Link)
		if err != nil {
			return fmt.Errorf("exit from %q %s: %w", ye.From, d, err)
		}
		policy, err := ParseReversePolicy(ye.Reverse)
		if err != nil {
			return fmt.Errorf("exit from %q %s: %w", ye.From, d, err)
		}
		if policy != ReverseOneWay && b.interior[ye.To] {
			return fmt.Errorf("exit from %q %s: reverse into %q: interior path node has fixed exits: %w", ye.From, d, ye.To, ErrFrozen)
		}
		var reverse []Direction
		if ye.ReverseDirection != "" {
			rd, err := ParseDirection(ye.ReverseDirection)
			if err != nil {
				return fmt.Errorf("exit from %q %s: %w", ye.From, d, err)
			}
			reverse = append(reverse, rd)
		}
		le, err := NewLinkedExit(from, d, link, ye.To, policy, reverse...)
		if err != nil {
			return err
		}
		linker.Declare(le)
	}
	return linker.Resolve()
}

var sizeNames = map[string]Size{
	"":       SizeAny,
	"any":    SizeAny,
	"tiny":   SizeTiny,
	"small":  SizeSmall,
	"medium": SizeMedium,
	"large":  SizeLarge,
}

func parseLink(yl *yamlLink) (Link, error) {
	if yl == nil {
		return DefaultLink, nil
	}
	size, ok := sizeNames[yl.Size]
	if !ok {
		return Link{}, fmt.Errorf("unknown size %q", yl.Size)
	}
	r := RouteNone
	if yl.Route != "" {
		var err error
		if r, err = ParseRoute(yl.Route); err != nil {
			return Link{}, err
		}
	}
	opts := LinkOptions{Size: size, Route: r, Modifier: yl.Modifier, Message: yl.Message}
	switch yl.Kind {
	case "", "default":
		return DefaultLink, nil
	case "extended":
		return NewExtendedLink(opts)
	case "route":
		if r == RouteNone {
			return Link{}, fmt.Errorf("route link needs a route")
		}
		return NewRouteLink(r), nil
	case "current":
		return NewCurrentLink(yl.Severity), nil
	case "fake":
		return FakeLink(), nil
	case "hidden":
		return NewHiddenLink(yl.Name, yl.Visibility, opts), nil
	case "slope":
		return NewSlopeLink(yl.Up, opts), nil
	default:
		return Link{}, fmt.Errorf("unknown link kind %q", yl.Kind)
	}
}
