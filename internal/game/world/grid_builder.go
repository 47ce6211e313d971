package world

import "fmt"

// GridBuilder fills a grid's descriptor matrix and authors its overrides.
// Build hands the finished grid over exactly once.
type GridBuilder struct {
	grid *Grid
}

func (b *GridBuilder) live() (*Grid, error) {
	if b.grid == nil {
		return nil, ErrAlreadyBuilt
	}
	return b.grid, nil
}

// ID returns the id reserved for the grid.
func (b *GridBuilder) ID() GridID {
	if b.grid == nil {
		return 0
	}
	return b.grid.id
}

// Set places desc at c.
func (b *GridBuilder) Set(c Coord, desc Descriptor) error {
	g, err := b.live()
	if err != nil {
		return err
	}
	if !g.InBounds(c) {
		return fmt.Errorf("grid %q %s: %w", g.name, c, ErrOutOfBounds)
	}
	g.cells[g.index(c)] = desc
	g.filled[g.index(c)] = true
	return nil
}

// Clear empties the cell at c.
func (b *GridBuilder) Clear(c Coord) error {
	g, err := b.live()
	if err != nil {
		return err
	}
	if !g.InBounds(c) {
		return fmt.Errorf("grid %q %s: %w", g.name, c, ErrOutOfBounds)
	}
	g.cells[g.index(c)] = Descriptor{}
	g.filled[g.index(c)] = false
	return nil
}

// Fill calls gen for every cell; cells for which gen reports false stay empty.
func (b *GridBuilder) Fill(gen func(Coord) (Descriptor, bool)) error {
	g, err := b.live()
	if err != nil {
		return err
	}
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			c := Coord{X: x, Y: y}
			if d, ok := gen(c); ok {
				g.cells[g.index(c)] = d
				g.filled[g.index(c)] = true
			}
		}
	}
	return nil
}

// Descriptor returns the descriptor placed at c so far.
func (b *GridBuilder) Descriptor(c Coord) (Descriptor, bool) {
	if b.grid == nil {
		return Descriptor{}, false
	}
	return b.grid.Descriptor(c)
}

// At returns a cursor on the non-empty cell c.
func (b *GridBuilder) At(c Coord) (*Cursor, error) {
	g, err := b.live()
	if err != nil {
		return nil, err
	}
	if _, ok := g.Descriptor(c); !ok {
		return nil, g.cellError(c)
	}
	return &Cursor{b: b, pos: c}, nil
}

// Build finishes the grid.
//
// Postcondition: Returns ErrAlreadyBuilt on every call after the first.
func (b *GridBuilder) Build() (*Grid, error) {
	g, err := b.live()
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	g.built = true
	g.mu.Unlock()
	b.grid = nil
	g.logger.Debug("grid built")
	return g, nil
}

func (g *Grid) isBuilt() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.built
}

// Cursor authors overrides for one grid cell during building.
type Cursor struct {
	b   *GridBuilder
	pos Coord
}

// Coord returns the cursor position.
func (c *Cursor) Coord() Coord { return c.pos }

// ID returns the location id of the cursor's cell.
func (c *Cursor) ID() LocationID {
	return cellID(c.b.ID(), c.pos)
}

// Block suppresses the derived exit in direction d. A bidirectional block
// also suppresses the matching exit back from the neighbor cell when that
// cell lies in this grid.
func (c *Cursor) Block(d Direction, bidirectional bool) error {
	g, err := c.b.live()
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.addOverride(c.pos, d, override{blocked: true}); err != nil {
		return err
	}
	if !bidirectional {
		return nil
	}
	n := c.pos.Step(d)
	if _, ok := g.Descriptor(n); !ok {
		return nil
	}
	if err := g.addOverride(n, d.Opposite(), override{blocked: true}); err != nil {
		delete(g.overrides[c.pos], d)
		return err
	}
	return nil
}

// Route lays a route from the cursor along path, replacing the derived
// exits on both sides of each step with route links. The cursor ends on the
// last cell. Nothing changes on error.
func (c *Cursor) Route(r Route, path ...Direction) error {
	g, err := c.b.live()
	if err != nil {
		return err
	}
	link := NewRouteLink(r)

	type step struct {
		from, to Coord
		dir      Direction
	}
	steps := make([]step, 0, len(path))
	seen := make(map[Coord]map[Direction]bool)
	claim := func(at Coord, d Direction) bool {
		if seen[at][d] {
			return false
		}
		if seen[at] == nil {
			seen[at] = make(map[Direction]bool)
		}
		seen[at][d] = true
		return true
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	cur := c.pos
	for _, d := range path {
		next := cur.Step(d)
		if _, ok := g.Descriptor(next); !ok {
			return g.cellError(next)
		}
		if _, taken := g.overrides[cur][d]; taken || !claim(cur, d) {
			return fmt.Errorf("route %s at %s %s: %w", r, cur, d, ErrDuplicateExit)
		}
		if _, taken := g.overrides[next][d.Opposite()]; taken || !claim(next, d.Opposite()) {
			return fmt.Errorf("route %s at %s %s: %w", r, next, d.Opposite(), ErrDuplicateExit)
		}
		steps = append(steps, step{from: cur, to: next, dir: d})
		cur = next
	}
	for _, s := range steps {
		_ = g.addOverride(s.from, s.dir, override{exit: NewExit(s.dir, link, cellID(g.id, s.to))})
		_ = g.addOverride(s.to, s.dir.Opposite(), override{exit: NewExit(s.dir.Opposite(), link, cellID(g.id, s.from))})
	}
	c.pos = cur
	return nil
}

// Exit adds a literal exit override at the cursor, replacing any derived
// exit in e's direction.
func (c *Cursor) Exit(e Exit) error {
	g, err := c.b.live()
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addOverride(c.pos, e.dir, override{exit: e})
}

// Connector pins the cursor's cell for the grid's lifetime and returns its
// id, for external exits and paths to attach to.
func (c *Cursor) Connector() (LocationID, error) {
	g, err := c.b.live()
	if err != nil {
		return LocationID{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.anchors[c.pos] = true
	return cellID(g.id, c.pos), nil
}

// Move repositions the cursor to the non-empty cell at.
func (c *Cursor) Move(at Coord) error {
	g, err := c.b.live()
	if err != nil {
		return err
	}
	if _, ok := g.Descriptor(at); !ok {
		return g.cellError(at)
	}
	c.pos = at
	return nil
}
