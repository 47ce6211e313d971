package world

import (
	"fmt"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func fieldAt(c Coord) (Descriptor, bool) {
	return Descriptor{Name: fmt.Sprintf("Field %s", c), Terrain: TerrainField}, true
}

func filledBuilder(t *testing.T, w *World, name string, width, height int) *GridBuilder {
	t.Helper()
	b, err := w.NewGrid(name, nil, width, height)
	require.NoError(t, err)
	require.NoError(t, b.Fill(fieldAt))
	return b
}

func exitDirs(m ExitMap) []Direction {
	var out []Direction
	for _, e := range m.All() {
		out = append(out, e.Direction())
	}
	return out
}

type countingObserver struct {
	hits, misses, evictions int
}

func (o *countingObserver) CacheHit(string)   { o.hits++ }
func (o *countingObserver) CacheMiss(string)  { o.misses++ }
func (o *countingObserver) CacheEvict(string) { o.evictions++ }

func TestGrid_BlockNorthBidirectional(t *testing.T) {
	w := New(Options{})
	b := filledBuilder(t, w, "square", 3, 3)
	cur, err := b.At(Coord{X: 1, Y: 1})
	require.NoError(t, err)
	require.NoError(t, cur.Block(North, true))
	g, err := b.Build()
	require.NoError(t, err)

	center, err := g.Get(Coord{X: 1, Y: 1})
	require.NoError(t, err)
	_, ok := center.Exit(North)
	assert.False(t, ok)
	assert.Equal(t, []Direction{East, South, West}, exitDirs(center.Exits()))

	top, err := g.Get(Coord{X: 1, Y: 0})
	require.NoError(t, err)
	_, ok = top.Exit(South)
	assert.False(t, ok)
	assert.Equal(t, []Direction{East, West}, exitDirs(top.Exits()))
}

func TestGrid_InteriorCellHasFourExits(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		width := rapid.IntRange(3, 12).Draw(rt, "width")
		height := rapid.IntRange(3, 12).Draw(rt, "height")
		c := Coord{
			X: rapid.IntRange(1, width-2).Draw(rt, "x"),
			Y: rapid.IntRange(1, height-2).Draw(rt, "y"),
		}
		w := New(Options{})
		b, err := w.NewGrid("g", nil, width, height)
		if err != nil {
			rt.Fatalf("grid: %v", err)
		}
		_ = b.Fill(fieldAt)
		g, err := b.Build()
		if err != nil {
			rt.Fatalf("build: %v", err)
		}
		loc, err := g.Get(c)
		if err != nil {
			rt.Fatalf("get: %v", err)
		}
		exits := loc.Exits().All()
		if len(exits) != 4 {
			rt.Fatalf("%d exits at %s", len(exits), c)
		}
		for _, e := range exits {
			if !e.Direction().IsCardinal() || e.Link() != DefaultLink {
				rt.Fatalf("unexpected exit %v", e)
			}
			if e.Destination() != g.LocationID(c.Step(e.Direction())) {
				rt.Fatalf("exit %s leads to %s", e.Direction(), e.Destination())
			}
		}
	})
}

func TestGrid_BoundsAndEmptyCells(t *testing.T) {
	w := New(Options{})
	b, err := w.NewGrid("sparse", nil, 2, 2)
	require.NoError(t, err)
	require.NoError(t, b.Set(Coord{X: 0, Y: 0}, Descriptor{Name: "Island"}))
	assert.ErrorIs(t, b.Set(Coord{X: 2, Y: 0}, Descriptor{}), ErrOutOfBounds)
	_, err = b.At(Coord{X: 1, Y: 1})
	assert.ErrorIs(t, err, ErrEmptyCell)
	g, err := b.Build()
	require.NoError(t, err)

	_, err = g.Get(Coord{X: -1, Y: 0})
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = g.Get(Coord{X: 1, Y: 0})
	assert.ErrorIs(t, err, ErrEmptyCell)
	island, err := g.Get(Coord{X: 0, Y: 0})
	require.NoError(t, err)
	assert.Equal(t, 0, island.Exits().Len())
}

func TestGridBuilder_BuildOnce(t *testing.T) {
	w := New(Options{})
	b := filledBuilder(t, w, "once", 2, 2)
	_, err := b.Build()
	require.NoError(t, err)
	_, err = b.Build()
	assert.ErrorIs(t, err, ErrAlreadyBuilt)
	assert.ErrorIs(t, b.Set(Coord{}, Descriptor{}), ErrAlreadyBuilt)
	_, err = b.At(Coord{})
	assert.ErrorIs(t, err, ErrAlreadyBuilt)
}

func TestGrid_EvictionRegeneratesEqualLocation(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		width := rapid.IntRange(1, 8).Draw(rt, "width")
		height := rapid.IntRange(1, 8).Draw(rt, "height")
		c := Coord{X: rapid.IntRange(0, width-1).Draw(rt, "x"), Y: rapid.IntRange(0, height-1).Draw(rt, "y")}
		w := New(Options{CacheSize: rapid.IntRange(1, 4).Draw(rt, "cache")})
		b, _ := w.NewGrid("g", nil, width, height)
		_ = b.Fill(fieldAt)
		g, _ := b.Build()

		before, err := g.Get(c)
		if err != nil {
			rt.Fatalf("get: %v", err)
		}
		beforeExits := before.Exits().All()
		g.Evict(c)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				_, _ = g.Get(Coord{X: x, Y: y})
			}
		}
		after, err := g.Get(c)
		if err != nil {
			rt.Fatalf("get: %v", err)
		}
		if before.Descriptor() != after.Descriptor() || before.ID() != after.ID() {
			rt.Fatalf("regenerated location differs")
		}
		afterExits := after.Exits().All()
		if fmt.Sprint(beforeExits) != fmt.Sprint(afterExits) {
			rt.Fatalf("exits differ: %v vs %v", beforeExits, afterExits)
		}
	})
}

func TestGrid_CacheEvictsAndObserves(t *testing.T) {
	obs := &countingObserver{}
	w := New(Options{CacheSize: 2, Observer: obs})
	b := filledBuilder(t, w, "row", 4, 1)
	g, err := b.Build()
	require.NoError(t, err)

	first, err := g.Get(Coord{X: 0, Y: 0})
	require.NoError(t, err)
	for x := 1; x < 4; x++ {
		_, err := g.Get(Coord{X: x, Y: 0})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, g.Cached())
	assert.Equal(t, 2, obs.evictions)
	assert.Equal(t, 4, obs.misses)

	again, err := g.Get(Coord{X: 0, Y: 0})
	require.NoError(t, err)
	assert.Same(t, first, again, "a held instance is reclaimed, not regenerated")
	assert.Equal(t, 4, obs.misses)
	assert.Equal(t, 1, obs.hits)
}

func TestGrid_UnheldCellIsRegenerated(t *testing.T) {
	obs := &countingObserver{}
	w := New(Options{CacheSize: 1, Observer: obs})
	g, err := filledBuilder(t, w, "row", 2, 1).Build()
	require.NoError(t, err)

	snapshot := func() (LocationID, Descriptor, string) {
		loc, err := g.Get(Coord{X: 0, Y: 0})
		require.NoError(t, err)
		return loc.ID(), loc.Descriptor(), fmt.Sprint(loc.Exits().All())
	}
	id, desc, exits := snapshot()
	_, err = g.Get(Coord{X: 1, Y: 0})
	require.NoError(t, err)
	runtime.GC()

	again, err := g.Get(Coord{X: 0, Y: 0})
	require.NoError(t, err)
	assert.Equal(t, 3, obs.misses)
	assert.Equal(t, id, again.ID())
	assert.Equal(t, desc, again.Descriptor())
	assert.Equal(t, exits, fmt.Sprint(again.Exits().All()))
}

func TestGrid_HeldCellKeepsContentsAcrossEviction(t *testing.T) {
	w := New(Options{CacheSize: 2})
	g, err := filledBuilder(t, w, "row", 4, 1).Build()
	require.NoError(t, err)

	dest, err := g.Get(Coord{X: 0, Y: 0})
	require.NoError(t, err)
	_, err = g.Get(Coord{X: 1, Y: 0})
	require.NoError(t, err)
	_, err = g.Get(Coord{X: 2, Y: 0})
	require.NoError(t, err)

	who := uuid.New()
	dest.Contents().Add(who)

	again, err := g.Get(Coord{X: 0, Y: 0})
	require.NoError(t, err)
	assert.Same(t, dest, again)
	assert.True(t, again.Contents().Has(who))

	byID, ok := w.Location(dest.ID())
	require.True(t, ok)
	assert.Same(t, dest, byID)
}

func TestGrid_HeldCellKeepsTracksAcrossEviction(t *testing.T) {
	w := New(Options{CacheSize: 1})
	g, err := filledBuilder(t, w, "row", 3, 1).Build()
	require.NoError(t, err)

	from, err := g.Get(Coord{X: 0, Y: 0})
	require.NoError(t, err)
	_, err = g.Get(Coord{X: 1, Y: 0})
	require.NoError(t, err)

	trail := NewTrail(uuid.New())
	trail.Mark(from, East, time.Now(), 5)

	again, err := g.Get(Coord{X: 0, Y: 0})
	require.NoError(t, err)
	assert.Same(t, from, again)
	assert.Len(t, again.Tracks(), 1)
}

func TestGrid_OccupiedCellsArePinned(t *testing.T) {
	w := New(Options{CacheSize: 1})
	b := filledBuilder(t, w, "row", 3, 1)
	g, err := b.Build()
	require.NoError(t, err)

	camp, err := g.Get(Coord{X: 0, Y: 0})
	require.NoError(t, err)
	who := uuid.New()
	camp.Contents().Add(who)

	_, err = g.Get(Coord{X: 1, Y: 0})
	require.NoError(t, err)
	_, err = g.Get(Coord{X: 2, Y: 0})
	require.NoError(t, err)

	same, err := g.Get(Coord{X: 0, Y: 0})
	require.NoError(t, err)
	assert.Same(t, camp, same)
	assert.True(t, same.Contents().Has(who))

	camp.Contents().Remove(who)
	_, err = g.Get(Coord{X: 0, Y: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, g.Cached(), "an emptied cell returns to the cache")
	_, err = g.Get(Coord{X: 1, Y: 0})
	require.NoError(t, err)
	again, err := g.Get(Coord{X: 0, Y: 0})
	require.NoError(t, err)
	assert.Same(t, camp, again)
	assert.Empty(t, again.Contents().IDs())
}

func TestGrid_ConnectorIsPermanentlyPinned(t *testing.T) {
	w := New(Options{CacheSize: 1})
	b := filledBuilder(t, w, "row", 3, 1)
	cur, err := b.At(Coord{X: 2, Y: 0})
	require.NoError(t, err)
	id, err := cur.Connector()
	require.NoError(t, err)
	g, err := b.Build()
	require.NoError(t, err)

	gate, ok := w.Location(id)
	require.True(t, ok)
	for x := 0; x < 2; x++ {
		_, err := g.Get(Coord{X: x, Y: 0})
		require.NoError(t, err)
	}
	g.Evict(Coord{X: 2, Y: 0})
	again, ok := w.Location(id)
	require.True(t, ok)
	assert.Same(t, gate, again)
	assert.True(t, g.Anchored(Coord{X: 2, Y: 0}))
}

func TestCursor_Route(t *testing.T) {
	w := New(Options{})
	b := filledBuilder(t, w, "town", 3, 3)
	cur, err := b.At(Coord{X: 0, Y: 0})
	require.NoError(t, err)
	require.NoError(t, cur.Route(RouteRoad, East, East, South))
	assert.Equal(t, Coord{X: 2, Y: 1}, cur.Coord())
	g, err := b.Build()
	require.NoError(t, err)

	start, _ := g.Get(Coord{X: 0, Y: 0})
	e, ok := start.Exit(East)
	require.True(t, ok)
	assert.Equal(t, NewRouteLink(RouteRoad), e.Link())
	s, ok := start.Exit(South)
	require.True(t, ok)
	assert.Equal(t, DefaultLink, s.Link())

	corner, _ := g.Get(Coord{X: 2, Y: 0})
	back, ok := corner.Exit(West)
	require.True(t, ok)
	assert.Equal(t, "route.road", back.Link().Key())
	down, ok := corner.Exit(South)
	require.True(t, ok)
	assert.Equal(t, g.LocationID(Coord{X: 2, Y: 1}), down.Destination())
}

func TestCursor_RouteThroughEmptyCellFails(t *testing.T) {
	w := New(Options{})
	b := filledBuilder(t, w, "town", 3, 1)
	require.NoError(t, b.Clear(Coord{X: 1, Y: 0}))
	cur, err := b.At(Coord{X: 0, Y: 0})
	require.NoError(t, err)
	assert.ErrorIs(t, cur.Route(RouteRoad, East, East), ErrEmptyCell)
	assert.Equal(t, Coord{X: 0, Y: 0}, cur.Coord())
}

func TestCursor_DuplicateOverride(t *testing.T) {
	w := New(Options{})
	b := filledBuilder(t, w, "town", 2, 1)
	cur, err := b.At(Coord{X: 0, Y: 0})
	require.NoError(t, err)
	require.NoError(t, cur.Block(East, false))
	assert.ErrorIs(t, cur.Route(RouteTrail, East), ErrDuplicateExit)
	assert.ErrorIs(t, cur.Block(East, true), ErrDuplicateExit)
}

func TestCursor_SecondCurrentOverrideFails(t *testing.T) {
	w := New(Options{})
	b := filledBuilder(t, w, "river", 3, 3)
	cur, err := b.At(Coord{X: 1, Y: 1})
	require.NoError(t, err)
	require.NoError(t, cur.Exit(NewExit(South, NewCurrentLink(CurrentGentle), g0(b, 1, 2))))
	err = cur.Exit(NewExit(East, NewCurrentLink(CurrentRapids), g0(b, 2, 1)))
	assert.ErrorIs(t, err, ErrDuplicateCurrent)
}

func g0(b *GridBuilder, x, y int) LocationID {
	return cellID(b.ID(), Coord{X: x, Y: y})
}

func TestAttach_CrossesBoundary(t *testing.T) {
	w := New(Options{})
	west, err := filledBuilder(t, w, "west", 2, 3).Build()
	require.NoError(t, err)
	east, err := filledBuilder(t, w, "east", 2, 4).Build()
	require.NoError(t, err)

	require.NoError(t, Attach(west, East, east, 1))

	edge, err := west.Get(Coord{X: 1, Y: 0})
	require.NoError(t, err)
	e, ok := edge.Exit(East)
	require.True(t, ok)
	assert.Equal(t, east.LocationID(Coord{X: 0, Y: 1}), e.Destination())

	other, err := east.Get(Coord{X: 0, Y: 1})
	require.NoError(t, err)
	back, ok := other.Exit(West)
	require.True(t, ok)
	assert.Equal(t, west.LocationID(Coord{X: 1, Y: 0}), back.Destination())

	// Row 0 of east maps to row -1 of west, which does not exist.
	top, err := east.Get(Coord{X: 0, Y: 0})
	require.NoError(t, err)
	_, ok = top.Exit(West)
	assert.False(t, ok)
}

func TestAttach_RebuildsEdgeExitsDerivedEarlier(t *testing.T) {
	w := New(Options{CacheSize: 1})
	ab := filledBuilder(t, w, "a", 2, 1)
	cur, err := ab.At(Coord{X: 1, Y: 0})
	require.NoError(t, err)
	gate, err := cur.Connector()
	require.NoError(t, err)
	a, err := ab.Build()
	require.NoError(t, err)
	b, err := filledBuilder(t, w, "b", 1, 1).Build()
	require.NoError(t, err)

	anchored, ok := w.Location(gate)
	require.True(t, ok)
	_, ok = anchored.Exit(East)
	require.False(t, ok)
	cached, err := b.Get(Coord{X: 0, Y: 0})
	require.NoError(t, err)
	_, ok = cached.Exit(West)
	require.False(t, ok)

	require.NoError(t, Attach(a, East, b, 0))

	east, ok := anchored.Exit(East)
	require.True(t, ok)
	assert.Equal(t, b.LocationID(Coord{X: 0, Y: 0}), east.Destination())
	west, ok := cached.Exit(West)
	require.True(t, ok)
	assert.Equal(t, gate, west.Destination())

	inner, err := a.Get(Coord{X: 0, Y: 0})
	require.NoError(t, err)
	assert.Equal(t, []Direction{East}, exitDirs(inner.Exits()))
}

func TestAttach_Errors(t *testing.T) {
	w := New(Options{})
	a, err := filledBuilder(t, w, "a", 3, 3).Build()
	require.NoError(t, err)
	b, err := filledBuilder(t, w, "b", 3, 2).Build()
	require.NoError(t, err)
	c, err := filledBuilder(t, w, "c", 3, 3).Build()
	require.NoError(t, err)

	assert.ErrorIs(t, Attach(a, North, b, 3), ErrOffsetRange)
	assert.ErrorIs(t, Attach(a, East, b, 2), ErrOffsetRange)
	require.NoError(t, Attach(a, North, b, 0))
	assert.ErrorIs(t, Attach(a, North, c, 0), ErrAlreadyAttached)
	assert.ErrorIs(t, Attach(c, North, b, 0), ErrAlreadyAttached, "b's south is taken")
	_, _, ok := c.Neighbor(North)
	assert.False(t, ok)
	assert.Error(t, Attach(a, Up, c, 0))
}

func TestAttach_Symmetric(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		w := New(Options{})
		wa, ha := rapid.IntRange(1, 6).Draw(rt, "wa"), rapid.IntRange(1, 6).Draw(rt, "ha")
		wb, hb := rapid.IntRange(1, 6).Draw(rt, "wb"), rapid.IntRange(1, 6).Draw(rt, "hb")
		side := rapid.SampledFrom(CardinalDirections).Draw(rt, "side")
		k := rapid.IntRange(-6, 6).Draw(rt, "k")

		ba, _ := w.NewGrid("a", nil, wa, ha)
		_ = ba.Fill(fieldAt)
		a, _ := ba.Build()
		bb, _ := w.NewGrid("b", nil, wb, hb)
		_ = bb.Fill(fieldAt)
		b, _ := bb.Build()

		if err := Attach(a, side, b, k); err != nil {
			return
		}
		ng, nk, ok := b.Neighbor(side.Opposite())
		if !ok || ng != a || nk != -k {
			rt.Fatalf("reverse attachment: %v %v %d", ok, ng, nk)
		}
		for y := 0; y < ha; y++ {
			for x := 0; x < wa; x++ {
				loc, _ := a.Get(Coord{X: x, Y: y})
				e, ok := loc.Exit(side)
				if !ok {
					continue
				}
				g, dc, _ := e.Destination().Cell()
				if g != b.ID() {
					continue
				}
				dest, _ := b.Get(dc)
				back, ok := dest.Exit(side.Opposite())
				if !ok || back.Destination() != loc.ID() {
					rt.Fatalf("%s -> %s has no way back", loc.ID(), dc)
				}
			}
		}
	})
}
