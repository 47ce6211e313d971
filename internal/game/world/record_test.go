package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkRecord_RebuildsEveryVariant(t *testing.T) {
	extended, err := NewExtendedLink(LinkOptions{Size: SizeSmall, Route: RouteTunnel, Modifier: 2, Message: "squeeze"})
	require.NoError(t, err)
	links := []Link{
		DefaultLink,
		extended,
		NewRouteLink(RouteRoad),
		NewCurrentLink(CurrentRapids),
		FakeLink(),
		NewHiddenLink("a crack", 12, LinkOptions{Size: SizeTiny}),
		NewSlopeLink(false, LinkOptions{Route: RouteTrail}),
	}
	for _, l := range links {
		got, err := l.Record().Link()
		require.NoError(t, err, l.String())
		assert.Equal(t, l, got, l.String())
	}
}

func TestLinkRecord_RejectsUnknownValues(t *testing.T) {
	_, err := LinkRecord{Kind: LinkKind(99)}.Link()
	assert.Error(t, err)
	_, err = LinkRecord{Size: Size(99)}.Link()
	assert.Error(t, err)
	_, err = LinkRecord{Route: Route(99)}.Link()
	assert.Error(t, err)
	_, err = LinkRecord{Kind: LinkExtended}.Link()
	assert.ErrorIs(t, err, ErrDefaultLink)
}

// buildRow returns an unsealed world holding the free-standing "tower" and
// the 3x1 grid "row". With overrides, the east edge of (0,0) is blocked both
// ways and (2,0) climbs north to the tower.
func buildRow(t *testing.T, overrides bool) (*World, *Location) {
	t.Helper()
	w := New(Options{})
	tower, err := w.NewLocation(nil, Descriptor{Name: "Tower"})
	require.NoError(t, err)
	require.NoError(t, w.Register("tower", tower.ID()))
	b := filledBuilder(t, w, "row", 3, 1)
	if overrides {
		cur, err := b.At(Coord{X: 0, Y: 0})
		require.NoError(t, err)
		require.NoError(t, cur.Block(East, true))
		require.NoError(t, cur.Move(Coord{X: 2, Y: 0}))
		require.NoError(t, cur.Exit(NewExit(North, NewSlopeLink(true, LinkOptions{Message: "climb"}), tower.ID())))
	}
	_, err = b.Build()
	require.NoError(t, err)
	return w, tower
}

func TestWorld_RefRoundTrip(t *testing.T) {
	w, tower := buildRow(t, false)
	g, ok := w.Grid("row")
	require.True(t, ok)

	ref, ok := w.Ref(tower.ID())
	require.True(t, ok)
	assert.Equal(t, "tower", ref)

	cell := g.LocationID(Coord{X: 1, Y: 0})
	ref, ok = w.Ref(cell)
	require.True(t, ok)
	assert.Equal(t, "grid:row:1,0", ref)
	id, err := w.ResolveRef(ref)
	require.NoError(t, err)
	assert.Equal(t, cell, id)

	require.NoError(t, w.Register("well", cell))
	ref, _ = w.Ref(cell)
	assert.Equal(t, "well", ref, "names win over grid refs")

	loose, err := w.NewLocation(nil, Descriptor{Name: "Loose"})
	require.NoError(t, err)
	_, ok = w.Ref(loose.ID())
	assert.False(t, ok)
}

func TestWorld_ResolveRefErrors(t *testing.T) {
	w, _ := buildRow(t, false)
	for _, ref := range []string{"nowhere", "grid:moor:0,0", "grid:row:9,0"} {
		_, err := w.ResolveRef(ref)
		assert.Error(t, err, ref)
	}
	_, err := w.ResolveRef("nowhere")
	assert.ErrorIs(t, err, ErrUnknownLocation)
	_, err = w.ResolveRef("grid:row:9,0")
	assert.ErrorIs(t, err, ErrOutOfBounds)
	for _, ref := range []string{"grid:row", "grid:row:1", "grid:row:a,b"} {
		_, err := w.ResolveRef(ref)
		assert.Error(t, err, ref)
	}
}

func TestWorld_OverrideRecordsRestoreIntoFreshWorld(t *testing.T) {
	src, _ := buildRow(t, true)
	recs, err := src.OverrideRecords("row")
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, OverrideRecord{Grid: "row", Coord: Coord{X: 0, Y: 0}, Direction: East, Blocked: true}, recs[0])
	assert.Equal(t, OverrideRecord{Grid: "row", Coord: Coord{X: 1, Y: 0}, Direction: West, Blocked: true}, recs[1])
	assert.Equal(t, North, recs[2].Direction)
	assert.Equal(t, "tower", recs[2].Destination)
	assert.Equal(t, LinkSlope, recs[2].Link.Kind)

	dst, tower := buildRow(t, false)
	g, _ := dst.Grid("row")
	before, err := g.Get(Coord{X: 2, Y: 0})
	require.NoError(t, err)
	assert.Equal(t, []Direction{West}, exitDirs(before.Exits()))

	n, err := dst.RestoreOverrides(recs)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	after, err := g.Get(Coord{X: 2, Y: 0})
	require.NoError(t, err)
	e, ok := after.Exit(North)
	require.True(t, ok)
	assert.Equal(t, tower.ID(), e.Destination())
	assert.True(t, e.Link().IsUp())
	first, err := g.Get(Coord{X: 0, Y: 0})
	require.NoError(t, err)
	assert.Equal(t, 0, first.Exits().Len())

	n, err = dst.RestoreOverrides(recs)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "equal overrides are skipped")

	dst.Seal()
	_, err = dst.RestoreOverrides(recs)
	assert.ErrorIs(t, err, ErrSealed)
}

func TestWorld_RestoreOverridesConflicts(t *testing.T) {
	w, _ := buildRow(t, true)
	_, err := w.RestoreOverrides([]OverrideRecord{{
		Grid: "row", Coord: Coord{X: 2, Y: 0}, Direction: North,
		Link: DefaultLink.Record(), Destination: "tower",
	}})
	assert.ErrorIs(t, err, ErrDuplicateExit)

	_, err = w.RestoreOverrides([]OverrideRecord{{Grid: "moor", Direction: North, Blocked: true}})
	assert.ErrorIs(t, err, ErrUnknownLocation)

	_, err = w.RestoreOverrides([]OverrideRecord{{
		Grid: "row", Coord: Coord{X: 1, Y: 0}, Direction: North,
		Link: DefaultLink.Record(), Destination: "nowhere",
	}})
	assert.ErrorIs(t, err, ErrUnknownLocation)
}

func TestWorld_OverrideRecordsUnknownGrid(t *testing.T) {
	w, _ := buildRow(t, false)
	_, err := w.OverrideRecords("moor")
	assert.ErrorIs(t, err, ErrUnknownLocation)
	recs, err := w.OverrideRecords("row")
	require.NoError(t, err)
	assert.Empty(t, recs)
}
