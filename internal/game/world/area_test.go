package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/mudworld/internal/game/dice"
	"github.com/cory-johannsen/mudworld/internal/game/loot"
	"github.com/cory-johannsen/mudworld/internal/game/weather"
)

func newWeather(t *testing.T) *weather.Weather {
	t.Helper()
	w, err := weather.New(weather.Config{
		Temperature:   weather.Bounds{Min: 1, Max: 3},
		Precipitation: weather.Bounds{Min: 0, Max: 2},
		Wind:          weather.Bounds{Min: 0, Max: 4},
		History:       3,
	}, dice.NewSeededSource(7))
	require.NoError(t, err)
	return w
}

func TestNewArea_RejectsNonOverridable(t *testing.T) {
	_, err := NewArea("crypt", nil, AreaConfig{Properties: []Property{Dark}})
	assert.ErrorIs(t, err, ErrOverridableProperty)

	_, err = NewArea("", nil, AreaConfig{})
	assert.Error(t, err)

	_, err = NewArea("lake", nil, AreaConfig{Resources: []*loot.Table{{Resource: ""}}})
	assert.Error(t, err)
}

func TestArea_MarketInheritsBreeWeather(t *testing.T) {
	wx := newWeather(t)
	bree, err := NewArea("Bree", nil, AreaConfig{Weather: wx})
	require.NoError(t, err)
	market, err := NewArea("Market", bree, AreaConfig{})
	require.NoError(t, err)

	assert.Same(t, Root, bree.Parent())
	assert.Same(t, wx, market.Weather())
	_, own := market.OwnWeather()
	assert.False(t, own)
	assert.Same(t, weather.None, Root.Weather())
}

func TestArea_ChainLookups(t *testing.T) {
	fish := &loot.Table{Resource: "fish", Drops: []loot.Drop{{ItemID: "trout", Chance: 50, MinQty: 1, MaxQty: 2}}}
	region, err := NewArea("eriador", nil, AreaConfig{
		Resources: []*loot.Table{fish},
		Views:     map[Direction]string{East: "The Misty Mountains."},
		Ambient:   &AmbientEvent{Hook: "crows", Chance: 5},
		Names:     NewNameStore(map[string][]string{"field": {"Barley Field"}}),
	})
	require.NoError(t, err)
	town, err := NewArea("bree", region, AreaConfig{Views: map[Direction]string{North: "The North Gate."}})
	require.NoError(t, err)

	got, ok := town.Resource("fish")
	require.True(t, ok)
	assert.Same(t, fish, got)
	_, ok = town.Resource("ore")
	assert.False(t, ok)

	v, ok := town.View(North)
	require.True(t, ok)
	assert.Equal(t, "The North Gate.", v)
	v, ok = town.View(East)
	require.True(t, ok)
	assert.Equal(t, "The Misty Mountains.", v)
	_, ok = town.View(South)
	assert.False(t, ok)

	ev, ok := town.Ambient()
	require.True(t, ok)
	assert.Equal(t, "crows", ev.Hook)

	name, ok := town.Store().Pick("field", "(1,1)")
	require.True(t, ok)
	assert.Equal(t, "Barley Field", name)
	assert.Equal(t, 2, town.Depth())
	assert.Equal(t, 0, Root.Depth())
	assert.False(t, Root.Store().Has("field"))
}

func TestNameStore_PickDeterministic(t *testing.T) {
	s := NewNameStore(map[string][]string{"forest": {"Old Forest", "Chetwood", "Fangorn"}})
	a, _ := s.Pick("forest", "(3,4)")
	b, _ := s.Pick("forest", "(3,4)")
	assert.Equal(t, a, b)
	_, ok := s.Pick("desert", "(0,0)")
	assert.False(t, ok)
	assert.Equal(t, []string{"forest"}, s.Categories())
}

func TestProperty_AreaXorLocal(t *testing.T) {
	overridable := []Property{Water, Fish, Busy}
	rapid.Check(t, func(rt *rapid.T) {
		p := rapid.SampledFrom(overridable).Draw(rt, "property")
		var parentProps, ownProps []Property
		if rapid.Bool().Draw(rt, "parent") {
			parentProps = append(parentProps, p)
		}
		if rapid.Bool().Draw(rt, "own") {
			ownProps = append(ownProps, p)
		}
		local := rapid.Bool().Draw(rt, "local")

		parent, err := NewArea("parent", nil, AreaConfig{Properties: parentProps})
		if err != nil {
			rt.Fatalf("parent: %v", err)
		}
		area, err := NewArea("child", parent, AreaConfig{Properties: ownProps})
		if err != nil {
			rt.Fatalf("child: %v", err)
		}
		var props PropertySet
		if local {
			props = props.With(p)
		}
		w := New(Options{})
		loc, err := w.NewLocation(area, Descriptor{Name: "here", Props: props})
		if err != nil {
			rt.Fatalf("location: %v", err)
		}
		want := area.IsProperty(p) != local
		if loc.IsProperty(p) != want {
			rt.Fatalf("IsProperty(%s)=%v want %v", p, loc.IsProperty(p), want)
		}
	})
}

func TestProperty_LocalOnly(t *testing.T) {
	w := New(Options{})
	area, err := NewArea("temple", nil, AreaConfig{})
	require.NoError(t, err)
	loc, err := w.NewLocation(area, Descriptor{Name: "Nave", Props: NewPropertySet(Sanctuary, Indoors)})
	require.NoError(t, err)
	assert.True(t, loc.IsProperty(Sanctuary))
	assert.True(t, loc.IsProperty(Indoors))
	assert.False(t, loc.IsProperty(Dark))
}

func TestArea_DepthTerminates(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		depth := rapid.IntRange(1, 20).Draw(rt, "depth")
		a := Root
		for i := 0; i < depth; i++ {
			next, err := NewArea("a", a, AreaConfig{})
			if err != nil {
				rt.Fatalf("area: %v", err)
			}
			a = next
		}
		if a.Depth() != depth {
			rt.Fatalf("depth %d want %d", a.Depth(), depth)
		}
		if !a.Weather().IsNone() {
			rt.Fatalf("expected Root weather")
		}
	})
}

func TestLocation_WaterAndTransition(t *testing.T) {
	warm := newWeather(t)
	lake, err := NewArea("lake", nil, AreaConfig{Weather: warm})
	require.NoError(t, err)

	w := New(Options{})
	shore, err := w.NewLocation(lake, Descriptor{Name: "Shore", Terrain: TerrainField})
	require.NoError(t, err)
	water, err := w.NewLocation(lake, Descriptor{Name: "Lake", Terrain: TerrainWater})
	require.NoError(t, err)

	assert.False(t, shore.IsWater())
	assert.True(t, water.IsWater())
	assert.False(t, water.IsFrozen())
	assert.True(t, shore.IsTransition(water))
	assert.False(t, water.IsTransition(water))

	frozen, err := weather.New(weather.Config{History: 1}, dice.NewSeededSource(1))
	require.NoError(t, err)
	pond, err := NewArea("pond", nil, AreaConfig{Weather: frozen})
	require.NoError(t, err)
	ice, err := w.NewLocation(pond, Descriptor{Name: "Pond", Terrain: TerrainWater})
	require.NoError(t, err)
	assert.True(t, ice.IsFrozen())
	assert.False(t, shore.IsTransition(ice), "walking onto ice is not a transition")
}
