package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type perceiver int

func (p perceiver) Perception() int { return int(p) }

func TestDirection_Opposite(t *testing.T) {
	cases := map[Direction]Direction{
		North:     South,
		Northeast: Southwest,
		East:      West,
		Southeast: Northwest,
		Up:        Down,
		Down:      Up,
	}
	for d, want := range cases {
		assert.Equal(t, want, d.Opposite(), d.String())
		assert.Equal(t, d, d.Opposite().Opposite(), d.String())
	}
}

func TestDirection_DeltaOppositeCancels(t *testing.T) {
	for _, d := range StandardDirections {
		dx, dy := d.Delta()
		ox, oy := d.Opposite().Delta()
		assert.Equal(t, 0, dx+ox, d.String())
		assert.Equal(t, 0, dy+oy, d.String())
	}
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("NE")
	require.NoError(t, err)
	assert.Equal(t, Northeast, d)

	d, err = ParseDirection(" south ")
	require.NoError(t, err)
	assert.Equal(t, South, d)

	_, err = ParseDirection("sideways")
	assert.Error(t, err)
}

func TestDefaultLink(t *testing.T) {
	l := DefaultLink
	assert.Equal(t, SizeAny, l.Size())
	assert.Equal(t, RouteNone, l.Route())
	assert.Equal(t, 1.0, l.Modifier())
	assert.False(t, l.IsQuiet())
	assert.True(t, l.IsTraversable())
	assert.False(t, l.IsEntityOnly())
	assert.Equal(t, "default", l.Key())
	assert.Empty(t, l.Reason())
	assert.Empty(t, l.Message())
	assert.Equal(t, "n", l.Wrap("n"))
	_, ok := l.Controller()
	assert.False(t, ok)
}

func TestNewExtendedLink_RejectsDefaults(t *testing.T) {
	_, err := NewExtendedLink(LinkOptions{})
	assert.ErrorIs(t, err, ErrDefaultLink)

	_, err = NewExtendedLink(LinkOptions{Modifier: 1})
	assert.ErrorIs(t, err, ErrDefaultLink)

	_, err = NewExtendedLink(LinkOptions{Modifier: -2})
	assert.Error(t, err)

	l, err := NewExtendedLink(LinkOptions{Size: SizeSmall, Message: "You squeeze through."})
	require.NoError(t, err)
	assert.Equal(t, SizeSmall, l.Size())
	assert.Equal(t, "You squeeze through.", l.Message())
	assert.Equal(t, "default", l.Key())
}

func TestCurrentLink(t *testing.T) {
	gentle := NewCurrentLink(0)
	assert.Equal(t, CurrentGentle, gentle.Severity())
	assert.Equal(t, RouteRiver, gentle.Route())
	assert.Equal(t, "current", gentle.Key())
	assert.Equal(t, "s", gentle.Wrap("s"))

	rapids := NewCurrentLink(CurrentRapids)
	assert.Equal(t, "rapids", rapids.Key())
	assert.Equal(t, "~s", rapids.Wrap("s"))

	falls := NewCurrentLink(99)
	assert.Equal(t, CurrentWaterfall, falls.Severity())
	assert.Equal(t, "waterfall", falls.Key())
	assert.Equal(t, "!s", falls.Wrap("s"))
}

func TestFakeLink(t *testing.T) {
	l := FakeLink()
	assert.False(t, l.IsTraversable())
	assert.Equal(t, FakeReason, l.Reason())
	_, err := l.Invert()
	assert.ErrorIs(t, err, ErrInvertFake)
}

func TestHiddenLink(t *testing.T) {
	l := NewHiddenLink("a crack in the wall", 12, LinkOptions{Size: SizeTiny})
	assert.True(t, l.IsQuiet())
	assert.True(t, l.IsEntityOnly())
	assert.Equal(t, SizeTiny, l.Size())
	assert.Equal(t, "(w)", l.Wrap("w"))
	assert.Equal(t, "a crack in the wall", l.Disguise("Treasury"))

	c, ok := l.Controller()
	require.True(t, ok)
	assert.Equal(t, "a crack in the wall", c.Name())
	assert.False(t, c.Perceives(perceiver(11)))
	assert.True(t, c.Perceives(perceiver(12)))
	assert.False(t, c.Perceives(nil))

	inv, err := l.Invert()
	require.NoError(t, err)
	assert.Equal(t, l, inv)
}

func TestSlopeLink_InvertFlips(t *testing.T) {
	up := NewSlopeLink(true, LinkOptions{})
	assert.True(t, up.IsUp())
	assert.Equal(t, "slope.up", up.Key())
	assert.Equal(t, "^n", up.Wrap("n"))

	down, err := up.Invert()
	require.NoError(t, err)
	assert.False(t, down.IsUp())
	assert.Equal(t, "slope.down", down.Key())
	assert.Equal(t, "vn", down.Wrap("n"))

	back, err := down.Invert()
	require.NoError(t, err)
	assert.Equal(t, up, back)
}

func TestRouteLink(t *testing.T) {
	l := NewRouteLink(RouteRoad)
	assert.Equal(t, "route.road", l.Key())
	assert.Equal(t, 0.5, l.Modifier())
	inv, err := l.Invert()
	require.NoError(t, err)
	assert.Equal(t, l, inv)
}

func TestExit_DescribeAndPerceive(t *testing.T) {
	w := New(Options{})
	vault, err := w.NewLocation(Root, Descriptor{Name: "Vault"})
	require.NoError(t, err)

	plain := NewExit(North, DefaultLink, vault.ID())
	d := plain.Describe(w)
	assert.Equal(t, "location.exit.default", d.Key)
	assert.Equal(t, "north", d.Direction)
	assert.Equal(t, "Vault", d.Destination)
	assert.True(t, plain.IsPerceivedBy(nil))

	secret := NewExit(North, NewHiddenLink("a loose stone", 5, LinkOptions{}), vault.ID())
	d = secret.Describe(w)
	assert.Equal(t, "location.exit.hidden", d.Key)
	assert.Equal(t, "(north)", d.Direction)
	assert.Equal(t, "a loose stone", d.Destination)
	assert.False(t, secret.IsPerceivedBy(perceiver(4)))
	assert.True(t, secret.IsPerceivedBy(perceiver(5)))

	fake := NewExit(East, FakeLink(), vault.ID())
	assert.Equal(t, FakeReason, fake.Describe(w).Reason)
}
