package world

import "fmt"

// LinkKind discriminates the Link variants.
type LinkKind uint8

// Link variants.
const (
	LinkDefault LinkKind = iota
	LinkExtended
	LinkRoute
	LinkCurrent
	LinkFake
	LinkHidden
	LinkSlope
)

var linkKindNames = []string{"default", "extended", "route", "current", "fake", "hidden", "slope"}

// String returns the variant name.
func (k LinkKind) String() string {
	if int(k) >= len(linkKindNames) {
		return fmt.Sprintf("link(%d)", uint8(k))
	}
	return linkKindNames[k]
}

// Size constrains what may pass through an exit. SizeAny means unconstrained.
type Size uint8

// Sizes.
const (
	SizeAny Size = iota
	SizeTiny
	SizeSmall
	SizeMedium
	SizeLarge
)

// Current severities. Higher severities render a stronger glyph.
const (
	CurrentGentle    = 1
	CurrentRapids    = 2
	CurrentWaterfall = 3
)

// FakeReason is the description key reported when a fake exit is attempted.
const FakeReason = "location.exit.fake.reason"

// LinkOptions carries the extended link properties shared by the extended,
// hidden and slope variants.
type LinkOptions struct {
	Size     Size
	Route    Route
	Modifier float64
	Message  string
}

func (o LinkOptions) isDefault() bool {
	return o.Size == SizeAny && o.Route == RouteNone && (o.Modifier == 0 || o.Modifier == 1) && o.Message == ""
}

// Link describes how an exit behaves when traversed. Links are immutable
// values and compare with ==. The zero Link is the default link.
//
// A Link never references the Exit that carries it.
type Link struct {
	kind       LinkKind
	size       Size
	route      Route
	modifier   float64
	message    string
	severity   int
	name       string
	visibility int
	up         bool
}

// DefaultLink is the plain traversable link with no constraints.
var DefaultLink = Link{}

// NewExtendedLink returns a link carrying a size constraint, route, cost
// modifier and traversal message.
//
// Postcondition: Returns ErrDefaultLink when opts holds only default values;
// callers should use DefaultLink instead.
func NewExtendedLink(opts LinkOptions) (Link, error) {
	if opts.isDefault() {
		return Link{}, ErrDefaultLink
	}
	if opts.Modifier < 0 {
		return Link{}, fmt.Errorf("extended link modifier must be >= 0, got %v", opts.Modifier)
	}
	return Link{
		kind:     LinkExtended,
		size:     opts.Size,
		route:    opts.Route,
		modifier: opts.Modifier,
		message:  opts.Message,
	}, nil
}

// NewRouteLink returns a link tagged with route r.
func NewRouteLink(r Route) Link {
	return Link{kind: LinkRoute, route: r}
}

// NewCurrentLink returns a river current of the given severity, clamped to
// [CurrentGentle, CurrentWaterfall].
func NewCurrentLink(severity int) Link {
	severity = max(CurrentGentle, min(CurrentWaterfall, severity))
	return Link{kind: LinkCurrent, route: RouteRiver, severity: severity}
}

// FakeLink returns a link that is never traversable.
func FakeLink() Link {
	return Link{kind: LinkFake}
}

// NewHiddenLink returns a secret link named name that is only perceived by
// actors whose perception reaches visibility.
func NewHiddenLink(name string, visibility int, opts LinkOptions) Link {
	return Link{
		kind:       LinkHidden,
		size:       opts.Size,
		route:      opts.Route,
		modifier:   opts.Modifier,
		message:    opts.Message,
		name:       name,
		visibility: visibility,
	}
}

// NewSlopeLink returns a link that climbs (up) or descends.
func NewSlopeLink(up bool, opts LinkOptions) Link {
	return Link{
		kind:     LinkSlope,
		size:     opts.Size,
		route:    opts.Route,
		modifier: opts.Modifier,
		message:  opts.Message,
		up:       up,
	}
}

// Kind returns the link variant.
func (l Link) Kind() LinkKind { return l.kind }

func (l Link) extended() bool {
	return l.kind == LinkExtended || l.kind == LinkHidden || l.kind == LinkSlope
}

// Size returns the size constraint.
func (l Link) Size() Size {
	if l.extended() {
		return l.size
	}
	return SizeAny
}

// Route returns the route tag.
func (l Link) Route() Route {
	switch {
	case l.kind == LinkRoute, l.kind == LinkCurrent, l.extended():
		return l.route
	default:
		return RouteNone
	}
}

// Modifier returns the movement cost multiplier.
func (l Link) Modifier() float64 {
	switch {
	case l.kind == LinkRoute:
		return l.route.CostModifier()
	case l.kind == LinkCurrent:
		return 1 + float64(l.severity)/2
	case l.extended() && l.modifier != 0:
		return l.modifier
	default:
		return 1
	}
}

// IsQuiet reports whether traversal goes unannounced.
func (l Link) IsQuiet() bool { return l.kind == LinkHidden }

// IsTraversable reports whether the link can be used at all.
func (l Link) IsTraversable() bool { return l.kind != LinkFake }

// IsEntityOnly reports whether only creatures, not carried or pushed
// objects, may pass.
func (l Link) IsEntityOnly() bool { return l.kind == LinkHidden }

// Severity returns the current severity, or zero for non-current links.
func (l Link) Severity() int { return l.severity }

// IsUp reports whether a slope climbs.
func (l Link) IsUp() bool { return l.kind == LinkSlope && l.up }

// Key returns the description key suffix used under "location.exit.".
func (l Link) Key() string {
	switch l.kind {
	case LinkRoute:
		return "route." + l.route.String()
	case LinkCurrent:
		switch l.severity {
		case CurrentWaterfall:
			return "waterfall"
		case CurrentRapids:
			return "rapids"
		default:
			return "current"
		}
	case LinkFake:
		return "fake"
	case LinkHidden:
		return "hidden"
	case LinkSlope:
		if l.up {
			return "slope.up"
		}
		return "slope.down"
	default:
		return "default"
	}
}

// Controller returns the object that decides whether the exit is perceived.
func (l Link) Controller() (Controller, bool) {
	if l.kind != LinkHidden {
		return nil, false
	}
	return HiddenController{name: l.name, visibility: l.visibility}, true
}

// Reason returns why the link cannot be traversed, or "".
func (l Link) Reason() string {
	if l.kind == LinkFake {
		return FakeReason
	}
	return ""
}

// Message returns the traversal message, or "".
func (l Link) Message() string {
	if l.extended() {
		return l.message
	}
	return ""
}

// Wrap decorates a direction glyph for map rendering.
func (l Link) Wrap(glyph string) string {
	switch l.kind {
	case LinkCurrent:
		switch l.severity {
		case CurrentWaterfall:
			return "!" + glyph
		case CurrentRapids:
			return "~" + glyph
		}
		return glyph
	case LinkHidden:
		return "(" + glyph + ")"
	case LinkSlope:
		if l.up {
			return "^" + glyph
		}
		return "v" + glyph
	default:
		return glyph
	}
}

// Disguise returns the destination name as presented through the link.
func (l Link) Disguise(dest string) string {
	if l.kind == LinkHidden && l.name != "" {
		return l.name
	}
	return dest
}

// Invert returns the link used for the reverse exit.
//
// Postcondition: Returns ErrInvertFake for fake links; slopes flip direction;
// every other variant is its own inverse.
func (l Link) Invert() (Link, error) {
	switch l.kind {
	case LinkFake:
		return Link{}, ErrInvertFake
	case LinkSlope:
		inv := l
		inv.up = !l.up
		return inv, nil
	default:
		return l, nil
	}
}

// String renders the link for logs.
func (l Link) String() string {
	return l.kind.String() + ":" + l.Key()
}

// Perceiver is anything that can notice concealed exits.
type Perceiver interface {
	Perception() int
}

// Controller decides whether an actor perceives an exit.
type Controller interface {
	Name() string
	Perceives(p Perceiver) bool
}

// HiddenController is the synthetic perception controller of a hidden link.
type HiddenController struct {
	name       string
	visibility int
}

// Name returns the hidden exit's name.
func (c HiddenController) Name() string { return c.name }

// Visibility returns the perception needed to notice the exit.
func (c HiddenController) Visibility() int { return c.visibility }

// Perceives reports whether p's perception reaches the exit's visibility.
// A nil perceiver never perceives a hidden exit.
func (c HiddenController) Perceives(p Perceiver) bool {
	if p == nil {
		return false
	}
	return p.Perception() >= c.visibility
}
