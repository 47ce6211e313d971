package world

import "fmt"

// Route tags a link with a travel category that affects cost and rendering.
type Route uint8

// Routes. RouteNone marks an untagged link.
const (
	RouteNone Route = iota
	RouteRoad
	RouteTrail
	RouteTunnel
	RouteRiver
	RouteBridge
	RouteStairs
)

var routeNames = []string{"none", "road", "trail", "tunnel", "river", "bridge", "stairs"}

// String returns the route name.
func (r Route) String() string {
	if int(r) >= len(routeNames) {
		return fmt.Sprintf("route(%d)", uint8(r))
	}
	return routeNames[r]
}

// CostModifier returns the multiplier applied to movement cost along the route.
func (r Route) CostModifier() float64 {
	switch r {
	case RouteRoad, RouteBridge:
		return 0.5
	case RouteTrail:
		return 0.75
	case RouteStairs:
		return 1.5
	default:
		return 1
	}
}

// ParseRoute resolves a route by name.
func ParseRoute(s string) (Route, error) {
	for i, n := range routeNames {
		if n == s {
			return Route(i), nil
		}
	}
	return RouteNone, fmt.Errorf("unknown route %q", s)
}
