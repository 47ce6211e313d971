package simulation

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/mudworld/internal/game/world"
	"github.com/cory-johannsen/mudworld/internal/scripting"
)

// BindScripts injects world queries into the script manager's engine.world
// module. Announcements are logged; there is no session layer to deliver them.
//
// Precondition: mgr, w and logger must be non-nil.
func BindScripts(mgr *scripting.Manager, w *world.World, logger *zap.Logger) {
	mgr.QueryArea = func(name string) *scripting.AreaInfo {
		a, ok := w.Area(name)
		if !ok {
			return nil
		}
		return areaInfo(a)
	}
	mgr.QueryLocation = func(name string) *scripting.LocationInfo {
		loc, ok := w.LocationByName(name)
		if !ok {
			return nil
		}
		return locationInfo(loc)
	}
	mgr.Announce = func(area, msg string) {
		logger.Info("ambient announcement",
			zap.String("area", area),
			zap.String("message", msg),
		)
	}
}

func areaInfo(a *world.Area) *scripting.AreaInfo {
	info := &scripting.AreaInfo{Name: a.Name()}
	if p := a.Parent(); p != nil {
		info.Parent = p.Name()
	}
	for _, p := range a.Properties().Properties() {
		info.Properties = append(info.Properties, p.String())
	}
	if w := a.Weather(); !w.IsNone() {
		s := w.Current()
		info.Weather = &scripting.WeatherInfo{
			Temperature:   int(s.Temperature),
			Precipitation: int(s.Precipitation),
			Wind:          int(s.Wind),
			Snow:          w.Snow(),
			Frozen:        w.IsFrozen(),
			Description:   w.Describe(),
		}
	}
	return info
}

func locationInfo(loc *world.Location) *scripting.LocationInfo {
	info := &scripting.LocationInfo{
		ID:      loc.ID().String(),
		Name:    loc.Name(),
		Area:    loc.Area().Name(),
		Terrain: loc.Terrain().String(),
	}
	for _, e := range loc.Exits().All() {
		info.Exits = append(info.Exits, e.Direction().String())
	}
	return info
}
