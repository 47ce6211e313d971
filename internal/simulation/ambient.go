package simulation

import (
	"context"
	"time"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/mudworld/internal/game/dice"
)

// HookCaller invokes a named script hook in an area's VM.
type HookCaller interface {
	CallHook(area, hook string, args ...lua.LValue) (lua.LValue, error)
}

// AmbientObserver receives ambient hook outcomes.
type AmbientObserver interface {
	AmbientFired(area string, ok bool)
}

// AmbientTask returns a task that rolls each area's ambient event chance and
// fires the event's hook on success. The hook receives the area name and the
// area's weather description key.
//
// An area without its own ambient event inherits its nearest ancestor's; the
// hook then runs in the inheriting area's VM.
func AmbientTask(areas AreaSource, src dice.Source, hooks HookCaller, observer AmbientObserver, logger *zap.Logger) Task {
	return func(_ context.Context, _ time.Time) {
		for _, a := range areas.Areas() {
			if a.IsRoot() {
				continue
			}
			ev, ok := a.Ambient()
			if !ok || ev.Hook == "" {
				continue
			}
			if !dice.Chance(src, ev.Chance) {
				continue
			}
			_, err := hooks.CallHook(a.Name(), ev.Hook, lua.LString(a.Name()), lua.LString(a.Weather().Describe()))
			if observer != nil {
				observer.AmbientFired(a.Name(), err == nil)
			}
			if err != nil {
				logger.Warn("ambient event failed",
					zap.String("area", a.Name()),
					zap.String("hook", ev.Hook),
					zap.Error(err),
				)
			}
		}
	}
}
