package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/mudworld/internal/game/dice"
)

// RegisterModules registers all engine.* Lua tables into L. area names the
// VM in log entries and is the default area of engine.world queries.
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: engine global is defined in L with log, dice and world tables.
func (m *Manager) RegisterModules(L *lua.LState, area string) {
	engine := L.NewTable()
	L.SetField(engine, "log", m.logModule(L, area))
	L.SetField(engine, "dice", m.diceModule(L))
	L.SetField(engine, "world", m.worldModule(L, area))
	L.SetGlobal("engine", engine)
}

func (m *Manager) logModule(L *lua.LState, area string) *lua.LTable {
	mod := L.NewTable()
	levels := map[string]func(string, ...zap.Field){
		"debug": m.logger.Debug,
		"info":  m.logger.Info,
		"warn":  m.logger.Warn,
		"error": m.logger.Error,
	}
	for name, logFn := range levels {
		logFn := logFn
		L.SetField(mod, name, L.NewFunction(func(L *lua.LState) int {
			logFn(L.CheckString(1), zap.String("area", area), zap.String("source", "lua"))
			return 0
		}))
	}
	return mod
}

func (m *Manager) diceModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	// engine.dice.chance(percent) -> bool
	L.SetField(mod, "chance", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(dice.Chance(m.src, L.CheckInt(1))))
		return 1
	}))
	// engine.dice.between(lo, hi) -> int
	L.SetField(mod, "between", L.NewFunction(func(L *lua.LState) int {
		lo, hi := L.CheckInt(1), L.CheckInt(2)
		if hi < lo {
			L.ArgError(2, "hi must be >= lo")
			return 0
		}
		L.Push(lua.LNumber(dice.Between(m.src, lo, hi)))
		return 1
	}))
	// engine.dice.pick(list) -> element of a non-empty array table
	L.SetField(mod, "pick", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		n := tbl.Len()
		if n == 0 {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(tbl.RawGetInt(m.src.Intn(n) + 1))
		return 1
	}))
	return mod
}

func (m *Manager) worldModule(L *lua.LState, area string) *lua.LTable {
	mod := L.NewTable()
	// engine.world.area([name]) -> table or nil; defaults to the VM's area.
	L.SetField(mod, "area", L.NewFunction(func(L *lua.LState) int {
		name := L.OptString(1, area)
		if m.QueryArea == nil {
			L.Push(lua.LNil)
			return 1
		}
		info := m.QueryArea(name)
		if info == nil {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(areaToTable(L, info))
		return 1
	}))
	// engine.world.location(name) -> table or nil
	L.SetField(mod, "location", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		if m.QueryLocation == nil {
			L.Push(lua.LNil)
			return 1
		}
		info := m.QueryLocation(name)
		if info == nil {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(locationToTable(L, info))
		return 1
	}))
	// engine.world.announce(msg) sends msg to everyone in the VM's area.
	L.SetField(mod, "announce", L.NewFunction(func(L *lua.LState) int {
		msg := L.CheckString(1)
		if m.Announce != nil {
			m.Announce(area, msg)
		}
		return 0
	}))
	return mod
}

func stringsToTable(L *lua.LState, ss []string) *lua.LTable {
	tbl := L.NewTable()
	for _, s := range ss {
		tbl.Append(lua.LString(s))
	}
	return tbl
}

func areaToTable(L *lua.LState, info *AreaInfo) *lua.LTable {
	tbl := L.NewTable()
	L.SetField(tbl, "name", lua.LString(info.Name))
	L.SetField(tbl, "parent", lua.LString(info.Parent))
	L.SetField(tbl, "properties", stringsToTable(L, info.Properties))
	if w := info.Weather; w != nil {
		wt := L.NewTable()
		L.SetField(wt, "temperature", lua.LNumber(w.Temperature))
		L.SetField(wt, "precipitation", lua.LNumber(w.Precipitation))
		L.SetField(wt, "wind", lua.LNumber(w.Wind))
		L.SetField(wt, "snow", lua.LNumber(w.Snow))
		L.SetField(wt, "frozen", lua.LBool(w.Frozen))
		L.SetField(wt, "description", lua.LString(w.Description))
		L.SetField(tbl, "weather", wt)
	}
	return tbl
}

func locationToTable(L *lua.LState, info *LocationInfo) *lua.LTable {
	tbl := L.NewTable()
	L.SetField(tbl, "id", lua.LString(info.ID))
	L.SetField(tbl, "name", lua.LString(info.Name))
	L.SetField(tbl, "area", lua.LString(info.Area))
	L.SetField(tbl, "terrain", lua.LString(info.Terrain))
	L.SetField(tbl, "exits", stringsToTable(L, info.Exits))
	return tbl
}
