package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/mudworld/internal/game/dice"
)

// globalAreaID is the reserved key for shared scripts loaded via LoadGlobal.
// CallHook falls back to this VM when no area VM is found.
const globalAreaID = "__global__"

// WeatherInfo is a snapshot of an area's weather passed to Lua callbacks.
type WeatherInfo struct {
	Temperature   int
	Precipitation int
	Wind          int
	Snow          int
	Frozen        bool
	Description   string
}

// AreaInfo is a snapshot of an area passed to Lua callbacks.
type AreaInfo struct {
	Name       string
	Parent     string
	Properties []string
	Weather    *WeatherInfo
}

// LocationInfo is a snapshot of a named location passed to Lua callbacks.
type LocationInfo struct {
	ID      string
	Name    string
	Area    string
	Terrain string
	Exits   []string
}

// vm is one sandboxed LState. Its mutex serializes hook calls because an
// LState is single-threaded.
type vm struct {
	mu     sync.Mutex
	L      *lua.LState
	cancel func()
	limit  int
}

func (v *vm) close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cancel != nil {
		v.cancel()
	}
	v.L.Close()
}

// Manager owns one sandboxed LState per area and exposes hook dispatch.
//
// Manager is safe for concurrent CallHook. Calls into the same area are
// serialized; different areas run concurrently.
type Manager struct {
	mu     sync.RWMutex
	vms    map[string]*vm
	src    dice.Source
	logger *zap.Logger

	// Injected after construction. nil = no-op in engine.* modules.
	QueryArea     func(name string) *AreaInfo
	QueryLocation func(name string) *LocationInfo
	Announce      func(area, msg string)
}

// NewManager creates a Manager.
//
// Precondition: src and logger must be non-nil.
// Postcondition: Returns a non-nil Manager with an empty area map.
func NewManager(src dice.Source, logger *zap.Logger) *Manager {
	if src == nil {
		panic("scripting.NewManager: src must not be nil")
	}
	if logger == nil {
		panic("scripting.NewManager: logger must not be nil")
	}
	return &Manager{
		vms:    make(map[string]*vm),
		src:    src,
		logger: logger,
	}
}

// LoadArea creates a sandboxed VM for area, registers all engine.* modules,
// then executes every *.lua file in scriptDir in lexicographic order.
//
// Precondition: area must be non-empty; scriptDir must be a readable directory.
// Postcondition: Area VM is registered; returns error on Lua load failure.
func (m *Manager) LoadArea(area, scriptDir string, instLimit int) error {
	if area == "" {
		return fmt.Errorf("scripting: area name must not be empty")
	}
	return m.loadInto(area, scriptDir, instLimit)
}

// LoadGlobal creates the "__global__" VM for shared scripts accessible as a
// CallHook fallback from any area.
//
// Precondition: scriptDir must be a readable directory.
// Postcondition: Global VM is registered; returns error on Lua load failure.
func (m *Manager) LoadGlobal(scriptDir string, instLimit int) error {
	return m.loadInto(globalAreaID, scriptDir, instLimit)
}

// LoadDir loads scriptDir as the global VM when it holds *.lua files, and
// every subdirectory as the VM of the area of the same name.
//
// Postcondition: Returns the number of VMs loaded, or the first load error.
func (m *Manager) LoadDir(scriptDir string, instLimit int) (int, error) {
	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		return 0, fmt.Errorf("scripting: reading script dir %q: %w", scriptDir, err)
	}
	loaded := 0
	hasGlobal := false
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			hasGlobal = true
			break
		}
	}
	if hasGlobal {
		if err := m.LoadGlobal(scriptDir, instLimit); err != nil {
			return loaded, err
		}
		loaded++
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if err := m.LoadArea(e.Name(), filepath.Join(scriptDir, e.Name()), instLimit); err != nil {
			return loaded, err
		}
		loaded++
	}
	return loaded, nil
}

func (m *Manager) loadInto(key, scriptDir string, instLimit int) error {
	L, cancel := NewSandboxedState(instLimit)
	m.RegisterModules(L, key)

	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		cancel()
		L.Close()
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", scriptDir, key, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	for _, path := range luaFiles {
		if err := L.DoFile(path); err != nil {
			cancel()
			L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, key, err)
		}
	}

	m.mu.Lock()
	old := m.vms[key]
	m.vms[key] = &vm{L: L, cancel: cancel, limit: instLimit}
	m.mu.Unlock()
	if old != nil {
		old.close()
	}
	m.logger.Debug("scripting: VM loaded",
		zap.String("area", key),
		zap.Int("files", len(luaFiles)),
	)
	return nil
}

// HasArea reports whether area has its own VM.
func (m *Manager) HasArea(area string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.vms[area]
	return ok
}

// CallHook calls the named Lua global function in area's VM. If the area has
// no VM, the __global__ VM is tried as a fallback. Returns (LNil, nil) if the
// hook is not defined or no VM exists. Every call runs on a fresh instruction
// budget.
//
// Precondition: args must be valid lua.LValue instances.
// Postcondition: Returns the first return value of the hook, or LNil with the
// Lua runtime error.
func (m *Manager) CallHook(area, hook string, args ...lua.LValue) (lua.LValue, error) {
	m.mu.RLock()
	v, ok := m.vms[area]
	if !ok {
		v = m.vms[globalAreaID]
	}
	m.mu.RUnlock()

	if v == nil {
		m.logger.Info("scripting: no VM for area",
			zap.String("area", area),
			zap.String("hook", hook),
		)
		return lua.LNil, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	L := v.L
	fn := L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil, nil
	}

	if v.cancel != nil {
		v.cancel()
	}
	v.cancel = budget(L, v.limit)

	if err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("area", area),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, fmt.Errorf("scripting: hook %q in %q: %w", hook, area, err)
	}

	ret := L.Get(-1)
	L.Pop(1)
	return ret, nil
}

// Close releases every VM.
//
// Postcondition: Subsequent CallHook calls return LNil.
func (m *Manager) Close() {
	m.mu.Lock()
	vms := m.vms
	m.vms = make(map[string]*vm)
	m.mu.Unlock()
	for _, v := range vms {
		v.close()
	}
}
