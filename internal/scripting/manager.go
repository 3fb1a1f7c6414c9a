package scripting

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	rpgerr "github.com/cory-johannsen/dnd-combat/internal/errors"
	"github.com/cory-johannsen/dnd-combat/internal/game/dice"
)

// CombatantInfo is a snapshot of a combatant's state passed to Lua hooks.
type CombatantInfo struct {
	UID        string
	Name       string
	HP         int
	MaxHP      int
	AC         int
	Conditions []string
}

// Manager owns one sandboxed LState holding every loaded condition script and
// dispatches named hooks into it.
//
// An LState is single-threaded, so every load and call holds the mutex.
type Manager struct {
	mu        sync.Mutex
	L         *lua.LState
	roller    *dice.Roller
	logger    *zap.Logger
	instLimit int
	closed    bool

	// GetCombatant is injected after construction; nil makes
	// engine.get_combatant return nil.
	GetCombatant func(uid string) *CombatantInfo
}

// NewManager creates a Manager with an empty sandboxed VM and the engine.*
// modules registered.
//
// Precondition: roller and logger must be non-nil; instLimit >= 0, where 0
// selects DefaultInstructionLimit.
// Postcondition: Returns a non-nil Manager; the caller must Close it.
func NewManager(roller *dice.Roller, logger *zap.Logger, instLimit int) *Manager {
	m := &Manager{
		L:         NewSandboxedState(instLimit),
		roller:    roller,
		logger:    logger,
		instLimit: instLimit,
	}
	m.RegisterModules(m.L)
	return m
}

// Load executes every *.lua file in scriptDir in lexicographic order.
//
// Precondition: scriptDir must be a readable directory.
// Postcondition: returns an invalid_input error naming the first file that
// fails to load; files before it stay loaded.
func (m *Manager) Load(scriptDir string) error {
	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		return rpgerr.Wrapf(err, "scripting: reading script dir %q", scriptDir)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return rpgerr.Precondition("scripting: manager is closed")
	}
	for _, path := range luaFiles {
		release := budget(m.L, m.instLimit)
		err := m.L.DoFile(path)
		release()
		if err != nil {
			return rpgerr.WrapWithCode(err, rpgerr.CodeInvalidInput, "scripting: loading "+path)
		}
		m.logger.Debug("lua script loaded", zap.String("path", path))
	}
	return nil
}

// LoadString executes src as a chunk named name.
//
// Postcondition: returns an invalid_input error on a syntax or runtime error.
func (m *Manager) LoadString(name, src string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return rpgerr.Precondition("scripting: manager is closed")
	}
	fn, err := m.L.Load(stringReader(src), name)
	if err != nil {
		return rpgerr.WrapWithCode(err, rpgerr.CodeInvalidInput, "scripting: compiling "+name)
	}
	release := budget(m.L, m.instLimit)
	defer release()
	m.L.Push(fn)
	if err := m.L.PCall(0, lua.MultRet, nil); err != nil {
		return rpgerr.WrapWithCode(err, rpgerr.CodeInvalidInput, "scripting: running "+name)
	}
	return nil
}

// HasHook reports whether a global function named hook is defined.
func (m *Manager) HasHook(hook string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	_, ok := m.L.GetGlobal(hook).(*lua.LFunction)
	return ok
}

// CallHook calls the named Lua global function. Returns (LNil, nil) if the
// hook is not defined. Lua runtime errors, including an exhausted instruction
// budget, are logged at Warn level and never propagated.
//
// Precondition: args must be valid lua.LValue instances created for this
// manager's VM.
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(hook string, args ...lua.LValue) (lua.LValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callLocked(hook, args...)
}

func (m *Manager) callLocked(hook string, args ...lua.LValue) (lua.LValue, error) {
	if m.closed {
		return lua.LNil, nil
	}
	fn := m.L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil, nil
	}

	release := budget(m.L, m.instLimit)
	defer release()
	if err := m.L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, nil
	}

	ret := m.L.Get(-1)
	m.L.Pop(1)
	return ret, nil
}

// TurnStartDamage calls hook with a table describing target and interprets the
// result as hit points of damage.
//
// Precondition: hook should name a function taking one table argument.
// Postcondition: returns a not_found error when the hook is undefined. A
// non-numeric or negative result, or a Lua error, yields 0 damage.
func (m *Manager) TurnStartDamage(hook string, target CombatantInfo) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, rpgerr.Precondition("scripting: manager is closed")
	}
	if _, ok := m.L.GetGlobal(hook).(*lua.LFunction); !ok {
		return 0, rpgerr.NotFoundf("scripting: hook %q is not defined", hook)
	}
	ret, err := m.callLocked(hook, combatantTable(m.L, &target))
	if err != nil {
		return 0, err
	}
	n, ok := ret.(lua.LNumber)
	if !ok || n < 0 {
		return 0, nil
	}
	return int(n), nil
}

// Close releases the VM. It is safe to call more than once.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.L.Close()
}
