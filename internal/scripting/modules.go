package scripting

import (
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// RegisterModules registers all engine.* Lua functions into L.
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: the engine global is a table with roll, log and
// get_combatant.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()
	L.SetField(engine, "roll", L.NewFunction(m.luaRoll))
	L.SetField(engine, "log", L.NewFunction(m.luaLog))
	L.SetField(engine, "get_combatant", L.NewFunction(m.luaGetCombatant))
	L.SetGlobal("engine", engine)
}

// engine.roll(notation) -> total, or nil plus an error string.
func (m *Manager) luaRoll(L *lua.LState) int {
	notation := L.CheckString(1)
	res, err := m.roller.RollExpr(notation)
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LNumber(res.Total()))
	return 1
}

// engine.log(msg) writes msg to the manager's logger at Info level.
func (m *Manager) luaLog(L *lua.LState) int {
	m.logger.Info("lua", zap.String("msg", L.CheckString(1)))
	return 0
}

// engine.get_combatant(uid) -> table or nil.
func (m *Manager) luaGetCombatant(L *lua.LState) int {
	uid := L.CheckString(1)
	if m.GetCombatant == nil {
		L.Push(lua.LNil)
		return 1
	}
	info := m.GetCombatant(uid)
	if info == nil {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(combatantTable(L, info))
	return 1
}

func combatantTable(L *lua.LState, info *CombatantInfo) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("uid", lua.LString(info.UID))
	t.RawSetString("name", lua.LString(info.Name))
	t.RawSetString("hp", lua.LNumber(info.HP))
	t.RawSetString("max_hp", lua.LNumber(info.MaxHP))
	t.RawSetString("ac", lua.LNumber(info.AC))
	conds := L.NewTable()
	for _, c := range info.Conditions {
		conds.Append(lua.LString(c))
	}
	t.RawSetString("conditions", conds)
	return t
}

func stringReader(s string) *strings.Reader { return strings.NewReader(s) }
