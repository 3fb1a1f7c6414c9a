package ai

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// maxSteps bounds a single decomposition.
const maxSteps = 64

// ScriptCaller is the interface required by the Planner to evaluate Lua
// preconditions. *scripting.Manager satisfies it.
type ScriptCaller interface {
	// CallHook calls a named Lua function.
	// Returns (LNil, nil) if the function is not defined.
	CallHook(hook string, args ...lua.LValue) (lua.LValue, error)
}

// Predicate is a built-in method precondition. arg is the text after a ':'
// in the precondition name, e.g. "fireball" in "can_cast:fireball".
type Predicate func(ws *WorldState, arg string) bool

// Predicates are the built-in preconditions. Any other name is a Lua hook
// called with the planning combatant's ID.
var Predicates = map[string]Predicate{
	"has_enemy": func(ws *WorldState, _ string) bool { return len(ws.Enemies()) > 0 },
	"self_bloodied": func(ws *WorldState, _ string) bool {
		return ws.Self.Bloodied()
	},
	"ally_bloodied": func(ws *WorldState, _ string) bool {
		if ws.Self.Bloodied() {
			return true
		}
		for _, a := range ws.Allies() {
			if a.HP < a.MaxHP && a.Bloodied() {
				return true
			}
		}
		return false
	},
	"ally_down": func(ws *WorldState, _ string) bool {
		for _, a := range ws.Allies() {
			if a.Down {
				return true
			}
		}
		return false
	},
	"enemy_bloodied": func(ws *WorldState, _ string) bool {
		for _, e := range ws.Enemies() {
			if e.Bloodied() {
				return true
			}
		}
		return false
	},
	"enemies_grouped": func(ws *WorldState, _ string) bool { return len(ws.Enemies()) >= 3 },
	"can_cast":        func(ws *WorldState, spellID string) bool { return ws.Self.CanCast(spellID) },
	"has_melee":       func(ws *WorldState, _ string) bool { return ws.Self.Melee },
	"has_ranged":      func(ws *WorldState, _ string) bool { return ws.Self.Ranged },
	"has_bonus_action": func(ws *WorldState, _ string) bool {
		return ws.Self.BonusAction
	},
}

// PlannedAction is one primitive action produced by the planner.
type PlannedAction struct {
	Operator string
	Action   string
	Spell    string
	Weapon   string
	// Targets is empty for pass.
	Targets []uuid.UUID
	// TargetNames parallels Targets.
	TargetNames []string
}

// String renders "action[spell] -> targets".
func (a PlannedAction) String() string {
	s := a.Action
	if a.Spell != "" {
		s += "[" + a.Spell + "]"
	}
	if len(a.TargetNames) > 0 {
		s += " -> " + strings.Join(a.TargetNames, ", ")
	}
	return s
}

// Planner evaluates an HTN domain and produces an ordered action plan for
// one turn.
//
// Invariant: domain must not be nil. A nil caller makes every Lua
// precondition false.
type Planner struct {
	domain *Domain
	caller ScriptCaller
	logger *zap.Logger
}

// NewPlanner constructs a Planner.
//
// Precondition: domain must not be nil.
func NewPlanner(domain *Domain, caller ScriptCaller, logger *zap.Logger) *Planner {
	if domain == nil {
		panic("ai.NewPlanner: domain must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{domain: domain, caller: caller, logger: logger}
}

// Domain returns the domain the planner evaluates.
func (p *Planner) Domain() *Domain { return p.domain }

// Plan evaluates the HTN domain against state and returns an ordered plan.
//
// Precondition: state and state.Self must not be nil.
// Postcondition: returns a non-nil slice (may be empty). Operators whose
// target does not resolve, or whose spell cannot be cast, are skipped. Lua
// failures count as a false precondition.
func (p *Planner) Plan(state *WorldState) ([]PlannedAction, error) {
	if state == nil || state.Self == nil {
		return nil, fmt.Errorf("ai.Planner.Plan: state and state.Self must not be nil")
	}

	queue := []string{RootTask}
	result := []PlannedAction{}

	for steps := 0; len(queue) > 0 && steps < maxSteps; steps++ {
		current := queue[0]
		queue = queue[1:]

		if op, ok := p.domain.OperatorByID(current); ok {
			if action, ok := p.ground(op, state); ok {
				result = append(result, action)
			}
			continue
		}

		method := p.findApplicableMethod(current, state)
		if method == nil {
			continue
		}
		queue = append(append([]string(nil), method.Subtasks...), queue...)
	}
	return result, nil
}

// ground binds an operator to concrete targets.
func (p *Planner) ground(op *Operator, state *WorldState) (PlannedAction, bool) {
	action := PlannedAction{Operator: op.ID, Action: op.Action, Spell: op.Spell, Weapon: op.Weapon}
	switch op.Action {
	case ActionPass:
		return action, true
	case ActionCast, ActionHeal:
		if !state.Self.CanCast(op.Spell) {
			p.logger.Debug("operator skipped: spell unavailable",
				zap.String("operator", op.ID), zap.String("spell", op.Spell))
			return action, false
		}
	}
	targets := state.ResolveTargets(op.Target)
	if len(targets) == 0 {
		p.logger.Debug("operator skipped: no target",
			zap.String("operator", op.ID), zap.String("target", op.Target))
		return action, false
	}
	for _, t := range targets {
		action.Targets = append(action.Targets, t.ID)
		action.TargetNames = append(action.TargetNames, t.Name)
	}
	return action, true
}

// findApplicableMethod returns the first Method for taskID whose precondition passes,
// or nil if none applies.
//
// Methods are tried in declaration order. An empty Precondition always passes.
func (p *Planner) findApplicableMethod(taskID string, state *WorldState) *Method {
	for _, m := range p.domain.MethodsForTask(taskID) {
		if p.holds(m.Precondition, state) {
			return m
		}
	}
	return nil
}

// holds evaluates a precondition. Terms joined by "&&" must all hold.
func (p *Planner) holds(precondition string, state *WorldState) bool {
	for _, term := range strings.Split(precondition, "&&") {
		if !p.term(strings.TrimSpace(term), state) {
			return false
		}
	}
	return true
}

func (p *Planner) term(term string, state *WorldState) bool {
	if term == "" {
		return true
	}
	negate := strings.HasPrefix(term, "!")
	name, arg, _ := strings.Cut(strings.TrimPrefix(term, "!"), ":")

	var ok bool
	if pred, found := Predicates[name]; found {
		ok = pred(state, arg)
	} else if p.caller != nil {
		val, _ := p.caller.CallHook(name, lua.LString(state.Self.ID.String()))
		ok = val == lua.LTrue
	}
	return ok != negate
}
