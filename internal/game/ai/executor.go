package ai

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	rpgerr "github.com/cory-johannsen/dnd-combat/internal/errors"
	"github.com/cory-johannsen/dnd-combat/internal/game/combat"
	"github.com/cory-johannsen/dnd-combat/internal/game/creature"
	"github.com/cory-johannsen/dnd-combat/internal/game/resource"
	"github.com/cory-johannsen/dnd-combat/internal/game/spell"
)

// Step is the outcome of one planned action.
type Step struct {
	Action PlannedAction
	// Result renders what happened; empty for pass and failed steps.
	Result string
	// Err is set when the encounter refused the action.
	Err error
}

// Executor carries out plans against an Encounter for its current combatant.
type Executor struct {
	enc    *combat.Encounter
	spells SpellLookup
	logger *zap.Logger
}

// NewExecutor creates an Executor.
//
// Precondition: enc and spells must not be nil.
func NewExecutor(enc *combat.Encounter, spells SpellLookup, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{enc: enc, spells: spells, logger: logger}
}

// Execute runs each action in order. A refused action is recorded and the
// rest of the plan still runs, so a plan may list fallbacks.
//
// Postcondition: len(steps) == len(plan).
func (x *Executor) Execute(plan []PlannedAction) []Step {
	steps := make([]Step, 0, len(plan))
	for _, a := range plan {
		step := Step{Action: a}
		step.Result, step.Err = x.run(a)
		if step.Err != nil {
			x.logger.Debug("planned action refused",
				zap.Stringer("action", a),
				zap.Error(step.Err),
			)
		}
		steps = append(steps, step)
	}
	return steps
}

func (x *Executor) run(a PlannedAction) (string, error) {
	if a.Action == ActionPass {
		return "", nil
	}
	cur, ok := x.enc.Current()
	if !ok {
		return "", rpgerr.Precondition("ai: encounter has no combatants")
	}
	targets, err := x.targets(a.Targets)
	if err != nil {
		return "", err
	}
	if len(targets) == 0 {
		return "", rpgerr.InvalidInputf("ai: %s has no target", a.Operator)
	}

	switch a.Action {
	case ActionAttack:
		atk, ok := pickAttack(cur.Stats().Attacks, a.Weapon)
		if !ok {
			return "", rpgerr.Preconditionf("ai: %s has no attacks", cur.Stats().Name)
		}
		res, err := x.enc.UseAttack(targets[0], atk, combat.AttackOptions{})
		if err != nil {
			return "", err
		}
		return res.String(), nil

	case ActionCast, ActionHeal:
		sp, ok := x.spells.Get(a.Spell)
		if !ok {
			return "", rpgerr.NotFoundf("ai: unknown spell %q", a.Spell)
		}
		slot := slotFor(cur, sp.Level)
		switch {
		case a.Action == ActionHeal || sp.Healing != nil:
			res, err := x.enc.CastHealingSpell(targets[0], sp, slot)
			if err != nil {
				return "", err
			}
			return res.String(), nil
		case sp.RequiresAttackRoll():
			res, err := x.enc.CastAttackSpell(targets[0], sp, combat.AttackOptions{SlotLevel: slot})
			if err != nil {
				return "", err
			}
			return res.String(), nil
		default:
			if sp.Area == nil {
				targets = targets[:1]
			}
			sum, err := x.enc.CastSaveSpell(targets, sp, combat.SaveOptions{SlotLevel: slot})
			if err != nil {
				return "", err
			}
			return sum.String(), nil
		}
	}
	return "", rpgerr.InvalidInputf("ai: unknown action %q", a.Action)
}

// targets resolves planned IDs to combatants still in the encounter.
func (x *Executor) targets(ids []uuid.UUID) ([]creature.Combatant, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	byID := make(map[uuid.UUID]creature.Combatant)
	for _, side := range []combat.Side{combat.Party, combat.Hostile} {
		for _, c := range x.enc.Members(side) {
			byID[c.Stats().ID] = c
		}
	}
	out := make([]creature.Combatant, 0, len(ids))
	for _, id := range ids {
		c, ok := byID[id]
		if !ok {
			return nil, rpgerr.NotFoundf("ai: combatant %s is not in the encounter", id)
		}
		out = append(out, c)
	}
	return out, nil
}

// pickAttack prefers an attack matching weapon ("melee" or "ranged") and
// falls back to the first listed.
func pickAttack(attacks []creature.Attack, weapon string) (creature.Attack, bool) {
	if len(attacks) == 0 {
		return creature.Attack{}, false
	}
	for _, atk := range attacks {
		if (weapon == "ranged") == atk.Ranged && weapon != "" {
			return atk, true
		}
	}
	return attacks[0], true
}

// slotFor returns the lowest spell slot level at or above level that c still
// holds, or level itself when c has no slot pools.
func slotFor(c creature.Combatant, level int) int {
	ch, ok := c.(*creature.Character)
	if !ok || level == 0 {
		return level
	}
	for l := level; l <= 9; l++ {
		if pool, ok := ch.Resources.Get(resource.SpellSlotName(l)); ok && pool.IsAvailable(1) {
			return l
		}
	}
	return level
}

var _ SpellLookup = (*spell.Registry)(nil)
