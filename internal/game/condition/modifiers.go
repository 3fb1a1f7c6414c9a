package condition

import (
	"github.com/cory-johannsen/dnd-combat/internal/game/creature"
	"github.com/cory-johannsen/dnd-combat/internal/game/dice"
)

// Incapacitated reports whether any of c's conditions incapacitates it.
func (r *Registry) Incapacitated(c *creature.Creature) bool {
	for _, id := range c.ConditionIDs() {
		if def, ok := r.defs[id]; ok && def.Incapacitates {
			return true
		}
	}
	return false
}

// AttackModes reports the advantage and disadvantage conditions impose on an
// attack by attacker against defender. When both apply they cancel and
// neither is reported.
func (r *Registry) AttackModes(attacker, defender *creature.Creature) (adv, dis bool) {
	for _, id := range attacker.ConditionIDs() {
		if def, ok := r.defs[id]; ok && def.AttackDisadvantage {
			dis = true
		}
	}
	for _, id := range defender.ConditionIDs() {
		if def, ok := r.defs[id]; ok && def.GrantsAdvantage {
			adv = true
		}
	}
	if adv && dis {
		return false, false
	}
	return adv, dis
}

// SaveMode returns the roll mode for c's saving throws of ability a.
func (r *Registry) SaveMode(c *creature.Creature, a creature.Ability) dice.Mode {
	for _, id := range c.ConditionIDs() {
		def, ok := r.defs[id]
		if !ok {
			continue
		}
		for _, sa := range def.SaveDisadvantage {
			if sa == a {
				return dice.Disadvantage
			}
		}
	}
	return dice.Normal
}
