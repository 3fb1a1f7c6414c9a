package creature

import (
	"fmt"

	"github.com/cory-johannsen/dnd-combat/internal/game/dice"
)

// CheckResult is the outcome of one d20 check or saving throw against a DC.
type CheckResult struct {
	// Kind names what was rolled: a skill, "<ability> save" or "<ability> check".
	Kind     string
	Roll     dice.RollResult
	Modifier int
	Total    int
	DC       int
	Success  bool
}

func newCheck(kind string, roll dice.RollResult, modifier, dc int) CheckResult {
	total := roll.Total() + modifier
	return CheckResult{
		Kind:     kind,
		Roll:     roll,
		Modifier: modifier,
		Total:    total,
		DC:       dc,
		Success:  total >= dc,
	}
}

// String renders e.g. "dexterity save: 12+3 = 15 vs DC 13 (success)".
func (r CheckResult) String() string {
	verdict := "failure"
	if r.Success {
		verdict = "success"
	}
	return fmt.Sprintf("%s: %d%+d = %d vs DC %d (%s)", r.Kind, r.Roll.Total(), r.Modifier, r.Total, r.DC, verdict)
}

// RollSave rolls a saving throw for c using its SaveModifier, which includes
// proficiency for characters trained in that save.
func RollSave(c Combatant, a Ability, dc int, r *dice.Roller, mode dice.Mode) (CheckResult, error) {
	roll, err := r.D20(mode)
	if err != nil {
		return CheckResult{}, err
	}
	return newCheck(a.String()+" save", roll, c.SaveModifier(a), dc), nil
}

// RollAbilityCheck rolls a raw ability check for c against dc. An ability
// name that is not recognized contributes a modifier of 0.
func RollAbilityCheck(c *Creature, abilityName string, dc int, r *dice.Roller) (CheckResult, error) {
	roll, err := r.D20(dice.Normal)
	if err != nil {
		return CheckResult{}, err
	}
	return newCheck(abilityName+" check", roll, c.Abilities.ModifierByName(abilityName), dc), nil
}
