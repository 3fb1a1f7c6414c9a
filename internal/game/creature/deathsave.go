package creature

import (
	rpgerr "github.com/cory-johannsen/dnd-combat/internal/errors"
	"github.com/cory-johannsen/dnd-combat/internal/game/dice"
)

// deathSaveLimit is the number of successes or failures that ends dying.
const deathSaveLimit = 3

// DeathSaves tracks a dying character's saving throws.
// Invariant: 0 <= Successes, Failures <= 3.
type DeathSaves struct {
	Successes int
	Failures  int
	Stable    bool
	Dead      bool
}

func (d *DeathSaves) addFailures(n int) int {
	before := d.Failures
	d.Failures = min(d.Failures+n, deathSaveLimit)
	if d.Failures >= deathSaveLimit {
		d.Dead = true
	}
	return d.Failures - before
}

func (d *DeathSaves) die() {
	d.Failures = deathSaveLimit
	d.Dead = true
	d.Stable = false
}

// DeathSaveResult reports one death saving throw.
type DeathSaveResult struct {
	Roll    dice.RollResult
	Natural int
	Success bool
	// Revived is true on a natural 20: the character returns at 1 HP.
	Revived   bool
	Successes int
	Failures  int
	Stable    bool
	Dead      bool
}

// MakeDeathSave rolls a death saving throw. A natural 1 counts as two
// failures, a natural 20 restores 1 HP and clears both counters, 10 or higher
// is a success. Three successes stabilize; three failures kill.
//
// Precondition: the character is dying (0 HP, not stable, not dead);
// otherwise a failed_precondition error is returned and nothing changes.
func (ch *Character) MakeDeathSave(r *dice.Roller) (DeathSaveResult, error) {
	switch {
	case ch.DeathSaves.Dead:
		return DeathSaveResult{}, rpgerr.Preconditionf("creature: %s is dead", ch.Name)
	case ch.CurrentHP > 0:
		return DeathSaveResult{}, rpgerr.Preconditionf("creature: %s is conscious and cannot make a death save", ch.Name)
	case ch.DeathSaves.Stable:
		return DeathSaveResult{}, rpgerr.Preconditionf("creature: %s is stable", ch.Name)
	}

	roll, err := r.D20(dice.Normal)
	if err != nil {
		return DeathSaveResult{}, err
	}
	nat := roll.Natural()
	res := DeathSaveResult{Roll: roll, Natural: nat}

	switch {
	case nat == 20:
		ch.DeathSaves = DeathSaves{}
		ch.CurrentHP = 1
		res.Success, res.Revived = true, true
	case nat == 1:
		ch.DeathSaves.addFailures(2)
	case nat >= 10:
		res.Success = true
		ch.DeathSaves.Successes++
		if ch.DeathSaves.Successes >= deathSaveLimit {
			ch.DeathSaves.Successes = deathSaveLimit
			ch.DeathSaves.Stable = true
		}
	default:
		ch.DeathSaves.addFailures(1)
	}

	res.Successes = ch.DeathSaves.Successes
	res.Failures = ch.DeathSaves.Failures
	res.Stable = ch.DeathSaves.Stable
	res.Dead = ch.DeathSaves.Dead
	return res, nil
}
