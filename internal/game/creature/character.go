package creature

import (
	"fmt"

	rpgerr "github.com/cory-johannsen/dnd-combat/internal/errors"
	"github.com/cory-johannsen/dnd-combat/internal/game/dice"
	"github.com/cory-johannsen/dnd-combat/internal/game/resource"
)

// AttackKind selects which ability drives a weapon attack.
type AttackKind int

const (
	// Melee attacks use strength.
	Melee AttackKind = iota
	// Ranged attacks use dexterity.
	Ranged
	// Finesse attacks use the better of strength and dexterity.
	Finesse
)

// String returns "melee", "ranged" or "finesse".
func (k AttackKind) String() string {
	switch k {
	case Ranged:
		return "ranged"
	case Finesse:
		return "finesse"
	default:
		return "melee"
	}
}

// Character is a player character: a Creature plus class, level,
// proficiencies, resource pools and death-save state.
//
// Optional data is modelled as nil pointers or nil maps and every accessor
// treats absence as the inert default, so a partially restored Character is
// always usable.
type Character struct {
	Creature

	Class Class
	Level int
	// Subclass is nil when none has been chosen.
	Subclass *string
	// CastingAbility overrides the class spellcasting ability when non-nil.
	CastingAbility *Ability

	SaveProficiencies   map[Ability]bool
	SkillProficiencies  map[Skill]bool
	Expertise           map[Skill]bool
	WeaponProficiencies map[string]bool
	ArmorProficiencies  map[string]bool

	Resources      *resource.Set
	KnownSpells    []string
	PreparedSpells []string

	DeathSaves DeathSaves
}

// NewCharacter creates a character at full HP with its class saving-throw
// proficiencies and an empty resource set.
//
// Precondition: level >= 1; maxHP >= 1.
func NewCharacter(name string, class Class, level int, scores AbilityScores, maxHP, ac int) *Character {
	ch := &Character{
		Creature:          *New(name, maxHP, ac, scores),
		Class:             class,
		Level:             max(level, 1),
		SaveProficiencies: make(map[Ability]bool),
		Resources:         resource.NewSet(),
	}
	for _, a := range class.Traits().Saves {
		ch.SaveProficiencies[a] = true
	}
	return ch
}

// ProficiencyBonus returns 2 + (level-1)/4.
//
// Postcondition: returns 2 at levels 1-4 and 6 at levels 17-20.
func ProficiencyBonus(level int) int {
	if level < 1 {
		level = 1
	}
	return 2 + (level-1)/4
}

// ProficiencyBonus returns the character's level-derived proficiency bonus.
func (ch *Character) ProficiencyBonus() int { return ProficiencyBonus(ch.Level) }

// CasterLevel returns the character level used for cantrip scaling.
func (ch *Character) CasterLevel() int { return max(ch.Level, 1) }

// SubclassName returns the chosen subclass, if any.
func (ch *Character) SubclassName() (string, bool) {
	if ch.Subclass == nil {
		return "", false
	}
	return *ch.Subclass, true
}

// SpellcastingAbility returns the override when set, otherwise the class
// spellcasting ability. ok is false for non-casters.
func (ch *Character) SpellcastingAbility() (Ability, bool) {
	if ch.CastingAbility != nil {
		return *ch.CastingAbility, true
	}
	if c := ch.Class.Traits().Casting; c != nil {
		return *c, true
	}
	return Strength, false
}

// SaveModifier returns the ability modifier plus proficiency when the
// character is proficient in that save.
func (ch *Character) SaveModifier(a Ability) int {
	mod := ch.Abilities.Modifier(a)
	if ch.SaveProficiencies[a] {
		mod += ch.ProficiencyBonus()
	}
	return mod
}

// SkillModifier returns ability modifier plus proficiency, doubled with
// expertise. Expertise without proficiency still counts as proficient.
func (ch *Character) SkillModifier(s Skill) int {
	mod := ch.Abilities.Modifier(s.Ability())
	switch {
	case ch.Expertise[s]:
		mod += 2 * ch.ProficiencyBonus()
	case ch.SkillProficiencies[s]:
		mod += ch.ProficiencyBonus()
	}
	return mod
}

// AttackAbility returns the ability driving an attack of the given kind.
func (ch *Character) AttackAbility(kind AttackKind) Ability {
	switch kind {
	case Ranged:
		return Dexterity
	case Finesse:
		if ch.Abilities.Modifier(Dexterity) > ch.Abilities.Modifier(Strength) {
			return Dexterity
		}
		return Strength
	default:
		return Strength
	}
}

// AttackBonus returns the to-hit bonus for a weapon attack: ability modifier
// plus proficiency when proficient.
func (ch *Character) AttackBonus(kind AttackKind, proficient bool) int {
	bonus := ch.Abilities.Modifier(ch.AttackAbility(kind))
	if proficient {
		bonus += ch.ProficiencyBonus()
	}
	return bonus
}

// DamageBonus returns the flat damage bonus for a weapon attack of kind.
func (ch *Character) DamageBonus(kind AttackKind) int {
	return ch.Abilities.Modifier(ch.AttackAbility(kind))
}

// IsProficientWith reports weapon proficiency by weapon id or by category
// ("simple", "martial").
func (ch *Character) IsProficientWith(weaponID, category string) bool {
	return ch.WeaponProficiencies[weaponID] || ch.WeaponProficiencies[category]
}

// SpellAttackBonus returns proficiency plus the spellcasting modifier.
//
// Postcondition: returns a failed_precondition error for a non-caster.
func (ch *Character) SpellAttackBonus() (int, error) {
	a, ok := ch.SpellcastingAbility()
	if !ok {
		return 0, rpgerr.Preconditionf("creature: %s has no spellcasting ability", ch.Name)
	}
	return ch.ProficiencyBonus() + ch.Abilities.Modifier(a), nil
}

// SpellSaveDC returns 8 + proficiency + spellcasting modifier.
//
// Postcondition: returns a failed_precondition error for a non-caster.
func (ch *Character) SpellSaveDC() (int, error) {
	bonus, err := ch.SpellAttackBonus()
	if err != nil {
		return 0, err
	}
	return 8 + bonus, nil
}

// SneakAttackDice returns the sneak attack dice for the character's level:
// ceil(level/2) d6, capped at 10d6. ok is false when the class lacks the feature.
func (ch *Character) SneakAttackDice() (dice.Expression, bool) {
	if !ch.Class.Traits().SneakAttack {
		return dice.Expression{}, false
	}
	n := min((ch.CasterLevel()+1)/2, 10)
	return dice.Expression{Count: n, Sides: 6}.WithCount(n), true
}

// SkillCheck rolls d20 + SkillModifier against dc.
func (ch *Character) SkillCheck(s Skill, dc int, r *dice.Roller, mode dice.Mode) (CheckResult, error) {
	roll, err := r.D20(mode)
	if err != nil {
		return CheckResult{}, err
	}
	return newCheck(s.String(), roll, ch.SkillModifier(s), dc), nil
}

// UseResource spends n units from the named pool.
//
// Postcondition: unknown pool names yield an invalid_input error;
// insufficient charge yields false with no error.
func (ch *Character) UseResource(name string, n int) (bool, error) {
	return ch.Resources.Use(name, n)
}

// RecoverResources refills every pool whose recovery type matches rest and
// returns the names that regained charge.
func (ch *Character) RecoverResources(rest resource.RestType) []string {
	if ch.Resources == nil {
		return nil
	}
	return ch.Resources.RecoverOn(rest)
}

// ShortRest recovers short-rest pools.
func (ch *Character) ShortRest() []string {
	return ch.RecoverResources(resource.Short)
}

// LongRest recovers short-rest, long-rest and daily pools and, unless the
// character is dead, restores full HP and clears death saves.
func (ch *Character) LongRest() []string {
	recovered := ch.RecoverResources(resource.Long)
	if !ch.DeathSaves.Dead {
		ch.CurrentHP = ch.MaxHP
		ch.DeathSaves = DeathSaves{}
	}
	return recovered
}

// Defeated reports whether the character has died. A dying or stable
// character at 0 HP is not yet defeated.
func (ch *Character) Defeated() bool { return ch.DeathSaves.Dead }

// IsDead reports whether the character has died.
func (ch *Character) IsDead() bool { return ch.DeathSaves.Dead }

// IsDying reports whether the character is at 0 HP and must roll death saves.
func (ch *Character) IsDying() bool {
	return ch.CurrentHP == 0 && !ch.DeathSaves.Dead && !ch.DeathSaves.Stable
}

// ReceiveDamage applies damage with the character rules: damage at 0 HP adds
// death-save failures (two for a critical hit) and overflow damage equal to
// or beyond MaxHP kills outright.
func (ch *Character) ReceiveDamage(amount int, critical bool) DamageReport {
	r := DamageReport{Requested: max(amount, 0), HPBefore: ch.CurrentHP, HPAfter: ch.CurrentHP}
	if amount <= 0 || ch.DeathSaves.Dead {
		return r
	}

	if ch.CurrentHP == 0 {
		if amount >= ch.MaxHP {
			ch.DeathSaves.die()
			r.Killed, r.Massive = true, true
			return r
		}
		failures := 1
		if critical {
			failures = 2
		}
		ch.DeathSaves.Stable = false
		r.DeathSaveFailures = ch.DeathSaves.addFailures(failures)
		r.Killed = ch.DeathSaves.Dead
		return r
	}

	r.Applied = ch.TakeDamage(amount)
	r.HPAfter = ch.CurrentHP
	if ch.CurrentHP == 0 && amount-r.HPBefore >= ch.MaxHP {
		ch.DeathSaves.die()
		r.Killed, r.Massive = true, true
	}
	return r
}

// Heal restores HP. Healing a character at 0 HP brings it back to
// consciousness and clears its death saves; the dead cannot be healed.
func (ch *Character) Heal(amount int) int {
	if amount <= 0 || ch.DeathSaves.Dead {
		return 0
	}
	if ch.CurrentHP == 0 {
		ch.DeathSaves = DeathSaves{}
		ch.CurrentHP = min(amount, ch.MaxHP)
		return ch.CurrentHP
	}
	return ch.Creature.Heal(amount)
}

// String renders "Name, level N class (HP cur/max, AC n)".
func (ch *Character) String() string {
	return fmt.Sprintf("%s, level %d %s (HP %d/%d, AC %d)",
		ch.Name, ch.Level, ch.Class, ch.CurrentHP, ch.MaxHP, ch.AC)
}
