package creature

import (
	"fmt"

	"github.com/google/uuid"
)

// Attack is a ready-made attack from a stat block, such as a goblin's scimitar.
type Attack struct {
	Name       string
	Bonus      int
	Damage     string
	DamageType string
	Ranged     bool
}

// Creature is any participant in an encounter. Its ID is the identity used by
// every registry and tracker; Name is display-only and may repeat.
// Invariant: 0 <= CurrentHP <= MaxHP.
type Creature struct {
	ID        uuid.UUID
	Name      string
	MaxHP     int
	CurrentHP int
	AC        int
	Abilities AbilityScores
	// SaveBonuses replaces the plain ability modifier for listed saves, as
	// printed in monster stat blocks.
	SaveBonuses map[Ability]int
	Attacks     []Attack
	Conditions  ConditionSet
}

// New creates a creature at full hit points with a fresh identity.
//
// Precondition: maxHP >= 1.
// Postcondition: CurrentHP == MaxHP and ID is a new random UUID.
func New(name string, maxHP, ac int, scores AbilityScores) *Creature {
	if maxHP < 1 {
		maxHP = 1
	}
	return &Creature{
		ID:        uuid.New(),
		Name:      name,
		MaxHP:     maxHP,
		CurrentHP: maxHP,
		AC:        ac,
		Abilities: scores,
	}
}

// Stats returns c itself so *Creature satisfies Combatant.
func (c *Creature) Stats() *Creature { return c }

// IsAlive reports whether the creature has hit points left.
func (c *Creature) IsAlive() bool { return c.CurrentHP > 0 }

// Defeated reports whether the creature is out of the fight for good. For a
// plain creature that is the moment it drops to 0 HP.
func (c *Creature) Defeated() bool { return c.CurrentHP <= 0 }

// ArmorClass returns the creature's AC.
func (c *Creature) ArmorClass() int { return c.AC }

// Modifier returns the ability modifier for a.
func (c *Creature) Modifier(a Ability) int { return c.Abilities.Modifier(a) }

// InitiativeModifier returns the dexterity modifier.
func (c *Creature) InitiativeModifier() int { return c.Abilities.Modifier(Dexterity) }

// SaveModifier returns the stat-block save bonus for a when one is listed and
// the plain ability modifier otherwise.
func (c *Creature) SaveModifier(a Ability) int {
	if b, ok := c.SaveBonuses[a]; ok {
		return b
	}
	return c.Abilities.Modifier(a)
}

// DamageReport describes what one application of damage did.
type DamageReport struct {
	Requested int
	Applied   int
	HPBefore  int
	HPAfter   int
	// DeathSaveFailures is the number of failures added to a dying character.
	DeathSaveFailures int
	// Killed is true when this damage moved the target from alive to dead.
	Killed bool
	// Massive is true when the overflow beyond 0 HP met or exceeded MaxHP.
	Massive bool
}

// TakeDamage subtracts amount from CurrentHP, flooring at 0, and returns the
// HP actually removed. Negative amounts are treated as 0.
//
// Postcondition: 0 <= CurrentHP <= MaxHP.
func (c *Creature) TakeDamage(amount int) int {
	if amount <= 0 {
		return 0
	}
	before := c.CurrentHP
	c.CurrentHP = max(c.CurrentHP-amount, 0)
	return before - c.CurrentHP
}

// ReceiveDamage applies damage and reports the result. A plain creature
// counts as killed when it drops to 0 HP.
func (c *Creature) ReceiveDamage(amount int, critical bool) DamageReport {
	r := DamageReport{Requested: max(amount, 0), HPBefore: c.CurrentHP}
	r.Applied = c.TakeDamage(amount)
	r.HPAfter = c.CurrentHP
	r.Killed = r.HPBefore > 0 && r.HPAfter == 0
	return r
}

// Heal restores up to amount HP, capped at MaxHP, and returns the HP gained.
// A creature at 0 HP cannot be healed.
func (c *Creature) Heal(amount int) int {
	if amount <= 0 || c.CurrentHP <= 0 {
		return 0
	}
	before := c.CurrentHP
	c.CurrentHP = min(c.CurrentHP+amount, c.MaxHP)
	return c.CurrentHP - before
}

// AddCondition applies an indefinite condition with no repeat save.
func (c *Creature) AddCondition(id string) {
	c.Conditions.Apply(AppliedCondition{ID: id, DurationRemaining: Indefinite})
}

// ApplyCondition applies a condition with explicit metadata.
func (c *Creature) ApplyCondition(ac AppliedCondition) {
	c.Conditions.Apply(ac)
}

// RemoveCondition removes id and reports whether it was present.
func (c *Creature) RemoveCondition(id string) bool { return c.Conditions.Remove(id) }

// HasCondition reports whether id is active.
func (c *Creature) HasCondition(id string) bool { return c.Conditions.Has(id) }

// ConditionIDs returns the active condition ids sorted lexically.
func (c *Creature) ConditionIDs() []string { return c.Conditions.IDs() }

// String renders "Name (HP cur/max, AC n)".
func (c *Creature) String() string {
	return fmt.Sprintf("%s (HP %d/%d, AC %d)", c.Name, c.CurrentHP, c.MaxHP, c.AC)
}
