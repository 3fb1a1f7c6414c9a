// Package spell defines spell data loaded from YAML and the damage scaling
// rules that apply when a spell is cast.
package spell

import (
	"fmt"
	"strings"

	rpgerr "github.com/cory-johannsen/dnd-combat/internal/errors"
	"github.com/cory-johannsen/dnd-combat/internal/game/creature"
	"github.com/cory-johannsen/dnd-combat/internal/game/dice"
)

// MaxLevel is the highest spell level.
const MaxLevel = 9

// AttackType says whether the spell needs an attack roll.
type AttackType string

const (
	NoAttack     AttackType = ""
	MeleeAttack  AttackType = "melee"
	RangedAttack AttackType = "ranged"
)

// SaveEffect is what a successful save does to the damage.
type SaveEffect string

const (
	// SaveHalf halves the damage on a successful save, rounding down.
	SaveHalf SaveEffect = "half"
	// SaveNone negates the damage on a successful save.
	SaveNone SaveEffect = "none"
)

// UnmarshalText accepts "half", "none" and the alias "negate".
func (e *SaveEffect) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "half":
		*e = SaveHalf
	case "none", "negate", "negates", "":
		*e = SaveNone
	default:
		return rpgerr.InvalidInputf("spell: unknown on_success effect %q", string(b))
	}
	return nil
}

// Damage describes the damage dice of a spell and how they grow when upcast.
type Damage struct {
	Dice string `yaml:"dice"`
	Type string `yaml:"type"`
	// UpcastDice are added once per slot level above the spell's level.
	UpcastDice string `yaml:"upcast_dice,omitempty"`
}

// Healing describes healing dice.
type Healing struct {
	Dice       string `yaml:"dice"`
	UpcastDice string `yaml:"upcast_dice,omitempty"`
}

// SavingThrow is the save a target makes against the spell.
type SavingThrow struct {
	Ability   creature.Ability `yaml:"ability"`
	OnSuccess SaveEffect       `yaml:"on_success"`
}

// Area is the spell's area of effect.
type Area struct {
	Shape  string `yaml:"shape"`
	SizeFt int    `yaml:"size_ft"`
}

// ConditionEffect is a condition the spell imposes on a hit or a failed save.
type ConditionEffect struct {
	ID             string `yaml:"id"`
	DurationRounds int    `yaml:"duration_rounds,omitempty"`
	// RepeatSave lets the target repeat the spell's save at the end of each turn.
	RepeatSave bool `yaml:"repeat_save,omitempty"`
}

// Spell is the static definition of a spell.
type Spell struct {
	ID            string           `yaml:"id"`
	Name          string           `yaml:"name"`
	Level         int              `yaml:"level"`
	School        string           `yaml:"school,omitempty"`
	CastingTime   string           `yaml:"casting_time,omitempty"`
	RangeFt       int              `yaml:"range_ft,omitempty"`
	Duration      string           `yaml:"duration,omitempty"`
	Concentration bool             `yaml:"concentration,omitempty"`
	Ritual        bool             `yaml:"ritual,omitempty"`
	Classes       []string         `yaml:"classes,omitempty"`
	Description   string           `yaml:"description,omitempty"`
	Attack        AttackType       `yaml:"attack,omitempty"`
	Damage        *Damage          `yaml:"damage,omitempty"`
	Healing       *Healing         `yaml:"healing,omitempty"`
	SavingThrow   *SavingThrow     `yaml:"saving_throw,omitempty"`
	Area          *Area            `yaml:"area,omitempty"`
	Condition     *ConditionEffect `yaml:"condition,omitempty"`
}

// IsCantrip reports whether the spell is level 0.
func (s *Spell) IsCantrip() bool { return s.Level == 0 }

// RequiresAttackRoll reports whether casting makes a spell attack.
func (s *Spell) RequiresAttackRoll() bool { return s.Attack != NoAttack }

// RequiresSave reports whether targets make a saving throw.
func (s *Spell) RequiresSave() bool { return s.SavingThrow != nil }

// Validate checks the definition for internal consistency.
//
// Postcondition: returns nil or an invalid_input error naming every problem.
func (s *Spell) Validate() error {
	var errs []string
	if s.ID == "" {
		errs = append(errs, "id must not be empty")
	}
	if s.Name == "" {
		errs = append(errs, "name must not be empty")
	}
	if s.Level < 0 || s.Level > MaxLevel {
		errs = append(errs, fmt.Sprintf("level must be 0-%d, got %d", MaxLevel, s.Level))
	}
	switch s.Attack {
	case NoAttack, MeleeAttack, RangedAttack:
	default:
		errs = append(errs, fmt.Sprintf("attack must be melee or ranged, got %q", s.Attack))
	}
	if s.RequiresAttackRoll() && s.RequiresSave() {
		errs = append(errs, "a spell cannot require both an attack roll and a saving throw")
	}
	if s.Damage != nil {
		errs = append(errs, checkDice("damage.dice", s.Damage.Dice, s.Damage.UpcastDice)...)
	}
	if s.Healing != nil {
		errs = append(errs, checkDice("healing.dice", s.Healing.Dice, s.Healing.UpcastDice)...)
	}
	if s.Condition != nil && s.Condition.ID == "" {
		errs = append(errs, "condition.id must not be empty")
	}
	if len(errs) > 0 {
		return rpgerr.InvalidInputf("spell %q: %s", s.ID, strings.Join(errs, "; "))
	}
	return nil
}

func checkDice(field, base, upcast string) []string {
	var errs []string
	b, err := dice.Parse(base)
	if err != nil {
		errs = append(errs, fmt.Sprintf("%s: %v", field, err))
		return errs
	}
	if upcast == "" {
		return errs
	}
	u, err := dice.Parse(upcast)
	if err != nil {
		errs = append(errs, fmt.Sprintf("%s upcast: %v", field, err))
		return errs
	}
	if u.Sides != b.Sides || u.Modifier != 0 {
		errs = append(errs, fmt.Sprintf("%s upcast %q must be plain d%d dice", field, upcast, b.Sides))
	}
	return errs
}

// CantripMultiplier returns the cantrip dice multiplier for a caster level:
// 1 at levels 1-4, 2 at 5-10, 3 at 11-16 and 4 at 17 and above.
func CantripMultiplier(casterLevel int) int {
	switch {
	case casterLevel >= 17:
		return 4
	case casterLevel >= 11:
		return 3
	case casterLevel >= 5:
		return 2
	default:
		return 1
	}
}

// DamageFor returns the damage expression for a cast. Cantrips multiply their
// dice count by CantripMultiplier(casterLevel). Leveled spells cast with a
// slot above their level add UpcastDice once per extra level; slotLevel 0
// means "cast at base level".
//
// Precondition: s.Damage != nil.
// Postcondition: returns an invalid_input error when slotLevel is below the
// spell's level or above MaxLevel.
func (s *Spell) DamageFor(casterLevel, slotLevel int) (dice.Expression, error) {
	if s.Damage == nil {
		return dice.Expression{}, rpgerr.Preconditionf("spell %q deals no damage", s.ID)
	}
	return scaled(s, s.Damage.Dice, s.Damage.UpcastDice, casterLevel, slotLevel)
}

// HealingFor is DamageFor for healing dice.
func (s *Spell) HealingFor(slotLevel int) (dice.Expression, error) {
	if s.Healing == nil {
		return dice.Expression{}, rpgerr.Preconditionf("spell %q does not heal", s.ID)
	}
	return scaled(s, s.Healing.Dice, s.Healing.UpcastDice, 1, slotLevel)
}

func scaled(s *Spell, base, upcast string, casterLevel, slotLevel int) (dice.Expression, error) {
	expr, err := dice.Parse(base)
	if err != nil {
		return dice.Expression{}, err
	}
	if s.IsCantrip() {
		return expr.ScaleDice(CantripMultiplier(casterLevel)), nil
	}
	if slotLevel == 0 || slotLevel == s.Level {
		return expr, nil
	}
	if slotLevel < s.Level || slotLevel > MaxLevel {
		return dice.Expression{}, rpgerr.InvalidInputf("spell %q (level %d) cannot be cast with a level %d slot", s.ID, s.Level, slotLevel)
	}
	if upcast == "" {
		return expr, nil
	}
	extra, err := dice.Parse(upcast)
	if err != nil {
		return dice.Expression{}, err
	}
	return expr.AddDice(extra.Count * (slotLevel - s.Level)), nil
}
