package srd

import (
	"fmt"
	"sort"
	"strings"

	rpgerr "github.com/cory-johannsen/dnd-combat/internal/errors"
	"github.com/cory-johannsen/dnd-combat/internal/game/creature"
	"github.com/cory-johannsen/dnd-combat/internal/game/dice"
	"github.com/cory-johannsen/dnd-combat/internal/game/spell"
	"github.com/cory-johannsen/dnd-combat/internal/importer"
)

// ConvertSpell maps an SRD spell document onto the engine's spell schema.
// Dice the engine cannot express are dropped with a warning rather than
// failing the spell.
//
// Precondition: d must be non-nil.
// Postcondition: returns a spell that passes Validate, plus any warnings, or
// an invalid_input error.
func ConvertSpell(d *SpellData) (*spell.Spell, []string, error) {
	id := importer.NameToID(d.Index)
	if id == "" {
		id = importer.NameToID(d.Name)
	}
	sp := &spell.Spell{
		ID:            id,
		Name:          d.Name,
		Level:         d.Level,
		School:        strings.ToLower(d.School.Name),
		CastingTime:   d.CastingTime,
		RangeFt:       RangeFeet(d.Range),
		Duration:      d.Duration,
		Concentration: d.Concentration,
		Ritual:        d.Ritual,
		Description:   strings.Join(d.Desc, "\n\n"),
	}
	for _, c := range d.Classes {
		sp.Classes = append(sp.Classes, importer.NameToID(c.Index))
	}

	var warnings []string
	warn := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf("%s: ", id)+fmt.Sprintf(format, args...))
	}

	if d.Damage != nil {
		table := d.Damage.AtSlotLevel
		if sp.IsCantrip() || len(table) == 0 {
			table = d.Damage.AtCasterLevel
		}
		base, upcast, err := scalingDice(table, d.Level)
		if err != nil {
			warn("damage dropped: %v", err)
		} else if base != "" {
			sp.Damage = &spell.Damage{Dice: base, Type: strings.ToLower(d.Damage.DamageType.Name)}
			if !sp.IsCantrip() {
				sp.Damage.UpcastDice = upcast
			}
		}
	}
	if len(d.HealAtSlot) > 0 {
		base, upcast, err := scalingDice(d.HealAtSlot, d.Level)
		if err != nil {
			warn("healing dropped: %v", err)
		} else if base != "" {
			sp.Healing = &spell.Healing{Dice: base, UpcastDice: upcast}
		}
	}

	if d.DC != nil {
		ability, err := creature.ParseAbility(d.DC.Type.Index)
		if err != nil {
			ability, err = creature.ParseAbility(d.DC.Type.Name)
		}
		if err != nil {
			return nil, warnings, rpgerr.InvalidInputf("srd: spell %q has unknown save %q", id, d.DC.Type.Name)
		}
		effect := spell.SaveNone
		if strings.EqualFold(d.DC.Success, "half") {
			effect = spell.SaveHalf
		}
		sp.SavingThrow = &spell.SavingThrow{Ability: ability, OnSuccess: effect}
	}

	switch strings.ToLower(d.AttackType) {
	case "melee":
		sp.Attack = spell.MeleeAttack
	case "ranged":
		sp.Attack = spell.RangedAttack
	}
	if sp.RequiresAttackRoll() && sp.RequiresSave() {
		warn("both attack roll and save listed; keeping the attack roll")
		sp.SavingThrow = nil
	}

	if d.AreaOfEffect != nil {
		sp.Area = &spell.Area{Shape: strings.ToLower(d.AreaOfEffect.Type), SizeFt: d.AreaOfEffect.Size}
	}

	if err := sp.Validate(); err != nil {
		return nil, warnings, err
	}
	return sp, warnings, nil
}

// RangeFeet reads "120 feet" as 120 and "Touch" as 5. Anything else,
// including "Self", is 0.
func RangeFeet(r string) int {
	lower := strings.ToLower(strings.TrimSpace(r))
	if lower == "touch" {
		return 5
	}
	var feet int
	if _, err := fmt.Sscanf(lower, "%d feet", &feet); err == nil {
		return feet
	}
	return 0
}

// scalingDice picks the dice for the lowest listed level at or above
// spellLevel and derives the per-level upcast dice from the next entry.
func scalingDice(table map[int]string, spellLevel int) (base, upcast string, err error) {
	if len(table) == 0 {
		return "", "", nil
	}
	levels := make([]int, 0, len(table))
	for l := range table {
		if l >= spellLevel {
			levels = append(levels, l)
		}
	}
	if len(levels) == 0 {
		return "", "", nil
	}
	sort.Ints(levels)

	first, err := parseSRDDice(table[levels[0]])
	if err != nil {
		return "", "", err
	}
	base = first.String()
	if len(levels) < 2 {
		return base, "", nil
	}
	next, err := parseSRDDice(table[levels[1]])
	if err != nil || next.Sides != first.Sides || next.Count <= first.Count {
		return base, "", nil
	}
	perLevel := (next.Count - first.Count) / max(levels[1]-levels[0], 1)
	if perLevel < 1 {
		return base, "", nil
	}
	return base, fmt.Sprintf("%dd%d", perLevel, first.Sides), nil
}

// parseSRDDice accepts the SRD's spaced notation, e.g. "1d4 + 1". A trailing
// "+ MOD" is dropped: the engine adds the spellcasting modifier to healing.
func parseSRDDice(s string) (dice.Expression, error) {
	compact := strings.ToLower(strings.ReplaceAll(s, " ", ""))
	return dice.Parse(strings.TrimSuffix(compact, "+mod"))
}
