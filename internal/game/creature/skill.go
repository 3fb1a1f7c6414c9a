package creature

import (
	"strings"

	rpgerr "github.com/cory-johannsen/dnd-combat/internal/errors"
)

// Skill is one of the eighteen skills, each governed by a single ability.
type Skill int

const (
	Acrobatics Skill = iota
	AnimalHandling
	Arcana
	Athletics
	Deception
	History
	Insight
	Intimidation
	Investigation
	Medicine
	Nature
	Perception
	Performance
	Persuasion
	Religion
	SleightOfHand
	Stealth
	Survival
)

var skillTable = [...]struct {
	name    string
	ability Ability
}{
	Acrobatics:     {"acrobatics", Dexterity},
	AnimalHandling: {"animal_handling", Wisdom},
	Arcana:         {"arcana", Intelligence},
	Athletics:      {"athletics", Strength},
	Deception:      {"deception", Charisma},
	History:        {"history", Intelligence},
	Insight:        {"insight", Wisdom},
	Intimidation:   {"intimidation", Charisma},
	Investigation:  {"investigation", Intelligence},
	Medicine:       {"medicine", Wisdom},
	Nature:         {"nature", Intelligence},
	Perception:     {"perception", Wisdom},
	Performance:    {"performance", Charisma},
	Persuasion:     {"persuasion", Charisma},
	Religion:       {"religion", Intelligence},
	SleightOfHand:  {"sleight_of_hand", Dexterity},
	Stealth:        {"stealth", Dexterity},
	Survival:       {"survival", Wisdom},
}

func (s Skill) valid() bool { return s >= Acrobatics && s <= Survival }

// String returns the snake_case skill name.
func (s Skill) String() string {
	if !s.valid() {
		return "unknown"
	}
	return skillTable[s].name
}

// Ability returns the governing ability.
func (s Skill) Ability() Ability {
	if !s.valid() {
		return Strength
	}
	return skillTable[s].ability
}

// ParseSkill accepts snake_case, spaced or hyphenated names in any case.
//
// Postcondition: returns an invalid_input error for unknown names.
func ParseSkill(name string) (Skill, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	for i := range skillTable {
		if skillTable[i].name == key {
			return Skill(i), nil
		}
	}
	return Acrobatics, rpgerr.InvalidInputf("creature: unknown skill %q", name).WithMeta("skill", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Skill) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Skill) UnmarshalText(b []byte) error {
	v, err := ParseSkill(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
