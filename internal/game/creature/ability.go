// Package creature models the participants of an encounter: their ability
// scores, hit points, conditions and, for player characters, class features,
// proficiencies, resource pools and death saves.
package creature

import (
	"strings"

	rpgerr "github.com/cory-johannsen/dnd-combat/internal/errors"
)

// Ability is one of the six ability scores.
type Ability int

const (
	Strength Ability = iota
	Dexterity
	Constitution
	Intelligence
	Wisdom
	Charisma
)

// Abilities lists every Ability in canonical order.
var Abilities = []Ability{Strength, Dexterity, Constitution, Intelligence, Wisdom, Charisma}

var abilityNames = [...]struct{ long, short string }{
	Strength:     {"strength", "str"},
	Dexterity:    {"dexterity", "dex"},
	Constitution: {"constitution", "con"},
	Intelligence: {"intelligence", "int"},
	Wisdom:       {"wisdom", "wis"},
	Charisma:     {"charisma", "cha"},
}

func (a Ability) valid() bool { return a >= Strength && a <= Charisma }

// String returns the lower-case full name, e.g. "dexterity".
func (a Ability) String() string {
	if !a.valid() {
		return "unknown"
	}
	return abilityNames[a].long
}

// Short returns the three-letter abbreviation, e.g. "dex".
func (a Ability) Short() string {
	if !a.valid() {
		return "unk"
	}
	return abilityNames[a].short
}

// ParseAbility accepts full names or three-letter abbreviations in any case.
//
// Postcondition: returns an invalid_input error for anything else.
func ParseAbility(s string) (Ability, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, a := range Abilities {
		if key == abilityNames[a].long || key == abilityNames[a].short {
			return a, nil
		}
	}
	return Strength, rpgerr.InvalidInputf("creature: unknown ability %q", s).WithMeta("ability", s)
}

// MarshalText implements encoding.TextMarshaler.
func (a Ability) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Ability) UnmarshalText(b []byte) error {
	v, err := ParseAbility(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Mod computes the ability modifier using floor division: floor((score - 10) / 2).
//
// Postcondition: Mod(10) == 0, Mod(9) == -1, Mod(16) == 3.
func Mod(score int) int {
	diff := score - 10
	if diff < 0 {
		return (diff - 1) / 2
	}
	return diff / 2
}

// AbilityScores holds the six raw scores. Modifiers are always derived.
type AbilityScores struct {
	Strength     int `yaml:"strength"`
	Dexterity    int `yaml:"dexterity"`
	Constitution int `yaml:"constitution"`
	Intelligence int `yaml:"intelligence"`
	Wisdom       int `yaml:"wisdom"`
	Charisma     int `yaml:"charisma"`
}

// NewAbilityScores builds scores in canonical order: str, dex, con, int, wis, cha.
func NewAbilityScores(str, dex, con, intel, wis, cha int) AbilityScores {
	return AbilityScores{
		Strength:     str,
		Dexterity:    dex,
		Constitution: con,
		Intelligence: intel,
		Wisdom:       wis,
		Charisma:     cha,
	}
}

func (s *AbilityScores) field(a Ability) *int {
	switch a {
	case Strength:
		return &s.Strength
	case Dexterity:
		return &s.Dexterity
	case Constitution:
		return &s.Constitution
	case Intelligence:
		return &s.Intelligence
	case Wisdom:
		return &s.Wisdom
	case Charisma:
		return &s.Charisma
	}
	return nil
}

// Score returns the raw score for a, or 10 for an out-of-range Ability.
func (s AbilityScores) Score(a Ability) int {
	if f := s.field(a); f != nil {
		return *f
	}
	return 10
}

// Set replaces the raw score for a. Out-of-range abilities are ignored.
func (s *AbilityScores) Set(a Ability, score int) {
	if f := s.field(a); f != nil {
		*f = score
	}
}

// Modifier returns Mod(Score(a)).
func (s AbilityScores) Modifier(a Ability) int {
	return Mod(s.Score(a))
}

// ModifierByName looks up a modifier by full or short ability name and
// returns 0 for names it does not recognize.
func (s AbilityScores) ModifierByName(name string) int {
	a, err := ParseAbility(name)
	if err != nil {
		return 0
	}
	return s.Modifier(a)
}
