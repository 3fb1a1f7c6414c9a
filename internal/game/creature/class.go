package creature

import (
	"strings"

	rpgerr "github.com/cory-johannsen/dnd-combat/internal/errors"
)

// Class is a closed set of character classes. Class-specific behavior is
// looked up in classTraits rather than dispatched through methods.
type Class int

const (
	NoClass Class = iota
	Barbarian
	Bard
	Cleric
	Druid
	Fighter
	Monk
	Paladin
	Ranger
	Rogue
	Sorcerer
	Warlock
	Wizard
)

// ClassTraits is the static rules data for one class.
type ClassTraits struct {
	Name    string
	HitDie  int
	Saves   []Ability
	Casting *Ability
	// SneakAttack grants extra damage dice on qualifying attacks.
	SneakAttack bool
}

func ability(a Ability) *Ability { return &a }

var classTraits = map[Class]ClassTraits{
	Barbarian: {Name: "barbarian", HitDie: 12, Saves: []Ability{Strength, Constitution}},
	Bard:      {Name: "bard", HitDie: 8, Saves: []Ability{Dexterity, Charisma}, Casting: ability(Charisma)},
	Cleric:    {Name: "cleric", HitDie: 8, Saves: []Ability{Wisdom, Charisma}, Casting: ability(Wisdom)},
	Druid:     {Name: "druid", HitDie: 8, Saves: []Ability{Intelligence, Wisdom}, Casting: ability(Wisdom)},
	Fighter:   {Name: "fighter", HitDie: 10, Saves: []Ability{Strength, Constitution}},
	Monk:      {Name: "monk", HitDie: 8, Saves: []Ability{Strength, Dexterity}},
	Paladin:   {Name: "paladin", HitDie: 10, Saves: []Ability{Wisdom, Charisma}, Casting: ability(Charisma)},
	Ranger:    {Name: "ranger", HitDie: 10, Saves: []Ability{Strength, Dexterity}, Casting: ability(Wisdom)},
	Rogue:     {Name: "rogue", HitDie: 8, Saves: []Ability{Dexterity, Intelligence}, SneakAttack: true},
	Sorcerer:  {Name: "sorcerer", HitDie: 6, Saves: []Ability{Constitution, Charisma}, Casting: ability(Charisma)},
	Warlock:   {Name: "warlock", HitDie: 8, Saves: []Ability{Wisdom, Charisma}, Casting: ability(Charisma)},
	Wizard:    {Name: "wizard", HitDie: 6, Saves: []Ability{Intelligence, Wisdom}, Casting: ability(Intelligence)},
}

// Traits returns the rules data for c. NoClass and unknown values yield
// inert traits: d8 hit die, no save proficiencies, no spellcasting.
func (c Class) Traits() ClassTraits {
	if t, ok := classTraits[c]; ok {
		return t
	}
	return ClassTraits{Name: "none", HitDie: 8}
}

// String returns the lower-case class name.
func (c Class) String() string { return c.Traits().Name }

// ParseClass converts a class name in any case.
//
// Postcondition: returns an invalid_input error for unknown names.
func ParseClass(s string) (Class, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for c, t := range classTraits {
		if t.Name == key {
			return c, nil
		}
	}
	return NoClass, rpgerr.InvalidInputf("creature: unknown class %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (c Class) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Class) UnmarshalText(b []byte) error {
	v, err := ParseClass(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
