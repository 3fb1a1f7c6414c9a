package ruleset

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"

	rpgerr "github.com/cory-johannsen/dnd-combat/internal/errors"
	"github.com/cory-johannsen/dnd-combat/internal/game/creature"
	"github.com/cory-johannsen/dnd-combat/internal/game/dice"
)

// Weapon properties the combat rules read.
const (
	PropertyFinesse = "finesse"
	PropertyLight   = "light"
	PropertyThrown  = "thrown"
)

// WeaponDef defines the static properties of a weapon loaded from YAML.
type WeaponDef struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	Category   string   `yaml:"category"` // "simple" | "martial"
	DamageDice string   `yaml:"damage_dice"`
	DamageType string   `yaml:"damage_type"`
	RangeFt    int      `yaml:"range_ft"` // 0 = melee
	Properties []string `yaml:"properties"`
}

// IsMelee reports whether the weapon is a melee weapon (RangeFt == 0).
func (w *WeaponDef) IsMelee() bool {
	return w.RangeFt == 0
}

// HasProperty reports whether the weapon lists p.
func (w *WeaponDef) HasProperty(p string) bool {
	return slices.Contains(w.Properties, p)
}

// AttackKind maps the weapon onto the ability rule for its attacks: finesse
// weapons use the better of strength and dexterity, ranged weapons use
// dexterity, everything else strength.
func (w *WeaponDef) AttackKind() creature.AttackKind {
	switch {
	case w.HasProperty(PropertyFinesse):
		return creature.Finesse
	case !w.IsMelee() && !w.HasProperty(PropertyThrown):
		return creature.Ranged
	default:
		return creature.Melee
	}
}

// AttackFor builds the ready-made attack ch makes with this weapon.
//
// Postcondition: Bonus includes proficiency only when ch is proficient with
// the weapon or its category; Damage carries the ability modifier.
func (w *WeaponDef) AttackFor(ch *creature.Character) (creature.Attack, error) {
	expr, err := dice.Parse(w.DamageDice)
	if err != nil {
		return creature.Attack{}, err
	}
	kind := w.AttackKind()
	expr.Modifier += ch.DamageBonus(kind)
	return creature.Attack{
		Name:       w.Name,
		Bonus:      ch.AttackBonus(kind, ch.IsProficientWith(w.ID, w.Category)),
		Damage:     expr.String(),
		DamageType: w.DamageType,
		Ranged:     !w.IsMelee(),
	}, nil
}

// Validate checks that the WeaponDef satisfies its invariants.
// Precondition: w is non-nil.
// Postcondition: returns nil iff all fields are valid.
func (w *WeaponDef) Validate() error {
	var errs []error
	if w.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if w.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if _, err := dice.Parse(w.DamageDice); err != nil {
		errs = append(errs, err)
	}
	if w.DamageType == "" {
		errs = append(errs, errors.New("damage_type must not be empty"))
	}
	if w.Category != "simple" && w.Category != "martial" {
		errs = append(errs, fmt.Errorf("category must be simple or martial, got %q", w.Category))
	}
	if w.RangeFt < 0 {
		errs = append(errs, errors.New("range_ft must be >= 0"))
	}
	if len(errs) > 0 {
		return rpgerr.InvalidInputf("ruleset: weapon %q: %v", w.ID, errors.Join(errs...))
	}
	return nil
}

// LoadWeapons reads all *.yaml files from dir, parses each as a WeaponDef,
// validates it, and returns the collected slice sorted by ID.
// Precondition: dir is a readable directory path.
// Postcondition: returns all valid WeaponDefs or the first encountered error.
func LoadWeapons(dir string) ([]*WeaponDef, error) {
	files, err := yamlFiles(dir)
	if err != nil {
		return nil, err
	}
	var weapons []*WeaponDef
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("LoadWeapons: cannot read file %q: %w", path, err)
		}
		var w WeaponDef
		if err := yaml.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("LoadWeapons: cannot parse file %q: %w", path, err)
		}
		if err := w.Validate(); err != nil {
			return nil, rpgerr.Wrapf(err, "LoadWeapons: invalid weapon in %q", path)
		}
		weapons = append(weapons, &w)
	}
	sort.Slice(weapons, func(i, j int) bool { return weapons[i].ID < weapons[j].ID })
	return weapons, nil
}
