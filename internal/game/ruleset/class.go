// Package ruleset loads the static rules data that turns content files into
// combat-ready creatures: class progressions, weapons and monster stat blocks.
package ruleset

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	rpgerr "github.com/cory-johannsen/dnd-combat/internal/errors"
	"github.com/cory-johannsen/dnd-combat/internal/game/creature"
	"github.com/cory-johannsen/dnd-combat/internal/game/resource"
)

// ClassFeature describes a single class feature gained at a specific level.
type ClassFeature struct {
	Name        string `yaml:"name"`
	Level       int    `yaml:"level"`
	Description string `yaml:"description"`
}

// ResourceDef is a limited-use class feature. UsesByLevel maps the character
// level at which a count takes effect to the number of uses.
type ResourceDef struct {
	Name        string                `yaml:"name"`
	Recovery    resource.RecoveryType `yaml:"recovery"`
	UsesByLevel map[int]int           `yaml:"uses_by_level"`
}

// ClassDef defines a playable class. Its ID must name one of the classes the
// creature package knows, which supplies the spellcasting ability and sneak
// attack rules.
//
// Precondition: ID, Name and HitDie must be set after loading.
type ClassDef struct {
	ID           string             `yaml:"id"`
	Name         string             `yaml:"name"`
	Description  string             `yaml:"description"`
	HitDie       int                `yaml:"hit_die"`
	SavingThrows []creature.Ability `yaml:"saving_throws"`
	Weapons      []string           `yaml:"weapon_proficiencies"`
	Armor        []string           `yaml:"armor_proficiencies"`
	SkillChoices []creature.Skill   `yaml:"skill_choices"`
	Resources    []ResourceDef      `yaml:"resources"`
	// SpellSlots maps a character level to slots per spell level, starting
	// at level 1. The highest key not above the character's level applies.
	SpellSlots map[int][]int  `yaml:"spell_slots"`
	Features   []ClassFeature `yaml:"features"`
}

// Class returns the creature class this definition describes.
func (c *ClassDef) Class() (creature.Class, error) {
	return creature.ParseClass(c.ID)
}

// Validate checks that the ClassDef satisfies its invariants.
//
// Postcondition: returns nil iff every field is valid; otherwise one
// invalid_input error naming every violation.
func (c *ClassDef) Validate() error {
	var errs []error
	if c.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	} else if _, err := c.Class(); err != nil {
		errs = append(errs, err)
	}
	if c.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	switch c.HitDie {
	case 6, 8, 10, 12:
	default:
		errs = append(errs, fmt.Errorf("hit_die must be 6, 8, 10 or 12, got %d", c.HitDie))
	}
	for _, r := range c.Resources {
		if r.Name == "" {
			errs = append(errs, errors.New("resource name must not be empty"))
		}
	}
	for lvl, slots := range c.SpellSlots {
		if lvl < 1 || lvl > 20 {
			errs = append(errs, fmt.Errorf("spell_slots level %d out of range", lvl))
		}
		if len(slots) > 9 {
			errs = append(errs, fmt.Errorf("spell_slots level %d lists more than 9 spell levels", lvl))
		}
	}
	if len(errs) > 0 {
		return rpgerr.InvalidInputf("ruleset: class %q: %v", c.ID, errors.Join(errs...))
	}
	return nil
}

// SlotsAt returns the spell slots per spell level for a character of level,
// index 0 holding first-level slots. It is nil for non-casters.
func (c *ClassDef) SlotsAt(level int) []int {
	return atLevel(c.SpellSlots, level)
}

// UsesAt returns the number of uses r grants at level, 0 before it unlocks.
func (r ResourceDef) UsesAt(level int) int {
	return atLevel(r.UsesByLevel, level)
}

// atLevel returns the entry with the highest key not above level.
func atLevel[V any](byLevel map[int]V, level int) V {
	var zero V
	best := 0
	for lvl := range byLevel {
		if lvl <= level && lvl > best {
			best = lvl
		}
	}
	if best == 0 {
		return zero
	}
	return byLevel[best]
}

// LoadClasses reads all .yaml files in dir and parses each as a ClassDef.
//
// Precondition: dir must be a readable directory path.
// Postcondition: Returns all parsed classes sorted by ID (may be empty) or a non-nil error.
func LoadClasses(dir string) ([]*ClassDef, error) {
	files, err := yamlFiles(dir)
	if err != nil {
		return nil, err
	}
	classes := make([]*ClassDef, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		var c ClassDef
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("parsing class file %s: %w", path, err)
		}
		if err := c.Validate(); err != nil {
			return nil, rpgerr.Wrapf(err, "class file %s", path)
		}
		classes = append(classes, &c)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].ID < classes[j].ID })
	return classes, nil
}
