package ruleset

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	rpgerr "github.com/cory-johannsen/dnd-combat/internal/errors"
	"github.com/cory-johannsen/dnd-combat/internal/game/creature"
	"github.com/cory-johannsen/dnd-combat/internal/game/dice"
)

// MonsterAttack is one attack line of a stat block.
type MonsterAttack struct {
	Name       string `yaml:"name"`
	Bonus      int    `yaml:"bonus"`
	Damage     string `yaml:"damage"`
	DamageType string `yaml:"damage_type"`
	Ranged     bool   `yaml:"ranged"`
}

// MonsterDef is a monster stat block loaded from YAML. Unlisted ability
// scores default to 10.
type MonsterDef struct {
	ID              string                   `yaml:"id"`
	Name            string                   `yaml:"name"`
	ChallengeRating string                   `yaml:"challenge_rating"`
	HitPoints       int                      `yaml:"hit_points"`
	ArmorClass      int                      `yaml:"armor_class"`
	Abilities       creature.AbilityScores   `yaml:"abilities"`
	Saves           map[creature.Ability]int `yaml:"saves"`
	Attacks         []MonsterAttack          `yaml:"attacks"`
	// Conditions are applied on spawn, e.g. a monster that starts prone.
	Conditions []string `yaml:"conditions"`
	// Tactics names the AI domain that drives the monster; empty selects the
	// default monster domain.
	Tactics string `yaml:"tactics"`
}

// Validate checks that the MonsterDef satisfies its invariants.
func (m *MonsterDef) Validate() error {
	var errs []error
	if m.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if m.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if m.HitPoints < 1 {
		errs = append(errs, fmt.Errorf("hit_points must be >= 1, got %d", m.HitPoints))
	}
	if m.ArmorClass < 1 {
		errs = append(errs, fmt.Errorf("armor_class must be >= 1, got %d", m.ArmorClass))
	}
	for _, a := range m.Attacks {
		if a.Name == "" {
			errs = append(errs, errors.New("attack name must not be empty"))
		}
		if _, err := dice.Parse(a.Damage); err != nil {
			errs = append(errs, fmt.Errorf("attack %q: %w", a.Name, err))
		}
	}
	if len(errs) > 0 {
		return rpgerr.InvalidInputf("ruleset: monster %q: %v", m.ID, errors.Join(errs...))
	}
	return nil
}

// SpawnMonster creates a fresh creature from def. name overrides the display
// name so several goblins can be told apart; empty keeps def.Name.
//
// Postcondition: the creature is at full HP with a new identity.
func SpawnMonster(def *MonsterDef, name string) *creature.Creature {
	if name == "" {
		name = def.Name
	}
	scores := def.Abilities
	for _, a := range creature.Abilities {
		if scores.Score(a) == 0 {
			scores.Set(a, 10)
		}
	}
	c := creature.New(name, def.HitPoints, def.ArmorClass, scores)
	if len(def.Saves) > 0 {
		c.SaveBonuses = make(map[creature.Ability]int, len(def.Saves))
		for a, b := range def.Saves {
			c.SaveBonuses[a] = b
		}
	}
	for _, a := range def.Attacks {
		c.Attacks = append(c.Attacks, creature.Attack{
			Name:       a.Name,
			Bonus:      a.Bonus,
			Damage:     a.Damage,
			DamageType: a.DamageType,
			Ranged:     a.Ranged,
		})
	}
	for _, id := range def.Conditions {
		c.AddCondition(id)
	}
	return c
}

// LoadMonsters reads all .yaml files in dir and parses each as a MonsterDef.
//
// Precondition: dir must be a readable directory path.
// Postcondition: Returns all parsed monsters sorted by ID or a non-nil error.
func LoadMonsters(dir string) ([]*MonsterDef, error) {
	files, err := yamlFiles(dir)
	if err != nil {
		return nil, err
	}
	monsters := make([]*MonsterDef, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		var m MonsterDef
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parsing monster file %s: %w", path, err)
		}
		if err := m.Validate(); err != nil {
			return nil, rpgerr.Wrapf(err, "monster file %s", path)
		}
		monsters = append(monsters, &m)
	}
	sort.Slice(monsters, func(i, j int) bool { return monsters[i].ID < monsters[j].ID })
	return monsters, nil
}
