package ruleset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	rpgerr "github.com/cory-johannsen/dnd-combat/internal/errors"
	"github.com/cory-johannsen/dnd-combat/internal/game/creature"
	"github.com/cory-johannsen/dnd-combat/internal/game/resource"
)

// Ruleset indexes loaded classes, weapons, monsters and encounters by ID.
// It is read-only after construction and safe for concurrent reads.
type Ruleset struct {
	classes    map[string]*ClassDef
	weapons    map[string]*WeaponDef
	monsters   map[string]*MonsterDef
	encounters map[string]*EncounterDef
}

// New indexes the given definitions. Later duplicates replace earlier ones.
func New(classes []*ClassDef, weapons []*WeaponDef, monsters []*MonsterDef, encounters []*EncounterDef) *Ruleset {
	r := &Ruleset{
		classes:    make(map[string]*ClassDef, len(classes)),
		weapons:    make(map[string]*WeaponDef, len(weapons)),
		monsters:   make(map[string]*MonsterDef, len(monsters)),
		encounters: make(map[string]*EncounterDef, len(encounters)),
	}
	for _, c := range classes {
		r.classes[strings.ToLower(c.ID)] = c
	}
	for _, w := range weapons {
		r.weapons[w.ID] = w
	}
	for _, m := range monsters {
		r.monsters[m.ID] = m
	}
	for _, e := range encounters {
		r.encounters[e.ID] = e
	}
	return r
}

// Class returns the class definition for id or a not_found error.
func (r *Ruleset) Class(id string) (*ClassDef, error) {
	c, ok := r.classes[strings.ToLower(id)]
	if !ok {
		return nil, rpgerr.NotFoundf("ruleset: class %q not found", id)
	}
	return c, nil
}

// Weapon returns the weapon definition for id or a not_found error.
func (r *Ruleset) Weapon(id string) (*WeaponDef, error) {
	w, ok := r.weapons[id]
	if !ok {
		return nil, rpgerr.NotFoundf("ruleset: weapon %q not found", id)
	}
	return w, nil
}

// Monster returns the monster definition for id or a not_found error.
func (r *Ruleset) Monster(id string) (*MonsterDef, error) {
	m, ok := r.monsters[id]
	if !ok {
		return nil, rpgerr.NotFoundf("ruleset: monster %q not found", id)
	}
	return m, nil
}

// Encounter returns the encounter definition for id or a not_found error.
func (r *Ruleset) Encounter(id string) (*EncounterDef, error) {
	e, ok := r.encounters[id]
	if !ok {
		return nil, rpgerr.NotFoundf("ruleset: encounter %q not found", id)
	}
	return e, nil
}

// EncounterIDs returns every encounter ID in sorted order.
func (r *Ruleset) EncounterIDs() []string {
	ids := make([]string, 0, len(r.encounters))
	for id := range r.encounters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Counts reports how many of each definition kind are indexed.
func (r *Ruleset) Counts() (classes, weapons, monsters, encounters int) {
	return len(r.classes), len(r.weapons), len(r.monsters), len(r.encounters)
}

// CharacterSpec describes a character to build from class data.
type CharacterSpec struct {
	Name       string                 `yaml:"name"`
	Class      string                 `yaml:"class"`
	Subclass   string                 `yaml:"subclass"`
	Level      int                    `yaml:"level"`
	Abilities  creature.AbilityScores `yaml:"abilities"`
	ArmorClass int                    `yaml:"armor_class"`
	Skills     []creature.Skill       `yaml:"skills"`
	Expertise  []creature.Skill       `yaml:"expertise"`
	Weapons    []string               `yaml:"weapons"`
	Spells     []string               `yaml:"spells"`
	// Tactics names the AI domain used when the character is simulated.
	Tactics string `yaml:"tactics"`
}

// HitPoints returns maximum HP for a class: the full hit die at first level,
// then the rounded-up average per level, each level adding the constitution
// modifier and never less than 1.
func HitPoints(hitDie, level, conMod int) int {
	hp := max(hitDie+conMod, 1)
	for l := 2; l <= level; l++ {
		hp += max(hitDie/2+1+conMod, 1)
	}
	return hp
}

// BuildCharacter creates a level-appropriate character from spec: HP from
// the hit die, class save and weapon proficiencies, resource pools and spell
// slots for the level, and one ready-made attack per listed weapon.
//
// Precondition: spec.Level in [1, 20]; spec.Class and spec.Weapons name
// loaded definitions.
// Postcondition: returns invalid_input or not_found errors without building.
func (r *Ruleset) BuildCharacter(spec CharacterSpec) (*creature.Character, error) {
	if spec.Name == "" {
		return nil, rpgerr.InvalidInput("ruleset: character name is required")
	}
	if spec.Level < 1 || spec.Level > 20 {
		return nil, rpgerr.InvalidInputf("ruleset: level %d out of range 1-20", spec.Level)
	}
	def, err := r.Class(spec.Class)
	if err != nil {
		return nil, err
	}
	class, err := def.Class()
	if err != nil {
		return nil, err
	}
	weapons := make([]*WeaponDef, 0, len(spec.Weapons))
	for _, id := range spec.Weapons {
		w, err := r.Weapon(id)
		if err != nil {
			return nil, err
		}
		weapons = append(weapons, w)
	}

	scores := spec.Abilities
	for _, a := range creature.Abilities {
		if scores.Score(a) == 0 {
			scores.Set(a, 10)
		}
	}
	ac := spec.ArmorClass
	if ac == 0 {
		ac = 10 + scores.Modifier(creature.Dexterity)
	}
	hp := HitPoints(def.HitDie, spec.Level, scores.Modifier(creature.Constitution))
	ch := creature.NewCharacter(spec.Name, class, spec.Level, scores, hp, ac)

	ch.SaveProficiencies = make(map[creature.Ability]bool, len(def.SavingThrows))
	for _, a := range def.SavingThrows {
		ch.SaveProficiencies[a] = true
	}
	ch.WeaponProficiencies = toSet(def.Weapons)
	ch.ArmorProficiencies = toSet(def.Armor)
	if len(spec.Skills) > 0 {
		ch.SkillProficiencies = make(map[creature.Skill]bool, len(spec.Skills))
		for _, s := range spec.Skills {
			ch.SkillProficiencies[s] = true
		}
	}
	if len(spec.Expertise) > 0 {
		ch.Expertise = make(map[creature.Skill]bool, len(spec.Expertise))
		for _, s := range spec.Expertise {
			ch.Expertise[s] = true
		}
	}
	if spec.Subclass != "" {
		sub := spec.Subclass
		ch.Subclass = &sub
	}
	ch.KnownSpells = append([]string(nil), spec.Spells...)
	ch.PreparedSpells = append([]string(nil), spec.Spells...)

	for _, rd := range def.Resources {
		if n := rd.UsesAt(spec.Level); n > 0 {
			ch.Resources.Add(resource.NewPool(rd.Name, n, rd.Recovery))
		}
	}
	for i, n := range def.SlotsAt(spec.Level) {
		if n > 0 {
			ch.Resources.Add(resource.NewPool(resource.SpellSlotName(i+1), n, resource.LongRest))
		}
	}

	for _, w := range weapons {
		atk, err := w.AttackFor(ch)
		if err != nil {
			return nil, err
		}
		ch.Attacks = append(ch.Attacks, atk)
	}
	return ch, nil
}

// SpawnMonster creates a monster by definition ID.
func (r *Ruleset) SpawnMonster(id, name string) (*creature.Creature, error) {
	def, err := r.Monster(id)
	if err != nil {
		return nil, err
	}
	return SpawnMonster(def, name), nil
}

func toSet(items []string) map[string]bool {
	if len(items) == 0 {
		return nil
	}
	out := make(map[string]bool, len(items))
	for _, it := range items {
		out[it] = true
	}
	return out
}

// MonsterGroup spawns Count copies of one monster.
type MonsterGroup struct {
	ID    string `yaml:"id"`
	Count int    `yaml:"count"`
}

// EncounterDef is a ready-to-run fight: a party and the monsters facing it.
type EncounterDef struct {
	ID          string          `yaml:"id"`
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Party       []CharacterSpec `yaml:"party"`
	Monsters    []MonsterGroup  `yaml:"monsters"`
}

// LoadEncounters reads all .yaml files in dir and parses each as an EncounterDef.
//
// Postcondition: every encounter has an ID, at least one party member and at
// least one monster, or a non-nil error is returned.
func LoadEncounters(dir string) ([]*EncounterDef, error) {
	files, err := yamlFiles(dir)
	if err != nil {
		return nil, err
	}
	out := make([]*EncounterDef, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		var e EncounterDef
		if err := yaml.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("parsing encounter file %s: %w", path, err)
		}
		if e.ID == "" || len(e.Party) == 0 || len(e.Monsters) == 0 {
			return nil, rpgerr.InvalidInputf("ruleset: encounter file %s needs an id, a party and monsters", path)
		}
		out = append(out, &e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func yamlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	return paths, nil
}
