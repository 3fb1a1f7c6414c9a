package condition

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	rpgerr "github.com/cory-johannsen/dnd-combat/internal/errors"
	"github.com/cory-johannsen/dnd-combat/internal/game/creature"
	"github.com/cory-johannsen/dnd-combat/internal/game/dice"
)

// Turn-start effect kinds.
const (
	EffectDamage = "damage"
	EffectScript = "script"
)

// MethodAbilityCheck is the only early-removal method the processor rolls.
const MethodAbilityCheck = "ability_check"

// TurnStartEffect fires at the start of the bearer's turn.
type TurnStartEffect struct {
	Type       string `yaml:"type"`        // "damage" | "script"
	Damage     string `yaml:"damage"`      // dice notation, damage effects only
	DamageType string `yaml:"damage_type"` // e.g. "fire"
	Message    string `yaml:"message"`
	Hook       string `yaml:"hook"` // Lua global function, script effects only
}

// EarlyRemoval lets the bearer spend an action on an ability check to end the
// condition before its duration runs out.
type EarlyRemoval struct {
	Method         string `yaml:"method"`
	Ability        string `yaml:"ability"`
	DC             int    `yaml:"dc"`
	ActionCost     string `yaml:"action_cost"`
	SuccessMessage string `yaml:"success_message"`
	FailureMessage string `yaml:"failure_message"`
}

// ConditionDef is the static definition of a condition, loaded from YAML.
// Everything a condition does is read from here; no id is special-cased.
type ConditionDef struct {
	ID              string           `yaml:"id"`
	Name            string           `yaml:"name"`
	Description     string           `yaml:"description"`
	TurnStartEffect *TurnStartEffect `yaml:"turn_start_effect"`
	CanEndEarly     *EarlyRemoval    `yaml:"can_end_early"`
	// Incapacitates blocks actions and reactions.
	Incapacitates bool `yaml:"incapacitates"`
	// AttackDisadvantage gives the bearer disadvantage on attack rolls.
	AttackDisadvantage bool `yaml:"attack_disadvantage"`
	// GrantsAdvantage gives attackers advantage against the bearer.
	GrantsAdvantage bool `yaml:"grants_advantage"`
	// SaveDisadvantage lists abilities whose saves the bearer rolls at disadvantage.
	SaveDisadvantage []creature.Ability `yaml:"save_disadvantage"`
}

// DisplayName returns Name, falling back to ID.
func (d *ConditionDef) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}

// Validate checks the definition and fills in defaults for an early-removal
// rule: method ability_check, ability dexterity, DC 10.
//
// Postcondition: returns an invalid_input error listing every problem.
func (d *ConditionDef) Validate() error {
	var problems []string
	if strings.TrimSpace(d.ID) == "" {
		problems = append(problems, "id is required")
	}
	if e := d.TurnStartEffect; e != nil {
		switch e.Type {
		case EffectDamage:
			if _, err := dice.Parse(e.Damage); err != nil {
				problems = append(problems, "turn_start_effect.damage: "+err.Error())
			}
		case EffectScript:
			if e.Hook == "" {
				problems = append(problems, "turn_start_effect.hook is required for script effects")
			}
		default:
			problems = append(problems, "turn_start_effect.type must be damage or script, got "+strconv.Quote(e.Type))
		}
	}
	if r := d.CanEndEarly; r != nil {
		if r.Method == "" {
			r.Method = MethodAbilityCheck
		}
		if r.Method != MethodAbilityCheck {
			problems = append(problems, "can_end_early.method must be ability_check, got "+strconv.Quote(r.Method))
		}
		if r.Ability == "" {
			r.Ability = creature.Dexterity.String()
		}
		if r.DC == 0 {
			r.DC = 10
		}
		if r.DC < 0 {
			problems = append(problems, "can_end_early.dc must be positive")
		}
	}
	if len(problems) > 0 {
		return rpgerr.InvalidInputf("condition %q: %s", d.ID, strings.Join(problems, "; "))
	}
	return nil
}

// Registry holds all known ConditionDefs keyed by ID. It is immutable once
// loading completes and safe for concurrent reads.
type Registry struct {
	defs map[string]*ConditionDef
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*ConditionDef)}
}

// Register validates def and adds it, overwriting any existing entry with the
// same ID.
//
// Precondition: def must not be nil.
// Postcondition: on error the registry is unchanged.
func (r *Registry) Register(def *ConditionDef) error {
	if err := def.Validate(); err != nil {
		return err
	}
	r.defs[def.ID] = def
	return nil
}

// Get returns the ConditionDef for id, or (nil, false) if not found.
func (r *Registry) Get(id string) (*ConditionDef, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// All returns a snapshot of every definition sorted by ID.
func (r *Registry) All() []*ConditionDef {
	out := make([]*ConditionDef, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of definitions.
func (r *Registry) Len() int { return len(r.defs) }

// LoadFromBytes decodes one or more YAML documents, each a ConditionDef, into r.
// Unknown fields are rejected.
func (r *Registry) LoadFromBytes(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	for {
		var def ConditionDef
		if err := dec.Decode(&def); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return rpgerr.WrapWithCode(err, rpgerr.CodeInvalidInput, "condition: decoding yaml")
		}
		if err := r.Register(&def); err != nil {
			return err
		}
	}
}

// LoadDirectory reads every *.yaml and *.yml file in dir and returns a
// populated Registry.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a non-nil Registry, or an error naming the first file
// that fails to parse or validate.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, rpgerr.Wrapf(err, "reading condition dir %q", dir)
	}
	reg := NewRegistry()
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, rpgerr.Wrapf(err, "reading %q", path)
		}
		if err := reg.LoadFromBytes(data); err != nil {
			return nil, rpgerr.Wrapf(err, "parsing %q", path)
		}
	}
	return reg, nil
}
