// Package ai implements the Hierarchical Task Network (HTN) planner that
// chooses what a combatant does on its turn.
//
// HTN planning decomposes abstract tasks into primitive operators via ordered
// methods. Method preconditions are either built-in predicates over the
// WorldState or Lua hooks; operators map to encounter actions.
package ai

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	rpgerr "github.com/cory-johannsen/dnd-combat/internal/errors"
)

// RootTask is the task every plan starts from.
const RootTask = "behave"

// Operator actions.
const (
	ActionAttack = "attack"
	ActionCast   = "cast"
	ActionHeal   = "heal"
	ActionPass   = "pass"
)

// Target tokens.
const (
	TargetNearestEnemy = "nearest_enemy"
	TargetWeakestEnemy = "weakest_enemy"
	TargetAllEnemies   = "all_enemies"
	TargetWeakestAlly  = "weakest_ally"
	TargetSelf         = "self"
)

var knownActions = map[string]bool{
	ActionAttack: true, ActionCast: true, ActionHeal: true, ActionPass: true,
}

// Task is an abstract goal that can be decomposed by methods.
//
// Precondition: ID must be non-empty.
type Task struct {
	ID          string `yaml:"id"`
	Description string `yaml:"description"`
}

// Method decomposes a task into an ordered list of subtasks or operator IDs.
//
// Precondition: TaskID, ID, and Subtasks must be non-empty.
type Method struct {
	TaskID string `yaml:"task"`
	ID     string `yaml:"id"`
	// Precondition names a built-in predicate or a Lua function; empty means
	// always applicable. A leading "!" negates a term and "&&" joins terms.
	Precondition string   `yaml:"precondition"`
	Subtasks     []string `yaml:"subtasks"`
}

// Operator is a primitive action the executor turns into an encounter call.
//
// Precondition: ID and Action must be non-empty; cast and heal need Spell.
type Operator struct {
	ID     string `yaml:"id"`
	Action string `yaml:"action"`
	Target string `yaml:"target"`
	// Spell is the spell ID for cast and heal.
	Spell string `yaml:"spell"`
	// Weapon prefers a "melee" or "ranged" stat-block attack.
	Weapon string `yaml:"weapon"`
}

// Domain holds the full HTN domain loaded from a YAML file.
//
// Invariant: all Task, Method, and Operator IDs are unique within their slice.
type Domain struct {
	ID          string      `yaml:"id"`
	Description string      `yaml:"description"`
	Tasks       []*Task     `yaml:"tasks"`
	Methods     []*Method   `yaml:"methods"`
	Operators   []*Operator `yaml:"operators"`
}

// Validate checks all required fields and cross-field constraints.
//
// Postcondition: nil return guarantees the root task exists, every ID is
// present and unique, every operator names a known action, and every subtask
// references a task or an operator. Errors are invalid_input.
func (d *Domain) Validate() error {
	if d.ID == "" {
		return rpgerr.InvalidInput("ai: domain ID must not be empty")
	}
	fail := func(format string, args ...any) error {
		return rpgerr.InvalidInputf("ai: domain %q: %s", d.ID, fmt.Sprintf(format, args...))
	}

	tasks := make(map[string]bool, len(d.Tasks))
	for _, t := range d.Tasks {
		if t.ID == "" {
			return fail("task has empty ID")
		}
		if tasks[t.ID] {
			return fail("duplicate task ID %q", t.ID)
		}
		tasks[t.ID] = true
	}
	if !tasks[RootTask] {
		return fail("missing root task %q", RootTask)
	}

	ops := make(map[string]bool, len(d.Operators))
	for _, op := range d.Operators {
		if op.ID == "" || op.Action == "" {
			return fail("operator missing ID or action")
		}
		if ops[op.ID] {
			return fail("duplicate operator ID %q", op.ID)
		}
		if !knownActions[op.Action] {
			return fail("operator %q has unknown action %q", op.ID, op.Action)
		}
		if (op.Action == ActionCast || op.Action == ActionHeal) && op.Spell == "" {
			return fail("operator %q must name a spell", op.ID)
		}
		if tasks[op.ID] {
			return fail("%q is both a task and an operator", op.ID)
		}
		ops[op.ID] = true
	}

	methods := make(map[string]bool, len(d.Methods))
	for _, m := range d.Methods {
		if m.TaskID == "" || m.ID == "" {
			return fail("method missing task or ID")
		}
		if methods[m.ID] {
			return fail("duplicate method ID %q", m.ID)
		}
		methods[m.ID] = true
		if !tasks[m.TaskID] {
			return fail("method %q references unknown task %q", m.ID, m.TaskID)
		}
		if len(m.Subtasks) == 0 {
			return fail("method %q has no subtasks", m.ID)
		}
		for _, sub := range m.Subtasks {
			if !tasks[sub] && !ops[sub] {
				return fail("method %q: subtask %q is neither a task nor an operator", m.ID, sub)
			}
		}
	}
	return nil
}

// OperatorByID returns the operator with the given ID, or false if not found.
func (d *Domain) OperatorByID(id string) (*Operator, bool) {
	for _, op := range d.Operators {
		if op.ID == id {
			return op, true
		}
	}
	return nil, false
}

// MethodsForTask returns all methods that decompose taskID, in declaration order.
func (d *Domain) MethodsForTask(taskID string) []*Method {
	var out []*Method
	for _, m := range d.Methods {
		if m.TaskID == taskID {
			out = append(out, m)
		}
	}
	return out
}

// SpellIDs returns the distinct spells the domain's operators reference, sorted.
func (d *Domain) SpellIDs() []string {
	seen := make(map[string]bool)
	var out []string
	for _, op := range d.Operators {
		if op.Spell != "" && !seen[op.Spell] {
			seen[op.Spell] = true
			out = append(out, op.Spell)
		}
	}
	sort.Strings(out)
	return out
}

// yamlDomainFile wraps the YAML top-level key.
type yamlDomainFile struct {
	Domain *Domain `yaml:"domain"`
}

// LoadDomains reads all *.yaml files from dir and returns parsed Domains
// sorted by ID.
//
// Precondition: dir must be a readable directory.
// Postcondition: returns error if any YAML file fails to parse or validate.
func LoadDomains(dir string) ([]*Domain, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, rpgerr.Wrapf(err, "ai: reading %q", dir)
	}
	var domains []*Domain
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, rpgerr.Wrapf(err, "ai: reading %s", e.Name())
		}
		var f yamlDomainFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, rpgerr.WrapWithCode(err, rpgerr.CodeInvalidInput, "ai: parsing "+e.Name())
		}
		if f.Domain == nil {
			return nil, rpgerr.InvalidInputf("ai: %s missing top-level 'domain' key", e.Name())
		}
		if err := f.Domain.Validate(); err != nil {
			return nil, err
		}
		domains = append(domains, f.Domain)
	}
	sort.Slice(domains, func(i, j int) bool { return domains[i].ID < domains[j].ID })
	return domains, nil
}
