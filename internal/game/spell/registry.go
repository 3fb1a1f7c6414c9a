package spell

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	rpgerr "github.com/cory-johannsen/dnd-combat/internal/errors"
)

// Registry holds all known spells keyed by ID.
type Registry struct {
	spells map[string]*Spell
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{spells: make(map[string]*Spell)}
}

// Register validates s and adds it, overwriting any spell with the same ID.
//
// Precondition: s must not be nil.
func (r *Registry) Register(s *Spell) error {
	if err := s.Validate(); err != nil {
		return err
	}
	r.spells[s.ID] = s
	return nil
}

// Get returns the spell for id.
func (r *Registry) Get(id string) (*Spell, bool) {
	s, ok := r.spells[id]
	return s, ok
}

// Lookup returns the spell for id or a not_found error.
func (r *Registry) Lookup(id string) (*Spell, error) {
	s, ok := r.spells[id]
	if !ok {
		return nil, rpgerr.NotFoundf("spell %q not found", id)
	}
	return s, nil
}

// All returns every spell sorted by level then ID.
func (r *Registry) All() []*Spell {
	out := make([]*Spell, 0, len(r.spells))
	for _, s := range r.spells {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level < out[j].Level
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ForClass returns the spells whose class list includes class, sorted as All.
func (r *Registry) ForClass(class string) []*Spell {
	var out []*Spell
	for _, s := range r.All() {
		for _, c := range s.Classes {
			if strings.EqualFold(c, class) {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// Len returns the number of registered spells.
func (r *Registry) Len() int { return len(r.spells) }

// LoadFromBytes decodes one or more YAML documents, each a single spell, and
// validates every one. Unknown fields are rejected.
func LoadFromBytes(data []byte) ([]*Spell, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var out []*Spell
	for {
		var s Spell
		err := dec.Decode(&s)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, rpgerr.WrapWithCode(err, rpgerr.CodeInvalidInput, "decoding spell")
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, nil
}

// LoadDirectory reads every *.yaml file in dir and returns a populated Registry.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a non-nil Registry, or an error if any file fails to parse.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading spell dir %q: %w", dir, err)
	}
	reg := NewRegistry()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		spells, err := LoadFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		for _, s := range spells {
			if err := reg.Register(s); err != nil {
				return nil, fmt.Errorf("registering %q: %w", path, err)
			}
		}
	}
	return reg, nil
}
