package resource

import (
	"sort"
	"strconv"

	rpgerr "github.com/cory-johannsen/dnd-combat/internal/errors"
)

// SpellSlotName returns the conventional pool name for spell slots of level.
func SpellSlotName(level int) string {
	return "spell_slot_" + strconv.Itoa(level)
}

// Set holds a character's pools keyed by name.
// It is not safe for concurrent use; the caller must serialise access.
type Set struct {
	pools map[string]*Pool
}

// NewSet creates a Set from the given pools. Later pools replace earlier ones
// with the same name.
func NewSet(pools ...*Pool) *Set {
	s := &Set{pools: make(map[string]*Pool, len(pools))}
	for _, p := range pools {
		s.Add(p)
	}
	return s
}

// Add registers p, replacing any pool with the same name.
//
// Precondition: p must not be nil.
func (s *Set) Add(p *Pool) {
	s.pools[p.Name] = p
}

// Get returns the named pool.
func (s *Set) Get(name string) (*Pool, bool) {
	if s == nil {
		return nil, false
	}
	p, ok := s.pools[name]
	return p, ok
}

// Names returns all pool names in sorted order.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.pools))
	for n := range s.pools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Use spends n units from the named pool.
//
// Postcondition: returns an invalid_input error when no pool has that name;
// otherwise returns Pool.Use(n) with no error. Insufficient charge is false,
// not an error.
func (s *Set) Use(name string, n int) (bool, error) {
	p, ok := s.Get(name)
	if !ok {
		return false, rpgerr.InvalidInputf("resource: unknown pool %q", name).WithMeta("pool", name)
	}
	return p.Use(n), nil
}

// RecoverOn refills every pool whose recovery type matches rest and returns
// the names of pools that regained at least one unit, sorted.
func (s *Set) RecoverOn(rest RestType) []string {
	var recovered []string
	for _, name := range s.Names() {
		p := s.pools[name]
		if !p.Recovery.RecoversOn(rest) {
			continue
		}
		if p.RecoverFull() > 0 {
			recovered = append(recovered, name)
		}
	}
	return recovered
}
