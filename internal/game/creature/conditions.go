package creature

import "sort"

// Indefinite is the DurationRemaining of a condition that lasts until removed.
const Indefinite = -1

// RepeatSave lets the bearer of a condition retry a saving throw at the end
// of each of its turns; success ends the condition.
type RepeatSave struct {
	Ability Ability
	DC      int
}

// AppliedCondition is one condition on a creature plus its per-instance metadata.
type AppliedCondition struct {
	ID string
	// DurationRemaining counts the bearer's remaining turns; Indefinite means
	// the condition lasts until removed.
	DurationRemaining int
	// RepeatSave is nil when the condition offers no end-of-turn save.
	RepeatSave *RepeatSave
	// Source names whatever applied the condition, for reporting.
	Source string
}

// ConditionSet tracks the conditions currently on one creature. The zero
// value is an empty set ready to use.
// It is not safe for concurrent use; the caller must serialise access.
type ConditionSet struct {
	conditions map[string]*AppliedCondition
}

// Apply adds ac or refreshes an existing instance. On re-apply the longer
// duration wins and a non-nil RepeatSave replaces the old one.
//
// Postcondition: Has(ac.ID) is true.
func (s *ConditionSet) Apply(ac AppliedCondition) {
	if s.conditions == nil {
		s.conditions = make(map[string]*AppliedCondition)
	}
	if ac.DurationRemaining == 0 {
		ac.DurationRemaining = Indefinite
	}
	existing, ok := s.conditions[ac.ID]
	if !ok {
		cp := ac
		s.conditions[ac.ID] = &cp
		return
	}
	if existing.DurationRemaining != Indefinite &&
		(ac.DurationRemaining == Indefinite || ac.DurationRemaining > existing.DurationRemaining) {
		existing.DurationRemaining = ac.DurationRemaining
	}
	if ac.RepeatSave != nil {
		existing.RepeatSave = ac.RepeatSave
	}
}

// Remove deletes the condition and reports whether it was present.
func (s *ConditionSet) Remove(id string) bool {
	if _, ok := s.conditions[id]; !ok {
		return false
	}
	delete(s.conditions, id)
	return true
}

// Has reports whether the condition is present.
func (s *ConditionSet) Has(id string) bool {
	_, ok := s.conditions[id]
	return ok
}

// Get returns a copy of the applied condition.
func (s *ConditionSet) Get(id string) (AppliedCondition, bool) {
	ac, ok := s.conditions[id]
	if !ok {
		return AppliedCondition{}, false
	}
	return *ac, true
}

// IDs returns the condition ids sorted lexically.
func (s *ConditionSet) IDs() []string {
	ids := make([]string, 0, len(s.conditions))
	for id := range s.conditions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of active conditions.
func (s *ConditionSet) Len() int { return len(s.conditions) }

// Tick decrements every timed condition by one turn and removes those that
// reach zero, returning the removed ids in sorted order.
//
// Postcondition: Indefinite conditions are untouched.
func (s *ConditionSet) Tick() []string {
	var expired []string
	for _, id := range s.IDs() {
		ac := s.conditions[id]
		if ac.DurationRemaining == Indefinite {
			continue
		}
		ac.DurationRemaining--
		if ac.DurationRemaining <= 0 {
			delete(s.conditions, id)
			expired = append(expired, id)
		}
	}
	return expired
}
