// Package combat implements the turn-based combat engine: per-turn action
// budgets, initiative order, attack and spell resolution, and the encounter
// loop that ties them to the condition processor.
package combat

import (
	"fmt"
	"strings"

	rpgerr "github.com/cory-johannsen/dnd-combat/internal/errors"
)

// ActionCategory identifies one slot of a combatant's per-turn action budget.
type ActionCategory int

const (
	// Action is the primary action: attack, cast a spell, dash.
	Action ActionCategory = iota
	// BonusAction is the secondary action granted by some features.
	BonusAction
	// FreeObject is the one free object interaction per turn.
	FreeObject
	// NoAction covers minor activity that is never tracked and always allowed.
	NoAction
)

// String returns the snake_case category name.
func (c ActionCategory) String() string {
	switch c {
	case Action:
		return "action"
	case BonusAction:
		return "bonus_action"
	case FreeObject:
		return "free_object"
	case NoAction:
		return "no_action"
	default:
		return "unknown"
	}
}

// ParseActionCategory converts a category name, accepting spaces or hyphens
// in place of underscores.
//
// Postcondition: returns an invalid_input error for unknown names.
func ParseActionCategory(s string) (ActionCategory, error) {
	key := strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(strings.TrimSpace(s)))
	for _, c := range []ActionCategory{Action, BonusAction, FreeObject, NoAction} {
		if c.String() == key {
			return c, nil
		}
	}
	return NoAction, rpgerr.InvalidInputf("combat: unknown action category %q", s)
}

// TurnState tracks which action categories remain this turn. The zero value
// has everything already spent; use NewTurnState for a fresh turn.
// Invariant: each category is consumed at most once between resets.
type TurnState struct {
	actionAvailable      bool
	bonusActionAvailable bool
	objectUsed           bool
}

// NewTurnState returns a TurnState with every category available.
//
// Postcondition: IsAvailable(c) is true for every category.
func NewTurnState() *TurnState {
	ts := &TurnState{}
	ts.Reset()
	return ts
}

// Reset makes every category available again.
func (t *TurnState) Reset() {
	t.actionAvailable = true
	t.bonusActionAvailable = true
	t.objectUsed = false
}

// IsAvailable reports whether c can still be consumed. It never mutates.
func (t *TurnState) IsAvailable(c ActionCategory) bool {
	switch c {
	case Action:
		return t.actionAvailable
	case BonusAction:
		return t.bonusActionAvailable
	case FreeObject:
		return !t.objectUsed
	case NoAction:
		return true
	default:
		return false
	}
}

// Consume spends c.
//
// Postcondition: returns true and marks c spent iff it was available;
// otherwise returns false with no change. NoAction always returns true.
func (t *TurnState) Consume(c ActionCategory) bool {
	if !t.IsAvailable(c) {
		return false
	}
	switch c {
	case Action:
		t.actionAvailable = false
	case BonusAction:
		t.bonusActionAvailable = false
	case FreeObject:
		t.objectUsed = true
	}
	return true
}

// HasAnyAction reports whether the action or bonus action remains.
func (t *TurnState) HasAnyAction() bool {
	return t.actionAvailable || t.bonusActionAvailable
}

// String renders e.g. "action=yes bonus_action=no free_object=yes".
func (t *TurnState) String() string {
	yn := func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	}
	return fmt.Sprintf("action=%s bonus_action=%s free_object=%s",
		yn(t.IsAvailable(Action)), yn(t.IsAvailable(BonusAction)), yn(t.IsAvailable(FreeObject)))
}
