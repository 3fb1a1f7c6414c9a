package importer

import (
	"context"
	"slices"

	"github.com/cory-johannsen/dnd-combat/internal/game/spell"
)

// Query selects the spells a Source loads. Keys, when set, name spells
// directly and bypass the class and level filters.
type Query struct {
	// Class is a class index such as "wizard"; empty means any class.
	Class string
	// Level restricts spells to one level; nil means any level.
	Level *int
	Keys  []string
}

// Matches reports whether a spell with the given class list and level
// passes the class and level filters.
func (q Query) Matches(classes []string, level int) bool {
	if q.Level != nil && *q.Level != level {
		return false
	}
	return q.Class == "" || slices.Contains(classes, NameToID(q.Class))
}

// SpellBatch is the common intermediate format produced by all Source
// implementations: validated engine spells plus any conversion warnings.
type SpellBatch struct {
	Spells   []*spell.Spell
	Warnings []string
}

// Source loads spells from a format-specific origin.
//
// Postcondition: returns a batch (possibly empty) or a non-nil error.
// Cancelling ctx abandons the load.
type Source interface {
	Load(ctx context.Context, q Query) (*SpellBatch, error)
}
