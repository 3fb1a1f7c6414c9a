package ai

import (
	"github.com/cory-johannsen/dnd-combat/internal/game/combat"
	"github.com/cory-johannsen/dnd-combat/internal/game/creature"
	"github.com/cory-johannsen/dnd-combat/internal/game/resource"
	"github.com/cory-johannsen/dnd-combat/internal/game/spell"
)

// SpellLookup resolves spell IDs. *spell.Registry satisfies it.
type SpellLookup interface {
	Get(id string) (*spell.Spell, bool)
}

// BuildWorldState constructs a WorldState snapshot of enc for self.
//
// Precondition: enc and self must not be nil; self has joined enc.
// Postcondition: ws.Self.ID == self.Stats().ID; every combatant still in the
// initiative order is represented. Unknown spell IDs are left out of
// ws.Self.Spells.
func BuildWorldState(enc *combat.Encounter, self creature.Combatant, spells SpellLookup) *WorldState {
	stats := self.Stats()
	ws := &WorldState{
		Round: enc.Tracker().Round() + 1,
		Self: &SelfState{
			CombatantState: snapshot(enc, self),
			Spells:         make(map[string]int),
			Slots:          make(map[int]int),
		},
	}
	for _, entry := range enc.Tracker().Entries() {
		if entry.ID() == stats.ID {
			ws.Combatants = append(ws.Combatants, &ws.Self.CombatantState)
			continue
		}
		c := snapshot(enc, entry.Combatant)
		ws.Combatants = append(ws.Combatants, &c)
	}

	for _, atk := range stats.Attacks {
		if atk.Ranged {
			ws.Self.Ranged = true
		} else {
			ws.Self.Melee = true
		}
	}
	if ts, ok := enc.Tracker().TurnState(stats.ID); ok {
		ws.Self.Action = ts.IsAvailable(combat.Action)
		ws.Self.BonusAction = ts.IsAvailable(combat.BonusAction)
	}

	if ch, ok := self.(*creature.Character); ok {
		if _, casts := ch.SpellcastingAbility(); casts && spells != nil {
			for _, id := range ch.PreparedSpells {
				if sp, ok := spells.Get(id); ok {
					ws.Self.Spells[id] = sp.Level
				}
			}
		}
		for l := 1; l <= 9; l++ {
			if pool, ok := ch.Resources.Get(resource.SpellSlotName(l)); ok {
				ws.Self.Slots[l] = pool.Current
			}
		}
	}
	return ws
}

func snapshot(enc *combat.Encounter, c creature.Combatant) CombatantState {
	s := c.Stats()
	side, _ := enc.SideOf(s.ID)
	return CombatantState{
		ID:         s.ID,
		Name:       s.Name,
		Party:      side == combat.Party,
		HP:         s.CurrentHP,
		MaxHP:      s.MaxHP,
		AC:         s.AC,
		Down:       !s.IsAlive() || c.Defeated(),
		Conditions: s.ConditionIDs(),
	}
}
