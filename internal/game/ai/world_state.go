package ai

import (
	"slices"

	"github.com/google/uuid"
)

// CombatantState captures an entity's combat-relevant state at planning time.
type CombatantState struct {
	ID    uuid.UUID
	Name  string
	Party bool
	HP    int
	MaxHP int
	AC    int
	// Down is true at 0 HP, whether dying, stable or dead.
	Down       bool
	Conditions []string
}

// HPPercent returns current HP as a percentage of MaxHP; 0 if MaxHP == 0.
func (c *CombatantState) HPPercent() float64 {
	if c.MaxHP <= 0 {
		return 0
	}
	return float64(c.HP) / float64(c.MaxHP) * 100
}

// Bloodied reports whether the combatant is at or below half its hit points.
func (c *CombatantState) Bloodied() bool { return c.HP*2 <= c.MaxHP }

// Has reports whether the combatant carries conditionID.
func (c *CombatantState) Has(conditionID string) bool {
	return slices.Contains(c.Conditions, conditionID)
}

// SelfState is the planning combatant plus what it can spend this turn.
type SelfState struct {
	CombatantState
	// Spells maps known spell IDs to their level.
	Spells map[string]int
	// Slots maps a spell slot level to the slots left at that level.
	Slots map[int]int
	// Melee and Ranged report which stat-block attacks are available.
	Melee, Ranged bool
	// Action and BonusAction report what is left of the turn.
	Action, BonusAction bool
}

// CanCast reports whether spellID is known and, for a leveled spell, a slot
// of its level or higher is left.
func (s *SelfState) CanCast(spellID string) bool {
	level, ok := s.Spells[spellID]
	if !ok {
		return false
	}
	_, ok = s.SlotFor(level)
	return ok
}

// SlotFor returns the lowest slot level at or above level that still has a
// slot. Cantrips need no slot and return 0.
func (s *SelfState) SlotFor(level int) (int, bool) {
	if level == 0 {
		return 0, true
	}
	for l := level; l <= 9; l++ {
		if s.Slots[l] > 0 {
			return l, true
		}
	}
	return 0, false
}

// WorldState is the snapshot passed to the HTN planner for one combatant.
//
// Invariant: Self must not be nil. Combatants are in initiative order and
// include Self.
type WorldState struct {
	Self *SelfState
	// Round is the 1-based round being played.
	Round      int
	Combatants []*CombatantState
}

// Enemies returns all combatants on the other side that are still up.
//
// Postcondition: returned slice contains no downed and no allied combatants.
func (ws *WorldState) Enemies() []*CombatantState {
	var out []*CombatantState
	for _, c := range ws.Combatants {
		if !c.Down && c.Party != ws.Self.Party {
			out = append(out, c)
		}
	}
	return out
}

// Allies returns every combatant on the planner's side, excluding itself.
// Downed allies are included so they can be healed.
func (ws *WorldState) Allies() []*CombatantState {
	var out []*CombatantState
	for _, c := range ws.Combatants {
		if c.ID != ws.Self.ID && c.Party == ws.Self.Party {
			out = append(out, c)
		}
	}
	return out
}

// NearestEnemy returns the first living enemy (by initiative order), or nil.
func (ws *WorldState) NearestEnemy() *CombatantState {
	enemies := ws.Enemies()
	if len(enemies) == 0 {
		return nil
	}
	return enemies[0]
}

// WeakestEnemy returns the living enemy with the lowest HP percentage, or nil.
//
// Postcondition: ties broken by initiative order.
func (ws *WorldState) WeakestEnemy() *CombatantState {
	return lowest(ws.Enemies())
}

// WeakestAlly returns the wounded ally, or self, with the lowest HP
// percentage, or nil when nobody on the side is wounded. Dead allies are
// represented as Down with HP 0 and are still candidates; the executor
// reports the failed heal.
func (ws *WorldState) WeakestAlly() *CombatantState {
	var wounded []*CombatantState
	for _, c := range append([]*CombatantState{&ws.Self.CombatantState}, ws.Allies()...) {
		if c.HP < c.MaxHP {
			wounded = append(wounded, c)
		}
	}
	return lowest(wounded)
}

func lowest(cs []*CombatantState) *CombatantState {
	if len(cs) == 0 {
		return nil
	}
	best := cs[0]
	for _, c := range cs[1:] {
		if c.HPPercent() < best.HPPercent() {
			best = c
		}
	}
	return best
}

// ResolveTargets maps a target token to the combatants it names.
//
// Postcondition: an empty token or an unresolvable one yields nil.
func (ws *WorldState) ResolveTargets(token string) []*CombatantState {
	var one *CombatantState
	switch token {
	case TargetNearestEnemy:
		one = ws.NearestEnemy()
	case TargetWeakestEnemy:
		one = ws.WeakestEnemy()
	case TargetWeakestAlly:
		one = ws.WeakestAlly()
	case TargetSelf:
		one = &ws.Self.CombatantState
	case TargetAllEnemies:
		return ws.Enemies()
	}
	if one == nil {
		return nil
	}
	return []*CombatantState{one}
}
