//go:generate mockgen -destination=mocks/mock_sink.go -package=mocks -source=event.go

// Package event carries engine notifications to whoever is listening. The
// rules packages emit events into a Sink and never format output themselves.
package event

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Type identifies the kind of event.
type Type string

const (
	AttackRoll        Type = "attack_roll"
	DamageTaken       Type = "damage_taken"
	Healed            Type = "healed"
	SneakAttack       Type = "sneak_attack"
	SpellSave         Type = "spell_save"
	AbilityCheck      Type = "ability_check"
	ConditionApplied  Type = "condition_applied"
	ConditionRemoved  Type = "condition_removed"
	ConditionExpired  Type = "condition_expired"
	TurnStartEffect   Type = "turn_start_effect"
	DeathSave         Type = "death_save"
	TurnStart         Type = "turn_start"
	RoundStart        Type = "round_start"
	CombatantAdded    Type = "combatant_added"
	CombatantRemoved  Type = "combatant_removed"
	Rest              Type = "rest"
	TimeAdvanced      Type = "time_advanced"
	TimedEffectExpire Type = "timed_effect_expired"
)

// Event is one notification. Actor and Target are display names; the IDs
// identify the creatures when names repeat. Amount carries the primary number
// (damage, roll total, round) and Detail a preformatted message.
type Event struct {
	Type     Type
	Actor    string
	ActorID  uuid.UUID
	Target   string
	TargetID uuid.UUID
	Amount   int
	Detail   string
}

// String renders "type actor -> target (amount): detail", omitting empty parts.
func (e Event) String() string {
	s := string(e.Type)
	if e.Actor != "" {
		s += " " + e.Actor
	}
	if e.Target != "" {
		s += " -> " + e.Target
	}
	if e.Amount != 0 {
		s += fmt.Sprintf(" (%d)", e.Amount)
	}
	if e.Detail != "" {
		s += ": " + e.Detail
	}
	return s
}

// Sink receives events. Implementations must not call back into the engine.
type Sink interface {
	Emit(e Event)
}

// Nop discards every event.
type Nop struct{}

// Emit implements Sink.
func (Nop) Emit(Event) {}

// OrNop returns s, or a Nop sink when s is nil.
func OrNop(s Sink) Sink {
	if s == nil {
		return Nop{}
	}
	return s
}

// Recorder collects events in order. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements Sink.
func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType returns the recorded events of type t.
func (r *Recorder) OfType(t Type) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Reset discards recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
