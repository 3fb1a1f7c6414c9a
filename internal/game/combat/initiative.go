//go:generate mockgen -destination=mocks/mock_timesink.go -package=mocks -source=initiative.go

package combat

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	rpgerr "github.com/cory-johannsen/dnd-combat/internal/errors"
	"github.com/cory-johannsen/dnd-combat/internal/game/creature"
	"github.com/cory-johannsen/dnd-combat/internal/game/dice"
	"github.com/cory-johannsen/dnd-combat/internal/game/event"
)

// TimeSink is told whenever a full combat round has elapsed so game time can
// advance in step with the turn order.
type TimeSink interface {
	CombatRoundElapsed()
}

// Entry is one slot in the initiative order.
type Entry struct {
	Combatant creature.Combatant
	// Roll is the natural d20.
	Roll int
	// DexMod is the dexterity modifier used for both the total and tie-breaks.
	DexMod int
	// Total is Roll + DexMod.
	Total int
}

// ID returns the combatant's identity.
func (e Entry) ID() uuid.UUID { return e.Combatant.Stats().ID }

// Name returns the combatant's display name.
func (e Entry) Name() string { return e.Combatant.Stats().Name }

// Tracker orders combatants by initiative and owns one TurnState per
// combatant, keyed by identity so duplicate names are safe.
// It is not safe for concurrent use; the caller must serialise access.
type Tracker struct {
	roller *dice.Roller
	clock  TimeSink
	sink   event.Sink
	logger *zap.Logger

	entries    []Entry
	states     map[uuid.UUID]*TurnState
	current    int
	round      int
	totalTurns int
	started    bool
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithTimeSink signals ts once per completed round.
func WithTimeSink(ts TimeSink) TrackerOption {
	return func(t *Tracker) { t.clock = ts }
}

// WithEventSink routes tracker events to s.
func WithEventSink(s event.Sink) TrackerOption {
	return func(t *Tracker) { t.sink = event.OrNop(s) }
}

// WithLogger sets the tracker's logger.
func WithLogger(l *zap.Logger) TrackerOption {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// NewTracker creates an empty tracker that rolls initiative with roller.
//
// Precondition: roller must be non-nil.
// Postcondition: Round() == 0 and IsCombatOver() is true.
func NewTracker(roller *dice.Roller, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		roller: roller,
		sink:   event.Nop{},
		logger: zap.NewNop(),
		states: make(map[uuid.UUID]*TurnState),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// AddCombatant rolls 1d20 + dexterity modifier for c, inserts it and
// re-sorts the order. The current combatant stays current even when the
// newcomer sorts ahead of it; call Start to hand the first turn to the top of
// the order.
//
// Precondition: c is non-nil and not already tracked; otherwise an
// invalid_input error is returned and nothing changes.
// Postcondition: entries are ordered by Total descending, ties by DexMod
// descending, otherwise by insertion.
func (t *Tracker) AddCombatant(c creature.Combatant) (Entry, error) {
	if c == nil || c.Stats() == nil {
		return Entry{}, rpgerr.InvalidInput("combat: cannot add a nil combatant")
	}
	id := c.Stats().ID
	if t.indexOf(id) >= 0 {
		return Entry{}, rpgerr.InvalidInputf("combat: %s (%s) is already in the initiative order", c.Stats().Name, id)
	}

	roll, err := t.roller.D20(dice.Normal)
	if err != nil {
		return Entry{}, err
	}
	dex := c.Stats().InitiativeModifier()
	entry := Entry{Combatant: c, Roll: roll.Natural(), DexMod: dex, Total: roll.Natural() + dex}

	currentID := id
	if len(t.entries) > 0 {
		currentID = t.entries[t.current].ID()
	}

	t.entries = append(t.entries, entry)
	t.states[id] = NewTurnState()
	sortByInitiativeDesc(t.entries)
	t.current = t.indexOf(currentID)

	t.logger.Debug("combatant added",
		zap.String("name", entry.Name()),
		zap.Stringer("id", id),
		zap.Int("roll", entry.Roll),
		zap.Int("total", entry.Total),
	)
	t.sink.Emit(event.Event{
		Type:    event.CombatantAdded,
		Actor:   entry.Name(),
		ActorID: id,
		Amount:  entry.Total,
		Detail:  fmt.Sprintf("rolls initiative %d (d20 %d %+d)", entry.Total, entry.Roll, entry.DexMod),
	})
	return entry, nil
}

// RemoveCombatant drops the combatant with id and its TurnState.
//
// Postcondition: returns false when id is not tracked. Removing an entry
// before the current one keeps the same combatant current. Removing the
// current entry hands the turn to whoever now occupies its slot, wrapping to
// the top when it was last; that combatant's TurnState is reset.
func (t *Tracker) RemoveCombatant(id uuid.UUID) bool {
	idx := t.indexOf(id)
	if idx < 0 {
		return false
	}
	prevCurrent := t.entries[t.current].ID()
	removed := t.entries[idx]

	t.entries = append(t.entries[:idx], t.entries[idx+1:]...)
	delete(t.states, id)

	switch {
	case len(t.entries) == 0:
		t.current = 0
	case idx < t.current:
		t.current--
	case idx == t.current && t.current >= len(t.entries):
		t.current = 0
	}

	if len(t.entries) > 0 {
		if now := t.entries[t.current].ID(); now != prevCurrent {
			t.states[now].Reset()
		}
	}

	t.logger.Debug("combatant removed", zap.String("name", removed.Name()), zap.Stringer("id", id))
	t.sink.Emit(event.Event{Type: event.CombatantRemoved, Actor: removed.Name(), ActorID: id})
	return true
}

// Start gives the first turn to the top of the order and resets its
// TurnState. It does nothing once the fight has started, either through Start
// or NextTurn, or when no combatants are tracked.
//
// Postcondition: Round() is unchanged and TotalTurns() is not incremented.
func (t *Tracker) Start() {
	if t.started || len(t.entries) == 0 {
		return
	}
	t.started = true
	t.current = 0
	cur := t.entries[0]
	t.states[cur.ID()].Reset()
	t.sink.Emit(event.Event{Type: event.TurnStart, Actor: cur.Name(), ActorID: cur.ID(), Amount: t.round})
}

// Started reports whether Start or NextTurn has been called.
func (t *Tracker) Started() bool { return t.started }

// NextTurn advances to the next combatant. Wrapping past the end starts a new
// round and signals the TimeSink. The new current combatant's TurnState is reset.
// It does nothing when no combatants are tracked.
func (t *Tracker) NextTurn() {
	if len(t.entries) == 0 {
		return
	}
	t.started = true
	t.current++
	t.totalTurns++
	if t.current >= len(t.entries) {
		t.current = 0
		t.round++
		if t.clock != nil {
			t.clock.CombatRoundElapsed()
		}
		t.sink.Emit(event.Event{Type: event.RoundStart, Amount: t.round})
	}
	cur := t.entries[t.current]
	t.states[cur.ID()].Reset()
	t.sink.Emit(event.Event{Type: event.TurnStart, Actor: cur.Name(), ActorID: cur.ID(), Amount: t.round})
}

// Current returns the entry whose turn it is.
func (t *Tracker) Current() (Entry, bool) {
	if len(t.entries) == 0 {
		return Entry{}, false
	}
	return t.entries[t.current], true
}

// CurrentTurnState returns the TurnState of the current combatant.
func (t *Tracker) CurrentTurnState() (*TurnState, bool) {
	cur, ok := t.Current()
	if !ok {
		return nil, false
	}
	return t.states[cur.ID()], true
}

// TurnState returns the TurnState for id.
func (t *Tracker) TurnState(id uuid.UUID) (*TurnState, bool) {
	ts, ok := t.states[id]
	return ts, ok
}

// IsCombatOver reports whether fewer than two combatants remain. Whether one
// side has been wiped out is the caller's question.
func (t *Tracker) IsCombatOver() bool { return len(t.entries) <= 1 }

// Contains reports whether id is tracked.
func (t *Tracker) Contains(id uuid.UUID) bool { return t.indexOf(id) >= 0 }

// Round returns the number of completed wraps of the order, starting at 0.
func (t *Tracker) Round() int { return t.round }

// TotalTurns returns how many times NextTurn has advanced the order.
func (t *Tracker) TotalTurns() int { return t.totalTurns }

// Len returns the number of tracked combatants.
func (t *Tracker) Len() int { return len(t.entries) }

// Entries returns a snapshot of the order.
func (t *Tracker) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// String renders the order one combatant per line, marking the current one.
func (t *Tracker) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Round %d\n", t.round)
	for i, e := range t.entries {
		marker := "  "
		if i == t.current {
			marker = "> "
		}
		fmt.Fprintf(&b, "%s%2d  %s\n", marker, e.Total, e.Name())
	}
	return b.String()
}

func (t *Tracker) indexOf(id uuid.UUID) int {
	for i, e := range t.entries {
		if e.ID() == id {
			return i
		}
	}
	return -1
}

// sortByInitiativeDesc sorts entries in place, highest total first, ties
// broken by higher dexterity modifier. Insertion sort keeps equal entries in
// insertion order.
func sortByInitiativeDesc(entries []Entry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && ranksAbove(entries[j], entries[j-1]); j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}

func ranksAbove(a, b Entry) bool {
	if a.Total != b.Total {
		return a.Total > b.Total
	}
	return a.DexMod > b.DexMod
}
