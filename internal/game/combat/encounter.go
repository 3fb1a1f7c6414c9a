package combat

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	rpgerr "github.com/cory-johannsen/dnd-combat/internal/errors"
	"github.com/cory-johannsen/dnd-combat/internal/game/condition"
	"github.com/cory-johannsen/dnd-combat/internal/game/creature"
	"github.com/cory-johannsen/dnd-combat/internal/game/dice"
	"github.com/cory-johannsen/dnd-combat/internal/game/event"
	"github.com/cory-johannsen/dnd-combat/internal/game/resource"
	"github.com/cory-johannsen/dnd-combat/internal/game/spell"
)

// Side is the team a combatant fights for.
type Side int

const (
	// Party is the player characters and their allies.
	Party Side = iota
	// Hostile is everyone the party is fighting.
	Hostile
)

// String returns "party" or "hostile".
func (s Side) String() string {
	if s == Party {
		return "party"
	}
	return "hostile"
}

// Outcome is the state of an encounter as a whole.
type Outcome int

const (
	// Ongoing means both sides still have someone standing.
	Ongoing Outcome = iota
	// PartyVictory means every hostile is down.
	PartyVictory
	// PartyDefeated means every party member is down.
	PartyDefeated
)

// String returns the snake_case outcome name.
func (o Outcome) String() string {
	switch o {
	case PartyVictory:
		return "party_victory"
	case PartyDefeated:
		return "party_defeated"
	default:
		return "ongoing"
	}
}

// EncounterConfig collects an Encounter's collaborators.
type EncounterConfig struct {
	// Roller is required.
	Roller *dice.Roller
	// Conditions is required; its registry also supplies attack and save modes.
	Conditions *condition.Processor
	Clock      TimeSink
	Events     event.Sink
	Logger     *zap.Logger
}

// TurnReport describes everything that happened as a turn began.
type TurnReport struct {
	CombatantID uuid.UUID
	Name        string
	Side        Side
	Round       int
	Effects     []condition.EffectResult
	// DeathSave is non-nil when a dying character rolled.
	DeathSave *creature.DeathSaveResult
	// Incapacitated is true when a condition stops the combatant acting.
	Incapacitated bool
	// CanAct is false when the combatant is down or incapacitated.
	CanAct bool
}

// Encounter runs one fight: it owns the initiative order, routes attacks
// through the Resolver, and applies condition effects at turn boundaries.
// It is not safe for concurrent use; the caller must serialise access.
type Encounter struct {
	ID uuid.UUID

	tracker    *Tracker
	resolver   *Resolver
	conditions *condition.Processor
	roller     *dice.Roller
	sink       event.Sink
	logger     *zap.Logger

	members   map[uuid.UUID]creature.Combatant
	sides     map[uuid.UUID]Side
	joined    map[Side]int
	sneakUsed bool
}

// NewEncounter creates an empty encounter.
//
// Precondition: cfg.Roller and cfg.Conditions must be non-nil.
// Postcondition: Outcome() is Ongoing until someone joins.
func NewEncounter(cfg EncounterConfig) *Encounter {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sink := event.OrNop(cfg.Events)
	id := uuid.New()
	logger = logger.With(zap.Stringer("encounter", id))

	opts := []TrackerOption{WithEventSink(sink), WithLogger(logger)}
	if cfg.Clock != nil {
		opts = append(opts, WithTimeSink(cfg.Clock))
	}
	return &Encounter{
		ID:         id,
		tracker:    NewTracker(cfg.Roller, opts...),
		resolver:   NewResolver(cfg.Roller, sink, logger),
		conditions: cfg.Conditions,
		roller:     cfg.Roller,
		sink:       sink,
		logger:     logger,
		members:    make(map[uuid.UUID]creature.Combatant),
		sides:      make(map[uuid.UUID]Side),
		joined:     make(map[Side]int),
	}
}

// Tracker returns the initiative tracker.
func (e *Encounter) Tracker() *Tracker { return e.tracker }

// Resolver returns the resolver the encounter attacks through.
func (e *Encounter) Resolver() *Resolver { return e.resolver }

// Join rolls initiative for c and adds it on side.
//
// Postcondition: returns an invalid_input error when c has already joined.
func (e *Encounter) Join(c creature.Combatant, side Side) (Entry, error) {
	entry, err := e.tracker.AddCombatant(c)
	if err != nil {
		return Entry{}, err
	}
	e.members[entry.ID()] = c
	e.sides[entry.ID()] = side
	e.joined[side]++
	return entry, nil
}

// Members returns the combatants on side in initiative order.
func (e *Encounter) Members(side Side) []creature.Combatant {
	var out []creature.Combatant
	for _, entry := range e.tracker.Entries() {
		if e.sides[entry.ID()] == side {
			out = append(out, entry.Combatant)
		}
	}
	return out
}

// SideOf returns the side of the combatant with id.
func (e *Encounter) SideOf(id uuid.UUID) (Side, bool) {
	s, ok := e.sides[id]
	return s, ok
}

// Current returns the combatant whose turn it is.
func (e *Encounter) Current() (creature.Combatant, bool) {
	entry, ok := e.tracker.Current()
	if !ok {
		return nil, false
	}
	return entry.Combatant, true
}

// Start hands the first turn to the top of the initiative order. Combatants
// that join afterwards never take the turn from whoever holds it.
// BeginTurn calls it, so callers only need it to inspect Current before the
// first turn.
func (e *Encounter) Start() { e.tracker.Start() }

// BeginTurn starts the current combatant's turn: a dying character rolls its
// death save, then turn-start condition effects apply.
//
// Precondition: at least one combatant has joined.
func (e *Encounter) BeginTurn() (TurnReport, error) {
	e.tracker.Start()
	cur, ok := e.Current()
	if !ok {
		return TurnReport{}, rpgerr.Precondition("combat: encounter has no combatants")
	}
	e.sneakUsed = false
	stats := cur.Stats()
	rep := TurnReport{CombatantID: stats.ID, Name: stats.Name, Side: e.sides[stats.ID], Round: e.tracker.Round()}

	if ch, ok := cur.(*creature.Character); ok && ch.IsDying() {
		ds, err := ch.MakeDeathSave(e.roller)
		if err != nil {
			return rep, err
		}
		rep.DeathSave = &ds
		e.sink.Emit(event.Event{
			Type: event.DeathSave, Actor: stats.Name, ActorID: stats.ID, Amount: ds.Natural,
			Detail: deathSaveDetail(ds),
		})
	}

	effects, err := e.conditions.ProcessTurnStartEffects(cur)
	if err != nil {
		return rep, err
	}
	rep.Effects = effects
	rep.Incapacitated = e.conditions.Registry().Incapacitated(stats)
	rep.CanAct = stats.IsAlive() && !cur.Defeated() && !rep.Incapacitated

	e.logger.Debug("turn begins",
		zap.String("combatant", stats.Name),
		zap.Int("round", rep.Round),
		zap.Int("hp", stats.CurrentHP),
		zap.Bool("can_act", rep.CanAct),
	)
	return rep, nil
}

func deathSaveDetail(ds creature.DeathSaveResult) string {
	switch {
	case ds.Revived:
		return "natural 20, back on their feet"
	case ds.Dead:
		return fmt.Sprintf("rolled %d, dies", ds.Natural)
	case ds.Stable:
		return fmt.Sprintf("rolled %d, stable", ds.Natural)
	default:
		return fmt.Sprintf("rolled %d (%d successes, %d failures)", ds.Natural, ds.Successes, ds.Failures)
	}
}

// Attack makes a weapon attack by the current combatant against target and
// spends its action. Condition-imposed advantage and disadvantage are merged
// with opts; sneak attack applies at most once per turn.
//
// Precondition: target has joined, and the current combatant can act and
// still has its action; otherwise an error is returned and nothing changes.
// Previews go through Resolver, since an encounter attack always lands.
func (e *Encounter) Attack(target creature.Combatant, bonus int, damage string, opts AttackOptions) (AttackResult, error) {
	if opts.Preview {
		return AttackResult{}, previewRejected()
	}
	attacker, ts, err := e.actor(Action)
	if err != nil {
		return AttackResult{}, err
	}
	if err := e.checkTarget(target); err != nil {
		return AttackResult{}, err
	}
	opts = e.withConditionModes(attacker, target, opts)
	if e.sneakUsed {
		opts.SkipSneakAttack = true
	}

	res, err := e.resolver.ResolveAttack(attacker, target, bonus, damage, opts)
	if err != nil {
		return AttackResult{}, err
	}
	ts.Consume(Action)
	if res.SneakAttack > 0 {
		e.sneakUsed = true
	}
	return res, nil
}

// UseAttack makes one of the current combatant's stat-block attacks.
func (e *Encounter) UseAttack(target creature.Combatant, atk creature.Attack, opts AttackOptions) (AttackResult, error) {
	if opts.Label == "" {
		opts.Label = atk.Name
	}
	if opts.DamageType == "" {
		opts.DamageType = atk.DamageType
	}
	return e.Attack(target, atk.Bonus, atk.Damage, opts)
}

// CastAttackSpell casts sp at target as a spell attack. Leveled spells spend
// a slot of max(opts.SlotLevel, sp.Level).
//
// Precondition: the caster has the action category the spell's casting time
// needs and, for leveled spells, an available slot.
func (e *Encounter) CastAttackSpell(target creature.Combatant, sp *spell.Spell, opts AttackOptions) (AttackResult, error) {
	if opts.Preview {
		return AttackResult{}, previewRejected()
	}
	category := castingCategory(sp)
	caster, ts, slot, err := e.caster(sp, category, opts.SlotLevel)
	if err != nil {
		return AttackResult{}, err
	}
	if err := e.checkTarget(target); err != nil {
		return AttackResult{}, err
	}
	opts = e.withConditionModes(caster, target, opts)

	res, err := e.resolver.ResolveSpellAttack(caster, target, sp, opts)
	if err != nil {
		return AttackResult{}, err
	}
	ts.Consume(category)
	spendSlot(slot)
	return res, nil
}

// CastSaveSpell casts sp against targets. Condition-imposed save
// disadvantage is added for any target without an explicit mode.
func (e *Encounter) CastSaveSpell(targets []creature.Combatant, sp *spell.Spell, opts SaveOptions) (SaveSummary, error) {
	if opts.Preview {
		return SaveSummary{}, previewRejected()
	}
	category := castingCategory(sp)
	caster, ts, slot, err := e.caster(sp, category, opts.SlotLevel)
	if err != nil {
		return SaveSummary{}, err
	}
	for _, t := range targets {
		if err := e.checkTarget(t); err != nil {
			return SaveSummary{}, err
		}
	}
	if sp.SavingThrow != nil {
		modes := make(map[uuid.UUID]dice.Mode, len(targets))
		for _, t := range targets {
			id := t.Stats().ID
			if m, ok := opts.Modes[id]; ok {
				modes[id] = m
				continue
			}
			modes[id] = e.conditions.Registry().SaveMode(t.Stats(), sp.SavingThrow.Ability)
		}
		opts.Modes = modes
	}

	sum, err := e.resolver.ResolveSpellSave(caster, targets, sp, opts)
	if err != nil {
		return SaveSummary{}, err
	}
	ts.Consume(category)
	spendSlot(slot)
	return sum, nil
}

// CastHealingSpell casts a healing spell on target, spending a slot of
// max(slotLevel, sp.Level) for leveled spells.
func (e *Encounter) CastHealingSpell(target creature.Combatant, sp *spell.Spell, slotLevel int) (HealResult, error) {
	category := castingCategory(sp)
	caster, ts, slot, err := e.caster(sp, category, slotLevel)
	if err != nil {
		return HealResult{}, err
	}
	if err := e.checkTarget(target); err != nil {
		return HealResult{}, err
	}
	res, err := e.resolver.ResolveHealing(caster, target, sp, slotLevel, false)
	if err != nil {
		return HealResult{}, err
	}
	ts.Consume(category)
	spendSlot(slot)
	return res, nil
}

// AttemptConditionRemoval spends the action cost of the condition's
// early-removal rule and rolls the check for the current combatant.
//
// Postcondition: returns (nil, nil) without spending anything when the
// condition has no early-removal rule.
func (e *Encounter) AttemptConditionRemoval(conditionID string) (*condition.AbilityCheckResult, error) {
	prompt, ok := e.conditions.RemovalPrompt(conditionID)
	if !ok {
		if _, known := e.conditions.Registry().Get(conditionID); !known {
			return nil, rpgerr.InvalidInputf("combat: unknown condition %q", conditionID)
		}
		return nil, nil
	}
	category := Action
	if prompt.ActionCost != "" {
		c, err := ParseActionCategory(prompt.ActionCost)
		if err != nil {
			return nil, err
		}
		category = c
	}
	cur, ts, err := e.actor(category)
	if err != nil {
		return nil, err
	}
	res, err := e.conditions.AttemptConditionRemoval(cur, conditionID)
	if err != nil {
		return nil, err
	}
	ts.Consume(category)
	return res, nil
}

// EndTurn closes the current combatant's turn: repeat saves and condition
// durations tick, defeated combatants leave the order, and the turn advances.
// A combatant defeated on its own turn still completes it, so the round and
// game clock advance when it was last in the order.
func (e *Encounter) EndTurn() ([]condition.EndOfTurnResult, error) {
	cur, ok := e.Current()
	if !ok {
		return nil, rpgerr.Precondition("combat: encounter has no combatants")
	}
	results, err := e.conditions.ProcessEndOfTurn(cur)
	if err != nil {
		return results, err
	}

	// Dying characters are not Defeated, so they stay to roll death saves.
	curID := cur.Stats().ID
	for _, entry := range e.tracker.Entries() {
		if entry.ID() != curID && entry.Combatant.Defeated() {
			e.remove(entry.ID())
		}
	}
	e.tracker.NextTurn()
	if cur.Defeated() {
		e.remove(curID)
	}
	return results, nil
}

// Remove takes the combatant with id out of the encounter, e.g. when it flees.
func (e *Encounter) Remove(id uuid.UUID) bool {
	if _, ok := e.members[id]; !ok {
		return false
	}
	e.remove(id)
	return true
}

func (e *Encounter) remove(id uuid.UUID) {
	e.tracker.RemoveCombatant(id)
	delete(e.members, id)
	delete(e.sides, id)
}

// Outcome reports whether one side has been wiped out. A combatant is down
// when it is at 0 HP, whether dying, stable or dead, or has been removed.
// A side that never joined cannot lose.
func (e *Encounter) Outcome() Outcome {
	up := map[Side]int{}
	for id, c := range e.members {
		if c.Stats().IsAlive() && !c.Defeated() {
			up[e.sides[id]]++
		}
	}
	switch {
	case e.joined[Party] > 0 && up[Party] == 0:
		return PartyDefeated
	case e.joined[Hostile] > 0 && up[Hostile] == 0:
		return PartyVictory
	default:
		return Ongoing
	}
}

// String renders the initiative order with each combatant's side and HP.
func (e *Encounter) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Round %d\n", e.tracker.Round())
	cur, ok := e.tracker.Current()
	for _, entry := range e.tracker.Entries() {
		marker := "  "
		if ok && entry.ID() == cur.ID() {
			marker = "> "
		}
		s := entry.Combatant.Stats()
		fmt.Fprintf(&b, "%s%-8s %s (%d/%d)", marker, e.sides[entry.ID()], s.Name, s.CurrentHP, s.MaxHP)
		if ids := s.ConditionIDs(); len(ids) > 0 {
			fmt.Fprintf(&b, " [%s]", strings.Join(ids, ", "))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// actor returns the current combatant and its TurnState after checking it
// may spend category.
func (e *Encounter) actor(category ActionCategory) (creature.Combatant, *TurnState, error) {
	cur, ok := e.Current()
	if !ok {
		return nil, nil, rpgerr.Precondition("combat: encounter has no combatants")
	}
	stats := cur.Stats()
	if !stats.IsAlive() || cur.Defeated() {
		return nil, nil, rpgerr.Preconditionf("combat: %s is down and cannot act", stats.Name)
	}
	if e.conditions.Registry().Incapacitated(stats) {
		return nil, nil, rpgerr.Preconditionf("combat: %s is incapacitated", stats.Name)
	}
	ts, _ := e.tracker.CurrentTurnState()
	if !ts.IsAvailable(category) {
		return nil, nil, rpgerr.Preconditionf("combat: %s has already used its %s this turn", stats.Name, category)
	}
	return cur, ts, nil
}

// caster is actor for spellcasting: the current combatant must be a
// Spellcaster and, for a leveled spell, hold an unspent slot.
func (e *Encounter) caster(sp *spell.Spell, category ActionCategory, slotLevel int) (creature.Spellcaster, *TurnState, *resource.Pool, error) {
	if sp == nil {
		return nil, nil, nil, rpgerr.InvalidInput("combat: spell is required")
	}
	cur, ts, err := e.actor(category)
	if err != nil {
		return nil, nil, nil, err
	}
	sc, ok := cur.(creature.Spellcaster)
	if !ok {
		return nil, nil, nil, rpgerr.Preconditionf("combat: %s cannot cast spells", cur.Stats().Name)
	}
	if sp.IsCantrip() {
		return sc, ts, nil, nil
	}
	level := max(slotLevel, sp.Level)
	ch, ok := cur.(*creature.Character)
	if !ok {
		return sc, ts, nil, nil
	}
	pool, ok := ch.Resources.Get(resource.SpellSlotName(level))
	if !ok || !pool.IsAvailable(1) {
		return nil, nil, nil, rpgerr.Preconditionf("combat: %s has no level %d spell slot left", ch.Name, level)
	}
	return sc, ts, pool, nil
}

func previewRejected() error {
	return rpgerr.InvalidInput("combat: encounter actions cannot be previews; use Resolver")
}

func spendSlot(pool *resource.Pool) {
	if pool != nil {
		pool.Use(1)
	}
}

func (e *Encounter) checkTarget(t creature.Combatant) error {
	if t == nil || t.Stats() == nil {
		return rpgerr.InvalidInput("combat: target is required")
	}
	if _, ok := e.members[t.Stats().ID]; !ok {
		return rpgerr.NotFoundf("combat: %s is not in this encounter", t.Stats().Name)
	}
	return nil
}

// withConditionModes folds condition-imposed advantage and disadvantage into
// opts. Any mix of both cancels to a normal roll; a caller asking for both
// explicitly still gets the resolver's error.
func (e *Encounter) withConditionModes(attacker, target creature.Combatant, opts AttackOptions) AttackOptions {
	if opts.Advantage && opts.Disadvantage {
		return opts
	}
	adv, dis := e.conditions.Registry().AttackModes(attacker.Stats(), target.Stats())
	adv = adv || opts.Advantage
	dis = dis || opts.Disadvantage
	if adv && dis {
		adv, dis = false, false
	}
	opts.Advantage, opts.Disadvantage = adv, dis
	return opts
}

// castingCategory maps a spell's casting time onto the action it spends.
func castingCategory(sp *spell.Spell) ActionCategory {
	if sp != nil && strings.Contains(strings.ToLower(sp.CastingTime), "bonus") {
		return BonusAction
	}
	return Action
}
