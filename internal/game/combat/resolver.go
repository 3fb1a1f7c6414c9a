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
	"github.com/cory-johannsen/dnd-combat/internal/game/spell"
)

// AttackOptions tunes a single attack.
type AttackOptions struct {
	Advantage    bool
	Disadvantage bool
	// AllyAdjacent means an ally of the attacker is next to the target, which
	// enables sneak attack without advantage.
	AllyAdjacent bool
	// SkipSneakAttack suppresses sneak attack, e.g. after it was used this turn.
	SkipSneakAttack bool
	// Preview computes the result without touching the target's HP.
	Preview bool
	// Label names the weapon or attack for reporting.
	Label      string
	DamageType string
	// SlotLevel is the slot used for a spell attack; 0 means the spell's level.
	SlotLevel int
}

// AttackResult summarises one attack. It is a plain value; nothing holds a
// reference to it after the resolver returns.
type AttackResult struct {
	AttackerID uuid.UUID
	TargetID   uuid.UUID
	Attacker   string
	Target     string
	Label      string

	Roll        dice.RollResult
	Natural     int
	AttackBonus int
	Total       int
	TargetAC    int
	Hit         bool
	Critical    bool

	Damage      dice.RollResult
	DamageType  string
	SneakAttack int
	// SneakAttackRoll is meaningful only when SneakAttack > 0.
	SneakAttackRoll dice.RollResult
	TotalDamage     int

	Applied           bool
	Report            creature.DamageReport
	ConditionsApplied []string
}

// String renders a one-line summary of the attack.
func (r AttackResult) String() string {
	label := r.Label
	if label == "" {
		label = "attack"
	}
	head := fmt.Sprintf("%s %s %s: d20 %d%+d = %d vs AC %d", r.Attacker, label, r.Target, r.Natural, r.AttackBonus, r.Total, r.TargetAC)
	switch {
	case r.Natural == 1:
		return head + " (natural 1, miss)"
	case !r.Hit:
		return head + " (miss)"
	}
	verdict := "hit"
	if r.Critical {
		verdict = "critical hit"
	}
	s := fmt.Sprintf("%s (%s) for %d", head, verdict, r.TotalDamage)
	if r.DamageType != "" {
		s += " " + r.DamageType
	}
	if r.SneakAttack > 0 {
		s += fmt.Sprintf(" including %d sneak attack", r.SneakAttack)
	}
	return s
}

// SaveOptions tunes a saving-throw spell.
type SaveOptions struct {
	// SlotLevel is the slot used; 0 means the spell's own level.
	SlotLevel int
	Preview   bool
	// Modes sets advantage or disadvantage on individual targets' saves.
	Modes map[uuid.UUID]dice.Mode
}

// TargetSave is one target's part of a SaveSummary.
type TargetSave struct {
	TargetID         uuid.UUID
	Target           string
	Save             creature.CheckResult
	Damage           int
	Report           creature.DamageReport
	ConditionApplied string
}

// SaveSummary summarises one casting of a saving-throw spell.
type SaveSummary struct {
	CasterID  uuid.UUID
	Caster    string
	Spell     string
	Ability   creature.Ability
	DC        int
	SlotLevel int
	// DamageRoll is shared by every target; it is the zero value for spells
	// that deal no damage.
	DamageRoll dice.RollResult
	DamageType string
	Applied    bool
	Results    []TargetSave
}

// TotalDamage sums the damage assigned to every target.
func (s SaveSummary) TotalDamage() int {
	total := 0
	for _, r := range s.Results {
		total += r.Damage
	}
	return total
}

// String renders one line per target.
func (s SaveSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s casts %s (DC %d %s save)", s.Caster, s.Spell, s.DC, s.Ability)
	for _, r := range s.Results {
		verdict := "fails"
		if r.Save.Success {
			verdict = "saves"
		}
		fmt.Fprintf(&b, "\n  %s %s (%d) and takes %d", r.Target, verdict, r.Save.Total, r.Damage)
	}
	return b.String()
}

// Resolver resolves attacks and spells. It rolls through a dice.Roller so a
// seeded or scripted source makes every result reproducible.
type Resolver struct {
	roller *dice.Roller
	sink   event.Sink
	logger *zap.Logger
}

// NewResolver creates a Resolver. A nil sink discards events; a nil logger
// discards logs.
//
// Precondition: roller must be non-nil.
func NewResolver(roller *dice.Roller, sink event.Sink, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{roller: roller, sink: event.OrNop(sink), logger: logger}
}

// ResolveAttack resolves a weapon or unarmed attack. A natural 1 always
// misses; a natural 20 always hits and is critical; otherwise the attack hits
// when d20 + bonus >= the defender's AC. A critical hit doubles the damage
// dice but adds the modifier once. Rogue-style attackers add sneak attack
// dice when they had advantage or an adjacent ally and no disadvantage.
//
// Precondition: attacker and defender are non-nil; damage is valid notation;
// advantage and disadvantage are not both set. Violations return an error
// before any roll or mutation.
// Postcondition: unless opts.Preview, the defender has taken TotalDamage.
func (r *Resolver) ResolveAttack(attacker, defender creature.Combatant, bonus int, damage string, opts AttackOptions) (AttackResult, error) {
	if attacker == nil || defender == nil {
		return AttackResult{}, rpgerr.InvalidInput("combat: attacker and defender are required")
	}
	expr, err := dice.Parse(damage)
	if err != nil {
		return AttackResult{}, err
	}
	return r.attack(attacker, defender, bonus, &expr, opts, true)
}

// ResolveSpellAttack resolves a spell attack roll. The bonus is the caster's
// proficiency plus spellcasting modifier; cantrip dice scale with caster level.
//
// Precondition: the caster has a spellcasting ability and the spell needs an
// attack roll; otherwise a failed_precondition error is returned.
func (r *Resolver) ResolveSpellAttack(caster creature.Spellcaster, target creature.Combatant, sp *spell.Spell, opts AttackOptions) (AttackResult, error) {
	if caster == nil || target == nil || sp == nil {
		return AttackResult{}, rpgerr.InvalidInput("combat: caster, target and spell are required")
	}
	ability, ok := caster.SpellcastingAbility()
	if !ok {
		return AttackResult{}, rpgerr.Preconditionf("combat: %s cannot cast spells", caster.Stats().Name)
	}
	if !sp.RequiresAttackRoll() {
		return AttackResult{}, rpgerr.Preconditionf("combat: spell %q does not use an attack roll", sp.ID)
	}
	bonus := caster.ProficiencyBonus() + caster.Stats().Modifier(ability)

	var expr *dice.Expression
	if sp.Damage != nil {
		e, err := sp.DamageFor(caster.CasterLevel(), opts.SlotLevel)
		if err != nil {
			return AttackResult{}, err
		}
		expr = &e
		if opts.DamageType == "" {
			opts.DamageType = sp.Damage.Type
		}
	}
	if opts.Label == "" {
		opts.Label = sp.Name
	}

	res, err := r.attack(caster, target, bonus, expr, opts, false)
	if err != nil {
		return AttackResult{}, err
	}
	if res.Hit && sp.Condition != nil && !opts.Preview && !target.Defeated() {
		target.Stats().ApplyCondition(r.appliedCondition(sp, nil, caster.Stats().Name))
		res.ConditionsApplied = append(res.ConditionsApplied, sp.Condition.ID)
		r.emitCondition(caster.Stats(), target.Stats(), sp.Condition.ID)
	}
	return res, nil
}

// ResolveSpellSave resolves a saving-throw spell against every target. The DC
// is 8 + proficiency + spellcasting modifier. Damage is rolled once and
// shared: a failed save takes it all, a successful save takes half (rounded
// down) or nothing depending on the spell. Upcasting adds the spell's
// upcast dice per slot level above its base level.
//
// Precondition: the caster has a spellcasting ability and the spell defines a
// saving throw; otherwise a failed_precondition error is returned before any
// roll or mutation.
func (r *Resolver) ResolveSpellSave(caster creature.Spellcaster, targets []creature.Combatant, sp *spell.Spell, opts SaveOptions) (SaveSummary, error) {
	if caster == nil || sp == nil {
		return SaveSummary{}, rpgerr.InvalidInput("combat: caster and spell are required")
	}
	ability, ok := caster.SpellcastingAbility()
	if !ok {
		return SaveSummary{}, rpgerr.Preconditionf("combat: %s cannot cast spells", caster.Stats().Name)
	}
	if !sp.RequiresSave() {
		return SaveSummary{}, rpgerr.Preconditionf("combat: spell %q has no saving throw", sp.ID)
	}
	for i, t := range targets {
		if t == nil {
			return SaveSummary{}, rpgerr.InvalidInputf("combat: target %d is nil", i)
		}
	}

	var expr *dice.Expression
	if sp.Damage != nil {
		e, err := sp.DamageFor(caster.CasterLevel(), opts.SlotLevel)
		if err != nil {
			return SaveSummary{}, err
		}
		expr = &e
	}

	cs := caster.Stats()
	summary := SaveSummary{
		CasterID:  cs.ID,
		Caster:    cs.Name,
		Spell:     sp.Name,
		Ability:   sp.SavingThrow.Ability,
		DC:        8 + caster.ProficiencyBonus() + cs.Modifier(ability),
		SlotLevel: max(opts.SlotLevel, sp.Level),
		Applied:   !opts.Preview,
		Results:   make([]TargetSave, 0, len(targets)),
	}

	rolled := 0
	if expr != nil {
		roll, err := r.roller.Roll(*expr, dice.Normal)
		if err != nil {
			return SaveSummary{}, err
		}
		summary.DamageRoll = roll
		summary.DamageType = sp.Damage.Type
		rolled = max(roll.Total(), 0)
	}

	for _, t := range targets {
		ts := t.Stats()
		save, err := creature.RollSave(t, sp.SavingThrow.Ability, summary.DC, r.roller, opts.Modes[ts.ID])
		if err != nil {
			return SaveSummary{}, err
		}
		res := TargetSave{TargetID: ts.ID, Target: ts.Name, Save: save}
		switch {
		case !save.Success:
			res.Damage = rolled
		case sp.SavingThrow.OnSuccess == spell.SaveHalf:
			res.Damage = rolled / 2
		}

		r.sink.Emit(event.Event{
			Type: event.SpellSave, Actor: cs.Name, ActorID: cs.ID, Target: ts.Name, TargetID: ts.ID,
			Amount: save.Total, Detail: save.String(),
		})

		if !opts.Preview {
			if res.Damage > 0 {
				res.Report = t.ReceiveDamage(res.Damage, false)
				r.emitDamage(cs, ts, res.Damage, summary.DamageType, res.Report)
			}
			if !save.Success && sp.Condition != nil && !t.Defeated() {
				ts.ApplyCondition(r.appliedCondition(sp, &summary, cs.Name))
				res.ConditionApplied = sp.Condition.ID
				r.emitCondition(cs, ts, sp.Condition.ID)
			}
		}
		summary.Results = append(summary.Results, res)
	}

	r.logger.Debug("spell save resolved",
		zap.String("caster", cs.Name),
		zap.String("spell", sp.ID),
		zap.Int("dc", summary.DC),
		zap.Int("damage", rolled),
		zap.Int("targets", len(targets)),
	)
	return summary, nil
}

// HealResult is the outcome of a healing spell.
type HealResult struct {
	Caster    string
	Target    string
	Spell     string
	SlotLevel int
	Roll      dice.RollResult
	// Amount is the rolled healing; Restored is what the target actually gained.
	Amount   int
	Restored int
}

// String renders "caster casts spell on target: heals restored (roll)".
func (h HealResult) String() string {
	return fmt.Sprintf("%s casts %s on %s: heals %d (%s)", h.Caster, h.Spell, h.Target, h.Restored, h.Roll)
}

// ResolveHealing rolls a healing spell's dice plus the caster's spellcasting
// modifier and heals target. Upcasting adds the spell's upcast dice.
//
// Precondition: the caster has a spellcasting ability and the spell heals;
// otherwise a failed_precondition error is returned.
// Postcondition: unless preview, target has been healed by Restored.
func (r *Resolver) ResolveHealing(caster creature.Spellcaster, target creature.Combatant, sp *spell.Spell, slotLevel int, preview bool) (HealResult, error) {
	if caster == nil || target == nil || sp == nil {
		return HealResult{}, rpgerr.InvalidInput("combat: caster, target and spell are required")
	}
	ability, ok := caster.SpellcastingAbility()
	if !ok {
		return HealResult{}, rpgerr.Preconditionf("combat: %s cannot cast spells", caster.Stats().Name)
	}
	if sp.Healing == nil {
		return HealResult{}, rpgerr.Preconditionf("combat: spell %q does not heal", sp.ID)
	}
	expr, err := sp.HealingFor(slotLevel)
	if err != nil {
		return HealResult{}, err
	}
	expr.Modifier += caster.Stats().Modifier(ability)
	roll, err := r.roller.Roll(expr, dice.Normal)
	if err != nil {
		return HealResult{}, err
	}

	cs, ts := caster.Stats(), target.Stats()
	res := HealResult{
		Caster:    cs.Name,
		Target:    ts.Name,
		Spell:     sp.Name,
		SlotLevel: max(slotLevel, sp.Level),
		Roll:      roll,
		Amount:    max(roll.Total(), 0),
	}
	if !preview {
		res.Restored = target.Heal(res.Amount)
		r.sink.Emit(event.Event{
			Type: event.Healed, Actor: cs.Name, ActorID: cs.ID, Target: ts.Name, TargetID: ts.ID,
			Amount: res.Restored, Detail: res.String(),
		})
	}
	return res, nil
}

func (r *Resolver) attack(attacker, defender creature.Combatant, bonus int, expr *dice.Expression, opts AttackOptions, weapon bool) (AttackResult, error) {
	mode, err := dice.ModeFor(opts.Advantage, opts.Disadvantage)
	if err != nil {
		return AttackResult{}, err
	}
	as, ds := attacker.Stats(), defender.Stats()

	roll, err := r.roller.D20(mode)
	if err != nil {
		return AttackResult{}, err
	}
	nat := roll.Natural()
	res := AttackResult{
		AttackerID:  as.ID,
		TargetID:    ds.ID,
		Attacker:    as.Name,
		Target:      ds.Name,
		Label:       opts.Label,
		Roll:        roll,
		Natural:     nat,
		AttackBonus: bonus,
		Total:       nat + bonus,
		TargetAC:    ds.AC,
		DamageType:  opts.DamageType,
	}
	switch {
	case nat == 1:
		res.Hit = false
	case nat == 20:
		res.Hit, res.Critical = true, true
	default:
		res.Hit = res.Total >= ds.AC
	}

	r.sink.Emit(event.Event{
		Type: event.AttackRoll, Actor: as.Name, ActorID: as.ID, Target: ds.Name, TargetID: ds.ID,
		Amount: res.Total, Detail: attackRollDetail(res),
	})

	if res.Hit && expr != nil {
		dmgExpr := *expr
		if res.Critical {
			dmgExpr = dmgExpr.ScaleDice(2)
		}
		dmg, err := r.roller.Roll(dmgExpr, dice.Normal)
		if err != nil {
			return AttackResult{}, err
		}
		res.Damage = dmg
		res.TotalDamage = max(dmg.Total(), 0)
	}

	if res.Hit && weapon && !opts.SkipSneakAttack {
		if sneak, ok := sneakAttackDice(attacker, mode, opts.AllyAdjacent); ok {
			if res.Critical {
				sneak = sneak.ScaleDice(2)
			}
			sr, err := r.roller.Roll(sneak, dice.Normal)
			if err != nil {
				return AttackResult{}, err
			}
			res.SneakAttackRoll = sr
			res.SneakAttack = sr.Total()
			res.TotalDamage += res.SneakAttack
			r.sink.Emit(event.Event{
				Type: event.SneakAttack, Actor: as.Name, ActorID: as.ID, Target: ds.Name, TargetID: ds.ID,
				Amount: res.SneakAttack, Detail: sr.String(),
			})
		}
	}

	if res.Hit && !opts.Preview && res.TotalDamage > 0 {
		res.Report = defender.ReceiveDamage(res.TotalDamage, res.Critical)
		res.Applied = true
		r.emitDamage(as, ds, res.TotalDamage, res.DamageType, res.Report)
	}

	r.logger.Debug("attack resolved",
		zap.String("attacker", as.Name),
		zap.String("target", ds.Name),
		zap.Int("natural", nat),
		zap.Int("total", res.Total),
		zap.Int("ac", ds.AC),
		zap.Bool("hit", res.Hit),
		zap.Bool("critical", res.Critical),
		zap.Int("damage", res.TotalDamage),
	)
	return res, nil
}

func attackRollDetail(r AttackResult) string {
	verdict := "miss"
	switch {
	case r.Critical:
		verdict = "critical hit"
	case r.Hit:
		verdict = "hit"
	}
	return fmt.Sprintf("%s: d20 %d%+d = %d vs AC %d (%s)", r.Roll.Expression, r.Natural, r.AttackBonus, r.Total, r.TargetAC, verdict)
}

// sneakAttackDice returns the attacker's sneak attack dice when the attack
// qualifies: a class with the feature, and advantage or an adjacent ally,
// and no disadvantage.
func sneakAttackDice(attacker creature.Combatant, mode dice.Mode, allyAdjacent bool) (dice.Expression, bool) {
	ch, ok := attacker.(*creature.Character)
	if !ok {
		return dice.Expression{}, false
	}
	if mode == dice.Disadvantage || (mode != dice.Advantage && !allyAdjacent) {
		return dice.Expression{}, false
	}
	return ch.SneakAttackDice()
}

func (r *Resolver) appliedCondition(sp *spell.Spell, summary *SaveSummary, source string) creature.AppliedCondition {
	ac := creature.AppliedCondition{
		ID:                sp.Condition.ID,
		DurationRemaining: sp.Condition.DurationRounds,
		Source:            source,
	}
	if sp.Condition.RepeatSave && summary != nil {
		ac.RepeatSave = &creature.RepeatSave{Ability: summary.Ability, DC: summary.DC}
	}
	return ac
}

func (r *Resolver) emitDamage(src, dst *creature.Creature, amount int, damageType string, rep creature.DamageReport) {
	detail := fmt.Sprintf("HP %d -> %d", rep.HPBefore, rep.HPAfter)
	if damageType != "" {
		detail = damageType + ", " + detail
	}
	if rep.DeathSaveFailures > 0 {
		detail += fmt.Sprintf(", %d death save failure(s)", rep.DeathSaveFailures)
	}
	if rep.Killed {
		detail += ", killed"
	}
	r.sink.Emit(event.Event{
		Type: event.DamageTaken, Actor: src.Name, ActorID: src.ID, Target: dst.Name, TargetID: dst.ID,
		Amount: amount, Detail: detail,
	})
}

func (r *Resolver) emitCondition(src, dst *creature.Creature, id string) {
	r.sink.Emit(event.Event{
		Type: event.ConditionApplied, Actor: src.Name, ActorID: src.ID, Target: dst.Name, TargetID: dst.ID,
		Detail: id,
	})
}
