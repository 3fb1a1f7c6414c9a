package condition

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	rpgerr "github.com/cory-johannsen/dnd-combat/internal/errors"
	"github.com/cory-johannsen/dnd-combat/internal/game/creature"
	"github.com/cory-johannsen/dnd-combat/internal/game/dice"
	"github.com/cory-johannsen/dnd-combat/internal/game/event"
	"github.com/cory-johannsen/dnd-combat/internal/scripting"
)

const (
	defaultDamageMessage  = "{creature_name} takes {damage} {damage_type} damage"
	defaultSuccessMessage = "{creature_name} succeeds!"
	defaultFailureMessage = "{creature_name} fails (rolled {roll} vs DC {dc})"
)

// EffectResult reports one turn-start effect applied to a creature.
type EffectResult struct {
	ConditionID string
	EffectType  string
	Amount      int
	DamageType  string
	// Roll is the damage roll; zero for script effects.
	Roll    dice.RollResult
	Report  creature.DamageReport
	Message string
}

// AbilityCheckResult reports an attempt to end a condition early.
type AbilityCheckResult struct {
	ConditionID      string
	Ability          string
	Check            creature.CheckResult
	RollTotal        int
	DC               int
	Success          bool
	ConditionRemoved bool
	Message          string
}

// RemovalPrompt describes an early-removal option so a caller can offer it.
type RemovalPrompt struct {
	ConditionID   string
	ConditionName string
	Method        string
	Ability       string
	DC            int
	ActionCost    string
	Description   string
}

// EndOfTurnResult reports what happened to one condition at the end of its
// bearer's turn.
type EndOfTurnResult struct {
	ConditionID string
	// Save is non-nil when a repeat save was rolled.
	Save    *creature.CheckResult
	Removed bool
	Expired bool
}

// Processor applies condition definitions to creatures. It holds no
// per-creature state.
type Processor struct {
	registry *Registry
	roller   *dice.Roller
	scripts  *scripting.Manager
	sink     event.Sink
	logger   *zap.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithScripts enables script turn-start effects.
func WithScripts(m *scripting.Manager) Option {
	return func(p *Processor) { p.scripts = m }
}

// WithEventSink routes processor events to s.
func WithEventSink(s event.Sink) Option {
	return func(p *Processor) { p.sink = event.OrNop(s) }
}

// WithLogger sets the processor's logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewProcessor creates a Processor over reg.
//
// Precondition: reg and roller must be non-nil.
func NewProcessor(reg *Registry, roller *dice.Roller, opts ...Option) *Processor {
	p := &Processor{
		registry: reg,
		roller:   roller,
		sink:     event.Nop{},
		logger:   zap.NewNop(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Registry returns the definitions the processor reads.
func (p *Processor) Registry() *Registry { return p.registry }

// HasTurnStartEffect reports whether condition id has a turn-start effect.
// Unknown ids report false.
func (p *Processor) HasTurnStartEffect(id string) bool {
	def, ok := p.registry.Get(id)
	return ok && def.TurnStartEffect != nil
}

// CanAttemptEarlyRemoval reports whether condition id defines an early-removal
// rule. Unknown ids report false.
func (p *Processor) CanAttemptEarlyRemoval(id string) bool {
	def, ok := p.registry.Get(id)
	return ok && def.CanEndEarly != nil
}

// RemovalPrompt describes the early-removal rule of condition id.
func (p *Processor) RemovalPrompt(id string) (RemovalPrompt, bool) {
	def, ok := p.registry.Get(id)
	if !ok || def.CanEndEarly == nil {
		return RemovalPrompt{}, false
	}
	r := def.CanEndEarly
	return RemovalPrompt{
		ConditionID:   def.ID,
		ConditionName: def.DisplayName(),
		Method:        r.Method,
		Ability:       r.Ability,
		DC:            r.DC,
		ActionCost:    r.ActionCost,
		Description:   def.Description,
	}, true
}

// ProcessTurnStartEffects applies the turn-start effect of every condition on
// c, in condition id order. Conditions with no definition are skipped.
//
// Precondition: script effects need a scripting manager with the named hook
// defined; otherwise an error is returned before any damage is applied.
// Postcondition: one EffectResult per condition with a turn-start effect.
func (p *Processor) ProcessTurnStartEffects(c creature.Combatant) ([]EffectResult, error) {
	stats := c.Stats()
	var defs []*ConditionDef
	for _, id := range stats.ConditionIDs() {
		def, ok := p.registry.Get(id)
		if !ok {
			p.logger.Debug("condition has no definition", zap.String("condition", id), zap.String("creature", stats.Name))
			continue
		}
		if def.TurnStartEffect == nil {
			continue
		}
		if def.TurnStartEffect.Type == EffectScript {
			if p.scripts == nil {
				return nil, rpgerr.Preconditionf("condition %q: script effects are disabled", def.ID)
			}
			if !p.scripts.HasHook(def.TurnStartEffect.Hook) {
				return nil, rpgerr.NotFoundf("condition %q: hook %q is not defined", def.ID, def.TurnStartEffect.Hook)
			}
		}
		defs = append(defs, def)
	}

	results := make([]EffectResult, 0, len(defs))
	for _, def := range defs {
		res, err := p.applyTurnStart(c, def)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (p *Processor) applyTurnStart(c creature.Combatant, def *ConditionDef) (EffectResult, error) {
	stats := c.Stats()
	eff := def.TurnStartEffect
	res := EffectResult{ConditionID: def.ID, EffectType: eff.Type, DamageType: eff.DamageType}

	switch eff.Type {
	case EffectDamage:
		roll, err := p.roller.RollExpr(eff.Damage)
		if err != nil {
			return res, err
		}
		res.Roll = roll
		res.Amount = roll.Total()
	case EffectScript:
		n, err := p.scripts.TurnStartDamage(eff.Hook, scripting.CombatantInfo{
			UID:        stats.ID.String(),
			Name:       stats.Name,
			HP:         stats.CurrentHP,
			MaxHP:      stats.MaxHP,
			AC:         stats.AC,
			Conditions: stats.ConditionIDs(),
		})
		if err != nil {
			return res, err
		}
		res.Amount = n
	}
	if res.Amount < 0 {
		res.Amount = 0
	}

	res.Report = c.ReceiveDamage(res.Amount, false)
	tmpl := eff.Message
	if tmpl == "" {
		tmpl = defaultDamageMessage
	}
	res.Message = format(tmpl, map[string]string{
		"creature_name": stats.Name,
		"damage":        strconv.Itoa(res.Amount),
		"damage_type":   damageTypeOrUntyped(eff.DamageType),
	})

	p.logger.Debug("turn start effect",
		zap.String("creature", stats.Name),
		zap.String("condition", def.ID),
		zap.Int("damage", res.Amount),
		zap.Int("hp", stats.CurrentHP),
	)
	p.sink.Emit(event.Event{
		Type:     event.TurnStartEffect,
		Target:   stats.Name,
		TargetID: stats.ID,
		Amount:   res.Amount,
		Detail:   res.Message,
	})
	p.sink.Emit(event.Event{
		Type:     event.DamageTaken,
		Target:   stats.Name,
		TargetID: stats.ID,
		Amount:   res.Report.Applied,
		Detail:   "condition:" + def.ID,
	})
	return res, nil
}

// AttemptConditionRemoval rolls the early-removal check of condition id for c.
// The check is rolled and reported whether or not c currently has the
// condition; gating is the caller's job.
//
// Postcondition: returns an invalid_input error for an unknown id and
// (nil, nil) when the condition has no early-removal rule. On success the
// condition is removed and ConditionRemoved is true.
func (p *Processor) AttemptConditionRemoval(c creature.Combatant, id string) (*AbilityCheckResult, error) {
	def, ok := p.registry.Get(id)
	if !ok {
		return nil, rpgerr.InvalidInputf("condition: unknown condition %q", id).WithMeta("condition", id)
	}
	rule := def.CanEndEarly
	if rule == nil || rule.Method != MethodAbilityCheck {
		return nil, nil
	}

	stats := c.Stats()
	check, err := creature.RollAbilityCheck(stats, rule.Ability, rule.DC, p.roller)
	if err != nil {
		return nil, err
	}
	res := &AbilityCheckResult{
		ConditionID: id,
		Ability:     rule.Ability,
		Check:       check,
		RollTotal:   check.Total,
		DC:          rule.DC,
		Success:     check.Success,
	}

	vars := map[string]string{
		"creature_name": stats.Name,
		"roll":          strconv.Itoa(check.Total),
		"dc":            strconv.Itoa(rule.DC),
	}
	if check.Success {
		res.ConditionRemoved = stats.RemoveCondition(id)
		res.Message = format(orDefault(rule.SuccessMessage, defaultSuccessMessage), vars)
	} else {
		res.Message = format(orDefault(rule.FailureMessage, defaultFailureMessage), vars)
	}

	p.sink.Emit(event.Event{
		Type:    event.AbilityCheck,
		Actor:   stats.Name,
		ActorID: stats.ID,
		Amount:  check.Total,
		Detail:  check.String() + " to remove " + id,
	})
	if res.ConditionRemoved {
		p.sink.Emit(event.Event{Type: event.ConditionRemoved, Target: stats.Name, TargetID: stats.ID, Detail: id})
	}
	return res, nil
}

// ProcessEndOfTurn rolls repeat saves for c's conditions, then counts down
// timed conditions.
//
// Postcondition: results are ordered by condition id, repeat saves first.
func (p *Processor) ProcessEndOfTurn(c creature.Combatant) ([]EndOfTurnResult, error) {
	stats := c.Stats()
	var results []EndOfTurnResult
	for _, id := range stats.ConditionIDs() {
		ac, _ := stats.Conditions.Get(id)
		if ac.RepeatSave == nil {
			continue
		}
		mode := p.registry.SaveMode(stats, ac.RepeatSave.Ability)
		save, err := creature.RollSave(c, ac.RepeatSave.Ability, ac.RepeatSave.DC, p.roller, mode)
		if err != nil {
			return results, err
		}
		r := EndOfTurnResult{ConditionID: id, Save: &save}
		if save.Success {
			r.Removed = stats.RemoveCondition(id)
			p.sink.Emit(event.Event{Type: event.ConditionRemoved, Target: stats.Name, TargetID: stats.ID, Detail: id})
		}
		p.logger.Debug("repeat save", zap.String("creature", stats.Name), zap.String("condition", id), zap.Stringer("save", save))
		results = append(results, r)
	}

	for _, id := range stats.Conditions.Tick() {
		results = append(results, EndOfTurnResult{ConditionID: id, Expired: true})
		p.sink.Emit(event.Event{Type: event.ConditionExpired, Target: stats.Name, TargetID: stats.ID, Detail: id})
	}
	return results, nil
}

func format(tmpl string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func damageTypeOrUntyped(t string) string {
	if t == "" {
		return "untyped"
	}
	return t
}
