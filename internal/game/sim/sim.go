// Package sim runs a content-defined encounter to completion, letting the
// tactics planner choose every combatant's actions.
package sim

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dnd-combat/internal/content"
	rpgerr "github.com/cory-johannsen/dnd-combat/internal/errors"
	"github.com/cory-johannsen/dnd-combat/internal/game/ai"
	"github.com/cory-johannsen/dnd-combat/internal/game/clock"
	"github.com/cory-johannsen/dnd-combat/internal/game/combat"
	"github.com/cory-johannsen/dnd-combat/internal/game/condition"
	"github.com/cory-johannsen/dnd-combat/internal/game/creature"
	"github.com/cory-johannsen/dnd-combat/internal/game/dice"
	"github.com/cory-johannsen/dnd-combat/internal/game/event"
	"github.com/cory-johannsen/dnd-combat/internal/game/ruleset"
	"github.com/cory-johannsen/dnd-combat/internal/scripting"
)

// Default tactics domains for combatants that do not name one.
const (
	MartialTactics     = "martial"
	SpellcasterTactics = "spellcaster"
	MonsterTactics     = "monster"
)

// Config collects a Simulation's collaborators.
type Config struct {
	// Library and Roller are required.
	Library *content.Library
	Roller  *dice.Roller
	// Clock receives a tick per completed round and tracks spell durations.
	// Nil creates one with the default round duration.
	Clock *clock.Clock
	// Scripts is optional; without it Lua conditions and Lua tactics
	// preconditions are inert.
	Scripts   *scripting.Manager
	Events    event.Sink
	Logger    *zap.Logger
	MaxRounds int
}

// Result summarises a finished run.
type Result struct {
	Outcome combat.Outcome
	// Rounds is the number of completed rounds.
	Rounds int
	Turns  int
	// GameTime is the clock time that passed during the fight.
	GameTime  time.Duration
	Survivors []string
}

// String renders e.g. "party_victory after 3 rounds (18s): Brom, Tarn".
func (r Result) String() string {
	return fmt.Sprintf("%s after %d rounds (%s): %s", r.Outcome, r.Rounds, clock.FormatDuration(r.GameTime), strings.Join(r.Survivors, ", "))
}

// Turn records one combatant's turn.
type Turn struct {
	Report combat.TurnReport
	Plan   []ai.PlannedAction
	Steps  []ai.Step
}

// Simulation owns one Encounter and the planners that drive its combatants.
// It is not safe for concurrent use.
type Simulation struct {
	lib       *content.Library
	enc       *combat.Encounter
	clock     *clock.Clock
	scripts   *scripting.Manager
	tactics   *ai.Registry
	exec      *ai.Executor
	planners  map[uuid.UUID]*ai.Planner
	logger    *zap.Logger
	maxRounds int
	turns     int
	start     time.Duration
}

// New creates a Simulation with an empty Encounter.
//
// Precondition: cfg.Library and cfg.Roller must be non-nil; cfg.MaxRounds >= 1.
// Postcondition: returns an invalid_input error when a precondition fails or
// the library's tactics domains collide.
func New(cfg Config) (*Simulation, error) {
	if cfg.Library == nil || cfg.Roller == nil {
		return nil, rpgerr.InvalidInput("sim: library and roller are required")
	}
	if cfg.MaxRounds < 1 {
		return nil, rpgerr.InvalidInputf("sim: max rounds must be >= 1, got %d", cfg.MaxRounds)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	gameClock := cfg.Clock
	if gameClock == nil {
		gameClock = clock.New(clock.DefaultRoundDuration, clock.WithEventSink(cfg.Events), clock.WithLogger(logger))
	}

	procOpts := []condition.Option{condition.WithEventSink(cfg.Events), condition.WithLogger(logger)}
	var caller ai.ScriptCaller
	if cfg.Scripts != nil {
		procOpts = append(procOpts, condition.WithScripts(cfg.Scripts))
		caller = cfg.Scripts
	}
	enc := combat.NewEncounter(combat.EncounterConfig{
		Roller:     cfg.Roller,
		Conditions: condition.NewProcessor(cfg.Library.Conditions, cfg.Roller, procOpts...),
		Clock:      gameClock,
		Events:     cfg.Events,
		Logger:     logger,
	})

	tactics := ai.NewRegistry(caller, logger)
	if err := tactics.RegisterAll(cfg.Library.Tactics); err != nil {
		return nil, err
	}

	s := &Simulation{
		lib:       cfg.Library,
		enc:       enc,
		clock:     gameClock,
		scripts:   cfg.Scripts,
		tactics:   tactics,
		exec:      ai.NewExecutor(enc, cfg.Library.Spells, logger),
		planners:  make(map[uuid.UUID]*ai.Planner),
		logger:    logger,
		maxRounds: cfg.MaxRounds,
		start:     gameClock.Elapsed(),
	}
	if s.scripts != nil {
		s.scripts.GetCombatant = s.combatantInfo
	}
	return s, nil
}

// Encounter returns the encounter being simulated.
func (s *Simulation) Encounter() *combat.Encounter { return s.enc }

// Setup builds the party and the monsters of def and has them join.
//
// Precondition: def must be non-nil and reference loaded content.
// Postcondition: a content error is returned before anyone joins; otherwise
// the top of the initiative order holds the first turn.
func (s *Simulation) Setup(def *ruleset.EncounterDef) error {
	if def == nil {
		return rpgerr.InvalidInput("sim: encounter definition is required")
	}
	type recruit struct {
		c       creature.Combatant
		side    combat.Side
		planner *ai.Planner
	}
	var recruits []recruit

	for _, spec := range def.Party {
		ch, err := s.lib.Rules.BuildCharacter(spec)
		if err != nil {
			return rpgerr.Wrapf(err, "sim: building %s", spec.Name)
		}
		p, err := s.tactics.Lookup(characterTactics(spec))
		if err != nil {
			return err
		}
		recruits = append(recruits, recruit{ch, combat.Party, p})
	}
	for _, group := range def.Monsters {
		mdef, err := s.lib.Rules.Monster(group.ID)
		if err != nil {
			return err
		}
		domain := mdef.Tactics
		if domain == "" {
			domain = MonsterTactics
		}
		p, err := s.tactics.Lookup(domain)
		if err != nil {
			return err
		}
		count := max(group.Count, 1)
		for i := 1; i <= count; i++ {
			name := mdef.Name
			if count > 1 {
				name = fmt.Sprintf("%s %d", mdef.Name, i)
			}
			recruits = append(recruits, recruit{ruleset.SpawnMonster(mdef, name), combat.Hostile, p})
		}
	}

	for _, r := range recruits {
		if _, err := s.enc.Join(r.c, r.side); err != nil {
			return err
		}
		s.planners[r.c.Stats().ID] = r.planner
	}
	s.enc.Start()
	s.logger.Info("encounter ready",
		zap.String("encounter", def.ID),
		zap.Int("party", len(def.Party)),
		zap.Int("hostiles", len(recruits)-len(def.Party)),
	)
	return nil
}

func characterTactics(spec ruleset.CharacterSpec) string {
	switch {
	case spec.Tactics != "":
		return spec.Tactics
	case len(spec.Spells) > 0:
		return SpellcasterTactics
	default:
		return MartialTactics
	}
}

// Run plays turns until one side is down, maxRounds rounds have completed,
// or ctx is cancelled.
//
// Precondition: Setup has been called.
func (s *Simulation) Run(ctx context.Context) (Result, error) {
	for s.enc.Outcome() == combat.Ongoing && s.enc.Tracker().Round() < s.maxRounds {
		if err := ctx.Err(); err != nil {
			return s.result(), err
		}
		if _, err := s.Step(); err != nil {
			return s.result(), err
		}
	}
	res := s.result()
	s.logger.Info("encounter finished",
		zap.Stringer("outcome", res.Outcome),
		zap.Int("rounds", res.Rounds),
		zap.Int("turns", res.Turns),
		zap.Duration("game_time", res.GameTime),
	)
	return res, nil
}

// Step plays the current combatant's turn: begin it, plan and execute if it
// can act, track any spell it cast, then end it. Anyone at 0 HP afterwards
// loses concentration.
func (s *Simulation) Step() (Turn, error) {
	if s.enc.Tracker().Len() == 0 {
		return Turn{}, rpgerr.Precondition("sim: encounter has no combatants")
	}
	rep, err := s.enc.BeginTurn()
	if err != nil {
		return Turn{}, err
	}
	cur, _ := s.enc.Current()
	turn := Turn{Report: rep}

	if rep.CanAct {
		planner, ok := s.planners[rep.CombatantID]
		if !ok {
			return turn, rpgerr.Internalf("sim: %s has no planner", rep.Name)
		}
		ws := ai.BuildWorldState(s.enc, cur, s.lib.Spells)
		turn.Plan, err = planner.Plan(ws)
		if err != nil {
			return turn, err
		}
		turn.Steps = s.exec.Execute(turn.Plan)
		for _, st := range turn.Steps {
			if st.Err == nil {
				s.trackSpell(rep.Name, st.Action)
			}
		}
	}
	// EndTurn drops the dead from the order, so remember everyone first.
	entries := s.enc.Tracker().Entries()
	if _, err := s.enc.EndTurn(); err != nil {
		return turn, err
	}
	s.breakFallenConcentration(entries)
	s.turns++
	return turn, nil
}

// trackSpell starts the clock on a successfully cast spell with a duration.
// A new concentration spell ends the caster's previous one.
func (s *Simulation) trackSpell(caster string, a ai.PlannedAction) {
	if a.Spell == "" {
		return
	}
	sp, ok := s.lib.Spells.Get(a.Spell)
	if !ok {
		return
	}
	d, ok, err := clock.ParseDuration(sp.Duration, s.clock.RoundDuration())
	if err != nil || !ok || d <= 0 {
		return
	}
	if sp.Concentration {
		s.clock.BreakConcentration(caster)
	}
	for _, target := range a.TargetNames {
		err := s.clock.Track(clock.TimedEffect{
			Kind:          clock.KindSpell,
			Source:        sp.ID,
			Target:        target,
			Caster:        caster,
			Duration:      d,
			Concentration: sp.Concentration,
			Description:   sp.Name,
		})
		if err != nil {
			s.logger.Warn("tracking spell", zap.String("spell", sp.ID), zap.Error(err))
		}
	}
}

// breakFallenConcentration ends the concentration of anyone at 0 HP.
func (s *Simulation) breakFallenConcentration(entries []combat.Entry) {
	for _, entry := range entries {
		if st := entry.Combatant.Stats(); !st.IsAlive() {
			s.clock.BreakConcentration(st.Name)
		}
	}
}

func (s *Simulation) combatantInfo(uid string) *scripting.CombatantInfo {
	id, err := uuid.Parse(uid)
	if err != nil {
		return nil
	}
	for _, entry := range s.enc.Tracker().Entries() {
		if entry.ID() != id {
			continue
		}
		st := entry.Combatant.Stats()
		return &scripting.CombatantInfo{
			UID:        uid,
			Name:       st.Name,
			HP:         st.CurrentHP,
			MaxHP:      st.MaxHP,
			AC:         st.AC,
			Conditions: st.ConditionIDs(),
		}
	}
	return nil
}

func (s *Simulation) result() Result {
	res := Result{
		Outcome:  s.enc.Outcome(),
		Rounds:   s.enc.Tracker().Round(),
		Turns:    s.turns,
		GameTime: s.clock.Elapsed() - s.start,
	}
	for _, side := range []combat.Side{combat.Party, combat.Hostile} {
		for _, c := range s.enc.Members(side) {
			if c.Stats().IsAlive() {
				res.Survivors = append(res.Survivors, c.Stats().Name)
			}
		}
	}
	return res
}
