package combat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	rpgerr "github.com/cory-johannsen/dnd-combat/internal/errors"
	"github.com/cory-johannsen/dnd-combat/internal/game/combat"
	"github.com/cory-johannsen/dnd-combat/internal/game/combat/mocks"
	"github.com/cory-johannsen/dnd-combat/internal/game/condition"
	"github.com/cory-johannsen/dnd-combat/internal/game/creature"
	"github.com/cory-johannsen/dnd-combat/internal/game/dice"
	"github.com/cory-johannsen/dnd-combat/internal/game/event"
	"github.com/cory-johannsen/dnd-combat/internal/game/resource"
	"github.com/cory-johannsen/dnd-combat/internal/game/spell"
	"github.com/cory-johannsen/dnd-combat/internal/testutil"
)

const encounterConditions = `
id: on_fire
name: On Fire
turn_start_effect:
  type: damage
  damage: 1d4
  damage_type: fire
  message: "{creature_name} burns for {damage}"
can_end_early:
  method: ability_check
  ability: dexterity
  dc: 10
  action_cost: action
  success_message: "{creature_name} puts out the flames"
  failure_message: "{creature_name} keeps burning"
---
id: stunned
incapacitates: true
grants_advantage: true
---
id: poisoned
attack_disadvantage: true
`

func newEncounter(t *testing.T, src dice.Source, clock combat.TimeSink) (*combat.Encounter, *event.Recorder) {
	t.Helper()
	reg := condition.NewRegistry()
	require.NoError(t, reg.LoadFromBytes([]byte(encounterConditions)))
	roller := dice.NewRoller(src)
	rec := &event.Recorder{}
	proc := condition.NewProcessor(reg, roller, condition.WithEventSink(rec))
	return combat.NewEncounter(combat.EncounterConfig{
		Roller:     roller,
		Conditions: proc,
		Clock:      clock,
		Events:     rec,
		Logger:     zap.NewNop(),
	}), rec
}

func TestEncounter_FighterDropsGoblin(t *testing.T) {
	ctrl := gomock.NewController(t)
	clock := mocks.NewMockTimeSink(ctrl)
	clock.EXPECT().CombatRoundElapsed().Times(1)

	// initiative 15 and 5, then the attack roll and the longsword damage
	src := testutil.NewSequence(15, 5, 15, 6)
	enc, rec := newEncounter(t, src, clock)

	f := fighter(1)
	gob := monster("Goblin", 7, 12)
	_, err := enc.Join(f, combat.Party)
	require.NoError(t, err)
	_, err = enc.Join(gob, combat.Hostile)
	require.NoError(t, err)
	assert.Equal(t, combat.Ongoing, enc.Outcome())

	cur, ok := enc.Current()
	require.True(t, ok)
	assert.Equal(t, f.ID, cur.Stats().ID)

	rep, err := enc.BeginTurn()
	require.NoError(t, err)
	assert.True(t, rep.CanAct)
	assert.Equal(t, combat.Party, rep.Side)
	assert.Nil(t, rep.DeathSave)
	assert.Empty(t, rep.Effects)

	res, err := enc.UseAttack(gob, creature.Attack{Name: "longsword", Bonus: 5, Damage: "1d8+3", DamageType: "slashing"}, combat.AttackOptions{})
	require.NoError(t, err)
	assert.True(t, res.Hit)
	assert.Equal(t, "longsword", res.Label)
	assert.Equal(t, 9, res.TotalDamage)
	assert.Equal(t, 0, gob.CurrentHP)

	_, err = enc.Attack(gob, 5, "1d8+3", combat.AttackOptions{})
	require.Error(t, err)
	assert.True(t, rpgerr.IsPrecondition(err))
	assert.Equal(t, combat.PartyVictory, enc.Outcome())

	_, err = enc.EndTurn()
	require.NoError(t, err)
	assert.Equal(t, 1, enc.Tracker().Len())
	assert.Equal(t, 1, enc.Tracker().Round())
	assert.Empty(t, enc.Members(combat.Hostile))
	assert.Len(t, rec.OfType(event.CombatantRemoved), 1)
	assert.Zero(t, src.Remaining())
}

func TestEncounter_DyingCharacterRollsDeathSave(t *testing.T) {
	src := testutil.NewSequence(10, 12)
	enc, rec := newEncounter(t, src, nil)

	f := fighter(1)
	f.CurrentHP = 0
	_, err := enc.Join(f, combat.Party)
	require.NoError(t, err)
	assert.Equal(t, combat.PartyDefeated, enc.Outcome())

	rep, err := enc.BeginTurn()
	require.NoError(t, err)
	require.NotNil(t, rep.DeathSave)
	assert.True(t, rep.DeathSave.Success)
	assert.Equal(t, 1, rep.DeathSave.Successes)
	assert.False(t, rep.CanAct)
	assert.Len(t, rec.OfType(event.DeathSave), 1)

	_, err = enc.Attack(f, 5, "1d8", combat.AttackOptions{})
	assert.True(t, rpgerr.IsPrecondition(err))

	_, err = enc.EndTurn()
	require.NoError(t, err)
	assert.Equal(t, 1, enc.Tracker().Len(), "a dying character stays in the order")
}

func TestEncounter_TurnStartEffectsAndIncapacitation(t *testing.T) {
	src := testutil.NewSequence(10, 3)
	enc, _ := newEncounter(t, src, nil)

	gob := monster("Goblin", 10, 12)
	gob.AddCondition("on_fire")
	gob.AddCondition("stunned")
	_, err := enc.Join(gob, combat.Hostile)
	require.NoError(t, err)

	rep, err := enc.BeginTurn()
	require.NoError(t, err)
	require.Len(t, rep.Effects, 1)
	assert.Equal(t, "Goblin burns for 3", rep.Effects[0].Message)
	assert.Equal(t, 7, gob.CurrentHP)
	assert.True(t, rep.Incapacitated)
	assert.False(t, rep.CanAct)

	_, err = enc.Attack(gob, 4, "1d6", combat.AttackOptions{})
	require.Error(t, err)
	assert.True(t, rpgerr.IsPrecondition(err))
	assert.Contains(t, err.Error(), "incapacitated")
}

func TestEncounter_ConditionModes(t *testing.T) {
	t.Run("poisoned attacker rolls with disadvantage", func(t *testing.T) {
		src := testutil.NewSequence(18, 3, 17, 4)
		enc, _ := newEncounter(t, src, nil)
		gob := monster("Goblin", 7, 12)
		gob.AddCondition("poisoned")
		f := fighter(1)
		_, err := enc.Join(gob, combat.Hostile)
		require.NoError(t, err)
		_, err = enc.Join(f, combat.Party)
		require.NoError(t, err)

		res, err := enc.Attack(f, 4, "1d6+2", combat.AttackOptions{})
		require.NoError(t, err)
		assert.Equal(t, dice.Disadvantage, res.Roll.Mode)
		assert.Equal(t, 4, res.Natural)
		assert.False(t, res.Hit)
		assert.Zero(t, src.Remaining())
	})

	t.Run("caller advantage cancels condition disadvantage", func(t *testing.T) {
		src := testutil.NewSequence(18, 3, 2)
		enc, _ := newEncounter(t, src, nil)
		gob := monster("Goblin", 7, 12)
		gob.AddCondition("poisoned")
		f := fighter(1)
		_, err := enc.Join(gob, combat.Hostile)
		require.NoError(t, err)
		_, err = enc.Join(f, combat.Party)
		require.NoError(t, err)

		res, err := enc.Attack(f, 4, "1d6+2", combat.AttackOptions{Advantage: true})
		require.NoError(t, err)
		assert.Equal(t, dice.Normal, res.Roll.Mode)
		assert.Zero(t, src.Remaining())
	})

	t.Run("explicit advantage and disadvantage is rejected", func(t *testing.T) {
		src := testutil.NewSequence(18, 3)
		enc, _ := newEncounter(t, src, nil)
		gob := monster("Goblin", 7, 12)
		f := fighter(1)
		_, err := enc.Join(gob, combat.Hostile)
		require.NoError(t, err)
		_, err = enc.Join(f, combat.Party)
		require.NoError(t, err)

		_, err = enc.Attack(f, 4, "1d6", combat.AttackOptions{Advantage: true, Disadvantage: true})
		require.Error(t, err)
		assert.True(t, rpgerr.IsPrecondition(err))
	})
}

func TestEncounter_SaveSpellSpendsSlot(t *testing.T) {
	// initiative, eight fireball dice, the goblin's dexterity save
	src := testutil.NewSequence(12, 2, 3, 3, 3, 3, 3, 3, 3, 3, 5)
	enc, _ := newEncounter(t, src, nil)

	w := wizard(5)
	w.Resources.Add(resource.NewPool(resource.SpellSlotName(3), 1, resource.LongRest))
	gob := monster("Goblin", 7, 12)
	_, err := enc.Join(w, combat.Party)
	require.NoError(t, err)
	_, err = enc.Join(gob, combat.Hostile)
	require.NoError(t, err)

	sum, err := enc.CastSaveSpell([]creature.Combatant{gob}, fireball(), combat.SaveOptions{})
	require.NoError(t, err)
	require.Len(t, sum.Results, 1)
	assert.Equal(t, 24, sum.Results[0].Damage)
	assert.Equal(t, 0, gob.CurrentHP)

	slot, ok := w.Resources.Get(resource.SpellSlotName(3))
	require.True(t, ok)
	assert.True(t, slot.IsEmpty())
	assert.Zero(t, src.Remaining())
}

func TestEncounter_NoSlotLeft(t *testing.T) {
	src := testutil.NewSequence(12, 2)
	enc, _ := newEncounter(t, src, nil)

	w := wizard(5)
	gob := monster("Goblin", 7, 12)
	_, err := enc.Join(w, combat.Party)
	require.NoError(t, err)
	_, err = enc.Join(gob, combat.Hostile)
	require.NoError(t, err)

	_, err = enc.CastSaveSpell([]creature.Combatant{gob}, fireball(), combat.SaveOptions{})
	require.Error(t, err)
	assert.True(t, rpgerr.IsPrecondition(err))
	assert.Equal(t, 7, gob.CurrentHP)

	ts, ok := enc.Tracker().CurrentTurnState()
	require.True(t, ok)
	assert.True(t, ts.IsAvailable(combat.Action), "a refused cast spends nothing")
}

func TestEncounter_CantripNeedsNoSlot(t *testing.T) {
	src := testutil.NewSequence(12, 2, 14, 7)
	enc, _ := newEncounter(t, src, nil)

	w := wizard(1)
	gob := monster("Goblin", 7, 12)
	_, err := enc.Join(w, combat.Party)
	require.NoError(t, err)
	_, err = enc.Join(gob, combat.Hostile)
	require.NoError(t, err)

	res, err := enc.CastAttackSpell(gob, fireBolt(), combat.AttackOptions{})
	require.NoError(t, err)
	assert.True(t, res.Hit)
	assert.Equal(t, 7, res.TotalDamage)
	assert.Equal(t, 0, gob.CurrentHP)
}

func TestEncounter_HealingWordUpcast(t *testing.T) {
	// initiative 15 and 5, then two d4s for a second-level healing word
	src := testutil.NewSequence(15, 5, 3, 4)
	enc, rec := newEncounter(t, src, nil)

	cleric := creature.NewCharacter("Tarn", creature.Cleric, 3, creature.NewAbilityScores(10, 10, 14, 10, 16, 12), 20, 16)
	cleric.Resources.Add(resource.NewPool(resource.SpellSlotName(2), 1, resource.LongRest))
	f := fighter(1)
	f.CurrentHP = 2
	_, err := enc.Join(cleric, combat.Party)
	require.NoError(t, err)
	_, err = enc.Join(f, combat.Party)
	require.NoError(t, err)

	hw := &spell.Spell{
		ID: "healing_word", Name: "Healing Word", Level: 1, CastingTime: "1 bonus action",
		Healing: &spell.Healing{Dice: "1d4", UpcastDice: "1d4"},
	}
	res, err := enc.CastHealingSpell(f, hw, 2)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Amount)
	assert.Equal(t, 10, res.Restored)
	assert.Equal(t, 12, f.CurrentHP)
	assert.Len(t, rec.OfType(event.Healed), 1)

	ts, ok := enc.Tracker().CurrentTurnState()
	require.True(t, ok)
	assert.False(t, ts.IsAvailable(combat.BonusAction))
	assert.True(t, ts.IsAvailable(combat.Action))

	_, err = enc.CastHealingSpell(f, fireball(), 3)
	assert.True(t, rpgerr.IsPrecondition(err))
}

func TestEncounter_AttemptConditionRemoval(t *testing.T) {
	src := testutil.NewSequence(10, 14)
	enc, _ := newEncounter(t, src, nil)

	f := fighter(1)
	f.AddCondition("on_fire")
	f.AddCondition("poisoned")
	_, err := enc.Join(f, combat.Party)
	require.NoError(t, err)

	res, err := enc.AttemptConditionRemoval("poisoned")
	require.NoError(t, err)
	assert.Nil(t, res, "poisoned has no early-removal rule")

	_, err = enc.AttemptConditionRemoval("petrified")
	assert.True(t, rpgerr.IsInvalidInput(err))

	res, err = enc.AttemptConditionRemoval("on_fire")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.Success)
	assert.True(t, res.ConditionRemoved)
	assert.False(t, f.HasCondition("on_fire"))

	ts, ok := enc.Tracker().CurrentTurnState()
	require.True(t, ok)
	assert.False(t, ts.IsAvailable(combat.Action))
}

func TestEncounter_JoinAndTargets(t *testing.T) {
	enc, _ := newEncounter(t, testutil.NewSequence(15, 5), nil)
	assert.Equal(t, combat.Ongoing, enc.Outcome())
	_, err := enc.BeginTurn()
	assert.True(t, rpgerr.IsPrecondition(err))

	f := fighter(1)
	_, err = enc.Join(f, combat.Party)
	require.NoError(t, err)
	_, err = enc.Join(f, combat.Hostile)
	assert.True(t, rpgerr.IsInvalidInput(err))

	side, ok := enc.SideOf(f.ID)
	require.True(t, ok)
	assert.Equal(t, combat.Party, side)

	stranger := monster("Kobold", 5, 12)
	_, err = enc.Attack(stranger, 4, "1d4", combat.AttackOptions{})
	assert.True(t, rpgerr.IsNotFound(err))

	_, err = enc.Join(stranger, combat.Hostile)
	require.NoError(t, err)
	assert.Contains(t, enc.String(), "> party")
	assert.Contains(t, enc.String(), "hostile  Kobold (5/5)")

	assert.True(t, enc.Remove(stranger.ID))
	assert.False(t, enc.Remove(stranger.ID))
	assert.Equal(t, combat.PartyVictory, enc.Outcome(), "a hostile that left counts as down")
}

// goblinPair joins Brom (16), Goblin 1 (12) and Goblin 2 (7).
func goblinPair(t *testing.T, clock combat.TimeSink) (*combat.Encounter, *event.Recorder, *creature.Creature, *creature.Creature) {
	t.Helper()
	enc, rec := newEncounter(t, testutil.NewSequence(15, 10, 5), clock)
	g1, g2 := monster("Goblin 1", 7, 12), monster("Goblin 2", 7, 12)
	for _, j := range []struct {
		c    creature.Combatant
		side combat.Side
	}{{fighter(1), combat.Party}, {g1, combat.Hostile}, {g2, combat.Hostile}} {
		_, err := enc.Join(j.c, j.side)
		require.NoError(t, err)
	}
	return enc, rec, g1, g2
}

func TestEncounter_LastInOrderFallsOnOwnTurn(t *testing.T) {
	ctrl := gomock.NewController(t)
	clock := mocks.NewMockTimeSink(ctrl)
	clock.EXPECT().CombatRoundElapsed().Times(1)

	enc, rec, _, g2 := goblinPair(t, clock)
	for i := 0; i < 2; i++ {
		_, err := enc.EndTurn()
		require.NoError(t, err)
	}
	cur, ok := enc.Current()
	require.True(t, ok)
	require.Equal(t, g2.ID, cur.Stats().ID)

	g2.CurrentHP = 0
	_, err := enc.EndTurn()
	require.NoError(t, err)

	cur, _ = enc.Current()
	assert.Equal(t, "Brom", cur.Stats().Name)
	assert.Equal(t, 1, enc.Tracker().Round())
	assert.Equal(t, 3, enc.Tracker().TotalTurns())
	assert.Equal(t, 2, enc.Tracker().Len())
	assert.Len(t, rec.OfType(event.RoundStart), 1)
	assert.Len(t, rec.OfType(event.TurnStart), 3)
}

func TestEncounter_MidOrderFallsOnOwnTurn(t *testing.T) {
	enc, _, g1, g2 := goblinPair(t, nil)
	_, err := enc.EndTurn()
	require.NoError(t, err)

	g1.CurrentHP = 0
	_, err = enc.EndTurn()
	require.NoError(t, err)

	cur, _ := enc.Current()
	assert.Equal(t, g2.ID, cur.Stats().ID)
	assert.Zero(t, enc.Tracker().Round())
	assert.Equal(t, 2, enc.Tracker().TotalTurns())
	assert.False(t, enc.Tracker().Contains(g1.ID))
}

func TestEncounter_ReinforcementWaitsForNextRound(t *testing.T) {
	src := testutil.NewSequence(15, 5, 19)
	enc, _ := newEncounter(t, src, nil)
	f, gob := fighter(1), monster("Goblin", 7, 12)
	_, err := enc.Join(f, combat.Party)
	require.NoError(t, err)
	_, err = enc.Join(gob, combat.Hostile)
	require.NoError(t, err)

	_, err = enc.BeginTurn()
	require.NoError(t, err)
	ts, _ := enc.Tracker().CurrentTurnState()
	require.True(t, ts.Consume(combat.Action))

	wolf := monster("Wolf", 11, 13)
	_, err = enc.Join(wolf, combat.Hostile)
	require.NoError(t, err)
	cur, _ := enc.Current()
	assert.Equal(t, f.ID, cur.Stats().ID)
	_, err = enc.Attack(gob, 5, "1d8+3", combat.AttackOptions{})
	assert.True(t, rpgerr.IsPrecondition(err), "the fighter already spent its action")

	_, err = enc.EndTurn()
	require.NoError(t, err)
	cur, _ = enc.Current()
	assert.Equal(t, gob.ID, cur.Stats().ID)
	assert.Zero(t, enc.Tracker().Round())
}

func TestEncounter_PreviewRejected(t *testing.T) {
	src := testutil.NewSequence(12, 2)
	enc, rec := newEncounter(t, src, nil)
	w := wizard(5)
	w.Resources.Add(resource.NewPool(resource.SpellSlotName(3), 1, resource.LongRest))
	gob := monster("Goblin", 7, 12)
	_, err := enc.Join(w, combat.Party)
	require.NoError(t, err)
	_, err = enc.Join(gob, combat.Hostile)
	require.NoError(t, err)

	_, err = enc.Attack(gob, 5, "1d6", combat.AttackOptions{Preview: true})
	assert.True(t, rpgerr.IsInvalidInput(err))
	_, err = enc.CastAttackSpell(gob, fireBolt(), combat.AttackOptions{Preview: true})
	assert.True(t, rpgerr.IsInvalidInput(err))
	_, err = enc.CastSaveSpell([]creature.Combatant{gob}, fireball(), combat.SaveOptions{Preview: true})
	assert.True(t, rpgerr.IsInvalidInput(err))

	ts, _ := enc.Tracker().CurrentTurnState()
	assert.True(t, ts.IsAvailable(combat.Action), "a rejected preview spends nothing")
	slot, _ := w.Resources.Get(resource.SpellSlotName(3))
	assert.False(t, slot.IsEmpty())
	assert.Equal(t, 7, gob.CurrentHP)
	assert.Empty(t, rec.OfType(event.AttackRoll))
	assert.Zero(t, src.Remaining())
}
