package combat_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	rpgerr "github.com/cory-johannsen/dnd-combat/internal/errors"
	"github.com/cory-johannsen/dnd-combat/internal/game/combat"
	"github.com/cory-johannsen/dnd-combat/internal/game/creature"
	"github.com/cory-johannsen/dnd-combat/internal/game/dice"
	"github.com/cory-johannsen/dnd-combat/internal/game/event"
	"github.com/cory-johannsen/dnd-combat/internal/game/spell"
	"github.com/cory-johannsen/dnd-combat/internal/testutil"
)

func newResolver(src dice.Source) (*combat.Resolver, *event.Recorder) {
	rec := &event.Recorder{}
	return combat.NewResolver(dice.NewRoller(src), rec, zap.NewNop()), rec
}

func fighter(level int) *creature.Character {
	return creature.NewCharacter("Brom", creature.Fighter, level, creature.NewAbilityScores(16, 12, 14, 10, 10, 10), 12, 16)
}

func rogue(level int) *creature.Character {
	return creature.NewCharacter("Vex", creature.Rogue, level, creature.NewAbilityScores(10, 16, 12, 10, 10, 14), 9, 14)
}

func wizard(level int) *creature.Character {
	return creature.NewCharacter("Mira", creature.Wizard, level, creature.NewAbilityScores(8, 14, 12, 16, 12, 10), 8, 12)
}

func monster(name string, hp, ac int) *creature.Creature {
	return creature.New(name, hp, ac, creature.NewAbilityScores(8, 14, 10, 10, 8, 8))
}

func fireball() *spell.Spell {
	return &spell.Spell{
		ID: "fireball", Name: "Fireball", Level: 3,
		Damage:      &spell.Damage{Dice: "8d6", Type: "fire", UpcastDice: "1d6"},
		SavingThrow: &spell.SavingThrow{Ability: creature.Dexterity, OnSuccess: spell.SaveHalf},
	}
}

func fireBolt() *spell.Spell {
	return &spell.Spell{
		ID: "fire_bolt", Name: "Fire Bolt", Level: 0, Attack: spell.RangedAttack,
		Damage: &spell.Damage{Dice: "1d10", Type: "fire"},
	}
}

func holdPerson() *spell.Spell {
	return &spell.Spell{
		ID: "hold_person", Name: "Hold Person", Level: 2,
		SavingThrow: &spell.SavingThrow{Ability: creature.Wisdom, OnSuccess: spell.SaveNone},
		Condition:   &spell.ConditionEffect{ID: "paralyzed", DurationRounds: 10, RepeatSave: true},
	}
}

func TestResolveAttack_FighterHits(t *testing.T) {
	f := fighter(1)
	bonus := f.AttackBonus(creature.Melee, true)
	require.Equal(t, 5, bonus)

	r, rec := newResolver(testutil.NewSequence(15, 6))
	gob := monster("Goblin", 7, 20)
	res, err := r.ResolveAttack(f, gob, bonus, "1d8+3", combat.AttackOptions{Label: "longsword", DamageType: "slashing"})
	require.NoError(t, err)

	assert.True(t, res.Hit)
	assert.False(t, res.Critical)
	assert.Equal(t, 15, res.Natural)
	assert.Equal(t, 20, res.Total)
	assert.Equal(t, 9, res.TotalDamage)
	assert.True(t, res.Applied)
	assert.True(t, res.Report.Killed)
	assert.Equal(t, 0, gob.CurrentHP)
	assert.Equal(t, "Brom longsword Goblin: d20 15+5 = 20 vs AC 20 (hit) for 9 slashing", res.String())
	assert.Len(t, rec.OfType(event.AttackRoll), 1)
	assert.Len(t, rec.OfType(event.DamageTaken), 1)
}

func TestResolveAttack_Miss(t *testing.T) {
	r, rec := newResolver(testutil.NewSequence(9))
	gob := monster("Goblin", 7, 15)
	res, err := r.ResolveAttack(fighter(1), gob, 5, "1d8+3", combat.AttackOptions{})
	require.NoError(t, err)
	assert.False(t, res.Hit)
	assert.Zero(t, res.TotalDamage)
	assert.Equal(t, 7, gob.CurrentHP)
	assert.Empty(t, rec.OfType(event.DamageTaken))
	assert.Equal(t, "Brom attack Goblin: d20 9+5 = 14 vs AC 15 (miss)", res.String())
}

func TestResolveAttack_NaturalOneAlwaysMisses(t *testing.T) {
	r, _ := newResolver(testutil.FixedSource{Face: 1})
	gob := monster("Goblin", 7, 5)
	res, err := r.ResolveAttack(fighter(1), gob, 100, "1d8+3", combat.AttackOptions{})
	require.NoError(t, err)
	assert.False(t, res.Hit)
	assert.Equal(t, 1, res.Natural)
	assert.Zero(t, res.TotalDamage)
	assert.Equal(t, 7, gob.CurrentHP)
	assert.Contains(t, res.String(), "natural 1")
}

func TestResolveAttack_NaturalTwentyCritsDoublesDiceOnly(t *testing.T) {
	r, _ := newResolver(testutil.NewSequence(20, 3, 5))
	ogre := monster("Ogre", 59, 30)
	res, err := r.ResolveAttack(fighter(1), ogre, -5, "1d8+3", combat.AttackOptions{})
	require.NoError(t, err)
	assert.True(t, res.Hit)
	assert.True(t, res.Critical)
	assert.Equal(t, []int{3, 5}, res.Damage.Dice)
	assert.Equal(t, 3, res.Damage.Modifier)
	assert.Equal(t, 11, res.TotalDamage)
	assert.Equal(t, 48, ogre.CurrentHP)
}

func TestResolveAttack_Preview(t *testing.T) {
	r, rec := newResolver(testutil.NewSequence(15, 6))
	gob := monster("Goblin", 7, 15)
	res, err := r.ResolveAttack(fighter(1), gob, 5, "1d8+3", combat.AttackOptions{Preview: true})
	require.NoError(t, err)
	assert.True(t, res.Hit)
	assert.Equal(t, 9, res.TotalDamage)
	assert.False(t, res.Applied)
	assert.Equal(t, 7, gob.CurrentHP)
	assert.Empty(t, rec.OfType(event.DamageTaken))
}

func TestResolveAttack_InvalidInputsDoNotRoll(t *testing.T) {
	r, _ := newResolver(testutil.NewSequence())
	gob := monster("Goblin", 7, 15)

	_, err := r.ResolveAttack(fighter(1), gob, 5, "1d8+3", combat.AttackOptions{Advantage: true, Disadvantage: true})
	assert.True(t, rpgerr.IsPrecondition(err))

	_, err = r.ResolveAttack(fighter(1), gob, 5, "one sword", combat.AttackOptions{})
	assert.True(t, rpgerr.IsInvalidInput(err))

	_, err = r.ResolveAttack(nil, gob, 5, "1d8", combat.AttackOptions{})
	assert.True(t, rpgerr.IsInvalidInput(err))
	assert.Equal(t, 7, gob.CurrentHP)
}

func TestResolveAttack_SneakAttackWithAdvantage(t *testing.T) {
	// advantage 4/14, damage 2, sneak 3d6 = 1+2+3
	r, rec := newResolver(testutil.NewSequence(4, 14, 2, 1, 2, 3))
	orc := monster("Orc", 30, 13)
	res, err := r.ResolveAttack(rogue(5), orc, 6, "1d6+3", combat.AttackOptions{Advantage: true})
	require.NoError(t, err)
	assert.True(t, res.Hit)
	assert.Equal(t, 14, res.Natural)
	assert.Equal(t, 6, res.SneakAttack)
	assert.Equal(t, 11, res.TotalDamage)
	assert.Equal(t, 19, orc.CurrentHP)
	assert.Len(t, rec.OfType(event.SneakAttack), 1)
	assert.Contains(t, res.String(), "including 6 sneak attack")
}

func TestResolveAttack_SneakAttackWithAdjacentAlly(t *testing.T) {
	r, _ := newResolver(testutil.NewSequence(14, 2, 1, 2, 3))
	res, err := r.ResolveAttack(rogue(5), monster("Orc", 30, 13), 6, "1d6+3", combat.AttackOptions{AllyAdjacent: true})
	require.NoError(t, err)
	assert.Equal(t, 6, res.SneakAttack)
}

func TestResolveAttack_NoSneakAttack(t *testing.T) {
	tests := map[string]struct {
		attacker creature.Combatant
		opts     combat.AttackOptions
		faces    []int
	}{
		"disadvantage cancels ally": {rogue(5), combat.AttackOptions{AllyAdjacent: true, Disadvantage: true}, []int{14, 18, 2}},
		"no trigger":                {rogue(5), combat.AttackOptions{}, []int{14, 2}},
		"already used this turn":    {rogue(5), combat.AttackOptions{Advantage: true, SkipSneakAttack: true}, []int{14, 3, 2}},
		"class without feature":     {fighter(5), combat.AttackOptions{Advantage: true}, []int{14, 3, 2}},
		"monster":                   {monster("Bandit", 11, 12), combat.AttackOptions{Advantage: true}, []int{14, 3, 2}},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			src := testutil.NewSequence(tc.faces...)
			r, _ := newResolver(src)
			res, err := r.ResolveAttack(tc.attacker, monster("Orc", 30, 13), 6, "1d6+3", tc.opts)
			require.NoError(t, err)
			assert.True(t, res.Hit)
			assert.Zero(t, res.SneakAttack)
			assert.Equal(t, 5, res.TotalDamage)
			assert.Zero(t, src.Remaining())
		})
	}
}

func TestResolveAttack_SneakAttackDoubledOnCrit(t *testing.T) {
	r, _ := newResolver(testutil.NewSequence(20, 2, 3, 4, 5))
	res, err := r.ResolveAttack(rogue(1), monster("Orc", 30, 13), 5, "1d6+3", combat.AttackOptions{AllyAdjacent: true})
	require.NoError(t, err)
	assert.True(t, res.Critical)
	assert.Equal(t, 8, res.Damage.Total())
	assert.Equal(t, 9, res.SneakAttack)
	assert.Equal(t, 17, res.TotalDamage)
}

func TestResolveAttack_DyingCharacterTakesDeathSaveFailures(t *testing.T) {
	r, _ := newResolver(testutil.NewSequence(15, 2, 20, 1, 1))
	hero := fighter(1)
	hero.CurrentHP = 0

	res, err := r.ResolveAttack(monster("Goblin", 7, 15), hero, 4, "1d4", combat.AttackOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Report.DeathSaveFailures)
	assert.Equal(t, 1, hero.DeathSaves.Failures)

	res, err = r.ResolveAttack(monster("Goblin", 7, 15), hero, 4, "1d4", combat.AttackOptions{})
	require.NoError(t, err)
	assert.True(t, res.Critical)
	assert.Equal(t, 2, res.Report.DeathSaveFailures)
	assert.True(t, hero.IsDead())
	assert.True(t, res.Report.Killed)
}

func TestPropertyCriticalNeverBelowNormalMinimum(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(1, 4).Draw(rt, "count")
		sides := rapid.SampledFrom([]int{4, 6, 8, 10, 12}).Draw(rt, "sides")
		mod := rapid.IntRange(0, 5).Draw(rt, "mod")
		faces := []int{20}
		for i := 0; i < 2*count; i++ {
			faces = append(faces, rapid.IntRange(1, sides).Draw(rt, "face"))
		}
		expr := dice.Expression{Count: count, Sides: sides, Modifier: mod}

		r, _ := newResolver(testutil.NewSequence(faces...))
		res, err := r.ResolveAttack(monster("A", 10, 10), monster("B", 200, 10), 0, expr.String(), combat.AttackOptions{Preview: true})
		if err != nil {
			rt.Fatal(err)
		}
		if !res.Critical {
			rt.Fatal("a natural 20 must crit")
		}
		if res.TotalDamage < count+mod {
			rt.Fatalf("critical damage %d below normal minimum %d", res.TotalDamage, count+mod)
		}
		if len(res.Damage.Dice) != 2*count || res.Damage.Modifier != mod {
			rt.Fatalf("critical must double dice only: %+v", res.Damage)
		}
	})
}

func TestPropertyAttackHitRule(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		nat := rapid.IntRange(1, 20).Draw(rt, "natural")
		bonus := rapid.IntRange(-5, 15).Draw(rt, "bonus")
		ac := rapid.IntRange(5, 30).Draw(rt, "ac")

		r, _ := newResolver(testutil.NewSequence(nat, 1))
		res, err := r.ResolveAttack(monster("A", 10, 10), monster("B", 50, ac), bonus, "1d4", combat.AttackOptions{Preview: true})
		if err != nil {
			rt.Fatal(err)
		}
		want := nat == 20 || (nat != 1 && nat+bonus >= ac)
		if res.Hit != want {
			rt.Fatalf("natural %d%+d vs AC %d: hit=%v", nat, bonus, ac, res.Hit)
		}
	})
}

func TestResolveSpellAttack_Cantrip(t *testing.T) {
	w := wizard(1)
	atk, err := w.SpellAttackBonus()
	require.NoError(t, err)
	require.Equal(t, 5, atk)

	r, _ := newResolver(testutil.NewSequence(12, 7))
	gob := monster("Goblin", 12, 15)
	res, err := r.ResolveSpellAttack(w, gob, fireBolt(), combat.AttackOptions{})
	require.NoError(t, err)
	assert.Equal(t, 5, res.AttackBonus)
	assert.True(t, res.Hit)
	assert.Equal(t, "Fire Bolt", res.Label)
	assert.Equal(t, "fire", res.DamageType)
	assert.Equal(t, 7, res.TotalDamage)
	assert.Equal(t, 5, gob.CurrentHP)
}

func TestResolveSpellAttack_CantripScalesWithLevel(t *testing.T) {
	r, _ := newResolver(testutil.NewSequence(12, 3, 4))
	res, err := r.ResolveSpellAttack(wizard(5), monster("Goblin", 12, 15), fireBolt(), combat.AttackOptions{Preview: true})
	require.NoError(t, err)
	assert.Equal(t, 6, res.AttackBonus)
	assert.Equal(t, []int{3, 4}, res.Damage.Dice)
	assert.Equal(t, 7, res.TotalDamage)
}

func TestResolveSpellAttack_Preconditions(t *testing.T) {
	r, _ := newResolver(testutil.NewSequence())
	gob := monster("Goblin", 12, 15)

	_, err := r.ResolveSpellAttack(fighter(3), gob, fireBolt(), combat.AttackOptions{})
	assert.True(t, rpgerr.IsPrecondition(err))

	_, err = r.ResolveSpellAttack(wizard(5), gob, fireball(), combat.AttackOptions{})
	assert.True(t, rpgerr.IsPrecondition(err))
	assert.Equal(t, 12, gob.CurrentHP)
}

func TestResolveSpellAttack_AppliesConditionOnHit(t *testing.T) {
	web := &spell.Spell{
		ID: "binding_bolt", Name: "Binding Bolt", Level: 1, Attack: spell.RangedAttack,
		Damage:    &spell.Damage{Dice: "1d4", Type: "force"},
		Condition: &spell.ConditionEffect{ID: "restrained", DurationRounds: 2},
	}
	r, rec := newResolver(testutil.NewSequence(15, 2))
	gob := monster("Goblin", 12, 15)
	res, err := r.ResolveSpellAttack(wizard(1), gob, web, combat.AttackOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"restrained"}, res.ConditionsApplied)
	ac, ok := gob.Conditions.Get("restrained")
	require.True(t, ok)
	assert.Equal(t, 2, ac.DurationRemaining)
	assert.Equal(t, "Mira", ac.Source)
	assert.Len(t, rec.OfType(event.ConditionApplied), 1)
}

func TestResolveSpellSave_HalfOnSuccess(t *testing.T) {
	w := wizard(5)
	dc, err := w.SpellSaveDC()
	require.NoError(t, err)
	require.Equal(t, 14, dc)

	// 8d6 all threes, goblin saves 12+2, orc fails 5+2
	r, rec := newResolver(testutil.NewSequence(3, 3, 3, 3, 3, 3, 3, 3, 12, 5))
	gob, orc := monster("Goblin", 30, 15), monster("Orc", 30, 13)
	sum, err := r.ResolveSpellSave(w, []creature.Combatant{gob, orc}, fireball(), combat.SaveOptions{})
	require.NoError(t, err)

	assert.Equal(t, 14, sum.DC)
	assert.Equal(t, 3, sum.SlotLevel)
	assert.Equal(t, 24, sum.DamageRoll.Total())
	require.Len(t, sum.Results, 2)
	assert.True(t, sum.Results[0].Save.Success)
	assert.Equal(t, 12, sum.Results[0].Damage)
	assert.False(t, sum.Results[1].Save.Success)
	assert.Equal(t, 24, sum.Results[1].Damage)
	assert.Equal(t, 36, sum.TotalDamage())
	assert.Equal(t, 18, gob.CurrentHP)
	assert.Equal(t, 6, orc.CurrentHP)
	assert.Len(t, rec.OfType(event.SpellSave), 2)
	assert.Equal(t, "Mira casts Fireball (DC 14 dexterity save)\n  Goblin saves (14) and takes 12\n  Orc fails (7) and takes 24", sum.String())
}

func TestResolveSpellSave_HalfRoundsDown(t *testing.T) {
	// 8d6 totalling 25, save succeeds
	r, _ := newResolver(testutil.NewSequence(4, 3, 3, 3, 3, 3, 3, 3, 19))
	gob := monster("Goblin", 30, 15)
	sum, err := r.ResolveSpellSave(wizard(5), []creature.Combatant{gob}, fireball(), combat.SaveOptions{})
	require.NoError(t, err)
	assert.Equal(t, 12, sum.Results[0].Damage)
}

func TestResolveSpellSave_NoneOnSuccessAndCondition(t *testing.T) {
	r, rec := newResolver(testutil.NewSequence(10, 18))
	weak, strong := monster("Bandit", 11, 12), monster("Knight", 52, 18)
	sum, err := r.ResolveSpellSave(wizard(5), []creature.Combatant{weak, strong}, holdPerson(), combat.SaveOptions{})
	require.NoError(t, err)

	assert.Zero(t, sum.DamageRoll.Total())
	assert.Equal(t, "paralyzed", sum.Results[0].ConditionApplied)
	assert.Empty(t, sum.Results[1].ConditionApplied)
	assert.Zero(t, sum.TotalDamage())

	ac, ok := weak.Conditions.Get("paralyzed")
	require.True(t, ok)
	assert.Equal(t, 10, ac.DurationRemaining)
	require.NotNil(t, ac.RepeatSave)
	assert.Equal(t, creature.RepeatSave{Ability: creature.Wisdom, DC: 14}, *ac.RepeatSave)
	assert.False(t, strong.HasCondition("paralyzed"))
	assert.Len(t, rec.OfType(event.ConditionApplied), 1)
}

func TestResolveSpellSave_Upcast(t *testing.T) {
	src := testutil.FixedSource{Face: 1}
	r, _ := newResolver(src)
	gob := monster("Goblin", 30, 15)
	sum, err := r.ResolveSpellSave(wizard(9), []creature.Combatant{gob}, fireball(), combat.SaveOptions{SlotLevel: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, sum.SlotLevel)
	assert.Len(t, sum.DamageRoll.Dice, 10)
	assert.Equal(t, 10, sum.Results[0].Damage)

	for _, slot := range []int{2, 10} {
		_, err = r.ResolveSpellSave(wizard(9), []creature.Combatant{gob}, fireball(), combat.SaveOptions{SlotLevel: slot})
		assert.True(t, rpgerr.IsInvalidInput(err), "slot %d", slot)
	}
	assert.Equal(t, 20, gob.CurrentHP)
}

func TestResolveSpellSave_Preconditions(t *testing.T) {
	r, _ := newResolver(testutil.NewSequence())
	gob := monster("Goblin", 30, 15)

	_, err := r.ResolveSpellSave(rogue(5), []creature.Combatant{gob}, fireball(), combat.SaveOptions{})
	assert.True(t, rpgerr.IsPrecondition(err))

	_, err = r.ResolveSpellSave(wizard(5), []creature.Combatant{gob}, fireBolt(), combat.SaveOptions{})
	assert.True(t, rpgerr.IsPrecondition(err))

	_, err = r.ResolveSpellSave(wizard(5), []creature.Combatant{gob, nil}, fireball(), combat.SaveOptions{})
	assert.True(t, rpgerr.IsInvalidInput(err))
	assert.Equal(t, 30, gob.CurrentHP)
}

func TestResolveSpellSave_PreviewAndModes(t *testing.T) {
	// 8d6 ones, goblin at advantage rolls 2 and 17
	r, _ := newResolver(testutil.NewSequence(1, 1, 1, 1, 1, 1, 1, 1, 2, 17))
	gob := monster("Goblin", 30, 15)
	sum, err := r.ResolveSpellSave(wizard(5), []creature.Combatant{gob}, fireball(), combat.SaveOptions{
		Preview: true,
		Modes:   map[uuid.UUID]dice.Mode{gob.ID: dice.Advantage},
	})
	require.NoError(t, err)
	assert.False(t, sum.Applied)
	assert.True(t, sum.Results[0].Save.Success)
	assert.Equal(t, 4, sum.Results[0].Damage)
	assert.Equal(t, 30, gob.CurrentHP)
}

func TestPropertySpellSave_SharedRoll(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 6).Draw(rt, "targets")
		seed := rapid.Uint64().Draw(rt, "seed")
		r := combat.NewResolver(dice.NewRoller(dice.NewSeededSource(seed)), nil, nil)
		targets := make([]creature.Combatant, n)
		for i := range targets {
			targets[i] = monster("t", 100, 10)
		}
		sum, err := r.ResolveSpellSave(wizard(5), targets, fireball(), combat.SaveOptions{})
		if err != nil {
			rt.Fatal(err)
		}
		rolled := sum.DamageRoll.Total()
		for _, res := range sum.Results {
			want := rolled
			if res.Save.Success {
				want = rolled / 2
			}
			if res.Damage != want {
				rt.Fatalf("target took %d, want %d from shared roll %d", res.Damage, want, rolled)
			}
			if res.Report.Applied != res.Damage {
				rt.Fatalf("applied %d, want %d", res.Report.Applied, res.Damage)
			}
		}
	})
}
