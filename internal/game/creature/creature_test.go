package creature_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	"pgregory.net/rapid"

	rpgerr "github.com/cory-johannsen/dnd-combat/internal/errors"
	"github.com/cory-johannsen/dnd-combat/internal/game/creature"
	"github.com/cory-johannsen/dnd-combat/internal/game/dice"
	"github.com/cory-johannsen/dnd-combat/internal/game/resource"
	"github.com/cory-johannsen/dnd-combat/internal/testutil"
)

func TestMod(t *testing.T) {
	tests := []struct{ score, want int }{
		{1, -5}, {8, -1}, {9, -1}, {10, 0}, {11, 0}, {12, 1}, {15, 2}, {16, 3}, {20, 5}, {30, 10},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, creature.Mod(tc.score), "score=%d", tc.score)
	}
}

func TestMod_Property_IsFloorDivision(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		score := rapid.IntRange(1, 30).Draw(rt, "score")
		m := creature.Mod(score)
		assert.LessOrEqual(rt, 2*m, score-10)
		assert.Greater(rt, 2*(m+1), score-10)
	})
}

func TestParseAbility(t *testing.T) {
	for in, want := range map[string]creature.Ability{
		"strength": creature.Strength,
		"DEX":      creature.Dexterity,
		" Con ":    creature.Constitution,
		"int":      creature.Intelligence,
		"Wisdom":   creature.Wisdom,
		"cha":      creature.Charisma,
	} {
		got, err := creature.ParseAbility(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := creature.ParseAbility("luck")
	assert.True(t, rpgerr.IsInvalidInput(err))
}

func TestAbilityScores_ModifierByName_UnknownIsZero(t *testing.T) {
	s := creature.NewAbilityScores(16, 14, 12, 8, 10, 18)
	assert.Equal(t, 3, s.ModifierByName("strength"))
	assert.Equal(t, 2, s.ModifierByName("dex"))
	assert.Equal(t, -1, s.ModifierByName("intelligence"))
	assert.Equal(t, 4, s.ModifierByName("CHA"))
	assert.Equal(t, 0, s.ModifierByName("sanity"))
}

func TestAbility_YAML(t *testing.T) {
	var doc struct {
		Ability creature.Ability `yaml:"ability"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("ability: dex\n"), &doc))
	assert.Equal(t, creature.Dexterity, doc.Ability)
	assert.Error(t, yaml.Unmarshal([]byte("ability: moxie\n"), &doc))
}

func TestCreature_DamageAndHeal(t *testing.T) {
	c := creature.New("Goblin", 7, 15, creature.NewAbilityScores(8, 14, 10, 10, 8, 8))
	assert.Equal(t, 7, c.CurrentHP)
	assert.Equal(t, 2, c.InitiativeModifier())

	assert.Equal(t, 5, c.TakeDamage(5))
	assert.Equal(t, 1, c.Heal(1))
	assert.Equal(t, 0, c.Heal(-3))
	assert.Equal(t, 4, c.Heal(10), "heal caps at MaxHP")

	r := c.ReceiveDamage(30, false)
	assert.Equal(t, 7, r.Applied)
	assert.True(t, r.Killed)
	assert.True(t, c.Defeated())
	assert.False(t, c.IsAlive())
	assert.Equal(t, 0, c.Heal(5), "a creature at 0 HP cannot be healed")
}

func TestCreature_Property_HPStaysInBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		maxHP := rapid.IntRange(1, 200).Draw(rt, "max_hp")
		c := creature.New("X", maxHP, 10, creature.AbilityScores{})
		for _, n := range rapid.SliceOfN(rapid.IntRange(-50, 50), 1, 30).Draw(rt, "ops") {
			if n >= 0 {
				c.TakeDamage(n)
			} else {
				c.Heal(-n)
			}
			assert.GreaterOrEqual(rt, c.CurrentHP, 0)
			assert.LessOrEqual(rt, c.CurrentHP, c.MaxHP)
		}
	})
}

func TestCreature_DuplicateNamesHaveDistinctIDs(t *testing.T) {
	a := creature.New("Goblin", 7, 15, creature.AbilityScores{})
	b := creature.New("Goblin", 7, 15, creature.AbilityScores{})
	assert.NotEqual(t, a.ID, b.ID)
}

func TestCreature_SaveBonusesOverrideModifier(t *testing.T) {
	c := creature.New("Ogre", 59, 11, creature.NewAbilityScores(19, 8, 16, 5, 7, 7))
	assert.Equal(t, -2, c.SaveModifier(creature.Wisdom))
	c.SaveBonuses = map[creature.Ability]int{creature.Wisdom: 1}
	assert.Equal(t, 1, c.SaveModifier(creature.Wisdom))
}

func TestConditionSet(t *testing.T) {
	c := creature.New("Hero", 10, 10, creature.AbilityScores{})
	c.AddCondition("prone")
	c.ApplyCondition(creature.AppliedCondition{ID: "poisoned", DurationRemaining: 2})
	c.ApplyCondition(creature.AppliedCondition{ID: "blinded", DurationRemaining: 1,
		RepeatSave: &creature.RepeatSave{Ability: creature.Constitution, DC: 12}})
	assert.Equal(t, []string{"blinded", "poisoned", "prone"}, c.ConditionIDs())

	c.ApplyCondition(creature.AppliedCondition{ID: "poisoned", DurationRemaining: 1})
	got, ok := c.Conditions.Get("poisoned")
	require.True(t, ok)
	assert.Equal(t, 2, got.DurationRemaining, "shorter re-apply must not shorten duration")

	assert.Equal(t, []string{"blinded"}, c.Conditions.Tick())
	assert.Equal(t, []string{"poisoned"}, c.Conditions.Tick())
	assert.Empty(t, c.Conditions.Tick())
	assert.True(t, c.HasCondition("prone"))

	assert.True(t, c.RemoveCondition("prone"))
	assert.False(t, c.RemoveCondition("prone"))
	assert.Equal(t, 0, c.Conditions.Len())
}

func fighter() *creature.Character {
	return creature.NewCharacter("Brakka", creature.Fighter, 1,
		creature.NewAbilityScores(16, 12, 14, 10, 10, 8), 12, 16)
}

func wizard() *creature.Character {
	return creature.NewCharacter("Elminster", creature.Wizard, 1,
		creature.NewAbilityScores(8, 14, 12, 16, 12, 10), 7, 12)
}

func TestProficiencyBonus(t *testing.T) {
	tests := []struct{ level, want int }{
		{1, 2}, {4, 2}, {5, 3}, {8, 3}, {9, 4}, {12, 4}, {13, 5}, {16, 5}, {17, 6}, {20, 6}, {0, 2},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, creature.ProficiencyBonus(tc.level), "level=%d", tc.level)
	}
}

// TestFighter_AttackBonus covers the level-1 fighter scenario: STR 16 and
// proficiency 2 give +5, so a 15 hits AC 20.
func TestFighter_AttackBonus(t *testing.T) {
	f := fighter()
	assert.Equal(t, 2, f.ProficiencyBonus())
	assert.Equal(t, 5, f.AttackBonus(creature.Melee, true))
	assert.Equal(t, 3, f.AttackBonus(creature.Melee, false))
	assert.Equal(t, 3, f.DamageBonus(creature.Melee))
	assert.Equal(t, 3, f.AttackBonus(creature.Ranged, true))
	assert.Equal(t, 5, f.AttackBonus(creature.Finesse, true), "finesse picks the better of STR and DEX")
	assert.GreaterOrEqual(t, 15+f.AttackBonus(creature.Melee, true), 20)
}

// TestWizard_SpellNumbers covers the level-1 wizard scenario: INT 16 gives DC 13 and +5.
func TestWizard_SpellNumbers(t *testing.T) {
	w := wizard()
	dc, err := w.SpellSaveDC()
	require.NoError(t, err)
	assert.Equal(t, 13, dc)
	bonus, err := w.SpellAttackBonus()
	require.NoError(t, err)
	assert.Equal(t, 5, bonus)

	a, ok := w.SpellcastingAbility()
	require.True(t, ok)
	assert.Equal(t, creature.Intelligence, a)
}

func TestSpellAttackBonus_NonCaster(t *testing.T) {
	_, err := fighter().SpellAttackBonus()
	assert.True(t, rpgerr.IsPrecondition(err))

	f := fighter()
	intel := creature.Intelligence
	f.CastingAbility = &intel
	bonus, err := f.SpellAttackBonus()
	require.NoError(t, err)
	assert.Equal(t, 2, bonus, "eldritch knight style override uses INT 10")
}

func TestCharacter_SaveModifierIncludesProficiency(t *testing.T) {
	f := fighter()
	assert.Equal(t, 5, f.SaveModifier(creature.Strength))
	assert.Equal(t, 4, f.SaveModifier(creature.Constitution))
	assert.Equal(t, 1, f.SaveModifier(creature.Dexterity))
}

func TestCharacter_SkillModifierWithExpertise(t *testing.T) {
	rogue := creature.NewCharacter("Vex", creature.Rogue, 1,
		creature.NewAbilityScores(10, 16, 12, 12, 10, 14), 9, 14)
	rogue.SkillProficiencies = map[creature.Skill]bool{creature.Stealth: true, creature.Perception: true}
	rogue.Expertise = map[creature.Skill]bool{creature.Stealth: true}
	assert.Equal(t, 7, rogue.SkillModifier(creature.Stealth))
	assert.Equal(t, 2, rogue.SkillModifier(creature.Perception))
	assert.Equal(t, 0, rogue.SkillModifier(creature.Athletics))

	res, err := rogue.SkillCheck(creature.Stealth, 15, dice.NewRoller(testutil.FixedSource{Face: 8}), dice.Normal)
	require.NoError(t, err)
	assert.Equal(t, 15, res.Total)
	assert.True(t, res.Success)
}

func TestParseSkill(t *testing.T) {
	s, err := creature.ParseSkill("Sleight of Hand")
	require.NoError(t, err)
	assert.Equal(t, creature.SleightOfHand, s)
	assert.Equal(t, creature.Dexterity, s.Ability())

	_, err = creature.ParseSkill("basket weaving")
	assert.True(t, rpgerr.IsInvalidInput(err))
}

func TestSneakAttackDice(t *testing.T) {
	rogue := creature.NewCharacter("Vex", creature.Rogue, 1, creature.AbilityScores{}, 9, 14)
	for level, want := range map[int]int{1: 1, 2: 1, 3: 2, 5: 3, 11: 6, 19: 10, 20: 10} {
		rogue.Level = level
		d, ok := rogue.SneakAttackDice()
		require.True(t, ok)
		assert.Equal(t, want, d.Count, "level=%d", level)
		assert.Equal(t, 6, d.Sides)
	}
	_, ok := fighter().SneakAttackDice()
	assert.False(t, ok)
}

func TestCharacter_PartialDataIsInert(t *testing.T) {
	ch := &creature.Character{Creature: *creature.New("Loaded", 10, 10, creature.NewAbilityScores(10, 10, 10, 10, 10, 10))}
	_, ok := ch.SubclassName()
	assert.False(t, ok)
	assert.Equal(t, 0, ch.SkillModifier(creature.Arcana))
	assert.Equal(t, 0, ch.SaveModifier(creature.Wisdom))
	assert.Empty(t, ch.ShortRest())
	_, err := ch.UseResource("rage", 1)
	assert.True(t, rpgerr.IsInvalidInput(err))
}

func TestCharacter_DamageAtZeroAddsFailures(t *testing.T) {
	f := fighter()
	r := f.ReceiveDamage(12, false)
	assert.Equal(t, 0, f.CurrentHP)
	assert.False(t, r.Killed)
	assert.True(t, f.IsDying())
	assert.False(t, f.Defeated())

	r = f.ReceiveDamage(3, false)
	assert.Equal(t, 1, r.DeathSaveFailures)
	r = f.ReceiveDamage(3, true)
	assert.Equal(t, 2, r.DeathSaveFailures)
	assert.True(t, r.Killed)
	assert.True(t, f.IsDead())
	assert.Equal(t, 0, f.Heal(10), "the dead cannot be healed")
}

func TestCharacter_MassiveDamage(t *testing.T) {
	f := fighter()
	f.CurrentHP = 5
	r := f.ReceiveDamage(17, false)
	assert.True(t, r.Massive)
	assert.True(t, f.IsDead())

	g := fighter()
	g.CurrentHP = 5
	r = g.ReceiveDamage(16, false)
	assert.False(t, r.Massive, "overflow of 11 is below MaxHP 12")
	assert.True(t, g.IsDying())
}

func TestCharacter_HealRevivesDying(t *testing.T) {
	f := fighter()
	f.ReceiveDamage(12, false)
	f.ReceiveDamage(1, false)
	assert.Equal(t, 4, f.Heal(4))
	assert.Equal(t, creature.DeathSaves{}, f.DeathSaves)
	assert.False(t, f.IsDying())
}

func TestMakeDeathSave_Preconditions(t *testing.T) {
	f := fighter()
	_, err := f.MakeDeathSave(dice.NewRoller(testutil.FixedSource{Face: 10}))
	assert.True(t, rpgerr.IsPrecondition(err), "conscious characters cannot roll")
}

// TestDeathSaves_NaturalOneCountsDouble: a 1 and a 5 reach three failures.
func TestDeathSaves_NaturalOneCountsDouble(t *testing.T) {
	f := fighter()
	f.CurrentHP = 0
	r := dice.NewRoller(testutil.NewSequence(1, 5))

	res, err := f.MakeDeathSave(r)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Failures)
	assert.False(t, res.Dead)

	res, err = f.MakeDeathSave(r)
	require.NoError(t, err)
	assert.True(t, res.Dead)
	assert.True(t, f.IsDead())

	_, err = f.MakeDeathSave(r)
	assert.True(t, rpgerr.IsPrecondition(err))
}

func TestDeathSaves_NaturalTwentyRevives(t *testing.T) {
	f := fighter()
	f.CurrentHP = 0
	f.DeathSaves = creature.DeathSaves{Successes: 1, Failures: 2}
	res, err := f.MakeDeathSave(dice.NewRoller(testutil.FixedSource{Face: 20}))
	require.NoError(t, err)
	assert.True(t, res.Revived)
	assert.Equal(t, 1, f.CurrentHP)
	assert.Equal(t, creature.DeathSaves{}, f.DeathSaves)
}

func TestDeathSaves_ThreeSuccessesStabilize(t *testing.T) {
	f := fighter()
	f.CurrentHP = 0
	r := dice.NewRoller(testutil.NewSequence(10, 9, 15, 19))
	for range 4 {
		_, err := f.MakeDeathSave(r)
		require.NoError(t, err)
	}
	assert.True(t, f.DeathSaves.Stable)
	assert.Equal(t, 1, f.DeathSaves.Failures)
	assert.False(t, f.IsDying())

	_, err := f.MakeDeathSave(r)
	assert.True(t, rpgerr.IsPrecondition(err), "stable characters do not roll")
}

func TestDeathSaves_Property_CountersBounded(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		faces := rapid.SliceOfN(rapid.IntRange(1, 20), 1, 10).Draw(rt, "faces")
		f := fighter()
		f.CurrentHP = 0
		r := dice.NewRoller(testutil.NewSequence(faces...))
		for range faces {
			if !f.IsDying() {
				break
			}
			_, err := f.MakeDeathSave(r)
			require.NoError(rt, err)
			assert.LessOrEqual(rt, f.DeathSaves.Failures, 3)
			assert.LessOrEqual(rt, f.DeathSaves.Successes, 3)
		}
	})
}

func TestRollSave_UsesProficiency(t *testing.T) {
	f := fighter()
	res, err := creature.RollSave(f, creature.Constitution, 14, dice.NewRoller(testutil.FixedSource{Face: 10}), dice.Normal)
	require.NoError(t, err)
	assert.Equal(t, 14, res.Total)
	assert.True(t, res.Success)
	assert.Equal(t, "constitution save: 10+4 = 14 vs DC 14 (success)", res.String())
}

func TestRollAbilityCheck_UnknownAbility(t *testing.T) {
	c := creature.New("Hero", 10, 10, creature.NewAbilityScores(18, 10, 10, 10, 10, 10))
	r := dice.NewRoller(testutil.FixedSource{Face: 12})

	res, err := creature.RollAbilityCheck(c, "strength", 15, r)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Modifier)
	assert.True(t, res.Success)

	res, err = creature.RollAbilityCheck(c, "luck", 15, r)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Modifier, "unknown abilities contribute 0")
	assert.False(t, res.Success)
}

func TestCharacter_LongRest(t *testing.T) {
	f := fighter()
	f.Resources.Add(resource.NewPool("second_wind", 1, resource.ShortRest))
	ok, err := f.UseResource("second_wind", 1)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = f.UseResource("second_wind", 1)
	require.NoError(t, err)
	assert.False(t, ok)

	f.TakeDamage(6)
	assert.Equal(t, []string{"second_wind"}, f.LongRest())
	assert.Equal(t, f.MaxHP, f.CurrentHP)
}
