package ruleset_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	rpgerr "github.com/cory-johannsen/dnd-combat/internal/errors"
	"github.com/cory-johannsen/dnd-combat/internal/game/creature"
	"github.com/cory-johannsen/dnd-combat/internal/game/resource"
	"github.com/cory-johannsen/dnd-combat/internal/game/ruleset"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

const fighterYAML = `
id: fighter
name: Fighter
hit_die: 10
saving_throws: [strength, constitution]
weapon_proficiencies: [simple, martial]
armor_proficiencies: [light, medium, heavy, shields]
resources:
  - name: second_wind
    recovery: short_rest
    uses_by_level: {1: 1}
  - name: action_surge
    recovery: short_rest
    uses_by_level: {2: 1, 17: 2}
`

const wizardYAML = `
id: wizard
name: Wizard
hit_die: 6
saving_throws: [int, wis]
weapon_proficiencies: [dagger, quarterstaff]
spell_slots:
  1: [2]
  2: [3]
  3: [4, 2]
  4: [4, 3]
  5: [4, 3, 2]
`

const rogueYAML = `
id: rogue
name: Rogue
hit_die: 8
saving_throws: [dexterity, intelligence]
weapon_proficiencies: [simple, rapier, shortsword]
`

func testRuleset(t *testing.T) *ruleset.Ruleset {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "fighter.yaml"), fighterYAML)
	writeFile(t, filepath.Join(dir, "wizard.yaml"), wizardYAML)
	writeFile(t, filepath.Join(dir, "rogue.yaml"), rogueYAML)
	classes, err := ruleset.LoadClasses(dir)
	require.NoError(t, err)

	weapons := []*ruleset.WeaponDef{
		{ID: "longsword", Name: "Longsword", Category: "martial", DamageDice: "1d8", DamageType: "slashing"},
		{ID: "rapier", Name: "Rapier", Category: "martial", DamageDice: "1d8", DamageType: "piercing", Properties: []string{"finesse"}},
		{ID: "shortbow", Name: "Shortbow", Category: "simple", DamageDice: "1d6", DamageType: "piercing", RangeFt: 80},
		{ID: "greataxe", Name: "Greataxe", Category: "martial", DamageDice: "1d12", DamageType: "slashing"},
	}
	monsters := []*ruleset.MonsterDef{{
		ID: "goblin", Name: "Goblin", HitPoints: 7, ArmorClass: 15,
		Abilities: creature.AbilityScores{Strength: 8, Dexterity: 14},
		Attacks:   []ruleset.MonsterAttack{{Name: "Scimitar", Bonus: 4, Damage: "1d6+2", DamageType: "slashing"}},
	}}
	return ruleset.New(classes, weapons, monsters, nil)
}

func TestLoadClasses_ParsesYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "fighter.yaml"), fighterYAML)
	classes, err := ruleset.LoadClasses(dir)
	require.NoError(t, err)
	require.Len(t, classes, 1)
	c := classes[0]
	assert.Equal(t, "fighter", c.ID)
	assert.Equal(t, 10, c.HitDie)
	assert.Equal(t, []creature.Ability{creature.Strength, creature.Constitution}, c.SavingThrows)
	require.Len(t, c.Resources, 2)
	assert.Equal(t, resource.ShortRest, c.Resources[0].Recovery)
	assert.Equal(t, 0, c.Resources[1].UsesAt(1))
	assert.Equal(t, 1, c.Resources[1].UsesAt(16))
	assert.Equal(t, 2, c.Resources[1].UsesAt(20))
}

func TestLoadClasses_EmptyDir(t *testing.T) {
	classes, err := ruleset.LoadClasses(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, classes)
}

func TestLoadClasses_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bad.yaml"), `{{{ not yaml`)
	_, err := ruleset.LoadClasses(dir)
	require.Error(t, err)
}

func TestLoadClasses_RejectsUnknownClassAndHitDie(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "ganger.yaml"), "id: ganger\nname: Ganger\nhit_die: 7\n")
	_, err := ruleset.LoadClasses(dir)
	require.Error(t, err)
	assert.True(t, rpgerr.IsInvalidInput(err))
	assert.Contains(t, err.Error(), "ganger")
	assert.Contains(t, err.Error(), "hit_die")
}

func TestClassDef_SlotsAt(t *testing.T) {
	r := testRuleset(t)
	wiz, err := r.Class("Wizard")
	require.NoError(t, err)
	assert.Equal(t, []int{2}, wiz.SlotsAt(1))
	assert.Equal(t, []int{4, 3, 2}, wiz.SlotsAt(5))
	assert.Equal(t, []int{4, 3, 2}, wiz.SlotsAt(9), "levels past the table keep the last row")
	assert.Nil(t, wiz.SlotsAt(0))
}

func TestBuildCharacter_Fighter(t *testing.T) {
	r := testRuleset(t)
	ch, err := r.BuildCharacter(ruleset.CharacterSpec{
		Name: "Brom", Class: "fighter", Level: 5, ArmorClass: 18,
		Abilities: creature.NewAbilityScores(16, 12, 14, 10, 10, 10),
		Weapons:   []string{"longsword", "shortbow"},
	})
	require.NoError(t, err)

	assert.Equal(t, creature.Fighter, ch.Class)
	assert.Equal(t, 44, ch.MaxHP)
	assert.Equal(t, 44, ch.CurrentHP)
	assert.Equal(t, 18, ch.AC)
	assert.True(t, ch.SaveProficiencies[creature.Constitution])

	_, ok := ch.Resources.Get("second_wind")
	assert.True(t, ok)
	surge, ok := ch.Resources.Get("action_surge")
	require.True(t, ok)
	assert.Equal(t, 1, surge.Maximum)

	require.Len(t, ch.Attacks, 2)
	assert.Equal(t, creature.Attack{Name: "Longsword", Bonus: 6, Damage: "1d8+3", DamageType: "slashing"}, ch.Attacks[0])
	assert.Equal(t, creature.Attack{Name: "Shortbow", Bonus: 4, Damage: "1d6+1", DamageType: "piercing", Ranged: true}, ch.Attacks[1])
}

func TestBuildCharacter_WizardSlots(t *testing.T) {
	r := testRuleset(t)
	ch, err := r.BuildCharacter(ruleset.CharacterSpec{
		Name: "Mira", Class: "wizard", Level: 3,
		Abilities: creature.NewAbilityScores(8, 14, 12, 16, 12, 10),
		Spells:    []string{"fire_bolt", "magic_missile"},
	})
	require.NoError(t, err)
	assert.Equal(t, 12, ch.AC, "unarmored AC is 10 + dexterity")
	assert.Equal(t, 6+1+2*(4+1), ch.MaxHP)
	assert.Equal(t, []string{"fire_bolt", "magic_missile"}, ch.KnownSpells)

	first, ok := ch.Resources.Get(resource.SpellSlotName(1))
	require.True(t, ok)
	assert.Equal(t, 4, first.Maximum)
	second, ok := ch.Resources.Get(resource.SpellSlotName(2))
	require.True(t, ok)
	assert.Equal(t, 2, second.Maximum)
	_, ok = ch.Resources.Get(resource.SpellSlotName(3))
	assert.False(t, ok)
}

func TestBuildCharacter_FinesseUsesBetterAbility(t *testing.T) {
	r := testRuleset(t)
	ch, err := r.BuildCharacter(ruleset.CharacterSpec{
		Name: "Vex", Class: "rogue", Level: 1,
		Abilities: creature.NewAbilityScores(10, 16, 12, 10, 10, 14),
		Weapons:   []string{"rapier", "greataxe"},
	})
	require.NoError(t, err)
	require.Len(t, ch.Attacks, 2)
	assert.Equal(t, 5, ch.Attacks[0].Bonus)
	assert.Equal(t, "1d8+3", ch.Attacks[0].Damage)
	assert.Equal(t, 0, ch.Attacks[1].Bonus, "no proficiency with a greataxe")
	assert.Equal(t, "1d12", ch.Attacks[1].Damage)
}

func TestBuildCharacter_Errors(t *testing.T) {
	r := testRuleset(t)
	_, err := r.BuildCharacter(ruleset.CharacterSpec{Name: "X", Class: "fighter", Level: 0})
	assert.True(t, rpgerr.IsInvalidInput(err))
	_, err = r.BuildCharacter(ruleset.CharacterSpec{Name: "X", Class: "bard", Level: 1})
	assert.True(t, rpgerr.IsNotFound(err))
	_, err = r.BuildCharacter(ruleset.CharacterSpec{Name: "X", Class: "fighter", Level: 1, Weapons: []string{"lightsaber"}})
	assert.True(t, rpgerr.IsNotFound(err))
	_, err = r.BuildCharacter(ruleset.CharacterSpec{Class: "fighter", Level: 1})
	assert.True(t, rpgerr.IsInvalidInput(err))
}

func TestWeaponDef_AttackKind(t *testing.T) {
	cases := []struct {
		w    ruleset.WeaponDef
		want creature.AttackKind
	}{
		{ruleset.WeaponDef{ID: "club"}, creature.Melee},
		{ruleset.WeaponDef{ID: "dagger", RangeFt: 20, Properties: []string{"finesse", "thrown"}}, creature.Finesse},
		{ruleset.WeaponDef{ID: "handaxe", RangeFt: 20, Properties: []string{"thrown"}}, creature.Melee},
		{ruleset.WeaponDef{ID: "longbow", RangeFt: 150}, creature.Ranged},
	}
	for _, tc := range cases {
		t.Run(tc.w.ID, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.w.AttackKind())
		})
	}
}

func TestLoadWeapons_Validates(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bad.yaml"), "id: stick\nname: Stick\ncategory: exotic\ndamage_dice: d\ndamage_type: bludgeoning\n")
	_, err := ruleset.LoadWeapons(dir)
	require.Error(t, err)
	assert.True(t, rpgerr.IsInvalidInput(err))
}

func TestSpawnMonster(t *testing.T) {
	r := testRuleset(t)
	a, err := r.SpawnMonster("goblin", "Goblin 1")
	require.NoError(t, err)
	b, err := r.SpawnMonster("goblin", "")
	require.NoError(t, err)

	assert.Equal(t, "Goblin 1", a.Name)
	assert.Equal(t, "Goblin", b.Name)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 7, a.CurrentHP)
	assert.Equal(t, 10, a.Abilities.Constitution, "unlisted scores default to 10")
	assert.Equal(t, 2, a.InitiativeModifier())
	require.Len(t, a.Attacks, 1)
	assert.Equal(t, "1d6+2", a.Attacks[0].Damage)

	_, err = r.SpawnMonster("dragon", "")
	assert.True(t, rpgerr.IsNotFound(err))
}

func TestLoadMonsters_ParsesSavesAndConditions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "zombie.yaml"), `
id: zombie
name: Zombie
hit_points: 22
armor_class: 8
abilities: {strength: 13, dexterity: 6, constitution: 16, intelligence: 3, wisdom: 6, charisma: 5}
saves: {wis: 0}
attacks:
  - {name: Slam, bonus: 3, damage: 1d6+1, damage_type: bludgeoning}
conditions: [prone]
`)
	monsters, err := ruleset.LoadMonsters(dir)
	require.NoError(t, err)
	require.Len(t, monsters, 1)
	z := ruleset.SpawnMonster(monsters[0], "")
	assert.Equal(t, 0, z.SaveModifier(creature.Wisdom))
	assert.True(t, z.HasCondition("prone"))
}

func TestLoadEncounters_RequiresBothSides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "empty.yaml"), "id: empty\nparty: []\nmonsters: [{id: goblin, count: 1}]\n")
	_, err := ruleset.LoadEncounters(dir)
	assert.True(t, rpgerr.IsInvalidInput(err))
}

func TestLoad_ActualContent(t *testing.T) {
	classes, err := ruleset.LoadClasses("../../../content/classes")
	require.NoError(t, err)
	weapons, err := ruleset.LoadWeapons("../../../content/weapons")
	require.NoError(t, err)
	monsters, err := ruleset.LoadMonsters("../../../content/monsters")
	require.NoError(t, err)
	encounters, err := ruleset.LoadEncounters("../../../content/encounters")
	require.NoError(t, err)
	require.NotEmpty(t, encounters)

	r := ruleset.New(classes, weapons, monsters, encounters)
	for _, e := range encounters {
		for _, spec := range e.Party {
			_, err := r.BuildCharacter(spec)
			assert.NoError(t, err, "encounter %s member %s", e.ID, spec.Name)
		}
		for _, g := range e.Monsters {
			_, err := r.Monster(g.ID)
			assert.NoError(t, err, "encounter %s", e.ID)
		}
	}
}

// Property: HP never drops when a level is gained and is at least the level.
func TestHitPoints_Monotonic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		hitDie := rapid.SampledFrom([]int{6, 8, 10, 12}).Draw(rt, "hitDie")
		con := rapid.IntRange(-5, 5).Draw(rt, "con")
		level := rapid.IntRange(1, 19).Draw(rt, "level")
		a := ruleset.HitPoints(hitDie, level, con)
		b := ruleset.HitPoints(hitDie, level+1, con)
		if b <= a {
			rt.Fatalf("HP did not grow from level %d (%d) to %d (%d)", level, a, level+1, b)
		}
		if a < level {
			rt.Fatalf("HP %d below level %d", a, level)
		}
	})
}
