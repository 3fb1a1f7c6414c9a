package creature

// Combatant is anything that can occupy a slot in the initiative order and be
// targeted by an attack or a spell. *Creature and *Character both satisfy it;
// Stats exposes the shared record so every holder sees the same HP and
// conditions.
type Combatant interface {
	Stats() *Creature
	SaveModifier(a Ability) int
	ReceiveDamage(amount int, critical bool) DamageReport
	Heal(amount int) int
	Defeated() bool
}

// Spellcaster is a Combatant that may have a spellcasting ability.
type Spellcaster interface {
	Combatant
	ProficiencyBonus() int
	SpellcastingAbility() (Ability, bool)
	CasterLevel() int
}

var (
	_ Combatant   = (*Creature)(nil)
	_ Combatant   = (*Character)(nil)
	_ Spellcaster = (*Character)(nil)
)
