package srd

// SpellData is the SRD spell document as served by the 5e API and stored in
// the 5e-database JSON dumps. Only the fields the converter reads are kept.
type SpellData struct {
	Index         string            `json:"index"`
	Name          string            `json:"name"`
	Level         int               `json:"level"`
	Desc          []string          `json:"desc"`
	Range         string            `json:"range"`
	Duration      string            `json:"duration"`
	Concentration bool              `json:"concentration"`
	Ritual        bool              `json:"ritual"`
	CastingTime   string            `json:"casting_time"`
	AttackType    string            `json:"attack_type"`
	School        NamedRef          `json:"school"`
	Classes       []NamedRef        `json:"classes"`
	Damage        *DamageData       `json:"damage"`
	HealAtSlot    map[int]string    `json:"heal_at_slot_level"`
	DC            *DCData           `json:"dc"`
	AreaOfEffect  *AreaOfEffectData `json:"area_of_effect"`
}

// NamedRef is an API reference: a stable index plus a display name.
type NamedRef struct {
	Index string `json:"index"`
	Name  string `json:"name"`
}

// DamageData holds per-slot or per-character-level damage dice.
type DamageData struct {
	DamageType    NamedRef       `json:"damage_type"`
	AtSlotLevel   map[int]string `json:"damage_at_slot_level"`
	AtCasterLevel map[int]string `json:"damage_at_character_level"`
}

// DCData names the saving throw and what a success does.
type DCData struct {
	Type    NamedRef `json:"dc_type"`
	Success string   `json:"dc_success"`
}

// AreaOfEffectData is the spell's area shape and size in feet.
type AreaOfEffectData struct {
	Type string `json:"type"`
	Size int    `json:"size"`
}
