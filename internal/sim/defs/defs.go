// Package defs holds the read-only item/rule definition set the simulation
// consumes. Definitions are loaded once, digested, and never mutated.
package defs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

type Set struct {
	Crops      map[string]CropDef
	Items      map[string]ItemDef
	Recipes    map[string]RecipeDef
	Weapons    map[string]WeaponDef
	Armor      map[string]ArmorDef
	Enemies    map[string]EnemyDef
	Encounters map[string]EncounterDef
	Cleanups   map[string]CleanupDef
	Helpers    map[string]HelperDef
	DropTiers  []DropTier
	Phases     []PhaseDef

	Digest string
}

type CropDef struct {
	ID                 string   `json:"id"`
	SeedCostGold       int      `json:"seed_cost_gold"`
	PlantEnergy        float64  `json:"plant_energy"`
	GrowthTimeMinutes  float64  `json:"growth_time_minutes"`
	StageCount         int      `json:"stage_count"`
	YieldEnergy        float64  `json:"yield_energy"`
	YieldGold          int      `json:"yield_gold"`
	YieldXP            int      `json:"yield_xp"`
	Requires           []string `json:"requires,omitempty"`
}

// ItemDef covers purchasables: tools, upgrades, seeds-unlocking blueprints,
// helper housing. Kind selects which numeric fields matter.
type ItemDef struct {
	ID               string   `json:"id"`
	Kind             string   `json:"kind"` // "TOOL","UPGRADE","BLUEPRINT","HOUSING"
	CostGold         int      `json:"cost_gold"`
	MiningEfficiency float64  `json:"mining_efficiency,omitempty"` // 0..1 drain reduction
	Requires         []string `json:"requires,omitempty"`
}

type RecipeDef struct {
	ID          string         `json:"id"`
	Inputs      map[string]int `json:"inputs"` // material id -> count
	TimeMinutes float64        `json:"time_minutes"`
	OutputItem  string         `json:"output_item"`
	OutputKind  string         `json:"output_kind"` // "TOOL","UPGRADE","ARMOR","WEAPON_LEVEL"
	Requires    []string       `json:"requires,omitempty"`
}

type WeaponDef struct {
	Family         string   `json:"family"`
	BaseDamage     float64  `json:"base_damage"`
	PerLevelDamage float64  `json:"per_level_damage"`
	AttackSpeed    float64  `json:"attack_speed"` // attacks per second
	CostGold       int      `json:"cost_gold"`
	Requires       []string `json:"requires,omitempty"`
}

type ArmorDef struct {
	ID       string      `json:"id"`
	Slot     string      `json:"slot"`
	Defense  float64     `json:"defense"` // 0..1 incoming damage reduction
	Effect   ArmorEffect `json:"effect,omitempty"`
	CostGold int         `json:"cost_gold"`
	Requires []string    `json:"requires,omitempty"`
}

// ArmorEffect is a probabilistic special applied during combat resolution.
type ArmorEffect struct {
	Kind   string  `json:"kind,omitempty"` // "NEGATE","REFLECT","HEAL_BETWEEN_WAVES","HEAL_PER_KILL","GOLD_MULT"
	Chance float64 `json:"chance,omitempty"`
	Amount float64 `json:"amount,omitempty"`
	Cap    float64 `json:"cap,omitempty"` // per-wave cap for HEAL_PER_KILL
}

type EnemyDef struct {
	ID      string  `json:"id"`
	Type    string  `json:"type"` // one of the five enemy types
	HP      float64 `json:"hp"`
	DPS     float64 `json:"dps"`
	WeakTo  string  `json:"weak_to,omitempty"`  // weapon family, 1.5x
	Resists string  `json:"resists,omitempty"`  // weapon family, 0.5x
}

type EncounterDef struct {
	ID             string             `json:"id"`
	Waves          int                `json:"waves"`
	EnemiesPerWave int                `json:"enemies_per_wave"`
	Composition    map[string]float64 `json:"composition"` // enemy id -> weight
	Boss           *BossDef           `json:"boss,omitempty"`
	EnergyCost     float64            `json:"energy_cost"`
	RewardGold     int                `json:"reward_gold"`
	RewardXP       int                `json:"reward_xp"`
	Loot           map[string]int     `json:"loot,omitempty"` // material id -> count
	Requires       []string           `json:"requires,omitempty"`
}

type BossDef struct {
	EnemyID  string   `json:"enemy_id"`
	Weakness string   `json:"weakness"` // ideal weapon family
	Quirk    QuirkDef `json:"quirk"`
}

// QuirkDef is the boss's named mechanical modifier. FLAT_DAMAGE applies a
// fixed HP penalty when the ideal weapon is missing; DURATION_MULT stretches
// the boss fight (and therefore incoming damage) by Amount.
type QuirkDef struct {
	Name   string  `json:"name"`
	Kind   string  `json:"kind"` // "FLAT_DAMAGE","DURATION_MULT"
	Amount float64 `json:"amount"`
}

type CleanupDef struct {
	ID         string   `json:"id"`
	CostGold   int      `json:"cost_gold"`
	CostEnergy float64  `json:"cost_energy"`
	PlotsAdded int      `json:"plots_added"`
	Requires   []string `json:"requires,omitempty"`
}

type HelperDef struct {
	ID           string   `json:"id"`
	HireCostGold int      `json:"hire_cost_gold"`
	HouseItem    string   `json:"house_item"` // HOUSING item that shelters this helper
	Requires     []string `json:"requires,omitempty"`
}

type DropTier struct {
	Tier  int            `json:"tier"`
	Drops []WeightedDrop `json:"drops"`
}

type WeightedDrop struct {
	Material string  `json:"material"`
	Weight   float64 `json:"weight"`
	Count    int     `json:"count"`
}

// PhaseDef thresholds are ORed: a phase is reached when either plots or
// level qualifies, whichever is further along.
type PhaseDef struct {
	Name     string `json:"name"`
	MinPlots int    `json:"min_plots"`
	MinLevel int    `json:"min_level"`
}

// document mirrors the on-disk defs.json layout.
type document struct {
	Crops      []CropDef      `json:"crops"`
	Items      []ItemDef      `json:"items"`
	Recipes    []RecipeDef    `json:"recipes"`
	Weapons    []WeaponDef    `json:"weapons"`
	Armor      []ArmorDef     `json:"armor"`
	Enemies    []EnemyDef     `json:"enemies"`
	Encounters []EncounterDef `json:"encounters"`
	Cleanups   []CleanupDef   `json:"cleanups"`
	Helpers    []HelperDef    `json:"helpers"`
	DropTiers  []DropTier     `json:"drop_tiers"`
	Phases     []PhaseDef     `json:"phases"`
}

// Load reads and validates a defs.json document. Malformed individual
// records are skipped and reported as warnings; only a document that cannot
// be parsed or fails schema validation is an error.
func Load(path string) (*Set, []string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Set, []string, error) {
	if err := validateSchema(raw); err != nil {
		return nil, nil, fmt.Errorf("defs schema: %w", err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, fmt.Errorf("defs.json: %w", err)
	}

	s := &Set{
		Crops:      map[string]CropDef{},
		Items:      map[string]ItemDef{},
		Recipes:    map[string]RecipeDef{},
		Weapons:    map[string]WeaponDef{},
		Armor:      map[string]ArmorDef{},
		Enemies:    map[string]EnemyDef{},
		Encounters: map[string]EncounterDef{},
		Cleanups:   map[string]CleanupDef{},
		Helpers:    map[string]HelperDef{},
		Digest:     sha256Hex(raw),
	}
	var warns []string
	warn := func(format string, args ...any) {
		warns = append(warns, fmt.Sprintf(format, args...))
	}

	for _, d := range doc.Crops {
		if d.ID == "" || d.GrowthTimeMinutes <= 0 || d.StageCount <= 0 {
			warn("crop skipped: id=%q growth=%v stages=%d", d.ID, d.GrowthTimeMinutes, d.StageCount)
			continue
		}
		s.Crops[d.ID] = d
	}
	for _, d := range doc.Items {
		if d.ID == "" || d.Kind == "" {
			warn("item skipped: id=%q kind=%q", d.ID, d.Kind)
			continue
		}
		s.Items[d.ID] = d
	}
	for _, d := range doc.Recipes {
		if d.ID == "" || d.TimeMinutes <= 0 || d.OutputItem == "" {
			warn("recipe skipped: id=%q", d.ID)
			continue
		}
		s.Recipes[d.ID] = d
	}
	for _, d := range doc.Weapons {
		if d.Family == "" || d.BaseDamage <= 0 || d.AttackSpeed <= 0 {
			warn("weapon skipped: family=%q", d.Family)
			continue
		}
		s.Weapons[d.Family] = d
	}
	for _, d := range doc.Armor {
		if d.ID == "" {
			warn("armor skipped: empty id")
			continue
		}
		s.Armor[d.ID] = d
	}
	for _, d := range doc.Enemies {
		if d.ID == "" || d.HP <= 0 {
			warn("enemy skipped: id=%q", d.ID)
			continue
		}
		s.Enemies[d.ID] = d
	}
	for _, d := range doc.Encounters {
		if d.ID == "" || d.Waves <= 0 || d.EnemiesPerWave <= 0 || len(d.Composition) == 0 {
			warn("encounter skipped: id=%q", d.ID)
			continue
		}
		s.Encounters[d.ID] = d
	}
	for _, d := range doc.Cleanups {
		if d.ID == "" || d.PlotsAdded <= 0 {
			warn("cleanup skipped: id=%q", d.ID)
			continue
		}
		s.Cleanups[d.ID] = d
	}
	for _, d := range doc.Helpers {
		if d.ID == "" {
			warn("helper skipped: empty id")
			continue
		}
		s.Helpers[d.ID] = d
	}

	s.DropTiers = append(s.DropTiers, doc.DropTiers...)
	sort.Slice(s.DropTiers, func(i, j int) bool { return s.DropTiers[i].Tier < s.DropTiers[j].Tier })

	s.Phases = append(s.Phases, doc.Phases...)
	if len(s.Phases) == 0 {
		warn("no phases defined; using single default phase")
		s.Phases = []PhaseDef{{Name: "start"}}
	}

	return s, warns, nil
}

// DropsForTier returns the drop table whose tier is the highest one not
// exceeding tier, or nil when no table applies.
func (s *Set) DropsForTier(tier int) []WeightedDrop {
	var best []WeightedDrop
	for _, dt := range s.DropTiers {
		if dt.Tier <= tier {
			best = dt.Drops
		}
	}
	return best
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
