// Package tuning holds the parameter set: every threshold and weight the
// engine reads. Defaults are complete; a YAML file overlays them so no
// downstream read can hit a missing field.
package tuning

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	// Clock.
	DayMinutes int `yaml:"day_minutes"`

	// Starting state.
	StartEnergyMax float64 `yaml:"start_energy_max"`
	StartWaterMax  float64 `yaml:"start_water_max"`
	StartGold      int     `yaml:"start_gold"`
	StartPlots     int     `yaml:"start_plots"`

	// Growth.
	WaterDecayPerMinute float64 `yaml:"water_decay_per_minute"`
	DryWaterThreshold   float64 `yaml:"dry_water_threshold"`
	DryGrowthFactor     float64 `yaml:"dry_growth_factor"`
	DroughtMinutes      float64 `yaml:"drought_minutes"`

	// Crafting.
	CraftBaseSuccess   float64 `yaml:"craft_base_success"`
	CraftHeatBonus     float64 `yaml:"craft_heat_bonus"`
	HeatDecayPerMinute float64 `yaml:"heat_decay_per_minute"`
	HeatNudgePlayer    float64 `yaml:"heat_nudge_player"`
	HeatNudgeHelper    float64 `yaml:"heat_nudge_helper"`
	DoubleOutputChance float64 `yaml:"double_output_chance"`
	DoubleOutputUnlock string  `yaml:"double_output_unlock"`

	// Mining.
	MiningTierSize       float64 `yaml:"mining_tier_size"`
	MiningDepthPerMinute float64 `yaml:"mining_depth_per_minute"`
	MiningDropEveryMin   int     `yaml:"mining_drop_every_minutes"`

	// Helpers.
	HelperBaseLabor         float64 `yaml:"helper_base_labor"`
	HelperPerLevelBonus     float64 `yaml:"helper_per_level_bonus"`
	HelperSecondaryFraction float64 `yaml:"helper_secondary_fraction"`
	HelperSecondaryUnlock   string  `yaml:"helper_secondary_unlock"`
	HelperTrainCostGold     int     `yaml:"helper_train_cost_gold"`

	// Combat.
	HeroBaseHP     float64 `yaml:"hero_base_hp"`
	HeroHPPerLevel float64 `yaml:"hero_hp_per_level"`

	// Progression.
	XPPerLevel int `yaml:"xp_per_level"`

	// Decision engine.
	EnergyLowThreshold   float64 `yaml:"energy_low_threshold"`
	WaterLowThreshold    float64 `yaml:"water_low_threshold"`
	UrgencyMultiplier    float64 `yaml:"urgency_multiplier"`
	ContextCooldownMin   int     `yaml:"context_cooldown_minutes"`
	ContextChangePenalty float64 `yaml:"context_change_penalty"`

	// Progress monitor.
	StuckDays       int     `yaml:"stuck_days"`
	MinViableEnergy float64 `yaml:"min_viable_energy"`
	MinViableWater  float64 `yaml:"min_viable_water"`
	MinViableGold   int     `yaml:"min_viable_gold"`
	VictoryPlots    int     `yaml:"victory_plots"`
	VictoryLevel    int     `yaml:"victory_level"`
	MaxDays         int     `yaml:"max_days"`

	Digest string `yaml:"-"`
}

func Defaults() Tuning {
	return Tuning{
		DayMinutes: 1440,

		StartEnergyMax: 50,
		StartWaterMax:  20,
		StartGold:      100,
		StartPlots:     4,

		WaterDecayPerMinute: 0.005,
		DryWaterThreshold:   0.3,
		DryGrowthFactor:     0.5,
		DroughtMinutes:      240,

		CraftBaseSuccess:   0.85,
		CraftHeatBonus:     0.15,
		HeatDecayPerMinute: 0.01,
		HeatNudgePlayer:    0.4,
		HeatNudgeHelper:    0.1,
		DoubleOutputChance: 0.1,
		DoubleOutputUnlock: "upgrade:master_forge",

		MiningTierSize:       20,
		MiningDepthPerMinute: 1,
		MiningDropEveryMin:   1,

		HelperBaseLabor:         1,
		HelperPerLevelBonus:     0.5,
		HelperSecondaryFraction: 0.5,
		HelperSecondaryUnlock:   "upgrade:cross_training",
		HelperTrainCostGold:     50,

		HeroBaseHP:     100,
		HeroHPPerLevel: 10,

		XPPerLevel: 100,

		EnergyLowThreshold:   0.25,
		WaterLowThreshold:    0.25,
		UrgencyMultiplier:    2,
		ContextCooldownMin:   5,
		ContextChangePenalty: 2,

		StuckDays:       3,
		MinViableEnergy: 10,
		MinViableWater:  5,
		MinViableGold:   20,
		VictoryPlots:    24,
		VictoryLevel:    15,
		MaxDays:         60,
	}
}

// Load overlays a YAML file on Defaults(); missing fields keep their default.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	sum := sha256.Sum256(raw)
	t.Digest = hex.EncodeToString(sum[:])
	return t, nil
}
