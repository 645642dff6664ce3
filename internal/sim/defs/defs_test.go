package defs

import (
	"strings"
	"testing"
)

const sampleDoc = `{
  "crops": [
    {"id": "turnip", "growth_time_minutes": 360, "stage_count": 3, "yield_gold": 3},
    {"id": "", "growth_time_minutes": 10, "stage_count": 2},
    {"id": "weeds", "growth_time_minutes": 0, "stage_count": 2}
  ],
  "items": [
    {"id": "iron_pick", "kind": "TOOL", "mining_efficiency": 0.5},
    {"id": "mystery", "kind": ""}
  ],
  "recipes": [
    {"id": "forge_pick", "inputs": {"ore": 3}, "time_minutes": 30, "output_item": "iron_pick", "output_kind": "TOOL"},
    {"id": "broken", "time_minutes": 30, "output_item": ""}
  ],
  "weapons": [
    {"family": "sword", "base_damage": 10, "per_level_damage": 2, "attack_speed": 1},
    {"family": "wand", "base_damage": 0, "attack_speed": 1}
  ],
  "enemies": [
    {"id": "slime", "type": "BEAST", "hp": 30, "dps": 1},
    {"id": "ghost", "type": "UNDEAD", "hp": 0}
  ],
  "encounters": [
    {"id": "meadow", "waves": 2, "enemies_per_wave": 2, "composition": {"slime": 1}},
    {"id": "void", "waves": 1, "enemies_per_wave": 1, "composition": {}}
  ],
  "drop_tiers": [
    {"tier": 3, "drops": [{"material": "gem", "weight": 1, "count": 1}]},
    {"tier": 1, "drops": [{"material": "ore", "weight": 1, "count": 1}]}
  ],
  "phases": [
    {"name": "homestead"},
    {"name": "farmstead", "min_plots": 6, "min_level": 3}
  ]
}`

func TestParseSkipsMalformedRecordsWithWarnings(t *testing.T) {
	s, warns, err := Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if len(s.Crops) != 1 {
		t.Fatalf("crops = %d, want 1 (bad records skipped)", len(s.Crops))
	}
	if _, ok := s.Crops["turnip"]; !ok {
		t.Fatalf("turnip missing")
	}
	if len(s.Items) != 1 || len(s.Recipes) != 1 || len(s.Weapons) != 1 ||
		len(s.Enemies) != 1 || len(s.Encounters) != 1 {
		t.Fatalf("skip counts wrong: items=%d recipes=%d weapons=%d enemies=%d encounters=%d",
			len(s.Items), len(s.Recipes), len(s.Weapons), len(s.Enemies), len(s.Encounters))
	}

	// One warning per skipped record: crop x2, item, recipe, weapon, enemy,
	// encounter.
	if len(warns) != 7 {
		t.Fatalf("warnings = %d, want 7: %v", len(warns), warns)
	}
	for _, w := range warns {
		if !strings.Contains(w, "skipped") {
			t.Fatalf("warning without context: %q", w)
		}
	}
}

func TestParseRejectsNonObjectDocument(t *testing.T) {
	if _, _, err := Parse([]byte(`[1,2,3]`)); err == nil {
		t.Fatalf("array document accepted")
	}
}

func TestDigestIsStableAndInputSensitive(t *testing.T) {
	a, _, err := Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	b, _, _ := Parse([]byte(sampleDoc))
	if a.Digest == "" || a.Digest != b.Digest {
		t.Fatalf("digest not stable: %q vs %q", a.Digest, b.Digest)
	}
	c, _, _ := Parse([]byte(sampleDoc + "\n"))
	if c.Digest == a.Digest {
		t.Fatalf("digest ignores input bytes")
	}
}

func TestDropsForTierPicksHighestApplicable(t *testing.T) {
	s, _, err := Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if got := s.DropsForTier(0); got != nil {
		t.Fatalf("tier 0 should have no table, got %v", got)
	}
	if got := s.DropsForTier(2); len(got) != 1 || got[0].Material != "ore" {
		t.Fatalf("tier 2 = %v, want ore table", got)
	}
	if got := s.DropsForTier(5); len(got) != 1 || got[0].Material != "gem" {
		t.Fatalf("tier 5 = %v, want gem table", got)
	}
}

func TestEmptyPhaseListGetsDefault(t *testing.T) {
	s, warns, err := Parse([]byte(`{}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(s.Phases) != 1 || s.Phases[0].Name != "start" {
		t.Fatalf("phases = %v, want single default", s.Phases)
	}
	if len(warns) != 1 {
		t.Fatalf("warnings = %v, want the default-phase notice", warns)
	}
}
