package engine

import (
	"math"
	"testing"

	"croftsim/internal/sim/defs"
)

func TestEncounterWithoutWeaponFailsImmediately(t *testing.T) {
	e := newTestEngine(t, 1)
	r := e.resolveEncounter(e.defs.Encounters["meadow"])
	if r.Victory {
		t.Fatalf("weaponless encounter won")
	}
	if r.FailWave != 1 {
		t.Fatalf("fail wave = %d, want 1", r.FailWave)
	}
	if r.FailReason != "no weapon owned" {
		t.Fatalf("fail reason = %q", r.FailReason)
	}
	if r.RewardGold != 0 || r.RewardXP != 0 || len(r.Loot) != 0 {
		t.Fatalf("failed encounter carried rewards: %+v", r)
	}
}

func TestAdvantageMultiplier(t *testing.T) {
	slime := defs.EnemyDef{ID: "slime", WeakTo: "sword", Resists: "bow"}
	if got := advantageMultiplier("sword", slime); got != 1.5 {
		t.Fatalf("weakness multiplier = %v, want 1.5", got)
	}
	if got := advantageMultiplier("bow", slime); got != 0.5 {
		t.Fatalf("resistance multiplier = %v, want 0.5", got)
	}
	if got := advantageMultiplier("spear", slime); got != 1.0 {
		t.Fatalf("neutral multiplier = %v, want 1.0", got)
	}
}

func TestBestWeaponPickedPerEnemy(t *testing.T) {
	e := newTestEngine(t, 1)
	e.s.Inv.Weapons["sword"] = &WeaponState{Level: 1}
	e.s.Inv.Weapons["bow"] = &WeaponState{Level: 1}

	// Against the slime the sword hits the weakness: 10 * 1.5 * 1 = 15,
	// while the resisted bow manages 6 * 0.5 * 2 = 6.
	family, dps := e.bestDPSAgainst(e.defs.Enemies["slime"])
	if family != "sword" || dps != 15 {
		t.Fatalf("best = %s @ %v, want sword @ 15", family, dps)
	}

	// Against the neutral ogre the bow's attack speed wins: 12 vs 10.
	family, dps = e.bestDPSAgainst(e.defs.Enemies["ogre"])
	if family != "bow" || dps != 12 {
		t.Fatalf("best = %s @ %v, want bow @ 12", family, dps)
	}
}

func TestWeaponLevelScalesDamage(t *testing.T) {
	d := defs.WeaponDef{Family: "sword", BaseDamage: 10, PerLevelDamage: 2}
	if got := weaponDamage(d, &WeaponState{Level: 1}); got != 10 {
		t.Fatalf("level 1 damage = %v, want 10", got)
	}
	if got := weaponDamage(d, &WeaponState{Level: 4}); got != 16 {
		t.Fatalf("level 4 damage = %v, want 16", got)
	}
}

func TestEncounterVictoryRewards(t *testing.T) {
	e := newTestEngine(t, 1)
	e.s.Inv.Weapons["sword"] = &WeaponState{Level: 1}

	enc := e.defs.Encounters["meadow"]
	r := e.resolveEncounter(enc)
	if !r.Victory {
		t.Fatalf("encounter lost: %+v", r)
	}
	if r.Kills != enc.Waves*enc.EnemiesPerWave {
		t.Fatalf("kills = %d, want %d", r.Kills, enc.Waves*enc.EnemiesPerWave)
	}
	if r.RewardGold != 25 || r.RewardXP != 30 {
		t.Fatalf("rewards = %d gold / %d xp", r.RewardGold, r.RewardXP)
	}
	// Four slimes at 30 HP each against 15 effective DPS: 8 seconds total.
	if math.Abs(r.DurationSec-8) > 1e-9 {
		t.Fatalf("duration = %v sec, want 8", r.DurationSec)
	}
}

func TestOverwhelmingEnemyKillsHero(t *testing.T) {
	e := newTestEngine(t, 1)
	e.s.Inv.Weapons["sword"] = &WeaponState{Level: 1}

	enc := defs.EncounterDef{
		ID: "deep_cave", Waves: 3, EnemiesPerWave: 2,
		Composition: map[string]float64{"ogre": 1},
		RewardGold:  500,
	}
	// Each ogre takes 20 seconds to kill while dealing 40 DPS: 800 incoming
	// against 110 HP. The hero drops inside wave 1.
	r := e.resolveEncounter(enc)
	if r.Victory {
		t.Fatalf("hopeless encounter won")
	}
	if r.FailWave != 1 {
		t.Fatalf("fail wave = %d, want 1", r.FailWave)
	}
	if r.HeroHP != 0 {
		t.Fatalf("hero HP = %v after defeat, want 0", r.HeroHP)
	}
	if r.RewardGold != 0 {
		t.Fatalf("defeat paid out %d gold", r.RewardGold)
	}
}

func TestArmorDefenseReducesIncoming(t *testing.T) {
	bare := newTestEngine(t, 1)
	bare.s.Inv.Weapons["sword"] = &WeaponState{Level: 1}
	armored := newTestEngine(t, 1)
	armored.s.Inv.Weapons["sword"] = &WeaponState{Level: 1}
	armored.s.Inv.Armor["leather_vest"] = true

	rb := bare.resolveEncounter(bare.defs.Encounters["meadow"])
	ra := armored.resolveEncounter(armored.defs.Encounters["meadow"])
	if !rb.Victory || !ra.Victory {
		t.Fatalf("expected both runs to win: %+v / %+v", rb, ra)
	}
	if ra.HeroHP <= rb.HeroHP {
		t.Fatalf("armor did not reduce damage: %v vs %v HP", ra.HeroHP, rb.HeroHP)
	}
}

func TestGoldMultArmorAppliesToRewardOnly(t *testing.T) {
	e := newTestEngine(t, 1)
	e.s.Inv.Weapons["sword"] = &WeaponState{Level: 1}
	e.defs.Armor["lucky_charm"] = defs.ArmorDef{
		ID: "lucky_charm", Slot: "trinket",
		Effect: defs.ArmorEffect{Kind: "GOLD_MULT", Amount: 2},
	}
	e.s.Inv.Armor["lucky_charm"] = true

	r := e.resolveEncounter(e.defs.Encounters["meadow"])
	if !r.Victory {
		t.Fatalf("encounter lost")
	}
	if r.RewardGold != 50 {
		t.Fatalf("gold with 2x charm = %d, want 50", r.RewardGold)
	}
	if r.RewardXP != 30 {
		t.Fatalf("gold multiplier touched xp: %d", r.RewardXP)
	}
}

func TestHealBetweenWavesArmor(t *testing.T) {
	withHeal := newTestEngine(t, 1)
	withHeal.s.Inv.Weapons["sword"] = &WeaponState{Level: 1}
	withHeal.defs.Armor["regen_cloak"] = defs.ArmorDef{
		ID: "regen_cloak", Slot: "back",
		Effect: defs.ArmorEffect{Kind: "HEAL_BETWEEN_WAVES", Amount: 5},
	}
	withHeal.s.Inv.Armor["regen_cloak"] = true

	without := newTestEngine(t, 1)
	without.s.Inv.Weapons["sword"] = &WeaponState{Level: 1}

	rh := withHeal.resolveEncounter(withHeal.defs.Encounters["meadow"])
	rw := without.resolveEncounter(without.defs.Encounters["meadow"])
	if rh.HeroHP-rw.HeroHP != 10 { // 5 HP after each of the two waves
		t.Fatalf("heal delta = %v, want 10", rh.HeroHP-rw.HeroHP)
	}
}

func TestBossFlatDamageQuirkNeedsIdealWeapon(t *testing.T) {
	mkEnc := func() defs.EncounterDef {
		return defs.EncounterDef{
			ID: "lair", Waves: 1, EnemiesPerWave: 1,
			Composition: map[string]float64{"slime": 1},
			Boss: &defs.BossDef{
				EnemyID:  "slime",
				Weakness: "bow",
				Quirk:    defs.QuirkDef{Name: "crushing entrance", Kind: "FLAT_DAMAGE", Amount: 50},
			},
			RewardGold: 10,
		}
	}

	ideal := newTestEngine(t, 1)
	ideal.s.Inv.Weapons["bow"] = &WeaponState{Level: 1}
	wrong := newTestEngine(t, 1)
	wrong.s.Inv.Weapons["sword"] = &WeaponState{Level: 1}

	ri := ideal.resolveEncounter(mkEnc())
	rw := wrong.resolveEncounter(mkEnc())
	if !ri.Victory || !rw.Victory {
		t.Fatalf("expected both to win: %+v / %+v", ri, rw)
	}
	if rw.HeroHP >= ri.HeroHP-40 {
		t.Fatalf("flat damage penalty missing: ideal %v HP vs wrong %v HP", ri.HeroHP, rw.HeroHP)
	}
}

func TestBossDurationMultStretchesFight(t *testing.T) {
	enc := defs.EncounterDef{
		ID: "long_lair", Waves: 1, EnemiesPerWave: 1,
		Composition: map[string]float64{"slime": 1},
		Boss: &defs.BossDef{
			EnemyID:  "slime",
			Weakness: "sword",
			Quirk:    defs.QuirkDef{Name: "stone hide", Kind: "DURATION_MULT", Amount: 3},
		},
	}
	e := newTestEngine(t, 1)
	e.s.Inv.Weapons["sword"] = &WeaponState{Level: 1}

	r := e.resolveEncounter(enc)
	if !r.Victory {
		t.Fatalf("encounter lost: %+v", r)
	}
	// One slime wave (2 sec) plus the boss at triple duration (6 sec).
	if math.Abs(r.DurationSec-8) > 1e-9 {
		t.Fatalf("duration = %v, want 8", r.DurationSec)
	}
}
