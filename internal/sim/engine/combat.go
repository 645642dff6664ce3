package engine

import (
	"fmt"
	"math"
	"sort"

	"croftsim/internal/sim/defs"
)

// CombatResult is the statistical outcome of a whole encounter, resolved in
// one step when the adventure starts.
type CombatResult struct {
	Victory     bool           `json:"victory"`
	FailWave    int            `json:"fail_wave,omitempty"`
	FailReason  string         `json:"fail_reason,omitempty"`
	DurationSec float64        `json:"duration_sec"`
	HeroHP      float64        `json:"hero_hp"`
	Kills       int            `json:"kills"`
	RewardGold  int            `json:"reward_gold"`
	RewardXP    int            `json:"reward_xp"`
	Loot        map[string]int `json:"loot,omitempty"`
}

// advantageMultiplier implements the 5-way weapon/enemy-type relation:
// 1.5x against a declared weakness, 0.5x into a resistance, 1.0x otherwise.
func advantageMultiplier(family string, enemy defs.EnemyDef) float64 {
	switch family {
	case enemy.WeakTo:
		return 1.5
	case enemy.Resists:
		return 0.5
	default:
		return 1.0
	}
}

func weaponDamage(d defs.WeaponDef, st *WeaponState) float64 {
	lvl := 1
	if st != nil {
		lvl = st.Level
	}
	return d.BaseDamage + float64(lvl-1)*d.PerLevelDamage
}

// bestDPSAgainst picks the owned weapon family with the highest effective
// damage per second against the enemy. Families are scanned in sorted order
// so ties resolve deterministically.
func (e *Engine) bestDPSAgainst(enemy defs.EnemyDef) (family string, dps float64) {
	families := make([]string, 0, len(e.s.Inv.Weapons))
	for f := range e.s.Inv.Weapons {
		families = append(families, f)
	}
	sort.Strings(families)
	for _, f := range families {
		d, ok := e.defs.Weapons[f]
		if !ok {
			continue
		}
		cand := weaponDamage(d, e.s.Inv.Weapons[f]) * advantageMultiplier(f, enemy) * d.AttackSpeed
		if cand > dps {
			family, dps = f, cand
		}
	}
	return family, dps
}

type armorKit struct {
	defense float64
	effects []defs.ArmorEffect
}

func (e *Engine) equippedArmor() armorKit {
	ids := make([]string, 0, len(e.s.Inv.Armor))
	for id, owned := range e.s.Inv.Armor {
		if owned {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var kit armorKit
	pass := 1.0
	for _, id := range ids {
		d, ok := e.defs.Armor[id]
		if !ok {
			continue
		}
		pass *= 1 - clamp01(d.Defense)
		if d.Effect.Kind != "" {
			kit.effects = append(kit.effects, d.Effect)
		}
	}
	kit.defense = 1 - pass
	return kit
}

// resolveEncounter resolves every wave plus the optional boss statistically.
// Hero HP reaching zero anywhere aborts with zero reward.
func (e *Engine) resolveEncounter(enc defs.EncounterDef) CombatResult {
	r := CombatResult{}
	hp := e.tune.HeroBaseHP + float64(e.s.Prog.Level)*e.tune.HeroHPPerLevel
	kit := e.equippedArmor()

	if len(e.s.Inv.Weapons) == 0 {
		r.FailWave = 1
		r.FailReason = "no weapon owned"
		r.HeroHP = hp
		return r
	}

	// Deterministic composition order for the weighted enemy rolls.
	enemyIDs := make([]string, 0, len(enc.Composition))
	for id := range enc.Composition {
		enemyIDs = append(enemyIDs, id)
	}
	sort.Strings(enemyIDs)
	totalW := 0.0
	for _, id := range enemyIDs {
		totalW += enc.Composition[id]
	}

	pickEnemy := func() (defs.EnemyDef, bool) {
		if totalW <= 0 {
			return defs.EnemyDef{}, false
		}
		roll := e.rng.Float64() * totalW
		for _, id := range enemyIDs {
			roll -= enc.Composition[id]
			if roll < 0 {
				d, ok := e.defs.Enemies[id]
				if !ok {
					e.warnf("encounter %q references unknown enemy %q", enc.ID, id)
					return defs.EnemyDef{}, false
				}
				return d, true
			}
		}
		return defs.EnemyDef{}, false
	}

	for wave := 1; wave <= enc.Waves; wave++ {
		waveHeal := 0.0
		for i := 0; i < enc.EnemiesPerWave; i++ {
			enemy, ok := pickEnemy()
			if !ok {
				continue
			}
			survived, ttk := e.fightOne(enemy, kit, &hp, 1.0)
			r.DurationSec += ttk
			if !survived {
				r.FailWave = wave
				r.FailReason = fmt.Sprintf("overwhelmed by %s on wave %d", enemy.ID, wave)
				r.HeroHP = 0
				return r
			}
			r.Kills++
			for _, fx := range kit.effects {
				if fx.Kind == "HEAL_PER_KILL" {
					heal := fx.Amount
					if fx.Cap > 0 && waveHeal+heal > fx.Cap {
						heal = fx.Cap - waveHeal
					}
					if heal > 0 {
						hp += heal
						waveHeal += heal
					}
				}
			}
		}
		for _, fx := range kit.effects {
			if fx.Kind == "HEAL_BETWEEN_WAVES" {
				hp += fx.Amount
			}
		}
	}

	if enc.Boss != nil {
		boss, ok := e.defs.Enemies[enc.Boss.EnemyID]
		if !ok {
			e.warnf("encounter %q references unknown boss %q", enc.ID, enc.Boss.EnemyID)
		} else {
			hasIdeal := e.s.Inv.Weapons[enc.Boss.Weakness] != nil
			durationMult := 1.0
			switch enc.Boss.Quirk.Kind {
			case "FLAT_DAMAGE":
				if !hasIdeal {
					hp -= enc.Boss.Quirk.Amount
				}
			case "DURATION_MULT":
				durationMult = enc.Boss.Quirk.Amount
			}
			if hp <= 0 {
				r.FailWave = enc.Waves + 1
				r.FailReason = fmt.Sprintf("felled by %s (%s)", boss.ID, enc.Boss.Quirk.Name)
				r.HeroHP = 0
				return r
			}
			survived, ttk := e.fightOne(boss, kit, &hp, durationMult)
			r.DurationSec += ttk
			if !survived {
				r.FailWave = enc.Waves + 1
				r.FailReason = fmt.Sprintf("felled by %s (%s)", boss.ID, enc.Boss.Quirk.Name)
				r.HeroHP = 0
				return r
			}
			r.Kills++
		}
	}

	r.Victory = true
	r.HeroHP = math.Max(hp, 0)
	r.RewardGold = enc.RewardGold
	r.RewardXP = enc.RewardXP
	if len(enc.Loot) > 0 {
		r.Loot = make(map[string]int, len(enc.Loot))
		for m, n := range enc.Loot {
			r.Loot[m] = n
		}
	}
	// Reward-modifying armor effects apply last.
	for _, fx := range kit.effects {
		if fx.Kind == "GOLD_MULT" {
			r.RewardGold = int(float64(r.RewardGold) * fx.Amount)
		}
	}
	return r
}

// fightOne resolves a single enemy: time-to-kill from the best weapon's
// effective DPS, incoming damage accumulated over that duration, armor
// defense and probabilistic specials applied.
func (e *Engine) fightOne(enemy defs.EnemyDef, kit armorKit, hp *float64, durationMult float64) (survived bool, ttk float64) {
	_, dps := e.bestDPSAgainst(enemy)
	if dps <= 0 {
		// Cannot hurt it at all; the encounter is lost by attrition.
		*hp = 0
		return false, 0
	}
	ttk = enemy.HP / dps * durationMult

	for _, fx := range kit.effects {
		if fx.Kind == "REFLECT" && fx.Amount > 0 {
			// Reflected damage shortens the fight.
			ttk /= 1 + fx.Amount
		}
	}

	incoming := enemy.DPS * ttk * (1 - kit.defense)
	for _, fx := range kit.effects {
		if fx.Kind == "NEGATE" && e.rng.Float64() < fx.Chance {
			incoming = 0
		}
	}
	*hp -= incoming
	if *hp <= 0 {
		*hp = 0
		return false, ttk
	}
	return true, ttk
}

// systemAdventure counts down the active encounter session and applies its
// pre-resolved outcome when the duration has elapsed.
func (e *Engine) systemAdventure(now uint64, deltaMin float64) {
	a := e.s.Proc.Adventure
	if a == nil {
		return
	}
	a.RemainingMinutes -= deltaMin
	if a.RemainingMinutes > 0 {
		return
	}
	res := a.Result
	e.s.Proc.Adventure = nil

	if res.Victory {
		e.s.Res.Gold += res.RewardGold
		if gained := e.s.addXP(res.RewardXP, e.tune.XPPerLevel); gained > 0 {
			e.emit(evLevelUp(now, e.s.Prog.Level))
		}
		for m, n := range res.Loot {
			e.s.Res.Materials[m] += n
		}
	}
	e.emit(evEncounterDone(now, a.Encounter, res))
}
