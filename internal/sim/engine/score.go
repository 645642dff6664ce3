package engine

import "croftsim/internal/sim/defs"

// Gold-equivalent conversion rates used by the value heuristics.
const (
	goldPerEnergy = 0.5
	goldPerXP     = 0.2
)

// scoreCandidate fills c.Score and c.Features. The score is the persona
// weight times the action's estimated value, boosted by the urgency
// multiplier for resource-replenishing actions while the relevant stock is
// low, minus the context-change penalty inside the cooldown window.
func (e *Engine) scoreCandidate(now uint64, c *Candidate) {
	value := e.candidateValue(c)
	urgency := e.urgencyFor(c)
	weight := e.persona.Weight(c.Kind)

	penalty := 0.0
	if c.Kind == ActGo {
		sinceChange := now - e.s.Loc.LastChange
		if e.s.Loc.LastChange > 0 && sinceChange < uint64(e.tune.ContextCooldownMin) {
			penalty = e.tune.ContextChangePenalty
		}
	}

	c.Score = weight*value*urgency - penalty
	c.Features = map[string]float64{
		"value":          value,
		"urgency":        urgency,
		"persona_weight": weight,
		"penalty":        penalty,
	}
}

// urgencyFor applies the configured multiplier to actions that replenish a
// stock currently below its low threshold.
func (e *Engine) urgencyFor(c *Candidate) float64 {
	switch c.Kind {
	case ActHarvest:
		if e.energyLow() {
			return e.tune.UrgencyMultiplier
		}
	case ActRefillWater:
		if e.waterLow() {
			return e.tune.UrgencyMultiplier
		}
	}
	return 1
}

func (e *Engine) energyLow() bool {
	r := &e.s.Res.Energy
	return r.Max > 0 && r.Cur/r.Max < e.tune.EnergyLowThreshold
}

func (e *Engine) waterLow() bool {
	r := &e.s.Res.Water
	return r.Max > 0 && r.Cur/r.Max < e.tune.WaterLowThreshold
}

func (e *Engine) candidateValue(c *Candidate) float64 {
	s := e.s
	switch c.Kind {
	case ActHarvest:
		if c.Plot < 0 || c.Plot >= len(s.Proc.Plots) {
			return 0
		}
		crop, ok := e.defs.Crops[s.Proc.Plots[c.Plot].Crop]
		if !ok {
			return 0
		}
		return float64(crop.YieldGold) + crop.YieldEnergy*goldPerEnergy + float64(crop.YieldXP)*goldPerXP

	case ActPlant:
		crop, ok := e.defs.Crops[c.Target]
		if !ok {
			return 0
		}
		yield := float64(crop.YieldGold) + crop.YieldEnergy*goldPerEnergy + float64(crop.YieldXP)*goldPerXP
		// Discount by time to maturity.
		return yield / (1 + crop.GrowthTimeMinutes/float64(e.tune.DayMinutes))

	case ActWater:
		// Rescue value scales with how dry the plot is.
		if c.Plot < 0 || c.Plot >= len(s.Proc.Plots) {
			return 0
		}
		return (1 - s.Proc.Plots[c.Plot].Water) * 4

	case ActRefillWater:
		if s.Res.Water.Max <= 0 {
			return 0
		}
		return (1 - s.Res.Water.Cur/s.Res.Water.Max) * 3

	case ActBuySeed:
		crop, ok := e.defs.Crops[c.Target]
		if !ok {
			return 0
		}
		yield := float64(crop.YieldGold) + crop.YieldEnergy*goldPerEnergy + float64(crop.YieldXP)*goldPerXP
		profit := yield - float64(crop.SeedCostGold)
		// Only worth stocking seeds when plots can take them soon.
		if s.Res.Seeds[c.Target] >= s.Prog.Plots {
			return 0
		}
		return profit / (1 + crop.GrowthTimeMinutes/float64(e.tune.DayMinutes))

	case ActBuyItem:
		item, ok := e.defs.Items[c.Target]
		if !ok {
			return 0
		}
		base := 0.0
		switch item.Kind {
		case "TOOL":
			base = 10 + item.MiningEfficiency*30
		case "UPGRADE":
			base = 18
		case "BLUEPRINT":
			base = 12
		case "HOUSING":
			base = 15
		}
		return base - float64(c.CostGold)*0.05

	case ActBuyWeapon:
		return 22 - float64(c.CostGold)*0.05

	case ActBuyArmor:
		return 14 - float64(c.CostGold)*0.05

	case ActHireHelper:
		return 20 - float64(c.CostGold)*0.05

	case ActAssignHelper:
		h := e.helperByID(c.Target)
		if h == nil {
			return 0
		}
		if h.Role == RoleNone && !c.Secondary {
			return 10 // an idle housed helper is wasted labor
		}
		return 2

	case ActTrainHelper:
		return 6 - float64(c.CostGold)*0.05

	case ActCraft:
		return 16

	case ActStokeForge:
		return (1 - s.Proc.CraftHeat) * 5

	case ActCleanup:
		cl, ok := e.defs.Cleanups[c.Target]
		if !ok {
			return 0
		}
		return float64(cl.PlotsAdded)*12 - float64(c.CostGold)*0.05

	case ActStartMining:
		if s.Res.Energy.Max <= 0 {
			return 0
		}
		// Digging is worth it with a healthy energy buffer.
		return 10 * (s.Res.Energy.Cur / s.Res.Energy.Max)

	case ActStartAdventure:
		enc, ok := e.defs.Encounters[c.Target]
		if !ok {
			return 0
		}
		p := e.successEstimate(enc)
		reward := float64(enc.RewardGold) + float64(enc.RewardXP)*goldPerXP
		return p * reward * (0.5 + e.persona.RiskTolerance)

	case ActGo:
		return e.locationPull(Location(c.Target))
	}
	return 0
}

// successEstimate is a cheap deterministic predictor of encounter success:
// expected incoming damage (average enemy, no rolls) against current hero HP.
func (e *Engine) successEstimate(enc defs.EncounterDef) float64 {
	if len(e.s.Inv.Weapons) == 0 {
		return 0
	}
	totalW := 0.0
	expIncoming := 0.0
	for _, id := range sortedKeys(enc.Composition) {
		w := enc.Composition[id]
		enemy, ok := e.defs.Enemies[id]
		if !ok {
			continue
		}
		_, dps := e.bestDPSAgainst(enemy)
		if dps <= 0 {
			return 0
		}
		expIncoming += w * (enemy.HP / dps) * enemy.DPS
		totalW += w
	}
	if totalW <= 0 {
		return 0
	}
	kit := e.equippedArmor()
	perEnemy := expIncoming / totalW * (1 - kit.defense)
	total := perEnemy * float64(enc.Waves*enc.EnemiesPerWave)
	if enc.Boss != nil {
		if boss, ok := e.defs.Enemies[enc.Boss.EnemyID]; ok {
			if _, dps := e.bestDPSAgainst(boss); dps > 0 {
				total += boss.HP / dps * boss.DPS * (1 - kit.defense)
			}
		}
	}
	hp := e.tune.HeroBaseHP + float64(e.s.Prog.Level)*e.tune.HeroHPPerLevel
	if total <= 0 {
		return 1
	}
	return clamp01(hp / total * 0.8)
}

// locationPull estimates how much there is to do at a location right now.
func (e *Engine) locationPull(loc Location) float64 {
	s := e.s
	switch loc {
	case LocFarm:
		pull := 0.0
		for i := range s.Proc.Plots {
			p := &s.Proc.Plots[i]
			if p.Ready {
				pull += 3
			} else if !p.Empty() && p.Water < e.tune.DryWaterThreshold {
				pull += 1
			} else if p.Empty() && totalSeeds(s) > 0 {
				pull += 0.5
			}
		}
		if e.waterLow() {
			pull += 2
		}
		return pull
	case LocShop:
		return float64(s.Res.Gold) / 100
	case LocForge:
		pull := 0.0
		if len(s.Proc.CraftQueue) > 0 && s.Proc.CraftHeat < 0.5 {
			pull += 2
		}
		for _, id := range sortedKeys(e.defs.Recipes) {
			r := e.defs.Recipes[id]
			if e.recipeRedundant(r) || e.recipeQueued(id) {
				continue
			}
			c := Candidate{CostMaterials: r.Inputs}
			if c.affordable(s) {
				pull += 1.5
				break
			}
		}
		return pull
	case LocMine:
		if s.Proc.Mining == nil && s.Res.Energy.Max > 0 && s.Res.Energy.Cur/s.Res.Energy.Max > 0.5 {
			return 2
		}
		return 0
	case LocAdventure:
		if s.Proc.Adventure == nil && len(s.Inv.Weapons) > 0 {
			return 2.5
		}
		return 0
	}
	return 0
}

func totalSeeds(s *GameState) int {
	n := 0
	for _, v := range s.Res.Seeds {
		n += v
	}
	return n
}
