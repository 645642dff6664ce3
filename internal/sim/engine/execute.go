package engine

import "math"

// execute applies one selected action to the state. Every transition
// re-validates its own invariants even though the decision engine already
// filtered, and mutates nothing unless it can complete fully.
func (e *Engine) execute(now uint64, c *Candidate) bool {
	if !e.requireAll(c.Requires) || !c.affordable(e.s) {
		e.warnf("action %s/%s no longer eligible at execution", c.Kind, c.Target)
		return false
	}

	s := e.s
	switch c.Kind {
	case ActPlant:
		crop, ok := e.defs.Crops[c.Target]
		if !ok {
			e.warnf("plant: unknown crop %q", c.Target)
			return false
		}
		if c.Plot < 0 || c.Plot >= len(s.Proc.Plots) || !s.Proc.Plots[c.Plot].Empty() {
			return false
		}
		if !s.Res.Energy.Spend(crop.PlantEnergy) {
			return false
		}
		s.Res.Seeds[c.Target]--
		s.Proc.Plots[c.Plot] = PlotState{Crop: c.Target, Water: 1}
		e.emit(evPlanted(now, c.Target, c.Plot))
		return true

	case ActWater:
		if c.Plot < 0 || c.Plot >= len(s.Proc.Plots) {
			return false
		}
		p := &s.Proc.Plots[c.Plot]
		if p.Empty() || p.Water >= 1 {
			return false
		}
		if !s.Res.Water.Spend(1 - p.Water) {
			return false
		}
		p.Water = 1
		p.DryMinutes = 0
		e.emit(evWatered(now, c.Plot))
		return true

	case ActRefillWater:
		s.Res.Water.Cur = s.Res.Water.Max
		return true

	case ActHarvest:
		return e.harvestPlot(now, c.Plot)

	case ActBuySeed:
		crop, ok := e.defs.Crops[c.Target]
		if !ok {
			e.warnf("buy seed: unknown crop %q", c.Target)
			return false
		}
		if s.Res.Gold < crop.SeedCostGold {
			return false
		}
		s.Res.Gold -= crop.SeedCostGold
		s.Res.Seeds[c.Target]++
		e.emit(evPurchased(now, "SEED", c.Target, crop.SeedCostGold))
		return true

	case ActBuyItem:
		item, ok := e.defs.Items[c.Target]
		if !ok {
			e.warnf("buy item: unknown item %q", c.Target)
			return false
		}
		if e.ownsItem(c.Target) || s.Res.Gold < item.CostGold {
			return false
		}
		s.Res.Gold -= item.CostGold
		switch item.Kind {
		case "UPGRADE":
			s.Prog.Unlocked[c.Target] = true
			e.emit(evUnlocked(now, c.Target))
		case "BLUEPRINT":
			s.Inv.Blueprints[c.Target] = true
		default: // TOOL, HOUSING
			s.Inv.Tools[c.Target] = true
			if item.Kind == "HOUSING" {
				e.houseHelpers(c.Target)
			}
		}
		e.emit(evPurchased(now, item.Kind, c.Target, item.CostGold))
		return true

	case ActBuyWeapon:
		w, ok := e.defs.Weapons[c.Target]
		if !ok {
			e.warnf("buy weapon: unknown family %q", c.Target)
			return false
		}
		if s.Inv.Weapons[c.Target] != nil || s.Res.Gold < w.CostGold {
			return false
		}
		s.Res.Gold -= w.CostGold
		s.Inv.Weapons[c.Target] = &WeaponState{Level: 1}
		e.emit(evPurchased(now, "WEAPON", c.Target, w.CostGold))
		return true

	case ActBuyArmor:
		a, ok := e.defs.Armor[c.Target]
		if !ok {
			e.warnf("buy armor: unknown armor %q", c.Target)
			return false
		}
		if s.Inv.Armor[c.Target] || s.Res.Gold < a.CostGold {
			return false
		}
		s.Res.Gold -= a.CostGold
		s.Inv.Armor[c.Target] = true
		e.emit(evPurchased(now, "ARMOR", c.Target, a.CostGold))
		return true

	case ActHireHelper:
		hd, ok := e.defs.Helpers[c.Target]
		if !ok {
			e.warnf("hire: unknown helper %q", c.Target)
			return false
		}
		if e.helperByID(c.Target) != nil || s.Res.Gold < hd.HireCostGold {
			return false
		}
		s.Res.Gold -= hd.HireCostGold
		s.Helpers = append(s.Helpers, Helper{
			ID:     c.Target,
			Level:  1,
			Housed: hd.HouseItem == "" || s.Inv.Tools[hd.HouseItem],
		})
		e.emit(evHelperHired(now, c.Target))
		return true

	case ActAssignHelper:
		h := e.helperByID(c.Target)
		if h == nil || !h.Housed {
			return false
		}
		if c.Secondary {
			if ok, _ := RequirementMet(e.tune.HelperSecondaryUnlock, s); !ok {
				return false
			}
			if h.Role == RoleNone || c.Role == h.Role {
				return false
			}
			h.Secondary = c.Role
		} else {
			if c.Role == h.Role {
				return false
			}
			h.Role = c.Role
			if h.Secondary == c.Role {
				h.Secondary = RoleNone
			}
		}
		e.emit(evHelperAssigned(now, c.Target, c.Role, c.Secondary))
		return true

	case ActTrainHelper:
		h := e.helperByID(c.Target)
		if h == nil {
			return false
		}
		cost := e.tune.HelperTrainCostGold * h.Level
		if s.Res.Gold < cost {
			return false
		}
		s.Res.Gold -= cost
		h.Level++
		e.emit(evHelperTrained(now, c.Target, h.Level))
		return true

	case ActCraft:
		r, ok := e.defs.Recipes[c.Target]
		if !ok {
			e.warnf("craft: unknown recipe %q", c.Target)
			return false
		}
		for m, n := range r.Inputs {
			if s.Res.Materials[m] < n {
				return false
			}
		}
		// Escrow the inputs; a failed completion roll forfeits them.
		for m, n := range r.Inputs {
			s.Res.Materials[m] -= n
		}
		s.Proc.CraftQueue = append(s.Proc.CraftQueue, CraftJob{Recipe: c.Target})
		return true

	case ActStokeForge:
		if !s.Res.Energy.Spend(c.CostEnergy) {
			return false
		}
		s.Proc.CraftHeat += e.tune.HeatNudgePlayer
		if s.Proc.CraftHeat > 1 {
			s.Proc.CraftHeat = 1
		}
		return true

	case ActCleanup:
		cl, ok := e.defs.Cleanups[c.Target]
		if !ok {
			e.warnf("cleanup: unknown id %q", c.Target)
			return false
		}
		if s.Prog.Cleanups[c.Target] || s.Res.Gold < cl.CostGold {
			return false
		}
		if !s.Res.Energy.Spend(cl.CostEnergy) {
			return false
		}
		s.Res.Gold -= cl.CostGold
		s.Prog.Cleanups[c.Target] = true
		s.addPlots(cl.PlotsAdded)
		e.emit(evCleanup(now, c.Target, cl.PlotsAdded))
		return true

	case ActStartMining:
		if s.Proc.Mining != nil || s.Res.Energy.Cur <= 0 {
			return false
		}
		s.Proc.Mining = &MiningSession{}
		return true

	case ActStartAdventure:
		enc, ok := e.defs.Encounters[c.Target]
		if !ok {
			e.warnf("adventure: unknown encounter %q", c.Target)
			return false
		}
		if s.Proc.Adventure != nil {
			return false
		}
		if !s.Res.Energy.Spend(enc.EnergyCost) {
			return false
		}
		result := e.resolveEncounter(enc)
		s.Proc.Adventure = &AdventureSession{
			Encounter:        c.Target,
			RemainingMinutes: math.Ceil(result.DurationSec / 60),
			Result:           result,
		}
		return true

	case ActGo:
		loc := Location(c.Target)
		if loc == s.Loc.Current {
			return false
		}
		s.Loc = LocationState{Current: loc, LastChange: now}
		e.emit(evLocation(now, loc))
		return true
	}

	e.warnf("unknown action kind %q skipped", c.Kind)
	return false
}

// houseHelpers shelters every hired helper whose house item just arrived.
func (e *Engine) houseHelpers(houseItem string) {
	for i := range e.s.Helpers {
		h := &e.s.Helpers[i]
		if hd, ok := e.defs.Helpers[h.ID]; ok && hd.HouseItem == houseItem {
			h.Housed = true
		}
	}
}
