package engine

// systemHelpers lets each housed helper with an assigned role perform a
// bounded amount of labor per tick, scaled by base + level x perLevelBonus.
// A secondary role requires its unlock and splits the helper across both
// roles at a fixed reduced fraction each.
func (e *Engine) systemHelpers(now uint64, deltaMin float64) {
	secondaryOK, _ := RequirementMet(e.tune.HelperSecondaryUnlock, e.s)

	for i := range e.s.Helpers {
		h := &e.s.Helpers[i]
		if !h.Housed || h.Role == RoleNone {
			continue
		}
		labor := (e.tune.HelperBaseLabor + float64(h.Level)*e.tune.HelperPerLevelBonus) * deltaMin
		if h.Secondary != RoleNone && secondaryOK {
			f := e.tune.HelperSecondaryFraction
			e.helperLabor(now, h, h.Role, labor*f)
			e.helperLabor(now, h, h.Secondary, labor*f)
		} else {
			e.helperLabor(now, h, h.Role, labor)
		}
	}
}

func (e *Engine) helperLabor(now uint64, h *Helper, role Role, labor float64) {
	switch role {
	case RoleWater:
		// Each labor unit restores up to 0.25 water level on the driest
		// planted plot, paid from the farm's water stock.
		amount := 0.25 * labor
		for amount > 0.01 && e.s.Res.Water.Cur > 0 {
			idx := -1
			driest := 1.0
			for i := range e.s.Proc.Plots {
				p := &e.s.Proc.Plots[i]
				if p.Empty() || p.Water >= 1 {
					continue
				}
				if idx == -1 || p.Water < driest {
					idx = i
					driest = p.Water
				}
			}
			if idx == -1 {
				return
			}
			p := &e.s.Proc.Plots[idx]
			add := amount
			if add > 1-p.Water {
				add = 1 - p.Water
			}
			if add > e.s.Res.Water.Cur {
				add = e.s.Res.Water.Cur
			}
			if add <= 0 {
				return
			}
			e.s.Res.Water.Spend(add)
			p.Water += add
			p.DryMinutes = 0
			amount -= add
		}

	case RoleHarvest:
		h.LaborCarry += labor
		for h.LaborCarry >= 1 {
			idx := -1
			for i := range e.s.Proc.Plots {
				if e.s.Proc.Plots[i].Ready {
					idx = i
					break
				}
			}
			if idx == -1 {
				// Nothing ready; banked labor does not accumulate forever.
				if h.LaborCarry > 2 {
					h.LaborCarry = 2
				}
				return
			}
			h.LaborCarry--
			e.harvestPlot(now, idx)
		}

	case RoleMine:
		if e.s.Proc.Mining != nil {
			e.s.Proc.Mining.Depth += 0.2 * labor
		}

	case RoleForge:
		e.s.Proc.CraftHeat += e.tune.HeatNudgeHelper * labor
		if e.s.Proc.CraftHeat > 1 {
			e.s.Proc.CraftHeat = 1
		}
	}
}

// harvestPlot applies a ready plot's yields and empties it. Shared by the
// harvest action and the harvest helper role.
func (e *Engine) harvestPlot(now uint64, idx int) bool {
	if idx < 0 || idx >= len(e.s.Proc.Plots) {
		return false
	}
	p := &e.s.Proc.Plots[idx]
	if !p.Ready || p.Empty() {
		return false
	}
	crop, ok := e.defs.Crops[p.Crop]
	if !ok {
		e.warnf("unknown crop %q on harvest; plot cleared", p.Crop)
		*p = PlotState{}
		return false
	}
	e.s.Res.Energy.Add(crop.YieldEnergy)
	e.s.Res.Gold += crop.YieldGold
	if gained := e.s.addXP(crop.YieldXP, e.tune.XPPerLevel); gained > 0 {
		e.emit(evLevelUp(now, e.s.Prog.Level))
	}
	e.emit(evHarvested(now, crop.ID, idx, crop.YieldEnergy, crop.YieldGold, crop.YieldXP))
	*p = PlotState{}
	return true
}
