package engine

// systemCrafting advances the head of the FIFO craft queue. Forge heat
// decays every tick; the completion roll is weighted by the heat left when
// the job finishes. Inputs were escrowed at enqueue time, so a failed roll
// consumes them with no output.
func (e *Engine) systemCrafting(now uint64, deltaMin float64) {
	e.s.Proc.CraftHeat -= e.tune.HeatDecayPerMinute * deltaMin
	if e.s.Proc.CraftHeat < 0 {
		e.s.Proc.CraftHeat = 0
	}

	if len(e.s.Proc.CraftQueue) == 0 {
		return
	}
	job := &e.s.Proc.CraftQueue[0]
	recipe, ok := e.defs.Recipes[job.Recipe]
	if !ok {
		e.warnf("unknown recipe %q in craft queue; dropped", job.Recipe)
		e.s.Proc.CraftQueue = e.s.Proc.CraftQueue[1:]
		return
	}

	job.Worked += deltaMin
	if job.Worked < recipe.TimeMinutes {
		return
	}
	e.s.Proc.CraftQueue = e.s.Proc.CraftQueue[1:]

	success := clamp01(e.tune.CraftBaseSuccess + e.tune.CraftHeatBonus*e.s.Proc.CraftHeat)
	if e.rng.Float64() >= success {
		e.emit(evCraftFailed(now, recipe.ID))
		return
	}

	double := false
	if ok, _ := RequirementMet(e.tune.DoubleOutputUnlock, e.s); ok {
		double = e.rng.Float64() < e.tune.DoubleOutputChance
	}
	e.grantRecipeOutput(now, recipe.ID)
	if double {
		e.grantRecipeOutput(now, recipe.ID)
	}
	e.emit(evCraftDone(now, recipe.ID, recipe.OutputItem, double))
}

func (e *Engine) grantRecipeOutput(now uint64, recipeID string) {
	recipe, ok := e.defs.Recipes[recipeID]
	if !ok {
		return
	}
	switch recipe.OutputKind {
	case "TOOL":
		e.s.Inv.Tools[recipe.OutputItem] = true
	case "UPGRADE":
		if !e.s.Prog.Unlocked[recipe.OutputItem] {
			e.s.Prog.Unlocked[recipe.OutputItem] = true
			e.emit(evUnlocked(now, recipe.OutputItem))
		}
	case "ARMOR":
		e.s.Inv.Armor[recipe.OutputItem] = true
	case "WEAPON_LEVEL":
		w := e.s.Inv.Weapons[recipe.OutputItem]
		if w == nil {
			e.s.Inv.Weapons[recipe.OutputItem] = &WeaponState{Level: 1}
		} else {
			w.Level++
		}
	default:
		e.warnf("recipe %q has unknown output kind %q", recipeID, recipe.OutputKind)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
