package engine

// systemGrowth advances every planted plot by delta simulated minutes.
// Water decays linearly; growth halves below the dry threshold; a plot that
// stays fully dry past the drought duration dies and is cleared.
func (e *Engine) systemGrowth(now uint64, deltaMin float64) {
	for i := range e.s.Proc.Plots {
		p := &e.s.Proc.Plots[i]
		if p.Empty() {
			continue
		}
		crop, ok := e.defs.Crops[p.Crop]
		if !ok {
			e.warnf("unknown crop %q on plot %d; skipped", p.Crop, i)
			continue
		}

		p.Water -= e.tune.WaterDecayPerMinute * deltaMin
		if p.Water < 0 {
			p.Water = 0
		}

		if p.Water <= 0 {
			p.DryMinutes += deltaMin
			if p.DryMinutes > e.tune.DroughtMinutes {
				e.emit(evCropDied(now, p.Crop, i))
				*p = PlotState{Dead: true}
				continue
			}
		} else {
			p.DryMinutes = 0
		}

		if p.Ready {
			continue
		}
		step := deltaMin
		if p.Water < e.tune.DryWaterThreshold {
			step *= e.tune.DryGrowthFactor
		}
		p.Grown += step
		if p.Grown >= crop.GrowthTimeMinutes {
			p.Grown = crop.GrowthTimeMinutes
			p.Ready = true
		}
	}
}

// growthStage maps grown minutes to 0..stageCount. Multiplying before the
// division keeps whole stage boundaries exact for any growth time.
func growthStage(grown, growthTime float64, stageCount int) int {
	if growthTime <= 0 {
		return stageCount
	}
	s := int(grown * float64(stageCount) / growthTime)
	if s > stageCount {
		s = stageCount
	}
	if s < 0 {
		s = 0
	}
	return s
}
