package engine

import "math"

// depthTier maps depth to its tier: floor(depth/tierSize) + 1.
func depthTier(depth, tierSize float64) int {
	if tierSize <= 0 {
		tierSize = 1
	}
	return int(depth/tierSize) + 1
}

// miningDrain is the per-minute energy cost at a tier: 2^(tier-1), reduced
// by the best owned tool's efficiency fraction.
func miningDrain(tier int, toolEfficiency float64) float64 {
	drain := math.Pow(2, float64(tier-1))
	return drain * (1 - clamp01(toolEfficiency))
}

// bestToolEfficiency returns the highest mining efficiency across owned tools.
func (e *Engine) bestToolEfficiency() float64 {
	best := 0.0
	for id, owned := range e.s.Inv.Tools {
		if !owned {
			continue
		}
		if d, ok := e.defs.Items[id]; ok && d.MiningEfficiency > best {
			best = d.MiningEfficiency
		}
	}
	return best
}

// systemMining advances the active extraction session: depth grows linearly,
// energy drains exponentially with tier, and a weighted material roll runs on
// the configured interval. The session ends when energy hits zero.
func (e *Engine) systemMining(now uint64, deltaMin float64) {
	m := e.s.Proc.Mining
	if m == nil {
		return
	}

	m.Depth += e.tune.MiningDepthPerMinute * deltaMin
	tier := depthTier(m.Depth, e.tune.MiningTierSize)

	drain := miningDrain(tier, e.bestToolEfficiency()) * deltaMin
	if !e.s.Res.Energy.Spend(drain) {
		e.s.Res.Energy.Cur = 0
		e.emit(evMiningEnded(now, m.Depth))
		e.s.Proc.Mining = nil
		return
	}

	m.SinceDropMin += int(deltaMin)
	every := e.tune.MiningDropEveryMin
	if every <= 0 {
		every = 1
	}
	for m.SinceDropMin >= every {
		m.SinceDropMin -= every
		e.rollDrop(now, tier)
	}

	if e.s.Res.Energy.Cur <= 0 {
		e.emit(evMiningEnded(now, m.Depth))
		e.s.Proc.Mining = nil
	}
}

func (e *Engine) rollDrop(now uint64, tier int) {
	drops := e.defs.DropsForTier(tier)
	if len(drops) == 0 {
		return
	}
	total := 0.0
	for _, d := range drops {
		total += d.Weight
	}
	if total <= 0 {
		return
	}
	roll := e.rng.Float64() * total
	for _, d := range drops {
		roll -= d.Weight
		if roll < 0 {
			e.s.Res.Materials[d.Material] += d.Count
			e.emit(evMaterialDrop(now, d.Material, d.Count, tier))
			return
		}
	}
}
