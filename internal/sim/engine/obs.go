package engine

import "croftsim/internal/protocol"

// stateObs flattens the game state into the wire snapshot.
func (e *Engine) stateObs() protocol.StateObs {
	s := e.s
	obs := protocol.StateObs{
		Energy:    s.Res.Energy.Cur,
		EnergyMax: s.Res.Energy.Max,
		Water:     s.Res.Water.Cur,
		WaterMax:  s.Res.Water.Max,
		Gold:      s.Res.Gold,

		Level:     s.Prog.Level,
		XP:        s.Prog.XP,
		FarmPlots: s.Prog.Plots,
		Phase:     e.phaseName(s.Prog.Phase),
		Unlocks:   len(s.Prog.Unlocked),
		Cleanups:  len(s.Prog.Cleanups),

		CraftJobs: len(s.Proc.CraftQueue),
		CraftHeat: s.Proc.CraftHeat,
		Location:  string(s.Loc.Current),
	}

	for i := range s.Proc.Plots {
		p := &s.Proc.Plots[i]
		po := protocol.PlotObs{
			Crop:  p.Crop,
			Water: p.Water,
			Ready: p.Ready,
			Dead:  p.Dead,
		}
		if crop, ok := e.defs.Crops[p.Crop]; ok && crop.GrowthTimeMinutes > 0 {
			po.Progress = p.Grown / crop.GrowthTimeMinutes
			po.Stage = growthStage(p.Grown, crop.GrowthTimeMinutes, crop.StageCount)
		}
		obs.Plots = append(obs.Plots, po)
	}

	if m := s.Proc.Mining; m != nil {
		obs.Mining = &protocol.MiningObs{
			Depth: m.Depth,
			Tier:  depthTier(m.Depth, e.tune.MiningTierSize),
		}
	}

	for i := range s.Helpers {
		h := &s.Helpers[i]
		obs.Helpers = append(obs.Helpers, protocol.HelperObs{
			ID:        h.ID,
			Level:     h.Level,
			Housed:    h.Housed,
			Role:      string(h.Role),
			Secondary: string(h.Secondary),
		})
	}

	return obs
}

func actionObs(sel, runnerUp *Candidate) *protocol.ActionObs {
	if sel == nil {
		return nil
	}
	obs := &protocol.ActionObs{
		Kind:     sel.Kind,
		Target:   sel.Target,
		Score:    sel.Score,
		Features: sel.Features,
	}
	if runnerUp != nil {
		obs.RunnerUp = &protocol.ScoreObs{
			Kind:     runnerUp.Kind,
			Target:   runnerUp.Target,
			Score:    runnerUp.Score,
			Features: runnerUp.Features,
		}
	}
	return obs
}
