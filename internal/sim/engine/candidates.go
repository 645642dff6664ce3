package engine

import (
	"sort"

	"croftsim/internal/sim/defs"
)

// generateCandidates enumerates every structurally legal action for the
// current location. Generation order is fixed so score ties resolve the same
// way on every run.
func (e *Engine) generateCandidates(now uint64) []Candidate {
	var out []Candidate

	switch e.s.Loc.Current {
	case LocFarm:
		out = append(out, e.farmCandidates()...)
	case LocShop:
		out = append(out, e.shopCandidates()...)
	case LocForge:
		out = append(out, e.forgeCandidates()...)
	case LocMine:
		out = append(out, e.mineCandidates()...)
	case LocAdventure:
		out = append(out, e.adventureCandidates()...)
	}

	// Context changes to every other location, always last.
	for _, loc := range allLocations {
		if loc == e.s.Loc.Current {
			continue
		}
		out = append(out, Candidate{Kind: ActGo, Target: string(loc)})
	}
	return out
}

func (e *Engine) farmCandidates() []Candidate {
	var out []Candidate
	s := e.s

	for i := range s.Proc.Plots {
		if s.Proc.Plots[i].Ready {
			out = append(out, Candidate{Kind: ActHarvest, Plot: i})
		}
	}

	for i := range s.Proc.Plots {
		p := &s.Proc.Plots[i]
		if !p.Empty() && !p.Ready && p.Water < 0.5 {
			out = append(out, Candidate{Kind: ActWater, Plot: i, CostWater: 1 - p.Water})
		}
	}

	if emptyIdx := firstEmptyPlot(s); emptyIdx >= 0 {
		for _, id := range sortedKeys(e.defs.Crops) {
			if s.Res.Seeds[id] <= 0 {
				continue
			}
			crop := e.defs.Crops[id]
			out = append(out, Candidate{
				Kind:       ActPlant,
				Target:     id,
				Plot:       emptyIdx,
				CostEnergy: crop.PlantEnergy,
				NeedSeed:   id,
				Requires:   crop.Requires,
			})
		}
	}

	if s.Res.Water.Cur < s.Res.Water.Max {
		out = append(out, Candidate{Kind: ActRefillWater})
	}

	for _, id := range sortedKeys(e.defs.Cleanups) {
		if s.Prog.Cleanups[id] {
			continue
		}
		c := e.defs.Cleanups[id]
		out = append(out, Candidate{
			Kind:       ActCleanup,
			Target:     id,
			CostGold:   c.CostGold,
			CostEnergy: c.CostEnergy,
			Requires:   c.Requires,
		})
	}

	secondaryOK, _ := RequirementMet(e.tune.HelperSecondaryUnlock, s)
	for i := range s.Helpers {
		h := &s.Helpers[i]
		if !h.Housed {
			continue
		}
		for _, role := range helperRoles {
			if role != h.Role {
				out = append(out, Candidate{Kind: ActAssignHelper, Target: h.ID, Role: role})
			}
		}
		if secondaryOK && h.Secondary == RoleNone && h.Role != RoleNone {
			for _, role := range helperRoles {
				if role != h.Role {
					out = append(out, Candidate{Kind: ActAssignHelper, Target: h.ID, Role: role, Secondary: true})
				}
			}
		}
		out = append(out, Candidate{
			Kind:     ActTrainHelper,
			Target:   h.ID,
			CostGold: e.tune.HelperTrainCostGold * h.Level,
		})
	}

	return out
}

func (e *Engine) shopCandidates() []Candidate {
	var out []Candidate
	s := e.s

	for _, id := range sortedKeys(e.defs.Crops) {
		crop := e.defs.Crops[id]
		out = append(out, Candidate{
			Kind:     ActBuySeed,
			Target:   id,
			CostGold: crop.SeedCostGold,
			Requires: crop.Requires,
		})
	}

	for _, id := range sortedKeys(e.defs.Items) {
		item := e.defs.Items[id]
		if e.ownsItem(id) {
			continue
		}
		out = append(out, Candidate{
			Kind:     ActBuyItem,
			Target:   id,
			CostGold: item.CostGold,
			Requires: item.Requires,
		})
	}

	for _, family := range sortedKeys(e.defs.Weapons) {
		if s.Inv.Weapons[family] != nil {
			continue
		}
		w := e.defs.Weapons[family]
		out = append(out, Candidate{
			Kind:     ActBuyWeapon,
			Target:   family,
			CostGold: w.CostGold,
			Requires: w.Requires,
		})
	}

	for _, id := range sortedKeys(e.defs.Armor) {
		if s.Inv.Armor[id] {
			continue
		}
		a := e.defs.Armor[id]
		out = append(out, Candidate{
			Kind:     ActBuyArmor,
			Target:   id,
			CostGold: a.CostGold,
			Requires: a.Requires,
		})
	}

	for _, id := range sortedKeys(e.defs.Helpers) {
		if e.helperByID(id) != nil {
			continue
		}
		h := e.defs.Helpers[id]
		out = append(out, Candidate{
			Kind:     ActHireHelper,
			Target:   id,
			CostGold: h.HireCostGold,
			Requires: h.Requires,
		})
	}

	return out
}

func (e *Engine) forgeCandidates() []Candidate {
	var out []Candidate

	for _, id := range sortedKeys(e.defs.Recipes) {
		r := e.defs.Recipes[id]
		if e.recipeRedundant(r) || e.recipeQueued(id) {
			continue
		}
		out = append(out, Candidate{
			Kind:          ActCraft,
			Target:        id,
			CostMaterials: r.Inputs,
			Requires:      r.Requires,
		})
	}

	if len(e.s.Proc.CraftQueue) > 0 && e.s.Proc.CraftHeat < 0.8 {
		out = append(out, Candidate{Kind: ActStokeForge, CostEnergy: 1})
	}

	return out
}

func (e *Engine) mineCandidates() []Candidate {
	if e.s.Proc.Mining != nil {
		return nil
	}
	// One minute of tier-1 digging is the minimum buy-in.
	return []Candidate{{
		Kind:       ActStartMining,
		CostEnergy: miningDrain(1, e.bestToolEfficiency()),
	}}
}

func (e *Engine) adventureCandidates() []Candidate {
	if e.s.Proc.Adventure != nil {
		return nil
	}
	var out []Candidate
	for _, id := range sortedKeys(e.defs.Encounters) {
		enc := e.defs.Encounters[id]
		out = append(out, Candidate{
			Kind:       ActStartAdventure,
			Target:     id,
			CostEnergy: enc.EnergyCost,
			Requires:   enc.Requires,
		})
	}
	return out
}

func firstEmptyPlot(s *GameState) int {
	for i := range s.Proc.Plots {
		if s.Proc.Plots[i].Empty() {
			return i
		}
	}
	return -1
}

func (e *Engine) ownsItem(id string) bool {
	item, ok := e.defs.Items[id]
	if !ok {
		return false
	}
	switch item.Kind {
	case "UPGRADE":
		return e.s.Prog.Unlocked[id]
	case "BLUEPRINT":
		return e.s.Inv.Blueprints[id]
	default: // TOOL, HOUSING
		return e.s.Inv.Tools[id]
	}
}

func (e *Engine) helperByID(id string) *Helper {
	for i := range e.s.Helpers {
		if e.s.Helpers[i].ID == id {
			return &e.s.Helpers[i]
		}
	}
	return nil
}

// recipeRedundant reports outputs the state already has (idempotent kinds).
func (e *Engine) recipeRedundant(r defs.RecipeDef) bool {
	switch r.OutputKind {
	case "TOOL":
		return e.s.Inv.Tools[r.OutputItem]
	case "UPGRADE":
		return e.s.Prog.Unlocked[r.OutputItem]
	case "ARMOR":
		return e.s.Inv.Armor[r.OutputItem]
	}
	return false
}

func (e *Engine) recipeQueued(id string) bool {
	for _, j := range e.s.Proc.CraftQueue {
		if j.Recipe == id {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
