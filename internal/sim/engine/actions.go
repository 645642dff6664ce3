package engine

// Action kinds. The decision engine and the executor switch exhaustively
// over this closed set.
const (
	ActPlant       = "PLANT"
	ActWater       = "WATER"
	ActRefillWater = "REFILL_WATER"
	ActHarvest     = "HARVEST"

	ActBuySeed   = "BUY_SEED"
	ActBuyItem   = "BUY_ITEM"
	ActBuyWeapon = "BUY_WEAPON"
	ActBuyArmor  = "BUY_ARMOR"

	ActHireHelper   = "HIRE_HELPER"
	ActAssignHelper = "ASSIGN_HELPER"
	ActTrainHelper  = "TRAIN_HELPER"

	ActCraft      = "CRAFT"
	ActStokeForge = "STOKE_FORGE"

	ActCleanup        = "CLEANUP"
	ActStartMining    = "START_MINING"
	ActStartAdventure = "START_ADVENTURE"
	ActGo             = "GO"
)

// Candidate is an ephemeral action the decision engine considers. One struct
// carries the union of per-kind fields; Kind selects which ones matter.
type Candidate struct {
	Kind   string
	Target string // crop/item/recipe/encounter/helper/location id
	Plot   int    // plot index for PLANT/WATER/HARVEST

	Role      Role // ASSIGN_HELPER
	Secondary bool // ASSIGN_HELPER into the secondary slot

	CostGold      int
	CostEnergy    float64
	CostWater     float64
	CostMaterials map[string]int
	NeedSeed      string // crop id whose seed PLANT consumes

	Requires []string

	Score    float64
	Features map[string]float64
}

// affordable reports whether the current stocks cover the candidate's costs.
// Insufficient resources is a filter, never an error.
func (c *Candidate) affordable(s *GameState) bool {
	if s.Res.Gold < c.CostGold {
		return false
	}
	if s.Res.Energy.Cur < c.CostEnergy {
		return false
	}
	if s.Res.Water.Cur < c.CostWater {
		return false
	}
	if c.NeedSeed != "" && s.Res.Seeds[c.NeedSeed] <= 0 {
		return false
	}
	for m, n := range c.CostMaterials {
		if s.Res.Materials[m] < n {
			return false
		}
	}
	return true
}
