package engine

import (
	"croftsim/internal/protocol"
)

type Location string

const (
	LocFarm      Location = "FARM"
	LocMine      Location = "MINE"
	LocForge     Location = "FORGE"
	LocAdventure Location = "ADVENTURE"
	LocShop      Location = "SHOP"
)

var allLocations = []Location{LocFarm, LocMine, LocForge, LocAdventure, LocShop}

// Stock is a bounded resource: 0 <= Cur <= Max always holds.
type Stock struct {
	Cur float64 `json:"cur"`
	Max float64 `json:"max"`
}

func (s *Stock) Add(v float64) {
	s.Cur += v
	if s.Cur > s.Max {
		s.Cur = s.Max
	}
	if s.Cur < 0 {
		s.Cur = 0
	}
}

// Spend removes v from the stock; it refuses (and leaves the stock
// untouched) when there is not enough.
func (s *Stock) Spend(v float64) bool {
	if v > s.Cur {
		return false
	}
	s.Cur -= v
	return true
}

type Resources struct {
	Energy    Stock          `json:"energy"`
	Water     Stock          `json:"water"`
	Gold      int            `json:"gold"`
	Seeds     map[string]int `json:"seeds"`
	Materials map[string]int `json:"materials"`
}

type Progression struct {
	Level    int             `json:"level"`
	XP       int             `json:"xp"`
	Unlocked map[string]bool `json:"unlocked"` // upgrade ids, monotonic
	Cleanups map[string]bool `json:"cleanups"` // completed cleanup ids, monotonic
	Plots    int             `json:"plots"`    // farm plot count, monotonic
	Phase    int             `json:"phase"`    // index into defs.Phases, derived
}

type WeaponState struct {
	Level int `json:"level"`
}

type Inventory struct {
	Tools      map[string]bool         `json:"tools"`
	Weapons    map[string]*WeaponState `json:"weapons"` // by family
	Armor      map[string]bool         `json:"armor"`
	Blueprints map[string]bool         `json:"blueprints"`
}

// PlotState tracks growth as accumulated grown minutes rather than a
// progress fraction: minute deltas sum exactly in floating point, so a crop
// is ready on the precise tick its growth time elapses.
type PlotState struct {
	Crop       string  `json:"crop,omitempty"`
	Grown      float64 `json:"grown_minutes"`
	Water      float64 `json:"water"`
	DryMinutes float64 `json:"dry_minutes"`
	Ready      bool    `json:"ready"`
	Dead       bool    `json:"dead"`
}

func (p *PlotState) Empty() bool { return p.Crop == "" }

type CraftJob struct {
	Recipe string  `json:"recipe"`
	Worked float64 `json:"worked_minutes"`
}

// AdventureSession holds a statistically pre-resolved encounter while its
// simulated duration elapses; the outcome is applied when it completes.
type AdventureSession struct {
	Encounter        string       `json:"encounter"`
	RemainingMinutes float64      `json:"remaining_minutes"`
	Result           CombatResult `json:"result"`
}

type MiningSession struct {
	Depth        float64 `json:"depth"`
	SinceDropMin int     `json:"since_drop_min"`
}

type Processes struct {
	Plots      []PlotState       `json:"plots"`
	CraftQueue []CraftJob        `json:"craft_queue"`
	CraftHeat  float64           `json:"craft_heat"`
	Mining     *MiningSession    `json:"mining,omitempty"`
	Adventure  *AdventureSession `json:"adventure,omitempty"`
}

type Role string

const (
	RoleNone    Role = ""
	RoleWater   Role = "WATER"
	RoleHarvest Role = "HARVEST"
	RoleMine    Role = "MINE"
	RoleForge   Role = "FORGE"
)

var helperRoles = []Role{RoleWater, RoleHarvest, RoleMine, RoleForge}

type Helper struct {
	ID         string  `json:"id"`
	Level      int     `json:"level"`
	Housed     bool    `json:"housed"`
	Role       Role    `json:"role,omitempty"`
	Secondary  Role    `json:"secondary,omitempty"`
	LaborCarry float64 `json:"labor_carry"` // fractional labor banked between ticks
}

type LocationState struct {
	Current      Location `json:"current"`
	SinceMinutes int      `json:"since_minutes"`
	LastChange   uint64   `json:"last_change"` // tick of the last context change
}

// GameState is the sole source of truth, owned by the tick loop. It is
// mutated only by the process systems and the action executor.
type GameState struct {
	Minutes uint64 `json:"minutes"` // total elapsed, monotonic

	Res     Resources     `json:"resources"`
	Prog    Progression   `json:"progression"`
	Inv     Inventory     `json:"inventory"`
	Proc    Processes     `json:"processes"`
	Helpers []Helper      `json:"helpers"`
	Loc     LocationState `json:"location"`
}

func newGameState(startEnergyMax, startWaterMax float64, startGold, startPlots int) *GameState {
	s := &GameState{
		Res: Resources{
			Energy:    Stock{Cur: startEnergyMax, Max: startEnergyMax},
			Water:     Stock{Cur: startWaterMax, Max: startWaterMax},
			Gold:      startGold,
			Seeds:     map[string]int{},
			Materials: map[string]int{},
		},
		Prog: Progression{
			Level:    1,
			Unlocked: map[string]bool{},
			Cleanups: map[string]bool{},
			Plots:    startPlots,
		},
		Inv: Inventory{
			Tools:      map[string]bool{},
			Weapons:    map[string]*WeaponState{},
			Armor:      map[string]bool{},
			Blueprints: map[string]bool{},
		},
		Loc: LocationState{Current: LocFarm},
	}
	s.Proc.Plots = make([]PlotState, startPlots)
	return s
}

// addPlots grows the plot slice in step with Prog.Plots.
func (s *GameState) addPlots(n int) {
	if n <= 0 {
		return
	}
	s.Prog.Plots += n
	for i := 0; i < n; i++ {
		s.Proc.Plots = append(s.Proc.Plots, PlotState{})
	}
}

// addXP applies experience and returns the number of levels gained.
func (s *GameState) addXP(n, xpPerLevel int) int {
	if n <= 0 {
		return 0
	}
	s.Prog.XP += n
	gained := 0
	for {
		need := s.Prog.Level * xpPerLevel
		if s.Prog.XP < need {
			break
		}
		s.Prog.XP -= need
		s.Prog.Level++
		gained++
	}
	return gained
}

// clockObs derives day/hour/minute from elapsed minutes.
func clockObs(minutes uint64, dayMinutes int) protocol.ClockObs {
	if dayMinutes <= 0 {
		dayMinutes = 1440
	}
	dm := uint64(dayMinutes)
	return protocol.ClockObs{
		Day:    int(minutes / dm),
		Hour:   int(minutes % dm / 60),
		Minute: int(minutes % dm % 60),
	}
}
