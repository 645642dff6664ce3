package protocol

// HELLO (client -> host)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name,omitempty"`
}

// WELCOME (host -> client)
type WelcomeMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	DefsDigest      string   `json:"defs_digest"`
	TuningDigest    string   `json:"tuning_digest,omitempty"`
	Personas        []string `json:"personas"`
}

// START (client -> host): begin a new simulation run.
type StartMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	Run             RunConfig `json:"run"`
}

type RunConfig struct {
	Seed    int64  `json:"seed"`
	MaxDays int    `json:"max_days,omitempty"`
	Persona string `json:"persona,omitempty"`
	Speed   int    `json:"speed,omitempty"`
	Paused  bool   `json:"paused,omitempty"`
}

// RUN_STARTED (host -> client)
type StartedMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	RunID           string `json:"run_id"`
	Seed            int64  `json:"seed"`
	Persona         string `json:"persona"`
	MaxDays         int    `json:"max_days"`
	DefsDigest      string `json:"defs_digest"`
}

// CONTROL (client -> host): scheduler-only mutations, applied at the next
// tick boundary.
type ControlMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	RunID           string `json:"run_id,omitempty"`
	Command         string `json:"command"`
	Speed           int    `json:"speed,omitempty"`
}

// TICK (host -> client): one structured result per simulated minute.
type TickMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	RunID           string `json:"run_id"`
	Tick            uint64 `json:"tick"`

	Clock    ClockObs   `json:"clock"`
	State    StateObs   `json:"state"`
	Action   *ActionObs `json:"action,omitempty"`
	Events   []Event    `json:"events,omitempty"`
	Warnings []string   `json:"warnings,omitempty"`

	Complete bool   `json:"complete"`
	Stuck    bool   `json:"stuck"`
	Digest   string `json:"digest"`
}

type ClockObs struct {
	Day    int `json:"day"`
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

type StateObs struct {
	Energy    float64 `json:"energy"`
	EnergyMax float64 `json:"energy_max"`
	Water     float64 `json:"water"`
	WaterMax  float64 `json:"water_max"`
	Gold      int     `json:"gold"`

	Level     int    `json:"level"`
	XP        int    `json:"xp"`
	FarmPlots int    `json:"farm_plots"`
	Phase     string `json:"phase"`
	Unlocks   int    `json:"unlocks"`
	Cleanups  int    `json:"cleanups"`

	Plots     []PlotObs  `json:"plots,omitempty"`
	CraftJobs int        `json:"craft_jobs"`
	CraftHeat float64    `json:"craft_heat"`
	Mining    *MiningObs `json:"mining,omitempty"`

	Helpers  []HelperObs `json:"helpers,omitempty"`
	Location string      `json:"location"`
}

type PlotObs struct {
	Crop     string  `json:"crop,omitempty"`
	Progress float64 `json:"progress"`
	Water    float64 `json:"water"`
	Stage    int     `json:"stage"`
	Ready    bool    `json:"ready,omitempty"`
	Dead     bool    `json:"dead,omitempty"`
}

type MiningObs struct {
	Depth float64 `json:"depth"`
	Tier  int     `json:"tier"`
}

type HelperObs struct {
	ID        string `json:"id"`
	Level     int    `json:"level"`
	Housed    bool   `json:"housed"`
	Role      string `json:"role,omitempty"`
	Secondary string `json:"secondary,omitempty"`
}

// ActionObs reports the executed action with its full score breakdown and
// the best alternative that lost, for decision transparency.
type ActionObs struct {
	Kind     string             `json:"kind"`
	Target   string             `json:"target,omitempty"`
	Score    float64            `json:"score"`
	Features map[string]float64 `json:"features,omitempty"`
	RunnerUp *ScoreObs          `json:"runner_up,omitempty"`
}

type ScoreObs struct {
	Kind     string             `json:"kind"`
	Target   string             `json:"target,omitempty"`
	Score    float64            `json:"score"`
	Features map[string]float64 `json:"features,omitempty"`
}

// Event payloads are loosely shaped on purpose; consumers filter by "type".
type Event map[string]interface{}

// SUMMARY (host -> client): exactly one per run, on every exit path.
type SummaryMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	RunID           string `json:"run_id"`

	Reason     string `json:"reason"` // "VICTORY","STUCK","STOPPED","MAX_TICKS","FATAL"
	FinalPhase string `json:"final_phase"`
	TotalTicks uint64 `json:"total_ticks"`
	Days       int    `json:"days"`

	TimeInLocation map[string]int  `json:"time_in_location,omitempty"`
	ActionCounts   map[string]int  `json:"action_counts,omitempty"`
	Bottlenecks    []BottleneckObs `json:"bottlenecks,omitempty"`

	FinalState StateObs       `json:"final_state"`
	Diagnostic *DiagnosticObs `json:"diagnostic,omitempty"`
}

type BottleneckObs struct {
	FromTick uint64 `json:"from_tick"`
	ToTick   uint64 `json:"to_tick"`
	Cause    string `json:"cause,omitempty"`
}

// DiagnosticObs accompanies FATAL terminations: the failing subsystem plus
// the digest of the last state known to be consistent.
type DiagnosticObs struct {
	Subsystem  string `json:"subsystem"`
	Message    string `json:"message"`
	LastDigest string `json:"last_digest,omitempty"`
}

// ERROR (host -> client): transport-level rejection of a client message.
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}
