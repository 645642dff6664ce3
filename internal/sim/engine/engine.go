package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"time"

	"croftsim/internal/protocol"
	"croftsim/internal/sim/defs"
	"croftsim/internal/sim/persona"
	"croftsim/internal/sim/tuning"
)

// Termination reasons.
const (
	ReasonVictory  = "VICTORY"
	ReasonStuck    = "STUCK"
	ReasonStopped  = "STOPPED"
	ReasonMaxTicks = "MAX_TICKS"
	ReasonFatal    = "FATAL"
)

type Config struct {
	RunID   string
	Seed    int64
	MaxDays int // 0: persona target days, then tuning max days
	Speed   int // ticks per wall-clock callback, default 1
	Paused  bool

	Defs    *defs.Set
	Persona persona.Persona
	Tune    tuning.Tuning

	// TickInterval is the wall-clock cadence of the run loop. Purely a
	// throughput knob; it never affects simulated outcomes.
	TickInterval time.Duration

	// Quiet suppresses per-tick output messages (the summary is still
	// emitted); batch runs use it to skip dead marshaling work.
	Quiet bool

	Logger     *log.Logger // optional
	TickLogger TickLogger  // optional
}

type TickLogger interface {
	WriteTick(msg protocol.TickMsg) error
}

// Engine is a single isolated simulation run: it owns its GameState and its
// PRNG stream, and exchanges only serialized messages with the outside.
// All state is touched only from the Run goroutine.
type Engine struct {
	runID   string
	defs    *defs.Set
	persona persona.Persona
	tune    tuning.Tuning

	s   *GameState
	rng *rand.Rand

	ctrl chan protocol.ControlMsg
	out  chan []byte

	paused  bool
	speed   int
	stepReq bool

	events  []protocol.Event
	warns   []string
	badReqs map[string]bool

	mon   monitorState
	sched schedState

	timeInLoc    map[string]int
	actionCounts map[string]int

	maxTicks   uint64
	quiet      bool
	lastDigest string
	fatal      *protocol.DiagnosticObs
	done       bool
	reason     string
	summary    *protocol.SummaryMsg

	interval time.Duration
	logger   *log.Logger
	tickLog  TickLogger
}

func New(cfg Config) (*Engine, error) {
	if cfg.Defs == nil {
		return nil, fmt.Errorf("engine: nil definition set")
	}
	p := cfg.Persona
	if p.Name == "" {
		p = persona.Defaults()
	}
	t := cfg.Tune
	if t.DayMinutes <= 0 {
		t = tuning.Defaults()
	}
	speed := cfg.Speed
	if speed <= 0 {
		speed = 1
	}
	interval := cfg.TickInterval
	if interval <= 0 {
		interval = 5 * time.Millisecond
	}
	runID := cfg.RunID
	if runID == "" {
		runID = fmt.Sprintf("run_%d", cfg.Seed)
	}

	days := cfg.MaxDays
	if days <= 0 {
		days = p.TargetDays
	}
	if days <= 0 {
		days = t.MaxDays
	}

	e := &Engine{
		runID:        runID,
		defs:         cfg.Defs,
		persona:      p,
		tune:         t,
		s:            newGameState(t.StartEnergyMax, t.StartWaterMax, t.StartGold, t.StartPlots),
		rng:          rand.New(rand.NewSource(cfg.Seed)),
		ctrl:         make(chan protocol.ControlMsg, 16),
		out:          make(chan []byte, 256),
		paused:       cfg.Paused,
		speed:        speed,
		timeInLoc:    map[string]int{},
		actionCounts: map[string]int{},
		badReqs:      map[string]bool{},
		quiet:        cfg.Quiet,
		maxTicks:     uint64(days) * uint64(t.DayMinutes),
		interval:     interval,
		logger:       cfg.Logger,
		tickLog:      cfg.TickLogger,
	}
	return e, nil
}

func (e *Engine) RunID() string                     { return e.runID }
func (e *Engine) Ctrl() chan<- protocol.ControlMsg { return e.ctrl }
func (e *Engine) Out() <-chan []byte                { return e.out }

// Summary is valid once Run has returned.
func (e *Engine) Summary() *protocol.SummaryMsg { return e.summary }

// Run drives the tick loop until a terminal condition. The tick boundary is
// the only yield point: control messages and cancellation take effect
// between ticks, never mid-tick. A summary message is always emitted, on
// every exit path, before the out channel closes.
func (e *Engine) Run(ctx context.Context) error {
	defer func() {
		if r := recover(); r != nil {
			e.setFatal("engine", fmt.Sprintf("tick pipeline panic: %v", r))
			e.reason = ReasonFatal
		}
		e.finish()
	}()

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for !e.done {
		select {
		case <-ctx.Done():
			e.done = true
			e.reason = ReasonStopped
		case msg := <-e.ctrl:
			e.applyControl(msg)
		case <-ticker.C:
			if e.paused {
				if e.stepReq {
					e.stepReq = false
					e.stepOnce()
				}
				continue
			}
			for i := 0; i < e.speed && !e.done; i++ {
				e.stepOnce()
			}
		}
	}
	return nil
}

// RunHeadless drives the run to completion as fast as the CPU allows, with
// no wall-clock pacing and no control channel. Used by batch executions.
func (e *Engine) RunHeadless(ctx context.Context) error {
	defer func() {
		if r := recover(); r != nil {
			e.setFatal("engine", fmt.Sprintf("tick pipeline panic: %v", r))
			e.reason = ReasonFatal
		}
		e.finish()
	}()

	for !e.done {
		select {
		case <-ctx.Done():
			e.done = true
			e.reason = ReasonStopped
		default:
			e.stepOnce()
		}
	}
	return nil
}

func (e *Engine) applyControl(msg protocol.ControlMsg) {
	switch msg.Command {
	case protocol.CmdPause:
		e.paused = true
	case protocol.CmdResume:
		e.paused = false
	case protocol.CmdStop:
		e.done = true
		e.reason = ReasonStopped
	case protocol.CmdStep:
		if e.paused {
			e.stepReq = true
		}
	case protocol.CmdSetSpeed:
		n := msg.Speed
		if n < 1 {
			n = 1
		}
		if n > 10000 {
			n = 10000
		}
		e.speed = n
	default:
		e.warnf("unknown control command %q ignored", msg.Command)
	}
}

// StepOnce advances exactly one tick and returns the tick message. It uses
// the same pipeline ordering as Run and exists for tests and replays.
func (e *Engine) StepOnce() protocol.TickMsg {
	return e.stepOnce()
}

func (e *Engine) stepOnce() protocol.TickMsg {
	now := e.s.Minutes
	e.events = e.events[:0]
	e.warns = e.warns[:0]

	// Presence first: day-boundary jitter rolls precede all other draws.
	acting := e.present(now)

	// Process systems run every tick, each inside its own isolation
	// boundary: a panic degrades to "skip this subsystem this tick".
	e.guardSystem("growth", func() { e.systemGrowth(now, 1) })
	e.guardSystem("crafting", func() { e.systemCrafting(now, 1) })
	e.guardSystem("mining", func() { e.systemMining(now, 1) })
	e.guardSystem("adventure", func() { e.systemAdventure(now, 1) })
	e.guardSystem("helpers", func() { e.systemHelpers(now, 1) })

	var act *protocol.ActionObs
	if acting && e.fatal == nil {
		var sel, runnerUp *Candidate
		e.guardSystem("decide", func() { sel, runnerUp = e.decide(now) })
		if sel != nil && e.fatal == nil {
			// The executor has no skip path: a panic here may have left
			// the state partially mutated, which aborts the run.
			ok := e.guardExec(func() bool { return e.execute(now, sel) })
			if ok {
				act = actionObs(sel, runnerUp)
				e.actionCounts[sel.Kind]++
			}
		}
	}

	victory := false
	e.guardSystem("monitor", func() { victory = e.systemMonitor(now) })

	e.timeInLoc[string(e.s.Loc.Current)]++
	e.s.Loc.SinceMinutes++

	switch {
	case e.fatal != nil:
		e.done = true
		e.reason = ReasonFatal
	case victory:
		e.done = true
		e.reason = ReasonVictory
		e.emit(evVictory(now))
	case e.frustrated(now):
		e.done = true
		e.reason = ReasonStuck
	case now+1 >= e.maxTicks:
		e.done = true
		e.reason = ReasonMaxTicks
	}

	digest := e.stateDigest(now)
	e.lastDigest = digest

	msg := protocol.TickMsg{
		Type:            protocol.TypeTick,
		ProtocolVersion: protocol.Version,
		RunID:           e.runID,
		Tick:            now,
		Clock:           clockObs(now, e.tune.DayMinutes),
		State:           e.stateObs(),
		Action:          act,
		Events:          append([]protocol.Event(nil), e.events...),
		Warnings:        append([]string(nil), e.warns...),
		Complete:        victory,
		Stuck:           e.mon.stuck,
		Digest:          digest,
	}

	e.s.Minutes++

	if !e.quiet {
		e.send(msg)
	}
	if e.tickLog != nil {
		if err := e.tickLog.WriteTick(msg); err != nil && e.logger != nil {
			e.logger.Printf("tick log: %v", err)
		}
	}
	return msg
}

// finish builds and emits the run summary, then closes the out channel.
func (e *Engine) finish() {
	now := e.s.Minutes
	e.closeBottleneck(now)
	if e.reason == "" {
		e.reason = ReasonStopped
	}

	e.summary = &protocol.SummaryMsg{
		Type:            protocol.TypeSummary,
		ProtocolVersion: protocol.Version,
		RunID:           e.runID,
		Reason:          e.reason,
		FinalPhase:      e.phaseName(e.s.Prog.Phase),
		TotalTicks:      now,
		Days:            int(now / uint64(e.tune.DayMinutes)),
		TimeInLocation:  e.timeInLoc,
		ActionCounts:    e.actionCounts,
		Bottlenecks:     e.mon.history,
		FinalState:      e.stateObs(),
		Diagnostic:      e.fatal,
	}
	e.send(*e.summary)
	close(e.out)
}

// send marshals and delivers a message without ever blocking the loop: when
// the consumer lags, the oldest pending message is dropped (the tick log
// keeps the complete record).
func (e *Engine) send(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		if e.logger != nil {
			e.logger.Printf("marshal out msg: %v", err)
		}
		return
	}
	for {
		select {
		case e.out <- b:
			return
		default:
			select {
			case <-e.out:
			default:
			}
		}
	}
}

func (e *Engine) guardSystem(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.warnf("%s subsystem panicked: %v (skipped this tick)", name, r)
		}
	}()
	fn()
}

func (e *Engine) guardExec(fn func() bool) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.setFatal("execute", fmt.Sprintf("%v", r))
			ok = false
		}
	}()
	return fn()
}

func (e *Engine) setFatal(subsystem, msg string) {
	if e.fatal != nil {
		return
	}
	e.fatal = &protocol.DiagnosticObs{
		Subsystem:  subsystem,
		Message:    msg,
		LastDigest: e.lastDigest,
	}
	if e.logger != nil {
		e.logger.Printf("fatal in %s: %s", subsystem, msg)
	}
}

func (e *Engine) emit(ev protocol.Event) { e.events = append(e.events, ev) }

func (e *Engine) warnf(format string, args ...any) {
	w := fmt.Sprintf(format, args...)
	e.warns = append(e.warns, w)
	if e.logger != nil {
		e.logger.Printf("warn: %s", w)
	}
}
