package engine

import (
	"fmt"

	"croftsim/internal/protocol"
)

type monitorState struct {
	lastPlots        int
	lastLevel        int
	lastGold         int
	lastProgressTick uint64

	stuck      bool
	stuckSince uint64
	stuckCause string
	history    []protocol.BottleneckObs
}

// phaseIndex derives the phase from progression thresholds: the highest
// phase reached by plot count or by hero level, whichever is further along.
// A zero threshold on a non-initial phase means "not gated by this metric".
func (e *Engine) phaseIndex() int {
	idxPlots, idxLevel := 0, 0
	for i, ph := range e.defs.Phases {
		if i == 0 {
			continue
		}
		if ph.MinPlots > 0 && e.s.Prog.Plots >= ph.MinPlots {
			idxPlots = i
		}
		if ph.MinLevel > 0 && e.s.Prog.Level >= ph.MinLevel {
			idxLevel = i
		}
	}
	if idxLevel > idxPlots {
		return idxLevel
	}
	return idxPlots
}

func (e *Engine) phaseName(idx int) string {
	if idx < 0 || idx >= len(e.defs.Phases) {
		return ""
	}
	return e.defs.Phases[idx].Name
}

// systemMonitor tracks phase transitions, bottleneck stretches, and the
// victory predicate. Returns true when the victory condition is met.
func (e *Engine) systemMonitor(now uint64) bool {
	s := e.s
	m := &e.mon

	if idx := e.phaseIndex(); idx != s.Prog.Phase {
		s.Prog.Phase = idx
		e.emit(evPhase(now, e.phaseName(idx)))
	}

	progressed := false
	if s.Prog.Plots > m.lastPlots {
		m.lastPlots = s.Prog.Plots
		progressed = true
	}
	if s.Prog.Level > m.lastLevel {
		m.lastLevel = s.Prog.Level
		progressed = true
	}
	if s.Res.Gold > m.lastGold {
		progressed = true
	}
	m.lastGold = s.Res.Gold

	if progressed {
		m.lastProgressTick = now
		if m.stuck {
			m.stuck = false
			m.history = append(m.history, protocol.BottleneckObs{
				FromTick: m.stuckSince,
				ToTick:   now,
				Cause:    m.stuckCause,
			})
			e.emit(evUnstuck(now))
		}
	} else if !m.stuck {
		threshold := uint64(e.tune.StuckDays) * uint64(e.tune.DayMinutes)
		if threshold > 0 && now-m.lastProgressTick >= threshold {
			m.stuck = true
			m.stuckSince = now
			m.stuckCause = e.bottleneckCause()
			e.emit(evStuck(now, m.stuckCause))
		}
	}

	return (e.tune.VictoryPlots > 0 && s.Prog.Plots >= e.tune.VictoryPlots) ||
		(e.tune.VictoryLevel > 0 && s.Prog.Level >= e.tune.VictoryLevel)
}

// bottleneckCause is a best-effort diagnosis: the stock sitting lowest
// relative to its minimum-viable threshold.
func (e *Engine) bottleneckCause() string {
	type metric struct {
		name  string
		ratio float64
	}
	ms := []metric{
		{"energy", ratioOf(e.s.Res.Energy.Cur, e.tune.MinViableEnergy)},
		{"water", ratioOf(e.s.Res.Water.Cur, e.tune.MinViableWater)},
		{"gold", ratioOf(float64(e.s.Res.Gold), float64(e.tune.MinViableGold))},
	}
	worst := ms[0]
	for _, m := range ms[1:] {
		if m.ratio < worst.ratio {
			worst = m
		}
	}
	return fmt.Sprintf("low %s", worst.name)
}

func ratioOf(cur, viable float64) float64 {
	if viable <= 0 {
		return 1
	}
	return cur / viable
}

// frustrated reports whether the persona's patience for a stuck run has run
// out: the current bottleneck has lasted at least FrustrationDays.
func (e *Engine) frustrated(now uint64) bool {
	if !e.mon.stuck || e.persona.FrustrationDays <= 0 {
		return false
	}
	return now-e.mon.stuckSince >= uint64(e.persona.FrustrationDays)*uint64(e.tune.DayMinutes)
}

// closeBottleneck finalizes an open bottleneck interval at run end.
func (e *Engine) closeBottleneck(now uint64) {
	if e.mon.stuck {
		e.mon.history = append(e.mon.history, protocol.BottleneckObs{
			FromTick: e.mon.stuckSince,
			ToTick:   now,
			Cause:    e.mon.stuckCause,
		})
		e.mon.stuck = false
	}
}
