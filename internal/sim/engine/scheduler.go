package engine

// schedState tracks which day's check-in sessions have been rolled. Jitter
// offsets draw from the engine's single PRNG stream, once per day, so the
// schedule is part of the deterministic state evolution.
type schedState struct {
	day      int // day index the sessions below belong to
	sessions []session
	computed bool
}

type session struct {
	start int // minute of day, inclusive
	end   int // exclusive
}

// present reports whether the agent is acting this tick: inside any of
// today's presence sessions.
func (e *Engine) present(now uint64) bool {
	dayMin := e.tune.DayMinutes
	day := int(now / uint64(dayMin))
	minuteOfDay := int(now % uint64(dayMin))

	if !e.sched.computed || e.sched.day != day {
		e.rollDaySessions(day)
	}
	for _, ss := range e.sched.sessions {
		if minuteOfDay >= ss.start && minuteOfDay < ss.end {
			return true
		}
	}
	return false
}

// rollDaySessions splits the day into one equal window per check-in and
// opens a session at each window boundary, jittered by the persona's
// variance factor (bounded offset into the window).
func (e *Engine) rollDaySessions(day int) {
	e.sched.day = day
	e.sched.computed = true
	e.sched.sessions = e.sched.sessions[:0]

	checkins := e.persona.Checkins(day)
	if checkins <= 0 {
		return
	}
	dayMin := e.tune.DayMinutes
	window := dayMin / checkins
	if window <= 0 {
		window = 1
	}
	sessionLen := e.persona.SessionMinutes
	if sessionLen <= 0 {
		sessionLen = 1
	}

	for i := 0; i < checkins; i++ {
		base := i * window
		jitter := 0
		if e.persona.Variance > 0 {
			span := e.persona.Variance * float64(window) * 0.5
			jitter = int(e.rng.Float64() * span)
		}
		start := base + jitter
		end := start + sessionLen
		if end > dayMin {
			end = dayMin
		}
		e.sched.sessions = append(e.sched.sessions, session{start: start, end: end})
	}
}
