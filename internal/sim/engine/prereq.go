package engine

import (
	"strconv"
	"strings"
)

// RequirementMet evaluates one requirement id against the current state.
// Id shapes: "upgrade:<id>", "cleanup:<id>", "tool:<id>", "weapon:<family>",
// "blueprint:<id>", "plots>=N", "level>=N", "phase>=N". Unrecognized ids are
// never satisfied; callers surface them as warnings, not failures.
func RequirementMet(id string, s *GameState) (ok, known bool) {
	if kind, rest, found := strings.Cut(id, ":"); found {
		switch kind {
		case "upgrade":
			return s.Prog.Unlocked[rest], true
		case "cleanup":
			return s.Prog.Cleanups[rest], true
		case "tool":
			return s.Inv.Tools[rest], true
		case "weapon":
			return s.Inv.Weapons[rest] != nil, true
		case "blueprint":
			return s.Inv.Blueprints[rest], true
		}
		return false, false
	}

	if field, rest, found := strings.Cut(id, ">="); found {
		n, err := strconv.Atoi(rest)
		if err != nil {
			return false, false
		}
		switch field {
		case "plots":
			return s.Prog.Plots >= n, true
		case "level":
			return s.Prog.Level >= n, true
		case "phase":
			return s.Prog.Phase >= n, true
		}
	}
	return false, false
}

// requireAll is the AND over a requirement list. Unknown ids fail the list;
// each distinct unknown id is warned about once per run, since the same bad
// definition would otherwise repeat the warning on every acting tick.
func (e *Engine) requireAll(ids []string) bool {
	all := true
	for _, id := range ids {
		ok, known := RequirementMet(id, e.s)
		if !known && !e.badReqs[id] {
			e.badReqs[id] = true
			e.warns = append(e.warns, "unrecognized requirement id: "+id)
		}
		if !ok {
			all = false
		}
	}
	return all
}
