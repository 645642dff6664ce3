package engine

// decide runs one decision cycle: generate, filter by prerequisites and
// affordability, score, select. The strictly highest score wins; ties keep
// the earliest-generated candidate. A nil return means no eligible action.
func (e *Engine) decide(now uint64) (selected, runnerUp *Candidate) {
	candidates := e.generateCandidates(now)

	eligible := candidates[:0]
	for i := range candidates {
		c := &candidates[i]
		if !e.requireAll(c.Requires) {
			continue
		}
		if !c.affordable(e.s) {
			continue
		}
		eligible = append(eligible, *c)
	}

	for i := range eligible {
		e.scoreCandidate(now, &eligible[i])
	}

	var bestIdx, secondIdx = -1, -1
	for i := range eligible {
		if bestIdx == -1 || eligible[i].Score > eligible[bestIdx].Score {
			secondIdx = bestIdx
			bestIdx = i
		} else if secondIdx == -1 || eligible[i].Score > eligible[secondIdx].Score {
			secondIdx = i
		}
	}
	if bestIdx == -1 {
		return nil, nil
	}
	selected = &eligible[bestIdx]
	if secondIdx != -1 {
		runnerUp = &eligible[secondIdx]
	}
	return selected, runnerUp
}
