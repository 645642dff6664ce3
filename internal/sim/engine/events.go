package engine

import "croftsim/internal/protocol"

// Event constructors. Payloads are loosely shaped maps (protocol.Event);
// every event carries "t" (tick) and "type".

func ev(t uint64, typ string, kv ...any) protocol.Event {
	e := protocol.Event{"t": t, "type": typ}
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			e[k] = kv[i+1]
		}
	}
	return e
}

func evPlanted(t uint64, crop string, plot int) protocol.Event {
	return ev(t, "PLANTED", "crop", crop, "plot", plot)
}

func evWatered(t uint64, plot int) protocol.Event {
	return ev(t, "WATERED", "plot", plot)
}

func evHarvested(t uint64, crop string, plot int, energy float64, gold, xp int) protocol.Event {
	return ev(t, "HARVESTED", "crop", crop, "plot", plot, "energy", energy, "gold", gold, "xp", xp)
}

func evCropDied(t uint64, crop string, plot int) protocol.Event {
	return ev(t, "CROP_DIED", "crop", crop, "plot", plot)
}

func evCraftDone(t uint64, recipe, output string, double bool) protocol.Event {
	return ev(t, "CRAFT_DONE", "recipe", recipe, "output", output, "double", double)
}

func evCraftFailed(t uint64, recipe string) protocol.Event {
	return ev(t, "CRAFT_FAILED", "recipe", recipe)
}

func evMaterialDrop(t uint64, material string, count, tier int) protocol.Event {
	return ev(t, "MATERIAL_DROP", "material", material, "count", count, "tier", tier)
}

func evMiningEnded(t uint64, depth float64) protocol.Event {
	return ev(t, "MINING_ENDED", "depth", depth)
}

func evEncounterDone(t uint64, encounter string, r CombatResult) protocol.Event {
	e := ev(t, "ENCOUNTER_DONE", "encounter", encounter, "victory", r.Victory,
		"kills", r.Kills, "gold", r.RewardGold, "xp", r.RewardXP)
	if !r.Victory {
		e["fail_wave"] = r.FailWave
		e["fail_reason"] = r.FailReason
	}
	return e
}

func evPurchased(t uint64, kind, id string, gold int) protocol.Event {
	return ev(t, "PURCHASED", "kind", kind, "id", id, "gold", gold)
}

func evUnlocked(t uint64, id string) protocol.Event {
	return ev(t, "UNLOCKED", "id", id)
}

func evCleanup(t uint64, id string, plots int) protocol.Event {
	return ev(t, "CLEANUP_DONE", "id", id, "plots_added", plots)
}

func evLevelUp(t uint64, level int) protocol.Event {
	return ev(t, "LEVEL_UP", "level", level)
}

func evPhase(t uint64, phase string) protocol.Event {
	return ev(t, "PHASE", "phase", phase)
}

func evLocation(t uint64, to Location) protocol.Event {
	return ev(t, "LOCATION", "to", string(to))
}

func evHelperHired(t uint64, id string) protocol.Event {
	return ev(t, "HELPER_HIRED", "id", id)
}

func evHelperAssigned(t uint64, id string, role Role, secondary bool) protocol.Event {
	return ev(t, "HELPER_ASSIGNED", "id", id, "role", string(role), "secondary", secondary)
}

func evHelperTrained(t uint64, id string, level int) protocol.Event {
	return ev(t, "HELPER_TRAINED", "id", id, "level", level)
}

func evStuck(t uint64, cause string) protocol.Event {
	return ev(t, "STUCK", "cause", cause)
}

func evUnstuck(t uint64) protocol.Event {
	return ev(t, "UNSTUCK")
}

func evVictory(t uint64) protocol.Event {
	return ev(t, "VICTORY")
}
