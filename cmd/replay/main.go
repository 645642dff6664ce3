// Command replay inspects a recorded run (.jsonl.zst) and optionally
// re-simulates it from the same seed, verifying that every tick digest
// matches the recording.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	runlog "croftsim/internal/persistence/log"
	"croftsim/internal/protocol"
	"croftsim/internal/sim/defs"
	"croftsim/internal/sim/engine"
	"croftsim/internal/sim/persona"
	"croftsim/internal/sim/tuning"
)

func main() {
	var (
		recPath     = flag.String("recording", "", "path to <run_id>.jsonl.zst")
		verify      = flag.Bool("verify", false, "re-simulate and compare digests tick by tick")
		seed        = flag.Int64("seed", 0, "seed for -verify")
		personaName = flag.String("persona", "casual", "persona for -verify")
		maxDays     = flag.Int("max_days", 0, "max days cap used by the recorded run")
		configDir   = flag.String("configs", "./configs", "config directory for -verify")
	)
	flag.Parse()

	if *recPath == "" {
		fmt.Fprintln(os.Stderr, "missing -recording")
		os.Exit(2)
	}

	rd, err := runlog.OpenTickReader(*recPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open recording:", err)
		os.Exit(1)
	}
	defer rd.Close()

	var eng *engine.Engine
	if *verify {
		eng, err = buildEngine(*configDir, *seed, *personaName, *maxDays)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	var (
		ticks    uint64
		first    = true
		runID    string
		lastTick uint64
		last     protocol.TickMsg
		events   = map[string]int{}
		warnings int
	)
	for {
		msg, err := rd.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, "read recording:", err)
			os.Exit(1)
		}
		if first {
			runID = msg.RunID
			first = false
			if msg.Tick != 0 {
				fmt.Fprintf(os.Stderr, "recording starts at tick %d, expected 0\n", msg.Tick)
				os.Exit(1)
			}
		} else if msg.Tick != lastTick+1 {
			fmt.Fprintf(os.Stderr, "tick gap: %d follows %d\n", msg.Tick, lastTick)
			os.Exit(1)
		}
		lastTick = msg.Tick
		for _, ev := range msg.Events {
			if kind, ok := ev["type"].(string); ok {
				events[kind]++
			}
		}
		warnings += len(msg.Warnings)

		if eng != nil {
			got := eng.StepOnce()
			if got.Digest != msg.Digest {
				fmt.Fprintf(os.Stderr, "digest mismatch at tick %d: got=%s want=%s\n", msg.Tick, got.Digest, msg.Digest)
				os.Exit(1)
			}
		}

		last = msg
		ticks++
	}

	if ticks == 0 {
		fmt.Fprintln(os.Stderr, "empty recording")
		os.Exit(1)
	}

	fmt.Printf("run %s: %d ticks (%d days), final phase %s, complete=%v stuck=%v\n",
		runID, ticks, last.Clock.Day, last.State.Phase, last.Complete, last.Stuck)
	fmt.Printf("final: gold=%d level=%d plots=%d energy=%.0f/%.0f\n",
		last.State.Gold, last.State.Level, last.State.FarmPlots,
		last.State.Energy, last.State.EnergyMax)
	if warnings > 0 {
		fmt.Printf("warnings: %d\n", warnings)
	}
	if len(events) > 0 {
		kinds := make([]string, 0, len(events))
		for k := range events {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		fmt.Printf("events:")
		for _, k := range kinds {
			fmt.Printf(" %s=%d", k, events[k])
		}
		fmt.Println()
	}
	if eng != nil {
		fmt.Printf("verify ok: %d digests matched\n", ticks)
	}
}

func buildEngine(configDir string, seed int64, personaName string, maxDays int) (*engine.Engine, error) {
	set, warns, err := defs.Load(filepath.Join(configDir, "defs.json"))
	if err != nil {
		return nil, fmt.Errorf("load defs: %w", err)
	}
	for _, w := range warns {
		fmt.Fprintln(os.Stderr, "defs:", w)
	}

	tune, err := tuning.Load(filepath.Join(configDir, "tuning.yaml"))
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load tuning: %w", err)
		}
		tune = tuning.Defaults()
	}

	p := persona.Defaults()
	personas, err := persona.Load(filepath.Join(configDir, "personas.yaml"))
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load personas: %w", err)
	}
	if pp, ok := personas[strings.TrimSpace(personaName)]; ok {
		p = pp
	} else if personaName != p.Name {
		return nil, fmt.Errorf("unknown persona %q", personaName)
	}

	return engine.New(engine.Config{
		Seed:    seed,
		MaxDays: maxDays,
		Defs:    set,
		Persona: p,
		Tune:    tune,
		Quiet:   true,
	})
}
