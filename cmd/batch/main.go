// Command batch runs a fleet of headless simulations across seeds and
// personas and aggregates the outcomes: completion rates, days-to-finish,
// and the bottlenecks players hit.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"syscall"

	"croftsim/internal/persistence/indexdb"
	"croftsim/internal/protocol"
	"croftsim/internal/sim/defs"
	"croftsim/internal/sim/engine"
	"croftsim/internal/sim/persona"
	"croftsim/internal/sim/tuning"
)

func main() {
	var (
		configDir    = flag.String("configs", "./configs", "config directory")
		defsPath     = flag.String("defs", "", "path to defs.json (default: <configs>/defs.json)")
		tuningPath   = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		personasPath = flag.String("personas", "", "path to personas.yaml (default: <configs>/personas.yaml)")
		personaName  = flag.String("persona", "", "persona to simulate (default: every loaded persona)")
		runs         = flag.Int("runs", 100, "runs per persona")
		baseSeed     = flag.Int64("seed", 1, "first seed; run i uses seed+i")
		maxDays      = flag.Int("max_days", 0, "cap in simulated days (0: persona target)")
		workers      = flag.Int("workers", runtime.NumCPU(), "parallel workers")
		dbPath       = flag.String("db", "", "optional run index database to record results into")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[batch] ", log.LstdFlags)

	dp := strings.TrimSpace(*defsPath)
	if dp == "" {
		dp = filepath.Join(*configDir, "defs.json")
	}
	set, warns, err := defs.Load(dp)
	if err != nil {
		logger.Fatalf("load defs: %v", err)
	}
	for _, w := range warns {
		logger.Printf("defs: %s", w)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	pp := strings.TrimSpace(*personasPath)
	if pp == "" {
		pp = filepath.Join(*configDir, "personas.yaml")
	}
	personas, err := persona.Load(pp)
	if err != nil {
		if os.IsNotExist(err) {
			p := persona.Defaults()
			personas = map[string]persona.Persona{p.Name: p}
		} else {
			logger.Fatalf("load personas: %v", err)
		}
	}
	if *personaName != "" {
		p, ok := personas[*personaName]
		if !ok {
			logger.Fatalf("unknown persona %q", *personaName)
		}
		personas = map[string]persona.Persona{p.Name: p}
	}

	var idx *indexdb.SQLiteIndex
	if *dbPath != "" {
		idx, err = indexdb.OpenSQLite(*dbPath)
		if err != nil {
			logger.Fatalf("open run index: %v", err)
		}
		defer idx.Close()
	}

	ctx, cancel := signalContext()
	defer cancel()

	names := make([]string, 0, len(personas))
	for name := range personas {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		agg := runPersona(ctx, logger, set, tune, personas[name], *runs, *baseSeed, *maxDays, *workers, idx)
		printAggregate(name, *runs, agg)
		if ctx.Err() != nil {
			break
		}
	}
}

type aggregate struct {
	mu sync.Mutex

	reasons     map[string]int
	victoryDays []int
	stuckCauses map[string]int
	finalPhases map[string]int
	actionTotal int
}

func runPersona(ctx context.Context, logger *log.Logger, set *defs.Set, tune tuning.Tuning,
	p persona.Persona, runs int, baseSeed int64, maxDays, workers int, idx *indexdb.SQLiteIndex) *aggregate {

	agg := &aggregate{
		reasons:     map[string]int{},
		stuckCauses: map[string]int{},
		finalPhases: map[string]int{},
	}

	if workers < 1 {
		workers = 1
	}
	seeds := make(chan int64)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for seed := range seeds {
				runID := fmt.Sprintf("batch_%s_%d", p.Name, seed)
				eng, err := engine.New(engine.Config{
					RunID:   runID,
					Seed:    seed,
					MaxDays: maxDays,
					Defs:    set,
					Persona: p,
					Tune:    tune,
					Quiet:   true,
				})
				if err != nil {
					logger.Printf("seed %d: %v", seed, err)
					continue
				}
				if idx != nil {
					idx.RecordStart(runID, seed, p.Name, maxDays, "")
				}
				_ = eng.RunHeadless(ctx)
				agg.record(eng.Summary())
				if idx != nil {
					idx.RecordSummary(eng.Summary())
				}
			}
		}()
	}

	for i := 0; i < runs; i++ {
		select {
		case <-ctx.Done():
			i = runs
		case seeds <- baseSeed + int64(i):
		}
	}
	close(seeds)
	wg.Wait()
	return agg
}

func (a *aggregate) record(sum *protocol.SummaryMsg) {
	if sum == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reasons[sum.Reason]++
	a.finalPhases[sum.FinalPhase]++
	if sum.Reason == engine.ReasonVictory {
		a.victoryDays = append(a.victoryDays, sum.Days)
	}
	for _, b := range sum.Bottlenecks {
		a.stuckCauses[b.Cause]++
	}
	for _, n := range sum.ActionCounts {
		a.actionTotal += n
	}
}

func printAggregate(name string, runs int, a *aggregate) {
	fmt.Printf("persona %s (%d runs)\n", name, runs)

	keys := sortedKeys(a.reasons)
	for _, r := range keys {
		fmt.Printf("  %-10s %5d  (%.1f%%)\n", r, a.reasons[r], 100*float64(a.reasons[r])/float64(runs))
	}

	if len(a.victoryDays) > 0 {
		sort.Ints(a.victoryDays)
		sum := 0
		for _, d := range a.victoryDays {
			sum += d
		}
		fmt.Printf("  victory days: median=%d mean=%.1f min=%d max=%d\n",
			a.victoryDays[len(a.victoryDays)/2],
			float64(sum)/float64(len(a.victoryDays)),
			a.victoryDays[0], a.victoryDays[len(a.victoryDays)-1])
	}

	if len(a.stuckCauses) > 0 {
		fmt.Printf("  bottlenecks:")
		for _, c := range sortedKeys(a.stuckCauses) {
			fmt.Printf(" %s=%d", c, a.stuckCauses[c])
		}
		fmt.Println()
	}
	fmt.Printf("  actions total: %d (%.1f per run)\n", a.actionTotal, float64(a.actionTotal)/float64(runs))
}

func sortedKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
