package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"croftsim/internal/observerproto"
	"croftsim/internal/persistence/indexdb"
	runlog "croftsim/internal/persistence/log"
	"croftsim/internal/protocol"
	"croftsim/internal/sim/defs"
	"croftsim/internal/sim/engine"
	"croftsim/internal/sim/persona"
	"croftsim/internal/sim/tuning"
	"croftsim/internal/transport/observer"
	"croftsim/internal/transport/ws"
)

func main() {
	var (
		addr         = flag.String("addr", ":8080", "http listen address")
		configDir    = flag.String("configs", "./configs", "config directory")
		dataDir      = flag.String("data", "./data", "runtime data directory")
		defsPath     = flag.String("defs", "", "path to defs.json (default: <configs>/defs.json)")
		tuningPath   = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		personasPath = flag.String("personas", "", "path to personas.yaml (default: <configs>/personas.yaml)")
		disableDB    = flag.Bool("disable_db", false, "disable the run index database")
		disableLogs  = flag.Bool("disable_run_logs", false, "disable per-run tick recordings")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[simd] ", log.LstdFlags|log.Lmicroseconds)

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
			logger.Printf("tuning not found (%s); using defaults", tp)
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
			logger.Printf("personas not found (%s); using built-in default", pp)
			p := persona.Defaults()
			personas = map[string]persona.Persona{p.Name: p}
		} else {
			logger.Fatalf("load personas: %v", err)
		}
	}

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "runs.db"))
		if err != nil {
			logger.Fatalf("open run index: %v", err)
		}
		defer idx.Close()
	}

	r2Mirror, err := buildR2MirrorRuntime(*dataDir, logger)
	if err != nil {
		logger.Fatalf("r2 mirror: %v", err)
	}
	defer r2Mirror.Close()

	obs := observer.NewServer(set.Digest, logger)

	runDir := filepath.Join(*dataDir, "runs")
	srv := ws.NewServer(set, tune, personas, logger)
	if !*disableLogs {
		srv.NewRecorder = newRunRecorder(runDir, logger, r2Mirror)
	}
	srv.Publish = obs.Publish
	srv.OnStart = func(runID string, rc protocol.RunConfig) {
		logPath := ""
		if !*disableLogs {
			logPath = filepath.Join(runDir, runID+".jsonl.zst")
		}
		idx.RecordStart(runID, rc.Seed, rc.Persona, rc.MaxDays, logPath)
		obs.RunStarted(observerproto.ActiveRun{RunID: runID, Seed: rc.Seed, Persona: rc.Persona})
	}
	srv.OnSummary = func(sum *protocol.SummaryMsg) {
		idx.RecordSummary(sum)
		obs.RunEnded(sum.RunID)
	}

	ctx, cancel := signalContext()
	defer cancel()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/runs", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		if idx == nil {
			_ = json.NewEncoder(rw).Encode([]any{})
			return
		}
		runs, err := idx.RecentRuns(100)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(rw).Encode(runs)
	})
	mux.HandleFunc("/v1/ws", srv.Handler())
	mux.HandleFunc("/v1/observer/bootstrap", obs.BootstrapHandler())
	mux.HandleFunc("/v1/observer/ws", obs.WSHandler())
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeR2MirrorMetrics(rw, r2Mirror)
	})

	httpSrv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = httpSrv.Shutdown(ctx2)
	}()

	logger.Printf("defs digest=%s personas=%d listening on %s", short(set.Digest), len(personas), *addr)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func newRunRecorder(runDir string, logger *log.Logger, mirror *r2MirrorRuntime) func(runID string) (engine.TickLogger, func(), error) {
	return func(runID string) (engine.TickLogger, func(), error) {
		rec, err := runlog.NewTickRecorder(runDir, runID)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := rec.Close(); err != nil {
				logger.Printf("run %s: close recording: %v", runID, err)
				return
			}
			mirror.Enqueue(filepath.Join(runDir, runID+".jsonl.zst"))
		}
		return rec, closeFn, nil
	}
}

func short(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
		// Second signal: hard exit.
		<-ch
		fmt.Fprintln(os.Stderr, "forced exit")
		os.Exit(1)
	}()
	return ctx, cancel
}
