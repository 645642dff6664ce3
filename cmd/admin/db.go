package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional; defaults to <data>/runs.db)")
	runID := fs.String("run", "", "run id filter (required for summary/bottlenecks/actions)")
	personaName := fs.String("persona", "", "persona filter (runs)")
	reason := fs.String("reason", "", "reason filter (runs)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "runs"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "runs.db")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	switch q {
	case "runs":
		listRuns(db, *personaName, *reason, *limit)
	case "summary":
		showSummary(db, requireRun(*runID))
	case "bottlenecks":
		listBottlenecks(db, requireRun(*runID))
	case "actions":
		listActions(db, requireRun(*runID))
	default:
		fmt.Fprintf(os.Stderr, "unknown query %q (want runs|summary|bottlenecks|actions)\n", q)
		os.Exit(2)
	}
}

func requireRun(runID string) string {
	if strings.TrimSpace(runID) == "" {
		fmt.Fprintln(os.Stderr, "missing -run")
		os.Exit(2)
	}
	return runID
}

func listRuns(db *sql.DB, personaName, reason string, limit int) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT run_id,seed,persona,max_days,started_at,
		COALESCE(finished_at,''),COALESCE(reason,''),COALESCE(final_phase,''),
		COALESCE(total_ticks,0),COALESCE(days,0)
		FROM runs`
	var (
		conds []string
		binds []any
	)
	if personaName != "" {
		conds = append(conds, "persona=?")
		binds = append(binds, personaName)
	}
	if reason != "" {
		conds = append(conds, "reason=?")
		binds = append(binds, reason)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY started_at DESC LIMIT ?"
	binds = append(binds, limit)

	rows, err := db.Query(query, binds...)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	defer rows.Close()
	for rows.Next() {
		var r struct {
			RunID      string `json:"run_id"`
			Seed       int64  `json:"seed"`
			Persona    string `json:"persona"`
			MaxDays    int    `json:"max_days"`
			StartedAt  string `json:"started_at"`
			FinishedAt string `json:"finished_at,omitempty"`
			Reason     string `json:"reason,omitempty"`
			FinalPhase string `json:"final_phase,omitempty"`
			TotalTicks uint64 `json:"total_ticks"`
			Days       int    `json:"days"`
		}
		if err := rows.Scan(&r.RunID, &r.Seed, &r.Persona, &r.MaxDays, &r.StartedAt,
			&r.FinishedAt, &r.Reason, &r.FinalPhase, &r.TotalTicks, &r.Days); err != nil {
			fmt.Fprintln(os.Stderr, "scan:", err)
			os.Exit(1)
		}
		printJSON(r)
	}
	if err := rows.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "rows:", err)
		os.Exit(1)
	}
}

func showSummary(db *sql.DB, runID string) {
	var raw sql.NullString
	row := db.QueryRow(`SELECT summary_json FROM runs WHERE run_id=?`, runID)
	if err := row.Scan(&raw); err != nil {
		fmt.Fprintln(os.Stderr, "scan:", err)
		os.Exit(1)
	}
	if !raw.Valid || raw.String == "" {
		fmt.Fprintln(os.Stderr, "run has no recorded summary (still active?)")
		os.Exit(2)
	}
	fmt.Println(raw.String)
}

func listBottlenecks(db *sql.DB, runID string) {
	rows, err := db.Query(`SELECT from_tick,to_tick,COALESCE(cause,'') FROM bottlenecks WHERE run_id=? ORDER BY from_tick`, runID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	defer rows.Close()
	for rows.Next() {
		var r struct {
			FromTick uint64 `json:"from_tick"`
			ToTick   uint64 `json:"to_tick"`
			Cause    string `json:"cause,omitempty"`
		}
		if err := rows.Scan(&r.FromTick, &r.ToTick, &r.Cause); err != nil {
			fmt.Fprintln(os.Stderr, "scan:", err)
			os.Exit(1)
		}
		printJSON(r)
	}
	if err := rows.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "rows:", err)
		os.Exit(1)
	}
}

func listActions(db *sql.DB, runID string) {
	rows, err := db.Query(`SELECT kind,count FROM action_counts WHERE run_id=? ORDER BY count DESC`, runID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	defer rows.Close()
	for rows.Next() {
		var r struct {
			Kind  string `json:"kind"`
			Count int    `json:"count"`
		}
		if err := rows.Scan(&r.Kind, &r.Count); err != nil {
			fmt.Fprintln(os.Stderr, "scan:", err)
			os.Exit(1)
		}
		printJSON(r)
	}
	if err := rows.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "rows:", err)
		os.Exit(1)
	}
}

func printJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		fmt.Fprintln(os.Stderr, "marshal:", err)
		os.Exit(1)
	}
	fmt.Println(string(b))
}
