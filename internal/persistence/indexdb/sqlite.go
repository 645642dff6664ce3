// Package indexdb maintains a queryable index of finished runs in SQLite.
// Writes go through a single off-thread writer so the simulation loop and
// the transport never block on the database.
package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"croftsim/internal/protocol"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqStart reqKind = iota + 1
	reqSummary
)

type req struct {
	kind    reqKind
	start   startRow
	summary *protocol.SummaryMsg
}

type startRow struct {
	RunID     string
	Seed      int64
	Persona   string
	MaxDays   int
	LogPath   string
	StartedAt string
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads; NORMAL durability is
	// fine for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			persona TEXT NOT NULL,
			max_days INTEGER NOT NULL,
			log_path TEXT,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			reason TEXT,
			final_phase TEXT,
			total_ticks INTEGER,
			days INTEGER,
			summary_json TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_persona ON runs(persona);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_reason ON runs(reason);`,
		`CREATE TABLE IF NOT EXISTS bottlenecks (
			run_id TEXT NOT NULL,
			from_tick INTEGER NOT NULL,
			to_tick INTEGER NOT NULL,
			cause TEXT,
			PRIMARY KEY (run_id, from_tick)
		);`,
		`CREATE TABLE IF NOT EXISTS action_counts (
			run_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			count INTEGER NOT NULL,
			PRIMARY KEY (run_id, kind)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	if _, err := db.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// RecordStart registers a run the moment it begins.
func (s *SQLiteIndex) RecordStart(runID string, seed int64, persona string, maxDays int, logPath string) {
	if s == nil || s.closed.Load() {
		return
	}
	r := startRow{
		RunID:     runID,
		Seed:      seed,
		Persona:   persona,
		MaxDays:   maxDays,
		LogPath:   logPath,
		StartedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	select {
	case s.ch <- req{kind: reqStart, start: r}:
	default:
		// Indexer behind; the JSONL recording remains the source of truth.
	}
}

// RecordSummary stores the terminal outcome of a run.
func (s *SQLiteIndex) RecordSummary(sum *protocol.SummaryMsg) {
	if s == nil || s.closed.Load() || sum == nil {
		return
	}
	select {
	case s.ch <- req{kind: reqSummary, summary: sum}:
	default:
	}
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertStart, _ := s.db.Prepare(`INSERT OR REPLACE INTO runs(run_id,seed,persona,max_days,log_path,started_at)
		VALUES(?,?,?,?,?,?)`)
	updateSummary, _ := s.db.Prepare(`UPDATE runs SET finished_at=?, reason=?, final_phase=?, total_ticks=?, days=?, summary_json=?
		WHERE run_id=?`)
	insertOrphan, _ := s.db.Prepare(`INSERT OR IGNORE INTO runs(run_id,seed,persona,max_days,started_at)
		VALUES(?,0,'',0,?)`)
	insertBottleneck, _ := s.db.Prepare(`INSERT OR REPLACE INTO bottlenecks(run_id,from_tick,to_tick,cause) VALUES(?,?,?,?)`)
	insertCount, _ := s.db.Prepare(`INSERT OR REPLACE INTO action_counts(run_id,kind,count) VALUES(?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertStart, updateSummary, insertOrphan, insertBottleneck, insertCount} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	for r := range s.ch {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			continue
		}

		ok := true
		switch r.kind {
		case reqStart:
			st := r.start
			if insertStart != nil {
				if _, err := tx.Stmt(insertStart).Exec(st.RunID, st.Seed, st.Persona, st.MaxDays, st.LogPath, st.StartedAt); err != nil {
					ok = false
				}
			}

		case reqSummary:
			sum := r.summary
			now := time.Now().UTC().Format(time.RFC3339Nano)
			raw, _ := json.Marshal(sum)
			if insertOrphan != nil {
				// A summary may arrive for a run this index never saw start
				// (e.g. batch runs); keep the row well-formed either way.
				if _, err := tx.Stmt(insertOrphan).Exec(sum.RunID, now); err != nil {
					ok = false
				}
			}
			if ok && updateSummary != nil {
				if _, err := tx.Stmt(updateSummary).Exec(now, sum.Reason, sum.FinalPhase,
					int64(sum.TotalTicks), sum.Days, string(raw), sum.RunID); err != nil {
					ok = false
				}
			}
			for _, b := range sum.Bottlenecks {
				if !ok || insertBottleneck == nil {
					break
				}
				if _, err := tx.Stmt(insertBottleneck).Exec(sum.RunID, int64(b.FromTick), int64(b.ToTick), b.Cause); err != nil {
					ok = false
				}
			}
			for kind, n := range sum.ActionCounts {
				if !ok || insertCount == nil {
					break
				}
				if _, err := tx.Stmt(insertCount).Exec(sum.RunID, kind, n); err != nil {
					ok = false
				}
			}
		}

		if ok {
			_ = tx.Commit()
		} else {
			_ = tx.Rollback()
		}
	}
}

// RunRow is one indexed run, as returned by RecentRuns.
type RunRow struct {
	RunID      string
	Seed       int64
	Persona    string
	Reason     string
	FinalPhase string
	TotalTicks uint64
	Days       int
}

// RecentRuns lists the most recently started runs, newest first.
func (s *SQLiteIndex) RecentRuns(limit int) ([]RunRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`SELECT run_id, seed, persona,
			COALESCE(reason,''), COALESCE(final_phase,''),
			COALESCE(total_ticks,0), COALESCE(days,0)
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var r RunRow
		var ticks int64
		if err := rows.Scan(&r.RunID, &r.Seed, &r.Persona, &r.Reason, &r.FinalPhase, &ticks, &r.Days); err != nil {
			return nil, err
		}
		r.TotalTicks = uint64(ticks)
		out = append(out, r)
	}
	return out, rows.Err()
}
